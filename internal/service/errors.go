package service

import (
	"errors"
	"fmt"
	"strings"

	"candycost/internal/costing"

	"github.com/google/uuid"
)

var (
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

type NotFoundError struct {
	Entity string
	ID     uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

type DuplicateComponentError struct {
	Name         string
	Manufacturer string
}

func (e *DuplicateComponentError) Error() string {
	return "Component with this name and manufacturer already exists"
}

// ReferentialIntegrityError: the item is still used by other products' BOMs.
type ReferentialIntegrityError struct {
	ID           uuid.UUID
	Action       string
	ReferencedBy []costing.Node
}

func (e *ReferentialIntegrityError) Error() string {
	names := make([]string, len(e.ReferencedBy))
	for i, n := range e.ReferencedBy {
		names[i] = n.Name
	}
	return fmt.Sprintf("cannot %s: still referenced by %s", e.Action, strings.Join(names, ", "))
}
