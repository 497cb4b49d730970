package repository

import (
	"context"
	"database/sql"

	"gorm.io/gorm"
)

// catalogLockKey is the pg advisory lock serializing catalog writes.
const catalogLockKey int64 = 0x63616e6479 // "candy"

// Repos groups the catalog repositories bound to one transaction.
type Repos struct {
	Components ComponentRepository
	Products   ProductRepository
	History    CostHistoryRepository
}

// NewRepos binds the catalog repositories to db (a pool or a transaction).
func NewRepos(db *gorm.DB) Repos {
	return Repos{
		Components: NewComponentRepository(db),
		Products:   NewProductRepository(db),
		History:    NewCostHistoryRepository(db),
	}
}

// UnitOfWork runs catalog operations transactionally.
//
// Do runs fn in a write transaction that holds the catalog lock, so writes
// and the cost recomputation they trigger are serialized and see one
// consistent state. Read runs fn in a read-only repeatable-read transaction.
// fn's error rolls the transaction back and is returned unchanged.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(r Repos) error) error
	Read(ctx context.Context, fn func(r Repos) error) error
}

type gormUnitOfWork struct{ db *gorm.DB }

func NewUnitOfWork(db *gorm.DB) UnitOfWork { return &gormUnitOfWork{db: db} }

func (u *gormUnitOfWork) Do(ctx context.Context, fn func(r Repos) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", catalogLockKey).Error; err != nil {
			return err
		}
		return fn(NewRepos(tx))
	})
}

func (u *gormUnitOfWork) Read(ctx context.Context, fn func(r Repos) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepos(tx))
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
}
