package infra

import (
	"fmt"

	"candycost/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate to
// create / update all tables, then applies the idempotent SQL patches that GORM
// cannot express (expression indexes, check constraints).
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := Open(dsn)
	if err != nil {
		return nil, err
	}
	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Open connects without touching the schema.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		// Maps unique violations onto gorm.ErrDuplicatedKey.
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	return db, nil
}

// RunMigrations creates the schema. Safe to run on every start and from
// integration tests.
func RunMigrations(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto`).Error; err != nil {
		return fmt.Errorf("pgcrypto: %w", err)
	}
	if err := db.AutoMigrate(
		&model.Component{},
		&model.Product{},
		&model.ProductLine{},
		&model.CostHistory{},
		&model.User{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	if err := applySchemaPatches(db); err != nil {
		return fmt.Errorf("schema patches: %w", err)
	}
	return nil
}

// applySchemaPatches runs idempotent DDL statements that GORM AutoMigrate cannot
// express on its own. Each statement uses IF NOT EXISTS guards so re-running on
// an already-patched DB is safe.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		// Component identity is (name, manufacturer), case-insensitive.
		{"unique component identity", `
CREATE UNIQUE INDEX IF NOT EXISTS idx_components_identity
    ON components (LOWER(name), LOWER(manufacturer))`},
		{"unique user email", `
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_lower
    ON users (LOWER(email))`},
		// Dependents lookup: which products reference a given component id.
		{"product_lines component index", `
CREATE INDEX IF NOT EXISTS idx_product_lines_component
    ON product_lines (component_id, product_id)`},
		{"cost_history listing index", `
CREATE INDEX IF NOT EXISTS idx_cost_history_product_created
    ON cost_histories (product_id, created_at DESC)`},
		{"positive package quantity", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_components_package_positive') THEN
    ALTER TABLE components ADD CONSTRAINT chk_components_package_positive CHECK (package_quantity > 0);
  END IF;
END $$`},
		{"positive yield", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_products_yield_positive') THEN
    ALTER TABLE products ADD CONSTRAINT chk_products_yield_positive CHECK (yield > 0);
  END IF;
END $$`},
	}

	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
