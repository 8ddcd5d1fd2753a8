// Package storage opens the local wallet database and wires its
// repositories.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/migrations"
	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/repositories/activity"
	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/repositories/settings"
	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/repositories/submissions"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

type Repositories struct {
	Settings    settings.Repository
	Submissions submissions.Repository
	Activity    activity.Repository
}

func NewRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Settings:    settings.NewSQLiteRepository(db),
		Submissions: submissions.NewSQLiteRepository(db),
		Activity:    activity.NewTxRepository(db),
	}
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens the database at dsn and brings its schema up to date.
func InitDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// sqlite allows one writer; a single connection also keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}
