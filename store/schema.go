// Package store owns the database schema.
package store

import (
	"context"
	"database/sql"
	_ "embed"

	"guidebook/pkg/logger"
)

//go:embed schema.sql
var Schema string

// Migrate creates the missing tables. It is safe to run on every start.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		logger.Sugar.Errorf("Failed to apply schema: %v", err)
		return err
	}
	logger.Sugar.Info("Database schema is up to date")
	return nil
}
