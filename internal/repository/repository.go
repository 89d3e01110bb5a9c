// Package repository provides PostgreSQL persistence for completed searches.
//
// Repositories accept a DBTX so they work with the connection pool, a
// transaction, or a pgxmock pool in tests:
//
//	db, _ := database.New(ctx, &cfg.Database, logger)
//	history := repository.NewPgSearchHistoryRepository(db)
//
// Methods return domain errors (domain.ErrNotFound, domain.ErrInvalidInput)
// and wrap driver errors with fmt.Errorf and %w.
package repository

import (
	"github.com/helixir/paper-discovery-service/internal/database"
)

// DBTX is the database interface supporting both pool and transaction contexts.
type DBTX = database.DBTX
