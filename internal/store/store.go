// Package store persists submissions, alerts, reminder logs and reports in
// PostgreSQL. All mutations on submissions carry an optimistic version check;
// reminder rows are guarded by a uniqueness constraint on (submission, stage).
package store

import (
	"database/sql"

	"github.com/lib/pq"
)

// Store wraps the shared *sql.DB handle.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// uniqueViolation is the PostgreSQL error code for duplicate keys.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return string(pqErr.Code) == uniqueViolation
	}
	return false
}
