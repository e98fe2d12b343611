// Copyright 2025 Property Underwriter
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package store persists aggregated property records. The aggregation engine
// only depends on the Save contract; the storage schema is an internal
// detail of this package.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/t-haskell/property-underwriter/aggregator/property"
)

// PostgresStore writes canonical property records to PostgreSQL. Records are
// append-only: a later fetch for the same address inserts a new row and
// supersedes the old one rather than updating it.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres connects to PostgreSQL and verifies the connection.
func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgresStore wraps an existing database handle (used in tests).
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the records table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS property_records (
			id UUID PRIMARY KEY,
			address_key TEXT NOT NULL,
			address TEXT NOT NULL,
			record JSONB NOT NULL,
			fetched_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_property_records_address_key
			ON property_records (address_key, fetched_at DESC);`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// Save implements the persistence contract consumed by the orchestrator.
func (s *PostgresStore) Save(ctx context.Context, record *property.Canonical) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshaling record failed: %w", err)
	}

	const insert = `
		INSERT INTO property_records (id, address_key, address, record, fetched_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err = s.db.ExecContext(ctx, insert,
		uuid.NewString(),
		record.Address.CacheKey(),
		record.Address.String(),
		payload,
		record.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting property record failed: %w", err)
	}
	return nil
}

// Latest returns the most recent record for an address, or nil when the
// address has never been persisted.
func (s *PostgresStore) Latest(ctx context.Context, addr property.Address) (*property.Canonical, error) {
	const query = `
		SELECT record FROM property_records
		WHERE address_key = $1
		ORDER BY fetched_at DESC
		LIMIT 1`

	var payload []byte
	if err := s.db.QueryRowContext(ctx, query, addr.CacheKey()).Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	var record property.Canonical
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("decoding stored record failed: %w", err)
	}
	return &record, nil
}

// Close releases the database handle.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
