package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/tea-service/internal/models"
)

// undefined_table
const pqUndefinedTable = "42P01"

// PostgresStore keeps records as JSONB rows keyed by name
type PostgresStore struct {
	db  *sql.DB
	log *logrus.Logger
}

// NewPostgresStore initializes a store over an open connection
func NewPostgresStore(db *sql.DB, log *logrus.Logger) *PostgresStore {
	return &PostgresStore{db: db, log: log}
}

// EnsureSchema creates the scenarios table if it does not exist
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE SCHEMA IF NOT EXISTS tea;
		CREATE TABLE IF NOT EXISTS tea.scenarios (
			name       TEXT PRIMARY KEY,
			record     JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create scenarios table: %w", err)
	}
	return nil
}

// Save upserts a record
func (s *PostgresStore) Save(ctx context.Context, name string, record *models.ScenarioRecord) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	data, err := EncodeRecord(record, FormatJSON)
	if err != nil {
		return fmt.Errorf("failed to encode scenario %s: %w", name, err)
	}

	query := `
		INSERT INTO tea.scenarios (name, record, created_at, updated_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT (name)
		DO UPDATE SET record = EXCLUDED.record, updated_at = CURRENT_TIMESTAMP`
	if _, err := s.db.ExecContext(ctx, query, name, data); err != nil {
		return fmt.Errorf("failed to save scenario %s: %w", name, describe(err))
	}

	s.log.Infof("Scenario saved: %s", name)
	return nil
}

// Load retrieves a record by name
func (s *PostgresStore) Load(ctx context.Context, name string) (*models.ScenarioRecord, error) {
	var data []byte
	query := `SELECT record FROM tea.scenarios WHERE name = $1`
	err := s.db.QueryRowContext(ctx, query, name).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, notFound(name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load scenario %s: %w", name, describe(err))
	}

	record, err := DecodeRecord(data, FormatJSON)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", name, err)
	}
	return record, nil
}

// List returns all record names in order
func (s *PostgresStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM tea.scenarios ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list scenarios: %w", describe(err))
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan scenario name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}
	return names, nil
}

// LoadMany reads several records in one query. Any missing name fails the call.
func (s *PostgresStore) LoadMany(ctx context.Context, names []string) (map[string]*models.ScenarioRecord, error) {
	query := `SELECT name, record FROM tea.scenarios WHERE name = ANY($1)`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(names))
	if err != nil {
		return nil, fmt.Errorf("failed to load scenarios: %w", describe(err))
	}
	defer rows.Close()

	records := make(map[string]*models.ScenarioRecord, len(names))
	for rows.Next() {
		var name string
		var data []byte
		if err := rows.Scan(&name, &data); err != nil {
			return nil, fmt.Errorf("failed to scan scenario: %w", err)
		}
		record, err := DecodeRecord(data, FormatJSON)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", name, err)
		}
		records[name] = record
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load scenarios: %w", err)
	}

	for _, name := range names {
		if _, ok := records[name]; !ok {
			return nil, notFound(name)
		}
	}
	return records, nil
}

// describe adds a hint for a missing table
func describe(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUndefinedTable {
		return fmt.Errorf("%w (schema not initialized)", err)
	}
	return err
}
