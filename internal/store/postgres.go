package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PostgresStore keeps every document in a single JSONB table, one row
// per (collection, id).
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) List(ctx context.Context, collection string) ([]Document, error) {
	if s.db == nil {
		return nil, ErrNotConfigured
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, data
		FROM documents
		WHERE collection=$1
		ORDER BY id ASC
	`, collection)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	items := make([]Document, 0)
	for rows.Next() {
		var item Document
		var data []byte
		if err := rows.Scan(&item.ID, &data); err != nil {
			return nil, fmt.Errorf("scan %s document: %w", collection, err)
		}
		item.Data = json.RawMessage(data)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s documents: %w", collection, err)
	}
	return items, nil
}

func (s *PostgresStore) Get(ctx context.Context, collection, id string) (json.RawMessage, error) {
	if s.db == nil {
		return nil, ErrNotConfigured
	}
	var data []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT data FROM documents WHERE collection=$1 AND id=$2
	`, collection, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return json.RawMessage(data), nil
}

func (s *PostgresStore) Set(ctx context.Context, collection, id string, data json.RawMessage) error {
	if s.db == nil {
		return ErrNotConfigured
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (collection, id) DO UPDATE SET data=EXCLUDED.data, updated_at=NOW()
	`, collection, id, string(data))
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *PostgresStore) UpdateField(ctx context.Context, collection, id, field string, value json.RawMessage) error {
	if s.db == nil {
		return ErrNotConfigured
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET data = jsonb_set(data, ARRAY[$3], $4::jsonb, true), updated_at=NOW()
		WHERE collection=$1 AND id=$2
	`, collection, id, field, string(value))
	if err != nil {
		return fmt.Errorf("update %s/%s field %s: %w", collection, id, field, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s/%s field %s rows: %w", collection, id, field, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, collection, id string) error {
	if s.db == nil {
		return ErrNotConfigured
	}
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM documents WHERE collection=$1 AND id=$2
	`, collection, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s/%s rows: %w", collection, id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SetOrderBatch(ctx context.Context, collection string, items []OrderUpdate) error {
	if s.db == nil {
		return ErrNotConfigured
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin order batch: %w", err)
	}
	for _, item := range items {
		if _, err := tx.ExecContext(ctx, `
			UPDATE documents
			SET data = jsonb_set(data, '{sortOrder}', to_jsonb($3::int), true), updated_at=NOW()
			WHERE collection=$1 AND id=$2
		`, collection, item.ID, item.SortOrder); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("order %s/%s: %w", collection, item.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order batch: %w", err)
	}
	return nil
}

// Ping verifies the database connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	if s.db == nil {
		return ErrNotConfigured
	}
	return s.db.PingContext(ctx)
}
