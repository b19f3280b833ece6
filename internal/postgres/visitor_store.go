package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS visitor_storage (
	visitor_id TEXT        NOT NULL,
	key        TEXT        NOT NULL,
	value      TEXT        NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (visitor_id, key)
)`

// VisitorStore is the durable storage.KV: one row per visitor key.
type VisitorStore struct{ DB *pgxpool.Pool }

// Open connects, verifies the connection and creates the table when missing.
// The caller owns the returned store and must Close it.
func Open(ctx context.Context, dsn string) (*VisitorStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 8
	cfg.MinConns = 1
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	s := &VisitorStore{DB: pool}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

func (s *VisitorStore) Close() { s.DB.Close() }

func (s *VisitorStore) Get(ctx context.Context, visitorID, key string) (string, bool, error) {
	var v string
	err := s.DB.QueryRow(ctx,
		`SELECT value FROM visitor_storage WHERE visitor_id=$1 AND key=$2`,
		visitorID, key,
	).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *VisitorStore) Set(ctx context.Context, visitorID, key, value string) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO visitor_storage(visitor_id, key, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (visitor_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`, visitorID, key, value)
	return err
}

func (s *VisitorStore) Delete(ctx context.Context, visitorID string, keys ...string) error {
	_, err := s.DB.Exec(ctx,
		`DELETE FROM visitor_storage WHERE visitor_id=$1 AND key = ANY($2)`,
		visitorID, keys,
	)
	return err
}
