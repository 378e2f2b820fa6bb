package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const insertEventSQL = `
INSERT INTO relay_events (id, kind, node, subject, session_id, remote_addr, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

// PostgresStore writes events to the relay_events table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an already migrated pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Insert implements Store.
func (p *PostgresStore) Insert(ctx context.Context, ev Event) error {
	_, err := p.pool.Exec(ctx, insertEventSQL,
		ev.ID, string(ev.Kind), ev.Node, ev.Subject, ev.SessionID, ev.RemoteAddr, ev.At)
	if err != nil {
		return fmt.Errorf("insert %s event: %w", ev.Kind, err)
	}
	return nil
}
