package audit

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"resc/internal/app/db"
)

// Open connects to the audit database at dsn, applies migrations and returns a sink that
// writes to it. The caller runs the sink and closes the pool after the sink has stopped.
func Open(ctx context.Context, dsn, node string) (*Sink, *pgxpool.Pool, error) {
	pool, err := db.NewPool(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}

	return NewSink(NewPostgresStore(pool), node, defaultBuffer), pool, nil
}
