package outbox

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PgSource claims rows with FOR UPDATE SKIP LOCKED so several relays can
// share one table. It uses its own pgx pool, separate from the request path.
type PgSource struct {
	pool *pgxpool.Pool
}

func NewPgSource(pool *pgxpool.Pool) *PgSource {
	return &PgSource{pool: pool}
}

// NewPool opens a small pgx pool for the relay.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 4
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func (s *PgSource) Claim(ctx context.Context, limit int, lease time.Duration) ([]Message, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
		SELECT id, message_id, routing_key, body::text, attempts
		FROM outbox
		WHERE status IN ('pending', 'processing')
		  AND next_retry_at <= NOW()
		ORDER BY next_retry_at ASC, id ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}

	var out []Message
	for rows.Next() {
		var m Message
		var body string
		if err := rows.Scan(&m.ID, &m.MessageID, &m.RoutingKey, &body, &m.Attempts); err != nil {
			rows.Close()
			return nil, err
		}
		m.Body = []byte(body)
		out = append(out, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, tx.Commit(ctx)
	}

	ids := make([]int64, len(out))
	for i, m := range out {
		ids[i] = m.ID
	}
	if _, err := tx.Exec(ctx, `
		UPDATE outbox
		SET status = 'processing',
		    next_retry_at = NOW() + make_interval(secs => $2)
		WHERE id = ANY($1)
	`, ids, lease.Seconds()); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PgSource) MarkSent(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE outbox
		SET status = 'sent', sent_at = NOW(), last_error = NULL
		WHERE id = $1
	`, id)
	return err
}

func (s *PgSource) MarkRetry(ctx context.Context, id int64, attempts int, next time.Time, lastErr string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE outbox
		SET status = 'pending', attempts = $2, next_retry_at = $3, last_error = $4
		WHERE id = $1
	`, id, attempts, next.UTC(), lastErr)
	return err
}

func (s *PgSource) MarkDead(ctx context.Context, id int64, attempts int, lastErr string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE outbox
		SET status = 'dead', attempts = $2, last_error = $3
		WHERE id = $1
	`, id, attempts, lastErr)
	return err
}
