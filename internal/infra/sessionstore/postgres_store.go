package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/yanqian/temppredict/internal/domain/session"
)

const schema = `
	CREATE TABLE IF NOT EXISTS dashboard_sessions (
		context_id TEXT PRIMARY KEY,
		payload    JSONB NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

// DB is the subset of *pgxpool.Pool the store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists sessions in the dashboard_sessions table.
type PostgresStore struct {
	pool DB
	now  func() time.Time
}

// NewPostgresStore creates a new store.
func NewPostgresStore(pool DB) *PostgresStore {
	return &PostgresStore{pool: pool, now: time.Now}
}

// EnsureSchema creates the sessions table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// Save upserts the session row.
func (s *PostgresStore) Save(ctx context.Context, contextID string, sess session.Session, ttl time.Duration) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	expiresAt := sess.ExpiresAt
	if ttl > 0 {
		expiresAt = s.now().Add(ttl)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO dashboard_sessions (context_id, payload, expires_at, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (context_id) DO UPDATE
		SET payload = EXCLUDED.payload,
		    expires_at = EXCLUDED.expires_at,
		    updated_at = NOW()
	`, contextID, payload, expiresAt)
	return err
}

// Load fetches a non-expired session row.
func (s *PostgresStore) Load(ctx context.Context, contextID string) (session.Session, bool, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, `
		SELECT payload
		FROM dashboard_sessions
		WHERE context_id = $1 AND expires_at > NOW()
		LIMIT 1
	`, contextID).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return session.Session{}, false, nil
		}
		return session.Session{}, false, err
	}
	var sess session.Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return session.Session{}, false, fmt.Errorf("decode session: %w", err)
	}
	return sess, true, nil
}

// Delete removes the session row.
func (s *PostgresStore) Delete(ctx context.Context, contextID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM dashboard_sessions WHERE context_id = $1`, contextID)
	return err
}

// PurgeExpired removes rows whose expiry has passed and returns how many were deleted.
func (s *PostgresStore) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM dashboard_sessions WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

var _ session.Store = (*PostgresStore)(nil)
