// Package journal persists completed intake requests for auditing. It is a
// write-only sink: nothing is read back at startup and a failed write never
// reaches the user.
package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Request is one completed intake request as stored in exchange_requests.
type Request struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	Username  string    `db:"username"`
	Action    string    `db:"action"`
	City      string    `db:"city"`
	CreatedAt time.Time `db:"created_at"`
}

// Repo writes requests into Postgres.
type Repo struct {
	db *sqlx.DB
}

// NewRepo wraps an open connection pool.
func NewRepo(db *sqlx.DB) *Repo {
	return &Repo{db: db}
}

// Record inserts one completed request.
func (r *Repo) Record(ctx context.Context, userID int64, username, action, city string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO exchange_requests (user_id, username, action, city) VALUES ($1, $2, $3, $4)`,
		userID, username, action, city,
	)
	if err != nil {
		return fmt.Errorf("insert exchange request: %w", err)
	}
	return nil
}

// CountSince reports how many requests arrived at or after ts. Used by
// operational tooling, not by the conversation flow.
func (r *Repo) CountSince(ctx context.Context, ts time.Time) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM exchange_requests WHERE created_at >= $1`, ts)
	if err != nil {
		return 0, fmt.Errorf("count exchange requests: %w", err)
	}
	return n, nil
}
