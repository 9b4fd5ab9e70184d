package database

import (
	"context"
	"time"
)

const countRateLimitSince = `-- name: CountRateLimitSince :one
SELECT count(*) FROM rate_limit_log
WHERE identifier = $1 AND created_at >= $2
`

type CountRateLimitSinceParams struct {
	Identifier string    `json:"identifier"`
	CreatedAt  time.Time `json:"created_at"`
}

func (q *Queries) CountRateLimitSince(ctx context.Context, arg CountRateLimitSinceParams) (int64, error) {
	row := q.db.QueryRow(ctx, countRateLimitSince, arg.Identifier, arg.CreatedAt)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const insertRateLimit = `-- name: InsertRateLimit :exec
INSERT INTO rate_limit_log (identifier) VALUES ($1)
`

func (q *Queries) InsertRateLimit(ctx context.Context, identifier string) error {
	_, err := q.db.Exec(ctx, insertRateLimit, identifier)
	return err
}

const deleteRateLimitBefore = `-- name: DeleteRateLimitBefore :exec
DELETE FROM rate_limit_log WHERE created_at < $1
`

func (q *Queries) DeleteRateLimitBefore(ctx context.Context, before time.Time) error {
	_, err := q.db.Exec(ctx, deleteRateLimitBefore, before)
	return err
}
