package data

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/roadsideiq/verify-api/internal/data/pgxutil"
	"github.com/roadsideiq/verify-api/internal/domain/model"
)

// ListRecentByType returns the most recent jobs of a given type, ordered by created_at DESC.
func (r *JobRepo) ListRecentByType(ctx context.Context, jobType model.JobType, limit int) ([]*model.Job, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 1000 {
		limit = 1000 // cap to prevent large scans
	}
	query := `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE type = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	var result []*model.Job
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, string(jobType), limit)
		if err != nil {
			return fmt.Errorf("query jobs by type: %w", err)
		}
		defer rows.Close()

		vals, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.Job])
		if err != nil {
			return fmt.Errorf("collect jobs: %w", err)
		}
		result = vals
		return nil
	}); err != nil {
		return nil, err
	}
	return result, nil
}
