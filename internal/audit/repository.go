package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PgRepository reads the audit_logs table.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Window returns matching rows newest first.
func (r *PgRepository) Window(ctx context.Context, filters TimelineFilters, offset, limit int) ([]TimelineRow, error) {
	query := `SELECT actor_id, action, entity, entity_id, meta, occurred_at FROM audit_logs WHERE 1=1`
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if !filters.From.IsZero() {
		query += ` AND occurred_at >= ` + arg(filters.From)
	}
	if !filters.To.IsZero() {
		query += ` AND occurred_at < ` + arg(filters.To)
	}
	if filters.ActorID != 0 {
		query += ` AND actor_id = ` + arg(filters.ActorID)
	}
	if filters.Entity != "" {
		query += ` AND entity = ` + arg(filters.Entity)
	}
	if filters.Action != "" {
		query += ` AND action = ` + arg(filters.Action)
	}
	query += ` ORDER BY occurred_at DESC, id DESC OFFSET ` + arg(offset) + ` LIMIT ` + arg(limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TimelineRow
	for rows.Next() {
		var row TimelineRow
		var meta []byte
		if err := rows.Scan(&row.ActorID, &row.Action, &row.Entity, &row.EntityID, &meta, &row.At); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &row.Meta); err != nil {
				return nil, err
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
