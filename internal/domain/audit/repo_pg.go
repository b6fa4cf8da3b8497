package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG returns a Postgres-backed audit repository.
func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const entryCols = `id, actor_id, action, resource, timestamp, details`

func (r *repoPG) scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	var details []byte
	err := row.Scan(&e.ID, &e.ActorID, &e.Action, &e.Resource, &e.Timestamp, &details)
	if err != nil {
		return nil, err
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &e.Details); err != nil {
			return nil, fmt.Errorf("decode audit details: %w", err)
		}
	}
	return &e, nil
}

func (r *repoPG) Append(ctx context.Context, e *Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	e.ID = uuid.New()
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	var details []byte
	if e.Details != nil {
		b, err := json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("encode audit details: %w", err)
		}
		details = b
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_log (id, actor_id, action, resource, timestamp, details)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		e.ID, e.ActorID, e.Action, e.Resource, e.Timestamp, details)
	return err
}

func (r *repoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Entry, int, error) {
	query := `SELECT ` + entryCols + ` FROM audit_log WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM audit_log WHERE 1=1`
	var args []interface{}
	idx := 1

	for _, col := range []string{"actor_id", "action", "resource"} {
		if p, ok := params[col]; ok {
			query += fmt.Sprintf(` AND %s = $%d`, col, idx)
			countQuery += fmt.Sprintf(` AND %s = $%d`, col, idx)
			args = append(args, p)
			idx++
		}
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY timestamp DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Entry
	for rows.Next() {
		e, err := r.scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}
