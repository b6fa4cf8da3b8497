package directory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a hospital id is unknown.
var ErrNotFound = errors.New("hospital not found")

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const hospitalCols = `id, name, lat, lng, base_eta_minutes, capacity_ratio, specialties, created_at, updated_at`

func (r *repoPG) scanHospital(row pgx.Row) (*Hospital, error) {
	var h Hospital
	err := row.Scan(&h.ID, &h.Name, &h.Location.Lat, &h.Location.Lng,
		&h.BaseEtaMinutes, &h.CapacityRatio, &h.Specialties, &h.CreatedAt, &h.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *repoPG) List(ctx context.Context) ([]*Hospital, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+hospitalCols+` FROM hospital ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Hospital
	for rows.Next() {
		h, err := r.scanHospital(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, h)
	}
	return items, rows.Err()
}

func (r *repoPG) ListPage(ctx context.Context, limit, offset int) ([]*Hospital, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM hospital`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+hospitalCols+` FROM hospital ORDER BY name, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Hospital
	for rows.Next() {
		h, err := r.scanHospital(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, h)
	}
	return items, total, rows.Err()
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Hospital, error) {
	return r.scanHospital(r.pool.QueryRow(ctx, `SELECT `+hospitalCols+` FROM hospital WHERE id = $1`, id))
}

func (r *repoPG) Upsert(ctx context.Context, h *Hospital) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO hospital (id, name, lat, lng, base_eta_minutes, capacity_ratio, specialties)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			lat = EXCLUDED.lat,
			lng = EXCLUDED.lng,
			base_eta_minutes = EXCLUDED.base_eta_minutes,
			capacity_ratio = EXCLUDED.capacity_ratio,
			specialties = EXCLUDED.specialties,
			updated_at = NOW()`,
		h.ID, h.Name, h.Location.Lat, h.Location.Lng,
		h.BaseEtaMinutes, h.CapacityRatio, h.Specialties)
	return err
}
