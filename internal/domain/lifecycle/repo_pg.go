package lifecycle

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const requestCols = `id, encounter_id, hospital_id, status, reason, created_at, responded_at, expires_at`

func (r *repoPG) scanRequest(row pgx.Row) (*HospitalRequest, error) {
	var hr HospitalRequest
	err := row.Scan(&hr.ID, &hr.EncounterID, &hr.HospitalID, &hr.Status, &hr.Reason,
		&hr.CreatedAt, &hr.RespondedAt, &hr.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &hr, nil
}

func (r *repoPG) Create(ctx context.Context, req *HospitalRequest) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO hospital_request (id, encounter_id, hospital_id, status, created_at, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		req.ID, req.EncounterID, req.HospitalID, req.Status, req.CreatedAt, req.ExpiresAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return &DuplicateRequestError{EncounterID: req.EncounterID, HospitalID: req.HospitalID}
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*HospitalRequest, error) {
	return r.scanRequest(r.pool.QueryRow(ctx, `SELECT `+requestCols+` FROM hospital_request WHERE id = $1`, id))
}

func (r *repoPG) Transition(ctx context.Context, id uuid.UUID, to Status, reason *string) (*HospitalRequest, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE hospital_request
		SET status=$2, reason=COALESCE($3, reason), responded_at=NOW()
		WHERE id=$1 AND status='PENDING'
		RETURNING `+requestCols,
		id, to, reason)

	req, err := r.scanRequest(row)
	if errors.Is(err, ErrNotFound) {
		// Either unknown or already terminal; look again to tell them apart.
		existing, gerr := r.GetByID(ctx, id)
		if gerr != nil {
			return nil, gerr
		}
		return nil, &InvalidTransitionError{RequestID: id, Status: existing.Status}
	}
	return req, err
}

func (r *repoPG) ListByEncounter(ctx context.Context, encounterID uuid.UUID) ([]*HospitalRequest, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+requestCols+` FROM hospital_request WHERE encounter_id = $1 ORDER BY created_at`, encounterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *repoPG) CountActive(ctx context.Context, encounterID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM hospital_request
		WHERE encounter_id = $1 AND status IN ('PENDING','ACCEPTED')`, encounterID).Scan(&n)
	return n, err
}

func (r *repoPG) ListExpired(ctx context.Context, now time.Time, limit int) ([]*HospitalRequest, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+requestCols+` FROM hospital_request
		WHERE status = 'PENDING' AND expires_at < $1
		ORDER BY expires_at LIMIT $2`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *repoPG) collect(rows pgx.Rows) ([]*HospitalRequest, error) {
	var items []*HospitalRequest
	for rows.Next() {
		req, err := r.scanRequest(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, req)
	}
	return items, rows.Err()
}
