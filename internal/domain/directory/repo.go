package directory

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	List(ctx context.Context) ([]*Hospital, error)
	ListPage(ctx context.Context, limit, offset int) ([]*Hospital, int, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Hospital, error)
	Upsert(ctx context.Context, h *Hospital) error
}
