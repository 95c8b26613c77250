package record

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the persistence interface for appointments and the
// joined record views built on them.
type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	List(ctx context.Context, f Filter) ([]Record, int, error)
	Stats(ctx context.Context, f Filter) (*Stats, error)
	FilterOptions(ctx context.Context, facilityID *uuid.UUID) (*FilterOptions, error)
	GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status, updatedBy string) error
}
