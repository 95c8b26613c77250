package facility

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the persistence interface for facilities and staff.
type Repository interface {
	Create(ctx context.Context, f *Facility) error
	GetByID(ctx context.Context, id uuid.UUID) (*Facility, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	List(ctx context.Context, activeOnly bool) ([]*Facility, error)

	CreateStaff(ctx context.Context, s *Staff) error
	GetStaff(ctx context.Context, id uuid.UUID) (*Staff, error)
	ListStaff(ctx context.Context, facilityID *uuid.UUID, role string) ([]*Staff, error)
}
