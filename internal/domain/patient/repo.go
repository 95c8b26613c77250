package patient

import (
	"context"

	"github.com/google/uuid"

	"github.com/excelthedev/Plural-health/pkg/pagination"
)

// Repository defines the persistence interface for patients.
type Repository interface {
	// Create assigns ID and the next patient code of the facility.
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	SoftDelete(ctx context.Context, id uuid.UUID, updatedBy string) error
	List(ctx context.Context, f ListFilter) ([]*Patient, int, error)
	FindDuplicates(ctx context.Context, facilityID uuid.UUID, c Criteria, excludeID *uuid.UUID) ([]*Patient, error)
}

// Sort keys accepted by List.
const (
	SortCreatedAt     = "createdAt"
	SortFirstName     = "firstName"
	SortLastName      = "lastName"
	SortPatientCode   = "patientCode"
	SortDateOfBirth   = "dateOfBirth"
	SortWalletBalance = "walletBalance"
)

var sortColumns = map[string]string{
	SortCreatedAt:     "created_at",
	SortFirstName:     "first_name",
	SortLastName:      "last_name",
	SortPatientCode:   "patient_code",
	SortDateOfBirth:   "date_of_birth",
	SortWalletBalance: "wallet_balance",
}

// ListFilter narrows and orders a patient listing.
type ListFilter struct {
	Page            pagination.Params
	Search          string
	FacilityID      *uuid.UUID
	Gender          string
	HasInsurance    *bool
	SortBy          string
	SortDesc        bool
	IncludeInactive bool
}

// NewListFilter normalizes raw query values. Unknown sort keys fall back to
// createdAt; the default order is newest first.
func NewListFilter(page pagination.Params, search, sortBy, sortOrder string) ListFilter {
	if _, ok := sortColumns[sortBy]; !ok {
		sortBy = SortCreatedAt
	}
	return ListFilter{
		Page:     page,
		Search:   search,
		SortBy:   sortBy,
		SortDesc: sortOrder != "asc",
	}
}
