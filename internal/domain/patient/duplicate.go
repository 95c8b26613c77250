package patient

import (
	"time"

	"github.com/google/uuid"
)

// Criteria are the fields a registration is matched on. A patient is a
// likely duplicate when the primary phone matches, or when first name, last
// name, date of birth and gender all match exactly. Names are compared
// case-sensitively.
type Criteria struct {
	FirstName    string
	LastName     string
	DateOfBirth  time.Time
	Gender       string
	PrimaryPhone string
}

// CriteriaFor builds the match criteria of p.
func CriteriaFor(p *Patient) Criteria {
	return Criteria{
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		DateOfBirth:  p.DateOfBirth,
		Gender:       p.Gender,
		PrimaryPhone: p.PrimaryPhone,
	}
}

// Matches reports whether p is a duplicate candidate. Facility scoping and
// exclusion are the caller's concern.
func (c Criteria) Matches(p *Patient) bool {
	if c.PrimaryPhone != "" && p.PrimaryPhone == c.PrimaryPhone {
		return true
	}
	if c.DateOfBirth.IsZero() || c.FirstName == "" || c.LastName == "" {
		return false
	}
	return p.FirstName == c.FirstName &&
		p.LastName == c.LastName &&
		p.Gender == c.Gender &&
		sameDate(p.DateOfBirth, c.DateOfBirth)
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// FilterDuplicates applies the facility scope, the predicate and the
// exclusion to an in-memory candidate set.
func FilterDuplicates(candidates []*Patient, facilityID uuid.UUID, c Criteria, excludeID *uuid.UUID) []*Patient {
	var out []*Patient
	for _, p := range candidates {
		if p.FacilityID != facilityID {
			continue
		}
		if excludeID != nil && p.ID == *excludeID {
			continue
		}
		if c.Matches(p) {
			out = append(out, p)
		}
	}
	return out
}
