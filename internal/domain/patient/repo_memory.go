package patient

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepo is a Repository held in process memory. It is the owned
// replacement for a package-level mock list and is safe for concurrent use.
type MemoryRepo struct {
	mu       sync.RWMutex
	patients map[uuid.UUID]*Patient
	order    []uuid.UUID
	now      func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{patients: make(map[uuid.UUID]*Patient), now: time.Now}
}

func clone(p *Patient) *Patient {
	cp := *p
	if p.Identities != nil {
		cp.Identities = append([]Identity(nil), p.Identities...)
	}
	if p.Photo != nil {
		ph := *p.Photo
		cp.Photo = &ph
	}
	if p.CreatedFrom != nil {
		cf := *p.CreatedFrom
		cp.CreatedFrom = &cf
	}
	return &cp
}

func (r *MemoryRepo) Create(_ context.Context, p *Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, existing := range r.patients {
		if existing.FacilityID == p.FacilityID {
			count++
		}
	}

	p.ID = uuid.New()
	p.PatientCode = CodeFor(count + 1)
	now := r.now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	r.patients[p.ID] = clone(p)
	r.order = append(r.order, p.ID)
	return nil
}

func (r *MemoryRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.patients[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(p), nil
}

func (r *MemoryRepo) Update(_ context.Context, p *Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.patients[p.ID]
	if !ok {
		return ErrNotFound
	}
	p.PatientCode = existing.PatientCode
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = r.now().UTC()
	r.patients[p.ID] = clone(p)
	return nil
}

func (r *MemoryRepo) SoftDelete(_ context.Context, id uuid.UUID, updatedBy string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[id]
	if !ok {
		return ErrNotFound
	}
	p.IsActive = false
	p.UpdatedBy = updatedBy
	p.UpdatedAt = r.now().UTC()
	return nil
}

// all returns clones in insertion order.
func (r *MemoryRepo) all() []*Patient {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Patient, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, clone(r.patients[id]))
	}
	return out
}

func (r *MemoryRepo) FindDuplicates(_ context.Context, facilityID uuid.UUID, c Criteria, excludeID *uuid.UUID) ([]*Patient, error) {
	return FilterDuplicates(r.all(), facilityID, c, excludeID), nil
}

func (r *MemoryRepo) List(_ context.Context, f ListFilter) ([]*Patient, int, error) {
	search := strings.ToLower(strings.TrimSpace(f.Search))

	var matched []*Patient
	for _, p := range r.all() {
		if !f.IncludeInactive && !p.IsActive {
			continue
		}
		if f.FacilityID != nil && p.FacilityID != *f.FacilityID {
			continue
		}
		if f.Gender != "" && p.Gender != f.Gender {
			continue
		}
		if f.HasInsurance != nil && p.Insurance.HasInsurance != *f.HasInsurance {
			continue
		}
		if search != "" && !matchesSearch(p, search) {
			continue
		}
		matched = append(matched, p)
	}

	less := lessFunc(f.SortBy)
	sort.SliceStable(matched, func(i, j int) bool {
		if f.SortDesc {
			return less(matched[j], matched[i])
		}
		return less(matched[i], matched[j])
	})

	start, end := f.Page.Window(len(matched))
	return matched[start:end], len(matched), nil
}

func matchesSearch(p *Patient, needle string) bool {
	for _, hay := range []string{p.FirstName, p.LastName, p.PatientCode, p.PrimaryPhone, p.Email} {
		if strings.Contains(strings.ToLower(hay), needle) {
			return true
		}
	}
	return false
}

func lessFunc(sortBy string) func(a, b *Patient) bool {
	switch sortBy {
	case SortFirstName:
		return func(a, b *Patient) bool { return a.FirstName < b.FirstName }
	case SortLastName:
		return func(a, b *Patient) bool { return a.LastName < b.LastName }
	case SortPatientCode:
		return func(a, b *Patient) bool { return a.PatientCode < b.PatientCode }
	case SortDateOfBirth:
		return func(a, b *Patient) bool { return a.DateOfBirth.Before(b.DateOfBirth) }
	case SortWalletBalance:
		return func(a, b *Patient) bool { return a.WalletBalance < b.WalletBalance }
	default:
		return func(a, b *Patient) bool { return a.CreatedAt.Before(b.CreatedAt) }
	}
}
