package facility

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepo is a Repository held in process memory.
type MemoryRepo struct {
	mu         sync.RWMutex
	facilities map[uuid.UUID]*Facility
	staff      map[uuid.UUID]*Staff
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		facilities: make(map[uuid.UUID]*Facility),
		staff:      make(map[uuid.UUID]*Staff),
	}
}

func (r *MemoryRepo) Create(_ context.Context, f *Facility) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	now := time.Now().UTC()
	f.CreatedAt, f.UpdatedAt = now, now

	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *f
	r.facilities[f.ID] = &cp
	return nil
}

func (r *MemoryRepo) GetByID(_ context.Context, id uuid.UUID) (*Facility, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.facilities[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (r *MemoryRepo) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.facilities[id]
	return ok, nil
}

func (r *MemoryRepo) List(_ context.Context, activeOnly bool) ([]*Facility, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Facility, 0, len(r.facilities))
	for _, f := range r.facilities {
		if activeOnly && !f.IsActive {
			continue
		}
		cp := *f
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryRepo) CreateStaff(_ context.Context, s *Staff) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.staff {
		if existing.Email == s.Email {
			s.ID, s.CreatedAt = existing.ID, existing.CreatedAt
			return nil
		}
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.CreatedAt = time.Now().UTC()
	cp := *s
	r.staff[s.ID] = &cp
	return nil
}

func (r *MemoryRepo) GetStaff(_ context.Context, id uuid.UUID) (*Staff, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.staff[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *MemoryRepo) ListStaff(_ context.Context, facilityID *uuid.UUID, role string) ([]*Staff, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Staff
	for _, s := range r.staff {
		if facilityID != nil && (s.FacilityID == nil || *s.FacilityID != *facilityID) {
			continue
		}
		if role != "" && s.Role != role {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastName != out[j].LastName {
			return out[i].LastName < out[j].LastName
		}
		return out[i].FirstName < out[j].FirstName
	})
	return out, nil
}
