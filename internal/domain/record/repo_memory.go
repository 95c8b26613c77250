package record

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/excelthedev/Plural-health/internal/domain/facility"
	"github.com/excelthedev/Plural-health/internal/domain/patient"
)

// PatientLookup resolves the patient side of the join.
type PatientLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

// FacilityLookup resolves the facility and doctor sides of the join.
type FacilityLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*facility.Facility, error)
	GetStaff(ctx context.Context, id uuid.UUID) (*facility.Staff, error)
}

// MemoryRepo keeps appointments in memory and joins them against the
// patient and facility stores on read. Appointments whose patient or
// facility is missing are left out of every view.
type MemoryRepo struct {
	mu           sync.RWMutex
	appointments map[uuid.UUID]*Appointment
	order        []uuid.UUID
	patients     PatientLookup
	facilities   FacilityLookup
	now          func() time.Time
}

func NewMemoryRepo(patients PatientLookup, facilities FacilityLookup) *MemoryRepo {
	return &MemoryRepo{
		appointments: make(map[uuid.UUID]*Appointment),
		patients:     patients,
		facilities:   facilities,
		now:          time.Now,
	}
}

func (r *MemoryRepo) Create(ctx context.Context, a *Appointment) error {
	a.applyDefaults()
	if err := a.validate(); err != nil {
		return err
	}
	if _, err := r.patients.GetByID(ctx, a.PatientID); err != nil {
		return fmt.Errorf("appointment patient %s: %w", a.PatientID, err)
	}
	if _, err := r.facilities.GetByID(ctx, a.FacilityID); err != nil {
		return fmt.Errorf("appointment facility %s: %w", a.FacilityID, err)
	}

	now := r.now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	cp := *a

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.appointments[a.ID]; !ok {
		r.order = append(r.order, a.ID)
	}
	r.appointments[a.ID] = &cp
	return nil
}

// all returns copies in insertion order.
func (r *MemoryRepo) all() []Appointment {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Appointment, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.appointments[id])
	}
	return out
}

// join builds the record rows for every appointment inside f's window and
// facility, skipping appointments with a dangling reference.
func (r *MemoryRepo) join(ctx context.Context, f Filter) ([]Record, error) {
	var out []Record
	for _, a := range r.all() {
		if !f.contains(a.AppointmentTime) {
			continue
		}
		if f.FacilityID != nil && a.FacilityID != *f.FacilityID {
			continue
		}
		p, err := r.patients.GetByID(ctx, a.PatientID)
		if errors.Is(err, patient.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		fac, err := r.facilities.GetByID(ctx, a.FacilityID)
		if errors.Is(err, facility.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, Record{
			ID:              a.ID,
			AppointmentTime: a.AppointmentTime,
			Clinic:          a.Clinic,
			Status:          a.Status,
			AppointmentType: a.AppointmentType,
			IsUrgent:        a.IsUrgent,
			Cost:            a.Cost,
			PaymentStatus:   a.PaymentStatus,
			Notes:           a.Notes,
			CreatedAt:       a.CreatedAt,
			PatientID:       p.ID,
			PatientName:     p.FirstName + " " + p.LastName,
			PatientCode:     p.PatientCode,
			PatientPhone:    p.PrimaryPhone,
			WalletBalance:   p.WalletBalance,
			Currency:        p.Currency,
			FacilityID:      fac.ID,
			FacilityName:    fac.Name,
		})
	}
	return out, nil
}

func (r *MemoryRepo) List(ctx context.Context, f Filter) ([]Record, int, error) {
	joined, err := r.join(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	search := strings.ToLower(f.Search)

	var matched []Record
	for _, rec := range joined {
		if f.Clinic != "" && rec.Clinic != f.Clinic {
			continue
		}
		if f.Status != "" && rec.Status != f.Status {
			continue
		}
		if search != "" && !matchesSearch(rec, search) {
			continue
		}
		matched = append(matched, rec)
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

func matchesSearch(rec Record, needle string) bool {
	for _, hay := range []string{rec.PatientName, rec.PatientCode, rec.PatientPhone} {
		if strings.Contains(strings.ToLower(hay), needle) {
			return true
		}
	}
	return false
}

func lessFunc(sortBy string) func(a, b Record) bool {
	switch sortBy {
	case SortPatientName:
		return func(a, b Record) bool { return a.PatientName < b.PatientName }
	case SortClinic:
		return func(a, b Record) bool { return a.Clinic < b.Clinic }
	case SortStatus:
		return func(a, b Record) bool { return a.Status < b.Status }
	case SortWalletBalance:
		return func(a, b Record) bool { return a.WalletBalance < b.WalletBalance }
	default:
		return func(a, b Record) bool { return a.AppointmentTime.Before(b.AppointmentTime) }
	}
}

func (r *MemoryRepo) Stats(ctx context.Context, f Filter) (*Stats, error) {
	joined, err := r.join(ctx, f.StatsFilter())
	if err != nil {
		return nil, err
	}
	st := &Stats{TotalAppointments: len(joined)}
	byStatus := map[string]int{}
	byClinic := map[string]int{}
	for _, rec := range joined {
		if rec.IsUrgent {
			st.UrgentAppointments++
		}
		byStatus[rec.Status]++
		byClinic[rec.Clinic]++
	}
	st.StatusDistribution = buckets(byStatus)
	st.ClinicDistribution = buckets(byClinic)
	return st, nil
}

// buckets orders counts by count descending, then name ascending.
func buckets(counts map[string]int) []Bucket {
	out := make([]Bucket, 0, len(counts))
	for id, n := range counts {
		out = append(out, Bucket{ID: id, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *MemoryRepo) FilterOptions(_ context.Context, facilityID *uuid.UUID) (*FilterOptions, error) {
	clinics := map[string]struct{}{}
	statuses := map[string]struct{}{}
	for _, a := range r.all() {
		if facilityID != nil && a.FacilityID != *facilityID {
			continue
		}
		clinics[a.Clinic] = struct{}{}
		statuses[a.Status] = struct{}{}
	}
	return &FilterOptions{Clinics: sortedKeys(clinics), Statuses: sortedKeys(statuses)}, nil
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (r *MemoryRepo) GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error) {
	r.mu.RLock()
	a, ok := r.appointments[id]
	var cp Appointment
	if ok {
		cp = *a
	}
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	p, err := r.patients.GetByID(ctx, cp.PatientID)
	if err != nil {
		return nil, notFoundOr(err, patient.ErrNotFound)
	}
	fac, err := r.facilities.GetByID(ctx, cp.FacilityID)
	if err != nil {
		return nil, notFoundOr(err, facility.ErrNotFound)
	}

	d := &Detail{
		Appointment: cp,
		Patient:     patientSummary(p),
		Facility: FacilitySummary{
			ID:    fac.ID,
			Name:  fac.Name,
			Type:  fac.Type,
			Phone: fac.ContactInfo.Phone,
		},
	}
	if cp.DoctorID != nil {
		doc, err := r.facilities.GetStaff(ctx, *cp.DoctorID)
		switch {
		case err == nil:
			d.Doctor = &DoctorSummary{ID: doc.ID, Name: doc.FullName(), Specialization: doc.Specialization}
		case !errors.Is(err, facility.ErrNotFound):
			return nil, err
		}
	}
	return d, nil
}

// notFoundOr maps a missing join side to ErrNotFound.
func notFoundOr(err, sentinel error) error {
	if errors.Is(err, sentinel) {
		return ErrNotFound
	}
	return err
}

func patientSummary(p *patient.Patient) PatientSummary {
	return PatientSummary{
		ID:            p.ID,
		Name:          p.FirstName + " " + p.LastName,
		PatientCode:   p.PatientCode,
		Phone:         p.PrimaryPhone,
		Email:         p.Email,
		Gender:        p.Gender,
		DateOfBirth:   p.DateOfBirth,
		WalletBalance: p.WalletBalance,
		Currency:      p.Currency,
	}
}

func (r *MemoryRepo) UpdateStatus(_ context.Context, id uuid.UUID, status, updatedBy string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[id]
	if !ok {
		return ErrNotFound
	}
	a.Status = status
	a.UpdatedBy = updatedBy
	a.UpdatedAt = r.now().UTC()
	return nil
}
