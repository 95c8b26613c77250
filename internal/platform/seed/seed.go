// Package seed fills the stores with reproducible demo data: facilities,
// doctors, patients and a week of appointments.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/excelthedev/Plural-health/internal/domain/facility"
	"github.com/excelthedev/Plural-health/internal/domain/patient"
	"github.com/excelthedev/Plural-health/internal/domain/record"
	"github.com/excelthedev/Plural-health/internal/platform/auth"
)

// Config controls the volume and shape of generated data.
type Config struct {
	Patients int
	Days     int
	// Seed makes a run reproducible; 0 picks a time-based seed.
	Seed int64
	// Start is the first appointment day; zero means today.
	Start time.Time
	Loc   *time.Location
}

func DefaultConfig() Config {
	return Config{Patients: 20, Days: 7}
}

// Result summarizes a seed run.
type Result struct {
	Facilities   int           `json:"facilities"`
	Staff        int           `json:"staff"`
	Patients     int           `json:"patients"`
	Appointments int           `json:"appointments"`
	Duration     time.Duration `json:"duration"`
}

type FacilityStore interface {
	Create(ctx context.Context, f *facility.Facility) error
	CreateStaff(ctx context.Context, s *facility.Staff) error
}

type PatientStore interface {
	Create(ctx context.Context, p *patient.Patient) error
}

type AppointmentStore interface {
	Create(ctx context.Context, a *record.Appointment) error
}

var (
	firstNamesMale = []string{
		"Akpopodion", "Chinedu", "Emmanuel", "Ibrahim", "Tunde", "Segun",
		"Obinna", "Musa", "Kelechi", "Femi", "Yusuf", "Uche", "Babatunde",
		"Ikenna", "Olumide", "Aliyu", "Chukwuemeka", "Dayo",
	}
	firstNamesFemale = []string{
		"Boluwatife", "Omolola", "Fatima", "Grace", "Ngozi", "Aisha",
		"Chiamaka", "Funmilayo", "Halima", "Adaeze", "Yetunde", "Zainab",
		"Ifeoma", "Bisola", "Amina", "Temitope", "Nneka", "Hauwa",
	}
	lastNames = []string{
		"Endurance", "Adebayo", "Johnson", "Okonkwo", "Ibrahim", "Okafor",
		"Adeyemi", "Mohammed", "Eze", "Bello", "Nwosu", "Balogun", "Abubakar",
		"Obi", "Ogunleye", "Danjuma", "Chukwu", "Olawale", "Lawal", "Umar",
	}
	streets = []string{
		"12 Marina Road", "4 Adeola Odeku St", "27 Allen Avenue", "9 Awolowo Road",
		"15 Aminu Kano Crescent", "33 Ahmadu Bello Way", "8 Ogui Road", "21 Ring Road",
	}
	cities = []struct{ City, State string }{
		{"Lagos", "Lagos"}, {"Ikeja", "Lagos"}, {"Abuja", "FCT"},
		{"Enugu", "Enugu"}, {"Ibadan", "Oyo"}, {"Kano", "Kano"},
	}
	specializations = []string{"General Practice", "Cardiology", "Pediatrics", "Neurology", "Dermatology"}
)

// Facilities returns the demo facility set.
func Facilities() []*facility.Facility {
	return []*facility.Facility{
		{
			Name: "Lagos General Hospital",
			Type: facility.TypeHospital,
			Address: facility.Address{
				Street: "123 Marina Road", City: "Lagos", State: "Lagos", ZipCode: "100001", Country: "Nigeria",
			},
			ContactInfo: facility.ContactInfo{Phone: "+23412345678", Email: "info@lagosgeneral.com"},
			IsActive:    true,
			CreatedBy:   auth.SystemUser,
		},
		{
			Name: "Abuja Medical Center",
			Type: facility.TypeMedicalCenter,
			Address: facility.Address{
				Street: "456 Central District", City: "Abuja", State: "FCT", ZipCode: "900001", Country: "Nigeria",
			},
			ContactInfo: facility.ContactInfo{Phone: "+23498765432", Email: "contact@abujamedical.com"},
			IsActive:    true,
			CreatedBy:   auth.SystemUser,
		},
	}
}

// Generator produces deterministic demo values.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator returns a generator seeded for reproducibility. If seed is 0
// a time-based seed is chosen.
func NewGenerator(seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

func (g *Generator) pick(pool []string) string {
	return pool[g.rng.Intn(len(pool))]
}

func (g *Generator) randomDOB(minYear, maxYear int) time.Time {
	y := minYear + g.rng.Intn(maxYear-minYear+1)
	m := time.Month(1 + g.rng.Intn(12))
	d := 1 + g.rng.Intn(28)
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// randomPhone returns a Nigerian mobile number in E.164 form.
func (g *Generator) randomPhone() string {
	prefixes := []string{"803", "805", "806", "807", "808", "810", "813", "816", "902", "903"}
	return fmt.Sprintf("+234%s%07d", g.pick(prefixes), g.rng.Intn(10000000))
}

// Patient builds an active patient registered at f.
func (g *Generator) Patient(f *facility.Facility) *patient.Patient {
	gender, first := patient.GenderMale, g.pick(firstNamesMale)
	if g.rng.Intn(2) == 0 {
		gender, first = patient.GenderFemale, g.pick(firstNamesFemale)
	}
	last := g.pick(lastNames)
	place := cities[g.rng.Intn(len(cities))]

	return &patient.Patient{
		FacilityID:   f.ID,
		FirstName:    first,
		LastName:     last,
		Gender:       gender,
		DateOfBirth:  g.randomDOB(1950, 2020),
		PrimaryPhone: g.randomPhone(),
		Address: patient.Address{
			Street:  g.pick(streets),
			City:    place.City,
			State:   place.State,
			Country: "Nigeria",
		},
		WalletBalance: float64(50000 + 5000*g.rng.Intn(31)),
		Currency:      "NGN",
		IsActive:      true,
		IsNewPatient:  g.rng.Intn(3) == 0,
		CreatedBy:     auth.SystemUser,
	}
}

// Appointment builds an appointment on day between 08:00 and 17:45 in
// 15-minute slots.
func (g *Generator) Appointment(p *patient.Patient, doctor *facility.Staff, day time.Time) *record.Appointment {
	hour := 8 + g.rng.Intn(10)
	minute := 15 * g.rng.Intn(4)
	clinic := g.pick(record.Clinics)

	a := &record.Appointment{
		PatientID:         p.ID,
		FacilityID:        p.FacilityID,
		AppointmentTime:   time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location()),
		Clinic:            clinic,
		Status:            g.pick(record.Statuses),
		AppointmentType:   g.pick(record.AppointmentTypes),
		Notes:             "Appointment for " + clinic + " consultation",
		IsUrgent:          g.rng.Float64() < 0.1,
		EstimatedDuration: 30,
		Cost:              float64(10000 + g.rng.Intn(50000)),
		PaymentStatus:     g.pick(record.PaymentStatuses[:3]),
		CreatedBy:         auth.SystemUser,
	}
	if doctor != nil {
		a.DoctorID = &doctor.ID
	}
	return a
}

// Seeder writes generated data through the store interfaces.
type Seeder struct {
	gen          *Generator
	cfg          Config
	facilities   FacilityStore
	patients     PatientStore
	appointments AppointmentStore
	logger       zerolog.Logger
	now          func() time.Time
}

func NewSeeder(cfg Config, facilities FacilityStore, patients PatientStore, appointments AppointmentStore, logger zerolog.Logger) *Seeder {
	if cfg.Patients <= 0 {
		cfg.Patients = DefaultConfig().Patients
	}
	if cfg.Days <= 0 {
		cfg.Days = DefaultConfig().Days
	}
	if cfg.Loc == nil {
		cfg.Loc = time.Local
	}
	return &Seeder{
		gen:          NewGenerator(cfg.Seed),
		cfg:          cfg,
		facilities:   facilities,
		patients:     patients,
		appointments: appointments,
		logger:       logger.With().Str("component", "seed").Logger(),
		now:          time.Now,
	}
}

// Run creates the facilities, two doctors per facility, the patients
// (spread round-robin over facilities) and 5-15 appointments per day.
// Appointments are booked at the patient's facility with one of its doctors.
func (s *Seeder) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	res := &Result{}

	facs := Facilities()
	byFacility := make([][]*facility.Staff, len(facs))
	for i, f := range facs {
		if err := s.facilities.Create(ctx, f); err != nil {
			return nil, fmt.Errorf("seed facility %s: %w", f.Name, err)
		}
		res.Facilities++

		for j := 0; j < 2; j++ {
			first := s.gen.pick(firstNamesFemale)
			if j%2 == 1 {
				first = s.gen.pick(firstNamesMale)
			}
			last := s.gen.pick(lastNames)
			fid := f.ID
			doc := &facility.Staff{
				FacilityID:     &fid,
				FirstName:      first,
				LastName:       last,
				Email:          fmt.Sprintf("dr.%s.%s.%d@%s.ng", strings.ToLower(first), strings.ToLower(last), j+1, slug(f.Name)),
				Role:           facility.RoleDoctor,
				Specialization: s.gen.pick(specializations),
			}
			if err := s.facilities.CreateStaff(ctx, doc); err != nil {
				return nil, fmt.Errorf("seed doctor: %w", err)
			}
			byFacility[i] = append(byFacility[i], doc)
			res.Staff++
		}
	}

	pats := make([]*patient.Patient, 0, s.cfg.Patients)
	facIndex := make(map[*patient.Patient]int, s.cfg.Patients)
	for i := 0; i < s.cfg.Patients; i++ {
		fi := i % len(facs)
		p := s.gen.Patient(facs[fi])
		if err := s.patients.Create(ctx, p); err != nil {
			return nil, fmt.Errorf("seed patient %d: %w", i, err)
		}
		pats = append(pats, p)
		facIndex[p] = fi
		res.Patients++
	}

	from := s.cfg.Start
	if from.IsZero() {
		from = s.now()
	}
	from = from.In(s.cfg.Loc)
	from = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, s.cfg.Loc)

	for d := 0; d < s.cfg.Days; d++ {
		day := from.AddDate(0, 0, d)
		n := 5 + s.gen.rng.Intn(11)
		for i := 0; i < n; i++ {
			p := pats[s.gen.rng.Intn(len(pats))]
			docs := byFacility[facIndex[p]]
			a := s.gen.Appointment(p, docs[s.gen.rng.Intn(len(docs))], day)
			if err := s.appointments.Create(ctx, a); err != nil {
				return nil, fmt.Errorf("seed appointment: %w", err)
			}
			res.Appointments++
		}
	}

	res.Duration = time.Since(start)
	s.logger.Info().
		Int("facilities", res.Facilities).
		Int("staff", res.Staff).
		Int("patients", res.Patients).
		Int("appointments", res.Appointments).
		Dur("duration", res.Duration).
		Msg("seed complete")
	return res, nil
}

// slug turns "Lagos General Hospital" into "lagosgeneralhospital".
func slug(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, " ", ""))
}

// DefaultFacilityName identifies the facility EnsureDefaultFacility manages.
const DefaultFacilityName = "Default Healthcare Facility"

// DefaultFacility returns the facility patients fall back to when none is
// configured.
func DefaultFacility() *facility.Facility {
	return &facility.Facility{
		Name: DefaultFacilityName,
		Type: facility.TypeHospital,
		Address: facility.Address{
			Street: "123 Healthcare Street", City: "Lagos", State: "Lagos", ZipCode: "100001", Country: "Nigeria",
		},
		ContactInfo: facility.ContactInfo{
			Phone:   "+2348012345678",
			Email:   "info@defaulthealthcare.com",
			Website: "https://defaulthealthcare.com",
		},
		IsActive:  true,
		CreatedBy: auth.SystemUser,
	}
}

// FacilityDirectory finds and creates facilities.
type FacilityDirectory interface {
	List(ctx context.Context, activeOnly bool) ([]*facility.Facility, error)
	Create(ctx context.Context, f *facility.Facility) error
}

// EnsureDefaultFacility returns the default facility, creating it on first
// use. created reports whether a new row was written.
func EnsureDefaultFacility(ctx context.Context, repo FacilityDirectory) (f *facility.Facility, created bool, err error) {
	all, err := repo.List(ctx, false)
	if err != nil {
		return nil, false, fmt.Errorf("list facilities: %w", err)
	}
	for _, existing := range all {
		if existing.Name == DefaultFacilityName {
			return existing, false, nil
		}
	}
	f = DefaultFacility()
	if err := repo.Create(ctx, f); err != nil {
		return nil, false, fmt.Errorf("create default facility: %w", err)
	}
	return f, true, nil
}
