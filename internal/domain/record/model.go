package record

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/excelthedev/Plural-health/pkg/pagination"
)

var ErrNotFound = errors.New("record not found")

var Clinics = []string{
	"General Medicine",
	"Cardiology",
	"Neurology",
	"Dermatology",
	"Orthopedics",
	"Pediatrics",
	"Ear, Nose & Throat",
	"Accident & Emergency",
	"Gynecology",
	"Urology",
	"Ophthalmology",
	"Psychiatry",
}

const StatusScheduled = "Scheduled"

var Statuses = []string{
	StatusScheduled,
	"Confirmed",
	"In Progress",
	"Processing",
	"Awaiting vitals",
	"Awaiting doctor",
	"Seen doctor",
	"Not arrived",
	"Cancelled",
	"Completed",
	"Admitted to ward",
	"Transferred to A&E",
}

var AppointmentTypes = []string{"New", "Follow-up", "Emergency", "Consultation"}

var PaymentStatuses = []string{"Pending", "Paid", "Partial", "Refunded"}

const maxNotesLength = 1000

func IsValidStatus(s string) bool { return contains(Statuses, s) }

func IsValidClinic(s string) bool { return contains(Clinics, s) }

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// Appointment maps to the appointments table.
type Appointment struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	PatientID         uuid.UUID  `db:"patient_id" json:"patientId"`
	DoctorID          *uuid.UUID `db:"doctor_id" json:"doctorId,omitempty"`
	FacilityID        uuid.UUID  `db:"facility_id" json:"facilityId"`
	AppointmentTime   time.Time  `db:"appointment_time" json:"appointmentTime"`
	Clinic            string     `db:"clinic" json:"clinic"`
	Status            string     `db:"status" json:"status"`
	AppointmentType   string     `db:"appointment_type" json:"appointmentType"`
	Notes             string     `db:"notes" json:"notes,omitempty"`
	Diagnosis         string     `db:"diagnosis" json:"diagnosis,omitempty"`
	Prescription      string     `db:"prescription" json:"prescription,omitempty"`
	FollowUpDate      *time.Time `db:"follow_up_date" json:"followUpDate,omitempty"`
	IsUrgent          bool       `db:"is_urgent" json:"isUrgent"`
	EstimatedDuration int        `db:"estimated_duration" json:"estimatedDuration"`
	ActualDuration    *int       `db:"actual_duration" json:"actualDuration,omitempty"`
	Cost              float64    `db:"cost" json:"cost"`
	PaymentStatus     string     `db:"payment_status" json:"paymentStatus"`
	CreatedBy         string     `db:"created_by" json:"createdBy,omitempty"`
	UpdatedBy         string     `db:"updated_by" json:"updatedBy,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updatedAt"`
}

// applyDefaults fills the column defaults for a new appointment.
func (a *Appointment) applyDefaults() {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = StatusScheduled
	}
	if a.AppointmentType == "" {
		a.AppointmentType = AppointmentTypes[0]
	}
	if a.EstimatedDuration == 0 {
		a.EstimatedDuration = 30
	}
	if a.PaymentStatus == "" {
		a.PaymentStatus = PaymentStatuses[0]
	}
}

// validate checks the column constraints the database also enforces.
func (a *Appointment) validate() error {
	switch {
	case !IsValidClinic(a.Clinic):
		return errors.New("unknown clinic " + a.Clinic)
	case !IsValidStatus(a.Status):
		return errors.New("unknown status " + a.Status)
	case !contains(AppointmentTypes, a.AppointmentType):
		return errors.New("unknown appointment type " + a.AppointmentType)
	case !contains(PaymentStatuses, a.PaymentStatus):
		return errors.New("unknown payment status " + a.PaymentStatus)
	case len([]rune(a.Notes)) > maxNotesLength:
		return errors.New("notes exceed 1000 characters")
	case a.Cost < 0:
		return errors.New("cost cannot be negative")
	}
	return nil
}

// Record is one row of the appointment list: the appointment joined with
// patient and facility summary fields.
type Record struct {
	ID              uuid.UUID `json:"id"`
	AppointmentTime time.Time `json:"appointmentTime"`
	FormattedTime   string    `json:"formattedTime"`
	FormattedDate   string    `json:"formattedDate"`
	Clinic          string    `json:"clinic"`
	Status          string    `json:"status"`
	AppointmentType string    `json:"appointmentType"`
	IsUrgent        bool      `json:"isUrgent"`
	Cost            float64   `json:"cost"`
	PaymentStatus   string    `json:"paymentStatus"`
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	PatientID       uuid.UUID `json:"patientId"`
	PatientName     string    `json:"patientName"`
	PatientCode     string    `json:"patientCode"`
	PatientPhone    string    `json:"patientPhone"`
	WalletBalance   float64   `json:"walletBalance"`
	Currency        string    `json:"currency"`
	FacilityID      uuid.UUID `json:"facilityId"`
	FacilityName    string    `json:"facilityName"`
}

// formatTimes renders t in loc as a clock time ("09:30 AM") and a day
// ("14 Mar 2026").
func formatTimes(t time.Time, loc *time.Location) (string, string) {
	t = t.In(loc)
	return t.Format("03:04 PM"), t.Format("02 Jan 2006")
}

// PatientSummary is the patient block of a record detail.
type PatientSummary struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	PatientCode   string    `json:"patientCode"`
	Phone         string    `json:"phone"`
	Email         string    `json:"email,omitempty"`
	Gender        string    `json:"gender"`
	DateOfBirth   time.Time `json:"dateOfBirth"`
	WalletBalance float64   `json:"walletBalance"`
	Currency      string    `json:"currency"`
}

type DoctorSummary struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Specialization string    `json:"specialization,omitempty"`
}

type FacilitySummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Type  string    `json:"type"`
	Phone string    `json:"phone,omitempty"`
}

// Detail is a single appointment with its patient, doctor and facility.
type Detail struct {
	Appointment
	FormattedTime string          `json:"formattedTime"`
	FormattedDate string          `json:"formattedDate"`
	Patient       PatientSummary  `json:"patient"`
	Doctor        *DoctorSummary  `json:"doctor"`
	Facility      FacilitySummary `json:"facility"`
}

// Bucket is one group of a distribution.
type Bucket struct {
	ID    string `json:"_id"`
	Count int    `json:"count"`
}

type Stats struct {
	TotalAppointments  int      `json:"totalAppointments"`
	UrgentAppointments int      `json:"urgentAppointments"`
	StatusDistribution []Bucket `json:"statusDistribution"`
	ClinicDistribution []Bucket `json:"clinicDistribution"`
}

type FilterOptions struct {
	Clinics  []string `json:"clinics"`
	Statuses []string `json:"statuses"`
}

// ListResult is a page of records with its pagination and effective filters.
type ListResult struct {
	Records    []Record        `json:"records"`
	Pagination pagination.Meta `json:"pagination"`
	Filters    AppliedFilters  `json:"filters"`
}
