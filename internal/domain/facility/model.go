package facility

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a facility or staff member does not exist.
var ErrNotFound = errors.New("facility not found")

// Facility types.
const (
	TypeHospital      = "Hospital"
	TypeClinic        = "Clinic"
	TypeMedicalCenter = "Medical Center"
	TypeHealthCenter  = "Health Center"
	TypeOther         = "Other"
)

var Types = []string{TypeHospital, TypeClinic, TypeMedicalCenter, TypeHealthCenter, TypeOther}

// Staff roles.
const (
	RoleDoctor = "doctor"
	RoleNurse  = "nurse"
	RoleAdmin  = "admin"
)

// Address is the postal address of a facility.
type Address struct {
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	ZipCode string `json:"zipCode,omitempty"`
	Country string `json:"country,omitempty"`
}

// ContactInfo holds how a facility is reached.
type ContactInfo struct {
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Website string `json:"website,omitempty"`
}

// Facility maps to the facilities table.
type Facility struct {
	ID          uuid.UUID   `db:"id" json:"id"`
	Name        string      `db:"name" json:"name"`
	Type        string      `db:"type" json:"type"`
	Address     Address     `json:"address"`
	ContactInfo ContactInfo `json:"contactInfo"`
	IsActive    bool        `db:"is_active" json:"isActive"`
	CreatedBy   string      `db:"created_by" json:"createdBy,omitempty"`
	CreatedAt   time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updatedAt"`
}

// Staff maps to the staff table. Appointments reference doctors by ID.
type Staff struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	FacilityID     *uuid.UUID `db:"facility_id" json:"facilityId,omitempty"`
	FirstName      string     `db:"first_name" json:"firstName"`
	LastName       string     `db:"last_name" json:"lastName"`
	Email          string     `db:"email" json:"email"`
	Role           string     `db:"role" json:"role"`
	Specialization string     `db:"specialization" json:"specialization,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
}

// FullName returns "First Last".
func (s *Staff) FullName() string {
	return s.FirstName + " " + s.LastName
}

// IsValidType reports whether t is a known facility type.
func IsValidType(t string) bool {
	for _, v := range Types {
		if v == t {
			return true
		}
	}
	return false
}
