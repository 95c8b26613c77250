package patient

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("patient not found")

const (
	GenderMale   = "Male"
	GenderFemale = "Female"
	GenderOther  = "Other"
)

var Genders = []string{GenderMale, GenderFemale, GenderOther}

var Currencies = []string{"NGN", "USD", "EUR", "GBP"}

var IdentityTypes = []string{"Hospital ID", "National ID", "Passport", "Driver License", "Other"}

// CodePrefix is prepended to the per-facility sequence number.
const CodePrefix = "HOSP"

// CodeFor formats the n-th patient code of a facility.
func CodeFor(n int) string {
	return fmt.Sprintf("%s%08d", CodePrefix, n)
}

type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode,omitempty"`
	Country string `json:"country,omitempty"`
}

// Complete reports whether street, city and state are all present.
func (a *Address) Complete() bool {
	return a != nil && a.Street != "" && a.City != "" && a.State != ""
}

type Identity struct {
	Type       string     `json:"type"`
	Number     string     `json:"number"`
	IsActive   bool       `json:"isActive"`
	IssuedBy   string     `json:"issuedBy,omitempty"`
	IssuedDate *time.Time `json:"issuedDate,omitempty"`
	ExpiryDate *time.Time `json:"expiryDate,omitempty"`
}

type Insurance struct {
	HasInsurance    bool       `json:"hasInsurance"`
	Insurer         string     `json:"insurer,omitempty"`
	Plan            string     `json:"plan,omitempty"`
	MemberID        string     `json:"memberId,omitempty"`
	StartDate       *time.Time `json:"startDate,omitempty"`
	EndDate         *time.Time `json:"endDate,omitempty"`
	IsActive        bool       `json:"isActive"`
	CoverageDetails string     `json:"coverageDetails,omitempty"`
}

// Photo references a stored image.
type Photo struct {
	Filename     string    `json:"filename"`
	OriginalName string    `json:"originalName"`
	MimeType     string    `json:"mimeType"`
	Size         int64     `json:"size"`
	Path         string    `json:"path"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

// CreatedFrom records where a registration came from.
type CreatedFrom struct {
	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
}

// Patient maps to the patients table.
type Patient struct {
	ID             uuid.UUID    `db:"id" json:"id"`
	FacilityID     uuid.UUID    `db:"facility_id" json:"facilityId"`
	PatientCode    string       `db:"patient_code" json:"patientCode"`
	FirstName      string       `db:"first_name" json:"firstName"`
	MiddleName     string       `db:"middle_name" json:"middleName,omitempty"`
	LastName       string       `db:"last_name" json:"lastName"`
	Gender         string       `db:"gender" json:"gender"`
	DateOfBirth    time.Time    `db:"date_of_birth" json:"dateOfBirth"`
	PrimaryPhone   string       `db:"primary_phone" json:"primaryPhone"`
	SecondaryPhone string       `db:"secondary_phone" json:"secondaryPhone,omitempty"`
	Email          string       `db:"email" json:"email,omitempty"`
	Address        Address      `db:"address" json:"address"`
	Identities     []Identity   `db:"identities" json:"identities"`
	Insurance      Insurance    `db:"insurance" json:"insurance"`
	Photo          *Photo       `db:"photo" json:"photo,omitempty"`
	WalletBalance  float64      `db:"wallet_balance" json:"walletBalance"`
	Currency       string       `db:"currency" json:"currency"`
	IsActive       bool         `db:"is_active" json:"isActive"`
	IsNewPatient   bool         `db:"is_new_patient" json:"isNewPatient"`
	CreatedBy      string       `db:"created_by" json:"createdBy,omitempty"`
	CreatedFrom    *CreatedFrom `db:"created_from" json:"createdFrom,omitempty"`
	UpdatedBy      string       `db:"updated_by" json:"updatedBy,omitempty"`
	CreatedAt      time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time    `db:"updated_at" json:"updatedAt"`
}

// FullName joins first, middle (when present) and last name.
func (p *Patient) FullName() string {
	if p.MiddleName != "" {
		return p.FirstName + " " + p.MiddleName + " " + p.LastName
	}
	return p.FirstName + " " + p.LastName
}

// Age returns whole years since DateOfBirth at now.
func (p *Patient) Age(now time.Time) int {
	dob := p.DateOfBirth
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	return age
}

// MarshalJSON adds the derived fullName and age fields.
func (p Patient) MarshalJSON() ([]byte, error) {
	type plain Patient
	identities := p.Identities
	if identities == nil {
		identities = []Identity{}
	}
	out := struct {
		plain
		Identities []Identity `json:"identities"`
		FullName   string     `json:"fullName"`
		Age        int        `json:"age"`
	}{
		plain:      plain(p),
		Identities: identities,
		FullName:   p.FullName(),
		Age:        p.Age(time.Now()),
	}
	return json.Marshal(out)
}

// DuplicateSummary is the slim view of a matching patient returned with a
// conflict or a duplicate check.
type DuplicateSummary struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
	PatientCode string    `json:"patientCode"`
	DateOfBirth time.Time `json:"dateOfBirth"`
	Email       string    `json:"email,omitempty"`
}

func Summarize(ps []*Patient) []DuplicateSummary {
	out := make([]DuplicateSummary, 0, len(ps))
	for _, p := range ps {
		out = append(out, DuplicateSummary{
			ID:          p.ID,
			Name:        p.FullName(),
			Phone:       p.PrimaryPhone,
			PatientCode: p.PatientCode,
			DateOfBirth: p.DateOfBirth,
			Email:       p.Email,
		})
	}
	return out
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
