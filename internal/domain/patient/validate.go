package patient

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/excelthedev/Plural-health/internal/platform/httperr"
	"github.com/excelthedev/Plural-health/internal/platform/middleware"
)

const maxNameLength = 50

var (
	nonDigit   = regexp.MustCompile(`\D`)
	e164       = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)
	emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// FormatPhoneNumber normalizes Nigerian numbers to E.164. Anything it does
// not recognize is returned unchanged.
func FormatPhoneNumber(raw string) string {
	digits := nonDigit.ReplaceAllString(raw, "")
	switch {
	case strings.HasPrefix(digits, "234"):
		return "+" + digits
	case strings.HasPrefix(digits, "0"):
		return "+234" + digits[1:]
	case len(digits) == 10:
		return "+234" + digits
	}
	return raw
}

// ValidatePhoneNumber reports whether raw is E.164 after FormatPhoneNumber.
func ValidatePhoneNumber(raw string) bool {
	return e164.MatchString(FormatPhoneNumber(raw))
}

func ValidateEmail(email string) bool {
	return emailShape.MatchString(email)
}

// ValidateDateOfBirth reports whether input parses and lies strictly before now.
func ValidateDateOfBirth(input string, now time.Time) bool {
	d, err := ParseDate(input)
	if err != nil {
		return false
	}
	return d.Before(now)
}

// ParseDate accepts YYYY-MM-DD or RFC 3339.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// dateOnly truncates t to its calendar date in UTC.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Input is a patient submission as received from the intake form.
type Input struct {
	FirstName      string          `json:"firstName"`
	MiddleName     string          `json:"middleName"`
	LastName       string          `json:"lastName"`
	Gender         string          `json:"gender"`
	DateOfBirth    string          `json:"dateOfBirth"`
	PrimaryPhone   string          `json:"primaryPhone"`
	SecondaryPhone string          `json:"secondaryPhone"`
	Email          string          `json:"email"`
	Address        *Address        `json:"address"`
	Identities     []IdentityInput `json:"identities"`
	Insurance      *InsuranceInput `json:"insurance"`
	FacilityID     string          `json:"facilityId"`
	WalletBalance  *float64        `json:"walletBalance"`
	Currency       string          `json:"currency"`
	IsNewPatient   *bool           `json:"isNewPatient"`
}

type IdentityInput struct {
	Type       string `json:"type"`
	Number     string `json:"number"`
	IsActive   *bool  `json:"isActive"`
	IssuedBy   string `json:"issuedBy"`
	IssuedDate string `json:"issuedDate"`
	ExpiryDate string `json:"expiryDate"`
}

type InsuranceInput struct {
	HasInsurance    bool   `json:"hasInsurance"`
	Insurer         string `json:"insurer"`
	Plan            string `json:"plan"`
	MemberID        string `json:"memberId"`
	StartDate       string `json:"startDate"`
	EndDate         string `json:"endDate"`
	IsActive        *bool  `json:"isActive"`
	CoverageDetails string `json:"coverageDetails"`
}

// ValidateIntake checks every field and returns all violations at once.
func ValidateIntake(in Input, now time.Time) []httperr.FieldError {
	var errs []httperr.FieldError
	add := func(field, msg string) {
		errs = append(errs, httperr.FieldError{Field: field, Message: msg})
	}

	checkName := func(field, label, v string, required bool) {
		v = strings.TrimSpace(v)
		switch {
		case v == "" && required:
			add(field, label+" is required")
		case len([]rune(v)) > maxNameLength:
			add(field, fmt.Sprintf("%s cannot exceed %d characters", label, maxNameLength))
		}
	}
	checkName("firstName", "First name", in.FirstName, true)
	checkName("middleName", "Middle name", in.MiddleName, false)
	checkName("lastName", "Last name", in.LastName, true)

	switch {
	case in.Gender == "":
		add("gender", "Gender is required")
	case !contains(Genders, in.Gender):
		add("gender", "Gender must be one of "+strings.Join(Genders, ", "))
	}

	if strings.TrimSpace(in.DateOfBirth) == "" {
		add("dateOfBirth", "Date of birth is required")
	} else if _, err := ParseDate(in.DateOfBirth); err != nil {
		add("dateOfBirth", "Date of birth must be a valid date")
	} else if !ValidateDateOfBirth(in.DateOfBirth, now) {
		add("dateOfBirth", "Date of birth must be in the past")
	}

	if strings.TrimSpace(in.PrimaryPhone) == "" {
		add("primaryPhone", "Primary phone is required")
	} else if !ValidatePhoneNumber(in.PrimaryPhone) {
		add("primaryPhone", "Phone number must be in E.164 format (e.g., +2348012345678)")
	}
	if in.SecondaryPhone != "" && !ValidatePhoneNumber(in.SecondaryPhone) {
		add("secondaryPhone", "Phone number must be in E.164 format (e.g., +2348012345678)")
	}

	if email := strings.TrimSpace(in.Email); email != "" && !ValidateEmail(email) {
		add("email", "Please provide a valid email address")
	}

	if !trimAddress(in.Address).Complete() {
		add("address", "Complete address is required")
	}

	if in.FacilityID == "" {
		add("facilityId", "Facility ID is required")
	} else if _, err := uuid.Parse(in.FacilityID); err != nil {
		add("facilityId", "Facility ID is invalid")
	}

	for i, id := range in.Identities {
		prefix := fmt.Sprintf("identities[%d]", i)
		if !contains(IdentityTypes, id.Type) {
			add(prefix+".type", "Identity type must be one of "+strings.Join(IdentityTypes, ", "))
		}
		if strings.TrimSpace(id.Number) == "" {
			add(prefix+".number", "Identity number is required")
		}
		issued, errIssued := optionalDate(id.IssuedDate)
		expiry, errExpiry := optionalDate(id.ExpiryDate)
		if errIssued != nil {
			add(prefix+".issuedDate", "Issued date must be a valid date")
		}
		if errExpiry != nil {
			add(prefix+".expiryDate", "Expiry date must be a valid date")
		}
		if issued != nil && expiry != nil && !issued.Before(*expiry) {
			add(prefix+".expiryDate", "Identity expiry date must be after issued date")
		}
	}

	if ins := in.Insurance; ins != nil && ins.HasInsurance {
		if strings.TrimSpace(ins.Insurer) == "" {
			add("insurance.insurer", "Insurance company is required when insurance is selected")
		}
		if strings.TrimSpace(ins.Plan) == "" {
			add("insurance.plan", "Insurance plan is required when insurance is selected")
		}
		if strings.TrimSpace(ins.MemberID) == "" {
			add("insurance.memberId", "Member ID is required when insurance is selected")
		}
		start, errStart := optionalDate(ins.StartDate)
		end, errEnd := optionalDate(ins.EndDate)
		if errStart != nil {
			add("insurance.startDate", "Insurance start date must be a valid date")
		}
		if errEnd != nil {
			add("insurance.endDate", "Insurance end date must be a valid date")
		}
		if start != nil && end != nil && !start.Before(*end) {
			add("insurance.endDate", "Insurance start date must be before end date")
		}
	}

	if in.Currency != "" && !contains(Currencies, strings.ToUpper(in.Currency)) {
		add("currency", "Currency must be one of "+strings.Join(Currencies, ", "))
	}
	if in.WalletBalance != nil && *in.WalletBalance < 0 {
		add("walletBalance", "Wallet balance cannot be negative")
	}

	return errs
}

func optionalDate(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func trimAddress(a *Address) *Address {
	if a == nil {
		return nil
	}
	return &Address{
		Street:  middleware.SanitizeString(a.Street),
		City:    middleware.SanitizeString(a.City),
		State:   middleware.SanitizeString(a.State),
		ZipCode: middleware.SanitizeString(a.ZipCode),
		Country: middleware.SanitizeString(a.Country),
	}
}

// Defaults are applied to fields a submission leaves empty.
type Defaults struct {
	Country  string
	Currency string
}

// apply writes a validated submission onto p, normalizing phone numbers and
// email. Fields the submission omits keep p's current values.
func (in Input) apply(p *Patient, d Defaults) {
	p.FirstName = middleware.SanitizeString(in.FirstName)
	p.MiddleName = middleware.SanitizeString(in.MiddleName)
	p.LastName = middleware.SanitizeString(in.LastName)
	p.Gender = in.Gender
	if dob, err := ParseDate(in.DateOfBirth); err == nil {
		p.DateOfBirth = dateOnly(dob)
	}
	p.PrimaryPhone = FormatPhoneNumber(strings.TrimSpace(in.PrimaryPhone))
	if in.SecondaryPhone != "" {
		p.SecondaryPhone = FormatPhoneNumber(strings.TrimSpace(in.SecondaryPhone))
	} else {
		p.SecondaryPhone = ""
	}
	p.Email = strings.ToLower(strings.TrimSpace(in.Email))

	addr := trimAddress(in.Address)
	if addr == nil {
		addr = &p.Address
	}
	if addr.Country == "" {
		addr.Country = d.Country
	}
	p.Address = *addr

	if in.FacilityID != "" {
		p.FacilityID = uuid.MustParse(in.FacilityID)
	}

	if in.Identities != nil {
		p.Identities = make([]Identity, 0, len(in.Identities))
		for _, id := range in.Identities {
			issued, _ := optionalDate(id.IssuedDate)
			expiry, _ := optionalDate(id.ExpiryDate)
			p.Identities = append(p.Identities, Identity{
				Type:       id.Type,
				Number:     strings.TrimSpace(id.Number),
				IsActive:   id.IsActive == nil || *id.IsActive,
				IssuedBy:   strings.TrimSpace(id.IssuedBy),
				IssuedDate: issued,
				ExpiryDate: expiry,
			})
		}
	}

	if ins := in.Insurance; ins != nil {
		start, _ := optionalDate(ins.StartDate)
		end, _ := optionalDate(ins.EndDate)
		p.Insurance = Insurance{
			HasInsurance:    ins.HasInsurance,
			Insurer:         strings.TrimSpace(ins.Insurer),
			Plan:            strings.TrimSpace(ins.Plan),
			MemberID:        strings.TrimSpace(ins.MemberID),
			StartDate:       start,
			EndDate:         end,
			IsActive:        ins.IsActive == nil || *ins.IsActive,
			CoverageDetails: middleware.SanitizeString(ins.CoverageDetails),
		}
	}

	switch {
	case in.Currency != "":
		p.Currency = strings.ToUpper(in.Currency)
	case p.Currency == "":
		p.Currency = d.Currency
	}
	if in.WalletBalance != nil {
		p.WalletBalance = *in.WalletBalance
	}
	if in.IsNewPatient != nil {
		p.IsNewPatient = *in.IsNewPatient
	}
}

// inputFrom renders an existing patient back into a submission so an update
// can overlay only the fields it carries.
func inputFrom(p *Patient) Input {
	in := Input{
		FirstName:      p.FirstName,
		MiddleName:     p.MiddleName,
		LastName:       p.LastName,
		Gender:         p.Gender,
		DateOfBirth:    p.DateOfBirth.Format("2006-01-02"),
		PrimaryPhone:   p.PrimaryPhone,
		SecondaryPhone: p.SecondaryPhone,
		Email:          p.Email,
		FacilityID:     p.FacilityID.String(),
		Currency:       p.Currency,
	}
	addr := p.Address
	in.Address = &addr
	return in
}

// merge overlays the non-empty fields of update onto base.
func merge(base, update Input) Input {
	out := base
	set := func(dst *string, v string) {
		if strings.TrimSpace(v) != "" {
			*dst = v
		}
	}
	set(&out.FirstName, update.FirstName)
	set(&out.MiddleName, update.MiddleName)
	set(&out.LastName, update.LastName)
	set(&out.Gender, update.Gender)
	set(&out.DateOfBirth, update.DateOfBirth)
	set(&out.PrimaryPhone, update.PrimaryPhone)
	set(&out.SecondaryPhone, update.SecondaryPhone)
	set(&out.Email, update.Email)
	set(&out.FacilityID, update.FacilityID)
	set(&out.Currency, update.Currency)
	if update.Address != nil {
		out.Address = update.Address
	}
	if update.Identities != nil {
		out.Identities = update.Identities
	}
	if update.Insurance != nil {
		out.Insurance = update.Insurance
	}
	if update.WalletBalance != nil {
		out.WalletBalance = update.WalletBalance
	}
	if update.IsNewPatient != nil {
		out.IsNewPatient = update.IsNewPatient
	}
	return out
}
