package patient

import (
	"strings"
	"testing"
	"time"
)

var fixedNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func TestFormatPhoneNumber(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2348012345678", "+2348012345678"},
		{"+234 801 234 5678", "+2348012345678"},
		{"08012345678", "+2348012345678"},
		{"0801-234-5678", "+2348012345678"},
		{"8012345678", "+2348012345678"},
		{"+14155552671", "+14155552671"},
		{"12345", "12345"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := FormatPhoneNumber(tt.in); got != tt.want {
			t.Errorf("FormatPhoneNumber(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidatePhoneNumber(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"+2348012345678", true},
		{"08012345678", true},
		{"+14155552671", true},
		{"12345", false},
		{"", false},
		{"+1234567890123456", false},
	}
	for _, tt := range tests {
		if got := ValidatePhoneNumber(tt.in); got != tt.want {
			t.Errorf("ValidatePhoneNumber(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"a@b.com", true},
		{"ada.obi@clinic.com.ng", true},
		{"not-an-email", false},
		{"a@b", false},
		{"a b@c.com", false},
		{"a@@b.com", false},
	}
	for _, tt := range tests {
		if got := ValidateEmail(tt.in); got != tt.want {
			t.Errorf("ValidateEmail(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestValidateDateOfBirth(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"1990-05-01", true},
		{"2026-03-14T09:59:59Z", true},
		{"2026-03-14T10:00:00Z", false},
		{"2030-01-01", false},
		{"yesterday", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidateDateOfBirth(tt.in, fixedNow); got != tt.want {
			t.Errorf("ValidateDateOfBirth(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func validInput() Input {
	return Input{
		FirstName:    "Ada",
		LastName:     "Obi",
		Gender:       GenderFemale,
		DateOfBirth:  "1990-05-01",
		PrimaryPhone: "08012345678",
		Email:        "Ada@Clinic.ng",
		Address:      &Address{Street: "1 Marina", City: "Lagos", State: "Lagos"},
		FacilityID:   "6f1c2d4e-8a9b-4c3d-9e2f-1a2b3c4d5e6f",
	}
}

func TestValidateIntake_Valid(t *testing.T) {
	if errs := ValidateIntake(validInput(), fixedNow); len(errs) != 0 {
		t.Fatalf("expected no errors, got %+v", errs)
	}
}

func TestValidateIntake_CollectsAllErrors(t *testing.T) {
	errs := ValidateIntake(Input{}, fixedNow)
	got := make(map[string]string)
	for _, e := range errs {
		got[e.Field] = e.Message
	}

	want := map[string]string{
		"firstName":    "First name is required",
		"lastName":     "Last name is required",
		"gender":       "Gender is required",
		"dateOfBirth":  "Date of birth is required",
		"primaryPhone": "Primary phone is required",
		"address":      "Complete address is required",
		"facilityId":   "Facility ID is required",
	}
	for field, msg := range want {
		if got[field] != msg {
			t.Errorf("field %s: expected %q, got %q", field, msg, got[field])
		}
	}
	if len(errs) != len(want) {
		t.Errorf("expected %d errors, got %d: %+v", len(want), len(errs), errs)
	}
}

func TestValidateIntake_FieldRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Input)
		field  string
		msg    string
	}{
		{"bad phone", func(in *Input) { in.PrimaryPhone = "12345" }, "primaryPhone", "Phone number must be in E.164 format (e.g., +2348012345678)"},
		{"bad email", func(in *Input) { in.Email = "nope" }, "email", "Please provide a valid email address"},
		{"future dob", func(in *Input) { in.DateOfBirth = "2027-01-01" }, "dateOfBirth", "Date of birth must be in the past"},
		{"garbage dob", func(in *Input) { in.DateOfBirth = "01/05/1990" }, "dateOfBirth", "Date of birth must be a valid date"},
		{"unknown gender", func(in *Input) { in.Gender = "male" }, "gender", "Gender must be one of Male, Female, Other"},
		{"long name", func(in *Input) { in.FirstName = strings.Repeat("a", 51) }, "firstName", "First name cannot exceed 50 characters"},
		{"partial address", func(in *Input) { in.Address = &Address{Street: "1 Marina", City: "Lagos"} }, "address", "Complete address is required"},
		{"blank address", func(in *Input) { in.Address = &Address{Street: " ", City: "Lagos", State: "Lagos"} }, "address", "Complete address is required"},
		{"bad facility", func(in *Input) { in.FacilityID = "facility-1" }, "facilityId", "Facility ID is invalid"},
		{"bad currency", func(in *Input) { in.Currency = "JPY" }, "currency", "Currency must be one of NGN, USD, EUR, GBP"},
		{"negative wallet", func(in *Input) { v := -1.0; in.WalletBalance = &v }, "walletBalance", "Wallet balance cannot be negative"},
		{"insurer missing", func(in *Input) {
			in.Insurance = &InsuranceInput{HasInsurance: true, Plan: "Gold", MemberID: "M1"}
		}, "insurance.insurer", "Insurance company is required when insurance is selected"},
		{"plan missing", func(in *Input) {
			in.Insurance = &InsuranceInput{HasInsurance: true, Insurer: "AXA", MemberID: "M1"}
		}, "insurance.plan", "Insurance plan is required when insurance is selected"},
		{"member id missing", func(in *Input) {
			in.Insurance = &InsuranceInput{HasInsurance: true, Insurer: "AXA", Plan: "Gold"}
		}, "insurance.memberId", "Member ID is required when insurance is selected"},
		{"insurance dates equal", func(in *Input) {
			in.Insurance = &InsuranceInput{HasInsurance: true, Insurer: "AXA", Plan: "Gold", MemberID: "M1", StartDate: "2025-01-01", EndDate: "2025-01-01"}
		}, "insurance.endDate", "Insurance start date must be before end date"},
		{"identity type", func(in *Input) {
			in.Identities = []IdentityInput{{Type: "Visa", Number: "A1"}}
		}, "identities[0].type", "Identity type must be one of Hospital ID, National ID, Passport, Driver License, Other"},
		{"identity number", func(in *Input) {
			in.Identities = []IdentityInput{{Type: "Passport"}}
		}, "identities[0].number", "Identity number is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			errs := ValidateIntake(in, fixedNow)
			if len(errs) != 1 {
				t.Fatalf("expected exactly one error, got %+v", errs)
			}
			if errs[0].Field != tt.field || errs[0].Message != tt.msg {
				t.Errorf("expected %s %q, got %s %q", tt.field, tt.msg, errs[0].Field, errs[0].Message)
			}
		})
	}
}

func TestValidateIntake_InsuranceIgnoredWhenNotSelected(t *testing.T) {
	in := validInput()
	in.Insurance = &InsuranceInput{HasInsurance: false, StartDate: "2025-02-01", EndDate: "2025-01-01"}
	if errs := ValidateIntake(in, fixedNow); len(errs) != 0 {
		t.Errorf("expected no errors when insurance is not selected, got %+v", errs)
	}
}

func TestApply_NormalizesAndDefaults(t *testing.T) {
	in := validInput()
	in.Insurance = &InsuranceInput{HasInsurance: true, Insurer: "AXA", Plan: "Gold", MemberID: "M1", StartDate: "2025-01-01"}
	p := &Patient{}
	in.apply(p, Defaults{Country: "Nigeria", Currency: "NGN"})

	if p.PrimaryPhone != "+2348012345678" {
		t.Errorf("expected normalized phone, got %s", p.PrimaryPhone)
	}
	if p.Email != "ada@clinic.ng" {
		t.Errorf("expected lowercased email, got %s", p.Email)
	}
	if p.Address.Country != "Nigeria" || p.Currency != "NGN" {
		t.Errorf("expected defaults, got country=%s currency=%s", p.Address.Country, p.Currency)
	}
	if !p.DateOfBirth.Equal(time.Date(1990, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected dob %v", p.DateOfBirth)
	}
	if !p.Insurance.IsActive || p.Insurance.StartDate == nil || p.Insurance.EndDate != nil {
		t.Errorf("unexpected insurance %+v", p.Insurance)
	}
}

func TestApply_StripsControlCharacters(t *testing.T) {
	in := validInput()
	in.FirstName = " Ada\x00 "
	in.LastName = "Obi\x07"
	in.Address = &Address{Street: "12 Marina\x1b Road ", City: "Lagos", State: "Lagos"}
	in.Insurance = &InsuranceInput{HasInsurance: true, Insurer: "AXA", Plan: "Gold", MemberID: "M1", CoverageDetails: "Outpatient\x00 only\n"}
	p := &Patient{}
	in.apply(p, Defaults{Country: "Nigeria", Currency: "NGN"})

	if p.FirstName != "Ada" || p.LastName != "Obi" {
		t.Errorf("expected clean names, got %q %q", p.FirstName, p.LastName)
	}
	if p.Address.Street != "12 Marina Road" {
		t.Errorf("expected clean street, got %q", p.Address.Street)
	}
	if p.Insurance.CoverageDetails != "Outpatient only" {
		t.Errorf("expected clean coverage details, got %q", p.Insurance.CoverageDetails)
	}
}

func TestMerge_KeepsOmittedFields(t *testing.T) {
	base := validInput()
	merged := merge(base, Input{LastName: "Okafor"})
	if merged.FirstName != "Ada" || merged.LastName != "Okafor" || merged.Address == nil {
		t.Errorf("unexpected merge result %+v", merged)
	}
}
