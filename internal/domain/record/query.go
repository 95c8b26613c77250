package record

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/excelthedev/Plural-health/internal/platform/httperr"
	"github.com/excelthedev/Plural-health/pkg/pagination"
)

// Sort keys accepted by the record list.
const (
	SortAppointmentTime = "appointmentTime"
	SortPatientName     = "patientName"
	SortClinic          = "clinic"
	SortStatus          = "status"
	SortWalletBalance   = "walletBalance"
)

var sortColumns = map[string]string{
	SortAppointmentTime: "a.appointment_time",
	SortPatientName:     "patient_name",
	SortClinic:          "a.clinic",
	SortStatus:          "a.status",
	SortWalletBalance:   "p.wallet_balance",
}

const dayLayout = "2006-01-02"

// Query holds the raw query-string values of a record request.
type Query struct {
	Page       string
	Limit      string
	Search     string
	Clinic     string
	Status     string
	SortBy     string
	SortOrder  string
	StartDate  string
	EndDate    string
	FacilityID string
}

// QueryFromContext reads a Query from the request's query string.
func QueryFromContext(c echo.Context) Query {
	return Query{
		Page:       c.QueryParam("page"),
		Limit:      c.QueryParam("limit"),
		Search:     c.QueryParam("search"),
		Clinic:     c.QueryParam("clinic"),
		Status:     c.QueryParam("status"),
		SortBy:     c.QueryParam("sortBy"),
		SortOrder:  c.QueryParam("sortOrder"),
		StartDate:  c.QueryParam("startDate"),
		EndDate:    c.QueryParam("endDate"),
		FacilityID: c.QueryParam("facilityId"),
	}
}

// Filter is a normalized Query. The appointment time window is
// [From, Until); a nil bound is open.
type Filter struct {
	Page       pagination.Params
	Search     string
	Clinic     string
	Status     string
	FacilityID *uuid.UUID
	From       *time.Time
	Until      *time.Time
	SortBy     string
	SortDesc   bool
}

// AppliedFilters echoes the effective filter back to the caller.
type AppliedFilters struct {
	Search    string `json:"search"`
	Clinic    string `json:"clinic"`
	Status    string `json:"status"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	SortBy    string `json:"sortBy"`
	SortOrder string `json:"sortOrder"`
}

// Normalize validates q and applies the record defaults. With no dates the
// window is today in loc; an end date covers its whole day.
func Normalize(q Query, now time.Time, loc *time.Location) (Filter, error) {
	f := Filter{
		Page:   pagination.Parse(q.Page, q.Limit),
		Search: strings.TrimSpace(q.Search),
		Clinic: strings.TrimSpace(q.Clinic),
		Status: strings.TrimSpace(q.Status),
		SortBy: q.SortBy,
	}
	if _, ok := sortColumns[f.SortBy]; !ok {
		f.SortBy = SortAppointmentTime
	}
	f.SortDesc = q.SortOrder == "desc"

	if q.FacilityID != "" {
		id, err := uuid.Parse(q.FacilityID)
		if err != nil {
			return Filter{}, httperr.BadRequest("Invalid facility ID")
		}
		f.FacilityID = &id
	}

	if err := f.applyDates(q.StartDate, q.EndDate, now, loc); err != nil {
		return Filter{}, err
	}
	return f, nil
}

func (f *Filter) applyDates(start, end string, now time.Time, loc *time.Location) error {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if start == "" && end == "" {
		from := startOfDay(now, loc)
		until := from.AddDate(0, 0, 1)
		f.From, f.Until = &from, &until
		return nil
	}
	if start != "" {
		from, err := parseBound(start, loc)
		if err != nil {
			return httperr.BadRequest("Invalid startDate")
		}
		f.From = &from
	}
	if end != "" {
		t, err := parseBound(end, loc)
		if err != nil {
			return httperr.BadRequest("Invalid endDate")
		}
		until := startOfDay(t, loc).AddDate(0, 0, 1)
		f.Until = &until
	}
	if f.From != nil && f.Until != nil && !f.From.Before(*f.Until) {
		return httperr.BadRequest("startDate must be on or before endDate")
	}
	return nil
}

// parseBound accepts a calendar day in loc or an RFC 3339 instant.
func parseBound(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation(dayLayout, s, loc); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// Applied renders the effective filter for the response body.
func (f Filter) Applied() AppliedFilters {
	a := AppliedFilters{
		Search:    f.Search,
		Clinic:    f.Clinic,
		Status:    f.Status,
		SortBy:    f.SortBy,
		SortOrder: "asc",
	}
	if f.SortDesc {
		a.SortOrder = "desc"
	}
	if f.From != nil {
		a.StartDate = f.From.Format(dayLayout)
	}
	if f.Until != nil {
		a.EndDate = f.Until.AddDate(0, 0, -1).Format(dayLayout)
	}
	return a
}

// contains reports whether t falls inside the window.
func (f Filter) contains(t time.Time) bool {
	if f.From != nil && t.Before(*f.From) {
		return false
	}
	if f.Until != nil && !t.Before(*f.Until) {
		return false
	}
	return true
}

// StatsFilter keeps only the window and facility of f; stats and filter
// options ignore search, clinic and status.
func (f Filter) StatsFilter() Filter {
	return Filter{FacilityID: f.FacilityID, From: f.From, Until: f.Until}
}
