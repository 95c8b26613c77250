package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/excelthedev/Plural-health/internal/domain/patient"
	"github.com/excelthedev/Plural-health/pkg/pagination"
)

// Photo is an image sent with a registration or an edit.
type Photo struct {
	Name        string
	ContentType string
	Content     io.Reader
}

// PatientQuery narrows ListPatients.
type PatientQuery struct {
	Page            int
	Limit           int
	Search          string
	FacilityID      string
	Gender          string
	HasInsurance    *bool
	SortBy          string
	SortOrder       string
	IncludeInactive bool
}

// PatientPage is one page of ListPatients.
type PatientPage struct {
	Patients   []*patient.Patient `json:"patients"`
	Pagination pagination.Meta    `json:"pagination"`
}

// patientRequest sends in as JSON, or as a multipart form when a photo is
// attached. Form values that are not strings travel as JSON text.
func (c *Client) patientRequest(in patient.Input, photo *Photo) (*resty.Request, error) {
	req := c.http.R()
	if photo == nil {
		return req.SetBody(in), nil
	}

	raw, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	form := map[string]string{}
	for k, v := range fields {
		if string(v) == "null" {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			form[k] = s
			continue
		}
		form[k] = string(v)
	}

	ct := photo.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	return req.SetMultipartFormData(form).SetMultipartField("photo", photo.Name, ct, photo.Content), nil
}

// CreatePatient registers a patient. A 409 comes back as *APIError with
// Duplicates set.
func (c *Client) CreatePatient(ctx context.Context, in patient.Input, photo *Photo) (*patient.Patient, error) {
	req, err := c.patientRequest(in, photo)
	if err != nil {
		return nil, fmt.Errorf("encode patient: %w", err)
	}
	var out patient.Patient
	if _, err := c.do(ctx, http.MethodPost, "/patients", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdatePatient(ctx context.Context, id uuid.UUID, in patient.Input, photo *Photo) (*patient.Patient, error) {
	req, err := c.patientRequest(in, photo)
	if err != nil {
		return nil, fmt.Errorf("encode patient: %w", err)
	}
	var out patient.Patient
	if _, err := c.do(ctx, http.MethodPut, "/patients/"+id.String(), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CheckDuplicates(ctx context.Context, q patient.DuplicateQuery) (*patient.DuplicateResult, error) {
	var out patient.DuplicateResult
	if _, err := c.do(ctx, http.MethodPost, "/patients/check-duplicates", c.http.R().SetBody(q), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListPatients(ctx context.Context, q PatientQuery) (*PatientPage, error) {
	req := c.http.R()
	if q.Page > 0 {
		req.SetQueryParam("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(q.Limit))
	}
	for k, v := range map[string]string{
		"search":     q.Search,
		"facilityId": q.FacilityID,
		"gender":     q.Gender,
		"sortBy":     q.SortBy,
		"sortOrder":  q.SortOrder,
	} {
		if v != "" {
			req.SetQueryParam(k, v)
		}
	}
	if q.HasInsurance != nil {
		req.SetQueryParam("hasInsurance", strconv.FormatBool(*q.HasInsurance))
	}
	if q.IncludeInactive {
		req.SetQueryParam("includeInactive", "true")
	}

	var out PatientPage
	if _, err := c.do(ctx, http.MethodGet, "/patients", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetPatient(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	var out patient.Patient
	if _, err := c.do(ctx, http.MethodGet, "/patients/"+id.String(), c.http.R(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeletePatient deactivates a patient.
func (c *Client) DeletePatient(ctx context.Context, id uuid.UUID) error {
	_, err := c.do(ctx, http.MethodDelete, "/patients/"+id.String(), c.http.R(), nil)
	return err
}
