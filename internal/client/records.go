package client

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/excelthedev/Plural-health/internal/domain/record"
)

func recordParams(q record.Query) map[string]string {
	params := map[string]string{}
	set := func(k, v string) {
		if v != "" {
			params[k] = v
		}
	}
	set("page", q.Page)
	set("limit", q.Limit)
	set("search", q.Search)
	set("clinic", q.Clinic)
	set("status", q.Status)
	set("sortBy", q.SortBy)
	set("sortOrder", q.SortOrder)
	set("startDate", q.StartDate)
	set("endDate", q.EndDate)
	set("facilityId", q.FacilityID)
	return params
}

// ListRecords fetches one page of appointment records.
func (c *Client) ListRecords(ctx context.Context, q record.Query) (*record.ListResult, error) {
	var out record.ListResult
	if _, err := c.do(ctx, http.MethodGet, "/records", c.http.R().SetQueryParams(recordParams(q)), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RecordStats fetches totals and distributions for the query's date window.
func (c *Client) RecordStats(ctx context.Context, q record.Query) (*record.Stats, error) {
	var out record.Stats
	if _, err := c.do(ctx, http.MethodGet, "/records/stats", c.http.R().SetQueryParams(recordParams(q)), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RecordFilters fetches the clinics and statuses in use.
func (c *Client) RecordFilters(ctx context.Context, facilityID string) (*record.FilterOptions, error) {
	req := c.http.R()
	if facilityID != "" {
		req.SetQueryParam("facilityId", facilityID)
	}
	var out record.FilterOptions
	if _, err := c.do(ctx, http.MethodGet, "/records/filters", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetRecord(ctx context.Context, id uuid.UUID) (*record.Detail, error) {
	var out record.Detail
	if _, err := c.do(ctx, http.MethodGet, "/records/"+id.String(), c.http.R(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateRecordStatus(ctx context.Context, id uuid.UUID, status string) (*record.Detail, error) {
	req := c.http.R().SetBody(map[string]string{"status": status})
	var out record.Detail
	if _, err := c.do(ctx, http.MethodPatch, "/records/"+id.String()+"/status", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
