package record

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/excelthedev/Plural-health/internal/platform/httperr"
	"github.com/excelthedev/Plural-health/internal/platform/metrics"
	"github.com/excelthedev/Plural-health/pkg/pagination"
)

// Service answers the dashboard's record queries.
type Service struct {
	repo    Repository
	metrics *metrics.Collector
	logger  zerolog.Logger
	loc     *time.Location
	now     func() time.Time
}

// NewService builds a Service that resolves "today" and formats
// appointment times in loc; nil means the server's local zone.
func NewService(repo Repository, m *metrics.Collector, logger zerolog.Logger, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		repo:    repo,
		metrics: m,
		logger:  logger.With().Str("component", "record").Logger(),
		loc:     loc,
		now:     time.Now,
	}
}

func (s *Service) normalize(q Query) (Filter, error) {
	return Normalize(q, s.now(), s.loc)
}

// List returns one page of joined records.
func (s *Service) List(ctx context.Context, q Query) (*ListResult, error) {
	f, err := s.normalize(q)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, f)
}

func (s *Service) list(ctx context.Context, f Filter) (*ListResult, error) {
	records, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, httperr.Internal(fmt.Errorf("list records: %w", err))
	}
	if records == nil {
		records = []Record{}
	}
	for i := range records {
		records[i].FormattedTime, records[i].FormattedDate = formatTimes(records[i].AppointmentTime, s.loc)
	}
	return &ListResult{
		Records:    records,
		Pagination: pagination.NewMeta(f.Page, total),
		Filters:    f.Applied(),
	}, nil
}

// Stats summarizes appointments in the query's date window and facility.
func (s *Service) Stats(ctx context.Context, q Query) (*Stats, error) {
	f, err := s.normalize(q)
	if err != nil {
		return nil, err
	}
	st, err := s.repo.Stats(ctx, f)
	if err != nil {
		return nil, httperr.Internal(fmt.Errorf("record stats: %w", err))
	}
	if st.StatusDistribution == nil {
		st.StatusDistribution = []Bucket{}
	}
	if st.ClinicDistribution == nil {
		st.ClinicDistribution = []Bucket{}
	}
	return st, nil
}

// FilterOptions lists the clinics and statuses in use, optionally for one
// facility.
func (s *Service) FilterOptions(ctx context.Context, facilityID string) (*FilterOptions, error) {
	var fid *uuid.UUID
	if facilityID = strings.TrimSpace(facilityID); facilityID != "" {
		id, err := uuid.Parse(facilityID)
		if err != nil {
			return nil, httperr.BadRequest("Invalid facility ID")
		}
		fid = &id
	}
	opts, err := s.repo.FilterOptions(ctx, fid)
	if err != nil {
		return nil, httperr.Internal(fmt.Errorf("record filter options: %w", err))
	}
	return opts, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Detail, error) {
	d, err := s.repo.GetDetail(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	d.FormattedTime, d.FormattedDate = formatTimes(d.AppointmentTime, s.loc)
	return d, nil
}

// UpdateStatus moves an appointment to status and returns the updated
// record.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status, actor string) (*Detail, error) {
	status = strings.TrimSpace(status)
	if !IsValidStatus(status) {
		return nil, httperr.Validation([]httperr.FieldError{{
			Field:   "status",
			Message: "Status must be one of: " + strings.Join(Statuses, ", "),
		}})
	}
	if err := s.repo.UpdateStatus(ctx, id, status, actor); err != nil {
		return nil, notFound(err)
	}

	s.metrics.RecordStatusChanges.WithLabelValues(status).Inc()
	s.logger.Info().
		Str("record_id", id.String()).
		Str("status", status).
		Str("actor", actor).
		Msg("record status changed")
	return s.Get(ctx, id)
}

func notFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return httperr.NotFound("Record not found")
	}
	return httperr.Internal(err)
}
