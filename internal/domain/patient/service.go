package patient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/excelthedev/Plural-health/internal/platform/blobstore"
	"github.com/excelthedev/Plural-health/internal/platform/httperr"
	"github.com/excelthedev/Plural-health/internal/platform/metrics"
)

// FacilityChecker reports whether a facility exists.
type FacilityChecker interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// PhotoUpload is an image received with a registration or an edit.
type PhotoUpload struct {
	Name        string
	ContentType string
	Content     io.Reader
}

// DuplicateQuery is the body of a standalone duplicate check.
type DuplicateQuery struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	DateOfBirth  string `json:"dateOfBirth"`
	Gender       string `json:"gender"`
	PrimaryPhone string `json:"primaryPhone"`
	FacilityID   string `json:"facilityId"`
	ExcludeID    string `json:"excludeId"`
}

// DuplicateResult answers a duplicate check.
type DuplicateResult struct {
	HasDuplicates bool               `json:"hasDuplicates"`
	Duplicates    []DuplicateSummary `json:"duplicates"`
}

const duplicateMessage = "Potential duplicate patient found"

type Service struct {
	repo       Repository
	facilities FacilityChecker
	photos     blobstore.BlobStore
	metrics    *metrics.Collector
	logger     zerolog.Logger
	defaults   Defaults
	now        func() time.Time
}

func NewService(repo Repository, facilities FacilityChecker, photos blobstore.BlobStore, m *metrics.Collector, logger zerolog.Logger, defaults Defaults) *Service {
	if defaults.Country == "" {
		defaults.Country = "Nigeria"
	}
	if defaults.Currency == "" {
		defaults.Currency = "NGN"
	}
	return &Service{
		repo:       repo,
		facilities: facilities,
		photos:     photos,
		metrics:    m,
		logger:     logger.With().Str("component", "patient").Logger(),
		defaults:   defaults,
		now:        time.Now,
	}
}

// Create registers a patient: validate, normalize, reject duplicates, check
// the facility, store the photo, then insert. A photo stored for a failed
// insert is removed again.
func (s *Service) Create(ctx context.Context, in Input, photo *PhotoUpload, actor string, origin *CreatedFrom) (*Patient, error) {
	if errs := ValidateIntake(in, s.now()); len(errs) > 0 {
		return nil, httperr.Validation(errs)
	}

	p := &Patient{IsActive: true, IsNewPatient: true}
	in.apply(p, s.defaults)
	p.CreatedBy = actor
	p.CreatedFrom = origin

	if err := s.rejectDuplicates(ctx, p, nil); err != nil {
		return nil, err
	}

	ok, err := s.facilities.Exists(ctx, p.FacilityID)
	if err != nil {
		return nil, httperr.Internal(fmt.Errorf("check facility: %w", err))
	}
	if !ok {
		return nil, httperr.NotFound("Facility not found")
	}

	if photo != nil {
		if p.Photo, err = s.storePhoto(ctx, photo); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Create(ctx, p); err != nil {
		if p.Photo != nil {
			s.discardPhoto(ctx, p.Photo.Path, "create failed")
		}
		return nil, httperr.Internal(fmt.Errorf("create patient: %w", err))
	}

	s.metrics.PatientsCreatedTotal.Inc()
	s.logger.Info().
		Str("patient_id", p.ID.String()).
		Str("facility_id", p.FacilityID.String()).
		Str("patient_code", p.PatientCode).
		Msg("patient registered")
	return p, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]*Patient, int, error) {
	out, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, 0, httperr.Internal(fmt.Errorf("list patients: %w", err))
	}
	return out, total, nil
}

// Update overlays the submission on the stored patient and re-validates the
// result. A replaced photo is deleted after the update succeeds; failing to
// delete it is logged and counted, never returned.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in Input, photo *PhotoUpload, actor string) (*Patient, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err)
	}

	merged := merge(inputFrom(existing), in)
	if errs := ValidateIntake(merged, s.now()); len(errs) > 0 {
		return nil, httperr.Validation(errs)
	}

	p := clone(existing)
	merged.apply(p, s.defaults)
	p.UpdatedBy = actor

	if err := s.rejectDuplicates(ctx, p, &p.ID); err != nil {
		return nil, err
	}

	if p.FacilityID != existing.FacilityID {
		ok, err := s.facilities.Exists(ctx, p.FacilityID)
		if err != nil {
			return nil, httperr.Internal(fmt.Errorf("check facility: %w", err))
		}
		if !ok {
			return nil, httperr.NotFound("Facility not found")
		}
	}

	var oldPhoto *Photo
	if photo != nil {
		stored, err := s.storePhoto(ctx, photo)
		if err != nil {
			return nil, err
		}
		oldPhoto, p.Photo = existing.Photo, stored
	}

	if err := s.repo.Update(ctx, p); err != nil {
		if photo != nil {
			s.discardPhoto(ctx, p.Photo.Path, "update failed")
		}
		return nil, notFoundOr(err)
	}

	if oldPhoto != nil {
		s.discardPhoto(ctx, oldPhoto.Path, "replaced")
	}
	s.metrics.PatientsUpdatedTotal.Inc()
	return p, nil
}

// Deactivate soft-deletes a patient.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID, actor string) error {
	if err := s.repo.SoftDelete(ctx, id, actor); err != nil {
		return notFoundOr(err)
	}
	s.metrics.PatientsDeactivated.Inc()
	s.logger.Info().Str("patient_id", id.String()).Str("actor", actor).Msg("patient deactivated")
	return nil
}

// CheckDuplicates runs the duplicate detector without registering anything.
func (s *Service) CheckDuplicates(ctx context.Context, q DuplicateQuery) (*DuplicateResult, error) {
	if strings.TrimSpace(q.FacilityID) == "" {
		return nil, httperr.BadRequest("Facility ID is required")
	}
	facilityID, err := uuid.Parse(q.FacilityID)
	if err != nil {
		return nil, httperr.BadRequest("Invalid facility ID")
	}

	var excludeID *uuid.UUID
	if q.ExcludeID != "" {
		id, err := uuid.Parse(q.ExcludeID)
		if err != nil {
			return nil, httperr.BadRequest("Invalid exclude ID")
		}
		excludeID = &id
	}

	c := Criteria{
		FirstName: strings.TrimSpace(q.FirstName),
		LastName:  strings.TrimSpace(q.LastName),
		Gender:    q.Gender,
	}
	if phone := strings.TrimSpace(q.PrimaryPhone); phone != "" {
		c.PrimaryPhone = FormatPhoneNumber(phone)
	}
	if dob, err := ParseDate(q.DateOfBirth); err == nil {
		c.DateOfBirth = dateOnly(dob)
	}

	dups, err := s.repo.FindDuplicates(ctx, facilityID, c, excludeID)
	if err != nil {
		return nil, httperr.Internal(fmt.Errorf("find duplicates: %w", err))
	}
	return &DuplicateResult{HasDuplicates: len(dups) > 0, Duplicates: Summarize(dups)}, nil
}

// Photo opens the stored photo of a patient.
func (s *Service) Photo(ctx context.Context, id uuid.UUID) (io.ReadCloser, *blobstore.BlobMetadata, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if p.Photo == nil {
		return nil, nil, httperr.NotFound("Photo not found")
	}
	rc, meta, err := s.photos.Download(ctx, p.Photo.Path)
	if err != nil {
		if errors.Is(err, blobstore.ErrBlobNotFound) {
			return nil, nil, httperr.NotFound("Photo not found")
		}
		return nil, nil, httperr.Internal(fmt.Errorf("open photo: %w", err))
	}
	if p.Photo.MimeType != "" {
		meta.MimeType = p.Photo.MimeType
	}
	return rc, meta, nil
}

func (s *Service) rejectDuplicates(ctx context.Context, p *Patient, excludeID *uuid.UUID) error {
	dups, err := s.repo.FindDuplicates(ctx, p.FacilityID, CriteriaFor(p), excludeID)
	if err != nil {
		return httperr.Internal(fmt.Errorf("find duplicates: %w", err))
	}
	if len(dups) == 0 {
		return nil
	}
	s.metrics.DuplicateConflicts.Inc()
	s.logger.Warn().
		Str("facility_id", p.FacilityID.String()).
		Int("matches", len(dups)).
		Msg("duplicate registration rejected")
	return httperr.Conflict(duplicateMessage, Summarize(dups))
}

func (s *Service) storePhoto(ctx context.Context, u *PhotoUpload) (*Photo, error) {
	meta, err := s.photos.Upload(ctx, u.Name, u.ContentType, u.Content)
	switch {
	case errors.Is(err, blobstore.ErrFileTooLarge):
		return nil, &httperr.Error{Status: http.StatusRequestEntityTooLarge, Message: "Photo exceeds the maximum allowed size"}
	case errors.Is(err, blobstore.ErrInvalidContentType):
		return nil, httperr.BadRequest("Only image files are allowed")
	case errors.Is(err, blobstore.ErrMissingFileName):
		return nil, httperr.BadRequest("Photo file name is required")
	case err != nil:
		return nil, httperr.Internal(fmt.Errorf("store photo: %w", err))
	}
	return &Photo{
		Filename:     meta.Filename,
		OriginalName: meta.OriginalName,
		MimeType:     meta.MimeType,
		Size:         meta.Size,
		Path:         meta.Path,
		UploadedAt:   meta.UploadedAt,
	}, nil
}

func (s *Service) discardPhoto(ctx context.Context, path, reason string) {
	if err := s.photos.Delete(ctx, path); err != nil {
		s.metrics.PhotoCleanupFailures.Inc()
		s.logger.Error().Err(err).Str("path", path).Str("reason", reason).Msg("photo cleanup failed")
	}
}

func notFoundOr(err error) error {
	if errors.Is(err, ErrNotFound) {
		return httperr.NotFound("Patient not found")
	}
	return httperr.Internal(err)
}
