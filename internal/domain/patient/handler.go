package patient

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/excelthedev/Plural-health/internal/platform/auth"
	"github.com/excelthedev/Plural-health/internal/platform/httperr"
	"github.com/excelthedev/Plural-health/internal/platform/respond"
	"github.com/excelthedev/Plural-health/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/patients")
	g.POST("", h.Create)
	g.POST("/check-duplicates", h.CheckDuplicates)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.GET("/:id/photo", h.GetPhoto)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

func (h *Handler) Create(c echo.Context) error {
	in, photo, cleanup, err := bindInput(c)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := c.Request().Context()
	origin := &CreatedFrom{IP: c.RealIP(), UserAgent: c.Request().UserAgent()}
	p, err := h.svc.Create(ctx, in, photo, auth.ActorFromContext(ctx), origin)
	if err != nil {
		return err
	}
	return respond.Created(c, "Patient created successfully", p)
}

func (h *Handler) CheckDuplicates(c echo.Context) error {
	var q DuplicateQuery
	if err := c.Bind(&q); err != nil {
		return httperr.BadRequest("Invalid request body")
	}
	res, err := h.svc.CheckDuplicates(c.Request().Context(), q)
	if err != nil {
		return err
	}
	msg := "No duplicates found"
	if res.HasDuplicates {
		msg = duplicateMessage
	}
	return respond.OK(c, msg, res)
}

func (h *Handler) List(c echo.Context) error {
	f := NewListFilter(pagination.FromContext(c), c.QueryParam("search"), c.QueryParam("sortBy"), c.QueryParam("sortOrder"))
	f.Gender = c.QueryParam("gender")
	f.IncludeInactive = c.QueryParam("includeInactive") == "true"
	if v := c.QueryParam("facilityId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return httperr.BadRequest("Invalid facility ID")
		}
		f.FacilityID = &id
	}
	if v := c.QueryParam("hasInsurance"); v != "" {
		b := v == "true"
		f.HasInsurance = &b
	}

	patients, total, err := h.svc.List(c.Request().Context(), f)
	if err != nil {
		return err
	}
	if patients == nil {
		patients = []*Patient{}
	}
	return respond.OK(c, "Patients retrieved successfully", map[string]interface{}{
		"patients":   patients,
		"pagination": pagination.NewMeta(f.Page, total),
	})
}

func (h *Handler) Get(c echo.Context) error {
	id, err := patientID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return respond.OK(c, "Patient retrieved successfully", p)
}

func (h *Handler) GetPhoto(c echo.Context) error {
	id, err := patientID(c)
	if err != nil {
		return err
	}
	rc, meta, err := h.svc.Photo(c.Request().Context(), id)
	if err != nil {
		return err
	}
	defer rc.Close()
	c.Response().Header().Set(echo.HeaderContentLength, strconv.FormatInt(meta.Size, 10))
	return c.Stream(http.StatusOK, meta.MimeType, rc)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := patientID(c)
	if err != nil {
		return err
	}
	in, photo, cleanup, err := bindInput(c)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := c.Request().Context()
	p, err := h.svc.Update(ctx, id, in, photo, auth.ActorFromContext(ctx))
	if err != nil {
		return err
	}
	return respond.OK(c, "Patient updated successfully", p)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := patientID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if err := h.svc.Deactivate(ctx, id, auth.ActorFromContext(ctx)); err != nil {
		return err
	}
	return respond.OK(c, "Patient deleted successfully", nil)
}

func patientID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, httperr.BadRequest("Invalid patient ID")
	}
	return id, nil
}

// bindInput reads a submission from either a multipart form (with an
// optional "photo" file) or a JSON body. In forms, address, identities and
// insurance arrive as JSON strings.
func bindInput(c echo.Context) (Input, *PhotoUpload, func(), error) {
	noop := func() {}
	var in Input

	ct := c.Request().Header.Get(echo.HeaderContentType)
	if !strings.HasPrefix(ct, echo.MIMEMultipartForm) {
		if err := c.Bind(&in); err != nil {
			return in, nil, noop, httperr.BadRequest("Invalid request body")
		}
		return in, nil, noop, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return in, nil, noop, httperr.BadRequest("Invalid multipart form")
	}
	in, fieldErrs := inputFromForm(form.Value)
	if len(fieldErrs) > 0 {
		return in, nil, noop, httperr.Validation(fieldErrs)
	}

	fh, err := c.FormFile("photo")
	if errors.Is(err, http.ErrMissingFile) {
		return in, nil, noop, nil
	}
	if err != nil {
		return in, nil, noop, httperr.BadRequest("Invalid photo upload")
	}
	f, err := fh.Open()
	if err != nil {
		return in, nil, noop, httperr.Internal(err)
	}
	photo := &PhotoUpload{
		Name:        fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Content:     f,
	}
	return in, photo, func() { f.Close() }, nil
}

func inputFromForm(values map[string][]string) (Input, []httperr.FieldError) {
	get := func(k string) string {
		if v := values[k]; len(v) > 0 {
			return v[0]
		}
		return ""
	}
	in := Input{
		FirstName:      get("firstName"),
		MiddleName:     get("middleName"),
		LastName:       get("lastName"),
		Gender:         get("gender"),
		DateOfBirth:    get("dateOfBirth"),
		PrimaryPhone:   get("primaryPhone"),
		SecondaryPhone: get("secondaryPhone"),
		Email:          get("email"),
		FacilityID:     get("facilityId"),
		Currency:       get("currency"),
	}

	var errs []httperr.FieldError
	decode := func(field string, dst interface{}) {
		raw := strings.TrimSpace(get(field))
		if raw == "" {
			return
		}
		if err := json.NewDecoder(strings.NewReader(raw)).Decode(dst); err != nil && err != io.EOF {
			errs = append(errs, httperr.FieldError{Field: field, Message: "Must be valid JSON"})
		}
	}
	decode("address", &in.Address)
	decode("identities", &in.Identities)
	decode("insurance", &in.Insurance)

	if v := get("walletBalance"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, httperr.FieldError{Field: "walletBalance", Message: "Wallet balance must be a number"})
		} else {
			in.WalletBalance = &f
		}
	}
	if v := get("isNewPatient"); v != "" {
		b := v == "true"
		in.IsNewPatient = &b
	}
	return in, errs
}
