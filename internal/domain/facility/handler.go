package facility

import (
	"errors"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/excelthedev/Plural-health/internal/platform/httperr"
	"github.com/excelthedev/Plural-health/internal/platform/respond"
)

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/facilities", h.List)
	api.GET("/facilities/:id", h.Get)
	api.GET("/facilities/:id/staff", h.ListStaff)
}

func (h *Handler) List(c echo.Context) error {
	activeOnly := c.QueryParam("includeInactive") != "true"
	out, err := h.repo.List(c.Request().Context(), activeOnly)
	if err != nil {
		return httperr.Internal(err)
	}
	if out == nil {
		out = []*Facility{}
	}
	return respond.OK(c, "Facilities retrieved successfully", out)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return httperr.BadRequest("Invalid facility ID")
	}
	f, err := h.repo.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return httperr.NotFound("Facility not found")
		}
		return httperr.Internal(err)
	}
	return respond.OK(c, "Facility retrieved successfully", f)
}

func (h *Handler) ListStaff(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return httperr.BadRequest("Invalid facility ID")
	}
	ctx := c.Request().Context()
	ok, err := h.repo.Exists(ctx, id)
	if err != nil {
		return httperr.Internal(err)
	}
	if !ok {
		return httperr.NotFound("Facility not found")
	}
	staff, err := h.repo.ListStaff(ctx, &id, c.QueryParam("role"))
	if err != nil {
		return httperr.Internal(err)
	}
	if staff == nil {
		staff = []*Staff{}
	}
	return respond.OK(c, "Staff retrieved successfully", staff)
}
