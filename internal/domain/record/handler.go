package record

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/excelthedev/Plural-health/internal/platform/auth"
	"github.com/excelthedev/Plural-health/internal/platform/httperr"
	"github.com/excelthedev/Plural-health/internal/platform/respond"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/records")
	g.GET("", h.List)
	g.GET("/stats", h.Stats)
	g.GET("/filters", h.Filters)
	g.GET("/export", h.Export)
	g.GET("/:id", h.Get)
	g.PATCH("/:id/status", h.UpdateStatus)
}

func (h *Handler) List(c echo.Context) error {
	res, err := h.svc.List(c.Request().Context(), QueryFromContext(c))
	if err != nil {
		return err
	}
	msg := "Records retrieved successfully"
	if res.Pagination.TotalRecords == 0 {
		msg = "No records found"
	}
	return respond.OK(c, msg, res)
}

func (h *Handler) Stats(c echo.Context) error {
	st, err := h.svc.Stats(c.Request().Context(), QueryFromContext(c))
	if err != nil {
		return err
	}
	return respond.OK(c, "Statistics retrieved successfully", st)
}

func (h *Handler) Filters(c echo.Context) error {
	opts, err := h.svc.FilterOptions(c.Request().Context(), c.QueryParam("facilityId"))
	if err != nil {
		return err
	}
	return respond.OK(c, "Filter options retrieved successfully", opts)
}

func (h *Handler) Export(c echo.Context) error {
	var buf bytes.Buffer
	if _, err := h.svc.Export(c.Request().Context(), QueryFromContext(c), &buf); err != nil {
		return err
	}
	name := fmt.Sprintf("records-%s.xlsx", h.svc.now().In(h.svc.loc).Format(dayLayout))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Blob(http.StatusOK, xlsxMIME, buf.Bytes())
}

func (h *Handler) Get(c echo.Context) error {
	id, err := recordID(c)
	if err != nil {
		return err
	}
	d, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return respond.OK(c, "Record retrieved successfully", d)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	id, err := recordID(c)
	if err != nil {
		return err
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return httperr.BadRequest("Invalid request body")
	}
	ctx := c.Request().Context()
	d, err := h.svc.UpdateStatus(ctx, id, req.Status, auth.ActorFromContext(ctx))
	if err != nil {
		return err
	}
	return respond.OK(c, "Record status updated successfully", d)
}

func recordID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, httperr.BadRequest("Invalid record ID")
	}
	return id, nil
}
