// Package account serves the unauthenticated auth and user endpoints the
// dashboard calls. Login issues a signed token for the given email without
// checking a password; nothing on the server requires one.
package account

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/excelthedev/Plural-health/internal/domain/facility"
	"github.com/excelthedev/Plural-health/internal/platform/auth"
	"github.com/excelthedev/Plural-health/internal/platform/httperr"
	"github.com/excelthedev/Plural-health/internal/platform/respond"
)

// StaffDirectory is the read side of the staff table.
type StaffDirectory interface {
	GetStaff(ctx context.Context, id uuid.UUID) (*facility.Staff, error)
	ListStaff(ctx context.Context, facilityID *uuid.UUID, role string) ([]*facility.Staff, error)
}

type Handler struct {
	issuer *auth.TokenIssuer
	staff  StaffDirectory
}

func NewHandler(issuer *auth.TokenIssuer, staff StaffDirectory) *Handler {
	return &Handler{issuer: issuer, staff: staff}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	a := api.Group("/auth")
	a.POST("/register", h.Register)
	a.POST("/login", h.Login)
	a.POST("/logout", h.Logout)
	a.GET("/me", h.Me)

	u := api.Group("/users")
	u.GET("", h.ListUsers)
	u.GET("/:id", h.GetUser)
	u.POST("", h.CreateUser)
	u.PUT("/:id", h.UpdateUser)
	u.DELETE("/:id", h.DeleteUser)
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

// User is the identity returned by the auth endpoints.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
}

type session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      User      `json:"user"`
}

func bindCredentials(c echo.Context) (credentials, error) {
	var cr credentials
	if err := c.Bind(&cr); err != nil {
		return cr, httperr.BadRequest("Invalid request body")
	}
	cr.Email = strings.ToLower(strings.TrimSpace(cr.Email))
	cr.Name = strings.TrimSpace(cr.Name)
	return cr, nil
}

func (h *Handler) Register(c echo.Context) error {
	cr, err := bindCredentials(c)
	if err != nil {
		return err
	}
	if cr.Email == "" || cr.Password == "" || cr.Name == "" {
		return httperr.BadRequest("Email, password, and name are required")
	}
	return respond.Created(c, "User registered successfully", User{
		ID:    uuid.NewString(),
		Email: cr.Email,
		Name:  cr.Name,
	})
}

func (h *Handler) Login(c echo.Context) error {
	cr, err := bindCredentials(c)
	if err != nil {
		return err
	}
	if cr.Email == "" || cr.Password == "" {
		return httperr.BadRequest("Email and password are required")
	}

	user := User{ID: uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+cr.Email)).String(), Email: cr.Email, Role: cr.Role}
	token, exp, err := h.issuer.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		return httperr.Internal(err)
	}
	return respond.OK(c, "Login successful", session{Token: token, ExpiresAt: exp, User: user})
}

func (h *Handler) Logout(c echo.Context) error {
	return respond.OK(c, "Logout successful", nil)
}

// Me echoes the identity attached by auth.Identify, "system" when the
// request carried no valid token.
func (h *Handler) Me(c echo.Context) error {
	ctx := c.Request().Context()
	return respond.OK(c, "Current user info", User{
		ID:    auth.ActorFromContext(ctx),
		Email: auth.EmailFromContext(ctx),
		Role:  auth.RoleFromContext(ctx),
	})
}

func (h *Handler) ListUsers(c echo.Context) error {
	var fid *uuid.UUID
	if v := c.QueryParam("facilityId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return httperr.BadRequest("Invalid facility ID")
		}
		fid = &id
	}
	staff, err := h.staff.ListStaff(c.Request().Context(), fid, c.QueryParam("role"))
	if err != nil {
		return httperr.Internal(err)
	}
	if staff == nil {
		staff = []*facility.Staff{}
	}
	return respond.OK(c, "Get all users", staff)
}

func (h *Handler) GetUser(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return httperr.BadRequest("Invalid user ID")
	}
	s, err := h.staff.GetStaff(c.Request().Context(), id)
	if errors.Is(err, facility.ErrNotFound) {
		return httperr.NotFound("User not found")
	}
	if err != nil {
		return httperr.Internal(err)
	}
	return respond.OK(c, "Get user with ID: "+id.String(), s)
}

// CreateUser, UpdateUser and DeleteUser acknowledge the request without
// persisting anything.
func (h *Handler) CreateUser(c echo.Context) error {
	body, err := bindMap(c)
	if err != nil {
		return err
	}
	return respond.Created(c, "User created successfully", body)
}

func (h *Handler) UpdateUser(c echo.Context) error {
	body, err := bindMap(c)
	if err != nil {
		return err
	}
	return respond.OK(c, "User "+c.Param("id")+" updated successfully", body)
}

func (h *Handler) DeleteUser(c echo.Context) error {
	return respond.OK(c, "User "+c.Param("id")+" deleted successfully", nil)
}

// bindMap decodes the body alone so path params stay out of the echo.
func bindMap(c echo.Context) (map[string]interface{}, error) {
	body := map[string]interface{}{}
	if err := (&echo.DefaultBinder{}).BindBody(c, &body); err != nil {
		return nil, httperr.BadRequest("Invalid request body")
	}
	return body, nil
}
