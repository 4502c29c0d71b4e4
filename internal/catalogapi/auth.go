package catalogapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/talkincode/prodcatalog/internal/domain"
	"github.com/talkincode/prodcatalog/internal/webserver"
)

type credentialsPayload struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,max=72"`
}

type loginResponse struct {
	AccessToken string `json:"accessToken"`
}

func (h *Handler) registerAuthRoutes(srv *webserver.Server) {
	srv.POST("/signup", h.signup)
	srv.POST("/login", h.login)
}

func (h *Handler) welcome(c echo.Context) error {
	return c.String(http.StatusOK, welcomeMessage)
}

func (h *Handler) signup(c echo.Context) error {
	var payload credentialsPayload
	if err := c.Bind(&payload); err != nil {
		return h.fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse signup parameters", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	if err := h.auth.Signup(c.Request().Context(), payload.Email, payload.Password); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return h.fail(c, http.StatusBadRequest, "USER_EXISTS", "Email already registered", nil)
		}
		return h.fromError(c, err, "register user")
	}
	return c.String(http.StatusCreated, "User registered successfully")
}

func (h *Handler) login(c echo.Context) error {
	var payload credentialsPayload
	if err := c.Bind(&payload); err != nil {
		return h.fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse login parameters", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	token, err := h.auth.Login(c.Request().Context(), payload.Email, payload.Password)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return h.fail(c, http.StatusBadRequest, "USER_NOT_FOUND", "Cannot find user", nil)
		}
		return h.fromError(c, err, "log in")
	}
	return ok(c, loginResponse{AccessToken: token})
}
