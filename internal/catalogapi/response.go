package catalogapi

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/talkincode/prodcatalog/internal/domain"
	"github.com/talkincode/prodcatalog/internal/webserver"
)

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, data)
}

func (h *Handler) fail(c echo.Context, status int, code, msg string, details interface{}) error {
	if h.hideDetails && status >= http.StatusInternalServerError {
		details = nil
	}
	return c.JSON(status, webserver.ErrorResponse{Code: code, Msg: msg, Details: details})
}

func handleValidationError(c echo.Context, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
			msgs = append(msgs, fe.Field()+" failed on "+fe.Tag())
		}
		return c.JSON(http.StatusBadRequest, webserver.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Msg:     strings.Join(msgs, "; "),
			Details: fields,
		})
	}
	return c.JSON(http.StatusBadRequest, webserver.ErrorResponse{Code: "VALIDATION_ERROR", Msg: err.Error()})
}

// fromError maps the domain error taxonomy onto HTTP responses
func (h *Handler) fromError(c echo.Context, err error, action string) error {
	switch {
	case errors.Is(err, domain.ErrDuplicate):
		return h.fail(c, http.StatusConflict, "DUPLICATE", err.Error(), nil)
	case errors.Is(err, domain.ErrValidation):
		return h.fail(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
	case errors.Is(err, domain.ErrNotFound):
		return h.fail(c, http.StatusNotFound, "NOT_FOUND", "Resource not found", nil)
	case errors.Is(err, domain.ErrInvalidCredentials):
		return h.fail(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Not Allowed", nil)
	default:
		zap.L().Error(action+" failed", zap.Error(err))
		return h.fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to "+action, err.Error())
	}
}
