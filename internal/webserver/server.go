package webserver

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/talkincode/prodcatalog/config"
	"github.com/talkincode/prodcatalog/internal/auth"
	"github.com/talkincode/prodcatalog/internal/domain"
)

// identityKey echo context key holding the verified *auth.Identity
const identityKey = "identity"

// TokenVerifier validates a raw bearer token
type TokenVerifier interface {
	Verify(raw string) (*auth.Identity, error)
}

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Code    string      `json:"code"`
	Msg     string      `json:"msg"`
	Details interface{} `json:"details,omitempty"`
}

// HideErrorDetails reports whether 5xx responses must omit error messages
func (s *Server) HideErrorDetails() bool {
	return s.cfg.IsProduction()
}

// Server wraps the echo instance and the bearer token gate
type Server struct {
	cfg      *config.AppConfig
	root     *echo.Echo
	authGate echo.MiddlewareFunc
}

func NewServer(cfg *config.AppConfig, verifier TokenVerifier) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger.SetLevel(log.ERROR)
	e.JSONSerializer = &JSONSerializer{}
	e.Validator = NewValidator()

	s := &Server{cfg: cfg, root: e}
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			zap.L().Error("panic recovered", zap.Error(err), zap.ByteString("stack", stack))
			return err
		},
	}))
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(requestLogger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Web.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(middleware.BodyLimit("1M"))

	s.authGate = newAuthGate(verifier)
	return s
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID),
				zap.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			zap.L().Info("http request", fields...)
			return nil
		},
	})
}

// newAuthGate rejects requests without a bearer token with 401 and requests
// with an invalid one with 403, before any handler runs.
func newAuthGate(verifier TokenVerifier) echo.MiddlewareFunc {
	jwtMiddleware := echojwt.WithConfig(echojwt.Config{
		ContextKey:  identityKey,
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		ParseTokenFunc: func(c echo.Context, raw string) (interface{}, error) {
			return verifier.Verify(raw)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			if errors.Is(err, domain.ErrForbidden) {
				return c.JSON(http.StatusForbidden, ErrorResponse{Code: "FORBIDDEN", Msg: "Forbidden"})
			}
			return c.JSON(http.StatusUnauthorized, ErrorResponse{Code: "UNAUTHORIZED", Msg: "Unauthorized"})
		},
	})
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return jwtMiddleware(func(c echo.Context) error {
			if id, ok := c.Get(identityKey).(*auth.Identity); ok {
				c.SetRequest(c.Request().WithContext(auth.NewContext(c.Request().Context(), id)))
			}
			return next(c)
		})
	}
}

// GetIdentity returns the identity set by the auth gate
func GetIdentity(c echo.Context) *auth.Identity {
	id, _ := c.Get(identityKey).(*auth.Identity)
	return id
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	resp := ErrorResponse{Code: "SERVER_ERROR", Msg: "Something went wrong"}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		resp.Code = http.StatusText(he.Code)
		resp.Msg = http.StatusText(he.Code)
		if msg, ok := he.Message.(string); ok {
			resp.Msg = msg
		}
	}
	if status >= http.StatusInternalServerError {
		zap.L().Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Error(err))
		if !s.HideErrorDetails() {
			resp.Details = err.Error()
		}
	}

	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(status)
	} else {
		werr = c.JSON(status, resp)
	}
	if werr != nil {
		zap.L().Error("write error response", zap.Error(werr))
	}
}

func (s *Server) Echo() *echo.Echo { return s.root }

// GET registers a public route
func (s *Server) GET(path string, h echo.HandlerFunc) { s.root.GET(path, h) }

// POST registers a public route
func (s *Server) POST(path string, h echo.HandlerFunc) { s.root.POST(path, h) }

// ApiGET registers a route behind the bearer token gate
func (s *Server) ApiGET(path string, h echo.HandlerFunc) { s.root.GET(path, h, s.authGate) }

func (s *Server) ApiPOST(path string, h echo.HandlerFunc) { s.root.POST(path, h, s.authGate) }

func (s *Server) ApiPUT(path string, h echo.HandlerFunc) { s.root.PUT(path, h, s.authGate) }

func (s *Server) ApiDELETE(path string, h echo.HandlerFunc) { s.root.DELETE(path, h, s.authGate) }

// Start blocks serving HTTP until Shutdown is called
func (s *Server) Start() error {
	addr := s.cfg.Addr()
	zap.L().Info("web server listening", zap.String("addr", addr))
	err := s.root.Start(addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests within the configured timeout
func (s *Server) Shutdown(ctx context.Context) error {
	timeout := s.cfg.Web.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.root.Shutdown(ctx)
}
