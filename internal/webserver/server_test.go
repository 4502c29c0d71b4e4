package webserver

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkincode/prodcatalog/config"
	"github.com/talkincode/prodcatalog/internal/auth"
	"github.com/talkincode/prodcatalog/internal/domain"
)

type stubVerifier struct {
	calls int
}

func (v *stubVerifier) Verify(raw string) (*auth.Identity, error) {
	v.calls++
	if raw == "good" {
		return &auth.Identity{Email: "a@x.com"}, nil
	}
	return nil, errors.Wrap(domain.ErrForbidden, "bad token")
}

func newTestServer(t *testing.T, mode string) (*Server, *stubVerifier, *int) {
	t.Helper()
	cfg := *config.DefaultAppConfig
	cfg.System.Mode = mode
	verifier := &stubVerifier{}
	srv := NewServer(&cfg, verifier)

	reached := 0
	srv.ApiGET("/secret", func(c echo.Context) error {
		reached++
		id, ok := auth.FromContext(c.Request().Context())
		require.True(t, ok)
		return c.String(http.StatusOK, id.Email+"|"+GetIdentity(c).Email)
	})
	srv.GET("/boom", func(c echo.Context) error {
		return errors.New("store exploded")
	})
	return srv, verifier, &reached
}

func do(srv *Server, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)
	return rec
}

func TestAuthGate(t *testing.T) {
	tests := []struct {
		name       string
		header     map[string]string
		wantStatus int
		wantReach  int
	}{
		{"no header", nil, http.StatusUnauthorized, 0},
		{"wrong scheme", map[string]string{"Authorization": "Basic abc"}, http.StatusUnauthorized, 0},
		{"empty bearer", map[string]string{"Authorization": "Bearer "}, http.StatusUnauthorized, 0},
		{"invalid token", map[string]string{"Authorization": "Bearer bad"}, http.StatusForbidden, 0},
		{"valid token", map[string]string{"Authorization": "Bearer good"}, http.StatusOK, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _, reached := newTestServer(t, config.ModeDevelopment)
			rec := do(srv, http.MethodGet, "/secret", tt.header)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantReach, *reached)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "a@x.com|a@x.com", rec.Body.String())
			}
		})
	}
}

func TestErrorHandlerHidesDetailsInProduction(t *testing.T) {
	srv, _, _ := newTestServer(t, config.ModeDevelopment)
	rec := do(srv, http.MethodGet, "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "store exploded")

	srv, _, _ = newTestServer(t, config.ModeProduction)
	rec = do(srv, http.MethodGet, "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "store exploded")
	assert.Contains(t, rec.Body.String(), "Something went wrong")
}

func TestUnknownRoute(t *testing.T) {
	srv, _, _ := newTestServer(t, config.ModeDevelopment)
	rec := do(srv, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Not Found", body.Code)
}

func TestCORSAllowedOrigin(t *testing.T) {
	srv, _, _ := newTestServer(t, config.ModeDevelopment)
	rec := do(srv, http.MethodOptions, "/secret", map[string]string{
		"Origin":                        "http://localhost:5173",
		"Access-Control-Request-Method": http.MethodGet,
	})
	assert.Equal(t, "http://localhost:5173", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))

	rec = do(srv, http.MethodOptions, "/secret", map[string]string{
		"Origin":                        "http://evil.test",
		"Access-Control-Request-Method": http.MethodGet,
	})
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

func TestRequestIDHeader(t *testing.T) {
	srv, _, _ := newTestServer(t, config.ModeDevelopment)
	rec := do(srv, http.MethodGet, "/nope", nil)
	assert.Len(t, rec.Header().Get(echo.HeaderXRequestID), 36)
}

func TestDeserializeRejectsBadJSON(t *testing.T) {
	srv, _, _ := newTestServer(t, config.ModeDevelopment)
	srv.POST("/echo", func(c echo.Context) error {
		var body struct {
			Name string `json:"name" validate:"required"`
		}
		if err := c.Bind(&body); err != nil {
			return err
		}
		if err := c.Validate(&body); err != nil {
			return c.String(http.StatusBadRequest, err.Error())
		}
		return c.JSON(http.StatusOK, body)
	})

	post := func(payload string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(payload))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		srv.Echo().ServeHTTP(rec, req)
		return rec
	}

	rec := post(`{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(`{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "'name'")

	rec = post(`{"name":"ok"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"name":"ok"}`, rec.Body.String())
}
