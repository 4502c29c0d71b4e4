package catalogapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkincode/prodcatalog/config"
	"github.com/talkincode/prodcatalog/internal/auth"
	"github.com/talkincode/prodcatalog/internal/catalog"
	"github.com/talkincode/prodcatalog/internal/domain"
	"github.com/talkincode/prodcatalog/internal/repository"
	"github.com/talkincode/prodcatalog/internal/webserver"
	"github.com/talkincode/prodcatalog/pkg/common"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type fixture struct {
	t     *testing.T
	store *repository.MemoryStore
	e     *echo.Echo
}

type stubVerifier struct{}

func (stubVerifier) Verify(string) (*auth.Identity, error) {
	return &auth.Identity{Email: "a@x.com"}, nil
}

var errStoreDown = errors.New("connection refused")

type failingProducts struct{}

func (failingProducts) Create(context.Context, domain.ProductInput) (*domain.Product, error) {
	return nil, errStoreDown
}

func (failingProducts) List(context.Context) ([]*domain.Product, error) { return nil, errStoreDown }

func (failingProducts) Update(context.Context, string, domain.ProductChanges) (*domain.Product, error) {
	return nil, errStoreDown
}

func (failingProducts) Delete(context.Context, string) error { return errStoreDown }

func (failingProducts) ListFeatured(context.Context) ([]*domain.Product, error) {
	return nil, errStoreDown
}

func (failingProducts) ListByPriceBelow(context.Context, float64) ([]*domain.Product, error) {
	return nil, errStoreDown
}

func (failingProducts) ListByRatingAbove(context.Context, float64) ([]*domain.Product, error) {
	return nil, errStoreDown
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := *config.DefaultAppConfig
	cfg.Auth.BcryptCost = 4

	ids, err := common.NewSnowflakeGenerator(1)
	require.NoError(t, err)

	store := repository.NewMemoryStore()
	authSvc := auth.NewService(store.Users(), ids, auth.Options{
		TokenSecret: "test-secret",
		BcryptCost:  cfg.Auth.BcryptCost,
	})
	catalogSvc := catalog.NewService(store.Products(), ids, nil)

	srv := webserver.NewServer(&cfg, authSvc)
	NewHandler(authSvc, catalogSvc).Register(srv)
	return &fixture{t: t, store: store, e: srv.Echo()}
}

func (f *fixture) do(method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) login(email, password string) string {
	f.t.Helper()
	creds := `{"email":"` + email + `","password":"` + password + `"}`
	rec := f.do(http.MethodPost, "/signup", "", creds)
	require.Equal(f.t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(http.MethodPost, "/login", "", creds)
	require.Equal(f.t, http.StatusOK, rec.Code, rec.Body.String())
	var resp loginResponse
	require.NoError(f.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(f.t, resp.AccessToken)
	return resp.AccessToken
}

func (f *fixture) products(rec *httptest.ResponseRecorder) []*domain.Product {
	f.t.Helper()
	require.Equal(f.t, http.StatusOK, rec.Code, rec.Body.String())
	var list []*domain.Product
	require.NoError(f.t, json.Unmarshal(rec.Body.Bytes(), &list))
	return list
}

func (f *fixture) create(token, body string) *domain.Product {
	f.t.Helper()
	rec := f.do(http.MethodPost, "/products", token, body)
	require.Equal(f.t, http.StatusCreated, rec.Code, rec.Body.String())
	var p domain.Product
	require.NoError(f.t, json.Unmarshal(rec.Body.Bytes(), &p))
	return &p
}

func productIDs(list []*domain.Product) []string {
	out := make([]string, 0, len(list))
	for _, p := range list {
		out = append(out, p.ProductID)
	}
	return out
}

func TestWelcome(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, welcomeMessage, rec.Body.String())
}

func TestCatalogScenario(t *testing.T) {
	f := newFixture(t)
	token := f.login("a@x.com", "pw1")

	a := f.create(token, `{"productId":"P001","name":"A","price":50,"rating":4.5,"featured":true,"company":"X"}`)
	b := f.create(token, `{"productId":"P002","name":"B","price":150,"rating":3,"featured":false,"company":"Y"}`)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)

	list := f.products(f.do(http.MethodGet, "/products", token, ""))
	assert.Equal(t, []string{"P001", "P002"}, productIDs(list))

	assert.Equal(t, []string{"P001"}, productIDs(f.products(f.do(http.MethodGet, "/products/price/100", token, ""))))
	assert.Equal(t, []string{"P001"}, productIDs(f.products(f.do(http.MethodGet, "/products/rating/4", token, ""))))
	assert.Equal(t, []string{"P001"}, productIDs(f.products(f.do(http.MethodGet, "/products/featured", token, ""))))

	rec := f.do(http.MethodPut, "/products/"+b.ID, token, `{"price":80}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated domain.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, 80.0, updated.Price)
	assert.Equal(t, "B", updated.Name)

	assert.Equal(t, []string{"P001", "P002"}, productIDs(f.products(f.do(http.MethodGet, "/products/price/100", token, ""))))

	rec = f.do(http.MethodDelete, "/products/"+a.ID, token, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Product deleted", rec.Body.String())

	assert.Equal(t, []string{"P002"}, productIDs(f.products(f.do(http.MethodGet, "/products", token, ""))))
}

func TestProductRoutesRequireToken(t *testing.T) {
	f := newFixture(t)
	routes := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodGet, "/products", ""},
		{http.MethodGet, "/products/featured", ""},
		{http.MethodGet, "/products/price/100", ""},
		{http.MethodGet, "/products/rating/4", ""},
		{http.MethodPost, "/products", `{"productId":"P001","name":"A","price":1,"company":"X"}`},
		{http.MethodPut, "/products/abc", `{"price":1}`},
		{http.MethodDelete, "/products/abc", ""},
	}
	for _, r := range routes {
		t.Run(r.method+" "+r.path, func(t *testing.T) {
			rec := f.do(r.method, r.path, "", r.body)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)

			rec = f.do(r.method, r.path, "not-a-token", r.body)
			assert.Equal(t, http.StatusForbidden, rec.Code)
		})
	}

	n, err := f.store.Products().Count(context.Background(), repository.All)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTokenSignedWithOtherSecretIsForbidden(t *testing.T) {
	f := newFixture(t)
	other := auth.NewService(repository.NewMemoryStore().Users(), nil, auth.Options{TokenSecret: "other"})
	token, err := other.IssueToken(auth.Identity{Email: "a@x.com"})
	require.NoError(t, err)

	rec := f.do(http.MethodGet, "/products", token, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSignupAndLoginErrors(t *testing.T) {
	f := newFixture(t)
	f.login("a@x.com", "pw1")

	rec := f.do(http.MethodPost, "/signup", "", `{"email":"A@x.com","password":"other"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "USER_EXISTS")

	rec = f.do(http.MethodPost, "/login", "", `{"email":"nobody@x.com","password":"pw1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Cannot find user")

	rec = f.do(http.MethodPost, "/login", "", `{"email":"a@x.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Not Allowed")

	rec = f.do(http.MethodPost, "/signup", "", `{"email":"not-an-email","password":"pw"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")

	rec = f.do(http.MethodPost, "/signup", "", `{"email":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateProductErrors(t *testing.T) {
	f := newFixture(t)
	token := f.login("a@x.com", "pw1")
	f.create(token, `{"productId":"P001","name":"A","price":50,"company":"X"}`)

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"duplicate productId", `{"productId":"P001","name":"B","price":5,"company":"Y"}`, http.StatusConflict},
		{"missing name", `{"productId":"P009","price":5,"company":"Y"}`, http.StatusBadRequest},
		{"missing price", `{"productId":"P009","name":"B","company":"Y"}`, http.StatusBadRequest},
		{"negative price", `{"productId":"P009","name":"B","price":-1,"company":"Y"}`, http.StatusBadRequest},
		{"rating too high", `{"productId":"P009","name":"B","price":1,"rating":5.5,"company":"Y"}`, http.StatusBadRequest},
		{"missing company", `{"productId":"P009","name":"B","price":1}`, http.StatusBadRequest},
		{"price not a number", `{"productId":"P009","name":"B","price":"cheap","company":"Y"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(http.MethodPost, "/products", token, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}

	list := f.products(f.do(http.MethodGet, "/products", token, ""))
	assert.Len(t, list, 1)
}

func TestCreateProductGeneratesProductID(t *testing.T) {
	f := newFixture(t)
	token := f.login("a@x.com", "pw1")
	f.create(token, `{"productId":"P007","name":"A","price":1,"company":"X"}`)

	p := f.create(token, `{"name":"B","price":2,"rating":0,"company":"Y"}`)
	assert.Equal(t, "P008", p.ProductID)
	require.NotNil(t, p.Rating)
	assert.Equal(t, 0.0, *p.Rating)
}

func TestUpdateProduct(t *testing.T) {
	f := newFixture(t)
	token := f.login("a@x.com", "pw1")
	a := f.create(token, `{"productId":"P001","name":"A","price":50,"company":"X"}`)
	f.create(token, `{"productId":"P002","name":"B","price":60,"company":"Y"}`)

	body := `{"name":"A2","rating":2,"featured":true}`
	first := f.do(http.MethodPut, "/products/"+a.ID, token, body)
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	second := f.do(http.MethodPut, "/products/"+a.ID, token, body)
	require.Equal(t, http.StatusOK, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	rec := f.do(http.MethodPut, "/products/"+a.ID, token, `{"productId":"P002"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(http.MethodPut, "/products/"+a.ID, token, `{"rating":9}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPut, "/products/missing", token, `{"price":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	featured := f.products(f.do(http.MethodGet, "/products/featured", token, ""))
	assert.Equal(t, []string{"P001"}, productIDs(featured))
	assert.Equal(t, "A2", featured[0].Name)
}

func TestDeleteIsIdempotent(t *testing.T) {
	f := newFixture(t)
	token := f.login("a@x.com", "pw1")
	a := f.create(token, `{"productId":"P001","name":"A","price":50,"company":"X"}`)

	for i := 0; i < 2; i++ {
		rec := f.do(http.MethodDelete, "/products/"+a.ID, token, "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Product deleted", rec.Body.String())
	}
	assert.Empty(t, f.products(f.do(http.MethodGet, "/products", token, "")))
}

func TestFilterParams(t *testing.T) {
	f := newFixture(t)
	token := f.login("a@x.com", "pw1")
	f.create(token, `{"productId":"P001","name":"A","price":100,"rating":4,"company":"X"}`)
	f.create(token, `{"productId":"P002","name":"B","price":99.5,"company":"X"}`)

	// bounds are strict
	assert.Equal(t, []string{"P002"}, productIDs(f.products(f.do(http.MethodGet, "/products/price/100", token, ""))))
	assert.Empty(t, f.products(f.do(http.MethodGet, "/products/rating/4", token, "")))
	assert.Equal(t, []string{"P001"}, productIDs(f.products(f.do(http.MethodGet, "/products/rating/3.5", token, ""))))

	rec := f.do(http.MethodGet, "/products/rating/-1", token, "")
	assert.Equal(t, []string{"P001"}, productIDs(f.products(rec)))

	for _, path := range []string{"/products/price/abc", "/products/rating/four", "/products/price/NaN", "/products/price/Inf"} {
		rec := f.do(http.MethodGet, path, token, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestEmptyCatalogListsAreArrays(t *testing.T) {
	f := newFixture(t)
	token := f.login("a@x.com", "pw1")
	for _, path := range []string{"/products", "/products/featured", "/products/price/10", "/products/rating/1"} {
		rec := f.do(http.MethodGet, path, token, "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()), path)
	}
}

func TestPriceAndRatingIntersection(t *testing.T) {
	f := newFixture(t)
	token := f.login("a@x.com", "pw1")
	seed := []string{
		`{"productId":"P001","name":"A","price":10,"rating":4.5,"company":"X"}`,
		`{"productId":"P002","name":"B","price":10,"rating":2,"company":"X"}`,
		`{"productId":"P003","name":"C","price":500,"rating":5,"company":"X"}`,
		`{"productId":"P004","name":"D","price":20,"company":"X"}`,
		`{"productId":"P005","name":"E","price":99,"rating":4.1,"featured":true,"company":"X"}`,
	}
	for _, body := range seed {
		f.create(token, body)
	}

	byPrice := f.products(f.do(http.MethodGet, "/products/price/100", token, ""))
	byRating := f.products(f.do(http.MethodGet, "/products/rating/4", token, ""))
	ratingIDs := make(map[string]bool)
	for _, p := range byRating {
		ratingIDs[p.ID] = true
	}
	var both []string
	for _, p := range byPrice {
		if ratingIDs[p.ID] {
			both = append(both, p.ProductID)
		}
	}

	var want []string
	for _, p := range f.products(f.do(http.MethodGet, "/products", token, "")) {
		if p.Price < 100 && p.Rating != nil && *p.Rating > 4 {
			want = append(want, p.ProductID)
		}
	}
	sort.Strings(both)
	sort.Strings(want)
	assert.Equal(t, want, both)
	assert.Equal(t, []string{"P001", "P005"}, both)
}

func TestServerErrorDetailsFollowMode(t *testing.T) {
	tests := []struct {
		mode        string
		wantDetails bool
	}{
		{config.ModeProduction, false},
		{"development", true},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			cfg := *config.DefaultAppConfig
			cfg.System.Mode = tt.mode
			srv := webserver.NewServer(&cfg, stubVerifier{})
			NewHandler(nil, failingProducts{}).Register(srv)

			req := httptest.NewRequest(http.MethodGet, "/products", nil)
			req.Header.Set(echo.HeaderAuthorization, "Bearer any")
			rec := httptest.NewRecorder()
			srv.Echo().ServeHTTP(rec, req)

			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			var body webserver.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "DATABASE_ERROR", body.Code)
			assert.Equal(t, "Failed to query products", body.Msg)
			if tt.wantDetails {
				assert.Equal(t, errStoreDown.Error(), body.Details)
			} else {
				assert.Nil(t, body.Details)
			}
		})
	}
}
