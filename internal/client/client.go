// Package client is the HTTP client of the product catalog API together with
// the session state driving an interactive front end.
package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/guonaihong/gout"
	"github.com/guonaihong/gout/dataflow"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/talkincode/prodcatalog/internal/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const defaultTimeout = 15 * time.Second

// APIError is a non 2xx response of the server
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// StatusOf returns the HTTP status carried by err, 0 when it is not an APIError
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// ProductRequest is the body of a create call
type ProductRequest struct {
	ProductID string   `json:"productId,omitempty" csv:"productId"`
	Name      string   `json:"name" csv:"name"`
	Price     *float64 `json:"price" csv:"price"`
	Rating    *float64 `json:"rating,omitempty" csv:"rating"`
	Featured  bool     `json:"featured" csv:"featured"`
	Company   string   `json:"company" csv:"company"`
}

// ProductPatch is the body of an update call, nil fields are left unchanged.
// A rating can be replaced but not removed.
type ProductPatch struct {
	ProductID *string  `json:"productId,omitempty"`
	Name      *string  `json:"name,omitempty"`
	Price     *float64 `json:"price,omitempty"`
	Rating    *float64 `json:"rating,omitempty"`
	Featured  *bool    `json:"featured,omitempty"`
	Company   *string  `json:"company,omitempty"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type errorBody struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

// Client calls the catalog API. Product calls need a token, set by Login or
// SetToken. A Client is safe for sequential use only.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	timeout    time.Duration
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Token() string { return c.token }

func (c *Client) SetToken(token string) { c.token = token }

func (c *Client) flow(method, path string) (*dataflow.DataFlow, error) {
	u := c.baseURL + path
	g := gout.New(c.httpClient)
	switch method {
	case http.MethodGet:
		return g.GET(u), nil
	case http.MethodPost:
		return g.POST(u), nil
	case http.MethodPut:
		return g.PUT(u), nil
	case http.MethodDelete:
		return g.DELETE(u), nil
	default:
		return nil, errors.Errorf("unsupported method %s", method)
	}
}

// call sends the request and returns the raw body of a 2xx response
func (c *Client) call(ctx context.Context, method, path string, body interface{}, authorized bool) ([]byte, error) {
	df, err := c.flow(method, path)
	if err != nil {
		return nil, err
	}
	df = df.WithContext(ctx).SetTimeout(c.timeout)
	if authorized {
		if c.token == "" {
			return nil, &APIError{Status: http.StatusUnauthorized, Code: "UNAUTHORIZED", Message: "no access token"}
		}
		df = df.SetHeader(gout.H{"Authorization": "Bearer " + c.token})
	}
	if body != nil {
		df = df.SetJSON(body)
	}

	var (
		raw  []byte
		code int
	)
	if err := df.BindBody(&raw).Code(&code).Do(); err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, path)
	}
	if code >= http.StatusOK && code < http.StatusMultipleChoices {
		return raw, nil
	}

	apiErr := &APIError{Status: code, Message: strings.TrimSpace(string(raw))}
	var eb errorBody
	if json.Unmarshal(raw, &eb) == nil && (eb.Code != "" || eb.Msg != "") {
		apiErr.Code = eb.Code
		apiErr.Message = eb.Msg
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(code)
	}
	return nil, apiErr
}

func (c *Client) products(ctx context.Context, path string) ([]*domain.Product, error) {
	raw, err := c.call(ctx, http.MethodGet, path, nil, true)
	if err != nil {
		return nil, err
	}
	list := make([]*domain.Product, 0)
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, errors.Wrap(err, "decode products")
	}
	return list, nil
}

func (c *Client) product(ctx context.Context, method, path string, body interface{}) (*domain.Product, error) {
	raw, err := c.call(ctx, method, path, body, true)
	if err != nil {
		return nil, err
	}
	var p domain.Product
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, errors.Wrap(err, "decode product")
	}
	return &p, nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Welcome returns the server banner
func (c *Client) Welcome(ctx context.Context) (string, error) {
	raw, err := c.call(ctx, http.MethodGet, "/", nil, false)
	return string(raw), err
}

func (c *Client) Signup(ctx context.Context, email, password string) error {
	_, err := c.call(ctx, http.MethodPost, "/signup", credentials{Email: email, Password: password}, false)
	return err
}

// Login stores the returned access token on the client and returns it
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	raw, err := c.call(ctx, http.MethodPost, "/login", credentials{Email: email, Password: password}, false)
	if err != nil {
		return "", err
	}
	var resp struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", errors.Wrap(err, "decode login response")
	}
	if resp.AccessToken == "" {
		return "", errors.New("login response has no access token")
	}
	c.token = resp.AccessToken
	return c.token, nil
}

func (c *Client) List(ctx context.Context) ([]*domain.Product, error) {
	return c.products(ctx, "/products")
}

func (c *Client) Featured(ctx context.Context) ([]*domain.Product, error) {
	return c.products(ctx, "/products/featured")
}

func (c *Client) PriceBelow(ctx context.Context, maxPrice float64) ([]*domain.Product, error) {
	return c.products(ctx, "/products/price/"+formatNumber(maxPrice))
}

func (c *Client) RatingAbove(ctx context.Context, minRating float64) ([]*domain.Product, error) {
	return c.products(ctx, "/products/rating/"+formatNumber(minRating))
}

// Filter returns the products cheaper than maxPrice and rated above minRating
func (c *Client) Filter(ctx context.Context, maxPrice, minRating float64) ([]*domain.Product, error) {
	byPrice, err := c.PriceBelow(ctx, maxPrice)
	if err != nil {
		return nil, err
	}
	byRating, err := c.RatingAbove(ctx, minRating)
	if err != nil {
		return nil, err
	}
	return Intersect(byPrice, byRating), nil
}

func (c *Client) Create(ctx context.Context, req ProductRequest) (*domain.Product, error) {
	return c.product(ctx, http.MethodPost, "/products", req)
}

func (c *Client) Update(ctx context.Context, id string, patch ProductPatch) (*domain.Product, error) {
	return c.product(ctx, http.MethodPut, "/products/"+url.PathEscape(id), patch)
}

func (c *Client) Delete(ctx context.Context, id string) error {
	_, err := c.call(ctx, http.MethodDelete, "/products/"+url.PathEscape(id), nil, true)
	return err
}

// Intersect keeps the products of a that also appear in b, compared by
// record id, in the order of a.
func Intersect(a, b []*domain.Product) []*domain.Product {
	ids := make(map[string]struct{}, len(b))
	for _, p := range b {
		ids[p.ID] = struct{}{}
	}
	out := make([]*domain.Product, 0, len(a))
	for _, p := range a {
		if _, ok := ids[p.ID]; ok {
			out = append(out, p)
		}
	}
	return out
}
