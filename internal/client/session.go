package client

import (
	"context"

	"github.com/pkg/errors"

	"github.com/talkincode/prodcatalog/internal/domain"
)

// Defaults of the filter controls before the first login
const (
	DefaultPriceFilter  = 100
	DefaultRatingFilter = 4
	DefaultPriceCeiling = 1000
)

var ErrNotLoggedIn = errors.New("not logged in")

// ErrRatingNotRemovable is returned when an edit tries to clear the rating of
// a rated product. Updates only ever replace a rating.
var ErrRatingNotRemovable = errors.New("rating cannot be removed once set")

// API is the part of Client a Session drives
type API interface {
	Signup(ctx context.Context, email, password string) error
	Login(ctx context.Context, email, password string) (string, error)
	List(ctx context.Context) ([]*domain.Product, error)
	Featured(ctx context.Context) ([]*domain.Product, error)
	PriceBelow(ctx context.Context, maxPrice float64) ([]*domain.Product, error)
	RatingAbove(ctx context.Context, minRating float64) ([]*domain.Product, error)
	Create(ctx context.Context, req ProductRequest) (*domain.Product, error)
	Update(ctx context.Context, id string, patch ProductPatch) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
}

var _ API = (*Client)(nil)

// AuthMode selects the logged out form
type AuthMode int

const (
	ModeLogin AuthMode = iota
	ModeSignup
)

func (m AuthMode) String() string {
	if m == ModeSignup {
		return "signup"
	}
	return "login"
}

// Form holds the product form fields
type Form struct {
	Name     string
	Price    float64
	Rating   *float64
	Featured bool
	Company  string
}

// Session is the state of one interactive user. It starts logged out in
// login mode and never returns to logged out once Login succeeded.
type Session struct {
	api          API
	mode         AuthMode
	loggedIn     bool
	priceFilter  float64
	ratingFilter float64
	priceCeiling float64
	form         Form
	editing      *domain.Product
	grid         []*domain.Product
}

func NewSession(api API) *Session {
	return &Session{
		api:          api,
		mode:         ModeLogin,
		priceFilter:  DefaultPriceFilter,
		ratingFilter: DefaultRatingFilter,
		priceCeiling: DefaultPriceCeiling,
		grid:         []*domain.Product{},
	}
}

func (s *Session) Mode() AuthMode { return s.mode }

func (s *Session) LoggedIn() bool { return s.loggedIn }

// Toggle switches between the login and signup forms
func (s *Session) Toggle() {
	if s.mode == ModeLogin {
		s.mode = ModeSignup
	} else {
		s.mode = ModeLogin
	}
}

// Signup registers the user; the session stays logged out
func (s *Session) Signup(ctx context.Context, email, password string) error {
	return s.api.Signup(ctx, email, password)
}

// Login authenticates, shows the whole catalog and derives the price
// ceiling from it.
func (s *Session) Login(ctx context.Context, email, password string) error {
	if _, err := s.api.Login(ctx, email, password); err != nil {
		return err
	}
	s.loggedIn = true

	all, err := s.api.List(ctx)
	if err != nil {
		return errors.Wrap(err, "fetch catalog")
	}
	s.grid = all
	if len(all) > 0 {
		s.priceCeiling = domain.MaxPrice(all, DefaultPriceCeiling)
		s.priceFilter = s.priceCeiling
	}
	return nil
}

func (s *Session) PriceFilter() float64 { return s.priceFilter }

func (s *Session) RatingFilter() float64 { return s.ratingFilter }

func (s *Session) PriceCeiling() float64 { return s.priceCeiling }

// SetPriceFilter clamps v to [0, ceiling]
func (s *Session) SetPriceFilter(v float64) {
	switch {
	case v < 0:
		v = 0
	case v > s.priceCeiling:
		v = s.priceCeiling
	}
	s.priceFilter = v
}

// SetRatingFilter clamps v to the rating range
func (s *Session) SetRatingFilter(v float64) {
	switch {
	case v < domain.MinRating:
		v = domain.MinRating
	case v > domain.MaxRating:
		v = domain.MaxRating
	}
	s.ratingFilter = v
}

// Grid returns the products currently shown
func (s *Session) Grid() []*domain.Product { return s.grid }

func (s *Session) Form() Form { return s.form }

// SetForm replaces the form fields without changing the form mode
func (s *Session) SetForm(f Form) { s.form = f }

// Editing returns the record being edited, nil in add mode
func (s *Session) Editing() *domain.Product { return s.editing }

// StartEdit fills the form from p and switches to edit mode
func (s *Session) StartEdit(p *domain.Product) error {
	if !s.loggedIn {
		return ErrNotLoggedIn
	}
	s.editing = p
	s.form = Form{
		Name:     p.Name,
		Price:    p.Price,
		Featured: p.Featured,
		Company:  p.Company,
	}
	if p.Rating != nil {
		r := *p.Rating
		s.form.Rating = &r
	}
	return nil
}

// CancelEdit clears the form and returns to add mode
func (s *Session) CancelEdit() {
	s.editing = nil
	s.form = Form{}
}

// Submit creates a product in add mode or updates the edited one, then
// reloads the whole catalog into the grid. New products get their productId
// from the server so a filtered grid cannot produce a taken id.
func (s *Session) Submit(ctx context.Context) (*domain.Product, error) {
	if !s.loggedIn {
		return nil, ErrNotLoggedIn
	}

	price := s.form.Price
	var (
		p   *domain.Product
		err error
	)
	if s.editing == nil {
		p, err = s.api.Create(ctx, ProductRequest{
			Name:     s.form.Name,
			Price:    &price,
			Rating:   s.form.Rating,
			Featured: s.form.Featured,
			Company:  s.form.Company,
		})
	} else {
		if s.form.Rating == nil && s.editing.Rating != nil {
			return nil, ErrRatingNotRemovable
		}
		name, company, featured := s.form.Name, s.form.Company, s.form.Featured
		p, err = s.api.Update(ctx, s.editing.ID, ProductPatch{
			Name:     &name,
			Price:    &price,
			Rating:   s.form.Rating,
			Featured: &featured,
			Company:  &company,
		})
	}
	if err != nil {
		return nil, err
	}

	s.CancelEdit()
	return p, s.ShowAll(ctx)
}

// Delete removes the product and reloads the grid
func (s *Session) Delete(ctx context.Context, id string) error {
	if !s.loggedIn {
		return ErrNotLoggedIn
	}
	if err := s.api.Delete(ctx, id); err != nil {
		return err
	}
	return s.ShowAll(ctx)
}

// ShowAll shows the whole catalog
func (s *Session) ShowAll(ctx context.Context) error {
	return s.show(ctx, s.api.List)
}

// ShowFeatured shows the featured products
func (s *Session) ShowFeatured(ctx context.Context) error {
	return s.show(ctx, s.api.Featured)
}

// ApplyFilters shows the products matching both filter controls
func (s *Session) ApplyFilters(ctx context.Context) error {
	return s.show(ctx, func(ctx context.Context) ([]*domain.Product, error) {
		byPrice, err := s.api.PriceBelow(ctx, s.priceFilter)
		if err != nil {
			return nil, err
		}
		byRating, err := s.api.RatingAbove(ctx, s.ratingFilter)
		if err != nil {
			return nil, err
		}
		return Intersect(byPrice, byRating), nil
	})
}

func (s *Session) show(ctx context.Context, fetch func(context.Context) ([]*domain.Product, error)) error {
	if !s.loggedIn {
		return ErrNotLoggedIn
	}
	list, err := fetch(ctx)
	if err != nil {
		return err
	}
	s.grid = list
	return nil
}
