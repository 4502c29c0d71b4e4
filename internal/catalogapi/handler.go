package catalogapi

import (
	"context"

	"github.com/talkincode/prodcatalog/internal/domain"
	"github.com/talkincode/prodcatalog/internal/webserver"
)

const welcomeMessage = "Welcome to the prodcatalog backend server"

// AuthService is the subset of auth.Service used by the handlers
type AuthService interface {
	Signup(ctx context.Context, email, password string) error
	Login(ctx context.Context, email, password string) (string, error)
}

// ProductService is the subset of catalog.Service used by the handlers
type ProductService interface {
	Create(ctx context.Context, in domain.ProductInput) (*domain.Product, error)
	List(ctx context.Context) ([]*domain.Product, error)
	Update(ctx context.Context, id string, changes domain.ProductChanges) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
	ListFeatured(ctx context.Context) ([]*domain.Product, error)
	ListByPriceBelow(ctx context.Context, maxPrice float64) ([]*domain.Product, error)
	ListByRatingAbove(ctx context.Context, minRating float64) ([]*domain.Product, error)
}

// Handler serves the public auth routes and the gated product routes
type Handler struct {
	auth        AuthService
	products    ProductService
	hideDetails bool
}

func NewHandler(auth AuthService, products ProductService) *Handler {
	return &Handler{auth: auth, products: products}
}

// Register mounts every route on the server. Server error details follow
// the server's production mode.
func (h *Handler) Register(srv *webserver.Server) {
	h.hideDetails = srv.HideErrorDetails()
	srv.GET("/", h.welcome)
	h.registerAuthRoutes(srv)
	h.registerProductRoutes(srv)
}
