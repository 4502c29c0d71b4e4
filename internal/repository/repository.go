package repository

import (
	"context"

	"github.com/talkincode/prodcatalog/internal/domain"
)

// UserRepository is the credential store
type UserRepository interface {
	// Create inserts a user, domain.ErrDuplicate when the email is taken
	Create(ctx context.Context, user *domain.User) error

	// GetByEmail returns domain.ErrNotFound when no user matches
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// ProductRepository is the product store
type ProductRepository interface {
	// Create inserts a product, domain.ErrDuplicate when productId is taken
	Create(ctx context.Context, product *domain.Product) error

	// GetByID returns domain.ErrNotFound when the record does not exist
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// List returns the matching products in natural (insertion) order
	List(ctx context.Context, query ProductQuery) ([]*domain.Product, error)

	// Count returns the number of matching products
	Count(ctx context.Context, query ProductQuery) (int64, error)

	// Update applies the supplied fields and returns the stored record.
	// domain.ErrNotFound when id is absent, domain.ErrDuplicate on a
	// productId collision.
	Update(ctx context.Context, id string, changes domain.ProductChanges) (*domain.Product, error)

	// Delete removes the record; a missing id is not an error
	Delete(ctx context.Context, id string) error
}

// Store bundles the repositories of one backend
type Store interface {
	Users() UserRepository
	Products() ProductRepository
	// Migrate prepares tables or indexes
	Migrate(ctx context.Context) error
	// DropAll removes every user and product together with the schema
	DropAll(ctx context.Context) error
	Close(ctx context.Context) error
}

// ProductQuery filters a product listing. Nil fields do not filter.
type ProductQuery struct {
	Featured    *bool
	PriceBelow  *float64
	RatingAbove *float64
}

// All matches every product
var All = ProductQuery{}

func FeaturedOnly() ProductQuery {
	v := true
	return ProductQuery{Featured: &v}
}

func PriceBelow(max float64) ProductQuery {
	return ProductQuery{PriceBelow: &max}
}

func RatingAbove(min float64) ProductQuery {
	return ProductQuery{RatingAbove: &min}
}

// Matches evaluates the query against a single record. Products without a
// rating never satisfy RatingAbove.
func (q ProductQuery) Matches(p *domain.Product) bool {
	if q.Featured != nil && p.Featured != *q.Featured {
		return false
	}
	if q.PriceBelow != nil && !(p.Price < *q.PriceBelow) {
		return false
	}
	if q.RatingAbove != nil && (p.Rating == nil || !(*p.Rating > *q.RatingAbove)) {
		return false
	}
	return true
}
