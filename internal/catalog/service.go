package catalog

import (
	"context"
	"time"

	EventBus "github.com/asaskevich/EventBus"
	"github.com/pkg/errors"

	"github.com/talkincode/prodcatalog/internal/auth"
	"github.com/talkincode/prodcatalog/internal/domain"
	"github.com/talkincode/prodcatalog/internal/repository"
	"github.com/talkincode/prodcatalog/pkg/common"
)

// Event topics published after a successful mutation
const (
	TopicProductCreated = "product.created"
	TopicProductUpdated = "product.updated"
	TopicProductDeleted = "product.deleted"
)

// generated productIds may collide under concurrent creates
const maxGenerateAttempts = 3

// Event is the payload of every product topic
type Event struct {
	Actor     string
	ProductID string // record id
	Product   *domain.Product
	At        time.Time
}

// Service implements the product operations on top of a ProductRepository
type Service struct {
	products repository.ProductRepository
	ids      common.IDGenerator
	bus      EventBus.Bus
	now      func() time.Time
}

// NewService bus may be nil when nobody listens to change events
func NewService(products repository.ProductRepository, ids common.IDGenerator, bus EventBus.Bus) *Service {
	return &Service{
		products: products,
		ids:      ids,
		bus:      bus,
		now:      time.Now,
	}
}

func (s *Service) publish(ctx context.Context, topic string, recordID string, p *domain.Product) {
	if s.bus == nil {
		return
	}
	ev := Event{ProductID: recordID, Product: p, At: s.now()}
	if id, ok := auth.FromContext(ctx); ok {
		ev.Actor = id.Email
	}
	s.bus.Publish(topic, ev)
}

// Create validates and stores a new product. An empty productId is replaced
// by the successor of the highest P-prefixed id in the catalog; a collision
// with a concurrent create moves on to the next number.
func (s *Service) Create(ctx context.Context, in domain.ProductInput) (*domain.Product, error) {
	generate := in.ProductID == ""
	attempts := 1
	if generate {
		attempts = maxGenerateAttempts
	}

	var (
		lastErr error
		floor   int
	)
	for i := 0; i < attempts; i++ {
		if generate {
			all, err := s.products.List(ctx, repository.All)
			if err != nil {
				return nil, err
			}
			n := domain.HighestProductNumber(all) + 1
			if n < floor {
				n = floor
			}
			floor = n + 1
			in.ProductID = domain.FormatProductID(n)
		}
		p, err := domain.NewProduct(s.ids.NextID(), in, s.now().UTC())
		if err != nil {
			return nil, err
		}
		err = s.products.Create(ctx, p)
		if err == nil {
			s.publish(ctx, TopicProductCreated, p.ID, p)
			return p, nil
		}
		if !errors.Is(err, domain.ErrDuplicate) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// List returns every product in natural order
func (s *Service) List(ctx context.Context) ([]*domain.Product, error) {
	return s.products.List(ctx, repository.All)
}

// Get returns a single product
func (s *Service) Get(ctx context.Context, id string) (*domain.Product, error) {
	return s.products.GetByID(ctx, id)
}

// Update replaces the supplied fields of an existing product
func (s *Service) Update(ctx context.Context, id string, changes domain.ProductChanges) (*domain.Product, error) {
	changes.Normalize()
	if err := changes.Validate(); err != nil {
		return nil, err
	}
	p, err := s.products.Update(ctx, id, changes)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, TopicProductUpdated, id, p)
	return p, nil
}

// Delete removes a product; deleting a missing id succeeds
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, TopicProductDeleted, id, nil)
	return nil
}

func (s *Service) ListFeatured(ctx context.Context) ([]*domain.Product, error) {
	return s.products.List(ctx, repository.FeaturedOnly())
}

// ListByPriceBelow products with price < maxPrice
func (s *Service) ListByPriceBelow(ctx context.Context, maxPrice float64) ([]*domain.Product, error) {
	return s.products.List(ctx, repository.PriceBelow(maxPrice))
}

// ListByRatingAbove products with rating > minRating
func (s *Service) ListByRatingAbove(ctx context.Context, minRating float64) ([]*domain.Product, error) {
	return s.products.List(ctx, repository.RatingAbove(minRating))
}
