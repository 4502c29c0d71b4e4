package repository

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/talkincode/prodcatalog/internal/domain"
)

// MemoryStore keeps users and products in process memory. Records are
// copied on the way in and out so callers never share state with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]*domain.User // email -> user
	products map[string]*domain.Product
	order    []string // product ids in insertion order
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]*domain.User),
		products: make(map[string]*domain.Product),
	}
}

func (s *MemoryStore) Users() UserRepository { return (*memoryUsers)(s) }

func (s *MemoryStore) Products() ProductRepository { return (*memoryProducts)(s) }

func (s *MemoryStore) Migrate(context.Context) error { return nil }

func (s *MemoryStore) DropAll(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = make(map[string]*domain.User)
	s.products = make(map[string]*domain.Product)
	s.order = nil
	return nil
}

func (s *MemoryStore) Close(context.Context) error { return nil }

type memoryUsers MemoryStore

func (r *memoryUsers) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[user.Email]; exists {
		return errors.Wrapf(domain.ErrDuplicate, "email %s", user.Email)
	}
	u := *user
	r.users[user.Email] = &u
	return nil
}

func (r *memoryUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[email]
	if !ok {
		return nil, errors.Wrapf(domain.ErrNotFound, "user %s", email)
	}
	out := *u
	return &out, nil
}

type memoryProducts MemoryStore

func copyProduct(p *domain.Product) *domain.Product {
	out := *p
	if p.Rating != nil {
		r := *p.Rating
		out.Rating = &r
	}
	return &out
}

// productIDTaken must be called with the lock held
func (r *memoryProducts) productIDTaken(productID, exceptID string) bool {
	for id, p := range r.products {
		if id != exceptID && p.ProductID == productID {
			return true
		}
	}
	return false
}

func (r *memoryProducts) Create(_ context.Context, product *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.products[product.ID]; exists {
		return errors.Wrapf(domain.ErrDuplicate, "product record %s", product.ID)
	}
	if r.productIDTaken(product.ProductID, "") {
		return errors.Wrapf(domain.ErrDuplicate, "productId %s", product.ProductID)
	}
	r.products[product.ID] = copyProduct(product)
	r.order = append(r.order, product.ID)
	return nil
}

func (r *memoryProducts) GetByID(_ context.Context, id string) (*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return nil, errors.Wrapf(domain.ErrNotFound, "product %s", id)
	}
	return copyProduct(p), nil
}

func (r *memoryProducts) List(_ context.Context, query ProductQuery) ([]*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Product, 0, len(r.order))
	for _, id := range r.order {
		if p := r.products[id]; query.Matches(p) {
			out = append(out, copyProduct(p))
		}
	}
	return out, nil
}

func (r *memoryProducts) Count(ctx context.Context, query ProductQuery) (int64, error) {
	items, err := r.List(ctx, query)
	return int64(len(items)), err
}

func (r *memoryProducts) Update(_ context.Context, id string, changes domain.ProductChanges) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return nil, errors.Wrapf(domain.ErrNotFound, "product %s", id)
	}
	if changes.ProductID != nil && r.productIDTaken(*changes.ProductID, id) {
		return nil, errors.Wrapf(domain.ErrDuplicate, "productId %s", *changes.ProductID)
	}
	changes.Apply(p)
	return copyProduct(p), nil
}

func (r *memoryProducts) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[id]; !ok {
		return nil
	}
	delete(r.products, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}
