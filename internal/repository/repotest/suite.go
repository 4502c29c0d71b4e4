// Package repotest holds the behaviour every repository backend must share.
package repotest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkincode/prodcatalog/internal/domain"
	"github.com/talkincode/prodcatalog/internal/repository"
)

// NewStoreFunc returns an empty, migrated store
type NewStoreFunc func(t *testing.T) repository.Store

func fptr(v float64) *float64 { return &v }

// Product builds a valid product with a deterministic record id
func Product(n int, price float64, rating *float64, featured bool) *domain.Product {
	return &domain.Product{
		ID:        fmt.Sprintf("rec-%03d", n),
		ProductID: fmt.Sprintf("P%03d", n),
		Name:      fmt.Sprintf("Product %d", n),
		Price:     price,
		Rating:    rating,
		Featured:  featured,
		Company:   "Acme",
		CreatedAt: time.Date(2024, 1, 1, 0, 0, n, 0, time.UTC),
	}
}

// Run executes the shared suite against a backend
func Run(t *testing.T, newStore NewStoreFunc) {
	t.Run("users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("product round trip", func(t *testing.T) { testProductRoundTrip(t, newStore(t)) })
	t.Run("product uniqueness", func(t *testing.T) { testProductUniqueness(t, newStore(t)) })
	t.Run("product queries", func(t *testing.T) { testProductQueries(t, newStore(t)) })
	t.Run("product update", func(t *testing.T) { testProductUpdate(t, newStore(t)) })
	t.Run("product delete", func(t *testing.T) { testProductDelete(t, newStore(t)) })
	t.Run("drop all", func(t *testing.T) { testDropAll(t, newStore(t)) })
}

func testUsers(t *testing.T, store repository.Store) {
	ctx := context.Background()
	users := store.Users()

	_, err := users.GetByEmail(ctx, "a@x.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	u := &domain.User{ID: "u1", Email: "a@x.com", PasswordHash: "hash", CreatedAt: time.Now().UTC()}
	require.NoError(t, users.Create(ctx, u))

	got, err := users.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "hash", got.PasswordHash)

	err = users.Create(ctx, &domain.User{ID: "u2", Email: "a@x.com", PasswordHash: "other"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	got, err = users.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)
}

func testProductRoundTrip(t *testing.T, store repository.Store) {
	ctx := context.Background()
	products := store.Products()

	in := Product(1, 10, fptr(4), true)
	require.NoError(t, products.Create(ctx, in))

	list, err := products.List(ctx, repository.All)
	require.NoError(t, err)
	require.Len(t, list, 1)
	got := list[0]
	assert.Equal(t, in.ID, got.ID)
	assert.Equal(t, in.ProductID, got.ProductID)
	assert.Equal(t, in.Name, got.Name)
	assert.Equal(t, in.Price, got.Price)
	require.NotNil(t, got.Rating)
	assert.Equal(t, *in.Rating, *got.Rating)
	assert.Equal(t, in.Featured, got.Featured)
	assert.Equal(t, in.Company, got.Company)
	assert.True(t, in.CreatedAt.Equal(got.CreatedAt))

	byID, err := products.GetByID(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, in.ProductID, byID.ProductID)

	_, err = products.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	noRating := Product(2, 5, nil, false)
	require.NoError(t, products.Create(ctx, noRating))
	got, err = products.GetByID(ctx, noRating.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Rating)
}

func testProductUniqueness(t *testing.T, store repository.Store) {
	ctx := context.Background()
	products := store.Products()

	require.NoError(t, products.Create(ctx, Product(1, 10, nil, false)))
	dup := Product(2, 20, nil, false)
	dup.ProductID = "P001"
	assert.ErrorIs(t, products.Create(ctx, dup), domain.ErrDuplicate)

	n, err := products.Count(ctx, repository.All)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func seedCatalog(t *testing.T, products repository.ProductRepository) {
	ctx := context.Background()
	for _, p := range []*domain.Product{
		Product(1, 5, fptr(4.5), true),
		Product(2, 50, fptr(4.8), false),
		Product(3, 8, fptr(2), true),
		Product(4, 9.99, nil, false),
		Product(5, 100, fptr(5), false),
	} {
		require.NoError(t, products.Create(ctx, p))
	}
}

func productIDs(list []*domain.Product) []string {
	ids := make([]string, 0, len(list))
	for _, p := range list {
		ids = append(ids, p.ProductID)
	}
	return ids
}

func testProductQueries(t *testing.T, store repository.Store) {
	ctx := context.Background()
	products := store.Products()
	seedCatalog(t, products)

	tests := []struct {
		name  string
		query repository.ProductQuery
		want  []string
	}{
		{"all in insertion order", repository.All, []string{"P001", "P002", "P003", "P004", "P005"}},
		{"featured", repository.FeaturedOnly(), []string{"P001", "P003"}},
		{"price strictly below", repository.PriceBelow(50), []string{"P001", "P003", "P004"}},
		{"rating strictly above", repository.RatingAbove(4.5), []string{"P002", "P005"}},
		{"rating above zero skips unrated", repository.RatingAbove(0), []string{"P001", "P002", "P003", "P005"}},
		{"nothing below zero", repository.PriceBelow(0), []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := products.List(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, productIDs(list))

			n, err := products.Count(ctx, tt.query)
			require.NoError(t, err)
			assert.EqualValues(t, len(tt.want), n)
		})
	}
}

func testProductUpdate(t *testing.T, store repository.Store) {
	ctx := context.Background()
	products := store.Products()
	seedCatalog(t, products)

	name := "Renamed"
	price := 12.5
	changes := domain.ProductChanges{Name: &name, Price: &price, Rating: fptr(1)}

	first, err := products.Update(ctx, "rec-004", changes)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", first.Name)
	assert.Equal(t, 12.5, first.Price)
	assert.Equal(t, "P004", first.ProductID)
	require.NotNil(t, first.Rating)
	assert.Equal(t, 1.0, *first.Rating)

	second, err := products.Update(ctx, "rec-004", changes)
	require.NoError(t, err)
	assert.Equal(t, first.Name, second.Name)
	assert.Equal(t, first.Price, second.Price)
	assert.Equal(t, *first.Rating, *second.Rating)
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt))

	featured := false
	got, err := products.Update(ctx, "rec-001", domain.ProductChanges{Featured: &featured})
	require.NoError(t, err)
	assert.False(t, got.Featured)
	assert.Equal(t, 5.0, got.Price)

	taken := "P002"
	_, err = products.Update(ctx, "rec-001", domain.ProductChanges{ProductID: &taken})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	same := "P001"
	_, err = products.Update(ctx, "rec-001", domain.ProductChanges{ProductID: &same})
	assert.NoError(t, err)

	_, err = products.Update(ctx, "missing", changes)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testProductDelete(t *testing.T, store repository.Store) {
	ctx := context.Background()
	products := store.Products()
	seedCatalog(t, products)

	require.NoError(t, products.Delete(ctx, "rec-002"))
	require.NoError(t, products.Delete(ctx, "rec-002"))
	require.NoError(t, products.Delete(ctx, "never-existed"))

	list, err := products.List(ctx, repository.All)
	require.NoError(t, err)
	assert.Equal(t, []string{"P001", "P003", "P004", "P005"}, productIDs(list))
}

func testDropAll(t *testing.T, store repository.Store) {
	ctx := context.Background()
	seedCatalog(t, store.Products())
	require.NoError(t, store.Users().Create(ctx, &domain.User{ID: "u1", Email: "a@x.com", PasswordHash: "hash"}))

	require.NoError(t, store.DropAll(ctx))
	require.NoError(t, store.Migrate(ctx))

	n, err := store.Products().Count(ctx, repository.All)
	require.NoError(t, err)
	assert.Zero(t, n)
	_, err = store.Users().GetByEmail(ctx, "a@x.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// unique indexes are back after the migration
	require.NoError(t, store.Products().Create(ctx, Product(1, 1, nil, false)))
	dup := Product(2, 1, nil, false)
	dup.ProductID = "P001"
	assert.ErrorIs(t, store.Products().Create(ctx, dup), domain.ErrDuplicate)
}
