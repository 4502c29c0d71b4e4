package client_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkincode/prodcatalog/internal/client"
)

func productIDs(s *client.Session) []string {
	ids := make([]string, 0, len(s.Grid()))
	for _, p := range s.Grid() {
		ids = append(ids, p.ProductID)
	}
	return ids
}

func TestSessionLoggedOut(t *testing.T) {
	ctx := context.Background()
	s := client.NewSession(client.New(newServer(t)))

	assert.Equal(t, client.ModeLogin, s.Mode())
	s.Toggle()
	assert.Equal(t, client.ModeSignup, s.Mode())
	s.Toggle()
	assert.Equal(t, client.ModeLogin, s.Mode())

	assert.False(t, s.LoggedIn())
	assert.Equal(t, 100.0, s.PriceFilter())
	assert.Equal(t, 4.0, s.RatingFilter())
	assert.Equal(t, 1000.0, s.PriceCeiling())

	assert.ErrorIs(t, s.ShowAll(ctx), client.ErrNotLoggedIn)
	assert.ErrorIs(t, s.ApplyFilters(ctx), client.ErrNotLoggedIn)
	assert.ErrorIs(t, s.Delete(ctx, "x"), client.ErrNotLoggedIn)
	_, err := s.Submit(ctx)
	assert.ErrorIs(t, err, client.ErrNotLoggedIn)

	require.NoError(t, s.Signup(ctx, "a@x.com", "pw1"))
	assert.False(t, s.LoggedIn())

	assert.Error(t, s.Login(ctx, "a@x.com", "wrong"))
	assert.False(t, s.LoggedIn())
}

func TestSessionEmptyCatalogKeepsDefaults(t *testing.T) {
	ctx := context.Background()
	s := client.NewSession(client.New(newServer(t)))
	require.NoError(t, s.Signup(ctx, "a@x.com", "pw1"))
	require.NoError(t, s.Login(ctx, "a@x.com", "pw1"))

	assert.True(t, s.LoggedIn())
	assert.Equal(t, 1000.0, s.PriceCeiling())
	assert.Equal(t, 100.0, s.PriceFilter())
	assert.Empty(t, s.Grid())
}

func TestSessionWorkflow(t *testing.T) {
	ctx := context.Background()
	url := newServer(t)

	seed := loggedIn(t, url)
	_, err := seed.Create(ctx, client.ProductRequest{ProductID: "P001", Name: "A", Price: fptr(50), Rating: fptr(4.5), Featured: true, Company: "X"})
	require.NoError(t, err)
	_, err = seed.Create(ctx, client.ProductRequest{ProductID: "P002", Name: "B", Price: fptr(150), Rating: fptr(3), Company: "Y"})
	require.NoError(t, err)

	s := client.NewSession(client.New(url))
	require.NoError(t, s.Login(ctx, "a@x.com", "pw1"))
	assert.Equal(t, 150.0, s.PriceCeiling())
	assert.Equal(t, 150.0, s.PriceFilter())
	assert.Equal(t, []string{"P001", "P002"}, productIDs(s))

	// add mode generates the next productId from the grid
	s.SetForm(client.Form{Name: "C", Price: 20, Rating: fptr(5), Company: "Z"})
	created, err := s.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, "P003", created.ProductID)
	assert.Equal(t, []string{"P001", "P002", "P003"}, productIDs(s))
	assert.Equal(t, client.Form{}, s.Form())

	// edit mode
	b := s.Grid()[1]
	require.NoError(t, s.StartEdit(b))
	assert.Equal(t, b, s.Editing())
	assert.Equal(t, "B", s.Form().Name)
	assert.Equal(t, 150.0, s.Form().Price)

	s.CancelEdit()
	assert.Nil(t, s.Editing())
	assert.Equal(t, client.Form{}, s.Form())

	require.NoError(t, s.StartEdit(b))
	form := s.Form()
	form.Price = 80
	s.SetForm(form)
	updated, err := s.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, b.ID, updated.ID)
	assert.Equal(t, 80.0, updated.Price)
	assert.Nil(t, s.Editing())

	s.SetPriceFilter(100)
	s.SetRatingFilter(4)
	require.NoError(t, s.ApplyFilters(ctx))
	assert.Equal(t, []string{"P001", "P003"}, productIDs(s))

	require.NoError(t, s.ShowFeatured(ctx))
	assert.Equal(t, []string{"P001"}, productIDs(s))

	require.NoError(t, s.Delete(ctx, created.ID))
	assert.Equal(t, []string{"P001", "P002"}, productIDs(s))
}

func TestSessionAddRightAfterLogin(t *testing.T) {
	ctx := context.Background()
	url := newServer(t)

	seed := loggedIn(t, url)
	_, err := seed.Create(ctx, client.ProductRequest{ProductID: "P001", Name: "A", Price: fptr(50), Company: "X"})
	require.NoError(t, err)

	s := client.NewSession(client.New(url))
	require.NoError(t, s.Login(ctx, "a@x.com", "pw1"))
	s.SetForm(client.Form{Name: "B", Price: 10, Company: "Y"})
	created, err := s.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, "P002", created.ProductID)

	// an empty featured view must not lead to a taken productId
	require.NoError(t, s.ShowFeatured(ctx))
	assert.Empty(t, s.Grid())
	s.SetForm(client.Form{Name: "C", Price: 10, Company: "Z"})
	created, err = s.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, "P003", created.ProductID)
	assert.Equal(t, []string{"P001", "P002", "P003"}, productIDs(s))
}

func TestSessionEditKeepsRating(t *testing.T) {
	ctx := context.Background()
	url := newServer(t)

	seed := loggedIn(t, url)
	p, err := seed.Create(ctx, client.ProductRequest{ProductID: "P001", Name: "A", Price: fptr(50), Rating: fptr(4), Company: "X"})
	require.NoError(t, err)

	s := client.NewSession(client.New(url))
	require.NoError(t, s.Login(ctx, "a@x.com", "pw1"))
	require.NoError(t, s.StartEdit(s.Grid()[0]))
	form := s.Form()
	form.Rating = nil
	form.Name = "renamed"
	s.SetForm(form)

	_, err = s.Submit(ctx)
	assert.ErrorIs(t, err, client.ErrRatingNotRemovable)
	assert.Equal(t, p.ID, s.Editing().ID)

	list, err := seed.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "A", list[0].Name)
	assert.Equal(t, 4.0, *list[0].Rating)

	form.Rating = fptr(2)
	s.SetForm(form)
	updated, err := s.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2.0, *updated.Rating)
	assert.Equal(t, "renamed", updated.Name)
}

func TestSessionFilterClamping(t *testing.T) {
	s := client.NewSession(client.New("http://127.0.0.1:1"))
	s.SetPriceFilter(5000)
	assert.Equal(t, 1000.0, s.PriceFilter())
	s.SetPriceFilter(-3)
	assert.Equal(t, 0.0, s.PriceFilter())
	s.SetRatingFilter(7)
	assert.Equal(t, 5.0, s.RatingFilter())
	s.SetRatingFilter(-1)
	assert.Equal(t, 0.0, s.RatingFilter())
}
