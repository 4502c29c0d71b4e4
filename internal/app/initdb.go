package app

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/talkincode/prodcatalog/internal/domain"
)

func ratingOf(v float64) *float64 { return &v }

func priceOf(v float64) *float64 { return &v }

var demoProducts = []domain.ProductInput{
	{ProductID: "P001", Name: "Wireless Mouse", Price: priceOf(25.99), Rating: ratingOf(4.3), Featured: true, Company: "Logitech"},
	{ProductID: "P002", Name: "Mechanical Keyboard", Price: priceOf(89.5), Rating: ratingOf(4.7), Featured: true, Company: "Keychron"},
	{ProductID: "P003", Name: "USB-C Hub", Price: priceOf(39), Rating: ratingOf(3.9), Company: "Anker"},
	{ProductID: "P004", Name: "27in Monitor", Price: priceOf(299), Rating: ratingOf(4.5), Company: "Dell"},
	{ProductID: "P005", Name: "Laptop Stand", Price: priceOf(45), Company: "Rain Design"},
	{ProductID: "P006", Name: "Noise Cancelling Headphones", Price: priceOf(349), Rating: ratingOf(4.8), Featured: true, Company: "Sony"},
}

// SeedDemoProducts initializes the demo catalog. Entries whose productId
// already exists are left alone, so seeding twice is harmless.
func (a *Application) SeedDemoProducts(ctx context.Context) (int, error) {
	created := 0
	for _, in := range demoProducts {
		p, err := a.catalogService.Create(ctx, in)
		switch {
		case errors.Is(err, domain.ErrDuplicate):
			continue
		case err != nil:
			zap.L().Error("failed to create demo product", zap.String("productId", in.ProductID), zap.Error(err))
			return created, err
		}
		created++
		zap.L().Info("initialized demo product", zap.String("productId", p.ProductID), zap.String("name", p.Name))
	}
	return created, nil
}
