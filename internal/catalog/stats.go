package catalog

import (
	"context"

	"github.com/montanaflynn/stats"

	"github.com/talkincode/prodcatalog/internal/domain"
	"github.com/talkincode/prodcatalog/internal/repository"
)

// Stats is a point in time summary of the catalog
type Stats struct {
	Products    int     `json:"products"`
	Featured    int     `json:"featured"`
	Rated       int     `json:"rated"`
	MinPrice    float64 `json:"minPrice"`
	MaxPrice    float64 `json:"maxPrice"`
	MeanPrice   float64 `json:"meanPrice"`
	MedianPrice float64 `json:"medianPrice"`
	MeanRating  float64 `json:"meanRating"`
}

// Summarize computes Stats over the given products. Price and rating
// aggregates stay zero when there is nothing to aggregate.
func Summarize(products []*domain.Product) Stats {
	s := Stats{Products: len(products)}
	prices := make(stats.Float64Data, 0, len(products))
	ratings := make(stats.Float64Data, 0, len(products))
	for _, p := range products {
		if p.Featured {
			s.Featured++
		}
		prices = append(prices, p.Price)
		if p.Rating != nil {
			ratings = append(ratings, *p.Rating)
		}
	}
	s.Rated = len(ratings)

	if len(prices) > 0 {
		s.MinPrice, _ = prices.Min()
		s.MaxPrice, _ = prices.Max()
		s.MeanPrice, _ = prices.Mean()
		s.MedianPrice, _ = prices.Median()
	}
	if len(ratings) > 0 {
		s.MeanRating, _ = ratings.Mean()
	}
	return s
}

// Stats summarizes the whole catalog
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	all, err := s.products.List(ctx, repository.All)
	if err != nil {
		return Stats{}, err
	}
	return Summarize(all), nil
}
