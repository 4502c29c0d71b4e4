package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	MinRating = 0
	MaxRating = 5

	productIDPrefix = "P"
)

// Product catalog item. JSON names follow the public API contract.
type Product struct {
	ID        string    `gorm:"primaryKey;size:32" bson:"_id" json:"_id"`
	ProductID string    `gorm:"uniqueIndex;size:64;not null" bson:"productId" json:"productId"`
	Name      string    `gorm:"index;not null" bson:"name" json:"name"`
	Price     float64   `gorm:"index" bson:"price" json:"price"`
	Rating    *float64  `gorm:"index" bson:"rating,omitempty" json:"rating,omitempty"` // optional, 0..5
	Featured  bool      `gorm:"index" bson:"featured" json:"featured"`
	Company   string    `gorm:"size:255;not null" bson:"company" json:"company"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// TableName Specify table name
func (Product) TableName() string {
	return "product"
}

// ProductInput carries the caller supplied fields of a new product.
// Price is a pointer so a missing price is distinguishable from 0.
type ProductInput struct {
	ProductID string
	Name      string
	Price     *float64
	Rating    *float64
	Featured  bool
	Company   string
}

// NewProduct builds a validated product record
func NewProduct(id string, in ProductInput, now time.Time) (*Product, error) {
	if in.Price == nil {
		return nil, &FieldError{Field: "price", Message: "is required"}
	}
	p := &Product{
		ID:        id,
		ProductID: strings.TrimSpace(in.ProductID),
		Name:      strings.TrimSpace(in.Name),
		Price:     *in.Price,
		Featured:  in.Featured,
		Company:   strings.TrimSpace(in.Company),
		CreatedAt: now,
	}
	if in.Rating != nil {
		r := *in.Rating
		p.Rating = &r
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the record level constraints
func (p *Product) Validate() error {
	if p.ProductID == "" {
		return &FieldError{Field: "productId", Message: "is required"}
	}
	if p.Name == "" {
		return &FieldError{Field: "name", Message: "is required"}
	}
	if p.Company == "" {
		return &FieldError{Field: "company", Message: "is required"}
	}
	if err := validatePrice(p.Price); err != nil {
		return err
	}
	if p.Rating != nil {
		if err := validateRating(*p.Rating); err != nil {
			return err
		}
	}
	return nil
}

func validatePrice(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &FieldError{Field: "price", Message: "must be a finite number"}
	}
	if v < 0 {
		return &FieldError{Field: "price", Message: "must be greater than or equal to 0"}
	}
	return nil
}

func validateRating(v float64) error {
	if math.IsNaN(v) || v < MinRating || v > MaxRating {
		return &FieldError{Field: "rating", Message: fmt.Sprintf("must be between %d and %d", MinRating, MaxRating)}
	}
	return nil
}

// ProductChanges is a partial update; nil fields are left untouched.
type ProductChanges struct {
	ProductID *string
	Name      *string
	Price     *float64
	Rating    *float64
	Featured  *bool
	Company   *string
}

// IsEmpty reports whether no field is set
func (c ProductChanges) IsEmpty() bool {
	return c.ProductID == nil && c.Name == nil && c.Price == nil &&
		c.Rating == nil && c.Featured == nil && c.Company == nil
}

// Normalize trims string fields in place
func (c *ProductChanges) Normalize() {
	for _, s := range []*string{c.ProductID, c.Name, c.Company} {
		if s != nil {
			*s = strings.TrimSpace(*s)
		}
	}
}

// Validate checks only the supplied fields
func (c ProductChanges) Validate() error {
	if c.ProductID != nil && *c.ProductID == "" {
		return &FieldError{Field: "productId", Message: "must not be empty"}
	}
	if c.Name != nil && *c.Name == "" {
		return &FieldError{Field: "name", Message: "must not be empty"}
	}
	if c.Company != nil && *c.Company == "" {
		return &FieldError{Field: "company", Message: "must not be empty"}
	}
	if c.Price != nil {
		if err := validatePrice(*c.Price); err != nil {
			return err
		}
	}
	if c.Rating != nil {
		if err := validateRating(*c.Rating); err != nil {
			return err
		}
	}
	return nil
}

// Apply copies the supplied fields onto p
func (c ProductChanges) Apply(p *Product) {
	if c.ProductID != nil {
		p.ProductID = *c.ProductID
	}
	if c.Name != nil {
		p.Name = *c.Name
	}
	if c.Price != nil {
		p.Price = *c.Price
	}
	if c.Rating != nil {
		r := *c.Rating
		p.Rating = &r
	}
	if c.Featured != nil {
		p.Featured = *c.Featured
	}
	if c.Company != nil {
		p.Company = *c.Company
	}
}

// Fields returns the supplied fields keyed by storage column / document key
func (c ProductChanges) Fields() map[string]interface{} {
	m := make(map[string]interface{})
	if c.ProductID != nil {
		m["productId"] = *c.ProductID
	}
	if c.Name != nil {
		m["name"] = *c.Name
	}
	if c.Price != nil {
		m["price"] = *c.Price
	}
	if c.Rating != nil {
		m["rating"] = *c.Rating
	}
	if c.Featured != nil {
		m["featured"] = *c.Featured
	}
	if c.Company != nil {
		m["company"] = *c.Company
	}
	return m
}

// NextProductID returns the successor of the highest P-prefixed product id,
// P001 when there is none. Digits following the prefix are parsed up to the
// first non-digit.
func NextProductID(products []*Product) string {
	return FormatProductID(HighestProductNumber(products) + 1)
}

// HighestProductNumber returns the largest numeric suffix of the P-prefixed ids
func HighestProductNumber(products []*Product) int {
	highest := 0
	for _, p := range products {
		if !strings.HasPrefix(p.ProductID, productIDPrefix) {
			continue
		}
		if n := leadingInt(p.ProductID[len(productIDPrefix):]); n > highest {
			highest = n
		}
	}
	return highest
}

func FormatProductID(n int) string {
	return fmt.Sprintf("%s%03d", productIDPrefix, n)
}

func leadingInt(s string) int {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

// MaxPrice returns the highest price of the given products, or fallback when empty
func MaxPrice(products []*Product, fallback float64) float64 {
	if len(products) == 0 {
		return fallback
	}
	max := products[0].Price
	for _, p := range products[1:] {
		if p.Price > max {
			max = p.Price
		}
	}
	return max
}
