package catalogapi

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/talkincode/prodcatalog/internal/domain"
	"github.com/talkincode/prodcatalog/internal/webserver"
)

type productPayload struct {
	ProductID string   `json:"productId" validate:"omitempty,max=64"`
	Name      string   `json:"name" validate:"required,max=200"`
	Price     *float64 `json:"price" validate:"required,gte=0"`
	Rating    *float64 `json:"rating" validate:"omitempty,gte=0,lte=5"`
	Featured  bool     `json:"featured"`
	Company   string   `json:"company" validate:"required,max=200"`
}

type productUpdatePayload struct {
	ProductID *string  `json:"productId" validate:"omitempty,min=1,max=64"`
	Name      *string  `json:"name" validate:"omitempty,min=1,max=200"`
	Price     *float64 `json:"price" validate:"omitempty,gte=0"`
	Rating    *float64 `json:"rating" validate:"omitempty,gte=0,lte=5"`
	Featured  *bool    `json:"featured"`
	Company   *string  `json:"company" validate:"omitempty,min=1,max=200"`
}

// registerProductRoutes every product route sits behind the token gate
func (h *Handler) registerProductRoutes(srv *webserver.Server) {
	srv.ApiPOST("/products", h.createProduct)
	srv.ApiGET("/products", h.listProducts)
	srv.ApiGET("/products/featured", h.listFeaturedProducts)
	srv.ApiGET("/products/price/:maxPrice", h.listProductsByPrice)
	srv.ApiGET("/products/rating/:minRating", h.listProductsByRating)
	srv.ApiPUT("/products/:id", h.updateProduct)
	srv.ApiDELETE("/products/:id", h.deleteProduct)
}

func (h *Handler) createProduct(c echo.Context) error {
	var payload productPayload
	if err := c.Bind(&payload); err != nil {
		return h.fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	p, err := h.products.Create(c.Request().Context(), domain.ProductInput{
		ProductID: payload.ProductID,
		Name:      payload.Name,
		Price:     payload.Price,
		Rating:    payload.Rating,
		Featured:  payload.Featured,
		Company:   payload.Company,
	})
	if err != nil {
		return h.fromError(c, err, "create product")
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) listProducts(c echo.Context) error {
	products, err := h.products.List(c.Request().Context())
	if err != nil {
		return h.fromError(c, err, "query products")
	}
	return ok(c, products)
}

func (h *Handler) updateProduct(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return h.fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}

	var payload productUpdatePayload
	if err := c.Bind(&payload); err != nil {
		return h.fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	p, err := h.products.Update(c.Request().Context(), id, domain.ProductChanges{
		ProductID: payload.ProductID,
		Name:      payload.Name,
		Price:     payload.Price,
		Rating:    payload.Rating,
		Featured:  payload.Featured,
		Company:   payload.Company,
	})
	if err != nil {
		return h.fromError(c, err, "update product")
	}
	return ok(c, p)
}

func (h *Handler) deleteProduct(c echo.Context) error {
	if err := h.products.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return h.fromError(c, err, "delete product")
	}
	return c.String(http.StatusOK, "Product deleted")
}

func (h *Handler) listFeaturedProducts(c echo.Context) error {
	products, err := h.products.ListFeatured(c.Request().Context())
	if err != nil {
		return h.fromError(c, err, "query featured products")
	}
	return ok(c, products)
}

func (h *Handler) listProductsByPrice(c echo.Context) error {
	maxPrice, err := parseNumberParam(c, "maxPrice")
	if err != nil {
		return h.fail(c, http.StatusBadRequest, "INVALID_PRICE", "maxPrice must be a number", nil)
	}
	products, err := h.products.ListByPriceBelow(c.Request().Context(), maxPrice)
	if err != nil {
		return h.fromError(c, err, "query products by price")
	}
	return ok(c, products)
}

func (h *Handler) listProductsByRating(c echo.Context) error {
	minRating, err := parseNumberParam(c, "minRating")
	if err != nil {
		return h.fail(c, http.StatusBadRequest, "INVALID_RATING", "minRating must be a number", nil)
	}
	products, err := h.products.ListByRatingAbove(c.Request().Context(), minRating)
	if err != nil {
		return h.fromError(c, err, "query products by rating")
	}
	return ok(c, products)
}

// parseNumberParam accepts finite decimal numbers only
func parseNumberParam(c echo.Context, name string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(c.Param(name)), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, strconv.ErrSyntax
	}
	return v, nil
}
