package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/Moichehub/marketplace/internal/apperr"
	"github.com/Moichehub/marketplace/internal/models"
	"github.com/Moichehub/marketplace/internal/store"
)

type productDetail struct {
	*models.Product
	AvgRating   float64 `json:"avg_rating"`
	ReviewCount int     `json:"review_count"`
}

type reviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"required,max=1000"`
}

func (h *handler) listCategories(c echo.Context) error {
	categories, err := store.ListCategories(c.Request().Context(), h.db)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, categories, "")
}

func (h *handler) listProducts(c echo.Context) error {
	var (
		filter   store.ProductFilter
		minPrice string
		maxPrice string
	)
	err := echo.QueryParamsBinder(c).
		Int("page", &filter.Page).
		Int("page_size", &filter.PageSize).
		String("q", &filter.Query).
		String("category", &filter.CategorySlug).
		String("min_price", &minPrice).
		String("max_price", &maxPrice).
		BindError()
	if err != nil {
		return err
	}

	if filter.MinPrice, err = parsePrice("min_price", minPrice); err != nil {
		return err
	}
	if filter.MaxPrice, err = parsePrice("max_price", maxPrice); err != nil {
		return err
	}

	page, err := store.ListProducts(c.Request().Context(), h.db, filter)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, page, "")
}

func parsePrice(name, raw string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, apperr.ErrInvalidInput.WithDetailsf("%s must be a number", name)
	}
	return &d, nil
}

func (h *handler) getProduct(c echo.Context) error {
	ctx := c.Request().Context()

	product, err := store.GetProductBySlug(ctx, h.db, c.Param("slug"))
	if err != nil {
		return err
	}
	avg, err := store.AverageRating(ctx, h.db, product.ID)
	if err != nil {
		return err
	}
	count, err := store.ReviewCount(ctx, h.db, product.ID)
	if err != nil {
		return err
	}

	return success(c, http.StatusOK, productDetail{Product: product, AvgRating: avg, ReviewCount: count}, "")
}

func (h *handler) listReviews(c echo.Context) error {
	ctx := c.Request().Context()

	product, err := store.GetProductBySlug(ctx, h.db, c.Param("slug"))
	if err != nil {
		return err
	}
	reviews, err := store.ListProductReviews(ctx, h.db, product.ID)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, reviews, "")
}

func (h *handler) addReview(c echo.Context) error {
	var req reviewRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()

	product, err := store.GetProductBySlug(ctx, h.db, c.Param("slug"))
	if err != nil {
		return err
	}
	review, err := store.AddReview(ctx, h.db, product.ID, currentUser(c), req.Rating, req.Comment)
	if err != nil {
		return err
	}
	return success(c, http.StatusCreated, review, "Review added")
}

func (h *handler) listPaymentMethods(c echo.Context) error {
	methods, err := store.ListActivePaymentMethods(c.Request().Context(), h.db)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, methods, "")
}

func (h *handler) storeFront(c echo.Context) error {
	front, err := store.StoreFront(c.Request().Context(), h.db, c.Param("slug"))
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, front, "")
}
