package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/Moichehub/marketplace/internal/apperr"
	"github.com/Moichehub/marketplace/internal/store"
)

type productRequest struct {
	Name        string          `json:"name" validate:"required,max=200"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock" validate:"gte=0"`
	CategoryID  *int64          `json:"category_id" validate:"omitempty,gt=0"`
	Image       string          `json:"image" validate:"omitempty,max=500"`
	IsActive    *bool           `json:"is_active"`
}

type productUpdateRequest struct {
	Name          *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Description   *string          `json:"description"`
	Price         *decimal.Decimal `json:"price"`
	Stock         *int             `json:"stock" validate:"omitempty,gte=0"`
	CategoryID    *int64           `json:"category_id" validate:"omitempty,gt=0"`
	ClearCategory bool             `json:"clear_category"`
	Image         *string          `json:"image" validate:"omitempty,max=500"`
	IsActive      *bool            `json:"is_active"`
	Version       *int             `json:"version" validate:"omitempty,gt=0"`
}

type profileRequest struct {
	StoreName        string `json:"store_name" validate:"omitempty,max=200"`
	Description      string `json:"description"`
	Logo             string `json:"logo" validate:"omitempty,max=500"`
	Phone            string `json:"phone" validate:"omitempty,max=20"`
	EmailContact     string `json:"email_contact" validate:"omitempty,email"`
	Website          string `json:"website" validate:"omitempty,url"`
	PaymentInfo      string `json:"payment_info"`
	ShippingInfo     string `json:"shipping_info"`
	Facebook         string `json:"facebook" validate:"omitempty,url"`
	Instagram        string `json:"instagram" validate:"omitempty,url"`
	Telegram         string `json:"telegram" validate:"omitempty,max=100"`
	IsActive         *bool  `json:"is_active"`
	AutoAcceptOrders bool   `json:"auto_accept_orders"`
}

func (r profileRequest) input() store.SellerProfileInput {
	return store.SellerProfileInput{
		StoreName:        r.StoreName,
		Description:      r.Description,
		Logo:             r.Logo,
		Phone:            r.Phone,
		EmailContact:     r.EmailContact,
		Website:          r.Website,
		PaymentInfo:      r.PaymentInfo,
		ShippingInfo:     r.ShippingInfo,
		Facebook:         r.Facebook,
		Instagram:        r.Instagram,
		Telegram:         r.Telegram,
		IsActive:         r.IsActive,
		AutoAcceptOrders: r.AutoAcceptOrders,
	}
}

func (h *handler) listSellerProducts(c echo.Context) error {
	var filter store.SellerProductFilter
	err := echo.QueryParamsBinder(c).
		Int("page", &filter.Page).
		Int("page_size", &filter.PageSize).
		String("q", &filter.Query).
		String("category", &filter.CategorySlug).
		String("status", &filter.Status).
		BindError()
	if err != nil {
		return err
	}

	page, err := store.ListSellerProducts(c.Request().Context(), h.db, currentUser(c), filter)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, page, "")
}

func (h *handler) createProduct(c echo.Context) error {
	var req productRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	product, err := store.CreateProduct(c.Request().Context(), h.db, currentUser(c), store.ProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		CategoryID:  req.CategoryID,
		Image:       req.Image,
		IsActive:    req.IsActive,
	})
	if err != nil {
		return err
	}
	return success(c, http.StatusCreated, product, "Product created")
}

func (h *handler) updateProduct(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req productUpdateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if req.ClearCategory && req.CategoryID != nil {
		return apperr.ErrInvalidInput.WithDetails("category_id and clear_category are mutually exclusive")
	}

	product, err := store.UpdateProduct(c.Request().Context(), h.db, currentUser(c), id, store.ProductUpdate{
		Name:            req.Name,
		Description:     req.Description,
		Price:           req.Price,
		Stock:           req.Stock,
		CategoryID:      req.CategoryID,
		ClearCategory:   req.ClearCategory,
		Image:           req.Image,
		IsActive:        req.IsActive,
		ExpectedVersion: req.Version,
	})
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, product, "Product updated")
}

func (h *handler) deleteProduct(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := store.DeleteProduct(c.Request().Context(), h.db, currentUser(c), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *handler) dashboard(c echo.Context) error {
	stats, err := store.SellerDashboardStats(c.Request().Context(), h.db, currentUser(c))
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, stats, "")
}

func (h *handler) getProfile(c echo.Context) error {
	profile, found, err := store.GetSellerProfile(c.Request().Context(), h.db, currentUser(c).ID)
	if err != nil {
		return err
	}
	if !found {
		return apperr.ErrProfileNotFound
	}
	return success(c, http.StatusOK, profile, "")
}

func (h *handler) setupProfile(c echo.Context) error {
	var req profileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	profile, err := store.SetupSellerProfile(c.Request().Context(), h.db, currentUser(c), req.input())
	if err != nil {
		return err
	}
	return success(c, http.StatusCreated, profile, "Store profile created")
}

func (h *handler) updateProfile(c echo.Context) error {
	var req profileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	profile, err := store.UpdateSellerProfile(c.Request().Context(), h.db, currentUser(c), req.input())
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, profile, "Store profile updated")
}

func (h *handler) profileStats(c echo.Context) error {
	stats, err := store.SellerProfileStats(c.Request().Context(), h.db, currentUser(c).ID)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, stats, "")
}
