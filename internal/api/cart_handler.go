package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Moichehub/marketplace/internal/store"
)

type addItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

// updateItemRequest allows zero and negative quantities, which remove the line.
type updateItemRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

type checkoutRequest struct {
	PaymentMethodID *int64 `json:"payment_method_id" validate:"omitempty,gt=0"`
}

func (h *handler) getCart(c echo.Context) error {
	cart, err := store.GetCart(c.Request().Context(), h.db, currentUser(c))
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, cart, "")
}

func (h *handler) addCartItem(c echo.Context) error {
	var req addItemRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	item, err := store.AddToCart(c.Request().Context(), h.db, currentUser(c), req.ProductID, req.Quantity)
	if err != nil {
		return err
	}
	return success(c, http.StatusCreated, item, "Added to cart")
}

func (h *handler) updateCartItem(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req updateItemRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := store.UpdateCartItem(c.Request().Context(), h.db, currentUser(c), id, *req.Quantity); err != nil {
		return err
	}
	return h.getCart(c)
}

func (h *handler) removeCartItem(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := store.RemoveCartItem(c.Request().Context(), h.db, currentUser(c), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *handler) checkout(c echo.Context) error {
	var req checkoutRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	order, err := store.Checkout(c.Request().Context(), h.db, store.CheckoutRequest{
		Customer:        currentUser(c),
		PaymentMethodID: req.PaymentMethodID,
	})
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, order, "Order placed")
}

func (h *handler) listOrders(c echo.Context) error {
	var (
		cursor string
		limit  int
	)
	if err := echo.QueryParamsBinder(c).String("cursor", &cursor).Int("limit", &limit).BindError(); err != nil {
		return err
	}

	page, err := store.ListOrderHistory(c.Request().Context(), h.db, currentUser(c), cursor, limit)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, page, "")
}

func (h *handler) getOrder(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	order, err := store.GetOrder(c.Request().Context(), h.db, currentUser(c), id)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, order, "")
}
