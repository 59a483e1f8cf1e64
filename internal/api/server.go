// Package api exposes the marketplace over JSON/HTTP.
package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Moichehub/marketplace/internal/auth"
)

type Deps struct {
	DB     *sql.DB
	Hasher *auth.Hasher
	Tokens *auth.TokenIssuer
	Logger *slog.Logger
}

type handler struct {
	db     *sql.DB
	hasher *auth.Hasher
	tokens *auth.TokenIssuer
	logger *slog.Logger
}

// NewServer builds the echo instance with every route registered.
func NewServer(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = newRequestValidator()
	e.HTTPErrorHandler = NewErrorHandler(deps.Logger)

	e.Use(middleware.RequestID())
	e.Use(requestLogger(deps.Logger))
	e.Use(middleware.Recover())

	h := &handler{
		db:     deps.DB,
		hasher: deps.Hasher,
		tokens: deps.Tokens,
		logger: deps.Logger,
	}
	authn := &authenticator{db: deps.DB, tokens: deps.Tokens}

	e.GET("/health", h.health)

	authGroup := e.Group("/auth")
	authGroup.POST("/register", h.register)
	authGroup.POST("/register/seller", h.registerSeller)
	authGroup.POST("/login", h.login)

	e.GET("/categories", h.listCategories)
	e.GET("/products", h.listProducts)
	e.GET("/products/:slug", h.getProduct)
	e.GET("/products/:slug/reviews", h.listReviews)
	e.POST("/products/:slug/reviews", h.addReview, authn.authenticate)
	e.GET("/payment-methods", h.listPaymentMethods)
	e.GET("/stores/:slug", h.storeFront)

	cart := e.Group("/cart", authn.authenticate)
	cart.GET("", h.getCart)
	cart.POST("/items", h.addCartItem)
	cart.PATCH("/items/:id", h.updateCartItem)
	cart.DELETE("/items/:id", h.removeCartItem)
	cart.POST("/checkout", h.checkout)

	orders := e.Group("/orders", authn.authenticate)
	orders.GET("", h.listOrders)
	orders.GET("/:id", h.getOrder)

	seller := e.Group("/seller", authn.authenticate, requireSeller)
	seller.GET("/products", h.listSellerProducts)
	seller.POST("/products", h.createProduct)
	seller.PUT("/products/:id", h.updateProduct)
	seller.DELETE("/products/:id", h.deleteProduct)
	seller.GET("/dashboard", h.dashboard)
	seller.GET("/profile", h.getProfile)
	seller.POST("/profile", h.setupProfile)
	seller.PUT("/profile", h.updateProfile)
	seller.GET("/profile/stats", h.profileStats)

	return e
}

func (h *handler) health(c echo.Context) error {
	if err := h.db.PingContext(c.Request().Context()); err != nil {
		h.logger.Error("health check failed", slog.String("error", err.Error()))
		return c.JSON(http.StatusServiceUnavailable, Response{
			Success: false,
			Code:    http.StatusServiceUnavailable,
			Message: "database unavailable",
			Error:   &ErrorInfo{Code: "DB_UNAVAILABLE"},
		})
	}
	return success(c, http.StatusOK, map[string]string{"status": "ok"}, "")
}

// bindAndValidate decodes the request body into req and runs its validate
// tags.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return err
	}
	return c.Validate(req)
}

func pathID(c echo.Context) (int64, error) {
	var id int64
	if err := echo.PathParamsBinder(c).MustInt64("id", &id).BindError(); err != nil {
		return 0, err
	}
	return id, nil
}
