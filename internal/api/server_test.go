package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Moichehub/marketplace/internal/apperr"
	"github.com/Moichehub/marketplace/internal/auth"
	"github.com/Moichehub/marketplace/internal/config"
	"github.com/Moichehub/marketplace/internal/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	tokens, err := auth.NewTokenIssuer(config.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour})
	require.NoError(t, err)

	return NewServer(Deps{Tokens: tokens, Logger: discardLogger()})
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantDetail string
	}{
		{name: "conflict", err: apperr.ErrOutOfStock, wantStatus: http.StatusConflict, wantCode: "OUT_OF_STOCK"},
		{name: "not found", err: apperr.ErrProductNotFound, wantStatus: http.StatusNotFound, wantCode: "PRODUCT_NOT_FOUND"},
		{name: "authorization", err: apperr.ErrSellerOnly, wantStatus: http.StatusForbidden, wantCode: "SELLER_ONLY"},
		{
			name:       "validation with details",
			err:        apperr.ErrInvalidInput.WithDetails("name is required"),
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_INPUT",
			wantDetail: "name is required",
		},
		{name: "wrapped", err: errors.Wrap(apperr.ErrEmptyCart, "checkout"), wantStatus: http.StatusBadRequest, wantCode: "EMPTY_CART"},
		{name: "echo http error", err: echo.NewHTTPError(http.StatusUnauthorized, "nope"), wantStatus: http.StatusUnauthorized, wantCode: "UNAUTHORIZED", wantDetail: "nope"},
		{name: "unclassified", err: errors.New("connection reset"), wantStatus: http.StatusInternalServerError, wantCode: "INTERNAL_ERROR"},
	}

	handler := NewErrorHandler(discardLogger())
	e := echo.New()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			handler(tt.err, c)

			assert.Equal(t, tt.wantStatus, rec.Code)
			resp := decode(t, rec)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantStatus, resp.Code)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Equal(t, tt.wantDetail, resp.Error.Details)
		})
	}
}

func TestErrorHandlerHidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	NewErrorHandler(discardLogger())(errors.New("pq: password authentication failed"), c)

	assert.NotContains(t, rec.Body.String(), "password")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	e := newTestServer(t)

	expired, err := auth.NewTokenIssuer(config.AuthConfig{JWTSecret: "test-secret", TokenTTL: -time.Minute})
	require.NoError(t, err)
	expiredToken, _, err := expired.Issue(1, "alice", false)
	require.NoError(t, err)

	otherIssuer, err := auth.NewTokenIssuer(config.AuthConfig{JWTSecret: "other-secret", TokenTTL: time.Hour})
	require.NoError(t, err)
	foreignToken, _, err := otherIssuer.Issue(1, "alice", false)
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		path   string
		header string
	}{
		{name: "cart without header", method: http.MethodGet, path: "/cart"},
		{name: "orders with basic auth", method: http.MethodGet, path: "/orders", header: "Basic YWxpY2U6cGFzcw=="},
		{name: "seller with empty bearer", method: http.MethodGet, path: "/seller/dashboard", header: "Bearer "},
		{name: "checkout with expired token", method: http.MethodPost, path: "/cart/checkout", header: "Bearer " + expiredToken},
		{name: "review with foreign token", method: http.MethodPost, path: "/products/phone/reviews", header: "Bearer " + foreignToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := httptest.NewRecorder()

			e.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			resp := decode(t, rec)
			require.NotNil(t, resp.Error)
			assert.Equal(t, "UNAUTHORIZED", resp.Error.Code)
		})
	}
}

func TestRequireSeller(t *testing.T) {
	e := echo.New()
	next := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }

	t.Run("customer is rejected", func(t *testing.T) {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		c.Set(userContextKey, &models.User{ID: 1, IsSeller: false})

		err := requireSeller(next)(c)
		assert.True(t, errors.Is(err, apperr.ErrSellerOnly))
	})

	t.Run("anonymous is rejected", func(t *testing.T) {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

		err := requireSeller(next)(c)
		assert.True(t, errors.Is(err, apperr.ErrSellerOnly))
	})

	t.Run("seller passes", func(t *testing.T) {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		c.Set(userContextKey, &models.User{ID: 2, IsSeller: true})

		require.NoError(t, requireSeller(next)(c))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestRequestValidator(t *testing.T) {
	v := newRequestValidator()

	err := v.Validate(&addItemRequest{ProductID: 1, Quantity: 0})
	require.Error(t, err)
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "INVALID_INPUT", appErr.Code)
	assert.Contains(t, appErr.Details, "Quantity")

	assert.NoError(t, v.Validate(&addItemRequest{ProductID: 1, Quantity: 3}))
	assert.Error(t, v.Validate(&reviewRequest{Rating: 6, Comment: "great"}))
	assert.Error(t, v.Validate(&registerRequest{Username: "bob", Password: "123"}))

	zero, negative := 0, -2
	assert.NoError(t, v.Validate(&updateItemRequest{Quantity: &zero}))
	assert.NoError(t, v.Validate(&updateItemRequest{Quantity: &negative}))
	assert.Error(t, v.Validate(&updateItemRequest{}))
}

func TestListProductsRejectsBadQuery(t *testing.T) {
	e := newTestServer(t)

	tests := []struct {
		query    string
		wantCode string
	}{
		{query: "min_price=cheap", wantCode: "INVALID_INPUT"},
		{query: "max_price=1e", wantCode: "INVALID_INPUT"},
		{query: "page=two", wantCode: "BAD_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products?"+tt.query, nil))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decode(t, rec)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestUnknownRoute(t *testing.T) {
	e := newTestServer(t)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decode(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "ROUTE_NOT_FOUND", resp.Error.Code)
}

func TestMalformedBodyIsBadRequest(t *testing.T) {
	e := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
