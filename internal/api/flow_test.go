package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"

	"github.com/Moichehub/marketplace/internal/auth"
	"github.com/Moichehub/marketplace/internal/config"
	"github.com/Moichehub/marketplace/internal/database"
	"github.com/Moichehub/marketplace/internal/store"
	"github.com/Moichehub/marketplace/migrations"
)

func setupFlowServer(t *testing.T) (*echo.Echo, *sql.DB) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:14-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "testuser",
				"POSTGRES_PASSWORD": "testpass",
				"POSTGRES_DB":       "testdb",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	db, err := sql.Open("postgres", fmt.Sprintf("postgres://testuser:testpass@%s:%s/testdb?sslmode=disable", host, port.Port()))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = database.Migrate(ctx, db, migrations.FS, database.Up)
	require.NoError(t, err)

	tokens, err := auth.NewTokenIssuer(config.AuthConfig{JWTSecret: "flow-secret", TokenTTL: time.Hour})
	require.NoError(t, err)

	e := NewServer(Deps{
		DB:     db,
		Hasher: auth.NewHasher(bcrypt.MinCost),
		Tokens: tokens,
		Logger: discardLogger(),
	})
	return e, db
}

// call sends body as JSON and decodes the envelope's data into out when given.
func call(t *testing.T, e *echo.Echo, method, path, token string, body, out any) *httptest.ResponseRecorder {
	t.Helper()

	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}
	req := httptest.NewRequest(method, path, &payload)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if out != nil && rec.Code < http.StatusBadRequest {
		var envelope struct {
			Data json.RawMessage `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
		require.NoError(t, json.Unmarshal(envelope.Data, out))
	}
	return rec
}

func TestPurchaseFlow(t *testing.T) {
	e, db := setupFlowServer(t)
	ctx := context.Background()

	_, err := store.SeedDefaultPaymentMethods(ctx, db)
	require.NoError(t, err)

	var sellerAuth tokenResponse
	rec := call(t, e, http.MethodPost, "/auth/register/seller", "",
		map[string]string{"username": "techstore", "password": "pass123", "email": "tech@example.com"}, &sellerAuth)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, sellerAuth.User.IsSeller)

	rec = call(t, e, http.MethodPost, "/seller/profile", sellerAuth.Token,
		map[string]any{"store_name": "Tech Store"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var product struct {
		ID   int64  `json:"id"`
		Slug string `json:"slug"`
	}
	rec = call(t, e, http.MethodPost, "/seller/products", sellerAuth.Token,
		map[string]any{"name": "USB Cable", "price": "10.00", "stock": 3}, &product)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "usb-cable", product.Slug)

	var customerAuth tokenResponse
	rec = call(t, e, http.MethodPost, "/auth/register", "",
		map[string]string{"username": "alice", "password": "pass123"}, &customerAuth)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = call(t, e, http.MethodPost, "/cart/items", sellerAuth.Token,
		map[string]any{"product_id": product.ID, "quantity": 1}, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, "sellers cannot hold a cart")

	rec = call(t, e, http.MethodPost, "/cart/items", customerAuth.Token,
		map[string]any{"product_id": product.ID, "quantity": 4}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = call(t, e, http.MethodPost, "/cart/items", customerAuth.Token,
		map[string]any{"product_id": product.ID, "quantity": 2}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var order struct {
		ID     int64           `json:"id"`
		Status string          `json:"status"`
		Total  decimal.Decimal `json:"total"`
	}
	rec = call(t, e, http.MethodPost, "/cart/checkout", customerAuth.Token, map[string]any{}, &order)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "paid", order.Status)
	assert.True(t, decimal.RequireFromString("20.00").Equal(order.Total), order.Total.String())

	rec = call(t, e, http.MethodPost, "/cart/checkout", customerAuth.Token, map[string]any{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "second checkout has an empty cart")

	rec = call(t, e, http.MethodGet, fmt.Sprintf("/orders/%d", order.ID), customerAuth.Token, nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = call(t, e, http.MethodPost, "/products/usb-cable/reviews", customerAuth.Token,
		map[string]any{"rating": 5, "comment": "Works fine"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var detail struct {
		Stock       int     `json:"stock"`
		AvgRating   float64 `json:"avg_rating"`
		ReviewCount int     `json:"review_count"`
	}
	rec = call(t, e, http.MethodGet, "/products/usb-cable", "", nil, &detail)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, detail.Stock)
	assert.Equal(t, 5.0, detail.AvgRating)
	assert.Equal(t, 1, detail.ReviewCount)

	rec = call(t, e, http.MethodGet, "/stores/tech-store", "", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestLoginRejectsBadPassword(t *testing.T) {
	e, _ := setupFlowServer(t)

	rec := call(t, e, http.MethodPost, "/auth/register", "",
		map[string]string{"username": "bob", "password": "pass123"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = call(t, e, http.MethodPost, "/auth/login", "",
		map[string]string{"username": "bob", "password": "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var ok tokenResponse
	rec = call(t, e, http.MethodPost, "/auth/login", "",
		map[string]string{"username": "bob", "password": "pass123"}, &ok)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, ok.Token)
}

func TestCartQuantityZeroRemovesLine(t *testing.T) {
	e, _ := setupFlowServer(t)

	var seller tokenResponse
	rec := call(t, e, http.MethodPost, "/auth/register/seller", "",
		map[string]string{"username": "bookworld", "password": "pass123"}, &seller)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var product struct {
		ID int64 `json:"id"`
	}
	rec = call(t, e, http.MethodPost, "/seller/products", seller.Token,
		map[string]any{"name": "The Hobbit", "price": "13.99", "stock": 5}, &product)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var customer tokenResponse
	rec = call(t, e, http.MethodPost, "/auth/register", "",
		map[string]string{"username": "carol", "password": "pass123"}, &customer)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var item struct {
		ID int64 `json:"id"`
	}
	rec = call(t, e, http.MethodPost, "/cart/items", customer.Token,
		map[string]any{"product_id": product.ID, "quantity": 2}, &item)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var cart struct {
		Items []struct {
			ID       int64 `json:"id"`
			Quantity int   `json:"quantity"`
		} `json:"items"`
	}
	path := fmt.Sprintf("/cart/items/%d", item.ID)

	rec = call(t, e, http.MethodPatch, path, customer.Token, map[string]any{"quantity": 3}, &cart)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)

	rec = call(t, e, http.MethodPatch, path, customer.Token, map[string]any{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "quantity is required")

	cart.Items = nil
	rec = call(t, e, http.MethodPatch, path, customer.Token, map[string]any{"quantity": 0}, &cart)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, cart.Items)

	rec = call(t, e, http.MethodPatch, path, customer.Token, map[string]any{"quantity": 1}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
