package store_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Moichehub/marketplace/internal/apperr"
	"github.com/Moichehub/marketplace/internal/models"
	"github.com/Moichehub/marketplace/internal/store"
)

func TestCreateUserAndAuthenticate(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := newCustomer(t, db, "alice")
	assert.NotEqual(t, "pass123", user.PasswordHash)
	assert.True(t, user.IsActive)

	_, err := store.CreateUser(ctx, db, hasher, store.NewUser{Username: "alice", Password: "other"})
	assert.True(t, errors.Is(err, apperr.ErrUsernameTaken))

	_, err = store.CreateUser(ctx, db, hasher, store.NewUser{Username: "", Password: "x"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	got, err := store.Authenticate(ctx, db, hasher, "alice", "pass123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = store.Authenticate(ctx, db, hasher, "alice", "wrong")
	assert.True(t, errors.Is(err, apperr.ErrInvalidLogin))

	_, err = store.Authenticate(ctx, db, hasher, "nobody", "pass123")
	assert.True(t, errors.Is(err, apperr.ErrInvalidLogin))

	_, err = db.Exec(`UPDATE users SET is_active = FALSE WHERE id = $1`, user.ID)
	require.NoError(t, err)
	_, err = store.Authenticate(ctx, db, hasher, "alice", "pass123")
	assert.True(t, errors.Is(err, apperr.ErrInvalidLogin))
}

func TestSellerProfileLifecycle(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	seller := newSeller(t, db, "techstore")
	rival := newSeller(t, db, "gadgets")
	customer := newCustomer(t, db, "alice")

	_, found, err := store.GetSellerProfile(ctx, db, seller.ID)
	require.NoError(t, err)
	assert.False(t, found)

	_, err = store.SetupSellerProfile(ctx, db, customer, store.SellerProfileInput{StoreName: "Alice Shop"})
	assert.True(t, errors.Is(err, apperr.ErrSellerOnly))

	profile, err := store.SetupSellerProfile(ctx, db, seller, store.SellerProfileInput{
		StoreName:   "Tech Store",
		Description: "Gadgets",
	})
	require.NoError(t, err)
	assert.Equal(t, "tech-store", profile.StoreSlug)
	assert.True(t, profile.IsActive)

	_, err = store.SetupSellerProfile(ctx, db, seller, store.SellerProfileInput{StoreName: "Second Store"})
	assert.True(t, errors.Is(err, apperr.ErrProfileExists))

	_, err = store.SetupSellerProfile(ctx, db, rival, store.SellerProfileInput{StoreName: "Tech Store"})
	assert.True(t, errors.Is(err, apperr.ErrStoreNameTaken))

	rivalProfile, err := store.SetupSellerProfile(ctx, db, rival, store.SellerProfileInput{StoreName: "Tech-Store!"})
	require.NoError(t, err)
	assert.Equal(t, "tech-store-1", rivalProfile.StoreSlug)

	updated, err := store.UpdateSellerProfile(ctx, db, seller, store.SellerProfileInput{
		StoreName:        "Renamed",
		Description:      "Phones and laptops",
		AutoAcceptOrders: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Tech Store", updated.StoreName)
	assert.Equal(t, "tech-store", updated.StoreSlug)
	assert.Equal(t, "Phones and laptops", updated.Description)
	assert.True(t, updated.AutoAcceptOrders)

	got, found, err := store.GetSellerProfile(ctx, db, seller.ID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, updated.ID, got.ID)

	other := newSeller(t, db, "latecomer")
	_, err = store.UpdateSellerProfile(ctx, db, other, store.SellerProfileInput{})
	assert.True(t, errors.Is(err, apperr.ErrProfileNotFound))
}

func TestSellerDashboardAverageOfAverages(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	seller := newSeller(t, db, "books")
	_, err := store.SetupSellerProfile(ctx, db, seller, store.SellerProfileInput{StoreName: "Book World"})
	require.NoError(t, err)

	popular := newProduct(t, db, seller, "The Hobbit", "13.99", 5)
	niche := newProduct(t, db, seller, "The Art of War", "9.99", 5)
	unreviewed := newProduct(t, db, seller, "The Great Gatsby", "12.99", 5)
	off := false
	_, err = store.UpdateProduct(ctx, db, seller, unreviewed.ID, store.ProductUpdate{IsActive: &off})
	require.NoError(t, err)

	reviews := []struct {
		product *models.Product
		user    string
		rating  int
	}{
		{popular, "a", 5},
		{popular, "b", 5},
		{popular, "c", 5},
		{niche, "d", 1},
	}
	for _, r := range reviews {
		buyer := newCustomer(t, db, "buyer-"+r.user)
		_, err := store.AddReview(ctx, db, r.product.ID, buyer, r.rating, "review")
		require.NoError(t, err)
	}

	stats, err := store.SellerDashboardStats(ctx, db, seller)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalProducts)
	assert.Equal(t, 2, stats.ActiveProducts)
	assert.Equal(t, 1, stats.InactiveProducts)
	assert.Equal(t, 4, stats.TotalReviews)
	// (5 + 1 + 0) / 3
	assert.InDelta(t, 2.0, stats.AvgRating, 1e-9)

	front, err := store.StoreFront(ctx, db, "book-world")
	require.NoError(t, err)
	assert.Len(t, front.ActiveProducts, 2)
	assert.Equal(t, 2, front.Stats.TotalProducts)
	assert.Equal(t, 4, front.Stats.TotalReviews)
	// (5 + 5 + 5 + 1) / 4
	assert.Equal(t, 4.0, front.Stats.AvgRating)

	_, err = store.SellerDashboardStats(ctx, db, newCustomer(t, db, "curious"))
	assert.True(t, errors.Is(err, apperr.ErrSellerOnly))
}

func TestStoreFrontNotFound(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	seller := newSeller(t, db, "home")
	off := false
	_, err := store.SetupSellerProfile(ctx, db, seller, store.SellerProfileInput{StoreName: "Home Goods", IsActive: &off})
	require.NoError(t, err)

	_, err = store.StoreFront(ctx, db, "home-goods")
	assert.True(t, errors.Is(err, apperr.ErrStoreNotFound))

	_, err = store.StoreFront(ctx, db, "missing")
	assert.True(t, errors.Is(err, apperr.ErrStoreNotFound))
}

func TestSellerProfileStatsTotalSales(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	seller := newSeller(t, db, "sports")
	product := newProduct(t, db, seller, "Yoga Mat", "34.99", 10)
	second := newProduct(t, db, seller, "Basketball", "29.99", 10)

	for _, name := range []string{"alice", "bob"} {
		buyer := newCustomer(t, db, name)
		_, err := store.AddToCart(ctx, db, buyer, product.ID, 1)
		require.NoError(t, err)
		_, err = store.AddToCart(ctx, db, buyer, second.ID, 1)
		require.NoError(t, err)
		_, err = store.Checkout(ctx, db, store.CheckoutRequest{Customer: buyer})
		require.NoError(t, err)
	}
	pending := newCustomer(t, db, "carol")
	_, err := store.AddToCart(ctx, db, pending, product.ID, 1)
	require.NoError(t, err)

	stats, err := store.SellerProfileStats(ctx, db, seller.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalProducts)
	assert.Equal(t, 2, stats.TotalSales)
	assert.Zero(t, stats.TotalReviews)
	assert.Zero(t, stats.AverageRating)
}

func TestListCustomers(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	newCustomer(t, db, "alice")
	newSeller(t, db, "techstore")
	bob := newCustomer(t, db, "bob")
	newCustomer(t, db, "carol")

	_, err := db.Exec(`UPDATE users SET is_active = FALSE WHERE id = $1`, bob.ID)
	require.NoError(t, err)

	customers, err := store.ListCustomers(ctx, db, 10)
	require.NoError(t, err)

	var names []string
	for _, c := range customers {
		names = append(names, c.Username)
	}
	assert.Equal(t, []string{"alice", "carol"}, names)

	customers, err = store.ListCustomers(ctx, db, 1)
	require.NoError(t, err)
	assert.Len(t, customers, 1)
}
