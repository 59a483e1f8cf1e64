package store

import (
	"context"

	"github.com/pkg/errors"

	"github.com/Moichehub/marketplace/internal/database"
	"github.com/Moichehub/marketplace/internal/models"
)

// SellerDashboardStats summarizes a seller's catalog. AvgRating is the plain
// mean of every product's own average rating, with unreviewed products
// counted as 0; it is not the mean over individual reviews.
func SellerDashboardStats(ctx context.Context, db database.Querier, seller *models.User) (*models.DashboardStats, error) {
	if err := requireSeller(seller); err != nil {
		return nil, err
	}

	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE p.is_active),
			COUNT(*) FILTER (WHERE NOT p.is_active),
			COALESCE(SUM(r.review_count), 0),
			COALESCE(AVG(COALESCE(r.avg_rating, 0)), 0)::float8
		FROM products p
		LEFT JOIN (
			SELECT product_id, COUNT(*) AS review_count, AVG(rating) AS avg_rating
			FROM reviews
			WHERE user_id IS NOT NULL
			GROUP BY product_id
		) r ON r.product_id = p.id
		WHERE p.seller_id = $1`

	stats := &models.DashboardStats{}
	err := db.QueryRowContext(ctx, query, seller.ID).Scan(
		&stats.TotalProducts,
		&stats.ActiveProducts,
		&stats.InactiveProducts,
		&stats.TotalReviews,
		&stats.AvgRating,
	)
	if err != nil {
		return nil, errors.Wrap(err, "seller dashboard stats")
	}

	return stats, nil
}

// StoreFront is the public page of an active store: its profile, its active
// products newest first and rating stats pooled over all of its reviews.
func StoreFront(ctx context.Context, db database.Querier, storeSlug string) (*models.StoreFront, error) {
	profile, err := getProfileBySlug(ctx, db, storeSlug)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products p
		WHERE p.seller_id = $1 AND p.is_active
		ORDER BY p.created_at DESC, p.id DESC`, profile.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "list store products")
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan product")
		}
		products = append(products, *product)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows error")
	}

	sellerStats, err := SellerProfileStats(ctx, db, profile.UserID)
	if err != nil {
		return nil, err
	}

	return &models.StoreFront{
		Profile:        *profile,
		ActiveProducts: products,
		Stats: models.StoreStats{
			TotalProducts: sellerStats.TotalProducts,
			TotalReviews:  sellerStats.TotalReviews,
			AvgRating:     roundTo(sellerStats.AverageRating, 1),
		},
	}, nil
}
