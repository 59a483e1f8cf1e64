package store

import (
	"context"
	"database/sql"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/Moichehub/marketplace/internal/apperr"
	"github.com/Moichehub/marketplace/internal/database"
	"github.com/Moichehub/marketplace/internal/models"
)

const profileColumns = `id, user_id, store_name, store_slug, description, logo, phone, email_contact, website,
	payment_info, shipping_info, facebook, instagram, telegram, is_active, auto_accept_orders, created_at, updated_at`

// SellerProfileInput carries the editable profile fields. StoreName is only
// read by SetupSellerProfile.
type SellerProfileInput struct {
	StoreName        string
	Description      string
	Logo             string
	Phone            string
	EmailContact     string
	Website          string
	PaymentInfo      string
	ShippingInfo     string
	Facebook         string
	Instagram        string
	Telegram         string
	IsActive         *bool
	AutoAcceptOrders bool
}

func scanProfile(row rowScanner) (*models.SellerProfile, error) {
	p := &models.SellerProfile{}
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.StoreName,
		&p.StoreSlug,
		&p.Description,
		&p.Logo,
		&p.Phone,
		&p.EmailContact,
		&p.Website,
		&p.PaymentInfo,
		&p.ShippingInfo,
		&p.Facebook,
		&p.Instagram,
		&p.Telegram,
		&p.IsActive,
		&p.AutoAcceptOrders,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

// SetupSellerProfile creates the one profile a seller may own. The store
// slug is derived from the store name and never changes afterwards.
func SetupSellerProfile(ctx context.Context, db *sql.DB, seller *models.User, in SellerProfileInput) (*models.SellerProfile, error) {
	if err := requireSeller(seller); err != nil {
		return nil, err
	}

	storeName := strings.TrimSpace(in.StoreName)
	if storeName == "" || utf8.RuneCountInString(storeName) > 200 {
		return nil, apperr.ErrInvalidInput.WithDetails("store name must be 1 to 200 characters")
	}

	isActive := true
	if in.IsActive != nil {
		isActive = *in.IsActive
	}

	query := `
		INSERT INTO seller_profiles (user_id, store_name, store_slug, description, logo, phone, email_contact, website,
			payment_info, shipping_info, facebook, instagram, telegram, is_active, auto_accept_orders, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW(), NOW())
		RETURNING ` + profileColumns

	var profile *models.SellerProfile
	_, err := assignSlug(ctx, db, storeSlugs, slugBase(storeSlugs, storeName), 0, func(candidate string) error {
		var err error
		profile, err = scanProfile(db.QueryRowContext(ctx, query,
			seller.ID, storeName, candidate, in.Description, in.Logo, in.Phone, in.EmailContact, in.Website,
			in.PaymentInfo, in.ShippingInfo, in.Facebook, in.Instagram, in.Telegram, isActive, in.AutoAcceptOrders))
		return err
	})
	if err != nil {
		switch {
		case database.IsUniqueViolation(err, "seller_profiles_user_id_key"):
			return nil, apperr.ErrProfileExists
		case database.IsUniqueViolation(err, "seller_profiles_store_name_key"):
			return nil, apperr.ErrStoreNameTaken.WithDetails(storeName)
		case database.IsForeignKeyViolation(err, ""):
			return nil, apperr.ErrUserNotFound
		}
		if _, ok := apperr.As(err); ok {
			return nil, err
		}
		return nil, errors.Wrap(err, "create seller profile")
	}

	return profile, nil
}

// UpdateSellerProfile rewrites the editable fields. Store name and slug stay
// as they were at setup.
func UpdateSellerProfile(ctx context.Context, db *sql.DB, seller *models.User, in SellerProfileInput) (*models.SellerProfile, error) {
	if err := requireSeller(seller); err != nil {
		return nil, err
	}

	query := `
		UPDATE seller_profiles
		SET description = $2, logo = $3, phone = $4, email_contact = $5, website = $6,
		    payment_info = $7, shipping_info = $8, facebook = $9, instagram = $10, telegram = $11,
		    is_active = COALESCE($12, is_active), auto_accept_orders = $13, updated_at = NOW()
		WHERE user_id = $1
		RETURNING ` + profileColumns

	var isActive sql.NullBool
	if in.IsActive != nil {
		isActive = sql.NullBool{Bool: *in.IsActive, Valid: true}
	}

	profile, err := scanProfile(db.QueryRowContext(ctx, query,
		seller.ID, in.Description, in.Logo, in.Phone, in.EmailContact, in.Website,
		in.PaymentInfo, in.ShippingInfo, in.Facebook, in.Instagram, in.Telegram, isActive, in.AutoAcceptOrders))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrProfileNotFound
		}
		return nil, errors.Wrap(err, "update seller profile")
	}

	return profile, nil
}

// GetSellerProfile looks up the profile of userID. found is false when the
// seller has not set one up yet.
func GetSellerProfile(ctx context.Context, db database.Querier, userID int64) (profile *models.SellerProfile, found bool, err error) {
	profile, err = scanProfile(db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM seller_profiles WHERE user_id = $1`, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(err, "get seller profile")
	}
	return profile, true, nil
}

func getProfileBySlug(ctx context.Context, db database.Querier, storeSlug string) (*models.SellerProfile, error) {
	profile, err := scanProfile(db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM seller_profiles WHERE store_slug = $1 AND is_active`, storeSlug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrStoreNotFound
		}
		return nil, errors.Wrap(err, "get seller profile by slug")
	}
	return profile, nil
}

// SellerProfileStats aggregates a seller's catalog. Ratings are pooled over
// every attributed review of the seller's products. TotalSales counts paid
// orders containing at least one of those products.
func SellerProfileStats(ctx context.Context, db database.Querier, sellerID int64) (*models.SellerStats, error) {
	stats := &models.SellerStats{}

	query := `
		SELECT
			(SELECT COUNT(*) FROM products WHERE seller_id = $1 AND is_active),
			COUNT(r.id),
			COALESCE(AVG(r.rating), 0)::float8,
			(SELECT COUNT(DISTINCT o.id)
			 FROM orders o
			 JOIN order_items oi ON oi.order_id = o.id
			 JOIN products sp ON sp.id = oi.product_id
			 WHERE sp.seller_id = $1 AND o.status = 'paid')
		FROM reviews r
		JOIN products p ON p.id = r.product_id
		WHERE p.seller_id = $1 AND r.user_id IS NOT NULL`

	err := db.QueryRowContext(ctx, query, sellerID).Scan(
		&stats.TotalProducts,
		&stats.TotalReviews,
		&stats.AverageRating,
		&stats.TotalSales,
	)
	if err != nil {
		return nil, errors.Wrap(err, "seller profile stats")
	}

	return stats, nil
}

func roundTo(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
