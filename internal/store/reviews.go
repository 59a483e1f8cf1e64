package store

import (
	"context"
	"database/sql"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/Moichehub/marketplace/internal/apperr"
	"github.com/Moichehub/marketplace/internal/database"
	"github.com/Moichehub/marketplace/internal/models"
)

const maxCommentLength = 1000

// AverageRating is the mean rating of a product's attributed reviews, or 0
// when it has none.
func AverageRating(ctx context.Context, db database.Querier, productID int64) (float64, error) {
	var avg float64
	err := db.QueryRowContext(ctx,
		`SELECT COALESCE(AVG(rating), 0)::float8 FROM reviews WHERE product_id = $1 AND user_id IS NOT NULL`,
		productID).Scan(&avg)
	if err != nil {
		return 0, errors.Wrap(err, "average rating")
	}
	return avg, nil
}

func ReviewCount(ctx context.Context, db database.Querier, productID int64) (int, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reviews WHERE product_id = $1 AND user_id IS NOT NULL`,
		productID).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(err, "review count")
	}
	return count, nil
}

func AddReview(ctx context.Context, db *sql.DB, productID int64, user *models.User, rating int, comment string) (*models.Review, error) {
	if user == nil {
		return nil, apperr.ErrUserNotFound
	}
	if rating < 1 || rating > 5 {
		return nil, apperr.ErrInvalidRating
	}
	comment = strings.TrimSpace(comment)
	if comment == "" || utf8.RuneCountInString(comment) > maxCommentLength {
		return nil, apperr.ErrInvalidComment
	}
	if user.IsSeller {
		return nil, apperr.ErrSellerReview
	}

	product, err := GetProduct(ctx, db, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, apperr.ErrProductNotFound
	}
	if product.SellerID == user.ID {
		return nil, apperr.ErrSelfReview
	}

	review := &models.Review{}
	err = db.QueryRowContext(ctx, `
		INSERT INTO reviews (product_id, user_id, rating, comment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, product_id, user_id, rating, comment, created_at, updated_at`,
		productID, user.ID, rating, comment).Scan(
		&review.ID,
		&review.ProductID,
		&review.UserID,
		&review.Rating,
		&review.Comment,
		&review.CreatedAt,
		&review.UpdatedAt,
	)
	if err != nil {
		switch {
		case database.IsUniqueViolation(err, "reviews_product_user_key"):
			return nil, apperr.ErrDuplicateReview
		case database.IsForeignKeyViolation(err, "reviews_product_id_fkey"):
			return nil, apperr.ErrProductNotFound
		case database.IsForeignKeyViolation(err, "reviews_user_id_fkey"):
			return nil, apperr.ErrUserNotFound
		}
		return nil, errors.Wrap(err, "create review")
	}
	review.Username = user.Username

	return review, nil
}

// ListProductReviews returns every review of a product, newest first.
// Reviews whose author is gone come back with a nil UserID.
func ListProductReviews(ctx context.Context, db database.Querier, productID int64) ([]models.Review, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT r.id, r.product_id, r.user_id, COALESCE(u.username, ''), r.rating, r.comment, r.created_at, r.updated_at
		FROM reviews r
		LEFT JOIN users u ON u.id = r.user_id
		WHERE r.product_id = $1
		ORDER BY r.created_at DESC, r.id DESC`, productID)
	if err != nil {
		return nil, errors.Wrap(err, "list reviews")
	}
	defer rows.Close()

	reviews := []models.Review{}
	for rows.Next() {
		var r models.Review
		err := rows.Scan(&r.ID, &r.ProductID, &r.UserID, &r.Username, &r.Rating, &r.Comment, &r.CreatedAt, &r.UpdatedAt)
		if err != nil {
			return nil, errors.Wrap(err, "scan review")
		}
		reviews = append(reviews, r)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows error")
	}

	return reviews, nil
}

// CleanupOrphanedReviews deletes reviews whose author no longer exists and
// returns how many there were. With dryRun it only counts them.
func CleanupOrphanedReviews(ctx context.Context, db database.Querier, dryRun bool) (int64, error) {
	if dryRun {
		var count int64
		if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reviews WHERE user_id IS NULL`).Scan(&count); err != nil {
			return 0, errors.Wrap(err, "count orphaned reviews")
		}
		return count, nil
	}

	result, err := db.ExecContext(ctx, `DELETE FROM reviews WHERE user_id IS NULL`)
	if err != nil {
		return 0, errors.Wrap(err, "delete orphaned reviews")
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "get rows affected")
	}
	return deleted, nil
}
