package main

import (
	"context"
	"database/sql"
	"log/slog"
	"math/rand/v2"

	"github.com/pkg/errors"

	"github.com/Moichehub/marketplace/internal/apperr"
	"github.com/Moichehub/marketplace/internal/store"
)

const defaultReviewsPerProduct = 10

var sampleComments = []string{
	"Відмінний товар! Дуже задоволений покупкою.",
	"Якість на висоті, рекомендую всім!",
	"Швидка доставка, товар відповідає опису.",
	"Дуже хороша ціна за таку якість.",
	"Купую вже другий раз, все супер!",
	"Товар якісний, але доставка трохи затягнулася.",
	"Рекомендую цей магазин, все на рівні.",
	"Відмінна якість, буду замовляти ще.",
	"Товар прийшов вчасно, все сподобалося.",
	"Дуже задоволений покупкою, дякую!",
	"Якість товару відповідає очікуванням.",
	"Швидко і якісно, рекомендую!",
	"Товар якісний, але міг би бути трохи дешевшим.",
	"Відмінний сервіс, все на найвищому рівні.",
	"Дуже задоволений, обов'язково куплю ще.",
}

// sampleReviews has up to perProduct customers review every active product
// with a 3 to 5 star rating. Existing reviews are kept, so repeated runs only
// fill gaps.
func sampleReviews(ctx context.Context, db *sql.DB, perProduct int, rng *rand.Rand, logger *slog.Logger) (int, error) {
	if perProduct <= 0 {
		return 0, apperr.ErrInvalidInput.WithDetails("count must be positive")
	}

	customers, err := store.ListCustomers(ctx, db, perProduct)
	if err != nil {
		return 0, err
	}
	if len(customers) == 0 {
		return 0, errors.New("no customer accounts to write reviews; register some first")
	}

	listings, err := store.ListAllProducts(ctx, db)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, l := range listings {
		if !l.IsActive {
			continue
		}
		for i := range customers {
			rating := 3 + rng.IntN(3)
			comment := sampleComments[rng.IntN(len(sampleComments))]

			_, err := store.AddReview(ctx, db, l.ID, &customers[i], rating, comment)
			if errors.Is(err, apperr.ErrDuplicateReview) {
				continue
			}
			if err != nil {
				return created, errors.Wrapf(err, "review %s by %s", l.Name, customers[i].Username)
			}
			created++
		}

		avg, err := store.AverageRating(ctx, db, l.ID)
		if err != nil {
			return created, err
		}
		logger.Debug("product rated", slog.String("product", l.Name), slog.Float64("avg_rating", avg))
	}

	logger.Info("sample reviews ready", slog.Int("created", created), slog.Int("customers", len(customers)))
	return created, nil
}
