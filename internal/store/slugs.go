package store

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/Moichehub/marketplace/internal/apperr"
	"github.com/Moichehub/marketplace/internal/database"
	"github.com/Moichehub/marketplace/internal/slug"
)

// maxSlugAttempts bounds how many times a write may lose a race for a
// candidate slug before giving up.
const maxSlugAttempts = 8

type slugColumn struct {
	table      string
	column     string
	constraint string
	fallback   string
}

var (
	productSlugs  = slugColumn{table: "products", column: "slug", constraint: "products_slug_key", fallback: "product"}
	categorySlugs = slugColumn{table: "categories", column: "slug", constraint: "categories_slug_key", fallback: "category"}
	storeSlugs    = slugColumn{table: "seller_profiles", column: "store_slug", constraint: "seller_profiles_store_slug_key", fallback: "store"}
)

func slugBase(col slugColumn, name string) string {
	if base := slug.Make(name); base != "" {
		return base
	}
	return slug.Fallback(col.fallback)
}

func slugTaken(ctx context.Context, q database.Querier, col slugColumn, candidate string, excludeID int64) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE %s = $1 AND id <> $2)`, col.table, col.column)

	var taken bool
	if err := q.QueryRowContext(ctx, query, candidate, excludeID).Scan(&taken); err != nil {
		return false, errors.Wrapf(err, "probe %s.%s", col.table, col.column)
	}
	return taken, nil
}

// assignSlug calls write with base, base-1, base-2, ... skipping candidates
// already held by another row. A unique violation on the slug constraint
// raised by write means a concurrent save took the candidate, so the next one
// is tried. write must not run inside a transaction that the failed statement
// would abort.
func assignSlug(ctx context.Context, q database.Querier, col slugColumn, base string, excludeID int64, write func(candidate string) error) (string, error) {
	n := 0
	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		candidate := slug.Candidate(base, n)
		for {
			taken, err := slugTaken(ctx, q, col, candidate, excludeID)
			if err != nil {
				return "", err
			}
			if !taken {
				break
			}
			n++
			candidate = slug.Candidate(base, n)
		}

		err := write(candidate)
		if err == nil {
			return candidate, nil
		}
		if !database.IsUniqueViolation(err, col.constraint) {
			return "", err
		}
		n++
	}

	return "", apperr.ErrSlugExhausted.WithDetailsf("%s %q", col.table, base)
}

// FixEmptySlugs assigns slugs to products and categories saved without one.
// Products whose name yields nothing fall back to product-<id>.
func FixEmptySlugs(ctx context.Context, db database.Querier) (int, error) {
	fixed := 0

	for _, col := range []slugColumn{productSlugs, categorySlugs} {
		rows, err := db.QueryContext(ctx,
			fmt.Sprintf(`SELECT id, name FROM %s WHERE %s IS NULL OR %s = '' ORDER BY id`, col.table, col.column, col.column))
		if err != nil {
			return fixed, errors.Wrapf(err, "list %s without slug", col.table)
		}

		type pending struct {
			id   int64
			name string
		}
		var todo []pending
		for rows.Next() {
			var p pending
			if err := rows.Scan(&p.id, &p.name); err != nil {
				rows.Close()
				return fixed, errors.Wrapf(err, "scan %s", col.table)
			}
			todo = append(todo, p)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fixed, errors.Wrapf(err, "list %s without slug", col.table)
		}

		for _, p := range todo {
			base := slug.Make(p.name)
			if base == "" {
				base = slug.FallbackWithID(col.fallback, p.id)
			}

			update := fmt.Sprintf(`UPDATE %s SET %s = $1 WHERE id = $2`, col.table, col.column)
			_, err := assignSlug(ctx, db, col, base, p.id, func(candidate string) error {
				_, err := db.ExecContext(ctx, update, candidate, p.id)
				return err
			})
			if err != nil {
				return fixed, errors.Wrapf(err, "fix slug for %s %d", col.table, p.id)
			}
			fixed++
		}
	}

	return fixed, nil
}
