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

// CreateOrUpdateCategory returns the category called name, creating it with a
// fresh slug when it does not exist. created reports which happened.
func CreateOrUpdateCategory(ctx context.Context, db *sql.DB, name string) (*models.Category, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > 100 {
		return nil, false, apperr.ErrInvalidInput.WithDetails("category name must be 1 to 100 characters")
	}

	if category, err := getCategoryByName(ctx, db, name); err == nil {
		return category, false, nil
	} else if !errors.Is(err, apperr.ErrCategoryNotFound) {
		return nil, false, err
	}

	var (
		category *models.Category
		created  bool
	)
	_, err := assignSlug(ctx, db, categorySlugs, slugBase(categorySlugs, name), 0, func(candidate string) error {
		c := &models.Category{}
		err := db.QueryRowContext(ctx,
			`INSERT INTO categories (name, slug) VALUES ($1, $2)
			 ON CONFLICT ON CONSTRAINT categories_name_key DO NOTHING
			 RETURNING id, name, slug`,
			name, candidate).Scan(&c.ID, &c.Name, &c.Slug)
		if errors.Is(err, sql.ErrNoRows) {
			// A concurrent call created the same name first.
			return nil
		}
		if err != nil {
			return err
		}
		category, created = c, true
		return nil
	})
	if err != nil {
		if _, ok := apperr.As(err); ok {
			return nil, false, err
		}
		return nil, false, errors.Wrap(err, "create category")
	}

	if !created {
		category, err = getCategoryByName(ctx, db, name)
		if err != nil {
			return nil, false, err
		}
	}

	return category, created, nil
}

func getCategoryByName(ctx context.Context, db database.Querier, name string) (*models.Category, error) {
	c := &models.Category{}
	err := db.QueryRowContext(ctx,
		`SELECT id, name, COALESCE(slug, '') FROM categories WHERE name = $1`, name).Scan(&c.ID, &c.Name, &c.Slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrCategoryNotFound
		}
		return nil, errors.Wrap(err, "get category")
	}
	return c, nil
}

func ListCategories(ctx context.Context, db database.Querier) ([]models.Category, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, name, COALESCE(slug, '') FROM categories ORDER BY name`)
	if err != nil {
		return nil, errors.Wrap(err, "list categories")
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug); err != nil {
			return nil, errors.Wrap(err, "scan category")
		}
		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows error")
	}

	return categories, nil
}
