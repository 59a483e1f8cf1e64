package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/Moichehub/marketplace/internal/apperr"
	"github.com/Moichehub/marketplace/internal/database"
	"github.com/Moichehub/marketplace/internal/models"
)

const productColumns = `p.id, p.name, COALESCE(p.slug, ''), p.description, p.price, p.image, p.category_id,
	p.seller_id, p.stock, p.is_active, p.created_at, p.updated_at, p.version`

// maxPrice is the first value numeric(10,2) cannot hold.
var maxPrice = decimal.New(1, 8)

type ProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	CategoryID  *int64
	Image       string
	IsActive    *bool
}

// ProductUpdate holds the fields to change; nil leaves a field as it is.
// ClearCategory detaches the product from its category. When ExpectedVersion
// is set the update fails if the product changed since it was read.
type ProductUpdate struct {
	Name            *string
	Description     *string
	Price           *decimal.Decimal
	Stock           *int
	CategoryID      *int64
	ClearCategory   bool
	Image           *string
	IsActive        *bool
	ExpectedVersion *int
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*models.Product, error) {
	product := &models.Product{}
	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Slug,
		&product.Description,
		&product.Price,
		&product.Image,
		&product.CategoryID,
		&product.SellerID,
		&product.Stock,
		&product.IsActive,
		&product.CreatedAt,
		&product.UpdatedAt,
		&product.Version,
	)
	return product, err
}

func validateProduct(name string, price decimal.Decimal, stock int) error {
	if name == "" || utf8.RuneCountInString(name) > 200 {
		return apperr.ErrInvalidInput.WithDetails("name must be 1 to 200 characters")
	}
	if price.IsNegative() {
		return apperr.ErrInvalidInput.WithDetails("price must not be negative")
	}
	if price.GreaterThanOrEqual(maxPrice) || !price.Equal(price.Round(2)) {
		return apperr.ErrInvalidInput.WithDetails("price must fit 8 digits with 2 decimal places")
	}
	if stock < 0 {
		return apperr.ErrInvalidInput.WithDetails("stock must not be negative")
	}
	return nil
}

func CreateProduct(ctx context.Context, db *sql.DB, seller *models.User, in ProductInput) (*models.Product, error) {
	if err := requireSeller(seller); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if err := validateProduct(name, in.Price, in.Stock); err != nil {
		return nil, err
	}

	isActive := true
	if in.IsActive != nil {
		isActive = *in.IsActive
	}

	query := `
		INSERT INTO products AS p (name, slug, description, price, image, category_id, seller_id, stock, is_active,
			created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW(), 1)
		RETURNING ` + productColumns

	var product *models.Product
	_, err := assignSlug(ctx, db, productSlugs, slugBase(productSlugs, name), 0, func(candidate string) error {
		var err error
		product, err = scanProduct(db.QueryRowContext(ctx, query,
			name, candidate, in.Description, in.Price, in.Image, in.CategoryID, seller.ID, in.Stock, isActive))
		return err
	})
	if err != nil {
		return nil, productWriteError(err, "create product")
	}

	return product, nil
}

func productWriteError(err error, op string) error {
	switch {
	case database.IsForeignKeyViolation(err, "products_category_id_fkey"):
		return apperr.ErrCategoryNotFound
	case database.IsForeignKeyViolation(err, "products_seller_id_fkey"):
		return apperr.ErrUserNotFound
	case database.IsCheckViolation(err, ""):
		return apperr.ErrInvalidInput.WithDetails(err.Error())
	}
	if _, ok := apperr.As(err); ok {
		return err
	}
	return errors.Wrap(err, op)
}

// UpdateProduct applies upd to a product owned by seller. The slug is kept
// even when the name changes.
func UpdateProduct(ctx context.Context, db *sql.DB, seller *models.User, productID int64, upd ProductUpdate) (*models.Product, error) {
	if err := requireSeller(seller); err != nil {
		return nil, err
	}

	var product *models.Product

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		current, err := scanProduct(tx.QueryRowContext(ctx,
			`SELECT `+productColumns+` FROM products p WHERE p.id = $1 FOR UPDATE`, productID))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.ErrProductNotFound
			}
			return errors.Wrap(err, "lock product")
		}

		if current.SellerID != seller.ID {
			return apperr.ErrNotOwner
		}
		if upd.ExpectedVersion != nil && *upd.ExpectedVersion != current.Version {
			return apperr.ErrVersionMismatch.WithDetailsf("expected version %d, found %d", *upd.ExpectedVersion, current.Version)
		}

		next := *current
		if upd.Name != nil {
			next.Name = strings.TrimSpace(*upd.Name)
		}
		if upd.Description != nil {
			next.Description = *upd.Description
		}
		if upd.Price != nil {
			next.Price = *upd.Price
		}
		if upd.Stock != nil {
			next.Stock = *upd.Stock
		}
		if upd.Image != nil {
			next.Image = *upd.Image
		}
		if upd.IsActive != nil {
			next.IsActive = *upd.IsActive
		}
		switch {
		case upd.ClearCategory:
			next.CategoryID = nil
		case upd.CategoryID != nil:
			next.CategoryID = upd.CategoryID
		}

		if err := validateProduct(next.Name, next.Price, next.Stock); err != nil {
			return err
		}

		product, err = scanProduct(tx.QueryRowContext(ctx, `
			UPDATE products AS p
			SET name = $2, description = $3, price = $4, stock = $5, image = $6, is_active = $7, category_id = $8,
			    version = p.version + 1, updated_at = NOW()
			WHERE p.id = $1
			RETURNING `+productColumns,
			productID, next.Name, next.Description, next.Price, next.Stock, next.Image, next.IsActive, next.CategoryID))
		if err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, productWriteError(err, "update product")
	}

	return product, nil
}

func DeleteProduct(ctx context.Context, db *sql.DB, seller *models.User, productID int64) error {
	if err := requireSeller(seller); err != nil {
		return err
	}

	result, err := db.ExecContext(ctx, `DELETE FROM products WHERE id = $1 AND seller_id = $2`, productID, seller.ID)
	if err != nil {
		return errors.Wrap(err, "delete product")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "get rows affected")
	}
	if rowsAffected > 0 {
		return nil
	}

	if _, err := GetProduct(ctx, db, productID); err != nil {
		return err
	}
	return apperr.ErrNotOwner
}

func GetProduct(ctx context.Context, db database.Querier, id int64) (*models.Product, error) {
	product, err := scanProduct(db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products p WHERE p.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrProductNotFound
		}
		return nil, errors.Wrap(err, "get product")
	}
	return product, nil
}

// GetProductBySlug returns the active product published under productSlug.
func GetProductBySlug(ctx context.Context, db database.Querier, productSlug string) (*models.Product, error) {
	product, err := scanProduct(db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products p WHERE p.slug = $1 AND p.is_active`, productSlug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrProductNotFound
		}
		return nil, errors.Wrap(err, "get product by slug")
	}
	return product, nil
}

// FindSellerProduct looks up a seller's product by exact name. found is false
// when the seller has no such product.
func FindSellerProduct(ctx context.Context, db database.Querier, sellerID int64, name string) (product *models.Product, found bool, err error) {
	product, err = scanProduct(db.QueryRowContext(ctx, `
		SELECT `+productColumns+` FROM products p
		WHERE p.seller_id = $1 AND p.name = $2
		ORDER BY p.id
		LIMIT 1`, sellerID, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(err, "find seller product")
	}
	return product, true, nil
}

// ProductListing pairs a product with its seller's username.
type ProductListing struct {
	models.Product
	SellerUsername string `json:"seller_username"`
}

// ListAllProducts returns every product, active or not, grouped by seller.
func ListAllProducts(ctx context.Context, db database.Querier) ([]ProductListing, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+productColumns+`, u.username
		FROM products p
		JOIN users u ON u.id = p.seller_id
		ORDER BY u.username, p.name, p.id`)
	if err != nil {
		return nil, errors.Wrap(err, "list all products")
	}
	defer rows.Close()

	var listings []ProductListing
	for rows.Next() {
		var l ProductListing
		p := &l.Product
		err := rows.Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &p.Price, &p.Image, &p.CategoryID,
			&p.SellerID, &p.Stock, &p.IsActive, &p.CreatedAt, &p.UpdatedAt, &p.Version, &l.SellerUsername)
		if err != nil {
			return nil, errors.Wrap(err, "scan product listing")
		}
		listings = append(listings, l)
	}
	return listings, errors.Wrap(rows.Err(), "iterate product listings")
}

const defaultPageSize = 12

// ProductFilter narrows the public catalog. Query matches name or
// description case-insensitively; zero values disable a filter.
type ProductFilter struct {
	Query        string
	CategorySlug string
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	Page         int
	PageSize     int
}

// SellerProductFilter narrows a seller's own listing. Status is "active",
// "inactive" or empty for both.
type SellerProductFilter struct {
	Query        string
	CategorySlug string
	Status       string
	Page         int
	PageSize     int
}

type whereBuilder struct {
	conds []string
	args  []any
}

// add appends cond with every "?" bound to arg.
func (w *whereBuilder) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(w.args))))
}

func (w *whereBuilder) addRaw(cond string) {
	w.conds = append(w.conds, cond)
}

func (w *whereBuilder) sql() string {
	if len(w.conds) == 0 {
		return "TRUE"
	}
	return strings.Join(w.conds, " AND ")
}

func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

func (w *whereBuilder) addCatalogFilters(query, categorySlug string) {
	if q := strings.TrimSpace(query); q != "" {
		w.add("(p.name ILIKE ? OR p.description ILIKE ?)", likePattern(q))
	}
	if categorySlug != "" {
		w.add("EXISTS(SELECT 1 FROM categories c WHERE c.id = p.category_id AND c.slug = LOWER(?))", categorySlug)
	}
}

// ListProducts pages through active products, newest first.
func ListProducts(ctx context.Context, db database.Querier, filter ProductFilter) (*OffsetPage, error) {
	w := &whereBuilder{}
	w.addRaw("p.is_active")
	w.addCatalogFilters(filter.Query, filter.CategorySlug)
	if filter.MinPrice != nil {
		w.add("p.price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		w.add("p.price <= ?", *filter.MaxPrice)
	}

	return listProductPage(ctx, db, w, filter.Page, filter.PageSize)
}

// ListSellerProducts pages through every product of seller, newest first.
func ListSellerProducts(ctx context.Context, db database.Querier, seller *models.User, filter SellerProductFilter) (*OffsetPage, error) {
	if err := requireSeller(seller); err != nil {
		return nil, err
	}

	w := &whereBuilder{}
	w.add("p.seller_id = ?", seller.ID)
	w.addCatalogFilters(filter.Query, filter.CategorySlug)
	switch filter.Status {
	case "active":
		w.addRaw("p.is_active")
	case "inactive":
		w.addRaw("NOT p.is_active")
	case "", "all":
	default:
		return nil, apperr.ErrInvalidInput.WithDetailsf("unknown status %q", filter.Status)
	}

	return listProductPage(ctx, db, w, filter.Page, filter.PageSize)
}

func listProductPage(ctx context.Context, db database.Querier, w *whereBuilder, page, pageSize int) (*OffsetPage, error) {
	page, pageSize = normalizePage(page, pageSize)

	var total int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products p WHERE `+w.sql(), w.args...).Scan(&total)
	if err != nil {
		return nil, errors.Wrap(err, "count products")
	}

	args := append(append([]any{}, w.args...), pageSize, (page-1)*pageSize)
	query := fmt.Sprintf(`
		SELECT %s
		FROM products p
		WHERE %s
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $%d OFFSET $%d`, productColumns, w.sql(), len(w.args)+1, len(w.args)+2)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
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

	return newOffsetPage(products, total, page, pageSize), nil
}
