package store

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/Moichehub/marketplace/internal/apperr"
	"github.com/Moichehub/marketplace/internal/database"
	"github.com/Moichehub/marketplace/internal/models"
)

// lockPendingOrder returns the id of the customer's cart, locked for the rest
// of tx. With create it makes the cart first when there is none; the partial
// unique index on pending orders keeps concurrent creators down to one row.
func lockPendingOrder(ctx context.Context, tx *sql.Tx, customerID int64, create bool) (int64, error) {
	if create {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO orders (customer_id, status, created_at, updated_at)
			VALUES ($1, $2, NOW(), NOW())
			ON CONFLICT (customer_id) WHERE status = 'pending' DO NOTHING`,
			customerID, models.OrderStatusPending)
		if err != nil {
			return 0, errors.Wrap(err, "create cart")
		}
	}

	var orderID int64
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM orders WHERE customer_id = $1 AND status = $2 FOR UPDATE`,
		customerID, models.OrderStatusPending).Scan(&orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, apperr.ErrOrderNotFound
		}
		return 0, errors.Wrap(err, "lock cart")
	}

	return orderID, nil
}

// AddToCart puts qty more units of a product into the customer's cart. The
// line's total quantity may never exceed the product's current stock; when
// it would, nothing changes.
func AddToCart(ctx context.Context, db *sql.DB, customer *models.User, productID int64, qty int) (*models.OrderItem, error) {
	if err := requireCustomer(customer); err != nil {
		return nil, err
	}
	if qty <= 0 {
		return nil, apperr.ErrInvalidQuantity
	}

	var item *models.OrderItem

	err := database.WithRetry(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		orderID, err := lockPendingOrder(ctx, tx, customer.ID, true)
		if err != nil {
			return err
		}

		var (
			name     string
			slug     string
			price    decimal.Decimal
			stock    int
			isActive bool
		)
		err = tx.QueryRowContext(ctx,
			`SELECT name, COALESCE(slug, ''), price, stock, is_active FROM products WHERE id = $1 FOR SHARE`,
			productID).Scan(&name, &slug, &price, &stock, &isActive)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.ErrProductNotFound
			}
			return errors.Wrap(err, "lock product")
		}
		if !isActive {
			return apperr.ErrProductNotFound
		}

		var existing int
		err = tx.QueryRowContext(ctx,
			`SELECT quantity FROM order_items WHERE order_id = $1 AND product_id = $2`,
			orderID, productID).Scan(&existing)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return errors.Wrap(err, "get cart line")
		}

		if existing+qty > stock {
			return apperr.ErrOutOfStock.WithDetailsf("%s: requested %d, available %d", name, existing+qty, stock)
		}

		item = &models.OrderItem{
			OrderID:     orderID,
			ProductID:   productID,
			ProductName: name,
			ProductSlug: slug,
			UnitPrice:   price,
		}
		err = tx.QueryRowContext(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity)
			VALUES ($1, $2, $3)
			ON CONFLICT (order_id, product_id) DO UPDATE SET quantity = order_items.quantity + EXCLUDED.quantity
			RETURNING id, quantity`,
			orderID, productID, qty).Scan(&item.ID, &item.Quantity)
		if err != nil {
			return errors.Wrap(err, "upsert cart line")
		}
		item.Subtotal = price.Mul(decimal.NewFromInt(int64(item.Quantity)))

		return touchOrder(ctx, tx, orderID)
	})
	if err != nil {
		return nil, err
	}

	return item, nil
}

// UpdateCartItem sets a cart line's quantity. Zero or less removes the line;
// more than the product's stock is rejected and leaves it untouched.
func UpdateCartItem(ctx context.Context, db *sql.DB, customer *models.User, itemID int64, qty int) error {
	if err := requireCustomer(customer); err != nil {
		return err
	}

	return database.WithRetry(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		orderID, err := lockPendingOrder(ctx, tx, customer.ID, false)
		if err != nil {
			if errors.Is(err, apperr.ErrOrderNotFound) {
				return apperr.ErrCartItemNotFound
			}
			return err
		}

		var stock int
		err = tx.QueryRowContext(ctx, `
			SELECT p.stock
			FROM order_items oi
			JOIN products p ON p.id = oi.product_id
			WHERE oi.id = $1 AND oi.order_id = $2
			FOR SHARE OF p`,
			itemID, orderID).Scan(&stock)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.ErrCartItemNotFound
			}
			return errors.Wrap(err, "get cart line")
		}

		if qty <= 0 {
			if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE id = $1`, itemID); err != nil {
				return errors.Wrap(err, "delete cart line")
			}
			return touchOrder(ctx, tx, orderID)
		}

		if qty > stock {
			return apperr.ErrOutOfStock.WithDetailsf("requested %d, available %d", qty, stock)
		}

		if _, err := tx.ExecContext(ctx, `UPDATE order_items SET quantity = $1 WHERE id = $2`, qty, itemID); err != nil {
			return errors.Wrap(err, "update cart line")
		}
		return touchOrder(ctx, tx, orderID)
	})
}

func RemoveCartItem(ctx context.Context, db *sql.DB, customer *models.User, itemID int64) error {
	if err := requireCustomer(customer); err != nil {
		return err
	}

	result, err := db.ExecContext(ctx, `
		DELETE FROM order_items oi
		USING orders o
		WHERE oi.id = $1
		  AND oi.order_id = o.id
		  AND o.customer_id = $2
		  AND o.status = $3`,
		itemID, customer.ID, models.OrderStatusPending)
	if err != nil {
		return errors.Wrap(err, "remove cart line")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "get rows affected")
	}
	if rowsAffected == 0 {
		return apperr.ErrCartItemNotFound
	}

	return nil
}

// GetCart returns the customer's pending order with priced lines. A customer
// without a cart gets an empty one.
func GetCart(ctx context.Context, db database.Querier, customer *models.User) (*models.Cart, error) {
	if err := requireCustomer(customer); err != nil {
		return nil, err
	}

	cart := &models.Cart{Items: []models.OrderItem{}, Total: decimal.Zero}

	order, err := scanOrder(db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders o WHERE o.customer_id = $1 AND o.status = $2`,
		customer.ID, models.OrderStatusPending))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return cart, nil
		}
		return nil, errors.Wrap(err, "get cart")
	}

	items, total, err := orderItems(ctx, db, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	order.Total = total

	cart.Order = order
	cart.Items = items
	cart.Total = total
	return cart, nil
}

func touchOrder(ctx context.Context, tx *sql.Tx, orderID int64) error {
	if _, err := tx.ExecContext(ctx, `UPDATE orders SET updated_at = NOW() WHERE id = $1`, orderID); err != nil {
		return errors.Wrap(err, "touch order")
	}
	return nil
}
