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

const orderColumns = `o.id, o.customer_id, o.payment_method_id, o.status, o.created_at, o.updated_at`

const defaultHistoryLimit = 20

type CheckoutRequest struct {
	Customer        *models.User
	PaymentMethodID *int64
}

type checkoutLine struct {
	itemID    int64
	productID int64
	quantity  int
	name      string
	price     decimal.Decimal
	stock     int
	isActive  bool
}

func scanOrder(row rowScanner) (*models.Order, error) {
	order := &models.Order{}
	err := row.Scan(
		&order.ID,
		&order.CustomerID,
		&order.PaymentMethodID,
		&order.Status,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	return order, err
}

// orderItems loads an order's lines. Paid lines carry the price frozen at
// checkout; cart lines are priced at the product's current price.
func orderItems(ctx context.Context, db database.Querier, orderID int64) ([]models.OrderItem, decimal.Decimal, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, p.name, COALESCE(p.slug, ''), COALESCE(oi.unit_price, p.price), oi.quantity
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.id`, orderID)
	if err != nil {
		return nil, decimal.Zero, errors.Wrap(err, "get order items")
	}
	defer rows.Close()

	items := []models.OrderItem{}
	total := decimal.Zero
	for rows.Next() {
		var item models.OrderItem
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.ProductName,
			&item.ProductSlug,
			&item.UnitPrice,
			&item.Quantity,
		)
		if err != nil {
			return nil, decimal.Zero, errors.Wrap(err, "scan order item")
		}
		item.Subtotal = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(item.Subtotal)
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, decimal.Zero, errors.Wrap(err, "rows error")
	}

	return items, total, nil
}

// Checkout turns the customer's cart into a paid order. Every line is
// re-checked against current stock with the products locked; if any line no
// longer fits, nothing is decremented and the cart stays pending.
func Checkout(ctx context.Context, db *sql.DB, req CheckoutRequest) (*models.Order, error) {
	if err := requireCustomer(req.Customer); err != nil {
		return nil, err
	}

	var order *models.Order

	err := database.WithRetry(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		if req.PaymentMethodID != nil {
			if err := checkPaymentMethod(ctx, tx, *req.PaymentMethodID); err != nil {
				return err
			}
		}

		orderID, err := lockPendingOrder(ctx, tx, req.Customer.ID, false)
		if err != nil {
			if errors.Is(err, apperr.ErrOrderNotFound) {
				return apperr.ErrEmptyCart
			}
			return err
		}

		lines, err := lockCheckoutLines(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return apperr.ErrEmptyCart
		}

		for _, line := range lines {
			if !line.isActive {
				return apperr.ErrOutOfStock.WithDetailsf("%s is no longer available", line.name)
			}
			if line.quantity > line.stock {
				return apperr.ErrOutOfStock.WithDetailsf("%s: requested %d, available %d", line.name, line.quantity, line.stock)
			}
		}

		for _, line := range lines {
			if err := decrementStock(ctx, tx, line.productID, line.quantity); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, `UPDATE order_items SET unit_price = $1 WHERE id = $2`, line.price, line.itemID)
			if err != nil {
				return errors.Wrap(err, "freeze line price")
			}
		}

		order, err = scanOrder(tx.QueryRowContext(ctx, `
			UPDATE orders AS o
			SET status = $2, payment_method_id = $3, updated_at = NOW()
			WHERE o.id = $1 AND o.status = $4
			RETURNING `+orderColumns,
			orderID, models.OrderStatusPaid, req.PaymentMethodID, models.OrderStatusPending))
		if err != nil {
			return errors.Wrap(err, "mark order paid")
		}

		order.Items, order.Total, err = orderItems(ctx, tx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

func checkPaymentMethod(ctx context.Context, tx *sql.Tx, id int64) error {
	var isActive bool
	err := tx.QueryRowContext(ctx, `SELECT is_active FROM payment_methods WHERE id = $1`, id).Scan(&isActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.ErrPaymentMethodNotFound
		}
		return errors.Wrap(err, "get payment method")
	}
	if !isActive {
		return apperr.ErrPaymentMethod
	}
	return nil
}

// lockCheckoutLines locks the products of an order in id order so two
// checkouts sharing products always queue on them in the same sequence.
func lockCheckoutLines(ctx context.Context, tx *sql.Tx, orderID int64) ([]checkoutLine, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT oi.id, oi.product_id, oi.quantity, p.name, p.price, p.stock, p.is_active
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY p.id
		FOR UPDATE OF p`, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "lock order products")
	}
	defer rows.Close()

	var lines []checkoutLine
	for rows.Next() {
		var l checkoutLine
		if err := rows.Scan(&l.itemID, &l.productID, &l.quantity, &l.name, &l.price, &l.stock, &l.isActive); err != nil {
			return nil, errors.Wrap(err, "scan order line")
		}
		lines = append(lines, l)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows error")
	}

	return lines, nil
}

func decrementStock(ctx context.Context, tx *sql.Tx, productID int64, quantity int) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE products
		 SET stock = stock - $1,
		     version = version + 1,
		     updated_at = NOW()
		 WHERE id = $2
		   AND stock >= $1`,
		quantity, productID)
	if err != nil {
		return errors.Wrap(err, "decrement stock")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "get rows affected")
	}

	if rowsAffected == 0 {
		return apperr.ErrOutOfStock
	}

	return nil
}

// ShipOrder moves a paid order to shipped. Any other current status is a
// conflict.
func ShipOrder(ctx context.Context, db *sql.DB, orderID int64) (*models.Order, error) {
	order, err := scanOrder(db.QueryRowContext(ctx, `
		UPDATE orders AS o
		SET status = $2, updated_at = NOW()
		WHERE o.id = $1 AND o.status = $3
		RETURNING `+orderColumns,
		orderID, models.OrderStatusShipped, models.OrderStatusPaid))
	if err == nil {
		order.Items, order.Total, err = orderItems(ctx, db, orderID)
		if err != nil {
			return nil, err
		}
		return order, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrap(err, "ship order")
	}

	var status string
	err = db.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = $1`, orderID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrOrderNotFound
		}
		return nil, errors.Wrap(err, "get order status")
	}
	return nil, apperr.ErrInvalidTransition.WithDetailsf("order %d is %s", orderID, status)
}

// GetOrder returns one of the customer's orders with its lines.
func GetOrder(ctx context.Context, db database.Querier, customer *models.User, orderID int64) (*models.Order, error) {
	if err := requireCustomer(customer); err != nil {
		return nil, err
	}

	order, err := scanOrder(db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders o WHERE o.id = $1`, orderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrOrderNotFound
		}
		return nil, errors.Wrap(err, "get order")
	}
	if order.CustomerID != customer.ID {
		return nil, apperr.ErrNotOwner
	}

	order.Items, order.Total, err = orderItems(ctx, db, orderID)
	if err != nil {
		return nil, err
	}

	return order, nil
}

// ListOrderHistory pages through the customer's placed orders, newest first.
// The cart is not part of the history.
func ListOrderHistory(ctx context.Context, db database.Querier, customer *models.User, cursor string, limit int) (*CursorPage, error) {
	if err := requireCustomer(customer); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, apperr.ErrInvalidInput.WithDetails("malformed cursor")
	}

	args := []any{customer.ID, models.OrderStatusPending, limit + 1}
	keyset := ""
	if !cursorData.IsZero() {
		keyset = "AND (o.created_at, o.id) < ($4, $5)"
		args = append(args, cursorData.CreatedAt, cursorData.ID)
	}

	query := `
		SELECT ` + orderColumns + `,
			COALESCE((
				SELECT SUM(oi.quantity * COALESCE(oi.unit_price, p.price))
				FROM order_items oi
				JOIN products p ON p.id = oi.product_id
				WHERE oi.order_id = o.id
			), 0)
		FROM orders o
		WHERE o.customer_id = $1
		  AND o.status <> $2
		  ` + keyset + `
		ORDER BY o.created_at DESC, o.id DESC
		LIMIT $3`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var order models.Order
		err := rows.Scan(
			&order.ID,
			&order.CustomerID,
			&order.PaymentMethodID,
			&order.Status,
			&order.CreatedAt,
			&order.UpdatedAt,
			&order.Total,
		)
		if err != nil {
			return nil, errors.Wrap(err, "scan order")
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows error")
	}

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	var nextCursor string
	if hasMore && len(orders) > 0 {
		lastOrder := orders[len(orders)-1]
		nextCursor = EncodeCursor(OrderCursor{
			CreatedAt: lastOrder.CreatedAt,
			ID:        lastOrder.ID,
		})
	}

	return &CursorPage{
		Items:      orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}
