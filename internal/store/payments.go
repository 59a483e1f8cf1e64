package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/Moichehub/marketplace/internal/apperr"
	"github.com/Moichehub/marketplace/internal/database"
	"github.com/Moichehub/marketplace/internal/models"
)

type PaymentMethodDefaults struct {
	Description string
	Icon        string
	IsActive    bool
}

// DefaultPaymentMethods is the reference list installed by
// SeedDefaultPaymentMethods. Crypto ships disabled.
var DefaultPaymentMethods = []struct {
	Name     string
	Defaults PaymentMethodDefaults
}{
	{Name: "Bank card", Defaults: PaymentMethodDefaults{Description: "Pay with Visa, MasterCard or another card", Icon: "💳", IsActive: true}},
	{Name: "Cash on delivery", Defaults: PaymentMethodDefaults{Description: "Pay in cash when the order arrives", Icon: "💵", IsActive: true}},
	{Name: "Bank transfer", Defaults: PaymentMethodDefaults{Description: "Transfer to the seller's bank account", Icon: "🏦", IsActive: true}},
	{Name: "PayPal", Defaults: PaymentMethodDefaults{Description: "Pay through PayPal", Icon: "📱", IsActive: true}},
	{Name: "Cryptocurrency", Defaults: PaymentMethodDefaults{Description: "Pay with Bitcoin or Ethereum", Icon: "₿", IsActive: false}},
}

const paymentMethodColumns = `id, name, description, icon, is_active`

func scanPaymentMethod(row rowScanner) (*models.PaymentMethod, error) {
	pm := &models.PaymentMethod{}
	err := row.Scan(&pm.ID, &pm.Name, &pm.Description, &pm.Icon, &pm.IsActive)
	return pm, err
}

// UpsertPaymentMethod returns the payment method called name, inserting it
// with defaults when missing. An existing row is left as it is.
func UpsertPaymentMethod(ctx context.Context, db database.Querier, name string, defaults PaymentMethodDefaults) (*models.PaymentMethod, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false, apperr.ErrInvalidInput.WithDetails("payment method name is required")
	}

	pm, err := scanPaymentMethod(db.QueryRowContext(ctx, `
		INSERT INTO payment_methods (name, description, icon, is_active)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO NOTHING
		RETURNING `+paymentMethodColumns,
		name, defaults.Description, defaults.Icon, defaults.IsActive))
	if err == nil {
		return pm, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, errors.Wrap(err, "insert payment method")
	}

	pm, err = scanPaymentMethod(db.QueryRowContext(ctx,
		`SELECT `+paymentMethodColumns+` FROM payment_methods WHERE name = $1`, name))
	if err != nil {
		return nil, false, errors.Wrap(err, "get payment method")
	}
	return pm, false, nil
}

// SeedDefaultPaymentMethods installs DefaultPaymentMethods and reports how
// many were new.
func SeedDefaultPaymentMethods(ctx context.Context, db database.Querier) (int, error) {
	created := 0
	for _, m := range DefaultPaymentMethods {
		_, isNew, err := UpsertPaymentMethod(ctx, db, m.Name, m.Defaults)
		if err != nil {
			return created, err
		}
		if isNew {
			created++
		}
	}
	return created, nil
}

func ListActivePaymentMethods(ctx context.Context, db database.Querier) ([]models.PaymentMethod, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+paymentMethodColumns+` FROM payment_methods WHERE is_active ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "list payment methods")
	}
	defer rows.Close()

	methods := []models.PaymentMethod{}
	for rows.Next() {
		pm, err := scanPaymentMethod(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan payment method")
		}
		methods = append(methods, *pm)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows error")
	}

	return methods, nil
}

func GetPaymentMethod(ctx context.Context, db database.Querier, id int64) (*models.PaymentMethod, error) {
	pm, err := scanPaymentMethod(db.QueryRowContext(ctx,
		`SELECT `+paymentMethodColumns+` FROM payment_methods WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrPaymentMethodNotFound
		}
		return nil, errors.Wrap(err, "get payment method")
	}
	return pm, nil
}
