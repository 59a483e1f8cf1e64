package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsSeller     bool      `json:"is_seller"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type SellerProfile struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"user_id"`
	StoreName        string    `json:"store_name"`
	StoreSlug        string    `json:"store_slug"`
	Description      string    `json:"description"`
	Logo             string    `json:"logo,omitempty"`
	Phone            string    `json:"phone,omitempty"`
	EmailContact     string    `json:"email_contact,omitempty"`
	Website          string    `json:"website,omitempty"`
	PaymentInfo      string    `json:"payment_info,omitempty"`
	ShippingInfo     string    `json:"shipping_info,omitempty"`
	Facebook         string    `json:"facebook,omitempty"`
	Instagram        string    `json:"instagram,omitempty"`
	Telegram         string    `json:"telegram,omitempty"`
	IsActive         bool      `json:"is_active"`
	AutoAcceptOrders bool      `json:"auto_accept_orders"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Slug        string          `json:"slug"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image,omitempty"`
	CategoryID  *int64          `json:"category_id"`
	SellerID    int64           `json:"seller_id"`
	Stock       int             `json:"stock"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Version     int             `json:"version"`
}

// Review.UserID is nil once the author's account is gone. Such reviews stay
// visible but never count towards ratings.
type Review struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"product_id"`
	UserID    *int64    `json:"user_id"`
	Username  string    `json:"username,omitempty"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type PaymentMethod struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	IsActive    bool   `json:"is_active"`
}

type Order struct {
	ID              int64           `json:"id"`
	CustomerID      int64           `json:"customer_id"`
	PaymentMethodID *int64          `json:"payment_method_id"`
	Status          string          `json:"status"`
	Total           decimal.Decimal `json:"total"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Items           []OrderItem     `json:"items,omitempty"`
}

type OrderItem struct {
	ID          int64           `json:"id"`
	OrderID     int64           `json:"order_id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	ProductSlug string          `json:"product_slug,omitempty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// Cart is the customer's pending order. Order is nil until the first item is
// added.
type Cart struct {
	Order *Order          `json:"order"`
	Items []OrderItem     `json:"items"`
	Total decimal.Decimal `json:"total"`
}

type DashboardStats struct {
	TotalProducts    int     `json:"total_products"`
	ActiveProducts   int     `json:"active_products"`
	InactiveProducts int     `json:"inactive_products"`
	TotalReviews     int     `json:"total_reviews"`
	AvgRating        float64 `json:"avg_rating"`
}

type SellerStats struct {
	TotalProducts int     `json:"total_products"`
	TotalReviews  int     `json:"total_reviews"`
	AverageRating float64 `json:"average_rating"`
	TotalSales    int     `json:"total_sales"`
}

type StoreStats struct {
	TotalProducts int     `json:"total_products"`
	TotalReviews  int     `json:"total_reviews"`
	AvgRating     float64 `json:"avg_rating"`
}

type StoreFront struct {
	Profile        SellerProfile `json:"profile"`
	ActiveProducts []Product     `json:"active_products"`
	Stats          StoreStats    `json:"stats"`
}

const (
	OrderStatusPending = "pending"
	OrderStatusPaid    = "paid"
	OrderStatusShipped = "shipped"
)
