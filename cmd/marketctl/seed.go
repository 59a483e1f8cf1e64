package main

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/Moichehub/marketplace/internal/apperr"
	"github.com/Moichehub/marketplace/internal/auth"
	"github.com/Moichehub/marketplace/internal/models"
	"github.com/Moichehub/marketplace/internal/store"
)

const samplePassword = "sellerpass123"

type sampleProduct struct {
	name        string
	description string
	price       string
	stock       int
	category    string
}

type sampleSeller struct {
	username    string
	email       string
	storeName   string
	description string
	products    []sampleProduct
}

var sampleCategories = []string{
	"Electronics",
	"Clothing",
	"Books",
	"Home & Garden",
	"Sports",
	"Toys & Games",
	"Automotive",
	"Health & Beauty",
}

var sampleSellers = []sampleSeller{
	{
		username:    "techstore",
		email:       "techstore@example.com",
		storeName:   "TechStore",
		description: "Premium electronics and gadgets",
		products: []sampleProduct{
			{"iPhone 15 Pro", "Latest iPhone with advanced camera system, A17 Pro chip, and titanium design", "999.99", 25, "Electronics"},
			{"MacBook Air M2", "Lightweight laptop with M2 chip, perfect for work and creativity", "1199.99", 15, "Electronics"},
			{"Sony WH-1000XM5", "Premium noise-cancelling headphones with exceptional sound quality", "349.99", 30, "Electronics"},
			{"Samsung Galaxy S24", "Android flagship with AI features and stunning display", "899.99", 20, "Electronics"},
			{`iPad Pro 12.9"`, "Professional tablet with M2 chip and Liquid Retina XDR display", "1099.99", 12, "Electronics"},
		},
	},
	{
		username:    "fashionboutique",
		email:       "fashion@example.com",
		storeName:   "Fashion Boutique",
		description: "Trendy clothing and accessories",
		products: []sampleProduct{
			{"Classic Denim Jacket", "Timeless denim jacket perfect for any casual occasion", "89.99", 50, "Clothing"},
			{"Premium Cotton T-Shirt", "Soft, breathable cotton t-shirt in various colors", "24.99", 100, "Clothing"},
			{"Leather Crossbody Bag", "Stylish leather bag with adjustable strap", "129.99", 25, "Clothing"},
			{"Running Shoes", "Comfortable running shoes with excellent support", "79.99", 40, "Clothing"},
			{"Designer Sunglasses", "Trendy sunglasses with UV protection", "159.99", 30, "Clothing"},
		},
	},
	{
		username:    "bookworld",
		email:       "books@example.com",
		storeName:   "BookWorld",
		description: "Books for all ages and interests",
		products: []sampleProduct{
			{"The Great Gatsby", "F. Scott Fitzgerald's classic American novel", "12.99", 75, "Books"},
			{"Python Programming Guide", "Comprehensive guide to Python programming for beginners", "29.99", 30, "Books"},
			{"The Art of War", "Sun Tzu's ancient Chinese military treatise", "9.99", 60, "Books"},
			{"Harry Potter and the Sorcerer's Stone", "J.K. Rowling's magical first book in the series", "15.99", 45, "Books"},
			{"The Hobbit", "J.R.R. Tolkien's classic fantasy adventure", "13.99", 35, "Books"},
		},
	},
	{
		username:    "homeimprovement",
		email:       "home@example.com",
		storeName:   "Home Improvement",
		description: "Tools and home improvement products",
		products: []sampleProduct{
			{"LED Desk Lamp", "Adjustable LED lamp with multiple brightness levels", "49.99", 35, "Home & Garden"},
			{"Garden Tool Set", "Complete set of essential gardening tools", "89.99", 20, "Home & Garden"},
			{"Kitchen Mixer", "Professional stand mixer for baking enthusiasts", "199.99", 15, "Home & Garden"},
			{"Smart Thermostat", "WiFi-enabled thermostat with energy saving features", "149.99", 25, "Home & Garden"},
			{"Cordless Drill", "Powerful cordless drill with multiple attachments", "129.99", 18, "Home & Garden"},
		},
	},
	{
		username:    "sportsworld",
		email:       "sports@example.com",
		storeName:   "Sports World",
		description: "Sports equipment and athletic gear",
		products: []sampleProduct{
			{"Basketball", "Official size basketball for indoor/outdoor use", "29.99", 40, "Sports"},
			{"Yoga Mat", "Non-slip yoga mat for home workouts", "34.99", 60, "Sports"},
			{"Tennis Racket", "Professional tennis racket with carrying case", "89.99", 25, "Sports"},
			{"Running Shorts", "Comfortable running shorts with pocket", "24.99", 50, "Sports"},
			{"Dumbbell Set", "Adjustable dumbbell set for strength training", "199.99", 12, "Sports"},
		},
	},
}

// seed installs the sample catalogue. Running it again refreshes the sample
// products in place instead of duplicating them.
func seed(ctx context.Context, db *sql.DB, hasher *auth.Hasher, logger *slog.Logger) error {
	categories := make(map[string]int64, len(sampleCategories))
	for _, name := range sampleCategories {
		category, created, err := store.CreateOrUpdateCategory(ctx, db, name)
		if err != nil {
			return errors.Wrapf(err, "category %s", name)
		}
		categories[name] = category.ID
		logger.Debug("category ready", slog.String("name", name), slog.Bool("created", created))
	}

	var created, updated int
	for _, s := range sampleSellers {
		seller, err := ensureSeller(ctx, db, hasher, s)
		if err != nil {
			return errors.Wrapf(err, "seller %s", s.username)
		}

		for _, p := range s.products {
			categoryID := categories[p.category]
			price := decimal.RequireFromString(p.price)
			active := true

			existing, found, err := store.FindSellerProduct(ctx, db, seller.ID, p.name)
			if err != nil {
				return err
			}
			if found {
				_, err = store.UpdateProduct(ctx, db, seller, existing.ID, store.ProductUpdate{
					Description: &p.description,
					Price:       &price,
					Stock:       &p.stock,
					CategoryID:  &categoryID,
					IsActive:    &active,
				})
				if err != nil {
					return errors.Wrapf(err, "update product %s", p.name)
				}
				updated++
				continue
			}

			_, err = store.CreateProduct(ctx, db, seller, store.ProductInput{
				Name:        p.name,
				Description: p.description,
				Price:       price,
				Stock:       p.stock,
				CategoryID:  &categoryID,
				IsActive:    &active,
			})
			if err != nil {
				return errors.Wrapf(err, "create product %s", p.name)
			}
			created++
		}
	}

	logger.Info("sample data ready",
		slog.Int("categories", len(categories)),
		slog.Int("sellers", len(sampleSellers)),
		slog.Int("products_created", created),
		slog.Int("products_updated", updated),
	)
	return nil
}

func ensureSeller(ctx context.Context, db *sql.DB, hasher *auth.Hasher, s sampleSeller) (*models.User, error) {
	user, err := store.GetUserByUsername(ctx, db, s.username)
	if errors.Is(err, apperr.ErrUserNotFound) {
		user, err = store.CreateUser(ctx, db, hasher, store.NewUser{
			Username: s.username,
			Email:    s.email,
			Password: samplePassword,
			IsSeller: true,
		})
	}
	if err != nil {
		return nil, err
	}
	if !user.IsSeller {
		return nil, errors.Errorf("user %s exists and is not a seller", s.username)
	}

	_, found, err := store.GetSellerProfile(ctx, db, user.ID)
	if err != nil || found {
		return user, err
	}
	_, err = store.SetupSellerProfile(ctx, db, user, store.SellerProfileInput{
		StoreName:    s.storeName,
		Description:  s.description,
		EmailContact: s.email,
	})
	if errors.Is(err, apperr.ErrStoreNameTaken) {
		// Another user already owns the name; the seller still gets products.
		return user, nil
	}
	return user, err
}
