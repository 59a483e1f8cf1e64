// Command marketctl runs maintenance tasks against the marketplace database.
package main

import (
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/Moichehub/marketplace/internal/auth"
	"github.com/Moichehub/marketplace/internal/config"
	"github.com/Moichehub/marketplace/internal/database"
	"github.com/Moichehub/marketplace/internal/logs"
	"github.com/Moichehub/marketplace/internal/store"
	"github.com/Moichehub/marketplace/migrations"
)

type env struct {
	cfg    *config.Config
	db     *sql.DB
	logger *slog.Logger
}

func main() {
	e := &env{}

	app := &cli.App{
		Name:  "marketctl",
		Usage: "marketplace maintenance commands",
		Before: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger, err := logs.New(cfg.Log)
			if err != nil {
				return err
			}
			db, err := database.NewConnection(&cfg.Database)
			if err != nil {
				return err
			}
			e.cfg, e.db, e.logger = cfg, db, logger
			return nil
		},
		After: func(c *cli.Context) error {
			if e.db != nil {
				return e.db.Close()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "migrate",
				Usage:     "apply or roll back schema migrations",
				ArgsUsage: "up|down",
				Action:    e.migrate,
			},
			{
				Name:  "seed",
				Usage: "create sample categories, sellers and products",
				Action: func(c *cli.Context) error {
					return seed(c.Context, e.db, auth.NewHasher(e.cfg.Auth.BcryptCost), e.logger)
				},
			},
			{
				Name:  "sample-reviews",
				Usage: "have existing customers review every active product",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "count", Value: defaultReviewsPerProduct, Usage: "reviews per product"},
				},
				Action: func(c *cli.Context) error {
					rng := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
					_, err := sampleReviews(c.Context, e.db, c.Int("count"), rng, e.logger)
					return err
				},
			},
			{
				Name:   "payment-methods",
				Usage:  "install the default payment methods",
				Action: e.paymentMethods,
			},
			{
				Name:   "fix-slugs",
				Usage:  "assign slugs to products and categories that lack one",
				Action: e.fixSlugs,
			},
			{
				Name:  "cleanup-reviews",
				Usage: "delete reviews whose author no longer exists",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "dry-run", Usage: "only count orphaned reviews"},
				},
				Action: e.cleanupReviews,
			},
			{
				Name:  "ship-order",
				Usage: "mark a paid order as shipped",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "id", Usage: "order id", Required: true},
				},
				Action: e.shipOrder,
			},
			{
				Name:   "list-products",
				Usage:  "print every product grouped by seller",
				Action: e.listProducts,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func (e *env) migrate(c *cli.Context) error {
	direction := database.Direction(c.Args().First())
	if direction != database.Up && direction != database.Down {
		return cli.Exit("usage: marketctl migrate up|down", 2)
	}

	applied, err := database.Migrate(c.Context, e.db, migrations.FS, direction)
	if err != nil {
		return err
	}
	for _, name := range applied {
		e.logger.Info("migration applied", slog.String("file", name), slog.String("direction", string(direction)))
	}
	e.logger.Info("migrations complete", slog.Int("count", len(applied)))
	return nil
}

func (e *env) paymentMethods(c *cli.Context) error {
	created, err := store.SeedDefaultPaymentMethods(c.Context, e.db)
	if err != nil {
		return err
	}
	e.logger.Info("payment methods installed", slog.Int("created", created),
		slog.Int("existing", len(store.DefaultPaymentMethods)-created))
	return nil
}

func (e *env) fixSlugs(c *cli.Context) error {
	fixed, err := store.FixEmptySlugs(c.Context, e.db)
	if err != nil {
		return err
	}
	e.logger.Info("slugs fixed", slog.Int("count", fixed))
	return nil
}

func (e *env) cleanupReviews(c *cli.Context) error {
	dryRun := c.Bool("dry-run")
	n, err := store.CleanupOrphanedReviews(c.Context, e.db, dryRun)
	if err != nil {
		return err
	}
	if dryRun {
		e.logger.Info("orphaned reviews found", slog.Int64("count", n))
		return nil
	}
	e.logger.Info("orphaned reviews deleted", slog.Int64("count", n))
	return nil
}

func (e *env) shipOrder(c *cli.Context) error {
	order, err := store.ShipOrder(c.Context, e.db, c.Int64("id"))
	if err != nil {
		return err
	}
	e.logger.Info("order shipped", slog.Int64("order_id", order.ID), slog.Int64("customer_id", order.CustomerID))
	return nil
}

func (e *env) listProducts(c *cli.Context) error {
	listings, err := store.ListAllProducts(c.Context, e.db)
	if err != nil {
		return err
	}
	if len(listings) == 0 {
		fmt.Fprintln(c.App.Writer, "No products found")
		return nil
	}

	w := c.App.Writer
	seller := ""
	for _, l := range listings {
		if l.SellerUsername != seller {
			seller = l.SellerUsername
			fmt.Fprintf(w, "\nSeller: %s\n", seller)
		}
		status := "active"
		if !l.IsActive {
			status = "inactive"
		}
		fmt.Fprintf(w, "  %-40s /products/%s  %s  stock=%d  %s\n", l.Name, l.Slug, l.Price.StringFixed(2), l.Stock, status)
	}
	fmt.Fprintf(w, "\nTotal products: %d\n", len(listings))
	return nil
}
