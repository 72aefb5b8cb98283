package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/inventory"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/review"
	"github.com/xenking/storefront/internal/domain/store"
)

type catalog struct {
	Stores []struct {
		Name    string `json:"name"`
		Address string `json:"address"`
	} `json:"stores"`
	Products []struct {
		Name     string          `json:"name"`
		Category string          `json:"category"`
		Price    decimal.Decimal `json:"price"`
		SKU      string          `json:"sku"`
	} `json:"products"`
	Inventory []struct {
		Store   string `json:"store"`
		Product string `json:"product"`
		Stock   int    `json:"stock"`
	} `json:"inventory"`
	Customers []struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Phone string `json:"phone"`
	} `json:"customers"`
	Reviews []struct {
		Store    string `json:"store"`
		Product  string `json:"product"`
		Customer string `json:"customer"`
		Rating   int    `json:"rating"`
		Comment  string `json:"comment"`
	} `json:"reviews"`
}

func main() {
	var (
		driver      string
		databaseURL string
		catalogFile string
	)

	flag.StringVar(&driver, "driver", "postgres", "storage backend: postgres or sqlite")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL or SQLite path (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "db/seed/catalog.json", "path to the catalog JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, driver, databaseURL, catalogFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, driver, databaseURL, catalogFile string) error {
	slog.Info("reading catalog file", slog.String("path", catalogFile))

	data, err := os.ReadFile(catalogFile)
	if err != nil {
		return errors.Wrap(err, "read catalog file")
	}
	var c catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return errors.Wrap(err, "parse catalog JSON")
	}

	slog.Info("connecting to database", slog.String("driver", driver))

	db, err := openDB(ctx, driver, databaseURL)
	if err != nil {
		return err
	}
	defer db.close()

	return seed(ctx, db, &c)
}

// seed writes c into db. Rows that already exist are left alone, so seeding
// twice is harmless.
func seed(ctx context.Context, db *database, c *catalog) error {
	stores, err := seedStores(ctx, db, c)
	if err != nil {
		return errors.Wrap(err, "seed stores")
	}
	products, err := seedProducts(ctx, db, c)
	if err != nil {
		return errors.Wrap(err, "seed products")
	}

	for _, row := range c.Inventory {
		inv := inventory.Inventory{
			ProductID:  products[row.Product],
			StoreID:    stores[row.Store],
			StockLevel: row.Stock,
		}
		if inv.ProductID == 0 || inv.StoreID == 0 {
			return errors.Errorf("inventory row references unknown store %q or product %q", row.Store, row.Product)
		}
		_, err := db.inventory.Find(ctx, inv.ProductID, inv.StoreID)
		switch {
		case err == nil:
			continue
		case !errors.Is(err, apperr.ErrNotFound):
			return errors.Wrapf(err, "find inventory %s", inv.Key())
		}
		if err := db.inventory.Create(ctx, &inv); err != nil {
			return errors.Wrapf(err, "create inventory %s", inv.Key())
		}
		slog.Info("created inventory", slog.String("store", row.Store), slog.String("product", row.Product), slog.Int("stock", row.Stock))
	}

	customers, err := seedCustomers(ctx, db, c, stores, products)
	if err != nil {
		return errors.Wrap(err, "seed customers")
	}

	for _, row := range c.Reviews {
		storeID, productID := stores[row.Store], products[row.Product]
		existing, err := db.reviews.ListByStoreAndProduct(ctx, storeID, productID)
		if err != nil {
			return errors.Wrap(err, "list reviews")
		}
		if len(existing) > 0 {
			continue
		}
		rv := review.Review{
			StoreID:    storeID,
			ProductID:  productID,
			CustomerID: customers[row.Customer],
			Rating:     row.Rating,
			Comment:    row.Comment,
		}
		if err := db.reviews.Create(ctx, &rv); err != nil {
			return errors.Wrapf(err, "create review of %q", row.Product)
		}
		slog.Info("created review", slog.String("product", row.Product), slog.Int("rating", row.Rating))
	}
	return nil
}

func seedStores(ctx context.Context, db *database, c *catalog) (map[string]int64, error) {
	existing, err := db.stores.List(ctx)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]int64, len(c.Stores))
	for _, s := range existing {
		ids[s.Name] = s.ID
	}
	for _, row := range c.Stores {
		if _, ok := ids[row.Name]; ok {
			continue
		}
		s := store.Store{Name: row.Name, Address: row.Address}
		if err := db.stores.Create(ctx, &s); err != nil {
			return nil, errors.Wrapf(err, "create store %q", row.Name)
		}
		ids[s.Name] = s.ID
		slog.Info("created store", slog.Int64("id", s.ID), slog.String("name", s.Name))
	}
	return ids, nil
}

func seedProducts(ctx context.Context, db *database, c *catalog) (map[string]int64, error) {
	ids := make(map[string]int64, len(c.Products))
	for _, row := range c.Products {
		p, err := db.products.FindByName(ctx, row.Name)
		if err == nil {
			ids[row.Name] = p.ID
			continue
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			return nil, errors.Wrapf(err, "find product %q", row.Name)
		}
		p = &product.Product{Name: row.Name, Category: row.Category, Price: row.Price, SKU: row.SKU}
		if err := db.products.Create(ctx, p); err != nil {
			return nil, errors.Wrapf(err, "create product %q", row.Name)
		}
		ids[row.Name] = p.ID
		slog.Info("created product", slog.Int64("id", p.ID), slog.String("name", p.Name))
	}
	return ids, nil
}

// seedCustomers creates each customer by placing a one-unit order of the
// first product they review, so customers always come with order history.
func seedCustomers(ctx context.Context, db *database, c *catalog, stores, products map[string]int64) (map[string]int64, error) {
	ids := make(map[string]int64, len(c.Customers))
	for _, row := range c.Customers {
		existing, err := db.customers.FindByEmail(ctx, row.Email)
		if err == nil {
			ids[row.Email] = existing.ID
			continue
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			return nil, errors.Wrapf(err, "find customer %s", row.Email)
		}

		storeName, productName, ok := firstReviewed(c, row.Email)
		if !ok {
			slog.Warn("customer has no review to purchase for, skipping", slog.String("email", row.Email))
			continue
		}
		productID := products[productName]
		p, err := db.products.GetByID(ctx, productID)
		if err != nil {
			return nil, errors.Wrapf(err, "get product %q", productName)
		}

		res, err := db.orders.PlaceOrder(ctx, order.PlaceOrderRequest{
			CustomerName:  row.Name,
			CustomerEmail: row.Email,
			CustomerPhone: row.Phone,
			StoreID:       stores[storeName],
			TotalPrice:    p.Price,
			Items:         []order.LineItem{{ProductID: productID, Quantity: 1, Price: p.Price}},
		})
		if err != nil {
			return nil, errors.Wrapf(err, "place seed order for %s", row.Email)
		}
		ids[row.Email] = res.Customer.ID
		slog.Info("created customer",
			slog.Int64("id", res.Customer.ID),
			slog.String("email", res.Customer.Email),
			slog.Int64("order_id", res.Order.ID),
		)
	}
	return ids, nil
}

func firstReviewed(c *catalog, email string) (storeName, productName string, ok bool) {
	for _, r := range c.Reviews {
		if r.Customer == email {
			return r.Store, r.Product, true
		}
	}
	return "", "", false
}
