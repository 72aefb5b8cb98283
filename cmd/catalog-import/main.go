// Command catalog-import bulk loads products from gzip-compressed CSV files
// (name,category,price,sku per line) into PostgreSQL. Names already present
// in the catalog or seen earlier in the input are skipped.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/inventory"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/storage/postgres"
)

const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.001
	progressEvery = 10_000
)

type options struct {
	workers int
	storeID int64
	stock   int
}

type stats struct {
	read     atomic.Int64
	created  atomic.Int64
	skipped  atomic.Int64
	rejected atomic.Int64
}

func main() {
	var (
		dataDir     string
		databaseURL string
		opts        options
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing *.csv.gz catalog files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&opts.workers, "workers", 8, "concurrent inserts")
	flag.Int64Var(&opts.storeID, "store-id", 0, "stock imported products in this store")
	flag.IntVar(&opts.stock, "stock", 0, "initial stock level when --store-id is set")
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

	if err := run(ctx, dataDir, databaseURL, opts); err != nil {
		slog.Error("catalog import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog import completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string, opts options) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.csv.gz"))
	if err != nil {
		return errors.Wrap(err, "list catalog files")
	}
	if len(files) == 0 {
		return errors.Errorf("no *.csv.gz files in %s", dataDir)
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL, postgres.PoolOptions{MaxConns: int32(opts.workers + 1)})
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	imp := &importer{
		products:  postgres.NewProductRepository(pool),
		inventory: postgres.NewInventoryRepository(pool),
		opts:      opts,
	}
	if err := imp.loadExisting(ctx); err != nil {
		return errors.Wrap(err, "load existing catalog")
	}

	st, err := imp.importFiles(ctx, files)
	if err != nil {
		return err
	}
	slog.Info("import summary",
		slog.Int64("read", st.read.Load()),
		slog.Int64("created", st.created.Load()),
		slog.Int64("skipped", st.skipped.Load()),
		slog.Int64("rejected", st.rejected.Load()),
	)
	return nil
}

type importer struct {
	products  product.Repository
	inventory inventory.Repository
	opts      options

	// known holds lowercased names already in the catalog. It is only read
	// once the import starts.
	known *bloom.BloomFilter
}

// loadExisting fills the bloom filter with the names currently stored.
func (imp *importer) loadExisting(ctx context.Context) error {
	imp.known = bloom.NewWithEstimates(bloomCapacity, bloomFPR)

	existing, err := imp.products.Search(ctx, product.Filter{})
	if err != nil {
		return err
	}
	for _, p := range existing {
		imp.known.AddString(strings.ToLower(p.Name))
	}
	slog.Info("loaded existing catalog", slog.Int("products", len(existing)))
	return nil
}

// importFiles streams every file concurrently into a bounded pool of insert
// workers.
func (imp *importer) importFiles(ctx context.Context, files []string) (*stats, error) {
	var st stats
	records := make(chan record, imp.opts.workers*4)

	// Readers stop as soon as a writer fails.
	writers, wctx := errgroup.WithContext(ctx)
	readers, rctx := errgroup.WithContext(wctx)

	for _, f := range files {
		readers.Go(func() error {
			return streamCatalog(rctx, f, func(rec record) error {
				select {
				case records <- rec:
					return nil
				case <-rctx.Done():
					return rctx.Err()
				}
			})
		})
	}

	for range max(imp.opts.workers, 1) {
		writers.Go(func() error {
			for rec := range records {
				if err := imp.insert(wctx, rec, &st); err != nil {
					return err
				}
			}
			return nil
		})
	}

	readErr := readers.Wait()
	close(records)
	writeErr := writers.Wait()

	if writeErr != nil {
		return nil, errors.Wrap(writeErr, "write catalog")
	}
	if readErr != nil {
		return nil, errors.Wrap(readErr, "read catalog")
	}
	return &st, nil
}

func (imp *importer) insert(ctx context.Context, rec record, st *stats) error {
	n := st.read.Add(1)
	if n%progressEvery == 0 {
		slog.Info("import progress", slog.Int64("records", n))
	}

	if rec.err != nil {
		st.rejected.Add(1)
		slog.Warn("rejected record", slog.String("source", rec.source), slog.String("error", rec.err.Error()))
		return nil
	}

	p := rec.product
	if imp.known.TestString(strings.ToLower(p.Name)) {
		// Bloom filter hits may be false positives; confirm before skipping.
		_, err := imp.products.FindByName(ctx, p.Name)
		switch {
		case err == nil:
			st.skipped.Add(1)
			return nil
		case !errors.Is(err, apperr.ErrNotFound):
			return errors.Wrapf(err, "find product %q", p.Name)
		}
	}

	if err := imp.products.Create(ctx, &p); err != nil {
		if errors.Is(err, apperr.ErrDuplicateKey) {
			// Same name earlier in the input.
			st.skipped.Add(1)
			return nil
		}
		if errors.Is(err, apperr.ErrIntegrityViolation) {
			st.rejected.Add(1)
			slog.Warn("rejected product", slog.String("source", rec.source), slog.String("error", err.Error()))
			return nil
		}
		return errors.Wrapf(err, "create product %q", p.Name)
	}
	st.created.Add(1)

	if imp.opts.storeID == 0 {
		return nil
	}
	inv := inventory.Inventory{ProductID: p.ID, StoreID: imp.opts.storeID, StockLevel: imp.opts.stock}
	if err := imp.inventory.Create(ctx, &inv); err != nil {
		return errors.Wrapf(err, "create inventory %s", inv.Key())
	}
	return nil
}
