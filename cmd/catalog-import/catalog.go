package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/product"
)

// record is one parsed catalog line. err is set when the line is malformed.
type record struct {
	source  string
	product product.Product
	err     error
}

// streamCatalog opens a gzip-compressed CSV file and calls fn for each
// non-empty line. A header line starting with "name" is skipped.
func streamCatalog(ctx context.Context, path string, fn func(rec record) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	r := csv.NewReader(gz)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	for row := 1; ; row++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		source := fmt.Sprintf("%s#%d", path, row)
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				if err := fn(record{source: source, err: err}); err != nil {
					return err
				}
				continue
			}
			return errors.Wrapf(err, "read %s", source)
		}
		if row == 1 && len(fields) > 0 && strings.EqualFold(fields[0], "name") {
			continue
		}
		if err := fn(parseRecord(source, fields)); err != nil {
			return err
		}
	}
}

func parseRecord(source string, fields []string) record {
	rec := record{source: source}
	if len(fields) < 3 {
		rec.err = errors.Errorf("expected name,category,price[,sku], got %d fields", len(fields))
		return rec
	}
	name := strings.TrimSpace(fields[0])
	if name == "" {
		rec.err = errors.New("empty product name")
		return rec
	}
	price, err := decimal.NewFromString(strings.TrimSpace(fields[2]))
	if err != nil {
		rec.err = errors.Wrap(err, "parse price")
		return rec
	}
	if price.IsNegative() {
		rec.err = errors.Errorf("negative price %s", price)
		return rec
	}
	rec.product = product.Product{
		Name:     name,
		Category: strings.TrimSpace(fields[1]),
		Price:    price,
	}
	if len(fields) > 3 {
		rec.product.SKU = strings.TrimSpace(fields[3])
	}
	return rec
}
