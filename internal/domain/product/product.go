package product

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

// Product represents a catalog item sold by stores.
type Product struct {
	ID       int64
	Name     string
	Category string
	Price    decimal.Decimal
	SKU      string
}

// Filter narrows product listings. A nil field is not part of the predicate;
// the zero Filter matches every product.
type Filter struct {
	// Name matches case-insensitively as a substring.
	Name     *string
	Category *string
	// StoreID keeps products that have an inventory row in the store.
	StoreID  *int64
	SKU      *string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
}

// NamePattern returns the LIKE pattern matching name as a literal
// substring. Backslash is the escape character.
func NamePattern(name string) string {
	return "%" + likeEscaper.Replace(name) + "%"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// IsZero reports whether no criteria are set.
func (f Filter) IsZero() bool {
	return f.Name == nil && f.Category == nil && f.StoreID == nil &&
		f.SKU == nil && f.MinPrice == nil && f.MaxPrice == nil
}

// Repository defines persistence operations for the product catalog.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	// Delete removes the product and its inventory rows atomically.
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*Product, error)
	FindByName(ctx context.Context, name string) (*Product, error)
	Search(ctx context.Context, f Filter) ([]Product, error)
}
