package handler

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/customer"
	"github.com/xenking/storefront/internal/domain/inventory"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/review"
	"github.com/xenking/storefront/internal/domain/store"
)

type purchaseLine struct {
	ID       int64           `json:"id" validate:"required"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

type orderRequest struct {
	CustomerName    string          `json:"customerName"`
	CustomerEmail   string          `json:"customerEmail" validate:"required,email"`
	CustomerPhone   string          `json:"customerPhone"`
	StoreID         int64           `json:"storeId" validate:"required"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	PurchaseProduct []purchaseLine  `json:"purchaseProduct" validate:"dive"`
}

func (o *orderRequest) Decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) (err error) {
		switch string(key) {
		case "customerName":
			o.CustomerName, err = decodeString(d)
		case "customerEmail":
			o.CustomerEmail, err = decodeString(d)
		case "customerPhone":
			o.CustomerPhone, err = decodeString(d)
		case "storeId":
			o.StoreID, err = d.Int64()
		case "totalPrice":
			o.TotalPrice, err = decodeDecimal(d)
		case "purchaseProduct":
			err = d.Arr(func(d *jx.Decoder) error {
				var l purchaseLine
				if err := l.Decode(d); err != nil {
					return err
				}
				o.PurchaseProduct = append(o.PurchaseProduct, l)
				return nil
			})
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "decode %s", key)
		}
		return nil
	})
}

func (l *purchaseLine) Decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) (err error) {
		switch string(key) {
		case "id":
			l.ID, err = d.Int64()
		case "quantity":
			l.Quantity, err = d.Int()
		case "price":
			l.Price, err = decodeDecimal(d)
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "decode %s", key)
		}
		return nil
	})
}

func (o *orderRequest) toDomain() order.PlaceOrderRequest {
	req := order.PlaceOrderRequest{
		CustomerName:  o.CustomerName,
		CustomerEmail: o.CustomerEmail,
		CustomerPhone: o.CustomerPhone,
		StoreID:       o.StoreID,
		TotalPrice:    o.TotalPrice,
		Items:         make([]order.LineItem, 0, len(o.PurchaseProduct)),
	}
	for _, l := range o.PurchaseProduct {
		req.Items = append(req.Items, order.LineItem{ProductID: l.ID, Quantity: l.Quantity, Price: l.Price})
	}
	return req
}

type storeRequest struct {
	Name    string `json:"name" validate:"required"`
	Address string `json:"address"`
}

func (s *storeRequest) Decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) (err error) {
		switch string(key) {
		case "name":
			s.Name, err = decodeString(d)
		case "address":
			s.Address, err = decodeString(d)
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "decode %s", key)
		}
		return nil
	})
}

type productRequest struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name" validate:"required"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
	SKU      string          `json:"sku"`
}

func (p *productRequest) Decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) (err error) {
		switch string(key) {
		case "id":
			p.ID, err = d.Int64()
		case "name":
			p.Name, err = decodeString(d)
		case "category":
			p.Category, err = decodeString(d)
		case "price":
			p.Price, err = decodeDecimal(d)
		case "sku":
			p.SKU, err = decodeString(d)
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "decode %s", key)
		}
		return nil
	})
}

func (p *productRequest) toDomain() *product.Product {
	return &product.Product{
		ID:       p.ID,
		Name:     p.Name,
		Category: p.Category,
		Price:    p.Price,
		SKU:      p.SKU,
	}
}

type inventoryRequest struct {
	ProductID  int64           `json:"productId" validate:"required"`
	StoreID    int64           `json:"storeId" validate:"required"`
	StockLevel int             `json:"stockLevel"`
	Product    *productRequest `json:"product"`
}

func (i *inventoryRequest) Decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) (err error) {
		switch string(key) {
		case "productId":
			i.ProductID, err = d.Int64()
		case "storeId":
			i.StoreID, err = d.Int64()
		case "stockLevel":
			i.StockLevel, err = d.Int()
		case "product":
			if d.Next() == jx.Null {
				return d.Null()
			}
			i.Product = new(productRequest)
			err = i.Product.Decode(d)
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "decode %s", key)
		}
		return nil
	})
}

func decodeString(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

// decodeDecimal accepts a JSON number or a numeric string.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch tt := d.Next(); tt {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(s)
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(n.String())
	case jx.Null:
		return decimal.Zero, d.Null()
	default:
		return decimal.Zero, errors.Errorf("unexpected %s for decimal", tt)
	}
}

func encodeDecimal(e *jx.Encoder, d decimal.Decimal) {
	e.Raw([]byte(d.StringFixed(2)))
}

func encodeStore(e *jx.Encoder, s store.Store) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(s.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(s.Name) })
		e.Field("address", func(e *jx.Encoder) { e.Str(s.Address) })
	})
}

func encodeProduct(e *jx.Encoder, p product.Product) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(p.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
		e.Field("category", func(e *jx.Encoder) { e.Str(p.Category) })
		e.Field("price", func(e *jx.Encoder) { encodeDecimal(e, p.Price) })
		e.Field("sku", func(e *jx.Encoder) { e.Str(p.SKU) })
	})
}

func encodeProducts(e *jx.Encoder, ps []product.Product) {
	e.Arr(func(e *jx.Encoder) {
		for _, p := range ps {
			encodeProduct(e, p)
		}
	})
}

func encodeInventory(e *jx.Encoder, inv inventory.Inventory) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(inv.ID) })
		e.Field("productId", func(e *jx.Encoder) { e.Int64(inv.ProductID) })
		e.Field("storeId", func(e *jx.Encoder) { e.Int64(inv.StoreID) })
		e.Field("stockLevel", func(e *jx.Encoder) { e.Int(inv.StockLevel) })
	})
}

func encodeCustomer(e *jx.Encoder, c customer.Customer) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(c.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(c.Name) })
		e.Field("email", func(e *jx.Encoder) { e.Str(c.Email) })
		e.Field("phone", func(e *jx.Encoder) { e.Str(c.Phone) })
	})
}

func encodeOrder(e *jx.Encoder, v *order.View) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(v.Order.ID) })
		e.Field("customerId", func(e *jx.Encoder) { e.Int64(v.Order.CustomerID) })
		e.Field("storeId", func(e *jx.Encoder) { e.Int64(v.Order.StoreID) })
		e.Field("totalPrice", func(e *jx.Encoder) { encodeDecimal(e, v.Order.TotalPrice) })
		e.Field("createdAt", func(e *jx.Encoder) { e.Str(v.Order.CreatedAt.UTC().Format(time.RFC3339)) })
		if v.Customer != nil {
			e.Field("customer", func(e *jx.Encoder) { encodeCustomer(e, *v.Customer) })
		}
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, it := range v.Items {
					e.Obj(func(e *jx.Encoder) {
						e.Field("id", func(e *jx.Encoder) { e.Int64(it.ID) })
						e.Field("productId", func(e *jx.Encoder) { e.Int64(it.ProductID) })
						e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
						e.Field("price", func(e *jx.Encoder) { encodeDecimal(e, it.Price) })
					})
				}
			})
		})
	})
}

func encodeReviews(e *jx.Encoder, rs []review.Review) {
	e.Arr(func(e *jx.Encoder) {
		for _, r := range rs {
			e.Obj(func(e *jx.Encoder) {
				e.Field("id", func(e *jx.Encoder) { e.Int64(r.ID) })
				e.Field("storeId", func(e *jx.Encoder) { e.Int64(r.StoreID) })
				e.Field("productId", func(e *jx.Encoder) { e.Int64(r.ProductID) })
				e.Field("customerName", func(e *jx.Encoder) { e.Str(r.CustomerName) })
				e.Field("rating", func(e *jx.Encoder) { e.Int(r.Rating) })
				e.Field("comment", func(e *jx.Encoder) { e.Str(r.Comment) })
			})
		}
	})
}
