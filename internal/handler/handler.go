// Package handler exposes the storefront services as a JSON HTTP API on a
// net/http ServeMux.
package handler

import (
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-playground/validator/v10"

	"github.com/xenking/storefront/internal/domain/inventory"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/review"
	"github.com/xenking/storefront/internal/domain/store"
)

const maxBodyBytes = 1 << 20

// Services groups the domain services served over HTTP.
type Services struct {
	Orders    *order.Service
	Products  *product.Service
	Inventory *inventory.Service
	Stores    *store.Service
	Reviews   *review.Service
}

// Handler serves the /api routes.
type Handler struct {
	orders    *order.Service
	products  *product.Service
	inventory *inventory.Service
	stores    *store.Service
	reviews   *review.Service
	validate  *validator.Validate
}

// NewHandler constructs a Handler over the given services.
func NewHandler(s Services) *Handler {
	return &Handler{
		orders:    s.Orders,
		products:  s.Products,
		inventory: s.Inventory,
		stores:    s.Stores,
		reviews:   s.Reviews,
		validate:  newValidator(),
	}
}

// Register adds the API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/order", h.PlaceOrder)
	mux.HandleFunc("GET /api/order/{id}", h.GetOrder)

	mux.HandleFunc("POST /api/store", h.CreateStore)
	mux.HandleFunc("GET /api/store", h.ListStores)
	mux.HandleFunc("GET /api/store/{id}", h.GetStore)
	mux.HandleFunc("GET /api/store/{id}/validate", h.ValidateStore)

	mux.HandleFunc("POST /api/product", h.CreateProduct)
	mux.HandleFunc("GET /api/product", h.SearchProducts)
	mux.HandleFunc("GET /api/product/{id}", h.GetProduct)
	mux.HandleFunc("PUT /api/product/{id}", h.UpdateProduct)
	mux.HandleFunc("DELETE /api/product/{id}", h.DeleteProduct)

	mux.HandleFunc("POST /api/inventory", h.CreateInventory)
	mux.HandleFunc("PUT /api/inventory", h.UpdateInventory)
	mux.HandleFunc("DELETE /api/inventory/product/{productId}", h.DeleteProductInventory)
	mux.HandleFunc("GET /api/inventory/store/{storeId}", h.StoreProducts)
	mux.HandleFunc("GET /api/inventory/validate", h.ValidateQuantity)

	mux.HandleFunc("GET /api/review/{storeId}/{productId}", h.ListReviews)
}

func newValidator() *validator.Validate {
	v := validator.New()
	// Report JSON names in validation messages.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeBody reads the request body and hands it to decode, then validates
// dst.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, dst any, decode func(d *jx.Decoder) error) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return &requestError{msg: "unable to read request body"}
	}
	if err := decode(jx.DecodeBytes(body)); err != nil {
		return &requestError{msg: "invalid request body: " + err.Error()}
	}
	if err := h.validate.Struct(dst); err != nil {
		return &requestError{msg: validationMessage(err)}
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, &requestError{msg: "invalid " + name}
	}
	return id, nil
}

func queryInt64(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, &requestError{msg: "invalid " + name}
	}
	return &v, nil
}

func queryString(r *http.Request, name string) *string {
	q := r.URL.Query()
	if !q.Has(name) {
		return nil
	}
	v := q.Get(name)
	return &v
}

func requireQueryInt64(r *http.Request, name string) (int64, error) {
	v, err := queryInt64(r, name)
	if err != nil {
		return 0, err
	}
	if v == nil {
		return 0, &requestError{msg: name + " is required"}
	}
	return *v, nil
}

// writeJSON writes e with the given status.
func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeMessage(w http.ResponseWriter, status int, msg string, extra func(e *jx.Encoder)) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
		if extra != nil {
			extra(e)
		}
	})
	writeJSON(w, status, &e)
}

// requestError is a malformed or invalid request.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func validationMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return err.Error()
	}
	fe := ve[0]
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "gt":
		return field + " must be greater than " + fe.Param()
	case "gte", "min":
		if fe.Kind() == reflect.Slice {
			return field + " must contain at least " + fe.Param() + " item(s)"
		}
		return field + " must be at least " + fe.Param()
	case "max", "lte":
		return field + " must be at most " + fe.Param()
	default:
		return field + " is invalid"
	}
}
