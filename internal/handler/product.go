package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/product"
)

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := h.decodeBody(w, r, &req, req.Decode); err != nil {
		writeError(w, r, err)
		return
	}
	p := req.toDomain()
	p.ID = 0
	if err := h.products.Create(r.Context(), p); err != nil {
		writeError(w, r, err)
		return
	}
	var e jx.Encoder
	encodeProduct(&e, *p)
	writeJSON(w, http.StatusCreated, &e)
}

// SearchProducts lists products narrowed by the name, category, storeId,
// sku, minPrice and maxPrice query parameters. Absent parameters do not
// filter.
func (h *Handler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	f, err := productFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ps, err := h.products.Search(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var e jx.Encoder
	encodeProducts(&e, ps)
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.products.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var e jx.Encoder
	encodeProduct(&e, *p)
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req productRequest
	if err := h.decodeBody(w, r, &req, req.Decode); err != nil {
		writeError(w, r, err)
		return
	}
	p := req.toDomain()
	p.ID = id
	if err := h.products.Update(r.Context(), p); err != nil {
		writeError(w, r, err)
		return
	}
	var e jx.Encoder
	encodeProduct(&e, *p)
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.products.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Product deleted", nil)
}

func productFilter(r *http.Request) (product.Filter, error) {
	f := product.Filter{
		Name:     queryString(r, "name"),
		Category: queryString(r, "category"),
		SKU:      queryString(r, "sku"),
	}
	var err error
	if f.StoreID, err = queryInt64(r, "storeId"); err != nil {
		return f, err
	}
	if f.MinPrice, err = queryDecimal(r, "minPrice"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = queryDecimal(r, "maxPrice"); err != nil {
		return f, err
	}
	return f, nil
}

func queryDecimal(r *http.Request, name string) (*decimal.Decimal, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, &requestError{msg: "invalid " + name}
	}
	return &d, nil
}
