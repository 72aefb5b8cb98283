package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/inventory"
)

func (h *Handler) CreateInventory(w http.ResponseWriter, r *http.Request) {
	var req inventoryRequest
	if err := h.decodeBody(w, r, &req, req.Decode); err != nil {
		writeError(w, r, err)
		return
	}
	inv := &inventory.Inventory{
		ProductID:  req.ProductID,
		StoreID:    req.StoreID,
		StockLevel: req.StockLevel,
	}
	if err := h.inventory.Create(r.Context(), inv); err != nil {
		writeError(w, r, err)
		return
	}
	var e jx.Encoder
	encodeInventory(&e, *inv)
	writeJSON(w, http.StatusCreated, &e)
}

// UpdateInventory replaces the stock level of an existing row. A product
// payload, when present, is saved in the same transaction.
func (h *Handler) UpdateInventory(w http.ResponseWriter, r *http.Request) {
	var req inventoryRequest
	if err := h.decodeBody(w, r, &req, req.Decode); err != nil {
		writeError(w, r, err)
		return
	}
	upd := inventory.UpdateRequest{
		ProductID:  req.ProductID,
		StoreID:    req.StoreID,
		StockLevel: req.StockLevel,
	}
	if req.Product != nil {
		upd.Product = req.Product.toDomain()
		if upd.Product.ID == 0 {
			upd.Product.ID = req.ProductID
		}
	}
	inv, err := h.inventory.Update(r.Context(), upd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var e jx.Encoder
	encodeInventory(&e, *inv)
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) DeleteProductInventory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "productId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.inventory.DeleteByProduct(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Inventory deleted", nil)
}

// StoreProducts lists the products stocked in a store, optionally narrowed by
// name and category.
func (h *Handler) StoreProducts(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "storeId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	ps, err := h.inventory.StoreProducts(r.Context(), id, queryString(r, "name"), queryString(r, "category"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	var e jx.Encoder
	encodeProducts(&e, ps)
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) ValidateQuantity(w http.ResponseWriter, r *http.Request) {
	productID, err := requireQueryInt64(r, "productId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	storeID, err := requireQueryInt64(r, "storeId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	qty, err := requireQueryInt64(r, "quantity")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if qty <= 0 {
		writeError(w, r, &requestError{msg: "quantity must be greater than 0"})
		return
	}
	ok, err := h.inventory.HasStock(r.Context(), productID, storeID, int(qty))
	if err != nil {
		writeError(w, r, err)
		return
	}
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("available", func(e *jx.Encoder) { e.Bool(ok) })
	})
	writeJSON(w, http.StatusOK, &e)
}
