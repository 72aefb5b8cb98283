package handler

import (
	"net/http"

	"github.com/go-faster/jx"
)

// PlaceOrder handles POST /api/order.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := h.decodeBody(w, r, &req, req.Decode); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.orders.PlaceOrder(r.Context(), req.toDomain())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusCreated, "Order placed successfully", func(e *jx.Encoder) {
		e.Field("orderId", func(e *jx.Encoder) { e.Int64(res.Order.ID) })
	})
}

// GetOrder handles GET /api/order/{id}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	v, err := h.orders.GetOrder(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var e jx.Encoder
	encodeOrder(&e, v)
	writeJSON(w, http.StatusOK, &e)
}
