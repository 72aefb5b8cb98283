package handler

import (
	"net/http"

	"github.com/go-faster/jx"
)

// ListReviews handles GET /api/review/{storeId}/{productId}.
func (h *Handler) ListReviews(w http.ResponseWriter, r *http.Request) {
	storeID, err := pathID(r, "storeId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	productID, err := pathID(r, "productId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	rs, err := h.reviews.List(r.Context(), storeID, productID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var e jx.Encoder
	encodeReviews(&e, rs)
	writeJSON(w, http.StatusOK, &e)
}
