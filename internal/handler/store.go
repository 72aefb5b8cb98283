package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/store"
)

func (h *Handler) CreateStore(w http.ResponseWriter, r *http.Request) {
	var req storeRequest
	if err := h.decodeBody(w, r, &req, req.Decode); err != nil {
		writeError(w, r, err)
		return
	}
	st := &store.Store{Name: req.Name, Address: req.Address}
	if err := h.stores.Create(r.Context(), st); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusCreated, "Store created", func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(st.ID) })
	})
}

func (h *Handler) ListStores(w http.ResponseWriter, r *http.Request) {
	stores, err := h.stores.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	var e jx.Encoder
	e.Arr(func(e *jx.Encoder) {
		for _, st := range stores {
			encodeStore(e, st)
		}
	})
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) GetStore(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	st, err := h.stores.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var e jx.Encoder
	encodeStore(&e, *st)
	writeJSON(w, http.StatusOK, &e)
}

// ValidateStore reports whether the store exists; an unknown id is not an
// error here.
func (h *Handler) ValidateStore(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok, err := h.stores.Exists(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("valid", func(e *jx.Encoder) { e.Bool(ok) })
	})
	writeJSON(w, http.StatusOK, &e)
}
