package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/inventory"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
)

var validationSentinels = []error{
	order.ErrEmptyItems,
	order.ErrCustomerEmailRequired,
	order.ErrNegativeTotal,
	product.ErrNameRequired,
	inventory.ErrProductMismatch,
	inventory.ErrNonPositiveQuantity,
}

// writeError maps err to a status code and writes {"code","message"}.
// Unclassified errors are logged and reported as a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := classify(err)
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request handling failed", zap.Error(err))
	}

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Int(status) })
		e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
	})
	writeJSON(w, status, &e)
}

func classify(err error) (int, string) {
	if msg, ok := validationError(err); ok {
		return http.StatusBadRequest, msg
	}

	var (
		nfErr    *apperr.NotFoundError
		dupErr   *apperr.DuplicateKeyError
		stockErr *order.InsufficientStockError
		intErr   *apperr.IntegrityError
	)
	switch {
	case errors.As(err, &nfErr):
		return http.StatusNotFound, nfErr.Error()
	case errors.As(err, &dupErr):
		return http.StatusConflict, dupErr.Error()
	case errors.As(err, &stockErr):
		return http.StatusConflict, stockErr.Error()
	case errors.Is(err, apperr.ErrInsufficientStock):
		return http.StatusConflict, apperr.ErrInsufficientStock.Error()
	case errors.As(err, &intErr):
		return http.StatusUnprocessableEntity, intErr.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func validationError(err error) (string, bool) {
	var (
		reqErr    *requestError
		qtyErr    *order.InvalidQuantityError
		priceErr  *order.InvalidPriceError
		pPriceErr *product.InvalidPriceError
		stockErr  *inventory.NegativeStockError
	)
	switch {
	case errors.As(err, &reqErr):
		return reqErr.Error(), true
	case errors.As(err, &qtyErr):
		return qtyErr.Error(), true
	case errors.As(err, &priceErr):
		return priceErr.Error(), true
	case errors.As(err, &pPriceErr):
		return pPriceErr.Error(), true
	case errors.As(err, &stockErr):
		return stockErr.Error(), true
	}
	for _, target := range validationSentinels {
		if errors.Is(err, target) {
			return target.Error(), true
		}
	}
	return "", false
}
