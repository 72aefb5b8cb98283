package order

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/customer"
)

// Sentinel errors for order validation.
var (
	ErrEmptyItems            = errors.New("at least one purchased product required")
	ErrCustomerEmailRequired = errors.New("customer email required")
	ErrNegativeTotal         = errors.New("total price must not be negative")
)

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID int64
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %d", e.ProductID)
}

// InvalidPriceError indicates a line item has a negative unit price.
type InvalidPriceError struct {
	ProductID int64
}

func (e *InvalidPriceError) Error() string {
	return fmt.Sprintf("price must not be negative for product %d", e.ProductID)
}

// InsufficientStockError indicates the store holds fewer units of a product
// than requested.
type InsufficientStockError struct {
	ProductID int64
	StoreID   int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d in store %d: requested %d, available %d",
		e.ProductID, e.StoreID, e.Requested, e.Available)
}

// Is reports whether target is apperr.ErrInsufficientStock.
func (e *InsufficientStockError) Is(target error) bool { return target == apperr.ErrInsufficientStock }

// LineItem is one requested product line.
type LineItem struct {
	ProductID int64
	Quantity  int
	Price     decimal.Decimal
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	StoreID       int64
	TotalPrice    decimal.Decimal
	Items         []LineItem
}

// PlaceOrderResult holds the output of a successfully placed order.
type PlaceOrderResult struct {
	Order           Details
	Items           []Item
	Customer        customer.Customer
	CustomerCreated bool
}

// View is a placed order with its lines and customer.
type View struct {
	Order    Details
	Items    []Item
	Customer *customer.Customer
}

// Service encapsulates the order placement workflow.
type Service struct {
	uow       UnitOfWork
	orders    Repository
	customers customer.Repository
	now       func() time.Time

	tracer   trace.Tracer
	placed   metric.Int64Counter
	rejected metric.Int64Counter
}

// NewService creates an order Service.
func NewService(
	uow UnitOfWork,
	orders Repository,
	customers customer.Repository,
	tp trace.TracerProvider,
	mp metric.MeterProvider,
) (*Service, error) {
	meter := mp.Meter("storefront/order")
	placed, err := meter.Int64Counter("storefront.orders.placed",
		metric.WithDescription("Orders committed"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "orders placed counter")
	}
	rejected, err := meter.Int64Counter("storefront.orders.rejected",
		metric.WithDescription("Orders rolled back, by reason"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "orders rejected counter")
	}

	return &Service{
		uow:       uow,
		orders:    orders,
		customers: customers,
		now:       time.Now,
		tracer:    tp.Tracer("storefront/order"),
		placed:    placed,
		rejected:  rejected,
	}, nil
}

// PlaceOrder records one order atomically: customer resolution, the order
// header, every stock decrement and every order line commit together or not
// at all. The first violated precondition aborts the whole order.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	ctx, span := s.tracer.Start(ctx, "order.PlaceOrder", trace.WithAttributes(
		attribute.Int64("store.id", req.StoreID),
		attribute.Int("order.lines", len(req.Items)),
	))
	defer span.End()

	result, err := s.placeOrder(ctx, req)
	if err != nil {
		reason := rejectReason(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, reason)
		s.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
		zctx.From(ctx).Info("Order rejected",
			zap.Int64("store_id", req.StoreID),
			zap.String("reason", reason),
			zap.Error(err),
		)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int64("order.id", result.Order.ID),
		attribute.Int64("customer.id", result.Customer.ID),
	)
	s.placed.Add(ctx, 1, metric.WithAttributes(attribute.Int64("store.id", req.StoreID)))
	zctx.From(ctx).Info("Order placed",
		zap.Int64("order_id", result.Order.ID),
		zap.Int64("store_id", result.Order.StoreID),
		zap.Int64("customer_id", result.Customer.ID),
		zap.Bool("customer_created", result.CustomerCreated),
		zap.Int("lines", len(result.Items)),
	)
	return result, nil
}

func (s *Service) placeOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	var result *PlaceOrderResult
	err := s.uow.InTx(ctx, func(ctx context.Context, tx Tx) error {
		// The store is checked before anything is written.
		st, err := tx.FindStoreByID(ctx, req.StoreID)
		if err != nil {
			return err
		}

		c, created, err := resolveCustomer(ctx, tx, req)
		if err != nil {
			return err
		}

		if err := tx.LockInventory(ctx, st.ID, productIDs(req.Items)); err != nil {
			return errors.Wrap(err, "lock inventory")
		}

		details := Details{
			CustomerID: c.ID,
			StoreID:    st.ID,
			TotalPrice: req.TotalPrice,
			CreatedAt:  s.now().UTC(),
		}
		if err := tx.SaveOrderDetails(ctx, &details); err != nil {
			return errors.Wrap(err, "save order details")
		}

		items := make([]Item, 0, len(req.Items))
		for _, line := range req.Items {
			it, err := placeLine(ctx, tx, details, line)
			if err != nil {
				return err
			}
			items = append(items, *it)
		}

		result = &PlaceOrderResult{
			Order:           details,
			Items:           items,
			Customer:        *c,
			CustomerCreated: created,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// placeLine checks and decrements stock for one line and records it.
func placeLine(ctx context.Context, tx Tx, details Details, line LineItem) (*Item, error) {
	p, err := tx.FindProductByID(ctx, line.ProductID)
	if err != nil {
		return nil, err
	}

	inv, err := tx.FindInventory(ctx, p.ID, details.StoreID)
	if err != nil {
		return nil, err
	}
	if inv.StockLevel < line.Quantity {
		return nil, &InsufficientStockError{
			ProductID: p.ID,
			StoreID:   details.StoreID,
			Requested: line.Quantity,
			Available: inv.StockLevel,
		}
	}

	if err := tx.DecrementStock(ctx, inv, line.Quantity); err != nil {
		if errors.Is(err, apperr.ErrInsufficientStock) {
			return nil, &InsufficientStockError{
				ProductID: p.ID,
				StoreID:   details.StoreID,
				Requested: line.Quantity,
				Available: inv.StockLevel,
			}
		}
		return nil, errors.Wrapf(err, "decrement stock of product %d", p.ID)
	}

	it := &Item{
		OrderID:   details.ID,
		ProductID: p.ID,
		Quantity:  line.Quantity,
		Price:     line.Price,
	}
	if err := tx.SaveOrderItem(ctx, it); err != nil {
		return nil, errors.Wrapf(err, "save order item for product %d", p.ID)
	}
	return it, nil
}

// resolveCustomer finds the customer by email or creates it from the request.
func resolveCustomer(ctx context.Context, tx Tx, req PlaceOrderRequest) (*customer.Customer, bool, error) {
	c, err := tx.FindCustomerByEmail(ctx, req.CustomerEmail)
	if err == nil {
		return c, false, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, false, errors.Wrap(err, "find customer")
	}

	c = &customer.Customer{
		Name:  strings.TrimSpace(req.CustomerName),
		Email: req.CustomerEmail,
		Phone: strings.TrimSpace(req.CustomerPhone),
	}
	if err := tx.SaveCustomer(ctx, c); err != nil {
		return nil, false, errors.Wrap(err, "save customer")
	}
	return c, true, nil
}

func validateRequest(req *PlaceOrderRequest) error {
	req.CustomerEmail = customer.NormalizeEmail(req.CustomerEmail)
	if req.CustomerEmail == "" {
		return ErrCustomerEmailRequired
	}
	if len(req.Items) == 0 {
		return ErrEmptyItems
	}
	if req.TotalPrice.IsNegative() {
		return ErrNegativeTotal
	}
	for _, line := range req.Items {
		if line.Quantity <= 0 {
			return &InvalidQuantityError{ProductID: line.ProductID}
		}
		if line.Price.IsNegative() {
			return &InvalidPriceError{ProductID: line.ProductID}
		}
	}
	return nil
}

// productIDs returns the distinct product ids of items in ascending order.
func productIDs(items []LineItem) []int64 {
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

// rejectReason classifies err for metrics and span status.
func rejectReason(err error) string {
	var (
		iqErr *InvalidQuantityError
		ipErr *InvalidPriceError
	)
	switch {
	case errors.Is(err, apperr.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, apperr.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperr.ErrDuplicateKey):
		return "duplicate_key"
	case errors.Is(err, apperr.ErrIntegrityViolation):
		return "integrity_violation"
	case errors.Is(err, ErrEmptyItems), errors.Is(err, ErrCustomerEmailRequired),
		errors.Is(err, ErrNegativeTotal), errors.As(err, &iqErr), errors.As(err, &ipErr):
		return "invalid_request"
	default:
		return "internal"
	}
}

// GetOrder returns a placed order with its lines and customer.
func (s *Service) GetOrder(ctx context.Context, id int64) (*View, error) {
	details, items, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	v := &View{Order: *details, Items: items}
	c, err := s.customers.GetByID(ctx, details.CustomerID)
	switch {
	case err == nil:
		v.Customer = c
	case !errors.Is(err, apperr.ErrNotFound):
		return nil, errors.Wrap(err, "get customer")
	}
	return v, nil
}
