// Package order implements order placement: resolving the customer and store,
// verifying and decrementing per-store stock, and recording the order header
// and its lines inside a single transaction.
package order
