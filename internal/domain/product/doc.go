// Package product contains the catalog entity, its search filter and the
// service enforcing unique product names.
package product
