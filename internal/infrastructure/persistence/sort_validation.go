package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	if strings.ToUpper(strings.TrimSpace(orderDir)) == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// orderClause builds a whitelisted ORDER BY clause, falling back to created_at DESC.
func orderClause(orderBy, orderDir string, allowed map[string]bool) string {
	field := ValidateSortField(orderBy, allowed, "")
	if field == "" {
		return "created_at DESC"
	}
	return field + " " + ValidateSortOrder(orderDir)
}

// PurchaseOrderSortFields contains allowed sort fields for purchase orders
var PurchaseOrderSortFields = map[string]bool{
	"created_at":             true,
	"updated_at":             true,
	"po_number":              true,
	"vendor_name":            true,
	"status":                 true,
	"total_amount":           true,
	"expected_delivery_date": true,
}

// InvoiceSortFields contains allowed sort fields for invoices
var InvoiceSortFields = map[string]bool{
	"created_at":     true,
	"updated_at":     true,
	"invoice_number": true,
	"invoice_date":   true,
	"due_date":       true,
	"status":         true,
	"payment_status": true,
	"total_amount":   true,
	"due_amount":     true,
}

// VendorSortFields contains allowed sort fields for vendors
var VendorSortFields = map[string]bool{
	"created_at":  true,
	"name":        true,
	"trust_score": true,
}
