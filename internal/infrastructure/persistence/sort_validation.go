package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
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

// Common allowed sort fields for entities with base fields
// These are the common fields present in most entities

// CommonSortFields contains fields common to most entities
var CommonSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
}

// BatchSortFields contains allowed sort fields for payment batches
var BatchSortFields = map[string]bool{
	"id":               true,
	"created_at":       true,
	"updated_at":       true,
	"batch_number":     true,
	"batch_date":       true,
	"cutoff_date":      true,
	"crop_year":        true,
	"advance_number":   true,
	"payment_type":     true,
	"status":           true,
	"pay_group":        true,
	"total_growers":    true,
	"total_receipts":   true,
	"total_gross":      true,
	"total_deductions": true,
	"total_net":        true,
	"posted_at":        true,
	"finalized_at":     true,
}

// ChequeSortFields contains allowed sort fields for cheques
var ChequeSortFields = map[string]bool{
	"id":            true,
	"created_at":    true,
	"updated_at":    true,
	"cheque_number": true,
	"cheque_date":   true,
	"series":        true,
	"grower_id":     true,
	"amount":        true,
	"status":        true,
	"printed_at":    true,
	"delivered_at":  true,
}

// AdvanceChequeSortFields contains allowed sort fields for grower advances
var AdvanceChequeSortFields = map[string]bool{
	"id":                 true,
	"created_at":         true,
	"updated_at":         true,
	"advance_number":     true,
	"grower_id":          true,
	"issued_date":        true,
	"original_amount":    true,
	"outstanding_amount": true,
	"status":             true,
}

// GrowerSortFields contains allowed sort fields for growers
var GrowerSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"number":     true,
	"name":       true,
	"pay_group":  true,
	"on_hold":    true,
	"active":     true,
}

// ReceiptSortFields contains allowed sort fields for receipts
var ReceiptSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"updated_at":     true,
	"receipt_number": true,
	"receipt_date":   true,
	"grower_id":      true,
	"product_id":     true,
	"depot_id":       true,
	"crop_year":      true,
	"net_weight":     true,
}

// ExceptionSortFields contains allowed sort fields for payment exceptions
var ExceptionSortFields = map[string]bool{
	"id":          true,
	"created_at":  true,
	"updated_at":  true,
	"code":        true,
	"severity":    true,
	"entity_type": true,
	"status":      true,
	"detected_at": true,
	"resolved_at": true,
}
