// Package pool holds harvested API values for the load generator. Responses
// from earlier requests feed the pool, later requests draw real grower IDs,
// batch IDs and cheque numbers back out of it instead of inventing them.
package pool

import (
	"sync/atomic"
	"time"
)

// SemanticType classifies a harvested value, e.g. "entity.grower.id" or
// "payment.batch.id". Types use dotted lowercase segments: a coarse domain,
// an entity and the field.
type SemanticType string

// Semantic types harvested from the payment batch API.
const (
	SemanticTypeGrowerID  SemanticType = "entity.grower.id"
	SemanticTypeProductID SemanticType = "entity.product.id"
	SemanticTypeProcessID SemanticType = "entity.process.id"
	SemanticTypeDepotID   SemanticType = "entity.depot.id"
	SemanticTypeActorID   SemanticType = "entity.actor.id"
	SemanticTypeReceiptID SemanticType = "entity.receipt.id"

	SemanticTypeBatchID   SemanticType = "payment.batch.id"
	SemanticTypeAdvanceID SemanticType = "payment.advance.id"
	SemanticTypeChequeID  SemanticType = "payment.cheque.id"

	SemanticTypeScheduleID SemanticType = "pricing.schedule.id"
	SemanticTypeCurrencyID SemanticType = "finance.currency.id"

	SemanticTypeEmail        SemanticType = "common.email"
	SemanticTypePhone        SemanticType = "common.phone"
	SemanticTypeAddress      SemanticType = "common.address"
	SemanticTypeGrowerNumber SemanticType = "common.grower_number"
	SemanticTypeChequeNumber SemanticType = "common.cheque_number"
	SemanticTypeTimestamp    SemanticType = "common.timestamp"
	SemanticTypeUUID         SemanticType = "common.uuid"
)

// ParameterValue is one harvested value plus its provenance and expiry.
// Value is treated as immutable once stored. Access bookkeeping uses
// atomics, so Touch may be called concurrently with reads.
type ParameterValue struct {
	// Value is the harvested payload, any JSON-compatible type.
	Value any

	// SemanticType says what kind of value this is.
	SemanticType SemanticType

	// SourceEndpoint is the request that produced the value,
	// e.g. "POST /api/v1/batches".
	SourceEndpoint string

	// ResponsePath is the JSONPath the value was extracted from,
	// e.g. "$.data.id".
	ResponsePath string

	// CreatedAt is when the value entered the pool.
	CreatedAt time.Time

	// ExpiresAt is when the value stops being served. Zero means it
	// never expires.
	ExpiresAt time.Time

	accessCount    atomic.Int64
	lastAccessedAt atomic.Int64 // Unix nanoseconds
}

// NewParameterValue wraps a harvested value. A ttl of 0 means no expiry.
func NewParameterValue(value any, semanticType SemanticType, ttl time.Duration) *ParameterValue {
	now := time.Now()
	pv := &ParameterValue{
		Value:        value,
		SemanticType: semanticType,
		CreatedAt:    now,
	}
	pv.lastAccessedAt.Store(now.UnixNano())
	if ttl > 0 {
		pv.ExpiresAt = now.Add(ttl)
	}
	return pv
}

// WithSource records where the value came from and returns the receiver.
func (pv *ParameterValue) WithSource(endpoint, path string) *ParameterValue {
	pv.SourceEndpoint = endpoint
	pv.ResponsePath = path
	return pv
}

// IsExpired reports whether the value's TTL has run out.
func (pv *ParameterValue) IsExpired() bool {
	return !pv.ExpiresAt.IsZero() && time.Now().After(pv.ExpiresAt)
}

// Touch records one retrieval.
func (pv *ParameterValue) Touch() {
	pv.accessCount.Add(1)
	pv.lastAccessedAt.Store(time.Now().UnixNano())
}

// AccessCount returns how many times the value has been retrieved.
func (pv *ParameterValue) AccessCount() int64 {
	return pv.accessCount.Load()
}

// LastAccessedAt returns the time of the most recent retrieval, or the
// creation time if the value has never been retrieved.
func (pv *ParameterValue) LastAccessedAt() time.Time {
	return time.Unix(0, pv.lastAccessedAt.Load())
}

// Age returns how long the value has been in the pool.
func (pv *ParameterValue) Age() time.Duration {
	return time.Since(pv.CreatedAt)
}

// Clone copies the value and its bookkeeping. The payload itself is
// shared, not deep-copied.
func (pv *ParameterValue) Clone() *ParameterValue {
	clone := &ParameterValue{
		Value:          pv.Value,
		SemanticType:   pv.SemanticType,
		SourceEndpoint: pv.SourceEndpoint,
		ResponsePath:   pv.ResponsePath,
		CreatedAt:      pv.CreatedAt,
		ExpiresAt:      pv.ExpiresAt,
	}
	clone.accessCount.Store(pv.accessCount.Load())
	clone.lastAccessedAt.Store(pv.lastAccessedAt.Load())
	return clone
}
