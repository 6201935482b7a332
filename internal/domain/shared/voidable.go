package shared

import "time"

// Voidable is the soft-void marker embedded in every reversible record.
// A single value replaces the per-table nullable delete columns the ledger
// schema would otherwise accumulate; "is this row still financially active"
// is answered by one predicate everywhere.
type Voidable struct {
	VoidedAt   *time.Time `gorm:"index"`
	VoidedBy   string     `gorm:"type:varchar(100)"`
	VoidReason string     `gorm:"type:varchar(500)"`
}

// IsActive reports whether the record has not been voided
func (v Voidable) IsActive() bool {
	return v.VoidedAt == nil
}

// IsVoided reports whether the record has been voided
func (v Voidable) IsVoided() bool {
	return v.VoidedAt != nil
}

// MarkVoided stamps the record as voided. Calling it on an already-voided
// record is a no-op so void paths stay idempotent.
func (v *Voidable) MarkVoided(actor, reason string) bool {
	if v.VoidedAt != nil {
		return false
	}
	now := time.Now()
	v.VoidedAt = &now
	v.VoidedBy = actor
	v.VoidReason = reason
	return true
}
