package payment

import (
	"github.com/google/uuid"
	"github.com/harvestpay/backend/internal/domain/shared"
)

// VoidTargetKind discriminates what a void request points at
type VoidTargetKind string

const (
	VoidTargetCheque        VoidTargetKind = "CHEQUE"
	VoidTargetAdvanceCheque VoidTargetKind = "ADVANCE_CHEQUE"
	VoidTargetBatch         VoidTargetKind = "BATCH"
	VoidTargetDistribution  VoidTargetKind = "DISTRIBUTION"
)

// IsValid checks if the target kind is known
func (k VoidTargetKind) IsValid() bool {
	switch k {
	case VoidTargetCheque, VoidTargetAdvanceCheque, VoidTargetBatch, VoidTargetDistribution:
		return true
	}
	return false
}

// VoidRequest is the single entry point for all reversals. ReverseAccounting
// controls whether offsetting ledger entries are written; allocations and
// deductions are always released so the receipts become payable again.
type VoidRequest struct {
	Kind              VoidTargetKind
	TargetID          uuid.UUID
	Actor             string
	Reason            string
	ReverseAccounting bool
}

// Validate checks the request before any work starts
func (r VoidRequest) Validate() error {
	if !r.Kind.IsValid() {
		return shared.NewDomainError("INVALID_VOID_TARGET", "Unknown void target kind")
	}
	if r.TargetID == uuid.Nil {
		return shared.NewDomainError("INVALID_VOID_TARGET", "Void target ID is required")
	}
	if r.Actor == "" {
		return shared.NewDomainError("INVALID_ACTOR", "Voiding actor is required")
	}
	if r.Reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Void reason is required")
	}
	return nil
}

// VoidOutcome reports what a void actually changed. Re-running a completed
// void returns an outcome with every count at zero.
type VoidOutcome struct {
	Kind                VoidTargetKind
	TargetID            uuid.UUID
	ChequesVoided       int
	AllocationsReleased int
	DeductionsReversed  int
	EntriesReversed     int
	AlreadyVoided       bool
}

// Changed reports whether the void did any work
func (o VoidOutcome) Changed() bool {
	return o.ChequesVoided > 0 || o.AllocationsReleased > 0 || o.DeductionsReversed > 0 || o.EntriesReversed > 0
}
