package payment

import "fmt"

// PaymentType distinguishes sequential advance payments from the final
// settlement of a crop year.
type PaymentType string

const (
	PaymentTypeAdvance PaymentType = "ADVANCE"
	PaymentTypeFinal   PaymentType = "FINAL"
)

// IsValid checks if the payment type is valid
func (t PaymentType) IsValid() bool {
	return t == PaymentTypeAdvance || t == PaymentTypeFinal
}

// String returns the string representation of PaymentType
func (t PaymentType) String() string {
	return string(t)
}

// TypeCode renders the short code used in batch numbers: ADV1, ADV2, ...,
// FINL. Advance numbering is open-ended.
func TypeCode(paymentType PaymentType, advanceNumber int) string {
	if paymentType == PaymentTypeFinal {
		return "FINL"
	}
	return fmt.Sprintf("ADV%d", advanceNumber)
}

// BatchStatus represents the lifecycle state of a payment batch
type BatchStatus string

const (
	BatchStatusDraft     BatchStatus = "DRAFT"     // Calculated preview, nothing posted
	BatchStatusPosted    BatchStatus = "POSTED"    // Cheques/ledger/allocations written, totals fixed
	BatchStatusFinalized BatchStatus = "FINALIZED" // Closed for edits
	BatchStatusVoided    BatchStatus = "VOIDED"    // Reversed
)

// IsValid checks if the status is a valid BatchStatus
func (s BatchStatus) IsValid() bool {
	switch s {
	case BatchStatusDraft, BatchStatusPosted, BatchStatusFinalized, BatchStatusVoided:
		return true
	}
	return false
}

// String returns the string representation of BatchStatus
func (s BatchStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the batch can never transition again
func (s BatchStatus) IsTerminal() bool {
	return s == BatchStatusFinalized || s == BatchStatusVoided
}

// CanPost returns true if the batch can be approved and posted
func (s BatchStatus) CanPost() bool {
	return s == BatchStatusDraft
}

// CanFinalize returns true if the batch can be finalized
func (s BatchStatus) CanFinalize() bool {
	return s == BatchStatusPosted
}

// CanVoid returns true if the batch can be rolled back
func (s BatchStatus) CanVoid() bool {
	return s == BatchStatusDraft || s == BatchStatusPosted
}

// ChequeStatus tracks a cheque from generation to delivery
type ChequeStatus string

const (
	ChequeStatusGenerated ChequeStatus = "GENERATED"
	ChequeStatusPrinted   ChequeStatus = "PRINTED"
	ChequeStatusDelivered ChequeStatus = "DELIVERED"
	ChequeStatusVoided    ChequeStatus = "VOIDED"
)

// IsValid checks if the status is a valid ChequeStatus
func (s ChequeStatus) IsValid() bool {
	switch s {
	case ChequeStatusGenerated, ChequeStatusPrinted, ChequeStatusDelivered, ChequeStatusVoided:
		return true
	}
	return false
}

// String returns the string representation of ChequeStatus
func (s ChequeStatus) String() string {
	return string(s)
}

// AdvanceChequeStatus tracks a standalone advance through drawdown
type AdvanceChequeStatus string

const (
	AdvanceStatusActive            AdvanceChequeStatus = "ACTIVE"
	AdvanceStatusPartiallyDeducted AdvanceChequeStatus = "PARTIALLY_DEDUCTED"
	AdvanceStatusFullyDeducted     AdvanceChequeStatus = "FULLY_DEDUCTED"
	AdvanceStatusCancelled         AdvanceChequeStatus = "CANCELLED"
)

// IsValid checks if the status is a valid AdvanceChequeStatus
func (s AdvanceChequeStatus) IsValid() bool {
	switch s {
	case AdvanceStatusActive, AdvanceStatusPartiallyDeducted, AdvanceStatusFullyDeducted, AdvanceStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of AdvanceChequeStatus
func (s AdvanceChequeStatus) String() string {
	return string(s)
}

// HasOutstanding returns true if the advance can still be drawn down
func (s AdvanceChequeStatus) HasOutstanding() bool {
	return s == AdvanceStatusActive || s == AdvanceStatusPartiallyDeducted
}

// AccountEntryType classifies ledger rows
type AccountEntryType string

const (
	EntryTypeAdvance    AccountEntryType = "ADVANCE"
	EntryTypeDeduction  AccountEntryType = "DEDUCTION"
	EntryTypeFinal      AccountEntryType = "FINAL"
	EntryTypeAdjustment AccountEntryType = "ADJUSTMENT"
)

// IsValid checks if the entry type is valid
func (t AccountEntryType) IsValid() bool {
	switch t {
	case EntryTypeAdvance, EntryTypeDeduction, EntryTypeFinal, EntryTypeAdjustment:
		return true
	}
	return false
}

// String returns the string representation of AccountEntryType
func (t AccountEntryType) String() string {
	return string(t)
}
