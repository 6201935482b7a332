package shared

// DomainError is an error with a stable machine-readable code. Handlers
// map the code to an HTTP status; the message is safe to show callers.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *DomainError) Error() string { return e.Message }

// NewDomainError builds a DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// Sentinel errors shared across aggregates. Compare with errors.Is or by
// Code when the error crossed a wrapping boundary.
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrPriceNotFound       = NewDomainError("PRICE_NOT_FOUND", "No price schedule row applies")
	ErrReceiptAllocated    = NewDomainError("RECEIPT_ALLOCATED", "Receipt already allocated for this payment tier")
	ErrInsufficientBalance = NewDomainError("INSUFFICIENT_BALANCE", "Deduction exceeds outstanding advance balance")
)
