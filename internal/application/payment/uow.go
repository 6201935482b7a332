package payment

import (
	"context"

	"github.com/harvestpay/backend/internal/domain/grower"
	"github.com/harvestpay/backend/internal/domain/payment"
	"github.com/harvestpay/backend/internal/domain/pricing"
)

// TxRepos is the repository set bound to one transaction. Posting and
// voiding compose their writes through it so a single rollback undoes
// everything.
type TxRepos interface {
	Batches() payment.PaymentBatchRepository
	Cheques() payment.ChequeRepository
	Advances() payment.AdvanceChequeRepository
	Deductions() payment.AdvanceDeductionRepository
	Allocations() payment.AllocationRepository
	Accounts() payment.AccountRepository
	AuditLogs() payment.AuditLogRepository
	Exceptions() payment.ExceptionRepository
	Sequences() payment.NumberSequenceRepository
	PriceLocks() pricing.PriceLockRepository
	Growers() grower.GrowerRepository
	Receipts() grower.ReceiptRepository

	// Savepoint runs fn inside a nested transaction on the current one. A
	// returned error rolls back only the nested work; the outer transaction
	// decides whether to continue.
	Savepoint(ctx context.Context, fn func(tx TxRepos) error) error
}

// UnitOfWork opens a database transaction and hands the callback
// transaction-bound repositories. An error from fn rolls everything back.
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(ctx context.Context, tx TxRepos) error) error
}
