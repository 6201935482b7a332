package persistence

import (
	"context"

	apppayment "github.com/harvestpay/backend/internal/application/payment"
	"github.com/harvestpay/backend/internal/domain/grower"
	"github.com/harvestpay/backend/internal/domain/payment"
	"github.com/harvestpay/backend/internal/domain/pricing"
	"gorm.io/gorm"
)

// GormUnitOfWork opens one database transaction per Execute call and hands
// the callback repositories bound to it. Posting and voiding write cheques,
// allocations, deductions, ledger entries and audit rows through a single
// transaction so any error undoes all of it.
type GormUnitOfWork struct {
	db *gorm.DB
}

// NewGormUnitOfWork creates a new GormUnitOfWork
func NewGormUnitOfWork(db *gorm.DB) *GormUnitOfWork {
	return &GormUnitOfWork{db: db}
}

// Execute runs fn inside a database transaction
func (u *GormUnitOfWork) Execute(ctx context.Context, fn func(ctx context.Context, tx apppayment.TxRepos) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, newGormTxRepos(tx))
	})
}

// gormTxRepos binds every repository to one open transaction
type gormTxRepos struct {
	tx          *gorm.DB
	batches     *GormPaymentBatchRepository
	cheques     *GormChequeRepository
	advances    *GormAdvanceChequeRepository
	deductions  *GormAdvanceDeductionRepository
	allocations *GormAllocationRepository
	accounts    *GormAccountRepository
	auditLogs   *GormAuditLogRepository
	exceptions  *GormExceptionRepository
	sequences   *GormNumberSequenceRepository
	priceLocks  *GormPriceLockRepository
	growers     *GormGrowerRepository
	receipts    *GormReceiptRepository
}

func newGormTxRepos(tx *gorm.DB) *gormTxRepos {
	return &gormTxRepos{
		tx:          tx,
		batches:     NewGormPaymentBatchRepository(tx),
		cheques:     NewGormChequeRepository(tx),
		advances:    NewGormAdvanceChequeRepository(tx),
		deductions:  NewGormAdvanceDeductionRepository(tx),
		allocations: NewGormAllocationRepository(tx),
		accounts:    NewGormAccountRepository(tx),
		auditLogs:   NewGormAuditLogRepository(tx),
		exceptions:  NewGormExceptionRepository(tx),
		sequences:   NewGormNumberSequenceRepository(tx),
		priceLocks:  NewGormPriceLockRepository(tx),
		growers:     NewGormGrowerRepository(tx),
		receipts:    NewGormReceiptRepository(tx),
	}
}

func (r *gormTxRepos) Batches() payment.PaymentBatchRepository        { return r.batches }
func (r *gormTxRepos) Cheques() payment.ChequeRepository              { return r.cheques }
func (r *gormTxRepos) Advances() payment.AdvanceChequeRepository      { return r.advances }
func (r *gormTxRepos) Deductions() payment.AdvanceDeductionRepository { return r.deductions }
func (r *gormTxRepos) Allocations() payment.AllocationRepository      { return r.allocations }
func (r *gormTxRepos) Accounts() payment.AccountRepository            { return r.accounts }
func (r *gormTxRepos) AuditLogs() payment.AuditLogRepository          { return r.auditLogs }
func (r *gormTxRepos) Exceptions() payment.ExceptionRepository        { return r.exceptions }
func (r *gormTxRepos) Sequences() payment.NumberSequenceRepository    { return r.sequences }
func (r *gormTxRepos) PriceLocks() pricing.PriceLockRepository        { return r.priceLocks }
func (r *gormTxRepos) Growers() grower.GrowerRepository               { return r.growers }
func (r *gormTxRepos) Receipts() grower.ReceiptRepository             { return r.receipts }

// Savepoint runs fn inside a nested transaction on the current one. GORM
// issues SAVEPOINT/ROLLBACK TO for nested transactions, so a failed grower
// rolls back alone while the batch transaction continues.
func (r *gormTxRepos) Savepoint(ctx context.Context, fn func(tx apppayment.TxRepos) error) error {
	return r.tx.WithContext(ctx).Transaction(func(nested *gorm.DB) error {
		return fn(newGormTxRepos(nested))
	})
}
