package payment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/harvestpay/backend/internal/domain/grower"
	"github.com/harvestpay/backend/internal/domain/payment"
	"github.com/harvestpay/backend/internal/domain/pricing"
	"github.com/harvestpay/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// mockBatchRepo mocks payment.PaymentBatchRepository
type mockBatchRepo struct {
	mock.Mock
}

func (m *mockBatchRepo) Save(ctx context.Context, batch *payment.PaymentBatch) error {
	return m.Called(ctx, batch).Error(0)
}

func (m *mockBatchRepo) SaveWithLock(ctx context.Context, batch *payment.PaymentBatch) error {
	return m.Called(ctx, batch).Error(0)
}

func (m *mockBatchRepo) FindByID(ctx context.Context, id uuid.UUID) (*payment.PaymentBatch, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.PaymentBatch), args.Error(1)
}

func (m *mockBatchRepo) FindByNumber(ctx context.Context, batchNumber string) (*payment.PaymentBatch, error) {
	args := m.Called(ctx, batchNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.PaymentBatch), args.Error(1)
}

func (m *mockBatchRepo) List(ctx context.Context, filter payment.BatchFilter) (*shared.Paginated[*payment.PaymentBatch], error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[*payment.PaymentBatch]), args.Error(1)
}

func (m *mockBatchRepo) ExistsPosted(ctx context.Context, cropYear, advanceNumber int, payGroup *string) (bool, error) {
	args := m.Called(ctx, cropYear, advanceNumber, payGroup)
	return args.Bool(0), args.Error(1)
}

func (m *mockBatchRepo) FindByConsolidatedInto(ctx context.Context, distributionNumber string) ([]*payment.PaymentBatch, error) {
	args := m.Called(ctx, distributionNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*payment.PaymentBatch), args.Error(1)
}

func (m *mockBatchRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// mockChequeRepo mocks payment.ChequeRepository
type mockChequeRepo struct {
	mock.Mock
}

func (m *mockChequeRepo) Save(ctx context.Context, cheque *payment.Cheque) error {
	return m.Called(ctx, cheque).Error(0)
}

func (m *mockChequeRepo) SaveAll(ctx context.Context, cheques []*payment.Cheque) error {
	return m.Called(ctx, cheques).Error(0)
}

func (m *mockChequeRepo) FindByID(ctx context.Context, id uuid.UUID) (*payment.Cheque, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Cheque), args.Error(1)
}

func (m *mockChequeRepo) FindByReference(ctx context.Context, series string, chequeNumber int64) (*payment.Cheque, error) {
	args := m.Called(ctx, series, chequeNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Cheque), args.Error(1)
}

func (m *mockChequeRepo) FindByBatch(ctx context.Context, batchID uuid.UUID) ([]*payment.Cheque, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*payment.Cheque), args.Error(1)
}

func (m *mockChequeRepo) List(ctx context.Context, filter payment.ChequeFilter) (*shared.Paginated[*payment.Cheque], error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[*payment.Cheque]), args.Error(1)
}

// mockAdvanceRepo mocks payment.AdvanceChequeRepository
type mockAdvanceRepo struct {
	mock.Mock
}

func (m *mockAdvanceRepo) Save(ctx context.Context, advance *payment.AdvanceCheque) error {
	return m.Called(ctx, advance).Error(0)
}

func (m *mockAdvanceRepo) SaveWithLock(ctx context.Context, advance *payment.AdvanceCheque) error {
	return m.Called(ctx, advance).Error(0)
}

func (m *mockAdvanceRepo) FindByID(ctx context.Context, id uuid.UUID) (*payment.AdvanceCheque, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.AdvanceCheque), args.Error(1)
}

func (m *mockAdvanceRepo) FindByNumber(ctx context.Context, advanceNumber string) (*payment.AdvanceCheque, error) {
	args := m.Called(ctx, advanceNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.AdvanceCheque), args.Error(1)
}

func (m *mockAdvanceRepo) FindOutstandingByGrower(ctx context.Context, growerID uuid.UUID) ([]*payment.AdvanceCheque, error) {
	args := m.Called(ctx, growerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*payment.AdvanceCheque), args.Error(1)
}

func (m *mockAdvanceRepo) FindByGrower(ctx context.Context, growerID uuid.UUID) ([]*payment.AdvanceCheque, error) {
	args := m.Called(ctx, growerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*payment.AdvanceCheque), args.Error(1)
}

func (m *mockAdvanceRepo) FindActive(ctx context.Context) ([]*payment.AdvanceCheque, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*payment.AdvanceCheque), args.Error(1)
}

// mockDeductionRepo mocks payment.AdvanceDeductionRepository
type mockDeductionRepo struct {
	mock.Mock
}

func (m *mockDeductionRepo) Save(ctx context.Context, deduction *payment.AdvanceDeduction) error {
	return m.Called(ctx, deduction).Error(0)
}

func (m *mockDeductionRepo) SaveAll(ctx context.Context, deductions []*payment.AdvanceDeduction) error {
	return m.Called(ctx, deductions).Error(0)
}

func (m *mockDeductionRepo) FindByBatch(ctx context.Context, batchID uuid.UUID) ([]*payment.AdvanceDeduction, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*payment.AdvanceDeduction), args.Error(1)
}

func (m *mockDeductionRepo) FindActiveByAdvance(ctx context.Context, advanceChequeID uuid.UUID) ([]*payment.AdvanceDeduction, error) {
	args := m.Called(ctx, advanceChequeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*payment.AdvanceDeduction), args.Error(1)
}

func (m *mockDeductionRepo) FindActiveByCheque(ctx context.Context, chequeID uuid.UUID) ([]*payment.AdvanceDeduction, error) {
	args := m.Called(ctx, chequeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*payment.AdvanceDeduction), args.Error(1)
}

func (m *mockDeductionRepo) SumActiveByAdvance(ctx context.Context, advanceChequeID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, advanceChequeID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *mockDeductionRepo) FindOrphaned(ctx context.Context) ([]*payment.AdvanceDeduction, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*payment.AdvanceDeduction), args.Error(1)
}

// mockAllocationRepo mocks payment.AllocationRepository
type mockAllocationRepo struct {
	mock.Mock
}

func (m *mockAllocationRepo) Save(ctx context.Context, allocation *payment.ReceiptPaymentAllocation) error {
	return m.Called(ctx, allocation).Error(0)
}

func (m *mockAllocationRepo) SaveAll(ctx context.Context, allocations []*payment.ReceiptPaymentAllocation) error {
	return m.Called(ctx, allocations).Error(0)
}

func (m *mockAllocationRepo) FindByBatch(ctx context.Context, batchID uuid.UUID) ([]*payment.ReceiptPaymentAllocation, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*payment.ReceiptPaymentAllocation), args.Error(1)
}

func (m *mockAllocationRepo) FindActiveByBatch(ctx context.Context, batchID uuid.UUID) ([]*payment.ReceiptPaymentAllocation, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*payment.ReceiptPaymentAllocation), args.Error(1)
}

func (m *mockAllocationRepo) FindActiveByCheque(ctx context.Context, chequeID uuid.UUID) ([]*payment.ReceiptPaymentAllocation, error) {
	args := m.Called(ctx, chequeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*payment.ReceiptPaymentAllocation), args.Error(1)
}

func (m *mockAllocationRepo) FindActiveByReceipt(ctx context.Context, receiptID uuid.UUID) ([]*payment.ReceiptPaymentAllocation, error) {
	args := m.Called(ctx, receiptID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*payment.ReceiptPaymentAllocation), args.Error(1)
}

func (m *mockAllocationRepo) ExistsActive(ctx context.Context, receiptID uuid.UUID, advanceNumber int) (bool, error) {
	args := m.Called(ctx, receiptID, advanceNumber)
	return args.Bool(0), args.Error(1)
}

func (m *mockAllocationRepo) SumActiveAdvances(ctx context.Context, growerID uuid.UUID, cropYear int) (decimal.Decimal, error) {
	args := m.Called(ctx, growerID, cropYear)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// mockAccountRepo mocks payment.AccountRepository
type mockAccountRepo struct {
	mock.Mock
}

func (m *mockAccountRepo) Save(ctx context.Context, entry *payment.AccountEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *mockAccountRepo) SaveAll(ctx context.Context, entries []*payment.AccountEntry) error {
	return m.Called(ctx, entries).Error(0)
}

func (m *mockAccountRepo) FindByID(ctx context.Context, id uuid.UUID) (*payment.AccountEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.AccountEntry), args.Error(1)
}

func (m *mockAccountRepo) FindByBatch(ctx context.Context, batchID uuid.UUID) ([]*payment.AccountEntry, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*payment.AccountEntry), args.Error(1)
}

func (m *mockAccountRepo) FindByCheque(ctx context.Context, chequeID uuid.UUID) ([]*payment.AccountEntry, error) {
	args := m.Called(ctx, chequeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*payment.AccountEntry), args.Error(1)
}

func (m *mockAccountRepo) FindByGrower(ctx context.Context, growerID uuid.UUID, from, to time.Time) ([]*payment.AccountEntry, error) {
	args := m.Called(ctx, growerID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*payment.AccountEntry), args.Error(1)
}

func (m *mockAccountRepo) ActiveBalance(ctx context.Context, growerID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, growerID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// mockAuditLogRepo mocks payment.AuditLogRepository
type mockAuditLogRepo struct {
	mock.Mock
}

func (m *mockAuditLogRepo) Save(ctx context.Context, log *payment.PaymentAuditLog) error {
	return m.Called(ctx, log).Error(0)
}

func (m *mockAuditLogRepo) FindByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]*payment.PaymentAuditLog, error) {
	args := m.Called(ctx, entityType, entityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*payment.PaymentAuditLog), args.Error(1)
}

func (m *mockAuditLogRepo) FindByActor(ctx context.Context, actor string, from, to time.Time) ([]*payment.PaymentAuditLog, error) {
	args := m.Called(ctx, actor, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*payment.PaymentAuditLog), args.Error(1)
}

// mockExceptionRepo mocks payment.ExceptionRepository
type mockExceptionRepo struct {
	mock.Mock
}

func (m *mockExceptionRepo) Save(ctx context.Context, exception *payment.PaymentException) error {
	return m.Called(ctx, exception).Error(0)
}

func (m *mockExceptionRepo) SaveAll(ctx context.Context, exceptions []*payment.PaymentException) error {
	return m.Called(ctx, exceptions).Error(0)
}

func (m *mockExceptionRepo) FindByID(ctx context.Context, id uuid.UUID) (*payment.PaymentException, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.PaymentException), args.Error(1)
}

func (m *mockExceptionRepo) List(ctx context.Context, filter payment.ExceptionFilter) (*shared.Paginated[*payment.PaymentException], error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[*payment.PaymentException]), args.Error(1)
}

// mockSequenceRepo mocks payment.NumberSequenceRepository
type mockSequenceRepo struct {
	mock.Mock
}

func (m *mockSequenceRepo) Next(ctx context.Context, name string, start int64) (int64, error) {
	args := m.Called(ctx, name, start)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockSequenceRepo) NextRange(ctx context.Context, name string, start int64, count int) (int64, error) {
	args := m.Called(ctx, name, start, count)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockSequenceRepo) Current(ctx context.Context, name string) (int64, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(int64), args.Error(1)
}

// mockPriceLockRepo mocks pricing.PriceLockRepository
type mockPriceLockRepo struct {
	mock.Mock
}

func (m *mockPriceLockRepo) Save(ctx context.Context, lock *pricing.PriceScheduleLock) error {
	return m.Called(ctx, lock).Error(0)
}

func (m *mockPriceLockRepo) FindByBatch(ctx context.Context, batchID uuid.UUID) ([]pricing.PriceScheduleLock, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]pricing.PriceScheduleLock), args.Error(1)
}

func (m *mockPriceLockRepo) FindLockedPrice(ctx context.Context, cropYear int, productID, processID uuid.UUID, advanceNumber int) (*pricing.PriceScheduleLock, error) {
	args := m.Called(ctx, cropYear, productID, processID, advanceNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pricing.PriceScheduleLock), args.Error(1)
}

func (m *mockPriceLockRepo) ExistsForBatch(ctx context.Context, batchID, priceScheduleID uuid.UUID) (bool, error) {
	args := m.Called(ctx, batchID, priceScheduleID)
	return args.Bool(0), args.Error(1)
}

// mockGrowerRepo mocks grower.GrowerRepository
type mockGrowerRepo struct {
	mock.Mock
}

func (m *mockGrowerRepo) FindByID(ctx context.Context, id uuid.UUID) (*grower.Grower, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*grower.Grower), args.Error(1)
}

func (m *mockGrowerRepo) FindByNumber(ctx context.Context, number string) (*grower.Grower, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*grower.Grower), args.Error(1)
}

func (m *mockGrowerRepo) FindAll(ctx context.Context, filter grower.GrowerFilter, page shared.Filter) ([]grower.Grower, error) {
	args := m.Called(ctx, filter, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]grower.Grower), args.Error(1)
}

// mockReceiptRepo mocks grower.ReceiptRepository
type mockReceiptRepo struct {
	mock.Mock
}

func (m *mockReceiptRepo) FindByID(ctx context.Context, id uuid.UUID) (*grower.Receipt, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*grower.Receipt), args.Error(1)
}

func (m *mockReceiptRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]grower.Receipt, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]grower.Receipt), args.Error(1)
}

func (m *mockReceiptRepo) FindEligible(ctx context.Context, q grower.EligibilityQuery) ([]grower.Receipt, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]grower.Receipt), args.Error(1)
}

func (m *mockReceiptRepo) CountEligible(ctx context.Context, q grower.EligibilityQuery) (int64, error) {
	args := m.Called(ctx, q)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockReceiptRepo) GrowersWithEligibleReceipts(ctx context.Context, cropYear int, cutoffDate time.Time, advanceNumber int, payGroup *string) ([]uuid.UUID, error) {
	args := m.Called(ctx, cropYear, cutoffDate, advanceNumber, payGroup)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

// mockScheduleRepo mocks pricing.PriceScheduleRepository
type mockScheduleRepo struct {
	mock.Mock
}

func (m *mockScheduleRepo) FindByID(ctx context.Context, id uuid.UUID) (*pricing.PriceSchedule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pricing.PriceSchedule), args.Error(1)
}

func (m *mockScheduleRepo) FindEffective(ctx context.Context, cropYear int, productID, processID uuid.UUID, advanceNumber int, date time.Time) (*pricing.PriceSchedule, error) {
	args := m.Called(ctx, cropYear, productID, processID, advanceNumber, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pricing.PriceSchedule), args.Error(1)
}

func (m *mockScheduleRepo) FindTiers(ctx context.Context, cropYear int, productID, processID uuid.UUID, maxAdvance int, date time.Time) ([]pricing.TierPrice, error) {
	args := m.Called(ctx, cropYear, productID, processID, maxAdvance, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]pricing.TierPrice), args.Error(1)
}

// mockTxRepos bundles the repository mocks behind the TxRepos interface.
// Savepoint runs the callback against the same mocks; savepoint rollback
// semantics are covered by the integration tests.
type mockTxRepos struct {
	batches     *mockBatchRepo
	cheques     *mockChequeRepo
	advances    *mockAdvanceRepo
	deductions  *mockDeductionRepo
	allocations *mockAllocationRepo
	accounts    *mockAccountRepo
	auditLogs   *mockAuditLogRepo
	exceptions  *mockExceptionRepo
	sequences   *mockSequenceRepo
	priceLocks  *mockPriceLockRepo
	growers     *mockGrowerRepo
	receipts    *mockReceiptRepo
}

func newMockTxRepos() *mockTxRepos {
	return &mockTxRepos{
		batches:     new(mockBatchRepo),
		cheques:     new(mockChequeRepo),
		advances:    new(mockAdvanceRepo),
		deductions:  new(mockDeductionRepo),
		allocations: new(mockAllocationRepo),
		accounts:    new(mockAccountRepo),
		auditLogs:   new(mockAuditLogRepo),
		exceptions:  new(mockExceptionRepo),
		sequences:   new(mockSequenceRepo),
		priceLocks:  new(mockPriceLockRepo),
		growers:     new(mockGrowerRepo),
		receipts:    new(mockReceiptRepo),
	}
}

func (m *mockTxRepos) Batches() payment.PaymentBatchRepository        { return m.batches }
func (m *mockTxRepos) Cheques() payment.ChequeRepository              { return m.cheques }
func (m *mockTxRepos) Advances() payment.AdvanceChequeRepository      { return m.advances }
func (m *mockTxRepos) Deductions() payment.AdvanceDeductionRepository { return m.deductions }
func (m *mockTxRepos) Allocations() payment.AllocationRepository      { return m.allocations }
func (m *mockTxRepos) Accounts() payment.AccountRepository            { return m.accounts }
func (m *mockTxRepos) AuditLogs() payment.AuditLogRepository          { return m.auditLogs }
func (m *mockTxRepos) Exceptions() payment.ExceptionRepository        { return m.exceptions }
func (m *mockTxRepos) Sequences() payment.NumberSequenceRepository    { return m.sequences }
func (m *mockTxRepos) PriceLocks() pricing.PriceLockRepository        { return m.priceLocks }
func (m *mockTxRepos) Growers() grower.GrowerRepository               { return m.growers }
func (m *mockTxRepos) Receipts() grower.ReceiptRepository             { return m.receipts }

func (m *mockTxRepos) Savepoint(ctx context.Context, fn func(tx TxRepos) error) error {
	return fn(m)
}

// stubUnitOfWork hands every Execute the same mock repositories, standing in
// for a database transaction.
type stubUnitOfWork struct {
	tx *mockTxRepos
}

func (u *stubUnitOfWork) Execute(ctx context.Context, fn func(ctx context.Context, tx TxRepos) error) error {
	return fn(ctx, u.tx)
}
