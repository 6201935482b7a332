package payment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/harvestpay/backend/internal/domain/payment"
	"github.com/harvestpay/backend/internal/domain/shared"
	"github.com/harvestpay/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ChequeService covers the physical cheque lifecycle after posting: lookup,
// printing and delivery. Voiding goes through the VoidingService so cascade
// rules live in one place.
type ChequeService struct {
	uow     UnitOfWork
	voiding *VoidingService
	logger  *zap.Logger
}

// NewChequeService creates a new ChequeService
func NewChequeService(uow UnitOfWork, voiding *VoidingService, logger *zap.Logger) *ChequeService {
	return &ChequeService{
		uow:     uow,
		voiding: voiding,
		logger:  logger,
	}
}

// GetCheque loads a cheque by ID
func (s *ChequeService) GetCheque(ctx context.Context, chequeID uuid.UUID) (*payment.Cheque, error) {
	var cheque *payment.Cheque
	err := s.uow.Execute(ctx, func(ctx context.Context, tx TxRepos) error {
		var err error
		cheque, err = tx.Cheques().FindByID(ctx, chequeID)
		return err
	})
	return cheque, err
}

// ListCheques pages through cheques with filters
func (s *ChequeService) ListCheques(ctx context.Context, filter payment.ChequeFilter) (*shared.Paginated[*payment.Cheque], error) {
	var page *shared.Paginated[*payment.Cheque]
	err := s.uow.Execute(ctx, func(ctx context.Context, tx TxRepos) error {
		var err error
		page, err = tx.Cheques().List(ctx, filter)
		return err
	})
	return page, err
}

// MarkPrinted transitions a cheque Generated -> Printed
func (s *ChequeService) MarkPrinted(ctx context.Context, chequeID uuid.UUID, actor string) (*payment.Cheque, error) {
	return s.transition(ctx, chequeID, actor, "mark_printed", func(c *payment.Cheque) error {
		return c.MarkPrinted()
	})
}

// MarkDelivered transitions a cheque Printed -> Delivered
func (s *ChequeService) MarkDelivered(ctx context.Context, chequeID uuid.UUID, actor string) (*payment.Cheque, error) {
	return s.transition(ctx, chequeID, actor, "mark_delivered", func(c *payment.Cheque) error {
		return c.MarkDelivered()
	})
}

// VoidCheque voids one cheque, releasing its allocations and deductions and
// optionally reversing its ledger entries
func (s *ChequeService) VoidCheque(ctx context.Context, chequeID uuid.UUID, actor, reason string, reverseAccounting bool) (*payment.VoidOutcome, error) {
	return s.voiding.Void(ctx, payment.VoidRequest{
		Kind:              payment.VoidTargetCheque,
		TargetID:          chequeID,
		Actor:             actor,
		Reason:            reason,
		ReverseAccounting: reverseAccounting,
	})
}

func (s *ChequeService) transition(ctx context.Context, chequeID uuid.UUID, actor, op string, fn func(*payment.Cheque) error) (*payment.Cheque, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "cheque", op)
	defer span.End()

	if actor == "" {
		return nil, shared.NewDomainError("INVALID_ACTOR", "Acting user is required")
	}

	var cheque *payment.Cheque
	err := s.uow.Execute(ctx, func(ctx context.Context, tx TxRepos) error {
		var err error
		cheque, err = tx.Cheques().FindByID(ctx, chequeID)
		if err != nil {
			return fmt.Errorf("failed to load cheque: %w", err)
		}
		if cheque == nil {
			return shared.NewDomainError("CHEQUE_NOT_FOUND", "Cheque not found")
		}
		if err := fn(cheque); err != nil {
			return err
		}
		if err := tx.Cheques().Save(ctx, cheque); err != nil {
			return fmt.Errorf("failed to save cheque: %w", err)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Cheque state changed",
		zap.String("cheque_id", cheque.ID.String()),
		zap.String("status", string(cheque.Status)),
		zap.String("actor", actor))
	return cheque, nil
}
