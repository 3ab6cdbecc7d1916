package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iho/gymledger/internal/domain"
	"github.com/iho/gymledger/internal/infrastructure/metrics"
)

// CashRegisterUseCase owns the register session state machine.
type CashRegisterUseCase struct {
	txManager    TransactionManager
	registerRepo CashRegisterRepository
	sequences    SequenceAllocator
	idGen        IDGenerator
	clock        Clock
	journal      journal
	metrics      *metrics.Metrics
}

func NewCashRegisterUseCase(
	txManager TransactionManager,
	registerRepo CashRegisterRepository,
	sequences SequenceAllocator,
	outboxRepo OutboxRepository,
	auditRepo AuditRepository,
	idGen IDGenerator,
	clock Clock,
	metrics *metrics.Metrics,
) *CashRegisterUseCase {
	return &CashRegisterUseCase{
		txManager:    txManager,
		registerRepo: registerRepo,
		sequences:    sequences,
		idGen:        idGen,
		clock:        clock,
		journal:      journal{outbox: outboxRepo, audit: auditRepo, idGen: idGen, clock: clock},
		metrics:      metrics,
	}
}

// OpenRegisterInput represents input for opening a register.
type OpenRegisterInput struct {
	OpeningFloat decimal.Decimal
	OpenedBy     string
	Notes        string
}

// Open starts a new session. Only one session per tenant may be OPEN.
func (uc *CashRegisterUseCase) Open(ctx context.Context, input OpenRegisterInput) (*domain.CashRegister, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}

	now := uc.clock.Now()
	register, err := domain.NewCashRegister(uc.idGen.Generate(), tenantID, "", input.OpeningFloat, input.OpenedBy, input.Notes, now)
	if err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	existing, err := uc.registerRepo.GetOpenForUpdate(txCtx, tx)
	if err == nil && existing != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrRegisterAlreadyOpen, existing.Number)
	}
	if err != nil && !errors.Is(err, domain.ErrRegisterNotFound) {
		return nil, err
	}

	n, err := uc.sequences.Next(txCtx, tx, domain.SeriesRegister)
	if err != nil {
		return nil, err
	}
	register.Number = domain.FormatNumber(domain.SeriesRegister, n)

	if err := uc.registerRepo.Create(txCtx, tx, register); err != nil {
		return nil, err
	}

	if err := uc.journal.event(txCtx, tx, domain.AggregateTypeRegister, register.ID, domain.EventTypeRegisterOpened, domain.RegisterEvent{
		RegisterID: register.ID,
		Number:     register.Number,
		Balance:    register.OpeningFloat.StringFixed(2),
		Actor:      register.OpenedBy,
	}); err != nil {
		return nil, err
	}
	if err := uc.journal.record(txCtx, tx, domain.AuditActionRegisterOpen, domain.ResourceCashRegister, register.ID, nil, register); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.RegistersOpened.Inc()
	}

	return register, nil
}

// MovementInput represents one movement to append to a register.
type MovementInput struct {
	Direction     domain.Direction
	Amount        decimal.Decimal
	Description   string
	PaymentMethod string
	Category      string
	ReceivableID  *string
	PayableID     *string
}

// RecordMovement appends a movement to an OPEN register.
func (uc *CashRegisterUseCase) RecordMovement(ctx context.Context, registerID string, input MovementInput) (*domain.Movement, error) {
	var movement *domain.Movement
	err := uc.withLockedRegister(ctx, registerID, func(txCtx context.Context, tx Transaction, register *domain.CashRegister) error {
		m, err := uc.AppendMovementTx(txCtx, tx, register, input)
		if err != nil {
			return err
		}
		movement = m
		return uc.journal.record(txCtx, tx, domain.AuditActionMovementRecord, domain.ResourceCashRegister, register.ID, nil, m)
	})
	if err != nil {
		return nil, err
	}
	uc.observeMovement(movement)
	return movement, nil
}

// AppendMovementTx applies input to a register already locked by tx and persists both.
// Running totals are derived from the locked row, keeping the operation O(1).
func (uc *CashRegisterUseCase) AppendMovementTx(ctx context.Context, tx Transaction, register *domain.CashRegister, input MovementInput) (*domain.Movement, error) {
	now := uc.clock.Now()
	movement := &domain.Movement{
		ID:            uc.idGen.Generate(),
		Direction:     input.Direction,
		Amount:        input.Amount,
		Description:   input.Description,
		PaymentMethod: input.PaymentMethod,
		Category:      input.Category,
		ReceivableID:  input.ReceivableID,
		PayableID:     input.PayableID,
		CreatedBy:     domain.ActorFromContext(ctx),
		CreatedAt:     now,
	}

	if err := register.ApplyMovement(movement, now); err != nil {
		return nil, err
	}
	if err := uc.registerRepo.AddMovement(ctx, tx, movement); err != nil {
		return nil, err
	}
	if err := uc.registerRepo.Update(ctx, tx, register); err != nil {
		return nil, err
	}
	return movement, nil
}

// RemoveMovement deletes a movement from an OPEN register and reverses its totals.
func (uc *CashRegisterUseCase) RemoveMovement(ctx context.Context, registerID, movementID string) error {
	return uc.withLockedRegister(ctx, registerID, func(txCtx context.Context, tx Transaction, register *domain.CashRegister) error {
		if !register.IsOpen() {
			return domain.ErrRegisterClosed
		}
		movement, err := uc.registerRepo.GetMovement(txCtx, tx, registerID, movementID)
		if err != nil {
			return err
		}
		if err := register.RevertMovement(movement, uc.clock.Now()); err != nil {
			return err
		}
		if err := uc.registerRepo.DeleteMovement(txCtx, tx, registerID, movementID); err != nil {
			return err
		}
		if err := uc.registerRepo.Update(txCtx, tx, register); err != nil {
			return err
		}
		return uc.journal.record(txCtx, tx, domain.AuditActionMovementRemove, domain.ResourceCashRegister, register.ID, movement, nil)
	})
}

// CashOperationInput represents a manual withdrawal or replenishment.
type CashOperationInput struct {
	Amount          decimal.Decimal
	Description     string
	ResponsibleUser string
}

func (in CashOperationInput) validate() (desc, user string, err error) {
	if err := domain.ValidatePositive("amount", in.Amount); err != nil {
		return "", "", err
	}
	if desc, err = domain.RequireText("description", in.Description); err != nil {
		return "", "", err
	}
	if user, err = domain.RequireText("responsible user", in.ResponsibleUser); err != nil {
		return "", "", err
	}
	return desc, user, nil
}

// Withdraw (sangria) removes cash from the drawer. Rejected when the drawer holds less.
func (uc *CashRegisterUseCase) Withdraw(ctx context.Context, registerID string, input CashOperationInput) (*domain.Movement, error) {
	desc, user, err := input.validate()
	if err != nil {
		return nil, err
	}

	var movement *domain.Movement
	err = uc.withLockedRegister(ctx, registerID, func(txCtx context.Context, tx Transaction, register *domain.CashRegister) error {
		if !register.IsOpen() {
			return domain.ErrRegisterClosed
		}
		if err := register.CheckWithdrawal(input.Amount); err != nil {
			return err
		}
		m, err := uc.AppendMovementTx(txCtx, tx, register, MovementInput{
			Direction:     domain.DirectionOut,
			Amount:        input.Amount,
			Description:   fmt.Sprintf("WITHDRAWAL: %s - Responsible: %s", desc, user),
			Category:      domain.CategoryWithdrawal,
			PaymentMethod: domain.CategoryWithdrawal,
		})
		if err != nil {
			return err
		}
		movement = m
		return uc.journal.record(txCtx, tx, domain.AuditActionMovementRecord, domain.ResourceCashRegister, register.ID, nil, m)
	})
	if err != nil {
		return nil, err
	}
	uc.observeMovement(movement)
	return movement, nil
}

// Replenish (suprimento) adds cash to the drawer.
func (uc *CashRegisterUseCase) Replenish(ctx context.Context, registerID string, input CashOperationInput) (*domain.Movement, error) {
	desc, user, err := input.validate()
	if err != nil {
		return nil, err
	}

	var movement *domain.Movement
	err = uc.withLockedRegister(ctx, registerID, func(txCtx context.Context, tx Transaction, register *domain.CashRegister) error {
		m, err := uc.AppendMovementTx(txCtx, tx, register, MovementInput{
			Direction:     domain.DirectionIn,
			Amount:        input.Amount,
			Description:   fmt.Sprintf("REPLENISHMENT: %s - Responsible: %s", desc, user),
			Category:      domain.CategoryReplenishment,
			PaymentMethod: domain.CategoryReplenishment,
		})
		if err != nil {
			return err
		}
		movement = m
		return uc.journal.record(txCtx, tx, domain.AuditActionMovementRecord, domain.ResourceCashRegister, register.ID, nil, m)
	})
	if err != nil {
		return nil, err
	}
	uc.observeMovement(movement)
	return movement, nil
}

// CloseRegisterInput represents input for closing a register.
type CloseRegisterInput struct {
	ClosingCount *decimal.Decimal
	ClosedBy     string
	Notes        string
}

// Close ends the session, recording the counted cash and its variance.
func (uc *CashRegisterUseCase) Close(ctx context.Context, registerID string, input CloseRegisterInput) (*domain.CashRegister, error) {
	var closed *domain.CashRegister
	err := uc.withLockedRegister(ctx, registerID, func(txCtx context.Context, tx Transaction, register *domain.CashRegister) error {
		if err := register.Close(input.ClosingCount, input.ClosedBy, input.Notes, uc.clock.Now()); err != nil {
			return err
		}
		if err := uc.registerRepo.Update(txCtx, tx, register); err != nil {
			return err
		}
		if err := uc.journal.event(txCtx, tx, domain.AggregateTypeRegister, register.ID, domain.EventTypeRegisterClosed, domain.RegisterEvent{
			RegisterID: register.ID,
			Number:     register.Number,
			Balance:    register.ClosingCount.StringFixed(2),
			Variance:   register.Variance.StringFixed(2),
			Actor:      register.ClosedBy,
		}); err != nil {
			return err
		}
		if err := uc.journal.record(txCtx, tx, domain.AuditActionRegisterClose, domain.ResourceCashRegister, register.ID, nil, register); err != nil {
			return err
		}
		closed = register
		return nil
	})
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.RegistersClosed.Inc()
		v, _ := closed.Variance.Abs().Float64()
		uc.metrics.RegisterVariance.Observe(v)
	}
	return closed, nil
}

// GetOpen returns the OPEN session of the tenant.
func (uc *CashRegisterUseCase) GetOpen(ctx context.Context) (*domain.CashRegister, error) {
	return uc.registerRepo.GetOpen(ctx)
}

// Get returns a session with its movements.
func (uc *CashRegisterUseCase) Get(ctx context.Context, id string) (*domain.CashRegister, error) {
	return uc.registerRepo.GetByID(ctx, id)
}

// List returns sessions, newest first.
func (uc *CashRegisterUseCase) List(ctx context.Context, filter domain.RegisterFilter, limit, offset int) ([]*domain.CashRegister, error) {
	limit, offset = domain.ValidatePagination(limit, offset)
	return uc.registerRepo.List(ctx, filter, limit, offset)
}

// Report builds the grouped view of a session.
func (uc *CashRegisterUseCase) Report(ctx context.Context, id string) (*domain.RegisterReport, error) {
	register, err := uc.registerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return domain.BuildRegisterReport(register), nil
}

// LockOpenTx locks the OPEN session inside tx, failing with a precondition error when none exists.
func (uc *CashRegisterUseCase) LockOpenTx(ctx context.Context, tx Transaction) (*domain.CashRegister, error) {
	register, err := uc.registerRepo.GetOpenForUpdate(ctx, tx)
	if errors.Is(err, domain.ErrRegisterNotFound) {
		return nil, domain.ErrNoOpenRegister
	}
	return register, err
}

func (uc *CashRegisterUseCase) withLockedRegister(ctx context.Context, registerID string, fn func(context.Context, Transaction, *domain.CashRegister) error) error {
	if strings.TrimSpace(registerID) == "" {
		return domain.ErrRegisterNotFound
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	register, err := uc.registerRepo.GetByIDForUpdate(txCtx, tx, registerID)
	if err != nil {
		return err
	}
	if err := fn(txCtx, tx, register); err != nil {
		return err
	}
	return tx.Commit(txCtx)
}

func (uc *CashRegisterUseCase) observeMovement(m *domain.Movement) {
	if uc.metrics == nil || m == nil {
		return
	}
	category := m.Category
	if category == "" {
		category = domain.CategoryOther
	}
	uc.metrics.Movements.WithLabelValues(string(m.Direction), category).Inc()
}
