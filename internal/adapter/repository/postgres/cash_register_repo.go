package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/gymledger/internal/domain"
	"github.com/iho/gymledger/internal/usecase"
)

const registerColumns = `id, tenant_id, number, status, opening_float, total_in, total_out,
	closing_count, variance, notes, opened_by, closed_by, opened_at, closed_at, updated_at`

const movementColumns = `id, register_id, direction, amount, description, payment_method, category,
	receivable_id, payable_id, created_by, created_at`

// rowScanner is satisfied by pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// CashRegisterRepository implements usecase.CashRegisterRepository.
type CashRegisterRepository struct {
	pool querier
}

// NewCashRegisterRepository creates a new CashRegisterRepository.
func NewCashRegisterRepository(pool *pgxpool.Pool) *CashRegisterRepository {
	return &CashRegisterRepository{pool: pool}
}

func scanRegister(row rowScanner) (*domain.CashRegister, error) {
	var reg domain.CashRegister
	var opening, totalIn, totalOut, closing, variance pgtype.Numeric
	var openedAt, closedAt, updatedAt pgtype.Timestamptz
	err := row.Scan(
		&reg.ID, &reg.TenantID, &reg.Number, &reg.Status,
		&opening, &totalIn, &totalOut, &closing, &variance,
		&reg.Notes, &reg.OpenedBy, &reg.ClosedBy,
		&openedAt, &closedAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	reg.OpeningFloat = numericToDecimal(opening)
	reg.TotalIn = numericToDecimal(totalIn)
	reg.TotalOut = numericToDecimal(totalOut)
	reg.ClosingCount = numericToDecimalPtr(closing)
	reg.Variance = numericToDecimalPtr(variance)
	reg.OpenedAt = openedAt.Time
	reg.ClosedAt = pgTimestamptzPtr(closedAt)
	reg.UpdatedAt = updatedAt.Time
	return &reg, nil
}

func scanMovement(row rowScanner) (*domain.Movement, error) {
	var (
		m         domain.Movement
		amount    pgtype.Numeric
		createdAt pgtype.Timestamptz
	)
	err := row.Scan(
		&m.ID, &m.RegisterID, &m.Direction, &amount, &m.Description, &m.PaymentMethod, &m.Category,
		&m.ReceivableID, &m.PayableID, &m.CreatedBy, &createdAt,
	)
	if err != nil {
		return nil, err
	}
	m.Amount = numericToDecimal(amount)
	m.CreatedAt = createdAt.Time
	return &m, nil
}

// Create inserts a register session. A second OPEN session for the tenant violates
// the partial unique index and maps to ErrRegisterAlreadyOpen.
func (r *CashRegisterRepository) Create(ctx context.Context, tx usecase.Transaction, reg *domain.CashRegister) error {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO cash_registers (` + registerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err = conn(r.pool, tx).Exec(ctx, query,
		reg.ID, tenantID, reg.Number, reg.Status,
		decimalToNumeric(reg.OpeningFloat), decimalToNumeric(reg.TotalIn), decimalToNumeric(reg.TotalOut),
		decimalPtrToNumeric(reg.ClosingCount), decimalPtrToNumeric(reg.Variance),
		reg.Notes, reg.OpenedBy, reg.ClosedBy,
		timeToPgTimestamptz(reg.OpenedAt), timePtrToPgTimestamptz(reg.ClosedAt), timeToPgTimestamptz(reg.UpdatedAt),
	)
	if name, ok := uniqueViolation(err); ok && name == indexOneOpenRegister {
		return domain.ErrRegisterAlreadyOpen
	}
	if err == nil {
		reg.TenantID = tenantID
	}
	return err
}

func (r *CashRegisterRepository) get(ctx context.Context, q querier, where, suffix string, args ...any) (*domain.CashRegister, error) {
	query := `SELECT ` + registerColumns + ` FROM cash_registers WHERE tenant_id = $1 AND ` + where + suffix
	reg, err := scanRegister(q.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, notFound(err, domain.ErrRegisterNotFound)
	}
	return reg, nil
}

func (r *CashRegisterRepository) loadMovements(ctx context.Context, q querier, reg *domain.CashRegister) error {
	query := `SELECT ` + movementColumns + ` FROM cash_movements WHERE tenant_id = $1 AND register_id = $2 ORDER BY created_at, id`
	rows, err := q.Query(ctx, query, reg.TenantID, reg.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	reg.Movements = make([]domain.Movement, 0)
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return err
		}
		reg.Movements = append(reg.Movements, *m)
	}
	return rows.Err()
}

// GetByID returns the session with its movements.
func (r *CashRegisterRepository) GetByID(ctx context.Context, id string) (*domain.CashRegister, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}
	reg, err := r.get(ctx, r.pool, "id = $2", "", tenantID, id)
	if err != nil {
		return nil, err
	}
	return reg, r.loadMovements(ctx, r.pool, reg)
}

// GetOpen returns the OPEN session with its movements.
func (r *CashRegisterRepository) GetOpen(ctx context.Context) (*domain.CashRegister, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}
	reg, err := r.get(ctx, r.pool, "status = 'OPEN'", "", tenantID)
	if err != nil {
		return nil, err
	}
	return reg, r.loadMovements(ctx, r.pool, reg)
}

func (r *CashRegisterRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.CashRegister, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}
	return r.get(ctx, conn(r.pool, tx), "id = $2", " FOR UPDATE", tenantID, id)
}

func (r *CashRegisterRepository) GetOpenForUpdate(ctx context.Context, tx usecase.Transaction) (*domain.CashRegister, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}
	return r.get(ctx, conn(r.pool, tx), "status = 'OPEN'", " FOR UPDATE", tenantID)
}

// Update writes the session header; movements are written through AddMovement.
func (r *CashRegisterRepository) Update(ctx context.Context, tx usecase.Transaction, reg *domain.CashRegister) error {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return err
	}

	query := `
		UPDATE cash_registers
		SET status = $3, total_in = $4, total_out = $5, closing_count = $6, variance = $7,
		    notes = $8, closed_by = $9, closed_at = $10, updated_at = $11
		WHERE tenant_id = $1 AND id = $2
	`
	tag, err := conn(r.pool, tx).Exec(ctx, query,
		tenantID, reg.ID, reg.Status,
		decimalToNumeric(reg.TotalIn), decimalToNumeric(reg.TotalOut),
		decimalPtrToNumeric(reg.ClosingCount), decimalPtrToNumeric(reg.Variance),
		reg.Notes, reg.ClosedBy, timePtrToPgTimestamptz(reg.ClosedAt), timeToPgTimestamptz(reg.UpdatedAt),
	)
	return affected(tag, err, domain.ErrRegisterNotFound)
}

func (r *CashRegisterRepository) AddMovement(ctx context.Context, tx usecase.Transaction, m *domain.Movement) error {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO cash_movements (tenant_id, ` + movementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = conn(r.pool, tx).Exec(ctx, query,
		tenantID, m.ID, m.RegisterID, m.Direction, decimalToNumeric(m.Amount), m.Description,
		m.PaymentMethod, m.Category, m.ReceivableID, m.PayableID, m.CreatedBy, timeToPgTimestamptz(m.CreatedAt),
	)
	return err
}

func (r *CashRegisterRepository) GetMovement(ctx context.Context, tx usecase.Transaction, registerID, movementID string) (*domain.Movement, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + movementColumns + ` FROM cash_movements WHERE tenant_id = $1 AND register_id = $2 AND id = $3`
	m, err := scanMovement(conn(r.pool, tx).QueryRow(ctx, query, tenantID, registerID, movementID))
	if err != nil {
		return nil, notFound(err, domain.ErrMovementNotFound)
	}
	return m, nil
}

func (r *CashRegisterRepository) DeleteMovement(ctx context.Context, tx usecase.Transaction, registerID, movementID string) error {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return err
	}

	query := `DELETE FROM cash_movements WHERE tenant_id = $1 AND register_id = $2 AND id = $3`
	tag, err := conn(r.pool, tx).Exec(ctx, query, tenantID, registerID, movementID)
	return affected(tag, err, domain.ErrMovementNotFound)
}

// List returns session headers, most recently opened first.
func (r *CashRegisterRepository) List(ctx context.Context, filter domain.RegisterFilter, limit, offset int) ([]*domain.CashRegister, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}

	b := newFilterBuilder(tenantID)
	if filter.Status != nil {
		b.add("status = $%d", *filter.Status)
	}
	if filter.From != nil {
		b.add("opened_at >= $%d", timeToPgTimestamptz(*filter.From))
	}
	if filter.To != nil {
		b.add("opened_at <= $%d", timeToPgTimestamptz(*filter.To))
	}
	query := fmt.Sprintf(`SELECT %s FROM cash_registers WHERE tenant_id = $1%s ORDER BY opened_at DESC, number DESC`, registerColumns, b.clauses)
	query += b.page(limit, offset)

	rows, err := r.pool.Query(ctx, query, b.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	registers := make([]*domain.CashRegister, 0)
	for rows.Next() {
		reg, err := scanRegister(rows)
		if err != nil {
			return nil, err
		}
		registers = append(registers, reg)
	}
	return registers, rows.Err()
}
