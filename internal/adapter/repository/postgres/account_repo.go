package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/gymledger/internal/domain"
	"github.com/iho/gymledger/internal/usecase"
)

const accountColumns = `id, tenant_id, kind, number, category, description,
	student_id, plan_id, discount_id, enrollment_id, period_key, employee_id,
	supplier_id, supplier_name, supplier_document, document,
	original_amount, discount_amount, interest_amount, penalty_amount,
	final_amount, paid_amount, remaining_amount,
	due_date, paid_at, payment_method, status, installment, total_installments,
	notes, created_at, updated_at`

// BillingAccountRepository implements usecase.BillingAccountRepository.
type BillingAccountRepository struct {
	pool querier
}

// NewBillingAccountRepository creates a new BillingAccountRepository.
func NewBillingAccountRepository(pool *pgxpool.Pool) *BillingAccountRepository {
	return &BillingAccountRepository{pool: pool}
}

func scanAccount(row rowScanner) (*domain.BillingAccount, error) {
	var a domain.BillingAccount
	var original, discount, interest, penalty, final, paid, remaining pgtype.Numeric
	var dueDate pgtype.Date
	var paidAt, createdAt, updatedAt pgtype.Timestamptz

	err := row.Scan(
		&a.ID, &a.TenantID, &a.Kind, &a.Number, &a.Category, &a.Description,
		&a.StudentID, &a.PlanID, &a.DiscountID, &a.EnrollmentID, &a.PeriodKey, &a.EmployeeID,
		&a.SupplierID, &a.SupplierName, &a.SupplierDocument, &a.Document,
		&original, &discount, &interest, &penalty,
		&final, &paid, &remaining,
		&dueDate, &paidAt, &a.PaymentMethod, &a.Status, &a.Installment, &a.TotalInstallments,
		&a.Notes, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.OriginalAmount = numericToDecimal(original)
	a.DiscountAmount = numericToDecimal(discount)
	a.InterestAmount = numericToDecimal(interest)
	a.PenaltyAmount = numericToDecimal(penalty)
	a.FinalAmount = numericToDecimal(final)
	a.PaidAmount = numericToDecimal(paid)
	a.RemainingAmount = numericToDecimal(remaining)
	a.DueDate = pgDateToTime(dueDate)
	a.PaidAt = pgTimestamptzPtr(paidAt)
	a.CreatedAt = createdAt.Time
	a.UpdatedAt = updatedAt.Time
	return &a, nil
}

// Create inserts an account. A second live charge for the same enrollment and
// period maps to ErrAlreadyBilled.
func (r *BillingAccountRepository) Create(ctx context.Context, tx usecase.Transaction, a *domain.BillingAccount) error {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO billing_accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
		        $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32)
	`
	_, err = conn(r.pool, tx).Exec(ctx, query,
		a.ID, tenantID, a.Kind, a.Number, a.Category, a.Description,
		a.StudentID, a.PlanID, a.DiscountID, a.EnrollmentID, a.PeriodKey, a.EmployeeID,
		a.SupplierID, a.SupplierName, a.SupplierDocument, a.Document,
		decimalToNumeric(a.OriginalAmount), decimalToNumeric(a.DiscountAmount),
		decimalToNumeric(a.InterestAmount), decimalToNumeric(a.PenaltyAmount),
		decimalToNumeric(a.FinalAmount), decimalToNumeric(a.PaidAmount), decimalToNumeric(a.RemainingAmount),
		timeToPgDate(a.DueDate), timePtrToPgTimestamptz(a.PaidAt), a.PaymentMethod, a.Status,
		a.Installment, a.TotalInstallments,
		a.Notes, timeToPgTimestamptz(a.CreatedAt), timeToPgTimestamptz(a.UpdatedAt),
	)
	if name, ok := uniqueViolation(err); ok && name == indexEnrollmentPeriod {
		return domain.ErrAlreadyBilled
	}
	if err == nil {
		a.TenantID = tenantID
	}
	return err
}

func (r *BillingAccountRepository) get(ctx context.Context, q querier, suffix string, id string) (*domain.BillingAccount, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + accountColumns + ` FROM billing_accounts WHERE tenant_id = $1 AND id = $2` + suffix
	a, err := scanAccount(q.QueryRow(ctx, query, tenantID, id))
	if err != nil {
		return nil, notFound(err, domain.ErrAccountNotFound)
	}
	return a, nil
}

func (r *BillingAccountRepository) GetByID(ctx context.Context, id string) (*domain.BillingAccount, error) {
	return r.get(ctx, r.pool, "", id)
}

func (r *BillingAccountRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.BillingAccount, error) {
	return r.get(ctx, conn(r.pool, tx), " FOR UPDATE", id)
}

func (r *BillingAccountRepository) Update(ctx context.Context, tx usecase.Transaction, a *domain.BillingAccount) error {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return err
	}

	query := `
		UPDATE billing_accounts
		SET category = $3, description = $4, supplier_name = $5, supplier_document = $6, document = $7,
		    original_amount = $8, discount_amount = $9, interest_amount = $10, penalty_amount = $11,
		    final_amount = $12, paid_amount = $13, remaining_amount = $14,
		    due_date = $15, paid_at = $16, payment_method = $17, status = $18, notes = $19, updated_at = $20
		WHERE tenant_id = $1 AND id = $2
	`
	tag, err := conn(r.pool, tx).Exec(ctx, query,
		tenantID, a.ID, a.Category, a.Description, a.SupplierName, a.SupplierDocument, a.Document,
		decimalToNumeric(a.OriginalAmount), decimalToNumeric(a.DiscountAmount),
		decimalToNumeric(a.InterestAmount), decimalToNumeric(a.PenaltyAmount),
		decimalToNumeric(a.FinalAmount), decimalToNumeric(a.PaidAmount), decimalToNumeric(a.RemainingAmount),
		timeToPgDate(a.DueDate), timePtrToPgTimestamptz(a.PaidAt), a.PaymentMethod, a.Status,
		a.Notes, timeToPgTimestamptz(a.UpdatedAt),
	)
	if name, ok := uniqueViolation(err); ok && name == indexEnrollmentPeriod {
		return domain.ErrAlreadyBilled
	}
	return affected(tag, err, domain.ErrAccountNotFound)
}

func (r *BillingAccountRepository) Delete(ctx context.Context, tx usecase.Transaction, id string) error {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return err
	}

	tag, err := conn(r.pool, tx).Exec(ctx, `DELETE FROM billing_accounts WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	return affected(tag, err, domain.ErrAccountNotFound)
}

func (r *BillingAccountRepository) query(ctx context.Context, q querier, query string, args ...any) ([]*domain.BillingAccount, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := make([]*domain.BillingAccount, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// List returns accounts ordered by due date, then number.
func (r *BillingAccountRepository) List(ctx context.Context, filter domain.AccountFilter, limit, offset int) ([]*domain.BillingAccount, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}

	b := newFilterBuilder(tenantID)
	if filter.Kind != "" {
		b.add("kind = $%d", filter.Kind)
	}
	if filter.Status != nil {
		b.add("status = $%d", *filter.Status)
	}
	if filter.StudentID != nil {
		b.add("student_id = $%d", *filter.StudentID)
	}
	if filter.EnrollmentID != nil {
		b.add("enrollment_id = $%d", *filter.EnrollmentID)
	}
	if filter.Category != nil {
		b.add("category = $%d", *filter.Category)
	}
	if filter.DueFrom != nil {
		b.add("due_date >= $%d", timeToPgDate(*filter.DueFrom))
	}
	if filter.DueTo != nil {
		b.add("due_date <= $%d", timeToPgDate(*filter.DueTo))
	}

	query := fmt.Sprintf(`SELECT %s FROM billing_accounts WHERE tenant_id = $1%s ORDER BY due_date, number`, accountColumns, b.clauses)
	query += b.page(limit, offset)
	return r.query(ctx, r.pool, query, b.args...)
}

func (r *BillingAccountRepository) ListByEnrollment(ctx context.Context, tx usecase.Transaction, enrollmentID string) ([]*domain.BillingAccount, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + accountColumns + ` FROM billing_accounts
		WHERE tenant_id = $1 AND enrollment_id = $2 ORDER BY due_date, number FOR UPDATE`
	return r.query(ctx, conn(r.pool, tx), query, tenantID, enrollmentID)
}

// FindByEnrollmentPeriod returns the non-cancelled receivable of an enrollment for a period key.
func (r *BillingAccountRepository) FindByEnrollmentPeriod(ctx context.Context, enrollmentID, periodKey string) (*domain.BillingAccount, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + accountColumns + ` FROM billing_accounts
		WHERE tenant_id = $1 AND kind = 'RECEIVABLE' AND enrollment_id = $2 AND period_key = $3 AND status <> 'CANCELLED'
		LIMIT 1`
	a, err := scanAccount(r.pool.QueryRow(ctx, query, tenantID, enrollmentID, periodKey))
	if err != nil {
		return nil, notFound(err, domain.ErrAccountNotFound)
	}
	return a, nil
}

// MarkOverdue flips every PENDING account due before today to OVERDUE in one statement.
func (r *BillingAccountRepository) MarkOverdue(ctx context.Context, today time.Time) (int64, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return 0, err
	}

	query := `
		UPDATE billing_accounts
		SET status = 'OVERDUE', updated_at = now()
		WHERE tenant_id = $1 AND status = 'PENDING' AND due_date < $2
	`
	tag, err := r.pool.Exec(ctx, query, tenantID, timeToPgDate(domain.DateOf(today)))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// TotalsByCategory aggregates non-cancelled accounts due within [from, to].
func (r *BillingAccountRepository) TotalsByCategory(ctx context.Context, kind domain.AccountKind, from, to time.Time) ([]domain.CategoryTotal, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT category, SUM(final_amount), SUM(paid_amount), SUM(remaining_amount), COUNT(*)
		FROM billing_accounts
		WHERE tenant_id = $1 AND kind = $2 AND status <> 'CANCELLED' AND due_date BETWEEN $3 AND $4
		GROUP BY category
		ORDER BY category
	`
	rows, err := r.pool.Query(ctx, query, tenantID, kind, timeToPgDate(from), timeToPgDate(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := make([]domain.CategoryTotal, 0)
	for rows.Next() {
		var t domain.CategoryTotal
		var total, paid, remaining pgtype.Numeric
		if err := rows.Scan(&t.Category, &total, &paid, &remaining, &t.Count); err != nil {
			return nil, err
		}
		t.Total = numericToDecimal(total)
		t.Paid = numericToDecimal(paid)
		t.Remaining = numericToDecimal(remaining)
		totals = append(totals, t)
	}
	return totals, rows.Err()
}
