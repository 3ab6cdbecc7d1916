package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/gymledger/internal/domain"
	"github.com/iho/gymledger/internal/usecase"
)

const enrollmentColumns = `id, tenant_id, code, student_id, plan_id, class_id, discount_id,
	start_date, end_date, due_day, original_price, discount_amount, final_price,
	status, inactivation_reason, installments, payment_method, notes, created_at, updated_at`

// EnrollmentRepository implements usecase.EnrollmentRepository.
type EnrollmentRepository struct {
	pool querier
}

// NewEnrollmentRepository creates a new EnrollmentRepository.
func NewEnrollmentRepository(pool *pgxpool.Pool) *EnrollmentRepository {
	return &EnrollmentRepository{pool: pool}
}

// enrollmentDest collects the scan targets of enrollmentColumns.
type enrollmentDest struct {
	e                       domain.Enrollment
	start, end              pgtype.Date
	original, discount, fin pgtype.Numeric
	createdAt, updatedAt    pgtype.Timestamptz
}

func (d *enrollmentDest) targets() []any {
	return []any{
		&d.e.ID, &d.e.TenantID, &d.e.Code, &d.e.StudentID, &d.e.PlanID, &d.e.ClassID, &d.e.DiscountID,
		&d.start, &d.end, &d.e.DueDay, &d.original, &d.discount, &d.fin,
		&d.e.Status, &d.e.InactivationReason, &d.e.Installments, &d.e.PaymentMethod, &d.e.Notes,
		&d.createdAt, &d.updatedAt,
	}
}

func (d *enrollmentDest) enrollment() *domain.Enrollment {
	e := d.e
	e.StartDate = pgDateToTime(d.start)
	e.EndDate = pgDateToTime(d.end)
	e.OriginalPrice = numericToDecimal(d.original)
	e.DiscountAmount = numericToDecimal(d.discount)
	e.FinalPrice = numericToDecimal(d.fin)
	e.CreatedAt = d.createdAt.Time
	e.UpdatedAt = d.updatedAt.Time
	return &e
}

func scanEnrollment(row rowScanner) (*domain.Enrollment, error) {
	var d enrollmentDest
	if err := row.Scan(d.targets()...); err != nil {
		return nil, err
	}
	return d.enrollment(), nil
}

func (r *EnrollmentRepository) Create(ctx context.Context, tx usecase.Transaction, e *domain.Enrollment) error {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO enrollments (` + enrollmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`
	_, err = conn(r.pool, tx).Exec(ctx, query,
		e.ID, tenantID, e.Code, e.StudentID, e.PlanID, e.ClassID, e.DiscountID,
		timeToPgDate(e.StartDate), timeToPgDate(e.EndDate), e.DueDay,
		decimalToNumeric(e.OriginalPrice), decimalToNumeric(e.DiscountAmount), decimalToNumeric(e.FinalPrice),
		e.Status, e.InactivationReason, e.Installments, e.PaymentMethod, e.Notes,
		timeToPgTimestamptz(e.CreatedAt), timeToPgTimestamptz(e.UpdatedAt),
	)
	if err == nil {
		e.TenantID = tenantID
	}
	return err
}

func (r *EnrollmentRepository) get(ctx context.Context, q querier, suffix, id string) (*domain.Enrollment, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE tenant_id = $1 AND id = $2` + suffix
	e, err := scanEnrollment(q.QueryRow(ctx, query, tenantID, id))
	if err != nil {
		return nil, notFound(err, domain.ErrEnrollmentNotFound)
	}
	return e, nil
}

func (r *EnrollmentRepository) GetByID(ctx context.Context, id string) (*domain.Enrollment, error) {
	return r.get(ctx, r.pool, "", id)
}

func (r *EnrollmentRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Enrollment, error) {
	return r.get(ctx, conn(r.pool, tx), " FOR UPDATE", id)
}

func (r *EnrollmentRepository) Update(ctx context.Context, tx usecase.Transaction, e *domain.Enrollment) error {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return err
	}

	query := `
		UPDATE enrollments
		SET plan_id = $3, class_id = $4, discount_id = $5, start_date = $6, end_date = $7, due_day = $8,
		    original_price = $9, discount_amount = $10, final_price = $11, status = $12,
		    inactivation_reason = $13, installments = $14, payment_method = $15, notes = $16, updated_at = $17
		WHERE tenant_id = $1 AND id = $2
	`
	tag, err := conn(r.pool, tx).Exec(ctx, query,
		tenantID, e.ID, e.PlanID, e.ClassID, e.DiscountID,
		timeToPgDate(e.StartDate), timeToPgDate(e.EndDate), e.DueDay,
		decimalToNumeric(e.OriginalPrice), decimalToNumeric(e.DiscountAmount), decimalToNumeric(e.FinalPrice),
		e.Status, e.InactivationReason, e.Installments, e.PaymentMethod, e.Notes,
		timeToPgTimestamptz(e.UpdatedAt),
	)
	return affected(tag, err, domain.ErrEnrollmentNotFound)
}

func (r *EnrollmentRepository) Delete(ctx context.Context, tx usecase.Transaction, id string) error {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return err
	}

	tag, err := conn(r.pool, tx).Exec(ctx, `DELETE FROM enrollments WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	return affected(tag, err, domain.ErrEnrollmentNotFound)
}

func (r *EnrollmentRepository) List(ctx context.Context, filter domain.EnrollmentFilter, limit, offset int) ([]*domain.Enrollment, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}

	b := newFilterBuilder(tenantID)
	if filter.Status != nil {
		b.add("status = $%d", *filter.Status)
	}
	if filter.StudentID != nil {
		b.add("student_id = $%d", *filter.StudentID)
	}
	if filter.PlanID != nil {
		b.add("plan_id = $%d", *filter.PlanID)
	}
	query := fmt.Sprintf(`SELECT %s FROM enrollments WHERE tenant_id = $1%s ORDER BY code`, enrollmentColumns, b.clauses)
	query += b.page(limit, offset)

	rows, err := r.pool.Query(ctx, query, b.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	enrollments := make([]*domain.Enrollment, 0)
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		enrollments = append(enrollments, e)
	}
	return enrollments, rows.Err()
}

// ListBillable joins ACTIVE enrollments having a due day with their RECURRING plan.
func (r *EnrollmentRepository) ListBillable(ctx context.Context) ([]domain.BillableEnrollment, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + prefixed("e", enrollmentColumns) + `, ` + prefixed("p", planColumns) + `
		FROM enrollments e
		JOIN plans p ON p.id = e.plan_id AND p.tenant_id = e.tenant_id
		WHERE e.tenant_id = $1 AND e.status = 'ACTIVE' AND e.due_day IS NOT NULL AND p.charge_type = 'RECURRING'
		ORDER BY e.code
	`
	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.BillableEnrollment, 0)
	for rows.Next() {
		var ed enrollmentDest
		var pd planDest
		if err := rows.Scan(append(ed.targets(), pd.targets()...)...); err != nil {
			return nil, err
		}
		result = append(result, domain.BillableEnrollment{Enrollment: ed.enrollment(), Plan: pd.plan()})
	}
	return result, rows.Err()
}
