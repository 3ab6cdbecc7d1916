package postgres

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/gymledger/internal/domain"
	"github.com/iho/gymledger/internal/usecase"
)

const planColumns = `id, tenant_id, code, name, periodicity, charge_type, price,
	month_count, day_count, active, created_at, updated_at`

// prefixed qualifies every column of a column list with a table alias.
func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

// PlanRepository implements usecase.PlanRepository.
type PlanRepository struct {
	pool querier
}

// NewPlanRepository creates a new PlanRepository.
func NewPlanRepository(pool *pgxpool.Pool) *PlanRepository {
	return &PlanRepository{pool: pool}
}

type planDest struct {
	p                    domain.Plan
	price                pgtype.Numeric
	createdAt, updatedAt pgtype.Timestamptz
}

func (d *planDest) targets() []any {
	return []any{
		&d.p.ID, &d.p.TenantID, &d.p.Code, &d.p.Name, &d.p.Periodicity, &d.p.ChargeType, &d.price,
		&d.p.MonthCount, &d.p.DayCount, &d.p.Active, &d.createdAt, &d.updatedAt,
	}
}

func (d *planDest) plan() *domain.Plan {
	p := d.p
	p.Price = numericToDecimal(d.price)
	p.CreatedAt = d.createdAt.Time
	p.UpdatedAt = d.updatedAt.Time
	return &p
}

func (r *PlanRepository) Create(ctx context.Context, tx usecase.Transaction, p *domain.Plan) error {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO plans (` + planColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = conn(r.pool, tx).Exec(ctx, query,
		p.ID, tenantID, p.Code, p.Name, p.Periodicity, p.ChargeType, decimalToNumeric(p.Price),
		p.MonthCount, p.DayCount, p.Active, timeToPgTimestamptz(p.CreatedAt), timeToPgTimestamptz(p.UpdatedAt),
	)
	if err == nil {
		p.TenantID = tenantID
	}
	return err
}

func (r *PlanRepository) GetByID(ctx context.Context, id string) (*domain.Plan, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}

	var d planDest
	query := `SELECT ` + planColumns + ` FROM plans WHERE tenant_id = $1 AND id = $2`
	if err := r.pool.QueryRow(ctx, query, tenantID, id).Scan(d.targets()...); err != nil {
		return nil, notFound(err, domain.ErrPlanNotFound)
	}
	return d.plan(), nil
}

func (r *PlanRepository) Update(ctx context.Context, p *domain.Plan) error {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return err
	}

	query := `
		UPDATE plans
		SET name = $3, periodicity = $4, charge_type = $5, price = $6, month_count = $7, day_count = $8,
		    active = $9, updated_at = $10
		WHERE tenant_id = $1 AND id = $2
	`
	tag, err := r.pool.Exec(ctx, query,
		tenantID, p.ID, p.Name, p.Periodicity, p.ChargeType, decimalToNumeric(p.Price),
		p.MonthCount, p.DayCount, p.Active, timeToPgTimestamptz(p.UpdatedAt),
	)
	return affected(tag, err, domain.ErrPlanNotFound)
}

func (r *PlanRepository) List(ctx context.Context, limit, offset int) ([]*domain.Plan, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + planColumns + ` FROM plans WHERE tenant_id = $1 ORDER BY code LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plans := make([]*domain.Plan, 0)
	for rows.Next() {
		var d planDest
		if err := rows.Scan(d.targets()...); err != nil {
			return nil, err
		}
		plans = append(plans, d.plan())
	}
	return plans, rows.Err()
}

// DiscountRepository implements usecase.DiscountRepository.
type DiscountRepository struct {
	pool querier
}

// NewDiscountRepository creates a new DiscountRepository.
func NewDiscountRepository(pool *pgxpool.Pool) *DiscountRepository {
	return &DiscountRepository{pool: pool}
}

func scanDiscount(row rowScanner) (*domain.Discount, error) {
	var d domain.Discount
	var value pgtype.Numeric
	var createdAt, updatedAt pgtype.Timestamptz
	if err := row.Scan(&d.ID, &d.TenantID, &d.Name, &d.Type, &value, &d.Active, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	d.Value = numericToDecimal(value)
	d.CreatedAt = createdAt.Time
	d.UpdatedAt = updatedAt.Time
	return &d, nil
}

func (r *DiscountRepository) Create(ctx context.Context, d *domain.Discount) error {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO discounts (id, tenant_id, name, type, value, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.pool.Exec(ctx, query,
		d.ID, tenantID, d.Name, d.Type, decimalToNumeric(d.Value), d.Active,
		timeToPgTimestamptz(d.CreatedAt), timeToPgTimestamptz(d.UpdatedAt),
	)
	if err == nil {
		d.TenantID = tenantID
	}
	return err
}

func (r *DiscountRepository) GetByID(ctx context.Context, id string) (*domain.Discount, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT id, tenant_id, name, type, value, active, created_at, updated_at FROM discounts WHERE tenant_id = $1 AND id = $2`
	d, err := scanDiscount(r.pool.QueryRow(ctx, query, tenantID, id))
	if err != nil {
		return nil, notFound(err, domain.ErrDiscountNotFound)
	}
	return d, nil
}

func (r *DiscountRepository) Update(ctx context.Context, d *domain.Discount) error {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return err
	}

	query := `UPDATE discounts SET name = $3, type = $4, value = $5, active = $6, updated_at = $7 WHERE tenant_id = $1 AND id = $2`
	tag, err := r.pool.Exec(ctx, query,
		tenantID, d.ID, d.Name, d.Type, decimalToNumeric(d.Value), d.Active, timeToPgTimestamptz(d.UpdatedAt),
	)
	return affected(tag, err, domain.ErrDiscountNotFound)
}

func (r *DiscountRepository) List(ctx context.Context, limit, offset int) ([]*domain.Discount, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT id, tenant_id, name, type, value, active, created_at, updated_at
		FROM discounts WHERE tenant_id = $1 ORDER BY name LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	discounts := make([]*domain.Discount, 0)
	for rows.Next() {
		d, err := scanDiscount(rows)
		if err != nil {
			return nil, err
		}
		discounts = append(discounts, d)
	}
	return discounts, rows.Err()
}

// StudentRepository implements usecase.StudentRepository.
type StudentRepository struct {
	pool querier
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

func scanStudent(row rowScanner) (*domain.Student, error) {
	var s domain.Student
	var createdAt pgtype.Timestamptz
	if err := row.Scan(&s.ID, &s.TenantID, &s.Name, &s.Document, &s.Email, &s.Phone, &s.Active, &createdAt); err != nil {
		return nil, err
	}
	s.CreatedAt = createdAt.Time
	return &s, nil
}

func (r *StudentRepository) Create(ctx context.Context, s *domain.Student) error {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO students (id, tenant_id, name, document, email, phone, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.pool.Exec(ctx, query,
		s.ID, tenantID, s.Name, s.Document, s.Email, s.Phone, s.Active, timeToPgTimestamptz(s.CreatedAt),
	)
	if err == nil {
		s.TenantID = tenantID
	}
	return err
}

func (r *StudentRepository) GetByID(ctx context.Context, id string) (*domain.Student, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT id, tenant_id, name, document, email, phone, active, created_at FROM students WHERE tenant_id = $1 AND id = $2`
	s, err := scanStudent(r.pool.QueryRow(ctx, query, tenantID, id))
	if err != nil {
		return nil, notFound(err, domain.ErrStudentNotFound)
	}
	return s, nil
}

func (r *StudentRepository) List(ctx context.Context, limit, offset int) ([]*domain.Student, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT id, tenant_id, name, document, email, phone, active, created_at
		FROM students WHERE tenant_id = $1 ORDER BY name LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	students := make([]*domain.Student, 0)
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

// EmployeeRepository implements usecase.EmployeeRepository.
type EmployeeRepository struct {
	pool querier
}

// NewEmployeeRepository creates a new EmployeeRepository.
func NewEmployeeRepository(pool *pgxpool.Pool) *EmployeeRepository {
	return &EmployeeRepository{pool: pool}
}

func scanEmployee(row rowScanner) (*domain.Employee, error) {
	var e domain.Employee
	var createdAt pgtype.Timestamptz
	if err := row.Scan(&e.ID, &e.TenantID, &e.Name, &e.Document, &e.Role, &e.Active, &createdAt); err != nil {
		return nil, err
	}
	e.CreatedAt = createdAt.Time
	return &e, nil
}

func (r *EmployeeRepository) Create(ctx context.Context, e *domain.Employee) error {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO employees (id, tenant_id, name, document, role, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.pool.Exec(ctx, query, e.ID, tenantID, e.Name, e.Document, e.Role, e.Active, timeToPgTimestamptz(e.CreatedAt))
	if err == nil {
		e.TenantID = tenantID
	}
	return err
}

func (r *EmployeeRepository) GetByID(ctx context.Context, id string) (*domain.Employee, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT id, tenant_id, name, document, role, active, created_at FROM employees WHERE tenant_id = $1 AND id = $2`
	e, err := scanEmployee(r.pool.QueryRow(ctx, query, tenantID, id))
	if err != nil {
		return nil, notFound(err, domain.ErrEmployeeNotFound)
	}
	return e, nil
}

func (r *EmployeeRepository) List(ctx context.Context, limit, offset int) ([]*domain.Employee, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT id, tenant_id, name, document, role, active, created_at
		FROM employees WHERE tenant_id = $1 ORDER BY name LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	employees := make([]*domain.Employee, 0)
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

// ClassRepository implements usecase.ClassRepository.
type ClassRepository struct {
	pool querier
}

// NewClassRepository creates a new ClassRepository.
func NewClassRepository(pool *pgxpool.Pool) *ClassRepository {
	return &ClassRepository{pool: pool}
}

func scanClass(row rowScanner) (*domain.Class, error) {
	var c domain.Class
	var createdAt pgtype.Timestamptz
	if err := row.Scan(&c.ID, &c.TenantID, &c.Name, &c.Schedule, &c.Capacity, &c.Active, &createdAt); err != nil {
		return nil, err
	}
	c.CreatedAt = createdAt.Time
	return &c, nil
}

func (r *ClassRepository) Create(ctx context.Context, c *domain.Class) error {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO classes (id, tenant_id, name, schedule, capacity, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.pool.Exec(ctx, query, c.ID, tenantID, c.Name, c.Schedule, c.Capacity, c.Active, timeToPgTimestamptz(c.CreatedAt))
	if err == nil {
		c.TenantID = tenantID
	}
	return err
}

func (r *ClassRepository) GetByID(ctx context.Context, id string) (*domain.Class, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT id, tenant_id, name, schedule, capacity, active, created_at FROM classes WHERE tenant_id = $1 AND id = $2`
	c, err := scanClass(r.pool.QueryRow(ctx, query, tenantID, id))
	if err != nil {
		return nil, notFound(err, domain.ErrClassNotFound)
	}
	return c, nil
}

func (r *ClassRepository) List(ctx context.Context, limit, offset int) ([]*domain.Class, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT id, tenant_id, name, schedule, capacity, active, created_at
		FROM classes WHERE tenant_id = $1 ORDER BY name LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	classes := make([]*domain.Class, 0)
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, err
		}
		classes = append(classes, c)
	}
	return classes, rows.Err()
}
