package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/gymledger/internal/domain"
	"github.com/iho/gymledger/internal/usecase"
)

// SequenceRepository implements usecase.SequenceAllocator and usecase.TenantLister.
type SequenceRepository struct {
	pool querier
}

// NewSequenceRepository creates a new SequenceRepository.
func NewSequenceRepository(pool *pgxpool.Pool) *SequenceRepository {
	return &SequenceRepository{pool: pool}
}

// Next increments the tenant's counter for series and returns the new value.
// The row lock taken by the upsert is held until tx ends, so numbers are gap-free
// across committed transactions.
func (r *SequenceRepository) Next(ctx context.Context, tx usecase.Transaction, series domain.Series) (int64, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return 0, err
	}

	query := `
		INSERT INTO sequences (tenant_id, series, value, updated_at)
		VALUES ($1, $2, 1, now())
		ON CONFLICT (tenant_id, series) DO UPDATE
		SET value = sequences.value + 1, updated_at = now()
		RETURNING value
	`
	var value int64
	if err := conn(r.pool, tx).QueryRow(ctx, query, tenantID, string(series)).Scan(&value); err != nil {
		return 0, err
	}
	return value, nil
}

// ListTenantIDs returns every company that has numbered anything, sorted.
// Every register, account and enrollment draws a number, so this covers all
// tenants the background jobs can act on.
func (r *SequenceRepository) ListTenantIDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT tenant_id FROM sequences ORDER BY tenant_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tenants := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		tenants = append(tenants, id)
	}
	return tenants, rows.Err()
}
