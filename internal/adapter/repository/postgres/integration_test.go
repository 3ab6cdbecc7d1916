//go:build integration

package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/gymledger/internal/domain"
	"github.com/iho/gymledger/internal/infrastructure/postgres"
)

// newTestPool migrates DATABASE_URL and returns a pool plus a fresh tenant, so runs
// never need to truncate.
func newTestPool(t *testing.T) (*pgxpool.Pool, context.Context) {
	t.Helper()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}
	if err := postgres.RunMigrations(dbURL, "../../../../migrations", zerolog.Nop()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	t.Cleanup(pool.Close)

	return pool, domain.WithTenant(context.Background(), "it-"+ulid.Make().String())
}

func TestIntegration_SequencesAreGapless(t *testing.T) {
	pool, ctx := newTestPool(t)
	seq := NewSequenceRepository(pool)

	for want := int64(1); want <= 3; want++ {
		got, err := seq.Next(ctx, nil, domain.SeriesReceivable)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if got != want {
			t.Fatalf("expected %d, got %d", want, got)
		}
	}
}

func TestIntegration_OneOpenRegisterPerTenant(t *testing.T) {
	pool, ctx := newTestPool(t)
	repo := NewCashRegisterRepository(pool)
	txm := NewTxManager(pool, time.Second)
	now := time.Now().UTC().Truncate(time.Microsecond)

	first := &domain.CashRegister{
		ID: ulid.Make().String(), Number: "CX00001", Status: domain.RegisterOpen,
		OpeningFloat: decimal.NewFromInt(100), OpenedBy: "maria", OpenedAt: now, UpdatedAt: now,
	}
	if err := repo.Create(ctx, nil, first); err != nil {
		t.Fatalf("create: %v", err)
	}

	second := *first
	second.ID, second.Number = ulid.Make().String(), "CX00002"
	if err := repo.Create(ctx, nil, &second); !errors.Is(err, domain.ErrRegisterAlreadyOpen) {
		t.Fatalf("expected ErrRegisterAlreadyOpen, got %v", err)
	}

	tx, err := txm.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	locked, err := repo.GetOpenForUpdate(ctx, tx)
	if err != nil {
		t.Fatalf("lock open register: %v", err)
	}
	movement := &domain.Movement{
		ID: ulid.Make().String(), RegisterID: locked.ID, Direction: domain.DirectionOut,
		Amount: decimal.RequireFromString("30.50"), Description: "bank deposit", CreatedAt: now,
	}
	if err := repo.AddMovement(ctx, tx, movement); err != nil {
		t.Fatalf("add movement: %v", err)
	}
	locked.TotalOut = movement.Amount
	locked.UpdatedAt = now
	if err := repo.Update(ctx, tx, locked); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	got, err := repo.GetByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Movements) != 1 || !got.Movements[0].Amount.Equal(movement.Amount) {
		t.Fatalf("unexpected movements %+v", got.Movements)
	}
	if !got.AvailableBalance().Equal(decimal.RequireFromString("69.50")) {
		t.Fatalf("unexpected balance %s", got.AvailableBalance())
	}
}
