package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpAdapter "github.com/iho/gymledger/internal/adapter/http"
	"github.com/iho/gymledger/internal/adapter/http/handler"
	"github.com/iho/gymledger/internal/adapter/http/middleware"
	memoryRepo "github.com/iho/gymledger/internal/adapter/repository/memory"
	postgresRepo "github.com/iho/gymledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/gymledger/internal/adapter/repository/redis"
	"github.com/iho/gymledger/internal/domain"
	"github.com/iho/gymledger/internal/infrastructure/auth"
	"github.com/iho/gymledger/internal/infrastructure/config"
	"github.com/iho/gymledger/internal/infrastructure/eventpublisher"
	"github.com/iho/gymledger/internal/infrastructure/logger"
	"github.com/iho/gymledger/internal/infrastructure/metrics"
	"github.com/iho/gymledger/internal/infrastructure/postgres"
	"github.com/iho/gymledger/internal/infrastructure/redis"
	"github.com/iho/gymledger/internal/infrastructure/scheduler"
	"github.com/iho/gymledger/internal/usecase"
)

// streamMaxLen caps the event stream length (approximate trimming).
const streamMaxLen = 100_000

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Setup logger
	appLogger := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log.Logger = appLogger

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, appLogger); err != nil {
		appLogger.Fatal().Err(err).Msg("server failed")
	}
	appLogger.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	m := metrics.New()

	st, err := openStores(ctx, cfg, m, logger)
	if err != nil {
		return err
	}
	defer st.close()

	// Redis is optional
	var redisClient *goredis.Client
	if cfg.RedisURL != "" {
		redisClient, err = redis.NewClient(ctx, redis.Config{
			URL:         cfg.RedisURL,
			PoolSize:    cfg.RedisPoolSize,
			DialTimeout: cfg.RedisDialTimeout,
			ClientName:  "gymledger",
		})
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer redisClient.Close()
		st.checks["redis"] = redis.Check(redisClient)
		logger.Info().Msg("connected to redis")
	}

	app := newApp(cfg, st, redisClient, logger, m)

	if err := app.bootstrapAdmin(ctx, cfg); err != nil {
		return err
	}

	if cfg.SchedulerEnabled {
		sched, err := scheduler.New(scheduler.Config{
			Location:    cfg.Location(),
			BillingSpec: cfg.BillingCron,
			OverdueSpec: cfg.OverdueCron,
		}, app.generator, logger)
		if err != nil {
			return err
		}
		sched.Start(ctx)
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
			defer cancel()
			if err := sched.Stop(stopCtx); err != nil {
				logger.Warn().Err(err).Msg("scheduler did not stop cleanly")
			}
		}()
	}

	if cfg.OutboxEnabled {
		relay := eventpublisher.NewEventPublisher(eventpublisher.Config{
			OutboxRepo: st.outbox,
			Publisher:  newPublisher(cfg, redisClient, logger),
			Logger:     logger,
			Interval:   cfg.OutboxPollInterval,
			Retention:  cfg.OutboxRetention,
			Metrics:    m,
		})
		go func() {
			if err := relay.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("event publisher stopped")
			}
		}()
	}

	if app.rateLimiter != nil {
		go cleanupLimiters(ctx, app.rateLimiter)
	}

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      app.router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.HTTPPort).Str("store", cfg.StoreDriver).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}

// stores groups the persistence ports of the selected driver.
type stores struct {
	tx          usecase.TransactionManager
	sequences   usecase.SequenceAllocator
	tenants     usecase.TenantLister
	retrier     usecase.Retrier
	registers   usecase.CashRegisterRepository
	accounts    usecase.BillingAccountRepository
	enrollments usecase.EnrollmentRepository
	plans       usecase.PlanRepository
	discounts   usecase.DiscountRepository
	students    usecase.StudentRepository
	employees   usecase.EmployeeRepository
	classes     usecase.ClassRepository
	users       usecase.UserRepository
	outbox      usecase.OutboxRepository
	audit       usecase.AuditRepository

	checks  map[string]handler.Pinger
	closers []func()
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func openStores(ctx context.Context, cfg *config.Config, m *metrics.Metrics, logger zerolog.Logger) (*stores, error) {
	if cfg.StoreDriver == config.StoreMemory {
		logger.Warn().Msg("using in-memory store, data is lost on restart")
		return memoryStores(cfg.DefaultTenantID), nil
	}

	if cfg.AutoMigrate {
		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, logger); err != nil {
			return nil, err
		}
	}

	// Connect to PostgreSQL
	pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
		DatabaseURL:      cfg.DatabaseURL,
		MaxConns:         cfg.DatabaseMaxConns,
		MinConns:         cfg.DatabaseMinConns,
		StatementTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	logger.Info().Msg("connected to postgres")

	sequences := postgresRepo.NewSequenceRepository(pool)
	return &stores{
		tx:          postgresRepo.NewTxManager(pool, cfg.DatabaseLockWait),
		sequences:   sequences,
		tenants:     sequences,
		retrier:     postgresRepo.NewRetrier(cfg.DatabaseRetries, m, logger),
		registers:   postgresRepo.NewCashRegisterRepository(pool),
		accounts:    postgresRepo.NewBillingAccountRepository(pool),
		enrollments: postgresRepo.NewEnrollmentRepository(pool),
		plans:       postgresRepo.NewPlanRepository(pool),
		discounts:   postgresRepo.NewDiscountRepository(pool),
		students:    postgresRepo.NewStudentRepository(pool),
		employees:   postgresRepo.NewEmployeeRepository(pool),
		classes:     postgresRepo.NewClassRepository(pool),
		users:       postgresRepo.NewUserRepository(pool),
		outbox:      postgresRepo.NewOutboxRepository(pool),
		audit:       postgresRepo.NewAuditRepository(pool),
		checks:      map[string]handler.Pinger{"postgres": pool.Ping},
		closers:     []func(){pool.Close},
	}, nil
}

func memoryStores(defaultTenant string) *stores {
	s := memoryRepo.New()
	s.AddTenant(defaultTenant)
	return &stores{
		tx:          s,
		sequences:   s,
		tenants:     s,
		registers:   memoryRepo.NewCashRegisterRepository(s),
		accounts:    memoryRepo.NewBillingAccountRepository(s),
		enrollments: memoryRepo.NewEnrollmentRepository(s),
		plans:       memoryRepo.NewPlanRepository(s),
		discounts:   memoryRepo.NewDiscountRepository(s),
		students:    memoryRepo.NewStudentRepository(s),
		employees:   memoryRepo.NewEmployeeRepository(s),
		classes:     memoryRepo.NewClassRepository(s),
		users:       memoryRepo.NewUserRepository(s),
		outbox:      memoryRepo.NewOutboxRepository(s),
		audit:       memoryRepo.NewAuditRepository(s),
		checks:      map[string]handler.Pinger{},
	}
}

// app is the wired service.
type app struct {
	router      http.Handler
	generator   *usecase.BillingGenerator
	users       *usecase.UserUseCase
	rateLimiter *middleware.RateLimiter
}

func newApp(cfg *config.Config, st *stores, redisClient *goredis.Client, logger zerolog.Logger, m *metrics.Metrics) *app {
	idGen := postgresRepo.NewULIDGenerator()
	clock := usecase.NewSystemClock(cfg.Location())

	plans, discounts := st.plans, st.discounts
	var idempotencyStore usecase.IdempotencyStore
	if redisClient != nil {
		cache := redisRepo.NewCache(redisClient, redisRepo.DefaultCacheNamespace)
		plans = redisRepo.NewCachedPlanRepository(plans, cache, cfg.CacheTTL, logger)
		discounts = redisRepo.NewCachedDiscountRepository(discounts, cache, cfg.CacheTTL, logger)
		idempotencyStore = redisRepo.NewIdempotencyStore(redisClient)
	}

	// Initialize use cases
	registerUC := usecase.NewCashRegisterUseCase(st.tx, st.registers, st.sequences, st.outbox, st.audit, idGen, clock, m)
	billingUC := usecase.NewBillingUseCase(st.tx, usecase.BillingDeps{
		Accounts:  st.accounts,
		Students:  st.students,
		Employees: st.employees,
		Plans:     plans,
		Discounts: discounts,
		Outbox:    st.outbox,
		Audit:     st.audit,
	}, registerUC, st.sequences, st.retrier, idGen, clock, m)
	enrollmentUC := usecase.NewEnrollmentUseCase(st.tx, usecase.EnrollmentDeps{
		Enrollments: st.enrollments,
		Accounts:    st.accounts,
		Students:    st.students,
		Plans:       plans,
		Discounts:   discounts,
		Classes:     st.classes,
		Outbox:      st.outbox,
		Audit:       st.audit,
	}, billingUC, st.sequences, idGen, clock, m)
	catalogUC := usecase.NewCatalogUseCase(st.tx, usecase.CatalogDeps{
		Plans:     plans,
		Discounts: discounts,
		Students:  st.students,
		Employees: st.employees,
		Classes:   st.classes,
	}, st.sequences, idGen, clock)
	reconciliationUC := usecase.NewReconciliationUseCase(st.registers, st.accounts, clock)
	userUC := usecase.NewUserUseCase(st.users, st.audit, idGen, clock)
	generator := usecase.NewBillingGenerator(st.enrollments, st.accounts, billingUC, st.tenants, clock, logger, m)

	// Authentication
	var authHandler *handler.AuthHandler
	authenticate := middleware.StaticTenant(cfg.DefaultTenantID)
	if cfg.AuthEnabled {
		jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration)
		authHandler = handler.NewAuthHandler(userUC, jwtManager, int64(jwtManager.TokenDuration().Seconds()))
		authenticate = middleware.AuthMiddleware(jwtManager)
	}

	var rateLimiter *middleware.RateLimiter
	if cfg.RateLimitRPS > 0 {
		rateLimiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, m)
	}

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		RegisterHandler:       handler.NewRegisterHandler(registerUC, reconciliationUC),
		ReceivableHandler:     handler.NewAccountHandler(billingUC, domain.KindReceivable),
		PayableHandler:        handler.NewAccountHandler(billingUC, domain.KindPayable),
		EnrollmentHandler:     handler.NewEnrollmentHandler(enrollmentUC),
		CatalogHandler:        handler.NewCatalogHandler(catalogUC),
		UserHandler:           handler.NewUserHandler(userUC),
		JobHandler:            handler.NewJobHandler(generator, billingUC),
		ReconciliationHandler: handler.NewReconciliationHandler(reconciliationUC),
		HealthHandler:         handler.NewHealthHandler(st.checks),
		AuthHandler:           authHandler,
		Authenticate:          authenticate,
		Logger:                logger,
		Metrics:               m,
		RateLimiter:           rateLimiter,
		IdempotencyStore:      idempotencyStore,
		IdempotencyTTL:        cfg.IdempotencyTTL,
	})

	return &app{router: router, generator: generator, users: userUC, rateLimiter: rateLimiter}
}

// bootstrapAdmin creates the configured admin of the default tenant when missing.
func (a *app) bootstrapAdmin(ctx context.Context, cfg *config.Config) error {
	if cfg.BootstrapAdminEmail == "" {
		return nil
	}
	ctx = domain.WithTenant(ctx, cfg.DefaultTenantID)
	_, err := a.users.CreateUser(ctx, usecase.CreateUserInput{
		Email:    cfg.BootstrapAdminEmail,
		Name:     "Administrator",
		Password: cfg.BootstrapAdminPassword,
		Role:     domain.RoleAdmin,
	})
	if err != nil && !errors.Is(err, domain.ErrUserAlreadyExists) {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	return nil
}

// newPublisher picks the Redis stream when Redis is configured, the log otherwise.
func newPublisher(cfg *config.Config, redisClient *goredis.Client, logger zerolog.Logger) eventpublisher.Publisher {
	if redisClient != nil {
		return redisRepo.NewStreamPublisher(redisClient, cfg.EventStream, streamMaxLen)
	}
	return eventpublisher.NewLogPublisher(logger)
}

func cleanupLimiters(ctx context.Context, rl *middleware.RateLimiter) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.CleanupLimiters(10 * time.Minute)
		}
	}
}
