package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/seatclub/seat-reservation/internal/config"
	"github.com/seatclub/seat-reservation/internal/database"
	"github.com/seatclub/seat-reservation/internal/handler"
	"github.com/seatclub/seat-reservation/internal/jobs"
	"github.com/seatclub/seat-reservation/internal/middleware"
	"github.com/seatclub/seat-reservation/internal/model"
	"github.com/seatclub/seat-reservation/internal/queue"
	"github.com/seatclub/seat-reservation/internal/repository"
	"github.com/seatclub/seat-reservation/internal/router"
	"github.com/seatclub/seat-reservation/internal/service"
	"github.com/seatclub/seat-reservation/internal/utils"
)

// catalogStore is the seat catalog as both the engine and staff see it.
type catalogStore interface {
	service.SeatCatalog
	handler.SeatAdmin
}

type stores struct {
	reservations service.ReservationStore
	catalog      catalogStore
	branches     handler.BranchStore
	members      handler.MemberStore
	db           *sqlx.DB
}

func main() {
	cfg := config.Load()
	logger, err := utils.NewLogger(cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("open stores", zap.String("store", cfg.Store), zap.Error(err))
	}
	pingers := map[string]handler.Pinger{}
	if st.db != nil {
		defer st.db.Close()
		pingers["mysql"] = st.db.PingContext
	}

	rcfg := config.LoadRedisConfig()
	rdb := config.NewRedisClient(rcfg)
	var selections service.SelectionStore
	if rdb != nil {
		defer rdb.Close()
		selections = repository.NewRedisSelectionStore(rdb, rcfg.SelectionPrefix)
		pingers["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	} else {
		logger.Warn("redis unavailable; selections, rate limits and cache stay in process", zap.String("addr", rcfg.Addr))
		selections = repository.NewMemorySelectionStore(time.Now)
	}

	var publisher service.EventPublisher
	if cfg.RabbitURL != "" {
		publisher = queue.NewPublisher(cfg.RabbitURL, logger.Named("publisher"))
		consumer := queue.NewConsumer(cfg.RabbitURL, logger.Named("consumer"))
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("reservation consumer stopped", zap.Error(err))
			}
		}()
	}

	reservations := service.NewReservationService(st.reservations, st.catalog, service.Options{
		LimitedThreshold: cfg.LimitedThreshold,
		Location:         cfg.Timezone,
		Publisher:        publisher,
		Log:              logger.Named("reservations"),
	})
	selectionSvc := service.NewSelectionService(selections, reservations, cfg.SelectionTTL, logger.Named("selections"))

	bootstrapStaff(ctx, cfg, st.members, logger)

	if cfg.CompletionSweepSpec != "" {
		sched, err := jobs.Schedule(cfg.CompletionSweepSpec, cfg.Timezone, reservations, logger)
		if err != nil {
			logger.Fatal("schedule completion sweep", zap.String("spec", cfg.CompletionSweepSpec), zap.Error(err))
		}
		sched.Start()
		defer func() { <-sched.Stop().Done() }()
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(logger.Named("http")))
	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger)

	catalog := handler.NewCatalogHandler(reservations, st.branches, logger)
	router.RegisterRoutes(e, handler.Health(pingers))
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, st.members, logger), cfg.JWTSecret, limit)
	router.RegisterPublic(e, catalog, middleware.NewRedisCache(config.LoadCacheConfig(), rdb, logger), limit)
	router.RegisterMember(e,
		handler.NewReservationHandler(reservations, logger),
		catalog,
		handler.NewSelectionHandler(selectionSvc, logger),
		cfg.JWTSecret, limit)
	router.RegisterStaff(e, handler.NewAdminHandler(reservations, st.catalog, st.branches, logger), cfg.JWTSecret, limit)

	addr := ":" + cfg.Port
	go func() {
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("store", cfg.Store))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

func openStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (stores, error) {
	if cfg.Store == config.StoreMemory {
		logger.Warn("using in-memory stores; data is lost on restart")
		catalog := repository.NewMemoryCatalog()
		return stores{
			reservations: repository.NewMemoryReservations(),
			catalog:      catalog,
			branches:     catalog.Branches(),
			members:      repository.NewMemoryMembers(),
		}, nil
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return stores{}, err
	}
	if cfg.DBMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return stores{}, err
		}
		logger.Info("schema migrated")
	}
	return stores{
		reservations: repository.NewReservationRepo(db),
		catalog:      repository.NewSeatRepo(db),
		branches:     repository.NewBranchRepo(db),
		members:      repository.NewMemberRepo(db),
		db:           db,
	}, nil
}

// bootstrapStaff creates the configured staff account once.
func bootstrapStaff(ctx context.Context, cfg config.Config, members handler.MemberStore, logger *zap.Logger) {
	if cfg.StaffEmail == "" || cfg.StaffPassword == "" {
		return
	}
	_, err := members.Create(ctx, cfg.StaffEmail, cfg.StaffPassword, model.RoleStaff, cfg.BcryptCost)
	switch {
	case err == nil:
		logger.Info("staff account created", zap.String("email", cfg.StaffEmail))
	case errors.Is(err, repository.ErrEmailExists):
	default:
		logger.Error("create staff account", zap.Error(err))
	}
}
