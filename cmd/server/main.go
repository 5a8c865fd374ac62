package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"bazaar/internal/audit"
	jwttoken "bazaar/internal/jwt_token"
	"bazaar/internal/ledger"
	"bazaar/internal/nameindex"
	"bazaar/internal/platform/config"
	"bazaar/internal/platform/database"
	"bazaar/internal/platform/httpserver"
	"bazaar/internal/platform/logger"
	platformmetrics "bazaar/internal/platform/metrics"
	"bazaar/internal/platform/redis"
	httptransport "bazaar/internal/transport/http"
	usermetrics "bazaar/internal/users/metrics"
	userservice "bazaar/internal/users/service"
	userstore "bazaar/internal/users/store"
	vendormetrics "bazaar/internal/vendors/metrics"
	vendorservice "bazaar/internal/vendors/service"
	vendorstore "bazaar/internal/vendors/store"
	"bazaar/pkg/domain"
	dErrors "bazaar/pkg/domain-errors"
)

// main wires configuration, storage backends, domain services, and the HTTP
// router, then runs the server and the audit worker until a shutdown signal.
// Business logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

// backends groups the storage implementations selected by configuration:
// postgres when a database URL is set, Redis for the name index when only
// Redis is set, in-memory otherwise.
type backends struct {
	userProfiles userstore.ProfileStore
	userState    userstore.FactoryStateStore
	userNames    userservice.NameIndex
	userTx       userservice.StoreTx

	vendorProfiles vendorstore.ProfileStore
	vendorState    vendorstore.FactoryStateStore
	vendorNames    vendorservice.NameIndex
	vendorTx       vendorservice.StoreTx

	ledger userservice.Ledger
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *sql.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = database.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
		log.Info("postgres backend ready")
	}

	redisClient, err := redis.New(cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
		log.Info("redis backend ready")
	}

	be := selectBackends(db, redisClient)

	// Audit events flow through a buffered inbox so emission never blocks a
	// registration. With Kafka configured they go to the broker instead.
	auditStore := audit.NewInMemoryStore()
	inbox := make(chan audit.Event, 256)
	var publisher userservice.AuditPublisher
	var worker *audit.Worker
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPub, err := audit.NewKafkaPublisher(cfg.KafkaBrokers, audit.DefaultTopic, log)
		if err != nil {
			return err
		}
		defer kafkaPub.Close()
		publisher = kafkaPub
		log.Info("audit events routed to kafka", "topic", audit.DefaultTopic)
	} else {
		publisher = audit.NewChannelPublisher(inbox)
		worker = audit.NewWorker(auditStore, inbox)
	}

	userFactory := userservice.NewFactoryService(be.userProfiles, be.userState, be.userNames, be.ledger,
		userservice.WithLogger(log),
		userservice.WithTx(be.userTx),
		userservice.WithMetrics(usermetrics.New()),
		userservice.WithAuditPublisher(publisher))
	userProfiles := userservice.NewProfileService(be.userProfiles, be.userState, be.userNames,
		userservice.WithLogger(log),
		userservice.WithTx(be.userTx),
		userservice.WithAuditPublisher(publisher))

	vendorFactory := vendorservice.NewFactoryService(be.vendorProfiles, be.vendorState, be.vendorNames, be.ledger,
		vendorservice.WithLogger(log),
		vendorservice.WithTx(be.vendorTx),
		vendorservice.WithMetrics(vendormetrics.New()),
		vendorservice.WithAuditPublisher(publisher))
	vendorProfiles := vendorservice.NewProfileService(be.vendorProfiles, be.vendorState, be.vendorNames,
		vendorservice.WithLogger(log),
		vendorservice.WithTx(be.vendorTx),
		vendorservice.WithAuditPublisher(publisher))

	if cfg.AdminAccount != "" {
		if err := initializeFactories(ctx, cfg, log, userFactory, vendorFactory); err != nil {
			return err
		}
	}

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "bazaar", "bazaar-api")

	router := httptransport.NewRouter(
		httptransport.NewUserHandler(userFactory, userProfiles, log),
		httptransport.NewVendorHandler(vendorFactory, vendorProfiles, log),
		httptransport.RouterConfig{
			Logger:         log,
			Metrics:        platformmetrics.New(),
			JWTValidator:   jwttoken.NewJWTServiceAdapter(jwtService),
			RequestTimeout: cfg.RequestTimeout,
		},
	)

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)

	if worker != nil {
		g.Go(func() error {
			if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		log.Info("starting server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func selectBackends(db *sql.DB, redisClient *redis.Client) backends {
	if db != nil {
		pgTx := newRegistryPostgresTx(db)
		return backends{
			userProfiles:   userstore.NewPostgresProfileStore(db),
			userState:      userstore.NewPostgresFactoryStateStore(db),
			userNames:      nameindex.NewPostgres(db, nameindex.NamespaceUsername),
			userTx:         pgTx,
			vendorProfiles: vendorstore.NewPostgresProfileStore(db),
			vendorState:    vendorstore.NewPostgresFactoryStateStore(db),
			vendorNames:    nameindex.NewPostgres(db, nameindex.NamespaceVendorName),
			vendorTx:       pgTx,
			ledger:         ledger.NewPostgres(db),
		}
	}

	be := backends{
		userProfiles:   userstore.NewInMemoryProfileStore(),
		userState:      userstore.NewInMemoryFactoryStateStore(),
		userNames:      nameindex.NewInMemory(),
		userTx:         userservice.NewInMemoryTx(),
		vendorProfiles: vendorstore.NewInMemoryProfileStore(),
		vendorState:    vendorstore.NewInMemoryFactoryStateStore(),
		vendorNames:    nameindex.NewInMemory(),
		vendorTx:       vendorservice.NewInMemoryTx(),
		ledger:         ledger.NewInMemory(),
	}
	if redisClient != nil {
		// The Redis index cannot join a SQL transaction, so it pairs with
		// the lock-based runners and the services' compensation paths.
		be.userNames = nameindex.NewRedis(redisClient.Client, nameindex.NamespaceUsername)
		be.vendorNames = nameindex.NewRedis(redisClient.Client, nameindex.NamespaceVendorName)
	}
	return be
}

// initializeFactories mints both factory singletons on first boot. A conflict
// means a previous run already initialized them, which is fine.
func initializeFactories(ctx context.Context, cfg config.Config, log *slog.Logger, users *userservice.FactoryService, vendors *vendorservice.FactoryService) error {
	admin, err := domain.ParseAccountID(cfg.AdminAccount)
	if err != nil {
		return err
	}

	if _, err := users.Initialize(ctx, admin, cfg.UserRegistrationFee); err != nil {
		if !isAlreadyInitialized(err) {
			return err
		}
	} else {
		log.Info("user factory initialized", "fee", cfg.UserRegistrationFee)
	}

	if _, err := vendors.Initialize(ctx, admin, cfg.VendorRegistrationFee); err != nil {
		if !isAlreadyInitialized(err) {
			return err
		}
	} else {
		log.Info("vendor factory initialized", "fee", cfg.VendorRegistrationFee)
	}
	return nil
}

func isAlreadyInitialized(err error) bool {
	var domainErr *dErrors.Error
	return errors.As(err, &domainErr) && domainErr.Code == dErrors.CodeConflict
}
