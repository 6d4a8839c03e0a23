package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"assetup/internal/auth"
	detokenizationHandler "assetup/internal/detokenization/handler"
	detokenizationService "assetup/internal/detokenization/service"
	proposalStore "assetup/internal/detokenization/store/proposal"
	dividendHandler "assetup/internal/dividend/handler"
	dividendService "assetup/internal/dividend/service"
	revenueStore "assetup/internal/dividend/store/revenue"
	unclaimedStore "assetup/internal/dividend/store/unclaimed"
	insuranceHandler "assetup/internal/insurance/handler"
	insuranceService "assetup/internal/insurance/service"
	claimStore "assetup/internal/insurance/store/claim"
	policyStore "assetup/internal/insurance/store/policy"
	leaseHandler "assetup/internal/lease/handler"
	leaseService "assetup/internal/lease/service"
	leaseStore "assetup/internal/lease/store/lease"
	"assetup/internal/platform/config"
	"assetup/internal/platform/httpserver"
	"assetup/internal/platform/logger"
	"assetup/internal/platform/metrics"
	"assetup/internal/platform/postgres"
	platformredis "assetup/internal/platform/redis"
	registryHandler "assetup/internal/registry/handler"
	registryService "assetup/internal/registry/service"
	registryAssetStore "assetup/internal/registry/store/asset"
	registrarStore "assetup/internal/registry/store/registrar"
	restrictionHandler "assetup/internal/restriction/handler"
	restrictionService "assetup/internal/restriction/service"
	restrictionStore "assetup/internal/restriction/store/restriction"
	whitelistStore "assetup/internal/restriction/store/whitelist"
	tokenHandler "assetup/internal/token/handler"
	tokenService "assetup/internal/token/service"
	assetStore "assetup/internal/token/store/asset"
	balanceStore "assetup/internal/token/store/balance"
	lockStore "assetup/internal/token/store/lock"
	votingHandler "assetup/internal/voting/handler"
	votingService "assetup/internal/voting/service"
	pollStore "assetup/internal/voting/store/poll"
	id "assetup/pkg/domain"
	"assetup/pkg/platform/ledgerevents"
	"assetup/pkg/platform/ledgerevents/kafka"
	eventstore "assetup/pkg/platform/ledgerevents/store/memory"
	eventworker "assetup/pkg/platform/ledgerevents/worker"
	"assetup/pkg/platform/tx"
)

// main wires stores, services, and transport, then runs the server until a
// shutdown signal. Business rules live in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	db, err := postgres.Open(cfg.PostgresDSN)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
		if err := postgres.EnsureSchema(context.Background(), db); err != nil {
			log.Error("schema migration failed", "error", err)
			os.Exit(1)
		}
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	group, ctx := errgroup.WithContext(ctx)

	// Ledger events go to Kafka when brokers are configured; otherwise a
	// channel publisher drained by an in-process worker keeps the event log.
	var events ledgerevents.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher, err := kafka.New(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			log.Error("kafka connection failed", "error", err)
			os.Exit(1)
		}
		defer kafkaPublisher.Close()
		events = kafkaPublisher
	} else {
		channelPublisher := ledgerevents.NewChannelPublisher(1024, log)
		worker := eventworker.NewWorker(eventstore.New(), channelPublisher.Inbox())
		group.Go(func() error {
			if err := worker.Run(ctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
		events = channelPublisher
	}

	jwtService := auth.NewJWTService(cfg.JWTSigningKey)
	verifier := auth.ContextVerifier{}

	var txRunner tx.Runner = tx.PassthroughRunner{}
	if db != nil {
		txRunner = &tx.SQLRunner{DB: db}
	}

	// Each store pair shares an interface; Postgres wiring is selected by DSN
	// presence, Redis takes over time-locks when configured.
	var (
		assets       tokenService.AssetStore             = assetStore.NewInMemory()
		balances     tokenService.BalanceStore           = balanceStore.NewInMemory()
		locks        tokenService.LockStore              = lockStore.NewInMemory()
		restrictions restrictionService.RestrictionStore = restrictionStore.NewInMemory()
		whitelist    restrictionService.WhitelistStore   = whitelistStore.NewInMemory()
		unclaimed    dividendService.UnclaimedStore      = unclaimedStore.NewInMemory()
		revenue      dividendService.RevenueStore        = revenueStore.NewInMemory()
		polls        votingService.PollStore             = pollStore.NewInMemory()
		proposals    detokenizationService.ProposalStore = proposalStore.NewInMemory()
		regAssets    registryService.AssetStore          = registryAssetStore.NewInMemory()
		registrars   registryService.RegistrarStore      = registrarStore.NewInMemory()
		policies     insuranceService.PolicyStore        = policyStore.NewInMemory()
		claims       insuranceService.ClaimStore         = claimStore.NewInMemory()
		leases       leaseService.LeaseStore             = leaseStore.NewInMemory()
	)
	if db != nil {
		assets = assetStore.NewPostgres(db)
		balances = balanceStore.NewPostgres(db)
		locks = lockStore.NewPostgres(db)
		restrictions = restrictionStore.NewPostgres(db)
		whitelist = whitelistStore.NewPostgres(db)
		unclaimed = unclaimedStore.NewPostgres(db)
		revenue = revenueStore.NewPostgres(db)
		polls = pollStore.NewPostgres(db)
		proposals = proposalStore.NewPostgres(db)
		regAssets = registryAssetStore.NewPostgres(db)
		registrars = registrarStore.NewPostgres(db)
		policies = policyStore.NewPostgres(db)
		claims = claimStore.NewPostgres(db)
		leases = leaseStore.NewPostgres(db)
	}
	if redisClient != nil {
		locks = lockStore.NewRedis(redisClient)
	}

	restrictionSvc, err := restrictionService.New(restrictions, whitelist,
		restrictionService.WithLogger(log),
		restrictionService.WithEvents(events),
	)
	if err != nil {
		log.Error("restriction service init failed", "error", err)
		os.Exit(1)
	}

	tokenSvc, err := tokenService.New(assets, balances, locks, verifier,
		tokenService.WithLogger(log),
		tokenService.WithEvents(events),
		tokenService.WithMetrics(m),
		tokenService.WithTxRunner(txRunner),
		tokenService.WithTransferGate(restrictionSvc),
	)
	if err != nil {
		log.Error("token service init failed", "error", err)
		os.Exit(1)
	}

	dividendSvc, err := dividendService.New(tokenSvc, unclaimed, revenue, verifier,
		dividendService.WithLogger(log),
		dividendService.WithEvents(events),
		dividendService.WithMetrics(m),
		dividendService.WithTxRunner(txRunner),
	)
	if err != nil {
		log.Error("dividend service init failed", "error", err)
		os.Exit(1)
	}

	votingSvc, err := votingService.New(tokenSvc, polls, verifier,
		votingService.WithLogger(log),
		votingService.WithEvents(events),
		votingService.WithMetrics(m),
		votingService.WithTxRunner(txRunner),
	)
	if err != nil {
		log.Error("voting service init failed", "error", err)
		os.Exit(1)
	}

	detokenizationSvc, err := detokenizationService.New(proposals, votingSvc, tokenSvc, verifier,
		detokenizationService.WithLogger(log),
		detokenizationService.WithEvents(events),
		detokenizationService.WithMetrics(m),
		detokenizationService.WithTxRunner(txRunner),
	)
	if err != nil {
		log.Error("detokenization service init failed", "error", err)
		os.Exit(1)
	}

	admin, ok := id.ParsePrincipal(cfg.AdminPrincipal)
	if !ok {
		log.Warn("ASSETUP_ADMIN not set, registry administration defaults to 'admin'")
		admin = "admin"
	}
	registrySvc, err := registryService.New(regAssets, registrars, verifier, admin,
		registryService.WithLogger(log),
		registryService.WithEvents(events),
	)
	if err != nil {
		log.Error("registry service init failed", "error", err)
		os.Exit(1)
	}

	insuranceSvc, err := insuranceService.New(policies, claims, verifier,
		insuranceService.WithLogger(log),
		insuranceService.WithEvents(events),
	)
	if err != nil {
		log.Error("insurance service init failed", "error", err)
		os.Exit(1)
	}

	leaseSvc, err := leaseService.New(leases, verifier,
		leaseService.WithLogger(log),
		leaseService.WithEvents(events),
	)
	if err != nil {
		log.Error("lease service init failed", "error", err)
		os.Exit(1)
	}

	router := chi.NewRouter()
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	tokenHandler.New(tokenSvc, log, m, jwtService).Register(router)
	restrictionHandler.New(restrictionSvc, log, m, jwtService).Register(router)
	dividendHandler.New(dividendSvc, log, m, jwtService).Register(router)
	votingHandler.New(votingSvc, log, m, jwtService).Register(router)
	detokenizationHandler.New(detokenizationSvc, log, m, jwtService).Register(router)
	registryHandler.New(registrySvc, log, m, jwtService).Register(router)
	insuranceHandler.New(insuranceSvc, log, m, jwtService).Register(router)
	leaseHandler.New(leaseSvc, log, m, jwtService).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	group.Go(func() error {
		log.Info("starting assetup ledger", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
