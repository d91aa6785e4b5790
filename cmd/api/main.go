package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/baharkarakas/p2pgate/internal/api"
	"github.com/baharkarakas/p2pgate/internal/auth"
	"github.com/baharkarakas/p2pgate/internal/config"
	"github.com/baharkarakas/p2pgate/internal/db"
	"github.com/baharkarakas/p2pgate/internal/events"
	"github.com/baharkarakas/p2pgate/internal/lease"
	"github.com/baharkarakas/p2pgate/internal/logger"
	"github.com/baharkarakas/p2pgate/internal/metrics"
	"github.com/baharkarakas/p2pgate/internal/mockgen"
	"github.com/baharkarakas/p2pgate/internal/repository/postgres"
	"github.com/baharkarakas/p2pgate/internal/services"
	"github.com/baharkarakas/p2pgate/internal/watcher"
	"github.com/baharkarakas/p2pgate/internal/worker"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.Migrate {
		if err := db.RunMigrations(ctx, pool); err != nil {
			return err
		}
	}

	var pub events.Publisher = events.Nop{}
	if cfg.NSQAddr != "" {
		p, err := events.NewNSQPublisher(cfg.NSQAddr)
		if err != nil {
			return err
		}
		defer p.Stop()
		pub = p
	}

	var expiryLease lease.Lease = &lease.Local{}
	if cfg.RedisAddr != "" {
		rdb, err := lease.Dial(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer rdb.Close()
		expiryLease = lease.NewRedis(rdb, "p2pgate:lease:expiry-watcher")
	}

	metrics.Init()
	repos := postgres.NewRepositories(pool)
	wp := worker.NewPool(cfg.CallbackWorkers, 1024)
	defer wp.Stop()

	opts := services.Options{
		StoreTimeout:       cfg.StoreTimeout,
		TxTTL:              cfg.TxTTL,
		Location:           cfg.Timezone,
		AllowAdminOverride: cfg.AdminStatusOverride,
	}
	allocSvc := services.NewAllocationService(repos.Methods, repos.Requisites, repos.Transactions, repos.AuditLogs, pub, opts)
	txnSvc := services.NewTransactionService(repos.Transactions, repos.AuditLogs, pub,
		services.NewCallbackNotifier(wp, 5*time.Second), opts)
	merchantSvc := services.NewMerchantService(repos.Merchants, repos.Methods, repos.Transactions, opts)
	requisiteSvc := services.NewRequisiteService(repos.Requisites, repos.Transactions, opts)

	loops := []*worker.Loop{
		worker.NewLoop("expiry-watcher", cfg.ExpiryInterval,
			watcher.New(txnSvc, expiryLease, cfg.ExpiryInterval).Tick),
	}
	if cfg.MockTraffic {
		loops = append(loops, worker.NewLoop("mock-traffic", 5*time.Second,
			mockgen.New(repos.Merchants, repos.Methods, allocSvc).WithStoreTimeout(cfg.StoreTimeout).Tick))
	}

	srv := &http.Server{
		Addr: ":" + cfg.HTTPPort,
		Handler: api.NewRouter(api.RouterDeps{
			Cfg:        cfg,
			TM:         auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, 0),
			Alloc:      allocSvc,
			Txns:       txnSvc,
			Merchants:  merchantSvc,
			Requisites: requisiteSvc,
			Loops:      loops,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, l := range loops {
		g.Go(func() error {
			l.Run(gctx)
			return nil
		})
	}
	g.Go(func() error {
		log.Info("server starting", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
