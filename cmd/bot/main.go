package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/deegraphics/melisse-backend/internal/cart"
	"github.com/deegraphics/melisse-backend/internal/ledger"
	"github.com/deegraphics/melisse-backend/internal/lifecycle"
	"github.com/deegraphics/melisse-backend/internal/provision"
	"github.com/deegraphics/melisse-backend/internal/workflow"
	"github.com/deegraphics/melisse-backend/pkg/config"
	"github.com/deegraphics/melisse-backend/pkg/enums"
	"github.com/deegraphics/melisse-backend/pkg/logger"
	"github.com/deegraphics/melisse-backend/pkg/metrics"
	"github.com/deegraphics/melisse-backend/pkg/platform"
	"github.com/deegraphics/melisse-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "bot"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "bot",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers []func() error

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		closers = append(closers, redisClient.Close)
	}

	var ledgerLock ledger.Lock
	var exportGuard workflow.ExportGuard
	if redisClient != nil {
		ledgerLock, err = ledger.NewRedisLock(redisClient, redisClient.LockKey("ledger"), 0)
		if err != nil {
			logg.Error(ctx, "failed to create ledger lock", err)
			os.Exit(1)
		}
		exportGuard = workflow.NewRedisGuard(redisClient)
	}

	ledgerStore, err := ledger.NewStore(cfg.Ledger.Path, ledgerLock)
	if err != nil {
		logg.Error(ctx, "failed to open ledger", err)
		os.Exit(1)
	}

	gateway, err := platform.OpenGateway(ctx, cfg.Platform.Gateway, cfg.Platform.Token, cfg.Platform.GuildID)
	if err != nil {
		logg.Error(ctx, "failed to open platform gateway", err)
		os.Exit(1)
	}
	closers = append(closers, gateway.Close)

	provisioner, err := provision.New(gateway.Directory(), gateway.Messenger(), map[enums.ChannelKind]string{
		enums.ChannelKindTicket:  cfg.Platform.TicketCategoryID,
		enums.ChannelKindCart:    cfg.Platform.CartCategoryID,
		enums.ChannelKindReceipt: cfg.Platform.ReceiptCategoryID,
		enums.ChannelKindOrder:   cfg.Platform.OrderCategoryID,
	})
	if err != nil {
		logg.Error(ctx, "failed to create provisioner", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	eventMetrics := metrics.NewEventMetrics(registry)
	schedulerMetrics := metrics.NewSchedulerMetrics(registry)

	var loop *workflow.Loop

	scheduler, err := lifecycle.NewScheduler(lifecycle.Params{
		Logger:   logg,
		Metrics:  schedulerMetrics,
		Deleter:  lifecycle.NewMessengerDeleter(gateway.Messenger()),
		Notifier: lifecycle.NewLogChannelNotifier(gateway.Messenger(), cfg.Platform.LogChannelID),
		CloseTTL: cfg.Workflow.TicketCloseTTL,
		PurgeTTL: cfg.Workflow.OrderPurgeTTL,
		Enqueue:  func(task func()) { loop.Enqueue(task) },
	})
	if err != nil {
		logg.Error(ctx, "failed to create scheduler", err)
		os.Exit(1)
	}

	controller, err := workflow.NewController(workflow.Params{
		Logger:      logg,
		Metrics:     eventMetrics,
		Carts:       cart.NewStore(),
		Provisioner: provisioner,
		Scheduler:   scheduler,
		Ledger:      ledgerStore,
		Directory:   gateway.Directory(),
		Messenger:   gateway.Messenger(),
		Guard:       exportGuard,
		Settings: workflow.Settings{
			PaymentLink:     cfg.Workflow.PaymentLink,
			AdminMention:    cfg.Platform.AdminMention,
			LogChannelID:    cfg.Platform.LogChannelID,
			ReceiptWait:     cfg.Workflow.ReceiptWait,
			SummaryScanBack: cfg.Workflow.SummaryScanBack,
		},
		Enqueue: func(task func()) { loop.Enqueue(task) },
	})
	if err != nil {
		logg.Error(ctx, "failed to create workflow controller", err)
		os.Exit(1)
	}
	loop = workflow.NewLoop(logg, controller, 256)

	router := chi.NewRouter()
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	httpServer := &http.Server{Addr: cfg.HTTP.Addr, Handler: router}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "metrics server stopped unexpectedly", err)
		}
	}()

	events, err := gateway.Events(ctx)
	if err != nil {
		logg.Error(ctx, "failed to open event stream", err)
		os.Exit(1)
	}
	go func() {
		for ev := range events {
			loop.Submit(ctx, ev)
		}
	}()

	logg.Info(logg.WithFields(ctx, map[string]any{
		"env":     cfg.App.Env,
		"gateway": cfg.Platform.Gateway,
		"addr":    cfg.HTTP.Addr,
	}), "starting workflow bot")

	if err := loop.Run(ctx); err != nil && err != context.Canceled {
		logg.Error(ctx, "event loop stopped unexpectedly", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	var closeErr error
	closeErr = multierr.Append(closeErr, httpServer.Shutdown(shutdownCtx))
	for _, closeFn := range closers {
		closeErr = multierr.Append(closeErr, closeFn())
	}
	if closeErr != nil {
		logg.Error(context.Background(), "shutdown finished with errors", closeErr)
	}
}
