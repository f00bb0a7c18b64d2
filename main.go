package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appcheckout "github.com/Zhima-Mochi/joyeria/internal/application/checkout"
	appOrder "github.com/Zhima-Mochi/joyeria/internal/application/order"
	appShipping "github.com/Zhima-Mochi/joyeria/internal/application/shipping"
	"github.com/Zhima-Mochi/joyeria/internal/config"
	"github.com/Zhima-Mochi/joyeria/internal/domain/catalog"
	"github.com/Zhima-Mochi/joyeria/internal/domain/customer"
	"github.com/Zhima-Mochi/joyeria/internal/domain/inventory"
	"github.com/Zhima-Mochi/joyeria/internal/domain/notification"
	domainOrder "github.com/Zhima-Mochi/joyeria/internal/domain/order"
	"github.com/Zhima-Mochi/joyeria/internal/domain/payment"
	"github.com/Zhima-Mochi/joyeria/internal/domain/shipping"
	"github.com/Zhima-Mochi/joyeria/internal/infrastructure/mail"
	"github.com/Zhima-Mochi/joyeria/internal/infrastructure/memory"
	infraobs "github.com/Zhima-Mochi/joyeria/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/joyeria/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/joyeria/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/joyeria/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/joyeria/internal/infrastructure/postgres"
	redisguard "github.com/Zhima-Mochi/joyeria/internal/infrastructure/redis"
	"github.com/Zhima-Mochi/joyeria/internal/infrastructure/simulated"
	"github.com/Zhima-Mochi/joyeria/internal/infrastructure/stripe"
	"github.com/Zhima-Mochi/joyeria/internal/observability"
	httppresentation "github.com/Zhima-Mochi/joyeria/internal/presentation/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	systemTraceID = "system"
	systemSpanID  = "system"
)

// backend is the storage the use cases run against.
type backend struct {
	store     appOrder.Store
	orders    domainOrder.Reader
	catalog   catalog.Reader
	directory customer.Directory
	shipping  shipping.Repository
	health    []httppresentation.HealthCheck
	close     func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	baseLogger, err := zaplogger.New(zaplogger.Options{File: cfg.LogFile, Level: cfg.LogLevel},
		observability.F("service", cfg.ServiceName),
		observability.F("env", cfg.Env),
	)
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger.Zap())

	systemLogger := baseLogger.With(
		observability.F("trace_id", systemTraceID),
		observability.F("span_id", systemSpanID),
	)

	oteltrace.InstallPropagator()
	tel := infraobs.NewWithRegistry(
		oteltrace.New(nil, cfg.ServiceName),
		baseLogger,
		prometrics.New(nil, "", ""),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	be, err := openBackend(ctx, cfg, systemLogger)
	if err != nil {
		systemLogger.Error("storage_init_failed", observability.Err(err))
		os.Exit(1)
	}
	defer be.close()

	var processor payment.Processor
	if cfg.StripeSecretKey != "" {
		processor = stripe.NewProcessor(cfg.StripeSecretKey)
		systemLogger.Info("payment_processor_selected", observability.F("processor", "stripe"))
	} else {
		processor = simulated.NewProcessor(cfg.SimulatedSuccessRate)
		systemLogger.Info("payment_processor_selected",
			observability.F("processor", "simulated"),
			observability.F("success_rate", cfg.SimulatedSuccessRate),
		)
	}

	var guard appOrder.IdempotencyGuard
	if cfg.RedisAddr != "" {
		rdb := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		defer func() { _ = rdb.Close() }()
		g := redisguard.NewGuard(rdb)
		if err := g.Ping(ctx); err != nil {
			// the guard is a fast path only; order inserts stay idempotent without it
			systemLogger.Warn("redis_unavailable", observability.F("addr", cfg.RedisAddr), observability.Err(err))
		}
		guard = g
		be.health = append(be.health, httppresentation.HealthCheck{Name: "redis", Check: g.Ping})
	}

	var sender notification.Sender
	if cfg.SMTP.Enabled() {
		sender = mail.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)
	} else {
		sender = mail.LogSender{Log: func(msg notification.Message) {
			systemLogger.Info("mail_not_sent", observability.F("to", msg.To), observability.F("subject", msg.Subject))
		}}
	}
	composer, err := mail.NewComposer(cfg.StoreName)
	if err != nil {
		systemLogger.Error("mail_templates_invalid", observability.Err(err))
		os.Exit(1)
	}
	notifier := appOrder.NewNotifier(sender, composer, be.directory, tel)

	policy := inventory.NewPolicy(cfg.RingCategory)
	handler := httppresentation.NewHandler(httppresentation.Services{
		Shipping:    appShipping.NewService(be.shipping, tel),
		OpenSession: appcheckout.NewOpenSessionUseCase(processor, be.shipping, cfg.Currency, tel),
		CreateOrder: appOrder.NewCreateOrderUseCase(appOrder.CreateOrderDeps{
			Store:     be.store,
			Orders:    be.orders,
			Processor: processor,
			Catalog:   be.catalog,
			Shipping:  be.shipping,
			Guard:     guard,
			Notifier:  notifier,
			Policy:    policy,
			Currency:  cfg.Currency,
			ClaimTTL:  cfg.IdempotencyTTL,
		}, tel),
		Transition: appOrder.NewTransitionUseCase(be.store, notifier, appOrder.TransitionOptions{
			Policy:               policy,
			RestoreSizedOnCancel: cfg.RestoreSizedOnCancel,
		}, tel),
		Orders: appOrder.NewQueryService(be.orders),
		Health: be.health,
	}, baseLogger, tel)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		systemLogger.Info("http_server_start",
			observability.F("addr", server.Addr),
		)
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			systemLogger.Error("http_server_error",
				observability.Err(err),
			)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		systemLogger.Error("http_server_shutdown_error",
			observability.Err(err),
		)
	} else {
		systemLogger.Info("http_server_stopped")
	}
}

// openBackend connects to Postgres when configured, otherwise seeds an in-memory store.
func openBackend(ctx context.Context, cfg config.Config, log observability.Logger) (*backend, error) {
	if cfg.DatabaseURL == "" {
		s := memory.NewDemoStore(cfg.AdminEmail)
		log.Info("storage_selected", observability.F("storage", "memory"))
		return &backend{
			store:     s,
			orders:    s,
			catalog:   s,
			directory: s,
			shipping:  s.ShippingOptions(),
			close:     func() {},
		}, nil
	}

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	s := postgres.NewStore(pool)
	log.Info("storage_selected", observability.F("storage", "postgres"))
	return &backend{
		store:     s,
		orders:    s,
		catalog:   s,
		directory: s,
		shipping:  s.ShippingOptions(),
		health:    []httppresentation.HealthCheck{{Name: "postgres", Check: pool.Ping}},
		close:     pool.Close,
	}, nil
}
