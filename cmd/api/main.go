package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	config "github.com/NordCoder/tifi/internal/config/api"
	"github.com/NordCoder/tifi/internal/obs"
	"github.com/NordCoder/tifi/internal/services/api"
	"github.com/NordCoder/tifi/internal/services/auth"
	"github.com/NordCoder/tifi/internal/services/dispatcher"
	"github.com/NordCoder/tifi/internal/services/ledger"
	"github.com/NordCoder/tifi/internal/services/mailer"
	"github.com/NordCoder/tifi/internal/services/notify"
	"github.com/NordCoder/tifi/internal/telemetry"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	cfgPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to the yaml config")
	flag.Parse()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		panic(err)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting tifi api", zap.String("env", cfg.App.Env), zap.String("ver", cfg.App.Version))

	otelShutdown, err := initOTel(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	store, err := initStorage(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("storage init", zap.Error(err), zap.String("driver", cfg.Storage.Driver))
	}
	defer store.close()

	events, closeEvents, err := initEvents(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("kafka init", zap.Error(err))
	}
	defer func() { _ = closeEvents() }()

	transport, err := mailer.New(cfg.Mail, logger)
	if err != nil {
		logger.Fatal("mailer init", zap.Error(err))
	}

	disp := dispatcher.New(logger, dispatcher.Options{
		Workers:    cfg.Dispatch.Workers,
		QueueSize:  cfg.Dispatch.QueueSize,
		RatePerSec: cfg.Dispatch.RatePerSec,
		Burst:      cfg.Dispatch.Burst,
	})
	disp.Start(rootCtx)

	var ledgerOpts []ledger.Option
	if events != nil {
		ledgerOpts = append(ledgerOpts, ledger.WithEvents(events, disp))
	}
	led := ledger.New(store.notifications, store.users, logger, ledgerOpts...)
	facade := notify.New(led, disp, transport, cfg.Links.CTALink)

	authUC := auth.NewUseCase(store.users, store.tx, facade, auth.Config{
		Secret:           []byte(cfg.Auth.JWTSecret),
		AccessTTL:        cfg.Auth.AccessTTL,
		LinkTTL:          cfg.Auth.LinkTTL,
		MagicLinkURL:     cfg.Links.MagicLinkURL,
		ResetPasswordURL: cfg.Links.ResetPasswordURL,
		BcryptCost:       bcrypt.DefaultCost,
		Hold:             disp,
	}, logger)

	checks := map[string]obs.Check{"db": store.ping}

	apiSrv, err := api.NewServer(authUC, led, telemetry.NewRequestCounter(), disp, api.Opts{
		Logger:         logger,
		CORSOrigins:    cfg.Server.CORSOrigins,
		TrustedProxies: cfg.Server.TrustedProxies,
		Checks:         checks,
	})
	if err != nil {
		logger.Fatal("build http", zap.Error(err))
	}

	metricsSrv := obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, checks, logger)

	grpcServer, healthSrv, grpcLn, err := buildGRPCServer(cfg)
	if err != nil {
		logger.Fatal("build grpc", zap.Error(err))
	}
	go watchHealth(rootCtx, healthSrv, store.ping, logger)

	grpcErrCh := make(chan error, 1)
	go func() { grpcErrCh <- serveGRPC(grpcServer, grpcLn, cfg, logger) }()

	httpSrv := buildHTTPServer(cfg, apiSrv)
	httpErrCh := make(chan error, 1)
	go func() { httpErrCh <- serveHTTP(httpSrv, logger) }()

	var runErr error
	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal", zap.String("reason", "context canceled"))
	case runErr = <-grpcErrCh:
		if runErr != nil {
			logger.Error("grpc serve", zap.Error(runErr))
		}
	case runErr = <-httpErrCh:
		if runErr != nil && !errors.Is(runErr, http.ErrServerClosed) {
			logger.Error("http serve", zap.Error(runErr))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()

	// stop intake first, then let queued sends finish
	_ = httpSrv.Shutdown(shCtx)
	gracefulStopGRPC(grpcServer, healthSrv)
	if err := disp.Shutdown(shCtx); err != nil {
		logger.Warn("dispatcher drain", zap.Error(err))
	}
	_ = metricsSrv.Shutdown(shCtx)

	logger.Info("bye")
}
