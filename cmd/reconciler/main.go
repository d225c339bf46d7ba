// Command reconciler keeps every user's list of owned blogs in step with
// the blogs table. By default it consumes blog events from RabbitMQ; with
// -all it rebuilds every list once and exits.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sushihentaime/bloglist/internal/blogservice"
	"github.com/sushihentaime/bloglist/internal/common"
	"github.com/sushihentaime/bloglist/internal/config"
	"github.com/sushihentaime/bloglist/internal/metrics"
	"github.com/sushihentaime/bloglist/internal/reconcileservice"
)

func main() {
	envFile := flag.String("env", ".env", "path to the .env configuration file")
	all := flag.Bool("all", false, "rebuild every user's owned blogs once and exit")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var logger *slog.Logger
	if cfg.Environment == "production" {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stdout, nil))
	}

	db, err := common.NewDB(cfg.DatabaseURI(), cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBMaxIdleTime)
	if err != nil {
		logger.Error("failed to connect to the database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer common.CloseDB(db)

	err = common.Migrate(cfg.MigrationsPath, cfg.DatabaseURI())
	if err != nil {
		logger.Error("failed to run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// the reconciler never publishes
	blogService := blogservice.NewBlogService(db, common.NewCache(cfg.CacheTTL, 2*cfg.CacheTTL), common.NoopProducer{}, logger, cfg.OwnershipPolicy())

	if *all {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		n, err := blogService.RebuildAllOwnedBlogs(ctx)
		if err != nil {
			logger.Error("failed to rebuild owned blogs", slog.String("error", err.Error()))
			os.Exit(1)
		}

		logger.Info("rebuilt owned blogs", slog.Int64("users", n))
		return
	}

	if !cfg.BrokerEnabled() {
		logger.Error("RABBITMQ_HOST is required unless -all is given")
		os.Exit(1)
	}

	broker, err := common.NewMessageBroker(cfg.BrokerURI())
	if err != nil {
		logger.Error("failed to connect to the message broker", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer broker.Close()

	err = common.SetupEventExchange(broker)
	if err != nil {
		logger.Error("failed to setup the event exchange", slog.String("error", err.Error()))
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.ReconcilerMetricsPort),
		Handler:           metrics.Handler(registry),
		ReadHeaderTimeout: 5 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	go func() {
		logger.Info("starting metrics server", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", slog.String("error", err.Error()))
		}
	}()

	rs := reconcileservice.NewReconcileService(broker, blogService, metrics.NewCollector(registry), logger)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		s := <-quit
		logger.Info("shutting down reconciler", slog.String("signal", s.String()))

		rs.Close()
	}()

	err = rs.Run()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(ctx)

	if err != nil {
		logger.Error("reconciler stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("stopped reconciler")
}
