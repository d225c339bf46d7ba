package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sushihentaime/bloglist/internal/blogservice"
	"github.com/sushihentaime/bloglist/internal/common"
	"github.com/sushihentaime/bloglist/internal/config"
	"github.com/sushihentaime/bloglist/internal/metrics"
	"github.com/sushihentaime/bloglist/internal/userservice"
)

type application struct {
	config      *config.Config
	logger      *slog.Logger
	userService *userservice.UserService
	blogService *blogservice.BlogService
	recorder    metrics.Recorder
	registry    *prometheus.Registry
}

func newLogger(environment string) *slog.Logger {
	if environment == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func main() {
	envFile := flag.String("env", ".env", "path to the .env configuration file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := newLogger(cfg.Environment)

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

	var producer common.MessageProducer = common.NoopProducer{}
	if cfg.BrokerEnabled() {
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

		producer = broker
	} else {
		logger.Info("no message broker configured, domain events are dropped")
	}

	tokens, err := userservice.NewTokenService([]byte(cfg.JWTSecret), cfg.JWTTTL)
	if err != nil {
		logger.Error("failed to create the token service", slog.String("error", err.Error()))
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	app := &application{
		config:      cfg,
		logger:      logger,
		userService: userservice.NewUserService(db, tokens, producer, logger),
		blogService: blogservice.NewBlogService(db, common.NewCache(cfg.CacheTTL, 2*cfg.CacheTTL), producer, logger, cfg.OwnershipPolicy()),
		recorder:    metrics.NewCollector(registry),
		registry:    registry,
	}

	err = app.serve()
	if err != nil {
		logger.Error("failed to start the server", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
