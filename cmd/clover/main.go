package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/caarlos0/env/v11"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/Ramsey-B/clover/config"
	"github.com/Ramsey-B/clover/internal/graph"
	"github.com/Ramsey-B/clover/internal/handlers"
	"github.com/Ramsey-B/clover/internal/processor"
	"github.com/Ramsey-B/clover/internal/repositories/auditlog"
	"github.com/Ramsey-B/clover/internal/repositories/mergecandidate"
	"github.com/Ramsey-B/clover/internal/repositories/record"
	dedupesvc "github.com/Ramsey-B/clover/internal/services/dedupe"
	"github.com/Ramsey-B/clover/internal/services/records"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/decisioncache"
	"github.com/Ramsey-B/clover/pkg/dedupe"
	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/merge"
	"github.com/Ramsey-B/clover/pkg/middleware"
	"github.com/Ramsey-B/clover/pkg/redis"
	"github.com/Ramsey-B/clover/pkg/startup"
	"github.com/Ramsey-B/clover/pkg/tracing"
	"github.com/Ramsey-B/clover/pkg/tracing/exporters"
)

func main() {
	_ = godotenv.Load()

	var cfg config.Config
	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to parse configuration: %v\n", err)
		os.Exit(1)
	}

	zlog := newZapLogger(cfg)
	defer zlog.Sync()

	logger := ectologger.NewEctoLogger(func(m ectologger.EctoLogMessage) {
		zlog.Info("", zap.Any("log", m))
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		var exporter sdktrace.SpanExporter = &exporters.ConsoleExporter{}
		if cfg.TracingOTLPEndpoint != "" {
			otlpExporter, err := exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
				Endpoint: cfg.TracingOTLPEndpoint,
				Protocol: cfg.TracingOTLPProtocol,
				Insecure: cfg.TracingOTLPInsecure,
			})
			if err != nil {
				logger.WithError(err).Fatal("Failed to create trace exporter")
			}
			exporter = otlpExporter
		}
		shutdown := tracing.Setup(exporter, cfg.AppName)
		defer shutdown(context.Background())
	}

	// Postgres
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUserName, cfg.DatabasePassword, cfg.DatabaseName, cfg.DatabaseSSLMode)
	sqlxDB, err := sqlx.Connect(cfg.DatabaseDriver, dsn)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	sqlxDB.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
	sqlxDB.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
	sqlxDB.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)
	db := database.NewDatabaseInstance(sqlxDB, logger)
	defer db.Close()

	driver, err := migratepg.WithInstance(sqlxDB.DB, &migratepg.Config{})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create migration driver")
	}
	migrations := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
		AutoRollback:        cfg.DatabaseMigrationAutoRollback,
	})
	if err := migrations.Migrate(cfg.DatabaseName, driver); err != nil {
		logger.WithError(err).Fatal("Failed to run database migrations")
	}

	// Redis (optional decision cache)
	var redisClient *redis.Client
	if cfg.RedisEnabled {
		redisClient, err = redis.NewClient(redis.Config{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, logger)
		if err != nil {
			logger.WithError(err).Warn("Redis unavailable, duplicate decisions will not be cached")
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	// Graph database (optional merge lineage)
	var lineage *graph.LineageStore
	var graphClient *graph.Client
	if cfg.GraphDBEnabled {
		graphClient, err = graph.NewClient(graph.Config{
			Host:     cfg.GraphDBHost,
			Port:     cfg.GraphDBPort,
			Username: cfg.GraphDBUser,
			Password: cfg.GraphDBPassword,
		}, logger)
		if err != nil {
			logger.WithError(err).Warn("Graph database unavailable, merge lineage disabled")
			graphClient = nil
		} else {
			defer graphClient.Close(context.Background())
			lineage = graph.NewLineageStore(graphClient, logger)
		}
	}

	// Kafka producer and event emitter
	producer := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      cfg.KafkaBrokers,
		Topic:        cfg.KafkaEventsTopic,
		BatchSize:    cfg.KafkaBatchSize,
		BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
		RequiredAcks: cfg.KafkaRequiredAcks,
		Compression:  cfg.KafkaCompression,
	}, logger)
	defer producer.Close()
	emitter := events.NewEmitter(producer, logger)

	// Core pipeline
	if cfg.CompanyMatchFloor > 0 && cfg.CompanyMatchFloor < 1 {
		dedupe.RegisterComparator("company_name", dedupe.CompanyComparator(cfg.CompanyMatchFloor))
	}
	resolver := dedupe.NewResolver()
	merger := merge.NewMerger()

	recordRepo := record.NewRepository(db, logger)
	candidateRepo := mergecandidate.NewRepository(db, logger)
	auditRepo := auditlog.NewRepository(db, logger)

	cache := decisioncache.NewCache(redisClient, logger, cfg.DecisionCacheTTL)
	dedupeService := dedupesvc.NewService(logger, recordRepo, cache, resolver, dedupesvc.Config{
		DefaultThreshold: cfg.DuplicateThreshold,
		CandidateLimit:   cfg.CandidateLimit,
	})
	recordsService := records.NewService(logger, recordRepo, candidateRepo, auditRepo, lineage, emitter, dedupeService, merger, records.Config{
		AutoMergeThreshold: cfg.AutoMergeThreshold,
	})

	// HTTP server
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))
	e.Use(otelecho.Middleware(cfg.AppName))
	e.HTTPErrorHandler = middleware.Error(logger)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	handlers.NewHealthHandler(db, redisClient, graphClient, logger).RegisterRoutes(e)

	api := e.Group("/api/v1")
	handlers.NewRecordsHandler(recordsService, logger).RegisterRoutes(api)
	handlers.NewDuplicatesHandler(dedupeService, logger).RegisterRoutes(api)
	handlers.NewReviewHandler(recordsService, logger).RegisterRoutes(api)

	boot := startup.NewStartup(logger, cfg.StartupMaxAttempts)
	boot.AddDependency(&httpServerDependency{e: e, port: cfg.Port, logger: logger})

	if cfg.KafkaConsumerEnabled {
		leadProcessor := processor.NewProcessor(logger, recordsService)
		consumer := kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers:       cfg.KafkaBrokers,
			Topic:         cfg.KafkaLeadsTopic,
			ConsumerGroup: cfg.KafkaConsumerGroup,
		}, logger, leadProcessor.HandleMessage)
		boot.AddDependency(&consumerDependency{consumer: consumer})
	}

	if err := boot.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to start service")
	}

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := boot.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Error("Shutdown finished with errors")
	}
}

func newZapLogger(cfg config.Config) *zap.Logger {
	var zlog *zap.Logger
	var err error
	if cfg.PrettyLogs {
		zlog, err = zap.NewDevelopment()
	} else {
		zlog, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return zlog
}

type httpServerDependency struct {
	e      *echo.Echo
	port   int
	logger ectologger.Logger
}

func (d *httpServerDependency) GetName() string     { return "http-server" }
func (d *httpServerDependency) DependsOn() []string { return nil }

func (d *httpServerDependency) Start(_ context.Context) error {
	go func() {
		if err := d.e.Start(fmt.Sprintf(":%d", d.port)); err != nil && err != http.ErrServerClosed {
			d.logger.WithError(err).Fatal("HTTP server stopped unexpectedly")
		}
	}()
	return nil
}

func (d *httpServerDependency) Stop(ctx context.Context) error {
	return d.e.Shutdown(ctx)
}

type consumerDependency struct {
	consumer *kafka.Consumer
}

func (d *consumerDependency) GetName() string     { return "kafka-consumer" }
func (d *consumerDependency) DependsOn() []string { return nil }

func (d *consumerDependency) Start(ctx context.Context) error {
	return d.consumer.Start(ctx)
}

func (d *consumerDependency) Stop(_ context.Context) error {
	return d.consumer.Stop()
}
