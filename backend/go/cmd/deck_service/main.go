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

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"slidecraft/backend/go/internal/config"
	kafkadb "slidecraft/backend/go/internal/database/kafka"
	miniodb "slidecraft/backend/go/internal/database/minio"
	mongodb "slidecraft/backend/go/internal/database/mongo"
	mysqldb "slidecraft/backend/go/internal/database/mysql"
	redisdb "slidecraft/backend/go/internal/database/redis"
	"slidecraft/backend/go/internal/deck_service/api"
	"slidecraft/backend/go/internal/deck_service/consumer"
	"slidecraft/backend/go/internal/deck_service/publisher"
	"slidecraft/backend/go/internal/deck_service/service"
	"slidecraft/backend/go/internal/deck_service/store"
	"slidecraft/backend/go/internal/models"
	"slidecraft/backend/go/internal/templates"
	"slidecraft/backend/go/pkg/circuitbreaker"
	"slidecraft/backend/go/pkg/httpmiddleware"
	"slidecraft/backend/go/pkg/logger"
	"slidecraft/backend/go/pkg/ratelimiter"
)

const defaultConfigPath = "backend/go/internal/config/config.yaml"

func errInfo(err error) models.ErrorInfo {
	return models.ErrorInfo{Message: err.Error()}
}

func main() {
	// Load configuration
	path := os.Getenv("SLIDECRAFT_CONFIG")
	if path == "" {
		path = defaultConfigPath
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.InitFromString(cfg.Logger.Level)
	serviceLogger := logger.New("DeckService")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checks := map[string]api.HealthCheck{}

	deckStore, err := openStore(cfg, checks)
	if err != nil {
		serviceLogger.WithError(errInfo(err)).Fatal("Failed to open store")
	}
	if err := deckStore.Ready(ctx); err != nil {
		serviceLogger.WithError(errInfo(err)).Fatal("Store is not ready")
	}
	serviceLogger.WithField("driver", cfg.Store.Driver).Info("Store ready")

	if cfg.Store.SeedTemplates {
		res, err := templates.Seed(ctx, deckStore)
		if err != nil {
			serviceLogger.WithError(errInfo(err)).Fatal("Failed to seed templates")
		}
		serviceLogger.WithPayload(map[string]interface{}{"charts": res.Charts, "textComponents": res.TextComponents}).Info("Templates seeded")
	}

	catalog, err := templates.NewCatalog()
	if err != nil {
		serviceLogger.WithError(errInfo(err)).Fatal("Failed to load template datasets")
	}
	if cfg.Store.Workbook != "" {
		sets, err := templates.LoadWorkbook(cfg.Store.Workbook)
		if err != nil {
			serviceLogger.WithError(errInfo(err)).Fatal("Failed to load workbook")
		}
		catalog.Merge(sets)
	}

	block, _ := config.Duration(cfg.Stream.Block, 5*time.Second)
	var stream consumer.Source
	if redisClient, err := redisdb.GetClient(&cfg.Databases.Redis); err != nil {
		serviceLogger.WithError(errInfo(err)).Warn("Redis unavailable, using in-process event streams")
		stream = consumer.NewMemoryStream(block)
	} else {
		stream = consumer.NewRedisStream(redisClient, cfg.Stream.KeyPrefix, cfg.Stream.Field, block)
		checks["redis"] = redisdb.HealthCheck
	}

	cbTimeout, _ := config.Duration(cfg.Middleware.CircuitBreaker.Timeout, 30*time.Second)
	newBreaker := func(name string) circuitbreaker.CircuitBreaker {
		return circuitbreaker.New(circuitbreaker.Settings{
			FailureThreshold: cfg.Middleware.CircuitBreaker.FailureThreshold,
			SuccessThreshold: cfg.Middleware.CircuitBreaker.SuccessThreshold,
			Timeout:          cbTimeout,
			OnStateChange: func(from, to circuitbreaker.State) {
				serviceLogger.WithPayload(map[string]interface{}{"breaker": name, "from": from.String(), "to": to.String()}).Warn("Circuit breaker state changed")
			},
		})
	}

	var (
		jobs     service.JobPublisher
		debugPub publisher.Publisher
	)
	kafkaClient, err := kafkadb.GetClient(&cfg.Databases.Kafka)
	if err != nil {
		serviceLogger.WithError(errInfo(err)).Warn("Kafka unavailable, jobs are not published")
	} else {
		// writers belong to kafkaClient and are closed with it
		jobs = publisher.NewKafkaPublisher(kafkaClient.Writer(cfg.Stream.JobTopic), cfg.Stream.JobTopic, serviceLogger)
		debugPub = publisher.NewKafkaPublisher(kafkaClient.Writer(cfg.Stream.DebugTopic), cfg.Stream.DebugTopic, serviceLogger)
		checks["kafka"] = kafkaClient.HealthCheck
	}
	var debugBreaker circuitbreaker.CircuitBreaker
	if cfg.Middleware.CircuitBreaker.Enabled {
		debugBreaker = newBreaker("debug-events")
	}
	debugSink := publisher.NewDebugSink(debugPub, debugBreaker, serviceLogger)

	var objects service.ObjectStore
	if minioClient, err := miniodb.GetClient(&cfg.Databases.MinIO); err != nil {
		serviceLogger.WithError(errInfo(err)).Warn("MinIO unavailable, export is disabled")
	} else {
		if err := miniodb.EnsureBucket(ctx, minioClient, cfg.Stream.ExportBucket); err != nil {
			serviceLogger.WithError(errInfo(err)).Fatal("Failed to prepare export bucket")
		}
		objects = service.NewMinioObjectStore(minioClient)
		checks["minio"] = miniodb.HealthCheck
	}

	deckService := service.NewDeckService(service.Deps{
		Store:     deckStore,
		Stream:    stream,
		Jobs:      jobs,
		Objects:   objects,
		Catalog:   catalog,
		DebugSink: debugSink,
		Logger:    serviceLogger,
		Options: service.Options{
			Viewport:       cfg.Render.Viewport,
			AdaptiveLayout: cfg.Render.AdaptiveLayout,
			ExportBucket:   cfg.Stream.ExportBucket,
		},
	})

	mw, err := middleware(cfg, newBreaker)
	if err != nil {
		serviceLogger.WithError(errInfo(err)).Fatal("Invalid middleware configuration")
	}

	// Setup HTTP server
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), httpmiddleware.AccessLog(serviceLogger))
	apiHandler, err := api.NewAPI(deckService, serviceLogger, cfg.Server.AllowedOrigins, checks)
	if err != nil {
		serviceLogger.WithError(errInfo(err)).Fatal("Invalid allowed origin pattern")
	}
	api.RegisterRoutes(router, apiHandler, mw)

	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: router,
	}

	shutdownTimeout, _ := config.Duration(cfg.Server.ShutdownTimeout, 10*time.Second)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		serviceLogger.Info("Starting HTTP server on " + srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		serviceLogger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		serviceLogger.WithError(errInfo(err)).Error("HTTP server stopped with error")
	}

	deckService.Close()
	if err := kafkaClient.Close(); err != nil {
		serviceLogger.WithError(errInfo(err)).Error("Error closing Kafka client")
	}
	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := deckStore.Close(closeCtx); err != nil {
		serviceLogger.WithError(errInfo(err)).Error("Error closing store")
	}
	closeDatabases(closeCtx, cfg, serviceLogger)

	serviceLogger.Info("Server gracefully stopped")
}

func openStore(cfg *config.AppConfig, checks map[string]api.HealthCheck) (store.Store, error) {
	switch cfg.Store.Driver {
	case "mongo":
		db, err := mongodb.GetDatabase(&cfg.Databases.MongoDB)
		if err != nil {
			return nil, err
		}
		checks["mongodb"] = mongodb.HealthCheck
		return store.NewMongoStore(db, cfg.Store.Transactions), nil
	case "mysql":
		db, err := mysqldb.GetDB(&cfg.Databases.MySQL)
		if err != nil {
			return nil, err
		}
		checks["mysql"] = mysqldb.HealthCheck
		return store.NewGormStore(db), nil
	default:
		return store.NewMemoryStore(), nil
	}
}

func middleware(cfg *config.AppConfig, newBreaker func(string) circuitbreaker.CircuitBreaker) (api.Middleware, error) {
	var mw api.Middleware
	if rl := cfg.Middleware.RateLimiter; rl.Enabled {
		settings, err := rl.Settings()
		if err != nil {
			return mw, err
		}
		ttl, err := config.Duration(rl.IdleTTL, 10*time.Minute)
		if err != nil {
			return mw, err
		}
		limiter, err := ratelimiter.NewPerKey(settings, ttl)
		if err != nil {
			return mw, err
		}
		mw.RateLimit = httpmiddleware.RateLimit(limiter, httpmiddleware.ClientIP)
	}
	if cfg.Middleware.CircuitBreaker.Enabled {
		mw.Breaker = httpmiddleware.CircuitBreak(newBreaker("export"))
	}
	return mw, nil
}

func closeDatabases(ctx context.Context, cfg *config.AppConfig, l *logger.Logger) {
	switch cfg.Store.Driver {
	case "mongo":
		if err := mongodb.Close(ctx); err != nil {
			l.WithError(errInfo(err)).Error("Error disconnecting from MongoDB")
		}
	case "mysql":
		if err := mysqldb.Close(); err != nil {
			l.WithError(errInfo(err)).Error("Error closing MySQL")
		}
	}
	if err := redisdb.Close(); err != nil {
		l.WithError(errInfo(err)).Error("Error closing Redis")
	}
}
