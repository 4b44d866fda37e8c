package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"agroweb-products/internal/config"
	"agroweb-products/internal/database"
	custommiddleware "agroweb-products/internal/middleware"
	"agroweb-products/internal/repository"
	"agroweb-products/internal/service"
	"agroweb-products/internal/storage"
	"agroweb-products/internal/storage/cassandra"
	"agroweb-products/internal/storage/memory"
	"agroweb-products/internal/storage/postgres"
	"agroweb-products/internal/transport"
	"agroweb-products/internal/userclient"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// MigrationsDir is where the relational schema migrations live, relative to
// the working directory.
var MigrationsDir = "migrations"

type healthReporter interface {
	Health(ctx context.Context) map[string]string
}

type Server struct {
	*http.Server
	config  *config.Config
	logger  *zap.Logger
	backend storage.Backend
	details healthReporter
	redis   *redis.Client
}

func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	backend, details, err := openBackend(cfg, logger)
	if err != nil {
		return nil, err
	}

	// Create router
	router := chi.NewRouter()

	// Add basic middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins))

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     net.JoinHostPort(cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis unavailable at startup, cache and rate limit will fail open", zap.Error(err))
		}
		cancel()

		if cfg.RateLimit.Requests > 0 {
			router.Use(custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
				RequestsPerWindow: cfg.RateLimit.Requests,
				Window:            cfg.RateLimit.Window,
				KeyPrefix:         "rate_limit",
			}, logger))
		}
	}

	server := &Server{
		config:  cfg,
		logger:  logger,
		backend: backend,
		details: details,
		redis:   redisClient,
	}

	// Health check endpoint
	router.Get("/health", server.health)

	// Initialize repositories
	productRepo := repository.NewProductRepository(backend, logger)
	if redisClient != nil {
		productRepo = repository.NewCachedProductRepository(productRepo, redisClient, cfg.Redis.CacheTTL, logger)
	}

	// Initialize services
	opts := service.Options{DefaultImageURL: cfg.Product.DefaultImageURL}
	if cfg.UserService.URL != "" {
		opts.Users = userclient.New(cfg.UserService.URL, cfg.UserService.Timeout, logger)
	}
	productService := service.NewProductService(productRepo, logger, opts)

	// Register routes
	transport.NewProductHandler(productService, logger).RegisterRoutes(router)

	server.Server = &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	logger.Info("Product storage ready",
		zap.String("backend", backend.Name()),
		zap.Bool("cache", redisClient != nil),
		zap.Bool("owner_checks", opts.Users != nil),
	)
	return server, nil
}

func openBackend(cfg *config.Config, logger *zap.Logger) (storage.Backend, healthReporter, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory, "":
		return memory.New(), nil, nil

	case config.BackendCassandra:
		sessions := database.NewCassandraSession(cfg.Cassandra, logger)
		store := cassandra.New(sessions, cassandra.Options{ConditionalInsert: cfg.Cassandra.ConditionalInsert})
		return store, sessions, nil

	case config.BackendPostgres:
		dbService, err := database.New(cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := database.RunMigrations(dbService.DB(), MigrationsDir, logger); err != nil {
			_ = dbService.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return postgres.New(dbService.DB()), dbService, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	body := map[string]interface{}{
		"backend": s.backend.Name(),
		"status":  "ok",
	}
	status := http.StatusOK

	if err := s.backend.Ping(ctx); err != nil {
		s.logger.Warn("Health check failed", zap.String("backend", s.backend.Name()), zap.Error(err))
		body["status"] = "unavailable"
		status = http.StatusServiceUnavailable
	} else if s.details != nil {
		body["details"] = s.details.Health(ctx)
	}

	if s.redis != nil {
		body["cache"] = "ok"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			body["cache"] = "unavailable"
		}
	}

	custommiddleware.RespondWithJSON(w, status, body)
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if err := s.backend.Close(); err != nil {
		s.logger.Error("Failed to close product storage", zap.Error(err))
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	_ = s.logger.Sync()
	return nil
}
