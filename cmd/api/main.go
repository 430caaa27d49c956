package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IgorGrieder/encurtador-live/internal/auth"
	"github.com/IgorGrieder/encurtador-live/internal/config"
	"github.com/IgorGrieder/encurtador-live/internal/events"
	"github.com/IgorGrieder/encurtador-live/internal/infrastructure/db"
	"github.com/IgorGrieder/encurtador-live/internal/infrastructure/logger"
	"github.com/IgorGrieder/encurtador-live/internal/infrastructure/telemetry"
	"github.com/IgorGrieder/encurtador-live/internal/processing/links"
	"github.com/IgorGrieder/encurtador-live/internal/storage/memory"
	"github.com/IgorGrieder/encurtador-live/internal/storage/mongo"
	redisStorage "github.com/IgorGrieder/encurtador-live/internal/storage/redis"
	httpTransport "github.com/IgorGrieder/encurtador-live/internal/transport/http"
	"github.com/IgorGrieder/encurtador-live/internal/transport/http/middleware"
	"github.com/IgorGrieder/encurtador-live/pkg/httpclient"
	"go.uber.org/zap"
)

// backend bundles the storage selected by STORAGE_BACKEND.
type backend struct {
	links      links.Store
	identities auth.IdentityStore
	limiter    middleware.Limiter
	close      func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(logger.Options{
		Env:        cfg.App.Env,
		Level:      cfg.Log.Level,
		FilePath:   cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   true,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("name", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("env", cfg.App.Env),
		zap.String("storage", cfg.Storage.Backend),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var shutdownTracer func(context.Context) error
	if cfg.OTel.Enabled {
		var err error
		shutdownTracer, err = telemetry.InitTracer(ctx, telemetry.Options{
			Endpoint:       cfg.OTel.Endpoint,
			ServiceName:    cfg.App.Name,
			ServiceVersion: cfg.App.Version,
			Environment:    cfg.App.Env,
			SampleRatio:    cfg.OTel.SampleRatio,
		})
		if err != nil {
			logger.Warn("Failed to initialize tracer, continuing without tracing", zap.Error(err))
		} else {
			logger.Info("OpenTelemetry tracer initialized", zap.String("endpoint", cfg.OTel.Endpoint))
		}
	}

	store, err := openBackend(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize storage", zap.Error(err), zap.String("backend", cfg.Storage.Backend))
	}
	defer store.close()

	serviceOpts := []links.ServiceOption{links.WithMaxCreateAttempts(cfg.Shortener.MaxCreateAttempts)}
	if cfg.Kafka.Enabled {
		publisher, err := events.NewKafkaPublisher(events.KafkaConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.ClickTopic,
		})
		if err != nil {
			logger.Fatal("Failed to initialize Kafka publisher", zap.Error(err))
		}
		defer func() { _ = publisher.Close() }()
		serviceOpts = append(serviceOpts, links.WithClickPublisher(publisher))
		logger.Info("Click export enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.ClickTopic))
	}

	linkSvc := links.NewService(store.links, links.NewTimeDigestGenerator(cfg.Shortener.CodeLength), serviceOpts...)

	sessions, err := auth.NewSessionManager(auth.SessionConfig{
		Secret: cfg.Session.Secret,
		TTL:    cfg.Session.TTL,
		Secure: cfg.Session.CookieSecure,
	})
	if err != nil {
		logger.Fatal("Failed to initialize sessions", zap.Error(err))
	}

	githubClient := httpclient.NewClient(httpclient.DefaultConfig("github"))
	oauth := auth.NewGitHubOAuth(auth.GitHubConfig{
		ClientID:     cfg.GitHub.ClientID,
		ClientSecret: cfg.GitHub.ClientSecret,
		RedirectURL:  cfg.GitHub.RedirectURI,
	}, auth.NewGitHubProfileClient(githubClient, cfg.GitHub.APIBaseURL), store.identities, sessions)

	// Live feeds never finish on their own, so they are ended when Shutdown
	// starts; other requests keep running until they complete.
	feedCtx, endFeeds := context.WithCancel(context.Background())
	defer endFeeds()

	handler := httpTransport.NewHandler(httpTransport.Dependencies{
		Config:   cfg,
		Links:    linkSvc,
		OAuth:    oauth,
		Resolver: auth.NewResolver(sessions, store.identities),
		Limiter:  store.limiter,
		Shutdown: feedCtx,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	server.RegisterOnShutdown(endFeeds)

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if shutdownTracer != nil {
			_ = shutdownTracer(shutdownCtx)
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", zap.Error(err))
		}
	}()

	logger.Info("Server starting",
		zap.String("port", cfg.Server.Port),
		zap.String("env", cfg.App.Env),
		zap.String("address", fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)),
	)

	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("Server error", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	switch cfg.Storage.Backend {
	case config.BackendRedis:
		client, err := redisStorage.New(redisStorage.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		window := redisStorage.NewFixedWindowLimiter(client, "rl:create", time.Minute)
		return &backend{
			links:      redisStorage.NewStore(client),
			identities: redisStorage.NewIdentityStore(client),
			limiter:    middleware.NewRedisFixedWindowLimiter(window, cfg.Security.CreateRatePerMinute),
			close:      func() { _ = client.Close() },
		}, nil

	case config.BackendMongo:
		conn, err := db.ConnectMongo(ctx, db.MongoOptions{
			URI:      cfg.MongoDB.URI,
			Database: cfg.MongoDB.Database,
			AppName:  cfg.App.Name,
		})
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		linkRepo, err := mongo.NewLinksRepository(conn)
		if err != nil {
			_ = conn.Disconnect()
			return nil, err
		}
		sessionRepo, err := mongo.NewSessionsRepository(conn)
		if err != nil {
			_ = conn.Disconnect()
			return nil, err
		}
		return &backend{
			links:      linkRepo,
			identities: sessionRepo,
			limiter:    localLimiter(ctx, cfg),
			close:      func() { _ = conn.Disconnect() },
		}, nil

	default:
		return &backend{
			links:      memory.NewStore(),
			identities: memory.NewIdentityStore(),
			limiter:    localLimiter(ctx, cfg),
			close:      func() {},
		}, nil
	}
}

func localLimiter(ctx context.Context, cfg *config.Config) middleware.Limiter {
	limiter := middleware.NewKeyedRateLimiter(cfg.Security.CreateRatePerMinute)
	limiter.StartCleanup(ctx, 10*time.Minute)
	return limiter
}
