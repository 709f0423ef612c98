package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	// Drivers
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"gopkg.in/tomb.v2"

	// Instrumentation
	"github.com/exaring/otelpgx"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	// Interne
	"github.com/jupiterclapton/socialfeed/config"
	"github.com/jupiterclapton/socialfeed/internal/adapters/primary/rest"
	"github.com/jupiterclapton/socialfeed/internal/adapters/secondary/cache"
	"github.com/jupiterclapton/socialfeed/internal/adapters/secondary/eventbroker"
	"github.com/jupiterclapton/socialfeed/internal/adapters/secondary/repository"
	"github.com/jupiterclapton/socialfeed/internal/adapters/secondary/security"
	"github.com/jupiterclapton/socialfeed/internal/adapters/secondary/storage"
	"github.com/jupiterclapton/socialfeed/internal/core/ports"
	"github.com/jupiterclapton/socialfeed/internal/core/services"
	"github.com/jupiterclapton/socialfeed/pkg/logger"
	"github.com/jupiterclapton/socialfeed/pkg/telemetry"
)

func main() {
	// 1. Config & Logger
	cfg := config.Load()
	logger.Init(cfg.Env, cfg.ServiceName)
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	slog.Info("🚀 Starting socialfeed", "env", cfg.Env, "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Télémétrie (Tracing)
	if cfg.OtelEnabled {
		tp, err := telemetry.InitTracer(ctx, telemetry.Options{
			ServiceName: cfg.ServiceName,
			Env:         cfg.Env,
			Endpoint:    cfg.OtelEndpoint,
		})
		if err != nil {
			slog.Error("Failed to init tracer", "error", err)
		} else {
			defer func() { _ = tp.Shutdown(context.Background()) }()
		}
	} else {
		telemetry.InitPropagators()
	}

	var readiness []func(context.Context) error

	// 3. Post Record Store (Mongo)
	var postRepo ports.PostRepository
	if cfg.MongoURI == "memory" {
		slog.Warn("⚠️ Using in-memory post store, data is lost on restart")
		postRepo = repository.NewMemoryPostRepo()
	} else {
		client, err := mongo.Connect(options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			fatal("Unable to configure Mongo client", err)
		}
		defer func() { _ = client.Disconnect(context.Background()) }()

		pingCtx, pingCancel := context.WithTimeout(ctx, 10*time.Second)
		err = client.Ping(pingCtx, nil)
		pingCancel()
		if err != nil {
			fatal("Unable to connect to Mongo", err)
		}
		slog.Info("✅ Connected to Mongo", "db", cfg.MongoDB)

		mongoRepo := repository.NewMongoPostRepo(client.Database(cfg.MongoDB))
		if err := mongoRepo.EnsureIndexes(ctx); err != nil {
			fatal("Unable to create Mongo indexes", err)
		}
		if cfg.AutoMigrate {
			if err := mongoRepo.MigrateLegacySchema(ctx); err != nil {
				fatal("Legacy migration failed", err)
			}
		}
		postRepo = mongoRepo
		readiness = append(readiness, func(ctx context.Context) error { return client.Ping(ctx, nil) })
	}

	// 4. Comptes utilisateurs (Postgres)
	var userRepo ports.UserRepository
	if cfg.DBUrl == "memory" {
		slog.Warn("⚠️ Using in-memory user store, accounts are lost on restart")
		userRepo = repository.NewMemoryUserRepo()
	} else {
		dbConfig, err := pgxpool.ParseConfig(cfg.DBUrl)
		if err != nil {
			fatal("Unable to parse DB config", err)
		}
		// Instrumentation SQL (requêtes visibles dans Jaeger)
		dbConfig.ConnConfig.Tracer = otelpgx.NewTracer()

		dbPool, err := pgxpool.NewWithConfig(ctx, dbConfig)
		if err != nil {
			fatal("Unable to connect to database", err)
		}
		defer dbPool.Close()
		slog.Info("✅ Connected to Postgres")

		pgRepo := repository.NewPostgresUserRepo(dbPool)
		if cfg.AutoMigrate {
			if err := pgRepo.EnsureSchema(ctx); err != nil {
				fatal("Unable to create users schema", err)
			}
		}
		userRepo = pgRepo
		readiness = append(readiness, dbPool.Ping)
	}

	// 5. Redis (cache du feed + rate limit), optionnel
	var (
		feedCache ports.FeedCache
		limiter   rest.Limiter
	)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisotel.InstrumentTracing(rdb); err != nil {
			slog.Warn("Redis tracing not enabled", "error", err)
		}
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			// Le feed fonctionne sans cache : on démarre quand même
			slog.Warn("⚠️ Redis unreachable, cache and rate limit disabled", "error", err)
		} else {
			slog.Info("✅ Connected to Redis")
			feedCache = cache.NewRedisFeedCache(rdb, cfg.FeedCacheTTL)
			if cfg.RateLimitPerMinute > 0 {
				limiter = cache.NewRateLimiter(rdb, int64(cfg.RateLimitPerMinute), time.Minute)
			}
		}
	}

	// 6. Event Broker
	var eventPub ports.EventPublisher = eventbroker.NoopPublisher{}
	switch cfg.EventBroker {
	case "nats":
		nc, err := nats.Connect(cfg.NatsUrl, nats.Name(cfg.ServiceName))
		if err != nil {
			fatal("Unable to connect to NATS", err)
		}
		defer nc.Drain()
		slog.Info("✅ Connected to NATS")
		eventPub = eventbroker.NewNatsPublisher(nc)
	case "kafka":
		kp := eventbroker.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaAcks)
		defer kp.Close()
		slog.Info("✅ Kafka writer ready", "topic", cfg.KafkaTopic)
		eventPub = kp
	}

	// 7. Stockage des médias
	var (
		media   ports.MediaStorage
		uploads http.Handler
	)
	switch cfg.MediaBackend {
	case "s3":
		s3, err := storage.NewS3Store(storage.S3Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			UseSSL:    cfg.S3UseSSL,
			Bucket:    cfg.S3Bucket,
		})
		if err != nil {
			fatal("Unable to configure S3", err)
		}
		if err := s3.EnsureBucket(ctx); err != nil {
			fatal("Unable to ensure S3 bucket", err)
		}
		slog.Info("✅ S3 bucket ready", "bucket", cfg.S3Bucket)
		media, uploads = s3, s3.Handler()
	default:
		local, err := storage.NewLocalStore(cfg.UploadDir, cfg.MaxUploadBytes)
		if err != nil {
			fatal("Unable to prepare upload dir", err)
		}
		media, uploads = local, local.Handler()
	}

	// 8. Sécurité
	tokens, err := newTokenProvider(cfg)
	if err != nil {
		fatal("Unable to configure token provider", err)
	}
	hasher := security.NewArgon2Hasher(nil)

	// 9. Core
	identityService := services.NewIdentityService(userRepo, hasher, tokens)
	feedService := services.NewFeedService(postRepo, feedCache, cfg.FeedMaxLimit)
	postService := services.NewPostService(postRepo, media, eventPub, feedCache, services.Limits{
		CommentMaxLength: cfg.CommentMaxLength,
		MaxUploadBytes:   cfg.MaxUploadBytes,
	})

	// 10. Primary Adapter (REST)
	router := rest.NewRouter(rest.Deps{
		Feed:           feedService,
		Posts:          postService,
		Identity:       identityService,
		Uploads:        uploads,
		PublicDir:      cfg.PublicDir,
		Limiter:        limiter,
		Metrics:        rest.NewMetrics(),
		CORSOrigins:    cfg.CORSOrigins,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Ready: func(ctx context.Context) error {
			for _, check := range readiness {
				if err := check(ctx); err != nil {
					return err
				}
			}
			return nil
		},
	})
	h := otelhttp.NewHandler(router, cfg.ServiceName, otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
		return fmt.Sprintf("HTTP %s %s", r.Method, r.URL.Path)
	}))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// 11. Démarrage supervisé + Graceful Shutdown
	var t tomb.Tomb
	t.Go(func() error {
		slog.Info("📡 socialfeed listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	t.Go(func() error {
		<-t.Dying()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		slog.Info("🛑 Shutting down server...")
		t.Kill(nil)
	case <-t.Dying():
	}

	if err := t.Wait(); err != nil {
		slog.Error("Server stopped with error", "error", err)
		cancel()
		os.Exit(1)
	}
	slog.Info("👋 Server exited")
}

// --- HELPERS ---

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

// newTokenProvider : RS256 si une clé privée est fournie, sinon HS256.
// En local sans secret, un secret éphémère est généré (tokens invalidés au redémarrage).
func newTokenProvider(cfg config.Config) (*security.JWTProvider, error) {
	if cfg.RSAPrivateKeyPath != "" {
		priv, err := os.ReadFile(cfg.RSAPrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("read private key: %w", err)
		}
		var pub []byte
		if cfg.RSAPublicKeyPath != "" {
			if pub, err = os.ReadFile(cfg.RSAPublicKeyPath); err != nil {
				return nil, fmt.Errorf("read public key: %w", err)
			}
		}
		return security.NewRSAProvider(priv, pub, cfg.TokenTTL)
	}

	secret := []byte(cfg.JWTSecret)
	if len(secret) == 0 {
		slog.Warn("⚠️ JWT_SECRET not set, using an ephemeral secret")
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, err
		}
	}
	return security.NewHMACProvider(secret, cfg.TokenTTL)
}
