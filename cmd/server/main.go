// server runs the markers HTTP API.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"

	"markers-api/internal/audit"
	auditrepo "markers-api/internal/audit/repository"
	"markers-api/internal/config"
	"markers-api/internal/db"
	identityservice "markers-api/internal/identity/service"
	"markers-api/internal/logging"
	markerrepo "markers-api/internal/marker/repository"
	markerservice "markers-api/internal/marker/service"
	"markers-api/internal/observability"
	"markers-api/internal/policy/engine"
	"markers-api/internal/security"
	"markers-api/internal/server"
	"markers-api/internal/server/middleware"
	"markers-api/internal/session"
	sessionrepo "markers-api/internal/session/repository"
	"markers-api/internal/telemetry"
	otelsetup "markers-api/internal/telemetry/otel"
	"markers-api/internal/telemetry/producer"
	userrepo "markers-api/internal/user/repository"
	userservice "markers-api/internal/user/service"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	logger := logging.SetDefault(cfg.ServiceName, version, cfg.LogFormat, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logging.LogError(ctx, logger, "server: exiting", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if err := cfg.ValidateAuth(); err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	providers, err := otelsetup.NewProviders(ctx, otelsetup.Options{
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.OTLPInsecure,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Env,
	})
	if err != nil {
		return oops.Code("OTEL_SETUP_FAILED").Wrap(err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn("otel: shutdown", "error", err)
		}
	}()

	pool, err := db.Open(ctx, cfg.DatabaseURL, db.DefaultOptions())
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").Wrap(err)
	}
	defer pool.Close()

	sessions, closeSessions, err := openSessionStore(ctx, cfg, pool)
	if err != nil {
		return err
	}
	defer closeSessions()

	tokens, alg, err := newTokenProvider(cfg)
	if err != nil {
		return oops.Code("TOKEN_PROVIDER_FAILED").Wrap(err)
	}
	logger.Info("auth: token signing", "alg", alg, "token_ttl", tokens.TTL(), "session_ttl", cfg.SessionTTL())
	hasher := security.NewHasher(cfg.BcryptCost)

	registry, metrics := observability.NewRegistry()
	events := telemetry.Fanout{metrics, otelsetup.NewEventEmitter(providers.LoggerProvider)}
	exporting := cfg.OTLPEndpoint != ""
	if kafka := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.AuthEventsTopic); kafka != nil {
		events = append(events, kafka)
		exporting = true
		defer func() {
			if err := kafka.Close(); err != nil {
				logger.Warn("kafka: close", "error", err)
			}
		}()
		logger.Info("kafka: auth events enabled", "topic", cfg.AuthEventsTopic)
	}
	if exporting {
		// Runs before the exporters close so in-flight EmitAsync calls can finish.
		defer func() {
			logger.Info("telemetry: draining async events", "wait", telemetry.ShutdownDrainDuration)
			time.Sleep(telemetry.ShutdownDrainDuration)
		}()
	}

	auditLog := audit.NewLogger(auditrepo.NewPostgresRepository(pool), middleware.ClientIPFromContext, logger)

	policy, err := engine.NewOPAEvaluator(ctx)
	if err != nil {
		return oops.Code("POLICY_INIT_FAILED").Wrap(err)
	}

	users := userrepo.NewPostgresRepository(pool)
	authSvc := identityservice.NewAuthService(users, sessions, hasher, tokens, cfg.SessionTTL(),
		identityservice.WithEventEmitter(events),
		identityservice.WithAuditLogger(auditLog),
	)
	profileSvc := userservice.NewProfileService(users, sessions, hasher, policy, events, auditLog)
	markerSvc := markerservice.NewMarkerService(markerrepo.NewPostgresRepository(pool), users, policy)

	if interval := cfg.SweepInterval(); interval > 0 {
		sweeper := session.NewSweeper(sessions, interval, logger, metrics.RecordSweep)
		go sweeper.Run(ctx)
	}

	handler := server.NewRouter(server.Deps{
		Auth:                authSvc,
		Profiles:            profileSvc,
		Markers:             markerSvc,
		Audit:               auditLog,
		Metrics:             metrics,
		Registry:            registry,
		HealthPinger:        pool,
		HealthPolicyChecker: policy,
		Logger:              logger,
		APIPrefix:           cfg.APIPrefix,
		AllowedOrigins:      cfg.AllowedOrigins(),
		Version:             version,
	})

	logger.Info("server: starting", "addr", cfg.HTTPAddr, "session_store", cfg.SessionStore, "env", cfg.Env)
	return server.Run(ctx, cfg.HTTPAddr, handler, cfg.ShutdownTimeout(), logger)
}

// openSessionStore returns the configured session backend and a func that releases it.
func openSessionStore(ctx context.Context, cfg *config.Config, pool db.DBTX) (sessionrepo.Store, func(), error) {
	if cfg.SessionStore != config.SessionStoreRedis {
		return sessionrepo.NewPostgresStore(pool), func() {}, nil
	}
	client, err := db.OpenRedis(ctx, cfg.RedisURL, db.DefaultOptions())
	if err != nil {
		return nil, nil, oops.Code("REDIS_CONNECT_FAILED").Wrap(err)
	}
	return sessionrepo.NewRedisStore(client), func() { _ = client.Close() }, nil
}

// newTokenProvider returns the configured token provider and its JWT signing algorithm.
func newTokenProvider(cfg *config.Config) (*security.TokenProvider, string, error) {
	if !cfg.UsesKeyPair() {
		p, err := security.NewHMACTokenProvider([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.JWTAudience, cfg.TokenTTL())
		return p, "HS256", err
	}
	priv, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
	if err != nil {
		return nil, "", err
	}
	pub, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		return nil, "", err
	}
	p, err := security.NewTokenProvider(priv, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.TokenTTL())
	return p, security.KeyAlg(pub), err
}
