package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/Skotchmaster/registry_portal/pkg/es"
	"github.com/Skotchmaster/registry_portal/pkg/logging"
	"github.com/Skotchmaster/registry_portal/pkg/metrics"
	middleware "github.com/Skotchmaster/registry_portal/pkg/middleware/auth"
	loggingmw "github.com/Skotchmaster/registry_portal/pkg/middleware/logging"
	"github.com/Skotchmaster/registry_portal/pkg/mykafka"
	"github.com/Skotchmaster/registry_portal/pkg/ratelimit"
	"github.com/Skotchmaster/registry_portal/pkg/tokens"
	"github.com/Skotchmaster/registry_portal/services/auth/internal/audit"
	"github.com/Skotchmaster/registry_portal/services/auth/internal/config"
	"github.com/Skotchmaster/registry_portal/services/auth/internal/httpserver"
	"github.com/Skotchmaster/registry_portal/services/auth/internal/janitor"
	"github.com/Skotchmaster/registry_portal/services/auth/internal/repo"
	"github.com/Skotchmaster/registry_portal/services/auth/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("authd_exit", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	db, err := config.InitDB(initCtx, cfg)
	if err != nil {
		return err
	}
	gormRepo := &repo.GormRepo{DB: db}
	if err := gormRepo.Migrate(initCtx); err != nil {
		return err
	}

	m := metrics.New("auth")
	sink, closeSinks := auditSinks(initCtx, cfg, log)
	defer closeSinks()

	secret := []byte(cfg.JWTSecret)
	verifier := tokens.NewVerifier(secret, time.Now)
	svc := &service.AuthService{
		Repo:       gormRepo,
		Issuer:     tokens.NewIssuer(secret, cfg.AccessTTL, time.Now),
		Verifier:   verifier,
		RefreshTTL: cfg.RefreshTTL,
		Audit:      sink,
		Metrics:    m,
	}
	if err := svc.Bootstrap(logging.IntoContext(initCtx, log), cfg.BootstrapEmail, cfg.BootstrapPassword); err != nil {
		return err
	}

	jan, err := janitor.New(svc, cfg.PurgeSchedule, cfg.PurgeRetention, log.With("component", "janitor"))
	if err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second
	e.Use(echomw.Recover(), echomw.Secure(), loggingmw.RequestLogger(log), m.Middleware())

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler:  &httpserver.AuthHTTP{Svc: svc},
		Guard:        middleware.NewGuard(verifier, m),
		LoginLimiter: loginLimiter(initCtx, cfg, log),
		Metrics:      m,
		Ready:        svc.Ready,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", "addr", cfg.AuthURL)
		if err := e.Start(cfg.AuthURL); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error { return jan.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// auditSinks always logs. Kafka and Elasticsearch are added when configured
// and sit behind an async buffer.
func auditSinks(ctx context.Context, cfg config.Config, log *slog.Logger) (audit.Sink, func()) {
	var remote audit.Multi
	var closers []func()

	if len(cfg.KafkaBrokers) > 0 {
		if err := mykafka.EnsureTopics(cfg.KafkaBrokers[0], cfg.KafkaAuditTopic); err != nil {
			log.Warn("kafka_topics_unavailable", "error", err)
		}
		p, err := mykafka.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			log.Warn("kafka_disabled", "error", err)
		} else {
			remote = append(remote, audit.KafkaSink{Producer: p, Topic: cfg.KafkaAuditTopic})
			closers = append(closers, func() { _ = p.Close() })
		}
	}
	if cfg.ESURL != "" {
		client, err := es.NewClient(ctx, es.Config{URL: cfg.ESURL, Username: cfg.ESUser, Password: cfg.ESPassword})
		if err != nil {
			log.Warn("elasticsearch_disabled", "error", err)
		} else {
			remote = append(remote, audit.ESSink{Indexer: es.NewIndexer(client, cfg.ESAuditIndex)})
		}
	}

	if len(remote) == 0 {
		return audit.Multi{audit.LogSink{}}, func() {}
	}
	async := audit.NewAsync(remote, cfg.AuditBuffer, log.With("component", "audit"))
	closeAll := func() {
		async.Close()
		for _, c := range closers {
			c()
		}
	}
	return audit.Multi{audit.LogSink{}, async}, closeAll
}

func loginLimiter(ctx context.Context, cfg config.Config, log *slog.Logger) ratelimit.Limiter {
	rl := ratelimit.Config{Name: "login", Window: cfg.LoginRateWindow, Max: cfg.LoginRateLimit}
	if cfg.RedisAddr == "" {
		return ratelimit.NewLocalLimiter(rl)
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redis_unavailable_using_local_limiter", "error", err)
		_ = client.Close()
		return ratelimit.NewLocalLimiter(rl)
	}
	return ratelimit.NewRedisLimiter(client, rl)
}
