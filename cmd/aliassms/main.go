package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/mesmaili/alias-sms/internal/api"
	"github.com/mesmaili/alias-sms/internal/auth"
	"github.com/mesmaili/alias-sms/internal/cache"
	"github.com/mesmaili/alias-sms/internal/client"
	"github.com/mesmaili/alias-sms/internal/config"
	"github.com/mesmaili/alias-sms/internal/retention"
	"github.com/mesmaili/alias-sms/internal/service"
	"github.com/mesmaili/alias-sms/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadAll()
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := sql.Open("pgx", cfg.Database.PostgresURL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := store.Migrate(ctx, db); err != nil {
		log.Fatal(err)
	}

	aliases := store.NewPostgresAliasStore(db)
	logs := store.NewPostgresLogStore(db)

	var aliasCache cache.AliasCache = cache.Noop{}
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		aliasCache = cache.NewRedisCache(rdb, cfg.Redis.TTL)
	}

	var authenticator auth.Authenticator
	if cfg.Auth.WebhookURL != "" {
		authenticator = auth.NewWebhookAuthenticator(cfg.Auth.WebhookURL)
	} else {
		authenticator = auth.Static{Decision: auth.Decision(cfg.Auth.StaticDecision)}
	}

	smsClient := client.NewWebhookClient(cfg.Sms.WebhookURL)
	pipeline := service.NewPipeline(aliases, logs, aliasCache, authenticator, smsClient)

	pruner, err := retention.NewPruner(logs, cfg.Retention.Interval, cfg.Retention.MaxAge)
	if err != nil {
		log.Fatal(err)
	}
	pruner.Start()
	defer pruner.Stop()

	h := api.NewHandler(aliases, logs, aliasCache, pipeline, pruner)
	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: loggingMiddleware(api.Router(h)),
	}

	go func() {
		slog.Info("alias-sms listening",
			"addr", cfg.Server.Address,
			"redis", cfg.Redis.Enabled,
			"auth_webhook", cfg.Auth.WebhookURL != "",
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)
	<-shutdownChan

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown", "err", err)
	}
	slog.Info("server stopped")
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
