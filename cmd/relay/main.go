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

	"recording-relay/internal/auth"
	"recording-relay/internal/calls"
	"recording-relay/internal/config"
	"recording-relay/internal/documents"
	"recording-relay/internal/failurelog"
	"recording-relay/internal/media"
	"recording-relay/internal/netwatch"
	"recording-relay/internal/notify"
	"recording-relay/internal/storage"
	"recording-relay/internal/uploads"
	"recording-relay/pkg/logger"
	"recording-relay/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const uploadGracePeriod = 30 * time.Second

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)
	rootCtx = logger.With(rootCtx, log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}
	session := auth.NewSession(authManager)
	if cfg.Auth.DeviceToken != "" {
		if p, err := session.SignIn(cfg.Auth.DeviceToken); err != nil {
			log.Warn("device token rejected, uploads disabled until sign-in", "err", err)
		} else {
			log.Info("device session restored", "user_id", p.UserID)
		}
	}
	policy := auth.AllowEmails(cfg.Auth.AllowedEmails...)

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := utils.ApplySchema(rootCtx, db, documents.Schema+uploads.JournalSchema); err != nil {
		log.Error("schema apply failed", "err", err)
		os.Exit(1)
	}

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr(), Password: cfg.Redis.Password})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	indexDB, err := media.OpenDB(cfg.Media.IndexPath)
	if err != nil {
		log.Error("media index init failed", "err", err)
		os.Exit(1)
	}
	indexer := &media.Indexer{DB: indexDB, Root: cfg.Media.RecordingsDir, Logger: logger.Component(log, "media")}
	if n, err := indexer.Sync(rootCtx); err != nil {
		log.Warn("initial media sync failed", "dir", cfg.Media.RecordingsDir, "err", err)
	} else {
		log.Info("media index ready", "new_files", n)
	}

	blobs, err := storage.NewS3Store(rootCtx, cfg.Storage)
	if err != nil {
		log.Error("storage init failed", "err", err)
		os.Exit(1)
	}

	failures := failurelog.NewRedisStore(rdb)
	var dedup failurelog.DedupSet = failurelog.NewMemoryDedupSet()
	if cfg.Dedup.Durable {
		dedup = failurelog.NewRedisDedupSet(rdb, cfg.Dedup.TTL)
	}

	notifier := notify.Fanout{
		notify.LogNotifier{Logger: logger.Component(log, "notify")},
		notify.NewRedisNotifier(rdb, cfg.Notify.Channel),
	}

	journal := uploads.NewPostgresJournal(db)
	docs := documents.NewPostgresRepo(db)
	pipeline := uploads.NewPipeline(uploads.Deps{
		Identity:  session,
		Policy:    policy,
		Blobs:     blobs,
		Documents: docs,
		Failures:  failures,
		Notifier:  notifier,
		Journal:   journal,
		Prefix:    cfg.Storage.Prefix,
		Logger:    log,
	})
	dispatcher := uploads.NewDispatcher(rootCtx, pipeline, log)

	callMonitor := calls.NewMonitor(rootCtx, calls.Deps{
		Contacts: &media.ContactResolver{DB: indexDB, Logger: logger.Component(log, "contacts")},
		Files: &media.FileResolver{
			DB:      indexDB,
			Indexer: indexer,
			Slack:   cfg.Call.LookbackSlack,
			Logger:  logger.Component(log, "media"),
		},
		Dedup:      dedup,
		Dispatcher: dispatcher,
		OnCallEnded: func(ev calls.CallEvent) {
			log.Debug("call ended", "phone_number", ev.PhoneNumber, "duration_ms", ev.Duration.Milliseconds())
		},
		PostCallDelay: cfg.Call.PostCallDelay,
		Logger:        log,
	})
	netMonitor := netwatch.NewMonitor(failures, dispatcher, log)

	prober := &netwatch.Prober{
		Monitor:  netMonitor,
		Check:    blobs.Ping,
		Interval: cfg.Connectivity.ProbeInterval,
		Logger:   log,
	}
	go prober.Run(rootCtx)

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log, "/healthz"))

	registerRoutes(r, routeDeps{
		cfg:        cfg,
		authMW:     auth.RequireAccessToken(authManager),
		session:    session,
		policy:     policy,
		calls:      callMonitor,
		network:    netMonitor,
		failures:   failures,
		journal:    journal,
		documents:  docs,
		healthPing: func(ctx context.Context) error { return utils.HealthCheck(ctx, db, 2*time.Second) },
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("relay listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	// Stop intake first: no new events, no pending post-call callbacks.
	callMonitor.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
	dispatcher.Close()

	graceCtx, graceCancel := context.WithTimeout(context.Background(), uploadGracePeriod)
	defer graceCancel()
	if err := dispatcher.Wait(graceCtx); err != nil {
		log.Warn("in-flight uploads did not finish before exit", "err", err)
	}

	if sqlDB, err := indexDB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
