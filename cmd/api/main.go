package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hangpark123/zoomnote/internal/app"
	"github.com/hangpark123/zoomnote/internal/config"
	"github.com/hangpark123/zoomnote/internal/directory"
	"github.com/hangpark123/zoomnote/internal/email"
	"github.com/hangpark123/zoomnote/internal/identity"
	"github.com/hangpark123/zoomnote/internal/logging"
	"github.com/hangpark123/zoomnote/internal/notify"
	"github.com/hangpark123/zoomnote/internal/search"
	"github.com/hangpark123/zoomnote/internal/session"
	"github.com/hangpark123/zoomnote/internal/store"
)

func main() {
	cfg := config.Load()
	logger := logging.New(os.Stdout, cfg.LogFormat, cfg.LogLevel)
	ctx := context.Background()

	fatal := func(msg string, err error) {
		logger.Error(ctx, msg, "error", err)
		os.Exit(1)
	}

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		fatal("database connection failed", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db); err != nil {
		fatal("migrations failed", err)
	}

	dataStore := store.NewPostgresStore(db).WithSerialAttempts(cfg.SerialMaxAttempts)

	var sessionStore session.Store = session.NewMemoryStore()
	if strings.TrimSpace(cfg.RedisURL) != "" {
		redisStore, err := session.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			fatal("redis connection failed", err)
		}
		defer redisStore.Close()
		sessionStore = redisStore
		logger.Info(ctx, "sessions stored in redis")
	} else {
		logger.Info(ctx, "sessions stored in process memory")
	}
	sessions := session.NewCache(sessionStore, dataStore.GetUserByID, cfg.SessionTTL, logger)

	dir := directory.New(directory.Config{
		ClientID:     cfg.DirectoryClientID,
		ClientSecret: cfg.ContextSecret,
		AccountID:    cfg.DirectoryAccount,
		APIBase:      cfg.DirectoryAPIBase,
		TokenURL:     cfg.DirectoryTokenURL,
		Timeout:      cfg.DirectoryTimeout,
	})
	if !dir.Configured() {
		logger.Warn(ctx, "directory credentials missing; profiles come from the context token only")
	}
	resolver := identity.NewResolver(dataStore, dir, identity.DevIdentity{
		Enabled:   cfg.AllowDevFallback,
		UserID:    cfg.DevUserID,
		Email:     cfg.DevEmail,
		AccountID: cfg.DevAccountID,
	}, logger)

	var notifiers []notify.Notifier
	if strings.TrimSpace(cfg.WebhookURL) != "" {
		notifiers = append(notifiers, notify.NewWebhook(cfg.WebhookURL, cfg.WebhookToken))
	}
	mailer := email.NewService(email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	})
	if mailer.IsConfigured() && len(cfg.NotifyEmails) > 0 {
		notifiers = append(notifiers, notify.NewEmail(mailer, cfg.NotifyEmails))
	}
	dispatcher := notify.NewDispatcher(logger, notifiers...)
	defer dispatcher.Wait()

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, search.NewPgFTS(db), logger)
	go searchService.ReindexAllFromPG(ctx)

	service := app.New(cfg, app.Deps{
		Store:    dataStore,
		Resolver: resolver,
		Sessions: sessions,
		Notifier: dispatcher,
		Search:   searchService,
		Logger:   logger,
	})

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info(ctx, "research notes API listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fatal("server failed", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn(ctx, "shutdown error", "error", err)
	}
}
