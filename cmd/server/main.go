// Command server runs the notification backend: the HTTP API, the daily
// reminder scheduler, and the webhook ingestion worker, all against the
// synced sales database and the remote company configuration store.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/casaluz/go-notify-backend/internal/config"
	"github.com/casaluz/go-notify-backend/internal/docstore"
	"github.com/casaluz/go-notify-backend/internal/extract"
	"github.com/casaluz/go-notify-backend/internal/faillog"
	"github.com/casaluz/go-notify-backend/internal/gateway"
	httpapi "github.com/casaluz/go-notify-backend/internal/http"
	"github.com/casaluz/go-notify-backend/internal/http/handlers"
	"github.com/casaluz/go-notify-backend/internal/observability"
	"github.com/casaluz/go-notify-backend/internal/repo"
	"github.com/casaluz/go-notify-backend/internal/scheduler"
	"github.com/casaluz/go-notify-backend/internal/sweep"
	"github.com/casaluz/go-notify-backend/internal/sysutil"
	"github.com/casaluz/go-notify-backend/internal/tags"
	"github.com/casaluz/go-notify-backend/internal/templates"
	"github.com/casaluz/go-notify-backend/internal/webhook"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	// Local development convenience; the file is absent in containers.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	sysutil.SetLogLevel(cfg.LogLevel)
	gin.SetMode(cfg.GinMode)

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatal().Err(err).Str("tz", cfg.Timezone).Msg("invalid timezone")
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Observability
	shutdownOTel, err := observability.SetupOTel(rootCtx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(ctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	// Relational store (synced entity graph)
	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database failed")
	}

	// Remote document store and the services on top of it
	store := docstore.New(docstore.Config{
		BaseURL: cfg.Docstore.BaseURL,
		Project: cfg.Docstore.Project,
		APIKey:  cfg.Docstore.APIKey,
	})
	failures := faillog.New(store, loc)
	tplSvc := templates.NewService(store, failures)
	resolver := tags.NewResolver(db, loc)

	// Delivery gateways
	emailGW := gateway.NewEmailSender(gateway.EmailConfig{
		BaseURL: cfg.Mail.BaseURL,
		APIKey:  cfg.Mail.APIKey,
		Sender:  cfg.Mail.Sender,
	})
	waGW := gateway.NewWhatsAppSender(gateway.WhatsAppConfig{
		BaseURL:   cfg.WhatsApp.BaseURL,
		Token:     cfg.WhatsApp.Token,
		ChannelID: cfg.WhatsApp.ChannelID,
	})
	extractor := extract.NewClient(extract.Config{
		BaseURL: cfg.Extract.BaseURL,
		APIKey:  cfg.Extract.APIKey,
		Model:   cfg.Extract.Model,
	})

	engine := &sweep.Engine{
		DB:        db,
		Resolver:  resolver,
		Templates: tplSvc,
		Config:    store,
		Failures:  failures,
		Email:     emailGW,
		WhatsApp:  waGW,
		Location:  loc,
	}

	receipts := &webhook.Service{
		Company:   cfg.Company,
		ChannelID: cfg.WhatsApp.ChannelID,
		DB:        db,
		Store:     store,
		Extractor: extractor,
		Messenger: waGW,
		Failures:  failures,
		Cache:     webhook.NewEventCache(cfg.WebhookCacheTTL, cfg.WebhookCacheMax),
		Location:  loc,
	}

	// Daily reminder scheduler
	sched := &scheduler.Scheduler{
		Company:  cfg.Company,
		Engine:   engine,
		Config:   store,
		Location: loc,
	}
	go sched.Run(rootCtx)

	// HTTP transport
	h := handlers.New(cfg.Company, db, engine, resolver, tplSvc, store, failures, receipts)
	r := gin.New()
	httpapi.RegisterRoutes(r, h, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("company", cfg.Company).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		os.Exit(1)
	}
}
