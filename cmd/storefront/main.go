package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ariefcatur/go-storefront/internal/activity"
	"github.com/ariefcatur/go-storefront/internal/api"
	"github.com/ariefcatur/go-storefront/internal/blog"
	"github.com/ariefcatur/go-storefront/internal/config"
	"github.com/ariefcatur/go-storefront/internal/forms"
	"github.com/ariefcatur/go-storefront/internal/httpx"
	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/logx"
	"github.com/ariefcatur/go-storefront/internal/metrics"
	"github.com/ariefcatur/go-storefront/internal/money"
	"github.com/ariefcatur/go-storefront/internal/postgres"
	"github.com/ariefcatur/go-storefront/internal/redisx"
	"github.com/ariefcatur/go-storefront/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logx.New(cfg.ServiceName, cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mf, err := money.New(cfg.Locale, cfg.Currency)
	if err != nil {
		log.WithError(err).Fatal("money format")
	}

	// Durable visitor state: auth token and user snapshot
	var durable storage.KV = storage.NewMemory(0)
	if cfg.PostgresDSN != "" {
		db, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			log.WithError(err).Fatal("db connect")
		}
		defer db.Close()
		durable = db
	} else {
		log.Warn("POSTGRES_DSN not set, visitor state is kept in memory")
	}

	// Session caches and the checkout lock
	mem := storage.NewMemory(cfg.SessionTTL)
	var (
		ephemeral storage.KV     = mem
		locker    storage.Locker = mem
	)
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		if err := redisx.Ping(ctx, rdb); err != nil {
			log.WithError(err).Fatal("redis ping")
		}
		store := redisx.NewSessionStore(rdb, cfg.SessionTTL)
		ephemeral, locker = store, store
	}

	// Activity events
	var (
		pub  activity.Publisher = activity.Noop{}
		prod *kafkax.Producer
	)
	if len(cfg.KafkaBrokers) > 0 {
		prod = kafkax.NewProducer(cfg.KafkaBrokers, cfg.ActivityTopic, 1024, log)
		prod.Start(ctx)
		pub = activity.NewKafkaPublisher(prod, cfg.ServiceName)
	}

	client := api.New(cfg.APIBaseURL,
		api.WithHTTPClient(&http.Client{Timeout: 10 * time.Second}),
		api.WithLogger(log.WithField("component", "api")),
		api.WithObserver(metrics.ObserveUpstream),
	)

	srv, err := httpx.New(httpx.Deps{
		Config:    cfg,
		Log:       log,
		API:       client,
		Durable:   durable,
		Ephemeral: ephemeral,
		Locker:    locker,
		Activity:  pub,
		Money:     mf,
		Forms:     forms.New(cfg.PostalCodeDigits),
		Blog:      blog.NewRenderer(),
	})
	if err != nil {
		log.WithError(err).Fatal("server setup")
	}

	// HTTP server
	hs := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// graceful shutdown
	go func() {
		log.WithField("addr", cfg.HTTPAddr).WithField("api", cfg.APIBaseURL).Info("HTTP listening")
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("listen")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = hs.Shutdown(ctx2)
	if prod != nil {
		prod.Close()      // stop accepting, flush what is queued
		cancel()
		prod.WaitClosed()
	}
}
