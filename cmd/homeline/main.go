package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"homeline/internal/config"
	"homeline/internal/contacts"
	"homeline/internal/dispatch"
	"homeline/internal/format"
	"homeline/internal/guard"
	"homeline/internal/lists"
	"homeline/internal/pipeline"
	"homeline/internal/ratelimit"
	"homeline/internal/server"
	"homeline/internal/trips"
	"homeline/internal/util"
	"homeline/pkg/classify"
	"homeline/pkg/geo"
	"homeline/pkg/sms"
	"homeline/pkg/store"
)

const geocodeCacheTTL = 24 * time.Hour

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := util.InitLogger(cfg.LogLevel)

	st, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		util.Fatal("failed to init store", "err", err)
	}

	geoClient, err := geo.NewClient(cfg.MapsAPIKey, cfg.MapsBaseURL)
	if err != nil {
		util.Fatal("failed to init maps client", "err", err)
	}
	geocoder := geo.NewCachedGeocoder(geoClient, cfg.RedisAddr, cfg.RedisPassword, geocodeCacheTTL)

	gemini, err := classify.NewGeminiClassifier(cfg.ClassifierAPIKey, cfg.ClassifierModel, cfg.ClassifierBaseURL)
	if err != nil {
		util.Fatal("failed to init classifier", "err", err)
	}

	sender, err := sms.NewClient(cfg.SMSAccountSID, cfg.SMSAuthToken, cfg.SMSFromNumber, cfg.SMSBaseURL)
	if err != nil {
		util.Fatal("failed to init sms client", "err", err)
	}

	dispatcher := dispatch.New(dispatch.Config{
		Users:     st,
		Guard:     guard.New(st),
		Lists:     lists.New(st),
		Trips:     trips.New(st, geocoder, geoClient),
		Contacts:  contacts.New(st),
		Formatter: format.New(cfg.ReplyMaxLen),
	})
	pipe := pipeline.New(pipeline.Config{
		Store:      st,
		Classifier: classify.SafeClassifier{Inner: gemini},
		Dispatcher: dispatcher,
		Sender:     sender,
	})

	var limiter *ratelimit.FixedWindowLimiter
	if cfg.InboundRateLimitPerMinute > 0 {
		limiter, err = ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.InboundRateLimitPerMinute, time.Minute)
		if err != nil {
			util.Fatal("failed to init rate limiter", "err", err)
		}
	}

	httpServer := server.New(server.Config{
		Pipeline:      pipe,
		AuthToken:     cfg.SMSAuthToken,
		PublicBaseURL: cfg.PublicBaseURL,
		Limiter:       limiter,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("homeline listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Error("server error", "err", err)
	}
}
