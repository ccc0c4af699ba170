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

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Mic/internal/adapters/commentary"
	router "github.com/dkeye/Mic/internal/adapters/http"
	"github.com/dkeye/Mic/internal/adapters/rtc"
	wssignal "github.com/dkeye/Mic/internal/adapters/signal"
	"github.com/dkeye/Mic/internal/adapters/token"
	"github.com/dkeye/Mic/internal/app"
	"github.com/dkeye/Mic/internal/app/floor"
	"github.com/dkeye/Mic/internal/app/orch"
	"github.com/dkeye/Mic/internal/app/presence"
	"github.com/dkeye/Mic/internal/app/relay"
	"github.com/dkeye/Mic/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// .env is optional; real environment wins.
	_ = godotenv.Load()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.Mode == "release" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	ice, err := rtc.ClientConfig(rtc.ICEOptions{
		URLs:       cfg.ICE.URLs,
		Username:   cfg.ICE.Username,
		Credential: cfg.ICE.Credential,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("invalid ice configuration")
	}

	tracker := presence.New()
	hub := wssignal.NewHub(tracker, app.SimplePolicy{MaxStrikes: 3})

	opts := floor.Options{
		ScoringWindow: cfg.Floor.ScoringWindow,
		TokenTTL:      cfg.Floor.TokenTTL,
		MinScore:      cfg.Floor.MinScore,
		MaxScore:      cfg.Floor.MaxScore,
	}
	issuer, err := token.NewIssuer(cfg.Token.APIKey, cfg.Token.APISecret)
	switch {
	case errors.Is(err, token.ErrNoCredentials):
		log.Warn().Msg("no media server credentials, publish tokens disabled")
	case err != nil:
		log.Fatal().Err(err).Msg("token issuer")
	default:
		opts.Tokens = issuer
	}
	if cfg.Commentary.URL != "" {
		opts.Commentary = commentary.New(cfg.Commentary.URL, cfg.Commentary.Model, cfg.Commentary.Timeout)
	}

	coord := floor.NewCoordinator(floor.NewRegistry(), tracker, hub, opts)
	defer coord.Close()

	o := orch.New(tracker, coord, relay.New(tracker, hub), hub)

	r := router.SetupRouter(ctx, cfg, router.Services{
		Orch:   o,
		Hub:    hub,
		Limits: wssignal.NewConnRateLimiter(cfg.Rate.PerSecond, cfg.Rate.Burst),
		Tokens: issuer,
		ICE:    ice,
	})
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Mic server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
