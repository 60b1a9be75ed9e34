package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"displaybox/internal/auth"
	"displaybox/internal/config"
	"displaybox/internal/metrics"
	"displaybox/internal/server"
	"displaybox/internal/store"
	"displaybox/pkg/logger"
)

const sweepInterval = 10 * time.Minute

func main() {
	cfg, err := config.Load()
	log := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}
	if cfg.AdminPassword == config.DefaultAdminPassword {
		log.Warn().Msg("ADMIN_PASSWORD is not set, using the default password")
	}
	if cfg.GeneratedSecret {
		log.Info().Msg("SESSION_SECRET not set, sessions will not survive a restart")
	}

	reg := metrics.NewRegistry()
	m := metrics.New(reg)

	st := store.New(cfg.DataDir, log, store.WithFailureRecorder(m))
	gate, err := auth.NewGate(cfg.AdminPassword, cfg.SessionSecret, cfg.SessionTTL, log, auth.WithLoginRecorder(m))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up session gate")
	}

	srv, err := server.New(server.Config{
		Store:        st,
		Gate:         gate,
		Logger:       log,
		Metrics:      m,
		Registry:     reg,
		MetricsToken: cfg.MetricsToken,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := gate.Sweep(); n > 0 {
					log.Debug().Int("sessions", n).Msg("expired sessions removed")
				}
			}
		}
	}()

	httpSrv := srv.HTTPServer(cfg.Addr())
	go func() {
		log.Info().Str("data_dir", st.Dir()).Msgf("DisplayBox running on port %s", cfg.Port)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
