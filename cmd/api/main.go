package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hal9001.dev/internal/access"
	"hal9001.dev/internal/auth"
	"hal9001.dev/internal/config"
	"hal9001.dev/internal/httpapi"
	"hal9001.dev/internal/ids"
	"hal9001.dev/internal/obs"
	"hal9001.dev/internal/store"
)

var (
	version = "0.3.1"
	commit  = "none"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	mgr := store.NewManager(store.Config{
		PrimaryDSN:  cfg.PrimaryDSN,
		SQLitePath:  cfg.SQLitePath,
		PoolMin:     cfg.PoolMin,
		PoolMax:     cfg.PoolMax,
		PingTimeout: cfg.PingTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.PingTimeout)
	db, err := mgr.DB(ctx)
	cancel()
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer bootCancel()
	if err := access.EnsureSchema(bootCtx, db); err != nil {
		log.Fatalf("schema: %v", err)
	}

	bootstrap := cfg.BootstrapPassword
	if bootstrap == "" {
		// Seed with an unguessable throwaway so the roster exists but no
		// one can log in until HAL9001_BOOTSTRAP_PASSWORD is set and
		// passwords are rotated.
		bootstrap = ids.New()
	}
	hash, err := auth.HashPassword(bootstrap)
	if err != nil {
		log.Fatalf("bootstrap hash: %v", err)
	}
	seeded, err := access.SeedIfEmpty(bootCtx, db, hash)
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	if seeded && cfg.BootstrapPassword == "" {
		log.Printf("seeded initial roster with a random credential; set HAL9001_BOOTSTRAP_PASSWORD to enable logins")
	}

	backend, _ := mgr.Backend()
	log.Printf("storage backend: %s", backend)

	tokens, err := auth.NewTokenService(cfg.TokenSecret, cfg.TokenTTL)
	if err != nil {
		log.Fatalf("token service: %v", err)
	}
	accessStore := access.NewSQLStore(mgr)
	gate := auth.NewGate(accessStore, tokens)

	api := httpapi.New(httpapi.ReadyProbe{Pinger: mgr}, version, gate, accessStore)
	api.RateBurst = cfg.RateBurst
	api.RatePerSec = cfg.RatePerSec
	api.MaxBodySize = cfg.MaxBodySize

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	log.Printf("Starting hal9001-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	_ = mgr.Close()
	log.Println("Stopped")
}
