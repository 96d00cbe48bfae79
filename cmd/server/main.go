package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gogpu/gg"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/inamate/bspview/internal/auth"
	"github.com/inamate/bspview/internal/bsp"
	"github.com/inamate/bspview/internal/cache"
	"github.com/inamate/bspview/internal/catalog"
	"github.com/inamate/bspview/internal/collab"
	"github.com/inamate/bspview/internal/config"
	"github.com/inamate/bspview/internal/db"
	mw "github.com/inamate/bspview/internal/middleware"
	"github.com/inamate/bspview/internal/scene"
	"github.com/inamate/bspview/internal/store"
)

const sampleSceneID = "scene_sample"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
	bsp.SetLogger(slog.Default())
	gg.SetLogger(slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var scenes store.Store
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := db.Migrate(ctx, pool); err != nil {
			slog.Error("migrate database", "error", err)
			os.Exit(1)
		}
		scenes = store.NewPostgres(pool)
	} else {
		slog.Warn("DATABASE_URL not set, scenes are kept in memory")
		scenes = store.NewMemory()
	}

	trees, err := cache.New(cfg.CacheMaxTrees)
	if err != nil {
		slog.Error("create tree cache", "error", err)
		os.Exit(1)
	}
	defer trees.Close()

	authService := auth.NewService(cfg.JWTSecret, cfg.TokenTTL)
	authHandler := auth.NewHandler(authService)

	catalogService := catalog.NewService(scenes, trees, cfg.MaxSegments)
	catalogHandler := catalog.NewHandler(catalogService)

	// Seed the sample scene so a fresh server has something to look at
	if _, err := catalogService.Get(ctx, sampleSceneID); err != nil {
		if _, err := catalogService.Create(ctx, scene.NewSampleScene(sampleSceneID)); err != nil {
			slog.Warn("seed sample scene", "error", err)
		}
	}

	hub := collab.NewHub(catalogService)
	go hub.Run()

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.Metrics)
	r.Use(mw.CORS(cfg.Origins()))

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Auth routes
	r.HandleFunc("/auth/viewer", authHandler.Viewer).Methods("POST", "OPTIONS")
	r.Handle("/auth/whoami", authService.AuthMiddleware(http.HandlerFunc(authHandler.Whoami))).Methods("GET")

	// Scene API, writes need an editor token
	catalogHandler.Register(r, authService.AuthMiddleware)

	// WebSocket endpoint
	r.HandleFunc("/ws/scenes/{sceneId}", hub.Handler(authService, cfg.OriginHosts()))

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		// Stop hub first so viewers are disconnected cleanly
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
