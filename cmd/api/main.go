package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"taskboard/api/internal/archive"
	"taskboard/api/internal/board"
	"taskboard/api/internal/cache"
	"taskboard/api/internal/config"
	"taskboard/api/internal/history"
	"taskboard/api/internal/search"
	"taskboard/api/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	if err := os.MkdirAll(cfg.SnapshotsDir, 0o755); err != nil {
		log.Fatalf("failed to create snapshots dir: %v", err)
	}

	recordStore := store.NewPostgresStore(db)

	var snapshots *history.Service
	if strings.TrimSpace(cfg.ArchiveEndpoint) != "" {
		archiveClient, err := archive.New(ctx, cfg.ArchiveEndpoint, cfg.ArchiveAccessKey, cfg.ArchiveSecretKey, cfg.ArchiveBucket, cfg.ArchiveUseSSL)
		if err != nil {
			log.Fatalf("snapshot archive connection failed: %v", err)
		}
		log.Printf("Mirroring snapshots to %s/%s", cfg.ArchiveEndpoint, cfg.ArchiveBucket)
		snapshots = history.NewWithArchive(cfg.SnapshotsDir, archiveClient)
	} else {
		snapshots = history.New(cfg.SnapshotsDir)
	}

	pgfts := search.NewPgFTS(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
	}
	searchService := search.NewService(meiliClient, pgfts)
	if meiliClient != nil {
		defer meiliClient.Close()
	}

	var service *board.Service
	if strings.TrimSpace(cfg.RedisURL) != "" {
		log.Printf("Using Redis for board listing cache")
		boardCache, err := cache.NewBoardCache(cfg.RedisURL, time.Duration(cfg.CacheTTL)*time.Second)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer boardCache.Close()
		service = board.NewWithCache(cfg, recordStore, boardCache, snapshots, searchService)
	} else {
		service = board.New(cfg, recordStore, snapshots, searchService)
	}
	if err := service.Bootstrap(ctx); err != nil {
		log.Printf("WARNING: bootstrap error (will retry on next restart): %v", err)
	}
	searchService.ReindexAllFromPG(ctx)

	httpServer := board.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Taskboard API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
