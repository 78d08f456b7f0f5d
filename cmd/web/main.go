package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"examdesk/internal/app"
	"examdesk/internal/app/observability"
	"examdesk/internal/db"
	"examdesk/internal/workspace"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using system env")
	}
	cfg := app.LoadConfig()
	if cfg.APIBaseURL == "" {
		log.Println("warning: API_BASE_URL is not set; proxied routes will fail")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	driver, err := db.ParseDriver(cfg.DBDriver)
	if err != nil {
		log.Printf("database config error: %v", err)
		os.Exit(1)
	}
	dbConn, err := db.Open(ctx, db.Config{
		Driver:          driver,
		DSN:             cfg.DBDSN,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.DBConnMaxLifeMins) * time.Minute,
	})
	if err != nil {
		log.Printf("database error: %v", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	deps := app.Deps{DB: dbConn, Collector: observability.NewCollector()}

	if cfg.RedisAddr != "" {
		client, err := workspace.NewRedisClient(ctx, workspace.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			log.Printf("redis error: %v", err)
			os.Exit(1)
		}
		defer client.Close()
		deps.Snapshots = workspace.NewRedisStore(client)
		log.Printf("workspace snapshots stored in redis at %s", cfg.RedisAddr)
	}

	deps.Workspaces = workspace.NewManager(workspace.ManagerConfig{
		TTL:     cfg.WorkspaceTTL,
		Store:   deps.Snapshots,
		OnCount: deps.Collector.SetWorkspaces,
	})
	go deps.Workspaces.Run(ctx, time.Minute)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           app.NewRouter(cfg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown error: %v", err)
		}
	}()

	log.Printf("examdesk web listening on %s", cfg.HTTPAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("server stopped: %v", err)
		os.Exit(1)
	}
}
