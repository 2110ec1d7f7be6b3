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

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"taskassign/config"
	"taskassign/routes"
	"taskassign/services"
	"taskassign/store"
	"taskassign/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[config] %v", err)
	}
	gin.SetMode(cfg.GinMode)

	db, err := config.ConnectDB(cfg)
	if err != nil {
		log.Fatalf("[DB] %v", err)
	}
	if err := config.Migrate(db); err != nil {
		log.Fatalf("[DB] migrate: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	denylist, err := newDenylist(ctx, cfg)
	if err != nil {
		log.Fatalf("[redis] %v", err)
	}

	gs := store.NewGormStore(db)
	issuer := utils.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	r := routes.SetupRouter(routes.Deps{
		Auth:  services.NewAuthService(gs, issuer, denylist),
		Tasks: services.NewTaskService(gs, gs),
		Users: gs,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           withCORS(cfg, r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("API listening on %s CORS_ORIGINS: %v", srv.Addr, cfg.CORSOrigins)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[http] %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[http] shutdown: %v", err)
	}
}

func withCORS(cfg config.Config, h http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler(h)
}

func newDenylist(ctx context.Context, cfg config.Config) (store.TokenDenylist, error) {
	if cfg.RedisURL == "" {
		log.Println("[redis] REDIS_URL not set, using in-memory token denylist")
		return store.NewMemoryDenylist(), nil
	}
	return store.NewRedisDenylist(ctx, cfg.RedisURL)
}
