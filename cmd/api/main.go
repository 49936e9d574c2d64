package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/bancagt/backoffice/internal/account"
	"github.com/bancagt/backoffice/internal/config"
	"github.com/bancagt/backoffice/internal/favorites"
	"github.com/bancagt/backoffice/internal/fx"
	"github.com/bancagt/backoffice/internal/handler"
	"github.com/bancagt/backoffice/internal/ledger"
	"github.com/bancagt/backoffice/internal/logging"
	"github.com/bancagt/backoffice/internal/middleware"
	"github.com/bancagt/backoffice/internal/repository"
)

const jwtExpiry = 24 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("backoffice-api", cfg.LogLevel, cfg.AppEnv)

	db, err := connectDB(cfg)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	accountRepo := repository.NewAccountRepository(db)
	movementRepo := repository.NewMovementRepository(db)
	productRepo := repository.NewProductRepository(db)
	currencyRepo := repository.NewCurrencyRepository(db)
	favoriteRepo := repository.NewFavoriteRepository(db)
	userRepo := repository.NewUserRepository(db)

	accountSvc := account.NewService(accountRepo, userRepo)
	ledgerSvc := ledger.NewService(accountRepo, movementRepo, productRepo, db, cfg)
	favoriteSvc := favorites.NewService(favoriteRepo, accountRepo)

	rateProvider := fx.NewExchangeRateClient(cfg.RateAPIURL, cfg.RateAPIKey)
	fxSvc := fx.NewService(currencyRepo, rateProvider)

	ctx := context.Background()
	if err := fxSvc.SeedDefaults(ctx); err != nil {
		slog.Error("failed to seed currencies", "error", err)
		os.Exit(1)
	}

	var refresher *fx.Refresher
	if cfg.RateAPIURL != "" && cfg.RateAPIKey != "" {
		refresher = fx.NewRefresher(fxSvc, cfg.RateRefreshInterval())
		refresher.Start(ctx)
	} else {
		slog.Warn("rate provider not configured, serving stored rates only")
	}

	authHandler := handler.NewAuthHandler(userRepo, cfg.JWTSecret, jwtExpiry)
	userHandler := handler.NewUserHandler(userRepo)
	accountHandler := handler.NewAccountHandler(accountSvc, fxSvc)
	movementHandler := handler.NewMovementHandler(ledgerSvc, favoriteSvc, fxSvc)
	fxHandler := handler.NewFXHandler(fxSvc)
	favoriteHandler := handler.NewFavoriteHandler(favoriteSvc)
	healthHandler := handler.NewHealthHandler(db, fxSvc)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health/live", healthHandler.Liveness)
	mux.HandleFunc("GET /health/ready", healthHandler.Readiness)
	mux.HandleFunc("POST /auth/login", authHandler.Login)

	authed := func(h http.HandlerFunc) http.Handler {
		return middleware.Auth(cfg.JWTSecret)(h)
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return middleware.Auth(cfg.JWTSecret)(middleware.RequireAdmin(h))
	}

	mux.Handle("GET /users/me", authed(userHandler.Me))

	mux.Handle("POST /accounts", authed(accountHandler.Create))
	mux.Handle("GET /accounts", admin(accountHandler.List))
	mux.Handle("GET /accounts/me", authed(accountHandler.Mine))
	mux.Handle("GET /accounts/{number}", authed(accountHandler.GetByNumber))
	mux.Handle("PATCH /accounts/{id}", admin(accountHandler.Update))
	mux.Handle("DELETE /accounts/{id}", admin(accountHandler.Deactivate))
	mux.Handle("GET /accounts/{number}/movements", authed(movementHandler.History))

	mux.Handle("POST /transfers", authed(movementHandler.Transfer))
	mux.Handle("POST /deposits", authed(movementHandler.Deposit))
	mux.Handle("POST /credits", admin(movementHandler.Credit))
	mux.Handle("POST /purchases", authed(movementHandler.Purchase))

	mux.Handle("GET /movements", authed(movementHandler.List))
	mux.Handle("GET /movements/{id}", authed(movementHandler.GetByID))
	mux.Handle("POST /movements/{id}/reversal", admin(movementHandler.Reverse))

	mux.Handle("GET /currencies", authed(fxHandler.ListCurrencies))
	mux.Handle("GET /fx/convert", authed(fxHandler.Convert))
	mux.Handle("PUT /fx/rates/{code}", admin(fxHandler.OverrideRate))
	mux.Handle("POST /fx/rates/restore", admin(fxHandler.RestoreRates))

	mux.Handle("POST /favorites", authed(favoriteHandler.Add))
	mux.Handle("GET /favorites", authed(favoriteHandler.List))
	mux.Handle("DELETE /favorites/{id}", authed(favoriteHandler.Remove))

	root := middleware.Tracing(middleware.Logging(middleware.Recovery(mux)))

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           root,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	if refresher != nil {
		refresher.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func connectDB(cfg *config.Config) (*sql.DB, error) {
	pool := repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	}

	var err error
	for i := range 30 {
		var db *sql.DB
		db, err = repository.NewPostgresDB(context.Background(), cfg.DatabaseURL, pool)
		if err == nil {
			return db, nil
		}
		slog.Info("waiting for database", "attempt", i+1)
		time.Sleep(time.Second)
	}

	return nil, fmt.Errorf("connectDB: gave up after 30 attempts: %w", err)
}
