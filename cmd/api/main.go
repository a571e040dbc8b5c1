package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"corebank/internal/account"
	"corebank/internal/auth"
	"corebank/internal/handler"
	"corebank/internal/middleware"
	"corebank/internal/repository/postgres"
	"corebank/internal/transaction"
	"corebank/internal/transfer"
	"corebank/pkg/config"
	"corebank/pkg/logger"
	"corebank/pkg/validator"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New("corebank-api")

	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Starting API", map[string]interface{}{
		"port": cfg.Server.Port,
	})

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatal("Failed to connect to database", map[string]interface{}{
			"error": err.Error(),
		})
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	log.Info("Database connected", nil)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.URL,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatal("Failed to connect to Redis", map[string]interface{}{
			"error": err.Error(),
		})
	}

	log.Info("Redis connected", nil)

	// Repositories and store
	accountRepo := postgres.NewAccountRepository(db)
	txRepo := postgres.NewTransactionRepository(db)
	userRepo := postgres.NewUserRepository(db)
	store := postgres.NewStore(db)
	health := postgres.NewHealth(db)

	// Services
	defaults := account.Defaults{
		BalanceLimit:    decimal.NewFromFloat(cfg.Ledger.DefaultBalanceLimit),
		DailyDebitLimit: decimal.NewFromFloat(cfg.Ledger.DefaultDailyDebitLimit),
	}
	accountService := account.NewService(accountRepo, defaults, log)
	transferService := transfer.NewService(accountService, store, health, log)
	transactionService := transaction.NewService(txRepo, accountRepo, log)
	authService := auth.NewService(userRepo, log, cfg.JWT.Secret, cfg.JWT.Expiration)

	// Handlers
	val := validator.New()
	accountHandler := handler.NewAccountHandler(accountService, val, log)
	transferHandler := handler.NewTransferHandler(transferService, val, log)
	transactionHandler := handler.NewTransactionHandler(transactionService, val, log)
	authHandler := handler.NewAuthHandler(authService, val, log)
	healthHandler := handler.NewHealthHandler(health)

	r := mux.NewRouter()

	r.Use(middleware.CORS)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Recovery)
	r.Use(middleware.CorrelationID)
	r.Use(middleware.NewLoggingMiddleware(log).Log)
	r.Use(middleware.BodyLimit(1 << 20))
	r.Use(middleware.NewRateLimiter(redisClient, "edge", cfg.Rate.EdgeLimit, cfg.Rate.Window).Limit)

	authMW := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	idemMW := middleware.NewIdempotencyMiddleware(redisClient, 24*time.Hour)

	r.HandleFunc("/health", healthHandler.Live).Methods("GET")
	r.HandleFunc("/ready", healthHandler.Ready).Methods("GET")

	r.HandleFunc("/api/v1/auth/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/api/v1/auth/login", authHandler.Login).Methods("POST")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(authMW.Authenticate)
	api.Use(middleware.NewRateLimiter(redisClient, "api", cfg.Rate.APILimit, cfg.Rate.Window).Limit)

	accounts := api.PathPrefix("/accounts").Subrouter()
	accounts.HandleFunc("", accountHandler.CreateAccount).Methods("POST")
	accounts.HandleFunc("", accountHandler.ListAccounts).Methods("GET")
	accounts.HandleFunc("/{identifier}", accountHandler.GetAccount).Methods("GET")
	accounts.HandleFunc("/{identifier}/limits", accountHandler.UpdateLimits).Methods("PATCH")
	accounts.HandleFunc("/{identifier}/status", accountHandler.UpdateStatus).Methods("PATCH")
	accounts.HandleFunc("/{identifier}", accountHandler.DeleteAccount).Methods("DELETE")
	accounts.HandleFunc("/{id}/transactions", transactionHandler.ListAccountTransactions).Methods("GET")

	transfers := api.PathPrefix("/transfers").Subrouter()
	transfers.Use(idemMW.Require)
	transfers.HandleFunc("", transferHandler.CreateTransfer).Methods("POST")

	txs := api.PathPrefix("/transactions").Subrouter()
	txs.HandleFunc("", transactionHandler.ListTransactions).Methods("GET")
	txs.HandleFunc("/manual", transactionHandler.CreateManualEntry).Methods("POST")
	txs.HandleFunc("/{id}", transactionHandler.GetTransaction).Methods("GET")
	txs.HandleFunc("/{id}", transactionHandler.UpdateTransaction).Methods("PATCH")

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("API started", map[string]interface{}{
			"address": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Forced to shutdown", map[string]interface{}{
			"error": err.Error(),
		})
	}

	log.Info("Stopped gracefully", nil)
}
