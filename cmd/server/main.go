package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/ruralpay/deposits/docs"
	"github.com/ruralpay/deposits/internal/audit"
	"github.com/ruralpay/deposits/internal/config"
	"github.com/ruralpay/deposits/internal/database"
	"github.com/ruralpay/deposits/internal/handlers"
	mW "github.com/ruralpay/deposits/internal/middleware"
	"github.com/ruralpay/deposits/internal/observability"
	"github.com/ruralpay/deposits/internal/services"
	"github.com/ruralpay/deposits/internal/store"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"
)

// @title Deposits Ledger API
// @version 1.0
// @description Customers, deposit products, accounts and the balance-posting ledger
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

func main() {
	// Initialize config
	viper.SetConfigFile(".env") // explicitly point to .env file
	viper.AutomaticEnv()        // allow environment variables to override .env

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")
	viper.BindEnv("database.max_open_conns", "DATABASE_MAX_OPEN_CONNS")
	viper.BindEnv("database.max_idle_conns", "DATABASE_MAX_IDLE_CONNS")
	viper.BindEnv("database.conn_max_lifetime", "DATABASE_CONN_MAX_LIFETIME")
	viper.BindEnv("database.connect_retries", "DATABASE_CONNECT_RETRIES")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("server.port", "PORT")
	viper.BindEnv("server.allowed_origins", "ALLOWED_ORIGINS")
	viper.BindEnv("server.rate_limit", "RATE_LIMIT_PER_MINUTE")
	viper.BindEnv("server.ssl_redirect", "SSL_REDIRECT")
	viper.BindEnv("store.driver", "STORE_DRIVER")

	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.allowed_origins", "https://*,http://*")
	viper.SetDefault("server.rate_limit", 300)
	viper.SetDefault("server.ssl_redirect", false)
	viper.SetDefault("store.driver", "postgres")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	// Initialize Swagger docs
	docs.SwaggerInfo.Title = "Deposits Ledger API"
	docs.SwaggerInfo.Description = "Customers, deposit products, accounts and the balance-posting ledger"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Host = "localhost:" + viper.GetString("server.port")
	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	cfg := config.LoadLedgerConfig()
	metrics := observability.NewMetrics()

	// Initialize storage
	var st store.Store
	var db *sql.DB
	switch viper.GetString("store.driver") {
	case "memory":
		log.Println("[DATABASE] Using in-memory store, data will not survive a restart")
		st = store.NewMemoryStore()
	default:
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		db = database.InitDatabase(ctx)
		if err := database.Migrate(ctx, db); err != nil {
			cancel()
			log.Fatalf("Failed to migrate database: %v", err)
		}
		cancel()
		defer db.Close()
		metrics.WatchDB(db, viper.GetString("database.name"))
		st = store.NewPostgresStore(db)
	}

	redisClient := database.InitRedis(context.Background())
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Initialize services
	balanceCache := services.NewBalanceCache(redisClient, cfg.BalanceCacheTTL, metrics)
	customerService := services.NewCustomerService(st)
	productService := services.NewProductService(st)
	accountService := services.NewAccountService(st, cfg)
	ledgerService := services.NewLedgerService(st, balanceCache, audit.NewAuditLogger(), metrics, cfg)

	customerHandler := handlers.NewCustomerHandler(customerService, cfg)
	productHandler := handlers.NewProductHandler(productService, cfg)
	accountHandler := handlers.NewAccountHandler(accountService, ledgerService, cfg)
	transactionHandler := handlers.NewTransactionHandler(ledgerService, cfg)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mW.SecurityHeaders(viper.GetBool("server.ssl_redirect")))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(metrics.Middleware)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   strings.Split(viper.GetString("server.allowed_origins"), ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "healthy", "store": viper.GetString("store.driver")}
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				status["status"] = "degraded"
				status["database"] = err.Error()
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(status)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(status)
	})

	r.Handle("/metrics", metrics.Handler())

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.Limit(
			viper.GetInt("server.rate_limit"),
			time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
		))

		customerHandler.Register(r)
		productHandler.Register(r)
		accountHandler.Register(r)
		transactionHandler.Register(r)
	})

	port := viper.GetString("server.port")

	// Start server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s (serialized postings: %t)", port, cfg.SerializePostings)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}
