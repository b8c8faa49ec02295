package main

import (
	"encoding/json"
	stdlog "log"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/fundfolio/backend/src/config"
	"github.com/username/fundfolio/backend/src/database"
	"github.com/username/fundfolio/backend/src/handlers"
	"github.com/username/fundfolio/backend/src/logger"
	"github.com/username/fundfolio/backend/src/parsers"
	"github.com/username/fundfolio/backend/src/services"
	"golang.org/x/time/rate"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded",
				"method", r.Method,
				"path", r.URL.Path,
				"remoteAddr", r.RemoteAddr)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowedOrigins := map[string]bool{
			"http://localhost:3000": true,
		}

		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Requested-With, If-None-Match")
			w.Header().Set("Access-Control-Expose-Headers", "ETag")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == "OPTIONS" {
			logger.L.Debug("Handling OPTIONS preflight request", "path", r.URL.Path, "origin", origin)
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("Fundfolio backend server starting...")

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	logger.L.Info("Database initialized successfully.")

	logger.L.Info("Initializing report cache...")
	reportCache := cache.New(config.Cfg.ReportCacheTTL, 2*config.Cfg.ReportCacheTTL)
	logger.L.Info("Report cache initialized.")

	logger.L.Info("Initializing services and handlers...")
	casParser := parsers.NewCASParser()
	transactionStore := database.NewTransactionStore()
	schemeService := services.NewSchemeMetadataService()
	navService := services.NewNAVService(config.Cfg.NavSourceURL, config.Cfg.NavCacheTTL)
	fairValueService := services.NewFairValueService(config.Cfg.FairValueDataPath)
	irrSolver := services.NewIRRSolver()

	holdingService := services.NewHoldingService(
		casParser, transactionStore, schemeService,
		navService, fairValueService, irrSolver,
		reportCache,
	)

	uploadHandler := handlers.NewUploadHandler(holdingService)
	portfolioHandler := handlers.NewPortfolioHandler(holdingService)
	txHandler := handlers.NewTransactionHandler(holdingService)
	schemeHandler := handlers.NewSchemeHandler(schemeService, holdingService)

	logger.L.Info("Configuring routes...")
	rootMux := http.NewServeMux()
	apiRouter := http.NewServeMux()

	apiRouter.HandleFunc("POST /api/statements", uploadHandler.HandleUploadStatement)
	apiRouter.HandleFunc("POST /api/transactions", txHandler.HandleAddTransaction)
	apiRouter.HandleFunc("GET /api/holdings", portfolioHandler.HandleGetHoldings)
	apiRouter.HandleFunc("GET /api/holdings/gains", portfolioHandler.HandleGetGains)
	apiRouter.HandleFunc("GET /api/holdings/lots", portfolioHandler.HandleGetOpenLots)
	apiRouter.HandleFunc("GET /api/holdings/transactions", txHandler.HandleGetTransactions)
	apiRouter.HandleFunc("GET /api/schemes", schemeHandler.HandleGetSchemes)
	apiRouter.HandleFunc("PUT /api/schemes/{isin}", schemeHandler.HandleUpdateScheme)
	apiRouter.HandleFunc("GET /api/diagnostics", portfolioHandler.HandleGetDiagnostics)
	apiRouter.HandleFunc("POST /api/nav/refresh", portfolioHandler.HandleRefreshNAVs)

	rootMux.Handle("/api/", apiRouter)

	rootMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" && r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"message": "FUNDFOLIO Backend is running"})
		} else {
			if !strings.HasPrefix(r.URL.Path, "/api/") {
				logger.L.Warn("Root level path not found", "method", r.Method, "path", r.URL.Path)
				http.NotFound(w, r)
			}
		}
	})

	logger.L.Info("Applying global middleware...")
	finalHandler := enableCORS(rateLimitMiddleware(rootMux))

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      finalHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.L.Error("Failed to start server", "error", err)
		stdlog.Fatalf("Failed to start server: %v", err)
	} else if err == http.ErrServerClosed {
		logger.L.Info("Server stopped gracefully.")
	}
}
