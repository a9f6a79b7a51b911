package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"lifelog/internal/auth"
	"lifelog/internal/cardspec"
	"lifelog/internal/config"
	"lifelog/internal/handler"
	"lifelog/internal/httputil"
	"lifelog/internal/middleware"
	"lifelog/internal/remote"
	"lifelog/internal/remote/memory"
	pgstore "lifelog/internal/remote/postgres"
	"lifelog/internal/service"
	"lifelog/internal/state"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}

	var logOut io.Writer = os.Stdout
	logFile, err := config.SetupLogFile(filepath.Join(cfg.StateDir, "logs"), 10)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: file logging disabled: %v\n", err)
	} else {
		defer logFile.Close()
		logOut = io.MultiWriter(os.Stdout, logFile)
	}

	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"store_backend", cfg.StoreBackend,
	)

	ctx := context.Background()

	// Anonymous per-device identity names the session partition.
	device := auth.NewDeviceAuth(filepath.Join(cfg.StateDir, "identity"), logger)
	identity, err := device.Identity(ctx)
	if err != nil {
		log.Fatalf("Failed to resolve device identity: %v", err)
	}
	partition := cfg.AppID + "/" + identity

	cancelWatch := device.OnIdentityChange(func(id string) {
		// The store handle is partition-scoped; swapping partitions needs
		// a restart.
		logger.Warn("device identity changed, restart required", "identity", id)
	})
	defer cancelWatch()

	var store remote.Store
	switch cfg.StoreBackend {
	case "memory":
		store = memory.New()
		logger.Warn("using in-memory store, data will not survive restarts")
	default:
		if cfg.DatabaseURL == "" {
			log.Fatalf("DATABASE_URL is required for the postgres store")
		}
		pool, err := pgstore.CreateConnectionPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to create connection pool: %v", err)
		}
		defer pool.Close()

		table := pgstore.TableName(cfg.TablePrefix)
		if err := pgstore.EnsureSchema(ctx, pool, table); err != nil {
			log.Fatalf("Failed to ensure schema: %v", err)
		}
		store = pgstore.NewStore(&pgstore.StoreConfig{
			Pool:      pool,
			Table:     table,
			Partition: partition,
			Logger:    logger,
		})
		logger.Info("database connected", "table", table)
	}
	defer store.Close()

	secret := cfg.SessionSecret
	if secret == "" {
		if cfg.Environment == "prod" {
			log.Fatalf("SESSION_SECRET is required in production")
		}
		secret = randomSecret()
		logger.Warn("SESSION_SECRET not set, using ephemeral secret, tokens won't survive restarts")
	}
	tokens := auth.NewTokenIssuer(secret, cfg.SessionTTL)

	registry, err := cardspec.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to load card variant registry: %v", err)
	}

	view := state.NewView()
	reconciler := service.NewReconciler(store, view, logger)

	gate := service.NewSessionGate(store, logger)
	gate.OnTransition(func(from, to service.SessionState) {
		switch {
		case to == service.StateAuthenticated:
			if err := reconciler.Start(ctx); err != nil {
				logger.Error("reconciler start failed", "error", err)
			}
		case from == service.StateAuthenticated:
			// Session end: no snapshot applies past this point.
			reconciler.Stop()
		}
	})
	if err := gate.Start(ctx); err != nil {
		log.Fatalf("Failed to start session gate: %v", err)
	}

	tree := service.NewCategoryTree(store, view, logger)
	catalog := service.NewCardCatalog(store, view, registry, logger)
	filterEngine := service.NewFilterEngine(view)

	sessionHandler := handler.NewSessionHandler(gate, tokens, partition, logger)
	categoryHandler := handler.NewCategoryHandler(tree, logger)
	cardHandler := handler.NewCardHandler(catalog, filterEngine, logger)

	logger.Info("services initialized", "session_state", gate.State())

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", cardHandler.HealthCheck)

	// Session gate routes (token-exempt)
	mux.HandleFunc("GET /api/session", sessionHandler.GetState)
	mux.HandleFunc("POST /api/session/setup", sessionHandler.Setup)
	mux.HandleFunc("POST /api/session/unlock", sessionHandler.Unlock)
	mux.HandleFunc("POST /api/session/lock", sessionHandler.Lock)

	// Category routes
	mux.HandleFunc("GET /api/categories/tree", categoryHandler.GetTree)
	mux.HandleFunc("POST /api/categories", categoryHandler.Create)
	mux.HandleFunc("PATCH /api/categories/{id}", categoryHandler.Rename)
	mux.HandleFunc("DELETE /api/categories/{id}", categoryHandler.Delete)
	mux.HandleFunc("POST /api/categories/{id}/toggle", categoryHandler.Toggle)

	// Card routes
	mux.HandleFunc("GET /api/cards", cardHandler.List)
	mux.HandleFunc("GET /api/cards/{id}", cardHandler.Get)
	mux.HandleFunc("POST /api/cards", cardHandler.Create)
	mux.HandleFunc("PATCH /api/cards/{id}", cardHandler.Update)
	mux.HandleFunc("DELETE /api/cards/{id}", cardHandler.Delete)
	mux.HandleFunc("POST /api/cards/{id}/toggle", cardHandler.ToggleCompletion)
	mux.HandleFunc("POST /api/cards/{id}/todo/{index}/toggle", cardHandler.ToggleTodoItem)

	// Middleware chain: CORS -> token check -> Recovery -> gate check ->
	// routes. Recovery sits inside the token check so panic logs carry the
	// session partition.
	var root http.Handler = mux
	root = requireAuthenticated(gate)(root)
	root = middleware.Recovery(logger)(root)
	root = middleware.Session(tokens)(root)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	root = corsHandler.Handler(root)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// requireAuthenticated rejects data-plane requests while the gate is not
// open. A valid token from an earlier session does not bypass an explicit
// lock.
func requireAuthenticated(gate *service.SessionGate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/api/") &&
				!strings.HasPrefix(r.URL.Path, "/api/session") &&
				gate.State() != service.StateAuthenticated {
				httputil.RespondError(w, http.StatusUnauthorized, "session is locked")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		log.Fatalf("Failed to generate session secret: %v", err)
	}
	return hex.EncodeToString(buf)
}
