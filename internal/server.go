package internal

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"shop-admin-api/internal/auth"
	"shop-admin-api/internal/config"
	"shop-admin-api/internal/handlers"
	"shop-admin-api/internal/models"
	"shop-admin-api/pkg/importer"
)

//go:embed openapi
var openapiFS embed.FS

type Server struct {
	DB          *sql.DB
	Pool        *pgxpool.Pool
	Router      *chi.Mux
	JWTManager  *auth.JWTManager
	Revocations auth.RevocationStore
	Metrics     *Metrics
	Logger      *zap.Logger

	cfg   *config.Config
	redis *redis.Client
}

// Option customizes a Server built with New.
type Option func(*Server)

func WithLogger(l *zap.Logger) Option { return func(s *Server) { s.Logger = l } }

func WithRevocationStore(store auth.RevocationStore) Option {
	return func(s *Server) { s.Revocations = store }
}

// NewServer opens the database, the importer pool and, when configured,
// Redis, then builds the router.
func NewServer(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Server, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DB_DSN is required")
	}
	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create pgxpool: %w", err)
	}

	opts := []Option{WithLogger(log)}
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb, err = auth.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			pool.Close()
			db.Close()
			return nil, err
		}
		opts = append(opts, WithRevocationStore(auth.NewRedisRevocationStore(rdb)))
		log.Info("token revocation backed by redis", zap.String("addr", cfg.RedisAddr))
	} else {
		log.Warn("REDIS_ADDR not set, token revocation is process-local")
	}

	s := New(db, pool, cfg, opts...)
	s.redis = rdb
	return s, nil
}

// New wires the router around an already opened database.
func New(db *sql.DB, pool *pgxpool.Pool, cfg *config.Config, opts ...Option) *Server {
	s := &Server{
		DB:     db,
		Pool:   pool,
		Router: chi.NewRouter(),
		JWTManager: auth.NewJWTManager(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.JWTIssuer, cfg.JWTAudience,
			cfg.JWTExpiry, cfg.RefreshExpiry, cfg.MaxRefreshCount),
		Logger: zap.NewNop(),
		cfg:    cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Revocations == nil {
		s.Revocations = auth.NewMemoryRevocationStore()
	}

	s.Router.Use(middleware.RequestID)
	s.Router.Use(middleware.RealIP)
	s.Router.Use(requestLogger(s.Logger))
	s.Router.Use(middleware.Recoverer)

	if cfg.EnableMetrics {
		s.Metrics = NewMetrics()
		s.Router.Use(s.Metrics.Middleware())
		s.Router.Get("/metrics", s.Metrics.Handler().ServeHTTP)
	}

	s.Router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		if _, err := w.Write([]byte("ok")); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	s.Router.Get("/dbping", s.dbPing)

	// Session routes authenticate with the body, not a bearer token.
	s.Router.Post("/auth/login", s.loginUser)
	s.Router.Post("/auth/refresh", s.refreshSession)
	s.Router.Post("/auth/logout", s.logoutSession)
	s.mountDocs(s.Router)

	s.Router.Group(func(r chi.Router) {
		r.Use(auth.AuthMiddleware(s.JWTManager, s.Revocations))
		r.Use(s.withRLSSession)
		s.mountProtectedRoutes(r)
	})

	return s
}

// Close properly shuts down the server and cleans up resources
func (s *Server) Close(ctx context.Context) error {
	var errs []error
	if s.Pool != nil {
		s.Pool.Close()
	}
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	if s.DB != nil {
		errs = append(errs, s.DB.Close())
	}
	return errors.Join(errs...)
}

func (s *Server) dbPing(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.DB.PingContext(ctx); err != nil {
		http.Error(w, "db: "+err.Error(), http.StatusServiceUnavailable)
		return
	}
	if _, err := w.Write([]byte("db: ok")); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// mountDocs serves the OpenAPI spec and Swagger UI
func (s *Server) mountDocs(mux *chi.Mux) {
	if !s.cfg.EnableSwagger {
		return
	}

	mux.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		data, err := openapiFS.ReadFile("openapi/openapi.yaml")
		if err != nil {
			http.Error(w, "Failed to read OpenAPI spec", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/x-yaml")
		if _, err := w.Write(data); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})

	mux.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`<!doctype html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>Shop Admin API - Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui.css">
    <style>
        body { margin: 0; background: #f7f7f7; }
        .swagger-ui .topbar { background: #111827; border-bottom: 3px solid #10b981; }
        .swagger-ui .topbar .download-url-wrapper { display: none; }
    </style>
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui-bundle.js"></script>
    <script>
        window.onload = function() {
            window.ui = SwaggerUIBundle({
                url: '/openapi.yaml',
                dom_id: '#swagger-ui',
                deepLinking: true,
                presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.presets.standalone],
                plugins: [SwaggerUIBundle.plugins.DownloadUrl],
                layout: "StandaloneLayout",
                tryItOutEnabled: true
            });
        };
    </script>
</body>
</html>`))
	})
}

// mountProtectedRoutes mounts all protected routes that require authentication
func (s *Server) mountProtectedRoutes(r chi.Router) {
	managers := auth.MustRole(models.RoleAdmin, models.RoleOwner)

	// Shops - owners manage their account's shops
	r.Get("/shops", s.listShops)
	r.Get("/shops/{id}", s.getShop)
	r.Get("/shops/{id}/stats", s.getShopStats)
	r.With(managers).Post("/shops", s.createShop)
	r.With(managers).Put("/shops/{id}", s.updateShop)
	r.With(managers).Delete("/shops/{id}", s.deleteShop)

	// Shop records - staff may create and edit, managers delete
	r.Get("/customers", s.listCustomers)
	r.Get("/customers/{id}", s.getCustomer)
	r.Post("/customers", s.createCustomer)
	r.Put("/customers/{id}", s.updateCustomer)
	r.With(managers).Delete("/customers/{id}", s.deleteCustomer)

	r.Get("/vendors", s.listVendors)
	r.Get("/vendors/{id}", s.getVendor)
	r.Post("/vendors", s.createVendor)
	r.Put("/vendors/{id}", s.updateVendor)
	r.With(managers).Delete("/vendors/{id}", s.deleteVendor)

	r.Get("/uoms", s.listUOMs)
	r.Get("/uoms/{id}", s.getUOM)
	r.Post("/uoms", s.createUOM)
	r.Put("/uoms/{id}", s.updateUOM)
	r.With(managers).Delete("/uoms/{id}", s.deleteUOM)

	r.Get("/inventory", s.listInventory)
	r.Get("/inventory/{id}", s.getInventory)
	r.Post("/inventory", s.createInventory)
	r.Put("/inventory/{id}", s.updateInventory)
	r.With(managers).Delete("/inventory/{id}", s.deleteInventory)

	r.Get("/expenses", s.listExpenses)
	r.Get("/expenses/{id}", s.getExpense)
	r.Post("/expenses", s.createExpense)
	r.Put("/expenses/{id}", s.updateExpense)
	r.With(managers).Delete("/expenses/{id}", s.deleteExpense)

	r.Get("/transactions", s.listTransactions)
	r.Get("/transactions/{id}", s.getTransaction)
	r.Post("/transactions", s.createTransaction)
	r.Put("/transactions/{id}", s.updateTransaction)
	r.With(managers).Delete("/transactions/{id}", s.deleteTransaction)

	// Subscription plans - readable by all, platform admins write
	admins := auth.MustRole(models.RoleAdmin)
	r.Get("/subscription-plans", s.listPlans)
	r.Get("/subscription-plans/{id}", s.getPlan)
	r.With(admins).Post("/subscription-plans", s.createPlan)
	r.With(admins).Put("/subscription-plans/{id}", s.updatePlan)
	r.With(admins).Delete("/subscription-plans/{id}", s.deletePlan)

	// Inventory import from Excel
	var importDB importer.TxBeginner
	if s.Pool != nil {
		importDB = s.Pool
	}
	importsHandler := handlers.NewImportsHandler(importDB, s.cfg.ImportMappingPath, s.ownsShop, s.Metrics)
	r.With(managers).Post("/imports/inventory", importsHandler.UploadInventory)

	// User management - account owners and admins
	r.With(managers).Post("/users", s.createUser)
	r.With(managers).Get("/users", s.listUsers)
	r.With(managers).Get("/users/{id}", s.getUser)
	r.With(managers).Put("/users/{id}", s.updateUser)
	r.With(managers).Delete("/users/{id}", s.deleteUser)

	// Self-service routes
	r.Get("/auth/profile", s.getUserProfile)
	r.Put("/auth/profile", s.updateUserProfile)
	r.Put("/auth/change-password", s.changePassword)
}
