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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"red-subcontinent/config"
	"red-subcontinent/database"
	"red-subcontinent/services"
)

const shutdownTimeout = 10 * time.Second

const (
	apiName        = "Red SubContinent API"
	apiVersion     = "0.1.0"
	apiDescription = "Historical conflict data for South Asia (1000 CE - Present)"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.LogDevelopment {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logging, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	db, err := database.Open(cfg, logging)
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}

	if cfg.AutoMigrate {
		logging.Info("Running database auto-migration...")
		if err := database.Migrate(db); err != nil {
			logging.Fatal("Auto-migration failed", zap.Error(err))
		}
	}

	svc := services.NewConflictService(db, logging, cfg.MaxPageSize)
	router := newRouter(cfg, db, svc, logging)

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := serve(ctx, srv, shutdownTimeout, logging); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
	logging.Info("Server stopped")
}

// serve läuft, bis ctx endet, und fährt den Server dann geordnet herunter.
func serve(ctx context.Context, srv *http.Server, timeout time.Duration, log *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// newRouter verdrahtet Middleware und alle Routen.
func newRouter(cfg *config.Config, db *gorm.DB, svc *services.ConflictService, log *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(log))
	router.Use(metricsMiddleware())
	router.Use(corsMiddleware(cfg.AllowedOrigins()))

	router.GET("/metrics", apiKeyAuthMiddleware(cfg), gin.WrapH(promhttp.Handler()))
	setupMetaRoutes(router, db, log)

	api := router.Group("/api")
	setupConflictRoutes(api, svc, cfg.DefaultPageSize, log)
	setupStatsRoutes(api, svc, log)
	setupActorRoutes(api, svc, log)
	return router
}

func setupMetaRoutes(router *gin.Engine, db *gorm.DB, log *zap.Logger) {
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":        apiName,
			"version":     apiVersion,
			"description": apiDescription,
			"endpoints":   "/api",
		})
	})

	// Für Container-Orchestrierung; prüft auch die Datenbank
	router.GET("/health", func(c *gin.Context) {
		if err := database.Ping(db); err != nil {
			log.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": "unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "database": "connected"})
	})

	router.GET("/api", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"endpoints": gin.H{
				"conflicts":          "/api/conflicts",
				"conflicts_geojson":  "/api/conflicts/geojson",
				"conflicts_timeline": "/api/conflicts/timeline",
				"conflict_by_id":     "/api/conflicts/{id}",
				"conflict_by_slug":   "/api/conflicts/by-slug/{slug}",
				"stats_summary":      "/api/stats/summary",
				"stats_by_region":    "/api/stats/by-region",
				"stats_by_decade":    "/api/stats/by-decade",
				"actors":             "/api/actors",
				"actors_search":      "/api/actors/search",
				"actors_by_role":     "/api/actors/by-role/{role}",
			},
		})
	})
}
