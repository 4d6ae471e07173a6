package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/polimap/vote-latent/internal/analysis"
	"github.com/polimap/vote-latent/internal/cache"
	"github.com/polimap/vote-latent/internal/compute"
	"github.com/polimap/vote-latent/internal/database"
	"github.com/polimap/vote-latent/internal/errors"
	"github.com/polimap/vote-latent/internal/middleware"
	"github.com/polimap/vote-latent/internal/monitoring"
	"github.com/polimap/vote-latent/internal/ratelimit"
	"github.com/polimap/vote-latent/internal/security"
	"github.com/polimap/vote-latent/internal/types"
)

// ingestRequest is the bulk ingestion payload. Bills must arrive before
// the votes that reference them, so bills are applied first.
type ingestRequest struct {
	Bills []types.BillInfo `json:"bills"`
	Votes []struct {
		BillID       int                 `json:"billId"`
		MemberScores []types.MemberScore `json:"memberScores"`
	} `json:"votes"`
	Assignments []struct {
		ClusterID int `json:"clusterId"`
		BillID    int `json:"billId"`
		Label     int `json:"label"`
	} `json:"assignments"`
}

func main() {
	// Structured logging setup
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Configuration from environment with defaults
	dataDir := getEnvOrDefault("DATA_DIR", "./data")
	port := getEnvOrDefault("PORT", "8080")
	redisURL := os.Getenv("REDIS_URL")
	redisPassword := os.Getenv("REDIS_PASSWORD")
	redisDB := getEnvIntOrDefault("REDIS_DB", 0)
	nComponents := getEnvIntOrDefault("N_COMPONENTS", analysis.DefaultOptions().NComponents)
	topN := getEnvIntOrDefault("TOP_BILLS", analysis.DefaultTopN)
	workers := getEnvIntOrDefault("COMPUTE_WORKERS", compute.DefaultWorkers)
	cacheTTL := getEnvIntOrDefault("CACHE_TTL_MINUTES", 15)

	// Initialize database and repository
	db, err := database.NewDB(dataDir)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	repo := database.NewRepository(db)

	// Initialize monitoring system
	appMetrics := monitoring.NewMetrics()
	appLogger := monitoring.NewLogger()

	// Initialize compute service
	opts := analysis.DefaultOptions()
	opts.NComponents = nComponents
	opts.TopN = topN
	computeService := compute.NewService(repo, opts, workers, appMetrics, appLogger)

	// Initialize rate limiting (Redis with in-memory fallback)
	redisClient, err := ratelimit.NewRedisClient(redisURL, redisPassword, redisDB)
	if err != nil {
		slog.Warn("Redis unavailable, continuing with in-memory rate limiting", "error", err)
	}
	defer redisClient.Close()

	rateLimiter := ratelimit.NewRateLimiter(redisClient, ratelimit.DefaultConfig(), appMetrics)

	// Response cache for vector lookups
	appCache := cache.NewCache(time.Duration(cacheTTL) * time.Minute)

	r := setupRouter(db, repo, computeService, rateLimiter, appCache, appMetrics, appLogger)

	// Start server with graceful shutdown
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		slog.Info("Starting server", "port", port, "workers", workers, "n_components", nComponents)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server exited")
}

func setupRouter(db *database.DB, repo *database.Repository, computeService *compute.Service, rateLimiter *ratelimit.RateLimiter, appCache *cache.Cache, appMetrics *monitoring.Metrics, appLogger *monitoring.Logger) *gin.Engine {
	r := gin.New()

	// Add monitoring middleware first (to capture all requests)
	r.Use(monitoring.MonitoringMiddleware(appMetrics, appLogger))

	// Add error handling middleware
	r.Use(errors.ErrorHandler())
	r.Use(errors.RecoveryHandler())

	// CORS for browser clients
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	r.Use(cors.New(corsConfig))

	// Security headers
	r.Use(security.HeadersMiddleware())

	// Rate limiting
	r.Use(rateLimiter.IPRateLimitMiddleware())
	r.Use(rateLimiter.ComputeRateLimitMiddleware())

	// Gzip compression for the large vector documents. Registered ahead
	// of the cache so cached entries hold plaintext and cache hits are
	// still compressed on the way out.
	compressionMiddleware := middleware.NewCompressionMiddleware(middleware.DefaultCompressionConfig())
	r.Use(compressionMiddleware.Handler())

	// Response cache for vector lookups
	r.Use(appCache.Middleware(appMetrics, appLogger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
			"version":   "1.0.0",
			"metrics":   appMetrics.GetStats(),
		})
	})

	// Metrics endpoint
	r.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, appMetrics.GetStats())
	})

	// Cache stats endpoint
	r.GET("/cache/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, appCache.Stats())
	})

	// Database pool stats endpoint
	r.GET("/pools/database", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"pool":  "database",
			"stats": db.GetPoolStats(),
		})
	})

	// Compression stats endpoint
	r.GET("/pools/compression", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"pool":  "compression",
			"stats": compressionMiddleware.GetStats(),
		})
	})

	// Rate limit introspection and reset
	r.GET("/ratelimit/status", rateLimiter.HandleRateLimitStatus())
	r.POST("/ratelimit/reset", func(c *gin.Context) {
		ctx := c.Request.Context()

		if ip := c.Query("ip"); ip != "" {
			if err := rateLimiter.InvalidateIP(ctx, ip); err != nil {
				c.Error(errors.NewInternalError("failed to reset rate limits", err))
				return
			}
			c.JSON(http.StatusOK, gin.H{"message": "rate limits reset", "ip": ip})
			return
		}

		if err := rateLimiter.InvalidateAll(ctx); err != nil {
			c.Error(errors.NewInternalError("failed to reset rate limits", err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "all rate limits reset"})
	})

	// Bulk ingestion of bills, vote scores, and cluster assignments
	r.POST("/api/ingest", func(c *gin.Context) {
		var req ingestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(errors.NewValidationError("invalid ingest payload", err.Error()))
			return
		}

		for _, bill := range req.Bills {
			if bill.ID == 0 {
				c.Error(errors.NewValidationError("bill is missing an id"))
				return
			}
			if err := repo.UpsertBill(bill); err != nil {
				c.Error(err)
				return
			}
		}

		votes := 0
		for _, vote := range req.Votes {
			for _, ms := range vote.MemberScores {
				if err := repo.InsertVote(vote.BillID, ms); err != nil {
					c.Error(err)
					return
				}
				votes++
			}
		}

		for _, a := range req.Assignments {
			if err := repo.UpsertAssignment(a.ClusterID, a.BillID, a.Label); err != nil {
				c.Error(err)
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"bills":       len(req.Bills),
			"votes":       votes,
			"assignments": len(req.Assignments),
		})
	})

	// Run the latent-vector pipeline for every label of a clustering run
	r.POST("/api/compute/:clusterID", func(c *gin.Context) {
		clusterID, err := strconv.Atoi(c.Param("clusterID"))
		if err != nil {
			c.Error(errors.NewValidationError("cluster id must be an integer", c.Param("clusterID")))
			return
		}

		var req types.ComputeRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.Error(errors.NewValidationError("invalid compute request", err.Error()))
				return
			}
		}

		run, err := computeService.Run(c.Request.Context(), clusterID, req.NComponents)
		if err != nil {
			c.Error(err)
			return
		}

		// Cached vector responses for this run are now stale.
		appCache.InvalidatePrefix("/api/vectors/" + strconv.Itoa(clusterID))

		c.JSON(http.StatusOK, run)
	})

	// Latest results for every label of a clustering run
	r.GET("/api/vectors/:clusterID", func(c *gin.Context) {
		clusterID, err := strconv.Atoi(c.Param("clusterID"))
		if err != nil {
			c.Error(errors.NewValidationError("cluster id must be an integer", c.Param("clusterID")))
			return
		}

		clusters, nComponents, err := repo.GetClusterResults(clusterID)
		if err != nil {
			c.Error(err)
			return
		}

		c.JSON(http.StatusOK, compute.RunResult{
			ClusterID:   clusterID,
			NComponents: nComponents,
			Clusters:    clusters,
		})
	})

	// Latest result for one label of a clustering run
	r.GET("/api/vectors/:clusterID/:label", func(c *gin.Context) {
		clusterID, err := strconv.Atoi(c.Param("clusterID"))
		if err != nil {
			c.Error(errors.NewValidationError("cluster id must be an integer", c.Param("clusterID")))
			return
		}
		label, err := strconv.Atoi(c.Param("label"))
		if err != nil {
			c.Error(errors.NewValidationError("cluster label must be an integer", c.Param("label")))
			return
		}

		result, err := repo.GetClusterResult(clusterID, label)
		if err != nil {
			c.Error(err)
			return
		}

		c.JSON(http.StatusOK, result)
	})

	// Mount pprof endpoints when profiling is enabled
	if os.Getenv("ENABLE_PPROF") == "true" {
		r.GET("/debug/pprof/*filepath", gin.WrapF(pprof.Index))
		r.GET("/debug/pprof/cmdline", gin.WrapF(pprof.Cmdline))
		r.GET("/debug/pprof/profile", gin.WrapF(pprof.Profile))
		r.GET("/debug/pprof/symbol", gin.WrapF(pprof.Symbol))
		r.GET("/debug/pprof/trace", gin.WrapF(pprof.Trace))
	}

	return r
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("Invalid integer in environment, using default", "key", key, "value", value)
		return defaultValue
	}
	return parsed
}
