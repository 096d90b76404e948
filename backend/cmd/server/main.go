package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"bubbles-backend/backend/internal/adapter"
	"bubbles-backend/backend/internal/fusion"
	"bubbles-backend/backend/internal/graph"
	"bubbles-backend/backend/internal/lifecycle"
	"bubbles-backend/backend/internal/memory"
	"bubbles-backend/backend/internal/realtime"
	"bubbles-backend/backend/internal/session"
	"bubbles-backend/backend/internal/store"
	"bubbles-backend/backend/pkg/config"
	"bubbles-backend/backend/pkg/logger"
)

func main() {
	// Initialize logger
	if err := logger.Init(os.Getenv("ENV")); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting Bubbles backend...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Durable store; runs degraded without credentials
	db := store.NewSupabase(cfg.SupabaseURL, cfg.SupabaseKey)

	// Initialize dependencies
	embedder := adapter.NewEmbeddingClient(cfg.EmbeddingBaseURL, cfg.EmbeddingAPIKey, cfg.EmbeddingModel, cfg.EmbeddingDim)
	brain := adapter.NewBrain(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.WingmanModel, cfg.ConsultantModel)

	graphs := graph.NewStore(db)
	memories := memory.NewIndex(db, embedder)
	registry := session.NewRegistry()
	ledger := session.NewLedger(db, registry)
	fus := fusion.New(graphs, memories, ledger)
	manager := lifecycle.NewManager(graphs, memories, ledger, registry, fus, brain)
	gateway := realtime.NewGateway(manager)

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(ginLogger(log))
	router.Use(gin.Recovery())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Status and health
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":           "Bubbles Brain Online",
			"consultant_model": cfg.ConsultantModel,
			"wingman_model":    cfg.WingmanModel,
		})
	})
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "storage": db.Available()})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Realtime wingman session
	router.GET("/ws", gateway.Handle)

	// API routes
	api := router.Group("/api")
	{
		// One-shot wingman advice over a partner transcript
		api.POST("/wingman", func(c *gin.Context) {
			var req struct {
				UserID     string `json:"user_id" binding:"required"`
				Transcript string `json:"transcript" binding:"required"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			advice := manager.Wingman(c.Request.Context(), req.UserID, req.Transcript)
			c.JSON(http.StatusOK, gin.H{"advice": advice})
		})

		// Detailed consultant answer
		api.POST("/consultant", func(c *gin.Context) {
			var req struct {
				UserID   string `json:"user_id" binding:"required"`
				Question string `json:"question" binding:"required"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			answer := manager.Consult(c.Request.Context(), req.UserID, req.Question)
			c.JSON(http.StatusOK, gin.H{"answer": answer})
		})
	}

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started",
		zap.String("port", cfg.Port),
		zap.String("wingman_model", cfg.WingmanModel),
		zap.String("consultant_model", cfg.ConsultantModel),
	)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Persist every live graph before the process exits
	manager.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}

// ginLogger is a custom logger middleware for Gin
func ginLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		log.Info("HTTP Request",
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		)
	}
}
