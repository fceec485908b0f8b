package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"product-import-service/internal/clients"
	"product-import-service/internal/config"
	"product-import-service/internal/handlers"
	"product-import-service/internal/importer"
	"product-import-service/internal/middleware"
	"product-import-service/internal/repository"
)

// @title Product Import API
// @version 1.0.0
// @description Bulk product import service: spreadsheet upload, column mapping, validation, correction and batch upload with multi-tenant support
// @termsOfService http://swagger.io/terms/

// @contact.name Product Import API Support
// @contact.url http://www.example.com/support
// @contact.email support@example.com

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8094
// @BasePath /api/v1

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Environment == "production" {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	// Initialize database for the import run audit trail. The service still
	// works without it: sessions are in-memory, only run history is lost.
	var runsRepo *repository.ImportRunsRepository
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Printf("WARNING: Failed to connect to database: %v (import run history disabled)", err)
	}

	// Initialize Redis client
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Printf("WARNING: Failed to parse Redis URL: %v (continuing without Redis)", err)
		redisOpts = &redis.Options{
			Addr: "localhost:6379",
		}
	}
	redisClient := redis.NewClient(redisOpts)

	// Test Redis connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("WARNING: Failed to connect to Redis: %v (caching will be disabled)", err)
		redisClient = nil
	} else {
		log.Println("✓ Redis connected successfully")
	}
	cancel()

	if db != nil {
		runsRepo = repository.NewImportRunsRepository(db, redisClient)
		log.Println("✓ Import runs repository initialized")
	}

	// Initialize clients
	catalogClient := clients.NewCatalogClient(redisClient)
	productsClient := clients.NewProductsClient()

	// Initialize session store and handlers
	sessionStore := importer.NewSessionStore()
	importHandler := handlers.NewImportHandler(sessionStore, catalogClient, productsClient, runsRepo, cfg.MediaBaseURL, cfg.MaxUploadSizeMB, logger)

	// Initialize Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	// Add CORS middleware
	router.Use(middleware.CORS())

	// Health check endpoints (no auth required)
	router.GET("/health", handlers.HealthCheck)
	router.GET("/ready", handlers.HealthCheck)

	// Protected API routes
	api := router.Group("/api/v1")
	api.Use(middleware.TenantMiddleware())

	imports := api.Group("/imports")
	{
		imports.GET("/template", importHandler.GetImportTemplate)
		imports.GET("/runs", importHandler.ListRuns)

		imports.POST("", importHandler.CreateImport)
		imports.GET("/:id", importHandler.GetImport)
		imports.DELETE("/:id", importHandler.DeleteImport)
		imports.PUT("/:id/mapping", importHandler.UpdateMapping)
		imports.POST("/:id/preview", importHandler.Preview)
		imports.GET("/:id/errors", importHandler.GetErrors)
		imports.GET("/:id/suggestion", importHandler.GetSuggestion)
		imports.PUT("/:id/corrections", importHandler.StageCorrections)
		imports.POST("/:id/corrections/apply", importHandler.ApplyCorrections)
		imports.POST("/:id/upload", importHandler.Upload)
		imports.GET("/:id/progress", importHandler.GetProgress)
		imports.GET("/:id/report", importHandler.GetReport)
		imports.GET("/:id/media/:mediaId", importHandler.GetMedia)
	}

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Start server
	port := cfg.Port

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Product import service starting on port %s", port)
		if err := router.Run(":" + port); err != nil {
			log.Fatal("Failed to start server:", err)
		}
	}()

	// Wait for interrupt signal
	<-quit
	log.Println("Shutting down product-import-service...")
	log.Println("Product import service stopped")
}
