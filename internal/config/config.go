package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"product-import-service/internal/models"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis
	RedisURL string

	// Server
	Port        string
	Environment string

	// Collaborator services
	CatalogServiceURL  string
	ProductsServiceURL string

	// MediaBaseURL is the vendor CDN prefix MEDIA_ photo tokens resolve against.
	MediaBaseURL string

	// Upload limits
	MaxUploadSizeMB int
}

func Load() *Config {
	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	maxUploadSizeMB, _ := strconv.Atoi(getEnv("MAX_UPLOAD_SIZE_MB", "25"))

	return &Config{
		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "product_import_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		// Server
		Port:        getEnv("PORT", "8094"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Collaborator services
		CatalogServiceURL:  getEnv("CATALOG_SERVICE_URL", "http://catalog-service:8080"),
		ProductsServiceURL: getEnv("PRODUCTS_SERVICE_URL", "http://products-service:8080"),

		// Vendor media CDN
		MediaBaseURL: getEnv("MEDIA_BASE_URL", "https://media.vendor-exports.com/"),

		// Upload limits
		MaxUploadSizeMB: maxUploadSizeMB,
	}
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)

	var logLevel logger.LogLevel
	if cfg.Environment == "production" {
		logLevel = logger.Error
	} else {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("Running auto-migrations...")
	if err := db.AutoMigrate(&models.ImportRun{}); err != nil {
		return nil, fmt.Errorf("failed to run auto-migrations: %w", err)
	}
	log.Println("Auto-migrations completed successfully")

	return db, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
