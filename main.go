package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/template/html/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"katalog/internal/handlers"
	"katalog/internal/models"
	"katalog/internal/repositories"
	"katalog/internal/services"
	"katalog/internal/storage"
)

func main() {
	// --- Configuration ---
	viper.SetDefault("APP_PORT", ":8080")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("DATABASE_URL", "")
	viper.SetDefault("STORAGE_DIR", "./storage/public")
	viper.AutomaticEnv() // Load environment variables

	log := newLogger(viper.GetString("APP_ENV"))

	// --- Repository ---
	// With no DATABASE_URL the server runs on the in-memory repository,
	// which is enough for local development without a database.
	var productRepo repositories.ProductRepository
	if dsn := viper.GetString("DATABASE_URL"); dsn != "" {
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		if err := db.AutoMigrate(&models.Product{}); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate database")
		}
		productRepo = repositories.NewGORMProductRepository(db)
	} else {
		log.Warn().Msg("DATABASE_URL not set, using in-memory product repository")
		productRepo = repositories.NewInMemoryProductRepository()
	}

	// --- Storage ---
	storageDir := viper.GetString("STORAGE_DIR")
	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", storageDir).Msg("failed to create storage directory")
	}
	blobs := storage.NewLocalStorage(afero.NewBasePathFs(afero.NewOsFs(), storageDir))

	// --- Service and Handlers ---
	productService := services.NewProductService(productRepo, blobs, log)
	apiHandler := handlers.NewProductAPIHandler(productService)
	webHandler := handlers.NewProductWebHandler(productService, session.New())

	// --- Fiber App ---
	engine := html.New("./views", ".html")
	app := fiber.New(fiber.Config{Views: engine})
	app.Use(logger.New()) // Request logger

	api := app.Group("/api")
	apiHandler.RegisterRoutes(api)
	webHandler.RegisterRoutes(app)

	// Stored images are public: the paths persisted on product rows resolve
	// under /storage.
	app.Static("/storage", storageDir)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// --- Start HTTP Server ---
	appPort := viper.GetString("APP_PORT")

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(appPort); err != nil {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()
	log.Info().Str("port", appPort).Msg("server started")

	// Wait for interrupt signal to gracefully shut down the server
	<-quit
	log.Info().Msg("shutting down server")

	if err := app.Shutdown(); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
	log.Info().Msg("server stopped")
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			Level(zerolog.DebugLevel).
			With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).
		Level(zerolog.InfoLevel).
		With().Timestamp().Logger()
}
