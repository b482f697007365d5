package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"auto-gladiators-backend/cache"
	"auto-gladiators-backend/handlers"
	"auto-gladiators-backend/models"
	"auto-gladiators-backend/realtime"
	"auto-gladiators-backend/services"
	"auto-gladiators-backend/workers"
)

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("no .env file found, reading environment variables directly")
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal().Msg("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}

	err = db.AutoMigrate(
		&models.Player{},
		&models.PlayerStats{},
		&models.Tournament{},
		&models.TournamentParticipant{},
		&models.Match{},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}
	stateCache := cache.New(redisURL, log)
	defer stateCache.Close()

	manager := realtime.NewManager(stateCache, log)
	gormStore := services.NewGormStore(db)
	economy := services.NewEconomy()
	orchestrator := services.NewOrchestrator(gormStore, stateCache, manager, economy, log)

	app := fiber.New(fiber.Config{
		AppName:      "auto-gladiators-backend",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000"
	}
	origins := strings.Split(allowedOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(origins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH",
		AllowHeaders:     "Origin, Content-Type, Accept, X-Player-ID, X-Player-Username, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":          "ok",
			"redis_connected": stateCache.Connected(),
		})
	})

	tournamentService := services.NewTournamentService(db, stateCache, orchestrator, log)
	matchService := services.NewMatchService(db, stateCache, log)
	playerService := services.NewPlayerService(db, gormStore, economy, log)

	handlers.SetupRoutes(app, tournamentService, matchService, playerService, log)
	handlers.SetupWebSocketRoutes(app, handlers.NewWebSocketHandler(db, stateCache, manager, log))

	janitor := services.NewJanitor(db, stateCache, log)
	if err := janitor.Start(); err != nil {
		log.Fatal().Err(err).Msg("janitor start failed")
	}
	defer janitor.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go workers.NewSessionReaper(manager, log).Run(ctx)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}
	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()
	log.Info().Str("port", port).Msg("server started")

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := orchestrator.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("orchestrator shutdown incomplete")
	}
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
}
