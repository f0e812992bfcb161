package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/taraldstorebrand/mixtape-studio-sub000/internal/client"
	"github.com/taraldstorebrand/mixtape-studio-sub000/internal/config"
	"github.com/taraldstorebrand/mixtape-studio-sub000/internal/handler"
	"github.com/taraldstorebrand/mixtape-studio-sub000/internal/media"
	"github.com/taraldstorebrand/mixtape-studio-sub000/internal/middleware"
	"github.com/taraldstorebrand/mixtape-studio-sub000/internal/service"
	"github.com/taraldstorebrand/mixtape-studio-sub000/internal/worker"
	ws "github.com/taraldstorebrand/mixtape-studio-sub000/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Media directories must exist before the first download or assembly
	for _, dir := range []string{cfg.Media.AudioDir, cfg.Media.ImageDir, cfg.Media.MixtapeDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("Failed to create media dir %s: %v", dir, err)
		}
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	// Initialize Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Initialize external clients
	sunoClient := client.NewSunoClient(&cfg.Suno)
	if !sunoClient.IsConfigured() {
		log.Println("Warning: SUNO_API_KEY not set, music generation disabled")
	}
	groqClient := client.NewGroqClient(&cfg.Groq)

	var storageClient client.StorageClient
	if r2Client, err := client.NewR2Client(&cfg.R2); err != nil {
		log.Printf("R2 storage disabled: %v", err)
	} else {
		storageClient = r2Client
	}

	// Initialize media tooling
	prober := media.NewProber(cfg.Media.FFmpegBin)
	fetcher := media.NewFetcher()
	concatenator := media.NewConcatenator(cfg.Media.FFmpegBin, prober)

	// Initialize services
	libraryService := service.NewLibraryService(redisClient)
	lyricsService := service.NewLyricsService(groqClient)
	generationService := service.NewGenerationService(sunoClient, fetcher, hub, nil, &cfg.Suno, &cfg.Media, &cfg.Tracker)
	mixtapeService := service.NewMixtapeService(libraryService, asynqClient, hub, cfg.Media.AudioDir)

	// Initialize handlers
	generateHandler := handler.NewGenerateHandler(generationService, validate)
	mixtapeHandler := handler.NewMixtapeHandler(mixtapeService, validate, cfg.Media.MixtapeDir)
	lyricsHandler := handler.NewLyricsHandler(lyricsService, validate)
	songsHandler := handler.NewSongsHandler(libraryService, validate)
	genresHandler := handler.NewGenresHandler(libraryService, validate)
	playlistsHandler := handler.NewPlaylistsHandler(libraryService, validate)

	// Initialize middleware
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    10 * 1024 * 1024, // 10MB
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Downloaded artifacts and finished mixtapes
	app.Static("/mp3s", cfg.Media.AudioDir)
	app.Static("/covers", cfg.Media.ImageDir)
	app.Static("/mixtapes", cfg.Media.MixtapeDir)

	// API routes
	api := app.Group("/api")

	// Generation routes
	generate := api.Group("/generate")
	generate.Post("/", rateLimiter.GenerateLimit(cfg.RateLimit.GeneratePerHour), generateHandler.Start)
	generate.Get("/status/:jobId", generateHandler.Status)

	// Mixtape routes
	mixtape := api.Group("/mixtape", rateLimiter.MixtapeLimit(cfg.RateLimit.MixtapePerHour))
	mixtape.Post("/liked", mixtapeHandler.Liked)
	mixtape.Post("/custom", mixtapeHandler.Custom)
	mixtape.Get("/download/:taskId", mixtapeHandler.Download)

	// Lyrics routes
	lyrics := api.Group("/lyrics", rateLimiter.LyricsLimit(cfg.RateLimit.LyricsPerMin))
	lyrics.Post("/generate", lyricsHandler.Generate)

	// Song library routes
	songs := api.Group("/songs")
	songs.Get("/", songsHandler.List)
	songs.Post("/", songsHandler.Create)
	songs.Get("/:id", songsHandler.Get)
	songs.Put("/:id", songsHandler.Update)
	songs.Delete("/:id", songsHandler.Delete)

	// Genre preset routes
	genres := api.Group("/genres")
	genres.Get("/", genresHandler.List)
	genres.Post("/", genresHandler.Create)
	genres.Delete("/:id", genresHandler.Delete)

	// Playlist routes
	playlists := api.Group("/playlists")
	playlists.Get("/", playlistsHandler.List)
	playlists.Post("/", playlistsHandler.Create)
	playlists.Get("/:id", playlistsHandler.Get)
	playlists.Put("/:id", playlistsHandler.Update)
	playlists.Delete("/:id", playlistsHandler.Delete)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		hub.HandleConnection(c)
	}))

	// Start Asynq worker server
	go startWorkerServer(cfg, concatenator, hub, storageClient)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func startWorkerServer(cfg *config.Config, concatenator *media.Concatenator, hub *ws.Hub, storage client.StorageClient) {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 2,
			Queues: map[string]int{
				"mixtape": 1,
			},
		},
	)

	mixtapeWorker := worker.NewMixtapeWorker(concatenator, hub, storage, cfg.Media.MixtapeDir)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeMixtape, mixtapeWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
