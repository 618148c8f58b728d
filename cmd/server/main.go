package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backend/internal/api/handlers"
	"backend/internal/config"
	"backend/internal/jobs"
	"backend/internal/repository"
	"backend/internal/service"
	"backend/internal/websocket"
	"backend/internal/worker"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	fiberws "github.com/gofiber/websocket/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize PostgreSQL with connection pooling
	db, err := initPostgres(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	log.Println("✓ Connected to PostgreSQL")

	// Initialize Redis
	redisClient, err := initRedis(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	log.Println("✓ Connected to Redis")

	// Initialize repositories
	scoreRepo := repository.NewScoreRepository(db)
	feedRepo := repository.NewFeedRepository(db)
	redisRepo := repository.NewRedisRepository(redisClient)

	// Run migrations
	if err := scoreRepo.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("✓ Database migrations completed")

	// Initialize scoring engine
	scoreService := service.NewScoreService(scoreRepo, redisRepo, cfg.Scoring.PollVotePoints, cfg.Scoring.CacheTTL)

	// Initialize cache-refresh worker pool
	workerCount := 4
	queueSize := 256
	workerPool := worker.NewWorkerPool(workerCount, queueSize, scoreService, redisRepo, cfg.Scoring.CacheTTL)
	workerPool.Start()

	// Initialize activity hooks and feed commands
	activityService := service.NewActivityService(scoreService, feedRepo, workerPool)
	feedService := service.NewFeedService(feedRepo, activityService)

	// Initialize WebSocket hub
	hub := websocket.NewHub(redisRepo)
	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	go hub.Run(hubCtx)

	// Initialize snapshot scheduler
	snapshotter := jobs.NewSnapshotter(scoreService, cfg.Scoring.SnapshotInterval)
	snapCtx, snapCancel := context.WithCancel(context.Background())
	defer snapCancel()
	if err := snapshotter.Start(snapCtx); err != nil {
		log.Printf("Failed to start snapshotter: %v", err)
	}

	// Initialize handlers
	leaderboardHandler := handlers.NewLeaderboardHandler(scoreService)
	feedHandler := handlers.NewFeedHandler(feedService)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Social Feed Scoring Engine",
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	// Routes
	api := app.Group("/api/v1")

	// Leaderboard routes
	api.Get("/leaderboard", leaderboardHandler.GetLeaderboard)
	api.Get("/leaderboard/history", leaderboardHandler.GetHistory)
	api.Post("/leaderboard/snapshot", leaderboardHandler.SaveSnapshot)
	api.Get("/users/:id/rank", leaderboardHandler.GetUserRank)
	api.Get("/users/:id/score", leaderboardHandler.GetUserScore)
	api.Get("/health", leaderboardHandler.HealthCheck)

	// Feed routes
	api.Post("/posts", feedHandler.CreatePost)
	api.Delete("/posts/:id", feedHandler.DeletePost)
	api.Post("/posts/:id/comments", feedHandler.CreateComment)
	api.Delete("/comments/:id", feedHandler.DeleteComment)
	api.Post("/posts/:id/reactions", feedHandler.AddReaction)
	api.Delete("/posts/:id/reactions", feedHandler.RemoveReaction)
	api.Post("/polls", feedHandler.CreatePoll)
	api.Post("/polls/:id/votes", feedHandler.CastVote)
	api.Delete("/polls/:id/votes", feedHandler.RetractVote)

	// WebSocket route with upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if fiberws.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", fiberws.New(func(c *fiberws.Conn) {
		websocket.ServeWS(hub, c)
	}))

	// Root route
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Social Feed Scoring Engine API",
			"version": "1.0.0",
			"endpoints": []string{
				"GET /api/v1/leaderboard",
				"GET /api/v1/leaderboard/history",
				"POST /api/v1/leaderboard/snapshot",
				"GET /api/v1/users/:id/rank",
				"GET /api/v1/users/:id/score",
				"GET /api/v1/health",
				"WS /ws (WebSocket)",
			},
			"websocket_clients": hub.GetClientCount(),
		})
	})

	// Graceful shutdown with worker pool flushing
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Println("Shutting down server...")

		// First, stop the snapshot scheduler
		snapshotter.Stop()

		// Second, stop accepting new HTTP requests
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := app.ShutdownWithContext(ctx); err != nil {
			log.Printf("Server forced to shutdown: %v", err)
		}

		// Third, drain the cache-refresh pool
		if err := workerPool.Shutdown(30 * time.Second); err != nil {
			log.Printf("Worker pool shutdown error: %v", err)
		}

		// Finally, close connections
		if err := scoreRepo.Close(); err != nil {
			log.Printf("Error closing PostgreSQL: %v", err)
		}
		if err := redisRepo.Close(); err != nil {
			log.Printf("Error closing Redis: %v", err)
		}

		log.Println("✓ Server shutdown complete")
	}()

	// Start server
	port := cfg.Server.Port
	log.Printf("Server starting on port %d...", port)
	if err := app.Listen(fmt.Sprintf(":%d", port)); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// initPostgres initializes PostgreSQL connection with connection pooling
func initPostgres(cfg *config.Config) (*gorm.DB, error) {
	dsn := cfg.GetDSN()

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(30)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetConnMaxIdleTime(2 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, err
	}

	return db, nil
}

// initRedis initializes Redis connection with connection pooling
func initRedis(cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     20,
		MinIdleConns: 5,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return client, nil
}

// customErrorHandler handles errors globally
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   "Request failed",
		"message": err.Error(),
	})
}
