package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron"
	"github.com/go-redis/redis/v8"
	"github.com/ticketwatch/backend/internal/cache"
	"github.com/ticketwatch/backend/internal/config"
	"github.com/ticketwatch/backend/internal/database"
	"github.com/ticketwatch/backend/internal/database/migrations"
	"github.com/ticketwatch/backend/internal/jobs"
	"github.com/ticketwatch/backend/internal/routes"
	"github.com/ticketwatch/backend/internal/services/billing"
)

func main() {
	cfg := config.LoadConfig()

	db, err := database.InitDB(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	if err := migrations.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Redis only accelerates webhook dedup; running without it is fine
	var deduper *cache.EventDeduper
	if cfg.Redis.URL != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.URL,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if _, err := redisClient.Ping(ctx).Result(); err != nil {
			log.Printf("Redis unavailable, webhook dedup falls back to database: %v", err)
		} else {
			deduper = cache.NewEventDeduper(redisClient)
		}
		cancel()
	}

	billingClient := billing.NewClient(cfg.Stripe)

	scheduler := gocron.NewScheduler(time.UTC)
	sweep := jobs.NewSubscriptionSweepJob(db)
	if err := sweep.Schedule(scheduler); err != nil {
		log.Fatalf("Failed to schedule jobs: %v", err)
	}
	scheduler.StartAsync()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	routes.RegisterRoutes(router, db, cfg, billingClient, deduper)

	log.Printf("TicketWatch API server running on port %s", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
