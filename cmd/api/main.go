package main

import (
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron"
	"github.com/go-redis/redis/v8"

	"github.com/getyourshare/backend/internal/config"
	"github.com/getyourshare/backend/internal/database"
	"github.com/getyourshare/backend/internal/handlers"
	"github.com/getyourshare/backend/internal/jobs"
	"github.com/getyourshare/backend/internal/middleware"
	"github.com/getyourshare/backend/internal/queue"
	"github.com/getyourshare/backend/internal/routes"
	"github.com/getyourshare/backend/internal/services/campaigns"
	"github.com/getyourshare/backend/internal/services/email"
	"github.com/getyourshare/backend/internal/services/escrow"
	"github.com/getyourshare/backend/internal/services/leads"
	"github.com/getyourshare/backend/internal/services/links"
	"github.com/getyourshare/backend/internal/services/notify"
	"github.com/getyourshare/backend/internal/services/tracking"
)

func main() {
	cfg := config.LoadConfig()

	db, err := database.InitDB(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Redis backs the redirect link cache; the engine runs without it.
	var cache *redis.Client
	if cfg.Redis.Enabled {
		cache = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.URL,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	jobQueue := queue.NewQueue(db)
	emailSvc := email.NewEmailService()
	jobs.RegisterNotificationJobHandlers(jobQueue, db, emailSvc)
	go jobQueue.ProcessJobs()

	var notifier notify.Notifier = jobs.NewQueueNotifier(jobQueue)

	linkSvc := links.NewLinkService(db, cfg.Tracking.BaseURL)
	codec := tracking.NewCookieCodec(cfg.Tracking.CookieSecret,
		time.Duration(cfg.Tracking.AttributionWindowDays)*24*time.Hour)
	trackingSvc := tracking.NewTrackingService(db, linkSvc, codec, cache)
	escrowSvc := escrow.NewEscrowServiceWithCooldown(db,
		time.Duration(cfg.Escrow.AlertCooldownHours)*time.Hour)
	campaignSvc := campaigns.NewCampaignService(db)
	leadSvc := leads.NewLeadService(db, escrowSvc, campaignSvc, trackingSvc, notifier)

	scheduler := gocron.NewScheduler(time.UTC)
	alertJob := jobs.NewDepositAlertJob(db, escrowSvc, notifier)
	if err := jobs.ScheduleDepositAlerts(scheduler, alertJob); err != nil {
		log.Fatalf("Failed to schedule deposit alert sweep: %v", err)
	}
	scheduler.StartAsync()

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	routes.RegisterRoutes(
		router,
		handlers.NewTrackingHandler(trackingSvc),
		handlers.NewLinkHandler(linkSvc, trackingSvc),
		handlers.NewLeadHandler(leadSvc, trackingSvc),
		handlers.NewDepositHandler(escrowSvc),
		handlers.NewCampaignHandler(campaignSvc),
		middleware.NewRateLimiter(20, 40),
	)

	log.Printf("GetYourShare tracking API running on port %s", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
