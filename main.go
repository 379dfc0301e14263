// File: meetsync/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"meetsync/config"
	"meetsync/cron"
	"meetsync/database"
	"meetsync/database/repository"
	"meetsync/handlers"
	"meetsync/metrics"
	"meetsync/middleware"
	"meetsync/models"
	"meetsync/routes"
	"meetsync/services/calendar"
	"meetsync/services/extraction"
	"meetsync/services/negotiation"
	"meetsync/services/scheduling"
	"meetsync/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitRedis()

	loc := config.Location()
	appMetrics := metrics.NewMetrics()

	ctx := context.Background()
	calendarSvc, err := calendar.NewGoogleCalendarService(
		ctx,
		config.AppConfig.GoogleServiceAccountFile,
		config.AppConfig.CalendarID,
		loc,
		config.AppConfig.CalendarTimeout,
		logger,
	)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize calendar service: %v", err)
	}

	extractor, err := extraction.NewGeminiExtractor(config.AppConfig.GeminiAPIKey, loc)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize extractor: %v", err)
	}

	workDay := models.TimeRange{
		StartMin: config.AppConfig.WorkDayStartMin,
		EndMin:   config.AppConfig.WorkDayEndMin,
	}
	ranker := scheduling.NewSlotRanker(scheduling.RankerConfig{
		WorkDay: workDay,
		Buffers: scheduling.BufferPolicy{
			ByType: map[string]int{
				"call":      config.AppConfig.CallBufferMin,
				"in-person": config.AppConfig.InPersonBufferMin,
			},
			DefaultMin: config.AppConfig.DefaultBufferMin,
		},
		Weights: scheduling.DefaultScoreWeights(),
		TopK:    config.AppConfig.CandidateCount,
	}, logger)

	availability := &negotiation.CalendarAvailability{
		Calendar: calendarSvc,
		WorkDay:  workDay,
		Metrics:  appMetrics,
	}
	resolver := &scheduling.ConflictResolver{
		Ranker:        ranker,
		Source:        availability,
		HorizonDays:   config.AppConfig.SearchHorizonDays,
		MinAcceptable: 1,
		DayPenalty:    0.08,
		Logger:        logger,
	}

	reminderClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisReminderDB,
	})
	defer reminderClient.Close()

	negotiationSvc := &negotiation.DefaultNegotiationService{
		Store:          negotiation.NewRedisSessionStore(utils.GetSessionCacheClient(), config.AppConfig.SessionIdleTimeout),
		Extractor:      extractor,
		Calendar:       calendarSvc,
		Resolver:       resolver,
		Availability:   availability,
		Bookings:       repository.NewMongoBookingRepo(),
		Reminders:      reminderClient,
		Locks:          utils.GetLockCacheClient(),
		Metrics:        appMetrics,
		Logger:         logger,
		Threshold:      config.AppConfig.ConfidenceThreshold,
		IdleTimeout:    config.AppConfig.SessionIdleTimeout,
		MaxTurnRetries: config.AppConfig.MaxTurnRetries,
		Loc:            loc,
	}

	cron.InitReminderWorker(logger)
	sweeper := cron.InitSessionSweeper(negotiationSvc, logger)
	defer sweeper.Stop()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())

	assistantHandler := handlers.NewAssistantHandler(negotiationSvc, logger)
	routes.RegisterRoutes(router, assistantHandler)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
