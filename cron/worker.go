package cron

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"meetsync/config"
	"meetsync/models"
	"meetsync/services/negotiation"
	"meetsync/services/tasks"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// InitReminderWorker runs the asynq worker that fires meeting reminders.
func InitReminderWorker(logger *zap.Logger) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisReminderDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeMeetingReminder, handleReminderTask(logger))

	go func() {
		log.Println("[ReminderWorker] starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[ReminderWorker] attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[ReminderWorker] max retry attempts reached, exiting")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second)
			} else {
				break
			}
		}
	}()
}

func handleReminderTask(logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p models.ReminderPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			logger.Error("invalid reminder payload", zap.Error(err))
			return err
		}

		// Delivery channel (push, email) is the client application's side;
		// the engine's contract ends at firing on time.
		logger.Info("meeting reminder fired",
			zap.String("bookingID", p.BookingID),
			zap.String("userID", p.UserID),
			zap.String("title", p.Title),
			zap.Time("startsAt", p.Interval.Start))
		return nil
	}
}

// InitSessionSweeper periodically abandons idle sessions so their metrics
// and index entries do not outlive the Redis TTL.
func InitSessionSweeper(svc negotiation.NegotiationService, logger *zap.Logger) *cron.Cron {
	c := cron.New()
	_, err := c.AddFunc("*/5 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := svc.SweepIdleSessions(ctx); err != nil {
			logger.Warn("idle session sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		logger.Fatal("failed to schedule session sweeper", zap.Error(err))
	}
	c.Start()
	return c
}
