package notification

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"

	"winery-tank-backend/internal/log"
	"winery-tank-backend/internal/model"
	"winery-tank-backend/internal/store"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Job announces that a tank became available.
type Job struct {
	DepositID int64
	Title     string
}

// jobsPerWorker sizes the queue so bursts of tanks emptying at once are
// absorbed while the workers are busy sending.
const jobsPerWorker = 32

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size    int
	jobs    chan Job
	store   store.Store
	webpush *webpush.Options
	sender  NotificationSender
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, s store.Store, webpushOptions *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Job, size*jobsPerWorker),
		store:   s,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Debug(ctx, "notification worker started", slog.Int("worker", id))
	for {
		select {
		case job := <-wp.jobs:
			wp.sendNotificationsForTank(ctx, job)
		case <-ctx.Done():
			log.Debug(ctx, "notification worker shutting down", slog.Int("worker", id))
			return
		}
	}
}

// Dispatch queues a job without blocking. When the queue is full, or the
// pool is shutting down, the job is dropped and false is returned.
func (wp *WorkerPool) Dispatch(ctx context.Context, job Job) bool {
	if ctx.Err() != nil {
		log.Warn(ctx, "notification pool is shutting down, dropping job", log.Deposit(job.DepositID))
		return false
	}
	select {
	case wp.jobs <- job:
		return true
	default:
		log.Warn(ctx, "notification queue is full, dropping job", log.Deposit(job.DepositID))
		return false
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan Job {
	return wp.jobs
}

// Message is the notification text for a tank that became available.
func Message(job Job) string {
	label := job.Title
	if label == "" {
		label = fmt.Sprintf("%d", job.DepositID)
	}
	return fmt.Sprintf("Tanque %s está disponível!", label)
}

func (wp *WorkerPool) sendNotificationsForTank(ctx context.Context, job Job) {
	subscriptions, err := wp.store.SubscriptionsForTank(ctx, job.DepositID)
	if err != nil {
		log.Error(ctx, "failed to fetch subscriptions", log.Deposit(job.DepositID), log.Err(err))
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	log.Info(ctx, "sending availability notifications",
		log.Deposit(job.DepositID), slog.Int("subscriptions", len(subscriptions)))

	payload := []byte(Message(job))
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Warn(ctx, "failed to send notification", slog.String("endpoint", sub.Endpoint), log.Err(err))
		return
	}
	defer resp.Body.Close()

	// Expired subscriptions are dropped.
	if resp.StatusCode == http.StatusGone {
		log.Info(ctx, "subscription expired, deleting", slog.String("endpoint", sub.Endpoint))
		if err := wp.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			log.Error(ctx, "failed to delete expired subscription", slog.String("endpoint", sub.Endpoint), log.Err(err))
		}
	}
}
