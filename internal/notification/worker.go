package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/rs/zerolog"

	"rotisserie-backend/internal/board"
	"rotisserie-backend/internal/model"
	"rotisserie-backend/internal/store"
	"rotisserie-backend/internal/telemetry"
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

// ReadyAlert announces that the cook in a slot has reached its estimated time.
type ReadyAlert struct {
	MachineID    string `json:"machineId"`
	MachineName  string `json:"machineName"`
	Position     int    `json:"position"`
	OrderID      int64  `json:"orderId"`
	CustomerName string `json:"customerName"`
}

type payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	ReadyAlert
}

// Push results counted in metrics.
const (
	resultSent    = "sent"
	resultFailed  = "failed"
	resultExpired = "expired"
)

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size    int
	jobs    chan ReadyAlert
	subs    store.SubscriptionStore
	webpush *webpush.Options
	sender  NotificationSender
	metrics *telemetry.Metrics
	logger  zerolog.Logger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, subs store.SubscriptionStore, webpushOptions *webpush.Options, metrics *telemetry.Metrics, logger zerolog.Logger) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan ReadyAlert, size*board.SlotsPerMachine),
		subs:    subs,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		metrics: metrics,
		logger:  logger.With().Str("component", "notification").Logger(),
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.logger.Debug().Int("worker", id).Msg("worker started")
	for {
		select {
		case alert := <-wp.jobs:
			wp.sendReadyAlert(ctx, alert)
		case <-ctx.Done():
			wp.logger.Debug().Int("worker", id).Msg("worker shutting down")
			return
		}
	}
}

// Dispatch queues an alert. It gives up when ctx is done.
func (wp *WorkerPool) Dispatch(ctx context.Context, alert ReadyAlert) bool {
	select {
	case wp.jobs <- alert:
		return true
	case <-ctx.Done():
		return false
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan ReadyAlert {
	return wp.jobs
}

// Message renders the alert text shown on the subscriber's device.
func (a ReadyAlert) Message() string {
	label := a.MachineName
	if label == "" {
		label = a.MachineID
	}
	return fmt.Sprintf("Order #%d for %s is ready on %s, slot %d", a.OrderID, a.CustomerName, label, a.Position)
}

func (wp *WorkerPool) sendReadyAlert(ctx context.Context, alert ReadyAlert) {
	subscriptions, err := wp.subs.ListSubscriptionsForMachine(ctx, alert.MachineID)
	if err != nil {
		wp.logger.Error().Err(err).Str("machine_id", alert.MachineID).Msg("failed to fetch subscriptions")
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	body, err := json.Marshal(payload{Title: "Chicken ready", Body: alert.Message(), ReadyAlert: alert})
	if err != nil {
		wp.logger.Error().Err(err).Msg("failed to encode notification")
		return
	}

	wp.logger.Info().Str("machine_id", alert.MachineID).Int("position", alert.Position).Int("subscriptions", len(subscriptions)).Msg("sending ready notifications")
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, body)
	}
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, body []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(body, wpSub, wp.webpush)
	if err != nil {
		wp.logger.Warn().Err(err).Str("endpoint", sub.Endpoint).Msg("failed to send notification")
		wp.metrics.PushResult(resultFailed)
		return
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusGone:
		wp.metrics.PushResult(resultExpired)
		wp.logger.Info().Str("endpoint", sub.Endpoint).Msg("subscription expired, deleting")
		if err := wp.subs.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			wp.logger.Error().Err(err).Str("endpoint", sub.Endpoint).Msg("failed to delete expired subscription")
		}
	case resp.StatusCode >= 400:
		wp.metrics.PushResult(resultFailed)
		wp.logger.Warn().Int("status", resp.StatusCode).Str("endpoint", sub.Endpoint).Msg("push service rejected notification")
	default:
		wp.metrics.PushResult(resultSent)
	}
}
