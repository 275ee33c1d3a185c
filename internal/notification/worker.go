package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"repair-tracker-backend/internal/metrics"
	"repair-tracker-backend/internal/model"
	"repair-tracker-backend/internal/repair"
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

// SubscriptionStore is the part of the store the pool needs.
type SubscriptionStore interface {
	ListSubscriptions(ctx context.Context, customerID string) ([]model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
}

// Kind tells the client what a message is about.
type Kind string

const (
	KindStatus  Kind = "status"
	KindOverdue Kind = "overdue"
)

// Message is one notification addressed to every subscription of a customer.
type Message struct {
	CustomerID string `json:"-"`
	DeviceID   string `json:"device_id"`
	Kind       Kind   `json:"kind"`
	Title      string `json:"title"`
	Body       string `json:"body"`
}

// StatusMessage announces that a device reached status.
func StatusMessage(d repair.Device, status repair.Status) Message {
	return Message{
		CustomerID: d.CustomerID,
		DeviceID:   d.ID,
		Kind:       KindStatus,
		Title:      "Repair update",
		Body:       fmt.Sprintf("Your %s is now %s.", deviceName(d), status.Label()),
	}
}

// OverdueMessage announces that a device missed its expected return date.
func OverdueMessage(d repair.Device) Message {
	body := fmt.Sprintf("Your %s is taking longer than expected.", deviceName(d))
	if d.ExpectedReturnDate != nil {
		body = fmt.Sprintf("Your %s was expected back on %s and is running late.",
			deviceName(d), d.ExpectedReturnDate.Format(time.DateOnly))
	}
	return Message{
		CustomerID: d.CustomerID,
		DeviceID:   d.ID,
		Kind:       KindOverdue,
		Title:      "Repair delayed",
		Body:       body,
	}
}

func deviceName(d repair.Device) string {
	switch {
	case d.Brand != "" && d.Model != "":
		return d.Brand + " " + d.Model
	case d.Model != "":
		return d.Model
	case d.Brand != "":
		return d.Brand
	default:
		return "device"
	}
}

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size    int
	jobs    chan Message
	store   SubscriptionStore
	webpush *webpush.Options
	sender  NotificationSender
	log     *slog.Logger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size, queueSize int, store SubscriptionStore, webpushOptions *webpush.Options, logger *slog.Logger) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	if queueSize <= 0 {
		queueSize = size
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Message, queueSize),
		store:   store,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		log:     logger.With("component", "notification"),
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.log.Debug("worker started", "worker", id)
	for {
		select {
		case msg := <-wp.jobs:
			wp.sendToCustomer(ctx, msg)
		case <-ctx.Done():
			wp.log.Debug("worker shutting down", "worker", id)
			return
		}
	}
}

// Dispatch queues msg. It never blocks: when the queue is full the message is
// dropped and false is returned.
func (wp *WorkerPool) Dispatch(msg Message) bool {
	if msg.CustomerID == "" {
		return false
	}
	select {
	case wp.jobs <- msg:
		return true
	default:
		metrics.NotificationsSent.WithLabelValues("dropped").Inc()
		wp.log.Warn("notification queue full, dropping message", "device_id", msg.DeviceID, "kind", msg.Kind)
		return false
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan Message {
	return wp.jobs
}

func (wp *WorkerPool) sendToCustomer(ctx context.Context, msg Message) {
	subs, err := wp.store.ListSubscriptions(ctx, msg.CustomerID)
	if err != nil {
		wp.log.Error("failed to fetch subscriptions", "customer_id", msg.CustomerID, "error", err)
		return
	}
	if len(subs) == 0 {
		return
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		wp.log.Error("failed to encode notification", "device_id", msg.DeviceID, "error", err)
		return
	}

	wp.log.Info("sending notifications", "count", len(subs), "device_id", msg.DeviceID, "kind", msg.Kind)
	for _, sub := range subs {
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
		metrics.NotificationsSent.WithLabelValues("error").Inc()
		wp.log.Warn("failed to send notification", "endpoint", sub.Endpoint, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound {
		metrics.NotificationsSent.WithLabelValues("expired").Inc()
		wp.log.Info("subscription expired, deleting", "endpoint", sub.Endpoint)
		if err := wp.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			wp.log.Error("failed to delete expired subscription", "endpoint", sub.Endpoint, "error", err)
		}
		return
	}
	metrics.NotificationsSent.WithLabelValues("sent").Inc()
}

// StatusNotifier pushes a message to the customer when a device enters one of
// the configured statuses.
type StatusNotifier struct {
	pool     *WorkerPool
	statuses map[repair.Status]struct{}
}

// NewStatusNotifier rejects unknown status names.
func NewStatusNotifier(pool *WorkerPool, statuses []string) (*StatusNotifier, error) {
	set := make(map[repair.Status]struct{}, len(statuses))
	for _, s := range statuses {
		st := repair.Status(s)
		if !st.Valid() {
			return nil, fmt.Errorf("unknown notify status %q", s)
		}
		set[st] = struct{}{}
	}
	return &StatusNotifier{pool: pool, statuses: set}, nil
}

// TransitionApplied implements repair.Observer.
func (n *StatusNotifier) TransitionApplied(_ context.Context, d repair.Device, t repair.Transition) {
	if _, ok := n.statuses[t.ToStatus]; !ok {
		return
	}
	n.pool.Dispatch(StatusMessage(d, t.ToStatus))
}
