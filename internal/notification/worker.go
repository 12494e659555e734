package notification

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"desco-report-backend/internal/model"
)

// NotificationSender sends one web push message. Split out so tests can
// substitute a fake.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender sends through the webpush library.
type WebPushSender struct{}

func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// pushPayload is the JSON body delivered to the browser.
type pushPayload struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	AccountNo string `json:"accountNo"`
	EventType string `json:"eventType"`
	EventID   uint   `json:"eventId"`
}

// WorkerPool delivers web push notifications for freshly ingested account
// events. Jobs are event IDs; each worker loads the event and its account,
// then fans the message out to every subscription following that account.
type WorkerPool struct {
	size    int
	jobs    chan uint
	db      *gorm.DB
	webpush *webpush.Options
	sender  NotificationSender
	log     *zap.Logger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options, log *zap.Logger) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan uint, size*4),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		log:     log,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.log.Info("notification worker started", zap.Int("worker", id))
	for {
		select {
		case eventID := <-wp.jobs:
			wp.deliverEvent(ctx, eventID)
		case <-ctx.Done():
			wp.log.Info("notification worker shutting down", zap.Int("worker", id))
			return
		}
	}
}

// Dispatch enqueues an event for delivery. Non-blocking: when the queue is
// full the event is dropped rather than stalling a sync.
func (wp *WorkerPool) Dispatch(eventID uint) {
	select {
	case wp.jobs <- eventID:
	default:
		wp.log.Warn("notification queue full, dropping event", zap.Uint("event_id", eventID))
	}
}

func (wp *WorkerPool) deliverEvent(ctx context.Context, eventID uint) {
	var event model.RecentEvent
	if err := wp.db.WithContext(ctx).First(&event, eventID).Error; err != nil {
		wp.log.Warn("event lookup failed", zap.Uint("event_id", eventID), zap.Error(err))
		return
	}

	var account model.UtilityAccount
	if err := wp.db.WithContext(ctx).First(&account, event.AccountID).Error; err != nil {
		wp.log.Warn("account lookup failed", zap.Uint("account_id", event.AccountID), zap.Error(err))
		return
	}

	var subscriptions []model.PushSubscription
	err := wp.db.WithContext(ctx).
		Joins("JOIN subscription_account_mapping sam ON sam.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("sam.utility_account_id = ?", event.AccountID).
		Find(&subscriptions).Error
	if err != nil {
		wp.log.Warn("subscription lookup failed", zap.Uint("account_id", event.AccountID), zap.Error(err))
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(pushPayload{
		Title:     event.EventType,
		Body:      event.Message,
		AccountNo: account.AccountNumber,
		EventType: event.EventType,
		EventID:   event.ID,
	})
	if err != nil {
		wp.log.Error("payload marshal failed", zap.Error(err))
		return
	}

	wp.log.Info("delivering event notifications",
		zap.Uint("event_id", eventID), zap.Int("subscriptions", len(subscriptions)))
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
		wp.log.Warn("push delivery failed", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		wp.log.Info("pruning expired subscription", zap.String("endpoint", sub.Endpoint))
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			wp.log.Warn("failed to delete expired subscription", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		}
	}
}
