package services

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"

	"coachbill/internal/infra"
	"coachbill/internal/repositories"
	"coachbill/pkg/memcache"
)

const webhookProvider = "stripe"

// EventType is the closed set of provider events this router handles.
// Anything else maps to EventTypeUnknown and is acknowledged, never errored:
// the provider owes us no foreknowledge of every event type.
type EventType string

const (
	EventTypeCheckoutSessionCompleted EventType = "checkout.session.completed"
	EventTypeSubscriptionCreated      EventType = "customer.subscription.created"
	EventTypeSubscriptionUpdated      EventType = "customer.subscription.updated"
	EventTypeSubscriptionDeleted      EventType = "customer.subscription.deleted"
	EventTypeInvoicePaymentFailed     EventType = "invoice.payment_failed"
	EventTypePaymentIntentSucceeded   EventType = "payment_intent.succeeded"
	EventTypeUnknown                  EventType = "unknown"
)

func ParseEventType(raw string) EventType {
	switch EventType(raw) {
	case EventTypeCheckoutSessionCompleted,
		EventTypeSubscriptionCreated,
		EventTypeSubscriptionUpdated,
		EventTypeSubscriptionDeleted,
		EventTypeInvoicePaymentFailed,
		EventTypePaymentIntentSucceeded:
		return EventType(raw)
	default:
		return EventTypeUnknown
	}
}

// WebhookService is the billing event router: verify the signature, dedupe,
// dispatch to a reconciler, answer the provider. Handler errors surface as
// 500 so the provider's retry-with-backoff is the retry mechanism; the
// router itself never retries.
type WebhookService interface {
	HandleWebhook(c *gin.Context)
}

type webhookService struct {
	subscriptions SubscriptionServiceInterface
	enrollments   EnrollmentServiceInterface
	events        repositories.WebhookEventRepositoryInterface
	seen          memcache.SeenEventStore
	cfg           infra.StripeConfig
	logger        *zap.Logger
}

func NewWebhookService(
	subscriptions SubscriptionServiceInterface,
	enrollments EnrollmentServiceInterface,
	events repositories.WebhookEventRepositoryInterface,
	seen memcache.SeenEventStore,
	cfg infra.StripeConfig,
	logger *zap.Logger,
) WebhookService {
	return &webhookService{
		subscriptions: subscriptions,
		enrollments:   enrollments,
		events:        events,
		seen:          seen,
		cfg:           cfg,
		logger:        logger,
	}
}

func (s *webhookService) HandleWebhook(c *gin.Context) {
	rawBody, err := io.ReadAll(c.Request.Body)
	if err != nil {
		s.logger.Error("reading webhook body failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload", "message": "failed to read request body"})
		return
	}

	sigHeader := c.GetHeader("Stripe-Signature")
	event, err := webhook.ConstructEventWithOptions(rawBody, sigHeader, s.cfg.WebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		// Reject immediately: no retry, no side effect.
		s.logger.Warn("webhook signature verification failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_signature", "message": "webhook signature verification failed"})
		return
	}

	eventType := ParseEventType(string(event.Type))
	infra.WebhookEventsReceived.WithLabelValues(string(eventType)).Inc()

	ctx := c.Request.Context()

	// Fast-path dedupe, then the durable event log.
	if s.seen.Seen(event.ID) {
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}
	inserted, err := s.events.Record(ctx, webhookProvider, event.ID, string(event.Type), rawBody)
	if err != nil {
		// The event log is audit, not the processing gate; keep going.
		s.logger.Error("recording webhook event failed",
			zap.String("event_id", event.ID), zap.Error(err))
	} else if !inserted {
		processed, err := s.events.AlreadyProcessed(ctx, webhookProvider, event.ID)
		if err == nil && processed {
			s.seen.Mark(event.ID, time.Hour)
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}
	}

	if err := s.dispatch(c, event, eventType); err != nil {
		infra.WebhookEventsFailed.WithLabelValues(string(eventType)).Inc()
		_ = s.events.MarkFailed(ctx, webhookProvider, event.ID, err.Error())
		s.logger.Error("webhook handler failed",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "handler_failure", "message": err.Error()})
		return
	}

	if err := s.events.MarkProcessed(ctx, webhookProvider, event.ID); err != nil {
		s.logger.Error("marking webhook event processed failed",
			zap.String("event_id", event.ID), zap.Error(err))
	}
	s.seen.Mark(event.ID, time.Hour)

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (s *webhookService) dispatch(c *gin.Context, event stripe.Event, eventType EventType) error {
	ctx := c.Request.Context()

	switch eventType {
	case EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return err
		}
		return s.subscriptions.HandleCheckoutCompleted(ctx, &session, event.Created)

	case EventTypeSubscriptionCreated, EventTypeSubscriptionUpdated:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return err
		}
		return s.subscriptions.HandleSubscriptionUpdated(ctx, &sub, event.Created)

	case EventTypeSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return err
		}
		return s.subscriptions.HandleSubscriptionDeleted(ctx, &sub)

	case EventTypeInvoicePaymentFailed:
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			return err
		}
		return s.subscriptions.HandleInvoicePaymentFailed(ctx, &invoice)

	case EventTypePaymentIntentSucceeded:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return err
		}
		return s.enrollments.HandlePaymentIntentSucceeded(ctx, &intent)

	default:
		s.logger.Info("unhandled webhook event type, acknowledging",
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.ID))
		return nil
	}
}
