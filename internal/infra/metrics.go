package infra

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gin-gonic/gin"
)

var (
	WebhookEventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coachbill_webhook_events_received_total",
		Help: "Verified webhook events received, by event type.",
	}, []string{"type"})

	WebhookEventsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coachbill_webhook_events_failed_total",
		Help: "Webhook events whose handler returned an error, by event type.",
	}, []string{"type"})

	// Best-effort propagation steps (identity sync, org fan-out, schedule
	// creation) that failed after the primary write succeeded. These are
	// deliberately not retried in-process; the counter makes the gap visible.
	PropagationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coachbill_propagation_failures_total",
		Help: "Best-effort propagation failures, by step.",
	}, []string{"step"})
)

func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
