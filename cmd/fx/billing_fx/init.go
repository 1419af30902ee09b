package billing_fx

import (
	"go.uber.org/fx"

	"coachbill/internal/api/controllers"
	"coachbill/internal/infra"
	"coachbill/internal/services"
	"coachbill/pkg/memcache"
)

var Module = fx.Provide(
	infra.LoadStripeConfig,
	infra.NewStripeGateway,
	provideSeenEvents,
	services.NewSubscriptionService,
	services.NewWebhookService,
	controllers.NewWebhookController,
)

func provideSeenEvents() memcache.SeenEventStore {
	return memcache.NewSeenEvents()
}
