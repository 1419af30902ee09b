package infra

import (
	"os"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// StripeConfig carries the provider credentials plus the fixed price and
// product identifiers the reconcilers classify subscriptions with.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string

	PriceTrialWeekly      string
	PriceStandardMonthly  string
	PricePremiumMonthly   string
	PricePremiumAlternate string

	CoachingProductID      string
	CoachingPriceMonthly   string
	CoachingPriceQuarterly string
}

func LoadStripeConfig() StripeConfig {
	return StripeConfig{
		SecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),

		PriceTrialWeekly:      os.Getenv("STRIPE_PRICE_TRIAL_WEEKLY"),
		PriceStandardMonthly:  os.Getenv("STRIPE_PRICE_STANDARD_MONTHLY"),
		PricePremiumMonthly:   os.Getenv("STRIPE_PRICE_PREMIUM_MONTHLY"),
		PricePremiumAlternate: os.Getenv("STRIPE_PRICE_PREMIUM_ALTERNATE"),

		CoachingProductID:      os.Getenv("STRIPE_COACHING_PRODUCT_ID"),
		CoachingPriceMonthly:   os.Getenv("STRIPE_COACHING_PRICE_MONTHLY"),
		CoachingPriceQuarterly: os.Getenv("STRIPE_COACHING_PRICE_QUARTERLY"),
	}
}

// StripeGateway abstracts the SDK operations the services need, so tests
// can fake the provider without network calls.
type StripeGateway interface {
	GetSubscription(id string) (*stripe.Subscription, error)
	CreateCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	CreateSubscriptionSchedule(params *stripe.SubscriptionScheduleParams) (*stripe.SubscriptionSchedule, error)
	UpdateSubscriptionSchedule(id string, params *stripe.SubscriptionScheduleParams) (*stripe.SubscriptionSchedule, error)
}

type stripeGateway struct {
	api *client.API
}

// NewStripeGateway constructs the one per-process Stripe client. The key is
// scoped to this client instance, not set on the package-level global.
func NewStripeGateway(cfg StripeConfig) StripeGateway {
	return &stripeGateway{api: client.New(cfg.SecretKey, nil)}
}

func (g *stripeGateway) GetSubscription(id string) (*stripe.Subscription, error) {
	return g.api.Subscriptions.Get(id, nil)
}

func (g *stripeGateway) CreateCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return g.api.CheckoutSessions.New(params)
}

func (g *stripeGateway) CreateSubscriptionSchedule(params *stripe.SubscriptionScheduleParams) (*stripe.SubscriptionSchedule, error) {
	return g.api.SubscriptionSchedules.New(params)
}

func (g *stripeGateway) UpdateSubscriptionSchedule(id string, params *stripe.SubscriptionScheduleParams) (*stripe.SubscriptionSchedule, error) {
	return g.api.SubscriptionSchedules.Update(id, params)
}
