package services

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"

	"coachbill/internal/infra"
	"coachbill/internal/models/db_models"
	"coachbill/internal/repositories"
	"github.com/google/uuid"
)

// SubscriptionServiceInterface reconciles provider subscription objects into
// billing/coaching state on the user record. Membership and coaching are two
// independent product lines: their update paths never touch each other's
// fields. It also owns the invoice-failure downgrade.
type SubscriptionServiceInterface interface {
	HandleSubscriptionUpdated(ctx context.Context, sub *stripe.Subscription, eventCreated int64) error
	HandleSubscriptionDeleted(ctx context.Context, sub *stripe.Subscription) error
	HandleInvoicePaymentFailed(ctx context.Context, invoice *stripe.Invoice) error
	HandleCheckoutCompleted(ctx context.Context, session *stripe.CheckoutSession, eventCreated int64) error
}

type SubscriptionService struct {
	userRepo       repositories.UserRepositoryInterface
	membershipRepo repositories.MembershipRepositoryInterface
	identity       IdentitySyncInterface
	gateway        infra.StripeGateway
	alerts         IAlertService
	cfg            infra.StripeConfig
	logger         *zap.Logger
}

func NewSubscriptionService(
	userRepo repositories.UserRepositoryInterface,
	membershipRepo repositories.MembershipRepositoryInterface,
	identity IdentitySyncInterface,
	gateway infra.StripeGateway,
	alerts IAlertService,
	cfg infra.StripeConfig,
	logger *zap.Logger,
) SubscriptionServiceInterface {
	return &SubscriptionService{
		userRepo:       userRepo,
		membershipRepo: membershipRepo,
		identity:       identity,
		gateway:        gateway,
		alerts:         alerts,
		cfg:            cfg,
		logger:         logger,
	}
}

// ------------------- Classification -------------------

// isCoachingSubscription checks the subscription's line items for the fixed
// coaching product. Present means coaching add-on, absent means platform
// membership; the two paths are disjoint.
func (s *SubscriptionService) isCoachingSubscription(sub *stripe.Subscription) bool {
	if sub.Items == nil {
		return false
	}
	for _, item := range sub.Items.Data {
		if item.Price == nil {
			continue
		}
		if item.Price.Product != nil && item.Price.Product.ID == s.cfg.CoachingProductID {
			return true
		}
		if item.Price.ID == s.cfg.CoachingPriceMonthly || item.Price.ID == s.cfg.CoachingPriceQuarterly {
			return true
		}
	}
	return false
}

func subscriptionPriceID(sub *stripe.Subscription) string {
	if sub.Items == nil || len(sub.Items.Data) == 0 || sub.Items.Data[0].Price == nil {
		return ""
	}
	return sub.Items.Data[0].Price.ID
}

// ------------------- Status mapping -------------------

func mapMembershipStatus(status stripe.SubscriptionStatus) db_models.BillingStatus {
	switch status {
	case stripe.SubscriptionStatusActive:
		return db_models.BillingStatusActive
	case stripe.SubscriptionStatusPastDue:
		return db_models.BillingStatusPastDue
	case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusUnpaid:
		return db_models.BillingStatusCanceled
	case stripe.SubscriptionStatusTrialing:
		return db_models.BillingStatusTrialing
	default:
		return db_models.BillingStatusActive
	}
}

func mapCoachingStatus(status stripe.SubscriptionStatus) db_models.CoachingStatus {
	switch status {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		return db_models.CoachingStatusActive
	case stripe.SubscriptionStatusPastDue:
		return db_models.CoachingStatusPastDue
	case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusUnpaid, stripe.SubscriptionStatusIncompleteExpired:
		return db_models.CoachingStatusCanceled
	default:
		return db_models.CoachingStatusNone
	}
}

// resolvePlanTier maps the subscription's price to plan and tier. Trial and
// standard prices both resolve to standard; an unrecognized price falls back
// to the effectiveTier metadata hint, defaulting to standard.
func (s *SubscriptionService) resolvePlanTier(sub *stripe.Subscription) (db_models.BillingPlan, db_models.Tier) {
	switch subscriptionPriceID(sub) {
	case s.cfg.PriceTrialWeekly, s.cfg.PriceStandardMonthly:
		return db_models.BillingPlanStandard, db_models.TierStandard
	case s.cfg.PricePremiumMonthly, s.cfg.PricePremiumAlternate:
		return db_models.BillingPlanPremium, db_models.TierPremium
	}
	if hint := sub.Metadata["effectiveTier"]; hint == string(db_models.TierPremium) {
		return db_models.BillingPlanPremium, db_models.TierPremium
	}
	return db_models.BillingPlanStandard, db_models.TierStandard
}

func (s *SubscriptionService) resolveCoachingPlan(sub *stripe.Subscription) *db_models.CoachingPlan {
	var plan db_models.CoachingPlan
	switch subscriptionPriceID(sub) {
	case s.cfg.CoachingPriceMonthly:
		plan = db_models.CoachingPlanMonthly
	case s.cfg.CoachingPriceQuarterly:
		plan = db_models.CoachingPlanQuarterly
	default:
		return nil
	}
	return &plan
}

// ------------------- User resolution -------------------

// resolveUser prefers the userId stamped into subscription metadata at
// checkout time, then falls back to the billing customer id, then (coaching
// only) to the coaching subscription id already on file. A nil result is a
// data-integrity warning for the caller, not an error.
func (s *SubscriptionService) resolveUser(ctx context.Context, sub *stripe.Subscription, coaching bool) (*db_models.User, error) {
	if raw := sub.Metadata["userId"]; raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			user, err := s.userRepo.FindByID(ctx, id)
			if err != nil {
				return nil, err
			}
			if user != nil {
				return user, nil
			}
		} else {
			user, err := s.userRepo.FindByClerkID(ctx, raw)
			if err != nil {
				return nil, err
			}
			if user != nil {
				return user, nil
			}
		}
	}

	if sub.Customer != nil && sub.Customer.ID != "" {
		user, err := s.userRepo.FindByStripeCustomerID(ctx, sub.Customer.ID)
		if err != nil {
			return nil, err
		}
		if user != nil {
			return user, nil
		}
	}

	if coaching {
		user, err := s.userRepo.FindByCoachingSubscriptionID(ctx, sub.ID)
		if err != nil {
			return nil, err
		}
		if user != nil {
			return user, nil
		}
	}

	return nil, nil
}

// ------------------- Subscription created/updated -------------------

func (s *SubscriptionService) HandleSubscriptionUpdated(ctx context.Context, sub *stripe.Subscription, eventCreated int64) error {
	coaching := s.isCoachingSubscription(sub)

	user, err := s.resolveUser(ctx, sub, coaching)
	if err != nil {
		return fmt.Errorf("resolving user for subscription %s: %w", sub.ID, err)
	}
	if user == nil {
		s.logger.Warn("no user resolved for subscription, skipping",
			zap.String("subscription_id", sub.ID),
			zap.Bool("coaching", coaching))
		return nil
	}

	if coaching {
		return s.updateCoaching(ctx, user, sub)
	}
	return s.updateMembership(ctx, user, sub, eventCreated)
}

func (s *SubscriptionService) updateMembership(ctx context.Context, user *db_models.User, sub *stripe.Subscription, eventCreated int64) error {
	// Skip events older than the last applied update; webhook delivery
	// order is not guaranteed.
	if eventCreated > 0 && user.BillingSyncedAt > eventCreated {
		s.logger.Info("stale subscription event, skipping",
			zap.String("subscription_id", sub.ID),
			zap.Int64("event_created", eventCreated),
			zap.Int64("last_synced", user.BillingSyncedAt))
		return nil
	}

	status := mapMembershipStatus(sub.Status)
	plan, tier := s.resolvePlanTier(sub)
	if status != db_models.BillingStatusActive && status != db_models.BillingStatusTrialing {
		// Inactive membership never keeps a paid tier, whatever the price says.
		tier = db_models.TierFree
	}

	fields := map[string]interface{}{
		"billing_plan":           plan,
		"stripe_subscription_id": sub.ID,
		"billing_status":         status,
		"current_period_end":     sub.CurrentPeriodEnd,
		"cancel_at_period_end":   sub.CancelAtPeriodEnd,
		"tier":                   tier,
	}
	if sub.Customer != nil && sub.Customer.ID != "" {
		fields["stripe_customer_id"] = sub.Customer.ID
	}
	if eventCreated > 0 {
		fields["billing_synced_at"] = eventCreated
	}

	if err := s.userRepo.UpdateFields(ctx, user.ID, fields); err != nil {
		return fmt.Errorf("persisting billing state for user %s: %w", user.ID, err)
	}

	s.propagateTier(ctx, user, tier, status, sub.CurrentPeriodEnd)
	return nil
}

// propagateTier performs the two best-effort steps that follow the durable
// user write: org-membership fan-out and identity-metadata sync. Failure in
// one never blocks the other and never rolls the primary write back.
func (s *SubscriptionService) propagateTier(ctx context.Context, user *db_models.User, tier db_models.Tier, status db_models.BillingStatus, periodEnd int64) {
	if _, err := s.membershipRepo.UpdateTierForPlatformBilling(ctx, user.ID, tier); err != nil {
		infra.PropagationFailures.WithLabelValues("org_fanout").Inc()
		s.logger.Error("org membership tier fan-out failed",
			zap.String("user_id", user.ID.String()), zap.Error(err))
	}

	if err := s.identity.SyncMembership(ctx, user.ClerkUserID, tier, status, periodEnd); err != nil {
		infra.PropagationFailures.WithLabelValues("identity_sync").Inc()
		s.logger.Error("identity metadata sync failed",
			zap.String("user_id", user.ID.String()), zap.Error(err))
	}
}

func (s *SubscriptionService) updateCoaching(ctx context.Context, user *db_models.User, sub *stripe.Subscription) error {
	status := mapCoachingStatus(sub.Status)
	plan := s.resolveCoachingPlan(sub)

	// Coaching writes must never reach the membership tier field.
	fields := map[string]interface{}{
		"coaching_status":          status,
		"coaching_subscription_id": sub.ID,
		"coaching_ends_at":         sub.CurrentPeriodEnd,
	}
	if plan != nil {
		fields["coaching_plan"] = *plan
	}

	if err := s.userRepo.UpdateFields(ctx, user.ID, fields); err != nil {
		return fmt.Errorf("persisting coaching state for user %s: %w", user.ID, err)
	}

	planName := ""
	if plan != nil {
		planName = string(*plan)
	}
	if err := s.identity.SyncCoaching(ctx, user.ClerkUserID, status, planName, sub.CurrentPeriodEnd); err != nil {
		infra.PropagationFailures.WithLabelValues("identity_sync").Inc()
		s.logger.Error("coaching identity sync failed",
			zap.String("user_id", user.ID.String()), zap.Error(err))
	}
	return nil
}

// ------------------- Subscription deleted -------------------

func (s *SubscriptionService) HandleSubscriptionDeleted(ctx context.Context, sub *stripe.Subscription) error {
	coaching := s.isCoachingSubscription(sub)

	user, err := s.resolveUser(ctx, sub, coaching)
	if err != nil {
		return fmt.Errorf("resolving user for deleted subscription %s: %w", sub.ID, err)
	}
	if user == nil {
		s.logger.Warn("no user resolved for deleted subscription, skipping",
			zap.String("subscription_id", sub.ID))
		return nil
	}

	endsAt := sub.CurrentPeriodEnd
	if sub.EndedAt > 0 {
		endsAt = sub.EndedAt
	}

	if coaching {
		if err := s.userRepo.UpdateFields(ctx, user.ID, map[string]interface{}{
			"coaching_status":  db_models.CoachingStatusCanceled,
			"coaching_ends_at": endsAt,
		}); err != nil {
			return fmt.Errorf("persisting coaching cancellation for user %s: %w", user.ID, err)
		}
		if err := s.identity.SyncCoaching(ctx, user.ClerkUserID, db_models.CoachingStatusCanceled, "", endsAt); err != nil {
			infra.PropagationFailures.WithLabelValues("identity_sync").Inc()
			s.logger.Error("coaching identity sync failed",
				zap.String("user_id", user.ID.String()), zap.Error(err))
		}
		return nil
	}

	// Cancellation is now final, not pending.
	if err := s.userRepo.UpdateFields(ctx, user.ID, map[string]interface{}{
		"billing_status":       db_models.BillingStatusCanceled,
		"tier":                 db_models.TierFree,
		"cancel_at_period_end": false,
		"current_period_end":   endsAt,
	}); err != nil {
		return fmt.Errorf("persisting membership cancellation for user %s: %w", user.ID, err)
	}

	s.propagateTier(ctx, user, db_models.TierFree, db_models.BillingStatusCanceled, endsAt)
	return nil
}

// ------------------- Invoice payment failed -------------------

func (s *SubscriptionService) HandleInvoicePaymentFailed(ctx context.Context, invoice *stripe.Invoice) error {
	if invoice.Customer == nil || invoice.Customer.ID == "" {
		s.logger.Warn("payment-failed invoice without customer, skipping",
			zap.String("invoice_id", invoice.ID))
		return nil
	}

	user, err := s.userRepo.FindByStripeCustomerID(ctx, invoice.Customer.ID)
	if err != nil {
		return fmt.Errorf("resolving user for failed invoice %s: %w", invoice.ID, err)
	}
	if user == nil {
		s.logger.Warn("no user for failed invoice customer, skipping",
			zap.String("customer_id", invoice.Customer.ID))
		return nil
	}

	if err := s.userRepo.UpdateFields(ctx, user.ID, map[string]interface{}{
		"billing_status": db_models.BillingStatusPastDue,
		"tier":           db_models.TierFree,
	}); err != nil {
		return fmt.Errorf("persisting past-due state for user %s: %w", user.ID, err)
	}

	s.propagateTier(ctx, user, db_models.TierFree, db_models.BillingStatusPastDue, user.CurrentPeriodEnd)
	return nil
}

// ------------------- Checkout completed -------------------

// HandleCheckoutCompleted reconciles the subscription behind a completed
// checkout session, then, for trial checkouts, schedules the provider-side
// conversion from the one-shot trial price to open-ended monthly billing.
func (s *SubscriptionService) HandleCheckoutCompleted(ctx context.Context, session *stripe.CheckoutSession, eventCreated int64) error {
	if session.Subscription == nil || session.Subscription.ID == "" {
		// Payment-mode sessions are settled by payment_intent.succeeded.
		return nil
	}

	// The session payload carries the subscription id only; fetch the full
	// object so classification and price mapping see line items.
	sub, err := s.gateway.GetSubscription(session.Subscription.ID)
	if err != nil {
		return fmt.Errorf("fetching subscription %s: %w", session.Subscription.ID, err)
	}

	if err := s.HandleSubscriptionUpdated(ctx, sub, eventCreated); err != nil {
		return err
	}

	if session.Metadata["isTrial"] != "true" {
		return nil
	}

	if user, err := s.resolveUser(ctx, sub, false); err == nil && user != nil {
		if err := s.userRepo.UpdateFields(ctx, user.ID, map[string]interface{}{
			"started_with_trial": true,
		}); err != nil {
			s.logger.Error("persisting trial flag failed",
				zap.String("user_id", user.ID.String()), zap.Error(err))
		}
	}

	s.scheduleTrialConversion(sub)
	return nil
}

// scheduleTrialConversion creates a two-phase schedule on the provider: one
// iteration of the trial-weekly price, then open-ended standard-monthly,
// released back to a plain subscription afterwards. On failure the user
// keeps access and the subscription simply won't auto-convert, so this
// path logs, alerts ops and continues.
func (s *SubscriptionService) scheduleTrialConversion(sub *stripe.Subscription) {
	schedule, err := s.gateway.CreateSubscriptionSchedule(&stripe.SubscriptionScheduleParams{
		FromSubscription: stripe.String(sub.ID),
	})
	if err == nil {
		_, err = s.gateway.UpdateSubscriptionSchedule(schedule.ID, &stripe.SubscriptionScheduleParams{
			EndBehavior: stripe.String("release"),
			Phases: []*stripe.SubscriptionSchedulePhaseParams{
				{
					Items: []*stripe.SubscriptionSchedulePhaseItemParams{
						{Price: stripe.String(s.cfg.PriceTrialWeekly), Quantity: stripe.Int64(1)},
					},
					Iterations: stripe.Int64(1),
				},
				{
					Items: []*stripe.SubscriptionSchedulePhaseItemParams{
						{Price: stripe.String(s.cfg.PriceStandardMonthly), Quantity: stripe.Int64(1)},
					},
				},
			},
		})
	}
	if err != nil {
		infra.PropagationFailures.WithLabelValues("trial_schedule").Inc()
		s.logger.Error("trial conversion schedule failed, manual follow-up needed",
			zap.String("subscription_id", sub.ID), zap.Error(err))
		if s.alerts != nil {
			if alertErr := s.alerts.SendOpsAlert(
				"Trial conversion schedule failed",
				fmt.Sprintf("Subscription %s completed a trial checkout but the conversion schedule could not be created: %v", sub.ID, err),
			); alertErr != nil {
				s.logger.Error("ops alert send failed", zap.Error(alertErr))
			}
		}
	}
}
