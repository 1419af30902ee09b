package services

import (
	"context"
	"encoding/json"

	"github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"

	"coachbill/internal/infra"
	"coachbill/internal/models/db_models"
	"coachbill/internal/models/request_models"
	"coachbill/internal/models/response_models"
	"coachbill/internal/repositories"
	"coachbill/pkg/utils"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// CheckoutServiceInterface creates the provider checkout sessions whose
// metadata the webhook reconcilers later consume, and serves billing-state
// reads for the authenticated API.
type CheckoutServiceInterface interface {
	CreateCheckoutForPlan(ctx context.Context, userID uuid.UUID, req request_models.CreateCheckoutRequest) (*response_models.CreateCheckoutResponse, error)
	StartFunnel(ctx context.Context, userID *uuid.UUID, req request_models.StartFunnelRequest) (*db_models.FlowSession, error)
	CreateFunnelCheckout(ctx context.Context, userID uuid.UUID, req request_models.FunnelCheckoutRequest) (*response_models.CreateCheckoutResponse, error)
	CreateContentCheckout(ctx context.Context, userID uuid.UUID, req request_models.ContentCheckoutRequest) (*response_models.CreateCheckoutResponse, error)
	GetBillingState(ctx context.Context, userID uuid.UUID) (*response_models.BillingStateResponse, error)
}

type CheckoutService struct {
	userRepo    repositories.UserRepositoryInterface
	programRepo repositories.ProgramRepositoryInterface
	flowRepo    repositories.FlowSessionRepositoryInterface
	gateway     infra.StripeGateway
	cfg         infra.StripeConfig
	logger      *zap.Logger
}

func NewCheckoutService(
	userRepo repositories.UserRepositoryInterface,
	programRepo repositories.ProgramRepositoryInterface,
	flowRepo repositories.FlowSessionRepositoryInterface,
	gateway infra.StripeGateway,
	cfg infra.StripeConfig,
	logger *zap.Logger,
) CheckoutServiceInterface {
	return &CheckoutService{
		userRepo:    userRepo,
		programRepo: programRepo,
		flowRepo:    flowRepo,
		gateway:     gateway,
		cfg:         cfg,
		logger:      logger,
	}
}

func (s *CheckoutService) CreateCheckoutForPlan(ctx context.Context, userID uuid.UUID, req request_models.CreateCheckoutRequest) (*response_models.CreateCheckoutResponse, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if user == nil {
		return nil, utils.ErrUserNotFound
	}

	var priceID string
	isTrial := false
	effectiveTier := db_models.TierStandard
	switch req.Plan {
	case "trial":
		priceID = s.cfg.PriceTrialWeekly
		isTrial = true
	case "standard":
		priceID = s.cfg.PriceStandardMonthly
	case "premium":
		priceID = s.cfg.PricePremiumMonthly
		effectiveTier = db_models.TierPremium
	case "coaching_monthly":
		priceID = s.cfg.CoachingPriceMonthly
	case "coaching_quarterly":
		priceID = s.cfg.CoachingPriceQuarterly
	default:
		return nil, utils.ErrPlanNotFound
	}

	// This metadata is the contract the subscription reconciler resolves
	// users and tiers from; it must reach the subscription object itself.
	metadata := map[string]string{
		"userId":         user.ID.String(),
		"organizationId": req.OrganizationID,
		"effectiveTier":  string(effectiveTier),
	}
	if isTrial {
		metadata["isTrial"] = "true"
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(priceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: metadata,
		},
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	if user.StripeCustomerID != "" {
		params.Customer = stripe.String(user.StripeCustomerID)
	}

	session, err := s.gateway.CreateCheckoutSession(params)
	if err != nil {
		s.logger.Error("creating checkout session failed",
			zap.String("user_id", user.ID.String()), zap.Error(err))
		return nil, utils.ErrGatewayError
	}

	return &response_models.CreateCheckoutResponse{
		CheckoutURL: session.URL,
		SessionID:   session.ID,
	}, nil
}

func (s *CheckoutService) StartFunnel(ctx context.Context, userID *uuid.UUID, req request_models.StartFunnelRequest) (*db_models.FlowSession, error) {
	programID, err := uuid.Parse(req.ProgramID)
	if err != nil {
		return nil, utils.ErrProgramNotFound
	}
	orgID, err := uuid.Parse(req.OrganizationID)
	if err != nil {
		return nil, utils.ErrBadEvent
	}

	program, err := s.programRepo.GetProgram(ctx, programID)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if program == nil {
		return nil, utils.ErrProgramNotFound
	}

	session := &db_models.FlowSession{
		ProgramID:      &programID,
		OrganizationID: orgID,
	}
	if req.InviteID != "" {
		inviteID, err := uuid.Parse(req.InviteID)
		if err != nil {
			return nil, utils.ErrInviteNotFound
		}
		invite, err := s.programRepo.GetInvite(ctx, inviteID)
		if err != nil {
			return nil, utils.ErrDatabaseError
		}
		if invite == nil {
			return nil, utils.ErrInviteNotFound
		}
		session.InviteID = &invite.ID
	}
	if len(req.Answers) > 0 {
		if raw, err := json.Marshal(req.Answers); err == nil {
			session.Data = datatypes.JSON(raw)
		}
	}
	_ = userID // prospects may start a funnel before they exist as users

	if err := s.flowRepo.Create(ctx, session); err != nil {
		return nil, utils.ErrDatabaseError
	}
	return session, nil
}

func (s *CheckoutService) CreateFunnelCheckout(ctx context.Context, userID uuid.UUID, req request_models.FunnelCheckoutRequest) (*response_models.CreateCheckoutResponse, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if user == nil {
		return nil, utils.ErrUserNotFound
	}

	sessionID, err := uuid.Parse(req.FlowSessionID)
	if err != nil {
		return nil, utils.ErrFlowSessionNotFound
	}
	flowSession, err := s.flowRepo.Get(ctx, sessionID)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if flowSession == nil {
		return nil, utils.ErrFlowSessionNotFound
	}
	if flowSession.ProgramID == nil {
		return nil, utils.ErrProgramNotFound
	}
	program, err := s.programRepo.GetProgram(ctx, *flowSession.ProgramID)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if program == nil {
		return nil, utils.ErrProgramNotFound
	}

	currency := program.Currency
	if currency == "" {
		currency = "usd"
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(currency),
					UnitAmount: stripe.Int64(program.PriceMinor),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(program.Name),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{
				"type":          "funnel_payment",
				"flowSessionId": flowSession.ID.String(),
				"userId":        user.ID.String(),
				"programId":     program.ID.String(),
			},
		},
	}
	if user.StripeCustomerID != "" {
		params.Customer = stripe.String(user.StripeCustomerID)
	}

	session, err := s.gateway.CreateCheckoutSession(params)
	if err != nil {
		s.logger.Error("creating funnel checkout failed",
			zap.String("flow_session_id", flowSession.ID.String()), zap.Error(err))
		return nil, utils.ErrGatewayError
	}

	return &response_models.CreateCheckoutResponse{
		CheckoutURL:   session.URL,
		SessionID:     session.ID,
		FlowSessionID: flowSession.ID.String(),
	}, nil
}

func (s *CheckoutService) CreateContentCheckout(ctx context.Context, userID uuid.UUID, req request_models.ContentCheckoutRequest) (*response_models.CreateCheckoutResponse, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if user == nil {
		return nil, utils.ErrUserNotFound
	}

	currency := req.Currency
	if currency == "" {
		currency = "usd"
	}
	name := req.Name
	if name == "" {
		name = req.ContentID
	}

	metadata := map[string]string{
		"type":        "content_purchase",
		"userId":      user.ID.String(),
		"contentType": req.ContentType,
		"contentId":   req.ContentID,
	}
	if req.OrganizationID != "" {
		metadata["organizationId"] = req.OrganizationID
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(currency),
					UnitAmount: stripe.Int64(req.AmountMinor),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(name),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: metadata,
		},
	}
	if user.StripeCustomerID != "" {
		params.Customer = stripe.String(user.StripeCustomerID)
	}

	session, err := s.gateway.CreateCheckoutSession(params)
	if err != nil {
		s.logger.Error("creating content checkout failed",
			zap.String("user_id", user.ID.String()), zap.Error(err))
		return nil, utils.ErrGatewayError
	}

	return &response_models.CreateCheckoutResponse{
		CheckoutURL: session.URL,
		SessionID:   session.ID,
	}, nil
}

func (s *CheckoutService) GetBillingState(ctx context.Context, userID uuid.UUID) (*response_models.BillingStateResponse, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if user == nil {
		return nil, utils.ErrUserNotFound
	}

	resp := &response_models.BillingStateResponse{
		Tier:              string(user.Tier),
		Plan:              string(user.BillingPlan),
		Status:            string(user.BillingStatus),
		CurrentPeriodEnd:  user.CurrentPeriodEnd,
		CancelAtPeriodEnd: user.CancelAtPeriodEnd,
		StartedWithTrial:  user.StartedWithTrial,
		CoachingStatus:    string(user.CoachingStatus),
		CoachingEndsAt:    user.CoachingEndsAt,
	}
	if user.CoachingPlan != nil {
		resp.CoachingPlan = string(*user.CoachingPlan)
	}
	if resp.CoachingStatus == "" {
		resp.CoachingStatus = string(db_models.CoachingStatusNone)
	}
	return resp, nil
}
