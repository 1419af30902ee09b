package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"

	"coachbill/internal/models/db_models"
	"coachbill/internal/repositories"
	"github.com/google/uuid"
)

// funnelProfileFields is the fixed allow-list of funnel answers copied onto
// the user profile when an enrollment completes.
var funnelProfileFields = []string{"goal", "identity", "obstacles", "timeline", "experience"}

// EnrollmentServiceInterface settles succeeded one-time payments: a content
// purchase or a funnel program enrollment, routed by the intent's metadata
// type. Both paths are idempotent on the payment intent id.
type EnrollmentServiceInterface interface {
	HandlePaymentIntentSucceeded(ctx context.Context, intent *stripe.PaymentIntent) error
}

type EnrollmentService struct {
	userRepo       repositories.UserRepositoryInterface
	programRepo    repositories.ProgramRepositoryInterface
	enrollmentRepo repositories.EnrollmentRepositoryInterface
	flowRepo       repositories.FlowSessionRepositoryInterface
	squadRepo      repositories.SquadRepositoryInterface
	logger         *zap.Logger
}

func NewEnrollmentService(
	userRepo repositories.UserRepositoryInterface,
	programRepo repositories.ProgramRepositoryInterface,
	enrollmentRepo repositories.EnrollmentRepositoryInterface,
	flowRepo repositories.FlowSessionRepositoryInterface,
	squadRepo repositories.SquadRepositoryInterface,
	logger *zap.Logger,
) EnrollmentServiceInterface {
	return &EnrollmentService{
		userRepo:       userRepo,
		programRepo:    programRepo,
		enrollmentRepo: enrollmentRepo,
		flowRepo:       flowRepo,
		squadRepo:      squadRepo,
		logger:         logger,
	}
}

func (s *EnrollmentService) HandlePaymentIntentSucceeded(ctx context.Context, intent *stripe.PaymentIntent) error {
	switch intent.Metadata["type"] {
	case "content_purchase":
		return s.handleContentPurchase(ctx, intent)
	case "funnel_payment":
		return s.handleFunnelPayment(ctx, intent)
	default:
		// Other integrations emit payment intents this reconciler doesn't own.
		return nil
	}
}

// ------------------- Content purchase -------------------

func (s *EnrollmentService) handleContentPurchase(ctx context.Context, intent *stripe.PaymentIntent) error {
	userRaw := intent.Metadata["userId"]
	contentType := intent.Metadata["contentType"]
	contentID := intent.Metadata["contentId"]
	if userRaw == "" || contentType == "" || contentID == "" {
		s.logger.Warn("content purchase intent missing metadata, skipping",
			zap.String("payment_intent_id", intent.ID))
		return nil
	}

	user, err := s.resolveUser(ctx, userRaw)
	if err != nil {
		return fmt.Errorf("resolving user for content purchase %s: %w", intent.ID, err)
	}
	if user == nil {
		s.logger.Warn("no user for content purchase, skipping",
			zap.String("payment_intent_id", intent.ID), zap.String("user_ref", userRaw))
		return nil
	}

	existing, err := s.enrollmentRepo.FindPurchaseByPaymentIntent(ctx, intent.ID)
	if err != nil {
		return fmt.Errorf("checking existing purchase for %s: %w", intent.ID, err)
	}
	if existing != nil {
		// Redelivery; already settled.
		return nil
	}

	purchase := &db_models.ContentPurchase{
		UserID:                user.ID,
		ContentType:           db_models.ContentType(contentType),
		ContentID:             contentID,
		AmountPaid:            intent.Amount,
		StripePaymentIntentID: intent.ID,
	}
	if orgRaw := intent.Metadata["organizationId"]; orgRaw != "" {
		if orgID, err := uuid.Parse(orgRaw); err == nil {
			purchase.OrganizationID = orgID
		}
	}

	if err := s.enrollmentRepo.CreatePurchase(ctx, purchase); err != nil {
		return fmt.Errorf("creating content purchase for %s: %w", intent.ID, err)
	}
	return nil
}

// ------------------- Funnel payment -------------------

func (s *EnrollmentService) handleFunnelPayment(ctx context.Context, intent *stripe.PaymentIntent) error {
	sessionRaw := intent.Metadata["flowSessionId"]
	if sessionRaw == "" {
		// Not a funnel payment for this system.
		return nil
	}
	sessionID, err := uuid.Parse(sessionRaw)
	if err != nil {
		s.logger.Warn("funnel payment with malformed flow session id, skipping",
			zap.String("payment_intent_id", intent.ID), zap.String("flow_session_id", sessionRaw))
		return nil
	}

	session, err := s.flowRepo.Get(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("loading flow session %s: %w", sessionID, err)
	}
	if session == nil {
		s.logger.Warn("flow session not found for funnel payment, skipping",
			zap.String("payment_intent_id", intent.ID), zap.String("flow_session_id", sessionRaw))
		return nil
	}
	if session.CompletedAt != nil {
		// Session already finalized; duplicate delivery.
		return nil
	}

	// Guards against partial-retry double enrollment: an enrollment already
	// written for this intent means only the session completion is missing.
	existing, err := s.enrollmentRepo.FindByPaymentIntent(ctx, intent.ID)
	if err != nil {
		return fmt.Errorf("checking existing enrollment for %s: %w", intent.ID, err)
	}
	if existing != nil {
		return s.flowRepo.MarkCompleted(ctx, session.ID, intent.ID)
	}

	if session.ProgramID == nil {
		// Sessions without a program belong to a different funnel type.
		s.logger.Warn("flow session has no program, skipping",
			zap.String("flow_session_id", session.ID.String()))
		return nil
	}
	program, err := s.programRepo.GetProgram(ctx, *session.ProgramID)
	if err != nil {
		return fmt.Errorf("loading program %s: %w", session.ProgramID, err)
	}
	if program == nil {
		s.logger.Warn("program not found for funnel payment, skipping",
			zap.String("program_id", session.ProgramID.String()))
		return nil
	}

	user, err := s.resolveUser(ctx, intent.Metadata["userId"])
	if err != nil {
		return fmt.Errorf("resolving user for funnel payment %s: %w", intent.ID, err)
	}
	if user == nil {
		s.logger.Warn("no user for funnel payment, skipping",
			zap.String("payment_intent_id", intent.ID))
		return nil
	}

	var cohortID *uuid.UUID
	var squadID *uuid.UUID
	var invite *db_models.Invite

	if session.InviteID != nil {
		invite, err = s.programRepo.GetInvite(ctx, *session.InviteID)
		if err != nil {
			return fmt.Errorf("loading invite %s: %w", session.InviteID, err)
		}
		if invite != nil {
			cohortID = invite.TargetCohortID
			squadID = invite.TargetSquadID
			if err := s.programRepo.IncrementInviteUse(ctx, invite.ID, user.ID); err != nil {
				return fmt.Errorf("incrementing invite use for %s: %w", invite.ID, err)
			}
		}
	}

	var cohort *db_models.Cohort
	if cohortID != nil {
		cohort, err = s.programRepo.GetCohort(ctx, *cohortID)
		if err != nil {
			return fmt.Errorf("loading cohort %s: %w", cohortID, err)
		}
	} else if program.Type == db_models.ProgramTypeGroup {
		cohort, err = s.programRepo.FindEarliestOpenCohort(ctx, program.ID)
		if err != nil {
			return fmt.Errorf("finding open cohort for program %s: %w", program.ID, err)
		}
		if cohort != nil {
			cohortID = &cohort.ID
			if err := s.programRepo.IncrementCohortEnrollment(ctx, cohort.ID); err != nil {
				return fmt.Errorf("incrementing cohort enrollment for %s: %w", cohort.ID, err)
			}
		}
	}

	now := time.Now().Unix()
	status := db_models.EnrollmentStatusActive
	startedAt := now
	if cohort != nil && cohort.StartDate > now {
		status = db_models.EnrollmentStatusUpcoming
		startedAt = cohort.StartDate
	}

	amount := intent.Amount
	if amount == 0 {
		amount = program.PriceMinor
	}
	if invite != nil && invite.PrePaid {
		amount = 0
	}

	enrollment := &db_models.ProgramEnrollment{
		UserID:                user.ID,
		ProgramID:             program.ID,
		OrganizationID:        session.OrganizationID,
		CohortID:              cohortID,
		SquadID:               squadID,
		StripePaymentIntentID: intent.ID,
		AmountPaid:            amount,
		Status:                status,
		StartedAt:             startedAt,
	}
	if err := s.enrollmentRepo.Create(ctx, enrollment); err != nil {
		return fmt.Errorf("creating enrollment for %s: %w", intent.ID, err)
	}

	if err := s.flowRepo.MarkCompleted(ctx, session.ID, intent.ID); err != nil {
		return fmt.Errorf("completing flow session %s: %w", session.ID, err)
	}

	s.updateUserProfile(ctx, user, session, program, enrollment)

	if squadID != nil {
		// The user is enrolled and in the new squad already; archiving old
		// squad rows is cleanup, not a correctness requirement.
		if err := s.squadRepo.CreateMembership(ctx, user.ID, *squadID); err != nil {
			s.logger.Error("creating squad membership failed",
				zap.String("user_id", user.ID.String()), zap.Error(err))
		}
		if err := s.squadRepo.ArchiveOtherMemberships(ctx, user.ID, *squadID); err != nil {
			s.logger.Error("archiving prior squad memberships failed",
				zap.String("user_id", user.ID.String()), zap.Error(err))
		}
	}

	return nil
}

func (s *EnrollmentService) updateUserProfile(ctx context.Context, user *db_models.User, session *db_models.FlowSession, program *db_models.Program, enrollment *db_models.ProgramEnrollment) {
	fields := map[string]interface{}{
		"current_organization_id": session.OrganizationID,
		"current_program_id":      program.ID,
		"current_enrollment_id":   enrollment.ID,
	}

	if len(session.Data) > 0 {
		answers := map[string]string{}
		if err := json.Unmarshal(session.Data, &answers); err == nil {
			for _, key := range funnelProfileFields {
				if v, ok := answers[key]; ok && v != "" {
					fields[key] = v
				}
			}
		}
	}

	if err := s.userRepo.UpdateFields(ctx, user.ID, fields); err != nil {
		s.logger.Error("updating user profile after enrollment failed",
			zap.String("user_id", user.ID.String()), zap.Error(err))
	}
}

func (s *EnrollmentService) resolveUser(ctx context.Context, raw string) (*db_models.User, error) {
	if raw == "" {
		return nil, nil
	}
	if id, err := uuid.Parse(raw); err == nil {
		return s.userRepo.FindByID(ctx, id)
	}
	return s.userRepo.FindByClerkID(ctx, raw)
}
