package services

import (
	"context"
	"time"

	"github.com/stripe/stripe-go/v76"

	"coachbill/internal/models/db_models"
	"github.com/google/uuid"
)

// Hand-written fakes over the repository and gateway interfaces; tests drive
// the reconcilers against these instead of Postgres and Stripe.

type fakeUserRepo struct {
	users   map[uuid.UUID]*db_models.User
	updates []map[string]interface{}
	// userID of each update, parallel to updates
	updatedIDs []uuid.UUID
}

func newFakeUserRepo(users ...*db_models.User) *fakeUserRepo {
	r := &fakeUserRepo{users: map[uuid.UUID]*db_models.User{}}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) FindByID(_ context.Context, id uuid.UUID) (*db_models.User, error) {
	return r.users[id], nil
}

func (r *fakeUserRepo) FindByClerkID(_ context.Context, clerkUserID string) (*db_models.User, error) {
	for _, u := range r.users {
		if u.ClerkUserID == clerkUserID {
			return u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) FindByStripeCustomerID(_ context.Context, customerID string) (*db_models.User, error) {
	for _, u := range r.users {
		if u.StripeCustomerID == customerID {
			return u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) FindByCoachingSubscriptionID(_ context.Context, subscriptionID string) (*db_models.User, error) {
	for _, u := range r.users {
		if u.CoachingSubscriptionID == subscriptionID {
			return u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) UpdateFields(_ context.Context, userID uuid.UUID, fields map[string]interface{}) error {
	r.updates = append(r.updates, fields)
	r.updatedIDs = append(r.updatedIDs, userID)
	return nil
}

// allUpdatedKeys flattens the keys written across every recorded update.
func (r *fakeUserRepo) allUpdatedKeys() map[string]bool {
	keys := map[string]bool{}
	for _, fields := range r.updates {
		for k := range fields {
			keys[k] = true
		}
	}
	return keys
}

func (r *fakeUserRepo) lastUpdate() map[string]interface{} {
	if len(r.updates) == 0 {
		return nil
	}
	return r.updates[len(r.updates)-1]
}

type fakeMembershipRepo struct {
	tierUpdates []db_models.Tier
	userIDs     []uuid.UUID
	rows        int64
}

func (r *fakeMembershipRepo) UpdateTierForPlatformBilling(_ context.Context, userID uuid.UUID, tier db_models.Tier) (int64, error) {
	r.tierUpdates = append(r.tierUpdates, tier)
	r.userIDs = append(r.userIDs, userID)
	return r.rows, nil
}

func (r *fakeMembershipRepo) ListActiveByUser(_ context.Context, _ uuid.UUID) ([]db_models.OrgMembership, error) {
	return nil, nil
}

type identityCall struct {
	clerkUserID string
	tier        db_models.Tier
	status      db_models.BillingStatus
	coaching    bool
}

type fakeIdentitySync struct {
	calls []identityCall
}

func (s *fakeIdentitySync) SyncMembership(_ context.Context, clerkUserID string, tier db_models.Tier, status db_models.BillingStatus, _ int64) error {
	s.calls = append(s.calls, identityCall{clerkUserID: clerkUserID, tier: tier, status: status})
	return nil
}

func (s *fakeIdentitySync) SyncCoaching(_ context.Context, clerkUserID string, _ db_models.CoachingStatus, _ string, _ int64) error {
	s.calls = append(s.calls, identityCall{clerkUserID: clerkUserID, coaching: true})
	return nil
}

type fakeGateway struct {
	subscription *stripe.Subscription

	createdSchedule *stripe.SubscriptionScheduleParams
	updatedSchedule *stripe.SubscriptionScheduleParams
	scheduleErr     error

	checkoutParams  *stripe.CheckoutSessionParams
	checkoutSession *stripe.CheckoutSession
}

func (g *fakeGateway) GetSubscription(_ string) (*stripe.Subscription, error) {
	return g.subscription, nil
}

func (g *fakeGateway) CreateCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	g.checkoutParams = params
	if g.checkoutSession != nil {
		return g.checkoutSession, nil
	}
	return &stripe.CheckoutSession{ID: "cs_test", URL: "https://checkout.test/cs_test"}, nil
}

func (g *fakeGateway) CreateSubscriptionSchedule(params *stripe.SubscriptionScheduleParams) (*stripe.SubscriptionSchedule, error) {
	if g.scheduleErr != nil {
		return nil, g.scheduleErr
	}
	g.createdSchedule = params
	return &stripe.SubscriptionSchedule{ID: "sub_sched_test"}, nil
}

func (g *fakeGateway) UpdateSubscriptionSchedule(_ string, params *stripe.SubscriptionScheduleParams) (*stripe.SubscriptionSchedule, error) {
	if g.scheduleErr != nil {
		return nil, g.scheduleErr
	}
	g.updatedSchedule = params
	return &stripe.SubscriptionSchedule{ID: "sub_sched_test"}, nil
}

type fakeAlerts struct {
	subjects []string
}

func (a *fakeAlerts) SendOpsAlert(subject, _ string) error {
	a.subjects = append(a.subjects, subject)
	return nil
}

type fakeProgramRepo struct {
	programs map[uuid.UUID]*db_models.Program
	cohorts  map[uuid.UUID]*db_models.Cohort
	invites  map[uuid.UUID]*db_models.Invite

	openCohort *db_models.Cohort

	cohortIncrements []uuid.UUID
	inviteIncrements []uuid.UUID
}

func newFakeProgramRepo() *fakeProgramRepo {
	return &fakeProgramRepo{
		programs: map[uuid.UUID]*db_models.Program{},
		cohorts:  map[uuid.UUID]*db_models.Cohort{},
		invites:  map[uuid.UUID]*db_models.Invite{},
	}
}

func (r *fakeProgramRepo) GetProgram(_ context.Context, id uuid.UUID) (*db_models.Program, error) {
	return r.programs[id], nil
}

func (r *fakeProgramRepo) GetCohort(_ context.Context, id uuid.UUID) (*db_models.Cohort, error) {
	return r.cohorts[id], nil
}

func (r *fakeProgramRepo) GetInvite(_ context.Context, id uuid.UUID) (*db_models.Invite, error) {
	return r.invites[id], nil
}

func (r *fakeProgramRepo) FindEarliestOpenCohort(_ context.Context, _ uuid.UUID) (*db_models.Cohort, error) {
	return r.openCohort, nil
}

func (r *fakeProgramRepo) IncrementCohortEnrollment(_ context.Context, cohortID uuid.UUID) error {
	r.cohortIncrements = append(r.cohortIncrements, cohortID)
	if c, ok := r.cohorts[cohortID]; ok {
		c.CurrentEnrollment++
	} else if r.openCohort != nil && r.openCohort.ID == cohortID {
		r.openCohort.CurrentEnrollment++
	}
	return nil
}

func (r *fakeProgramRepo) IncrementInviteUse(_ context.Context, inviteID uuid.UUID, usedBy uuid.UUID) error {
	r.inviteIncrements = append(r.inviteIncrements, inviteID)
	if inv, ok := r.invites[inviteID]; ok {
		inv.UseCount++
		inv.UsedBy = &usedBy
	}
	return nil
}

type fakeEnrollmentRepo struct {
	enrollments []*db_models.ProgramEnrollment
	purchases   []*db_models.ContentPurchase
}

func (r *fakeEnrollmentRepo) FindByPaymentIntent(_ context.Context, paymentIntentID string) (*db_models.ProgramEnrollment, error) {
	for _, e := range r.enrollments {
		if e.StripePaymentIntentID == paymentIntentID {
			return e, nil
		}
	}
	return nil, nil
}

func (r *fakeEnrollmentRepo) Create(_ context.Context, enrollment *db_models.ProgramEnrollment) error {
	if enrollment.ID == uuid.Nil {
		enrollment.ID = uuid.New()
	}
	r.enrollments = append(r.enrollments, enrollment)
	return nil
}

func (r *fakeEnrollmentRepo) FindPurchaseByPaymentIntent(_ context.Context, paymentIntentID string) (*db_models.ContentPurchase, error) {
	for _, p := range r.purchases {
		if p.StripePaymentIntentID == paymentIntentID {
			return p, nil
		}
	}
	return nil, nil
}

func (r *fakeEnrollmentRepo) CreatePurchase(_ context.Context, purchase *db_models.ContentPurchase) error {
	r.purchases = append(r.purchases, purchase)
	return nil
}

type fakeFlowRepo struct {
	sessions map[uuid.UUID]*db_models.FlowSession
}

func newFakeFlowRepo(sessions ...*db_models.FlowSession) *fakeFlowRepo {
	r := &fakeFlowRepo{sessions: map[uuid.UUID]*db_models.FlowSession{}}
	for _, s := range sessions {
		r.sessions[s.ID] = s
	}
	return r
}

func (r *fakeFlowRepo) Get(_ context.Context, id uuid.UUID) (*db_models.FlowSession, error) {
	return r.sessions[id], nil
}

func (r *fakeFlowRepo) Create(_ context.Context, session *db_models.FlowSession) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	r.sessions[session.ID] = session
	return nil
}

func (r *fakeFlowRepo) MarkCompleted(_ context.Context, id uuid.UUID, _ string) error {
	if s, ok := r.sessions[id]; ok {
		now := time.Now().Unix()
		s.CompletedAt = &now
	}
	return nil
}

type fakeSquadRepo struct {
	created  []uuid.UUID
	archived []uuid.UUID
}

func (r *fakeSquadRepo) CreateMembership(_ context.Context, _ uuid.UUID, squadID uuid.UUID) error {
	r.created = append(r.created, squadID)
	return nil
}

func (r *fakeSquadRepo) ArchiveOtherMemberships(_ context.Context, userID uuid.UUID, _ uuid.UUID) error {
	r.archived = append(r.archived, userID)
	return nil
}

type fakeEventRepo struct {
	recorded  []string
	processed map[string]bool
	failed    map[string]string
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{processed: map[string]bool{}, failed: map[string]string{}}
}

func (r *fakeEventRepo) Record(_ context.Context, _, eventID, _ string, _ []byte) (bool, error) {
	for _, id := range r.recorded {
		if id == eventID {
			return false, nil
		}
	}
	r.recorded = append(r.recorded, eventID)
	return true, nil
}

func (r *fakeEventRepo) AlreadyProcessed(_ context.Context, _, eventID string) (bool, error) {
	return r.processed[eventID], nil
}

func (r *fakeEventRepo) MarkProcessed(_ context.Context, _, eventID string) error {
	r.processed[eventID] = true
	return nil
}

func (r *fakeEventRepo) MarkFailed(_ context.Context, _, eventID string, processingError string) error {
	r.failed[eventID] = processingError
	return nil
}
