package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"coachbill/internal/models/db_models"
	"github.com/google/uuid"
)

type enrollmentFixture struct {
	svc            *EnrollmentService
	userRepo       *fakeUserRepo
	programRepo    *fakeProgramRepo
	enrollmentRepo *fakeEnrollmentRepo
	flowRepo       *fakeFlowRepo
	squadRepo      *fakeSquadRepo
}

func newEnrollmentFixture(users ...*db_models.User) *enrollmentFixture {
	f := &enrollmentFixture{
		userRepo:       newFakeUserRepo(users...),
		programRepo:    newFakeProgramRepo(),
		enrollmentRepo: &fakeEnrollmentRepo{},
		flowRepo:       newFakeFlowRepo(),
		squadRepo:      &fakeSquadRepo{},
	}
	f.svc = NewEnrollmentService(f.userRepo, f.programRepo, f.enrollmentRepo, f.flowRepo, f.squadRepo, zap.NewNop()).(*EnrollmentService)
	return f
}

func testUser() *db_models.User {
	u := &db_models.User{ClerkUserID: "clerk_1"}
	u.ID = uuid.New()
	return u
}

func funnelIntent(intentID string, sessionID uuid.UUID, userID uuid.UUID, amount int64) *stripe.PaymentIntent {
	return &stripe.PaymentIntent{
		ID:     intentID,
		Amount: amount,
		Metadata: map[string]string{
			"type":          "funnel_payment",
			"flowSessionId": sessionID.String(),
			"userId":        userID.String(),
		},
	}
}

func TestContentPurchaseCreated(t *testing.T) {
	user := testUser()
	f := newEnrollmentFixture(user)

	intent := &stripe.PaymentIntent{
		ID:     "pi_content_1",
		Amount: 4900,
		Metadata: map[string]string{
			"type":        "content_purchase",
			"userId":      user.ID.String(),
			"contentType": "course",
			"contentId":   "course_42",
		},
	}
	require.NoError(t, f.svc.HandlePaymentIntentSucceeded(context.Background(), intent))

	require.Len(t, f.enrollmentRepo.purchases, 1)
	p := f.enrollmentRepo.purchases[0]
	assert.Equal(t, user.ID, p.UserID)
	assert.Equal(t, db_models.ContentTypeCourse, p.ContentType)
	assert.Equal(t, "course_42", p.ContentID)
	assert.Equal(t, int64(4900), p.AmountPaid)
	assert.Equal(t, "pi_content_1", p.StripePaymentIntentID)
}

func TestContentPurchaseIdempotentOnRedelivery(t *testing.T) {
	user := testUser()
	f := newEnrollmentFixture(user)

	intent := &stripe.PaymentIntent{
		ID:     "pi_content_1",
		Amount: 4900,
		Metadata: map[string]string{
			"type":        "content_purchase",
			"userId":      user.ID.String(),
			"contentType": "article",
			"contentId":   "a_1",
		},
	}
	require.NoError(t, f.svc.HandlePaymentIntentSucceeded(context.Background(), intent))
	require.NoError(t, f.svc.HandlePaymentIntentSucceeded(context.Background(), intent))

	assert.Len(t, f.enrollmentRepo.purchases, 1)
}

func TestContentPurchaseMissingMetadataAcked(t *testing.T) {
	f := newEnrollmentFixture(testUser())

	intent := &stripe.PaymentIntent{
		ID:       "pi_content_2",
		Metadata: map[string]string{"type": "content_purchase", "contentType": "video"},
	}
	require.NoError(t, f.svc.HandlePaymentIntentSucceeded(context.Background(), intent))
	assert.Empty(t, f.enrollmentRepo.purchases)
}

func TestUnrelatedIntentIgnored(t *testing.T) {
	f := newEnrollmentFixture(testUser())

	intent := &stripe.PaymentIntent{ID: "pi_other", Metadata: map[string]string{"type": "tip_jar"}}
	require.NoError(t, f.svc.HandlePaymentIntentSucceeded(context.Background(), intent))
	assert.Empty(t, f.enrollmentRepo.purchases)
	assert.Empty(t, f.enrollmentRepo.enrollments)
}

func TestFunnelPaymentCreatesEnrollmentAndCompletesSession(t *testing.T) {
	user := testUser()
	f := newEnrollmentFixture(user)

	orgID := uuid.New()
	program := &db_models.Program{Type: db_models.ProgramTypeIndividual, OrganizationID: orgID, PriceMinor: 19900}
	program.ID = uuid.New()
	f.programRepo.programs[program.ID] = program

	session := &db_models.FlowSession{
		ProgramID:      &program.ID,
		OrganizationID: orgID,
		Data:           datatypes.JSON([]byte(`{"goal":"ship it","identity":"builder","favoriteColor":"green"}`)),
	}
	session.ID = uuid.New()
	f.flowRepo.sessions[session.ID] = session

	intent := funnelIntent("pi_funnel_1", session.ID, user.ID, 19900)
	require.NoError(t, f.svc.HandlePaymentIntentSucceeded(context.Background(), intent))

	require.Len(t, f.enrollmentRepo.enrollments, 1)
	e := f.enrollmentRepo.enrollments[0]
	assert.Equal(t, user.ID, e.UserID)
	assert.Equal(t, program.ID, e.ProgramID)
	assert.Equal(t, orgID, e.OrganizationID)
	assert.Equal(t, "pi_funnel_1", e.StripePaymentIntentID)
	assert.Equal(t, int64(19900), e.AmountPaid)
	assert.Equal(t, db_models.EnrollmentStatusActive, e.Status)
	assert.Nil(t, e.CohortID, "individual program gets no cohort")

	require.NotNil(t, f.flowRepo.sessions[session.ID].CompletedAt)

	// Profile update copies only allow-listed answers.
	fields := f.userRepo.lastUpdate()
	require.NotNil(t, fields)
	assert.Equal(t, "ship it", fields["goal"])
	assert.Equal(t, "builder", fields["identity"])
	assert.NotContains(t, fields, "favoriteColor")
	assert.Equal(t, e.ID, fields["current_enrollment_id"])
	assert.Equal(t, program.ID, fields["current_program_id"])
}

func TestFunnelPaymentIdempotentWhenSessionCompleted(t *testing.T) {
	user := testUser()
	f := newEnrollmentFixture(user)

	done := time.Now().Unix()
	session := &db_models.FlowSession{CompletedAt: &done}
	session.ID = uuid.New()
	f.flowRepo.sessions[session.ID] = session

	intent := funnelIntent("pi_funnel_1", session.ID, user.ID, 100)
	require.NoError(t, f.svc.HandlePaymentIntentSucceeded(context.Background(), intent))
	assert.Empty(t, f.enrollmentRepo.enrollments)
}

func TestFunnelPaymentPartialRetryCompletesSessionOnly(t *testing.T) {
	user := testUser()
	f := newEnrollmentFixture(user)

	programID := uuid.New()
	session := &db_models.FlowSession{ProgramID: &programID}
	session.ID = uuid.New()
	f.flowRepo.sessions[session.ID] = session

	// Enrollment already written on a previous delivery that died before the
	// session was finalized.
	f.enrollmentRepo.enrollments = append(f.enrollmentRepo.enrollments, &db_models.ProgramEnrollment{
		StripePaymentIntentID: "pi_funnel_1",
	})

	intent := funnelIntent("pi_funnel_1", session.ID, user.ID, 100)
	require.NoError(t, f.svc.HandlePaymentIntentSucceeded(context.Background(), intent))

	assert.Len(t, f.enrollmentRepo.enrollments, 1, "no second enrollment")
	assert.NotNil(t, f.flowRepo.sessions[session.ID].CompletedAt)
	assert.Empty(t, f.programRepo.inviteIncrements)
}

func TestFunnelPaymentAssignsEarliestOpenCohort(t *testing.T) {
	user := testUser()
	f := newEnrollmentFixture(user)

	program := &db_models.Program{Type: db_models.ProgramTypeGroup, PriceMinor: 50000}
	program.ID = uuid.New()
	f.programRepo.programs[program.ID] = program

	futureStart := time.Now().Add(14 * 24 * time.Hour).Unix()
	cohort := &db_models.Cohort{ProgramID: program.ID, Status: db_models.CohortStatusUpcoming, IsOpen: true, StartDate: futureStart}
	cohort.ID = uuid.New()
	f.programRepo.openCohort = cohort
	f.programRepo.cohorts[cohort.ID] = cohort

	session := &db_models.FlowSession{ProgramID: &program.ID}
	session.ID = uuid.New()
	f.flowRepo.sessions[session.ID] = session

	intent := funnelIntent("pi_funnel_2", session.ID, user.ID, 0)
	require.NoError(t, f.svc.HandlePaymentIntentSucceeded(context.Background(), intent))

	require.Len(t, f.enrollmentRepo.enrollments, 1)
	e := f.enrollmentRepo.enrollments[0]
	require.NotNil(t, e.CohortID)
	assert.Equal(t, cohort.ID, *e.CohortID)
	assert.Equal(t, db_models.EnrollmentStatusUpcoming, e.Status, "future cohort start means upcoming")
	assert.Equal(t, futureStart, e.StartedAt)
	assert.Equal(t, int64(50000), e.AmountPaid, "zero-amount intent falls back to list price")

	require.Len(t, f.programRepo.cohortIncrements, 1)
	assert.Equal(t, int32(1), cohort.CurrentEnrollment)
}

func TestFunnelPaymentInviteTargetsAndPrePaid(t *testing.T) {
	user := testUser()
	f := newEnrollmentFixture(user)

	program := &db_models.Program{Type: db_models.ProgramTypeGroup, PriceMinor: 50000}
	program.ID = uuid.New()
	f.programRepo.programs[program.ID] = program

	pastStart := time.Now().Add(-24 * time.Hour).Unix()
	cohort := &db_models.Cohort{ProgramID: program.ID, Status: db_models.CohortStatusActive, IsOpen: true, StartDate: pastStart}
	cohort.ID = uuid.New()
	f.programRepo.cohorts[cohort.ID] = cohort

	squadID := uuid.New()
	invite := &db_models.Invite{ProgramID: program.ID, TargetCohortID: &cohort.ID, TargetSquadID: &squadID, PrePaid: true}
	invite.ID = uuid.New()
	f.programRepo.invites[invite.ID] = invite

	session := &db_models.FlowSession{ProgramID: &program.ID, InviteID: &invite.ID}
	session.ID = uuid.New()
	f.flowRepo.sessions[session.ID] = session

	intent := funnelIntent("pi_funnel_3", session.ID, user.ID, 0)
	require.NoError(t, f.svc.HandlePaymentIntentSucceeded(context.Background(), intent))

	require.Len(t, f.enrollmentRepo.enrollments, 1)
	e := f.enrollmentRepo.enrollments[0]
	require.NotNil(t, e.CohortID)
	assert.Equal(t, cohort.ID, *e.CohortID)
	require.NotNil(t, e.SquadID)
	assert.Equal(t, squadID, *e.SquadID)
	assert.Equal(t, int64(0), e.AmountPaid, "pre-paid invite zeroes the amount")
	assert.Equal(t, db_models.EnrollmentStatusActive, e.Status)

	// Invite consumed exactly once, and the invite's cohort pin bypasses the
	// open-cohort search and its counter bump.
	require.Len(t, f.programRepo.inviteIncrements, 1)
	assert.Equal(t, int32(1), invite.UseCount)
	assert.Equal(t, user.ID, *invite.UsedBy)
	assert.Empty(t, f.programRepo.cohortIncrements)

	// Squad assignment: join the target, archive the rest.
	require.Len(t, f.squadRepo.created, 1)
	assert.Equal(t, squadID, f.squadRepo.created[0])
	assert.Len(t, f.squadRepo.archived, 1)
}

func TestFunnelPaymentUnknownSessionAcked(t *testing.T) {
	f := newEnrollmentFixture(testUser())

	intent := funnelIntent("pi_funnel_4", uuid.New(), uuid.New(), 100)
	require.NoError(t, f.svc.HandlePaymentIntentSucceeded(context.Background(), intent))
	assert.Empty(t, f.enrollmentRepo.enrollments)
}

func TestFunnelPaymentWithoutSessionIDIgnored(t *testing.T) {
	f := newEnrollmentFixture(testUser())

	intent := &stripe.PaymentIntent{ID: "pi_funnel_5", Metadata: map[string]string{"type": "funnel_payment"}}
	require.NoError(t, f.svc.HandlePaymentIntentSucceeded(context.Background(), intent))
	assert.Empty(t, f.enrollmentRepo.enrollments)
}
