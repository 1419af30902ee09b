package response_models

type BillingStateResponse struct {
	Tier              string `json:"tier"`
	Plan              string `json:"plan,omitempty"`
	Status            string `json:"status,omitempty"`
	CurrentPeriodEnd  int64  `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd bool   `json:"cancel_at_period_end"`
	StartedWithTrial  bool   `json:"started_with_trial"`

	CoachingStatus string `json:"coaching_status"`
	CoachingPlan   string `json:"coaching_plan,omitempty"`
	CoachingEndsAt int64  `json:"coaching_ends_at,omitempty"`
}

type CreateCheckoutResponse struct {
	CheckoutURL   string `json:"checkout_url"`
	SessionID     string `json:"session_id"`
	FlowSessionID string `json:"flow_session_id,omitempty"`
}
