package request_models

type CreateCheckoutRequest struct {
	// "trial", "standard" or "premium" for membership plans,
	// "coaching_monthly" or "coaching_quarterly" for the coaching add-on.
	Plan           string `json:"plan" binding:"required"`
	OrganizationID string `json:"organization_id" binding:"required"`
	SuccessURL     string `json:"success_url"`
	CancelURL      string `json:"cancel_url"`
}

type FunnelCheckoutRequest struct {
	FlowSessionID string `json:"flow_session_id" binding:"required"`
	SuccessURL    string `json:"success_url"`
	CancelURL     string `json:"cancel_url"`
}

type ContentCheckoutRequest struct {
	ContentType    string `json:"content_type" binding:"required"`
	ContentID      string `json:"content_id" binding:"required"`
	OrganizationID string `json:"organization_id"`
	AmountMinor    int64  `json:"amount_minor" binding:"required"`
	Currency       string `json:"currency"`
	Name           string `json:"name"`
	SuccessURL     string `json:"success_url"`
	CancelURL      string `json:"cancel_url"`
}

type StartFunnelRequest struct {
	ProgramID      string            `json:"program_id" binding:"required"`
	OrganizationID string            `json:"organization_id" binding:"required"`
	InviteID       string            `json:"invite_id"`
	Answers        map[string]string `json:"answers"`
}
