package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"coachbill/internal/models/db_models"
)

// IdentityConfig points at the identity provider's backend API. Billing and
// coaching state get mirrored into per-user public metadata so request-time
// authorization never has to touch the record store.
type IdentityConfig struct {
	BaseURL   string // e.g. https://api.clerk.com/v1
	SecretKey string
}

type IdentitySyncInterface interface {
	SyncMembership(ctx context.Context, clerkUserID string, tier db_models.Tier, status db_models.BillingStatus, periodEnd int64) error
	SyncCoaching(ctx context.Context, clerkUserID string, status db_models.CoachingStatus, plan string, endsAt int64) error
}

func NewIdentitySync(cfg IdentityConfig) IdentitySyncInterface {
	return &identitySync{
		cfg: cfg,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type identitySync struct {
	cfg    IdentityConfig
	client *http.Client
}

func (s *identitySync) SyncMembership(ctx context.Context, clerkUserID string, tier db_models.Tier, status db_models.BillingStatus, periodEnd int64) error {
	return s.patchMetadata(ctx, clerkUserID, map[string]interface{}{
		"tier":               tier,
		"billing_status":     status,
		"current_period_end": periodEnd,
	})
}

func (s *identitySync) SyncCoaching(ctx context.Context, clerkUserID string, status db_models.CoachingStatus, plan string, endsAt int64) error {
	return s.patchMetadata(ctx, clerkUserID, map[string]interface{}{
		"coaching_status":  status,
		"coaching_plan":    plan,
		"coaching_ends_at": endsAt,
	})
}

func (s *identitySync) patchMetadata(ctx context.Context, clerkUserID string, publicMetadata map[string]interface{}) error {
	body, err := json.Marshal(map[string]interface{}{
		"public_metadata": publicMetadata,
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/users/%s/metadata", s.cfg.BaseURL, clerkUserID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("identity metadata patch failed: %s", resp.Status)
	}
	return nil
}
