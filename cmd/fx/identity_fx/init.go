package identity_fx

import (
	"go.uber.org/fx"
	"os"

	"coachbill/internal/services"
)

var Module = fx.Provide(
	provideIdentitySync,
)

func provideIdentitySync() services.IdentitySyncInterface {
	cfg := services.IdentityConfig{
		BaseURL:   os.Getenv("CLERK_API_BASE_URL"),
		SecretKey: os.Getenv("CLERK_SECRET_KEY"),
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.clerk.com/v1"
	}
	return services.NewIdentitySync(cfg)
}
