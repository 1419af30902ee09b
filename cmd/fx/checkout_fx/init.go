package checkout_fx

import (
	"go.uber.org/fx"

	"coachbill/internal/api/controllers"
	"coachbill/internal/services"
)

var Module = fx.Provide(
	services.NewCheckoutService,
	controllers.NewBillingController,
)
