package enrollment_fx

import (
	"go.uber.org/fx"

	"coachbill/internal/services"
)

var Module = fx.Provide(
	services.NewEnrollmentService,
)
