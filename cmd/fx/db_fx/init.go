package db_fx

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	"coachbill/internal/infra"
	"coachbill/internal/repositories"
)

// Repositories are shared across the billing, enrollment and checkout
// modules, so they live next to the DB they wrap.
var Module = fx.Provide(
	provideDB,
	repositories.NewUserRepository,
	repositories.NewMembershipRepository,
	repositories.NewProgramRepository,
	repositories.NewEnrollmentRepository,
	repositories.NewFlowSessionRepository,
	repositories.NewSquadRepository,
	repositories.NewWebhookEventRepository,
)

func provideDB() *gorm.DB {
	return infra.InitPostgresql()
}
