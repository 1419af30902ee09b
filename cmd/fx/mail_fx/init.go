package mail_fx

import (
	"go.uber.org/fx"
	"os"
	"strconv"

	"coachbill/internal/services"
)

var Module = fx.Provide(provideAlertService)

func provideAlertService() services.IAlertService {

	port := 587 // 587 for STARTTLS; use 465 with UseSSL=true for SMTPS
	if raw := os.Getenv("SMTP_PORT"); raw != "" {
		if p, err := strconv.Atoi(raw); err == nil {
			port = p
		}
	}

	cfg := services.SMTPConfig{
		Host:       os.Getenv("SMTP_HOST"),
		Port:       port,
		Username:   os.Getenv("SMTP_USERNAME"),
		Password:   os.Getenv("SMTP_PASSWORD"), // use app password if 2FA is enabled
		From:       os.Getenv("SMTP_FROM"),
		FromName:   "Coachbill",
		OpsAddress: os.Getenv("OPS_ALERT_ADDRESS"),
		UseSSL:     port == 465,
		RequireTLS: true,
	}

	return services.NewSMTPAlertService(cfg)
}
