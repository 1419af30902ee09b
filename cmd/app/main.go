package main

import (
	"context"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"log"
	"os"

	"coachbill/cmd/fx/billing_fx"
	"coachbill/cmd/fx/checkout_fx"
	"coachbill/cmd/fx/db_fx"
	"coachbill/cmd/fx/enrollment_fx"
	"coachbill/cmd/fx/identity_fx"
	"coachbill/cmd/fx/logger_fx"
	"coachbill/cmd/fx/mail_fx"
	"coachbill/internal/api/controllers"
	"coachbill/internal/infra"
	"coachbill/pkg/middleware"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file loaded, relying on environment")
	}

	app := fx.New(
		logger_fx.Module,
		db_fx.Module,
		identity_fx.Module,
		mail_fx.Module,
		billing_fx.Module,
		enrollment_fx.Module,
		checkout_fx.Module,

		fx.Provide(ProvideRouter),
		fx.Invoke(StartServer),
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger}
		}),
	)

	app.Run()
}

func StartServer(lc fx.Lifecycle, engine *gin.Engine, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := os.Getenv("PORT")
				if port == "" {
					port = "8080"
				}
				logger.Info("Starting HTTP server", zap.String("port", port))
				if err := engine.Run(":" + port); err != nil {
					logger.Fatal("Failed to start server", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping HTTP server")
			return nil
		},
	})
}

func ProvideRouter(
	webhookController *controllers.WebhookController,
	billingController *controllers.BillingController) *gin.Engine {

	r := gin.Default()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.TraceIDMiddleware())

	RegisterRoutes(r, webhookController, billingController)

	return r
}

func RegisterRoutes(r *gin.Engine,
	webhookController *controllers.WebhookController,
	billingController *controllers.BillingController) {

	// Signature-verified, never JWT-guarded.
	r.POST("/webhooks/stripe", webhookController.HandleStripeWebhook)

	r.GET("/metrics", infra.MetricsHandler())

	billingGroup := r.Group("/billing")
	billingGroup.POST("/funnel", billingController.StartFunnel)

	authed := billingGroup.Group("", middleware.JWTAuthMiddleware())
	authed.GET("/state", billingController.GetBillingState)
	authed.POST("/checkout", billingController.CreateCheckout)
	authed.POST("/funnel/checkout", billingController.CreateFunnelCheckout)
	authed.POST("/content/checkout", billingController.CreateContentCheckout)
}
