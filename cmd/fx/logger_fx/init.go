package logger_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"log"
)

var Module = fx.Provide(
	provideLogger,
)

func provideLogger() *zap.Logger {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Printf("Error initializing zap logger: %v", err)
		return zap.NewNop()
	}
	return logger
}
