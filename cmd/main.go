package main

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/tranvuongduy2003/jobrunner/internal/di"
	"github.com/tranvuongduy2003/jobrunner/internal/domain"
	"github.com/tranvuongduy2003/jobrunner/internal/infrastructure"
	"github.com/tranvuongduy2003/jobrunner/internal/infrastructure/logger"
)

// This process is the API: it accepts job submissions and lookups over
// HTTP and hands them to the store. It does not claim or execute jobs
// itself; run cmd/worker for that half of the pipeline.
func main() {
	fx.New(
		infrastructure.InfrastructureModule,
		domain.DomainModule,
		di.ServerModule,

		fx.Invoke(infrastructure.InfrastructureLifecycle),

		fx.WithLogger(func(customLogger *logger.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: customLogger.Logger}
		}),
	).Run()
}
