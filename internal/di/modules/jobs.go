package modules

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"github.com/tranvuongduy2003/jobrunner/internal/core/handler"
	"github.com/tranvuongduy2003/jobrunner/internal/core/runtime"
	"github.com/tranvuongduy2003/jobrunner/internal/core/serializer"
	"github.com/tranvuongduy2003/jobrunner/internal/infrastructure/jobs/handlers"
	"github.com/tranvuongduy2003/jobrunner/internal/infrastructure/logger"
)

// JobsModule registers the built-in job handlers against the shared
// HandlerRegistry and starts/stops the background processing pipeline.
// Handlers are provided here, rather than in the infrastructure module,
// because they are a pluggable extension point: a deployment that needs
// no email/file-processing demo handlers can swap this module out without
// touching the pipeline itself.
var JobsModule = fx.Module("jobs",
	fx.Provide(
		NewEmailService,
		NewEmailHandler,
		NewFileProcessingService,
		NewStorageService,
		NewFileProcessingHandler,
	),
	fx.Invoke(RegisterHandlers, RegisterBackgroundServiceLifecycle),
)

// NewEmailService provides the email delivery collaborator. The default
// wiring uses MockEmailService; swap this provider for a real SMTP/
// transactional-email client in production.
func NewEmailService() handlers.EmailService {
	return handlers.NewMockEmailService()
}

func NewEmailHandler(svc handlers.EmailService, s serializer.Serializer) *handlers.EmailHandler {
	return handlers.NewEmailHandler(svc, s)
}

// NewFileProcessingService provides the media-processing collaborator.
func NewFileProcessingService() handlers.FileProcessingService {
	return handlers.NewMockFileProcessingService()
}

// NewStorageService provides the file storage collaborator.
func NewStorageService() handlers.StorageService {
	return handlers.NewMockStorageService()
}

func NewFileProcessingHandler(fileSvc handlers.FileProcessingService, storageSvc handlers.StorageService, s serializer.Serializer) *handlers.FileProcessingHandler {
	return handlers.NewFileProcessingHandler(fileSvc, storageSvc, s)
}

// RegisterHandlersParams collects every Handler this module wires, so
// adding a new one only means adding a field here.
type RegisterHandlersParams struct {
	fx.In
	Registry      *handler.Registry
	EmailHandler  *handlers.EmailHandler
	FileProcessor *handlers.FileProcessingHandler
}

// RegisterHandlers registers the built-in handlers against the shared
// registry before the background service starts claiming jobs.
func RegisterHandlers(p RegisterHandlersParams) {
	p.Registry.Register(p.EmailHandler)
	p.Registry.Register(p.FileProcessor)
}

// RegisterBackgroundServiceLifecycle starts the producer/consumer
// pipeline on application start and drains it on stop.
func RegisterBackgroundServiceLifecycle(lc fx.Lifecycle, svc *runtime.Service, log *logger.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := svc.Start(ctx); err != nil {
				return fmt.Errorf("failed to start background service: %w", err)
			}
			log.Info("background job service started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("stopping background job service...")
			return svc.Stop(ctx)
		},
	})
}
