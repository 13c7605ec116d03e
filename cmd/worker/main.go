package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/tranvuongduy2003/jobrunner/internal/core/handler"
	"github.com/tranvuongduy2003/jobrunner/internal/di/modules"
	"github.com/tranvuongduy2003/jobrunner/internal/domain"
	"github.com/tranvuongduy2003/jobrunner/internal/infrastructure"
	"github.com/tranvuongduy2003/jobrunner/internal/infrastructure/config"
	"github.com/tranvuongduy2003/jobrunner/internal/infrastructure/logger"
)

var rootCmd = &cobra.Command{
	Use:   "worker",
	Short: "Background worker for job processing",
	Long:  `Claims queued jobs from the shared store and executes them against the registered handlers.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func init() {
	rootCmd.AddCommand(startCommand())
	rootCmd.AddCommand(healthCommand())
	rootCmd.AddCommand(versionCommand())
}

// startCommand boots the real producer/consumer pipeline and blocks until
// an interrupt or SIGTERM, at which point fx drains in-flight jobs before
// exiting (see runtime.Service.Stop / cfg.Jobs.ShutdownGrace).
func startCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the background worker",
		Long:  `Start claiming and executing jobs until interrupted.`,
		Run: func(cmd *cobra.Command, args []string) {
			app := fx.New(
				infrastructure.InfrastructureModule,
				domain.DomainModule,
				modules.JobsModule,

				fx.Invoke(infrastructure.InfrastructureLifecycle),

				fx.WithLogger(func(customLogger *logger.Logger) fxevent.Logger {
					return &fxevent.ZapLogger{Logger: customLogger.Logger}
				}),
			)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := app.Start(ctx); err != nil {
				log.Fatalf("failed to start worker: %v", err)
			}

			<-ctx.Done()

			stopCtx, cancel := context.WithTimeout(context.Background(), app.StopTimeout())
			defer cancel()
			if err := app.Stop(stopCtx); err != nil {
				log.Fatalf("failed to stop worker cleanly: %v", err)
			}
		},
	}
}

// healthCommand performs a one-shot check of the dependencies the worker
// needs: Redis reachability and the set of handler names it would claim
// jobs for, without starting the consumer pool.
func healthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check worker dependencies",
		Long:  `Ping Redis and report the handlers this worker would register, without starting the pipeline.`,
		Run: func(cmd *cobra.Command, args []string) {
			app := fx.New(
				infrastructure.InfrastructureModule,
				domain.DomainModule,
				fx.Provide(
					modules.NewEmailService, modules.NewEmailHandler,
					modules.NewFileProcessingService, modules.NewStorageService, modules.NewFileProcessingHandler,
				),
				fx.Invoke(modules.RegisterHandlers),
				fx.Invoke(func(rdb redis.UniversalClient, registry *handler.Registry, cfg *config.AppConfig, log *logger.Logger) {
					ctx, cancel := context.WithTimeout(context.Background(), cfg.Redis.DialTimeout)
					defer cancel()

					if err := rdb.Ping(ctx).Err(); err != nil {
						fmt.Printf("redis: unreachable (%v)\n", err)
					} else {
						fmt.Println("redis: ok")
					}

					fmt.Printf("store backend: %s\n", cfg.Jobs.Store)
					fmt.Printf("handlers: %v\n", registry.Names())

					log.Info("worker health check completed", zap.Strings("handlers", registry.Names()))
				}),
				fx.NopLogger,
			)

			ctx := context.Background()
			if err := app.Start(ctx); err != nil {
				log.Fatalf("failed to perform health check: %v", err)
			}
			_ = app.Stop(ctx)
		},
	}
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show worker version",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.LoadConfig("configs/development.yaml")
			if err != nil {
				fmt.Println("version: unknown (failed to load config)")
				return
			}
			fmt.Printf("%s worker %s\n", cfg.App.Name, cfg.App.Version)
		},
	}
}
