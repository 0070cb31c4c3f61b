package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/windlass-io/windlass/pkg/dispatch"
	"github.com/windlass-io/windlass/pkg/engine"
	"github.com/windlass-io/windlass/pkg/eventbus"
	"github.com/windlass-io/windlass/pkg/executor"
	"github.com/windlass-io/windlass/pkg/log"
	"github.com/windlass-io/windlass/pkg/otelhelper"
	"github.com/windlass-io/windlass/pkg/registry"
	"github.com/windlass-io/windlass/pkg/snapshot"
	"github.com/windlass-io/windlass/pkg/web"
)

const defaultPort = 9091

func APICommand() *cli.Command {
	return &cli.Command{
		Name:    "api",
		Aliases: []string{"a"},
		Usage:   "Start the execution API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "snapshot-url",
				Usage:   "Snapshot store URL (memory://, redis://..., postgres://...)",
				Value:   "memory://",
				Sources: cli.EnvVars("SNAPSHOT_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.DurationFlag{
				Name:    "snapshot-ttl",
				Usage:   "Retention window for execution snapshots",
				Value:   snapshot.DefaultTTL,
				Sources: cli.EnvVars("SNAPSHOT_TTL"),
			},
			&cli.StringFlag{
				Name:    "workflows",
				Usage:   "Directory of workflow JSON files whose trigger sources run in-process",
				Sources: cli.EnvVars("WORKFLOWS_DIR"),
			},
			&cli.DurationFlag{
				Name:    "execution-timeout",
				Usage:   "Upper bound for one execution (0 disables)",
				Value:   0,
				Sources: cli.EnvVars("EXECUTION_TIMEOUT"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export OTLP traces for executions and node attempts",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: runAPI,
	}
}

func runAPI(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	logger := log.WithModule("api")
	logger.InfoContext(ctx, "Initializing Windlass API")

	reg := registry.NewDefaultRegistry(logger)

	store, err := snapshot.NewStore(ctx, logger, command.String("snapshot-url"))
	if err != nil {
		return fmt.Errorf("failed to create snapshot store: %w", err)
	}

	defer func() {
		if err := store.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close snapshot store", "error", err)
		}
	}()

	bus, err := eventbus.NewEventBus(command.String("event-bus"))
	if err != nil {
		return fmt.Errorf("failed to create event bus: %w", err)
	}

	defer func() {
		if err := bus.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	executorOpts := []executor.Option{}
	engineOpts := []engine.Option{}

	if command.Bool("tracing") {
		tracer, err := otelhelper.NewTracer(ctx, "windlass")
		if err != nil {
			return fmt.Errorf("failed to initialize tracer: %w", err)
		}

		executorOpts = append(executorOpts, executor.WithTracer(tracer))
		engineOpts = append(engineOpts, engine.WithTracer(tracer))
	}

	manager := snapshot.NewManager(store, command.Duration("snapshot-ttl"), logger)
	exec := executor.NewExecutor(reg, logger, executorOpts...)

	eng := engine.New(reg, exec, manager, bus, logger, engine.Config{
		ExecutionTimeout: command.Duration("execution-timeout"),
	}, engineOpts...)

	if dir := command.String("workflows"); dir != "" {
		dispatcher := dispatch.NewDispatcher(eng, reg, logger)

		workflows, err := dispatch.LoadWorkflows(dir)
		if err != nil {
			return fmt.Errorf("failed to load workflows: %w", err)
		}

		for _, wf := range workflows {
			if err := dispatcher.Register(wf); err != nil {
				return fmt.Errorf("failed to register workflow triggers: %w", err)
			}
		}

		if err := dispatcher.Start(ctx); err != nil {
			return fmt.Errorf("failed to start triggers: %w", err)
		}

		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer stopCancel()

			if err := dispatcher.Stop(stopCtx); err != nil {
				logger.ErrorContext(ctx, "Failed to stop triggers", "error", err)
			}
		}()
	}

	handlers := web.NewAPIHandlers(eng, reg, logger)
	app := handlers.App()

	errCh := make(chan error, 1)

	go func() {
		errCh <- app.Listen(":" + strconv.Itoa(command.Int("port")))
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.InfoContext(ctx, "Shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.ErrorContext(ctx, "Failed to shut down HTTP server", "error", err)
	}

	return eng.Close(shutdownCtx)
}
