// SPDX-License-Identifier: AGPL-3.0-or-later
// xrd-ha-app - Cloud high-availability controller for redundant XRd routers
// Copyright (C) 2024-2026 the xrd-ha-app authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// The source code is available at <https://github.com/ios-xr/xrd-ha-app>

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ios-xr/xrd-ha-app/internal/action"
	"github.com/ios-xr/xrd-ha-app/internal/cloud"
	"github.com/ios-xr/xrd-ha-app/internal/config"
	"github.com/ios-xr/xrd-ha-app/internal/engine"
	"github.com/ios-xr/xrd-ha-app/internal/metrics"
	"github.com/ios-xr/xrd-ha-app/internal/telemetry"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func NewCommand(version, commit string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "xrd-ha-app",
		Version: fmt.Sprintf("%s - %s", version, commit),
		Annotations: map[string]string{
			"version": version,
			"commit":  commit,
		},
		RunE:              runRoot,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}
	cmd.Flags().String("config", config.DefaultPath, "path to the configuration file")
	return cmd
}

func runRoot(cmd *cobra.Command, _ []string) error {
	setupLogger()
	ctx := cmd.Context()
	slog.Info("xrd-ha-app starting",
		"version", cmd.Annotations["version"], "commit", cmd.Annotations["commit"])

	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to read config flag: %w", err)
	}

	cfg, table, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	slog.Info("Configuration loaded", "path", path, "groups", table.Len(), "port", cfg.Global.Port)

	cleanup, err := setupTracing(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup tracing: %w", err)
	}
	defer func() {
		if err := cleanup(context.Background()); err != nil {
			slog.Error("Failed to shutdown tracer", "error", err)
		}
	}()

	m := metrics.NewMetrics()
	go func() {
		if err := m.Serve(cfg.Global.MetricsPort); err != nil {
			slog.Error("Metrics server stopped", "error", err)
		}
	}()

	cloudClient, err := cloud.New(ctx, cfg.Global.AWS.EC2PrivateEndpointURL)
	if err != nil {
		return fmt.Errorf("failed to initialize cloud adapter: %w", err)
	}

	if err := validateResources(ctx, cloudClient, table); err != nil {
		return fmt.Errorf("cloud resource validation failed: %w", err)
	}

	interval := time.Duration(cfg.Global.ConsistencyCheckIntervalSeconds) * time.Second
	eng := engine.New(table, cloudClient, interval, m)

	telemetryServer := telemetry.NewServer(cfg.Global.Port, eng, m)
	if err := telemetryServer.Start(); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	setupShutdownHandler(cancel, telemetryServer, eng)

	// The reconcile loop owns the main goroutine for the life of the
	// process; shutdown happens from the signal handler.
	eng.RunReconcileLoop(runCtx)
	return nil
}

// setupLogger configures the structured logger. Everything goes to stderr
// and debug is always emitted so container logs support post-mortem triage.
func setupLogger() {
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelDebug})))
}

// validateResources confirms every cloud object referenced by the action
// table exists before the engine starts acting on it.
func validateResources(ctx context.Context, client cloud.Client, table *action.Table) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, key := range table.Keys() {
		act, ok := table.Get(key)
		if !ok {
			continue
		}
		switch a := act.(type) {
		case action.ActivateVIP:
			g.Go(func() error {
				if err := client.ValidateResource(ctx, cloud.ResourceDeviceIndex, strconv.Itoa(a.DeviceIndex)); err != nil {
					return fmt.Errorf("group %s: %w", key, err)
				}
				return nil
			})
		case action.UpdateRouteTable:
			g.Go(func() error {
				if err := client.ValidateResource(ctx, cloud.ResourceRouteTable, a.RouteTableID); err != nil {
					return fmt.Errorf("group %s: %w", key, err)
				}
				return nil
			})
			g.Go(func() error {
				if err := client.ValidateResource(ctx, cloud.ResourceNetworkInterface, a.TargetNetworkInterface); err != nil {
					return fmt.Errorf("group %s: %w", key, err)
				}
				return nil
			})
		}
	}
	return g.Wait()
}

// setupShutdownHandler installs the signal handler that performs an
// orderly teardown: stop accepting telemetry, drain in-flight go-active
// tasks, then exit. Correctness does not depend on the drain finishing;
// a fresh process rebuilds state from scratch.
func setupShutdownHandler(cancel context.CancelFunc, telemetryServer *telemetry.Server, eng *engine.Engine) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)

	go func() {
		sig := <-sigCh
		slog.Error("Shutting down due to signal", "signal", sig)
		cancel()

		done := make(chan struct{})
		go func() {
			defer close(done)
			telemetryServer.Stop()
			eng.Shutdown()
		}()

		select {
		case <-done:
			slog.Info("Shutdown completed")
			os.Exit(0)
		case <-time.After(shutdownTimeout):
			slog.Error("Shutdown timed out, forcing exit")
			os.Exit(1)
		}
	}()
}

// setupTracing initializes OpenTelemetry tracing if configured.
// When tracing is not configured it returns a no-op cleanup function.
func setupTracing(cfg *config.Config) (func(context.Context) error, error) {
	if cfg.Global.OTLPEndpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	return initTracer(cfg)
}

func initTracer(cfg *config.Config) (func(context.Context) error, error) {
	exporter, err := otlptrace.New(
		context.Background(),
		otlptracegrpc.NewClient(
			otlptracegrpc.WithInsecure(),
			otlptracegrpc.WithEndpoint(cfg.Global.OTLPEndpoint),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	resources, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			attribute.String("service.name", "xrd-ha-app"),
			attribute.String("library.language", "go"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace resources: %w", err)
	}

	otel.SetTracerProvider(
		sdktrace.NewTracerProvider(
			sdktrace.WithSampler(sdktrace.AlwaysSample()),
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(resources),
		),
	)
	return exporter.Shutdown, nil
}
