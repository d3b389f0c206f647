// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianSuperopt/pkg/telemetry"
	"github.com/AleutianAI/AleutianSuperopt/pkg/ux"
	"github.com/AleutianAI/AleutianSuperopt/services/superopt/mcts"
	"github.com/AleutianAI/AleutianSuperopt/services/superopt/program"
)

type runFlags struct {
	fixture fixtureFlags

	epochs        int
	rolloutSteps  int
	seed          uint64
	workers       int
	moves         []string
	strictReplace bool
	vecAdd        string
	scorer        string

	trace         bool
	traceExporter string
	otlpEndpoint  string
	metricsAddr   string

	treeDepth int
	profile   bool
	asJSON    bool
}

func newRunCmd(opts *globalOptions) *cobra.Command {
	f := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Search for a cheaper program with the same output as a fixture",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSearch(cmd, opts, f)
		},
	}

	f.fixture.register(cmd)
	fl := cmd.Flags()
	fl.IntVar(&f.epochs, "epochs", mcts.DefaultEpochs, "search epochs")
	fl.IntVar(&f.rolloutSteps, "rollout-steps", mcts.DefaultRolloutSteps, "random edits per rollout")
	fl.Uint64Var(&f.seed, "seed", 0, "random seed")
	fl.IntVar(&f.workers, "workers", mcts.DefaultWorkers, "independent parallel search trees")
	fl.StringSliceVar(&f.moves, "moves", nil, "move generators (remove, load_store_registers, add_commute, vecadd_fuse, adjacent_move)")
	fl.BoolVar(&f.strictReplace, "strict-replace", false, "make Replace remove the original instruction")
	fl.StringVar(&f.vecAdd, "vecadd", "", "VecAdd lane semantics: subtract or add")
	fl.StringVar(&f.scorer, "scorer", "", "rollout reward: gated or graduated")
	fl.BoolVar(&f.trace, "trace", false, "print OpenTelemetry spans to stderr")
	fl.StringVar(&f.traceExporter, "trace-exporter", "", "trace exporter: stdout, otlp or none")
	fl.StringVar(&f.otlpEndpoint, "otlp-endpoint", "", "OTLP gRPC endpoint for --trace-exporter otlp")
	fl.StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while searching")
	fl.IntVar(&f.treeDepth, "tree-depth", 0, "draw this many levels of the search tree")
	fl.BoolVar(&f.profile, "profile", false, "print the most executed instructions of the seed and the result")
	fl.BoolVar(&f.asJSON, "json", false, "print JSON")
	return cmd
}

// apply copies explicitly set flags over cfg.
func (f *runFlags) apply(cmd *cobra.Command, cfg *mcts.Config) {
	fl := cmd.Flags()
	if fl.Changed("epochs") {
		cfg.Search.Epochs = f.epochs
	}
	if fl.Changed("rollout-steps") {
		cfg.Search.RolloutSteps = f.rolloutSteps
	}
	if fl.Changed("seed") {
		cfg.Search.Seed = f.seed
	}
	if fl.Changed("workers") {
		cfg.Search.Workers = f.workers
	}
	if fl.Changed("moves") {
		cfg.Edit.Moves = f.moves
	}
	if fl.Changed("strict-replace") {
		cfg.Edit.StrictReplace = f.strictReplace
	}
	if fl.Changed("vecadd") {
		cfg.VM.VecAdd = f.vecAdd
	}
	if fl.Changed("scorer") {
		cfg.Reward.Scorer = f.scorer
	}
	if f.trace {
		cfg.Observability.TracingEnabled = true
	}
}

// telemetryConfig derives the exporter setup from flags and cfg.
func (f *runFlags) telemetryConfig(cmd *cobra.Command, cfg *mcts.Config) telemetry.Config {
	tc := telemetry.DefaultConfig()
	tc.ServiceName = cfg.Observability.ServiceName
	tc.Writer = cmd.ErrOrStderr()

	switch {
	case f.traceExporter != "":
		tc.TraceExporter = f.traceExporter
	case cfg.Observability.TracingEnabled && tc.TraceExporter == telemetry.ExporterNone:
		tc.TraceExporter = telemetry.ExporterStdout
	}
	if f.otlpEndpoint != "" {
		tc.OTLPEndpoint = f.otlpEndpoint
	}
	cfg.Observability.TracingEnabled = tc.TraceExporter != telemetry.ExporterNone

	if !cfg.Observability.MetricsEnabled {
		tc.MetricExporter = telemetry.ExporterNone
	}
	return tc
}

func runSearch(cmd *cobra.Command, opts *globalOptions, f *runFlags) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	f.apply(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := opts.newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	shutdown, err := telemetry.Init(ctx, f.telemetryConfig(cmd, &cfg))
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			logger.Warn("telemetry shutdown", slog.String("error", err.Error()))
		}
	}()

	if f.metricsAddr != "" {
		stopMetrics, err := serveMetrics(f.metricsAddr, logger.Slog())
		if err != nil {
			return err
		}
		defer stopMetrics()
	}

	alloc := program.NewIDAllocator()
	fx, seed, err := f.fixture.build(alloc)
	if err != nil {
		return err
	}

	report, err := mcts.Optimize(ctx, cfg, fx.Registers, alloc, seed, mcts.WithLogger(logger.Slog()))
	if err != nil {
		return err
	}

	v := newRunView(fx.Name, report, seed, f.treeDepth, f.profile)
	if wantJSON(cmd, f.asJSON) {
		return writeJSON(cmd.OutOrStdout(), v)
	}
	renderRun(ux.NewPrinter(cmd.OutOrStdout()), v)
	return nil
}

// serveMetrics exposes /metrics on addr until the returned stop is called.
func serveMetrics(addr string, logger *slog.Logger) (stop func(), err error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen for metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", telemetry.MetricsHandler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", slog.String("error", err.Error()))
		}
	}()
	logger.Info("serving metrics", slog.String("addr", ln.Addr().String()))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
