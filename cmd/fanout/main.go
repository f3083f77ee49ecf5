package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-sif/fanout/config"
	"github.com/go-sif/fanout/coordinator"
	"github.com/go-sif/fanout/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

const (
	exitOK          = 0
	exitConfigError = 1
	exitRunFailure  = 2
)

// exitError carries the process exit code of a failed command
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "fanout",
		Short:         "Run families of aggregate queries concurrently over partitioned columnar data",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCommand())
	return root
}

func newRunCommand() *cobra.Command {
	v := config.New()
	var configFile string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load every partition, fan out its queries and write one JSONL file per partition",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.BindFlags(v, cmd.Flags()); err != nil {
				return &exitError{code: exitConfigError, err: err}
			}
			opts, err := config.Load(v, configFile)
			if err != nil {
				return &exitError{code: exitConfigError, err: err}
			}
			return run(cmd.Context(), opts)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&configFile, "config", "", "path to a configuration file (yaml, json or toml)")
	flags.String("data-root", "", "root directory of the partitioned dataset")
	flags.String("path-template", "", "partition directory template, e.g. {root}/{id}")
	flags.String("output-dir", "", "directory receiving one output file per partition")
	flags.String("output-template", "", "output file name template, e.g. results_{id}.jsonl")
	flags.String("table-template", "", "name of the table each partition is registered as")
	flags.StringSlice("families", nil, "query families in the form prefix:aggregate:from-to")
	flags.Int("partitions", 0, "process partitions 1..n")
	flags.Int("partition-workers", 0, "maximum number of partitions processed at once")
	flags.Int("query-workers", 0, "maximum number of queries executing at once")
	flags.Int("batch-size", 0, "maximum number of rows per loaded batch")
	flags.String("compression", "", "output compression (lz4)")
	flags.String("log-level", "", "log level (trace, debug, info, warn, error)")
	flags.String("log-format", "", "log format (logfmt, json)")
	flags.String("metrics-addr", "", "serve prometheus metrics on this address while running")
	return cmd
}

func run(ctx context.Context, opts *config.Options) error {
	logger, err := logging.New(os.Stderr, opts.LogLevel, opts.LogFormat)
	if err != nil {
		return &exitError{code: exitConfigError, err: err}
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	c, err := coordinator.FromOptions(opts, logger, reg)
	if err != nil {
		return &exitError{code: exitConfigError, err: err}
	}
	defer func() {
		if err := c.Close(); err != nil {
			level.Warn(logger).Log("msg", "failed to release query workers", "err", err)
		}
	}()

	if len(opts.MetricsAddr) > 0 {
		stop, err := serveMetrics(opts.MetricsAddr, reg, logger)
		if err != nil {
			return &exitError{code: exitConfigError, err: err}
		}
		defer stop()
	}

	report := c.Run(ctx, coordinator.Partitions(opts.Partitions))
	fmt.Printf("Total time elapsed %v\n", report.Elapsed)
	if err := report.Err(); err != nil {
		return &exitError{
			code: exitRunFailure,
			err:  fmt.Errorf("%d of %d partitions failed and %d query tasks failed", report.FailedPipelines, len(report.Outcomes), report.FailedTasks),
		}
	}
	return nil
}

// serveMetrics serves reg on addr until the returned function is called
func serveMetrics(addr string, reg *prometheus.Registry, logger log.Logger) (func(), error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			level.Error(logger).Log("msg", "metrics server failed", "err", err)
		}
	}()
	level.Info(logger).Log("msg", "serving metrics", "addr", lis.Addr().String())
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}, nil
}

func main() {
	err := newRootCommand().ExecuteContext(context.Background())
	if err == nil {
		os.Exit(exitOK)
	}
	fmt.Fprintln(os.Stderr, err)
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.code)
	}
	os.Exit(exitConfigError)
}
