// Command run-dataflow is the manager's launcher: it spawns one run-node
// child process per node declared in a dataflow TOML file, waits for any
// node to request shutdown, then tears everything down.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/bittoy/dataflow/broker"
	"github.com/bittoy/dataflow/config"
	"github.com/bittoy/dataflow/manager"
)

// ErrRQUnsupported is returned when --with-rq is passed. The original
// project's mode of running nodes through an external job queue has no
// analogue here: the manager only spawns nodes as direct child processes.
// The flag is accepted so existing dataflow launch scripts don't fail to
// parse, but it is refused rather than silently falling back to the
// direct-subprocess path.
var ErrRQUnsupported = errors.New("run-dataflow: --with-rq is not supported by this broker implementation")

func main() {
	fs := flag.NewFlagSet("run-dataflow", flag.ExitOnError)
	dataflowPath := fs.String("dataflow-toml", "", "path to the dataflow TOML config")
	metricsAddr := fs.String("metrics-addr", "", "if set, serve Prometheus metrics on this address")
	withRQ := fs.Bool("with-rq", false, "unsupported: accepted for launch-script compatibility only")
	_ = fs.Parse(os.Args[1:])

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if *withRQ {
		logger.Error().Err(ErrRQUnsupported).Msg("unsupported flag")
		os.Exit(1)
	}

	if err := run(*dataflowPath, *metricsAddr, logger); err != nil {
		logger.Error().Err(err).Msg("dataflow exited with error")
		os.Exit(1)
	}
}

func run(dataflowPath, metricsAddr string, logger zerolog.Logger) error {
	dial := func(ctx context.Context) (broker.Broker, error) {
		df, err := config.Load(dataflowPath)
		if err != nil {
			return nil, err
		}
		return broker.DialMQTT(ctx, df.BrokerURL, config.DefaultConnectTimeout)
	}

	opts := []manager.Option{manager.WithLogger(logger)}
	// Children run the run-node command installed beside this binary.
	if exe, err := os.Executable(); err == nil {
		opts = append(opts, manager.WithBinaryPath(filepath.Join(filepath.Dir(exe), "run-node")))
	}
	if metricsAddr != "" {
		opts = append(opts, manager.WithMetricsAddr(metricsAddr))
	}

	m, err := manager.New(dataflowPath, dial, opts...)
	if err != nil {
		return fmt.Errorf("constructing manager: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := m.Enter(ctx); err != nil {
		return fmt.Errorf("entering dataflow: %w", err)
	}
	defer func() {
		if err := m.Exit(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("error during exit")
		}
	}()

	return m.Wait(ctx)
}
