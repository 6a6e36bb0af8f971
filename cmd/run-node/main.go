// Command run-node runs a single dataflow node to completion. It is the
// binary the manager re-execs (via exec.Command with the "run-node"
// subcommand) once per declared node, never invoked directly by an operator.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/bittoy/dataflow/broker"
	"github.com/bittoy/dataflow/config"
	"github.com/bittoy/dataflow/messages"
	"github.com/bittoy/dataflow/node"

	_ "github.com/bittoy/dataflow/nodes"
)

func main() {
	fs := flag.NewFlagSet("run-node", flag.ExitOnError)
	dataflowPath := fs.String("dataflow-toml", "", "path to the dataflow TOML config")
	nodeName := fs.String("node-name", "", "node_name of the node to run")
	brokerURL := fs.String("broker-url", "", "broker connection URL")
	_ = fs.Parse(os.Args[2:])

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Str("node", *nodeName).Logger()

	if err := run(*dataflowPath, *nodeName, *brokerURL, logger); err != nil {
		logger.Error().Err(err).Msg("node exited with error")
		os.Exit(1)
	}
}

func run(dataflowPath, nodeName, brokerURL string, logger zerolog.Logger) error {
	df, err := config.Load(dataflowPath)
	if err != nil {
		return fmt.Errorf("loading dataflow config: %w", err)
	}
	var spec *config.NodeSpec
	for i := range df.Nodes {
		if df.Nodes[i].NodeName == nodeName {
			spec = &df.Nodes[i]
			break
		}
	}
	if spec == nil {
		return fmt.Errorf("node %q not declared in %s", nodeName, dataflowPath)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	connectTimeout := config.DefaultConnectTimeout
	brk, err := broker.DialMQTT(ctx, brokerURL, connectTimeout)
	if err != nil {
		return fmt.Errorf("dialing broker: %w", err)
	}

	n, err := node.DefaultRegistry.Make(spec.NodeClass, spec.NodeName, brk, messages.DefaultRegistry, logger, spec.NodeArgs)
	if err != nil {
		return fmt.Errorf("constructing node %q: %w", nodeName, err)
	}

	if err := n.Enter(ctx); err != nil {
		return fmt.Errorf("entering node %q: %w", nodeName, err)
	}
	defer func() {
		if err := n.Exit(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("error during exit")
		}
	}()

	return n.Run(ctx)
}
