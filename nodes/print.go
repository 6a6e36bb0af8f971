package nodes

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/bittoy/dataflow/broker"
	"github.com/bittoy/dataflow/config"
	"github.com/bittoy/dataflow/messages"
	"github.com/bittoy/dataflow/node"
	"github.com/bittoy/dataflow/runtime"
)

func init() {
	node.DefaultRegistry.Register("print", NewPrintNode)
}

// PrintArgs is print's node_args: a channel-name -> data-model-tag map.
type PrintArgs struct {
	PrintChannelTypes map[string]string `mapstructure:"print_channel_types"`
}

// PrintNode writes every message it receives to stdout as a JSONL line.
// It has no output channels. SpecialPrintNode embeds this and overrides the
// write loop to self-terminate after a bounded number of lines.
type PrintNode struct {
	*node.Base
	out   *bufio.Writer
	queue chan dataEntry
	done  chan struct{}
	// writeLoop is overridable by an embedding node (SpecialPrintNode)
	// without reimplementing Enter/Exit/HandleEvent.
	writeLoop func()
}

// NewPrintNode satisfies node.Constructor.
func NewPrintNode(name string, brk broker.Broker, reg *messages.Registry, logger zerolog.Logger, args map[string]interface{}) (node.Node, error) {
	return newPrintNode(name, brk, reg, logger, args, os.Stdout)
}

func newPrintNode(name string, brk broker.Broker, reg *messages.Registry, logger zerolog.Logger, args map[string]interface{}, out *os.File) (*PrintNode, error) {
	var a PrintArgs
	if err := config.DecodeArgs(args, &a); err != nil {
		return nil, runtime.NewConfigurationError(name, err)
	}
	if len(a.PrintChannelTypes) == 0 {
		return nil, runtime.NewConfigurationError(name, fmt.Errorf("print_channel_types must not be empty"))
	}
	n := &PrintNode{
		out:   bufio.NewWriter(out),
		queue: make(chan dataEntry, 256),
		done:  make(chan struct{}),
	}
	n.writeLoop = n.defaultWriteLoop

	inputs := make([]runtime.ChannelSpec, 0, len(a.PrintChannelTypes))
	for channel, tag := range a.PrintChannelTypes {
		if !reg.Has(tag) {
			return nil, runtime.NewConfigurationError(name, fmt.Errorf("print_channel_types declares unregistered data model %q", tag))
		}
		inputs = append(inputs, runtime.ChannelSpec{Channel: channel, Tags: []string{tag}})
	}
	base, err := node.NewBase(name, inputs, nil, reg, brk, logger, n)
	if err != nil {
		return nil, err
	}
	n.Base = base
	return n, nil
}

// Enter chains to Base.Enter after starting the background writer.
func (n *PrintNode) Enter(ctx context.Context) error {
	go n.writeLoop()
	return n.Base.Enter(ctx)
}

// Exit drains the write queue before chaining to Base.Exit.
func (n *PrintNode) Exit(ctx context.Context) error {
	close(n.queue)
	<-n.done
	n.out.Flush()
	return n.Base.Exit(ctx)
}

func (n *PrintNode) defaultWriteLoop() {
	defer close(n.done)
	for entry := range n.queue {
		n.writeEntry(entry)
	}
}

func (n *PrintNode) writeEntry(entry dataEntry) {
	line, err := json.Marshal(entry)
	if err != nil {
		return
	}
	n.out.Write(line)
	n.out.WriteByte('\n')
	n.out.Flush()
}

// HandleEvent implements node.EventHandler: every message is queued for the
// background writer and produces no output.
func (n *PrintNode) HandleEvent(ctx context.Context, channel string, env *messages.Envelope) ([]node.Output, error) {
	n.queue <- dataEntry{Channel: channel, Data: env.Data}
	return nil, nil
}
