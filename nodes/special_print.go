package nodes

import (
	"context"
	"os"

	"github.com/rs/zerolog"

	"github.com/bittoy/dataflow/broker"
	"github.com/bittoy/dataflow/messages"
	"github.com/bittoy/dataflow/node"
)

func init() {
	node.DefaultRegistry.Register("special_print", NewSpecialPrintNode)
}

// specialPrintLimit is how many lines SpecialPrintNode writes before it
// requests a dataflow-wide shutdown, matching the original's hard-coded
// count of 11 (count > 10).
const specialPrintLimit = 11

// SpecialPrintNode is PrintNode plus a self-termination trigger: after
// writing specialPrintLimit messages it publishes the peer-stop "shutdown"
// signal on its own shutdown:<node_name> channel and stops writing. It
// exists to exercise the peer-stop scenario end to end without a second
// node having to trigger it.
type SpecialPrintNode struct {
	*PrintNode
}

// NewSpecialPrintNode satisfies node.Constructor.
func NewSpecialPrintNode(name string, brk broker.Broker, reg *messages.Registry, logger zerolog.Logger, args map[string]interface{}) (node.Node, error) {
	inner, err := newPrintNode(name, brk, reg, logger, args, os.Stdout)
	if err != nil {
		return nil, err
	}
	n := &SpecialPrintNode{PrintNode: inner}
	n.writeLoop = n.specialWriteLoop
	return n, nil
}

func (n *SpecialPrintNode) specialWriteLoop() {
	defer close(n.done)
	count := 0
	for {
		if count >= specialPrintLimit {
			n.publishShutdown()
			return
		}
		entry, ok := <-n.queue
		if !ok {
			return
		}
		n.writeEntry(entry)
		count++
	}
}

func (n *SpecialPrintNode) publishShutdown() {
	channel := "shutdown:" + n.Name()
	_ = n.Base.Publish(context.Background(), channel, []byte("shutdown"))
}
