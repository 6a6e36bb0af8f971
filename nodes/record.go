package nodes

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bittoy/dataflow/broker"
	"github.com/bittoy/dataflow/config"
	"github.com/bittoy/dataflow/messages"
	"github.com/bittoy/dataflow/node"
	"github.com/bittoy/dataflow/runtime"
)

func init() {
	node.DefaultRegistry.Register("record", NewRecordNode)
}

// RecordArgs is record's node_args: a channel-name -> data-model-tag map
// describing which channels to subscribe to and how to decode each, the
// output file path, and whether to stamp that path with the start time.
type RecordArgs struct {
	RecordChannelTypes map[string]string `mapstructure:"record_channel_types"`
	JSONLFilePath      string            `mapstructure:"jsonl_file_path"`
	AddDatetime        *bool             `mapstructure:"add_datetime"`
}

// addDatetime defaults to true, matching the original's add_datetime=True.
func (a RecordArgs) addDatetime() bool {
	return a.AddDatetime == nil || *a.AddDatetime
}

// dataEntry is one line of the JSONL file: which channel a record arrived
// on, plus the record itself.
type dataEntry struct {
	Channel string          `json:"channel"`
	Data    messages.DataModel `json:"data"`
}

// RecordNode appends every message it receives, across all its declared
// input channels, to a JSONL file as {"channel":..., "data":{...}}. It has
// no output channels.
type RecordNode struct {
	*node.Base
	file  *os.File
	w     *bufio.Writer
	queue chan dataEntry
	done  chan struct{}
}

// NewRecordNode satisfies node.Constructor.
func NewRecordNode(name string, brk broker.Broker, reg *messages.Registry, logger zerolog.Logger, args map[string]interface{}) (node.Node, error) {
	var a RecordArgs
	if err := config.DecodeArgs(args, &a); err != nil {
		return nil, runtime.NewConfigurationError(name, err)
	}
	if len(a.RecordChannelTypes) == 0 {
		return nil, runtime.NewConfigurationError(name, fmt.Errorf("record_channel_types must not be empty"))
	}
	n := &RecordNode{
		queue: make(chan dataEntry, 256),
		done:  make(chan struct{}),
	}
	inputs := make([]runtime.ChannelSpec, 0, len(a.RecordChannelTypes))
	for channel, tag := range a.RecordChannelTypes {
		if !reg.Has(tag) {
			return nil, runtime.NewConfigurationError(name, fmt.Errorf("record_channel_types declares unregistered data model %q", tag))
		}
		inputs = append(inputs, runtime.ChannelSpec{Channel: channel, Tags: []string{tag}})
	}
	path := a.JSONLFilePath
	if a.addDatetime() {
		path = stampPath(a.JSONLFilePath, time.Now())
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, runtime.NewConfigurationError(name, fmt.Errorf("creating %q: %w", path, err))
	}
	n.file = f
	n.w = bufio.NewWriter(f)

	base, err := node.NewBase(name, inputs, nil, reg, brk, logger, n)
	if err != nil {
		f.Close()
		return nil, err
	}
	n.Base = base
	return n, nil
}

// stampPath inserts "_YYYY-MM-DD_HH-MM-SS" before the file extension, the
// same scheme the original uses so re-runs never clobber a previous
// recording.
func stampPath(path string, at time.Time) string {
	idx := strings.LastIndex(path, ".")
	if idx < 0 {
		return path + at.Format("_2006-01-02_15-04-05")
	}
	return path[:idx] + at.Format("_2006-01-02_15-04-05") + path[idx:]
}

// Enter chains to Base.Enter after starting the background writer.
func (n *RecordNode) Enter(ctx context.Context) error {
	go n.writeLoop()
	return n.Base.Enter(ctx)
}

// Exit drains the write queue before chaining to Base.Exit, so no buffered
// record is lost on shutdown.
func (n *RecordNode) Exit(ctx context.Context) error {
	close(n.queue)
	<-n.done
	n.w.Flush()
	n.file.Close()
	return n.Base.Exit(ctx)
}

func (n *RecordNode) writeLoop() {
	defer close(n.done)
	for entry := range n.queue {
		line, err := json.Marshal(entry)
		if err != nil {
			continue
		}
		n.w.Write(line)
		n.w.WriteByte('\n')
		n.w.Flush()
	}
}

// HandleEvent implements node.EventHandler: every message is queued for the
// background writer and produces no output.
func (n *RecordNode) HandleEvent(ctx context.Context, channel string, env *messages.Envelope) ([]node.Output, error) {
	n.queue <- dataEntry{Channel: channel, Data: env.Data}
	return nil, nil
}
