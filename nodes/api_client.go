package nodes

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/bittoy/dataflow/broker"
	"github.com/bittoy/dataflow/config"
	"github.com/bittoy/dataflow/messages"
	"github.com/bittoy/dataflow/node"
	"github.com/bittoy/dataflow/runtime"
)

func init() {
	node.DefaultRegistry.Register("api_client", NewAPIClientNode)
}

// APIClientArgs is api_client's node_args: the counterpart of rest_api's
// channel wiring, plus the fixed request it issues on every tick.
type APIClientArgs struct {
	InputTickChannel     string `mapstructure:"input_tick_channel"`
	InputResponseChannel string `mapstructure:"input_response_channel"`
	OutputChannel        string `mapstructure:"output_channel"`
	RequestMethod        string `mapstructure:"request_method"`
	RequestURL           string `mapstructure:"request_url"`
}

// APIClientNode is rest_api's test counterpart: on every tick it publishes
// a rest_request, and it logs every rest_response it receives back.
type APIClientNode struct {
	*node.Base
	inputResponseChannel string
	outputChannel        string
	method               string
	url                  string
	logger               zerolog.Logger
}

// NewAPIClientNode satisfies node.Constructor.
func NewAPIClientNode(name string, brk broker.Broker, reg *messages.Registry, logger zerolog.Logger, args map[string]interface{}) (node.Node, error) {
	a := APIClientArgs{RequestMethod: "POST"}
	if err := config.DecodeArgs(args, &a); err != nil {
		return nil, runtime.NewConfigurationError(name, err)
	}
	n := &APIClientNode{
		inputResponseChannel: a.InputResponseChannel,
		outputChannel:        a.OutputChannel,
		method:               a.RequestMethod,
		url:                  a.RequestURL,
		logger:               logger,
	}
	inputs := []runtime.ChannelSpec{
		{Channel: a.InputTickChannel, Tags: []string{"tick"}},
		{Channel: a.InputResponseChannel, Tags: []string{"rest_response"}},
	}
	outputs := []runtime.ChannelSpec{{Channel: a.OutputChannel, Tags: []string{"rest_request"}}}
	base, err := node.NewBase(name, inputs, outputs, reg, brk, logger, n)
	if err != nil {
		return nil, err
	}
	n.Base = base
	return n, nil
}

// HandleEvent implements node.EventHandler.
func (n *APIClientNode) HandleEvent(ctx context.Context, channel string, env *messages.Envelope) ([]node.Output, error) {
	if channel == n.inputResponseChannel {
		resp, _ := env.Data.(*messages.RestResponse)
		if resp != nil {
			n.logger.Info().Int("status_code", resp.StatusCode).Msg("received rest response")
		}
		return nil, nil
	}
	req := &messages.RestRequest{
		Tagged:      messages.Tagged{Type: "rest_request"},
		Method:      n.method,
		URL:         n.url,
		Data:        messages.Make("any", map[string]any{"username": "test", "password": "test"}),
		ContentType: "application/x-www-form-urlencoded",
	}
	return []node.Output{{Channel: n.outputChannel, Envelope: &messages.Envelope{Data: req}}}, nil
}
