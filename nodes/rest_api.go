package nodes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
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
	node.DefaultRegistry.Register("rest_api", NewRestAPINode)
}

// RestAPIArgs is rest_api's node_args.
type RestAPIArgs struct {
	InputChannel  string `mapstructure:"input_channel"`
	OutputChannel string `mapstructure:"output_channel"`
	OutputTypeStr string `mapstructure:"output_type_str"`
}

// RestAPINode is the dataflow's bridge to the outside world: it takes a
// rest_request off its input channel, performs the HTTP call, and
// publishes a rest_response wrapping either the decoded body (tagged
// output_type_str) or a nil Data for a failed or non-JSON response.
type RestAPINode struct {
	*node.Base
	outputChannel string
	outputTag     string
	client        *http.Client
}

// NewRestAPINode satisfies node.Constructor.
func NewRestAPINode(name string, brk broker.Broker, reg *messages.Registry, logger zerolog.Logger, args map[string]interface{}) (node.Node, error) {
	var a RestAPIArgs
	if err := config.DecodeArgs(args, &a); err != nil {
		return nil, runtime.NewConfigurationError(name, err)
	}
	if !reg.Has(a.OutputTypeStr) {
		return nil, runtime.NewConfigurationError(name, fmt.Errorf("output_type_str %q is not a registered data model", a.OutputTypeStr))
	}
	n := &RestAPINode{
		outputChannel: a.OutputChannel,
		outputTag:     a.OutputTypeStr,
		client:        &http.Client{Timeout: 30 * time.Second},
	}
	inputs := []runtime.ChannelSpec{{Channel: a.InputChannel, Tags: []string{"rest_request"}}}
	outputs := []runtime.ChannelSpec{{Channel: a.OutputChannel, Tags: []string{"rest_response"}}}
	base, err := node.NewBase(name, inputs, outputs, reg, brk, logger, n)
	if err != nil {
		return nil, err
	}
	n.Base = base
	return n, nil
}

// HandleEvent implements node.EventHandler.
func (n *RestAPINode) HandleEvent(ctx context.Context, channel string, env *messages.Envelope) ([]node.Output, error) {
	req, ok := env.Data.(*messages.RestRequest)
	if !ok {
		return nil, fmt.Errorf("expected *messages.RestRequest, got %T", env.Data)
	}
	resp := n.perform(ctx, req)
	return []node.Output{{Channel: n.outputChannel, Envelope: &messages.Envelope{Data: resp}}}, nil
}

func (n *RestAPINode) perform(ctx context.Context, req *messages.RestRequest) *messages.RestResponse {
	var body io.Reader
	contentType := req.ContentType
	if req.Data != nil {
		if contentType == "application/json" {
			raw, err := json.Marshal(req.Data)
			if err == nil {
				body = bytes.NewReader(raw)
			}
		} else {
			raw, _ := json.Marshal(req.Data)
			body = bytes.NewReader(raw)
		}
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return &messages.RestResponse{Tagged: messages.Tagged{Type: "rest_response"}, StatusCode: 0, Data: nil}
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpResp, err := n.client.Do(httpReq)
	if err != nil {
		return &messages.RestResponse{Tagged: messages.Tagged{Type: "rest_response"}, StatusCode: 0, Data: nil}
	}
	defer httpResp.Body.Close()

	status := httpResp.StatusCode
	result := &messages.RestResponse{Tagged: messages.Tagged{Type: "rest_response"}, StatusCode: status}
	contentTypeHeader := httpResp.Header.Get("Content-Type")
	if status >= 200 && status < 300 && strings.Contains(contentTypeHeader, "application/json") {
		raw, err := io.ReadAll(httpResp.Body)
		if err == nil && len(raw) > 0 {
			if data, err := n.Registry().Decode(n.outputTag, raw); err == nil {
				result.Data = data
			}
		}
	}
	return result
}
