// Package config loads a dataflow's TOML description and decodes each
// node's own arguments out of the generic node_args table.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/mapstructure"

	"github.com/bittoy/dataflow/runtime"
)

// DefaultConnectTimeout bounds how long a node or manager waits to
// establish its broker connection before giving up.
const DefaultConnectTimeout = 10 * time.Second

// NodeSpec is one [[nodes]] table in a dataflow TOML file.
type NodeSpec struct {
	NodeName string                 `toml:"node_name"`
	NodeClass string                `toml:"node_class"`
	NodeArgs map[string]interface{} `toml:"node_args"`
}

// Dataflow is the root of a dataflow TOML file: where to reach the broker,
// which extra node-class modules to load, and the node instances to spawn.
type Dataflow struct {
	BrokerURL    string     `toml:"redis_url"`
	ExtraModules []string   `toml:"extra_modules"`
	Nodes        []NodeSpec `toml:"nodes"`
}

// Load reads and parses the dataflow TOML file at path. The field is named
// redis_url on the wire for compatibility with existing dataflow configs,
// even though this runtime's broker is not necessarily Redis.
func Load(path string) (*Dataflow, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dataflow config %q: %w", path, err)
	}
	var df Dataflow
	if _, err := toml.Decode(string(raw), &df); err != nil {
		return nil, fmt.Errorf("parsing dataflow config %q: %w", path, err)
	}
	if df.BrokerURL == "" {
		return nil, fmt.Errorf("dataflow config %q: redis_url is required", path)
	}
	if err := checkUniqueNodeNames(df.Nodes); err != nil {
		return nil, runtime.NewConfigurationError("", fmt.Errorf("dataflow config %q: %w", path, err))
	}
	return &df, nil
}

// checkUniqueNodeNames asserts node_name uniqueness across a dataflow's
// declared nodes: the manager keys its process/health/heartbeat tracking by
// node_name, so a collision would silently overwrite one child's handle with
// another's.
func checkUniqueNodeNames(nodes []NodeSpec) error {
	seen := make(map[string]bool, len(nodes))
	for _, spec := range nodes {
		if seen[spec.NodeName] {
			return fmt.Errorf("duplicate node_name %q", spec.NodeName)
		}
		seen[spec.NodeName] = true
	}
	return nil
}

// DecodeArgs decodes a NodeSpec's NodeArgs table into out, a pointer to the
// node class's own args struct. Keys not present in out's struct tags are
// ignored rather than rejected: node_args is explicitly "extra=allow" in
// the original, a permissive table every node class picks its own subset
// out of.
func DecodeArgs(args map[string]interface{}, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return fmt.Errorf("building args decoder: %w", err)
	}
	if err := decoder.Decode(args); err != nil {
		return fmt.Errorf("decoding node_args: %w", err)
	}
	return nil
}
