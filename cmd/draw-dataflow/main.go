// Command draw-dataflow renders one or more dataflow configs as a Mermaid
// flowchart, inferring edges from the channel types each node declares
// rather than from any explicit wiring section in the TOML.
package main

import (
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/bittoy/dataflow/broker"
	"github.com/bittoy/dataflow/config"
	"github.com/bittoy/dataflow/messages"
	"github.com/bittoy/dataflow/node"
	"github.com/rs/zerolog"

	_ "github.com/bittoy/dataflow/nodes"
)

type nodeList struct{ paths []string }

func (n *nodeList) String() string { return strings.Join(n.paths, ",") }
func (n *nodeList) Set(v string) error {
	n.paths = append(n.paths, v)
	return nil
}

func main() {
	var configs nodeList
	flag.Var(&configs, "dataflow-toml", "path to a dataflow TOML config (repeatable)")
	svgPath := flag.String("svg-path", "", "if set, render the graph to an SVG via mermaid.ink")
	flag.Parse()

	if len(configs.paths) == 0 {
		fmt.Fprintln(os.Stderr, "draw-dataflow: at least one --dataflow-toml is required")
		os.Exit(1)
	}

	graph, err := Render(configs.paths)
	if err != nil {
		fmt.Fprintln(os.Stderr, "draw-dataflow:", err)
		os.Exit(1)
	}
	fmt.Println(graph)

	if *svgPath != "" {
		if err := renderSVG(graph, *svgPath); err != nil {
			fmt.Fprintln(os.Stderr, "draw-dataflow: rendering svg:", err)
			os.Exit(1)
		}
	}
}

// edgeEnds tracks, per channel name, which node names publish to it and
// which subscribe to it — the same bookkeeping as the original's
// edge2start_nodes_end_nodes.
type edgeEnds struct {
	starts []string
	ends   []string
}

// Render builds a "flowchart TD" Mermaid graph for the dataflows at paths.
// Each config's nodes are dry-constructed against a throwaway in-memory
// broker — construction never dials out, so this never touches a real
// broker or spawns any process — purely to read back their declared
// channel wiring.
func Render(paths []string) (string, error) {
	edges := make(map[string]*edgeEnds)
	configNodes := make(map[string][]string)
	nodeConfig := make(map[string]string)

	hub := broker.NewHub()
	logger := zerolog.Nop()

	for i, path := range paths {
		configName := fmt.Sprintf("config_%d", i)
		df, err := config.Load(path)
		if err != nil {
			return "", fmt.Errorf("loading %s: %w", path, err)
		}
		for _, spec := range df.Nodes {
			n, err := node.DefaultRegistry.Make(spec.NodeClass, spec.NodeName, hub.Dial(), messages.DefaultRegistry, logger, spec.NodeArgs)
			if err != nil {
				return "", fmt.Errorf("constructing node %q: %w", spec.NodeName, err)
			}
			describer, ok := n.(node.ChannelDescriber)
			if !ok {
				return "", fmt.Errorf("node %q does not describe its channels", spec.NodeName)
			}
			for _, in := range describer.InputChannelTypes() {
				ee := edgeOf(edges, in.Channel)
				ee.ends = append(ee.ends, spec.NodeName)
			}
			for _, out := range describer.OutputChannelTypes() {
				ee := edgeOf(edges, out.Channel)
				ee.starts = append(ee.starts, spec.NodeName)
			}
			nodeConfig[spec.NodeName] = configName
			configNodes[configName] = append(configNodes[configName], spec.NodeName)
		}
	}

	var b strings.Builder
	b.WriteString("flowchart TD\n")
	var invisible []string

	for _, edge := range sortedEdgeKeys(edges) {
		ee := edges[edge]
		switch {
		case len(ee.starts) > 1 || len(ee.ends) > 1:
			invisibleNode := "invisible_edge_" + edge
			invisible = append(invisible, invisibleNode)
			if len(ee.starts) == 0 {
				hiddenStart := "hidden_start_" + edge
				fmt.Fprintf(&b, "    %s(( )) ---|%s| %s[ ]\n", hiddenStart, edge, invisibleNode)
			} else {
				for _, start := range ee.starts {
					fmt.Fprintf(&b, "    %s[%s] ---|%s| %s[ ]\n", start, bracketLabel(start), edge, invisibleNode)
				}
			}
			if len(ee.ends) == 0 {
				hiddenEnd := "hidden_end_" + edge
				fmt.Fprintf(&b, "    %s ---> %s(( ))\n", invisibleNode, hiddenEnd)
			} else {
				for _, end := range ee.ends {
					fmt.Fprintf(&b, "    %s ---> %s[%s]\n", invisibleNode, end, bracketLabel(end))
				}
			}
			sameConfig, cfgName := allSameConfig(ee, nodeConfig)
			if sameConfig {
				configNodes[cfgName] = append(configNodes[cfgName], invisibleNode)
			}
		case len(ee.starts) == 0:
			hiddenStart := "hidden_start_" + edge
			for _, end := range ee.ends {
				fmt.Fprintf(&b, "    %s(( )) --->|%s| %s[%s]\n", hiddenStart, edge, end, bracketLabel(end))
			}
		case len(ee.ends) == 0:
			hiddenEnd := "hidden_end_" + edge
			for _, start := range ee.starts {
				fmt.Fprintf(&b, "    %s[%s] --->|%s| %s(( ))\n", start, bracketLabel(start), edge, hiddenEnd)
			}
		default:
			fmt.Fprintf(&b, "    %s[%s] --->|%s| %s[%s]\n", ee.starts[0], bracketLabel(ee.starts[0]), edge, ee.ends[0], bracketLabel(ee.ends[0]))
		}
	}

	for _, configName := range sortedKeys(configNodes) {
		fmt.Fprintf(&b, "subgraph %s\n", configName)
		for _, name := range configNodes[configName] {
			fmt.Fprintf(&b, "    %s\n", name)
		}
		b.WriteString("end\n")
	}

	for _, inv := range invisible {
		fmt.Fprintf(&b, "    style %s height:0px;\n", inv)
	}

	return b.String(), nil
}

func edgeOf(edges map[string]*edgeEnds, channel string) *edgeEnds {
	ee, ok := edges[channel]
	if !ok {
		ee = &edgeEnds{}
		edges[channel] = ee
	}
	return ee
}

func bracketLabel(name string) string { return "['" + name + "']" }

func allSameConfig(ee *edgeEnds, nodeConfig map[string]string) (bool, string) {
	var configName string
	if len(ee.starts) > 0 {
		configName = nodeConfig[ee.starts[0]]
	} else if len(ee.ends) > 0 {
		configName = nodeConfig[ee.ends[0]]
	}
	for _, s := range ee.starts {
		if nodeConfig[s] != configName {
			return false, ""
		}
	}
	for _, e := range ee.ends {
		if nodeConfig[e] != configName {
			return false, ""
		}
	}
	return true, configName
}

func sortedEdgeKeys(m map[string]*edgeEnds) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}

func renderSVG(graph, path string) error {
	encoded := base64.StdEncoding.EncodeToString([]byte(graph))
	url := "https://mermaid.ink/svg/" + encoded
	ctx, cancel := context.WithTimeout(context.Background(), config.DefaultConnectTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("mermaid.ink returned status %d", resp.StatusCode)
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, resp.Body)
	return err
}
