package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bittoy/dataflow/runtime"
)

func writeTOML(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dataflow.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadParsesNodesAndArgs(t *testing.T) {
	path := writeTOML(t, `
redis_url = "mqtt://localhost:1883"
extra_modules = ["mypkg"]

[[nodes]]
node_name = "ticker"
node_class = "tick"

[[nodes]]
node_name = "printer"
node_class = "print"
node_args = { print_channel_types = { "channel1" = "text" } }
`)

	df, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if df.BrokerURL != "mqtt://localhost:1883" {
		t.Fatalf("BrokerURL = %q", df.BrokerURL)
	}
	if len(df.ExtraModules) != 1 || df.ExtraModules[0] != "mypkg" {
		t.Fatalf("ExtraModules = %+v", df.ExtraModules)
	}
	if len(df.Nodes) != 2 {
		t.Fatalf("len(Nodes) = %d, want 2", len(df.Nodes))
	}
	if df.Nodes[1].NodeArgs["print_channel_types"] == nil {
		t.Fatalf("expected print_channel_types to decode, got %+v", df.Nodes[1].NodeArgs)
	}
}

func TestLoadRequiresBrokerURL(t *testing.T) {
	path := writeTOML(t, `
[[nodes]]
node_name = "ticker"
node_class = "tick"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error when redis_url is missing")
	}
}

func TestLoadRejectsDuplicateNodeNames(t *testing.T) {
	path := writeTOML(t, `
redis_url = "mqtt://localhost:1883"

[[nodes]]
node_name = "dup"
node_class = "tick"

[[nodes]]
node_name = "dup"
node_class = "random"
`)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for a duplicate node_name")
	}
	var cfgErr *runtime.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected a *runtime.ConfigurationError, got %T: %v", err, err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path.toml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestDecodeArgsWeaklyTyped(t *testing.T) {
	type args struct {
		Count int    `mapstructure:"count"`
		Name  string `mapstructure:"name"`
	}
	var out args
	raw := map[string]interface{}{"count": "42", "name": "hello", "unused": true}
	if err := DecodeArgs(raw, &out); err != nil {
		t.Fatalf("DecodeArgs: %v", err)
	}
	if out.Count != 42 || out.Name != "hello" {
		t.Fatalf("unexpected decode: %+v", out)
	}
}
