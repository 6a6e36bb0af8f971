package runtime

// ChannelSpec names one channel a node declares on its input or output side,
// together with the data-model tags admissible on that channel. Order is
// preserved by callers (a slice, not a map) because manager/config output is
// order-sensitive for things like draw-dataflow's edge listing.
type ChannelSpec struct {
	Channel string
	Tags    []string
}

// Health is the manager's view of a child node process, advanced only by
// heartbeat arrivals and the liveness timer.
type Health string

const (
	HealthStarted    Health = "started"
	HealthRunning    Health = "running"
	HealthNoResponse Health = "no_response"
	HealthStopped    Health = "stopped"
)

// NodeSpec is one [[nodes]] entry from a dataflow config: the node's
// instance name, its registered class, and its class-specific arguments
// decoded later via mapstructure into that class's own args struct.
type NodeSpec struct {
	NodeName string
	NodeClass string
	NodeArgs map[string]any
}
