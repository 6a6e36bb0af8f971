// Package manager implements the supervisor that turns one dataflow config
// into a set of child node processes, tracks their heartbeats, and blocks
// until any node asks the whole dataflow to shut down.
package manager

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/rs/zerolog"

	"github.com/bittoy/dataflow/broker"
	"github.com/bittoy/dataflow/config"
	"github.com/bittoy/dataflow/runtime"
)

// livenessThreshold is how long a node may go without a heartbeat before
// the manager marks it runtime.HealthNoResponse.
const livenessThreshold = 10 * time.Second

// healthPollInterval is how often the background health updater re-derives
// every node's Health from its last heartbeat timestamp.
const healthPollInterval = time.Second

// DialBroker constructs a broker connection for the manager or a spawned
// node; production wiring points this at broker.DialMQTT, tests at an
// broker.InMemory hub.
type DialBroker func(ctx context.Context) (broker.Broker, error)

// Manager supervises one dataflow: one OS process per declared node, each
// in its own process group so a single SIGTERM can stop the whole group.
type Manager struct {
	ID             string
	dataflowPath   string
	dataflowURL    string
	dial           DialBroker
	logger         zerolog.Logger
	binaryPath     string
	metricsAddr    string

	nodes []config.NodeSpec

	mu        sync.Mutex
	processes map[string]*os.Process
	health    map[string]runtime.Health
	lastBeat  map[string]time.Time

	brk        broker.Broker
	metricsSrv *http.Server
	cancelBG   context.CancelFunc
	wg         sync.WaitGroup
}

// Option configures New, following the functional-options shape used
// throughout this codebase's config types.
type Option func(*Manager)

// WithBinaryPath overrides the run-node executable path used to spawn
// children (default: this process's own executable as reported by
// os.Executable, or os.Args[0] if that fails).
func WithBinaryPath(path string) Option {
	return func(m *Manager) { m.binaryPath = path }
}

// WithLogger overrides the manager's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithMetricsAddr has Enter start a /metrics HTTP listener on addr serving
// the process's Prometheus registry (which includes every counter in
// package metrics). Not set by default — the manager runs with no HTTP
// surface unless a caller opts in.
func WithMetricsAddr(addr string) Option {
	return func(m *Manager) { m.metricsAddr = addr }
}

// New builds a Manager for the dataflow described at dataflowPath, dialing
// the broker named by its redis_url field through dial.
func New(dataflowPath string, dial DialBroker, opts ...Option) (*Manager, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("generating manager id: %w", err)
	}
	df, err := config.Load(dataflowPath)
	if err != nil {
		return nil, err
	}
	bin, err := os.Executable()
	if err != nil {
		bin = os.Args[0]
	}
	m := &Manager{
		ID:           "manager-" + id.String(),
		dataflowPath: dataflowPath,
		dataflowURL:  df.BrokerURL,
		dial:         dial,
		binaryPath:   bin,
		logger:       zerolog.Nop(),
		processes:    make(map[string]*os.Process),
		health:       make(map[string]runtime.Health),
		lastBeat:     make(map[string]time.Time),
		nodes:        df.Nodes,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}
