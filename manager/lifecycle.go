package manager

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bittoy/dataflow/broker"
	"github.com/bittoy/dataflow/messages"
	"github.com/bittoy/dataflow/metrics"
	"github.com/bittoy/dataflow/runtime"
)

// Enter spawns one child process per declared node, each in its own
// process group, then starts the heartbeat and health-status goroutines.
// If any child fails to spawn, every process already started is terminated
// (by process group) before returning the error, matching the original's
// all-or-nothing startup.
func (m *Manager) Enter(ctx context.Context) error {
	if m.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		m.metricsSrv = &http.Server{Addr: m.metricsAddr, Handler: mux}
		go func() {
			if err := m.metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				m.logger.Warn().Err(err).Msg("metrics listener stopped")
			}
		}()
		m.logger.Info().Str("addr", m.metricsAddr).Msg("serving /metrics")
	}
	for _, spec := range m.nodes {
		cmd := exec.Command(m.binaryPath, "run-node",
			"--dataflow-toml", m.dataflowPath,
			"--node-name", spec.NodeName,
			"--broker-url", m.dataflowURL,
		)
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
		if err := cmd.Start(); err != nil {
			m.terminateAll()
			return &runtime.ChildSpawnFailureError{Node: spec.NodeName, Err: err}
		}
		m.mu.Lock()
		m.processes[spec.NodeName] = cmd.Process
		m.health[spec.NodeName] = runtime.HealthStarted
		m.mu.Unlock()
		m.logger.Info().Str("node", spec.NodeName).Int("pid", cmd.Process.Pid).Msg("spawned node process")
	}

	brk, err := m.dial(ctx)
	if err != nil {
		m.terminateAll()
		return fmt.Errorf("manager %s: dialing broker: %w", m.ID, err)
	}
	m.brk = brk

	channels := make([]string, 0, len(m.nodes))
	for _, spec := range m.nodes {
		channels = append(channels, "heartbeat:"+spec.NodeName)
	}
	sub, err := brk.Subscribe(ctx, channels...)
	if err != nil {
		m.terminateAll()
		return fmt.Errorf("manager %s: subscribing to heartbeats: %w", m.ID, err)
	}

	bgCtx, cancel := context.WithCancel(context.Background())
	m.cancelBG = cancel
	m.wg.Add(2)
	go m.collectHeartbeats(bgCtx, sub)
	go m.updateHealth(bgCtx)

	return nil
}

// Wait blocks until some node publishes a literal "shutdown" payload on its
// shutdown:<node_name> channel — the peer-stop convention any node can
// invoke to bring the whole dataflow down — or ctx is cancelled.
func (m *Manager) Wait(ctx context.Context) error {
	channels := make([]string, 0, len(m.nodes))
	for _, spec := range m.nodes {
		channels = append(channels, "shutdown:"+spec.NodeName)
	}
	sub, err := m.brk.Subscribe(ctx, channels...)
	if err != nil {
		return fmt.Errorf("manager %s: subscribing to shutdown channels: %w", m.ID, err)
	}
	defer sub.Unsubscribe(context.Background())

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-sub.Messages():
			if !ok {
				return &runtime.BrokerDisconnectedError{Node: m.ID, Err: fmt.Errorf("shutdown subscription closed")}
			}
			if isShutdownPayload(msg.Payload) {
				m.logger.Info().Str("channel", msg.Channel).Msg("received peer-stop shutdown signal")
				return nil
			}
		}
	}
}

// isShutdownPayload reports whether payload is the literal shutdown
// signal, either a bare "shutdown" string or a text envelope carrying it —
// the manager accepts both so a node can publish through the same envelope
// codec it uses everywhere else.
func isShutdownPayload(payload []byte) bool {
	const literal = "shutdown"
	if string(payload) == literal || string(payload) == `"shutdown"` {
		return true
	}
	if env, err := decodeShutdownText(payload); err == nil && env == literal {
		return true
	}
	return false
}

func decodeShutdownText(payload []byte) (string, error) {
	env, err := messages.DecodeEnvelope(payload, messages.DefaultRegistry, []string{"text"})
	if err != nil {
		return "", err
	}
	text, ok := env.Data.(*messages.Text)
	if !ok {
		return "", fmt.Errorf("not a text payload")
	}
	return text.Text, nil
}

func (m *Manager) collectHeartbeats(ctx context.Context, sub broker.Subscription) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Messages():
			if !ok {
				return
			}
			name := nodeNameFromChannel(msg.Channel, "heartbeat:")
			m.mu.Lock()
			m.lastBeat[name] = time.Now()
			m.mu.Unlock()
		}
	}
}

func (m *Manager) updateHealth(ctx context.Context) {
	defer m.wg.Done()
	ticker := time.NewTicker(healthPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			m.mu.Lock()
			for name, last := range m.lastBeat {
				gap := now.Sub(last)
				metrics.ObserveHeartbeatGap(name, gap)
				if gap > livenessThreshold {
					m.health[name] = runtime.HealthNoResponse
				} else {
					m.health[name] = runtime.HealthRunning
				}
			}
			m.mu.Unlock()
		}
	}
}

// Health returns the manager's current view of every node's health.
func (m *Manager) Health() map[string]runtime.Health {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]runtime.Health, len(m.health))
	for k, v := range m.health {
		out[k] = v
	}
	return out
}

func (m *Manager) terminateAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, proc := range m.processes {
		if err := syscall.Kill(-proc.Pid, syscall.SIGTERM); err != nil {
			m.logger.Warn().Err(err).Str("node", name).Msg("process group not found while terminating")
		} else {
			m.logger.Info().Str("node", name).Int("pgid", proc.Pid).Msg("terminated process group")
		}
	}
	m.processes = make(map[string]*os.Process)
}

// nodeNameFromChannel strips a "heartbeat:"/"shutdown:" prefix back off a
// channel name to recover the node it names.
func nodeNameFromChannel(channel, prefix string) string {
	return strings.TrimPrefix(channel, prefix)
}
