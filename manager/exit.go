package manager

import "context"

// Exit terminates every spawned node's process group, stops the background
// heartbeat/health goroutines, and closes the manager's broker connection.
// Safe to call after a partial Enter.
func (m *Manager) Exit(ctx context.Context) error {
	m.terminateAll()
	if m.cancelBG != nil {
		m.cancelBG()
	}
	m.wg.Wait()
	if m.metricsSrv != nil {
		if err := m.metricsSrv.Shutdown(ctx); err != nil {
			m.logger.Warn().Err(err).Msg("metrics listener shutdown failed")
		}
	}
	if m.brk != nil {
		return m.brk.Close(ctx)
	}
	return nil
}
