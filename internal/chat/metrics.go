package chat

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
)

// Metrics keeps cheap process-local counters for the chat subsystem.
type Metrics struct {
	activeConns        atomic.Int64
	messages           atomic.Uint64
	broadcasts         atomic.Uint64
	protocolViolations atomic.Uint64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) IncConn() { m.activeConns.Add(1) }

func (m *Metrics) DecConn() { m.activeConns.Add(-1) }

func (m *Metrics) IncMessage() { m.messages.Add(1) }

func (m *Metrics) IncBroadcast() { m.broadcasts.Add(1) }

func (m *Metrics) IncProtocolViolation() { m.protocolViolations.Add(1) }

func (m *Metrics) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	payload := map[string]any{
		"active_connections":        m.activeConns.Load(),
		"messages_total":            m.messages.Load(),
		"broadcasts_total":          m.broadcasts.Load(),
		"protocol_violations_total": m.protocolViolations.Load(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
