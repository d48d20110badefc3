package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mutex         sync.RWMutex
	probeOK       map[string]int64
	probeFail     map[string]int64
	lastReason    map[string]string
	addressStates map[string]string
	announced     int64
	withdrawn     int64
	transitions   int64
	phase         string
	startTime     time.Time
}

type Snapshot struct {
	Uptime      time.Duration           `json:"uptime"`
	Phase       string                  `json:"phase"`
	Announced   int64                   `json:"announced"`
	Withdrawn   int64                   `json:"withdrawn"`
	Transitions int64                   `json:"transitions"`
	Probes      map[string]ProbeMetrics `json:"probes"`
	Addresses   map[string]string       `json:"addresses"`
}

type ProbeMetrics struct {
	Successes  int64  `json:"successes"`
	Failures   int64  `json:"failures"`
	LastReason string `json:"last_reason,omitempty"`
}

func New() *Metrics {
	return &Metrics{
		probeOK:       make(map[string]int64),
		probeFail:     make(map[string]int64),
		lastReason:    make(map[string]string),
		addressStates: make(map[string]string),
		startTime:     time.Now(),
	}
}

// RecordProbe counts one probe outcome for a target. reason is the failure
// detail, empty on success.
func (m *Metrics) RecordProbe(target string, healthy bool, reason string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if healthy {
		m.probeOK[target]++
		m.lastReason[target] = ""
	} else {
		m.probeFail[target]++
		m.lastReason[target] = reason
	}
}

// RecordTransition records a stable-state change for an address and the
// command it produced, if any.
func (m *Metrics) RecordTransition(prefix, state string, announced, withdrawn bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.transitions++
	m.addressStates[prefix] = state
	if announced {
		m.announced++
	}
	if withdrawn {
		m.withdrawn++
	}
}

// SetAddressState records the current stable state of an address without
// counting a transition, used at startup and during drain.
func (m *Metrics) SetAddressState(prefix, state string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.addressStates[prefix] = state
}

// SetPhase records the lifecycle phase for the status endpoint.
func (m *Metrics) SetPhase(phase string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.phase = phase
}

// Snapshot returns a copy of everything tracked so far.
func (m *Metrics) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		Uptime:      time.Since(m.startTime),
		Phase:       m.phase,
		Announced:   m.announced,
		Withdrawn:   m.withdrawn,
		Transitions: m.transitions,
		Probes:      make(map[string]ProbeMetrics),
		Addresses:   make(map[string]string),
	}

	targets := make(map[string]bool)
	for target := range m.probeOK {
		targets[target] = true
	}
	for target := range m.probeFail {
		targets[target] = true
	}

	for target := range targets {
		snap.Probes[target] = ProbeMetrics{
			Successes:  m.probeOK[target],
			Failures:   m.probeFail[target],
			LastReason: m.lastReason[target],
		}
	}

	for prefix, state := range m.addressStates {
		snap.Addresses[prefix] = state
	}

	return snap
}
