// Package metrics exposes Prometheus instruments for cache synchronization.
// A nil *Sync is valid and records nothing.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "syscache"

// Sync counts sync session activity.
type Sync struct {
	Pushed       prometheus.Counter
	Applied      prometheus.Counter
	DecodeErrors prometheus.Counter
	Skipped      prometheus.Counter
	Sessions     *prometheus.CounterVec
	Active       prometheus.Gauge
}

// NewSync creates the sync instruments and registers them with reg when
// reg is non-nil.
func NewSync(reg prometheus.Registerer) *Sync {
	m := &Sync{
		Pushed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "pushed_entries_total",
			Help:      "Entries sent to peers during the push phase.",
		}),
		Applied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "applied_entries_total",
			Help:      "Inbound entries applied to the local cache.",
		}),
		DecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "decode_errors_total",
			Help:      "Inbound messages discarded because they could not be decoded.",
		}),
		Skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "skipped_entries_total",
			Help:      "Local entries left out of a push because they are not UTF-8 text.",
		}),
		Sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "sessions_total",
			Help:      "Finished sync sessions by terminal state.",
		}, []string{"state"}),
		Active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "sessions_active",
			Help:      "Sessions currently in the syncing state.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Pushed, m.Applied, m.DecodeErrors, m.Skipped, m.Sessions, m.Active)
	}
	return m
}

func (m *Sync) ObservePush() {
	if m != nil {
		m.Pushed.Inc()
	}
}

func (m *Sync) ObserveApply() {
	if m != nil {
		m.Applied.Inc()
	}
}

func (m *Sync) ObserveDecodeError() {
	if m != nil {
		m.DecodeErrors.Inc()
	}
}

func (m *Sync) ObserveSkip() {
	if m != nil {
		m.Skipped.Inc()
	}
}

// SessionSyncing marks a session entering the syncing state.
func (m *Sync) SessionSyncing() {
	if m != nil {
		m.Active.Inc()
	}
}

// SessionEnded records a terminal state. wasSyncing must be true when the
// session had been counted by SessionSyncing.
func (m *Sync) SessionEnded(state string, wasSyncing bool) {
	if m == nil {
		return
	}
	if wasSyncing {
		m.Active.Dec()
	}
	m.Sessions.WithLabelValues(state).Inc()
}
