package querycache

import "github.com/prometheus/client_golang/prometheus"

const namespace = "omnidesk"
const subsystem = "querycache"

// Metrics are the cache counters. A nil *Metrics records nothing.
type Metrics struct {
	hits          prometheus.Counter
	misses        prometheus.Counter
	fetches       *prometheus.CounterVec
	dedupJoins    prometheus.Counter
	discards      prometheus.Counter
	invalidations *prometheus.CounterVec
}

// NewMetrics creates the counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "hits_total", Help: "Reads served from a fresh entry.",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "misses_total", Help: "Reads that needed a fetch.",
		}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "fetches_total", Help: "Completed backend fetches by result.",
		}, []string{"result"}),
		dedupJoins: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "dedup_joins_total", Help: "Reads that joined a fetch already in flight.",
		}),
		discards: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "discarded_total", Help: "Fetch results dropped because a newer fetch superseded them.",
		}),
		invalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "invalidations_total", Help: "Invalidation signals by entity.",
		}, []string{"entity"}),
	}
	reg.MustRegister(m.hits, m.misses, m.fetches, m.dedupJoins, m.discards, m.invalidations)
	return m
}

func (m *Metrics) hit() {
	if m != nil {
		m.hits.Inc()
	}
}

func (m *Metrics) miss() {
	if m != nil {
		m.misses.Inc()
	}
}

func (m *Metrics) joined() {
	if m != nil {
		m.dedupJoins.Inc()
	}
}

func (m *Metrics) discarded() {
	if m != nil {
		m.discards.Inc()
	}
}

func (m *Metrics) fetched(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.fetches.WithLabelValues(result).Inc()
}

func (m *Metrics) invalidated(entity string) {
	if m != nil {
		m.invalidations.WithLabelValues(entity).Inc()
	}
}
