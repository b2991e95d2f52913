package dispatch

import "github.com/prometheus/client_golang/prometheus"

// Stats is the embedding interface's pull-style snapshot (spec §6:
// "stats() → { vertex_count, tip_count, finalized_height, peer_count,
// active_circuits, avg_latency_ms, queue_depth, bytes_in, bytes_out }").
// AvgLatencyMs is not set by Dispatcher.Stats and is always 0; the
// avg_latency_ms gauge is registered but never updated.
type Stats struct {
	VertexCount     int
	TipCount        int
	FinalizedHeight uint64
	PeerCount       int
	ActiveCircuits  int
	AvgLatencyMs    float64
	QueueDepth      int
	BytesIn         uint64
	BytesOut        uint64
}

// metrics holds the prometheus counters and gauges backing Stats, so the
// same state is both pull-queryable (Stats()) and scrape-queryable
// (spec §9 "expose observability via pull-style stats() rather than
// ambient mutable globals" — the registry itself is owned by this
// struct, never a package-level global).
type metrics struct {
	vertexCount     prometheus.Gauge
	tipCount        prometheus.Gauge
	finalizedHeight prometheus.Gauge
	peerCount       prometheus.Gauge
	activeCircuits  prometheus.Gauge
	avgLatencyMs    prometheus.Gauge
	queueDepth      prometheus.Gauge
	bytesIn         prometheus.Counter
	bytesOut        prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		vertexCount:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "dagmix", Name: "vertex_count", Help: "Number of vertices admitted to the local DAG store."}),
		tipCount:        prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "dagmix", Name: "tip_count", Help: "Number of current DAG tips."}),
		finalizedHeight: prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "dagmix", Name: "finalized_height", Help: "Count of vertices that have reached Final."}),
		peerCount:       prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "dagmix", Name: "peer_count", Help: "Number of known peers in the routing table."}),
		activeCircuits:  prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "dagmix", Name: "active_circuits", Help: "Number of active onion circuits."}),
		avgLatencyMs:    prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "dagmix", Name: "avg_latency_ms", Help: "Exponentially weighted average connection round-trip time, in milliseconds."}),
		queueDepth:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "dagmix", Name: "queue_depth", Help: "Inbound dispatcher queue depth."}),
		bytesIn:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "dagmix", Name: "bytes_in_total", Help: "Total bytes received across all connections."}),
		bytesOut:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "dagmix", Name: "bytes_out_total", Help: "Total bytes sent across all connections."}),
	}
	if reg != nil {
		reg.MustRegister(
			m.vertexCount, m.tipCount, m.finalizedHeight, m.peerCount,
			m.activeCircuits, m.avgLatencyMs, m.queueDepth, m.bytesIn, m.bytesOut,
		)
	}
	return m
}
