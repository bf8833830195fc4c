package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds all Prometheus metrics for the client core.
type Collector struct {
	// Registry for this collector instance
	registry *prometheus.Registry

	// Connection metrics
	MessagesReceived *prometheus.CounterVec
	DecodeFailures   prometheus.Counter
	Reconnects       prometheus.Counter
	SendsQueued      prometheus.Counter
	SendsDropped     prometheus.Counter
	QueueDepth       prometheus.Gauge

	// Graph metrics
	NodesAdded prometheus.Counter
	EdgesAdded prometheus.Counter
}

// NewCollector creates a new metrics collector with the given namespace.
// Each collector owns its registry so tests can instantiate several
// independent instances without duplicate-registration panics.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	messagesReceived := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_received_total",
			Help:      "Total number of inbound websocket messages by type",
		},
		[]string{"type"},
	)

	decodeFailures := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_decode_failures_total",
			Help:      "Total number of inbound frames dropped as undecodable",
		},
	)

	reconnects := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_reconnects_total",
			Help:      "Total number of reconnect attempts scheduled",
		},
	)

	sendsQueued := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_sends_queued_total",
			Help:      "Total number of outbound messages queued while disconnected",
		},
	)

	sendsDropped := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_sends_dropped_total",
			Help:      "Total number of outbound messages dropped after the queued retry failed",
		},
	)

	queueDepth := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_outbound_queue_depth",
			Help:      "Current number of outbound messages waiting for the socket to open",
		},
	)

	nodesAdded := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_nodes_added_total",
			Help:      "Total number of nodes merged into the snapshot",
		},
	)

	edgesAdded := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_edges_added_total",
			Help:      "Total number of edges merged into the snapshot",
		},
	)

	registry.MustRegister(
		messagesReceived,
		decodeFailures,
		reconnects,
		sendsQueued,
		sendsDropped,
		queueDepth,
		nodesAdded,
		edgesAdded,
	)

	return &Collector{
		registry:         registry,
		MessagesReceived: messagesReceived,
		DecodeFailures:   decodeFailures,
		Reconnects:       reconnects,
		SendsQueued:      sendsQueued,
		SendsDropped:     sendsDropped,
		QueueDepth:       queueDepth,
		NodesAdded:       nodesAdded,
		EdgesAdded:       edgesAdded,
	}
}

// Registry exposes the collector's registry for scraping or test inspection.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
