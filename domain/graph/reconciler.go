package graph

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"sessiongraph/pkg/clock"
	"sessiongraph/pkg/observability"
)

// Checkpoint records the snapshot's shape after one apply, for the
// session timeline.
type Checkpoint struct {
	At        time.Time
	NodeCount int
	EdgeCount int
	Ceremony  bool
}

// ApplyResult is what one merge produced: the new snapshot plus the
// identities that were actually added (already-known ids are not
// repeated, which is what keeps appearance animations one-shot).
type ApplyResult struct {
	Snapshot   *Snapshot
	AddedNodes []NodeID
	AddedEdges []EdgeKey
}

// Reconciler is the single writer of the canonical snapshot. It merges
// partial, possibly redundant graph payloads idempotently: re-applying
// the same update or diff leaves the snapshot unchanged, and nothing is
// ever removed except through an explicit dissolve marker.
type Reconciler struct {
	mu         sync.Mutex
	current    *Snapshot
	importance map[NodeID]int
	history    []Checkpoint

	logger  *zap.Logger
	clock   clock.Clock
	metrics *observability.Collector
}

// NewReconciler creates a reconciler over an empty snapshot.
func NewReconciler(logger *zap.Logger, clk clock.Clock, metrics *observability.Collector) *Reconciler {
	return &Reconciler{
		current:    EmptySnapshot(),
		importance: map[NodeID]int{},
		logger:     logger.With(zap.String("component", "reconciler")),
		clock:      clk,
		metrics:    metrics,
	}
}

// Snapshot returns the latest snapshot. The returned value is immutable;
// callers must not attempt to mutate it.
func (r *Reconciler) Snapshot() *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// ApplyUpdate merges an incremental payload into the snapshot. Nodes and
// edges whose identity already exists are skipped; the rest are appended
// in payload order.
func (r *Reconciler) ApplyUpdate(nodes []Node, edges []Edge) ApplyResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.current.clone()
	result := r.merge(next, nodes, edges)

	// Every mention of a node id counts toward its importance, even when
	// the node itself is deduplicated.
	for _, n := range nodes {
		r.importance[n.ID]++
	}

	r.finish(next, &result)
	return result
}

// ApplyDiff applies a ceremony diff: field patches, bright and hidden
// edge markers, and the same union merge as ApplyUpdate. Markers are not
// deletions, so a later diff can re-illuminate a dissolved edge.
func (r *Reconciler) ApplyDiff(diff Diff) ApplyResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.current.clone()

	for _, patch := range diff.ChangedNodes {
		idx, ok := next.nodeIndex[patch.ID]
		if !ok {
			r.logger.Warn("Patch for unknown node skipped", zap.String("nodeID", patch.ID.String()))
			continue
		}
		next.nodes[idx] = patch.apply(next.nodes[idx])
	}

	for _, e := range diff.IlluminatedEdges {
		key := e.Key()
		next.bright[key] = struct{}{}
		delete(next.hidden, key)
	}
	for _, e := range diff.DissolvedEdges {
		key := e.Key()
		next.hidden[key] = struct{}{}
		delete(next.bright, key)
	}

	result := r.merge(next, diff.NewNodes, diff.NewEdges)
	r.finish(next, &result)
	return result
}

// Importance returns how many times a node id has been mentioned across
// updates.
func (r *Reconciler) Importance(id NodeID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.importance[id]
}

// History returns the apply-by-apply timeline of snapshot shapes.
func (r *Reconciler) History() []Checkpoint {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Checkpoint, len(r.history))
	copy(out, r.history)
	return out
}

// MarkCeremony flags the latest checkpoint as belonging to a ceremony.
func (r *Reconciler) MarkCeremony() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.history) == 0 {
		return
	}
	r.history[len(r.history)-1].Ceremony = true
}

// merge appends unknown nodes and edges to next. Caller holds the lock.
func (r *Reconciler) merge(next *Snapshot, nodes []Node, edges []Edge) ApplyResult {
	result := ApplyResult{}

	for _, n := range nodes {
		if _, ok := next.nodeIndex[n.ID]; ok {
			continue
		}
		next.nodeIndex[n.ID] = len(next.nodes)
		next.nodes = append(next.nodes, n)
		result.AddedNodes = append(result.AddedNodes, n.ID)
	}

	for _, e := range edges {
		key := e.Key()
		if _, ok := next.edgeIndex[key]; ok {
			continue
		}
		next.edgeIndex[key] = len(next.edges)
		next.edges = append(next.edges, e)
		result.AddedEdges = append(result.AddedEdges, key)
	}

	return result
}

// finish installs the new snapshot, records the checkpoint and updates
// metrics. Caller holds the lock.
func (r *Reconciler) finish(next *Snapshot, result *ApplyResult) {
	r.current = next
	result.Snapshot = next

	r.history = append(r.history, Checkpoint{
		At:        r.clock.Now(),
		NodeCount: next.NodeCount(),
		EdgeCount: next.EdgeCount(),
	})

	if r.metrics != nil {
		r.metrics.NodesAdded.Add(float64(len(result.AddedNodes)))
		r.metrics.EdgesAdded.Add(float64(len(result.AddedEdges)))
	}

	if len(result.AddedNodes) > 0 || len(result.AddedEdges) > 0 {
		r.logger.Debug("Snapshot extended",
			zap.Int("newNodes", len(result.AddedNodes)),
			zap.Int("newEdges", len(result.AddedEdges)),
			zap.Int("totalNodes", next.NodeCount()),
			zap.Int("totalEdges", next.EdgeCount()),
		)
	}
}
