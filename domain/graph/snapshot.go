package graph

// Snapshot is an immutable view of the currently known graph. Node and
// edge iteration preserves insertion order for stable rendering, but the
// order carries no semantic meaning. Bright and hidden edge markers are
// presentation hints layered on top of the edge set, not deletions.
type Snapshot struct {
	nodes     []Node
	edges     []Edge
	nodeIndex map[NodeID]int
	edgeIndex map[EdgeKey]int
	bright    map[EdgeKey]struct{}
	hidden    map[EdgeKey]struct{}
}

// EmptySnapshot returns the snapshot a session starts from.
func EmptySnapshot() *Snapshot {
	return &Snapshot{
		nodeIndex: map[NodeID]int{},
		edgeIndex: map[EdgeKey]int{},
		bright:    map[EdgeKey]struct{}{},
		hidden:    map[EdgeKey]struct{}{},
	}
}

// Nodes returns the node set in insertion order.
func (s *Snapshot) Nodes() []Node {
	out := make([]Node, len(s.nodes))
	copy(out, s.nodes)
	return out
}

// Edges returns the edge set in insertion order.
func (s *Snapshot) Edges() []Edge {
	out := make([]Edge, len(s.edges))
	copy(out, s.edges)
	return out
}

// Node looks up a node by id.
func (s *Snapshot) Node(id NodeID) (Node, bool) {
	idx, ok := s.nodeIndex[id]
	if !ok {
		return Node{}, false
	}
	return s.nodes[idx], true
}

// HasNode reports whether a node id exists in the snapshot.
func (s *Snapshot) HasNode(id NodeID) bool {
	_, ok := s.nodeIndex[id]
	return ok
}

// HasEdge reports whether an edge identity exists in the snapshot.
func (s *Snapshot) HasEdge(key EdgeKey) bool {
	_, ok := s.edgeIndex[key]
	return ok
}

// Resolved reports whether both endpoints of an edge exist. Dangling
// edges stay in the set but must never be rendered as resolved.
func (s *Snapshot) Resolved(e Edge) bool {
	return s.HasNode(e.Source) && s.HasNode(e.Target)
}

// Illuminated reports whether an edge carries the bright marker.
func (s *Snapshot) Illuminated(key EdgeKey) bool {
	_, ok := s.bright[key]
	return ok
}

// Dissolved reports whether an edge carries the hidden marker.
func (s *Snapshot) Dissolved(key EdgeKey) bool {
	_, ok := s.hidden[key]
	return ok
}

// NodeCount returns the number of nodes.
func (s *Snapshot) NodeCount() int {
	return len(s.nodes)
}

// EdgeCount returns the number of edges.
func (s *Snapshot) EdgeCount() int {
	return len(s.edges)
}

// clone makes a deep copy the reconciler can extend into the next
// snapshot without touching views already handed out.
func (s *Snapshot) clone() *Snapshot {
	next := &Snapshot{
		nodes:     make([]Node, len(s.nodes)),
		edges:     make([]Edge, len(s.edges)),
		nodeIndex: make(map[NodeID]int, len(s.nodeIndex)),
		edgeIndex: make(map[EdgeKey]int, len(s.edgeIndex)),
		bright:    make(map[EdgeKey]struct{}, len(s.bright)),
		hidden:    make(map[EdgeKey]struct{}, len(s.hidden)),
	}
	copy(next.nodes, s.nodes)
	copy(next.edges, s.edges)
	for id, idx := range s.nodeIndex {
		next.nodeIndex[id] = idx
	}
	for key, idx := range s.edgeIndex {
		next.edgeIndex[key] = idx
	}
	for key := range s.bright {
		next.bright[key] = struct{}{}
	}
	for key := range s.hidden {
		next.hidden[key] = struct{}{}
	}
	return next
}
