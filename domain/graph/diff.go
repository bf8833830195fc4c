package graph

// Diff is a small, targeted instruction applied on top of the latest
// snapshot during a ceremony event. It is distinct from a full
// incremental update: besides unioning in new nodes and edges it patches
// named fields and moves edges between the bright and hidden marker sets.
type Diff struct {
	NewNodes         []Node      `json:"new_nodes,omitempty"`
	NewEdges         []Edge      `json:"new_edges,omitempty"`
	ChangedNodes     []NodePatch `json:"changed_nodes,omitempty"`
	IlluminatedEdges []Edge      `json:"illuminated_edges,omitempty"`
	DissolvedEdges   []Edge      `json:"dissolved_edges,omitempty"`
}

// Empty reports whether the diff carries no instructions.
func (d Diff) Empty() bool {
	return len(d.NewNodes) == 0 &&
		len(d.NewEdges) == 0 &&
		len(d.ChangedNodes) == 0 &&
		len(d.IlluminatedEdges) == 0 &&
		len(d.DissolvedEdges) == 0
}
