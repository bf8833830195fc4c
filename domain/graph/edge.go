package graph

// EdgeVisibility controls how an edge is presented.
type EdgeVisibility string

const (
	EdgeVisible EdgeVisibility = "visible"
	EdgeHidden  EdgeVisibility = "hidden"
	EdgeBright  EdgeVisibility = "bright"
)

// EdgeKey is the composite identity of an edge. An edge with an absent
// kind keys on the empty string and still participates in identity.
type EdgeKey struct {
	Source NodeID
	Target NodeID
	Kind   string
}

// String returns the canonical source-target-kind form used in logs.
func (k EdgeKey) String() string {
	return string(k.Source) + "-" + string(k.Target) + "-" + k.Kind
}

// Edge is a connection between two nodes. Edges may reference node ids
// that have not arrived yet; such dangling edges are retained but report
// as unresolved until both endpoints exist.
type Edge struct {
	Source     NodeID         `json:"source"`
	Target     NodeID         `json:"target"`
	Kind       string         `json:"type"`
	Label      string         `json:"label,omitempty"`
	Visibility EdgeVisibility `json:"visibility,omitempty"`
}

// Key returns the edge's composite identity.
func (e Edge) Key() EdgeKey {
	return EdgeKey{Source: e.Source, Target: e.Target, Kind: e.Kind}
}
