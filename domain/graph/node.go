// Package graph holds the canonical session-graph model: nodes, edges,
// immutable snapshots, diffs, and the reconciler that merges partial
// updates from the backend into one growing snapshot.
package graph

// NodeID uniquely identifies a node within a snapshot.
type NodeID string

// String returns the string representation
func (id NodeID) String() string {
	return string(id)
}

// NodeKind is the closed set of node categories the backend emits.
type NodeKind string

const (
	KindPart     NodeKind = "part"
	KindInsight  NodeKind = "insight"
	KindBehavior NodeKind = "behavior"
	KindEmotion  NodeKind = "emotion"
)

// NodeVisibility controls how a node is presented.
type NodeVisibility string

const (
	NodeBright NodeVisibility = "bright"
	NodeDim    NodeVisibility = "dim"
	NodeHidden NodeVisibility = "hidden"
)

// PositionHint suggests where the layout should place a node.
type PositionHint string

const (
	PositionCentral       PositionHint = "central"
	PositionSide          PositionHint = "side"
	PositionPeripheral    PositionHint = "peripheral"
	PositionFarPeripheral PositionHint = "far_peripheral"
)

// Node is a unit of the session graph. Identity is the ID; every other
// field is mutable only through an explicit NodePatch, never through
// re-insertion of the same id.
type Node struct {
	ID           NodeID         `json:"id"`
	Kind         NodeKind       `json:"type"`
	Label        string         `json:"label"`
	Description  string         `json:"description,omitempty"`
	Color        string         `json:"color,omitempty"`
	Visibility   NodeVisibility `json:"visibility,omitempty"`
	Size         float64        `json:"size,omitempty"`
	Importance   int            `json:"importance,omitempty"`
	PositionHint PositionHint   `json:"position_hint,omitempty"`
}

// NodePatch is a partial field update for an existing node. Only fields
// present in the payload are applied; absent fields leave the node
// untouched.
type NodePatch struct {
	ID           NodeID          `json:"id"`
	Kind         *NodeKind       `json:"type,omitempty"`
	Label        *string         `json:"label,omitempty"`
	Description  *string         `json:"description,omitempty"`
	Color        *string         `json:"color,omitempty"`
	Visibility   *NodeVisibility `json:"visibility,omitempty"`
	Size         *float64        `json:"size,omitempty"`
	Importance   *int            `json:"importance,omitempty"`
	PositionHint *PositionHint   `json:"position_hint,omitempty"`
}

// apply copies the patch's present fields onto a node.
func (p NodePatch) apply(n Node) Node {
	if p.Kind != nil {
		n.Kind = *p.Kind
	}
	if p.Label != nil {
		n.Label = *p.Label
	}
	if p.Description != nil {
		n.Description = *p.Description
	}
	if p.Color != nil {
		n.Color = *p.Color
	}
	if p.Visibility != nil {
		n.Visibility = *p.Visibility
	}
	if p.Size != nil {
		n.Size = *p.Size
	}
	if p.Importance != nil {
		n.Importance = *p.Importance
	}
	if p.PositionHint != nil {
		n.PositionHint = *p.PositionHint
	}
	return n
}
