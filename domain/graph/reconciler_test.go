package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sessiongraph/pkg/clock"
)

func newTestReconciler() *Reconciler {
	return NewReconciler(zap.NewNop(), clock.NewFake(), nil)
}

func TestReconciler_ApplyUpdate_MergesIncrementally(t *testing.T) {
	r := newTestReconciler()

	// First update: A, B and A->B.
	first := r.ApplyUpdate(
		[]Node{{ID: "A", Kind: KindPart, Label: "A"}, {ID: "B", Kind: KindPart, Label: "B"}},
		[]Edge{{Source: "A", Target: "B", Kind: "DRIVES"}},
	)
	assert.Equal(t, []NodeID{"A", "B"}, first.AddedNodes)
	assert.Len(t, first.AddedEdges, 1)

	// Second, overlapping update: B, C and A->B, B->C.
	second := r.ApplyUpdate(
		[]Node{{ID: "B", Kind: KindPart, Label: "B"}, {ID: "C", Kind: KindInsight, Label: "C"}},
		[]Edge{
			{Source: "A", Target: "B", Kind: "DRIVES"},
			{Source: "B", Target: "C", Kind: "REVEALS"},
		},
	)
	assert.Equal(t, []NodeID{"C"}, second.AddedNodes, "B is already known")
	assert.Equal(t, []EdgeKey{{Source: "B", Target: "C", Kind: "REVEALS"}}, second.AddedEdges)

	snap := second.Snapshot
	assert.Equal(t, 3, snap.NodeCount())
	assert.Equal(t, 2, snap.EdgeCount())
	assert.True(t, snap.HasNode("A"))
	assert.True(t, snap.HasNode("B"))
	assert.True(t, snap.HasNode("C"))
}

func TestReconciler_ApplyUpdate_Idempotent(t *testing.T) {
	r := newTestReconciler()
	nodes := []Node{{ID: "A", Kind: KindPart, Label: "A"}}
	edges := []Edge{{Source: "A", Target: "A", Kind: "EXPLAINS"}}

	first := r.ApplyUpdate(nodes, edges)
	second := r.ApplyUpdate(nodes, edges)

	assert.Empty(t, second.AddedNodes)
	assert.Empty(t, second.AddedEdges)
	assert.Equal(t, first.Snapshot.NodeCount(), second.Snapshot.NodeCount())
	assert.Equal(t, first.Snapshot.EdgeCount(), second.Snapshot.EdgeCount())
}

func TestReconciler_ApplyUpdate_NeverShrinks(t *testing.T) {
	r := newTestReconciler()
	r.ApplyUpdate(
		[]Node{{ID: "A"}, {ID: "B"}},
		[]Edge{{Source: "A", Target: "B", Kind: "DRIVES"}},
	)

	// An empty update must not remove anything.
	result := r.ApplyUpdate(nil, nil)
	assert.Equal(t, 2, result.Snapshot.NodeCount())
	assert.Equal(t, 1, result.Snapshot.EdgeCount())
}

func TestReconciler_ApplyUpdate_ReinsertionDoesNotMutate(t *testing.T) {
	r := newTestReconciler()
	r.ApplyUpdate([]Node{{ID: "A", Label: "original"}}, nil)

	result := r.ApplyUpdate([]Node{{ID: "A", Label: "changed"}}, nil)
	node, ok := result.Snapshot.Node("A")
	require.True(t, ok)
	assert.Equal(t, "original", node.Label, "fields change only via patches")
}

func TestReconciler_ApplyDiff_PatchesOnlyPresentFields(t *testing.T) {
	r := newTestReconciler()
	r.ApplyUpdate([]Node{{ID: "A", Label: "A", Color: "#fff", Importance: 3}}, nil)

	label := "renamed"
	r.ApplyDiff(Diff{ChangedNodes: []NodePatch{{ID: "A", Label: &label}}})

	node, ok := r.Snapshot().Node("A")
	require.True(t, ok)
	assert.Equal(t, "renamed", node.Label)
	assert.Equal(t, "#fff", node.Color, "absent fields stay untouched")
	assert.Equal(t, 3, node.Importance)
}

func TestReconciler_ApplyDiff_UnknownPatchIsSkipped(t *testing.T) {
	r := newTestReconciler()
	label := "x"
	result := r.ApplyDiff(Diff{ChangedNodes: []NodePatch{{ID: "ghost", Label: &label}}})
	assert.Equal(t, 0, result.Snapshot.NodeCount())
}

func TestReconciler_ApplyDiff_MarkersLayerOnTop(t *testing.T) {
	r := newTestReconciler()
	edge := Edge{Source: "A", Target: "B", Kind: "DRIVES"}
	r.ApplyUpdate([]Node{{ID: "A"}, {ID: "B"}}, []Edge{edge})

	r.ApplyDiff(Diff{DissolvedEdges: []Edge{edge}})
	snap := r.Snapshot()
	assert.True(t, snap.Dissolved(edge.Key()))
	assert.Equal(t, 1, snap.EdgeCount(), "dissolve hides, never deletes")

	// A later diff can re-illuminate a dissolved edge.
	r.ApplyDiff(Diff{IlluminatedEdges: []Edge{edge}})
	snap = r.Snapshot()
	assert.True(t, snap.Illuminated(edge.Key()))
	assert.False(t, snap.Dissolved(edge.Key()))
}

func TestReconciler_ApplyDiff_Idempotent(t *testing.T) {
	r := newTestReconciler()
	r.ApplyUpdate([]Node{{ID: "A"}, {ID: "B"}}, nil)

	label := "patched"
	diff := Diff{
		NewNodes:         []Node{{ID: "C"}},
		NewEdges:         []Edge{{Source: "A", Target: "C", Kind: "REVEALS"}},
		ChangedNodes:     []NodePatch{{ID: "A", Label: &label}},
		IlluminatedEdges: []Edge{{Source: "A", Target: "C", Kind: "REVEALS"}},
	}

	first := r.ApplyDiff(diff)
	second := r.ApplyDiff(diff)

	assert.Empty(t, second.AddedNodes)
	assert.Empty(t, second.AddedEdges)
	assert.Equal(t, first.Snapshot.NodeCount(), second.Snapshot.NodeCount())
	assert.Equal(t, first.Snapshot.EdgeCount(), second.Snapshot.EdgeCount())
}

func TestReconciler_DanglingEdgeTolerated(t *testing.T) {
	r := newTestReconciler()
	dangling := Edge{Source: "A", Target: "missing", Kind: "DRIVES"}
	result := r.ApplyUpdate([]Node{{ID: "A"}}, []Edge{dangling})

	assert.True(t, result.Snapshot.HasEdge(dangling.Key()))
	assert.False(t, result.Snapshot.Resolved(dangling), "unresolved until both endpoints exist")

	result = r.ApplyUpdate([]Node{{ID: "missing"}}, nil)
	assert.True(t, result.Snapshot.Resolved(dangling))
}

func TestReconciler_ImportanceCountsEveryMention(t *testing.T) {
	r := newTestReconciler()
	r.ApplyUpdate([]Node{{ID: "A"}}, nil)
	r.ApplyUpdate([]Node{{ID: "A"}}, nil)
	r.ApplyUpdate([]Node{{ID: "A"}, {ID: "B"}}, nil)

	assert.Equal(t, 3, r.Importance("A"))
	assert.Equal(t, 1, r.Importance("B"))
	assert.Equal(t, 0, r.Importance("never-seen"))
}

func TestReconciler_HistoryAndCeremonyMark(t *testing.T) {
	r := newTestReconciler()
	r.ApplyUpdate([]Node{{ID: "A"}}, nil)
	r.ApplyDiff(Diff{NewNodes: []Node{{ID: "B"}}})
	r.MarkCeremony()

	history := r.History()
	require.Len(t, history, 2)
	assert.False(t, history[0].Ceremony)
	assert.True(t, history[1].Ceremony)
	assert.Equal(t, 2, history[1].NodeCount)
}

func TestSnapshot_InsertionOrderPreserved(t *testing.T) {
	r := newTestReconciler()
	r.ApplyUpdate([]Node{{ID: "z"}, {ID: "a"}, {ID: "m"}}, nil)

	nodes := r.Snapshot().Nodes()
	require.Len(t, nodes, 3)
	assert.Equal(t, NodeID("z"), nodes[0].ID)
	assert.Equal(t, NodeID("a"), nodes[1].ID)
	assert.Equal(t, NodeID("m"), nodes[2].ID)
}

func TestSnapshot_ViewsAreCopies(t *testing.T) {
	r := newTestReconciler()
	r.ApplyUpdate([]Node{{ID: "A", Label: "A"}}, nil)

	view := r.Snapshot().Nodes()
	view[0].Label = "mutated"

	node, _ := r.Snapshot().Node("A")
	assert.Equal(t, "A", node.Label)
}
