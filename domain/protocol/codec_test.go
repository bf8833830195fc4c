package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sessiongraph/domain/graph"
	pkgerrors "sessiongraph/pkg/errors"
)

func TestDecode_GraphUpdate(t *testing.T) {
	data := []byte(`{
		"type": "graph_update",
		"graphData": {
			"nodes": [{"id": "pleaser", "type": "part", "label": "The Pleaser"}],
			"links": [{"source": "pleaser", "target": "guardian", "type": "SUPPRESSES"}]
		}
	}`)

	msg, err := Decode(data)
	require.NoError(t, err)

	update, ok := msg.(GraphUpdate)
	require.True(t, ok)
	assert.Equal(t, TypeGraphUpdate, update.MessageType())
	require.Len(t, update.GraphData.Nodes, 1)
	assert.Equal(t, graph.NodeID("pleaser"), update.GraphData.Nodes[0].ID)
	assert.Equal(t, graph.KindPart, update.GraphData.Nodes[0].Kind)
	require.Len(t, update.GraphData.Links, 1)
	assert.Equal(t, "SUPPRESSES", update.GraphData.Links[0].Kind)
}

func TestDecode_BreakthroughWithDiff(t *testing.T) {
	data := []byte(`{
		"type": "breakthrough",
		"breakthroughId": "bt-1",
		"insightSummary": "the agreement was fear",
		"graphDiff": {
			"new_nodes": [{"id": "fear", "type": "emotion"}],
			"new_edges": [{"source": "fear", "target": "pleaser", "type": "DRIVES"}],
			"illuminated_edges": [{"source": "fear", "target": "pleaser", "type": "DRIVES"}],
			"dissolved_edges": []
		},
		"fullSnapshot": {"nodes": [], "links": [], "turn": 3}
	}`)

	msg, err := Decode(data)
	require.NoError(t, err)

	bt, ok := msg.(Breakthrough)
	require.True(t, ok)
	assert.Equal(t, "bt-1", bt.BreakthroughID)
	require.Len(t, bt.GraphDiff.NewNodes, 1)
	assert.Equal(t, graph.KindEmotion, bt.GraphDiff.NewNodes[0].Kind)
	assert.Len(t, bt.GraphDiff.IlluminatedEdges, 1)
	require.NotNil(t, bt.FullSnapshot)
	assert.Equal(t, 3, bt.FullSnapshot.Turn)
}

func TestDecode_AgentStatus(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"agent_status","agent":"listener","status":"done","durationMs":420}`))
	require.NoError(t, err)

	status, ok := msg.(AgentStatus)
	require.True(t, ok)
	assert.Equal(t, "listener", status.Agent)
	assert.Equal(t, "done", status.Status)
	assert.Equal(t, int64(420), status.DurationMs)
}

func TestDecode_MalformedJSON(t *testing.T) {
	_, err := Decode([]byte(`{"type": "graph_update"`))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsDecode(err))
}

func TestDecode_MissingDiscriminator(t *testing.T) {
	_, err := Decode([]byte(`{"content": "hello"}`))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsDecode(err))
}

func TestDecode_UnknownType(t *testing.T) {
	_, err := Decode([]byte(`{"type": "telemetry_burst"}`))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsDecode(err))
	assert.Contains(t, err.Error(), "telemetry_burst")
}

func TestDecode_MismatchedPayload(t *testing.T) {
	// Right discriminator, wrong field shape.
	_, err := Decode([]byte(`{"type": "warmth_signal", "warmth": "very"}`))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsDecode(err))
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	original := PartResponse{
		Type:    TypePartResponse,
		Part:    "pleaser",
		Name:    "The Pleaser",
		Content: "it felt safer to agree",
		Color:   "#E8A94B",
	}

	data, err := Encode(original)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestNewUserMessage_Validates(t *testing.T) {
	msg, err := NewUserMessage("hello")
	require.NoError(t, err)
	assert.Equal(t, TypeUserMessage, msg.Type)
	assert.Equal(t, "hello", msg.Content)

	_, err = NewUserMessage("")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestNewNodeQuery_Validates(t *testing.T) {
	msg, err := NewNodeQuery("pleaser", "when did you form?")
	require.NoError(t, err)
	assert.Equal(t, graph.NodeID("pleaser"), msg.NodeID)

	_, err = NewNodeQuery("", "q")
	assert.True(t, pkgerrors.IsValidation(err))

	_, err = NewNodeQuery("pleaser", "")
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestNewBulkIngest_Validates(t *testing.T) {
	_, err := NewBulkIngest("")
	assert.True(t, pkgerrors.IsValidation(err))

	msg, err := NewBulkIngest("session transcript text")
	require.NoError(t, err)
	assert.Equal(t, TypeBulkIngest, msg.Type)
}

func TestNewDeliveryFailed_IsLocalOnly(t *testing.T) {
	msg := NewDeliveryFailed("socket closed", []byte(`{"type":"user_message"}`))
	assert.Equal(t, TypeDeliveryFailed, msg.MessageType())
	assert.Equal(t, "socket closed", msg.Reason)
}
