package protocol

import (
	"encoding/json"

	"sessiongraph/domain/graph"
	pkgerrors "sessiongraph/pkg/errors"
)

// envelope is the minimal shape read to pick a variant.
type envelope struct {
	Type Type `json:"type"`
}

// Decode parses one inbound frame into its typed variant. Malformed JSON,
// a missing discriminator and an unknown type all return a DECODE error;
// the dispatch loop logs and drops such frames without stopping.
func Decode(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, pkgerrors.NewDecode("malformed frame", err)
	}
	if env.Type == "" {
		return nil, pkgerrors.NewDecode("frame has no type discriminator", nil)
	}

	var (
		msg Message
		err error
	)
	switch env.Type {
	case TypeScenarioLoaded:
		msg, err = unmarshal[ScenarioLoaded](data)
	case TypeGraphUpdate:
		msg, err = unmarshal[GraphUpdate](data)
	case TypePartResponse:
		msg, err = unmarshal[PartResponse](data)
	case TypeAssistantMessage:
		msg, err = unmarshal[AssistantMessage](data)
	case TypeBreakthrough:
		msg, err = unmarshal[Breakthrough](data)
	case TypeCorrectionDetected:
		msg, err = unmarshal[CorrectionDetected](data)
	case TypeAgentStatus:
		msg, err = unmarshal[AgentStatus](data)
	case TypeVectorSnapshot:
		msg, err = unmarshal[VectorSnapshot](data)
	case TypeWarmthSignal:
		msg, err = unmarshal[WarmthSignal](data)
	case TypeNodeAnswer:
		msg, err = unmarshal[NodeAnswer](data)
	case TypeDeliveryFailed:
		msg, err = unmarshal[DeliveryFailed](data)
	default:
		return nil, pkgerrors.NewDecode("unknown message type "+string(env.Type), nil)
	}
	return msg, err
}

func unmarshal[T Message](data []byte) (Message, error) {
	var m T
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, pkgerrors.NewDecode("malformed payload", err)
	}
	return m, nil
}

// Encode serializes an outbound message to one text frame.
func Encode(m Message) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, pkgerrors.NewInternal("failed to marshal message", err)
	}
	return data, nil
}

// Outbound constructors validate their payloads so an empty command is
// rejected before it reaches the queue.

// NewUserMessage builds a user_message command.
func NewUserMessage(content string) (UserMessage, error) {
	if content == "" {
		return UserMessage{}, pkgerrors.NewValidation("content cannot be empty")
	}
	return UserMessage{Type: TypeUserMessage, Content: content}, nil
}

// NewNodeQuery builds a node_query command.
func NewNodeQuery(nodeID graph.NodeID, question string) (NodeQuery, error) {
	if nodeID == "" {
		return NodeQuery{}, pkgerrors.NewValidation("nodeId cannot be empty")
	}
	if question == "" {
		return NodeQuery{}, pkgerrors.NewValidation("question cannot be empty")
	}
	return NodeQuery{Type: TypeNodeQuery, NodeID: nodeID, Question: question}, nil
}

// NewBulkIngest builds a bulk_ingest command.
func NewBulkIngest(text string) (BulkIngest, error) {
	if text == "" {
		return BulkIngest{}, pkgerrors.NewValidation("text cannot be empty")
	}
	return BulkIngest{Type: TypeBulkIngest, Text: text}, nil
}

// NewDeliveryFailed builds the synthetic local notification for a send
// dropped after its retry.
func NewDeliveryFailed(reason string, payload []byte) DeliveryFailed {
	return DeliveryFailed{Type: TypeDeliveryFailed, Reason: reason, Payload: payload}
}
