// Package protocol defines the wire messages exchanged with the session
// backend as a closed, tagged union. Every frame is one JSON object with
// a mandatory "type" discriminator; decoding is exhaustive over the
// known types so a new variant cannot be handled partially.
package protocol

import (
	"encoding/json"

	"sessiongraph/domain/graph"
)

// Type is the wire message discriminator.
type Type string

// Inbound message types.
const (
	TypeScenarioLoaded     Type = "scenario_loaded"
	TypeGraphUpdate        Type = "graph_update"
	TypePartResponse       Type = "part_response"
	TypeAssistantMessage   Type = "assistant_message"
	TypeBreakthrough       Type = "breakthrough"
	TypeCorrectionDetected Type = "correction_detected"
	TypeAgentStatus        Type = "agent_status"
	TypeVectorSnapshot     Type = "vector_snapshot"
	TypeWarmthSignal       Type = "warmth_signal"
	TypeNodeAnswer         Type = "node_answer"
)

// TypeDeliveryFailed is synthesized locally when an outbound message is
// dropped after its queued retry also failed. It never arrives from the
// backend; it exists so a dropped send is observable instead of silent.
const TypeDeliveryFailed Type = "delivery_failed"

// Outbound message types.
const (
	TypeUserMessage Type = "user_message"
	TypeNodeQuery   Type = "node_query"
	TypeBulkIngest  Type = "bulk_ingest"
)

// Wildcard subscribes a handler to every inbound message.
const Wildcard Type = "*"

// Message is implemented by every wire message variant.
type Message interface {
	MessageType() Type
}

// GraphPayload is the node/edge bundle carried by snapshot-bearing
// messages. The backend names the edge list "links".
type GraphPayload struct {
	Nodes []graph.Node `json:"nodes"`
	Links []graph.Edge `json:"links"`
}

// SnapshotPayload is a full graph snapshot with the turn it was taken at.
type SnapshotPayload struct {
	GraphPayload
	Turn int `json:"turn,omitempty"`
}

// PartInfo describes one named part of a scenario.
type PartInfo struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// ScenarioInfo describes the loaded scenario.
type ScenarioInfo struct {
	ID              string              `json:"id"`
	Title           string              `json:"title"`
	Tagline         string              `json:"tagline"`
	CaseDescription string              `json:"caseDescription"`
	Parts           map[string]PartInfo `json:"parts"`
}

// ScenarioLoaded announces the scenario and its initial graph.
type ScenarioLoaded struct {
	Type                   Type         `json:"type"`
	Scenario               ScenarioInfo `json:"scenario"`
	GraphData              GraphPayload `json:"graphData"`
	TriggeredBreakthroughs []string     `json:"triggeredBreakthroughs,omitempty"`
}

func (ScenarioLoaded) MessageType() Type { return TypeScenarioLoaded }

// GraphUpdate carries an incremental, possibly redundant graph payload.
type GraphUpdate struct {
	Type      Type         `json:"type"`
	GraphData GraphPayload `json:"graphData"`
}

func (GraphUpdate) MessageType() Type { return TypeGraphUpdate }

// PartResponse is a reply spoken by one named part.
type PartResponse struct {
	Type    Type   `json:"type"`
	Part    string `json:"part"`
	Name    string `json:"name"`
	Content string `json:"content"`
	Color   string `json:"color,omitempty"`
}

func (PartResponse) MessageType() Type { return TypePartResponse }

// AssistantMessage is a plain reply not attributed to a part.
type AssistantMessage struct {
	Type    Type   `json:"type"`
	Content string `json:"content"`
}

func (AssistantMessage) MessageType() Type { return TypeAssistantMessage }

// Breakthrough is a ceremony event carrying a diff and a full snapshot.
type Breakthrough struct {
	Type           Type             `json:"type"`
	BreakthroughID string           `json:"breakthroughId"`
	Name           string           `json:"name,omitempty"`
	InsightSummary string           `json:"insightSummary,omitempty"`
	GraphDiff      graph.Diff       `json:"graphDiff"`
	FullSnapshot   *SnapshotPayload `json:"fullSnapshot,omitempty"`
}

func (Breakthrough) MessageType() Type { return TypeBreakthrough }

// CorrectionDetected is a ceremony event contrasting a prior claim with
// the corrected insight.
type CorrectionDetected struct {
	Type            Type           `json:"type"`
	CorrectionType  string         `json:"correctionType,omitempty"`
	BeforeClaim     string         `json:"beforeClaim,omitempty"`
	AfterInsight    string         `json:"afterInsight,omitempty"`
	AffectedNodeIDs []graph.NodeID `json:"affectedNodeIds,omitempty"`
	GraphDiff       *graph.Diff    `json:"graphDiff,omitempty"`
}

func (CorrectionDetected) MessageType() Type { return TypeCorrectionDetected }

// AgentStatus reports a named worker's state transition.
type AgentStatus struct {
	Type       Type   `json:"type"`
	Agent      string `json:"agent"`
	Status     string `json:"status"`
	Summary    string `json:"summary,omitempty"`
	DurationMs int64  `json:"durationMs,omitempty"`
}

func (AgentStatus) MessageType() Type { return TypeAgentStatus }

// VectorSnapshot carries the named 0..1 clinical signals.
type VectorSnapshot struct {
	Type    Type               `json:"type"`
	Vectors map[string]float64 `json:"vectors"`
}

func (VectorSnapshot) MessageType() Type { return TypeVectorSnapshot }

// WarmthSignal reports proximity to the next breakthrough.
type WarmthSignal struct {
	Type               Type    `json:"type"`
	Warmth             float64 `json:"warmth"`
	NextBreakthroughID string  `json:"nextBreakthroughId,omitempty"`
}

func (WarmthSignal) MessageType() Type { return TypeWarmthSignal }

// NodeAnswer is the backend's reply to a NodeQuery.
type NodeAnswer struct {
	Type   Type         `json:"type"`
	NodeID graph.NodeID `json:"nodeId"`
	Answer string       `json:"answer"`
}

func (NodeAnswer) MessageType() Type { return TypeNodeAnswer }

// DeliveryFailed is the local-only notification for a dropped send.
type DeliveryFailed struct {
	Type    Type            `json:"type"`
	Reason  string          `json:"reason"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func (DeliveryFailed) MessageType() Type { return TypeDeliveryFailed }

// UserMessage is the user's utterance to the session.
type UserMessage struct {
	Type    Type   `json:"type"`
	Content string `json:"content"`
}

func (UserMessage) MessageType() Type { return TypeUserMessage }

// NodeQuery asks the backend a question about one node.
type NodeQuery struct {
	Type     Type         `json:"type"`
	NodeID   graph.NodeID `json:"nodeId"`
	Question string       `json:"question"`
}

func (NodeQuery) MessageType() Type { return TypeNodeQuery }

// BulkIngest submits raw text for offline graph extraction.
type BulkIngest struct {
	Type Type   `json:"type"`
	Text string `json:"text"`
}

func (BulkIngest) MessageType() Type { return TypeBulkIngest }
