// Command simulator is a local stand-in for the session backend: it
// serves the websocket endpoint with a scripted scenario so the client
// can be developed without the real agent pipeline.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"sessiongraph/domain/graph"
	"sessiongraph/domain/protocol"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("logger setup failed: %v", err)
	}
	defer logger.Sync()

	addr := os.Getenv("SIMULATOR_ADDR")
	if addr == "" {
		addr = ":8000"
	}

	sim := &simulator{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Get("/ws", sim.handleWebSocket)

	logger.Info("Simulator listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Fatal("Server stopped", zap.Error(err))
	}
}

type simulator struct {
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func (s *simulator) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Upgrade failed", zap.Error(err))
		return
	}

	session := &scriptedSession{
		conn:   conn,
		logger: s.logger.With(zap.String("session", r.URL.Query().Get("session"))),
	}
	go session.run()
}

// scriptedSession replays a canned therapy scenario: a fixed opening
// graph, one part reply per user turn, and a breakthrough on the third.
type scriptedSession struct {
	conn      *websocket.Conn
	logger    *zap.Logger
	userTurns int
}

func (s *scriptedSession) run() {
	defer s.conn.Close()

	s.send(openingScenario())

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.logger.Info("Session ended", zap.Error(err))
			return
		}
		msg, err := decodeCommand(data)
		if err != nil {
			s.logger.Warn("Dropping unreadable command", zap.Error(err))
			continue
		}
		switch cmd := msg.(type) {
		case protocol.UserMessage:
			s.userTurns++
			s.respondToUser(cmd)
		case protocol.NodeQuery:
			s.send(protocol.NodeAnswer{
				Type:   protocol.TypeNodeAnswer,
				NodeID: cmd.NodeID,
				Answer: "That part formed early in training and rarely speaks first.",
			})
		case protocol.BulkIngest:
			s.send(graphUpdateFor(cmd.Text))
		default:
			s.logger.Warn("Unexpected command", zap.String("type", string(msg.MessageType())))
		}
	}
}

func (s *scriptedSession) respondToUser(cmd protocol.UserMessage) {
	s.agentStatus("listener", "running", "")
	s.agentStatus("parts_engine", "running", "")
	time.Sleep(150 * time.Millisecond)
	s.agentStatus("listener", "done", "heard: "+truncate(cmd.Content, 40))

	s.send(protocol.PartResponse{
		Type:    protocol.TypePartResponse,
		Part:    "pleaser",
		Name:    "The Pleaser",
		Content: "I only said what they wanted to hear. It felt safer that way.",
		Color:   "#E8A94B",
	})
	s.agentStatus("parts_engine", "done", "")

	s.send(graphUpdateFor(cmd.Content))
	s.send(protocol.WarmthSignal{
		Type:   protocol.TypeWarmthSignal,
		Warmth: float64(s.userTurns) * 0.25,
	})

	if s.userTurns == 3 {
		s.send(breakthrough())
	}
}

func (s *scriptedSession) agentStatus(agent, status, summary string) {
	s.send(protocol.AgentStatus{
		Type:    protocol.TypeAgentStatus,
		Agent:   agent,
		Status:  status,
		Summary: summary,
	})
}

func (s *scriptedSession) send(msg protocol.Message) {
	data, err := protocol.Encode(msg)
	if err != nil {
		s.logger.Error("Failed to encode message", zap.Error(err))
		return
	}
	s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.logger.Error("Failed to write message", zap.Error(err))
	}
}

// decodeCommand parses the client-to-backend half of the protocol, which
// protocol.Decode does not cover.
func decodeCommand(data []byte) (protocol.Message, error) {
	var env struct {
		Type protocol.Type `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	switch env.Type {
	case protocol.TypeUserMessage:
		var m protocol.UserMessage
		return m, json.Unmarshal(data, &m)
	case protocol.TypeNodeQuery:
		var m protocol.NodeQuery
		return m, json.Unmarshal(data, &m)
	case protocol.TypeBulkIngest:
		var m protocol.BulkIngest
		return m, json.Unmarshal(data, &m)
	}
	return nil, fmt.Errorf("unknown command type %q", env.Type)
}

func openingScenario() protocol.ScenarioLoaded {
	return protocol.ScenarioLoaded{
		Type: protocol.TypeScenarioLoaded,
		Scenario: protocol.ScenarioInfo{
			ID:              "sycophancy",
			Title:           "The Sycophant",
			Tagline:         "A model that agreed too much",
			CaseDescription: "The assistant endorsed a harmful plan. Find out which part drove the agreement.",
			Parts: map[string]protocol.PartInfo{
				"pleaser":  {Name: "The Pleaser", Color: "#E8A94B"},
				"guardian": {Name: "The Guardian", Color: "#7B9FD4"},
			},
		},
		GraphData: protocol.GraphPayload{
			Nodes: []graph.Node{
				{ID: "pleaser", Kind: graph.KindPart, Label: "The Pleaser", Color: "#E8A94B", PositionHint: graph.PositionCentral},
				{ID: "guardian", Kind: graph.KindPart, Label: "The Guardian", Color: "#7B9FD4", PositionHint: graph.PositionSide},
			},
			Links: []graph.Edge{
				{Source: "pleaser", Target: "guardian", Kind: "SUPPRESSES"},
			},
		},
	}
}

func graphUpdateFor(content string) protocol.GraphUpdate {
	id := graph.NodeID("behavior-" + uuid.New().String()[:8])
	return protocol.GraphUpdate{
		Type: protocol.TypeGraphUpdate,
		GraphData: protocol.GraphPayload{
			Nodes: []graph.Node{
				{ID: id, Kind: graph.KindBehavior, Label: truncate(content, 24)},
			},
			Links: []graph.Edge{
				{Source: "pleaser", Target: id, Kind: "DRIVES"},
			},
		},
	}
}

func breakthrough() protocol.Breakthrough {
	fear := graph.Node{ID: "fear-of-rejection", Kind: graph.KindEmotion, Label: "Fear of rejection"}
	return protocol.Breakthrough{
		Type:           protocol.TypeBreakthrough,
		BreakthroughID: "bt-1",
		Name:           "The agreement was fear",
		InsightSummary: "The Pleaser agreed to avoid the discomfort of pushing back, not because it believed the plan was safe.",
		GraphDiff: graph.Diff{
			NewNodes: []graph.Node{fear},
			NewEdges: []graph.Edge{
				{Source: fear.ID, Target: "pleaser", Kind: "DRIVES"},
			},
			IlluminatedEdges: []graph.Edge{
				{Source: fear.ID, Target: "pleaser", Kind: "DRIVES"},
			},
			DissolvedEdges: []graph.Edge{
				{Source: "pleaser", Target: "guardian", Kind: "SUPPRESSES"},
			},
		},
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
