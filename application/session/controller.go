// Package session orchestrates user-originated commands and aggregates
// session state from the inbound message stream.
package session

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"sessiongraph/application/ephemeral"
	"sessiongraph/domain/graph"
	"sessiongraph/domain/protocol"
	domainsession "sessiongraph/domain/session"
	"sessiongraph/pkg/clock"
	pkgerrors "sessiongraph/pkg/errors"
)

// Connection is the slice of the connection manager the controller
// needs. Injecting it keeps the controller testable against a fake.
type Connection interface {
	Send(protocol.Message) error
	Subscribe(t protocol.Type, handler func(protocol.Message)) func()
}

// Options configures a Controller.
type Options struct {
	// ProcessingTimeout clears the busy flag when no reply arrives, so
	// the UI can never be stuck on an unresponsive backend.
	ProcessingTimeout time.Duration
}

// Controller turns user input into outbound commands and folds inbound
// messages into session state: the transcript, the busy flag, agent
// statuses, scenario info and the clinical signals.
type Controller struct {
	opts       Options
	conn       Connection
	reconciler *graph.Reconciler
	tracker    *ephemeral.Tracker
	clock      clock.Clock
	logger     *zap.Logger

	mu             sync.Mutex
	transcript     []domainsession.Entry
	processing     bool
	timeoutGen     int
	timeoutTimer   clock.Timer
	agents         map[string]domainsession.AgentStatus
	scenario       *protocol.ScenarioInfo
	vectors        map[string]float64
	warmth         float64
	nextBreak      string
	triggered      int
	selectedPart   string
	sessionStarted bool
	nodeAnswers    map[graph.NodeID]string
	unsubscribes   []func()
}

// NewController creates a controller. Call Attach to wire it to the
// connection's message stream.
func NewController(opts Options, conn Connection, reconciler *graph.Reconciler, tracker *ephemeral.Tracker, clk clock.Clock, logger *zap.Logger) *Controller {
	return &Controller{
		opts:        opts,
		conn:        conn,
		reconciler:  reconciler,
		tracker:     tracker,
		clock:       clk,
		logger:      logger.With(zap.String("component", "session")),
		agents:      make(map[string]domainsession.AgentStatus),
		nodeAnswers: make(map[graph.NodeID]string),
	}
}

// Attach subscribes the controller to every inbound type it consumes.
func (c *Controller) Attach() {
	subs := []struct {
		t protocol.Type
		h func(protocol.Message)
	}{
		{protocol.TypeScenarioLoaded, c.onScenarioLoaded},
		{protocol.TypeGraphUpdate, c.onGraphUpdate},
		{protocol.TypePartResponse, c.onPartResponse},
		{protocol.TypeAssistantMessage, c.onAssistantMessage},
		{protocol.TypeBreakthrough, c.onBreakthrough},
		{protocol.TypeCorrectionDetected, c.onCorrectionDetected},
		{protocol.TypeAgentStatus, c.onAgentStatus},
		{protocol.TypeVectorSnapshot, c.onVectorSnapshot},
		{protocol.TypeWarmthSignal, c.onWarmthSignal},
		{protocol.TypeNodeAnswer, c.onNodeAnswer},
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range subs {
		c.unsubscribes = append(c.unsubscribes, c.conn.Subscribe(s.t, s.h))
	}
}

// Detach removes every subscription and stops the pending timeout.
func (c *Controller) Detach() {
	c.mu.Lock()
	unsubs := c.unsubscribes
	c.unsubscribes = nil
	if c.timeoutTimer != nil {
		c.timeoutTimer.Stop()
		c.timeoutTimer = nil
	}
	c.mu.Unlock()
	for _, u := range unsubs {
		u()
	}
}

// SendUserMessage appends the user's entry optimistically, raises the
// busy flag with its timeout fallback, and forwards the command.
func (c *Controller) SendUserMessage(text string) error {
	msg, err := protocol.NewUserMessage(text)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.sessionStarted = true
	c.transcript = append(c.transcript, domainsession.NewUserEntry(text, c.clock.Now()))
	c.armTimeoutLocked()
	c.mu.Unlock()

	return c.conn.Send(msg)
}

// QueryNode asks the backend a question about one node. The node must
// already exist in the snapshot; questions about ids the session has
// never seen are rejected locally.
func (c *Controller) QueryNode(nodeID graph.NodeID, question string) error {
	msg, err := protocol.NewNodeQuery(nodeID, question)
	if err != nil {
		return err
	}
	if !c.reconciler.Snapshot().HasNode(nodeID) {
		return pkgerrors.NewNotFound("unknown node: " + nodeID.String())
	}
	return c.conn.Send(msg)
}

// BulkIngest submits raw text for offline graph extraction.
func (c *Controller) BulkIngest(text string) error {
	msg, err := protocol.NewBulkIngest(text)
	if err != nil {
		return err
	}
	return c.conn.Send(msg)
}

// SelectPart toggles the addressed part.
func (c *Controller) SelectPart(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selectedPart == id {
		c.selectedPart = ""
		return
	}
	c.selectedPart = id
}

// Transcript returns a copy of the transcript.
func (c *Controller) Transcript() []domainsession.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domainsession.Entry, len(c.transcript))
	copy(out, c.transcript)
	return out
}

// IsProcessing reports the busy flag.
func (c *Controller) IsProcessing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.processing
}

// UserTurns counts the user's transcript entries.
func (c *Controller) UserTurns() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.transcript {
		if e.Role == domainsession.RoleUser {
			n++
		}
	}
	return n
}

// AgentStatuses returns the known workers' latest statuses in panel
// order. Workers that never reported are absent.
func (c *Controller) AgentStatuses() []domainsession.AgentStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domainsession.AgentStatus, 0, len(c.agents))
	for _, name := range domainsession.KnownAgents {
		if s, ok := c.agents[name]; ok {
			out = append(out, s)
		}
	}
	return out
}

// ActiveAgents returns the running workers in panel order.
func (c *Controller) ActiveAgents() []domainsession.AgentStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domainsession.AgentStatus, 0, len(c.agents))
	for _, name := range domainsession.KnownAgents {
		if s, ok := c.agents[name]; ok && s.State == domainsession.AgentRunning {
			out = append(out, s)
		}
	}
	return out
}

// Scenario returns the loaded scenario, if any.
func (c *Controller) Scenario() (protocol.ScenarioInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.scenario == nil {
		return protocol.ScenarioInfo{}, false
	}
	return *c.scenario, true
}

// Vectors returns the latest clinical signal snapshot.
func (c *Controller) Vectors() map[string]float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]float64, len(c.vectors))
	for k, v := range c.vectors {
		out[k] = v
	}
	return out
}

// Warmth returns the latest warmth signal.
func (c *Controller) Warmth() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.warmth
}

// TriggeredBreakthroughs counts the ceremonies seen this session.
func (c *Controller) TriggeredBreakthroughs() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.triggered
}

// NodeAnswer returns the backend's last answer for a node query.
func (c *Controller) NodeAnswer(id graph.NodeID) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	answer, ok := c.nodeAnswers[id]
	return answer, ok
}

// Placeholder derives the input hint from current state. Pure: no side
// effects, same state yields the same hint.
func (c *Controller) Placeholder() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	selectedName := ""
	if c.scenario != nil && c.selectedPart != "" {
		if part, ok := c.scenario.Parts[c.selectedPart]; ok {
			selectedName = part.Name
		}
	}
	return domainsession.Placeholder(domainsession.PromptState{
		SelectedPartName:       selectedName,
		SessionStarted:         c.sessionStarted,
		Warmth:                 c.warmth,
		TriggeredBreakthroughs: c.triggered,
		TranscriptLen:          len(c.transcript),
	})
}

// armTimeoutLocked raises the busy flag and (re)starts the timeout that
// clears it if no reply arrives. Caller holds the lock.
func (c *Controller) armTimeoutLocked() {
	c.processing = true
	if c.timeoutTimer != nil {
		c.timeoutTimer.Stop()
	}
	c.timeoutGen++
	gen := c.timeoutGen
	c.timeoutTimer = c.clock.AfterFunc(c.opts.ProcessingTimeout, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if gen != c.timeoutGen {
			return
		}
		c.timeoutTimer = nil
		if c.processing {
			c.processing = false
			c.logger.Warn("No reply within processing timeout")
		}
	})
}

// clearProcessingLocked cancels the pending timeout the instant a reply
// arrives. Caller holds the lock.
func (c *Controller) clearProcessingLocked() {
	if c.timeoutTimer != nil {
		c.timeoutTimer.Stop()
		c.timeoutTimer = nil
	}
	c.timeoutGen++
	c.processing = false
}

// Inbound handlers.

func (c *Controller) onScenarioLoaded(m protocol.Message) {
	msg, ok := m.(protocol.ScenarioLoaded)
	if !ok {
		return
	}
	c.mu.Lock()
	scenario := msg.Scenario
	c.scenario = &scenario
	c.triggered = len(msg.TriggeredBreakthroughs)
	c.mu.Unlock()

	result := c.reconciler.ApplyUpdate(msg.GraphData.Nodes, msg.GraphData.Links)
	c.tracker.MarkAdded(result.AddedNodes, result.AddedEdges)
	c.logger.Info("Scenario loaded",
		zap.String("scenarioID", msg.Scenario.ID),
		zap.Int("nodes", result.Snapshot.NodeCount()),
	)
}

func (c *Controller) onGraphUpdate(m protocol.Message) {
	msg, ok := m.(protocol.GraphUpdate)
	if !ok {
		return
	}
	result := c.reconciler.ApplyUpdate(msg.GraphData.Nodes, msg.GraphData.Links)
	c.tracker.MarkAdded(result.AddedNodes, result.AddedEdges)
}

func (c *Controller) onPartResponse(m protocol.Message) {
	msg, ok := m.(protocol.PartResponse)
	if !ok {
		return
	}
	c.mu.Lock()
	c.clearProcessingLocked()
	c.transcript = append(c.transcript,
		domainsession.NewPartEntry(msg.Part, msg.Name, msg.Color, msg.Content, c.clock.Now()))
	c.mu.Unlock()

	c.tracker.AddCallout(msg.Part, msg.Name, msg.Content, msg.Color)
}

func (c *Controller) onAssistantMessage(m protocol.Message) {
	msg, ok := m.(protocol.AssistantMessage)
	if !ok {
		return
	}
	c.mu.Lock()
	c.clearProcessingLocked()
	c.transcript = append(c.transcript,
		domainsession.NewSystemEntry(msg.Content, c.clock.Now()))
	c.mu.Unlock()
}

func (c *Controller) onBreakthrough(m protocol.Message) {
	msg, ok := m.(protocol.Breakthrough)
	if !ok {
		return
	}
	c.mu.Lock()
	c.triggered++
	c.nextBreak = ""
	c.mu.Unlock()

	result := c.reconciler.ApplyDiff(msg.GraphDiff)
	if msg.FullSnapshot != nil {
		// The full snapshot is merged, not swapped in: the union keeps
		// the append-only guarantee when the backend's snapshot lags.
		extra := c.reconciler.ApplyUpdate(msg.FullSnapshot.Nodes, msg.FullSnapshot.Links)
		result.AddedNodes = append(result.AddedNodes, extra.AddedNodes...)
		result.AddedEdges = append(result.AddedEdges, extra.AddedEdges...)
	}
	c.reconciler.MarkCeremony()
	c.tracker.MarkAdded(result.AddedNodes, result.AddedEdges)
	c.tracker.ShowCeremony(ephemeral.Ceremony{
		Kind:    ephemeral.CeremonyBreakthrough,
		Title:   msg.Name,
		Summary: msg.InsightSummary,
		Diff:    msg.GraphDiff,
	})
}

func (c *Controller) onCorrectionDetected(m protocol.Message) {
	msg, ok := m.(protocol.CorrectionDetected)
	if !ok {
		return
	}
	var diff graph.Diff
	if msg.GraphDiff != nil {
		diff = *msg.GraphDiff
		result := c.reconciler.ApplyDiff(diff)
		c.tracker.MarkAdded(result.AddedNodes, result.AddedEdges)
	}
	c.reconciler.MarkCeremony()
	c.tracker.ShowCeremony(ephemeral.Ceremony{
		Kind:         ephemeral.CeremonyCorrection,
		Title:        msg.CorrectionType,
		BeforeClaim:  msg.BeforeClaim,
		AfterInsight: msg.AfterInsight,
		Diff:         diff,
	})
}

func (c *Controller) onAgentStatus(m protocol.Message) {
	msg, ok := m.(protocol.AgentStatus)
	if !ok {
		return
	}
	if !domainsession.IsKnownAgent(msg.Agent) {
		c.logger.Warn("Status for unknown agent rejected", zap.String("agent", msg.Agent))
		return
	}
	state, err := domainsession.ParseAgentState(msg.Status)
	if err != nil {
		c.logger.Warn("Invalid agent state rejected",
			zap.String("agent", msg.Agent),
			zap.String("status", msg.Status),
		)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.agents[msg.Agent] = domainsession.AgentStatus{
		Name:     msg.Agent,
		State:    state,
		Summary:  msg.Summary,
		Duration: time.Duration(msg.DurationMs) * time.Millisecond,
	}
}

func (c *Controller) onVectorSnapshot(m protocol.Message) {
	msg, ok := m.(protocol.VectorSnapshot)
	if !ok {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vectors = msg.Vectors
}

func (c *Controller) onWarmthSignal(m protocol.Message) {
	msg, ok := m.(protocol.WarmthSignal)
	if !ok {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warmth = msg.Warmth
	c.nextBreak = msg.NextBreakthroughID
}

func (c *Controller) onNodeAnswer(m protocol.Message) {
	msg, ok := m.(protocol.NodeAnswer)
	if !ok {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nodeAnswers[msg.NodeID] = msg.Answer
}
