// Package ephemeral derives short-lived presentation state from
// timestamps: node-appearance phases, transient callouts and one-shot
// ceremony overlays. No stored phase is advanced imperatively; everything
// is a pure function of elapsed time, so the same instant always yields
// the same state.
package ephemeral

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sessiongraph/domain/graph"
	"sessiongraph/pkg/clock"
)

// Options configures a Tracker.
type Options struct {
	// CalloutLifetime is how long a callout exists before the sweep
	// removes it.
	CalloutLifetime time.Duration

	// CalloutFadeWindow is the advisory opacity fade over a callout's
	// final stretch of life. The sweep still removes it outright.
	CalloutFadeWindow time.Duration

	// SweepInterval is how often expired callouts are collected.
	SweepInterval time.Duration

	// BloomDuration is the default appearance-animation length.
	BloomDuration time.Duration

	// BreakthroughDismiss and CorrectionDismiss are the per-kind ceremony
	// auto-dismiss durations.
	BreakthroughDismiss time.Duration
	CorrectionDismiss   time.Duration
}

// Callout is a transient speech bubble attached to a subject node.
type Callout struct {
	ID        string
	Subject   string
	Speaker   string
	Text      string
	Color     string
	CreatedAt time.Time
}

// VisibleCallout pairs a callout with its advisory opacity.
type VisibleCallout struct {
	Callout
	Opacity float64
}

// CeremonyKind discriminates the one-shot overlay events.
type CeremonyKind string

const (
	CeremonyBreakthrough CeremonyKind = "breakthrough"
	CeremonyCorrection   CeremonyKind = "correction"
)

// Ceremony is a one-shot overlay: shown on arrival, auto-dismissed after
// its kind's duration unless dismissed earlier.
type Ceremony struct {
	Kind         CeremonyKind
	Title        string
	Summary      string
	BeforeClaim  string
	AfterInsight string
	Diff         graph.Diff
	ShownAt      time.Time
}

// Tracker computes time-derived, disposable presentation state without
// ever touching the canonical graph.
type Tracker struct {
	opts   Options
	clock  clock.Clock
	logger *zap.Logger

	mu           sync.Mutex
	nodeAddedAt  map[graph.NodeID]time.Time
	edgeAddedAt  map[graph.EdgeKey]time.Time
	callouts     []Callout
	ceremony     *Ceremony
	ceremonyGen  int
	dismissTimer clock.Timer
	sweeper      clock.Ticker
}

// NewTracker creates a tracker and starts its periodic callout sweep.
func NewTracker(opts Options, clk clock.Clock, logger *zap.Logger) *Tracker {
	t := &Tracker{
		opts:        opts,
		clock:       clk,
		logger:      logger.With(zap.String("component", "ephemeral")),
		nodeAddedAt: make(map[graph.NodeID]time.Time),
		edgeAddedAt: make(map[graph.EdgeKey]time.Time),
	}
	t.sweeper = clk.NewTicker(opts.SweepInterval, t.sweep)
	return t
}

// Close stops the sweep and any pending ceremony dismissal.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sweeper.Stop()
	if t.dismissTimer != nil {
		t.dismissTimer.Stop()
		t.dismissTimer = nil
	}
}

// MarkAdded stamps identities with their first-seen time. Entries are
// write-once: re-marking a known identity is a no-op, which keeps the
// appearance animation from replaying on redundant updates.
func (t *Tracker) MarkAdded(nodes []graph.NodeID, edges []graph.EdgeKey) {
	now := t.clock.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, id := range nodes {
		if _, ok := t.nodeAddedAt[id]; !ok {
			t.nodeAddedAt[id] = now
		}
	}
	for _, key := range edges {
		if _, ok := t.edgeAddedAt[key]; !ok {
			t.edgeAddedAt[key] = now
		}
	}
}

// NodePhase returns the appearance-animation phase for a node in [0,1].
// Identities never marked report 1 (settled).
func (t *Tracker) NodePhase(id graph.NodeID, now time.Time) float64 {
	t.mu.Lock()
	addedAt, ok := t.nodeAddedAt[id]
	t.mu.Unlock()
	if !ok {
		return 1
	}
	return phase(now.Sub(addedAt), t.opts.BloomDuration)
}

// EdgePhase returns the appearance-animation phase for an edge in [0,1].
func (t *Tracker) EdgePhase(key graph.EdgeKey, now time.Time) float64 {
	t.mu.Lock()
	addedAt, ok := t.edgeAddedAt[key]
	t.mu.Unlock()
	if !ok {
		return 1
	}
	return phase(now.Sub(addedAt), t.opts.BloomDuration)
}

// AddCallout records a transient speech bubble for a subject.
func (t *Tracker) AddCallout(subject, speaker, text, color string) Callout {
	c := Callout{
		ID:        uuid.New().String(),
		Subject:   subject,
		Speaker:   speaker,
		Text:      text,
		Color:     color,
		CreatedAt: t.clock.Now(),
	}
	t.mu.Lock()
	t.callouts = append(t.callouts, c)
	t.mu.Unlock()
	return c
}

// VisibleCallouts returns the callouts to display at now: the newest per
// subject, capped at the three most recent, each with its advisory
// opacity. The opacity fades linearly over the final fade window; removal
// itself is the sweep's job.
func (t *Tracker) VisibleCallouts(now time.Time) []VisibleCallout {
	t.mu.Lock()
	defer t.mu.Unlock()

	latest := make(map[string]Callout)
	order := make([]string, 0, len(t.callouts))
	for _, c := range t.callouts {
		if now.Sub(c.CreatedAt) >= t.opts.CalloutLifetime {
			continue
		}
		if _, seen := latest[c.Subject]; !seen {
			order = append(order, c.Subject)
		}
		latest[c.Subject] = c
	}

	if len(order) > 3 {
		order = order[len(order)-3:]
	}
	out := make([]VisibleCallout, 0, len(order))
	for _, subject := range order {
		c := latest[subject]
		out = append(out, VisibleCallout{Callout: c, Opacity: t.opacity(now.Sub(c.CreatedAt))})
	}
	return out
}

// ShowCeremony displays a one-shot overlay. Only one ceremony is visible
// at a time: a new arrival cancels the predecessor's dismiss timer and
// replaces it. The dismiss timer is generation-checked so a stale timer
// can never dismiss a successor.
func (t *Tracker) ShowCeremony(c Ceremony) {
	t.mu.Lock()
	if t.dismissTimer != nil {
		t.dismissTimer.Stop()
		t.dismissTimer = nil
	}
	t.ceremonyGen++
	gen := t.ceremonyGen
	c.ShownAt = t.clock.Now()
	t.ceremony = &c

	duration := t.opts.BreakthroughDismiss
	if c.Kind == CeremonyCorrection {
		duration = t.opts.CorrectionDismiss
	}
	t.dismissTimer = t.clock.AfterFunc(duration, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if gen != t.ceremonyGen {
			return
		}
		t.ceremony = nil
		t.dismissTimer = nil
	})
	t.mu.Unlock()

	t.logger.Info("Ceremony shown",
		zap.String("kind", string(c.Kind)),
		zap.String("title", c.Title),
	)
}

// DismissCeremony removes the current ceremony on explicit user action.
func (t *Tracker) DismissCeremony() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.dismissTimer != nil {
		t.dismissTimer.Stop()
		t.dismissTimer = nil
	}
	t.ceremonyGen++
	t.ceremony = nil
}

// Ceremony returns the currently visible ceremony, if any.
func (t *Tracker) Ceremony() (Ceremony, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ceremony == nil {
		return Ceremony{}, false
	}
	return *t.ceremony, true
}

// sweep drops callouts that outlived their lifetime and garbage-collects
// nothing else: added-at marks live as long as their subjects do.
func (t *Tracker) sweep() {
	now := t.clock.Now()
	t.mu.Lock()
	defer t.mu.Unlock()

	kept := t.callouts[:0]
	for _, c := range t.callouts {
		if now.Sub(c.CreatedAt) < t.opts.CalloutLifetime {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		t.callouts = nil
		return
	}
	t.callouts = kept
}

// opacity computes the advisory fade for a callout of the given age.
func (t *Tracker) opacity(age time.Duration) float64 {
	fadeStart := t.opts.CalloutLifetime - t.opts.CalloutFadeWindow
	if age <= fadeStart {
		return 1
	}
	if age >= t.opts.CalloutLifetime {
		return 0
	}
	return 1 - float64(age-fadeStart)/float64(t.opts.CalloutFadeWindow)
}

// phase is clamp(elapsed/duration, 0, 1).
func phase(elapsed, duration time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	if elapsed >= duration {
		return 1
	}
	return float64(elapsed) / float64(duration)
}
