package session

// Input placeholders keyed by session phase.
const (
	placeholderInitial = "Begin by addressing a part..."
	placeholderEarly   = "Ask a question or challenge an assumption..."
	placeholderProbing = "Probe deeper - what's underneath that response?"
	placeholderWarm    = "You're getting close - push further..."
	placeholderPost    = "Continue exploring or address another part..."
)

// PromptState is the slice of session state the placeholder derives from.
type PromptState struct {
	SelectedPartName       string
	SessionStarted         bool
	Warmth                 float64
	TriggeredBreakthroughs int
	TranscriptLen          int
}

// Placeholder derives the input hint from the current session state. It
// is a pure function: same state, same hint.
func Placeholder(s PromptState) string {
	if s.SelectedPartName != "" {
		return "Speaking to " + s.SelectedPartName + "..."
	}
	if !s.SessionStarted {
		return placeholderInitial
	}
	if s.Warmth > 0.5 {
		return placeholderWarm
	}
	if s.TriggeredBreakthroughs > 0 {
		return placeholderPost
	}
	if s.TranscriptLen > 4 {
		return placeholderProbing
	}
	return placeholderEarly
}
