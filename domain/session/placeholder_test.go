package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlaceholder_LadderPrecedence(t *testing.T) {
	tests := []struct {
		name  string
		state PromptState
		want  string
	}{
		{
			name:  "fresh session",
			state: PromptState{},
			want:  placeholderInitial,
		},
		{
			name:  "early conversation",
			state: PromptState{SessionStarted: true, TranscriptLen: 2},
			want:  placeholderEarly,
		},
		{
			name:  "longer conversation probes deeper",
			state: PromptState{SessionStarted: true, TranscriptLen: 5},
			want:  placeholderProbing,
		},
		{
			name:  "post breakthrough",
			state: PromptState{SessionStarted: true, TriggeredBreakthroughs: 1, TranscriptLen: 9},
			want:  placeholderPost,
		},
		{
			name:  "warmth beats breakthrough count",
			state: PromptState{SessionStarted: true, Warmth: 0.6, TriggeredBreakthroughs: 2, TranscriptLen: 9},
			want:  placeholderWarm,
		},
		{
			name:  "warmth at threshold is not warm",
			state: PromptState{SessionStarted: true, Warmth: 0.5, TranscriptLen: 2},
			want:  placeholderEarly,
		},
		{
			name:  "selected part wins over everything",
			state: PromptState{SelectedPartName: "The Pleaser", SessionStarted: true, Warmth: 0.9},
			want:  "Speaking to The Pleaser...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Placeholder(tt.state))
		})
	}
}

func TestParseAgentState(t *testing.T) {
	for _, valid := range []string{"idle", "running", "done", "error"} {
		state, err := ParseAgentState(valid)
		assert.NoError(t, err)
		assert.Equal(t, AgentState(valid), state)
	}

	_, err := ParseAgentState("sleeping")
	assert.Error(t, err)
}

func TestIsKnownAgent(t *testing.T) {
	assert.True(t, IsKnownAgent("listener"))
	assert.True(t, IsKnownAgent("orchestrator"))
	assert.False(t, IsKnownAgent("intruder"))
	assert.False(t, IsKnownAgent(""))
}
