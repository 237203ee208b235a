package session

import (
	"encoding/json"
	"testing"
	"time"
)

func TestStageOrder(t *testing.T) {
	s := New("abc12345", "en", time.Now())

	if s.Stage != StageInit {
		t.Fatalf("Expected new session at INIT, got %s", s.Stage)
	}

	order := []Stage{StageSelfReport, StageExploration, StageEvaluation, StageReport, StageComplete}
	for _, next := range order {
		if err := s.AdvanceTo(next); err != nil {
			t.Fatalf("Failed to advance to %s: %v", next, err)
		}
	}

	if !s.Complete() {
		t.Error("Expected session complete after final stage")
	}
}

func TestAdvanceRejectsSkipsAndBackTransitions(t *testing.T) {
	tests := []struct {
		name string
		from Stage
		to   Stage
	}{
		{name: "skip a stage", from: StageInit, to: StageExploration},
		{name: "back transition", from: StageEvaluation, to: StageExploration},
		{name: "same stage", from: StageSelfReport, to: StageSelfReport},
		{name: "unknown stage", from: StageInit, to: Stage("BOGUS")},
		{name: "advance past terminal", from: StageComplete, to: Stage("BEYOND")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New("abc12345", "en", time.Now())
			s.Stage = tt.from
			if err := s.AdvanceTo(tt.to); err == nil {
				t.Errorf("Expected %s -> %s to be rejected", tt.from, tt.to)
			}
		})
	}
}

func TestScoreJSONRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		score   Score
		encoded string
	}{
		{name: "known zero", score: NewScore(0), encoded: "0"},
		{name: "known two", score: NewScore(2), encoded: "2"},
		{name: "unknown", score: Unknown, encoded: `"?"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.score)
			if err != nil {
				t.Fatalf("Failed to marshal: %v", err)
			}
			if string(data) != tt.encoded {
				t.Errorf("Expected %s, got %s", tt.encoded, data)
			}

			var decoded Score
			if err := json.Unmarshal(data, &decoded); err != nil {
				t.Fatalf("Failed to unmarshal: %v", err)
			}
			if decoded != tt.score {
				t.Errorf("Round trip changed score: %v -> %v", tt.score, decoded)
			}
		})
	}
}

func TestScoreUnmarshalCoercion(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantKnown bool
		wantValue int
	}{
		{name: "integer", input: "1", wantKnown: true, wantValue: 1},
		{name: "float truncated", input: "1.7", wantKnown: true, wantValue: 1},
		{name: "clamped high", input: "5", wantKnown: true, wantValue: 2},
		{name: "clamped negative", input: "-3", wantKnown: true, wantValue: 0},
		{name: "numeric string", input: `"2"`, wantKnown: true, wantValue: 2},
		{name: "sentinel", input: `"?"`, wantKnown: false},
		{name: "garbage string", input: `"maybe"`, wantKnown: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var score Score
			if err := json.Unmarshal([]byte(tt.input), &score); err != nil {
				t.Fatalf("Failed to unmarshal %s: %v", tt.input, err)
			}
			if score.Known() != tt.wantKnown {
				t.Fatalf("Expected known=%v, got %v", tt.wantKnown, score.Known())
			}
			if tt.wantKnown && score.Value() != tt.wantValue {
				t.Errorf("Expected value %d, got %d", tt.wantValue, score.Value())
			}
		})
	}
}

func TestNeedsClarification(t *testing.T) {
	tests := []struct {
		name   string
		result ExplorationResult
		want   bool
	}{
		{
			name:   "unresolved, not yet attempted",
			result: ExplorationResult{Unresolved: true},
			want:   true,
		},
		{
			name:   "unresolved after attempt",
			result: ExplorationResult{Unresolved: true, ClarificationAttempted: true},
			want:   false,
		},
		{
			name:   "resolved",
			result: ExplorationResult{Score: NewScore(2)},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.NeedsClarification(); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestNormalizeEnforcesUnknownImpliesUnresolved(t *testing.T) {
	s := New("abc12345", "en", time.Now())
	s.ExplorationResults["crit_1"] = ExplorationResult{Score: Unknown, Unresolved: false}

	s.normalize()

	if !s.ExplorationResults["crit_1"].Unresolved {
		t.Error("Expected Unknown score to force unresolved flag")
	}
}
