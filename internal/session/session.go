package session

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RecordVersion is the version of the persisted session record format.
const RecordVersion = 1

// Stage identifies the pipeline stage a session is in. Stages only ever
// advance through the fixed forward order below.
type Stage string

const (
	StageInit        Stage = "INIT"
	StageSelfReport  Stage = "SELF_REPORT"
	StageExploration Stage = "EXPLORATION"
	StageEvaluation  Stage = "EVALUATION"
	StageReport      Stage = "REPORT"
	StageComplete    Stage = "COMPLETE"
)

// stageOrder is the strict forward order of stages.
var stageOrder = []Stage{
	StageInit,
	StageSelfReport,
	StageExploration,
	StageEvaluation,
	StageReport,
	StageComplete,
}

// Index returns the position of the stage in the forward order, or -1 for
// an unknown stage.
func (s Stage) Index() int {
	for i, stage := range stageOrder {
		if stage == s {
			return i
		}
	}
	return -1
}

// Valid reports whether the stage is one of the defined pipeline stages.
func (s Stage) Valid() bool {
	return s.Index() >= 0
}

// scoreUnknown is the wire sentinel for a score the rater could not assign.
const scoreUnknown = "?"

// Score is a criterion score: either Unknown (inadequate information) or an
// integer value in [0,2]. The zero value is Unknown.
type Score struct {
	known bool
	value int
}

// Unknown is the score assigned when exploration was inconclusive.
var Unknown = Score{}

// NewScore builds a known score. Values outside [0,2] are clamped.
func NewScore(value int) Score {
	if value < 0 {
		value = 0
	}
	if value > 2 {
		value = 2
	}
	return Score{known: true, value: value}
}

// Known reports whether the score carries a definite value.
func (s Score) Known() bool {
	return s.known
}

// Value returns the numeric score. Valid only when Known is true.
func (s Score) Value() int {
	return s.value
}

// String renders the score in its wire form.
func (s Score) String() string {
	if !s.known {
		return scoreUnknown
	}
	return strconv.Itoa(s.value)
}

// MarshalJSON encodes a known score as a bare integer and Unknown as the
// "?" sentinel, matching the persisted record format.
func (s Score) MarshalJSON() ([]byte, error) {
	if !s.known {
		return json.Marshal(scoreUnknown)
	}
	return json.Marshal(s.value)
}

// UnmarshalJSON accepts an integer, the "?" sentinel, or a numeric string.
// Anything else decodes to Unknown.
func (s *Score) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*s = NewScore(int(num))
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("invalid score literal: %s", data)
	}
	str = strings.TrimSpace(str)
	if str == scoreUnknown {
		*s = Unknown
		return nil
	}
	value, err := strconv.Atoi(str)
	if err != nil {
		*s = Unknown
		return nil
	}
	*s = NewScore(value)
	return nil
}

// ExplorationResult is the scored outcome for one explored criterion. A
// second scoring pass after clarification replaces the whole record; the
// original transcript is preserved and the clarification transcript added.
type ExplorationResult struct {
	Score                   Score   `json:"score"`
	Rationale               string  `json:"rationale"`
	Confidence              float64 `json:"confidence"`
	Unresolved              bool    `json:"unresolved"`
	ClarifyingQuestion      string  `json:"clarifying_question,omitempty"`
	Transcript              string  `json:"transcript"`
	ClarificationTranscript string  `json:"clarification_transcript,omitempty"`
	ClarificationAttempted  bool    `json:"clarification_attempted,omitempty"`
}

// NeedsClarification reports whether the result is unresolved and has not
// yet been through the single permitted clarification pass. The attempted
// flag, not the transcript, records the pass: a clarification answer that
// captured no audio still counts as the one permitted attempt.
func (r ExplorationResult) NeedsClarification() bool {
	return r.Unresolved && !r.ClarificationAttempted
}

// DisorderVerdict is the aggregated pass/fail outcome for one category.
type DisorderVerdict struct {
	CriteriaMet   int  `json:"criteria_met"`
	Threshold     int  `json:"threshold"`
	Diagnosis     bool `json:"diagnosis"`
	HasUnresolved bool `json:"has_unresolved"`
}

// Session is the durable interview session record. The pipeline runner is
// its sole writer; every other component receives it read-only.
type Session struct {
	Version            int                          `json:"version"`
	ID                 string                       `json:"session_id"`
	CreatedAt          time.Time                    `json:"created_at"`
	Language           string                       `json:"language"`
	Stage              Stage                        `json:"stage"`
	ScreeningResponses map[string]bool              `json:"screening_responses"`
	ExplorationResults map[string]ExplorationResult `json:"exploration_results"`
	DisorderVerdicts   map[string]DisorderVerdict   `json:"disorder_verdicts"`
}

// New creates a fresh session at stage INIT.
func New(id, language string, now time.Time) *Session {
	return &Session{
		Version:            RecordVersion,
		ID:                 id,
		CreatedAt:          now,
		Language:           language,
		Stage:              StageInit,
		ScreeningResponses: make(map[string]bool),
		ExplorationResults: make(map[string]ExplorationResult),
		DisorderVerdicts:   make(map[string]DisorderVerdict),
	}
}

// AdvanceTo moves the session to the next stage. Only single forward steps
// are permitted; skips and back-transitions are rejected.
func (s *Session) AdvanceTo(next Stage) error {
	cur := s.Stage.Index()
	nxt := next.Index()
	if nxt < 0 {
		return fmt.Errorf("unknown stage %q", next)
	}
	if nxt != cur+1 {
		return fmt.Errorf("invalid stage transition %s -> %s", s.Stage, next)
	}
	s.Stage = next
	return nil
}

// Complete reports whether the session reached its terminal stage.
func (s *Session) Complete() bool {
	return s.Stage == StageComplete
}

// normalize enforces record invariants after load: maps are non-nil and an
// Unknown score always carries the unresolved flag.
func (s *Session) normalize() {
	if s.ScreeningResponses == nil {
		s.ScreeningResponses = make(map[string]bool)
	}
	if s.ExplorationResults == nil {
		s.ExplorationResults = make(map[string]ExplorationResult)
	}
	if s.DisorderVerdicts == nil {
		s.DisorderVerdicts = make(map[string]DisorderVerdict)
	}
	for id, result := range s.ExplorationResults {
		if !result.Score.Known() && !result.Unresolved {
			result.Unresolved = true
			s.ExplorationResults[id] = result
		}
	}
}
