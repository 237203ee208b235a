package rater

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/MedAnkiGer/scid-interview-service/internal/session"
)

// fallbackClarifyingQuestion is asked when the scoring response could not
// be parsed at all and no service-supplied question is available.
const fallbackClarifyingQuestion = "Could you elaborate on your experience?"

// rationaleEchoLimit bounds the unparseable-text echo kept for audit.
const rationaleEchoLimit = 200

// rawVerdict mirrors the JSON object the scoring service is asked to emit.
// Score is left untyped because the service mixes integers and the "?"
// sentinel, and occasionally quotes numbers.
type rawVerdict struct {
	Score              any      `json:"score"`
	Rationale          *string  `json:"rationale"`
	Confidence         *float64 `json:"confidence"`
	Unresolved         *bool    `json:"unresolved"`
	ClarifyingQuestion *string  `json:"clarifying_question"`
}

// parseStrategy attempts to extract a verdict object from response text.
// Strategies are total: they report failure instead of erroring.
type parseStrategy func(text string) (*rawVerdict, bool)

// parseStrategies is the ordered repair chain applied to response text
// after fence stripping: direct parse, then largest brace-delimited
// substring.
var parseStrategies = []parseStrategy{
	parseWhole,
	parseBraceSubstring,
}

// Normalize converts raw scoring-service text into a validated exploration
// result. It is deterministic given the same raw text and never fails: text
// that defeats every parse strategy degrades to a conservative unresolved
// fallback that echoes the offending text for audit. The boolean reports
// whether any parse strategy succeeded.
func Normalize(raw string) (session.ExplorationResult, bool) {
	text := stripFence(raw)

	for _, strategy := range parseStrategies {
		if verdict, ok := strategy(text); ok {
			return validate(verdict), true
		}
	}

	return Fallback(raw), false
}

// Fallback is the conservative result used when the scoring response is
// unusable: unknown score, zero confidence, unresolved, and a generic
// clarifying question.
func Fallback(raw string) session.ExplorationResult {
	return session.ExplorationResult{
		Score:              session.Unknown,
		Rationale:          "Failed to parse scoring response: " + truncate(raw, rationaleEchoLimit),
		Confidence:         0,
		Unresolved:         true,
		ClarifyingQuestion: fallbackClarifyingQuestion,
	}
}

// TransportFallback is the conservative result used when the scoring
// request itself failed. Shaped like Fallback so downstream handling is
// uniform.
func TransportFallback(err error) session.ExplorationResult {
	return session.ExplorationResult{
		Score:              session.Unknown,
		Rationale:          "Scoring request failed: " + truncate(err.Error(), rationaleEchoLimit),
		Confidence:         0,
		Unresolved:         true,
		ClarifyingQuestion: fallbackClarifyingQuestion,
	}
}

// stripFence removes markdown code fencing, keeping only the lines between
// the first fence marker and its closing fence. Text that does not start
// with a fence is returned trimmed.
func stripFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	var kept []string
	inside := false
	for _, line := range strings.Split(trimmed, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			if inside {
				break
			}
			inside = true
			continue
		}
		if inside {
			kept = append(kept, line)
		}
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func parseWhole(text string) (*rawVerdict, bool) {
	if text == "" || text[0] != '{' {
		return nil, false
	}
	var verdict rawVerdict
	if err := json.Unmarshal([]byte(text), &verdict); err != nil {
		return nil, false
	}
	return &verdict, true
}

func parseBraceSubstring(text string) (*rawVerdict, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	var verdict rawVerdict
	if err := json.Unmarshal([]byte(text[start:end+1]), &verdict); err != nil {
		return nil, false
	}
	return &verdict, true
}

// validate applies the post-parse defaulting and clamping rules to a parsed
// verdict, including on fully successful parses.
func validate(verdict *rawVerdict) session.ExplorationResult {
	result := session.ExplorationResult{
		Confidence: 0.5,
	}

	if verdict.Rationale != nil {
		result.Rationale = *verdict.Rationale
	}
	if verdict.Confidence != nil {
		result.Confidence = clamp(*verdict.Confidence, 0, 1)
	}
	if verdict.Unresolved != nil {
		result.Unresolved = *verdict.Unresolved
	}
	if verdict.ClarifyingQuestion != nil {
		result.ClarifyingQuestion = *verdict.ClarifyingQuestion
	}

	score, ok := coerceScore(verdict.Score)
	result.Score = score
	if !ok || !score.Known() {
		result.Score = session.Unknown
		result.Unresolved = true
	}

	return result
}

// coerceScore converts the untyped score literal into the tagged Score.
// The boolean reports whether the literal was usable at all; an unusable
// literal forces the unresolved flag.
func coerceScore(value any) (session.Score, bool) {
	switch v := value.(type) {
	case nil:
		return session.Unknown, false
	case float64:
		return session.NewScore(int(v)), true
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "?" {
			return session.Unknown, true
		}
		n, err := strconv.Atoi(trimmed)
		if err != nil {
			return session.Unknown, false
		}
		return session.NewScore(n), true
	default:
		return session.Unknown, false
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
