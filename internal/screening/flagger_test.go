package screening

import (
	"reflect"
	"testing"
	"time"

	"github.com/MedAnkiGer/scid-interview-service/internal/bank"
	"github.com/MedAnkiGer/scid-interview-service/internal/session"
)

const testBank = `{
  "categories": {
    "avoidant": {
      "threshold": 2,
      "criteria": {
        "avoidant_1": {"description_en": "Avoids contact.", "followup_question_en": "Tell me more."},
        "avoidant_2": {"description_en": "Fears criticism.", "followup_question_en": "How so?"}
      }
    },
    "dependent": {
      "threshold": 1,
      "criteria": {
        "dependent_1": {"description_en": "Needs reassurance.", "followup_question_en": "In what way?"}
      }
    }
  },
  "screening_items": {
    "scr_1": {"text_en": "Q1?", "maps_to_criteria": ["avoidant_1"], "category": "avoidant"},
    "scr_2": {"text_en": "Q2?", "maps_to_criteria": ["avoidant_1", "avoidant_2"], "category": "avoidant"},
    "scr_3": {"text_en": "Q3?", "maps_to_criteria": ["dependent_1"], "category": "dependent"}
  }
}`

func loadTestBank(t *testing.T) *bank.Bank {
	t.Helper()
	b, err := bank.Parse([]byte(testBank))
	if err != nil {
		t.Fatalf("Failed to parse test bank: %v", err)
	}
	return b
}

func flaggedIDs(flagged []FlaggedCriterion) []string {
	ids := make([]string, 0, len(flagged))
	for _, fc := range flagged {
		ids = append(ids, fc.CriterionID)
	}
	return ids
}

func TestFlaggedDeduplicatesAndOrders(t *testing.T) {
	b := loadTestBank(t)
	s := session.New("abc12345", "en", time.Now())
	s.ScreeningResponses["scr_1"] = true
	s.ScreeningResponses["scr_2"] = true
	s.ScreeningResponses["scr_3"] = false

	flagged := Flagged(s, b)

	// avoidant_1 is mapped by both true-answered items but appears once,
	// attributed to the first item in canonical order.
	want := []string{"avoidant_1", "avoidant_2"}
	if got := flaggedIDs(flagged); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected flagged %v, got %v", want, got)
	}
	if flagged[0].CategoryID != "avoidant" {
		t.Errorf("Expected category avoidant, got %s", flagged[0].CategoryID)
	}
}

func TestFlaggedIsIdempotent(t *testing.T) {
	b := loadTestBank(t)
	s := session.New("abc12345", "en", time.Now())
	s.ScreeningResponses["scr_2"] = true
	s.ScreeningResponses["scr_3"] = true

	first := Flagged(s, b)
	second := Flagged(s, b)

	if !reflect.DeepEqual(flaggedIDs(first), flaggedIDs(second)) {
		t.Errorf("Flagging is not idempotent: %v vs %v", flaggedIDs(first), flaggedIDs(second))
	}
}

func TestFlaggedIgnoresNoAnswers(t *testing.T) {
	b := loadTestBank(t)
	s := session.New("abc12345", "en", time.Now())
	s.ScreeningResponses["scr_1"] = false
	s.ScreeningResponses["scr_2"] = false
	s.ScreeningResponses["scr_3"] = false

	if flagged := Flagged(s, b); len(flagged) != 0 {
		t.Errorf("Expected no flagged criteria, got %v", flaggedIDs(flagged))
	}
}

func TestRemainingExcludesExplored(t *testing.T) {
	b := loadTestBank(t)
	s := session.New("abc12345", "en", time.Now())
	s.ScreeningResponses["scr_2"] = true
	s.ScreeningResponses["scr_3"] = true

	flagged := Flagged(s, b)
	if len(flagged) != 3 {
		t.Fatalf("Expected 3 flagged criteria, got %d", len(flagged))
	}

	s.ExplorationResults["avoidant_1"] = session.ExplorationResult{Score: session.NewScore(2)}

	remaining := Remaining(flagged, s)
	want := []string{"avoidant_2", "dependent_1"}
	if got := flaggedIDs(remaining); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected remaining %v, got %v", want, got)
	}

	// The flagged set itself is unchanged by exploration progress.
	if len(Flagged(s, b)) != 3 {
		t.Error("Expected flagged set to stay answer-derived and stable")
	}
}
