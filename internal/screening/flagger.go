package screening

import (
	"github.com/MedAnkiGer/scid-interview-service/internal/bank"
	"github.com/MedAnkiGer/scid-interview-service/internal/session"
)

// FlaggedCriterion is a criterion selected for spoken follow-up because at
// least one screening item mapping to it was answered "yes".
type FlaggedCriterion struct {
	CriterionID string
	CategoryID  string
	Criterion   bank.Criterion
}

// Flagged derives the flagged criterion list from the session's screening
// answers. Screening items are visited in sorted id order so the result is
// deterministic and independent of answer-map iteration order; when two
// true-answered items map to the same criterion, the first occurrence wins
// and later ones are ignored.
func Flagged(s *session.Session, b *bank.Bank) []FlaggedCriterion {
	seen := make(map[string]bool)
	var flagged []FlaggedCriterion

	for _, itemID := range b.ScreeningItemIDs() {
		if !s.ScreeningResponses[itemID] {
			continue
		}

		item := b.ScreeningItems[itemID]
		category, ok := b.Categories[item.Category]
		if !ok {
			continue
		}

		for _, critID := range item.MapsToCriteria {
			if seen[critID] {
				continue
			}
			criterion, ok := category.Criteria[critID]
			if !ok {
				continue
			}
			seen[critID] = true
			flagged = append(flagged, FlaggedCriterion{
				CriterionID: critID,
				CategoryID:  item.Category,
				Criterion:   criterion,
			})
		}
	}

	return flagged
}

// Remaining filters the flagged list down to criteria that have no stored
// exploration result yet. The flagged set itself is answer-derived and
// stable; remaining work shrinks as results are recorded.
func Remaining(flagged []FlaggedCriterion, s *session.Session) []FlaggedCriterion {
	var remaining []FlaggedCriterion
	for _, fc := range flagged {
		if _, explored := s.ExplorationResults[fc.CriterionID]; !explored {
			remaining = append(remaining, fc)
		}
	}
	return remaining
}
