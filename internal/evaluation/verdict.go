package evaluation

import (
	"github.com/MedAnkiGer/scid-interview-service/internal/bank"
	"github.com/MedAnkiGer/scid-interview-service/internal/session"
)

// ComputeVerdicts recomputes all category verdicts wholesale from the
// session's stored exploration results. A criterion counts as met only with
// a definite score of 2; a category produces a verdict only if at least one
// of its criteria was explored. The function is pure and keeps no
// incremental state.
func ComputeVerdicts(s *session.Session, b *bank.Bank) map[string]session.DisorderVerdict {
	verdicts := make(map[string]session.DisorderVerdict)

	for categoryID, category := range b.Categories {
		criteriaMet := 0
		hasUnresolved := false
		explored := false

		for criterionID := range category.Criteria {
			result, ok := s.ExplorationResults[criterionID]
			if !ok {
				continue
			}
			explored = true

			if result.Score.Known() && result.Score.Value() == 2 {
				criteriaMet++
			}
			if result.Unresolved || !result.Score.Known() {
				hasUnresolved = true
			}
		}

		if !explored {
			continue
		}

		verdicts[categoryID] = session.DisorderVerdict{
			CriteriaMet:   criteriaMet,
			Threshold:     category.Threshold,
			Diagnosis:     criteriaMet >= category.Threshold,
			HasUnresolved: hasUnresolved,
		}
	}

	return verdicts
}
