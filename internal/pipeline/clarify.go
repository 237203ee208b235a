package pipeline

import (
	"context"
	"log/slog"

	"github.com/MedAnkiGer/scid-interview-service/internal/audio"
	"github.com/MedAnkiGer/scid-interview-service/internal/screening"
	"github.com/MedAnkiGer/scid-interview-service/internal/session"
)

// runClarification re-interviews every unresolved criterion exactly once.
// It uses the service-supplied clarifying question when one exists, records
// a second answer under the shorter ceiling, and re-scores with the
// combined transcripts. The replacement result never chains into a further
// round, even if still unresolved.
func (r *Runner) runClarification(ctx context.Context, s *session.Session, flagged []screening.FlaggedCriterion) error {
	var selected []screening.FlaggedCriterion
	for _, fc := range flagged {
		if result, ok := s.ExplorationResults[fc.CriterionID]; ok && result.NeedsClarification() {
			selected = append(selected, fc)
		}
	}
	if len(selected) == 0 {
		return nil
	}

	r.logger.Info("Starting clarification pass",
		slog.String("session_id", s.ID),
		slog.Int("criteria", len(selected)),
	)

	var unit asyncUnit
	for _, fc := range selected {
		if err := unit.join(); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		question := s.ExplorationResults[fc.CriterionID].ClarifyingQuestion
		if question == "" {
			question = fc.Criterion.FollowupQuestion.Get(s.Language)
		}
		if err := r.interviewer.ShowQuestion(question); err != nil {
			return err
		}

		capture, err := r.capture(ctx, r.clarificationCeiling)
		if err != nil {
			return err
		}

		r.metrics.RecordClarificationRun()
		fc := fc
		unit.dispatch(func() error {
			return r.rescoreCapture(ctx, s, fc, capture)
		})
	}
	return unit.join()
}

// rescoreCapture is the background unit for one clarification: transcribe
// the second answer, re-score with both transcripts combined, and replace
// the stored result in full, preserving the original transcript.
func (r *Runner) rescoreCapture(ctx context.Context, s *session.Session, fc screening.FlaggedCriterion, capture *audio.Capture) error {
	clarification := r.transcribe(ctx, s, capture, fc.CriterionID)
	previous := s.ExplorationResults[fc.CriterionID]

	result := r.invokeScorer(fc.CriterionID, func() (string, error) {
		return r.scorer.EvaluateWithClarification(ctx, previous.Transcript, clarification,
			fc.Criterion.Description.Get(s.Language),
			fc.Criterion.FollowupQuestion.Get(s.Language),
			s.Language)
	})
	result.Transcript = previous.Transcript
	result.ClarificationTranscript = clarification
	result.ClarificationAttempted = true

	s.ExplorationResults[fc.CriterionID] = result
	return r.save(s)
}
