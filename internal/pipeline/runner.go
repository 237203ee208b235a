package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MedAnkiGer/scid-interview-service/internal/audio"
	"github.com/MedAnkiGer/scid-interview-service/internal/bank"
	"github.com/MedAnkiGer/scid-interview-service/internal/evaluation"
	"github.com/MedAnkiGer/scid-interview-service/internal/metrics"
	"github.com/MedAnkiGer/scid-interview-service/internal/rater"
	"github.com/MedAnkiGer/scid-interview-service/internal/report"
	"github.com/MedAnkiGer/scid-interview-service/internal/screening"
	"github.com/MedAnkiGer/scid-interview-service/internal/session"
)

// Interviewer is the interactive collaborator that relays prompts to the
// person being interviewed and collects their non-spoken input.
type Interviewer interface {
	AskYesNo(prompt string) (bool, error)
	ShowQuestion(question string) error
	Notify(message string)
}

// CaptureEngine records one spoken answer. ceiling overrides the default
// recording ceiling when positive.
type CaptureEngine interface {
	Record(ctx context.Context, ceiling time.Duration) (*audio.Capture, error)
}

// TranscriptionGateway converts packaged audio into text.
type TranscriptionGateway interface {
	Transcribe(ctx context.Context, wavData []byte, language string) (string, error)
}

// RaterGateway submits transcripts to the scoring service and returns the
// raw response text.
type RaterGateway interface {
	Evaluate(ctx context.Context, transcript, criterionDescription, followupQuestion, language string) (string, error)
	EvaluateWithClarification(ctx context.Context, originalTranscript, clarificationTranscript, criterionDescription, followupQuestion, language string) (string, error)
}

// Deps bundles the collaborators a Runner orchestrates.
type Deps struct {
	Logger      *slog.Logger
	Store       *session.Store
	Bank        *bank.Bank
	Recorder    CaptureEngine
	Transcriber TranscriptionGateway
	Rater       RaterGateway
	Interviewer Interviewer
	Reporter    report.Writer
	Metrics     *metrics.Metrics

	// ClarificationCeiling is the shorter recording ceiling used for
	// clarification answers.
	ClarificationCeiling time.Duration
}

// Runner drives one session through the stage pipeline. A runner handles a
// single session at a time; the capture device is a singleton resource.
type Runner struct {
	logger               *slog.Logger
	store                *session.Store
	bank                 *bank.Bank
	recorder             CaptureEngine
	transcriber          TranscriptionGateway
	scorer               RaterGateway
	interviewer          Interviewer
	reporter             report.Writer
	metrics              *metrics.Metrics
	clarificationCeiling time.Duration
}

// NewRunner creates a pipeline runner from its collaborators.
func NewRunner(deps Deps) (*Runner, error) {
	switch {
	case deps.Logger == nil:
		return nil, fmt.Errorf("logger cannot be nil")
	case deps.Store == nil:
		return nil, fmt.Errorf("store cannot be nil")
	case deps.Bank == nil:
		return nil, fmt.Errorf("question bank cannot be nil")
	case deps.Recorder == nil:
		return nil, fmt.Errorf("capture engine cannot be nil")
	case deps.Transcriber == nil:
		return nil, fmt.Errorf("transcription gateway cannot be nil")
	case deps.Rater == nil:
		return nil, fmt.Errorf("rater gateway cannot be nil")
	case deps.Interviewer == nil:
		return nil, fmt.Errorf("interviewer cannot be nil")
	case deps.Reporter == nil:
		return nil, fmt.Errorf("report writer cannot be nil")
	case deps.Metrics == nil:
		return nil, fmt.Errorf("metrics cannot be nil")
	}

	if deps.ClarificationCeiling <= 0 {
		deps.ClarificationCeiling = 30 * time.Second
	}

	return &Runner{
		logger:               deps.Logger,
		store:                deps.Store,
		bank:                 deps.Bank,
		recorder:             deps.Recorder,
		transcriber:          deps.Transcriber,
		scorer:               deps.Rater,
		interviewer:          deps.Interviewer,
		reporter:             deps.Reporter,
		metrics:              deps.Metrics,
		clarificationCeiling: deps.ClarificationCeiling,
	}, nil
}

// Run executes the pipeline from the session's current stage until the
// session completes or a fatal error occurs. Resumed sessions re-derive the
// flagged set and any remaining work from the persisted record.
func (r *Runner) Run(ctx context.Context, s *session.Session) error {
	for !s.Complete() {
		if err := ctx.Err(); err != nil {
			return err
		}

		var err error
		switch s.Stage {
		case session.StageInit:
			err = r.runScreening(ctx, s)
		case session.StageSelfReport:
			err = r.advance(s, session.StageExploration)
		case session.StageExploration:
			err = r.runExploration(ctx, s)
		case session.StageEvaluation:
			err = r.runEvaluation(s)
		case session.StageReport:
			err = r.runReport(s)
		default:
			err = fmt.Errorf("session %s is in unknown stage %q", s.ID, s.Stage)
		}
		if err != nil {
			return err
		}
	}

	r.metrics.RecordSessionComplete()
	r.logger.Info("Session complete", slog.String("session_id", s.ID))
	return nil
}

// runScreening collects any missing yes/no answers, then derives and logs
// the flagged-criteria count before advancing. The count itself is not
// persisted; it is re-derived from answers whenever needed.
func (r *Runner) runScreening(ctx context.Context, s *session.Session) error {
	for _, itemID := range r.bank.ScreeningItemIDs() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, answered := s.ScreeningResponses[itemID]; answered {
			continue
		}

		item := r.bank.ScreeningItems[itemID]
		answer, err := r.interviewer.AskYesNo(item.Text.Get(s.Language))
		if err != nil {
			return fmt.Errorf("screening aborted: %w", err)
		}

		s.ScreeningResponses[itemID] = answer
		if err := r.save(s); err != nil {
			return err
		}
	}

	flagged := screening.Flagged(s, r.bank)
	r.logger.Info("Screening complete",
		slog.String("session_id", s.ID),
		slog.Int("answers", len(s.ScreeningResponses)),
		slog.Int("flagged_criteria", len(flagged)),
	)

	return r.advance(s, session.StageSelfReport)
}

// runExploration records, transcribes, and scores an answer for every
// flagged criterion that lacks a result, then runs the clarification pass.
// Transcription and scoring run in a background unit so the capture device
// is released immediately; the unit is joined before the next capture
// starts.
func (r *Runner) runExploration(ctx context.Context, s *session.Session) error {
	flagged := screening.Flagged(s, r.bank)

	var unit asyncUnit
	for _, fc := range screening.Remaining(flagged, s) {
		if err := unit.join(); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := r.interviewer.ShowQuestion(fc.Criterion.FollowupQuestion.Get(s.Language)); err != nil {
			return err
		}

		capture, err := r.capture(ctx, 0)
		if err != nil {
			return err
		}

		fc := fc
		unit.dispatch(func() error {
			return r.scoreCapture(ctx, s, fc, capture)
		})
	}
	if err := unit.join(); err != nil {
		return err
	}

	if err := r.runClarification(ctx, s, flagged); err != nil {
		return err
	}

	for _, fc := range flagged {
		result, ok := s.ExplorationResults[fc.CriterionID]
		if !ok || result.NeedsClarification() {
			return fmt.Errorf("criterion %s still lacks a final result", fc.CriterionID)
		}
	}

	return r.advance(s, session.StageEvaluation)
}

// runEvaluation recomputes all verdicts wholesale and stores them.
func (r *Runner) runEvaluation(s *session.Session) error {
	s.DisorderVerdicts = evaluation.ComputeVerdicts(s, r.bank)
	if err := r.save(s); err != nil {
		return err
	}

	r.logger.Info("Verdicts computed",
		slog.String("session_id", s.ID),
		slog.Int("categories", len(s.DisorderVerdicts)),
	)

	return r.advance(s, session.StageReport)
}

// runReport hands the finalized session to the report writer and completes
// the session once output is confirmed.
func (r *Runner) runReport(s *session.Session) error {
	if err := r.reporter.Write(s, r.bank); err != nil {
		return fmt.Errorf("report output failed: %w", err)
	}
	return r.advance(s, session.StageComplete)
}

// scoreCapture is the background unit for one criterion: transcribe the
// capture, score the transcript, store the normalized result, checkpoint.
func (r *Runner) scoreCapture(ctx context.Context, s *session.Session, fc screening.FlaggedCriterion, capture *audio.Capture) error {
	transcript := r.transcribe(ctx, s, capture, fc.CriterionID)

	result := r.invokeScorer(fc.CriterionID, func() (string, error) {
		return r.scorer.Evaluate(ctx, transcript,
			fc.Criterion.Description.Get(s.Language),
			fc.Criterion.FollowupQuestion.Get(s.Language),
			s.Language)
	})
	result.Transcript = transcript

	s.ExplorationResults[fc.CriterionID] = result
	return r.save(s)
}

// capture records one answer, offering a single manual retry when no audio
// was captured. An empty capture is never an error; the caller proceeds
// with an empty transcript.
func (r *Runner) capture(ctx context.Context, ceiling time.Duration) (*audio.Capture, error) {
	capture, err := r.recordOnce(ctx, ceiling)
	if err != nil {
		return nil, err
	}
	if !capture.Empty {
		return capture, nil
	}

	retry, err := r.interviewer.AskYesNo("No audio was captured. Retry recording?")
	if err != nil {
		return nil, err
	}
	if !retry {
		return capture, nil
	}

	capture, err = r.recordOnce(ctx, ceiling)
	if err != nil {
		return nil, err
	}
	if capture.Empty {
		r.interviewer.Notify("Still no audio captured; continuing without a transcript.")
	}
	return capture, nil
}

func (r *Runner) recordOnce(ctx context.Context, ceiling time.Duration) (*audio.Capture, error) {
	r.metrics.RecordCaptureStarted()
	capture, err := r.recorder.Record(ctx, ceiling)
	if err != nil {
		return nil, fmt.Errorf("capture failed: %w", err)
	}
	if capture.Empty {
		r.metrics.RecordCaptureEmpty()
	} else {
		r.metrics.RecordCaptureFinished(capture.Duration, len(capture.Samples), capture.StoppedBySilence)
	}
	return capture, nil
}

// transcribe converts a capture into text. Any failure degrades to an empty
// transcript; transcription problems never terminate the session.
func (r *Runner) transcribe(ctx context.Context, s *session.Session, capture *audio.Capture, criterionID string) string {
	if capture.Empty {
		r.logger.Warn("No audio captured",
			slog.String("session_id", s.ID),
			slog.String("criterion_id", criterionID),
		)
		return ""
	}

	wav, err := capture.WAV()
	if err != nil {
		r.logger.Warn("Failed to package capture",
			slog.String("criterion_id", criterionID),
			slog.String("error", err.Error()),
		)
		return ""
	}

	start := time.Now()
	r.metrics.RecordTranscriptionRequest()

	text, err := r.transcriber.Transcribe(ctx, wav, s.Language)
	if err != nil {
		r.metrics.RecordTranscriptionFailure(time.Since(start).Seconds())
		r.logger.Warn("Transcription failed",
			slog.String("session_id", s.ID),
			slog.String("criterion_id", criterionID),
			slog.String("error", err.Error()),
		)
		return ""
	}

	r.metrics.RecordTranscriptionSuccess(time.Since(start).Seconds())
	return text
}

// invokeScorer runs one scoring call and normalizes its outcome. Transport
// errors and unparseable responses both degrade to conservative unresolved
// results; scoring problems never terminate the session.
func (r *Runner) invokeScorer(criterionID string, call func() (string, error)) session.ExplorationResult {
	start := time.Now()
	r.metrics.RecordScoringRequest()

	raw, err := call()
	if err != nil {
		r.metrics.RecordScoringFailure(time.Since(start).Seconds())
		r.logger.Warn("Scoring request failed",
			slog.String("criterion_id", criterionID),
			slog.String("error", err.Error()),
		)
		return rater.TransportFallback(err)
	}
	r.metrics.RecordScoringSuccess(time.Since(start).Seconds())

	result, parsed := rater.Normalize(raw)
	if !parsed {
		r.metrics.RecordParseFallback()
		if len(raw) > 200 {
			raw = raw[:200]
		}
		r.logger.Warn("Unparseable scoring response",
			slog.String("criterion_id", criterionID),
			slog.String("raw", raw),
		)
	}
	return result
}

// save checkpoints the full session record. A failed checkpoint is fatal:
// the pipeline must not proceed past state it cannot resume from.
func (r *Runner) save(s *session.Session) error {
	if err := r.store.Save(s); err != nil {
		r.metrics.RecordSessionSave(false)
		return fmt.Errorf("session checkpoint failed: %w", err)
	}
	r.metrics.RecordSessionSave(true)
	return nil
}

// advance moves the session one stage forward and checkpoints the new
// stage before anything depends on it.
func (r *Runner) advance(s *session.Session, next session.Stage) error {
	from := s.Stage
	if err := s.AdvanceTo(next); err != nil {
		return err
	}
	if err := r.save(s); err != nil {
		return err
	}

	r.metrics.RecordStageTransition(string(from), string(next))
	r.logger.Info("Stage advanced",
		slog.String("session_id", s.ID),
		slog.String("from", string(from)),
		slog.String("to", string(next)),
	)
	return nil
}

// asyncUnit serializes background transcribe+score work: at most one unit
// is in flight, and it is joined before the next capture starts because the
// capture device is a singleton resource.
type asyncUnit struct {
	g *errgroup.Group
}

func (u *asyncUnit) dispatch(fn func() error) {
	g := &errgroup.Group{}
	g.Go(fn)
	u.g = g
}

func (u *asyncUnit) join() error {
	if u.g == nil {
		return nil
	}
	err := u.g.Wait()
	u.g = nil
	return err
}
