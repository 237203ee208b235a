package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MedAnkiGer/scid-interview-service/internal/audio"
	"github.com/MedAnkiGer/scid-interview-service/internal/bank"
	"github.com/MedAnkiGer/scid-interview-service/internal/metrics"
	"github.com/MedAnkiGer/scid-interview-service/internal/session"
)

// Prometheus collectors register globally, so the test binary shares one
// metrics instance.
var testMetrics = metrics.NewMetrics()

const testBank = `{
  "categories": {
    "cat_a": {
      "threshold": 1,
      "criteria": {
        "c1": {"description_en": "Avoids contact.", "followup_question_en": "Tell me about avoiding contact."},
        "c2": {"description_en": "Fears criticism.", "followup_question_en": "Tell me about criticism."}
      }
    }
  },
  "screening_items": {
    "s1": {"text_en": "Do you avoid contact?", "maps_to_criteria": ["c1"], "category": "cat_a"},
    "s2": {"text_en": "Do you fear criticism?", "maps_to_criteria": ["c2"], "category": "cat_a"}
  }
}`

type fakeInterviewer struct {
	yesNo     []bool
	questions []string
	notices   []string
}

func (f *fakeInterviewer) AskYesNo(prompt string) (bool, error) {
	if len(f.yesNo) == 0 {
		return false, fmt.Errorf("unexpected yes/no prompt: %s", prompt)
	}
	answer := f.yesNo[0]
	f.yesNo = f.yesNo[1:]
	return answer, nil
}

func (f *fakeInterviewer) ShowQuestion(question string) error {
	f.questions = append(f.questions, question)
	return nil
}

func (f *fakeInterviewer) Notify(message string) {
	f.notices = append(f.notices, message)
}

type fakeRecorder struct {
	captures []*audio.Capture
	calls    int
}

func goodCapture() *audio.Capture {
	return &audio.Capture{
		Samples:          make([]int16, 16000),
		SampleRate:       16000,
		Duration:         1.0,
		StoppedBySilence: true,
	}
}

func (f *fakeRecorder) Record(ctx context.Context, ceiling time.Duration) (*audio.Capture, error) {
	f.calls++
	if len(f.captures) == 0 {
		return goodCapture(), nil
	}
	capture := f.captures[0]
	f.captures = f.captures[1:]
	return capture, nil
}

type fakeTranscriber struct {
	text  string
	err   error
	calls int
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, wavData []byte, language string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type fakeRater struct {
	responses          []string
	err                error
	evaluateCalls      int
	clarificationCalls int
	lastTranscript     string
}

func (f *fakeRater) next() string {
	if len(f.responses) == 0 {
		return `{"score":2,"confidence":0.9,"unresolved":false}`
	}
	raw := f.responses[0]
	f.responses = f.responses[1:]
	return raw
}

func (f *fakeRater) Evaluate(ctx context.Context, transcript, criterionDescription, followupQuestion, language string) (string, error) {
	f.evaluateCalls++
	f.lastTranscript = transcript
	if f.err != nil {
		return "", f.err
	}
	return f.next(), nil
}

func (f *fakeRater) EvaluateWithClarification(ctx context.Context, originalTranscript, clarificationTranscript, criterionDescription, followupQuestion, language string) (string, error) {
	f.clarificationCalls++
	f.lastTranscript = originalTranscript + "\n---\n" + clarificationTranscript
	if f.err != nil {
		return "", f.err
	}
	return f.next(), nil
}

type fakeReporter struct {
	writes int
	err    error
}

func (f *fakeReporter) Write(s *session.Session, b *bank.Bank) error {
	f.writes++
	return f.err
}

type fixture struct {
	runner      *Runner
	store       *session.Store
	interviewer *fakeInterviewer
	recorder    *fakeRecorder
	transcriber *fakeTranscriber
	rater       *fakeRater
	reporter    *fakeReporter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	b, err := bank.Parse([]byte(testBank))
	require.NoError(t, err)

	store, err := session.NewStore(t.TempDir())
	require.NoError(t, err)

	f := &fixture{
		store:       store,
		interviewer: &fakeInterviewer{},
		recorder:    &fakeRecorder{},
		transcriber: &fakeTranscriber{text: "spoken answer"},
		rater:       &fakeRater{},
		reporter:    &fakeReporter{},
	}

	f.runner, err = NewRunner(Deps{
		Logger:               slog.New(slog.NewTextHandler(io.Discard, nil)),
		Store:                store,
		Bank:                 b,
		Recorder:             f.recorder,
		Transcriber:          f.transcriber,
		Rater:                f.rater,
		Interviewer:          f.interviewer,
		Reporter:             f.reporter,
		Metrics:              testMetrics,
		ClarificationCeiling: 30 * time.Second,
	})
	require.NoError(t, err)

	return f
}

func newTestSession(t *testing.T, f *fixture) *session.Session {
	t.Helper()
	s := session.New("test0001", "en", time.Now().UTC())
	require.NoError(t, f.store.Save(s))
	return s
}

func TestRunHappyPath(t *testing.T) {
	f := newFixture(t)
	// s1 yes flags c1, s2 no leaves c2 unflagged.
	f.interviewer.yesNo = []bool{true, false}

	s := newTestSession(t, f)
	require.NoError(t, f.runner.Run(context.Background(), s))

	require.True(t, s.Complete())
	require.Equal(t, 1, f.recorder.calls)
	require.Equal(t, 1, f.transcriber.calls)
	require.Equal(t, 1, f.rater.evaluateCalls)
	require.Equal(t, 0, f.rater.clarificationCalls)
	require.Equal(t, 1, f.reporter.writes)

	result := s.ExplorationResults["c1"]
	require.True(t, result.Score.Known())
	require.Equal(t, 2, result.Score.Value())
	require.Equal(t, "spoken answer", result.Transcript)

	verdict, ok := s.DisorderVerdicts["cat_a"]
	require.True(t, ok)
	require.Equal(t, 1, verdict.CriteriaMet)
	require.True(t, verdict.Diagnosis)

	// The terminal record is durable.
	loaded, err := f.store.Load(s.ID)
	require.NoError(t, err)
	require.Equal(t, session.StageComplete, loaded.Stage)
	require.Equal(t, s.ExplorationResults, loaded.ExplorationResults)
}

func TestRunSingleClarificationPass(t *testing.T) {
	f := newFixture(t)
	f.interviewer.yesNo = []bool{true, false}
	f.rater.responses = []string{
		`{"score":"?","unresolved":true,"clarifying_question":"When did this start?"}`,
		`{"score":"?","unresolved":true}`,
	}

	s := newTestSession(t, f)
	require.NoError(t, f.runner.Run(context.Background(), s))

	require.True(t, s.Complete())
	require.Equal(t, 1, f.rater.evaluateCalls)
	require.Equal(t, 1, f.rater.clarificationCalls, "still-unresolved second pass must not trigger a third")
	require.Equal(t, 2, f.recorder.calls)

	// The clarification uses the service-supplied question.
	require.Len(t, f.interviewer.questions, 2)
	require.Equal(t, "When did this start?", f.interviewer.questions[1])

	result := s.ExplorationResults["c1"]
	require.False(t, result.Score.Known())
	require.True(t, result.Unresolved)
	require.True(t, result.ClarificationAttempted)
	require.Equal(t, "spoken answer", result.Transcript)
	require.Equal(t, "spoken answer", result.ClarificationTranscript)

	verdict := s.DisorderVerdicts["cat_a"]
	require.True(t, verdict.HasUnresolved)
	require.False(t, verdict.Diagnosis)
}

func TestRunClarificationFallsBackToOriginalQuestion(t *testing.T) {
	f := newFixture(t)
	f.interviewer.yesNo = []bool{true, false}
	f.rater.responses = []string{
		`{"score":"?","unresolved":true}`,
		`{"score":1,"confidence":0.8,"unresolved":false}`,
	}

	s := newTestSession(t, f)
	require.NoError(t, f.runner.Run(context.Background(), s))

	require.Len(t, f.interviewer.questions, 2)
	require.Equal(t, "Tell me about avoiding contact.", f.interviewer.questions[1])

	result := s.ExplorationResults["c1"]
	require.True(t, result.Score.Known())
	require.Equal(t, 1, result.Score.Value())
	require.False(t, result.Unresolved)
	require.True(t, result.ClarificationAttempted)
}

func TestRunEmptyCaptureWithRetry(t *testing.T) {
	f := newFixture(t)
	// Screening answers, then "yes" to the retry offer.
	f.interviewer.yesNo = []bool{true, false, true}
	f.recorder.captures = []*audio.Capture{
		{SampleRate: 16000, Empty: true},
		goodCapture(),
	}

	s := newTestSession(t, f)
	require.NoError(t, f.runner.Run(context.Background(), s))

	require.True(t, s.Complete())
	require.Equal(t, 2, f.recorder.calls)
	require.Equal(t, 1, f.transcriber.calls)
	require.Equal(t, "spoken answer", s.ExplorationResults["c1"].Transcript)
}

func TestRunEmptyCaptureDeclinedRetry(t *testing.T) {
	f := newFixture(t)
	// Screening answers, then "no" to the retry offer.
	f.interviewer.yesNo = []bool{true, false, false}
	f.recorder.captures = []*audio.Capture{
		{SampleRate: 16000, Empty: true},
	}
	f.rater.responses = []string{
		`{"score":0,"confidence":0.5,"unresolved":false}`,
	}

	s := newTestSession(t, f)
	require.NoError(t, f.runner.Run(context.Background(), s))

	require.True(t, s.Complete())
	require.Equal(t, 1, f.recorder.calls)
	require.Equal(t, 0, f.transcriber.calls, "empty capture must not be transcribed")
	require.Equal(t, "", s.ExplorationResults["c1"].Transcript)
}

func TestRunTranscriptionFailureDegradesToEmptyTranscript(t *testing.T) {
	f := newFixture(t)
	f.interviewer.yesNo = []bool{true, false}
	f.transcriber.err = errors.New("service unavailable")
	f.rater.responses = []string{
		`{"score":0,"confidence":0.5,"unresolved":false}`,
	}

	s := newTestSession(t, f)
	require.NoError(t, f.runner.Run(context.Background(), s))

	require.True(t, s.Complete())
	require.Equal(t, "", s.ExplorationResults["c1"].Transcript)
	require.Equal(t, "", f.rater.lastTranscript)
}

func TestRunScoringTransportErrorProducesFallback(t *testing.T) {
	f := newFixture(t)
	f.interviewer.yesNo = []bool{true, false}
	f.rater.err = errors.New("connection refused")

	s := newTestSession(t, f)
	require.NoError(t, f.runner.Run(context.Background(), s))

	require.True(t, s.Complete())
	// First scoring fails, the clarification re-score fails too; both
	// degrade to unresolved fallbacks, never to a pipeline error.
	require.Equal(t, 1, f.rater.evaluateCalls)
	require.Equal(t, 1, f.rater.clarificationCalls)

	result := s.ExplorationResults["c1"]
	require.False(t, result.Score.Known())
	require.True(t, result.Unresolved)
	require.True(t, result.ClarificationAttempted)
	require.True(t, s.DisorderVerdicts["cat_a"].HasUnresolved)
}

func TestRunResumesFromExploration(t *testing.T) {
	f := newFixture(t)

	s := newTestSession(t, f)
	s.ScreeningResponses["s1"] = true
	s.ScreeningResponses["s2"] = false
	s.ExplorationResults["c1"] = session.ExplorationResult{
		Score:      session.NewScore(2),
		Confidence: 0.9,
		Transcript: "earlier answer",
	}
	s.Stage = session.StageExploration
	require.NoError(t, f.store.Save(s))

	loaded, err := f.store.Load(s.ID)
	require.NoError(t, err)
	require.NoError(t, f.runner.Run(context.Background(), loaded))

	require.True(t, loaded.Complete())
	require.Equal(t, 0, f.recorder.calls, "resumed session with all results must not re-capture")
	require.Equal(t, 0, f.rater.evaluateCalls)
	require.Equal(t, "earlier answer", loaded.ExplorationResults["c1"].Transcript)
	require.True(t, loaded.DisorderVerdicts["cat_a"].Diagnosis)
}

func TestRunResumesMidScreening(t *testing.T) {
	f := newFixture(t)
	// s1 already answered; only s2 is asked.
	f.interviewer.yesNo = []bool{false}

	s := newTestSession(t, f)
	s.ScreeningResponses["s1"] = true
	require.NoError(t, f.store.Save(s))

	require.NoError(t, f.runner.Run(context.Background(), s))

	require.True(t, s.Complete())
	require.Empty(t, f.interviewer.yesNo, "expected exactly one remaining screening prompt")
	require.True(t, s.ScreeningResponses["s1"])
	require.False(t, s.ScreeningResponses["s2"])
}

func TestRunReportFailureIsFatal(t *testing.T) {
	f := newFixture(t)
	f.interviewer.yesNo = []bool{true, false}
	f.reporter.err = errors.New("disk full")

	s := newTestSession(t, f)
	err := f.runner.Run(context.Background(), s)
	require.Error(t, err)
	require.Equal(t, session.StageReport, s.Stage)
}

func TestNewRunnerValidation(t *testing.T) {
	_, err := NewRunner(Deps{})
	require.Error(t, err)
}
