package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the interview service
type Metrics struct {
	// Session metrics
	SessionsCreated  prometheus.Counter
	SessionsResumed  prometheus.Counter
	SessionsComplete prometheus.Counter
	StageTransitions *prometheus.CounterVec
	SessionSaves     prometheus.Counter
	SessionSaveFails prometheus.Counter

	// Capture metrics
	CapturesStarted    prometheus.Counter
	CapturesEmpty      prometheus.Counter
	SilenceStops       prometheus.Counter
	CeilingStops       prometheus.Counter
	CaptureDuration    prometheus.Histogram
	CaptureSampleCount prometheus.Histogram

	// Transcription metrics
	TranscriptionRequests  prometheus.Counter
	TranscriptionSuccesses prometheus.Counter
	TranscriptionFailures  prometheus.Counter
	TranscriptionDuration  prometheus.Histogram

	// Scoring metrics
	ScoringRequests   prometheus.Counter
	ScoringSuccesses  prometheus.Counter
	ScoringFailures   prometheus.Counter
	ScoringDuration   prometheus.Histogram
	ParseFallbacks    prometheus.Counter
	ClarificationRuns prometheus.Counter

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		// Session metrics
		SessionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "interview_sessions_created_total",
			Help: "Total number of interview sessions created",
		}),
		SessionsResumed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "interview_sessions_resumed_total",
			Help: "Total number of interview sessions resumed from disk",
		}),
		SessionsComplete: promauto.NewCounter(prometheus.CounterOpts{
			Name: "interview_sessions_complete_total",
			Help: "Total number of interview sessions run to completion",
		}),
		StageTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "interview_stage_transitions_total",
			Help: "Total number of stage transitions",
		}, []string{"from", "to"}),
		SessionSaves: promauto.NewCounter(prometheus.CounterOpts{
			Name: "interview_session_saves_total",
			Help: "Total number of successful session record saves",
		}),
		SessionSaveFails: promauto.NewCounter(prometheus.CounterOpts{
			Name: "interview_session_save_failures_total",
			Help: "Total number of failed session record saves",
		}),

		// Capture metrics
		CapturesStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "interview_captures_started_total",
			Help: "Total number of audio captures started",
		}),
		CapturesEmpty: promauto.NewCounter(prometheus.CounterOpts{
			Name: "interview_captures_empty_total",
			Help: "Total number of captures that produced no audio",
		}),
		SilenceStops: promauto.NewCounter(prometheus.CounterOpts{
			Name: "interview_capture_silence_stops_total",
			Help: "Total number of captures stopped by the silence detector",
		}),
		CeilingStops: promauto.NewCounter(prometheus.CounterOpts{
			Name: "interview_capture_ceiling_stops_total",
			Help: "Total number of captures stopped at the duration ceiling",
		}),
		CaptureDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "interview_capture_duration_seconds",
			Help:    "Duration of completed audio captures",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8), // 1s to ~2 minutes
		}),
		CaptureSampleCount: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "interview_capture_samples",
			Help:    "Number of PCM samples per completed capture",
			Buckets: prometheus.ExponentialBuckets(16000, 2, 8), // 1s to ~2 minutes at 16kHz
		}),

		// Transcription metrics
		TranscriptionRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "interview_transcription_requests_total",
			Help: "Total number of transcription requests sent",
		}),
		TranscriptionSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "interview_transcription_successes_total",
			Help: "Total number of successful transcription requests",
		}),
		TranscriptionFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "interview_transcription_failures_total",
			Help: "Total number of failed transcription requests",
		}),
		TranscriptionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "interview_transcription_duration_seconds",
			Help:    "Duration of transcription requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}),

		// Scoring metrics
		ScoringRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "interview_scoring_requests_total",
			Help: "Total number of scoring requests sent",
		}),
		ScoringSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "interview_scoring_successes_total",
			Help: "Total number of successful scoring requests",
		}),
		ScoringFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "interview_scoring_failures_total",
			Help: "Total number of failed scoring requests",
		}),
		ScoringDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "interview_scoring_duration_seconds",
			Help:    "Duration of scoring requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}),
		ParseFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "interview_scoring_parse_fallbacks_total",
			Help: "Total number of scoring responses that defeated every parse strategy",
		}),
		ClarificationRuns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "interview_clarification_runs_total",
			Help: "Total number of clarification passes run",
		}),

		// HTTP API metrics
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "interview_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "interview_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "interview_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordSessionCreated increments the sessions created counter
func (m *Metrics) RecordSessionCreated() {
	m.SessionsCreated.Inc()
}

// RecordSessionResumed increments the sessions resumed counter
func (m *Metrics) RecordSessionResumed() {
	m.SessionsResumed.Inc()
}

// RecordSessionComplete increments the sessions complete counter
func (m *Metrics) RecordSessionComplete() {
	m.SessionsComplete.Inc()
}

// RecordStageTransition records a stage transition by name
func (m *Metrics) RecordStageTransition(from, to string) {
	m.StageTransitions.WithLabelValues(from, to).Inc()
}

// RecordSessionSave records a session save attempt outcome
func (m *Metrics) RecordSessionSave(ok bool) {
	if ok {
		m.SessionSaves.Inc()
	} else {
		m.SessionSaveFails.Inc()
	}
}

// RecordCaptureStarted increments the captures started counter
func (m *Metrics) RecordCaptureStarted() {
	m.CapturesStarted.Inc()
}

// RecordCaptureEmpty increments the empty captures counter
func (m *Metrics) RecordCaptureEmpty() {
	m.CapturesEmpty.Inc()
}

// RecordCaptureFinished records a completed capture with its stop reason
func (m *Metrics) RecordCaptureFinished(durationSeconds float64, sampleCount int, stoppedBySilence bool) {
	if stoppedBySilence {
		m.SilenceStops.Inc()
	} else {
		m.CeilingStops.Inc()
	}
	m.CaptureDuration.Observe(durationSeconds)
	m.CaptureSampleCount.Observe(float64(sampleCount))
}

// RecordTranscriptionRequest increments transcription requests counter
func (m *Metrics) RecordTranscriptionRequest() {
	m.TranscriptionRequests.Inc()
}

// RecordTranscriptionSuccess records a successful transcription
func (m *Metrics) RecordTranscriptionSuccess(durationSeconds float64) {
	m.TranscriptionSuccesses.Inc()
	m.TranscriptionDuration.Observe(durationSeconds)
}

// RecordTranscriptionFailure records a failed transcription
func (m *Metrics) RecordTranscriptionFailure(durationSeconds float64) {
	m.TranscriptionFailures.Inc()
	m.TranscriptionDuration.Observe(durationSeconds)
}

// RecordScoringRequest increments scoring requests counter
func (m *Metrics) RecordScoringRequest() {
	m.ScoringRequests.Inc()
}

// RecordScoringSuccess records a successful scoring request
func (m *Metrics) RecordScoringSuccess(durationSeconds float64) {
	m.ScoringSuccesses.Inc()
	m.ScoringDuration.Observe(durationSeconds)
}

// RecordScoringFailure records a failed scoring request
func (m *Metrics) RecordScoringFailure(durationSeconds float64) {
	m.ScoringFailures.Inc()
	m.ScoringDuration.Observe(durationSeconds)
}

// RecordParseFallback increments the parse fallback counter
func (m *Metrics) RecordParseFallback() {
	m.ParseFallbacks.Inc()
}

// RecordClarificationRun increments the clarification runs counter
func (m *Metrics) RecordClarificationRun() {
	m.ClarificationRuns.Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
