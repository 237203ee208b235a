// Package pipeline contains the session state machine that drives an
// interview end to end: screening answers, flagged-criterion exploration
// with capture/transcription/scoring, the single clarification pass,
// verdict evaluation, and report output.
//
// The runner is the sole writer of the session record. Every mutation is
// checkpointed durably before the pipeline depends on it, so an interrupted
// session resumes at its recorded stage with no lost results.
package pipeline
