// Package vad implements RMS-based trailing-silence detection for captured
// audio blocks. The detector drives the capture auto-stop: once a block
// stream stays below the amplitude threshold for the configured duration,
// the recording is considered finished.
package vad
