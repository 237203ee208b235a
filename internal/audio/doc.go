// Package audio implements the capture engine: microphone block capture
// with silence-triggered auto-stop and a hard duration ceiling, plus PCM
// packaging into a minimal WAV container for transcription.
package audio
