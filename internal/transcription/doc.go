// Package transcription implements the speech-to-text gateway. It submits
// packaged WAV audio to the Whisper API with a bounded timeout; failures are
// reported to the caller, which must treat them as "no transcript", never as
// fatal to the session.
package transcription
