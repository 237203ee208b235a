package audio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MedAnkiGer/scid-interview-service/internal/vad"
)

// CaptureState represents the current state of the capture engine
type CaptureState int

const (
	StateIdle CaptureState = iota
	StateRecording
	StateStopped
)

// FrameSource delivers fixed-size blocks of mono PCM-16 samples from an
// input device. The callback is invoked from the device's own goroutine at
// a steady cadence of roughly one block-duration per call.
type FrameSource interface {
	Start(onBlock func(block []int16)) error
	Stop() error
}

// Capture is the packaged result of one recording. An Empty capture means
// zero blocks were delivered (device failure or immediate stop); callers
// must treat it as "no transcript available", never as an error.
type Capture struct {
	Samples          []int16
	SampleRate       int
	Duration         float64 // seconds
	StoppedBySilence bool
	Empty            bool
}

// WAV packages the captured samples as an uncompressed PCM WAV payload.
func (c *Capture) WAV() ([]byte, error) {
	if c.Empty {
		return nil, fmt.Errorf("cannot package empty capture")
	}
	return EncodeWAV(c.Samples, c.SampleRate)
}

// RecorderConfig contains capture engine parameters
type RecorderConfig struct {
	SampleRate          int
	BlockSize           int
	SilenceThresholdRMS float64
	SilenceDuration     time.Duration
	MaxDuration         time.Duration
	PollInterval        time.Duration
}

// Recorder records audio from a FrameSource until trailing silence exceeds
// the configured duration, the hard ceiling elapses, or the caller stops it.
//
// The device callback is the only writer of the capture buffer and the
// silence detector; the coordinating goroutine inside Record polls the
// completion signal at a coarse interval.
type Recorder struct {
	config   RecorderConfig
	source   FrameSource
	detector *vad.SilenceDetector
	logger   *slog.Logger
	clock    func() time.Time

	mu               sync.Mutex
	state            CaptureState
	frames           [][]int16
	stoppedBySilence bool
	stopOnce         *sync.Once
	done             chan struct{}
}

// NewRecorder creates a capture engine over the given frame source.
func NewRecorder(source FrameSource, config RecorderConfig, logger *slog.Logger) (*Recorder, error) {
	if source == nil {
		return nil, fmt.Errorf("frame source cannot be nil")
	}
	if config.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", config.SampleRate)
	}
	if config.MaxDuration <= 0 {
		return nil, fmt.Errorf("max duration must be positive, got %s", config.MaxDuration)
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 100 * time.Millisecond
	}

	detector, err := vad.NewSilenceDetector(config.SilenceThresholdRMS, config.SilenceDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to create silence detector: %w", err)
	}

	return &Recorder{
		config:   config,
		source:   source,
		detector: detector,
		logger:   logger,
		clock:    time.Now,
		state:    StateIdle,
	}, nil
}

// Record captures audio until silence auto-stop, the duration ceiling, a
// manual Stop, or context cancellation. ceiling overrides the configured
// MaxDuration when positive. Record blocks until capture completes and the
// device is released; a device failure yields an Empty capture, not an
// error.
func (r *Recorder) Record(ctx context.Context, ceiling time.Duration) (*Capture, error) {
	if ceiling <= 0 {
		ceiling = r.config.MaxDuration
	}

	r.mu.Lock()
	if r.state == StateRecording {
		r.mu.Unlock()
		return nil, fmt.Errorf("capture already in progress")
	}
	r.state = StateRecording
	r.frames = nil
	r.stoppedBySilence = false
	r.stopOnce = &sync.Once{}
	r.done = make(chan struct{})
	done := r.done
	r.mu.Unlock()

	r.detector.Reset()

	start := r.clock()

	if err := r.source.Start(r.onBlock); err != nil {
		r.logger.Warn("Failed to open capture device",
			slog.String("error", err.Error()),
		)
		r.mu.Lock()
		r.state = StateStopped
		r.mu.Unlock()
		return &Capture{SampleRate: r.config.SampleRate, Empty: true}, nil
	}

	ticker := time.NewTicker(r.config.PollInterval)
	defer ticker.Stop()

poll:
	for {
		select {
		case <-done:
			break poll
		case <-ctx.Done():
			break poll
		case <-ticker.C:
			if r.clock().Sub(start) >= ceiling {
				r.logger.Info("Recording reached duration ceiling",
					slog.Float64("ceiling_seconds", ceiling.Seconds()),
				)
				break poll
			}
		}
	}

	if err := r.source.Stop(); err != nil {
		r.logger.Warn("Error closing capture device", slog.String("error", err.Error()))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = StateStopped

	capture := r.packageLocked()
	r.logger.Info("Capture finished",
		slog.Float64("duration_seconds", capture.Duration),
		slog.Bool("stopped_by_silence", capture.StoppedBySilence),
		slog.Bool("empty", capture.Empty),
	)
	return capture, nil
}

// Stop halts an in-progress capture immediately. It is always honored and
// never an error, even when no capture is running.
func (r *Recorder) Stop() {
	r.mu.Lock()
	once, done := r.stopOnce, r.done
	r.mu.Unlock()

	if once == nil {
		return
	}
	once.Do(func() { close(done) })
}

// State returns the current capture state.
func (r *Recorder) State() CaptureState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// DetectorStats exposes the silence detector counters for monitoring.
func (r *Recorder) DetectorStats() vad.DetectorStats {
	return r.detector.GetStats()
}

// onBlock is the device callback: append the block, run silence detection,
// and signal completion when trailing silence exceeds the threshold.
func (r *Recorder) onBlock(block []int16) {
	r.mu.Lock()
	if r.state != StateRecording {
		r.mu.Unlock()
		return
	}
	copied := make([]int16, len(block))
	copy(copied, block)
	r.frames = append(r.frames, copied)
	once, done := r.stopOnce, r.done
	r.mu.Unlock()

	result := r.detector.Process(block, r.clock())
	if result.SilenceExceeded {
		r.mu.Lock()
		r.stoppedBySilence = true
		r.mu.Unlock()
		once.Do(func() { close(done) })
	}
}

// packageLocked concatenates all buffered blocks in arrival order into a
// single capture. Caller must hold r.mu.
func (r *Recorder) packageLocked() *Capture {
	if len(r.frames) == 0 {
		return &Capture{SampleRate: r.config.SampleRate, Empty: true}
	}

	total := 0
	for _, frame := range r.frames {
		total += len(frame)
	}

	samples := make([]int16, 0, total)
	for _, frame := range r.frames {
		samples = append(samples, frame...)
	}

	return &Capture{
		Samples:          samples,
		SampleRate:       r.config.SampleRate,
		Duration:         float64(total) / float64(r.config.SampleRate),
		StoppedBySilence: r.stoppedBySilence,
	}
}
