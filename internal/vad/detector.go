package vad

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// SilenceDetector tracks continuous trailing silence across a stream of
// fixed-size PCM blocks. A block whose RMS amplitude falls below the
// threshold starts or continues the silence timer; a block at or above the
// threshold resets it. Once the timer exceeds MinSilence the detector
// reports silence-exceeded.
//
// The detector is driven from the capture callback, which is its only
// writer; the mutex guards the read-side stats accessors.
type SilenceDetector struct {
	threshold  float64       // RMS amplitude below which a block is silent
	minSilence time.Duration // continuous silence required to trigger

	silenceStart time.Time // zero when the timer is not running

	// Statistics
	totalBlocks  uint64
	silentBlocks uint64
	lastRMS      float64

	mu sync.RWMutex
}

// BlockResult is the outcome of processing one audio block.
type BlockResult struct {
	RMS             float64       // RMS amplitude of the block
	Silent          bool          // whether the block was below threshold
	SilenceDuration time.Duration // continuous silence so far
	SilenceExceeded bool          // continuous silence reached MinSilence
}

// DetectorStats exposes detector counters for monitoring.
type DetectorStats struct {
	TotalBlocks    uint64  `json:"total_blocks"`
	SilentBlocks   uint64  `json:"silent_blocks"`
	SilentPercent  float64 `json:"silent_percent"`
	LastRMS        float64 `json:"last_rms"`
	ThresholdRMS   float64 `json:"threshold_rms"`
	MinSilenceSecs float64 `json:"min_silence_seconds"`
}

// NewSilenceDetector creates a detector with the given RMS threshold and
// required continuous silence duration.
func NewSilenceDetector(threshold float64, minSilence time.Duration) (*SilenceDetector, error) {
	if threshold <= 0 {
		return nil, fmt.Errorf("silence threshold must be positive, got %f", threshold)
	}
	if minSilence <= 0 {
		return nil, fmt.Errorf("min silence duration must be positive, got %s", minSilence)
	}
	return &SilenceDetector{
		threshold:  threshold,
		minSilence: minSilence,
	}, nil
}

// Process evaluates one block of samples delivered at time now.
func (d *SilenceDetector) Process(samples []int16, now time.Time) BlockResult {
	d.mu.Lock()
	defer d.mu.Unlock()

	rms := RMS(samples)
	d.totalBlocks++
	d.lastRMS = rms

	result := BlockResult{RMS: rms}

	if rms < d.threshold {
		d.silentBlocks++
		result.Silent = true
		if d.silenceStart.IsZero() {
			d.silenceStart = now
		}
		result.SilenceDuration = now.Sub(d.silenceStart)
		result.SilenceExceeded = result.SilenceDuration >= d.minSilence
	} else {
		d.silenceStart = time.Time{}
	}

	return result
}

// Reset clears the silence timer and counters for a new capture.
func (d *SilenceDetector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.silenceStart = time.Time{}
	d.totalBlocks = 0
	d.silentBlocks = 0
	d.lastRMS = 0
}

// GetStats returns current detector statistics.
func (d *SilenceDetector) GetStats() DetectorStats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	silentPercent := float64(0)
	if d.totalBlocks > 0 {
		silentPercent = float64(d.silentBlocks) / float64(d.totalBlocks) * 100
	}

	return DetectorStats{
		TotalBlocks:    d.totalBlocks,
		SilentBlocks:   d.silentBlocks,
		SilentPercent:  silentPercent,
		LastRMS:        d.lastRMS,
		ThresholdRMS:   d.threshold,
		MinSilenceSecs: d.minSilence.Seconds(),
	}
}

// RMS computes the root-mean-square amplitude of a block of PCM samples.
func RMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var energy float64
	for _, sample := range samples {
		energy += float64(sample) * float64(sample)
	}
	return math.Sqrt(energy / float64(len(samples)))
}
