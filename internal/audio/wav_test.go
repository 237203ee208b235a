package audio

import (
	"math"
	"testing"
)

func TestEncodeDecodeWAVRoundTrip(t *testing.T) {
	samples := []int16{0, 100, -100, 32767, -32768, 42}
	sampleRate := 16000

	encoded, err := EncodeWAV(samples, sampleRate)
	if err != nil {
		t.Fatalf("Failed to encode WAV: %v", err)
	}

	if len(encoded) != 44+len(samples)*2 {
		t.Errorf("Expected %d bytes, got %d", 44+len(samples)*2, len(encoded))
	}

	decoded, decodedRate, err := DecodeWAV(encoded)
	if err != nil {
		t.Fatalf("Failed to decode WAV: %v", err)
	}

	if decodedRate != sampleRate {
		t.Errorf("Expected sample rate %d, got %d", sampleRate, decodedRate)
	}

	if len(decoded) != len(samples) {
		t.Fatalf("Expected %d samples, got %d", len(samples), len(decoded))
	}

	for i, sample := range samples {
		if decoded[i] != sample {
			t.Errorf("Sample %d: expected %d, got %d", i, sample, decoded[i])
		}
	}
}

func TestEncodeWAVValidation(t *testing.T) {
	tests := []struct {
		name       string
		samples    []int16
		sampleRate int
	}{
		{name: "empty samples", samples: nil, sampleRate: 16000},
		{name: "zero sample rate", samples: []int16{1, 2, 3}, sampleRate: 0},
		{name: "negative sample rate", samples: []int16{1, 2, 3}, sampleRate: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := EncodeWAV(tt.samples, tt.sampleRate); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestDecodeWAVInvalidData(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "too short", data: []byte{1, 2, 3}},
		{name: "not RIFF", data: make([]byte, 64)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := DecodeWAV(tt.data); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestGetWAVDuration(t *testing.T) {
	sampleRate := 16000
	samples := make([]int16, sampleRate*2) // exactly 2 seconds

	encoded, err := EncodeWAV(samples, sampleRate)
	if err != nil {
		t.Fatalf("Failed to encode WAV: %v", err)
	}

	duration, err := GetWAVDuration(encoded)
	if err != nil {
		t.Fatalf("Failed to get duration: %v", err)
	}

	if math.Abs(duration-2.0) > 0.001 {
		t.Errorf("Expected duration 2.0s, got %f", duration)
	}
}
