package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// riffHeader is the fixed 44-byte canonical PCM WAV header. Captures are
// always mono 16-bit, so only that shape is produced or accepted.
type riffHeader struct {
	ChunkID       [4]byte
	ChunkSize     uint32
	Format        [4]byte
	Subchunk1ID   [4]byte
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte
	Subchunk2Size uint32
}

const (
	wavHeaderSize     = 44
	wavBytesPerSample = 2
)

// EncodeWAV packages mono PCM-16 samples as an in-memory WAV file.
func EncodeWAV(samples []int16, sampleRate int) ([]byte, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("no samples to encode")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	dataSize := uint32(len(samples) * wavBytesPerSample)
	header := riffHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     uint32(wavHeaderSize-8) + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1, // PCM
		NumChannels:   1,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate * wavBytesPerSample),
		BlockAlign:    wavBytesPerSample,
		BitsPerSample: 16,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+len(samples)*wavBytesPerSample))
	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	if err := binary.Write(buf, binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("failed to write samples: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeWAV parses an in-memory WAV file back into mono PCM-16 samples,
// returning the samples and the sample rate.
func DecodeWAV(data []byte) ([]int16, int, error) {
	header, err := parseHeader(data)
	if err != nil {
		return nil, 0, err
	}

	numSamples := int(header.Subchunk2Size) / wavBytesPerSample
	if numSamples <= 0 {
		return nil, 0, fmt.Errorf("wav contains no audio data")
	}

	samples := make([]int16, numSamples)
	reader := bytes.NewReader(data[wavHeaderSize:])
	if err := binary.Read(reader, binary.LittleEndian, samples); err != nil {
		return nil, 0, fmt.Errorf("failed to read samples: %w", err)
	}
	return samples, int(header.SampleRate), nil
}

// GetWAVDuration returns the audio duration of an in-memory WAV file in
// seconds.
func GetWAVDuration(data []byte) (float64, error) {
	header, err := parseHeader(data)
	if err != nil {
		return 0, err
	}
	numSamples := header.Subchunk2Size / wavBytesPerSample
	return float64(numSamples) / float64(header.SampleRate), nil
}

func parseHeader(data []byte) (riffHeader, error) {
	var header riffHeader
	if len(data) < wavHeaderSize {
		return header, fmt.Errorf("wav truncated: %d bytes, header needs %d", len(data), wavHeaderSize)
	}
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &header); err != nil {
		return header, fmt.Errorf("failed to read header: %w", err)
	}

	switch {
	case string(header.ChunkID[:]) != "RIFF" || string(header.Format[:]) != "WAVE":
		return header, fmt.Errorf("not a wav file")
	case string(header.Subchunk1ID[:]) != "fmt " || string(header.Subchunk2ID[:]) != "data":
		return header, fmt.Errorf("unexpected wav chunk layout")
	case header.AudioFormat != 1:
		return header, fmt.Errorf("unsupported audio format %d, want PCM", header.AudioFormat)
	case header.NumChannels != 1:
		return header, fmt.Errorf("unsupported channel count %d, want mono", header.NumChannels)
	case header.BitsPerSample != 16:
		return header, fmt.Errorf("unsupported bit depth %d, want 16", header.BitsPerSample)
	case header.SampleRate == 0:
		return header, fmt.Errorf("invalid sample rate 0")
	}
	return header, nil
}
