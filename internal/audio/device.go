package audio

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

// MalgoSource captures microphone input through the miniaudio bindings and
// delivers fixed-size blocks of mono PCM-16 samples.
type MalgoSource struct {
	sampleRate int
	blockSize  int

	mu     sync.Mutex
	ctx    *malgo.AllocatedContext
	device *malgo.Device
}

// NewMalgoSource creates a microphone frame source at the given sample rate
// and block size.
func NewMalgoSource(sampleRate, blockSize int) (*MalgoSource, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	if blockSize <= 0 {
		return nil, fmt.Errorf("block size must be positive, got %d", blockSize)
	}
	return &MalgoSource{
		sampleRate: sampleRate,
		blockSize:  blockSize,
	}, nil
}

// Start opens the default capture device and begins delivering blocks.
func (s *MalgoSource) Start(onBlock func(block []int16)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.device != nil {
		return fmt.Errorf("capture device already started")
	}

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize audio context: %w", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = uint32(s.sampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(s.blockSize)
	deviceConfig.Alsa.NoMMap = 1

	callbacks := malgo.DeviceCallbacks{
		Data: func(pOutput, pInput []byte, frameCount uint32) {
			block := make([]int16, frameCount)
			for i := range block {
				block[i] = int16(binary.LittleEndian.Uint16(pInput[i*2 : i*2+2]))
			}
			onBlock(block)
		},
	}

	device, err := malgo.InitDevice(mctx.Context, deviceConfig, callbacks)
	if err != nil {
		_ = mctx.Uninit()
		mctx.Free()
		return fmt.Errorf("failed to open capture device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		_ = mctx.Uninit()
		mctx.Free()
		return fmt.Errorf("failed to start capture device: %w", err)
	}

	s.ctx = mctx
	s.device = device
	return nil
}

// Stop releases the capture device. The hardware is a singleton resource;
// it must be released before the next capture can start.
func (s *MalgoSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.device == nil {
		return nil
	}

	s.device.Uninit()
	s.device = nil

	err := s.ctx.Uninit()
	s.ctx.Free()
	s.ctx = nil

	if err != nil {
		return fmt.Errorf("failed to release audio context: %w", err)
	}
	return nil
}
