package core

import (
	"errors"
	"fmt"
)

// Supported processing ranges.
const (
	MinSampleRate = 8000
	MaxSampleRate = 192000
	MinBlockSize  = 64
	MaxBlockSize  = 16384
)

// Errors returned by ProcessorConfig.Validate.
var (
	ErrSampleRateOutOfRange = errors.New("sample rate out of range")
	ErrBlockSizeOutOfRange  = errors.New("block size out of range")
)

// ProcessorConfig defines common DSP processing settings.
type ProcessorConfig struct {
	SampleRate float64
	BlockSize  int
}

// DefaultProcessorConfig returns the defaults used by the delay engine:
// 44.1 kHz with 4096-frame device buffers.
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		SampleRate: 44100,
		BlockSize:  4096,
	}
}

// Validate checks the sample rate and block size against the supported ranges.
func (cfg ProcessorConfig) Validate() error {
	if err := ValidateSampleRate(cfg.SampleRate); err != nil {
		return err
	}
	if cfg.BlockSize < MinBlockSize || cfg.BlockSize > MaxBlockSize {
		return fmt.Errorf("%w: %d frames (expected %d-%d)",
			ErrBlockSizeOutOfRange, cfg.BlockSize, MinBlockSize, MaxBlockSize)
	}
	return nil
}

// ValidateSampleRate rejects rates outside [MinSampleRate, MaxSampleRate].
func ValidateSampleRate(sampleRate float64) error {
	if !IsFinite(sampleRate) || sampleRate < MinSampleRate || sampleRate > MaxSampleRate {
		return fmt.Errorf("%w: %g Hz (expected %d-%d)",
			ErrSampleRateOutOfRange, sampleRate, MinSampleRate, MaxSampleRate)
	}
	return nil
}
