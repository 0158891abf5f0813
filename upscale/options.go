package upscale

import (
	"strings"
)

// Options holds the immutable upscaler settings. Built once at pipeline
// setup, shared read-only between invocations.
type Options struct {
	DeviceID   int // GPU device, -1 for CPU
	Scale      int // 2 or 4
	NoiseLevel int // -1 (off) to 3
	TileSize   int
	TTA        bool
}

func DefaultOptions() Options {
	return Options{
		DeviceID:   0,
		Scale:      4,
		NoiseLevel: -1,
		TileSize:   256,
	}
}

// ResolveModel derives scale and noise level from markers in a model
// path. Unrecognized or absent markers keep the caller's defaults, an
// empty path returns them unchanged.
func ResolveModel(modelPath string, defaults Options) Options {
	opts := defaults
	if modelPath == "" {
		return opts
	}

	switch {
	case strings.Contains(modelPath, "up2x") || strings.Contains(modelPath, "2x"):
		opts.Scale = 2
	case strings.Contains(modelPath, "up4x") || strings.Contains(modelPath, "4x"):
		opts.Scale = 4
	}

	switch {
	case strings.Contains(modelPath, "denoise3x"):
		opts.NoiseLevel = 3
	case strings.Contains(modelPath, "denoise1x"):
		opts.NoiseLevel = 1
	default:
		opts.NoiseLevel = -1
	}

	return opts
}

// DefaultModelPath returns the stock model for a scale factor.
func DefaultModelPath(scale int) string {
	if scale == 2 {
		return "/models/realcugan/Real-CUGAN_up2x-latest-denoise3x.pth"
	}
	return "/models/realcugan/Real-CUGAN_up4x-latest-conservative.pth"
}
