package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

// ErrNotReady is returned when the engine failed to initialize; every job
// dispatched while it persists fails with this cause.
var ErrNotReady = errors.New("compute engine not ready")

// Engine is the compute collaborator: a single process-wide instance shared
// read-only by all worker goroutines after initialization.
type Engine interface {
	Ready() bool
	// Process upscales the input image and returns the encoded output bytes
	// plus their content type. Safe for concurrent use.
	Process(ctx context.Context, input []byte) ([]byte, string, error)
}

const upscaleFactor = 2

// Upscaler performs a 2x Lanczos upscale entirely in memory and always
// encodes the output as PNG.
type Upscaler struct {
	logger *zap.Logger
	ready  bool
}

func NewUpscaler(logger *zap.Logger) *Upscaler {
	return &Upscaler{logger: logger, ready: true}
}

func (u *Upscaler) Ready() bool {
	return u.ready
}

func (u *Upscaler) Process(ctx context.Context, input []byte) ([]byte, string, error) {
	if !u.ready {
		return nil, "", ErrNotReady
	}
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	src, err := imaging.Decode(bytes.NewReader(input))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}

	bounds := src.Bounds()
	width := bounds.Dx() * upscaleFactor
	height := bounds.Dy() * upscaleFactor

	u.logger.Debug("Upscaling image",
		zap.Int("src_width", bounds.Dx()),
		zap.Int("src_height", bounds.Dy()),
		zap.Int("dst_width", width),
		zap.Int("dst_height", height),
	)

	upscaled := imaging.Resize(src, width, height, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, upscaled, imaging.PNG); err != nil {
		return nil, "", fmt.Errorf("encode image: %w", err)
	}

	return buf.Bytes(), "image/png", nil
}
