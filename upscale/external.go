package upscale

import (
	"context"
	"errors"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultTimeout bounds a single external invocation.
const DefaultTimeout = 300 * time.Second

// ExternalProcessor runs the realcugan executable over a temporary
// image pair. Every invocation gets its own work directory so
// concurrent calls never collide, and the directory is removed on
// every exit path.
type ExternalProcessor struct {
	Binary   string
	TempRoot string        // empty means os.TempDir()
	Timeout  time.Duration // zero means DefaultTimeout

	logger *logrus.Entry
}

func NewExternalProcessor(binary string, tempRoot string, logger *logrus.Entry) *ExternalProcessor {
	return &ExternalProcessor{
		Binary:   binary,
		TempRoot: tempRoot,
		Timeout:  DefaultTimeout,
		logger:   logger,
	}
}

func (p *ExternalProcessor) Process(ctx context.Context, buf *PixelBuffer, opts Options) (*PixelBuffer, error) {
	root := p.TempRoot
	if root == "" {
		root = os.TempDir()
	}

	workDir := filepath.Join(root, "realcugan-"+uuid.NewString())
	if err := os.MkdirAll(workDir, os.ModePerm); err != nil {
		return nil, &ExternalFailure{Reason: FailureSpawn, Err: err}
	}
	defer os.RemoveAll(workDir)

	inputPath := filepath.Join(workDir, "input.png")
	outputPath := filepath.Join(workDir, "output.png")

	if err := writePNG(inputPath, buf); err != nil {
		return nil, &ExternalFailure{Reason: FailureSpawn, Err: err}
	}

	timeout := p.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := CommandContextLogger(ctx, p.logger, p.Binary, buildArgs(inputPath, outputPath, opts)...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return nil, &ExternalFailure{Reason: FailureTimeout, Output: output, Err: ctx.Err()}
		case errors.As(err, &exitErr):
			return nil, &ExternalFailure{Reason: FailureNonZeroExit, Output: output, Err: err}
		default:
			return nil, &ExternalFailure{Reason: FailureSpawn, Output: output, Err: err}
		}
	}

	result, err := readPNG(outputPath)
	if err != nil {
		return nil, &ExternalFailure{Reason: FailureMissingOutput, Output: output, Err: err}
	}

	return result, nil
}

func buildArgs(inputPath string, outputPath string, opts Options) []string {
	args := []string{
		"-i", inputPath,
		"-o", outputPath,
		"-s", strconv.Itoa(opts.Scale),
		"-n", strconv.Itoa(opts.NoiseLevel),
		"-t", strconv.Itoa(opts.TileSize),
	}

	if opts.TTA {
		args = append(args, "-x")
	}

	if opts.DeviceID >= 0 {
		args = append(args, "-g", strconv.Itoa(opts.DeviceID))
	}

	return args
}

func writePNG(path string, buf *PixelBuffer) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := png.Encode(file, buf.ToRGBA()); err != nil {
		return err
	}

	return file.Sync()
}

func readPNG(path string) (*PixelBuffer, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, err := png.Decode(file)
	if err != nil {
		return nil, err
	}

	return BufferFromImage(img), nil
}
