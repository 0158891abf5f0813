package upscale

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildArgs(t *testing.T) {
	opts := Options{DeviceID: -1, Scale: 2, NoiseLevel: 3, TileSize: 256}
	args := buildArgs("/tmp/in.png", "/tmp/out.png", opts)
	assert.Equal(t, []string{
		"-i", "/tmp/in.png",
		"-o", "/tmp/out.png",
		"-s", "2",
		"-n", "3",
		"-t", "256",
	}, args)

	opts = Options{DeviceID: 1, Scale: 4, NoiseLevel: -1, TileSize: 128, TTA: true}
	args = buildArgs("in.png", "out.png", opts)
	assert.Equal(t, []string{
		"-i", "in.png",
		"-o", "out.png",
		"-s", "4",
		"-n", "-1",
		"-t", "128",
		"-x",
		"-g", "1",
	}, args)
}

func writeStubBinary(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub shell binaries need a POSIX shell")
	}

	path := filepath.Join(t.TempDir(), "realcugan")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755))
	return path
}

func externalFailure(t *testing.T, err error) *ExternalFailure {
	t.Helper()
	var failure *ExternalFailure
	require.ErrorAs(t, err, &failure)
	return failure
}

func TestProcessCopiesOutput(t *testing.T) {
	// arg layout is fixed: $2 is the input path, $4 the output path
	binary := writeStubBinary(t, `cp "$2" "$4"`)
	processor := NewExternalProcessor(binary, t.TempDir(), nil)

	buf := gradientBuffer(6, 4)
	out, err := processor.Process(context.Background(), buf, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, buf.Width, out.Width)
	assert.Equal(t, buf.Height, out.Height)
	assert.Equal(t, buf.Pix, out.Pix)
}

func TestProcessNonZeroExit(t *testing.T) {
	binary := writeStubBinary(t, "exit 3")
	processor := NewExternalProcessor(binary, t.TempDir(), nil)

	_, err := processor.Process(context.Background(), gradientBuffer(2, 2), DefaultOptions())
	assert.Equal(t, FailureNonZeroExit, externalFailure(t, err).Reason)
}

func TestProcessMissingOutput(t *testing.T) {
	binary := writeStubBinary(t, "exit 0")
	processor := NewExternalProcessor(binary, t.TempDir(), nil)

	_, err := processor.Process(context.Background(), gradientBuffer(2, 2), DefaultOptions())
	assert.Equal(t, FailureMissingOutput, externalFailure(t, err).Reason)
}

func TestProcessSpawnError(t *testing.T) {
	processor := NewExternalProcessor(filepath.Join(t.TempDir(), "does-not-exist"), t.TempDir(), nil)

	_, err := processor.Process(context.Background(), gradientBuffer(2, 2), DefaultOptions())
	assert.Equal(t, FailureSpawn, externalFailure(t, err).Reason)
}

func TestProcessTimeout(t *testing.T) {
	binary := writeStubBinary(t, "sleep 5")
	processor := NewExternalProcessor(binary, t.TempDir(), nil)
	processor.Timeout = 50 * time.Millisecond

	start := time.Now()
	_, err := processor.Process(context.Background(), gradientBuffer(2, 2), DefaultOptions())
	assert.Equal(t, FailureTimeout, externalFailure(t, err).Reason)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestProcessCleansUpArtifacts(t *testing.T) {
	tempRoot := t.TempDir()

	binary := writeStubBinary(t, `cp "$2" "$4"`)
	processor := NewExternalProcessor(binary, tempRoot, nil)
	_, err := processor.Process(context.Background(), gradientBuffer(2, 2), DefaultOptions())
	require.NoError(t, err)

	entries, err := os.ReadDir(tempRoot)
	require.NoError(t, err)
	assert.Empty(t, entries, "work directory should be removed after success")

	failing := writeStubBinary(t, "exit 1")
	processor = NewExternalProcessor(failing, tempRoot, nil)
	_, err = processor.Process(context.Background(), gradientBuffer(2, 2), DefaultOptions())
	require.Error(t, err)

	entries, err = os.ReadDir(tempRoot)
	require.NoError(t, err)
	assert.Empty(t, entries, "work directory should be removed after failure")
}

func TestProcessConcurrentInvocationsDoNotCollide(t *testing.T) {
	tempRoot := t.TempDir()

	// colliding artifact paths would make one invocation read another's image
	binary := writeStubBinary(t, `cp "$2" "$4"`)
	processor := NewExternalProcessor(binary, tempRoot, nil)

	buffers := []*PixelBuffer{
		markedBuffer(3, 3, 10),
		markedBuffer(3, 3, 20),
		markedBuffer(3, 3, 30),
		markedBuffer(3, 3, 40),
	}

	results := make([]*PixelBuffer, len(buffers))
	errs := make([]error, len(buffers))

	done := make(chan int, len(buffers))
	for i, buf := range buffers {
		go func(i int, buf *PixelBuffer) {
			results[i], errs[i] = processor.Process(context.Background(), buf, DefaultOptions())
			done <- i
		}(i, buf)
	}

	for range buffers {
		<-done
	}

	for i, buf := range buffers {
		require.NoError(t, errs[i])
		assert.Equal(t, buf.Pix, results[i].Pix, "invocation %d read someone else's artifact", i)
	}
}
