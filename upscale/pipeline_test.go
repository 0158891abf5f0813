package upscale

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProcessor struct {
	out   *PixelBuffer
	err   error
	calls int
}

func (s *stubProcessor) Process(ctx context.Context, buf *PixelBuffer, opts Options) (*PixelBuffer, error) {
	s.calls++
	return s.out, s.err
}

type reportedEvent struct {
	code   string
	fields map[string]interface{}
}

type recordingReporter struct {
	events []reportedEvent
}

func (r *recordingReporter) Warn(code string, fields map[string]interface{}) {
	r.events = append(r.events, reportedEvent{code: code, fields: fields})
}

func markedBuffer(width, height int, value uint8) *PixelBuffer {
	buf := NewPixelBuffer(width, height)
	for i := range buf.Pix {
		buf.Pix[i] = value
	}
	return buf
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Scale = 2
	return opts
}

func TestPipelineExternalFailureFallsBack(t *testing.T) {
	reasons := []FailureReason{FailureSpawn, FailureTimeout, FailureNonZeroExit, FailureMissingOutput}

	for _, reason := range reasons {
		t.Run(reason.String(), func(t *testing.T) {
			external := &stubProcessor{err: &ExternalFailure{Reason: reason, Err: errors.New("boom")}}
			reporter := &recordingReporter{}
			pipeline := NewPipeline(testOptions(), nil, external, reporter)

			frame := testFrameU8(4, 3)
			out, err := pipeline.Upscale(context.Background(), frame)
			require.NoError(t, err)

			// fallback result still has the exact scaled dimensions
			assert.Equal(t, 8, out.Width)
			assert.Equal(t, 6, out.Height)
			assert.Equal(t, 1, external.calls)

			// exactly one diagnostic, carrying the failure reason
			require.Len(t, reporter.events, 1)
			assert.Equal(t, "external_fallback", reporter.events[0].code)
			assert.Equal(t, reason.String(), reporter.events[0].fields["reason"])
		})
	}
}

func TestPipelineExternalSuccess(t *testing.T) {
	external := &stubProcessor{out: markedBuffer(8, 6, 42)}
	reporter := &recordingReporter{}
	pipeline := NewPipeline(testOptions(), nil, external, reporter)

	out, err := pipeline.Upscale(context.Background(), testFrameU8(4, 3))
	require.NoError(t, err)

	assert.Empty(t, reporter.events)
	assert.Equal(t, uint8(42), out.U8[0][0])
	assert.Equal(t, 8, out.Width)
	assert.Equal(t, 6, out.Height)
}

func TestPipelineRejectsWrongDimensions(t *testing.T) {
	// processor reports success but returns an unscaled buffer
	external := &stubProcessor{out: markedBuffer(4, 3, 42)}
	reporter := &recordingReporter{}
	pipeline := NewPipeline(testOptions(), nil, external, reporter)

	out, err := pipeline.Upscale(context.Background(), testFrameU8(4, 3))
	require.NoError(t, err)

	assert.Equal(t, 8, out.Width)
	assert.Equal(t, 6, out.Height)
	require.Len(t, reporter.events, 1)
	assert.Equal(t, "external_fallback", reporter.events[0].code)
}

func TestPipelineNativeShortCircuits(t *testing.T) {
	native := &stubProcessor{out: markedBuffer(8, 6, 7)}
	external := &stubProcessor{}
	reporter := &recordingReporter{}
	pipeline := NewPipeline(testOptions(), native, external, reporter)

	assert.Equal(t, NativeAvailable, pipeline.Capability())

	out, err := pipeline.Upscale(context.Background(), testFrameU8(4, 3))
	require.NoError(t, err)

	assert.Equal(t, uint8(7), out.U8[0][0])
	assert.Equal(t, 1, native.calls)
	assert.Equal(t, 0, external.calls)
	assert.Empty(t, reporter.events)
}

func TestPipelineNativeFallsThroughToExternal(t *testing.T) {
	native := &stubProcessor{err: errors.New("no gpu")}
	external := &stubProcessor{out: markedBuffer(8, 6, 9)}
	reporter := &recordingReporter{}
	pipeline := NewPipeline(testOptions(), native, external, reporter)

	out, err := pipeline.Upscale(context.Background(), testFrameU8(4, 3))
	require.NoError(t, err)

	assert.Equal(t, uint8(9), out.U8[0][0])
	require.Len(t, reporter.events, 1)
	assert.Equal(t, "native_fallback", reporter.events[0].code)
}

func TestPipelineCapabilityResolvedOnce(t *testing.T) {
	pipeline := NewPipeline(testOptions(), nil, &stubProcessor{}, &recordingReporter{})
	assert.Equal(t, NativeUnavailable, pipeline.Capability())
}

func TestPipelineNoProcessorsStillScales(t *testing.T) {
	reporter := &recordingReporter{}
	pipeline := NewPipeline(testOptions(), nil, nil, reporter)

	out, err := pipeline.Upscale(context.Background(), testFrameU8(4, 3))
	require.NoError(t, err)

	assert.Equal(t, 8, out.Width)
	assert.Equal(t, 6, out.Height)
	assert.Empty(t, reporter.events)
}

func TestPipelinePropagatesDecodeError(t *testing.T) {
	external := &stubProcessor{}
	reporter := &recordingReporter{}
	pipeline := NewPipeline(testOptions(), nil, external, reporter)

	bad := NewFrame(2, 2, FrameFormat{SampleType: SampleUint8, NumPlanes: 2})
	_, err := pipeline.Upscale(context.Background(), bad)

	var decodeErr *DecodeError
	assert.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, 0, external.calls)
	assert.Empty(t, reporter.events)
}

func TestPipelineDoesNotMutateInputFrame(t *testing.T) {
	external := &stubProcessor{err: &ExternalFailure{Reason: FailureNonZeroExit}}
	pipeline := NewPipeline(testOptions(), nil, external, &recordingReporter{})

	frame := testFrameU8(4, 3)
	original := make([]uint8, len(frame.U8[0]))
	copy(original, frame.U8[0])

	_, err := pipeline.Upscale(context.Background(), frame)
	require.NoError(t, err)

	assert.Equal(t, original, frame.U8[0])
}
