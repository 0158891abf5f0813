package upscale

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Capability tells whether an in-process upscaler was wired in. It is
// resolved once at pipeline construction, never re-probed per frame.
type Capability int

const (
	NativeUnavailable Capability = iota
	NativeAvailable
)

// Processor produces an upscaled buffer or an error. ExternalProcessor
// is the production implementation.
type Processor interface {
	Process(ctx context.Context, buf *PixelBuffer, opts Options) (*PixelBuffer, error)
}

// Native marks an in-process accelerated implementation. None ships
// with this module, an embedding application may inject one.
type Native interface {
	Processor
}

// Reporter receives one event per fallback transition so the embedder
// can observe degraded frames without parsing log text.
type Reporter interface {
	Warn(code string, fields map[string]interface{})
}

// LogrusReporter forwards fallback events to a logrus entry.
type LogrusReporter struct {
	Logger *logrus.Entry
}

func (r *LogrusReporter) Warn(code string, fields map[string]interface{}) {
	r.Logger.WithFields(logrus.Fields(fields)).Warn(code)
}

// Pipeline upscales single frames, trying the native path, then the
// external executable, then local resampling. Failures past the decode
// boundary never escape, every call yields a frame of exactly
// (width*scale, height*scale).
type Pipeline struct {
	opts       Options
	native     Native
	external   Processor
	reporter   Reporter
	capability Capability
}

func NewPipeline(opts Options, native Native, external Processor, reporter Reporter) *Pipeline {
	capability := NativeUnavailable
	if native != nil {
		capability = NativeAvailable
	}

	if reporter == nil {
		reporter = &LogrusReporter{Logger: logrus.NewEntry(logrus.StandardLogger())}
	}

	return &Pipeline{
		opts:       opts,
		native:     native,
		external:   external,
		reporter:   reporter,
		capability: capability,
	}
}

func (p *Pipeline) Options() Options {
	return p.opts
}

func (p *Pipeline) Capability() Capability {
	return p.capability
}

// Upscale processes one frame. DecodeError and FormatMismatchError
// propagate, they mean the host broke the plane contract. Everything
// else degrades through the fallback chain.
func (p *Pipeline) Upscale(ctx context.Context, frame *Frame) (*Frame, error) {
	buf, err := Decode(frame)
	if err != nil {
		return nil, err
	}

	return Encode(p.run(ctx, buf), frame.Format)
}

func (p *Pipeline) run(ctx context.Context, buf *PixelBuffer) *PixelBuffer {
	if p.capability == NativeAvailable {
		out, err := p.attempt(ctx, p.native, buf)
		if err == nil {
			return out
		}
		p.reporter.Warn("native_fallback", failureFields(err))
	}

	if p.external != nil {
		out, err := p.attempt(ctx, p.external, buf)
		if err == nil {
			return out
		}
		p.reporter.Warn("external_fallback", failureFields(err))
	}

	return Resize(buf, p.opts.Scale)
}

// attempt runs one processor and enforces the output dimension
// invariant, a mis-sized result counts as a failure.
func (p *Pipeline) attempt(ctx context.Context, proc Processor, buf *PixelBuffer) (*PixelBuffer, error) {
	out, err := proc.Process(ctx, buf, p.opts)
	if err != nil {
		return nil, err
	}

	wantW := buf.Width * p.opts.Scale
	wantH := buf.Height * p.opts.Scale
	if out == nil || out.Width != wantW || out.Height != wantH {
		return nil, fmt.Errorf("processor returned wrong dimensions, want %dx%d", wantW, wantH)
	}

	return out, nil
}

func failureFields(err error) map[string]interface{} {
	fields := map[string]interface{}{"error": err.Error()}

	var external *ExternalFailure
	if errors.As(err, &external) {
		fields["reason"] = external.Reason.String()
		if external.Output != "" {
			fields["processOutput"] = external.Output
		}
	}

	return fields
}
