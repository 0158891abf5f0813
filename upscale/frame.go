package upscale

// SampleType is the storage type of a frame plane.
type SampleType int

const (
	// SampleUint8 planes hold 8 bit samples in [0, 255].
	SampleUint8 SampleType = iota
	// SampleFloat32 planes hold float samples normalized to [0, 1].
	SampleFloat32
)

// FrameFormat describes how a host frame stores its samples.
type FrameFormat struct {
	SampleType SampleType
	NumPlanes  int
}

// Frame is a planar video frame as handed over by the host framework,
// one slice per color plane, row-major. Depending on Format either U8
// or F32 is populated. The pipeline only reads input frames and always
// allocates fresh output frames.
type Frame struct {
	Width  int
	Height int
	Format FrameFormat
	U8     [][]uint8
	F32    [][]float32
}

// NewFrame allocates a blank frame with zeroed planes.
func NewFrame(width int, height int, format FrameFormat) *Frame {
	f := &Frame{
		Width:  width,
		Height: height,
		Format: format,
	}

	size := width * height
	if format.SampleType == SampleFloat32 {
		f.F32 = make([][]float32, format.NumPlanes)
		for i := range f.F32 {
			f.F32[i] = make([]float32, size)
		}
	} else {
		f.U8 = make([][]uint8, format.NumPlanes)
		for i := range f.U8 {
			f.U8[i] = make([]uint8, size)
		}
	}

	return f
}

// Decode stacks the frame's three color planes into an interleaved RGB
// buffer. Float planes are scaled by 255 and truncated to uint8.
func Decode(f *Frame) (*PixelBuffer, error) {
	if f == nil {
		return nil, &DecodeError{Reason: "nil frame"}
	}

	if f.Width <= 0 || f.Height <= 0 {
		return nil, &DecodeError{Reason: "zero or negative dimensions"}
	}

	if f.Format.NumPlanes != 3 {
		return nil, &DecodeError{Reason: "expected 3 planes"}
	}

	size := f.Width * f.Height
	buf := NewPixelBuffer(f.Width, f.Height)

	switch f.Format.SampleType {
	case SampleUint8:
		if len(f.U8) != 3 {
			return nil, &DecodeError{Reason: "missing uint8 plane data"}
		}
		for c := 0; c < 3; c++ {
			if len(f.U8[c]) != size {
				return nil, &DecodeError{Reason: "plane size does not match frame dimensions"}
			}
			for i := 0; i < size; i++ {
				buf.Pix[i*3+c] = f.U8[c][i]
			}
		}
	case SampleFloat32:
		if len(f.F32) != 3 {
			return nil, &DecodeError{Reason: "missing float32 plane data"}
		}
		for c := 0; c < 3; c++ {
			if len(f.F32[c]) != size {
				return nil, &DecodeError{Reason: "plane size does not match frame dimensions"}
			}
			for i := 0; i < size; i++ {
				v := f.F32[c][i] * 255
				if v < 0 {
					v = 0
				} else if v > 255 {
					v = 255
				}
				buf.Pix[i*3+c] = uint8(v)
			}
		}
	default:
		return nil, &DecodeError{Reason: "unknown sample type"}
	}

	return buf, nil
}

// Encode splits an interleaved RGB buffer into a freshly allocated
// planar frame of the given format.
func Encode(buf *PixelBuffer, format FrameFormat) (*Frame, error) {
	if format.NumPlanes != 3 {
		return nil, &FormatMismatchError{NumPlanes: format.NumPlanes}
	}

	f := NewFrame(buf.Width, buf.Height, format)
	size := buf.Width * buf.Height

	if format.SampleType == SampleFloat32 {
		for c := 0; c < 3; c++ {
			for i := 0; i < size; i++ {
				f.F32[c][i] = float32(buf.Pix[i*3+c]) / 255
			}
		}
		return f, nil
	}

	for c := 0; c < 3; c++ {
		for i := 0; i < size; i++ {
			f.U8[c][i] = buf.Pix[i*3+c]
		}
	}
	return f, nil
}
