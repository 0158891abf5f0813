package upscale

import (
	"image"

	"golang.org/x/image/draw"
)

// Resize resamples the buffer to (width*scale, height*scale) with a
// Catmull-Rom kernel. This is the terminal fallback, it does not fail
// for any well-formed buffer. Scale 1 is a plain copy, no filter runs.
func Resize(buf *PixelBuffer, scale int) *PixelBuffer {
	if scale == 1 {
		return buf.Clone()
	}

	src := buf.ToRGBA()
	dst := image.NewRGBA(image.Rect(0, 0, buf.Width*scale, buf.Height*scale))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	return BufferFromImage(dst)
}
