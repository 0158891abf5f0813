package upscale

import (
	"image"
)

// PixelBuffer is an interleaved RGB sample grid, 8 bits per channel.
// Pix is row-major, 3 bytes per pixel in R, G, B order.
type PixelBuffer struct {
	Width  int
	Height int
	Pix    []uint8
}

func NewPixelBuffer(width int, height int) *PixelBuffer {
	return &PixelBuffer{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*3),
	}
}

func (b *PixelBuffer) Clone() *PixelBuffer {
	clone := NewPixelBuffer(b.Width, b.Height)
	copy(clone.Pix, b.Pix)
	return clone
}

// ToRGBA copies the buffer into an image.RGBA with full alpha.
func (b *PixelBuffer) ToRGBA() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, b.Width, b.Height))
	for i := 0; i < b.Width*b.Height; i++ {
		img.Pix[i*4] = b.Pix[i*3]
		img.Pix[i*4+1] = b.Pix[i*3+1]
		img.Pix[i*4+2] = b.Pix[i*3+2]
		img.Pix[i*4+3] = 0xff
	}
	return img
}

// BufferFromImage converts any image into an interleaved RGB buffer.
func BufferFromImage(img image.Image) *PixelBuffer {
	bounds := img.Bounds()
	buf := NewPixelBuffer(bounds.Dx(), bounds.Dy())

	if rgba, ok := img.(*image.RGBA); ok {
		for y := 0; y < buf.Height; y++ {
			for x := 0; x < buf.Width; x++ {
				src := rgba.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)
				dst := (y*buf.Width + x) * 3
				buf.Pix[dst] = rgba.Pix[src]
				buf.Pix[dst+1] = rgba.Pix[src+1]
				buf.Pix[dst+2] = rgba.Pix[src+2]
			}
		}
		return buf
	}

	for y := 0; y < buf.Height; y++ {
		for x := 0; x < buf.Width; x++ {
			r, g, bl, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			dst := (y*buf.Width + x) * 3
			buf.Pix[dst] = uint8(r >> 8)
			buf.Pix[dst+1] = uint8(g >> 8)
			buf.Pix[dst+2] = uint8(bl >> 8)
		}
	}
	return buf
}
