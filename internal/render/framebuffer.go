package render

import (
	"image/color"

	"tinygo.org/x/drivers"
)

// framebuffer is an RGB565 pixel buffer that tinyfont can draw on.
type framebuffer struct {
	width  int
	height int
	buf    []byte
}

var _ drivers.Displayer = (*framebuffer)(nil)

func newFramebuffer(width, height int) *framebuffer {
	return &framebuffer{
		width:  width,
		height: height,
		buf:    make([]byte, width*height*2),
	}
}

func (f *framebuffer) Size() (x, y int16) {
	return int16(f.width), int16(f.height)
}

func (f *framebuffer) SetPixel(x, y int16, c color.RGBA) {
	ix, iy := int(x), int(y)
	if ix < 0 || ix >= f.width || iy < 0 || iy >= f.height {
		return
	}

	pixel := rgb565(c)
	off := (iy*f.width + ix) * 2
	f.buf[off] = byte(pixel)
	f.buf[off+1] = byte(pixel >> 8)
}

// Display is a no-op; frames are handed to the Presenter instead.
func (f *framebuffer) Display() error {
	return nil
}

func (f *framebuffer) fill(c color.RGBA) {
	pixel := rgb565(c)
	lo, hi := byte(pixel), byte(pixel>>8)
	for i := 0; i < len(f.buf); i += 2 {
		f.buf[i] = lo
		f.buf[i+1] = hi
	}
}

func (f *framebuffer) pixel(x, y int) uint16 {
	off := (y*f.width + x) * 2
	return uint16(f.buf[off]) | uint16(f.buf[off+1])<<8
}

func (f *framebuffer) snapshot() []byte {
	out := make([]byte, len(f.buf))
	copy(out, f.buf)
	return out
}

func rgb565(c color.RGBA) uint16 {
	return uint16((uint16(c.R>>3)&0x1F)<<11 | (uint16(c.G>>2)&0x3F)<<5 | (uint16(c.B>>3) & 0x1F))
}
