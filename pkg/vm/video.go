package vm

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
)

// FramebufferRGBA decodes screen memory into a 512×256 RGBA8888 byte slice
// (length 512*256*4). Set bits are black, clear bits white.
func (v *VM) FramebufferRGBA() []byte {
	pixels := make([]byte, ScreenWidth*ScreenHeight*4)
	for y := 0; y < ScreenHeight; y++ {
		for x := 0; x < ScreenWidth; x++ {
			var c byte = 0xFF
			if v.Pixel(x, y) {
				c = 0x00
			}
			i := (y*ScreenWidth + x) * 4
			pixels[i+0] = c
			pixels[i+1] = c
			pixels[i+2] = c
			pixels[i+3] = 0xFF
		}
	}
	return pixels
}

// ScreenImage returns the screen as an *image.RGBA.
func (v *VM) ScreenImage() *image.RGBA {
	return &image.RGBA{
		Pix:    v.FramebufferRGBA(),
		Stride: ScreenWidth * 4,
		Rect:   image.Rect(0, 0, ScreenWidth, ScreenHeight),
	}
}

// SaveScreenshot writes the screen to filename, as PNG when the name ends in
// .png and as BMP otherwise.
func (v *VM) SaveScreenshot(filename string) error {
	img := v.ScreenImage()
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	if strings.EqualFold(filepath.Ext(filename), ".png") {
		return png.Encode(f, img)
	}
	return bmp.Encode(f, img)
}
