package centroid

import "github.com/chyan26/raptorServ/internal/util"

// Subraster is a row-major window of raw 16-bit camera pixels, used both
// for the full guide subraster (32x32) and the smaller sub-subraster the
// Gaussian fit runs against.
type Subraster struct {
	Pix []uint16
	W   int
	H   int
}

// At returns the pixel at (row, col).
func (s Subraster) At(row, col int) uint16 {
	return s.Pix[row*s.W+col]
}

// crop extracts the half-width-wide window centered on (cx, cy), clamped to
// [0, s.W] / [0, s.H], returning the cropped raster and its origin in the
// parent raster's coordinates.
func (s Subraster) crop(cx, cy, halfWidth int) (sub Subraster, ox, oy int) {
	x0 := util.ClampInt(cx-halfWidth, 0, s.W)
	x1 := util.ClampInt(cx+halfWidth, 0, s.W)
	y0 := util.ClampInt(cy-halfWidth, 0, s.H)
	y1 := util.ClampInt(cy+halfWidth, 0, s.H)
	w, h := x1-x0, y1-y0
	pix := make([]uint16, w*h)
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			pix[row*w+col] = s.At(y0+row, x0+col)
		}
	}
	return Subraster{Pix: pix, W: w, H: h}, x0, y0
}
