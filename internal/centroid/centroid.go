package centroid

// halfWidth is the sub-subraster half-width the Gaussian fit runs over,
// centered on the center-of-mass seed.
const halfWidth = 8

// initialWidth is the starting guess for both Gaussian widths, in pixels.
const initialWidth = 2.5

// initialAmplitude is the starting guess for the peak amplitude above
// background, chosen to be comfortably inside the camera's 16-bit range.
const initialAmplitude = 12800

// Result is the outcome of a refine pass. FWHMX and FWHMY are only
// meaningful when the fit was run in ModeFWHM; they are left at zero
// otherwise.
type Result struct {
	X, Y         float64
	FWHMX, FWHMY float64
}

// Seed computes the center-of-mass estimate of the star position within
// the full subraster, in the subraster's own pixel coordinates.
func Seed(s Subraster) (x, y float64) {
	x, y, _ = centerOfMass(s)
	return x, y
}

// Refine fits a 2-D Gaussian around the seed position and returns the
// refined centroid, in the full subraster's own coordinates, with the
// +0.5 convention applied so pixel centers land on half-integers. If the
// refined position comes out negative on either axis the seed is returned
// instead.
func Refine(s Subraster, seedX, seedY float64, mode Mode) Result {
	_, _, bg := centerOfMass(s)

	sub, ox, oy := s.crop(int(seedX+0.5), int(seedY+0.5), halfWidth)

	init := gaussParams{
		pX0: seedX - float64(ox),
		pY0: seedY - float64(oy),
		pWX: initialWidth,
		pWY: initialWidth,
		pAmp: initialAmplitude,
		pBg:  float64(bg),
	}

	fitted := levenbergMarquardt(sub, init, freeParams(mode))

	x := float64(ox) + fitted[pX0]
	y := float64(oy) + fitted[pY0]
	if x < 0 || y < 0 {
		x, y = seedX, seedY
	}

	res := Result{X: x + 0.5, Y: y + 0.5}
	if mode == ModeFWHM {
		res.FWHMX = fitted[pWX]
		res.FWHMY = fitted[pWY]
	}
	return res
}
