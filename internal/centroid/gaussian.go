package centroid

import "math"

// widthToVariance is the constant tying the fit's "width" parameters to the
// Gaussian's variance term: 2*sigma^2 normalized so that p2/p3 read out in
// units comparable to a FWHM-like width rather than raw sigma.
const widthToVariance = 0.180337

// gaussParams is the 6-parameter model vector: x0, y0, widthX, widthY,
// amplitude, background.
type gaussParams [6]float64

const (
	pX0 = iota
	pY0
	pWX
	pWY
	pAmp
	pBg
)

// eval returns the model value and its gradient with respect to all six
// parameters at pixel (x, y).
func (p gaussParams) eval(x, y float64) (val float64, grad gaussParams) {
	dx := x - p[pX0]
	dy := y - p[pY0]
	wx2 := p[pWX] * p[pWX] * widthToVariance
	wy2 := p[pWY] * p[pWY] * widthToVariance
	if wx2 <= 0 {
		wx2 = 1e-6
	}
	if wy2 <= 0 {
		wy2 = 1e-6
	}
	e := math.Exp(-0.5 * (dx*dx/wx2 + dy*dy/wy2))
	amp := p[pAmp]
	val = amp*e + p[pBg]

	grad[pX0] = amp * e * (dx / wx2)
	grad[pY0] = amp * e * (dy / wy2)
	grad[pWX] = amp * e * (dx * dx / (p[pWX] * wx2))
	grad[pWY] = amp * e * (dy * dy / (p[pWY] * wy2))
	grad[pAmp] = e
	grad[pBg] = 1
	return val, grad
}
