package centroid

import (
	"gonum.org/v1/gonum/mat"
)

// Mode selects which Gaussian parameters the fit holds fixed.
type Mode int

const (
	// ModeCentroid fixes the widths and background, leaving only position
	// and amplitude free. Used on every guiding frame.
	ModeCentroid Mode = iota
	// ModeFWHM fixes only the background, leaving widths free as well.
	// Used once per guide session to measure the seeing.
	ModeFWHM
)

// freeParams returns the indices into gaussParams that the fit is allowed
// to move for the given mode.
func freeParams(mode Mode) []int {
	if mode == ModeFWHM {
		return []int{pX0, pY0, pWX, pWY, pAmp}
	}
	return []int{pX0, pY0, pAmp}
}

const (
	maxIterations  = 50
	initialLambda  = 1e-3
	convergenceTol = 1e-6
)

// levenbergMarquardt refines init against the pixel data in s, moving only
// the parameters named by free, and returns the converged parameter vector.
func levenbergMarquardt(s Subraster, init gaussParams, free []int) gaussParams {
	params := init
	lambda := initialLambda
	nPix := s.W * s.H
	nFree := len(free)

	chi2 := chiSquare(s, params)

	for iter := 0; iter < maxIterations; iter++ {
		jac := mat.NewDense(nPix, nFree, nil)
		res := mat.NewVecDense(nPix, nil)

		idx := 0
		for row := 0; row < s.H; row++ {
			for col := 0; col < s.W; col++ {
				x, y := float64(col), float64(row)
				model, grad := params.eval(x, y)
				res.SetVec(idx, float64(s.At(row, col))-model)
				for k, pi := range free {
					jac.Set(idx, k, grad[pi])
				}
				idx++
			}
		}

		var jtj mat.Dense
		jtj.Mul(jac.T(), jac)
		var jtr mat.VecDense
		jtr.MulVec(jac.T(), res)

		damped := mat.NewDense(nFree, nFree, nil)
		damped.Copy(&jtj)
		for i := 0; i < nFree; i++ {
			damped.Set(i, i, damped.At(i, i)*(1+lambda))
		}

		var delta mat.VecDense
		if err := delta.SolveVec(damped, &jtr); err != nil {
			lambda *= 10
			if lambda > 1e12 {
				break
			}
			continue
		}

		trial := params
		for k, pi := range free {
			trial[pi] += delta.AtVec(k)
		}
		// widths and amplitude must stay physical; reject a step that
		// drives either negative rather than let the fit wander off.
		if trial[pWX] <= 0 || trial[pWY] <= 0 || trial[pAmp] <= 0 {
			lambda *= 10
			if lambda > 1e12 {
				break
			}
			continue
		}

		newChi2 := chiSquare(s, trial)
		if newChi2 < chi2 {
			improved := chi2 - newChi2
			params = trial
			lambda /= 10
			if lambda < 1e-12 {
				lambda = 1e-12
			}
			chi2 = newChi2
			if improved < convergenceTol*chi2 || improved < convergenceTol {
				break
			}
		} else {
			lambda *= 10
			if lambda > 1e12 {
				break
			}
		}
	}
	return params
}

// chiSquare returns the unweighted sum of squared residuals of params
// against s.
func chiSquare(s Subraster, params gaussParams) float64 {
	var sum float64
	for row := 0; row < s.H; row++ {
		for col := 0; col < s.W; col++ {
			model, _ := params.eval(float64(col), float64(row))
			r := float64(s.At(row, col)) - model
			sum += r * r
		}
	}
	return sum
}
