package centroid

// centerOfMass computes the background-subtracted first-moment seed over a
// subraster: the pixelwise median is subtracted as background, negative
// remainders are zeroed, and the moments (sum of col-weighted, row-weighted,
// and total intensity) give the seed position. If the remaining intensity
// is zero everywhere the geometric center is returned instead.
//
// Returns the seed (x, y) in the subraster's own coordinates and the median
// used as the background estimate, which also seeds the fit's background
// parameter.
func centerOfMass(s Subraster) (x, y float64, background uint16) {
	vals := make([]uint16, len(s.Pix))
	copy(vals, s.Pix)
	bg := median(vals)

	var sumV, sumX, sumY float64
	for row := 0; row < s.H; row++ {
		for col := 0; col < s.W; col++ {
			v := s.At(row, col)
			var rem float64
			if v > bg {
				rem = float64(v - bg)
			}
			sumV += rem
			sumX += rem * float64(col)
			sumY += rem * float64(row)
		}
	}
	if sumV > 0 {
		return sumX / sumV, sumY / sumV, bg
	}
	return float64(s.W) / 2, float64(s.H) / 2, bg
}
