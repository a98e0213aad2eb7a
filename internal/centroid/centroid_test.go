package centroid

import (
	"math"
	"testing"
)

// syntheticGaussian renders a 32x32 subraster with a single Gaussian peak
// at (x, y) of the given amplitude, width, and background.
func syntheticGaussian(x, y, width, amp float64, bg uint16) Subraster {
	const size = 32
	pix := make([]uint16, size*size)
	p := gaussParams{pX0: x, pY0: y, pWX: width, pWY: width, pAmp: amp, pBg: float64(bg)}
	for row := 0; row < size; row++ {
		for col := 0; col < size; col++ {
			v, _ := p.eval(float64(col), float64(row))
			if v < 0 {
				v = 0
			}
			pix[row*size+col] = uint16(v)
		}
	}
	return Subraster{Pix: pix, W: size, H: size}
}

func TestSeedFindsPeakApproximately(t *testing.T) {
	s := syntheticGaussian(16, 18, 2.5, 20000, 500)
	x, y := Seed(s)
	if math.Abs(x-16) > 1.5 || math.Abs(y-18) > 1.5 {
		t.Fatalf("seed (%v, %v) too far from (16, 18)", x, y)
	}
}

func TestRefineFWHMRecoversPositionAndWidth(t *testing.T) {
	s := syntheticGaussian(16, 18, 2.5, 20000, 500)
	sx, sy := Seed(s)
	res := Refine(s, sx, sy, ModeFWHM)
	if math.Abs(res.X-16.5) > 0.1 {
		t.Fatalf("refined x = %v, want 16.5 +/- 0.1", res.X)
	}
	if math.Abs(res.Y-18.5) > 0.1 {
		t.Fatalf("refined y = %v, want 18.5 +/- 0.1", res.Y)
	}
	if math.Abs(res.FWHMX-2.5) > 0.3 {
		t.Fatalf("fwhm x = %v, want ~2.5", res.FWHMX)
	}
	if math.Abs(res.FWHMY-2.5) > 0.3 {
		t.Fatalf("fwhm y = %v, want ~2.5", res.FWHMY)
	}
}

func TestRefineCentroidModeHoldsWidthsFixed(t *testing.T) {
	s := syntheticGaussian(16, 18, 2.5, 20000, 500)
	sx, sy := Seed(s)
	res := Refine(s, sx, sy, ModeCentroid)
	if res.FWHMX != 0 || res.FWHMY != 0 {
		t.Fatal("centroid-only mode must not populate FWHM")
	}
	if math.Abs(res.X-16.5) > 0.1 || math.Abs(res.Y-18.5) > 0.1 {
		t.Fatalf("refined (%v, %v), want (16.5, 18.5) +/- 0.1", res.X, res.Y)
	}
}

func TestRepeatedIdenticalFramesGiveIdenticalCentroid(t *testing.T) {
	s := syntheticGaussian(10, 12, 2.5, 15000, 300)
	sx1, sy1 := Seed(s)
	r1 := Refine(s, sx1, sy1, ModeCentroid)
	sx2, sy2 := Seed(s)
	r2 := Refine(s, sx2, sy2, ModeCentroid)
	if r1 != r2 {
		t.Fatalf("identical frames produced different centroids: %+v vs %+v", r1, r2)
	}
}

func TestMedianQuickselect(t *testing.T) {
	cases := []struct {
		in   []uint16
		want uint16
	}{
		{[]uint16{5, 3, 1, 4, 2}, 3},
		{[]uint16{1, 2, 3, 4}, 3},
		{[]uint16{7}, 7},
	}
	for _, c := range cases {
		vals := make([]uint16, len(c.in))
		copy(vals, c.in)
		if got := median(vals); got != c.want {
			t.Fatalf("median(%v) = %d, want %d", c.in, got, c.want)
		}
	}
}
