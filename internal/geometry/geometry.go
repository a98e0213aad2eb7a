// Package geometry maps a refined subraster centroid to an ISU mechanism
// command, via the fixed pixel scale and the ISU collaborator's
// calibration functions.
package geometry

import "github.com/chyan26/raptorServ/internal/isu"

// PixScale is the optical train's arcseconds-per-pixel conversion.
const PixScale = 0.128

// Offset is the result of transforming a refined centroid into a
// mechanism command: the pixel offset expressed in arcseconds, the
// calibrated mrad delta applied to each axis, and the mechanism's
// last-read position the delta was computed against.
type Offset struct {
	XOffArcsec, YOffArcsec float64
	DeltaXMrad, DeltaYMrad float64
	LastXMrad, LastYMrad float64
	TargetXMrad, TargetYMrad float64
}

// Transform holds the ISU collaborator used to convert offsets into
// mechanism units and to read the mechanism's current position.
type Transform struct {
	ISU isu.Capability
}

// Compute converts a refined subraster centroid (xc, yc) into a mechanism
// target, given the current guide subraster origin and null pixel.
//
// guide_xoff_arcsec = (guideX0 + xc - nullX) * PixScale, and likewise for Y.
// The offset is converted to milliradians and run through the ISU's
// setup-to-true calibration; the commanded absolute target on each axis is
// the mechanism's last-read angle minus that calibrated delta.
func (t Transform) Compute(xc, yc, guideX0, guideY0, nullX, nullY float64) (Offset, error) {
	offX := (guideX0 + xc - nullX) * PixScale
	offY := (guideY0 + yc - nullY) * PixScale

	mradX := t.ISU.ArcsecToMrad(isu.AxisX, offX)
	mradY := t.ISU.ArcsecToMrad(isu.AxisY, offY)

	deltaX := t.ISU.SetupToTrue(isu.AxisX, mradX)
	deltaY := t.ISU.SetupToTrue(isu.AxisY, mradY)

	lastX, lastY, err := t.ISU.ReadAngles()
	if err != nil {
		return Offset{}, err
	}

	return Offset{
		XOffArcsec: offX,
		YOffArcsec: offY,
		DeltaXMrad: deltaX,
		DeltaYMrad: deltaY,
		LastXMrad: lastX,
		LastYMrad: lastY,
		TargetXMrad: lastX - deltaX,
		TargetYMrad: lastY - deltaY,
	}, nil
}
