// Package isu defines the narrow capability set the frame loop and
// geometry transform need from the Image Stabilization Unit, the two-axis
// tip-tilt steering mirror that holds the guide star on the null pixel.
// The capability is a deployment variant resolved at startup:
// live hardware or a simulated no-op, both satisfying the same interface.
package isu

// Axis selects one of the two tip-tilt axes.
type Axis int

const (
	AxisX Axis = iota
	AxisY
)

func (a Axis) String() string {
	if a == AxisY {
		return "Y"
	}
	return "X"
}

// Capability is everything the frame loop and command dispatcher need from
// the ISU. Home is long-running and expected to be run from a detached
// worker; every other method is expected to return promptly.
type Capability interface {
	// Home drives the mechanism to its reference position. Blocking and
	// potentially slow; callers run it from a worker goroutine.
	Home() error

	// CheckHomed reports whether the mechanism has completed homing.
	CheckHomed() (bool, error)

	// Enable arms the mechanism for closed-loop commands.
	Enable() error

	// Stop disarms the mechanism and halts any in-progress move.
	Stop() error

	// ReadAngles returns the mechanism's last-known position on both axes,
	// in milliradians.
	ReadAngles() (x, y float64, err error)

	// SetupSlope dispatches an analog-slope move: the mechanism ramps from
	// its current angle to (targetX, targetY) at the given frame rate. It
	// is the asynchronous path the frame loop dispatches from a detached
	// worker.
	SetupSlope(rateHz, targetX, targetY float64) error

	// SetupDirect is the synchronous alternative to SetupSlope: it
	// commands the absolute target and returns once accepted, without
	// waiting for the move to complete.
	SetupDirect(targetX, targetY float64) error

	// ArcsecToMrad converts an angular offset in arcseconds to
	// milliradians on the given axis, using the mechanism's calibrated
	// conversion.
	ArcsecToMrad(axis Axis, arcsec float64) float64

	// SetupToTrue maps a logical setpoint to the angle the mechanism
	// actually moves to, per its non-identity calibration.
	SetupToTrue(axis Axis, mrad float64) float64

	// CheckFault reports the X and Y axis fault flags. Either flag true
	// is a fatal condition for the frame loop.
	CheckFault() (xFault, yFault bool, err error)
}
