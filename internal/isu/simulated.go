package isu

// mradPerArcsec is 1000/206264.806 (= 1/206.264806), the
// arcsecond-to-radian conversion scaled to milliradians, used by both the live and simulated calibrations absent
// a collaborator-supplied override.
const mradPerArcsec = 1.0 / 206.264806

// Simulated is an in-memory ISU standing in for the mechanism when
// Capabilities.ISU == simulated: it tracks a commanded
// position and answers ReadAngles with it, so the geometry transform and
// frame loop exercise the same code path they would against hardware.
type Simulated struct {
	homed bool
	enabled bool
	x, y float64 // mrad
	xFault bool
	yFault bool
}

// NewSimulated returns an ISU simulator that is already homed and enabled,
// at rest at (0, 0).
func NewSimulated() *Simulated {
	return &Simulated{homed: true, enabled: true}
}

// Home immediately completes, since there is no mechanism to move.
func (s *Simulated) Home() error {
	s.homed = true
	s.x, s.y = 0, 0
	return nil
}

// CheckHomed reports the simulated homed flag.
func (s *Simulated) CheckHomed() (bool, error) {
	return s.homed, nil
}

// Enable arms the simulator.
func (s *Simulated) Enable() error {
	s.enabled = true
	return nil
}

// Stop disarms the simulator, holding position.
func (s *Simulated) Stop() error {
	s.enabled = false
	return nil
}

// ReadAngles returns the simulator's tracked position.
func (s *Simulated) ReadAngles() (x, y float64, err error) {
	return s.x, s.y, nil
}

// SetupSlope moves immediately to the target, modeling an instantaneous
// slope completion for test and simulated-deployment purposes.
func (s *Simulated) SetupSlope(rateHz, targetX, targetY float64) error {
	s.x, s.y = targetX, targetY
	return nil
}

// SetupDirect moves immediately to the target.
func (s *Simulated) SetupDirect(targetX, targetY float64) error {
	s.x, s.y = targetX, targetY
	return nil
}

// ArcsecToMrad applies the simple linear arcsec<->mrad conversion.
func (s *Simulated) ArcsecToMrad(axis Axis, arcsec float64) float64 {
	return arcsec * mradPerArcsec
}

// SetupToTrue is the identity map in simulation: no mechanism nonlinearity
// to model.
func (s *Simulated) SetupToTrue(axis Axis, mrad float64) float64 {
	return mrad
}

// CheckFault never faults unless InjectFault has been called.
func (s *Simulated) CheckFault() (xFault, yFault bool, err error) {
	return s.xFault, s.yFault, nil
}

// InjectFault sets the simulated fault flags, for driving the frame loop's
// fatal ISU-fault handling (scenario 6) by hand; no unit test drives that
// path, since it exits the process.
func (s *Simulated) InjectFault(x, y bool) {
	s.xFault, s.yFault = x, y
}
