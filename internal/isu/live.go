package isu

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chyan26/raptorServ/internal/transport"
)

// Live is an ISU driver over a line-oriented ASCII command set, holding a
// RemoteDevice for the backoff-retried open and terminated
// send/receive (mirroring aerotech.Ensemble's writeReadRaw pattern, but
// collapsed to the handful of verbs the ISU collaborator contract needs).
type Live struct {
	dev transport.RemoteDevice

	// mradPerArcsec and trueCal are the ISU's calibration. mradPerArcsec
	// is the package constant; trueCal is identity unless the caller
	// installs one with WithCalibration.
	mradPerArcsec float64
	trueCal func(Axis, float64) float64
}

// NewLive returns an ISU driver bound to a host:port address. The
// setup-to-true calibration defaults to identity until WithCalibration is
// used to install the real one.
func NewLive(addr string) *Live {
	dev := transport.NewRemoteDevice(addr, false, nil, nil)
	return &Live{dev: dev, mradPerArcsec: mradPerArcsec, trueCal: func(_ Axis, mrad float64) float64 { return mrad }}
}

// WithCalibration installs the ISU's true setup-to-true calibration
// function, replacing the identity default.
func (l *Live) WithCalibration(f func(Axis, float64) float64) {
	l.trueCal = f
}

func (l *Live) cmd(format string, args ...interface{}) ([]byte, error) {
	if err := l.dev.Open(); err != nil {
		return nil, fmt.Errorf("isu: open: %w", err)
	}
	return l.dev.SendRecv([]byte(fmt.Sprintf(format, args...)))
}

// Home drives the mechanism to its reference position on both axes.
func (l *Live) Home() error {
	_, err := l.cmd("HOME")
	return err
}

// CheckHomed reports whether the mechanism has completed homing.
func (l *Live) CheckHomed() (bool, error) {
	resp, err := l.cmd("HOMED?")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(string(resp)) == "1", nil
}

// Enable arms the mechanism.
func (l *Live) Enable() error {
	_, err := l.cmd("ENABLE")
	return err
}

// Stop disarms the mechanism.
func (l *Live) Stop() error {
	_, err := l.cmd("STOP")
	return err
}

// ReadAngles returns the mechanism's last-known position on both axes, in
// milliradians, parsed from a "X,Y" reply.
func (l *Live) ReadAngles() (x, y float64, err error) {
	resp, err := l.cmd("POS?")
	if err != nil {
		return 0, 0, err
	}
	parts := strings.SplitN(strings.TrimSpace(string(resp)), ",", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("isu: malformed position reply %q", resp)
	}
	x, err = strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("isu: position reply x: %w", err)
	}
	y, err = strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("isu: position reply y: %w", err)
	}
	return x, y, nil
}

// SetupSlope dispatches an analog-slope move at rateHz toward the absolute
// target (targetX, targetY) in milliradians.
func (l *Live) SetupSlope(rateHz, targetX, targetY float64) error {
	_, err := l.cmd("SLOPE %f %f %f", rateHz, targetX, targetY)
	return err
}

// SetupDirect commands the absolute target directly, without ramping.
func (l *Live) SetupDirect(targetX, targetY float64) error {
	_, err := l.cmd("SETPT %f %f", targetX, targetY)
	return err
}

// ArcsecToMrad converts arcseconds to milliradians using the mechanism's
// linear conversion factor (1 radian = 206264.806 arcsec).
func (l *Live) ArcsecToMrad(axis Axis, arcsec float64) float64 {
	return arcsec * l.mradPerArcsec
}

// SetupToTrue applies the installed setpoint calibration (identity unless
// WithCalibration has been called).
func (l *Live) SetupToTrue(axis Axis, mrad float64) float64 {
	return l.trueCal(axis, mrad)
}

// CheckFault reports the X and Y axis fault flags from a "X,Y" reply of
// "0"/"1" tokens.
func (l *Live) CheckFault() (xFault, yFault bool, err error) {
	resp, err := l.cmd("FAULT?")
	if err != nil {
		return false, false, err
	}
	parts := strings.SplitN(strings.TrimSpace(string(resp)), ",", 2)
	if len(parts) != 2 {
		return false, false, fmt.Errorf("isu: malformed fault reply %q", resp)
	}
	return parts[0] == "1", parts[1] == "1", nil
}
