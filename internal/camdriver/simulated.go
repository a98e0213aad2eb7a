package camdriver

import (
	"errors"
	"math"
	"time"
)

// Simulated is an in-memory frame-grabber standing in for the real
// channel when Capabilities.Camera == simulated: it
// synthesizes a subraster with a Gaussian star so the centroid engine and
// geometry transform have something realistic to chase without hardware.
type Simulated struct {
	open bool
	roi ROI
	roiOn bool
	bufN int
	timeout time.Duration
	timeouts int

	// StarX, StarY is the simulated star position in full-frame
	// coordinates; tests move it to exercise tracking.
	StarX, StarY float64
	// Amplitude and Width parameterize the synthetic Gaussian.
	Amplitude, Width float64
	// Background is the flat pedestal added under the star.
	Background uint16
}

// FullWidth and FullHeight are the sensor's full-frame dimensions
// (invariant).
const (
	FullWidth = 640
	FullHeight = 512
)

// NewSimulated returns a simulator with a default star at the center of
// the full frame.
func NewSimulated() *Simulated {
	return &Simulated{
		StarX: FullWidth / 2, StarY: FullHeight / 2,
		Amplitude: 20000, Width: 2.5, Background: 500,
		roi: ROI{0, 0, FullWidth, FullHeight},
	}
}

// OpenChannel marks the simulated channel open.
func (s *Simulated) OpenChannel() error {
	s.open = true
	return nil
}

// CloseChannel marks the simulated channel closed.
func (s *Simulated) CloseChannel() error {
	s.open = false
	return nil
}

// SetROI records the requested readout window.
func (s *Simulated) SetROI(r ROI) error {
	if r.W <= 1 || r.H <= 1 {
		return errors.New("camdriver: rejected image size <= 1")
	}
	s.roi = r
	return nil
}

// EnableROI toggles between the configured ROI and the full frame.
func (s *Simulated) EnableROI(on bool) error {
	s.roiOn = on
	return nil
}

// Size reports the active readout dimensions.
func (s *Simulated) Size() (int, int, error) {
	if s.roiOn {
		return s.roi.W, s.roi.H, nil
	}
	return FullWidth, FullHeight, nil
}

// AllocateBuffers records the requested buffer count; simulation does not
// actually allocate DMA memory.
func (s *Simulated) AllocateBuffers(n int) error {
	s.bufN = n
	return nil
}

// SetTimeout records the wait_image timeout.
func (s *Simulated) SetTimeout(d time.Duration) error {
	s.timeout = d
	return nil
}

// StartImage is a no-op; WaitImage synthesizes the frame directly.
func (s *Simulated) StartImage() error {
	if !s.open {
		return errors.New("camdriver: channel not open")
	}
	return nil
}

// WaitImage renders the current readout window with a synthetic Gaussian
// star at (StarX, StarY) in full-frame coordinates.
func (s *Simulated) WaitImage() ([]uint16, error) {
	w, h, err := s.Size()
	if err != nil {
		return nil, err
	}
	originX, originY := 0, 0
	if s.roiOn {
		originX, originY = s.roi.X0, s.roi.Y0
	}
	out := make([]uint16, w*h)
	c := 0.180337
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			fx := float64(originX+col) - s.StarX
			fy := float64(originY+row) - s.StarY
			v := s.Amplitude*math.Exp(-0.5*(fx*fx/(s.Width*s.Width*c)+fy*fy/(s.Width*s.Width*c))) + float64(s.Background)
			if v < 0 {
				v = 0
			}
			out[row*w+col] = uint16(v)
		}
	}
	return out, nil
}

// TimeoutCount returns the simulated timeout counter, which never
// increments since WaitImage always succeeds.
func (s *Simulated) TimeoutCount() int {
	return s.timeouts
}
