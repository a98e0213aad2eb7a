// Package camdriver describes the narrow frame-grabber contract the frame
// loop drives ("out of scope: the low-level camera/frame-grabber
// library"). Grain is the camera/ROI operations the loop issues on rising
// and falling edges of video_on and guide_on; Grabber is the per-frame
// acquisition path.
package camdriver

import "time"

// ROI is a rectangular region of interest on the sensor.
type ROI struct {
	X0, Y0 int
	W, H int
}

// Grain is the channel-lifecycle and configuration half of the
// frame-grabber contract: opened lazily on the first rising edge of
// video_on, and reconfigured whenever the ROI changes.
type Grain interface {
	// OpenChannel opens the frame-grabber channel, allocating driver-level
	// resources. Safe to call once the channel is already open.
	OpenChannel() error

	// CloseChannel releases the channel.
	CloseChannel() error

	// SetROI configures the sensor readout window.
	SetROI(r ROI) error

	// EnableROI turns the configured ROI on or off; off reverts to the
	// full sensor frame.
	EnableROI(on bool) error

	// Size reports the current readout width and height in pixels,
	// reflecting whatever ROI state is active.
	Size() (width, height int, err error)

	// AllocateBuffers allocates n DMA buffers for frame delivery (the
	// frame loop allocates 4 on channel open).
	AllocateBuffers(n int) error

	// SetTimeout sets the blocking wait_image timeout; zero means wait
	// forever (image acquisition uses the camera's blocking
	// wait, no timeout, by default).
	SetTimeout(d time.Duration) error
}

// Grabber is the per-frame acquisition path.
type Grabber interface {
	// StartImage begins an exposure/readout.
	StartImage() error

	// WaitImage blocks until the started image is ready and returns its
	// raw 16-bit pixel data, row-major, sized to the current Grain.Size().
	WaitImage() ([]uint16, error)

	// TimeoutCount reports the cumulative number of wait_image timeouts
	// observed so far, polled and logged but never acted on.
	TimeoutCount() int
}

// Camera is the full frame-grabber capability the frame loop is handed; it
// composes Grain and Grabber so a single collaborator value satisfies
// both halves of the contract.
type Camera interface {
	Grain
	Grabber
}
