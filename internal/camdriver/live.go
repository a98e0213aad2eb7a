package camdriver

import (
	"errors"
	"time"
)

// SDK is the low-level frame-grabber/camera library contract treated as
// an external collaborator: open channel, set ROI, enable ROI, read
// width/height, start image, wait image, multibuf, timeouts. A vendor
// SDK binding implements this; Live adapts it to the Camera interface
// the frame loop drives.
type SDK interface {
	OpenChannel() error
	CloseChannel() error
	SetROI(x0, y0, w, h int) error
	EnableROI(on bool) error
	Width() (int, error)
	Height() (int, error)
	AllocateMultibuf(n int) error
	SetTimeout(d time.Duration) error
	StartImage() error
	WaitImage() ([]uint16, error)
}

// Live adapts an SDK collaborator to the Camera interface, tracking the
// timeout counter the frame loop polls but never acts on.
type Live struct {
	sdk SDK
	timeouts int
}

// NewLive wraps sdk as a Camera.
func NewLive(sdk SDK) *Live {
	return &Live{sdk: sdk}
}

func (l *Live) OpenChannel() error  { return l.sdk.OpenChannel() }
func (l *Live) CloseChannel() error { return l.sdk.CloseChannel() }

func (l *Live) SetROI(r ROI) error {
	if r.W <= 1 || r.H <= 1 {
		return errors.New("camdriver: rejected image size <= 1")
	}
	return l.sdk.SetROI(r.X0, r.Y0, r.W, r.H)
}

func (l *Live) EnableROI(on bool) error { return l.sdk.EnableROI(on) }

func (l *Live) Size() (width, height int, err error) {
	width, err = l.sdk.Width()
	if err != nil {
		return 0, 0, err
	}
	height, err = l.sdk.Height()
	if err != nil {
		return 0, 0, err
	}
	return width, height, nil
}

func (l *Live) AllocateBuffers(n int) error      { return l.sdk.AllocateMultibuf(n) }
func (l *Live) SetTimeout(d time.Duration) error { return l.sdk.SetTimeout(d) }
func (l *Live) StartImage() error                { return l.sdk.StartImage() }

func (l *Live) WaitImage() ([]uint16, error) {
	pix, err := l.sdk.WaitImage()
	if err != nil {
		if errors.Is(err, ErrTimeout) {
			l.timeouts++
			return nil, err
		}
		return nil, err
	}
	return pix, nil
}

func (l *Live) TimeoutCount() int { return l.timeouts }

// ErrTimeout is returned by an SDK's WaitImage when the blocking wait
// expires; Live counts these without aborting.
var ErrTimeout = errors.New("camdriver: wait_image timeout")
