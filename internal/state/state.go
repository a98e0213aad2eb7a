// Package state holds the single process-wide server record:
// camera parameters, mode flags, guide/save bookkeeping, and the loop
// health counters. It is mutated by the command dispatcher and read by
// the frame loop; both run on the same thread between frames, so the
// record carries no internal locking of its own.
package state

import (
	"time"

	"github.com/chyan26/raptorServ/internal/config"
)

// GuideSize is the fixed ROI edge length used while guiding.
const GuideSize = 32

// FullWidth and FullHeight are the sensor dimensions outside a guide
// session.
const (
	FullWidth = 640
	FullHeight = 512
)

// Health holds the loop counters surfaced read-only to the Status
// Introspection Server.
type Health struct {
	FramesServed uint64
	TimeoutCount uint64
	ISUDispatchCount uint64
	LastFrameDuration time.Duration
}

// ServerState is the process-wide record shared between the command
// dispatcher and the frame loop. Opaque camera/serial handles are owned
// by the frame loop directly and are not modeled here; this type
// carries only the data the command dispatcher and the image header
// builder need.
type ServerState struct {
	FrameRate float64
	ExposureTimeMs float64
	TECSetpointC float64
	TempC float64

	ImageWidth int
	ImageHeight int
	WinX0 int
	WinY0 int

	GuideX0 int
	GuideY0 int
	NullX float64
	NullY float64

	VideoOn bool
	GuideOn bool
	ISUOn bool
	ExpOn bool

	ISUMradXDeltaSetup float64
	ISUMradYDeltaSetup float64
	ISUMradXStatus float64
	ISUMradYStatus float64

	GuideXOff float64
	GuideYOff float64

	FWHMX float64
	FWHMY float64

	FrameSequence int
	FrameSaveCount int
	FITSComment string
	Filename string
	RA string
	Dec string
	Equinox float64
	ObjMag float64

	FirstDoneFlag bool

	Health Health
}

// New builds the initial state from the mandatory guide configuration;
// the guide raster origin and null pixel are seeded from config and
// otherwise mutable by the operator via NULL/ROI commands.
func New(cfg config.GuideConfig) *ServerState {
	return &ServerState{
		ImageWidth: FullWidth,
		ImageHeight: FullHeight,
		GuideX0: cfg.GuideRasterX0,
		GuideY0: cfg.GuideRasterY0,
		NullX: cfg.HoleNullX,
		NullY: cfg.HoleNullY,
	}
}

// Snapshot returns a copy of the state, safe to hand to a goroutine
// that must not observe further mutation (the Status
// Introspection Server reads only through a published snapshot).
func (s *ServerState) Snapshot() ServerState {
	return *s
}
