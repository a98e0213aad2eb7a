// Package frameloop is the real-time owner of the camera handle: per
// iteration it polls the command server, drives the acquisition state
// machine across the video_on/guide_on edges, runs the centroid and
// geometry stages while guiding, dispatches the ISU move on a detached
// worker, and serializes the frame to the output stream. It is the only
// component that calls StartImage/WaitImage.
package frameloop

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/chyan26/raptorServ/internal/camdriver"
	"github.com/chyan26/raptorServ/internal/centroid"
	"github.com/chyan26/raptorServ/internal/command"
	"github.com/chyan26/raptorServ/internal/config"
	"github.com/chyan26/raptorServ/internal/fitsout"
	"github.com/chyan26/raptorServ/internal/geometry"
	"github.com/chyan26/raptorServ/internal/isu"
	"github.com/chyan26/raptorServ/internal/loglib"
	"github.com/chyan26/raptorServ/internal/state"
	"github.com/chyan26/raptorServ/internal/status"
)

// dmaBufferCount is the number of acquisition buffers allocated on the
// rising edge of video_on.
const dmaBufferCount = 4

// DefaultPollInterval is how long PollOnce blocks for an incoming
// operator line before the loop continues.
const DefaultPollInterval = 10 * time.Millisecond

// Loop ties the camera, ISU, command dispatcher, and output stream
// together into the frame acquisition state machine. It is not safe for
// concurrent use; only Run's own goroutine touches it apart from the
// detached ISU-dispatch workers, which only ever receive copies of the
// values they need.
type Loop struct {
	State      *state.ServerState
	Camera     camdriver.Camera
	ISU        isu.Capability
	CmdServer  *command.Server
	Dispatcher *command.Dispatcher
	Status     *status.Server
	// Caps is read each iteration for DebugTiming. It is a plain copy,
	// so a DebugTiming change that config.DeploymentConfig reloads after
	// the Loop is built does not reach it.
	Caps       config.Capabilities
	Out        io.Writer

	PollInterval time.Duration

	videoWasOn bool
	guideWasOn bool
}

// Run drives the loop until the dispatcher observes SHUTDOWN or ctx is
// canceled, whichever comes first.
func (l *Loop) Run(ctx context.Context) error {
	if l.PollInterval == 0 {
		l.PollInterval = DefaultPollInterval
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		done, err := l.RunOnce()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// RunOnce runs a single iteration of the state machine. done is true once
// the dispatcher has observed SHUTDOWN; the caller should stop calling
// RunOnce at that point.
func (l *Loop) RunOnce() (done bool, err error) {
	start := time.Now()
	var stage stageTimes

	t := time.Now()
	l.CmdServer.PollOnce(l.PollInterval)
	stage.poll = time.Since(t)

	if l.Dispatcher.Done() {
		return true, nil
	}

	snap := l.State.Snapshot()
	if l.Status != nil {
		l.Status.Publish(snap)
	}

	videoOn := l.State.VideoOn
	if videoOn && !l.videoWasOn {
		if err := l.onVideoRisingEdge(); err != nil {
			loglib.Warnf("frameloop: video enable failed, will retry: %v", err)
			l.State.VideoOn = false
			videoOn = false
		}
	}
	l.videoWasOn = videoOn

	guideOn := l.State.GuideOn
	if guideOn != l.guideWasOn {
		if err := l.applyGuideROI(guideOn); err != nil {
			loglib.Warnf("frameloop: guide ROI apply failed: %v", err)
			l.State.GuideOn = false
			guideOn = false
		}
	}
	l.guideWasOn = guideOn

	if !videoOn {
		return false, nil
	}

	t = time.Now()
	if err := l.Camera.StartImage(); err != nil {
		loglib.Warnf("frameloop: start_image failed, dropping video_on: %v", err)
		l.State.VideoOn = false
		l.videoWasOn = false
		return false, nil
	}
	pix, werr := l.Camera.WaitImage()
	if werr != nil {
		if errors.Is(werr, camdriver.ErrTimeout) {
			l.State.Health.TimeoutCount++
			loglib.Warnf("frameloop: wait_image timeout (count=%d)", l.State.Health.TimeoutCount)
			return false, nil
		}
		loglib.Warnf("frameloop: wait_image failed, dropping video_on: %v", werr)
		l.State.VideoOn = false
		l.videoWasOn = false
		return false, nil
	}
	stage.acquire = time.Since(t)

	width, height, err := l.Camera.Size()
	if err != nil {
		loglib.Warnf("frameloop: size read failed: %v", err)
		return false, nil
	}

	if guideOn {
		t = time.Now()
		l.runGuideStages(centroid.Subraster{Pix: pix, W: width, H: height})
		stage.centroid = time.Since(t)
	}

	t = time.Now()
	l.dispatchISU(guideOn)
	stage.dispatch = time.Since(t)

	t = time.Now()
	l.writeFrame(pix, width, height)
	stage.serialize = time.Since(t)

	l.State.Health.FramesServed++
	l.State.Health.LastFrameDuration = time.Since(start)

	if l.Caps.DebugTiming {
		loglib.Debugf(true, "frameloop: poll=%v acquire=%v centroid=%v dispatch=%v serialize=%v total=%v",
			stage.poll, stage.acquire, stage.centroid, stage.dispatch, stage.serialize, l.State.Health.LastFrameDuration)
	}

	return false, nil
}

// stageTimes holds one iteration's per-stage durations; centroid covers
// both the centroid fit and the geometry transform.
type stageTimes struct {
	poll, acquire, centroid, dispatch, serialize time.Duration
}

func (l *Loop) onVideoRisingEdge() error {
	if err := l.Camera.OpenChannel(); err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	w, h, err := l.Camera.Size()
	if err != nil {
		return fmt.Errorf("read size: %w", err)
	}
	if w <= 1 || h <= 1 {
		return fmt.Errorf("rejected image size %dx%d", w, h)
	}
	if err := l.Camera.AllocateBuffers(dmaBufferCount); err != nil {
		return fmt.Errorf("allocate buffers: %w", err)
	}
	if err := l.Camera.SetTimeout(0); err != nil {
		return fmt.Errorf("set timeout: %w", err)
	}
	l.State.ImageWidth, l.State.ImageHeight = w, h
	return nil
}

// applyGuideROI pushes the guide_on transition onto the camera: enabling
// sets the 32x32 window at the configured origin, disabling reverts to
// the full frame. The camera handle is owned exclusively by the loop, so
// this is the only place the ROI invariant of the server state is
// actually enforced on hardware.
func (l *Loop) applyGuideROI(on bool) error {
	if on {
		roi := camdriver.ROI{X0: l.State.GuideX0, Y0: l.State.GuideY0, W: state.GuideSize, H: state.GuideSize}
		if err := l.Camera.SetROI(roi); err != nil {
			return err
		}
	}
	if err := l.Camera.EnableROI(on); err != nil {
		return err
	}
	w, h, err := l.Camera.Size()
	if err != nil {
		return err
	}
	l.State.ImageWidth, l.State.ImageHeight = w, h
	if on {
		l.State.WinX0, l.State.WinY0 = l.State.GuideX0, l.State.GuideY0
	} else {
		l.State.WinX0, l.State.WinY0 = 0, 0
	}
	return nil
}

// runGuideStages runs the centroid entry points and the geometry
// transform for one guiding frame, updating the server state in place.
// On the first frame of a guide session it additionally runs the FWHM
// entry point and checks the ISU fault flags, per the one-shot
// first_done_flag latch.
func (l *Loop) runGuideStages(sub centroid.Subraster) {
	if !l.State.FirstDoneFlag {
		seedX, seedY := centroid.Seed(sub)
		fwhm := centroid.Refine(sub, seedX, seedY, centroid.ModeFWHM)
		l.State.FWHMX, l.State.FWHMY = fwhm.FWHMX, fwhm.FWHMY
		if l.ISU != nil {
			xFault, yFault, err := l.ISU.CheckFault()
			if err != nil {
				loglib.FatalErr("frameloop: ISU fault check", err)
			}
			if xFault || yFault {
				loglib.Fatalf("frameloop: ISU fault detected at guide start (x=%v y=%v)", xFault, yFault)
			}
		}
		l.State.FirstDoneFlag = true
	}

	seedX, seedY := centroid.Seed(sub)
	res := centroid.Refine(sub, seedX, seedY, centroid.ModeCentroid)

	if l.ISU == nil {
		return
	}
	transform := geometry.Transform{ISU: l.ISU}
	off, err := transform.Compute(res.X, res.Y, float64(l.State.GuideX0), float64(l.State.GuideY0), l.State.NullX, l.State.NullY)
	if err != nil {
		loglib.Warnf("frameloop: geometry transform failed: %v", err)
		return
	}
	l.State.GuideXOff, l.State.GuideYOff = off.XOffArcsec, off.YOffArcsec
	l.State.ISUMradXDeltaSetup, l.State.ISUMradYDeltaSetup = off.DeltaXMrad, off.DeltaYMrad
	l.State.ISUMradXStatus, l.State.ISUMradYStatus = off.LastXMrad, off.LastYMrad
}

// dispatchISU fires the analog-slope move on a detached worker when
// guiding with the ISU enabled. The worker receives value copies of the
// rate and target; it never touches the server state. The main loop does
// not wait for it to complete: per the ordering guarantee, the move
// commanded for frame N is observable no earlier than frame N+1.
func (l *Loop) dispatchISU(guideOn bool) {
	if !guideOn || !l.State.ISUOn || l.ISU == nil {
		return
	}
	rateHz := l.State.FrameRate
	targetX, targetY := l.State.ISUMradXStatus-l.State.ISUMradXDeltaSetup, l.State.ISUMradYStatus-l.State.ISUMradYDeltaSetup
	isuCap := l.ISU
	l.State.Health.ISUDispatchCount++
	go func() {
		_ = isuCap.SetupSlope(rateHz, targetX, targetY)
	}()
}

// writeFrame serializes one acquired frame to Out, applying the SAVE
// sequence's ETYPE/IMGINFO/SEQNUM tagging and resetting the save state
// once frame_sequence reaches frame_save_count.
func (l *Loop) writeFrame(pix []uint16, width, height int) {
	etype, imgInfo, seqNum := "ACQUIRE", "", 0
	if l.State.FrameSaveCount > 0 {
		l.State.FrameSequence++
		etype, imgInfo, seqNum = "GUIDE", l.State.FITSComment, l.State.FrameSequence
		if l.State.FrameSequence >= l.State.FrameSaveCount {
			l.State.FrameSaveCount = 0
			l.State.FrameSequence = 0
			l.State.FITSComment = ""
		}
	}

	hdr := l.buildHeader(width, height, etype, imgInfo, seqNum)
	if err := fitsout.Write(l.Out, hdr, pix, width, height); err != nil {
		loglib.Warnf("frameloop: dropping frame, write failed: %v", err)
	}
}

func (l *Loop) buildHeader(width, height int, etype, imgInfo string, seqNum int) fitsout.Header {
	st := l.State
	return fitsout.Header{
		Time:           time.Now(),
		ExposureTimeMs: st.ExposureTimeMs,
		ETYPE:          etype,
		ImgInfo:        imgInfo,
		FrameRateHz:    st.FrameRate,
		TempSetpointC:  st.TECSetpointC,
		SeqNum:         seqNum,

		WinX0: st.WinX0, WinY0: st.WinY0,
		WinX1: st.WinX0 + width - 1, WinY1: st.WinY0 + height - 1,
		GuideX0: st.GuideX0, GuideY0: st.GuideY0,
		NullX: st.NullX, NullY: st.NullY,

		Guiding:   st.GuideOn,
		GuideXOff: st.GuideXOff, GuideYOff: st.GuideYOff,

		ISUOn:      st.ISUOn,
		SetupMradX: st.ISUMradXDeltaSetup, SetupMradY: st.ISUMradYDeltaSetup,
		ReadMradX: st.ISUMradXStatus, ReadMradY: st.ISUMradYStatus,

		Filename: st.Filename,

		ExpOn: st.ExpOn,
		RA:    st.RA, Dec: st.Dec,
		Equinox: st.Equinox, ObjMag: st.ObjMag,
	}
}
