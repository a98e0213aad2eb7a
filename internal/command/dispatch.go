package command

import (
	"fmt"
	"strings"
	"sync"

	"github.com/mitchellh/mapstructure"

	"github.com/chyan26/raptorServ/internal/config"
	"github.com/chyan26/raptorServ/internal/isu"
	"github.com/chyan26/raptorServ/internal/state"
)

// NullString and NullFloat are the sentinels written to RA/DEC/EQUINOX/
// OBJMAG when no exposure is active or the telemetry fallback has
// nothing to report ("null sentinels unless exp_on").
const (
	NullString = ""
	NullFloat = -999.0
)

var frameRateLimit = struct{ Min, Max float64 }{Min: 0, Max: 120}

const userTimeoutMs = 20000

// CameraCodec is the narrow subset of the camera serial codec the
// dispatcher drives directly (FRAMERATE/EXPTIME/TEC/TEMP are
// camera register commands, answered synchronously, independent of the
// frame-grabber image channel the frame loop owns).
type CameraCodec interface {
	SetFrameRate(hz float64) error
	GetFrameRate() (float64, error)
	SetExposureTime(ms float64) error
	GetExposureTime() (float64, error)
	SetTECSetpoint(c float64) error
	GetTECSetpoint() (float64, error)
	ReadTemperature() (float64, error)
}

// Telemetry is consulted for RA/DEC/EQUINOX when STARTEXP omits them
// . A nil Telemetry is treated the same as one that
// always errors: the fields fall back to their null sentinels.
type Telemetry interface {
	CurrentRA() (string, error)
	CurrentDEC() (string, error)
	CurrentEQ() (float64, error)
}

// startExpFields mirrors the STARTEXP kv grammar for mapstructure
// decoding (unknown keys are rejected at the grammar
// level in Parse; this struct only ever sees known keys).
type startExpFields struct {
	Filename string `mapstructure:"FILENAME"`
	RA string `mapstructure:"RA"`
	DEC string `mapstructure:"DEC"`
	Equinox float64 `mapstructure:"EQUINOX"`
	ObjMag float64 `mapstructure:"OBJMAG"`
}

// Dispatcher mutates ServerState in response to parsed commands. Dispatch
// and Done serialize on an internal mutex, but the ServerState it mutates
// is not guarded: the command server hands it commands one at a time from
// the frame loop's single poll step.
type Dispatcher struct {
	mu sync.Mutex
	State *state.ServerState
	Codec CameraCodec
	ISU isu.Capability
	Caps config.Capabilities
	Tel Telemetry

	done bool
}

// NewDispatcher builds a Dispatcher over the given collaborators. Tel
// may be nil (telemetry absent per deployment).
func NewDispatcher(st *state.ServerState, codec CameraCodec, isuCap isu.Capability, caps config.Capabilities, tel Telemetry) *Dispatcher {
	return &Dispatcher{State: st, Codec: codec, ISU: isuCap, Caps: caps, Tel: tel}
}

// Done reports whether SHUTDOWN has been received.
func (d *Dispatcher) Done() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.done
}

// Dispatch parses and executes one operator line, returning the single
// reply line (leading '.' for pass, '!' for fail) and whether
// the connection that sent it should be closed.
func (d *Dispatcher) Dispatch(line string) (reply string, closeConn bool) {
	cmd, err := Parse(line)
	if err != nil {
		return fail(firstToken(line), err.Error()), false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	switch cmd.Verb {
	case VerbDisconnect:
		return "", true
	case VerbShutdown:
		d.done = true
		return pass("SHUTDOWN", ""), false
	case VerbEndExp:
		d.State.ExpOn = false
		return pass("ENDEXP", ""), false
	case VerbStartExp:
		return d.startExp(cmd), false
	case VerbFrameRate:
		return d.frameRate(cmd), false
	case VerbExpTime:
		return d.expTime(cmd), false
	case VerbTEC:
		return d.tec(cmd), false
	case VerbTemp:
		return d.temp(), false
	case VerbROI:
		return d.roi(cmd), false
	case VerbNull:
		return d.null(cmd), false
	case VerbVideo:
		return d.video(cmd), false
	case VerbGuide:
		return d.guide(cmd), false
	case VerbISU:
		return d.isuCmd(cmd), false
	case VerbSave:
		return d.save(cmd), false
	default:
		return fail(string(cmd.RawVerb), "unrecognized command"), false
	}
}

func firstToken(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "CMD"
	}
	return strings.ToUpper(fields[0])
}

func pass(verb, value string) string {
	if value == "" {
		return ". " + verb
	}
	return fmt.Sprintf(". %s %s", verb, value)
}

func fail(verb, msg string) string {
	return fmt.Sprintf("! %s %q", verb, msg)
}

func (d *Dispatcher) startExp(cmd Command) string {
	if cmd.KV["FILENAME"] == "" {
		return fail("STARTEXP", "FILENAME required")
	}
	var fields startExpFields
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{WeaklyTypedInput: true, Result: &fields})
	if err != nil {
		return fail("STARTEXP", err.Error())
	}
	kv := make(map[string]interface{}, len(cmd.KV))
	for k, v := range cmd.KV {
		kv[k] = v
	}
	if err := dec.Decode(kv); err != nil {
		return fail("STARTEXP", err.Error())
	}

	ra, dec2 := fields.RA, fields.DEC
	equinox := NullFloat
	if _, ok := cmd.KV["EQUINOX"]; ok {
		equinox = fields.Equinox
	}
	// OBJMAG assigns to ObjMag, not Equinox: a known copy/paste confusion
	// in the field this protocol was modeled on.
	objmag := NullFloat
	if _, ok := cmd.KV["OBJMAG"]; ok {
		objmag = fields.ObjMag
	}

	if ra == "" {
		ra = d.telemetryRA()
	}
	if dec2 == "" {
		dec2 = d.telemetryDEC()
	}
	if _, ok := cmd.KV["EQUINOX"]; !ok {
		equinox = d.telemetryEQ()
	}

	d.State.Filename = fields.Filename
	d.State.RA = ra
	d.State.Dec = dec2
	d.State.Equinox = equinox
	d.State.ObjMag = objmag
	d.State.ExpOn = true
	return pass("STARTEXP", "")
}

func (d *Dispatcher) telemetryRA() string {
	if d.Tel == nil {
		return NullString
	}
	v, err := d.Tel.CurrentRA()
	if err != nil {
		return NullString
	}
	return v
}

func (d *Dispatcher) telemetryDEC() string {
	if d.Tel == nil {
		return NullString
	}
	v, err := d.Tel.CurrentDEC()
	if err != nil {
		return NullString
	}
	return v
}

func (d *Dispatcher) telemetryEQ() float64 {
	if d.Tel == nil {
		return NullFloat
	}
	v, err := d.Tel.CurrentEQ()
	if err != nil {
		return NullFloat
	}
	return v
}

func (d *Dispatcher) frameRate(cmd Command) string {
	if cmd.Number == nil {
		v, err := d.Codec.GetFrameRate()
		if err != nil {
			return fail("FRAMERATE", err.Error())
		}
		d.State.FrameRate = v
		return pass("FRAMERATE", fmt.Sprintf("%.2f", v))
	}
	r := *cmd.Number
	if r <= frameRateLimit.Min || r > frameRateLimit.Max || 1000/r > userTimeoutMs {
		return fail("FRAMERATE", "Frame Rate Specified is Invalid")
	}
	if err := d.Codec.SetFrameRate(r); err != nil {
		return fail("FRAMERATE", err.Error())
	}
	d.State.FrameRate = r
	return pass("FRAMERATE", fmt.Sprintf("%.2f", r))
}

func (d *Dispatcher) expTime(cmd Command) string {
	if cmd.Number == nil {
		v, err := d.Codec.GetExposureTime()
		if err != nil {
			return fail("EXPTIME", err.Error())
		}
		d.State.ExposureTimeMs = v
		return pass("EXPTIME", fmt.Sprintf("%.3f", v))
	}
	ms := *cmd.Number
	if ms <= 0 {
		return fail("EXPTIME", "Exposure Time Specified is Invalid")
	}
	if err := d.Codec.SetExposureTime(ms); err != nil {
		return fail("EXPTIME", err.Error())
	}
	d.State.ExposureTimeMs = ms
	return pass("EXPTIME", fmt.Sprintf("%.3f", ms))
}

func (d *Dispatcher) tec(cmd Command) string {
	if cmd.Number == nil {
		v, err := d.Codec.GetTECSetpoint()
		if err != nil {
			return fail("TEC", err.Error())
		}
		d.State.TECSetpointC = v
		return pass("TEC", fmt.Sprintf("%.1f", v))
	}
	c := *cmd.Number
	if err := d.Codec.SetTECSetpoint(c); err != nil {
		return fail("TEC", err.Error())
	}
	d.State.TECSetpointC = c
	return pass("TEC", fmt.Sprintf("%.1f", c))
}

func (d *Dispatcher) temp() string {
	v, err := d.Codec.ReadTemperature()
	if err != nil {
		return fail("TEMP", err.Error())
	}
	d.State.TempC = v
	return pass("TEMP", fmt.Sprintf("%.1f", v))
}

func (d *Dispatcher) roi(cmd Command) string {
	if len(cmd.Ints) == 0 {
		return pass("ROI", fmt.Sprintf("%d %d", d.State.GuideX0, d.State.GuideY0))
	}
	x, y := cmd.Ints[0], cmd.Ints[1]
	if !config.GuideRasterXLimit.Check(float64(x)) || !config.GuideRasterYLimit.Check(float64(y)) {
		return fail("ROI", "ROI Origin Specified is Invalid")
	}
	d.State.GuideX0, d.State.GuideY0 = x, y
	return pass("ROI", fmt.Sprintf("%d %d", x, y))
}

func (d *Dispatcher) null(cmd Command) string {
	if len(cmd.Floats) == 0 {
		return pass("NULL", fmt.Sprintf("%.1f %.1f", d.State.NullX, d.State.NullY))
	}
	x, y := cmd.Floats[0], cmd.Floats[1]
	if !config.NullXLimit.Check(x) || !config.NullYLimit.Check(y) {
		return fail("NULL", "Null Pixel Specified is Invalid")
	}
	d.State.NullX, d.State.NullY = x, y
	return pass("NULL", fmt.Sprintf("%.1f %.1f", x, y))
}

func (d *Dispatcher) video(cmd Command) string {
	if cmd.OnOff == "OFF" {
		d.State.VideoOn = false
		d.State.GuideOn = false
		d.State.FirstDoneFlag = false
		d.State.ImageWidth, d.State.ImageHeight = state.FullWidth, state.FullHeight
		d.State.WinX0, d.State.WinY0 = 0, 0
		return pass("VIDEO", "OFF")
	}
	d.State.VideoOn = true
	return pass("VIDEO", "ON")
}

func (d *Dispatcher) guide(cmd Command) string {
	if cmd.OnOff == "ON" {
		if !d.State.VideoOn {
			return fail("GUIDE", "video must be on")
		}
		d.State.GuideOn = true
		d.State.ImageWidth, d.State.ImageHeight = state.GuideSize, state.GuideSize
		d.State.WinX0, d.State.WinY0 = d.State.GuideX0, d.State.GuideY0
		d.State.FirstDoneFlag = false
		return pass("GUIDE", "ON")
	}
	d.State.GuideOn = false
	d.State.FirstDoneFlag = false
	d.State.ImageWidth, d.State.ImageHeight = state.FullWidth, state.FullHeight
	d.State.WinX0, d.State.WinY0 = 0, 0
	return pass("GUIDE", "OFF")
}

func (d *Dispatcher) isuCmd(cmd Command) string {
	if d.ISU == nil {
		return fail("ISU", "ISU not present in this deployment")
	}
	if cmd.OnOff == "OFF" {
		if err := d.ISU.Stop(); err != nil {
			return fail("ISU", err.Error())
		}
		d.State.ISUOn = false
		return pass("ISU", "OFF")
	}
	homed, err := d.ISU.CheckHomed()
	if err != nil {
		return fail("ISU", err.Error())
	}
	if !homed {
		isuCap := d.ISU
		go func() {
			// Detached homing worker: does not touch ServerState,
			// matching the no-shared-access rule for worker threads.
			// Operators re-issue ISU ON once homing completes.
			_ = isuCap.Home()
		}()
		return pass("ISU", "ON")
	}
	if err := d.ISU.Enable(); err != nil {
		return fail("ISU", err.Error())
	}
	d.State.ISUOn = true
	return pass("ISU", "ON")
}

func (d *Dispatcher) save(cmd Command) string {
	n := cmd.Ints[0]
	if n < 0 || n > 1_000_000 {
		return fail("SAVE", "Save Count Specified is Invalid")
	}
	d.State.FrameSaveCount = n
	d.State.FITSComment = strings.TrimSpace(cmd.Str)
	d.State.FrameSequence = 0
	return pass("SAVE", "")
}
