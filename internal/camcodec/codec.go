package camcodec

import (
	"fmt"

	"github.com/chyan26/raptorServ/internal/util"
)

// tecResolutionC is the instrument's reported TEC/temperature resolution:
// the DAC/ADC conversion is more precise than this, but the vendor
// documentation only guarantees readings to the nearest hundredth of a
// degree, so readback is quantized to it.
const tecResolutionC = 0.01

// Register addresses from the vendor command table.
const (
	regNUC byte = 0xF9
	regAutoLevel byte = 0x23
	regTECEnable byte = 0x00
	regGainMode byte = 0xF2
	regExposureBase byte = 0xEE // EE..F1, MSB first
	regFrameRtBase byte = 0xDD // DD..E0, MSB first
	regTECSetpt0 byte = 0xFB
	regTECSetpt1 byte = 0xFA
	regTemp0 byte = 0x6E
	regTemp1 byte = 0x6F
	regDigGain0 byte = 0xC6
	regDigGain1 byte = 0xC7
)

// pixelClockHz is the 40 MHz pixel clock used to convert exposure time
// to register counts.
const pixelClockHz = 40_000_000.0

// frameRateConst is the constant used in both directions of the frame
// rate <-> register count conversion.
const frameRateConst = 4e9

// GainMode selects the camera's analog gain mode.
type GainMode int

const (
	// GainLow is the low analog gain mode.
	GainLow GainMode = iota
	// GainHigh is the high analog gain mode.
	GainHigh
)

// Calibration holds the manufacturing-block-derived linear calibration
// for the TEC setpoint and temperature read-back, each a line through
// (0C, count@0) and (40C, count@40).
type Calibration struct {
	ADCAt0, ADCAt40 float64
	DACAt0, DACAt40 float64
}

// adcToTemp converts a raw ADC count, as read by ReadTemperature, to a
// temperature in Celsius, via linear interpolation between the
// manufacturing calibration points.
func (c Calibration) adcToTemp(adc float64) float64 {
	return linterp(adc, c.ADCAt0, 0, c.ADCAt40, 40)
}

func (c Calibration) tempToDAC(tempC float64) float64 {
	return linterp(tempC, 0, c.DACAt0, 40, c.DACAt40)
}

func (c Calibration) dacToTemp(dac float64) float64 {
	return linterp(dac, c.DACAt0, 0, c.DACAt40, 40)
}

// linterp linearly interpolates/extrapolates the value at x given two
// known points (x0,y0) and (x1,y1).
func linterp(x, x0, y0, x1, y1 float64) float64 {
	if x1 == x0 {
		return y0
	}
	return y0 + (x-x0)*(y1-y0)/(x1-x0)
}

// Codec turns the high level getters/setters used by the frame loop and
// command dispatcher into the vendor's framed hex-byte commands, and
// parses the echoed replies. It is stateless apart from the calibration
// cached from the manufacturing block, and safe to reuse across frames;
// it is not safe for concurrent use since the command dispatcher, run
// from the frame loop's poll step, is its only caller.
type Codec struct {
	t Transport
	cal Calibration
	calOK bool
}

// New returns a Codec bound to the given transport.
func New(t Transport) *Codec {
	return &Codec{t: t}
}

// CheckStatus queries the camera's status register and acknowledges it,
// succeeding iff the device answers the literal handshake pair "50 4c".
func (c *Codec) CheckStatus() error {
	if _, err := readReg(c.t, getStatus); err != nil {
		return fmt.Errorf("camcodec: get-status: %w", err)
	}
	frame := encodeFrame(setStatOK0, setStatOK1)
	frame = append(frame, '\n')
	if _, err := c.t.Write(frame); err != nil {
		return fmt.Errorf("camcodec: set-status write: %w", err)
	}
	b0, err := c.t.ReadToken()
	if err != nil {
		return fmt.Errorf("camcodec: set-status reply: %w", err)
	}
	b1, err := c.t.ReadToken()
	if err != nil {
		return fmt.Errorf("camcodec: set-status reply: %w", err)
	}
	if b0 != setStatOK0 || b1 != setStatOK1 {
		return fmt.Errorf("camcodec: set-status reply %02x %02x, want %02x %02x", b0, b1, setStatOK0, setStatOK1)
	}
	return nil
}

// SetNUC turns non-uniform correction off. Turn-on is not supported by
// the vendor.
func (c *Codec) SetNUC(on bool) error {
	if on {
		return fmt.Errorf("camcodec: NUC turn-on is not supported")
	}
	return writeReg(c.t, regNUC, 0x01)
}

// SetAutoLevel turns auto-level off. Turn-on is not supported.
func (c *Codec) SetAutoLevel(on bool) error {
	if on {
		return fmt.Errorf("camcodec: auto-level turn-on is not supported")
	}
	return writeReg(c.t, regAutoLevel, 0x00)
}

// EnableTEC enables the thermoelectric cooler.
func (c *Codec) EnableTEC() error {
	return writeReg(c.t, regTECEnable, 0x81)
}

// SetGainMode sets the analog gain mode.
func (c *Codec) SetGainMode(g GainMode) error {
	val := byte(0x00)
	if g == GainHigh {
		val = 0x06
	}
	return writeReg(c.t, regGainMode, val)
}

// GetGainMode reads the analog gain mode.
func (c *Codec) GetGainMode() (GainMode, error) {
	v, err := readReg(c.t, regGainMode)
	if err != nil {
		return 0, err
	}
	if v == 0x06 {
		return GainHigh, nil
	}
	return GainLow, nil
}

// SetExposureTime sets the exposure time in milliseconds.
func (c *Codec) SetExposureTime(ms float64) error {
	counts := uint32(ms * pixelClockHz / 1000.0)
	return writeMulti(c.t, regExposureBase, counts)
}

// GetExposureTime reads the exposure time in milliseconds.
func (c *Codec) GetExposureTime() (float64, error) {
	counts, err := readMulti(c.t, regExposureBase)
	if err != nil {
		return 0, err
	}
	return float64(counts) * 1000.0 / pixelClockHz, nil
}

// EncodeFrameRateCount converts a frame rate in Hz to the register count
// the vendor protocol uses: count = floor(4e9/(r*100)).
func EncodeFrameRateCount(hz float64) uint32 {
	if hz <= 0 {
		return 0
	}
	return uint32(frameRateConst / (hz * 100))
}

// DecodeFrameRateCount converts a register count back to Hz:
// rate = 4e7/count, count == 0 => rate == 0.
func DecodeFrameRateCount(count uint32) float64 {
	if count == 0 {
		return 0
	}
	return (frameRateConst / 100) / float64(count)
}

// SetFrameRate sets the camera frame rate in Hz.
func (c *Codec) SetFrameRate(hz float64) error {
	return writeMulti(c.t, regFrameRtBase, EncodeFrameRateCount(hz))
}

// GetFrameRate reads the camera frame rate in Hz.
func (c *Codec) GetFrameRate() (float64, error) {
	count, err := readMulti(c.t, regFrameRtBase)
	if err != nil {
		return 0, err
	}
	return DecodeFrameRateCount(count), nil
}

// ReadManufacturingBlock retrieves and caches the factory calibration
// points used by the TEC setpoint and temperature read-back conversions.
// It must succeed once before SetTECSetpoint, GetTECSetpoint, or
// ReadTemperature are used.
func (c *Codec) ReadManufacturingBlock() error {
	cmd1 := []byte{0x53, 0xAE, 0x05, 0x01, 0x00, 0x00, 0x02, 0x00, 0x50, 0xAB}
	if _, err := c.t.Write(encodeFrame(cmd1...)); err != nil {
		return fmt.Errorf("camcodec: manufacturing block request 1: %w", err)
	}
	cmd2 := []byte{0x53, 0xAF, 0x12, 0x50, 0xBE}
	if _, err := c.t.Write(encodeFrame(cmd2...)); err != nil {
		return fmt.Errorf("camcodec: manufacturing block request 2: %w", err)
	}
	tokens := make([]byte, 18)
	for i := range tokens {
		b, err := c.t.ReadToken()
		if err != nil {
			return fmt.Errorf("camcodec: manufacturing block token %d: %w", i, err)
		}
		tokens[i] = b
	}
	// tokens 10-11 = ADC@0C, 12-13 = ADC@40C, 14-15 = DAC@0C, 16-17 = DAC@40C, each little-endian.
	if len(tokens) != 18 {
		return ErrManufBlock
	}
	le16 := func(lo, hi byte) float64 { return float64(uint32(lo) | uint32(hi)<<8) }
	c.cal = Calibration{
		ADCAt0: le16(tokens[10], tokens[11]),
		ADCAt40: le16(tokens[12], tokens[13]),
		DACAt0: le16(tokens[14], tokens[15]),
		DACAt40: le16(tokens[16], tokens[17]),
	}
	c.calOK = true
	return nil
}

// Calibration returns the cached manufacturing calibration, if read.
func (c *Codec) Calibration() (Calibration, bool) {
	return c.cal, c.calOK
}

// SetTECSetpoint sets the TEC setpoint in Celsius, converting through the
// manufacturing calibration's DAC line.
func (c *Codec) SetTECSetpoint(tempC float64) error {
	if !c.calOK {
		return fmt.Errorf("camcodec: manufacturing block not yet read")
	}
	dac := c.cal.tempToDAC(tempC)
	return writeRegsBE(c.t, []byte{regTECSetpt0, regTECSetpt1}, uint32(dac))
}

// GetTECSetpoint reads back the TEC setpoint in Celsius.
func (c *Codec) GetTECSetpoint() (float64, error) {
	if !c.calOK {
		return 0, fmt.Errorf("camcodec: manufacturing block not yet read")
	}
	dac, err := readRegsBE(c.t, []byte{regTECSetpt0, regTECSetpt1})
	if err != nil {
		return 0, err
	}
	return util.Round(c.cal.dacToTemp(float64(dac)), tecResolutionC), nil
}

// ReadTemperature reads the current focal-plane temperature in Celsius.
func (c *Codec) ReadTemperature() (float64, error) {
	if !c.calOK {
		return 0, fmt.Errorf("camcodec: manufacturing block not yet read")
	}
	adc, err := readRegsBE(c.t, []byte{regTemp0, regTemp1})
	if err != nil {
		return 0, err
	}
	return util.Round(c.cal.adcToTemp(float64(adc)), tecResolutionC), nil
}

// SetDigitalGain sets the digital gain multiplier (raw = gain * 256).
func (c *Codec) SetDigitalGain(gain float64) error {
	raw := uint32(gain * 256)
	return writeRegsBE(c.t, []byte{regDigGain0, regDigGain1}, raw)
}

// GetDigitalGain reads the digital gain multiplier.
//
// Open question: the two read registers return their value in
// an order that only matches the write's big-endian convention if the
// device's read byte order mirrors its write order; this must be
// confirmed against real hardware. We assume symmetry with the write
// path here.
func (c *Codec) GetDigitalGain() (float64, error) {
	raw, err := readRegsBE(c.t, []byte{regDigGain0, regDigGain1})
	if err != nil {
		return 0, err
	}
	return float64(raw) / 256.0, nil
}
