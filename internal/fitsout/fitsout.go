// Package fitsout serializes a single acquired frame as a self-contained
// FITS-like record (keyword header + 16-bit unsigned pixel payload) to the
// output stream . Every call to Write produces one complete,
// independently readable record; the frame loop calls it once per frame
// and never buffers across frames.
package fitsout

import (
	"io"
	"time"

	"github.com/astrogo/fitsio"
)

// NullValue is the sentinel written for header fields that do not apply to
// the current frame (not guiding, ISU off, no active exposure tag). There
// is no convention given in the source for this; -999 is the common
// astronomical null sentinel and is used for every nullable numeric
// keyword below; the string keywords RA and DEC use the empty string.
const NullValue = -999.0

// Header carries every keyword the frame loop populates per frame beyond
// the structural keywords (SIMPLE, BITPIX, NAXIS*, PCOUNT, GCOUNT) that
// fitsio.NewImage emits on its own, and BZERO/BSCALE, which Write appends
// directly per the camera's 16-bit unsigned convention.
type Header struct {
	Time time.Time // used to render DATE, HSTTIME, UNIXTIME

	ExposureTimeMs float64
	ETYPE string // "ACQUIRE" or "GUIDE"
	ImgInfo string
	FrameRateHz float64
	TempSetpointC float64
	SeqNum int

	WinX0, WinY0, WinX1, WinY1 int
	GuideX0, GuideY0 int
	NullX, NullY float64

	// Guiding is false when the frame was not acquired while guide_on;
	// GuideXOff/GuideYOff are only meaningful when true.
	Guiding bool
	GuideXOff, GuideYOff float64

	// ISUOn is false when the ISU capability was disabled for the frame;
	// SetupMradX/Y and ReadMradX/Y are only meaningful when true.
	ISUOn bool
	SetupMradX, SetupMradY float64
	ReadMradX, ReadMradY float64

	Filename string

	// ExpOn is false unless an active STARTEXP tag is live; RA/Dec/
	// Equinox/ObjMag are only meaningful when true.
	ExpOn bool
	RA, Dec string
	Equinox, ObjMag float64
}

// PixScale is the optical train's arcsec/pixel conversion, written into
// every header.
const PixScale = 0.128

// cards renders h into the FITS cards Write appends beyond the structural
// keywords and BZERO/BSCALE.
func (h Header) cards() []fitsio.Card {
	c := []fitsio.Card{
		{Name: "DATE", Value: h.Time.UTC().Format("2006-01-02T15:04:05")},
		{Name: "HSTTIME", Value: h.Time.Format("15:04:05")},
		{Name: "UNIXTIME", Value: h.Time.Unix()},
		{Name: "ORIGIN", Value: "CFHT"},
		{Name: "ETIME", Value: h.ExposureTimeMs},
		{Name: "ETYPE", Value: h.ETYPE},
		{Name: "IMGINFO", Value: h.ImgInfo},
		{Name: "FRMRATE", Value: h.FrameRateHz},
		{Name: "TEMP", Value: h.TempSetpointC},
		{Name: "SEQNUM", Value: h.SeqNum},
		{Name: "PIXSCALE", Value: PixScale},
		{Name: "WIN_X0", Value: h.WinX0},
		{Name: "WIN_Y0", Value: h.WinY0},
		{Name: "WIN_X1", Value: h.WinX1},
		{Name: "WIN_Y1", Value: h.WinY1},
		{Name: "GUIDE_X0", Value: h.GuideX0},
		{Name: "GUIDE_Y0", Value: h.GuideY0},
		{Name: "NULLX", Value: h.NullX},
		{Name: "NULLY", Value: h.NullY},
		{Name: "FILENAME", Value: h.Filename},
	}

	if h.Guiding {
		c = append(c,
			fitsio.Card{Name: "GD_XOFF", Value: h.GuideXOff},
			fitsio.Card{Name: "GD_YOFF", Value: h.GuideYOff})
	} else {
		c = append(c,
			fitsio.Card{Name: "GD_XOFF", Value: NullValue},
			fitsio.Card{Name: "GD_YOFF", Value: NullValue})
	}

	if h.ISUOn {
		c = append(c,
			fitsio.Card{Name: "SMRAD_X", Value: h.SetupMradX},
			fitsio.Card{Name: "SMRAD_Y", Value: h.SetupMradY},
			fitsio.Card{Name: "RMRAD_X", Value: h.ReadMradX},
			fitsio.Card{Name: "RMRAD_Y", Value: h.ReadMradY})
	} else {
		c = append(c,
			fitsio.Card{Name: "SMRAD_X", Value: NullValue},
			fitsio.Card{Name: "SMRAD_Y", Value: NullValue},
			fitsio.Card{Name: "RMRAD_X", Value: NullValue},
			fitsio.Card{Name: "RMRAD_Y", Value: NullValue})
	}

	if h.ExpOn {
		c = append(c,
			fitsio.Card{Name: "RA", Value: h.RA},
			fitsio.Card{Name: "DEC", Value: h.Dec},
			fitsio.Card{Name: "EQUINOX", Value: h.Equinox},
			fitsio.Card{Name: "OBJMAG", Value: h.ObjMag})
	} else {
		c = append(c,
			fitsio.Card{Name: "RA", Value: ""},
			fitsio.Card{Name: "DEC", Value: ""},
			fitsio.Card{Name: "EQUINOX", Value: NullValue},
			fitsio.Card{Name: "OBJMAG", Value: NullValue})
	}
	return c
}

// Write serializes one frame as a complete FITS-like record to w: a
// keyword header followed by the pixel payload as 16-bit words under the
// BZERO=32768, BSCALE=1 convention , padded to the FITS block
// size by fitsio itself.
func Write(w io.Writer, h Header, pix []uint16, width, height int) error {
	metadata := append(h.cards(),
		fitsio.Card{Name: "BZERO", Value: 32768},
		fitsio.Card{Name: "BSCALE", Value: 1.0})

	f, err := fitsio.Create(w)
	if err != nil {
		return err
	}
	defer f.Close()

	im := fitsio.NewImage(16, []int{width, height})
	defer im.Close()
	if err := im.Header().Append(metadata...); err != nil {
		return err
	}

	ints := make([]int16, len(pix))
	for i, v := range pix {
		ints[i] = int16(v - 32768)
	}
	if err := im.Write(ints); err != nil {
		return err
	}
	return f.Write(im)
}
