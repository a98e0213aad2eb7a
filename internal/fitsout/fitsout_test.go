package fitsout

import (
	"bytes"
	"testing"
	"time"
)

func TestWriteProducesNonEmptyRecord(t *testing.T) {
	h := Header{
		Time:           time.Unix(1700000000, 0),
		ExposureTimeMs: 20,
		ETYPE:          "ACQUIRE",
		FrameRateHz:    50,
		TempSetpointC:  -40,
		SeqNum:         0,
		WinX0:          0, WinY0: 0, WinX1: 640, WinY1: 512,
		GuideX0: 100, GuideY0: 200,
		NullX: 115.5, NullY: 215.5,
	}
	pix := make([]uint16, 32*32)
	var buf bytes.Buffer
	if err := Write(&buf, h, pix, 32, 32); err != nil {
		t.Fatal(err)
	}
	if buf.Len() == 0 {
		t.Fatal("expected non-empty FITS record")
	}
	// a FITS record is padded to a multiple of the 2880-byte block size.
	if buf.Len()%2880 != 0 {
		t.Fatalf("record length %d is not a multiple of 2880", buf.Len())
	}
}

func TestWriteSucceedsForGuidingAndNonGuidingHeaders(t *testing.T) {
	base := Header{
		Time: time.Unix(1700000000, 0), ETYPE: "GUIDE",
		WinX0: 100, WinY0: 200, WinX1: 132, WinY1: 232,
		GuideX0: 100, GuideY0: 200, NullX: 115.5, NullY: 215.5,
	}
	guiding := base
	guiding.Guiding = true
	guiding.GuideXOff, guiding.GuideYOff = 0.5, -0.25
	guiding.ISUOn = true
	guiding.SetupMradX, guiding.ReadMradX = 1.2, 3.4

	pix := make([]uint16, 32*32)
	var buf bytes.Buffer
	if err := Write(&buf, guiding, pix, 32, 32); err != nil {
		t.Fatal(err)
	}
	if buf.Len() == 0 {
		t.Fatal("expected non-empty record for guiding header")
	}

	var buf2 bytes.Buffer
	if err := Write(&buf2, base, pix, 32, 32); err != nil {
		t.Fatal(err)
	}
	if buf2.Len() == 0 {
		t.Fatal("expected non-empty record for non-guiding header")
	}
}
