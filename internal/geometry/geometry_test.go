package geometry

import (
	"math"
	"testing"

	"github.com/chyan26/raptorServ/internal/isu"
)

func TestComputeOnNullGivesZeroOffset(t *testing.T) {
	sim := isu.NewSimulated()
	tr := Transform{ISU: sim}
	off, err := tr.Compute(16, 16, 100, 200, 116, 216)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(off.XOffArcsec) > 1e-9 || math.Abs(off.YOffArcsec) > 1e-9 {
		t.Fatalf("expected zero offset at null, got (%v, %v)", off.XOffArcsec, off.YOffArcsec)
	}
}

func TestComputeScalesByPixscale(t *testing.T) {
	sim := isu.NewSimulated()
	tr := Transform{ISU: sim}
	// one pixel off null on the x axis only
	off, err := tr.Compute(17, 16, 100, 200, 116, 216)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(off.XOffArcsec-PixScale) > 1e-9 {
		t.Fatalf("x offset = %v, want %v", off.XOffArcsec, PixScale)
	}
	if off.YOffArcsec != 0 {
		t.Fatalf("y offset = %v, want 0", off.YOffArcsec)
	}
}

func TestComputeTargetIsLastMinusDelta(t *testing.T) {
	sim := isu.NewSimulated()
	// move the simulated mechanism away from zero so last != 0
	if err := sim.SetupDirect(5, -3); err != nil {
		t.Fatal(err)
	}
	tr := Transform{ISU: sim}
	off, err := tr.Compute(17, 16, 100, 200, 116, 216)
	if err != nil {
		t.Fatal(err)
	}
	if off.LastXMrad != 5 || off.LastYMrad != -3 {
		t.Fatalf("last (%v, %v), want (5, -3)", off.LastXMrad, off.LastYMrad)
	}
	wantTargetX := off.LastXMrad - off.DeltaXMrad
	if math.Abs(off.TargetXMrad-wantTargetX) > 1e-9 {
		t.Fatalf("target x = %v, want %v", off.TargetXMrad, wantTargetX)
	}
}
