package camdriver

import "testing"

func TestSimulatedFullFrameSize(t *testing.T) {
	s := NewSimulated()
	w, h, err := s.Size()
	if err != nil {
		t.Fatal(err)
	}
	if w != FullWidth || h != FullHeight {
		t.Fatalf("size = (%d, %d), want (%d, %d)", w, h, FullWidth, FullHeight)
	}
}

func TestSimulatedROISize(t *testing.T) {
	s := NewSimulated()
	if err := s.SetROI(ROI{X0: 100, Y0: 200, W: 32, H: 32}); err != nil {
		t.Fatal(err)
	}
	if err := s.EnableROI(true); err != nil {
		t.Fatal(err)
	}
	w, h, err := s.Size()
	if err != nil {
		t.Fatal(err)
	}
	if w != 32 || h != 32 {
		t.Fatalf("ROI size = (%d, %d), want (32, 32)", w, h)
	}
}

func TestSimulatedRejectsDegenerateROI(t *testing.T) {
	s := NewSimulated()
	if err := s.SetROI(ROI{X0: 0, Y0: 0, W: 1, H: 1}); err == nil {
		t.Fatal("expected error for degenerate ROI")
	}
}

func TestSimulatedWaitImageProducesStar(t *testing.T) {
	s := NewSimulated()
	if err := s.SetROI(ROI{X0: 304, Y0: 240, W: 32, H: 32}); err != nil {
		t.Fatal(err)
	}
	if err := s.EnableROI(true); err != nil {
		t.Fatal(err)
	}
	s.StarX, s.StarY = 320, 256 // centered in the ROI
	if err := s.OpenChannel(); err != nil {
		t.Fatal(err)
	}
	if err := s.StartImage(); err != nil {
		t.Fatal(err)
	}
	pix, err := s.WaitImage()
	if err != nil {
		t.Fatal(err)
	}
	if len(pix) != 32*32 {
		t.Fatalf("pixel count = %d, want %d", len(pix), 32*32)
	}
	center := pix[16*32+16]
	corner := pix[0]
	if center <= corner {
		t.Fatalf("expected star peak at center (%d) to exceed corner (%d)", center, corner)
	}
}

func TestSimulatedStartImageRequiresOpenChannel(t *testing.T) {
	s := NewSimulated()
	if err := s.StartImage(); err == nil {
		t.Fatal("expected error starting image on unopened channel")
	}
}
