package isu

import "testing"

func TestSimulatedHomedAndEnabledByDefault(t *testing.T) {
	s := NewSimulated()
	homed, err := s.CheckHomed()
	if err != nil || !homed {
		t.Fatalf("expected simulated ISU to start homed, got %v, %v", homed, err)
	}
	if !s.enabled {
		t.Fatal("expected simulated ISU to start enabled")
	}
}

func TestSimulatedSetupSlopeUpdatesReadback(t *testing.T) {
	s := NewSimulated()
	if err := s.SetupSlope(50, 1.5, -2.25); err != nil {
		t.Fatal(err)
	}
	x, y, err := s.ReadAngles()
	if err != nil {
		t.Fatal(err)
	}
	if x != 1.5 || y != -2.25 {
		t.Fatalf("readback (%v, %v), want (1.5, -2.25)", x, y)
	}
}

func TestSimulatedNoFaultByDefault(t *testing.T) {
	s := NewSimulated()
	xf, yf, err := s.CheckFault()
	if err != nil || xf || yf {
		t.Fatalf("expected no fault, got %v %v %v", xf, yf, err)
	}
}

func TestSimulatedInjectedFaultIsObservable(t *testing.T) {
	s := NewSimulated()
	s.InjectFault(true, false)
	xf, yf, err := s.CheckFault()
	if err != nil || !xf || yf {
		t.Fatalf("expected x fault only, got %v %v %v", xf, yf, err)
	}
}

func TestArcsecToMradConversion(t *testing.T) {
	s := NewSimulated()
	got := s.ArcsecToMrad(AxisX, 206.264806)
	if got < 0.999 || got > 1.001 {
		t.Fatalf("1 arcsec-equivalent conversion = %v, want ~1 mrad", got)
	}
}
