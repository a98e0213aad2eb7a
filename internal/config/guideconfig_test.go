package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "guide.conf")
	if err := os.WriteFile(p, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadGuideConfigValid(t *testing.T) {
	p := writeTempConfig(t, "guideRasterX0=100\nguideRasterY0=200\nholeNullX=115.5\nholeNullY=215.5\n")
	cfg, warnings, err := LoadGuideConfig(p)
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if cfg.GuideRasterX0 != 100 || cfg.GuideRasterY0 != 200 || cfg.HoleNullX != 115.5 || cfg.HoleNullY != 215.5 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadGuideConfigMissingKeyFails(t *testing.T) {
	p := writeTempConfig(t, "guideRasterX0=100\nguideRasterY0=200\nholeNullX=115.5\n")
	if _, _, err := LoadGuideConfig(p); err == nil {
		t.Fatal("expected error for missing holeNullY")
	}
}

func TestLoadGuideConfigUnknownKeyWarnsNotAborts(t *testing.T) {
	p := writeTempConfig(t, "guideRasterX0=100\nguideRasterY0=200\nholeNullX=115.5\nholeNullY=215.5\nbogusKey=1\n")
	_, warnings, err := LoadGuideConfig(p)
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected one warning, got %v", warnings)
	}
}

func TestLoadGuideConfigOutOfRangeFails(t *testing.T) {
	p := writeTempConfig(t, "guideRasterX0=700\nguideRasterY0=200\nholeNullX=115.5\nholeNullY=215.5\n")
	if _, _, err := LoadGuideConfig(p); err == nil {
		t.Fatal("expected error for out-of-range guideRasterX0")
	}
}
