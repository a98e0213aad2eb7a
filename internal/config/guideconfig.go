// Package config loads the two configuration surfaces the server reads at
// startup: the mandatory line-oriented guide/null configuration 
// and the optional YAML deployment-variant configuration 
// that resolves the ISU/camera capability set and the debug-timing flag,
// the latter watched live for changes.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/chyan26/raptorServ/internal/util"
)

// GuideConfig is the required guide-subraster and null-pixel configuration
// a line-oriented key=value file with no YAML structure, since
// it predates the deployment-variant configuration and is edited by hand
// by operators setting up a new optical alignment.
type GuideConfig struct {
	GuideRasterX0 int
	GuideRasterY0 int
	HoleNullX float64
	HoleNullY float64
}

// These limiters are exported for reuse by the command dispatcher, which
// validates the same ranges when ROI/NULL are changed at runtime.
var GuideRasterXLimit = util.Limiter{Min: 0, Max: 640 - 32}
var GuideRasterYLimit = util.Limiter{Min: 0, Max: 512 - 32}
var NullXLimit = util.Limiter{Min: 0, Max: 640}
var NullYLimit = util.Limiter{Min: 0, Max: 512}

// requiredKeys are every key that must be present; missing any is a
// startup failure ("all four are required").
var requiredKeys = []string{"guideRasterX0", "guideRasterY0", "holeNullX", "holeNullY"}

// LoadGuideConfig parses path as a line-oriented key=value file. Blank
// lines and lines starting with # are ignored. Unknown keys warn to
// warnings but do not abort load; any missing required key, any value
// that fails to parse, or any value out of its documented range is a
// load failure.
func LoadGuideConfig(path string) (cfg GuideConfig, warnings []string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return cfg, nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	seen := map[string]string{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		kv := strings.SplitN(line, "=", 2)
		if len(kv) != 2 {
			return cfg, warnings, fmt.Errorf("config: malformed line %q", line)
		}
		key := strings.TrimSpace(kv[0])
		val := strings.TrimSpace(kv[1])
		seen[key] = val
	}
	if err := sc.Err(); err != nil {
		return cfg, warnings, fmt.Errorf("config: read %s: %w", path, err)
	}

	for key := range seen {
		known := false
		for _, r := range requiredKeys {
			if r == key {
				known = true
				break
			}
		}
		if !known {
			warnings = append(warnings, fmt.Sprintf("config: unknown key %q ignored", key))
		}
	}

	for _, key := range requiredKeys {
		if _, ok := seen[key]; !ok {
			return cfg, warnings, fmt.Errorf("config: missing required key %q", key)
		}
	}

	cfg.GuideRasterX0, err = strconv.Atoi(seen["guideRasterX0"])
	if err != nil {
		return cfg, warnings, fmt.Errorf("config: guideRasterX0: %w", err)
	}
	cfg.GuideRasterY0, err = strconv.Atoi(seen["guideRasterY0"])
	if err != nil {
		return cfg, warnings, fmt.Errorf("config: guideRasterY0: %w", err)
	}
	cfg.HoleNullX, err = strconv.ParseFloat(seen["holeNullX"], 64)
	if err != nil {
		return cfg, warnings, fmt.Errorf("config: holeNullX: %w", err)
	}
	cfg.HoleNullY, err = strconv.ParseFloat(seen["holeNullY"], 64)
	if err != nil {
		return cfg, warnings, fmt.Errorf("config: holeNullY: %w", err)
	}

	if !GuideRasterXLimit.Check(float64(cfg.GuideRasterX0)) {
		return cfg, warnings, fmt.Errorf("config: guideRasterX0 %d out of range [%v,%v]", cfg.GuideRasterX0, GuideRasterXLimit.Min, GuideRasterXLimit.Max)
	}
	if !GuideRasterYLimit.Check(float64(cfg.GuideRasterY0)) {
		return cfg, warnings, fmt.Errorf("config: guideRasterY0 %d out of range [%v,%v]", cfg.GuideRasterY0, GuideRasterYLimit.Min, GuideRasterYLimit.Max)
	}
	if !NullXLimit.Check(cfg.HoleNullX) {
		return cfg, warnings, fmt.Errorf("config: holeNullX %v out of range [%v,%v]", cfg.HoleNullX, NullXLimit.Min, NullXLimit.Max)
	}
	if !NullYLimit.Check(cfg.HoleNullY) {
		return cfg, warnings, fmt.Errorf("config: holeNullY %v out of range [%v,%v]", cfg.HoleNullY, NullYLimit.Min, NullYLimit.Max)
	}

	return cfg, warnings, nil
}
