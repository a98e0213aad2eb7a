package config

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"golang.org/x/time/rate"
)

// reloadRateLimit bounds how often a burst of fsnotify write events (many
// editors save in several quick writes) triggers an actual file reload.
var reloadRateLimit = rate.NewLimiter(rate.Every(200*time.Millisecond), 1)

// CameraVariant and ISUVariant select the deployment-time build variant
// for each collaborator: live hardware or a simulated stand-in, resolved
// once at startup into a plain configuration record rather than chosen
// by build tags.
type CameraVariant string

const (
	CameraLive      CameraVariant = "live"
	CameraSimulated CameraVariant = "simulated"
)

type ISUVariant string

const (
	ISULive      ISUVariant = "live"
	ISUSimulated ISUVariant = "simulated"
	ISUAbsent    ISUVariant = "none"
)

// Capabilities is the deployment-variant record resolved once at startup
// and, for DebugTiming only, live-reloaded from the YAML file thereafter.
type Capabilities struct {
	Camera      CameraVariant `koanf:"camera"`
	ISU         ISUVariant    `koanf:"isu"`
	CameraAddr  string        `koanf:"cameraAddr"`
	ISUAddr     string        `koanf:"isuAddr"`
	DebugTiming bool          `koanf:"debugTiming"`
}

// DeploymentConfig loads a Capabilities record from an optional YAML file
// and keeps DebugTiming live-reloaded for the life of the process. If path
// is empty, defaults (both capabilities live, DebugTiming off) apply and
// no file is watched.
type DeploymentConfig struct {
	mu   sync.RWMutex
	caps Capabilities
}

// defaultCapabilities is used when no deployment file is given: an
// absent file resolves to all-live capabilities with DebugTiming off.
func defaultCapabilities() Capabilities {
	return Capabilities{Camera: CameraLive, ISU: ISULive}
}

// LoadDeploymentConfig reads path (if non-empty) into a Capabilities
// record via koanf's YAML parser, starts a background watch that
// re-reads DebugTiming whenever the file changes, and returns the live
// config handle. Everything but DebugTiming is fixed at the value read
// during this call; the deployment variant for camera/ISU is not meant to
// flip at runtime (those require a process restart).
func LoadDeploymentConfig(path string) (*DeploymentConfig, error) {
	dc := &DeploymentConfig{caps: defaultCapabilities()}
	if path == "" {
		return dc, nil
	}
	if err := dc.reload(path); err != nil {
		return nil, err
	}
	if err := dc.watch(path); err != nil {
		return nil, err
	}
	return dc, nil
}

func (dc *DeploymentConfig) reload(path string) error {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser); err != nil {
		return err
	}
	caps := defaultCapabilities()
	if err := k.Unmarshal("", &caps); err != nil {
		return err
	}
	dc.mu.Lock()
	dc.caps = caps
	dc.mu.Unlock()
	return nil
}

// watch starts a goroutine that re-reads the file's debugTiming key on
// write/create events, at most once per 200ms (events arriving sooner
// after a reload are dropped), leaving every other field untouched between
// reloads: the camera/ISU variant is fixed at startup, and DebugTiming
// is the one field operators are expected to toggle without a restart.
func (dc *DeploymentConfig) watch(path string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return err
	}
	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if !reloadRateLimit.Allow() {
					continue
				}
				k := koanf.New(".")
				if err := k.Load(file.Provider(path), yaml.Parser); err != nil {
					continue
				}
				debugTiming := k.Bool("debugTiming")
				dc.mu.Lock()
				dc.caps.DebugTiming = debugTiming
				dc.mu.Unlock()
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return nil
}

// Get returns the current capabilities record.
func (dc *DeploymentConfig) Get() Capabilities {
	dc.mu.RLock()
	defer dc.mu.RUnlock()
	return dc.caps
}
