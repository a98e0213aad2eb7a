// Command raptorguideserv is the fast-guiding control loop: it owns the
// guide camera, the ISU steering mirror, the operator command port, and
// the image output stream, and ties them together into the frame loop.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/theckman/yacspin"

	"github.com/chyan26/raptorServ/internal/camcodec"
	"github.com/chyan26/raptorServ/internal/camdriver"
	"github.com/chyan26/raptorServ/internal/command"
	"github.com/chyan26/raptorServ/internal/config"
	"github.com/chyan26/raptorServ/internal/frameloop"
	"github.com/chyan26/raptorServ/internal/isu"
	"github.com/chyan26/raptorServ/internal/loglib"
	"github.com/chyan26/raptorServ/internal/state"
	"github.com/chyan26/raptorServ/internal/status"
	"github.com/chyan26/raptorServ/internal/telemetry"
)

// defaultCameraBaud is the vendor serial register link's baud rate; the
// protocol itself carries no autobaud or handshake to discover it.
const defaultCameraBaud = 115200

func main() {
	guideConfigPath := flag.String("guideconfig", "", "path to the required guide/null configuration file")
	deploymentPath := flag.String("deployment", "", "path to the optional deployment capabilities YAML file")
	telemetryURL := flag.String("telemetry", "", "base URL of the telescope status service (optional)")
	cmdAddr := flag.String("cmdaddr", ":915", "TCP command port")
	statusAddr := flag.String("statusaddr", status.DefaultAddr, "status introspection HTTP port")
	flag.Parse()

	if *guideConfigPath == "" {
		fmt.Fprintln(os.Stderr, "raptorguideserv: -guideconfig is required")
		os.Exit(1)
	}

	spinner, err := newBootSpinner()
	if err != nil {
		loglib.FatalErr("raptorguideserv: spinner setup", err)
	}
	spinner.Start()

	spinner.Message("loading guide configuration")
	guideCfg, warnings, err := config.LoadGuideConfig(*guideConfigPath)
	if err != nil {
		spinner.StopFailMessage(fmt.Sprintf("guide configuration: %v", err))
		spinner.StopFail()
		loglib.FatalErr("raptorguideserv: load guide configuration", err)
	}
	for _, w := range warnings {
		loglib.Warnf("raptorguideserv: %s", w)
	}

	spinner.Message("loading deployment capabilities")
	deployment, err := config.LoadDeploymentConfig(*deploymentPath)
	if err != nil {
		spinner.StopFailMessage(fmt.Sprintf("deployment configuration: %v", err))
		spinner.StopFail()
		loglib.FatalErr("raptorguideserv: load deployment configuration", err)
	}
	caps := deployment.Get()

	spinner.Message("initializing camera")
	cam, codec, err := buildCamera(caps)
	if err != nil {
		spinner.StopFailMessage(fmt.Sprintf("camera init: %v", err))
		spinner.StopFail()
		loglib.FatalErr("raptorguideserv: camera init", err)
	}

	spinner.Message("initializing ISU")
	isuCap := buildISU(caps)

	var tel command.Telemetry
	if *telemetryURL != "" {
		tel = telemetry.New(*telemetryURL)
	}

	st := state.New(guideCfg)
	disp := command.NewDispatcher(st, codec, isuCap, caps, tel)

	spinner.Message("starting command server on " + *cmdAddr)
	cmdServer, err := command.Listen(*cmdAddr, disp)
	if err != nil {
		spinner.StopFailMessage(fmt.Sprintf("command server: %v", err))
		spinner.StopFail()
		loglib.FatalErr("raptorguideserv: command server listen", err)
	}

	spinner.Message("starting status server on " + *statusAddr)
	statusServer := status.New(caps)
	go func() {
		if err := statusServer.ListenAndServe(*statusAddr); err != nil {
			loglib.Warnf("raptorguideserv: status server stopped: %v", err)
		}
	}()

	spinner.StopMessage("raptorguideserv ready")
	spinner.Stop()

	loop := &frameloop.Loop{
		State:      st,
		Camera:     cam,
		ISU:        isuCap,
		CmdServer:  cmdServer,
		Dispatcher: disp,
		Status:     statusServer,
		Caps:       caps,
		Out:        os.Stdout,
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		loglib.Info("raptorguideserv: signal received, shutting down")
		cancel()
	}()

	runErr := loop.Run(ctx)
	cmdServer.Close()

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		loglib.Warnf("raptorguideserv: frame loop exited: %v", runErr)
		os.Exit(1)
	}
	os.Exit(0)
}

// buildCamera resolves the frame-grabber and the register-command codec
// for the chosen deployment variant. The live frame-grabber channel is a
// vendor SDK binding outside the scope of this repository; a live
// deployment must supply one satisfying camdriver.SDK before this
// branch can succeed, which today it cannot, so it fails fast rather
// than pretending to talk to hardware that is not there.
func buildCamera(caps config.Capabilities) (camdriver.Camera, command.CameraCodec, error) {
	switch caps.Camera {
	case config.CameraSimulated:
		return camdriver.NewSimulated(), camcodec.New(camcodec.NewSimulatedTransport()), nil
	case config.CameraLive:
		// The register link (framerate/exptime/TEC/temp) is a plain serial
		// connection and can be opened for real. The imaging channel
		// cannot: it needs a vendor frame-grabber SDK binding this
		// repository does not ship, so construction still fails here even
		// after the register link comes up.
		transport := camcodec.NewSerialTransport(caps.CameraAddr, defaultCameraBaud)
		if err := transport.Open(); err != nil {
			return nil, nil, fmt.Errorf("camera: open register link at %s: %w", caps.CameraAddr, err)
		}
		return nil, camcodec.New(transport), fmt.Errorf("camera: register link at %s opened, but the imaging channel requires a vendor frame-grabber SDK binding not shipped in this repository", caps.CameraAddr)
	default:
		return nil, nil, fmt.Errorf("camera: unknown deployment variant %q", caps.Camera)
	}
}

// buildISU resolves the ISU collaborator for the chosen deployment
// variant. Unlike the camera, the live ISU driver is a plain
// line-oriented network device and ships in this repository, so it can
// actually be constructed here.
func buildISU(caps config.Capabilities) isu.Capability {
	switch caps.ISU {
	case config.ISULive:
		return isu.NewLive(caps.ISUAddr)
	case config.ISUSimulated:
		return isu.NewSimulated()
	default:
		return nil
	}
}

func newBootSpinner() (*yacspin.Spinner, error) {
	cfg := yacspin.Config{
		Frequency:       100 * time.Millisecond,
		CharSet:         yacspin.CharSets[59],
		Suffix:          " ",
		SuffixAutoColon: true,
		Message:         "starting raptorguideserv",
		StopCharacter:   "✓",
		StopColors:      []string{"fgGreen"},
		StopFailCharacter: "✗",
		StopFailColors:    []string{"fgRed"},
	}
	return yacspin.New(cfg)
}
