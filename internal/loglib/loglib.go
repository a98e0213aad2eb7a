// Package loglib is the startup/shutdown and runtime logging helper
// shared by cmd/raptorguideserv and the rest of the ambient stack. It
// wraps the standard logger with color-coded severity prefixes so
// operators can spot a fatal condition or a recoverable warning in
// scrollback at a glance, the same role color-coded terminal output
// plays in the corpus's own spinner-driven command-line tools.
package loglib

import (
	"fmt"
	"log"
	"os"

	"github.com/fatih/color"
)

var (
	infoColor  = color.New(color.FgCyan)
	warnColor  = color.New(color.FgYellow, color.Bold)
	fatalColor = color.New(color.FgRed, color.Bold)
	debugColor = color.New(color.FgWhite)
)

var stdlog = log.New(os.Stderr, "", log.LstdFlags)

// Info logs an informational message in cyan.
func Info(format string, args ...interface{}) {
	stdlog.Println(infoColor.Sprintf(format, args...))
}

// Warnf logs a recoverable-condition message in bold yellow.
func Warnf(format string, args ...interface{}) {
	stdlog.Println(warnColor.Sprintf(format, args...))
}

// Debugf logs a message only when on is true, used for the frame
// loop's per-stage timing breakdown.
func Debugf(on bool, format string, args ...interface{}) {
	if !on {
		return
	}
	stdlog.Println(debugColor.Sprintf(format, args...))
}

// Fatalf logs a fatal-condition message in bold red and exits non-zero.
func Fatalf(format string, args ...interface{}) {
	stdlog.Println(fatalColor.Sprintf(format, args...))
	os.Exit(1)
}

// FatalErr is a convenience wrapper for the common "log this error and
// exit" path.
func FatalErr(context string, err error) {
	Fatalf("%s", fmt.Sprintf("%s: %v", context, err))
}
