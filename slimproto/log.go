package slimproto

import (
	"os"

	"github.com/charmbracelet/log"
)

// Logger is the package-wide leveled logger. Every component logs
// through here rather than fmt.Printf so log lines carry structured
// fields (mac, event, index) instead of interpolated strings.
var Logger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	TimeFormat:      "15:04:05.000",
})

// SetLogLevel adjusts verbosity at runtime; debugLevel mirrors the
// teacher's convention of an integer 0..3 knob (see igate_init's
// debug_level) rather than a named level, since that's what callers
// pass in from a CLI flag.
func SetLogLevel(debugLevel int) {
	switch {
	case debugLevel >= 2:
		Logger.SetLevel(log.DebugLevel)
	case debugLevel == 1:
		Logger.SetLevel(log.InfoLevel)
	default:
		Logger.SetLevel(log.WarnLevel)
	}
}
