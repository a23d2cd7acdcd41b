// Command slimplayer-debugcli is an interactive console for exercising
// a PlayerContext by hand: it opens a pty so the running session's log
// stream can be tailed from a second terminal, and reads single
// keystrokes from stdin (no Enter required) to drive simple host-side
// actions without a real Media Renderer attached.
package main

import (
	"context"
	"fmt"
	"io"
	"net/netip"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/creack/pty"
	term "github.com/pkg/term"

	"github.com/sq-core/slimplayer/slimproto"
)

type consoleCallback struct{}

func (consoleCallback) OnOff(on bool) bool                       { return true }
func (consoleCallback) Volume(gain uint16) bool                  { return true }
func (consoleCallback) Play() bool                               { return true }
func (consoleCallback) Pause() bool                              { return true }
func (consoleCallback) Unpause() bool                            { return true }
func (consoleCallback) Stop() bool                               { return true }
func (consoleCallback) SetName(name string) bool                 { return true }
func (consoleCallback) SetServer(addr netip.Addr) bool           { return true }
func (consoleCallback) SetTrack(track slimproto.TrackInfo) bool  { return true }

type noMetadata struct{}

func (noMetadata) GetMetadata(offset int) slimproto.TrackMetadata { return slimproto.TrackMetadata{} }

func main() {
	cfg := slimproto.DefaultConfig()
	cfg.MimeTypes = []slimproto.MimeCapability{{Format: 'p', MimeType: "audio/L16;rate=44100;channels=2"}}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}

	ptmx, tty, err := pty.Open()
	if err != nil {
		fmt.Fprintln(os.Stderr, "opening pty failed:", err)
		os.Exit(1)
	}
	defer ptmx.Close()
	defer tty.Close()
	fmt.Fprintf(os.Stderr, "debug log mirrored to %s (e.g. `cat %s` in another terminal)\n", tty.Name(), tty.Name())

	slimproto.Logger.SetOutput(io.MultiWriter(os.Stderr, ptmx))
	slimproto.Logger.SetLevel(log.DebugLevel)

	ctx := slimproto.NewPlayerContext(cfg, consoleCallback{}, noMetadata{})

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		ctx.Stop()
	}()

	go runKeyLoop(ctx)

	ctx.Run(context.Background())
}

// runKeyLoop puts stdin in raw mode (mirroring the teacher's
// serial_port_open use of pkg/term's RawMode) so single keystrokes
// drive the session without waiting on Enter.
func runKeyLoop(ctx *slimproto.PlayerContext) {
	tty, err := term.Open("/dev/tty", term.RawMode)
	if err != nil {
		slimproto.Logger.Warn("debugcli: could not open controlling tty for raw input", "err", err)
		return
	}
	defer tty.Restore()
	defer tty.Close()

	buf := make([]byte, 1)
	for {
		if _, err := tty.Read(buf); err != nil {
			return
		}
		switch buf[0] {
		case 'q':
			fmt.Fprintln(os.Stderr, "\nquitting")
			ctx.Stop()
			return
		case 'w':
			ctx.Wake()
		case 's':
			snap := ctx.Status
			fmt.Fprintf(os.Stderr, "\nstream_full=%d stream_size=%d ms_played=%d\n",
				snap.StreamFull, snap.StreamSize, snap.MsPlayed)
		default:
			fmt.Fprintf(os.Stderr, "\nkeys: w=wake loop, s=status, q=quit\n")
		}
	}
}
