// Command slimplayer runs a headless SlimProto client that logs every
// MR callback instead of actually rendering audio. Useful for
// exercising discovery/connection/state-machine behaviour against a
// real LMS without wiring up real audio output.
package main

import (
	"context"
	"fmt"
	"net/netip"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/sq-core/slimplayer/slimproto"
)

type logOnlyCallback struct{}

func (logOnlyCallback) OnOff(on bool) bool   { slimproto.Logger.Info("MR: on/off", "on", on); return true }
func (logOnlyCallback) Volume(gain uint16) bool {
	slimproto.Logger.Info("MR: volume", "gain", gain)
	return true
}
func (logOnlyCallback) Play() bool     { slimproto.Logger.Info("MR: play"); return true }
func (logOnlyCallback) Pause() bool    { slimproto.Logger.Info("MR: pause"); return true }
func (logOnlyCallback) Unpause() bool  { slimproto.Logger.Info("MR: unpause"); return true }
func (logOnlyCallback) Stop() bool     { slimproto.Logger.Info("MR: stop"); return true }
func (logOnlyCallback) SetName(name string) bool {
	slimproto.Logger.Info("MR: set name", "name", name)
	return true
}
func (logOnlyCallback) SetServer(addr netip.Addr) bool {
	slimproto.Logger.Info("MR: set server", "addr", addr)
	return true
}
func (logOnlyCallback) SetTrack(track slimproto.TrackInfo) bool {
	slimproto.Logger.Info("MR: set track", "mime", track.MimeType, "uri", track.URI)
	return true
}

type staticMetadata struct{}

func (staticMetadata) GetMetadata(offset int) slimproto.TrackMetadata {
	return slimproto.TrackMetadata{}
}

func main() {
	cfg := slimproto.DefaultConfig()
	mimeFile := pflag.String("mime-file", "", "Optional YAML file overriding the MIME capability table.")
	help := pflag.Bool("help", false, "Display help text.")
	cfg.BindFlags(pflag.CommandLine)
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - headless SlimProto client (logs MR callbacks, renders nothing)\n\n", os.Args[0])
		pflag.PrintDefaults()
	}
	pflag.Parse()
	if *help {
		pflag.Usage()
		os.Exit(0)
	}

	slimproto.SetLogLevel(cfg.DebugLevel)

	if *mimeFile != "" {
		caps, err := slimproto.LoadMimeCapabilities(*mimeFile)
		if err != nil {
			slimproto.Logger.Fatal("loading mime capability file", "err", err)
		}
		cfg.MimeTypes = caps
	} else {
		cfg.MimeTypes = []slimproto.MimeCapability{
			{Format: 'm', MimeType: "audio/mpeg"},
			{Format: 'f', MimeType: "audio/flac"},
			{Format: 'p', MimeType: "audio/L16;rate=44100;channels=2"},
		}
	}

	if err := cfg.Validate(); err != nil {
		slimproto.Logger.Fatal("invalid configuration", "err", err)
	}

	ctx := slimproto.NewPlayerContext(cfg, logOnlyCallback{}, staticMetadata{})

	if err := ctx.AnnounceCLI(context.Background()); err != nil {
		slimproto.Logger.Warn("mDNS announce failed", "err", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		slimproto.Logger.Info("shutting down")
		ctx.Stop()
	}()

	ctx.Run(context.Background())
}
