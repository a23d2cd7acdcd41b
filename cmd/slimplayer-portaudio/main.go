// Command slimplayer-portaudio is a reference Media Renderer: it
// drives a real PortAudio output stream from SlimProto callbacks. It
// does not decode the negotiated codec (decoders are out of this
// module's scope); instead it renders silence at the sample rate given
// in the track's metadata (44100 Hz when that is zero) in two channels,
// so the full connect/negotiate/play/stop lifecycle can be
// exercised against real audio hardware.
package main

import (
	"context"
	"fmt"
	"net/netip"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gordonklaus/portaudio"
	"github.com/spf13/pflag"

	"github.com/sq-core/slimplayer/slimproto"
)

type paRenderer struct {
	mu     sync.Mutex
	stream *portaudio.Stream
	out    []int16
	ctx    *slimproto.PlayerContext
}

func newPARenderer(ctx *slimproto.PlayerContext) *paRenderer {
	return &paRenderer{ctx: ctx}
}

func (r *paRenderer) openLocked(sampleRate int, channels int) error {
	r.closeLocked()
	r.out = make([]int16, 2048*channels)
	stream, err := portaudio.OpenDefaultStream(0, channels, float64(sampleRate), len(r.out)/channels, &r.out)
	if err != nil {
		return err
	}
	if err := stream.Start(); err != nil {
		return err
	}
	r.stream = stream
	go r.renderLoop(stream)
	return nil
}

func (r *paRenderer) closeLocked() {
	if r.stream != nil {
		r.stream.Close()
		r.stream = nil
	}
}

func (r *paRenderer) renderLoop(stream *portaudio.Stream) {
	for {
		r.mu.Lock()
		if r.stream != stream {
			r.mu.Unlock()
			return
		}
		for i := range r.out {
			r.out[i] = 0 // silence: decoding is out of scope
		}
		err := stream.Write()
		r.mu.Unlock()
		if err != nil {
			return
		}
	}
}

func (r *paRenderer) OnOff(on bool) bool { return true }
func (r *paRenderer) Volume(gain uint16) bool {
	slimproto.Logger.Info("portaudio MR: volume", "gain", gain)
	return true
}
func (r *paRenderer) Play() bool {
	slimproto.Logger.Info("portaudio MR: play")
	r.ctx.ReportRenderState(slimproto.RenderPlaying)
	return true
}
func (r *paRenderer) Pause() bool {
	slimproto.Logger.Info("portaudio MR: pause")
	r.ctx.ReportRenderState(slimproto.RenderPaused)
	return true
}
func (r *paRenderer) Unpause() bool {
	slimproto.Logger.Info("portaudio MR: unpause")
	r.ctx.ReportRenderState(slimproto.RenderPlaying)
	return true
}
func (r *paRenderer) Stop() bool {
	r.mu.Lock()
	r.closeLocked()
	r.mu.Unlock()
	r.ctx.ReportRenderState(slimproto.RenderStopped)
	return true
}
func (r *paRenderer) SetName(name string) bool          { return true }
func (r *paRenderer) SetServer(addr netip.Addr) bool     { return true }
func (r *paRenderer) SetTrack(track slimproto.TrackInfo) bool {
	rate := track.Metadata.SampleRate
	if rate == 0 {
		rate = 44100
	}
	channels := 2
	r.mu.Lock()
	err := r.openLocked(rate, channels)
	r.mu.Unlock()
	if err != nil {
		slimproto.Logger.Warn("portaudio MR: open stream failed", "err", err)
		return false
	}
	slimproto.Logger.Info("portaudio MR: track started", "mime", track.MimeType, "rate", rate)

	// No codec decode happens here, so the stream is "ready" and
	// "running" the instant PortAudio accepts it.
	r.ctx.ReportDecodeReady()
	r.ctx.ReportOutputRunning()
	r.ctx.ReportOutputStarted()
	return true
}

type staticMetadata struct{}

func (staticMetadata) GetMetadata(offset int) slimproto.TrackMetadata {
	return slimproto.TrackMetadata{SampleRate: 44100}
}

func main() {
	cfg := slimproto.DefaultConfig()
	help := pflag.Bool("help", false, "Display help text.")
	cfg.BindFlags(pflag.CommandLine)
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - SlimProto client with real PortAudio output (silent, no codec decode)\n\n", os.Args[0])
		pflag.PrintDefaults()
	}
	pflag.Parse()
	if *help {
		pflag.Usage()
		os.Exit(0)
	}
	slimproto.SetLogLevel(cfg.DebugLevel)
	cfg.MimeTypes = []slimproto.MimeCapability{
		{Format: 'p', MimeType: "audio/L16;rate=44100;channels=2"},
	}
	if err := cfg.Validate(); err != nil {
		slimproto.Logger.Fatal("invalid configuration", "err", err)
	}

	if err := portaudio.Initialize(); err != nil {
		slimproto.Logger.Fatal("portaudio init failed", "err", err)
	}
	defer portaudio.Terminate()

	ctx := slimproto.NewPlayerContext(cfg, nil, staticMetadata{})
	ctx.Callback = newPARenderer(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		ctx.Stop()
	}()

	ctx.Run(context.Background())
}
