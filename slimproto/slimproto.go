// Package slimproto implements the client side of the SlimProto control
// protocol used by Logitech Media Server (LMS) to drive a music player.
//
// It discovers a server on the local network, maintains a long-lived TCP
// control connection, and runs a state machine that coordinates three
// asynchronous activities: receiving HTTP-streamed audio into a
// streambuf, decoding it into PCM in an outputbuf, and rendering the PCM
// to an external player (the Media Renderer, or MR) via the Callback
// interface. Status messages flow upstream to keep LMS's track-boundary
// logic in sync with what the renderer is actually doing.
//
// Deliberately out of scope: UDP discovery response parsing beyond the
// minimal {ip, port, cli_port, version} contract; the CLI/comet side
// channel LMS uses for richer metadata; the HTTP streaming reader itself;
// codec decoders; the HTTP server that re-exposes a transcoded stream to
// the MR; config file parsing beyond this package's own Config; logging
// beyond this package's own Logger.
package slimproto

const (
	// DefaultPort is LMS's slimproto TCP/UDP port.
	DefaultPort = 3483

	// MaxFrameBody is the largest inbound frame body slimproto will
	// accept (spec invariant 5); larger frames are fatal for the
	// connection.
	MaxFrameBody = 4096

	// heartbeatTimeouts is the number of seconds without an inbound
	// frame after which the server is declared dead; run.go checks it
	// on every tick.
	heartbeatTimeouts = 35

	// tickInterval is how often run.go reconciles buffered facts into
	// outbound STAT events even without a wake signal.
	tickInterval = 100 // milliseconds

	// icyUpdateIntervalMS matches the teacher's ICY_UPDATE_TIME knob.
	icyUpdateIntervalMS = 10000

	// streamDelayMS is STREAM_DELAY from the original: for remote
	// non-flow tracks with a known duration, STMd additionally waits
	// until the remaining time (duration minus ms played) is below this.
	// The outputbuf must have drained in every case.
	streamDelayMS = 10000

	// maxReconnectsBeforeRediscover is N from spec §3's lifecycle note.
	maxReconnectsBeforeRediscover = 5

	// cliIdleTimeout is how long the CLI liveness socket may sit idle
	// before the protocol loop closes it (spec §4.5, §9(c)).
	cliIdleTimeout = 10 // seconds
)
