package slimproto

import "net/netip"

// Action identifies which Callback method a given upcall corresponds to;
// exposed mainly so hosts can log/dispatch generically if they want to.
type Action int

const (
	ActionOnOff Action = iota
	ActionVolume
	ActionPlay
	ActionPause
	ActionUnpause
	ActionStop
	ActionSetName
	ActionSetServer
	ActionSetTrack
)

func (a Action) String() string {
	switch a {
	case ActionOnOff:
		return "ON_OFF"
	case ActionVolume:
		return "VOLUME"
	case ActionPlay:
		return "PLAY"
	case ActionPause:
		return "PAUSE"
	case ActionUnpause:
		return "UNPAUSE"
	case ActionStop:
		return "STOP"
	case ActionSetName:
		return "SET_NAME"
	case ActionSetServer:
		return "SET_SERVER"
	case ActionSetTrack:
		return "SET_TRACK"
	default:
		return "UNKNOWN"
	}
}

// TrackMetadata is what the host's MetadataProvider reports for a track,
// the Go equivalent of the original's struct metadata_s.
type TrackMetadata struct {
	Duration   int64 // ms, 0 if unknown
	Bitrate    int
	Remote     bool
	SampleRate int
	SampleSize int
	Title      string
	Artist     string
	Album      string
}

// MetadataProvider supplies per-track metadata to trackprep.go (C6) and
// the ICY announcer (run.go), mirroring the original's sq_get_metadata.
// offset is how many tracks ahead of the currently rendering one this
// request is for (spec §4.6's "offset" calculation), 0 meaning the
// currently rendering track. processStart also passes 0 when the
// renderer has not reported a track index yet.
type MetadataProvider interface {
	GetMetadata(offset int) TrackMetadata
}

// TrackInfo is the SET_TRACK action's payload (spec §4.6's `info`).
type TrackInfo struct {
	MimeType string
	URI      string
	Metadata TrackMetadata
}

// Callback is the host-facing surface (spec §4.7, C7): one method per
// upcall action, synchronous, and never invoked with any facet lock
// held. A reimplementation of the original's single void-pointer
// ctx->callback with one typed variant per action, per spec §9.
type Callback interface {
	// OnOff is invoked for `aude`; on is the OR of the spdif/dac enable
	// flags.
	OnOff(on bool) bool
	// Volume is invoked for `audg` when the adjust flag is set; gain is
	// the averaged 16-bit L/R gain.
	Volume(gain uint16) bool
	// Play is invoked when decode/output is released to start (autostart
	// 0 or 1 reaching DECODE_READY).
	Play() bool
	// Pause is invoked for `strm p` with a zero interval.
	Pause() bool
	// Unpause is invoked for `strm u`.
	Unpause() bool
	// Stop is invoked for `strm q` when the last command wasn't already
	// `q`.
	Stop() bool
	// SetName is invoked when `setd` id=0 sets a new player name.
	SetName(name string) bool
	// SetServer is invoked for `serv`; addr is the new slimproto peer.
	SetServer(addr netip.Addr) bool
	// SetTrack is invoked once process_start succeeds for a new track.
	SetTrack(track TrackInfo) bool
}

// invoke dispatches to the right Callback method for action, logging the
// result. Called only with no facet lock held (spec §5).
func (ctx *PlayerContext) invoke(action Action, fn func() bool) bool {
	if ctx.Callback == nil {
		return false
	}
	ok := fn()
	Logger.Debug("callback", "action", action, "accepted", ok)
	return ok
}
