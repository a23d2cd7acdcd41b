package slimproto

import "errors"

// Sentinel errors surfaced internally for logging and tests. Per spec
// §7's propagation policy none of these ever reach the host directly;
// the protocol loop logs them and falls back to the reconnect loop.
var (
	ErrFrameTooLarge    = errors.New("slimproto: inbound frame exceeds MAXBUF")
	ErrPeerClosed       = errors.New("slimproto: peer closed connection")
	ErrHeartbeatTimeout = errors.New("slimproto: no inbound frame for 35s, server presumed dead")
	ErrCodecOpenFailed  = errors.New("slimproto: codec open failed")
	ErrUpstreamStalled  = errors.New("slimproto: upstream HTTP stream produced zero bytes")
	ErrNoMimeType       = errors.New("slimproto: no compatible mimetype for track")
)
