package slimproto

import (
	"bufio"
	"net"
	"net/netip"
)

// startUpstream dials the upstream HTTP origin named by a `strm s`
// frame and forwards request exactly as received (spec §6: "Request
// bytes are exactly the bytes carried after the strm_packet struct").
// The actual HTTP streaming reader is an external collaborator per
// spec §1; this provides just enough of it — connect, send request,
// capture response headers, count bytes into Streambuf — to drive the
// state machine's stream facet. Codec decoding and rendering remain
// entirely the host's responsibility via Callback/MetadataProvider.
func (ctx *PlayerContext) startUpstream(addr netip.AddrPort, request []byte) {
	ctx.Stream.mu.Lock()
	ctx.Stream.state = StreamingWait
	ctx.Stream.bytes = 0
	ctx.Stream.header = nil
	ctx.Stream.sentHeaders = false
	ctx.Stream.mu.Unlock()

	go func() {
		conn, err := net.DialTimeout("tcp", addr.String(), connectTimeout)
		if err != nil {
			Logger.Warn("startUpstream: dial failed", "addr", addr, "err", err)
			ctx.disconnectStream(DisconnectUnreachable)
			return
		}
		defer conn.Close()

		if _, err := sendAll(conn, request); err != nil {
			Logger.Warn("startUpstream: request send failed", "err", err)
			ctx.disconnectStream(DisconnectError)
			return
		}

		reader := bufio.NewReader(conn)
		header, err := readHTTPHeader(reader)
		if err != nil {
			Logger.Warn("startUpstream: reading response header failed", "err", err)
			ctx.disconnectStream(DisconnectError)
			return
		}

		ctx.Stream.mu.Lock()
		ctx.Stream.header = header
		ctx.Stream.state = StreamingHTTP
		ctx.Stream.mu.Unlock()
		ctx.Wake()

		buf := make([]byte, 32*1024)
		var total int64
		for {
			n, err := reader.Read(buf)
			if n > 0 {
				total += int64(n)
				ctx.Streambuf.Write(buf[:n])
				ctx.Stream.mu.Lock()
				ctx.Stream.bytes += int64(n)
				ctx.Stream.mu.Unlock()
			}
			if err != nil {
				break
			}
			if !ctx.streamStillWanted() {
				break
			}
		}

		if total == 0 {
			Logger.Warn("startUpstream: stream produced no bytes", "err", ErrUpstreamStalled)
		}
		ctx.disconnectStream(DisconnectOK)
	}()
}

func (ctx *PlayerContext) streamStillWanted() bool {
	ctx.Stream.mu.Lock()
	defer ctx.Stream.mu.Unlock()
	return ctx.Stream.state == StreamingHTTP || ctx.Stream.state == StreamingWait || ctx.Stream.state == StreamingBuffering
}

func (ctx *PlayerContext) disconnectStream(reason DisconnectReason) {
	ctx.Stream.mu.Lock()
	if ctx.Stream.state != StreamStopped {
		ctx.Stream.state = StreamDisconnect
		ctx.Stream.disconnect = reason
	}
	ctx.Stream.mu.Unlock()
	ctx.Wake()
}

// readHTTPHeader reads raw header bytes up to and including the blank
// line terminating an HTTP response, without parsing it — run.go's
// sendTickPlan forwards these bytes to LMS verbatim via RESP.
func readHTTPHeader(r *bufio.Reader) ([]byte, error) {
	var header []byte
	for {
		line, err := r.ReadBytes('\n')
		if err != nil {
			return nil, err
		}
		header = append(header, line...)
		if len(line) <= 2 { // "\r\n" or "\n": end of header block
			return header, nil
		}
		if len(header) > MaxHeaderLen*2 {
			return header, nil
		}
	}
}
