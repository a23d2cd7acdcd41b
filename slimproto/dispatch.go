package slimproto

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
)

// inboundFrame is one fully-read inbound frame: opcode plus whatever
// bytes follow it (spec §4.4's "dispatch by first 4 bytes").
type inboundFrame struct {
	opcode string
	body   []byte
}

// readFrames owns the blocking read side of the connection, decoupling
// it from the select-driven tick loop in run.go: inbound frames reach
// the loop over a channel, while the stream/output/decode facets keep
// their own mutexes. It reads frames
// until the connection errors or closes, then closes frames and
// returns the terminal error on errc.
func readFrames(conn net.Conn, frames chan<- inboundFrame, errc chan<- error) {
	defer close(frames)
	var lenBuf [2]byte
	for {
		if _, err := io.ReadFull(conn, lenBuf[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				err = fmt.Errorf("%w: %v", ErrPeerClosed, err)
			}
			errc <- err
			return
		}
		length := binary.BigEndian.Uint16(lenBuf[:])
		if int(length) > MaxFrameBody {
			errc <- fmt.Errorf("%w: %d", ErrFrameTooLarge, length)
			return
		}
		body := make([]byte, length)
		if length > 0 {
			if _, err := io.ReadFull(conn, body); err != nil {
				errc <- err
				return
			}
		}
		if len(body) < 4 {
			continue // malformed, too short to carry an opcode; ignore
		}
		frames <- inboundFrame{opcode: string(body[:4]), body: body[4:]}
	}
}

// opcodeHandler pairs a 4-byte opcode tag with the function that
// handles it (spec §4.4). A table in opcode-frequency order, rather
// than a type switch, so adding an opcode is a one-line append and the
// routing itself carries no branching logic of its own.
type opcodeHandler struct {
	tag string
	fn  func(ctx *PlayerContext, conn net.Conn, body []byte)
}

var opcodeHandlers = []opcodeHandler{
	{"strm", func(ctx *PlayerContext, conn net.Conn, body []byte) { ctx.handleStrm(conn, body) }},
	{"cont", func(ctx *PlayerContext, conn net.Conn, body []byte) { ctx.handleCont(body) }},
	{"codc", func(ctx *PlayerContext, conn net.Conn, body []byte) { ctx.handleCodc(conn, body) }},
	{"aude", func(ctx *PlayerContext, conn net.Conn, body []byte) { ctx.handleAude(body) }},
	{"audg", func(ctx *PlayerContext, conn net.Conn, body []byte) { ctx.handleAudg(body) }},
	{"setd", func(ctx *PlayerContext, conn net.Conn, body []byte) { ctx.handleSetd(conn, body) }},
	{"serv", func(ctx *PlayerContext, conn net.Conn, body []byte) { ctx.handleServ(body) }},
	{"vers", func(ctx *PlayerContext, conn net.Conn, body []byte) {
		Logger.Debug("dispatch: vers", "body", string(body))
	}},
	{"ledc", func(ctx *PlayerContext, conn net.Conn, body []byte) {
		Logger.Debug("dispatch: ledc", "body", string(body))
	}},
}

// dispatch routes one inbound frame to its handler (spec §4.4). Unknown
// opcodes are logged and ignored, never torn down.
func (ctx *PlayerContext) dispatch(conn net.Conn, f inboundFrame) {
	for _, h := range opcodeHandlers {
		if h.tag == f.opcode {
			h.fn(ctx, conn, f.body)
			return
		}
	}
	Logger.Debug("dispatch: unknown opcode", "opcode", f.opcode)
}
