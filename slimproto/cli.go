package slimproto

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/lestrrat-go/strftime"
)

// cliListener is the optional liveness socket LMS probes to check the
// player is alive (spec §4.5's "CLI liveness" paragraph). Kept simple:
// one accepted connection at a time, closed cliIdleTimeout seconds
// after it was accepted; nothing read from or written to the
// connection refreshes that time. Grounded on the teacher's kissnet.go
// accept-loop shape (connect_listen_thread), trimmed to a single
// client since the CLI socket here is advisory, not a command channel.
type cliListener struct {
	mu       sync.Mutex
	listener net.Listener
	conn     net.Conn
	lastUse  time.Time
}

func (ctx *PlayerContext) startCLIListener() {
	if ctx.Config.CLIPort == 0 {
		return
	}
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", ctx.Config.CLIPort))
	if err != nil {
		Logger.Warn("cli: listen failed", "port", ctx.Config.CLIPort, "err", err)
		return
	}
	cli := &cliListener{listener: ln}
	ctx.cli = cli

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return // listener closed
			}
			cli.mu.Lock()
			if cli.conn != nil {
				cli.conn.Close()
			}
			cli.conn = conn
			cli.lastUse = time.Now()
			cli.mu.Unlock()
			Logger.Info("cli: connection accepted", "prefix", ctx.cliLogPrefix(), "remote", conn.RemoteAddr())
		}
	}()
}

// cliLogPrefix renders Config.TimestampFormat against the current time,
// following the teacher's kissutil.go --timestamp-format convention for
// prefixing log lines; empty when unset or the pattern fails to parse.
func (ctx *PlayerContext) cliLogPrefix() string {
	if ctx.Config.TimestampFormat == "" {
		return ""
	}
	s, err := strftime.Format(ctx.Config.TimestampFormat, time.Now())
	if err != nil {
		return ""
	}
	return s
}

func (ctx *PlayerContext) stopCLIListener() {
	if ctx.cli == nil {
		return
	}
	ctx.cli.listener.Close()
	ctx.cli.mu.Lock()
	if ctx.cli.conn != nil {
		ctx.cli.conn.Close()
	}
	ctx.cli.mu.Unlock()
	ctx.cli = nil
}

// checkCLIIdle closes the CLI connection once cliIdleTimeout seconds
// have passed since it was accepted, using a non-blocking TryLock so a busy CLI
// goroutine never stalls the protocol loop's tick (spec §5's
// mutex_trylock note), and a monotonic time.Since comparison rather
// than the original's wrap-around-prone timestamp arithmetic (spec
// §9 open question (c)).
func (ctx *PlayerContext) checkCLIIdle() {
	if ctx.cli == nil {
		return
	}
	if !ctx.cli.mu.TryLock() {
		return
	}
	defer ctx.cli.mu.Unlock()
	if ctx.cli.conn == nil {
		return
	}
	if time.Since(ctx.cli.lastUse) >= cliIdleTimeout*time.Second {
		ctx.cli.conn.Close()
		ctx.cli.conn = nil
	}
}
