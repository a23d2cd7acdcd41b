package slimproto

import (
	"net"
	"time"
)

// tickPlan is the snapshot gathered under the S→O→D lock order and
// sent only after every facet lock has been released (spec §5's
// "post snapshot, unlock, then send" discipline).
type tickPlan struct {
	dsco       bool
	dscoReason DisconnectReason

	resp       bool
	respHeader []byte

	meta bool

	stms bool
	stmt bool
	stml bool
	stmd bool
	stmu bool
	stmo bool
	stmn bool
}

// runPlayback is the inner per-connection loop (C5): it owns the
// connection from just after HELO until the connection drops, a new
// server switch is pending, or Stop is called. Per spec §9's redesign
// note, the three facet locks remain (mirroring the original's
// granularity so §5's acquisition-order invariant stays meaningful)
// but inbound reads live on their own goroutine feeding a channel,
// rather than sharing a thread with the tick via raw select/poll.
func (ctx *PlayerContext) runPlayback(conn net.Conn) {
	frames := make(chan inboundFrame, 8)
	errc := make(chan error, 1)
	go readFrames(conn, frames, errc)

	ticker := time.NewTicker(tickInterval * time.Millisecond)
	defer ticker.Stop()

	lastRecv := time.Now()
	ctx.startCLIListener()
	defer ctx.stopCLIListener()

	for {
		select {
		case f, ok := <-frames:
			if !ok {
				return
			}
			lastRecv = time.Now()
			ctx.dispatch(conn, f)
			if !ctx.Running() || ctx.hasNewServer() {
				return
			}

		case err := <-errc:
			Logger.Info("playback: connection error", "err", err)
			return

		case <-ticker.C:
			if time.Since(lastRecv) > heartbeatTimeouts*time.Second {
				Logger.Warn("playback: heartbeat timeout", "err", ErrHeartbeatTimeout)
				return
			}
			ctx.tick(conn)
			ctx.checkCLIIdle()
			if !ctx.Running() || ctx.hasNewServer() {
				return
			}

		case <-ctx.wake:
			ctx.tick(conn)
			if !ctx.Running() || ctx.hasNewServer() {
				return
			}
		}
	}
}

// tick reconciles buffered facts into outbound STMx/RESP/META/DSCO
// events (spec §4.5, the core of C5).
func (ctx *PlayerContext) tick(conn net.Conn) {
	plan := ctx.buildTickPlan()
	ctx.sendTickPlan(conn, plan)
}

func (ctx *PlayerContext) buildTickPlan() tickPlan {
	var plan tickPlan

	ctx.Stream.mu.Lock()
	ctx.Output.mu.Lock()
	ctx.Decode.mu.Lock()

	if ctx.Stream.state == StreamDisconnect {
		plan.dsco = true
		plan.dscoReason = ctx.Stream.disconnect
		ctx.Stream.state = StreamStopped
	}

	if !ctx.Stream.sentHeaders && len(ctx.Stream.header) > 0 &&
		(ctx.Stream.state == StreamingHTTP || ctx.Stream.state == StreamingWait || ctx.Stream.state == StreamingBuffering) {
		plan.resp = true
		plan.respHeader = ctx.Stream.header
		ctx.Stream.sentHeaders = true
	}

	if ctx.Stream.metaSend {
		plan.meta = true
		ctx.Stream.metaSend = false
	}

	if ctx.flags.sentSTMu {
		ctx.Status.OutputFull = 0
	} else {
		ctx.Status.OutputFull = ctx.Outputbuf.Size() / 2
	}

	if ctx.Output.trackStarted {
		plan.stms = true
		ctx.flags.canSTMdu = true
		ctx.Output.trackStarted = false
	}

	// Upstream dies cold: the output pipeline reports itself complete
	// without ever having received a single streamed byte (spec §4.5's
	// "nothing was streamed yet output is still running and reports
	// completed" rule). Forces the render facet back to stopped and
	// queues STMn instead of the STMd/STMu pair a normal track end gets.
	if ctx.Output.state == OutputRunning && ctx.Output.completed && ctx.Stream.bytes == 0 {
		plan.stmn = true
		ctx.Output.state = OutputStopped
		ctx.Output.completed = false
		ctx.Render.mu.Lock()
		ctx.Render.state = RenderStopped
		ctx.Render.mu.Unlock()
	}

	ctx.Render.mu.Lock()
	renderStopped := ctx.Render.state == RenderStopped
	ctx.Render.mu.Unlock()

	if ctx.Output.state == OutputRunning && !ctx.flags.sentSTMu &&
		ctx.outputReadyLocked() && ctx.Stream.state <= StreamDisconnect &&
		renderStopped && ctx.flags.canSTMdu {
		plan.stmu = true
		ctx.flags.sentSTMu = true
		ctx.Status.OutputFull = 0
		ctx.Output.encodeFlow = false
		ctx.Output.state = OutputStopped
	}

	if ctx.Output.state == OutputRunning && !ctx.flags.sentSTMo &&
		ctx.Stream.state == StreamingHTTP && renderStopped && ctx.flags.canSTMdu {
		plan.stmo = true
		ctx.flags.sentSTMo = true
		ctx.Output.state = OutputStopped
	}

	if ctx.Decode.state == DecodeRunning && time.Since(ctx.Status.LastTickAt) >= time.Second {
		plan.stmt = true
		ctx.Status.LastTickAt = time.Now()
	}

	notifyPlay := false
	if !ctx.flags.sentSTMl && ctx.Decode.state == DecodeReady &&
		(ctx.Stream.state == StreamingHTTP || ctx.Stream.state == StreamingFile ||
			(ctx.Stream.state == StreamStopped && ctx.Stream.disconnect == DisconnectOK)) {
		switch ctx.flags.autostart {
		case AutostartImmediate:
			ctx.Decode.state = DecodeRunning
			plan.stml = true
			ctx.flags.sentSTMl = true
			notifyPlay = true
		case AutostartReleaseOutput:
			ctx.Decode.state = DecodeRunning
			ctx.Output.state = OutputRunning
			ctx.flags.sentSTMl = true
			notifyPlay = true
		}
	}

	decodeDone := ctx.Decode.state == DecodeComplete && ctx.flags.canSTMdu && ctx.outputReadyLocked() &&
		(ctx.Output.encodeFlow || !ctx.Output.remote || (ctx.Output.duration > 0 && ctx.Output.duration-ctx.Status.MsPlayed < streamDelayMS))
	decodeErr := ctx.Decode.state == DecodeError

	if decodeDone || decodeErr {
		if decodeDone {
			plan.stmd = true
		} else {
			plan.stmn = true
		}
		ctx.Decode.state = DecodeStopped
		if ctx.Stream.state == StreamingHTTP || ctx.Stream.state == StreamingFile {
			ctx.Stream.state = StreamDisconnect
			ctx.Stream.disconnect = DisconnectOK
		}
	}

	ctx.Status.StreamFull = ctx.Streambuf.Used()
	ctx.Status.StreamSize = ctx.Streambuf.Size()
	ctx.Status.StreamBytes = ctx.Stream.bytes
	ctx.Status.OutputSize = ctx.Outputbuf.Size()

	ctx.updateICYLocked()

	ctx.Decode.mu.Unlock()
	ctx.Output.mu.Unlock()
	ctx.Stream.mu.Unlock()

	if notifyPlay {
		ctx.invoke(ActionPlay, ctx.Callback.Play)
	}

	return plan
}

// outputReadyLocked reports whether the output pipeline has fully
// absorbed what's been decoded so far — the long-buffer discipline's
// "decode and render never overlap" condition (spec §1, invariant 2).
// Caller must hold ctx.Output.mu; Outputbuf carries its own mutex.
func (ctx *PlayerContext) outputReadyLocked() bool {
	return ctx.Outputbuf.Used() == 0
}

// updateICYLocked refreshes the ICY metadata slot when due (spec
// §4.5's ICY paragraph); caller holds Stream, Output and Decode locks.
func (ctx *PlayerContext) updateICYLocked() {
	if ctx.Output.state != OutputRunning || !ctx.Config.SendICY || ctx.Output.icy.interval == 0 {
		return
	}
	now := time.Now().UnixMilli()
	if now-ctx.Output.icy.last < icyUpdateIntervalMS {
		return
	}
	ctx.Output.icy.last = now
	if ctx.Metadata == nil {
		return
	}
	meta := ctx.Metadata.GetMetadata(0)
	ctx.Output.icy.title = meta.Title
	ctx.Stream.metaSend = true
}

// sendTickPlan sends the events gathered by buildTickPlan in the fixed
// order spec §5 requires: DSCO, STMs, STMt, STMl, STMd, STMu, STMo,
// STMn, then RESP, then META.
func (ctx *PlayerContext) sendTickPlan(conn net.Conn, plan tickPlan) {
	if plan.dsco {
		if err := writeFrame(conn, "DSCO", encodeDSCO(plan.dscoReason)); err != nil {
			Logger.Warn("tick: DSCO send failed", "err", err)
		}
	}
	if plan.stms {
		ctx.sendStat(conn, statStarted, 0)
	}
	if plan.stmt {
		ctx.sendStat(conn, statTick, 0)
	}
	if plan.stml {
		ctx.sendStat(conn, statBufLow, 0)
	}
	if plan.stmd {
		ctx.sendStat(conn, statDecodeEnd, 0)
	}
	if plan.stmu {
		ctx.sendStat(conn, statUnderrun, 0)
	}
	if plan.stmo {
		ctx.sendStat(conn, statOverrun, 0)
	}
	if plan.stmn {
		ctx.sendStat(conn, statNoCodec, 0)
	}
	if plan.resp {
		if err := writeFrame(conn, "RESP", plan.respHeader); err != nil {
			Logger.Warn("tick: RESP send failed", "err", err)
		}
	}
	if plan.meta {
		if err := writeFrame(conn, "META", []byte(ctx.Output.icy.title)); err != nil {
			Logger.Warn("tick: META send failed", "err", err)
		}
	}
}
