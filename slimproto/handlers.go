package slimproto

import (
	"net"
	"net/netip"
)

// handleStrm dispatches a `strm` frame's subcommand (spec §4.4).
func (ctx *PlayerContext) handleStrm(conn net.Conn, body []byte) {
	if len(body) < strmHeaderLen {
		Logger.Warn("handleStrm: short frame", "len", len(body))
		return
	}
	f := decodeStrm(body)

	switch f.command {
	case 't':
		ctx.sendStat(conn, statTick, f.replayGain)
	case 'f':
		ctx.Decode.mu.Lock()
		ctx.Decode.state = DecodeStopped
		ctx.Decode.mu.Unlock()
		ctx.Output.mu.Lock()
		ctx.Output.state = OutputStopped
		ctx.Output.mu.Unlock()
		ctx.Stream.mu.Lock()
		ctx.Stream.state = StreamStopped
		ctx.Stream.mu.Unlock()
		ctx.Status.MsPlayed = 0
		ctx.sendStat(conn, statFlushed, 0)
		ctx.Streambuf.Flush()
	case 'q':
		ctx.Decode.mu.Lock()
		ctx.Decode.state = DecodeStopped
		ctx.Decode.mu.Unlock()
		ctx.Output.mu.Lock()
		ctx.Output.state = OutputStopped
		ctx.Output.mu.Unlock()
		ctx.Status.MsPlayed = 0
		ctx.Stream.mu.Lock()
		wasStreaming := ctx.Stream.state != StreamStopped
		ctx.Stream.state = StreamStopped
		ctx.Stream.mu.Unlock()
		if wasStreaming {
			ctx.sendStat(conn, statFlushed, 0)
		}
		ctx.Streambuf.Flush()
		if ctx.flags.lastCmd != 'q' {
			ctx.invoke(ActionStop, ctx.Callback.Stop)
		}
	case 'p':
		interval := f.replayGain
		if interval == 0 {
			ctx.Output.mu.Lock()
			ctx.Output.state = OutputWaiting
			ctx.Output.mu.Unlock()
			ctx.invoke(ActionPause, ctx.Callback.Pause)
			ctx.sendStat(conn, statPaused, 0)
		}
	case 'a':
		Logger.Info("handleStrm: skip-ahead ignored", "interval", f.replayGain)
	case 'u':
		jiffies := f.replayGain
		ctx.invoke(ActionUnpause, ctx.Callback.Unpause)
		ctx.Output.mu.Lock()
		ctx.Output.state = OutputRunning
		ctx.Output.startAt = jiffies
		ctx.Output.mu.Unlock()
		ctx.sendStat(conn, statResumed, 0)
	case 's':
		ctx.handleStrmStart(conn, f)
	default:
		Logger.Warn("handleStrm: unknown command", "command", string(f.command))
	}

	ctx.flags.lastCmd = f.command
}

func (ctx *PlayerContext) handleStrmStart(conn net.Conn, f strmFrame) {
	ctx.sendStat(conn, statFlushed, 0)

	if len(f.header) > MaxHeaderLen {
		Logger.Warn("handleStrm: header too long", "len", len(f.header))
		return
	}

	autostart := Autostart(f.autostart - '0')
	ctx.flags.autostart = autostart

	ctx.Output.mu.Lock()
	ctx.Output.nextReplayGain = f.replayGain
	ctx.Output.fadeMode = int(f.transitionType - '0')
	ctx.Output.fadeSecs = int(f.transitionPeriod)
	ctx.Output.mu.Unlock()

	ip := ipv4FromUint32(f.serverIP)
	if f.serverIP == 0 {
		ip = ctx.serverAddr.Addr()
	}
	port := f.serverPort
	if port == 0 {
		port = uint16(DefaultPort)
	}

	ctx.resetStickyFlags()

	sendSTMn := false
	if f.format != '?' {
		if err := ctx.processStart(f.format, f.pcmSampleRate, f.pcmSampleSize, f.pcmChannels, f.pcmEndianness); err != nil {
			Logger.Warn("handleStrm: process_start failed", "err", err)
			sendSTMn = true
		}
	}

	ctx.startUpstream(netip.AddrPortFrom(ip, port), f.header)
	ctx.sendStat(conn, statConnect, 0)

	if sendSTMn {
		ctx.sendStat(conn, statNoCodec, 0)
	}
}

// handleCont unblocks the "wait for codc" path (spec §4.4).
func (ctx *PlayerContext) handleCont(body []byte) {
	if len(body) < 5 {
		return
	}
	f := decodeCont(body)
	Logger.Debug("handleCont", "metaint", f.metaint, "loop", f.loop)

	if ctx.flags.autostart > 1 {
		ctx.flags.autostart -= 2
		ctx.Stream.mu.Lock()
		if ctx.Stream.state == StreamingWait {
			ctx.Stream.state = StreamingBuffering
			ctx.Stream.metaInterval = int(f.metaint)
			ctx.Stream.metaNext = int(f.metaint)
		}
		ctx.Stream.mu.Unlock()
		ctx.Wake()
	}
}

// handleCodc is the deferred codec announcement (spec §4.4).
func (ctx *PlayerContext) handleCodc(conn net.Conn, body []byte) {
	if len(body) < 5 {
		return
	}
	f := decodeCodc(body)
	if err := ctx.processStart(f.format, f.pcmSampleRate, f.pcmSampleSize, f.pcmChannels, f.pcmEndianness); err != nil {
		Logger.Warn("handleCodc: process_start failed", "format", string(f.format), "err", err)
		ctx.sendStat(conn, statNoCodec, 0)
	}
}

// handleAude forwards the spdif/dac on/off flags to the host (spec §4.4).
func (ctx *PlayerContext) handleAude(body []byte) {
	if len(body) < 2 {
		return
	}
	f := decodeAude(body)
	on := f.enableSPDIF != 0 || f.enableDAC != 0
	ctx.invoke(ActionOnOff, func() bool { return ctx.Callback.OnOff(on) })
}

// handleAudg averages the legacy L/R gain fields and forwards VOLUME
// (spec §4.4, and open question (b): this is (gainL+gainR)/2, not the
// original's (gainL+gainL)/2 copy-paste bug).
func (ctx *PlayerContext) handleAudg(body []byte) {
	if len(body) < 9 {
		return
	}
	f := decodeAudg(body)
	if f.adjust == 0 {
		return
	}
	gain := uint16((f.oldGainL + f.oldGainR) / 2)
	ctx.invoke(ActionVolume, func() bool { return ctx.Callback.Volume(gain) })
}

// MaxHeaderLen bounds the strm `s` header bytes (spec §4.4's MAX_HEADER
// check).
const MaxHeaderLen = 4096

// handleSetd implements the player-name query/set protocol (spec §4.4).
func (ctx *PlayerContext) handleSetd(conn net.Conn, body []byte) {
	if len(body) < 1 {
		return
	}
	f := decodeSetd(body)
	if f.id != 0 {
		return
	}
	switch {
	case len(f.data) == 0:
		if ctx.DeviceName != "" {
			_ = writeFrame(conn, "SETD", encodeSETDName(ctx.DeviceName))
		}
	default:
		name := trimNUL(f.data)
		if len(name) > maxNameLen-1 {
			name = name[:maxNameLen-1]
		}
		ctx.DeviceName = name
		_ = writeFrame(conn, "SETD", encodeSETDName(name))
		ctx.invoke(ActionSetName, func() bool { return ctx.Callback.SetName(name) })
	}
}

// maxNameLen mirrors the original's _STR_LEN_ (255), clamping the
// payload to 254 bytes before it's echoed back so the wire contract
// with LMS is preserved (spec §9 open question (d)).
const maxNameLen = 255

func trimNUL(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// handleServ implements the server-switch protocol (spec §4.4).
func (ctx *PlayerContext) handleServ(body []byte) {
	if len(body) < 4 {
		return
	}
	f := decodeServ(body)

	capSuffix := ""
	if len(f.syncPayload) == 10 {
		capSuffix = ",SyncgroupID=" + string(f.syncPayload)
	}

	addr := ipv4FromUint32(f.ip)
	ctx.invoke(ActionSetServer, func() bool { return ctx.Callback.SetServer(addr) })
	ctx.SetNewServer(addr, capSuffix)
}

// sendStat writes a STAT frame using the current status snapshot.
func (ctx *PlayerContext) sendStat(conn net.Conn, event statEvent, serverTimestamp uint32) {
	body := encodeSTAT(event, ctx.Status, serverTimestamp)
	if err := writeFrame(conn, "STAT", body); err != nil {
		Logger.Warn("sendStat: write failed", "event", event, "err", err)
	}
}
