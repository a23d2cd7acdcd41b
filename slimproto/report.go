package slimproto

// This file is the host's half of the facet-state handshake: decoding
// and rendering are external collaborators per spec.md §1, and the tick
// loop in run.go can only react to decode/render state if something
// tells it when those external subsystems change. Callback (callback.go)
// carries upcalls library→host; these Report* methods carry the
// corresponding reports host→library, so the MR-side decoder/renderer
// that reacts to a SetTrack callback has a symmetric way to report back.

// ReportDecodeReady tells the loop a codec has been opened and is ready
// to run (spec §4.5's "decode READY" precondition for STMl/autostart
// branching). Only takes effect from DecodeStopped, mirroring
// process_start's fresh-track transition.
func (ctx *PlayerContext) ReportDecodeReady() {
	ctx.Decode.mu.Lock()
	if ctx.Decode.state == DecodeStopped {
		ctx.Decode.state = DecodeReady
	}
	ctx.Decode.mu.Unlock()
	ctx.Wake()
}

// ReportDecodeComplete tells the loop the current track has been fully
// decoded (spec §4.5's STMd precondition).
func (ctx *PlayerContext) ReportDecodeComplete() {
	ctx.Decode.mu.Lock()
	ctx.Decode.state = DecodeComplete
	ctx.Decode.mu.Unlock()
	ctx.Wake()
}

// ReportDecodeError tells the loop the codec failed to decode the
// current track (spec §4.5's STMn-on-error precondition).
func (ctx *PlayerContext) ReportDecodeError() {
	ctx.Decode.mu.Lock()
	ctx.Decode.state = DecodeError
	ctx.Decode.mu.Unlock()
	ctx.Wake()
}

// ReportOutputStarted tells the loop the output pipeline has begun
// producing audio for the current track (spec §4.5's "output.track_
// started → queue STMs" rule).
func (ctx *PlayerContext) ReportOutputStarted() {
	ctx.Output.mu.Lock()
	ctx.Output.trackStarted = true
	ctx.Output.mu.Unlock()
	ctx.Wake()
}

// ReportOutputRunning tells the loop the output pipeline is actively
// producing sound, the precondition buildTickPlan's STMu/STMo rules
// check (spec §4.5). Autostart's release-output path flips this
// directly; immediate-autostart tracks rely on the host reporting it
// once decoding is actually underway.
func (ctx *PlayerContext) ReportOutputRunning() {
	ctx.Output.mu.Lock()
	ctx.Output.state = OutputRunning
	ctx.Output.mu.Unlock()
	ctx.Wake()
}

// ReportOutputCompleted tells the loop the output pipeline considers
// itself done even though nothing was ever streamed in (spec §4.5's
// "nothing was streamed yet output is still running and reports
// completed" branch — the upstream-dies-cold path).
func (ctx *PlayerContext) ReportOutputCompleted() {
	ctx.Output.mu.Lock()
	ctx.Output.completed = true
	ctx.Output.mu.Unlock()
	ctx.Wake()
}

// ReportRenderState publishes the renderer's play/pause/stop state,
// read by the tick loop's STMu/STMo preconditions ("render STOPPED").
func (ctx *PlayerContext) ReportRenderState(state RenderState) {
	ctx.Render.mu.Lock()
	ctx.Render.state = state
	ctx.Render.mu.Unlock()
	ctx.Wake()
}

// ReportRenderProgress publishes the renderer's current track index and
// elapsed playback time, used by trackprep.go's offset calculation and
// STAT's elapsed fields.
func (ctx *PlayerContext) ReportRenderProgress(index int64, msPlayed int64) {
	ctx.Render.mu.Lock()
	ctx.Render.index = index
	ctx.Render.msPlayed = msPlayed
	ctx.Render.mu.Unlock()
	ctx.Status.MsPlayed = msPlayed
}
