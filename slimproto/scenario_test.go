package slimproto

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newScenarioContext builds a context with a dedicated net.Pipe whose
// peer side is read by the caller (unlike newTickTestContext's
// drainFrames, nothing here discards outbound frames), for tests that
// walk multiple ticks end to end and assert on the resulting frame
// sequence.
func newScenarioContext(t *testing.T) (*PlayerContext, net.Conn, net.Conn) {
	t.Helper()
	cb := &recordingCallback{}
	cfg := DefaultConfig()
	cfg.MimeTypes = []MimeCapability{{Format: 'm', MimeType: "audio/mpeg"}}
	require.NoError(t, cfg.Validate())
	ctx := NewPlayerContext(cfg, cb, fixedMetadata{})
	conn, peer := net.Pipe()
	t.Cleanup(func() { conn.Close(); peer.Close() })
	return ctx, conn, peer
}

func countEvents(frames []outboundFrame) map[statEvent]int {
	counts := make(map[statEvent]int)
	for _, f := range frames {
		if f.opcode == "STAT" {
			counts[statEvent(f.body[:4])]++
		}
	}
	return counts
}

func opcodes(frames []outboundFrame) []string {
	var out []string
	for _, f := range frames {
		out = append(out, f.opcode)
	}
	return out
}

// Scenario 1 (spec §8): cold start, one track, normal end.
func Test_scenario_coldStartNormalEnd(t *testing.T) {
	ctx, conn, peer := newScenarioContext(t)
	cb := ctx.Callback.(*recordingCallback)

	got := make(chan []outboundFrame, 1)
	go func() { got <- readOutboundFrames(peer) }()

	ctx.handleStrm(conn, buildStrmFrame('s', '0', 'm', '3', '0', '2', '0', 0,
		[]byte("GET /stream HTTP/1.0\r\n\r\n")))

	// Upstream connects and starts delivering bytes; the host's decoder
	// opens the codec and output begins producing sound.
	ctx.Stream.mu.Lock()
	ctx.Stream.state = StreamingHTTP
	ctx.Stream.header = []byte("HTTP/1.0 200 OK\r\n\r\n")
	ctx.Stream.mu.Unlock()
	ctx.ReportDecodeReady()

	plan := ctx.buildTickPlan()
	ctx.sendTickPlan(conn, plan)
	require.True(t, plan.stml, "decode ready under autostart immediate fires STMl and starts decode")
	assert.Equal(t, 1, cb.played)

	// Render is actively playing at this point; STMu (closing the track)
	// must not fire until render later reports itself stopped.
	ctx.ReportRenderState(RenderPlaying)
	ctx.ReportOutputRunning()
	ctx.ReportOutputStarted()
	plan = ctx.buildTickPlan()
	ctx.sendTickPlan(conn, plan)
	require.True(t, plan.stms, "output reporting started fires exactly one STMs")
	assert.False(t, plan.stmu, "render still playing: no closing STMu yet")

	// A second passes while decoding; one STMt per tick interval.
	ctx.Status.LastTickAt = ctx.Status.LastTickAt.Add(-2 * time.Second)
	plan = ctx.buildTickPlan()
	ctx.sendTickPlan(conn, plan)
	require.True(t, plan.stmt)

	// Upstream hits EOF, decode completes, and output has drained.
	ctx.Stream.mu.Lock()
	ctx.Stream.bytes = 65536
	ctx.Stream.state = StreamDisconnect
	ctx.Stream.disconnect = DisconnectOK
	ctx.Stream.mu.Unlock()
	ctx.ReportDecodeComplete()

	plan = ctx.buildTickPlan()
	ctx.sendTickPlan(conn, plan)
	require.True(t, plan.dsco)
	require.True(t, plan.stmd, "decode complete with a drained output buffer fires STMd")

	// Render drains the last of the audio and reports itself stopped.
	ctx.ReportRenderState(RenderStopped)
	plan = ctx.buildTickPlan()
	ctx.sendTickPlan(conn, plan)
	require.True(t, plan.stmu, "render stopped with canSTMdu latched fires the closing STMu")

	conn.Close()
	frames := <-got
	counts := countEvents(frames)
	assert.Equal(t, 1, counts[statStarted])
	assert.Equal(t, 1, counts[statDecodeEnd])
	assert.Equal(t, 1, counts[statUnderrun])
	assert.Zero(t, counts[statOverrun])
	assert.Zero(t, counts[statNoCodec])
}

// Scenario 2 (spec §8): pause then unpause.
func Test_scenario_pauseUnpause(t *testing.T) {
	ctx, conn, peer := newScenarioContext(t)
	cb := ctx.Callback.(*recordingCallback)
	go drainFrames(peer)

	ctx.handleStrm(conn, buildStrmFrame('p', '0', '?', '0', '0', '0', '?', 0, nil))
	assert.Equal(t, 1, cb.paused)
	ctx.Output.mu.Lock()
	assert.Equal(t, OutputWaiting, ctx.Output.state)
	ctx.Output.mu.Unlock()

	ctx.handleStrm(conn, buildStrmFrame('u', '0', '?', '0', '0', '0', '?', 500, nil))
	assert.Equal(t, 1, cb.unpaused)
	ctx.Output.mu.Lock()
	assert.Equal(t, OutputRunning, ctx.Output.state)
	assert.Equal(t, uint32(500), ctx.Output.startAt, "unpause carries the jiffies resume point verbatim")
	ctx.Output.mu.Unlock()
}

// Scenario 3 (spec §8): deferred codec negotiation via `strm s` with
// format '?' followed by `codc`, then `cont` releasing the wait.
func Test_scenario_deferredCodec(t *testing.T) {
	ctx, conn, peer := newScenarioContext(t)
	go drainFrames(peer)

	ctx.handleStrm(conn, buildStrmFrame('s', '2', '?', '0', '0', '0', '?', 0, nil))
	ctx.Decode.mu.Lock()
	decodeUntouched := ctx.Decode.state == DecodeStopped
	ctx.Decode.mu.Unlock()
	assert.True(t, decodeUntouched, "deferred format: process_start does not run yet")
	assert.Equal(t, AutostartWaitCont, ctx.flags.autostart)

	ctx.handleCodc(conn, []byte{'m', '3', '1', '2', '1'})
	ctx.ReportDecodeReady()
	ctx.Decode.mu.Lock()
	assert.Equal(t, DecodeReady, ctx.Decode.state)
	ctx.Decode.mu.Unlock()

	ctx.Stream.mu.Lock()
	ctx.Stream.state = StreamingWait
	ctx.Stream.mu.Unlock()

	body := make([]byte, 5)
	body[4] = 0
	ctx.handleCont(body)
	assert.Equal(t, Autostart(0), ctx.flags.autostart, "cont advances WaitCont down to Immediate")
	ctx.Stream.mu.Lock()
	assert.Equal(t, StreamingBuffering, ctx.Stream.state)
	ctx.Stream.mu.Unlock()

	select {
	case <-ctx.wake:
	case <-time.After(time.Second):
		t.Fatal("expected wake signal from handleCont")
	}

	ctx.Stream.mu.Lock()
	ctx.Stream.state = StreamingHTTP
	ctx.Stream.mu.Unlock()

	plan := ctx.buildTickPlan()
	assert.True(t, plan.stml, "once buffering/HTTP and decode ready line up, STMl fires same as a normal start")
}

// Scenario 4 (spec §8): server switch via `serv`.
func Test_scenario_serverSwitch(t *testing.T) {
	ctx, conn, peer := newScenarioContext(t)
	cb := ctx.Callback.(*recordingCallback)
	go drainFrames(peer)
	_ = conn

	body := make([]byte, 14)
	body[0], body[1], body[2], body[3] = 192, 168, 1, 20
	copy(body[4:], "ABCDEFGHIJ")
	ctx.handleServ(body)

	require.Len(t, cb.servers, 1)
	assert.Equal(t, "192.168.1.20", cb.servers[0].String())

	assert.True(t, ctx.hasNewServer())
	addr, capSuffix, ok := ctx.takeNewServer()
	require.True(t, ok)
	assert.Equal(t, "192.168.1.20", addr.String())
	assert.Equal(t, ",SyncgroupID=ABCDEFGHIJ", capSuffix)
	assert.False(t, ctx.hasNewServer(), "takeNewServer clears the pending switch")
}

// Scenario 5 (spec §8): upstream dies cold — output claims completed
// without ever having received a byte.
func Test_scenario_upstreamDiesCold(t *testing.T) {
	ctx, conn, peer := newScenarioContext(t)
	got := make(chan []outboundFrame, 1)
	go func() { got <- readOutboundFrames(peer) }()

	ctx.handleStrm(conn, buildStrmFrame('s', '0', 'm', '3', '0', '2', '0', 0,
		[]byte("GET /stream HTTP/1.0\r\n\r\n")))

	ctx.Output.mu.Lock()
	ctx.Output.state = OutputRunning
	ctx.Output.mu.Unlock()
	ctx.ReportOutputCompleted()

	plan := ctx.buildTickPlan()
	ctx.sendTickPlan(conn, plan)
	require.True(t, plan.stmn, "output completed with zero stream bytes fires STMn, not STMd")
	assert.False(t, plan.stmd)
	ctx.Output.mu.Lock()
	assert.Equal(t, OutputStopped, ctx.Output.state)
	ctx.Output.mu.Unlock()
	ctx.Render.mu.Lock()
	assert.Equal(t, RenderStopped, ctx.Render.state)
	ctx.Render.mu.Unlock()

	conn.Close()
	frames := <-got
	counts := countEvents(frames)
	assert.Equal(t, 1, counts[statNoCodec])
	assert.Zero(t, counts[statDecodeEnd])
}

// runPlayback stays up while the connection is briefly idle and returns
// once Stop is called. The 35-second heartbeat timeout itself is not
// exercised here: heartbeatTimeouts is a constant, so waiting it out
// would take 35 seconds.
func Test_scenario_runPlaybackExitsOnStop(t *testing.T) {
	ctx, conn, peer := newScenarioContext(t)
	go drainFrames(peer)

	done := make(chan struct{})
	go func() {
		ctx.runPlayback(conn)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("runPlayback returned while the connection was merely idle")
	case <-time.After(50 * time.Millisecond):
	}

	ctx.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected runPlayback to exit once Stop was called")
	}
}
