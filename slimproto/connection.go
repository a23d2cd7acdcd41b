package slimproto

import (
	"context"
	"net"
	"net/netip"
	"strconv"
	"time"
)

const (
	connectTimeout    = 5 * time.Second
	reconnectDelay    = 5 * time.Second
)

// fixedServer reports whether cfg names a specific server rather than
// asking for discovery (spec §4.3 step 3's "no fixed server configured"
// gate on rediscovery-after-failures).
func (c *Config) fixedServer() bool {
	return c.Server != "" && c.Server != "?"
}

// Run is the outer reconnect loop (C3): discover, dial, HELO, hand off
// to the playback state machine (C5, run.go), and repeat until Stop is
// called. Grounded on the teacher's igate.go connect_thread shape: a
// bare `for running` loop that dials, logs, and falls through to a
// sleep-and-retry on failure, except here failures and the inner
// playback loop both feed back into one reconnect cycle.
func (ctx *PlayerContext) Run(parent context.Context) {
	firstConnect := true
	for ctx.Running() {
		if addr, capSuffix, ok := ctx.takeNewServer(); ok {
			ctx.rediscoverAgainst(parent, addr)
			ctx.VarCap = capSuffix
		}

		if !ctx.serverAddr.IsValid() {
			if err := ctx.discoverAndSet(parent); err != nil {
				if !ctx.Running() {
					return
				}
				time.Sleep(reconnectDelay)
				continue
			}
		}

		conn, err := net.DialTimeout("tcp", ctx.serverAddr.String(), connectTimeout)
		if err != nil {
			Logger.Warn("connection: dial failed", "addr", ctx.serverAddr, "err", err)
			ctx.failedConnects++
			if ctx.failedConnects >= maxReconnectsBeforeRediscover && !ctx.Config.fixedServer() {
				Logger.Info("connection: too many failures, rediscovering")
				ctx.serverAddr = netip.AddrPort{}
				ctx.failedConnects = 0
			}
			time.Sleep(reconnectDelay)
			continue
		}

		ctx.failedConnects = 0
		ctx.conn = conn
		Logger.Info("connection: connected", "addr", ctx.serverAddr, "reconnect", ctx.reconnected)

		ctx.reconnected = !firstConnect
		helo := encodeHELO(ctx.MAC, ctx.reconnected, uint64(ctx.Status.StreamBytes), ctx.capabilities())
		if err := writeFrame(conn, "HELO", helo); err != nil {
			Logger.Warn("connection: HELO send failed", "err", err)
			conn.Close()
			ctx.conn = nil
			time.Sleep(reconnectDelay)
			continue
		}
		firstConnect = false

		ctx.runPlayback(conn)

		conn.Close()
		ctx.conn = nil
	}
}

const baseCap = "Model=squeezelite,ModelName=SqueezeLite,AccuratePlayPoints=0,HasDigitalOut=1"

func (ctx *PlayerContext) capabilities() string {
	return baseCap + ctx.FixedCap + ctx.VarCap
}

func (ctx *PlayerContext) discoverAndSet(parent context.Context) error {
	target := netip.IPv4Unspecified()
	if ctx.Config.fixedServer() {
		host, port := splitHostPort(ctx.Config.Server, ctx.Config.DiscoveryPort)
		addr, err := netip.ParseAddr(host)
		if err != nil {
			resolved, err := net.ResolveIPAddr("ip4", host)
			if err != nil {
				return err
			}
			a, _ := netip.AddrFromSlice(resolved.IP.To4())
			ctx.serverAddr = netip.AddrPortFrom(a, uint16(port))
			return nil
		}
		ctx.serverAddr = netip.AddrPortFrom(addr, uint16(port))
		return nil
	}

	srv, err := discoverServer(parent, target, ctx.Config.DiscoveryPort, ctx.Running)
	if err != nil {
		return err
	}
	ctx.serverAddr = srv.Addr
	ctx.cliPort = srv.CLIPort
	return nil
}

func (ctx *PlayerContext) rediscoverAgainst(parent context.Context, addr netip.Addr) {
	srv, err := discoverServer(parent, addr, ctx.Config.DiscoveryPort, ctx.Running)
	if err != nil {
		ctx.serverAddr = netip.AddrPortFrom(addr, uint16(ctx.Config.DiscoveryPort))
		return
	}
	ctx.serverAddr = srv.Addr
	ctx.cliPort = srv.CLIPort
}

func splitHostPort(server string, defaultPort int) (string, int) {
	host, portStr, err := net.SplitHostPort(server)
	if err != nil {
		return server, defaultPort
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, defaultPort
	}
	return host, port
}
