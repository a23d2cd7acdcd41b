package slimproto

import (
	"bytes"
	"context"
	"net"
	"net/netip"
	"time"
)

// DiscoveredServer is what C2 hands back to the connection manager.
type DiscoveredServer struct {
	Addr    netip.AddrPort
	CLIPort uint16
	Version string
}

// discoveryRequestBody is `e` || "VERS\0JSON\0CLIP\0" (spec §4.2, §6).
var discoveryRequestBody = append([]byte{'e'}, []byte("VERS\x00JSON\x00CLIP\x00")...)

// discoverServer sends a UDP probe and waits up to 5s per attempt,
// retrying forever while running() is true. target is the broadcast or
// unicast address to probe; port is usually DefaultPort. Mirrors the
// original's discover_server polling loop, adapted to Go's net package
// instead of raw sockets.
func discoverServer(ctx context.Context, target netip.Addr, port int, running func() bool) (DiscoveredServer, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return DiscoveredServer{}, err
	}
	defer conn.Close()

	dst := &net.UDPAddr{IP: target.AsSlice(), Port: port}
	if target.IsUnspecified() || !target.IsValid() {
		dst = &net.UDPAddr{IP: net.IPv4bcast, Port: port}
	}

	buf := make([]byte, 512)
	for running() {
		if _, err := conn.WriteToUDP(discoveryRequestBody, dst); err != nil {
			Logger.Warn("discovery: broadcast failed", "err", err)
			time.Sleep(time.Second)
			continue
		}

		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			continue // timeout or transient error; retry
		}

		srv, ok := parseDiscoveryResponse(buf[:n])
		if !ok {
			continue
		}
		fromAddr, _ := netip.AddrFromSlice(from.IP.To4())
		srv.Addr = netip.AddrPortFrom(fromAddr, srv.Addr.Port())
		Logger.Info("discovery: found server", "addr", srv.Addr, "version", srv.Version)
		return srv, nil
	}
	return DiscoveredServer{}, context.Canceled
}

// parseDiscoveryResponse locates the VERS/JSON/CLIP tags anywhere in
// the response (spec §4.2): each tag is followed by a single-byte
// length then that many ASCII chars.
func parseDiscoveryResponse(resp []byte) (DiscoveredServer, bool) {
	var srv DiscoveredServer
	var jsonPort, cliPort uint16
	found := false

	for _, tag := range []string{"VERS", "JSON", "CLIP"} {
		idx := bytes.Index(resp, []byte(tag))
		if idx < 0 || idx+5 > len(resp) {
			continue
		}
		n := int(resp[idx+4])
		start := idx + 5
		if start+n > len(resp) {
			continue
		}
		value := string(resp[start : start+n])
		switch tag {
		case "VERS":
			srv.Version = value
			found = true
		case "JSON":
			jsonPort = parsePortString(value)
		case "CLIP":
			cliPort = parsePortString(value)
		}
	}
	if !found {
		return DiscoveredServer{}, false
	}
	port := DefaultPort
	if jsonPort != 0 {
		port = int(jsonPort)
	}
	srv.Addr = netip.AddrPortFrom(netip.Addr{}, uint16(port))
	srv.CLIPort = cliPort
	return srv, true
}

func parsePortString(s string) uint16 {
	var v uint16
	for _, c := range s {
		if c < '0' || c > '9' {
			return v
		}
		v = v*10 + uint16(c-'0')
	}
	return v
}
