package slimproto

import (
	"context"

	"github.com/brutella/dnssd"
)

// cliServiceType is the mDNS service type under which the CLI liveness
// socket is advertised, following the teacher's dns_sd.go convention of
// one straightforward brutella/dnssd responder per advertised service.
const cliServiceType = "_slimplayer-cli._tcp"

// AnnounceCLI advertises the CLI liveness socket via mDNS when
// Config.AnnounceMDNS is set, so LAN tooling can find this player
// without the user typing in an address. Grounded on the teacher's
// src/dns_sd.go (Name/Type/Port config, NewResponder, Add, Respond in
// a background goroutine) rather than the Avahi/cgo variant, since this
// is a pure-Go module.
func (ctx *PlayerContext) AnnounceCLI(parent context.Context) error {
	if !ctx.Config.AnnounceMDNS || ctx.Config.CLIPort == 0 {
		return nil
	}

	name := ctx.DeviceName
	if name == "" {
		name = defaultServiceName()
	}

	cfg := dnssd.Config{
		Name: name,
		Type: cliServiceType,
		Port: ctx.Config.CLIPort,
	}
	svc, err := dnssd.NewService(cfg)
	if err != nil {
		return err
	}

	responder, err := dnssd.NewResponder()
	if err != nil {
		return err
	}
	if _, err := responder.Add(svc); err != nil {
		return err
	}

	Logger.Info("announce: advertising CLI over mDNS", "name", name, "port", ctx.Config.CLIPort)
	go func() {
		if err := responder.Respond(parent); err != nil {
			Logger.Warn("announce: responder stopped", "err", err)
		}
	}()
	return nil
}

func defaultServiceName() string {
	return "SlimPlayer"
}
