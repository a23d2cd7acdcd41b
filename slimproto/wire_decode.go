package slimproto

import (
	"encoding/binary"
	"net/netip"
)

// strmFrame is the decoded 24-byte strm header (spec §4.4); header
// carries any trailing HTTP request bytes (the `s` subcommand only).
type strmFrame struct {
	command          byte
	autostart        byte
	format           byte
	pcmSampleSize    byte
	pcmSampleRate    byte
	pcmChannels      byte
	pcmEndianness    byte
	threshold        byte // KB of streambuf to accumulate before autostart fires
	spdifEnable      byte
	transitionPeriod byte
	transitionType   byte
	flags            byte
	outputThreshold  byte
	replayGain       uint32
	serverPort       uint16
	serverIP         uint32
	header           []byte
}

const strmHeaderLen = 24

// decodeStrm parses a strm frame body; body must be at least
// strmHeaderLen bytes (callers reject shorter frames before dispatch).
// Field layout and order follow the original's struct strm_packet.
func decodeStrm(body []byte) strmFrame {
	var f strmFrame
	f.command = body[0]
	f.autostart = body[1]
	f.format = body[2]
	f.pcmSampleSize = body[3]
	f.pcmSampleRate = body[4]
	f.pcmChannels = body[5]
	f.pcmEndianness = body[6]
	f.threshold = body[7]
	f.spdifEnable = body[8]
	f.transitionPeriod = body[9]
	f.transitionType = body[10]
	f.flags = body[11]
	f.outputThreshold = body[12]
	// body[13] reserved
	f.replayGain = binary.BigEndian.Uint32(body[14:18])
	f.serverPort = binary.BigEndian.Uint16(body[18:20])
	f.serverIP = binary.BigEndian.Uint32(body[20:24])
	if len(body) > strmHeaderLen {
		f.header = body[strmHeaderLen:]
	}
	return f
}

// contFrame is the decoded cont frame body.
type contFrame struct {
	metaint uint32
	loop    byte
}

func decodeCont(body []byte) contFrame {
	return contFrame{
		metaint: binary.BigEndian.Uint32(body[0:4]),
		loop:    body[4],
	}
}

// codcFrame is the decoded deferred-codec-announcement frame body.
type codcFrame struct {
	format        byte
	pcmSampleRate byte
	pcmSampleSize byte
	pcmChannels   byte
	pcmEndianness byte
}

func decodeCodc(body []byte) codcFrame {
	return codcFrame{
		format:        body[0],
		pcmSampleRate: body[1],
		pcmSampleSize: body[2],
		pcmChannels:   body[3],
		pcmEndianness: body[4],
	}
}

// audeFrame is the decoded aude (on/off) frame body.
type audeFrame struct {
	enableSPDIF byte
	enableDAC   byte
}

func decodeAude(body []byte) audeFrame {
	return audeFrame{enableSPDIF: body[0], enableDAC: body[1]}
}

// audgFrame is the decoded legacy gain frame body.
type audgFrame struct {
	oldGainL uint32
	oldGainR uint32
	adjust   byte
}

func decodeAudg(body []byte) audgFrame {
	return audgFrame{
		oldGainL: binary.BigEndian.Uint32(body[0:4]),
		oldGainR: binary.BigEndian.Uint32(body[4:8]),
		adjust:   body[8],
	}
}

// setdFrame is the decoded setd frame body.
type setdFrame struct {
	id   byte
	data []byte
}

func decodeSetd(body []byte) setdFrame {
	f := setdFrame{id: body[0]}
	if len(body) > 1 {
		f.data = body[1:]
	}
	return f
}

// servFrame is the decoded server-switch frame body.
type servFrame struct {
	ip      uint32
	syncPayload []byte
}

func decodeServ(body []byte) servFrame {
	f := servFrame{ip: binary.BigEndian.Uint32(body[0:4])}
	if len(body) > 4 {
		f.syncPayload = body[4:]
	}
	return f
}

func ipv4FromUint32(v uint32) netip.Addr {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return netip.AddrFrom4(b)
}
