package slimproto

import (
	"encoding/binary"
	"io"
	"time"
)

// frameHeader is the 8-byte header every outbound frame carries: a
// 4-byte ASCII opcode followed by a 4-byte big-endian body length
// (spec §4.1). Inbound frames instead carry a 2-byte length prefix
// ahead of an opcode-led body; see dispatch.go.
type frameHeader struct {
	opcode [4]byte
	length uint32
}

func writeFrame(w io.Writer, opcode string, body []byte) error {
	var hdr [8]byte
	copy(hdr[:4], opcode)
	binary.BigEndian.PutUint32(hdr[4:], uint32(len(body)))
	if _, err := sendAll(w, hdr[:]); err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	_, err := sendAll(w, body)
	return err
}

// sendAll retries transient short writes following the teacher's
// send_packet convention (src/kissnet.go's write loop): up to 10
// attempts with a brief backoff before giving up.
func sendAll(w io.Writer, p []byte) (int, error) {
	const maxAttempts = 10
	written := 0
	failures := 0
	for written < len(p) {
		n, err := w.Write(p[written:])
		written += n
		if err != nil {
			failures++
			if failures >= maxAttempts {
				return written, err
			}
			time.Sleep(time.Millisecond)
		}
	}
	return written, nil
}

// encodeHELO builds the HELO frame body (spec §4.1). capabilities is the
// already-concatenated base+fixed+var capability blob; reconnect sets
// wlan_channellist bit 0x4000 on every reconnect after the first
// (spec §4.3 step 4).
func encodeHELO(mac [6]byte, reconnect bool, bytesReceived uint64, capabilities string) []byte {
	body := make([]byte, 1+1+6+16+2+8+2+len(capabilities))
	i := 0
	body[i] = 12 // deviceid: squeezeplay
	i++
	body[i] = 0 // revision
	i++
	copy(body[i:i+6], mac[:])
	i += 6
	i += 16 // uuid, left zero
	channelList := uint16(0)
	if reconnect {
		channelList = 0x4000
	}
	binary.BigEndian.PutUint16(body[i:i+2], channelList)
	i += 2
	binary.BigEndian.PutUint64(body[i:i+8], bytesReceived)
	i += 8
	i += 2 // language, left zero
	copy(body[i:], capabilities)
	return body
}

// statEvent identifies a STAT sub-event (spec GLOSSARY's STMx class).
type statEvent string

const (
	statTick      statEvent = "STMt"
	statStarted   statEvent = "STMs"
	statDecodeEnd statEvent = "STMd"
	statUnderrun  statEvent = "STMu"
	statOverrun   statEvent = "STMo"
	statBufLow    statEvent = "STMl"
	statNoCodec   statEvent = "STMn"
	statFlushed   statEvent = "STMf"
	statPaused    statEvent = "STMp"
	statResumed   statEvent = "STMr"
	statConnect   statEvent = "STMc"
)

// startTime anchors the `jiffies` field (ms since process start) STAT
// frames report, mirroring the original's gettime_ms baseline.
var startTime = time.Now()

func jiffies() uint32 {
	return uint32(time.Since(startTime).Milliseconds())
}

// encodeSTAT builds a STAT frame body (spec §4.1). serverTimestamp is
// echoed back exactly as received, never byte-swapped (it is opaque to
// the client, per the original's "keep this in server format" note).
func encodeSTAT(event statEvent, snap StatusSnapshot, serverTimestamp uint32) []byte {
	body := make([]byte, 4+1+1+1+4+4+8+2+4+4+4+4+1+4+4+4)
	i := 0
	copy(body[i:i+4], event)
	i += 4
	i += 1 + 1 + 1 // num_crlf, mas_initialized, mas_mode: unused, left zero
	binary.BigEndian.PutUint32(body[i:i+4], uint32(snap.StreamFull))
	i += 4
	binary.BigEndian.PutUint32(body[i:i+4], uint32(snap.StreamSize))
	i += 4
	binary.BigEndian.PutUint64(body[i:i+8], uint64(snap.StreamBytes))
	i += 8
	binary.BigEndian.PutUint16(body[i:i+2], 0xffff) // signal_strength
	i += 2
	binary.BigEndian.PutUint32(body[i:i+4], jiffies())
	i += 4
	binary.BigEndian.PutUint32(body[i:i+4], uint32(snap.OutputSize))
	i += 4
	binary.BigEndian.PutUint32(body[i:i+4], uint32(snap.OutputFull))
	i += 4
	binary.BigEndian.PutUint32(body[i:i+4], uint32(snap.MsPlayed/1000))
	i += 4
	i += 1 // voltage: unused
	binary.BigEndian.PutUint32(body[i:i+4], uint32(snap.MsPlayed))
	i += 4
	binary.BigEndian.PutUint32(body[i:i+4], serverTimestamp)
	i += 4
	i += 4 // error_code: unused, left zero
	return body
}

// encodeDSCO builds a DSCO frame body: a single reason byte.
func encodeDSCO(reason DisconnectReason) []byte {
	return []byte{byte(reason)}
}

// encodeSETDName builds the player-name SETD frame body (id=0),
// NUL-terminated, addressing open question (d): the name field is
// explicitly NUL-terminated rather than relying on strncpy's
// truncate-without-terminate behaviour.
func encodeSETDName(name string) []byte {
	body := make([]byte, 1+len(name)+1)
	body[0] = 0
	copy(body[1:], name)
	return body
}
