package slimproto

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func Test_writeFrame(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeFrame(&buf, "HELO", []byte{1, 2, 3}))

	got := buf.Bytes()
	require.Len(t, got, 8+3)
	assert.Equal(t, "HELO", string(got[:4]))
	assert.Equal(t, uint32(3), binary.BigEndian.Uint32(got[4:8]))
	assert.Equal(t, []byte{1, 2, 3}, got[8:])
}

func Test_encodeHELO_fields(t *testing.T) {
	mac := [6]byte{0xde, 0xad, 0xbe, 0xef, 0x00, 0x01}
	body := encodeHELO(mac, true, 0x1122334455667788, "Model=squeezelite")

	assert.Equal(t, byte(12), body[0], "deviceid")
	assert.Equal(t, byte(0), body[1], "revision")
	assert.Equal(t, mac[:], body[2:8])
	channelList := binary.BigEndian.Uint16(body[24:26])
	assert.Equal(t, uint16(0x4000), channelList, "reconnect bit set")
	bytesReceived := binary.BigEndian.Uint64(body[26:34])
	assert.Equal(t, uint64(0x1122334455667788), bytesReceived)
	assert.Contains(t, string(body[36:]), "Model=squeezelite")
}

func Test_encodeHELO_noReconnectBit(t *testing.T) {
	body := encodeHELO([6]byte{}, false, 0, "")
	channelList := binary.BigEndian.Uint16(body[24:26])
	assert.Equal(t, uint16(0), channelList)
}

func Test_encodeSTAT_roundtripFields(t *testing.T) {
	snap := StatusSnapshot{
		StreamFull:  100,
		StreamSize:  200,
		StreamBytes: 1 << 40,
		OutputFull:  10,
		OutputSize:  20,
		MsPlayed:    12345,
	}
	body := encodeSTAT(statTick, snap, 0xcafebabe)

	assert.Equal(t, "STMt", string(body[:4]))
	assert.Equal(t, uint32(100), binary.BigEndian.Uint32(body[7:11]))
	assert.Equal(t, uint32(200), binary.BigEndian.Uint32(body[11:15]))
	assert.Equal(t, uint64(1<<40), binary.BigEndian.Uint64(body[15:23]))
	assert.Equal(t, uint16(0xffff), binary.BigEndian.Uint16(body[23:25]), "signal_strength")
	assert.Equal(t, uint32(20), binary.BigEndian.Uint32(body[29:33]), "output_size")
	assert.Equal(t, uint32(10), binary.BigEndian.Uint32(body[33:37]), "output_full")
	assert.Equal(t, uint32(12), binary.BigEndian.Uint32(body[37:41]), "elapsed_seconds")
	assert.Equal(t, uint32(12345), binary.BigEndian.Uint32(body[42:46]), "elapsed_milliseconds")
	assert.Equal(t, uint32(0xcafebabe), binary.BigEndian.Uint32(body[46:50]), "server_timestamp echoed verbatim")
}

func Test_encodeSETDName_nulTerminated(t *testing.T) {
	body := encodeSETDName("kitchen")
	assert.Equal(t, byte(0), body[0], "id 0 is player name")
	assert.Equal(t, "kitchen", string(body[1:len(body)-1]))
	assert.Equal(t, byte(0), body[len(body)-1], "NUL terminated, not just truncated")
}

func Test_encodeDSCO(t *testing.T) {
	assert.Equal(t, []byte{byte(DisconnectRemoteClosed)}, encodeDSCO(DisconnectRemoteClosed))
}

// Big-endian round-trip property from spec §8: pack(unpack(x)) == x for
// 16/32/64-bit fields across the frames that carry them.
func Test_bigEndianRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v16 := rapid.Uint16().Draw(t, "v16")
		var b16 [2]byte
		binary.BigEndian.PutUint16(b16[:], v16)
		assert.Equal(t, v16, binary.BigEndian.Uint16(b16[:]))

		v32 := rapid.Uint32().Draw(t, "v32")
		var b32 [4]byte
		binary.BigEndian.PutUint32(b32[:], v32)
		assert.Equal(t, v32, binary.BigEndian.Uint32(b32[:]))

		v64 := rapid.Uint64().Draw(t, "v64")
		var b64 [8]byte
		binary.BigEndian.PutUint64(b64[:], v64)
		assert.Equal(t, v64, binary.BigEndian.Uint64(b64[:]))
	})
}

func Test_parseDiscoveryResponse(t *testing.T) {
	resp := []byte{}
	resp = append(resp, []byte("VERS")...)
	resp = append(resp, 5)
	resp = append(resp, []byte("8.3.1")...)
	resp = append(resp, []byte("JSON")...)
	resp = append(resp, 4)
	resp = append(resp, []byte("9000")...)
	resp = append(resp, []byte("CLIP")...)
	resp = append(resp, 4)
	resp = append(resp, []byte("9090")...)

	srv, ok := parseDiscoveryResponse(resp)
	require.True(t, ok)
	assert.Equal(t, "8.3.1", srv.Version)
	assert.Equal(t, uint16(9000), srv.Addr.Port())
	assert.Equal(t, uint16(9090), srv.CLIPort)
}

func Test_parseDiscoveryResponse_missingTags(t *testing.T) {
	_, ok := parseDiscoveryResponse([]byte("garbage"))
	assert.False(t, ok)
}
