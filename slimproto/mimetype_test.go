package slimproto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_decodeSampleRate_baseTableAndExtended(t *testing.T) {
	rate, err := decodeSampleRate('3')
	require.NoError(t, err)
	assert.Equal(t, 44100, rate)

	rate, err = decodeSampleRate('B')
	require.NoError(t, err)
	assert.Equal(t, 176400, rate)

	_, err = decodeSampleRate('z')
	assert.Error(t, err)
}

func Test_decodeSampleSize_alacUsesRawByte(t *testing.T) {
	size, err := decodeSampleSize(20, 'a')
	require.NoError(t, err)
	assert.Equal(t, 20, size, "ALAC carries the sample size as a raw byte, not a table index")

	size, err = decodeSampleSize('2', 'p')
	require.NoError(t, err)
	assert.Equal(t, 24, size)

	_, err = decodeSampleSize('9', 'p')
	assert.Error(t, err)
}

func Test_decodeChannels(t *testing.T) {
	n, err := decodeChannels('1')
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = decodeChannels('2')
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = decodeChannels('3')
	assert.Error(t, err)
}

func Test_decodeEndianness(t *testing.T) {
	known, big := decodeEndianness('?')
	assert.False(t, known)
	assert.False(t, big)

	known, big = decodeEndianness('1')
	assert.True(t, known)
	assert.True(t, big)

	known, big = decodeEndianness('0')
	assert.True(t, known)
	assert.False(t, big)
}

func Test_decodeFormat_unknownFallsBackToQuestionMark(t *testing.T) {
	assert.Equal(t, byte('f'), decodeFormat('f'))
	assert.Equal(t, byte('?'), decodeFormat('x'))
}

func Test_resolveMimeType_rewritesGenericPCM(t *testing.T) {
	caps := []MimeCapability{{Format: 'p', MimeType: "audio/L16;rate=44100;channels=2"}}
	mime, size, ok := resolveMimeType(caps, 'p', L24Full, 16)
	require.True(t, ok)
	assert.Equal(t, "*", mime, "a declared audio/L* PCM mimetype is rewritten to the generic wildcard")
	assert.Equal(t, 16, size)
}

func Test_resolveMimeType_compressedFormatPassesThrough(t *testing.T) {
	caps := []MimeCapability{{Format: 'm', MimeType: "audio/mpeg"}}
	mime, _, ok := resolveMimeType(caps, 'm', L24Full, 0)
	require.True(t, ok)
	assert.Equal(t, "audio/mpeg", mime)
}

func Test_resolveMimeType_l24TruncationRule(t *testing.T) {
	caps := []MimeCapability{{Format: 'p', MimeType: "audio/L24;rate=96000;channels=2"}}

	_, size, ok := resolveMimeType(caps, 'p', L24Trunc16, 24)
	require.True(t, ok)
	assert.Equal(t, 16, size, "L24Trunc16 truncates a 24-bit PCM track to 16-bit")

	_, size, ok = resolveMimeType(caps, 'p', L24Full, 24)
	require.True(t, ok)
	assert.Equal(t, 24, size, "L24Full leaves the sample size untouched")
}

func Test_resolveMimeType_noMatchingCapability(t *testing.T) {
	_, _, ok := resolveMimeType(nil, 'f', L24Full, 0)
	assert.False(t, ok)
}

func Test_parseEncodeParams_explicitTokens(t *testing.T) {
	p := parseEncodeParams("flc,r:-48000,flac:5")
	assert.Equal(t, EncodeFLAC, p.mode)
	assert.Equal(t, 48000, p.rate)
	assert.True(t, p.rateIsCap, "a negative r: value means a rate ceiling, not a fixed rate")
	assert.Equal(t, 5, p.flacLevel)
}

func Test_parseEncodeParams_flow(t *testing.T) {
	p := parseEncodeParams("flow")
	assert.True(t, p.flow)
	assert.Equal(t, EncodePCM, p.mode)
	assert.Equal(t, 44100, p.rate)
	assert.Equal(t, 16, p.size)
}

func Test_parseEncodeParams_mp3BitrateClampedAndDefaulted(t *testing.T) {
	p := parseEncodeParams("mp3,mp3:1000")
	assert.Equal(t, EncodeMP3, p.mode)
	assert.Equal(t, 320, p.mp3Bitrate, "bitrate above 320 clamps to 320")

	p = parseEncodeParams("mp3")
	assert.Equal(t, 128, p.mp3Bitrate, "mp3 with no explicit bitrate token defaults to 128")
}

func Test_parseEncodeParams_pcmMode(t *testing.T) {
	p := parseEncodeParams("pcm,s:24")
	assert.Equal(t, EncodePCM, p.mode)
	assert.Equal(t, 24, p.size)
}
