package slimproto

import "fmt"

// sampleRateTable maps the single ASCII digit strm/codc carries to a
// sample rate in Hz (spec §4.6).
var sampleRateTable = [10]int{
	11025, 22050, 32000, 44100, 48000, 8000, 12000, 16000, 24000, 96000,
}

// extendedSampleRateTable covers the high-resolution rates beyond the
// original single-digit table (spec §4.6 lists them alongside the
// first ten; LMS encodes them with the same single ASCII digit space
// re-used by convention 'A'..'E' in newer slimproto revisions).
var extendedSampleRateTable = map[byte]int{
	'A': 88200,
	'B': 176400,
	'C': 192000,
	'D': 352800,
	'E': 384000,
}

func decodeSampleRate(code byte) (int, error) {
	if code >= '0' && code <= '9' {
		return sampleRateTable[code-'0'], nil
	}
	if rate, ok := extendedSampleRateTable[code]; ok {
		return rate, nil
	}
	return 0, fmt.Errorf("slimproto: unknown sample rate code %q", code)
}

var sampleSizeTable = [4]int{8, 16, 24, 32}

func decodeSampleSize(code, format byte) (int, error) {
	if format == 'a' { // ALAC: raw byte value, not an index
		return int(code), nil
	}
	if code < '0' || code > '3' {
		return 0, fmt.Errorf("slimproto: unknown sample size code %q", code)
	}
	return sampleSizeTable[code-'0'], nil
}

func decodeChannels(code byte) (int, error) {
	switch code {
	case '1':
		return 1, nil
	case '2':
		return 2, nil
	default:
		return 0, fmt.Errorf("slimproto: unknown channel code %q", code)
	}
}

// decodeEndianness reports known=false for '?' (unknown endianness);
// otherwise known is true and bigEndian is true only for '1' (spec §4.6).
func decodeEndianness(code byte) (known bool, bigEndian bool) {
	if code == '?' {
		return false, false
	}
	return true, code == '1'
}

// decodeFormat maps the protocol's single-character codec tag (spec
// §4.6).
func decodeFormat(code byte) byte {
	switch code {
	case 'p', 'f', 'm', 'a', 'l', 'o', '?':
		return code
	default:
		return '?'
	}
}

// MimeCapability is one entry in the MR's declared mimetypes list
// (spec §4.6's find_mimetype/find_pcm_mimetype).
type MimeCapability struct {
	Format   byte   // 'p','f','m','a','l','o'
	MimeType string // e.g. "audio/mpeg", "audio/flac", "audio/L16;rate=44100;channels=2"
}

// resolveMimeType finds the first MR-declared capability compatible
// with format, following find_mimetype for compressed formats and
// find_pcm_mimetype's generic-rewrite rule for raw PCM (spec §4.6):
// a chosen `audio/L*` mime is rewritten to a bare "*" to signal
// "generic PCM, the MR infers rate/size/channels out of band".
func resolveMimeType(caps []MimeCapability, format byte, l24 L24Format, sampleSize int) (mime string, effectiveSampleSize int, ok bool) {
	effectiveSampleSize = sampleSize
	if format == 'p' && sampleSize == 24 && l24 == L24Trunc16 {
		effectiveSampleSize = 16
	}

	for _, c := range caps {
		if c.Format != format {
			continue
		}
		mime = c.MimeType
		if format == 'p' && len(mime) >= 7 && mime[:7] == "audio/L" {
			mime = "*"
		}
		return mime, effectiveSampleSize, true
	}
	return "", effectiveSampleSize, false
}
