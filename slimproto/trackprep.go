package slimproto

import (
	"fmt"
	"strconv"
	"strings"
)

// encodeParams is the result of parsing Config.Mode (spec §4.6).
type encodeParams struct {
	mode       EncodeMode
	rate       int // 0 = unset; negative was "cap" in the original, folded into rate here
	rateIsCap  bool
	size       int
	flacLevel  int
	mp3Bitrate int
	flow       bool
}

// parseEncodeParams decodes the config mode string, e.g.
// "flc,r:-48000,flac:5" or "flow" (spec §4.6).
func parseEncodeParams(mode string) encodeParams {
	p := encodeParams{mode: EncodeThru, mp3Bitrate: 128}

	switch {
	case strings.Contains(mode, "pcm"):
		p.mode = EncodePCM
	case strings.Contains(mode, "flc"):
		p.mode = EncodeFLAC
	case strings.Contains(mode, "mp3"):
		p.mode = EncodeMP3
	}

	if strings.Contains(mode, "flow") {
		p.flow = true
		p.mode = EncodePCM
		p.rate = 44100
		p.size = 16
	}

	for _, tok := range strings.Split(mode, ",") {
		switch {
		case strings.HasPrefix(tok, "r:"):
			n, _ := strconv.Atoi(strings.TrimPrefix(tok, "r:"))
			if n < 0 {
				p.rateIsCap = true
				n = -n
			}
			p.rate = n
		case strings.HasPrefix(tok, "s:"):
			n, _ := strconv.Atoi(strings.TrimPrefix(tok, "s:"))
			p.size = n
		case strings.HasPrefix(tok, "flac:"):
			n, err := strconv.Atoi(strings.TrimPrefix(tok, "flac:"))
			if err != nil || n < 0 || n > 9 {
				n = 0
			}
			p.flacLevel = n
		case strings.HasPrefix(tok, "mp3:"):
			n, err := strconv.Atoi(strings.TrimPrefix(tok, "mp3:"))
			if err != nil || n <= 0 {
				n = 128
			}
			if n > 320 {
				n = 320
			}
			p.mp3Bitrate = n
		}
	}
	return p
}

// processStart is C6: negotiates codec/mimetype/sample format for a
// new track and, on success, hands the host a SET_TRACK callback
// (spec §4.6). Opening the actual codec and output thread is the
// host's job (decoders and the output pipeline are external
// collaborators per spec §1); this prepares the negotiated contract.
func (ctx *PlayerContext) processStart(formatCode, rateCode, sizeCode, channelsCode, endianCode byte) error {
	format := decodeFormat(formatCode)
	if format == '?' {
		return fmt.Errorf("slimproto: process_start with deferred format")
	}

	rate, err := decodeSampleRate(rateCode)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCodecOpenFailed, err)
	}
	size, err := decodeSampleSize(sizeCode, format)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCodecOpenFailed, err)
	}
	channels, err := decodeChannels(channelsCode)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCodecOpenFailed, err)
	}
	endianKnown, bigEndian := decodeEndianness(endianCode)

	if rate > ctx.Config.MaxSampleRate {
		rate = ctx.Config.MaxSampleRate
	}

	ctx.Output.mu.Lock()
	ctx.Output.index++
	index := ctx.Output.index
	ctx.Output.codec = format
	ctx.Output.sampleRate = rate
	ctx.Output.sampleSize = size
	ctx.Output.channels = channels
	if endianKnown && bigEndian {
		ctx.Output.inEndian = 1
	} else {
		ctx.Output.inEndian = 0
	}
	ctx.Output.trackStarted = false
	ctx.Output.completed = false
	ctx.Output.mu.Unlock()

	ctx.Render.mu.Lock()
	offset := 0
	if ctx.Render.index >= 0 {
		offset = int(index - ctx.Render.index)
	}
	ctx.Render.mu.Unlock()

	ctx.Outputbuf.Resize(ctx.Config.OutputBufSize)

	var meta TrackMetadata
	if ctx.Metadata != nil {
		meta = ctx.Metadata.GetMetadata(offset)
	}

	params := parseEncodeParams(ctx.Config.Mode)
	if params.flow {
		ctx.Output.mu.Lock()
		ctx.Output.encodeMode = params.mode
		ctx.Output.encodeFlow = true
		ctx.Output.encodeRate = params.rate
		ctx.Output.encodeSize = params.size
		ctx.Output.mu.Unlock()
	}

	mime, effSize, ok := resolveMimeType(ctx.Config.MimeTypes, format, ctx.Config.L24Format, size)
	if !ok {
		return fmt.Errorf("%w: format %q", ErrNoMimeType, string(format))
	}

	if params.mode == EncodeThru {
		ctx.Outputbuf.Reset()
	}

	ctx.Output.mu.Lock()
	ctx.Output.mimeType = mime
	ctx.Output.sampleSize = effSize
	ctx.Output.duration = meta.Duration
	ctx.Output.bitrate = meta.Bitrate
	ctx.Output.remote = meta.Remote
	ctx.Output.mu.Unlock()

	ext := extensionForMime(mime, format)
	uri := fmt.Sprintf("http://%s/stream/%d.%s", ctx.serverAddr, index, ext)

	ctx.invoke(ActionSetTrack, func() bool {
		return ctx.Callback.SetTrack(TrackInfo{MimeType: mime, URI: uri, Metadata: meta})
	})
	return nil
}

func extensionForMime(mime string, format byte) string {
	switch format {
	case 'f':
		return "flac"
	case 'm':
		return "mp3"
	case 'a':
		return "m4a"
	case 'l':
		return "wma"
	case 'o':
		return "ogg"
	default:
		return "pcm"
	}
}
