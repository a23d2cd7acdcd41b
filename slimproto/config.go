package slimproto

import (
	"crypto/rand"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// L24Format controls how 24-bit PCM is exposed to the MR (spec §4.6).
type L24Format int

const (
	L24Full L24Format = iota
	L24Trunc16
	L24Trunc16PCM
)

// Config is the player's static configuration. One Config is shared by
// exactly one PlayerContext.
type Config struct {
	// Identity
	Name string
	MAC  [6]byte

	// Discovery / connection
	Server        string // "" or "?" means auto-discover; otherwise host[:port]
	DiscoveryPort int

	// Codec negotiation (spec §4.6)
	Codecs         []string // preference-ordered list LMS should offer
	Mode           string   // "thru", "pcm", "flc", "mp3", optionally with r:/s:/flac:/mp3:/flow modifiers
	MaxSampleRate  int
	RawAudioFormat string
	L24Format      L24Format
	StreamLength   int64

	// Buffers
	StreamBufSize int
	OutputBufSize int

	// ICY
	SendICY bool

	// MIME capabilities, as declared by the MR; see mimetype.go.
	MimeTypes []MimeCapability

	// DebugLevel mirrors the teacher's 0..3 debug knob.
	DebugLevel int

	// AnnounceMDNS turns on the optional self-announcement in
	// announce.go.
	AnnounceMDNS bool
	CLIPort      int

	// TimestampFormat, if set, is an strftime pattern used to prefix
	// CLI-connection log lines (mirrors the teacher's kissutil.go
	// --timestamp-format option for prefixing received frames).
	TimestampFormat string
}

// DefaultConfig returns a Config with the teacher-style sane defaults
// used throughout the original (squeezelite's own defaults: thru mode,
// a 192000 Hz sample-rate cap, 2MB streambuf, 2MB outputbuf).
func DefaultConfig() *Config {
	return &Config{
		Name:           "",
		Server:         "?",
		DiscoveryPort:  DefaultPort,
		Codecs:         []string{"flc", "mp3", "pcm"},
		Mode:           "thru",
		MaxSampleRate:  192000,
		RawAudioFormat: "wav",
		L24Format:      L24Full,
		StreamBufSize:  2 * 1024 * 1024,
		OutputBufSize:  2 * 1024 * 1024,
		SendICY:        true,
		DebugLevel:     0,
		CLIPort:        0,
	}
}

// BindFlags registers this Config's fields onto fs, following the
// teacher's pflag.StringP/BoolP/IntP convention (src/appserver.go,
// src/atest.go). Call Parse on fs yourself, then Validate.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.Name, "name", "n", c.Name, "Player name announced to LMS.")
	fs.StringVarP(&c.Server, "server", "s", c.Server, `LMS server address, "host" or "host:port". "?" auto-discovers.`)
	fs.IntVar(&c.DiscoveryPort, "discovery-port", c.DiscoveryPort, "UDP/TCP port LMS's slimproto listens on.")
	fs.StringSliceVarP(&c.Codecs, "codecs", "c", c.Codecs, "Preference-ordered codec list advertised to LMS.")
	fs.StringVarP(&c.Mode, "mode", "m", c.Mode, "Processing mode: thru, pcm, flc, mp3, with optional r:/s:/flac:/mp3:/flow modifiers.")
	fs.IntVar(&c.MaxSampleRate, "max-sample-rate", c.MaxSampleRate, "Clamp negotiated sample rate to this maximum.")
	fs.IntVar(&c.StreamBufSize, "streambuf-size", c.StreamBufSize, "Streambuf capacity in bytes.")
	fs.IntVar(&c.OutputBufSize, "outputbuf-size", c.OutputBufSize, "Outputbuf capacity in bytes.")
	fs.BoolVar(&c.SendICY, "icy", c.SendICY, "Fetch and forward ICY metadata when available.")
	fs.IntVarP(&c.DebugLevel, "debug", "d", c.DebugLevel, "Debug verbosity: 0 warnings, 1 info, 2 or higher debug.")
	fs.BoolVar(&c.AnnounceMDNS, "announce", c.AnnounceMDNS, "Advertise the CLI liveness socket via mDNS.")
	fs.IntVar(&c.CLIPort, "cli-port", c.CLIPort, "Port for the CLI liveness socket; 0 disables it.")
	fs.StringVarP(&c.TimestampFormat, "timestamp-format", "T", c.TimestampFormat, "strftime format prefixing CLI-connection log lines.")
}

// Validate fills in a random MAC if none was set and checks basic
// constraints. Mirrors the original's one-time config sanity checks in
// slimproto_thread_init.
func (c *Config) Validate() error {
	if c.MAC == ([6]byte{}) {
		if _, err := rand.Read(c.MAC[:]); err != nil {
			return fmt.Errorf("slimproto: generating random MAC: %w", err)
		}
		c.MAC[0] &^= 0x01 // clear multicast bit
	}
	if c.StreamBufSize <= 0 || c.OutputBufSize <= 0 {
		return fmt.Errorf("slimproto: buffer sizes must be positive")
	}
	if c.MaxSampleRate <= 0 {
		return fmt.Errorf("slimproto: max sample rate must be positive")
	}
	return nil
}

// LoadMimeCapabilities reads an optional on-disk YAML override of the
// MIME capability table (supplementing whatever the MR declares at
// runtime), following the teacher's deviceid.go convention of loading an
// auxiliary YAML data file at startup.
func LoadMimeCapabilities(path string) ([]MimeCapability, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var caps []MimeCapability
	if err := yaml.NewDecoder(f).Decode(&caps); err != nil {
		return nil, fmt.Errorf("slimproto: parsing mime capability file %s: %w", path, err)
	}
	return caps, nil
}
