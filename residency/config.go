package residency

import (
	"io"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/sparse/memutils"
)

// Config is the file form of CreateOptions:
//
//	heap_size = 134217728
//	ring_size = 8
//	staging_buffer_size = 131072
//	fence_timeout = "2s"
//	externally_synchronized = false
//	track_residency = true
//
// Every key is optional; missing keys take the CreateOptions defaults.
type Config struct {
	HeapSize               int    `toml:"heap_size"`
	RingSize               int    `toml:"ring_size"`
	StagingBufferSize      int    `toml:"staging_buffer_size"`
	FenceTimeout           string `toml:"fence_timeout"`
	ExternallySynchronized bool   `toml:"externally_synchronized"`
	TrackResidency         bool   `toml:"track_residency"`
}

// LoadConfig reads a Config from a TOML file
func LoadConfig(path string) (Config, error) {
	var config Config
	md, err := toml.DecodeFile(path, &config)
	if err != nil {
		return Config{}, errors.Wrapf(err, "reading residency config %s", path)
	}

	return config, checkUndecoded(md)
}

// DecodeConfig parses a Config from TOML text
func DecodeConfig(text string) (Config, error) {
	var config Config
	md, err := toml.Decode(text, &config)
	if err != nil {
		return Config{}, errors.Wrap(err, "parsing residency config")
	}

	return config, checkUndecoded(md)
}

func checkUndecoded(md toml.MetaData) error {
	undecoded := md.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}

	keys := make([]string, 0, len(undecoded))
	for _, key := range undecoded {
		keys = append(keys, key.String())
	}
	return errors.Wrapf(memutils.ErrInvalidArgument, "unknown residency config keys: %s", strings.Join(keys, ", "))
}

// CreateOptions converts the config to manager options
func (c Config) CreateOptions() (CreateOptions, error) {
	options := CreateOptions{
		HeapSizeInBytes:   c.HeapSize,
		RingSize:          c.RingSize,
		StagingBufferSize: c.StagingBufferSize,
	}

	if c.ExternallySynchronized {
		options.Flags |= CreateExternallySynchronized
	}
	if c.TrackResidency {
		options.Flags |= CreateTrackResidency
	}

	if c.FenceTimeout != "" {
		timeout, err := time.ParseDuration(c.FenceTimeout)
		if err != nil {
			return CreateOptions{}, errors.Mark(errors.Wrapf(err, "fence_timeout %q", c.FenceTimeout), memutils.ErrInvalidArgument)
		}
		options.FenceTimeout = timeout
	}

	if options.HeapSizeInBytes < 0 || options.RingSize < 0 || options.StagingBufferSize < 0 || options.FenceTimeout < 0 {
		return CreateOptions{}, errors.Wrapf(memutils.ErrInvalidArgument, "residency config %+v has negative values", c)
	}

	return options, nil
}

// Encode writes the config as TOML
func (c Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}
