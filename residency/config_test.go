package residency

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/sparse/memutils"
)

func TestDecodeConfig(t *testing.T) {
	config, err := DecodeConfig(`
heap_size = 134217728
ring_size = 8
staging_buffer_size = 262144
fence_timeout = "1500ms"
track_residency = true
`)
	require.NoError(t, err)

	options, err := config.CreateOptions()
	require.NoError(t, err)
	require.Equal(t, CreateOptions{
		Flags:             CreateTrackResidency,
		HeapSizeInBytes:   128 * 1024 * 1024,
		RingSize:          8,
		StagingBufferSize: 256 * 1024,
		FenceTimeout:      1500 * time.Millisecond,
	}, options)
}

func TestDecodeConfig_Empty(t *testing.T) {
	config, err := DecodeConfig("")
	require.NoError(t, err)

	options, err := config.CreateOptions()
	require.NoError(t, err)
	require.Equal(t, CreateOptions{}, options)
}

func TestDecodeConfig_UnknownKey(t *testing.T) {
	_, err := DecodeConfig(`
ring_size = 2
heap_tiles = 12
`)
	require.True(t, errors.Is(err, memutils.ErrInvalidArgument))
	require.Contains(t, err.Error(), "heap_tiles")
}

func TestConfig_Invalid(t *testing.T) {
	config, err := DecodeConfig(`fence_timeout = "soon"`)
	require.NoError(t, err)
	_, err = config.CreateOptions()
	require.True(t, errors.Is(err, memutils.ErrInvalidArgument))

	config, err = DecodeConfig(`ring_size = -1`)
	require.NoError(t, err)
	_, err = config.CreateOptions()
	require.True(t, errors.Is(err, memutils.ErrInvalidArgument))

	_, err = DecodeConfig(`ring_size = "four"`)
	require.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "residency.toml")

	config := Config{
		HeapSize:               16 * 1024 * 1024,
		RingSize:               2,
		FenceTimeout:           "250ms",
		ExternallySynchronized: true,
	}
	var builder strings.Builder
	require.NoError(t, config.Encode(&builder))
	require.NoError(t, os.WriteFile(path, []byte(builder.String()), 0644))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, config, loaded)

	options, err := loaded.CreateOptions()
	require.NoError(t, err)
	require.Equal(t, CreateExternallySynchronized, options.Flags)
	require.Equal(t, 250*time.Millisecond, options.FenceTimeout)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestCreateFlags_String(t *testing.T) {
	require.Equal(t, "CreateTrackResidency", CreateTrackResidency.String())
	require.Contains(t, (CreateExternallySynchronized | CreateTrackResidency).String(), "CreateExternallySynchronized")
}
