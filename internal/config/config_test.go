package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/pixelbone/internal/pixel"
)

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
server: 10.0.0.5:7890
transport: ws
channels:
  - {id: 1, pixels: 4}
  - {id: 2, pixels: 6}
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5:7890", c.Server)
	assert.Equal(t, "ws", c.Transport)
	assert.Equal(t, 30, c.FPS)
	assert.Equal(t, 2*time.Second, c.DialTimeout())
	assert.Equal(t, []pixel.Channel{{ID: 1, Pixels: 4}, {ID: 2, Pixels: 6}}, c.PixelChannels())
	assert.NoError(t, c.Validate())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	c := Default()
	c.Sink.WSListen = ":8080"
	require.NoError(t, Save(path, c))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	c := Default()
	c.Transport = "udp"
	c.Channels = nil
	c.Sink.Outputs = []Output{{Channel: 3, Pixels: 0}}

	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transport")
	assert.Contains(t, err.Error(), "no channels")
	assert.Contains(t, err.Error(), "sink output 3")
}
