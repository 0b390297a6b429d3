package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/coreman2200/pixelbone/internal/opc"
	"github.com/coreman2200/pixelbone/internal/pixel"
)

type Channel struct {
	ID     uint8  `yaml:"id"`
	Pixels uint16 `yaml:"pixels"`
}

type Output struct {
	Channel uint8  `yaml:"channel"`
	Pixels  int    `yaml:"pixels"`
	SPI     string `yaml:"spi"`      // spireg name, e.g. "/dev/spidev0.0"; "" picks the first port
	FreqKHz int    `yaml:"freq_khz"` // NRZ bit rate, 800 for WS2812
}

type Sink struct {
	Listen   string   `yaml:"listen"`    // OPC over TCP
	WSListen string   `yaml:"ws_listen"` // OPC over websocket, "" disables
	Outputs  []Output `yaml:"outputs"`
}

type Config struct {
	Server        string    `yaml:"server"`
	Transport     string    `yaml:"transport"` // "tcp" | "ws"
	WSPath        string    `yaml:"ws_path"`
	DialTimeoutMs int       `yaml:"dial_timeout_ms"`
	FPS           int       `yaml:"fps"`
	Channels      []Channel `yaml:"channels"`

	Sink Sink `yaml:"sink,omitempty"`
}

func Default() *Config {
	return &Config{
		Server:        "127.0.0.1:7890",
		Transport:     "tcp",
		WSPath:        "/",
		DialTimeoutMs: 2000,
		FPS:           30,
		Channels:      []Channel{{ID: 1, Pixels: 60}},
		Sink: Sink{
			Listen:  ":7890",
			Outputs: []Output{{Channel: 1, Pixels: 60, FreqKHz: 800}},
		},
	}
}

// Load reads path over the defaults, so a partial file only overrides the
// keys it names.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

func (c *Config) DialTimeout() time.Duration {
	return time.Duration(c.DialTimeoutMs) * time.Millisecond
}

// PixelChannels converts the channel list into the strip's assignment.
func (c *Config) PixelChannels() []pixel.Channel {
	out := make([]pixel.Channel, len(c.Channels))
	for i, ch := range c.Channels {
		out[i] = pixel.Channel{ID: ch.ID, Pixels: ch.Pixels}
	}
	return out
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Transport {
	case "tcp", "ws":
	default:
		errs = append(errs, fmt.Errorf("transport %q: want tcp or ws", c.Transport))
	}
	if len(c.Channels) == 0 {
		errs = append(errs, errors.New("no channels"))
	}
	for _, ch := range c.Channels {
		if int(ch.Pixels) > opc.MaxPixels {
			errs = append(errs, fmt.Errorf("channel %d: %d pixels exceeds %d", ch.ID, ch.Pixels, opc.MaxPixels))
		}
	}
	for _, o := range c.Sink.Outputs {
		if o.Pixels <= 0 || o.Pixels > opc.MaxPixels {
			errs = append(errs, fmt.Errorf("sink output %d: invalid pixel count %d", o.Channel, o.Pixels))
		}
	}
	return errors.Join(errs...)
}
