// Package pixel holds an LED framebuffer partitioned over OPC channels.
//
// A Strip is not safe for concurrent use. Callers with several producers
// must guard pixel mutation and Show with one lock of their own.
package pixel

import (
	"errors"
	"fmt"

	"github.com/coreman2200/pixelbone/internal/opc"
)

// RecordSize is the number of framebuffer bytes per pixel.
const RecordSize = 3

var (
	ErrInvalidIndex    = errors.New("pixel: index out of range")
	ErrNoChannels      = errors.New("pixel: no channels")
	ErrChannelTooLarge = errors.New("pixel: channel exceeds 21845 pixels")
	ErrNoTransport     = errors.New("pixel: no transport")
)

// Channel assigns the next Pixels logical pixels to OPC channel ID.
type Channel struct {
	ID     uint8
	Pixels uint16
}

// Record is one pixel as stored in the framebuffer and sent on the wire:
// red, green, blue, in that byte order.
type Record struct {
	R, G, B uint8
}

type Strip struct {
	channels    []Channel
	framebuffer []byte
	numPixels   int
	opc         Transport
}

// NewSingle returns a strip with one channel.
func NewSingle(t Transport, channel uint8, pixels uint16) (*Strip, error) {
	return New(t, Channel{ID: channel, Pixels: pixels})
}

// New returns a strip whose logical pixels are laid out over channels in the
// order given. The same order is used when emitting frames.
func New(t Transport, channels ...Channel) (*Strip, error) {
	if len(channels) == 0 {
		return nil, ErrNoChannels
	}
	n := 0
	for _, ch := range channels {
		if int(ch.Pixels) > opc.MaxPixels {
			return nil, fmt.Errorf("%w: channel %d has %d", ErrChannelTooLarge, ch.ID, ch.Pixels)
		}
		n += int(ch.Pixels)
	}
	s := &Strip{
		channels:    append([]Channel(nil), channels...),
		framebuffer: make([]byte, n*RecordSize),
		numPixels:   n,
		opc:         t,
	}
	return s, nil
}

func (s *Strip) NumPixels() int { return s.numPixels }

// Channels returns a copy of the channel assignment.
func (s *Strip) Channels() []Channel {
	return append([]Channel(nil), s.channels...)
}

// Bytes returns a copy of the framebuffer.
func (s *Strip) Bytes() []byte {
	return append([]byte(nil), s.framebuffer...)
}

func (s *Strip) valid(n int) bool {
	return n >= 0 && n < s.numPixels
}

func (s *Strip) record(n int) []byte {
	off := n * RecordSize
	return s.framebuffer[off : off+RecordSize]
}

// SetPixelColor sets pixel n from separate R,G,B components.
// An out of range n is ignored.
func (s *Strip) SetPixelColor(n int, r, g, b uint8) {
	if !s.valid(n) {
		return
	}
	p := s.record(n)
	p[0], p[1], p[2] = r, g, b
}

// SetColor sets pixel n from a packed RGB color. An out of range n is ignored.
func (s *Strip) SetColor(n int, c uint32) {
	r, g, b := Unpack(c)
	s.SetPixelColor(n, r, g, b)
}

// SetPixel overwrites the record of pixel n. Unlike the color setters it
// reports an out of range n, leaving the framebuffer untouched.
func (s *Strip) SetPixel(n int, rec Record) error {
	if !s.valid(n) {
		return fmt.Errorf("%w: %d of %d", ErrInvalidIndex, n, s.numPixels)
	}
	p := s.record(n)
	p[0], p[1], p[2] = rec.R, rec.G, rec.B
	return nil
}

// Pixel returns the record of pixel n.
func (s *Strip) Pixel(n int) (Record, bool) {
	if !s.valid(n) {
		return Record{}, false
	}
	p := s.record(n)
	return Record{R: p[0], G: p[1], B: p[2]}, true
}

// PixelColor returns the packed color of pixel n, or 0 when n is out of
// range. The two cases cannot be told apart; use Pixel when it matters.
func (s *Strip) PixelColor(n int) uint32 {
	p, ok := s.Pixel(n)
	if !ok {
		return 0
	}
	return Color(p.R, p.G, p.B)
}

// Clear sets every pixel to black.
func (s *Strip) Clear() {
	for i := 0; i < s.numPixels; i++ {
		s.SetPixelColor(i, 0, 0, 0)
	}
}
