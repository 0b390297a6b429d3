package pixel

import (
	"fmt"

	"github.com/coreman2200/pixelbone/internal/opc"
)

// SetServer points the strip's transport at hostport.
func (s *Strip) SetServer(hostport string) error {
	if s.opc == nil {
		return ErrNoTransport
	}
	return s.opc.Resolve(hostport)
}

// Frames encodes one OPC message per channel from the current framebuffer,
// in channel order.
func (s *Strip) Frames() [][]byte {
	out := make([][]byte, 0, len(s.channels))
	processed := 0
	for _, ch := range s.channels {
		n := int(ch.Pixels) * RecordSize

		msg := make([]byte, opc.HeaderLen+n)
		opc.Header{
			Channel: ch.ID,
			Command: opc.SetPixelColors,
			Length:  uint16(n),
		}.MarshalTo(msg)
		copy(msg[opc.HeaderLen:], s.framebuffer[processed:processed+n])

		out = append(out, msg)
		processed += n
	}
	return out
}

// Show writes one OPC message per channel to the transport. It stops at the
// first failed write; messages already written are not resent.
func (s *Strip) Show() error {
	if s.opc == nil {
		return ErrNoTransport
	}
	for i, msg := range s.Frames() {
		if err := s.opc.Write(msg); err != nil {
			return fmt.Errorf("pixel: show channel %d: %w", s.channels[i].ID, err)
		}
	}
	return nil
}
