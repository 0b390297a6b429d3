// Package opc implements the Open Pixel Control wire format.
//
// A message is a 4 byte header (channel, command, big-endian payload length)
// followed by exactly length payload bytes.
package opc

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	HeaderLen = 4

	// Broadcast is the channel that addresses every output of a server.
	Broadcast uint8 = 0

	SetPixelColors  uint8 = 0x00
	SystemExclusive uint8 = 0xFF

	MaxPayload = 0xFFFF
	// MaxPixels is the largest pixel count whose RGB payload fits a message.
	MaxPixels = MaxPayload / 3
)

var (
	ErrShortHeader     = errors.New("opc: header shorter than 4 bytes")
	ErrPayloadTooLarge = errors.New("opc: payload exceeds 65535 bytes")
	ErrLengthMismatch  = errors.New("opc: payload length does not match header")
)

type Header struct {
	Channel uint8
	Command uint8
	Length  uint16
}

// MarshalTo writes h into the first HeaderLen bytes of b.
func (h Header) MarshalTo(b []byte) {
	b[0] = h.Channel
	b[1] = h.Command
	binary.BigEndian.PutUint16(b[2:HeaderLen], h.Length)
}

func (h Header) String() string {
	return fmt.Sprintf("opc{ch=%d cmd=%#02x len=%d}", h.Channel, h.Command, h.Length)
}

func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderLen {
		return Header{}, ErrShortHeader
	}
	return Header{
		Channel: b[0],
		Command: b[1],
		Length:  binary.BigEndian.Uint16(b[2:HeaderLen]),
	}, nil
}

// Message is a decoded OPC message. Data aliases the buffer it was decoded from.
type Message struct {
	Header
	Data []byte
}

// Encode builds a complete message: header followed by a copy of payload.
func Encode(channel, command uint8, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayload {
		return nil, ErrPayloadTooLarge
	}
	buf := make([]byte, HeaderLen+len(payload))
	Header{Channel: channel, Command: command, Length: uint16(len(payload))}.MarshalTo(buf)
	copy(buf[HeaderLen:], payload)
	return buf, nil
}

// Decode parses a single message occupying all of b, as received in one
// websocket frame or datagram.
func Decode(b []byte) (Message, error) {
	h, err := ParseHeader(b)
	if err != nil {
		return Message{}, err
	}
	if len(b)-HeaderLen != int(h.Length) {
		return Message{}, fmt.Errorf("%w: header %d, got %d", ErrLengthMismatch, h.Length, len(b)-HeaderLen)
	}
	return Message{Header: h, Data: b[HeaderLen:]}, nil
}
