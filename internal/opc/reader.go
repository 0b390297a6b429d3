package opc

import (
	"bufio"
	"errors"
	"io"
)

// Reader splits a byte stream, such as a TCP connection, into messages.
type Reader struct {
	r   *bufio.Reader
	hdr [HeaderLen]byte
	buf []byte
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Next returns the next message. It returns io.EOF when the stream ends on a
// message boundary and io.ErrUnexpectedEOF when it ends inside one.
// The returned Data is only valid until the following call to Next.
func (r *Reader) Next() (Message, error) {
	if _, err := io.ReadFull(r.r, r.hdr[:]); err != nil {
		return Message{}, err
	}
	h, _ := ParseHeader(r.hdr[:])
	if cap(r.buf) < int(h.Length) {
		r.buf = make([]byte, h.Length)
	}
	data := r.buf[:h.Length]
	if _, err := io.ReadFull(r.r, data); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return Message{}, err
	}
	return Message{Header: h, Data: data}, nil
}
