// Package sink receives OPC messages and draws them onto LED strips.
package sink

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/display"

	"github.com/coreman2200/pixelbone/internal/opc"
)

// Output binds an OPC channel to a strip.
type Output struct {
	Channel uint8
	Pixels  int // 0 uses the drawer's width
	Drawer  display.Drawer
}

type output struct {
	Output
	img *image.NRGBA
}

type Sink struct {
	mu      sync.Mutex
	outputs []*output
	frames  uint64
}

func New(outputs ...Output) *Sink {
	s := &Sink{}
	for _, o := range outputs {
		if o.Pixels <= 0 {
			o.Pixels = o.Drawer.Bounds().Dx()
		}
		img := image.NewNRGBA(image.Rect(0, 0, o.Pixels, 1))
		for x := 0; x < o.Pixels; x++ {
			img.SetNRGBA(x, 0, color.NRGBA{A: 255})
		}
		s.outputs = append(s.outputs, &output{Output: o, img: img})
	}
	return s
}

// Frames returns the number of pixel messages drawn so far.
func (s *Sink) Frames() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Handle draws a set-pixel-colors message onto the outputs bound to its
// channel, or onto every output for the broadcast channel. Pixels the
// payload does not cover keep their previous color; surplus bytes are
// dropped. Other commands and unbound channels are ignored. A failed draw
// does not stop the remaining outputs; all draw errors are returned joined.
func (s *Sink) Handle(m opc.Message) error {
	if m.Command != opc.SetPixelColors {
		log.Debug().Uint8("cmd", m.Command).Uint8("channel", m.Channel).Msg("ignoring opc command")
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := false
	var errs []error
	for _, o := range s.outputs {
		if m.Channel != opc.Broadcast && m.Channel != o.Channel {
			continue
		}
		matched = true
		for x := 0; x < o.Pixels && x*3+2 < len(m.Data); x++ {
			p := m.Data[x*3 : x*3+3]
			o.img.SetNRGBA(x, 0, color.NRGBA{R: p[0], G: p[1], B: p[2], A: 255})
		}
		if err := o.Drawer.Draw(o.Drawer.Bounds(), o.img, image.Point{}); err != nil {
			errs = append(errs, fmt.Errorf("sink: draw channel %d on %s: %w", o.Channel, o.Drawer, err))
		}
	}
	if !matched {
		log.Debug().Uint8("channel", m.Channel).Msg("no output bound to channel")
		return nil
	}
	s.frames++
	return errors.Join(errs...)
}

// Serve accepts OPC-over-TCP clients on l until ctx is done.
func (s *Sink) Serve(ctx context.Context, l net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = l.Close()
	}()
	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("sink: accept: %w", err)
		}
		go s.serveConn(ctx, conn)
	}
}

func (s *Sink) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	addr := conn.RemoteAddr().String()
	log.Info().Str("client", addr).Msg("opc client connected")

	r := opc.NewReader(conn)
	for {
		m, err := r.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				log.Warn().Err(err).Str("client", addr).Msg("opc read")
			}
			log.Info().Str("client", addr).Msg("opc client gone")
			return
		}
		if err := s.Handle(m); err != nil {
			log.Error().Err(err).Str("client", addr).Msg("opc handle")
		}
	}
}

// HandleWS accepts OPC over websocket, one message per binary frame.
func (s *Sink) HandleWS(w http.ResponseWriter, r *http.Request) {
	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	for {
		typ, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if typ != websocket.BinaryMessage {
			continue
		}
		m, err := opc.Decode(data)
		if err != nil {
			log.Debug().Err(err).Msg("bad opc frame")
			continue
		}
		if err := s.Handle(m); err != nil {
			log.Error().Err(err).Msg("opc handle")
		}
	}
}

// Halt halts every output.
func (s *Sink) Halt() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for _, o := range s.outputs {
		if err := o.Drawer.Halt(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
