package sink

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"net"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spitest"

	"github.com/coreman2200/pixelbone/internal/opc"
	"github.com/coreman2200/pixelbone/internal/pixel"
	"github.com/coreman2200/pixelbone/internal/transport/tcp"
	"github.com/coreman2200/pixelbone/internal/transport/wsock"
)

// fakeDrawer keeps a copy of the last image drawn.
type fakeDrawer struct {
	w      int
	last   *image.NRGBA
	draws  int
	halted bool
	err    error
}

func (f *fakeDrawer) String() string          { return "fake" }
func (f *fakeDrawer) Halt() error             { f.halted = true; return nil }
func (f *fakeDrawer) ColorModel() color.Model { return color.NRGBAModel }
func (f *fakeDrawer) Bounds() image.Rectangle { return image.Rect(0, 0, f.w, 1) }
func (f *fakeDrawer) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	if f.err != nil {
		return f.err
	}
	img := image.NewNRGBA(f.Bounds())
	draw.Draw(img, r, src, sp, draw.Src)
	f.last = img
	f.draws++
	return nil
}

func (f *fakeDrawer) rgb(x int) [3]uint8 {
	c := f.last.NRGBAAt(x, 0)
	return [3]uint8{c.R, c.G, c.B}
}

func msg(ch, cmd uint8, data ...byte) opc.Message {
	b, _ := opc.Encode(ch, cmd, data)
	m, _ := opc.Decode(b)
	return m
}

func TestHandleRoutesByChannel(t *testing.T) {
	a, b := &fakeDrawer{w: 2}, &fakeDrawer{w: 3}
	s := New(Output{Channel: 1, Drawer: a}, Output{Channel: 2, Pixels: 3, Drawer: b})

	require.NoError(t, s.Handle(msg(1, opc.SetPixelColors, 255, 0, 0, 0, 255, 0)))
	assert.Equal(t, 1, a.draws)
	assert.Equal(t, 0, b.draws)
	assert.Equal(t, [3]uint8{255, 0, 0}, a.rgb(0))
	assert.Equal(t, [3]uint8{0, 255, 0}, a.rgb(1))

	require.NoError(t, s.Handle(msg(9, opc.SetPixelColors, 1, 2, 3)))
	require.NoError(t, s.Handle(msg(2, opc.SystemExclusive, 1, 2, 3)))
	assert.Equal(t, 1, a.draws)
	assert.Equal(t, 0, b.draws)
	assert.Equal(t, uint64(1), s.Frames())
}

func TestHandleBroadcast(t *testing.T) {
	a, b := &fakeDrawer{w: 1}, &fakeDrawer{w: 1}
	s := New(Output{Channel: 1, Drawer: a}, Output{Channel: 2, Drawer: b})

	require.NoError(t, s.Handle(msg(opc.Broadcast, opc.SetPixelColors, 9, 8, 7)))
	assert.Equal(t, [3]uint8{9, 8, 7}, a.rgb(0))
	assert.Equal(t, [3]uint8{9, 8, 7}, b.rgb(0))
}

func TestHandleBroadcastDrawsPastFailedOutput(t *testing.T) {
	errStuck := errors.New("stuck")
	a, b := &fakeDrawer{w: 1, err: errStuck}, &fakeDrawer{w: 1}
	s := New(Output{Channel: 1, Drawer: a}, Output{Channel: 2, Drawer: b})

	err := s.Handle(msg(opc.Broadcast, opc.SetPixelColors, 9, 8, 7))
	assert.ErrorIs(t, err, errStuck)
	assert.Contains(t, err.Error(), "sink: draw channel 1")
	assert.Equal(t, 1, b.draws)
	assert.Equal(t, [3]uint8{9, 8, 7}, b.rgb(0))
	assert.Equal(t, uint64(1), s.Frames())
}

func TestHandlePartialKeepsTail(t *testing.T) {
	a := &fakeDrawer{w: 3}
	s := New(Output{Channel: 1, Drawer: a})

	require.NoError(t, s.Handle(msg(1, opc.SetPixelColors, 1, 1, 1, 2, 2, 2, 3, 3, 3, 4, 4, 4)))
	require.NoError(t, s.Handle(msg(1, opc.SetPixelColors, 5, 5, 5, 6)))
	assert.Equal(t, [3]uint8{5, 5, 5}, a.rgb(0))
	assert.Equal(t, [3]uint8{2, 2, 2}, a.rgb(1))
	assert.Equal(t, [3]uint8{3, 3, 3}, a.rgb(2))
}

func TestHalt(t *testing.T) {
	a, b := &fakeDrawer{w: 1}, &fakeDrawer{w: 1}
	s := New(Output{Channel: 1, Drawer: a}, Output{Channel: 2, Drawer: b})
	require.NoError(t, s.Halt())
	assert.True(t, a.halted)
	assert.True(t, b.halted)
}

func TestServeTCP(t *testing.T) {
	a, b := &fakeDrawer{w: 4}, &fakeDrawer{w: 6}
	s := New(Output{Channel: 1, Drawer: a}, Output{Channel: 2, Drawer: b})

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, l) }()

	c := tcp.New(time.Second)
	strip, err := pixel.New(c, pixel.Channel{ID: 1, Pixels: 4}, pixel.Channel{ID: 2, Pixels: 6})
	require.NoError(t, err)
	require.NoError(t, strip.SetServer(l.Addr().String()))
	strip.SetColor(3, pixel.HSL(0, 100, 50))
	strip.SetColor(9, pixel.HSL(240, 100, 50))
	require.NoError(t, strip.Show())

	require.Eventually(t, func() bool { return s.Frames() == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, [3]uint8{255, 0, 0}, a.rgb(3))
	assert.Equal(t, [3]uint8{0, 0, 255}, b.rgb(5))

	require.NoError(t, c.Close())
	cancel()
	assert.NoError(t, <-done)
}

func TestServeReleasesClosedClients(t *testing.T) {
	s := New(Output{Channel: 1, Drawer: &fakeDrawer{w: 1}})
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, l) }()

	time.Sleep(20 * time.Millisecond)
	base := runtime.NumGoroutine()
	for i := 0; i < 50; i++ {
		conn, err := net.Dial("tcp", l.Addr().String())
		require.NoError(t, err)
		require.NoError(t, conn.Close())
	}
	require.Eventually(t, func() bool { return runtime.NumGoroutine() <= base+5 },
		2*time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestServeWebSocket(t *testing.T) {
	a := &fakeDrawer{w: 2}
	s := New(Output{Channel: 1, Drawer: a})
	srv := httptest.NewServer(http.HandlerFunc(s.HandleWS))
	defer srv.Close()

	c := wsock.New("/", time.Second)
	strip, err := pixel.NewSingle(c, 1, 2)
	require.NoError(t, err)
	require.NoError(t, strip.SetServer(strings.TrimPrefix(srv.URL, "http://")))
	strip.SetPixelColor(1, 10, 20, 30)
	require.NoError(t, strip.Show())

	require.Eventually(t, func() bool { return s.Frames() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, [3]uint8{10, 20, 30}, a.rgb(1))
	require.NoError(t, c.Close())
}

func TestNRZRecordsSPI(t *testing.T) {
	buf := bytes.Buffer{}
	d, err := NewNRZ(spitest.NewRecordRaw(&buf), 4, 2500*physic.KiloHertz)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 1), d.Bounds())

	buf.Reset()
	s := New(Output{Channel: 1, Drawer: d})
	require.NoError(t, s.Handle(msg(1, opc.SetPixelColors, 255, 0, 0, 0, 255, 0, 0, 0, 255, 255, 255, 255)))
	assert.NotZero(t, buf.Len())
	assert.NoError(t, d.Close())
}
