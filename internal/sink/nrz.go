package sink

import (
	"fmt"

	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/devices/v3/screen1d"
)

// DefaultFreq suits WS2812b strips.
const DefaultFreq = 800 * physic.KiloHertz

// NRZ is a WS281x strip driven over an SPI port.
type NRZ struct {
	*nrzled.Dev
	port spi.PortCloser
}

// OpenNRZ opens the SPI port by spireg name ("" for the first one) and wraps
// it as an NRZ strip of the given length. host.Init must have run.
func OpenNRZ(port string, pixels int, freq physic.Frequency) (*NRZ, error) {
	if freq == 0 {
		freq = DefaultFreq
	}
	p, err := spireg.Open(port)
	if err != nil {
		return nil, fmt.Errorf("sink: open spi %q: %w", port, err)
	}
	return NewNRZ(p, pixels, freq)
}

// NewNRZ wraps an already opened port.
func NewNRZ(p spi.PortCloser, pixels int, freq physic.Frequency) (*NRZ, error) {
	d, err := nrzled.NewSPI(p, &nrzled.Opts{
		NumPixels: pixels,
		Channels:  3,
		Freq:      freq,
	})
	if err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("sink: nrzled: %w", err)
	}
	_ = d.Halt()
	return &NRZ{Dev: d, port: p}, nil
}

// Close blanks the strip and releases the port.
func (n *NRZ) Close() error {
	_ = n.Dev.Halt()
	return n.port.Close()
}

// Console returns a drawer that prints the strip as a row of ANSI colored
// cells, for hosts without an SPI port.
func Console(pixels int) display.Drawer {
	return screen1d.New(&screen1d.Opts{X: pixels})
}
