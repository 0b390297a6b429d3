package app

import (
	"time"

	"github.com/coreman2200/pixelbone/internal/pixel"
)

// Rainbow spreads the color wheel over the strip and turns it once every
// period.
func Rainbow(period time.Duration, saturation, lightness uint32) Scene {
	return func(s *pixel.Strip, t time.Duration) {
		n := s.NumPixels()
		if n == 0 {
			return
		}
		shift := 0
		if period > 0 {
			shift = int(360 * (t % period) / period)
		}
		for i := 0; i < n; i++ {
			hue := uint32(i*360/n + shift)
			s.SetColor(i, pixel.HSL(hue, saturation, lightness))
		}
	}
}

// Solid paints every pixel the same packed color.
func Solid(c uint32) Scene {
	return func(s *pixel.Strip, _ time.Duration) {
		for i := 0; i < s.NumPixels(); i++ {
			s.SetColor(i, c)
		}
	}
}

// Chase lights one pixel at a time, advancing every step.
func Chase(c uint32, step time.Duration) Scene {
	return func(s *pixel.Strip, t time.Duration) {
		s.Clear()
		if step <= 0 || s.NumPixels() == 0 {
			return
		}
		s.SetColor(int(t/step)%s.NumPixels(), c)
	}
}
