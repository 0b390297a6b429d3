package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/pixelbone/internal/pixel"
)

const DFLT_FPS = 30

// Scene paints the strip for the frame at elapsed time t.
type Scene func(s *pixel.Strip, t time.Duration)

// Looper owns a strip while it runs: it paints a scene and shows the result
// once per tick. Nothing else may touch the strip until Run returns.
type Looper struct {
	Strip *pixel.Strip
	Scene Scene
	FPS   int

	frames uint64
}

// Frames returns the number of frames shown by the last Run.
func (l *Looper) Frames() uint64 { return l.frames }

// Run loops until ctx is done or a frame fails to show.
func (l *Looper) Run(ctx context.Context) error {
	fps := l.FPS
	if fps <= 0 {
		fps = DFLT_FPS
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	start := time.Now()
	l.frames = 0
	for {
		select {
		case <-ctx.Done():
			log.Debug().Uint64("frames", l.frames).Msg("loop stopped")
			return nil
		case t := <-ticker.C:
			if l.Scene != nil {
				l.Scene(l.Strip, t.Sub(start))
			}
			if err := l.Strip.Show(); err != nil {
				return err
			}
			l.frames++
		}
	}
}
