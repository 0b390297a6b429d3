package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/pixelbone/internal/app"
	"github.com/coreman2200/pixelbone/internal/config"
	"github.com/coreman2200/pixelbone/internal/pixel"
	"github.com/coreman2200/pixelbone/internal/transport/tcp"
	"github.com/coreman2200/pixelbone/internal/transport/wsock"
)

type transport interface {
	pixel.Transport
	io.Closer
}

func main() {
	// ---- Flags (config.yaml overrides where set) ----
	var (
		server     = flag.String("server", "", "OPC server host:port")
		transportF = flag.String("transport", "", "transport: tcp | ws")
		channels   = flag.String("channels", "", "channel map, e.g. 1:60,2:60 (id:pixels)")
		fps        = flag.Int("fps", 0, "frames per second")
		scene      = flag.String("scene", "rainbow", "scene: rainbow | chase | white | off")
		configPath = flag.String("config", "config.yaml", "path to config.yaml")
		debug      = flag.Bool("debug", false, "debug logging")
	)
	flag.Parse()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; proceeding with defaults")
		cfg = config.Default()
	}
	if *server != "" {
		cfg.Server = *server
	}
	if *transportF != "" {
		cfg.Transport = *transportF
	}
	if *fps > 0 {
		cfg.FPS = *fps
	}
	if *channels != "" {
		chs, err := parseChannels(*channels)
		if err != nil {
			log.Fatal().Err(err).Str("channels", *channels).Msg("bad -channels")
		}
		cfg.Channels = chs
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	var tr transport
	switch cfg.Transport {
	case "ws":
		tr = wsock.New(cfg.WSPath, cfg.DialTimeout())
	default:
		tr = tcp.New(cfg.DialTimeout())
	}
	strip, err := openStrip(tr, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("server", cfg.Server).Str("transport", cfg.Transport).Msg("cannot start strip")
	}
	defer tr.Close()

	log.Info().
		Str("server", cfg.Server).
		Str("transport", cfg.Transport).
		Int("pixels", strip.NumPixels()).
		Int("channels", len(cfg.Channels)).
		Msg("streaming")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	l := &app.Looper{Strip: strip, Scene: pickScene(*scene), FPS: cfg.FPS}
	if err := l.Run(ctx); err != nil {
		log.Error().Err(err).Uint64("frames", l.Frames()).Msg("show failed")
	}
	log.Info().Uint64("frames", l.Frames()).Msg("shutting down")

	strip.Clear()
	if err := strip.Show(); err != nil {
		log.Warn().Err(err).Msg("blanking strip")
	}
}

// openStrip builds the strip on tr and connects it to cfg.Server. tr is
// closed when either step fails.
func openStrip(tr transport, cfg *config.Config) (*pixel.Strip, error) {
	strip, err := pixel.New(tr, cfg.PixelChannels()...)
	if err == nil {
		err = strip.SetServer(cfg.Server)
	}
	if err != nil {
		_ = tr.Close()
		return nil, err
	}
	return strip, nil
}

func pickScene(name string) app.Scene {
	switch name {
	case "chase":
		return app.Chase(pixel.Color(255, 255, 255), 50*time.Millisecond)
	case "white":
		return app.Solid(pixel.Color(255, 255, 255))
	case "off":
		return app.Solid(0)
	case "rainbow":
	default:
		log.Warn().Str("scene", name).Msg("unknown scene; using rainbow")
	}
	return app.Rainbow(5*time.Second, 100, 50)
}

func parseChannels(s string) ([]config.Channel, error) {
	var out []config.Channel
	for _, part := range strings.Split(s, ",") {
		id, n, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			return nil, strconv.ErrSyntax
		}
		cid, err := strconv.ParseUint(id, 10, 8)
		if err != nil {
			return nil, err
		}
		cnt, err := strconv.ParseUint(n, 10, 16)
		if err != nil {
			return nil, err
		}
		out = append(out, config.Channel{ID: uint8(cid), Pixels: uint16(cnt)})
	}
	return out, nil
}
