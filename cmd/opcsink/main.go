package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/coreman2200/pixelbone/internal/config"
	"github.com/coreman2200/pixelbone/internal/sink"
)

func main() {
	var (
		listen     = flag.String("listen", "", "OPC over TCP listen address")
		wsListen   = flag.String("ws-listen", "", "OPC over websocket listen address")
		configPath = flag.String("config", "config.yaml", "path to config.yaml")
		simOnly    = flag.Bool("sim-only", false, "print to the console instead of driving SPI")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; proceeding with defaults")
		cfg = config.Default()
	}
	if *listen != "" {
		cfg.Sink.Listen = *listen
	}
	if *wsListen != "" {
		cfg.Sink.WSListen = *wsListen
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	if _, err := host.Init(); err != nil {
		log.Warn().Err(err).Msg("periph host init failed; using console output")
		*simOnly = true
	}

	var closers []io.Closer
	outputs := make([]sink.Output, 0, len(cfg.Sink.Outputs))
	for _, o := range cfg.Sink.Outputs {
		out := sink.Output{Channel: o.Channel, Pixels: o.Pixels}
		if !*simOnly {
			d, err := sink.OpenNRZ(o.SPI, o.Pixels, physic.Frequency(o.FreqKHz)*physic.KiloHertz)
			if err == nil {
				out.Drawer = d
				closers = append(closers, d)
			} else {
				log.Warn().Err(err).
					Uint8("channel", o.Channel).
					Str("spi", o.SPI).
					Msg("SPI init failed; falling back to console")
			}
		}
		if out.Drawer == nil {
			out.Drawer = sink.Console(o.Pixels)
		}
		log.Info().Uint8("channel", o.Channel).Int("pixels", o.Pixels).Str("drawer", out.Drawer.String()).Msg("output ready")
		outputs = append(outputs, out)
	}
	s := sink.New(outputs...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	l, err := net.Listen("tcp", cfg.Sink.Listen)
	if err != nil {
		log.Fatal().Err(err).Str("addr", cfg.Sink.Listen).Msg("listen")
	}
	go func() {
		log.Info().Str("addr", cfg.Sink.Listen).Msg("OPC server starting")
		if err := s.Serve(ctx, l); err != nil {
			log.Error().Err(err).Msg("opc server crashed")
			stop()
		}
	}()

	var srv *http.Server
	if cfg.Sink.WSListen != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/", s.HandleWS)
		srv = &http.Server{
			Addr:        cfg.Sink.WSListen,
			Handler:     mux,
			ReadTimeout: 5 * time.Second,
			IdleTimeout: 60 * time.Second,
		}
		go func() {
			log.Info().Str("addr", cfg.Sink.WSListen).Msg("websocket server starting")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("websocket server crashed")
				stop()
			}
		}()
	}

	<-ctx.Done()
	log.Info().Uint64("frames", s.Frames()).Msg("shutting down")
	if srv != nil {
		_ = srv.Close()
	}
	if err := s.Halt(); err != nil {
		log.Warn().Err(err).Msg("halt")
	}
	for _, c := range closers {
		_ = c.Close()
	}
}
