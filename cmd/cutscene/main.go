package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/funtimes-cutscene/internal/app"
	"github.com/coreman2200/funtimes-cutscene/internal/config"
)

func main() {
	// ---- Flags (override config.yaml and the environment when set) ----
	var (
		configPath = flag.String("config", "config.yaml", "path to config.yaml")
		addr       = flag.String("addr", "", "HTTP listen address")
		timelines  = flag.String("timelines", "", "timeline registry (.json, .yaml)")
		entry      = flag.String("entry", "", "timeline id entered at startup")
		typingMs   = flag.Int("typing-ms", -1, "typing delay per character (ms)")
		lightsOn   = flag.Bool("lights", false, "mirror backgrounds onto an LED strip")
		logLevel   = flag.String("log-level", "", "debug | info | warn | error")
	)
	flag.Parse()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	// ---- Config: file, then env, then flags ----
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; using defaults")
		cfg = config.Default()
	}
	if err := config.ApplyEnv(cfg); err != nil {
		log.Fatal().Err(err).Msg("environment overrides")
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = *addr
		case "timelines":
			cfg.Timelines = *timelines
		case "entry":
			cfg.Entry = *entry
		case "typing-ms":
			cfg.TypingDelayMs = *typingMs
		case "lights":
			cfg.Lights.Enabled = *lightsOn
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})
	zerolog.SetGlobalLevel(cfg.Level())

	// ---- Core ----
	core, err := app.InitCore(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Str("timelines", cfg.Timelines).Msg("init failed")
	}

	// ---- HTTP routes ----
	mux := http.NewServeMux()
	core.Routes(mux)

	srv := &http.Server{
		Addr:        cfg.Addr,
		Handler:     withCORS(mux),
		ReadTimeout: 5 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.Addr).Int("timelines", len(core.Registry)).Bool("lights", core.Lights != nil).Msg("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server crashed")
		}
	}()

	// ---- Graceful shutdown ----
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	s := <-ch
	log.Info().Str("signal", s.String()).Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	core.Close()
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(200)
			return
		}
		h.ServeHTTP(w, r)
	})
}
