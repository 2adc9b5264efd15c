// Package lights mirrors background cues onto an addressable LED strip so a
// room can follow the scene.
package lights

import (
	"fmt"
	"image"
	"image/draw"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/extra/devices/screen"
	"periph.io/x/host/v3"

	"github.com/coreman2200/funtimes-cutscene/internal/stage"
)

// Config selects the strip and how cues are rendered on it.
type Config struct {
	Enabled bool              `yaml:"enabled" env:"ENABLED"`
	Port    string            `yaml:"port" env:"PORT"` // spireg name; "" picks the first port
	Pixels  int               `yaml:"pixels" env:"PIXELS"`
	FreqKHz int               `yaml:"freq_khz" env:"FREQ_KHZ"`
	FadeMs  int               `yaml:"fade_ms" env:"FADE_MS"`
	FPS     int               `yaml:"fps" env:"FPS"`
	Palette map[string]string `yaml:"palette" env:"PALETTE"`
}

// DefaultConfig matches a 60-pixel WS2812 strip on the first SPI port.
func DefaultConfig() Config {
	return Config{
		Pixels:  60,
		FreqKHz: 800,
		FadeMs:  1000,
		FPS:     30,
	}
}

// Rig renders the palette color of the current background on a Drawer.
type Rig struct {
	drawer  display.Drawer
	port    spi.PortCloser
	pixels  int
	palette Palette
	fade    time.Duration
	frame   time.Duration
	log     zerolog.Logger

	mu    sync.Mutex
	shown Color
	stop  chan struct{}
	wg    sync.WaitGroup
}

// Option configures a Rig.
type Option func(*Rig)

// WithFade sets the fadein/fadeout duration and the frame rate used to
// render it.
func WithFade(d time.Duration, fps int) Option {
	return func(r *Rig) {
		if d < 0 {
			d = 0
		}
		r.fade = d
		if fps > 0 {
			r.frame = time.Second / time.Duration(fps)
		}
	}
}

// WithLogger replaces the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Rig) { r.log = l }
}

// New returns a Rig drawing pixels wide frames on d.
func New(d display.Drawer, pixels int, palette Palette, opts ...Option) *Rig {
	if pixels <= 0 {
		pixels = d.Bounds().Dx()
	}
	r := &Rig{
		drawer:  d,
		pixels:  pixels,
		palette: palette,
		fade:    time.Second,
		frame:   time.Second / 30,
		log:     log.With().Str("component", "lights").Logger(),
		shown:   Black,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Open initialises the host and attaches an nrzled strip on cfg.Port. With no
// SPI port available frames are printed to the console instead.
func Open(cfg Config) (*Rig, error) {
	palette, err := ParsePalette(cfg.Palette)
	if err != nil {
		return nil, err
	}
	if cfg.Pixels <= 0 {
		cfg.Pixels = DefaultConfig().Pixels
	}
	if cfg.FreqKHz <= 0 {
		cfg.FreqKHz = DefaultConfig().FreqKHz
	}
	opts := []Option{WithFade(time.Duration(cfg.FadeMs)*time.Millisecond, cfg.FPS)}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("lights: host init: %w", err)
	}
	p, err := spireg.Open(cfg.Port)
	if err != nil {
		log.Warn().Err(err).Str("port", cfg.Port).Msg("no SPI port; printing light cues at the console")
		return New(screen.New(cfg.Pixels), cfg.Pixels, palette, opts...), nil
	}
	d, err := nrzled.NewSPI(p, &nrzled.Opts{
		NumPixels: cfg.Pixels,
		Channels:  3,
		Freq:      physic.Frequency(cfg.FreqKHz) * physic.KiloHertz,
	})
	if err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("lights: open strip on %q: %w", cfg.Port, err)
	}
	if err := d.Halt(); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("lights: halt strip: %w", err)
	}
	r := New(d, cfg.Pixels, palette, opts...)
	r.port = p
	return r, nil
}

// Apply renders the light cue for a stage effect. Backgrounds with no palette
// entry leave the strip as it is.
func (r *Rig) Apply(e stage.Effect) {
	switch e.Op {
	case stage.OpBackground:
		c, ok := r.palette[e.Key]
		if !ok {
			r.log.Debug().Str("key", e.Key).Msg("no palette entry for background")
			return
		}
		var env Envelope
		if e.Image != nil {
			env = Fade(e.Image.Effect, r.fade)
		} else {
			env = Fade("", 0)
		}
		r.play(c, env)
	case stage.OpScene:
		if c, ok := r.palette[e.Key]; ok {
			r.play(c, Fade("", 0))
		}
	}
}

// Shown returns the last color written to the strip.
func (r *Rig) Shown() Color {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shown
}

// Close stops any fade, turns the strip off and releases the port.
func (r *Rig) Close() error {
	r.cancel()
	err := r.drawer.Halt()
	if r.port != nil {
		if cerr := r.port.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (r *Rig) cancel() {
	r.mu.Lock()
	stop := r.stop
	r.stop = nil
	r.mu.Unlock()
	if stop != nil {
		close(stop)
	}
	r.wg.Wait()
}

func (r *Rig) play(c Color, env Envelope) {
	r.cancel()
	if env.End() <= 0 {
		r.draw(c.Scale(env.Eval(0)))
		return
	}
	stop := make(chan struct{})
	r.mu.Lock()
	r.stop = stop
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		start := time.Now()
		ticker := time.NewTicker(r.frame)
		defer ticker.Stop()
		for {
			t := time.Since(start).Seconds()
			r.draw(c.Scale(env.Eval(t)))
			if t >= env.End() {
				return
			}
			select {
			case <-ticker.C:
			case <-stop:
				return
			}
		}
	}()
}

func (r *Rig) draw(c Color) {
	img := image.NewNRGBA(image.Rect(0, 0, r.pixels, 1))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c.NRGBA()}, image.Point{}, draw.Src)
	if err := r.drawer.Draw(r.drawer.Bounds(), img, image.Point{}); err != nil {
		r.log.Error().Err(err).Msg("draw failed")
		return
	}
	r.mu.Lock()
	r.shown = c
	r.mu.Unlock()
}
