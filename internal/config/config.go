package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/coreman2200/funtimes-cutscene/internal/scene"
	"github.com/coreman2200/funtimes-cutscene/internal/stage/lights"
)

type StageCfg struct {
	Width  float64 `yaml:"width" env:"CUTSCENE_STAGE_WIDTH"`
	Height float64 `yaml:"height" env:"CUTSCENE_STAGE_HEIGHT"`
}

type Config struct {
	Addr      string `yaml:"addr" env:"CUTSCENE_ADDR"`
	Timelines string `yaml:"timelines" env:"CUTSCENE_TIMELINES"` // .json, .yaml or .yml registry

	Entry         string `yaml:"entry" env:"CUTSCENE_ENTRY"`
	MainScene     string `yaml:"main_scene" env:"CUTSCENE_MAIN_SCENE"`
	FallbackScene string `yaml:"fallback_scene" env:"CUTSCENE_FALLBACK_SCENE"`
	TypingDelayMs int    `yaml:"typing_delay_ms" env:"CUTSCENE_TYPING_DELAY_MS"`
	MaxHops       int    `yaml:"max_hops,omitempty" env:"CUTSCENE_MAX_HOPS"`

	Stage  StageCfg      `yaml:"stage"`
	Lights lights.Config `yaml:"lights" envPrefix:"CUTSCENE_LIGHTS_"`

	LogLevel string `yaml:"log_level" env:"CUTSCENE_LOG_LEVEL"`
}

// Default returns the settings used when no config file is present.
func Default() *Config {
	return &Config{
		Addr:          ":8080",
		Timelines:     "assets/scenario.yaml",
		Entry:         "start",
		MainScene:     "main",
		FallbackScene: "title",
		TypingDelayMs: 50,
		Stage:         StageCfg{Width: 1280, Height: 720},
		Lights:        lights.DefaultConfig(),
		LogLevel:      "info",
	}
}

// Load reads path over the defaults; keys missing from the file keep their
// default values.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// ApplyEnv overrides c with any CUTSCENE_* variables that are set.
func ApplyEnv(c *Config) error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Director maps the playback settings onto a scene.Config.
func (c *Config) Director() scene.Config {
	return scene.Config{
		Entry:         c.Entry,
		MainScene:     c.MainScene,
		FallbackScene: c.FallbackScene,
		TypingDelay:   time.Duration(c.TypingDelayMs) * time.Millisecond,
		MaxHops:       c.MaxHops,
	}
}

// Level parses LogLevel, defaulting to info.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return lvl
}
