package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadKeepsDefaultsForMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("entry: prologue\nlights:\n  enabled: true\n  palette:\n    \"001\": \"#102030\"\n"), 0644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "prologue", c.Entry)
	assert.Equal(t, "title", c.FallbackScene)
	assert.Equal(t, 50, c.TypingDelayMs)
	assert.True(t, c.Lights.Enabled)
	assert.Equal(t, 60, c.Lights.Pixels)
	assert.Equal(t, "#102030", c.Lights.Palette["001"])
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("entry: [unterminated"), 0644))
	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	c := Default()
	c.Addr = ":9090"
	c.Lights.Palette = map[string]string{"002": "#FFFFFF"}
	require.NoError(t, Save(path, c))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("CUTSCENE_ENTRY", "listen")
	t.Setenv("CUTSCENE_TYPING_DELAY_MS", "10")
	t.Setenv("CUTSCENE_STAGE_WIDTH", "640")
	t.Setenv("CUTSCENE_LIGHTS_ENABLED", "true")
	t.Setenv("CUTSCENE_LIGHTS_PALETTE", "001:#000000,002:#FFFFFF")

	c := Default()
	require.NoError(t, ApplyEnv(c))
	assert.Equal(t, "listen", c.Entry)
	assert.Equal(t, 640.0, c.Stage.Width)
	assert.Equal(t, 720.0, c.Stage.Height, "unset variables keep the current value")
	assert.True(t, c.Lights.Enabled)
	assert.Equal(t, map[string]string{"001": "#000000", "002": "#FFFFFF"}, c.Lights.Palette)
	assert.Equal(t, 10*time.Millisecond, c.Director().TypingDelay)
}

func TestApplyEnvError(t *testing.T) {
	t.Setenv("CUTSCENE_TYPING_DELAY_MS", "soon")
	err := ApplyEnv(Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}

func TestLevel(t *testing.T) {
	c := Default()
	assert.Equal(t, zerolog.InfoLevel, c.Level())
	c.LogLevel = "debug"
	assert.Equal(t, zerolog.DebugLevel, c.Level())
	c.LogLevel = "loud"
	assert.Equal(t, zerolog.InfoLevel, c.Level())
}
