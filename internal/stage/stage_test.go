package stage

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/funtimes-cutscene/internal/sequence"
	"github.com/coreman2200/funtimes-cutscene/internal/timeline"
)

func ptr(f float64) *float64 { return &f }

func TestLayers(t *testing.T) {
	s := New(800, 600)
	s.SetBackground("001", nil, ptr(100), timeline.EffectFadeIn)
	s.SetFrame("frame")
	s.AddForeground("a", ptr(10), ptr(20))
	s.AddForeground("b", nil, nil)

	snap := s.Snapshot()
	require.NotNil(t, snap.Background)
	assert.Equal(t, Image{Key: "001", X: 400, Y: 100, Effect: timeline.EffectFadeIn}, *snap.Background)
	assert.Equal(t, Image{Key: "frame", X: 400, Y: 300}, *snap.Frame)
	assert.Equal(t, []Image{{Key: "a", X: 10, Y: 20}, {Key: "b", X: 400, Y: 300}}, snap.Foreground)

	s.SetBackground("002", nil, nil, timeline.EffectNone)
	s.ClearForeground()
	snap = s.Snapshot()
	assert.Equal(t, "002", snap.Background.Key)
	assert.Empty(t, snap.Foreground)
}

func TestMixerIsIdempotent(t *testing.T) {
	s := New(0, 0)
	var ops []Op
	s.Subscribe(func(e Effect) { ops = append(ops, e.Op) })

	s.PlaySound("bgm", true)
	s.PlaySound("bgm", true)
	s.StopSound("ghost")
	assert.True(t, s.SoundPlaying("bgm"))
	assert.Equal(t, []Op{OpPlaySound}, ops)

	s.StopSound("bgm")
	assert.False(t, s.SoundPlaying("bgm"))
	assert.Equal(t, []Op{OpPlaySound, OpStopSound}, ops)
}

func TestSoundEndedOnlyClearsOneShots(t *testing.T) {
	s := New(0, 0)
	s.PlaySound("bgm", true)
	s.PlaySound("hit", false)
	s.SoundEnded("bgm")
	s.SoundEnded("hit")
	assert.Equal(t, []Sound{{Key: "bgm", Loop: true}}, s.Snapshot().Sounds)
}

func TestResetKeepsLoopingSounds(t *testing.T) {
	s := New(0, 0)
	s.PlaySound("bgm", true)
	s.PlaySound("hit", false)
	s.SetText("hello")
	s.SetInputEnabled(false)
	s.ShowChoices([]timeline.Option{{Text: "A", Key: "a"}})

	s.Reset("session-2")
	snap := s.Snapshot()
	assert.Equal(t, "session-2", snap.Session)
	assert.Empty(t, snap.Text)
	assert.Empty(t, snap.Choices)
	assert.True(t, snap.InputEnabled)
	assert.Equal(t, []Sound{{Key: "bgm", Loop: true}}, snap.Sounds)

	var played []string
	s.Subscribe(func(e Effect) {
		if e.Op == OpPlaySound {
			played = append(played, e.Key)
		}
	})
	s.PlaySound("hit", false)
	s.PlaySound("bgm", true)
	assert.Equal(t, []string{"hit"}, played, "one-shot replays after reset")
}

func TestSubscribeCancel(t *testing.T) {
	s := New(0, 0)
	n := 0
	cancel := s.Subscribe(func(Effect) { n++ })
	s.SetText("a")
	cancel()
	s.SetText("b")
	assert.Equal(t, 1, n)
}

func TestHooksDrivePlayer(t *testing.T) {
	s := New(1280, 720)
	s.Reset("abc")
	var effects []Effect
	s.Subscribe(func(e Effect) { effects = append(effects, e) })

	sched := &sequence.ManualScheduler{}
	p := sequence.NewPlayer(s.Hooks(), sched, sequence.WithLogger(zerolog.Nop()))
	require.NoError(t, p.Start(timeline.Timeline{
		timeline.PlaySound{Key: "bgm", Loop: true},
		timeline.PlaySound{Key: "bgm", Loop: true},
		timeline.Dialog{Text: "Hi", ActorName: "X"},
		timeline.Choice{Choices: []timeline.Option{{Text: "A", Key: "k1"}, {Text: "B", Key: "k2"}}},
	}))
	sched.Flush()
	p.Advance()

	snap := s.Snapshot()
	assert.Equal(t, "X", snap.Actor)
	assert.Equal(t, "Hi", snap.Text)
	assert.False(t, snap.InputEnabled)
	assert.Equal(t, []timeline.Option{{Text: "A", Key: "k1"}, {Text: "B", Key: "k2"}}, snap.Choices)

	plays := 0
	for _, e := range effects {
		assert.Equal(t, "abc", e.Session)
		if e.Op == OpPlaySound {
			plays++
		}
	}
	assert.Equal(t, 1, plays)
}
