package timeline

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/funtimes-cutscene/internal/diagnostics"
)

const scenarioJSON = `{
  "start": [
    {"event": "clear_sound", "key": "bgm_title"},
    {"event": "clear_foreground"},
    {"event": "set_frame", "key": "frame"},
    {"event": "dialog", "text": "...", "actor_name": "???"},
    {"event": "set_background", "key": "001", "effect": "fadein"},
    {"event": "add_foreground", "key": "girl", "x": 320, "y": 200},
    {"event": "play_sound", "key": "bgm_battle01", "loop": true},
    {"event": "choice", "choices": [{"text": "A", "key": "k1"}, {"text": "B", "key": "k2"}]},
    {"event": "scene_transition", "key": "ending", "data": {"score": 3}}
  ],
  "k1": [{"type": "timeline_transition", "key": "start"}],
  "k2": []
}`

func TestDecodeJSONRegistry(t *testing.T) {
	reg, err := Decode(strings.NewReader(scenarioJSON), JSON)
	require.NoError(t, err)
	assert.Equal(t, []string{"k1", "k2", "start"}, reg.IDs())

	start := reg["start"]
	require.Len(t, start, 9)
	assert.Equal(t, ClearSound{Key: "bgm_title"}, start[0])
	assert.Equal(t, ClearForeground{}, start[1])
	assert.Equal(t, Dialog{Text: "...", ActorName: "???"}, start[3])

	bg, ok := start[4].(SetBackground)
	require.True(t, ok)
	assert.Equal(t, EffectFadeIn, bg.Effect)
	assert.Nil(t, bg.X)

	fg := start[5].(AddForeground)
	require.NotNil(t, fg.X)
	assert.Equal(t, 320.0, *fg.X)

	assert.Equal(t, PlaySound{Key: "bgm_battle01", Loop: true}, start[6])
	assert.Equal(t, Choice{Choices: []Option{{Text: "A", Key: "k1"}, {Text: "B", Key: "k2"}}}, start[7])

	st := start[8].(SceneTransition)
	assert.Equal(t, "ending", st.Key)
	assert.Equal(t, 3.0, st.Data["score"])

	assert.Equal(t, TimelineTransition{Key: "start"}, reg["k1"][0])
	assert.Empty(t, reg["k2"])
}

func TestDecodeYAMLRegistry(t *testing.T) {
	src := `
start:
  - event: dialog
    text: Hi
    actor_name: X
  - event: set_background
    key: street
    x: 10
    effect: fadeout
  - event: scene_transition
    key: main
    data:
      id: other
other:
  - event: choice
    choices:
      - {text: Left, key: start}
      - {text: Right, key: other}
`
	reg, err := Decode(strings.NewReader(src), YAML)
	require.NoError(t, err)
	assert.Equal(t, Dialog{Text: "Hi", ActorName: "X"}, reg["start"][0])
	bg := reg["start"][1].(SetBackground)
	assert.Equal(t, EffectFadeOut, bg.Effect)
	require.NotNil(t, bg.X)
	assert.Equal(t, 10.0, *bg.X)
	assert.Equal(t, "other", reg["start"][2].(SceneTransition).Data["id"])
	assert.Len(t, reg["other"][0].(Choice).Choices, 2)
}

func TestDecodeKeepsUnknownTags(t *testing.T) {
	src := `{"start": [{"event": "shake_camera", "strength": 2}, {"event": "dialog", "text": "ok"}]}`
	reg, err := Decode(strings.NewReader(src), JSON)
	require.NoError(t, err)

	u, ok := reg["start"][0].(Unknown)
	require.True(t, ok)
	assert.Equal(t, Kind("shake_camera"), u.Kind())
	assert.False(t, u.Kind().Known())
	assert.Equal(t, 2.0, u.Fields["strength"])

	diags := reg.Lint()
	require.Len(t, diags, 1)
	assert.Equal(t, diagnostics.CodeUnknownEvent, diags[0].Code)
}

func TestDecodeRejectsMalformedTimeline(t *testing.T) {
	src := `{
	  "good": [{"event": "dialog", "text": "fine"}],
	  "bad": [
	    {"event": "dialog", "text": "fine"},
	    {"event": "set_background"},
	    {"event": "choice", "choices": []},
	    {"text": "no tag"}
	  ]
	}`
	_, err := Decode(strings.NewReader(src), JSON)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedEvent))

	var me *MalformedEventError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, "bad", me.Timeline)
	assert.Equal(t, 1, me.Index)
	assert.Equal(t, KindSetBackground, me.Kind)
	assert.Equal(t, "key", me.Field)

	assert.Contains(t, err.Error(), "bad#2 (choice): missing choices")
	assert.Contains(t, err.Error(), "bad#3 (): missing event")
}

func TestDecodeDialogTextMayBeEmpty(t *testing.T) {
	reg, err := Decode(strings.NewReader(`{"start": [{"event": "dialog", "text": "", "actor_name": "X"}]}`), JSON)
	require.NoError(t, err)
	assert.Equal(t, Dialog{ActorName: "X"}, reg["start"][0])

	reg, err = Decode(strings.NewReader("start:\n  - event: dialog\n    text: \"\"\n"), YAML)
	require.NoError(t, err)
	assert.Equal(t, Dialog{}, reg["start"][0])
	assert.NoError(t, Timeline{Dialog{}}.Validate())

	for f, src := range map[Format]string{
		JSON: `{"start": [{"event": "dialog", "text": "ok"}], "mute": [{"event": "dialog", "actor_name": "X"}]}`,
		YAML: "start:\n  - event: dialog\n    text: ok\nmute:\n  - event: dialog\n    actor_name: X\n",
	} {
		_, err := Decode(strings.NewReader(src), f)
		require.Error(t, err, f)
		var me *MalformedEventError
		require.True(t, errors.As(err, &me), f)
		assert.Equal(t, "mute", me.Timeline, f)
		assert.Equal(t, 0, me.Index, f)
		assert.Equal(t, "text", me.Field, f)
	}
}

func TestFormatOf(t *testing.T) {
	for path, want := range map[string]Format{
		"a.json": JSON, "b.yaml": YAML, "c.YML": YAML,
	} {
		got, err := FormatOf(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}
	_, err := FormatOf("scenario.toml")
	assert.Error(t, err)
}
