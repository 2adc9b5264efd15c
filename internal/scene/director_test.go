package scene

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/funtimes-cutscene/internal/diagnostics"
	"github.com/coreman2200/funtimes-cutscene/internal/sequence"
	"github.com/coreman2200/funtimes-cutscene/internal/stage"
	"github.com/coreman2200/funtimes-cutscene/internal/timeline"
)

type harness struct {
	st       *stage.Stage
	sched    *sequence.ManualScheduler
	d        *Director
	scenes   []string
	sessions []Session
	diags    []diagnostics.Diagnostic
	trans    []sequence.Transition
	finished int
}

func newHarness(reg timeline.Registry) *harness {
	h := &harness{st: stage.New(1280, 720), sched: &sequence.ManualScheduler{}}
	h.d = New(reg, h.st.Hooks(), h.sched, Config{}, Events{
		SessionStarted: func(s Session) { h.sessions = append(h.sessions, s); h.st.Reset(s.ID) },
		SceneChanged:   func(name string, data map[string]any) { h.scenes = append(h.scenes, name) },
		Transition:     func(t sequence.Transition) { h.trans = append(h.trans, t) },
		Finished:       func(Session) { h.finished++ },
		Diagnostic:     func(d diagnostics.Diagnostic) { h.diags = append(h.diags, d) },
	}).WithLogger(zerolog.Nop())
	return h
}

func (h *harness) click() {
	h.sched.Flush()
	h.d.Advance()
}

var registry = timeline.Registry{
	"start": {
		timeline.ClearSound{Key: "bgm_title"},
		timeline.SetFrame{Key: "frame"},
		timeline.Dialog{Text: "Hello", ActorName: "???"},
		timeline.Choice{Choices: []timeline.Option{
			{Text: "Listen", Key: "listen"},
			{Text: "Flee", Key: "flee"},
		}},
	},
	"listen": {
		timeline.Dialog{Text: "Good."},
		timeline.SceneTransition{Key: "ending", Data: map[string]any{"route": "listen"}},
	},
	"flee": {
		timeline.TimelineTransition{Key: "start"},
	},
	"lost": {
		timeline.TimelineTransition{Key: "nowhere"},
	},
	"back": {
		timeline.SceneTransition{Key: "main", Data: map[string]any{"id": "listen"}},
	},
	"loop": {
		timeline.TimelineTransition{Key: "loop"},
	},
}

func TestEnterUnknownTimelineFallsBack(t *testing.T) {
	h := newHarness(registry)
	err := h.d.Enter("missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, timeline.ErrUnknownTimeline))
	assert.Empty(t, h.sessions, "no player is started")
	assert.Equal(t, []string{"title"}, h.scenes)
	assert.Equal(t, "title", h.d.Session().Scene)
	assert.Equal(t, sequence.Idle, h.d.Status().State)
	require.Len(t, h.diags, 1)
	assert.Equal(t, diagnostics.CodeUnknownTimeline, h.diags[0].Code)
}

func TestEnterDefaultsToEntryTimeline(t *testing.T) {
	h := newHarness(registry)
	require.NoError(t, h.d.Enter(""))
	require.Len(t, h.sessions, 1)
	assert.Equal(t, "start", h.sessions[0].Timeline)
	assert.Equal(t, "main", h.sessions[0].Scene)
	assert.NotEmpty(t, h.sessions[0].ID)

	st := h.d.Status()
	assert.Equal(t, sequence.AwaitingInput, st.State)
	assert.Equal(t, 3, st.Index)
	assert.Equal(t, timeline.KindDialog, st.Current)
	assert.True(t, st.Typing)
}

func TestChoiceRestartsOnChosenTimeline(t *testing.T) {
	h := newHarness(registry)
	require.NoError(t, h.d.Enter("start"))
	h.click() // complete typing is already flushed; moves to the choice
	require.Equal(t, sequence.AwaitingChoice, h.d.Status().State)
	assert.False(t, h.st.Snapshot().InputEnabled)

	require.NoError(t, h.d.Choose(0))
	require.Len(t, h.sessions, 2)
	assert.Equal(t, "listen", h.sessions[1].Timeline)
	assert.NotEqual(t, h.sessions[0].ID, h.sessions[1].ID)

	snap := h.st.Snapshot()
	assert.True(t, snap.InputEnabled, "new session re-enables input")
	assert.Empty(t, snap.Choices)

	h.click()
	assert.Equal(t, []string{"ending"}, h.scenes)
	assert.Equal(t, "ending", h.d.Session().Scene)
	assert.Equal(t, sequence.Idle, h.d.Status().State)

	// nothing left to drive
	h.d.Advance()
	assert.ErrorIs(t, h.d.Choose(0), sequence.ErrNotAwaitingChoice)
}

func TestTimelineTransitionRestartsScene(t *testing.T) {
	h := newHarness(registry)
	require.NoError(t, h.d.Enter("flee"))
	require.Len(t, h.sessions, 2)
	assert.Equal(t, "flee", h.sessions[0].Timeline)
	assert.Equal(t, "start", h.sessions[1].Timeline)
	assert.Equal(t, sequence.AwaitingInput, h.d.Status().State)
	assert.Equal(t, []sequence.Transition{{Kind: sequence.TimelineRestart, Target: "start"}}, h.trans)
}

func TestTransitionToUnknownTimelineFallsBack(t *testing.T) {
	h := newHarness(registry)
	require.NoError(t, h.d.Enter("lost"), "entry itself resolved")
	assert.Equal(t, []string{"title"}, h.scenes)
	require.Len(t, h.diags, 1)
}

func TestSceneSwitchToMainEntersTimelineFromData(t *testing.T) {
	h := newHarness(registry)
	require.NoError(t, h.d.Enter("back"))
	require.Len(t, h.sessions, 2)
	assert.Equal(t, "listen", h.sessions[1].Timeline)
	assert.Empty(t, h.scenes)
}

func TestTransitionLoopIsCut(t *testing.T) {
	h := newHarness(registry)
	require.NoError(t, h.d.Enter("loop"))
	assert.Equal(t, []string{"title"}, h.scenes)
	assert.Equal(t, sequence.Idle, h.d.Status().State)
}

func TestFinishedSession(t *testing.T) {
	h := newHarness(timeline.Registry{"start": {timeline.Dialog{Text: "only"}}})
	require.NoError(t, h.d.Enter(""))
	h.click()
	assert.Equal(t, 1, h.finished)
	assert.Equal(t, sequence.Finished, h.d.Status().State)
}

func TestCloseCancelsTyping(t *testing.T) {
	h := newHarness(registry)
	require.NoError(t, h.d.Enter("start"))
	require.Equal(t, 1, h.sched.Active())
	h.d.Close()
	assert.Zero(t, h.sched.Active())
	assert.Equal(t, sequence.Idle, h.d.Status().State)
}
