package scene

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/funtimes-cutscene/internal/diagnostics"
	"github.com/coreman2200/funtimes-cutscene/internal/sequence"
	"github.com/coreman2200/funtimes-cutscene/internal/timeline"
)

// Config names the entry points the director falls back on.
type Config struct {
	Entry         string // timeline entered when none is named
	MainScene     string // scene that plays timelines
	FallbackScene string // scene shown when an entry timeline is unknown
	TypingDelay   time.Duration
	MaxHops       int // transitions applied back to back before giving up
}

func (c *Config) defaults() {
	if c.Entry == "" {
		c.Entry = "start"
	}
	if c.MainScene == "" {
		c.MainScene = "main"
	}
	if c.FallbackScene == "" {
		c.FallbackScene = "title"
	}
	if c.TypingDelay <= 0 {
		c.TypingDelay = sequence.DefaultTypingDelay
	}
	if c.MaxHops <= 0 {
		c.MaxHops = 64
	}
}

// Session describes the active scene instance.
type Session struct {
	ID        string    `json:"id"`
	Scene     string    `json:"scene"`
	Timeline  string    `json:"timeline,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

// Events are optional callbacks into the surrounding runtime.
type Events struct {
	// SessionStarted fires before the first event of a new timeline session
	// is dispatched.
	SessionStarted func(s Session)
	// SceneChanged reports a switch to a scene that does not play timelines.
	SceneChanged func(name string, data map[string]any)
	// Transition fires as a player's transition is applied.
	Transition func(t sequence.Transition)
	Finished   func(s Session)
	Diagnostic diagnostics.Sink
}

// Status is a point-in-time view of playback.
type Status struct {
	Session Session              `json:"session"`
	State   sequence.PlayerState `json:"state"`
	Index   int                  `json:"index"`
	Len     int                  `json:"len"`
	Typing  bool                 `json:"typing"`
	Current timeline.Kind        `json:"current,omitempty"`
}

// Director is the scene-selection layer. It resolves timelines, owns one
// Player per session and applies the transitions players issue. Like the
// Player it must be driven from a single goroutine.
type Director struct {
	reg    timeline.Registry
	cfg    Config
	hooks  sequence.Hooks
	sched  sequence.Scheduler
	events Events
	log    zerolog.Logger

	player  *sequence.Player
	session Session
	pending []sequence.Transition
}

// New returns a Director presenting through hooks. The Transition and
// Finished hooks are owned by the director and overwritten.
func New(reg timeline.Registry, hooks sequence.Hooks, sched sequence.Scheduler, cfg Config, ev Events) *Director {
	cfg.defaults()
	return &Director{
		reg:    reg,
		cfg:    cfg,
		hooks:  hooks,
		sched:  sched,
		events: ev,
		log:    log.With().Str("component", "scene").Logger(),
	}
}

// WithLogger replaces the component logger.
func (d *Director) WithLogger(l zerolog.Logger) *Director {
	d.log = l
	return d
}

// Enter starts the main scene on timeline id (the configured entry if
// empty). An unknown id switches to the fallback scene and is returned
// wrapping timeline.ErrUnknownTimeline.
func (d *Director) Enter(id string) error {
	err := d.enter(id)
	d.drain()
	return err
}

// Advance forwards a click to the active player.
func (d *Director) Advance() {
	if d.player == nil {
		return
	}
	d.player.Advance()
	d.drain()
}

// Choose forwards a choice selection to the active player.
func (d *Director) Choose(i int) error {
	if d.player == nil {
		return sequence.ErrNotAwaitingChoice
	}
	err := d.player.Choose(i)
	d.drain()
	return err
}

// Session returns the active session.
func (d *Director) Session() Session { return d.session }

// Status reports the active player's progress.
func (d *Director) Status() Status {
	st := Status{Session: d.session, State: sequence.Idle}
	if d.player == nil {
		return st
	}
	st.State = d.player.State
	st.Index = d.player.Index()
	st.Len = d.player.Len()
	st.Typing = d.player.Typing()
	if ev, ok := d.player.Current(); ok {
		st.Current = ev.Kind()
	}
	return st
}

// Close tears down the active session, cancelling any typing task.
func (d *Director) Close() {
	d.closePlayer()
	d.pending = nil
}

func (d *Director) closePlayer() {
	if d.player != nil {
		d.player.Close()
		d.player = nil
	}
}

func (d *Director) enter(id string) error {
	if id == "" {
		id = d.cfg.Entry
	}
	d.closePlayer()
	tl, err := d.reg.Resolve(id)
	if err != nil {
		d.log.Error().Err(err).Str("fallback", d.cfg.FallbackScene).Msg("entry timeline not registered")
		d.events.Diagnostic.Emit(diagnostics.Diagnostic{
			Severity:     diagnostics.Err,
			Code:         diagnostics.CodeUnknownTimeline,
			Summary:      "Timeline id is not registered",
			Detail:       err.Error(),
			LikelyCauses: []string{"typo in a transition or choice key", "timeline missing from the registry file"},
			Evidence:     map[string]any{"id": id, "fallback": d.cfg.FallbackScene},
		})
		d.switchScene(d.cfg.FallbackScene, nil)
		return err
	}

	d.session = Session{ID: uuid.NewString(), Scene: d.cfg.MainScene, Timeline: id, StartedAt: time.Now()}
	sess := d.session
	logger := d.log.With().Str("session", sess.ID).Str("timeline", id).Logger()
	logger.Info().Int("events", len(tl)).Msg("session started")

	hooks := d.hooks
	hooks.Transition = func(t sequence.Transition) { d.pending = append(d.pending, t) }
	hooks.Finished = func() {
		logger.Info().Msg("session finished")
		if d.events.Finished != nil {
			d.events.Finished(sess)
		}
	}
	if d.events.SessionStarted != nil {
		d.events.SessionStarted(sess)
	}
	d.player = sequence.NewPlayer(hooks, d.sched,
		sequence.WithTypingDelay(d.cfg.TypingDelay),
		sequence.WithLogger(logger),
	)
	return d.player.Start(tl)
}

func (d *Director) switchScene(name string, data map[string]any) {
	d.closePlayer()
	d.session = Session{ID: uuid.NewString(), Scene: name, StartedAt: time.Now()}
	d.log.Info().Str("scene", name).Str("session", d.session.ID).Msg("scene switched")
	if d.events.SceneChanged != nil {
		d.events.SceneChanged(name, data)
	}
}

// drain applies transitions issued during the last dispatch. Applying one
// may start a session that transitions again; those are queued behind it.
func (d *Director) drain() {
	for hops := 0; len(d.pending) > 0; hops++ {
		if hops >= d.cfg.MaxHops {
			d.log.Error().Int("hops", hops).Msg("transition chain too long; switching to fallback")
			d.pending = nil
			d.switchScene(d.cfg.FallbackScene, nil)
			return
		}
		t := d.pending[0]
		d.pending = d.pending[1:]
		if d.events.Transition != nil {
			d.events.Transition(t)
		}
		d.apply(t)
	}
}

func (d *Director) apply(t sequence.Transition) {
	switch t.Kind {
	case sequence.TimelineRestart:
		_ = d.enter(t.Target)
	case sequence.SceneSwitch:
		if t.Target != d.cfg.MainScene {
			d.switchScene(t.Target, t.Data)
			return
		}
		id, _ := t.Data["id"].(string)
		_ = d.enter(id)
	}
}
