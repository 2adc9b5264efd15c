package sequence

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/funtimes-cutscene/internal/timeline"
)

// DefaultTypingDelay is the reveal interval per text unit.
const DefaultTypingDelay = 50 * time.Millisecond

// Player owns one playback session: the timeline, the index of the next
// event, and at most one in-flight typing task. It is not safe for
// concurrent use; drive it from a single goroutine (see Loop).
type Player struct {
	State PlayerState

	tl  timeline.Timeline
	idx int // next event to dispatch

	typing      *typing
	typingDelay time.Duration
	dispatching bool
	closed      bool

	hooks Hooks
	sched Scheduler
	log   zerolog.Logger
}

// Option configures a Player.
type Option func(*Player)

// WithTypingDelay sets the per-unit reveal delay. Negative values are
// treated as zero.
func WithTypingDelay(d time.Duration) Option {
	return func(p *Player) {
		if d < 0 {
			d = 0
		}
		p.typingDelay = d
	}
}

// WithLogger replaces the default component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Player) { p.log = l }
}

// NewPlayer constructs an Idle Player with provided hooks.
func NewPlayer(h Hooks, s Scheduler, opts ...Option) *Player {
	p := &Player{
		State:       Idle,
		hooks:       h,
		sched:       s,
		typingDelay: DefaultTypingDelay,
		log:         log.With().Str("component", "sequence").Logger(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Start stores tl and dispatches until the first blocking event, a
// transition, or the end of tl. An empty timeline finishes immediately.
func (p *Player) Start(tl timeline.Timeline) error {
	if p.closed {
		return ErrClosed
	}
	if p.State != Idle {
		return ErrAlreadyStarted
	}
	p.tl = tl
	p.idx = 0
	p.State = Advancing
	p.log.Debug().Int("events", len(tl)).Msg("start")
	p.run()
	return nil
}

// Advance is the external click signal. A click during typing only
// completes the reveal; the next click moves on.
func (p *Player) Advance() {
	if p.closed {
		return
	}
	if p.dispatching {
		p.log.Debug().Int("index", p.idx).Msg("advance dropped: dispatch in flight")
		return
	}
	// click-anywhere is disabled while choices are shown
	if p.State != AwaitingInput {
		return
	}
	if p.typing != nil {
		p.completeTyping()
		return
	}
	p.run()
}

// Choose selects choice i of the Choice event being shown. It behaves like a
// TimelineTransition to that choice's key.
func (p *Player) Choose(i int) error {
	if p.closed {
		return ErrClosed
	}
	if p.dispatching || p.State != AwaitingChoice {
		return ErrNotAwaitingChoice
	}
	ev, _ := p.Current()
	c, ok := ev.(timeline.Choice)
	if !ok {
		return ErrNotAwaitingChoice
	}
	if i < 0 || i >= len(c.Choices) {
		return ErrChoiceOutOfRange
	}
	p.dispatching = true
	defer func() { p.dispatching = false }()
	p.log.Debug().Int("choice", i).Str("key", c.Choices[i].Key).Msg("choice selected")
	p.transition(Transition{Kind: TimelineRestart, Target: c.Choices[i].Key})
	return nil
}

// Close cancels any typing task and stops the player from reacting to
// further input. Safe to call more than once.
func (p *Player) Close() {
	p.stopTyping()
	p.closed = true
}

// Index returns the index of the next event to dispatch.
func (p *Player) Index() int { return p.idx }

// Len returns the number of events in the loaded timeline.
func (p *Player) Len() int { return len(p.tl) }

// Typing reports whether a reveal is in flight.
func (p *Player) Typing() bool { return p.typing != nil }

// Current returns the most recently dispatched event.
func (p *Player) Current() (timeline.Event, bool) {
	if p.idx == 0 || p.idx > len(p.tl) {
		return nil, false
	}
	return p.tl[p.idx-1], true
}

// run dispatches events until one blocks or terminates, or the timeline
// ends. Non-blocking events complete before the next begins.
func (p *Player) run() {
	p.dispatching = true
	defer func() { p.dispatching = false }()

	for p.idx < len(p.tl) {
		ev := p.tl[p.idx]
		p.idx++
		p.State = Advancing
		if !p.dispatch(ev) {
			return
		}
	}
	p.State = Finished
	p.log.Debug().Int("events", len(p.tl)).Msg("finished")
	if p.hooks.Finished != nil {
		p.hooks.Finished()
	}
}

// dispatch applies ev and reports whether playback should continue.
func (p *Player) dispatch(ev timeline.Event) bool {
	d, known := dispositions[ev.Kind()]
	if !known {
		p.log.Warn().Str("event", string(ev.Kind())).Int("index", p.idx-1).Msg("unknown event skipped")
		return true
	}
	h := p.hooks
	switch e := ev.(type) {
	case timeline.Dialog:
		if h.SetActorName != nil {
			h.SetActorName(e.ActorName)
		}
		p.startTyping(e.Text)
		p.State = AwaitingInput
	case timeline.SetBackground:
		if h.SetBackground != nil {
			h.SetBackground(e.Key, e.X, e.Y, e.Effect)
		}
	case timeline.SetFrame:
		if h.SetFrame != nil {
			h.SetFrame(e.Key)
		}
	case timeline.AddForeground:
		if h.AddForeground != nil {
			h.AddForeground(e.Key, e.X, e.Y)
		}
	case timeline.ClearForeground:
		if h.ClearForeground != nil {
			h.ClearForeground()
		}
	case timeline.PlaySound:
		if h.SoundPlaying != nil && h.SoundPlaying(e.Key) {
			break
		}
		if h.PlaySound != nil {
			h.PlaySound(e.Key, e.Loop)
		}
	case timeline.ClearSound:
		if h.SoundPlaying != nil && !h.SoundPlaying(e.Key) {
			break
		}
		if h.StopSound != nil {
			h.StopSound(e.Key)
		}
	case timeline.Choice:
		if h.SetInputEnabled != nil {
			h.SetInputEnabled(false)
		}
		if h.ShowChoices != nil {
			h.ShowChoices(e.Choices)
		}
		p.State = AwaitingChoice
	case timeline.TimelineTransition:
		p.transition(Transition{Kind: TimelineRestart, Target: e.Key})
	case timeline.SceneTransition:
		p.transition(Transition{Kind: SceneSwitch, Target: e.Key, Data: e.Data})
	default:
		p.log.Error().Str("event", string(ev.Kind())).Msg("event kind has a disposition but no handler")
		return true
	}
	return d == cascade
}

func (p *Player) transition(t Transition) {
	p.stopTyping()
	p.State = Terminated
	p.log.Info().Str("kind", string(t.Kind)).Str("target", t.Target).Msg("transition")
	if p.hooks.Transition != nil {
		p.hooks.Transition(t)
	}
}
