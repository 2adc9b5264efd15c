package sequence

import (
	"errors"
	"time"

	"github.com/coreman2200/funtimes-cutscene/internal/timeline"
)

// PlayerState enumerates playback states.
type PlayerState string

const (
	Idle           PlayerState = "idle"
	Advancing      PlayerState = "advancing"
	AwaitingInput  PlayerState = "awaiting_input"
	AwaitingChoice PlayerState = "awaiting_choice"
	Finished       PlayerState = "finished"
	Terminated     PlayerState = "terminated"
)

var (
	ErrAlreadyStarted    = errors.New("player already started")
	ErrClosed            = errors.New("player closed")
	ErrNotAwaitingChoice = errors.New("player is not awaiting a choice")
	ErrChoiceOutOfRange  = errors.New("choice index out of range")
)

// TransitionKind discriminates Transition payloads.
type TransitionKind string

const (
	// TimelineRestart restarts the current scene on timeline Target.
	TimelineRestart TransitionKind = "timeline_restart"
	// SceneSwitch switches to scene Target carrying Data.
	SceneSwitch TransitionKind = "scene_switch"
)

// Transition ends the current playback session.
type Transition struct {
	Kind   TransitionKind `json:"kind"`
	Target string         `json:"target"`
	Data   map[string]any `json:"data,omitempty"`
}

// Hooks are dependency-injected callbacks into the presentation layer. Any
// hook may be nil.
type Hooks struct {
	// Dialogue box. An empty actor name hides the name box.
	SetActorName func(name string)
	SetText      func(text string)

	// Visual layers. Nil x/y means the collaborator's default position.
	SetBackground   func(key string, x, y *float64, effect timeline.Effect)
	SetFrame        func(key string)
	AddForeground   func(key string, x, y *float64)
	ClearForeground func()

	// Audio. SoundPlaying lets the player skip duplicate plays and stops.
	PlaySound    func(key string, loop bool)
	StopSound    func(key string)
	SoundPlaying func(key string) bool

	// Choices are rendered top to bottom in slice order. SetInputEnabled
	// gates the click-anywhere advance input.
	ShowChoices     func(choices []timeline.Option)
	SetInputEnabled func(enabled bool)

	Transition func(t Transition)
	Finished   func()
}

// Timer is a handle to a repeating scheduled task. Stop is idempotent.
type Timer interface {
	Stop()
}

// Scheduler runs fn every d until the returned Timer is stopped. fn must be
// invoked on the same goroutine that drives the Player.
type Scheduler interface {
	Every(d time.Duration, fn func()) Timer
}

// disposition is what a dispatched event does to control flow.
type disposition int

const (
	cascade disposition = iota
	block
	terminate
)

var dispositions = map[timeline.Kind]disposition{
	timeline.KindDialog:             block,
	timeline.KindChoice:             block,
	timeline.KindSetBackground:      cascade,
	timeline.KindSetFrame:           cascade,
	timeline.KindAddForeground:      cascade,
	timeline.KindClearForeground:    cascade,
	timeline.KindPlaySound:          cascade,
	timeline.KindClearSound:         cascade,
	timeline.KindTimelineTransition: terminate,
	timeline.KindSceneTransition:    terminate,
}

func init() {
	for _, k := range timeline.Kinds {
		if _, ok := dispositions[k]; !ok {
			panic("sequence: no disposition for event kind " + string(k))
		}
	}
}

// Blocking reports whether events of kind k wait for external input.
// Unknown kinds are non-blocking.
func Blocking(k timeline.Kind) bool {
	return dispositions[k] == block
}
