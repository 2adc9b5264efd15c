package stage

import "github.com/coreman2200/funtimes-cutscene/internal/timeline"

// Op names a presentation change.
type Op string

const (
	OpReset           Op = "reset"
	OpScene           Op = "scene"
	OpActor           Op = "actor"
	OpText            Op = "text"
	OpBackground      Op = "background"
	OpFrame           Op = "frame"
	OpForeground      Op = "foreground"
	OpClearForeground Op = "clear_foreground"
	OpPlaySound       Op = "play_sound"
	OpStopSound       Op = "stop_sound"
	OpChoices         Op = "choices"
	OpInput           Op = "input"
	OpTransition      Op = "transition"
	OpFinished        Op = "finished"
)

// Effect is one published presentation change, serialized as-is to clients.
type Effect struct {
	Op      Op                `json:"op"`
	Session string            `json:"session,omitempty"`
	Key     string            `json:"key,omitempty"`
	Text    string            `json:"text,omitempty"`
	Image   *Image            `json:"image,omitempty"`
	Loop    bool              `json:"loop,omitempty"`
	Choices []timeline.Option `json:"choices,omitempty"`
	Enabled *bool             `json:"enabled,omitempty"`
	Data    map[string]any    `json:"data,omitempty"`
}
