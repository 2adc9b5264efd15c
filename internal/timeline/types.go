package timeline

// Kind is the wire tag that discriminates an Event.
type Kind string

const (
	KindDialog             Kind = "dialog"
	KindSetBackground      Kind = "set_background"
	KindSetFrame           Kind = "set_frame"
	KindAddForeground      Kind = "add_foreground"
	KindClearForeground    Kind = "clear_foreground"
	KindTimelineTransition Kind = "timeline_transition"
	KindSceneTransition    Kind = "scene_transition"
	KindChoice             Kind = "choice"
	KindPlaySound          Kind = "play_sound"
	KindClearSound         Kind = "clear_sound"
)

// Kinds lists every known tag in declaration order.
var Kinds = []Kind{
	KindDialog,
	KindSetBackground,
	KindSetFrame,
	KindAddForeground,
	KindClearForeground,
	KindTimelineTransition,
	KindSceneTransition,
	KindChoice,
	KindPlaySound,
	KindClearSound,
}

// Known reports whether k is one of Kinds.
func (k Kind) Known() bool {
	for _, kk := range Kinds {
		if kk == k {
			return true
		}
	}
	return false
}

// Effect selects how a background replacement is presented.
type Effect string

const (
	EffectNone    Effect = ""
	EffectFadeIn  Effect = "fadein"
	EffectFadeOut Effect = "fadeout"
)

// Event is one authored timeline step. The set of implementations is closed:
// only types in this package satisfy it.
type Event interface {
	Kind() Kind
	validate() (field string, ok bool)
}

// Dialog shows a line of text, optionally under an actor name box. Blocking.
type Dialog struct {
	Text      string `json:"text" yaml:"text"`
	ActorName string `json:"actor_name,omitempty" yaml:"actor_name,omitempty"`
}

// SetBackground replaces the background layer.
type SetBackground struct {
	Key    string   `json:"key" yaml:"key"`
	X      *float64 `json:"x,omitempty" yaml:"x,omitempty"`
	Y      *float64 `json:"y,omitempty" yaml:"y,omitempty"`
	Effect Effect   `json:"effect,omitempty" yaml:"effect,omitempty"`
}

// SetFrame replaces the frame overlay layer.
type SetFrame struct {
	Key string `json:"key" yaml:"key"`
}

// AddForeground appends one image to the foreground layer.
type AddForeground struct {
	Key string   `json:"key" yaml:"key"`
	X   *float64 `json:"x,omitempty" yaml:"x,omitempty"`
	Y   *float64 `json:"y,omitempty" yaml:"y,omitempty"`
}

// ClearForeground empties the foreground layer.
type ClearForeground struct{}

// TimelineTransition restarts the current scene on timeline Key.
type TimelineTransition struct {
	Key string `json:"key" yaml:"key"`
}

// SceneTransition switches to scene Key, handing it Data.
type SceneTransition struct {
	Key  string         `json:"key" yaml:"key"`
	Data map[string]any `json:"data,omitempty" yaml:"data,omitempty"`
}

// Option is one selectable entry of a Choice.
type Option struct {
	Text string `json:"text" yaml:"text"`
	Key  string `json:"key" yaml:"key"`
}

// Choice presents Choices top to bottom and waits for a selection. Blocking.
type Choice struct {
	Choices []Option `json:"choices" yaml:"choices"`
}

// PlaySound starts sound Key unless it is already playing.
type PlaySound struct {
	Key  string `json:"key" yaml:"key"`
	Loop bool   `json:"loop,omitempty" yaml:"loop,omitempty"`
}

// ClearSound stops sound Key if it is playing.
type ClearSound struct {
	Key string `json:"key" yaml:"key"`
}

// Unknown carries an event whose tag this build does not recognise.
type Unknown struct {
	Tag    Kind
	Fields map[string]any
}

func (Dialog) Kind() Kind             { return KindDialog }
func (SetBackground) Kind() Kind      { return KindSetBackground }
func (SetFrame) Kind() Kind           { return KindSetFrame }
func (AddForeground) Kind() Kind      { return KindAddForeground }
func (ClearForeground) Kind() Kind    { return KindClearForeground }
func (TimelineTransition) Kind() Kind { return KindTimelineTransition }
func (SceneTransition) Kind() Kind    { return KindSceneTransition }
func (Choice) Kind() Kind             { return KindChoice }
func (PlaySound) Kind() Kind          { return KindPlaySound }
func (ClearSound) Kind() Kind         { return KindClearSound }
func (u Unknown) Kind() Kind          { return u.Tag }

func (Dialog) validate() (string, bool)               { return "", true }
func (e SetBackground) validate() (string, bool)      { return "key", e.Key != "" }
func (e SetFrame) validate() (string, bool)           { return "key", e.Key != "" }
func (e AddForeground) validate() (string, bool)      { return "key", e.Key != "" }
func (ClearForeground) validate() (string, bool)      { return "", true }
func (e TimelineTransition) validate() (string, bool) { return "key", e.Key != "" }
func (e SceneTransition) validate() (string, bool)    { return "key", e.Key != "" }
func (e PlaySound) validate() (string, bool)          { return "key", e.Key != "" }
func (e ClearSound) validate() (string, bool)         { return "key", e.Key != "" }
func (u Unknown) validate() (string, bool)            { return "event", u.Tag != "" }

func (e Choice) validate() (string, bool) {
	if len(e.Choices) == 0 {
		return "choices", false
	}
	for _, c := range e.Choices {
		if c.Text == "" {
			return "choices.text", false
		}
		if c.Key == "" {
			return "choices.key", false
		}
	}
	return "", true
}

// Timeline is an ordered sequence of events. It is not modified once handed
// to a player.
type Timeline []Event

// Registry maps timeline identifiers to timelines.
type Registry map[string]Timeline
