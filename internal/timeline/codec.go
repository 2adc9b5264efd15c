package timeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format names a registry serialization.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// wireEvent is the flat superset of every variant's fields. "event" is the
// tag; "type" is accepted as an alias.
type wireEvent struct {
	Event     Kind           `json:"event" yaml:"event"`
	Type      Kind           `json:"type" yaml:"type"`
	Text      *string        `json:"text" yaml:"text"`
	ActorName string         `json:"actor_name" yaml:"actor_name"`
	Key       string         `json:"key" yaml:"key"`
	X         *float64       `json:"x" yaml:"x"`
	Y         *float64       `json:"y" yaml:"y"`
	Effect    Effect         `json:"effect" yaml:"effect"`
	Data      map[string]any `json:"data" yaml:"data"`
	Choices   []Option       `json:"choices" yaml:"choices"`
	Loop      bool           `json:"loop" yaml:"loop"`
}

func (w wireEvent) tag() Kind {
	if w.Event != "" {
		return w.Event
	}
	return w.Type
}

// event builds the typed variant for event #i. Dialog text may be empty but
// must be present; every other required field is checked by Validate.
func (w wireEvent) event(i int) (Event, error) {
	switch w.tag() {
	case KindDialog:
		if w.Text == nil {
			return nil, &MalformedEventError{Index: i, Kind: KindDialog, Field: "text"}
		}
		return Dialog{Text: *w.Text, ActorName: w.ActorName}, nil
	case KindSetBackground:
		return SetBackground{Key: w.Key, X: w.X, Y: w.Y, Effect: w.Effect}, nil
	case KindSetFrame:
		return SetFrame{Key: w.Key}, nil
	case KindAddForeground:
		return AddForeground{Key: w.Key, X: w.X, Y: w.Y}, nil
	case KindClearForeground:
		return ClearForeground{}, nil
	case KindTimelineTransition:
		return TimelineTransition{Key: w.Key}, nil
	case KindSceneTransition:
		return SceneTransition{Key: w.Key, Data: w.Data}, nil
	case KindChoice:
		return Choice{Choices: w.Choices}, nil
	case KindPlaySound:
		return PlaySound{Key: w.Key, Loop: w.Loop}, nil
	case KindClearSound:
		return ClearSound{Key: w.Key}, nil
	default:
		return Unknown{Tag: w.tag()}, nil
	}
}

// UnmarshalJSON decodes an array of tagged event objects.
func (t *Timeline) UnmarshalJSON(b []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(b, &raws); err != nil {
		return err
	}
	out := make(Timeline, 0, len(raws))
	for i, raw := range raws {
		var w wireEvent
		if err := json.Unmarshal(raw, &w); err != nil {
			return fmt.Errorf("event #%d: %w", i, err)
		}
		ev, err := w.event(i)
		if err != nil {
			return err
		}
		if u, ok := ev.(Unknown); ok {
			if err := json.Unmarshal(raw, &u.Fields); err != nil {
				return fmt.Errorf("event #%d: %w", i, err)
			}
			ev = u
		}
		out = append(out, ev)
	}
	*t = out
	return nil
}

// UnmarshalYAML decodes a sequence of tagged event mappings.
func (t *Timeline) UnmarshalYAML(value *yaml.Node) error {
	var nodes []yaml.Node
	if err := value.Decode(&nodes); err != nil {
		return err
	}
	out := make(Timeline, 0, len(nodes))
	for i := range nodes {
		var w wireEvent
		if err := nodes[i].Decode(&w); err != nil {
			return fmt.Errorf("event #%d: %w", i, err)
		}
		ev, err := w.event(i)
		if err != nil {
			return err
		}
		if u, ok := ev.(Unknown); ok {
			if err := nodes[i].Decode(&u.Fields); err != nil {
				return fmt.Errorf("event #%d: %w", i, err)
			}
			ev = u
		}
		out = append(out, ev)
	}
	*t = out
	return nil
}

// Decode reads a registry in the given format and validates it.
func Decode(r io.Reader, f Format) (Registry, error) {
	reg := Registry{}
	switch f {
	case JSON:
		var raw map[string]json.RawMessage
		if err := json.NewDecoder(r).Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode json registry: %w", err)
		}
		for name, b := range raw {
			var tl Timeline
			if err := json.Unmarshal(b, &tl); err != nil {
				return nil, inTimeline(name, err)
			}
			reg[name] = tl
		}
	case YAML:
		var raw map[string]yaml.Node
		if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode yaml registry: %w", err)
		}
		for name, node := range raw {
			var tl Timeline
			if err := node.Decode(&tl); err != nil {
				return nil, inTimeline(name, err)
			}
			reg[name] = tl
		}
	default:
		return nil, fmt.Errorf("unsupported registry format %q", f)
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return reg, nil
}

func inTimeline(name string, err error) error {
	var me *MalformedEventError
	if errors.As(err, &me) {
		me.Timeline = name
		return me
	}
	return fmt.Errorf("timeline %q: %w", name, err)
}

// FormatOf picks a format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return JSON, nil
	case ".yaml", ".yml":
		return YAML, nil
	}
	return "", fmt.Errorf("cannot infer registry format from %q", path)
}

// Load reads and validates the registry file at path.
func Load(path string) (Registry, error) {
	f, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	reg, err := Decode(fh, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return reg, nil
}
