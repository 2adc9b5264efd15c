package timeline

import (
	"errors"
	"fmt"
	"sort"

	"github.com/coreman2200/funtimes-cutscene/internal/diagnostics"
)

var (
	// ErrUnknownTimeline is returned when an identifier is absent from a Registry.
	ErrUnknownTimeline = errors.New("unknown timeline id")
	// ErrMalformedEvent matches any *MalformedEventError.
	ErrMalformedEvent = errors.New("malformed event")
)

// MalformedEventError reports an event missing a field its tag requires.
type MalformedEventError struct {
	Timeline string
	Index    int
	Kind     Kind
	Field    string
}

func (e *MalformedEventError) Error() string {
	if e.Timeline == "" {
		return fmt.Sprintf("malformed event #%d (%s): missing %s", e.Index, e.Kind, e.Field)
	}
	return fmt.Sprintf("malformed event %s#%d (%s): missing %s", e.Timeline, e.Index, e.Kind, e.Field)
}

func (e *MalformedEventError) Is(target error) bool { return target == ErrMalformedEvent }

// Validate checks every event in t. All problems are returned joined.
func (t Timeline) Validate() error {
	return t.validate("")
}

func (t Timeline) validate(name string) error {
	var errs []error
	for i, ev := range t {
		if ev == nil {
			errs = append(errs, &MalformedEventError{Timeline: name, Index: i, Field: "event"})
			continue
		}
		if field, ok := ev.validate(); !ok {
			errs = append(errs, &MalformedEventError{Timeline: name, Index: i, Kind: ev.Kind(), Field: field})
		}
	}
	return errors.Join(errs...)
}

// IDs returns the registry keys sorted.
func (r Registry) IDs() []string {
	out := make([]string, 0, len(r))
	for k := range r {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Resolve returns the timeline registered under id.
func (r Registry) Resolve(id string) (Timeline, error) {
	tl, ok := r[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTimeline, id)
	}
	return tl, nil
}

// Validate checks every timeline; a registry with any malformed event is
// rejected as a whole.
func (r Registry) Validate() error {
	var errs []error
	for _, id := range r.IDs() {
		if err := r[id].validate(id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Lint reports authoring problems that do not stop playback: transition and
// choice targets missing from the registry, empty timelines, and tags this
// build will skip.
func (r Registry) Lint() []diagnostics.Diagnostic {
	var out []diagnostics.Diagnostic
	dangling := func(id string, i int, target string) {
		if _, ok := r[target]; ok {
			return
		}
		out = append(out, diagnostics.Diagnostic{
			Severity: diagnostics.Warn,
			Code:     diagnostics.CodeDanglingTarget,
			Summary:  "Transition target is not a registered timeline",
			Evidence: map[string]any{"timeline": id, "index": i, "target": target},
			SuggestedFixes: []string{
				"register a timeline named " + target,
				"fix the key on the event",
			},
		})
	}
	for _, id := range r.IDs() {
		tl := r[id]
		if len(tl) == 0 {
			out = append(out, diagnostics.Diagnostic{
				Severity: diagnostics.Info,
				Code:     diagnostics.CodeEmptyTimeline,
				Summary:  "Timeline has no events",
				Evidence: map[string]any{"timeline": id},
			})
		}
		for i, ev := range tl {
			switch e := ev.(type) {
			case TimelineTransition:
				dangling(id, i, e.Key)
			case Choice:
				for _, c := range e.Choices {
					dangling(id, i, c.Key)
				}
			case Unknown:
				out = append(out, diagnostics.Diagnostic{
					Severity: diagnostics.Warn,
					Code:     diagnostics.CodeUnknownEvent,
					Summary:  "Event tag is not recognised and will be skipped",
					Evidence: map[string]any{"timeline": id, "index": i, "event": string(e.Tag)},
				})
			}
		}
	}
	return out
}
