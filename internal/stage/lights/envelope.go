package lights

import (
	"time"

	"github.com/coreman2200/funtimes-cutscene/internal/timeline"
)

// Keyframe is one point of an Envelope; T in seconds.
type Keyframe struct {
	T    float64
	V    float64
	Ease string // "linear","smooth","cubic"
}

// Envelope is a sorted list of keyframes; Eval(t) interpolates a value.
type Envelope struct {
	Keys []Keyframe
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func ease(kind string, x float64) float64 {
	switch kind {
	case "smooth":
		return x * x * (3 - 2*x)
	case "cubic":
		// 6x^5 - 15x^4 + 10x^3
		return x * x * x * (x*(x*6-15) + 10)
	default:
		return x
	}
}

// Eval returns the envelope value at t seconds. Outside the keyed range the
// nearest end value holds.
func (e Envelope) Eval(t float64) float64 {
	n := len(e.Keys)
	switch {
	case n == 0:
		return 0
	case n == 1 || t <= e.Keys[0].T:
		return e.Keys[0].V
	case t >= e.Keys[n-1].T:
		return e.Keys[n-1].V
	}
	for i := 0; i < n-1; i++ {
		a, b := e.Keys[i], e.Keys[i+1]
		if t < a.T || t > b.T {
			continue
		}
		den := b.T - a.T
		if den <= 0 {
			return b.V
		}
		u := ease(a.Ease, clamp01((t-a.T)/den))
		return a.V + (b.V-a.V)*u
	}
	return e.Keys[n-1].V
}

// End is the time of the last keyframe.
func (e Envelope) End() float64 {
	if len(e.Keys) == 0 {
		return 0
	}
	return e.Keys[len(e.Keys)-1].T
}

// Fade returns the brightness envelope for a background effect. Unknown
// effects, and a zero duration, are instant.
func Fade(effect timeline.Effect, d time.Duration) Envelope {
	s := d.Seconds()
	if s <= 0 {
		return Envelope{Keys: []Keyframe{{V: 1}}}
	}
	switch effect {
	case timeline.EffectFadeIn:
		return Envelope{Keys: []Keyframe{{T: 0, V: 0, Ease: "linear"}, {T: s, V: 1}}}
	case timeline.EffectFadeOut:
		return Envelope{Keys: []Keyframe{{T: 0, V: 1, Ease: "linear"}, {T: s, V: 0}}}
	default:
		return Envelope{Keys: []Keyframe{{V: 1}}}
	}
}
