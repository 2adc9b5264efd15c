package app

import (
	"errors"

	"github.com/coreman2200/funtimes-cutscene/internal/scene"
	"github.com/coreman2200/funtimes-cutscene/internal/sequence"
)

// ErrStepLimit is returned when a run has not settled after MaxSteps inputs.
var ErrStepLimit = errors.New("conductor: step limit reached")

// Conductor plays a Director headless: typing is flushed instantly, every
// click prompt is answered and choices are taken from Picks in order (the
// first option once Picks runs out).
type Conductor struct {
	Dir      *scene.Director
	Sched    *sequence.ManualScheduler
	Picks    []int
	MaxSteps int

	// OnStep, if set, sees the status before each input.
	OnStep func(step int, st scene.Status)
}

// Run drives playback until the session finishes or leaves the main scene.
// It returns the number of inputs sent.
func (c *Conductor) Run() (int, error) {
	limit := c.MaxSteps
	if limit <= 0 {
		limit = 1000
	}
	picks := c.Picks
	for step := 0; step < limit; step++ {
		c.Sched.Flush()
		st := c.Dir.Status()
		if c.OnStep != nil {
			c.OnStep(step, st)
		}
		switch st.State {
		case sequence.AwaitingInput:
			c.Dir.Advance()
		case sequence.AwaitingChoice:
			pick := 0
			if len(picks) > 0 {
				pick, picks = picks[0], picks[1:]
			}
			if err := c.Dir.Choose(pick); err != nil {
				return step, err
			}
		default:
			return step, nil
		}
	}
	return limit, ErrStepLimit
}
