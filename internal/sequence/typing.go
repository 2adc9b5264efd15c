package sequence

import (
	"golang.org/x/text/unicode/norm"

	"github.com/coreman2200/funtimes-cutscene/internal/timeline"
)

// typing reveals text one unit per tick. A unit runs to the next
// normalization boundary, so combining marks appear with their base.
type typing struct {
	text  string
	ends  []int // byte offset where each unit ends
	shown int
	timer Timer
	done  bool
}

func revealUnits(s string) []int {
	var ends []int
	for i := 0; i < len(s); {
		n := norm.NFC.NextBoundaryInString(s[i:], true)
		if n <= 0 {
			n = len(s) - i
		}
		i += n
		ends = append(ends, i)
	}
	return ends
}

func (t *typing) cancel() {
	if t.done {
		return
	}
	t.done = true
	if t.timer != nil {
		t.timer.Stop()
	}
}

func (p *Player) startTyping(text string) {
	p.stopTyping()
	if p.hooks.SetText != nil {
		p.hooks.SetText("")
	}
	t := &typing{text: text, ends: revealUnits(text)}
	if len(t.ends) == 0 {
		return
	}
	if p.sched == nil {
		if p.hooks.SetText != nil {
			p.hooks.SetText(text)
		}
		return
	}
	p.typing = t
	t.timer = p.sched.Every(p.typingDelay, func() { p.tick(t) })
}

func (p *Player) tick(t *typing) {
	if t.done || p.typing != t {
		return
	}
	if p.hooks.SetText != nil {
		p.hooks.SetText(t.text[:t.ends[t.shown]])
	}
	t.shown++
	if t.shown >= len(t.ends) {
		t.cancel()
		p.typing = nil
	}
}

// completeTyping cancels the reveal and shows the whole line of the dialog
// just dispatched.
func (p *Player) completeTyping() {
	t := p.typing
	p.stopTyping()
	text := t.text
	if ev, ok := p.Current(); ok {
		if d, ok := ev.(timeline.Dialog); ok {
			text = d.Text
		}
	}
	if p.hooks.SetText != nil {
		p.hooks.SetText(text)
	}
}

func (p *Player) stopTyping() {
	if p.typing == nil {
		return
	}
	p.typing.cancel()
	p.typing = nil
}
