package stage

import (
	"sort"
	"sync"

	"github.com/coreman2200/funtimes-cutscene/internal/sequence"
	"github.com/coreman2200/funtimes-cutscene/internal/timeline"
)

// Image is one placed picture on a layer.
type Image struct {
	Key    string          `json:"key"`
	X      float64         `json:"x"`
	Y      float64         `json:"y"`
	Effect timeline.Effect `json:"effect,omitempty"`
}

// Sound is one playing sound.
type Sound struct {
	Key  string `json:"key"`
	Loop bool   `json:"loop"`
}

// Snapshot is the full presentation state, sent to clients on connect.
type Snapshot struct {
	Session      string            `json:"session,omitempty"`
	Scene        string            `json:"scene,omitempty"`
	SceneData    map[string]any    `json:"scene_data,omitempty"`
	Background   *Image            `json:"background,omitempty"`
	Frame        *Image            `json:"frame,omitempty"`
	Foreground   []Image           `json:"foreground"`
	Actor        string            `json:"actor,omitempty"`
	Text         string            `json:"text"`
	Choices      []timeline.Option `json:"choices,omitempty"`
	InputEnabled bool              `json:"input_enabled"`
	Sounds       []Sound           `json:"sounds"`
	Width        float64           `json:"width"`
	Height       float64           `json:"height"`
}

// Stage is an in-memory presentation layer: background, frame and
// foreground layers, the dialogue box, choice buttons, the input gate and a
// sound mixer. Every mutation is published as an Effect.
type Stage struct {
	mu     sync.RWMutex
	width  float64
	height float64

	session   string
	scene     string
	sceneData map[string]any
	bg        *Image
	frame     *Image
	fg        []Image
	actor     string
	text      string
	choices   []timeline.Option
	input     bool
	sounds    map[string]Sound

	nextSub int
	subs    map[int]func(Effect)
}

// New returns an empty Stage of the given size. Images without a position
// are placed at the centre.
func New(width, height float64) *Stage {
	if width <= 0 {
		width = 1280
	}
	if height <= 0 {
		height = 720
	}
	return &Stage{
		width:  width,
		height: height,
		input:  true,
		sounds: map[string]Sound{},
		subs:   map[int]func(Effect){},
	}
}

// Subscribe registers fn for every Effect. fn runs on the goroutine that
// mutated the stage.
func (s *Stage) Subscribe(fn func(Effect)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// mutate applies f under the lock and publishes the Effect it returns.
func (s *Stage) mutate(f func() (Effect, bool)) {
	s.mu.Lock()
	e, ok := f()
	e.Session = s.session
	subs := make([]func(Effect), 0, len(s.subs))
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		subs = append(subs, s.subs[id])
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	for _, fn := range subs {
		fn(e)
	}
}

func (s *Stage) place(key string, x, y *float64, effect timeline.Effect) *Image {
	img := &Image{Key: key, X: s.width / 2, Y: s.height / 2, Effect: effect}
	if x != nil {
		img.X = *x
	}
	if y != nil {
		img.Y = *y
	}
	return img
}

// Reset starts a fresh session: layers, dialogue and choices are cleared and
// input is re-enabled. Looping sounds keep playing across sessions; one-shots
// are forgotten so the new session can play them again.
func (s *Stage) Reset(session string) {
	s.mutate(func() (Effect, bool) {
		for key, snd := range s.sounds {
			if !snd.Loop {
				delete(s.sounds, key)
			}
		}
		s.session = session
		s.scene = ""
		s.sceneData = nil
		s.bg, s.frame, s.fg = nil, nil, nil
		s.actor, s.text = "", ""
		s.choices = nil
		s.input = true
		return Effect{Op: OpReset}, true
	})
}

// SetScene records the active scene and its payload.
func (s *Stage) SetScene(name string, data map[string]any) {
	s.mutate(func() (Effect, bool) {
		s.scene = name
		s.sceneData = data
		return Effect{Op: OpScene, Key: name, Data: data}, true
	})
}

// Publish sends e to subscribers without changing state.
func (s *Stage) Publish(e Effect) {
	s.mutate(func() (Effect, bool) { return e, true })
}

func (s *Stage) SetActorName(name string) {
	s.mutate(func() (Effect, bool) {
		s.actor = name
		return Effect{Op: OpActor, Text: name}, true
	})
}

func (s *Stage) SetText(text string) {
	s.mutate(func() (Effect, bool) {
		s.text = text
		return Effect{Op: OpText, Text: text}, true
	})
}

func (s *Stage) SetBackground(key string, x, y *float64, effect timeline.Effect) {
	s.mutate(func() (Effect, bool) {
		s.bg = s.place(key, x, y, effect)
		img := *s.bg
		return Effect{Op: OpBackground, Key: key, Image: &img}, true
	})
}

func (s *Stage) SetFrame(key string) {
	s.mutate(func() (Effect, bool) {
		s.frame = s.place(key, nil, nil, timeline.EffectNone)
		img := *s.frame
		return Effect{Op: OpFrame, Key: key, Image: &img}, true
	})
}

func (s *Stage) AddForeground(key string, x, y *float64) {
	s.mutate(func() (Effect, bool) {
		img := *s.place(key, x, y, timeline.EffectNone)
		s.fg = append(s.fg, img)
		return Effect{Op: OpForeground, Key: key, Image: &img}, true
	})
}

func (s *Stage) ClearForeground() {
	s.mutate(func() (Effect, bool) {
		s.fg = nil
		return Effect{Op: OpClearForeground}, true
	})
}

// PlaySound starts key unless it is already playing.
func (s *Stage) PlaySound(key string, loop bool) {
	s.mutate(func() (Effect, bool) {
		if _, ok := s.sounds[key]; ok {
			return Effect{}, false
		}
		s.sounds[key] = Sound{Key: key, Loop: loop}
		return Effect{Op: OpPlaySound, Key: key, Loop: loop}, true
	})
}

// StopSound stops key if it is playing.
func (s *Stage) StopSound(key string) {
	s.mutate(func() (Effect, bool) {
		if _, ok := s.sounds[key]; !ok {
			return Effect{}, false
		}
		delete(s.sounds, key)
		return Effect{Op: OpStopSound, Key: key}, true
	})
}

// SoundEnded records that a one-shot sound finished on the client.
func (s *Stage) SoundEnded(key string) {
	s.mu.Lock()
	if snd, ok := s.sounds[key]; ok && !snd.Loop {
		delete(s.sounds, key)
	}
	s.mu.Unlock()
}

func (s *Stage) SoundPlaying(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sounds[key]
	return ok
}

func (s *Stage) ShowChoices(choices []timeline.Option) {
	s.mutate(func() (Effect, bool) {
		s.choices = append([]timeline.Option(nil), choices...)
		return Effect{Op: OpChoices, Choices: s.choices}, true
	})
}

func (s *Stage) SetInputEnabled(enabled bool) {
	s.mutate(func() (Effect, bool) {
		s.input = enabled
		return Effect{Op: OpInput, Enabled: &enabled}, true
	})
}

// Hooks binds the player's presentation callbacks to s. Transition and
// Finished are left for the scene layer.
func (s *Stage) Hooks() sequence.Hooks {
	return sequence.Hooks{
		SetActorName:    s.SetActorName,
		SetText:         s.SetText,
		SetBackground:   s.SetBackground,
		SetFrame:        s.SetFrame,
		AddForeground:   s.AddForeground,
		ClearForeground: s.ClearForeground,
		PlaySound:       s.PlaySound,
		StopSound:       s.StopSound,
		SoundPlaying:    s.SoundPlaying,
		ShowChoices:     s.ShowChoices,
		SetInputEnabled: s.SetInputEnabled,
	}
}

// Snapshot copies the current state.
func (s *Stage) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Session:      s.session,
		Scene:        s.scene,
		SceneData:    s.sceneData,
		Foreground:   append([]Image{}, s.fg...),
		Actor:        s.actor,
		Text:         s.text,
		Choices:      append([]timeline.Option(nil), s.choices...),
		InputEnabled: s.input,
		Sounds:       make([]Sound, 0, len(s.sounds)),
		Width:        s.width,
		Height:       s.height,
	}
	if s.bg != nil {
		bg := *s.bg
		snap.Background = &bg
	}
	if s.frame != nil {
		fr := *s.frame
		snap.Frame = &fr
	}
	for _, snd := range s.sounds {
		snap.Sounds = append(snap.Sounds, snd)
	}
	sort.Slice(snap.Sounds, func(i, j int) bool { return snap.Sounds[i].Key < snap.Sounds[j].Key })
	return snap
}
