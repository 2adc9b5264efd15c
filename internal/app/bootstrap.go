package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/funtimes-cutscene/internal/config"
	diag "github.com/coreman2200/funtimes-cutscene/internal/diagnostics"
	"github.com/coreman2200/funtimes-cutscene/internal/scene"
	"github.com/coreman2200/funtimes-cutscene/internal/sequence"
	"github.com/coreman2200/funtimes-cutscene/internal/stage"
	"github.com/coreman2200/funtimes-cutscene/internal/stage/lights"
	"github.com/coreman2200/funtimes-cutscene/internal/timeline"
	"github.com/coreman2200/funtimes-cutscene/internal/ws"
)

type Core struct {
	Registry timeline.Registry
	Stage    *stage.Stage
	Loop     *sequence.Loop
	Director *scene.Director
	Server   *ws.Server
	Lights   *lights.Rig // nil unless enabled

	cancel context.CancelFunc
}

// InitCore loads the registry named by cfg and wires playback, the stage,
// the optional light rig and the websocket bridge. The entry timeline is
// entered before it returns.
func InitCore(ctx context.Context, cfg *config.Config) (*Core, error) {
	// 1) Registry
	reg, err := timeline.Load(cfg.Timelines)
	if err != nil {
		return nil, err
	}
	if len(reg) == 0 {
		return nil, fmt.Errorf("%s: no timelines", cfg.Timelines)
	}

	// 2) Stage + playback loop
	st := stage.New(cfg.Stage.Width, cfg.Stage.Height)
	loop := sequence.NewLoop(0)
	ctx, cancel := context.WithCancel(ctx)
	go loop.Run(ctx)

	c := &Core{Registry: reg, Stage: st, Loop: loop, cancel: cancel}
	c.Server = ws.NewServer(st, loop)

	for _, d := range reg.Lint() {
		logDiag(d)
		c.Server.PushDiag(d)
	}

	// 3) Lights (optional; failures never stop playback)
	if cfg.Lights.Enabled {
		rig, err := lights.Open(cfg.Lights)
		if err != nil {
			log.Warn().Err(err).Msg("lights unavailable; continuing without")
		} else {
			c.Lights = rig
			st.Subscribe(rig.Apply)
		}
	}

	// 4) Director wiring (events → stage + diagnostics)
	c.Director = scene.New(reg, st.Hooks(), loop, cfg.Director(), scene.Events{
		SessionStarted: func(s scene.Session) {
			st.Reset(s.ID)
			c.Server.PushDiag(diag.Diagnostic{
				Severity: diag.Info, Code: diag.CodeSessionStarted, Summary: "Session started",
				Evidence: map[string]any{"session": s.ID, "timeline": s.Timeline},
			})
		},
		SceneChanged: func(name string, data map[string]any) {
			showScene(st, c.Director.Session(), data)
			c.Server.PushDiag(diag.Diagnostic{
				Severity: diag.Info, Code: diag.CodeSceneSwitched, Summary: "Scene switched",
				Evidence: map[string]any{"scene": name},
			})
		},
		Transition: func(t sequence.Transition) {
			st.Publish(stage.Effect{Op: stage.OpTransition, Key: t.Target, Text: string(t.Kind), Data: t.Data})
		},
		Finished: func(s scene.Session) {
			st.Publish(stage.Effect{Op: stage.OpFinished})
			c.Server.PushDiag(diag.Diagnostic{
				Severity: diag.Info, Code: diag.CodeSessionFinished, Summary: "Timeline finished",
				Evidence: map[string]any{"session": s.ID, "timeline": s.Timeline},
			})
		},
		Diagnostic: c.Server.PushDiag,
	})
	c.Server.Bind(c.Director)

	// 5) Entry
	var enterErr error
	if !loop.Call(func() { enterErr = c.Director.Enter(cfg.Entry) }) {
		c.Close()
		return nil, fmt.Errorf("playback loop stopped before entry")
	}
	if enterErr != nil {
		log.Warn().Err(enterErr).Msg("entry timeline unavailable")
	}
	return c, nil
}

// Routes registers the bridge endpoints on mux.
func (c *Core) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/stage", c.Server.HandleStageWS)
	mux.HandleFunc("/control", c.Server.HandleControlWS)
	mux.HandleFunc("/diag", c.Server.HandleDiagWS)
	mux.HandleFunc("/health", c.Server.HandleHealth)
}

// Close ends the session, stops the loop and releases the light rig.
func (c *Core) Close() {
	c.Loop.Call(c.Director.Close)
	c.cancel()
	<-c.Loop.Done()
	c.Server.Close()
	if c.Lights != nil {
		if err := c.Lights.Close(); err != nil {
			log.Warn().Err(err).Msg("lights close")
		}
	}
}

// showScene clears the previous scene's stage for sess, which the director
// has already switched to, and records the new scene. Sounds carry over.
func showScene(st *stage.Stage, sess scene.Session, data map[string]any) {
	st.Reset(sess.ID)
	st.SetScene(sess.Scene, data)
}

func logDiag(d diag.Diagnostic) {
	ev := log.Info()
	switch d.Severity {
	case diag.Warn:
		ev = log.Warn()
	case diag.Err:
		ev = log.Error()
	}
	ev.Str("code", d.Code).Interface("evidence", d.Evidence).Msg(d.Summary)
}
