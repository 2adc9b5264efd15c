package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/funtimes-cutscene/internal/app"
	"github.com/coreman2200/funtimes-cutscene/internal/scene"
	"github.com/coreman2200/funtimes-cutscene/internal/sequence"
	"github.com/coreman2200/funtimes-cutscene/internal/stage"
	"github.com/coreman2200/funtimes-cutscene/internal/timeline"
)

func main() {
	var (
		path     string
		entry    string
		choose   string
		maxSteps int
		lint     bool
	)
	flag.StringVar(&path, "timelines", "assets/scenario.yaml", "timeline registry (.json, .yaml)")
	flag.StringVar(&entry, "entry", "start", "timeline id to enter")
	flag.StringVar(&choose, "choose", "", "comma separated choice indices, used in order")
	flag.IntVar(&maxSteps, "max-steps", 1000, "give up after this many inputs")
	flag.BoolVar(&lint, "lint", false, "only validate and lint the registry")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	reg, err := timeline.Load(path)
	if err != nil {
		log.Fatal().Err(err).Msg("load")
	}
	issues := reg.Lint()
	for _, d := range issues {
		fmt.Printf("[%s] %s %s %v\n", d.Severity, d.Code, d.Summary, d.Evidence)
	}
	if lint {
		if len(issues) > 0 {
			os.Exit(1)
		}
		return
	}

	picks, err := parsePicks(choose)
	if err != nil {
		log.Fatal().Err(err).Msg("-choose")
	}

	var (
		actorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
		choiceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
		cueStyle    = lipgloss.NewStyle().Faint(true)
	)

	// simple printing presentation
	st := stage.New(0, 0)
	st.Subscribe(func(e stage.Effect) {
		switch e.Op {
		case stage.OpText:
			return // one line per reveal step is noise; dialog is printed per click
		case stage.OpChoices:
			for i, c := range e.Choices {
				fmt.Println(choiceStyle.Render(fmt.Sprintf("  [%d] %s -> %s", i, c.Text, c.Key)))
			}
		case stage.OpScene:
			fmt.Println(cueStyle.Render(fmt.Sprintf("[scene] %s %v", e.Key, e.Data)))
		default:
			fmt.Println(cueStyle.Render(fmt.Sprintf("[%s] %s", e.Op, e.Key)))
		}
	})

	sched := &sequence.ManualScheduler{}
	d := scene.New(reg, st.Hooks(), sched, scene.Config{Entry: entry}, scene.Events{
		SessionStarted: func(s scene.Session) {
			st.Reset(s.ID)
			fmt.Printf("== %s (%s)\n", s.Timeline, s.ID)
		},
		SceneChanged: st.SetScene,
	})

	c := &app.Conductor{
		Dir:      d,
		Sched:    sched,
		Picks:    picks,
		MaxSteps: maxSteps,
		OnStep: func(step int, s scene.Status) {
			if s.State == sequence.AwaitingInput {
				snap := st.Snapshot()
				fmt.Printf("%s %s\n", actorStyle.Render(snap.Actor+":"), snap.Text)
			}
		},
	}
	if err := d.Enter(entry); err != nil {
		log.Error().Err(err).Msg("enter")
	}
	steps, err := c.Run()
	if err != nil {
		log.Fatal().Err(err).Int("steps", steps).Msg("run")
	}
	fmt.Printf("Done after %d inputs, scene=%s state=%s\n", steps, d.Session().Scene, d.Status().State)
}

func parsePicks(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	var out []int
	for _, f := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
