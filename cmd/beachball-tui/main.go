// Command beachball-tui plays a local beachball session in the terminal with
// the arrow keys.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/gdamore/tcell/v2"

	"github.com/beachball/backend/internal/config"
	"github.com/beachball/backend/internal/game"
	"github.com/beachball/backend/internal/physics"
)

type tui struct {
	screen  tcell.Screen
	session *game.Session
	view    view

	frames chan game.Frame
	events chan game.Event

	fps     int
	ball    *physics.Pose
	elapsed float64
	notice  string
}

func newTUI(screen tcell.Screen, settings game.Settings) (*tui, error) {
	t := &tui{
		screen: screen,
		fps:    settings.TargetFPS,
		frames: make(chan game.Frame, 1),
		events: make(chan game.Event, 16),
	}

	renderer := game.RendererFunc(func(f game.Frame) {
		// Keep only the newest frame when the terminal falls behind.
		select {
		case t.frames <- f:
		default:
			select {
			case <-t.frames:
			default:
			}
			t.frames <- f
		}
	})
	notifier := game.NotifierFunc(func(e game.Event) {
		select {
		case t.events <- e:
		default:
		}
	})

	s, err := game.NewSession("tui", settings, renderer, notifier, game.WithLogger(log.WithPrefix("game")))
	if err != nil {
		return nil, err
	}
	t.session = s

	cols, rows := screen.Size()
	t.view = view{layout: game.DefaultLayout(800, 600), cols: cols, rows: rows}
	return t, nil
}

func (t *tui) load() {
	t.session.Post(game.LoadCommand{Options: game.LoadOptions{
		Layout:       t.view.layout,
		Capabilities: game.Capabilities{Keyboard: true},
	}})
}

// handleKey reports false when the player quits.
func (t *tui) handleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyLeft:
		t.session.Post(game.PushCommand{Direction: game.PushLeft})
	case tcell.KeyRight:
		t.session.Post(game.PushCommand{Direction: game.PushRight})
	case tcell.KeyEnter:
		t.toggle()
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			return false
		case ' ':
			t.toggle()
		case 'r':
			t.session.Post(game.ResetCommand{})
		case '1':
			t.session.Post(game.DifficultyCommand{Difficulty: game.DifficultyEasy})
		case '2':
			t.session.Post(game.DifficultyCommand{Difficulty: game.DifficultyMedium})
		case '3':
			t.session.Post(game.DifficultyCommand{Difficulty: game.DifficultyHard})
		}
	}
	return true
}

func (t *tui) toggle() {
	switch t.session.Snapshot().State {
	case game.StateLoaded:
		t.notice = ""
		t.session.Post(game.StartCommand{})
	case game.StateRunning:
		t.session.Post(game.PauseCommand{Reason: "paused"})
	case game.StatePaused:
		t.notice = ""
		t.session.Post(game.UnpauseCommand{})
	case game.StateLost:
		t.notice = ""
		t.session.Post(game.ResetCommand{})
	}
}

func (t *tui) handleEvent(e game.Event) {
	switch e.Type {
	case game.EventWallHit:
		t.elapsed = e.Elapsed
		t.notice = fmt.Sprintf(" %s  (space to reset)", e.Reason)
	case game.EventNotLoaded:
		t.notice = " " + e.Reason
	case game.EventPaused:
		t.notice = " " + e.Reason
	case game.EventLoaded, game.EventReset:
		if e.Reason != "" {
			t.notice = " " + e.Reason
		}
		start := t.view.layout.BallStart
		t.ball = &physics.Pose{X: start.X, Y: start.Y}
		t.elapsed = 0
	}
}

func (t *tui) resize() {
	t.view.cols, t.view.rows = t.screen.Size()
	t.screen.Sync()
}

func (t *tui) redraw() {
	snap := t.session.Snapshot()
	t.view.draw(t.screen, t.ball, statusLine(snap.State, snap.Difficulty, t.elapsed), t.notice)
}

func (t *tui) run(ctx context.Context) {
	go t.session.Run(ctx)
	t.load()

	input := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := t.screen.PollEvent()
			if ev == nil {
				return
			}
			input <- ev
		}
	}()

	t.redraw()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-input:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if !t.handleKey(ev) {
					return
				}
			case *tcell.EventResize:
				t.resize()
			}
			t.redraw()
		case f := <-t.frames:
			if p, ok := f.Bodies[game.PlayerTag]; ok {
				t.ball = &p
			}
			t.elapsed = float64(f.Tick) / float64(t.fps)
			t.redraw()
		case e := <-t.events:
			t.handleEvent(e)
			t.redraw()
		}
	}
}

func main() {
	difficulty := flag.String("difficulty", "", "easy, medium or hard")
	flag.Parse()

	// The terminal belongs to the game; logs go to stderr only at error level.
	log.SetLevel(log.ErrorLevel)

	cfg := config.Load()
	settings, err := cfg.GameSettings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid settings: %v\n", err)
		os.Exit(1)
	}
	if *difficulty != "" {
		d, err := game.ParseDifficulty(*difficulty)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		settings.DefaultDifficulty = d
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer screen.Fini()

	t, err := newTUI(screen, settings)
	if err != nil {
		screen.Fini()
		fmt.Fprintf(os.Stderr, "Failed to start session: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.run(ctx)
	cancel()
	<-t.session.Done()
}
