package orion

import (
	"fmt"
	"log/slog"

	"github.com/oliverbestmann/prism/glimpse"
)

type Options struct {
	// Engine configures device, state and the scene to draw.
	Engine EngineOptions

	WindowWidth  int
	WindowHeight int
	WindowTitle  string

	// Update is called once per frame before rendering. Optional.
	Update func(f *Frame) error
}

func (opts Options) withDefaults() Options {
	if opts.WindowWidth == 0 {
		opts.WindowWidth = 800
	}

	if opts.WindowHeight == 0 {
		opts.WindowHeight = 600
	}

	if opts.WindowTitle == "" {
		opts.WindowTitle = "Prism"
	}

	return opts
}

// Run opens a window and renders the scene until the window is closed.
// Errors during setup wrap ErrSetup.
func Run(opts Options) error {
	opts = opts.withDefaults()

	// create a new window
	win, err := glimpse.NewWindow(
		opts.WindowWidth,
		opts.WindowHeight,
		opts.WindowTitle,
	)
	if err != nil {
		slog.Error("Window creation failed",
			slog.String("component", "lifecycle"),
			slog.String("op", "window"),
			slog.Any("err", err),
		)

		return fmt.Errorf("%w: create window: %w", ErrSetup, err)
	}

	defer win.Terminate()

	engine, err := NewEngine(win, opts.Engine)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSetup, err)
	}

	defer engine.Release()

	return NewLoop(win, engine, opts.Update).Run()
}
