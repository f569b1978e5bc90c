package orion

import (
	"errors"
	"log/slog"
	"os"
)

// Main loads the config, sets up logging and runs until the window is
// closed. It exits the process with the code of ExitCode.
func Main(opts Options) {
	os.Exit(runMain(opts))
}

func runMain(opts Options) int {
	path := ConfigPath()

	cfg, err := LoadConfig(path)
	if err != nil {
		slog.Error("Load config failed",
			slog.String("component", "config"),
			slog.String("op", "load"),
			slog.Any("err", err),
		)

		return 1
	}

	logger, closer, err := NewLogger(cfg.Log)
	if err != nil {
		slog.Error("Create logger failed",
			slog.String("component", "config"),
			slog.String("op", "log"),
			slog.Any("err", err),
		)

		return 1
	}

	defer closer.Close()

	slog.SetDefault(logger)

	// setup failures were logged where they happened
	err = Run(cfg.Apply(opts))
	if err != nil && !errors.Is(err, ErrSetup) {
		slog.Error("Shutting down",
			slog.String("component", "lifecycle"),
			slog.String("op", "run"),
			slog.Any("err", err),
		)
	}

	return ExitCode(err)
}
