package orion

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/oliverbestmann/prism/gfx"
	"github.com/oliverbestmann/prism/pulse"
)

type Config struct {
	Window WindowConfig `toml:"window"`
	Render RenderConfig `toml:"render"`
	Log    LogConfig    `toml:"log"`
}

type WindowConfig struct {
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	Title  string `toml:"title"`
}

type RenderConfig struct {
	Driver   string `toml:"driver"`
	Debug    bool   `toml:"debug"`
	Software bool   `toml:"software"`
	VSync    bool   `toml:"vsync"`

	// Cull is one of "back", "front" or "none". Empty keeps the mode the
	// application asks for.
	Cull      string `toml:"cull"`
	Wireframe bool   `toml:"wireframe"`

	// ClearColor overrides the clear color of the scene if set.
	ClearColor []float32 `toml:"clear_color,omitempty"`
}

type LogConfig struct {
	// Level is one of debug, info, warn or error.
	Level string `toml:"level"`

	// File enables a rotating JSON log file.
	File string `toml:"file,omitempty"`
}

// ConfigPath returns the path of the config file, PRISM_CONFIG or
// prism/prism.toml in the user config directory.
func ConfigPath() string {
	if path := os.Getenv("PRISM_CONFIG"); path != "" {
		return path
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}

	return filepath.Join(dir, "prism", "prism.toml")
}

func DefaultConfig() Config {
	return Config{
		Window: WindowConfig{
			Width:  800,
			Height: 600,
			Title:  "Prism",
		},
		Render: RenderConfig{
			VSync: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads a config file on top of the defaults. A missing file
// yields the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Debug("No config file, using defaults", slog.String("path", path))
			return cfg, nil
		}

		return Config{}, fmt.Errorf("read config %q: %w", path, err)
	}

	if _, err := cfg.Render.cullMode(); err != nil {
		return Config{}, fmt.Errorf("read config %q: %w", path, err)
	}

	if n := len(cfg.Render.ClearColor); n != 0 && n != 3 && n != 4 {
		return Config{}, fmt.Errorf("read config %q: clear_color needs 3 or 4 components, got %d", path, n)
	}

	return cfg, nil
}

func WriteConfig(path string, cfg Config) error {
	var buffer bytes.Buffer
	if err := toml.NewEncoder(&buffer).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	if err := os.WriteFile(path, buffer.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// Apply copies the config into run options. A window title already set
// in opts is kept.
func (cfg Config) Apply(opts Options) Options {
	opts.WindowWidth = cfg.Window.Width
	opts.WindowHeight = cfg.Window.Height

	if opts.WindowTitle == "" {
		opts.WindowTitle = cfg.Window.Title
	}

	opts.Engine.Device.Driver = cfg.Render.Driver
	opts.Engine.Device.Debug = cfg.Render.Debug
	opts.Engine.Device.ForceSoftware = cfg.Render.Software
	opts.Engine.NoVSync = !cfg.Render.VSync

	// validated by LoadConfig, an invalid value keeps the default
	if cfg.Render.Cull != "" {
		if cull, err := cfg.Render.cullMode(); err == nil {
			opts.Engine.State.Cull = cull
		}
	}

	opts.Engine.State.Wireframe = cfg.Render.Wireframe

	switch c := cfg.Render.ClearColor; len(c) {
	case 3:
		opts.Engine.Scene.ClearColor = pulse.ColorLinearRGBA(c[0], c[1], c[2], 1)
	case 4:
		opts.Engine.Scene.ClearColor = pulse.ColorLinearRGBA(c[0], c[1], c[2], c[3])
	}

	return opts
}

func (r RenderConfig) cullMode() (gfx.CullMode, error) {
	switch r.Cull {
	case "", "back":
		return gfx.CullBack, nil
	case "front":
		return gfx.CullFront, nil
	case "none":
		return gfx.CullNone, nil
	default:
		return 0, fmt.Errorf("unknown cull mode %q", r.Cull)
	}
}
