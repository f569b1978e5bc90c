package orion

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/oliverbestmann/prism/gfx"
	"github.com/oliverbestmann/prism/pulse"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "prism.toml"))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Window != DefaultConfig().Window || cfg.Render.Cull != "" || !cfg.Render.VSync {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prism.toml")

	content := `
[window]
width = 1600
title = "Cube"

[render]
driver = "soft"
debug = true
vsync = false
cull = "none"
clear_color = [0.2, 0.4, 0.6]

[log]
level = "debug"
`

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}

	// keys missing in the file keep their default
	if cfg.Window.Width != 1600 || cfg.Window.Height != 600 || cfg.Window.Title != "Cube" {
		t.Errorf("unexpected window %+v", cfg.Window)
	}

	opts := cfg.Apply(Options{})

	if opts.Engine.Device.Driver != "soft" || !opts.Engine.Device.Debug || !opts.Engine.NoVSync {
		t.Errorf("unexpected device options %+v", opts.Engine)
	}

	if opts.Engine.State.Cull != gfx.CullNone {
		t.Errorf("cull mode is %v", opts.Engine.State.Cull)
	}

	if opts.Engine.Scene.ClearColor != pulse.ColorLinearRGBA(0.2, 0.4, 0.6, 1) {
		t.Errorf("clear color is %v", opts.Engine.Scene.ClearColor)
	}
}

func TestApplyKeepsApplicationCullMode(t *testing.T) {
	var opts Options
	opts.Engine.State.Cull = gfx.CullNone

	opts = DefaultConfig().Apply(opts)
	if opts.Engine.State.Cull != gfx.CullNone {
		t.Errorf("cull mode is %v", opts.Engine.State.Cull)
	}

	cfg := DefaultConfig()
	cfg.Render.Cull = "front"

	opts = cfg.Apply(opts)
	if opts.Engine.State.Cull != gfx.CullFront {
		t.Errorf("configured cull mode not applied: %v", opts.Engine.State.Cull)
	}
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"cull mode":   "[render]\ncull = \"sideways\"\n",
		"clear color": "[render]\nclear_color = [1, 0]\n",
		"syntax":      "[render\n",
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "prism.toml")
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatal(err)
			}

			if _, err := LoadConfig(path); err == nil || !strings.Contains(err.Error(), path) {
				t.Errorf("expected an error naming the file, got %v", err)
			}
		})
	}
}

func TestWriteConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config", "prism.toml")

	cfg := DefaultConfig()
	cfg.Render.Driver = "d3d11"
	cfg.Log.File = "prism.log"

	if err := WriteConfig(path, cfg); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}

	if loaded.Render.Driver != "d3d11" || loaded.Log.File != "prism.log" || loaded.Window != cfg.Window {
		t.Errorf("loaded %+v, wrote %+v", loaded, cfg)
	}
}
