package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Source.Driver != "sim" {
		t.Errorf("expected source driver sim, got %s", cfg.Source.Driver)
	}
	if cfg.Source.Width != 640 || cfg.Source.Height != 480 {
		t.Errorf("expected 640x480, got %dx%d", cfg.Source.Width, cfg.Source.Height)
	}
	if cfg.Target.Columns != 9 || cfg.Target.Rows != 6 {
		t.Errorf("expected 9x6 target, got %dx%d", cfg.Target.Columns, cfg.Target.Rows)
	}
	if cfg.Target.SquareSize != 1 {
		t.Errorf("expected square size 1, got %v", cfg.Target.SquareSize)
	}
	if cfg.Calibration.MinSamples != 5 {
		t.Errorf("expected min samples 5, got %d", cfg.Calibration.MinSamples)
	}
	if cfg.Calibration.Watch {
		t.Error("expected watch to be off by default")
	}
	if cfg.Display.Driver != "none" {
		t.Errorf("expected display driver none, got %s", cfg.Display.Driver)
	}
	if cfg.Snapshot.Format != "png" {
		t.Errorf("expected png snapshots, got %s", cfg.Snapshot.Format)
	}
	if cfg.Metrics.Listen != "" {
		t.Errorf("expected metrics disabled, got %s", cfg.Metrics.Listen)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
source:
  driver: gocv
  device: 2
  width: 1280
  height: 720
  fps: 60

target:
  columns: 7
  rows: 5
  square_size: 24.5

calibration:
  file: "/var/lib/arcalib/cam0.txt"
  min_samples: 12
  watch: true

model:
  path: "tree.obj"

display:
  driver: sdl
  title: "bench"

snapshot:
  dir: "/tmp/shots"
  format: bmp

metrics:
  listen: ":9100"

logging:
  level: "debug"
  log_file: "arcalib.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Source.Driver != "gocv" || cfg.Source.Device != 2 {
		t.Errorf("source = %+v", cfg.Source)
	}
	if cfg.Source.Width != 1280 || cfg.Source.Height != 720 || cfg.Source.FPS != 60 {
		t.Errorf("source size = %+v", cfg.Source)
	}
	if cfg.Target.Columns != 7 || cfg.Target.Rows != 5 || cfg.Target.SquareSize != 24.5 {
		t.Errorf("target = %+v", cfg.Target)
	}
	if cfg.Calibration.File != "/var/lib/arcalib/cam0.txt" || cfg.Calibration.MinSamples != 12 || !cfg.Calibration.Watch {
		t.Errorf("calibration = %+v", cfg.Calibration)
	}
	if cfg.Model.Path != "tree.obj" {
		t.Errorf("expected model tree.obj, got %s", cfg.Model.Path)
	}
	if cfg.Display.Driver != "sdl" || cfg.Display.Title != "bench" {
		t.Errorf("display = %+v", cfg.Display)
	}
	if cfg.Snapshot.Dir != "/tmp/shots" || cfg.Snapshot.Format != "bmp" {
		t.Errorf("snapshot = %+v", cfg.Snapshot)
	}
	// Unset keys keep their defaults.
	if cfg.Snapshot.Prefix != "frame" {
		t.Errorf("expected default prefix, got %s", cfg.Snapshot.Prefix)
	}
	if cfg.Metrics.Listen != ":9100" {
		t.Errorf("expected metrics :9100, got %s", cfg.Metrics.Listen)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.LogFile != "arcalib.log" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
source:
  width: not a number
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFromFile(cfg, "/nonexistent/path/config.yaml"); err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"tiny target", func(c *Config) { c.Target.Columns = 1 }},
		{"zero square", func(c *Config) { c.Target.SquareSize = 0 }},
		{"zero width", func(c *Config) { c.Source.Width = 0 }},
		{"negative fps", func(c *Config) { c.Source.FPS = -1 }},
		{"too few samples", func(c *Config) { c.Calibration.MinSamples = 4 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))
	os.Chdir(tmpDir)

	if path := findConfigFile(); path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	if err := os.WriteFile(filepath.Join(tmpDir, "arcalib.yaml"), []byte("source:\n  width: 800\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	if path := findConfigFile(); path == "" {
		t.Error("expected to find arcalib.yaml in current directory")
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*Config)
		teardown func()
	}{
		{
			name:  "debug flag",
			setup: func() { *flagDebug = true },
			verify: func(cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
			teardown: func() { *flagDebug = false },
		},
		{
			name: "source and device flags",
			setup: func() {
				*flagSource = "gocv"
				*flagDevice = 0
			},
			verify: func(cfg *Config) {
				if cfg.Source.Driver != "gocv" {
					t.Errorf("expected driver gocv, got %s", cfg.Source.Driver)
				}
				if cfg.Source.Device != 0 {
					t.Errorf("expected device 0, got %d", cfg.Source.Device)
				}
			},
			teardown: func() {
				*flagSource = ""
				*flagDevice = -1
			},
		},
		{
			name:  "calibration flag",
			setup: func() { *flagCalibration = "cam.txt" },
			verify: func(cfg *Config) {
				if cfg.Calibration.File != "cam.txt" {
					t.Errorf("expected cam.txt, got %s", cfg.Calibration.File)
				}
			},
			teardown: func() { *flagCalibration = "" },
		},
		{
			name:  "model flag",
			setup: func() { *flagModel = "tree.obj" },
			verify: func(cfg *Config) {
				if cfg.Model.Path != "tree.obj" {
					t.Errorf("expected tree.obj, got %s", cfg.Model.Path)
				}
			},
			teardown: func() { *flagModel = "" },
		},
		{
			name: "display and metrics flags",
			setup: func() {
				*flagDisplay = "sdl"
				*flagMetrics = ":9200"
			},
			verify: func(cfg *Config) {
				if cfg.Display.Driver != "sdl" {
					t.Errorf("expected sdl, got %s", cfg.Display.Driver)
				}
				if cfg.Metrics.Listen != ":9200" {
					t.Errorf("expected :9200, got %s", cfg.Metrics.Listen)
				}
			},
			teardown: func() {
				*flagDisplay = ""
				*flagMetrics = ""
			},
		},
		{
			name:   "unset device keeps file value",
			setup:  func() {},
			verify: func(cfg *Config) {
				if cfg.Source.Device != 0 {
					t.Errorf("expected default device 0, got %d", cfg.Source.Device)
				}
			},
			teardown: func() {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.teardown()

			cfg := Default()
			applyFlags(cfg)
			tt.verify(cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
source:
  driver: gocv
  width: 1600
calibration:
  file: from-file.txt
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	*flagConfig = configPath
	*flagCalibration = "from-flag.txt"
	defer func() {
		*flagConfig = ""
		*flagCalibration = ""
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Calibration.File != "from-flag.txt" {
		t.Errorf("expected calibration file from flag, got %s", cfg.Calibration.File)
	}
	if cfg.Source.Width != 1600 || cfg.Source.Driver != "gocv" {
		t.Errorf("expected file values, got %+v", cfg.Source)
	}
	if cfg.Source.Height != 480 {
		t.Errorf("expected default height, got %d", cfg.Source.Height)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("target:\n  square_size: -2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	*flagConfig = configPath
	defer func() { *flagConfig = "" }()

	if _, err := Load(); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Model.Path = "tree.obj"
	cfg.Target.SquareSize = 25

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", *loaded, *cfg)
	}
}

func TestSaveUsesConfigDir(t *testing.T) {
	if runtime.GOOS == "darwin" || runtime.GOOS == "windows" {
		t.Skip("config dir is not overridable on this OS")
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	if err := Default().Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(ConfigDir(), "config.yaml")); err != nil {
		t.Errorf("saved config missing: %v", err)
	}
}
