package config

import "flag"

var (
	flagConfig      = flag.String("config", "", "Path to config file")
	flagDebug       = flag.Bool("debug", false, "Enable debug logging")
	flagSource      = flag.String("source", "", "Frame source driver (sim, gocv)")
	flagDevice      = flag.Int("device", -1, "Capture device index")
	flagCalibration = flag.String("calibration", "", "Calibration file path")
	flagModel       = flag.String("model", "", "OBJ mesh path")
	flagDisplay     = flag.String("display", "", "Display driver (none, sdl, gocv)")
	flagMetrics     = flag.String("metrics", "", "Prometheus listen address, e.g. :9100")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagSource != "" {
		cfg.Source.Driver = *flagSource
	}
	if *flagDevice >= 0 {
		cfg.Source.Device = *flagDevice
	}
	if *flagCalibration != "" {
		cfg.Calibration.File = *flagCalibration
	}
	if *flagModel != "" {
		cfg.Model.Path = *flagModel
	}
	if *flagDisplay != "" {
		cfg.Display.Driver = *flagDisplay
	}
	if *flagMetrics != "" {
		cfg.Metrics.Listen = *flagMetrics
	}
}
