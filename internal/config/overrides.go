package config

// Overrides carries command-line values that take priority over the
// config file. Zero values leave the file setting untouched.
type Overrides struct {
	Debug     bool
	Strict    bool
	NoTiming  bool
	Format    string
	OutputDir string
	LogFile   string
}

// apply writes the overrides into the config.
func (ov Overrides) apply(cfg *Config) {
	if ov.Debug {
		cfg.Logging.Level = "debug"
	}
	if ov.Strict {
		cfg.Parsing.Strict = true
	}
	if ov.NoTiming {
		cfg.Timing.Correct = false
	}
	if ov.Format != "" {
		cfg.Export.Format = ov.Format
	}
	if ov.OutputDir != "" {
		cfg.Export.OutputDir = ov.OutputDir
	}
	if ov.LogFile != "" {
		cfg.Logging.LogFile = ov.LogFile
	}
}
