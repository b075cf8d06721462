// Package config handles conversion settings loading and management.
package config

// Config holds all conversion settings.
type Config struct {
	Parsing ParsingConfig `yaml:"parsing"`
	Timing  TimingConfig  `yaml:"timing"`
	Export  ExportConfig  `yaml:"export"`
	Logging LoggingConfig `yaml:"logging"`
}

// ParsingConfig holds file ingestion settings.
type ParsingConfig struct {
	// Strict aborts on the first grammar error instead of skipping the
	// broken object.
	Strict bool `yaml:"strict"`
}

// TimingConfig holds animation timing repair settings.
type TimingConfig struct {
	// Correct enables tick-rate detection and repair on parsed clips.
	Correct bool `yaml:"correct"`
}

// ExportConfig holds output settings.
type ExportConfig struct {
	Format    string `yaml:"format"`     // "gltf" or "glb"
	OutputDir string `yaml:"output_dir"` // Destination directory
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Parsing: ParsingConfig{
			Strict: false,
		},
		Timing: TimingConfig{
			Correct: true,
		},
		Export: ExportConfig{
			Format:    "gltf",
			OutputDir: ".",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
