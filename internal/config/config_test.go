package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Parsing.Strict {
		t.Error("expected Strict to default to false")
	}
	if !cfg.Timing.Correct {
		t.Error("expected Correct to default to true")
	}
	if cfg.Export.Format != "gltf" {
		t.Errorf("expected default format gltf, got %s", cfg.Export.Format)
	}
	if cfg.Export.OutputDir != "." {
		t.Errorf("expected default output dir ., got %s", cfg.Export.OutputDir)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected default level info, got %s", cfg.Logging.Level)
	}
}

func TestLoadFromFile(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "config.yaml")

	content := `parsing:
  strict: true
timing:
  correct: false
export:
  format: glb
  output_dir: /tmp/out
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, Overrides{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !cfg.Parsing.Strict {
		t.Error("expected Strict true from file")
	}
	if cfg.Timing.Correct {
		t.Error("expected Correct false from file")
	}
	if cfg.Export.Format != "glb" {
		t.Errorf("expected format glb, got %s", cfg.Export.Format)
	}
	if cfg.Export.OutputDir != "/tmp/out" {
		t.Errorf("expected output dir /tmp/out, got %s", cfg.Export.OutputDir)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected level debug, got %s", cfg.Logging.Level)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "config.yaml")

	content := `export:
  format: glb
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, Overrides{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Export.Format != "glb" {
		t.Errorf("expected format glb, got %s", cfg.Export.Format)
	}
	if !cfg.Timing.Correct {
		t.Error("expected Correct to keep its default")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected level to keep its default, got %s", cfg.Logging.Level)
	}
}

func TestOverridesTakePriority(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "config.yaml")

	content := `export:
  format: gltf
logging:
  level: info
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, Overrides{
		Debug:     true,
		Strict:    true,
		NoTiming:  true,
		Format:    "glb",
		OutputDir: "/elsewhere",
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected debug override, got %s", cfg.Logging.Level)
	}
	if !cfg.Parsing.Strict {
		t.Error("expected strict override")
	}
	if cfg.Timing.Correct {
		t.Error("expected timing correction disabled")
	}
	if cfg.Export.Format != "glb" {
		t.Errorf("expected format glb, got %s", cfg.Export.Format)
	}
	if cfg.Export.OutputDir != "/elsewhere" {
		t.Errorf("expected output dir /elsewhere, got %s", cfg.Export.OutputDir)
	}
}

func TestZeroOverridesLeaveFileSettings(t *testing.T) {
	cfg := Default()
	cfg.Export.Format = "glb"
	cfg.Parsing.Strict = true

	Overrides{}.apply(cfg)

	if cfg.Export.Format != "glb" {
		t.Errorf("zero override changed format to %s", cfg.Export.Format)
	}
	if !cfg.Parsing.Strict {
		t.Error("zero override cleared strict")
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml", Overrides{})
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "nested", "config.yaml")

	cfg := Default()
	cfg.Export.Format = "glb"
	cfg.Parsing.Strict = true

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}

	loaded, err := Load(path, Overrides{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if loaded.Export.Format != "glb" {
		t.Errorf("expected format glb after round trip, got %s", loaded.Export.Format)
	}
	if !loaded.Parsing.Strict {
		t.Error("expected strict true after round trip")
	}
}
