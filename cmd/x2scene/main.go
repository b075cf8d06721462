// x2scene is a CLI utility for converting legacy DirectX .x scene files.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/modelworks/x2scene/internal/config"
	"github.com/modelworks/x2scene/internal/export"
	"github.com/modelworks/x2scene/internal/logger"
	"github.com/modelworks/x2scene/pkg/scene"
	"github.com/modelworks/x2scene/pkg/timing"
	"github.com/modelworks/x2scene/pkg/xfile"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(args)
	case "convert", "c":
		cmdConvert(args)
	case "timing":
		cmdTiming(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`x2scene - DirectX .x scene file converter

Usage:
  x2scene <command> [options]

Commands:
  info <file.x>                Inspect a file: format, geometry, materials, clips
  convert <file.x> [more...]   Convert file(s) to glTF
  timing <file.x>              Analyze and repair animation tick rates

Examples:
  x2scene info model.x
  x2scene convert -format glb -out ./converted model.x
  x2scene convert models/*.x
  x2scene timing broken_anim.x`)
}

// loadSetup builds config and logger from shared flags.
func loadSetup(configPath string, ov config.Overrides) (*config.Config, *zap.Logger) {
	cfg, err := config.Load(configPath, ov)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Logging.Level, cfg.Logging.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return cfg, log
}

func cmdInfo(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	debug := fs.Bool("debug", false, "Enable debug logging")
	strict := fs.Bool("strict", false, "Abort on the first grammar error")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: x2scene info <file.x>")
		os.Exit(1)
	}

	cfg, log := loadSetup(*configPath, config.Overrides{Debug: *debug, Strict: *strict})
	defer log.Sync()

	doc, err := xfile.ParseFile(fs.Arg(0), xfile.Options{Strict: cfg.Parsing.Strict, Logger: log})
	if doc == nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	printDocumentInfo(fs.Arg(0), doc)
	if err != nil {
		os.Exit(1)
	}
}

func printDocumentInfo(path string, doc *scene.Document) {
	fmt.Printf("File:     %s\n", path)
	fmt.Printf("Format:   %s (v%d.%d)\n", doc.Metadata["format"],
		doc.Header.MajorVersion, doc.Header.MinorVersion)
	if strategy, ok := doc.Metadata["decompression"]; ok {
		fmt.Printf("Packed:   yes (%s)\n", strategy)
	}
	fmt.Printf("Meshes:   %d\n", len(doc.Meshes))

	for _, mesh := range doc.Meshes {
		name := mesh.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Printf("\nMesh %s\n", name)
		fmt.Printf("  Vertices:   %d\n", mesh.VertexCount())
		fmt.Printf("  Faces:      %d\n", mesh.FaceCount())
		fmt.Printf("  Materials:  %d\n", len(mesh.Materials))
		fmt.Printf("  Bones:      %d\n", mesh.BoneCount())
		fmt.Printf("  Clips:      %d\n", mesh.AnimationCount())
		for _, clip := range mesh.Animations {
			fmt.Printf("    %-20s %6d keys  %8.3fs @ %g ticks/sec\n",
				clip.Name, clip.KeyframeCount(), clip.DurationSeconds(), clip.TicksPerSecond)
		}
	}

	if len(doc.Diagnostics.Warnings) > 0 {
		fmt.Printf("\nWarnings (%d):\n", len(doc.Diagnostics.Warnings))
		for _, w := range doc.Diagnostics.Warnings {
			fmt.Printf("  %s\n", w)
		}
	}
	if len(doc.Diagnostics.Errors) > 0 {
		fmt.Printf("\nErrors (%d):\n", len(doc.Diagnostics.Errors))
		for _, e := range doc.Diagnostics.Errors {
			fmt.Printf("  %s\n", e)
		}
	}
}

func cmdConvert(args []string) {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	debug := fs.Bool("debug", false, "Enable debug logging")
	strict := fs.Bool("strict", false, "Abort on the first grammar error")
	format := fs.String("format", "", "Output format: gltf or glb")
	outDir := fs.String("out", "", "Output directory")
	noTiming := fs.Bool("no-timing-fix", false, "Skip animation tick rate repair")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: x2scene convert [options] <file.x> [more...]")
		os.Exit(1)
	}

	cfg, log := loadSetup(*configPath, config.Overrides{
		Debug:     *debug,
		Strict:    *strict,
		NoTiming:  *noTiming,
		Format:    *format,
		OutputDir: *outDir,
	})
	defer log.Sync()

	exporter, err := export.New(cfg.Export.Format, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	failures := 0
	for _, path := range fs.Args() {
		if err := convertOne(path, cfg, exporter, log); err != nil {
			fmt.Fprintf(os.Stderr, "Error converting %s: %v\n", path, err)
			failures++
		}
	}

	if failures > 0 {
		fmt.Fprintf(os.Stderr, "\n%d of %d files failed\n", failures, fs.NArg())
		os.Exit(1)
	}
}

func convertOne(path string, cfg *config.Config, exporter export.Exporter, log *zap.Logger) error {
	doc, err := xfile.ParseFile(path, xfile.Options{Strict: cfg.Parsing.Strict, Logger: log})
	if err != nil {
		return err
	}

	if cfg.Timing.Correct {
		corrector := timing.NewCorrector(log)
		report := corrector.CorrectAll(doc.Animations())
		if report.FailureCount > 0 {
			fmt.Fprintf(os.Stderr, "%s: %d clip(s) failed timing correction\n", path, report.FailureCount)
		}
	}

	if err := os.MkdirAll(cfg.Export.OutputDir, 0755); err != nil {
		return err
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	outPath := filepath.Join(cfg.Export.OutputDir, base+"."+exporter.Extension())
	if err := exporter.Export(doc, outPath); err != nil {
		return err
	}

	fmt.Printf("Converted: %s -> %s\n", path, outPath)
	return nil
}

func cmdTiming(args []string) {
	fs := flag.NewFlagSet("timing", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	debug := fs.Bool("debug", false, "Enable debug logging")
	analyzeOnly := fs.Bool("analyze", false, "Report detected rates without modifying anything")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: x2scene timing [options] <file.x>")
		os.Exit(1)
	}

	cfg, log := loadSetup(*configPath, config.Overrides{Debug: *debug})
	defer log.Sync()

	doc, err := xfile.ParseFile(fs.Arg(0), xfile.Options{Strict: cfg.Parsing.Strict, Logger: log})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	clips := doc.Animations()
	if len(clips) == 0 {
		fmt.Println("No animation clips found")
		return
	}

	corrector := timing.NewCorrector(log)

	if *analyzeOnly {
		for _, clip := range clips {
			analysis := corrector.AnalyzeClip(clip)
			fmt.Printf("%-20s declared %8g  detected %8g  confidence %.2f  (%s)\n",
				clip.Name, clip.TicksPerSecond, analysis.DetectedTicksPerSecond,
				analysis.Confidence, analysis.Method)
		}
		return
	}

	report := corrector.CorrectAll(clips)
	for _, r := range report.Results {
		status := "ok"
		if !r.IsValid {
			status = "FAILED: " + r.Reason
		}
		fmt.Printf("%-20s %8.3fs -> %8.3fs @ %g ticks/sec  %s\n",
			r.ClipName, r.OriginalDurationSeconds, r.CorrectedDurationSeconds,
			r.DetectedTicksPerSecond, status)
	}
	fmt.Printf("\nCorrected %d clip(s), %d failed, mean error %.4fs\n",
		report.SuccessCount, report.FailureCount, report.MeanErrorSeconds)

	if report.FailureCount > 0 {
		os.Exit(1)
	}
}
