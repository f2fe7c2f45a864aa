// Command stitch joins a directory of scrolling screenshots into one long image.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go-image-stitcher/internal/analyzer"
	"go-image-stitcher/internal/config"
	"go-image-stitcher/internal/dedupe"
	apperrors "go-image-stitcher/internal/errors"
	"go-image-stitcher/internal/logger"
	"go-image-stitcher/internal/repository"
	"go-image-stitcher/internal/stitcher"
	"go-image-stitcher/internal/storage"
	"go-image-stitcher/internal/strategy"
	pkgconfig "go-image-stitcher/pkg/config"

	"github.com/sirupsen/logrus"
)

type cliFlags struct {
	input      string
	output     string
	configPath string
	debugDir   string
	header     int
	footer     int
	columns    string
	threshold  int
	format     string
	workers    int
	maxShift   int
	dedupe     int
	strategy   string
	confidence bool
	verbose    bool
}

func main() {
	var f cliFlags
	defaults := pkgconfig.DefaultConfig()

	flag.StringVar(&f.input, "input", "./images", "directory of screenshots, walked recursively and sorted by path")
	flag.StringVar(&f.output, "output", "out.png", "path of the stitched image")
	flag.StringVar(&f.configPath, "config", "", "YAML file with stitch settings")
	flag.StringVar(&f.debugDir, "debug-dir", "", "write intermediate snapshots into this directory")
	flag.IntVar(&f.header, "header", defaults.Stitch.HeaderHeight, "rows of fixed header to crop before alignment")
	flag.IntVar(&f.footer, "footer", defaults.Stitch.FooterHeight, "rows of fixed footer to crop before alignment")
	flag.StringVar(&f.columns, "columns", "240,540,960", "comma separated x coordinates to sample")
	flag.IntVar(&f.threshold, "threshold", defaults.Stitch.Threshold, "max intensity of a row considered black when trimming")
	flag.StringVar(&f.format, "format", "", "output format (png, jpeg, bmp, tiff); defaults to the output extension")
	flag.IntVar(&f.workers, "workers", defaults.Stitch.Workers, "shift search workers, >1 searches in parallel")
	flag.IntVar(&f.maxShift, "max-shift", 0, "largest shift to consider, 0 searches the whole frame")
	flag.IntVar(&f.dedupe, "dedupe", defaults.Input.DedupeDistance, "drop consecutive frames within this hash distance, -1 disables")
	flag.StringVar(&f.strategy, "strategy", defaults.Input.Strategy, "stitch profile: phone, adaptive or fast")
	flag.BoolVar(&f.confidence, "confidence", false, "score every alignment against its deviation curve")
	flag.BoolVar(&f.verbose, "v", false, "log per-image progress")
	flag.Parse()

	logger.SetOutput(os.Stderr)
	logger.UseTextFormat()
	if f.verbose {
		logger.SetLevel("debug")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, f, flag.Args()); err != nil {
		fields := logrus.Fields{}
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			fields["type"] = appErr.Type
			if appErr.ImageIndex != apperrors.NoIndex {
				fields["image"] = appErr.ImageIndex
			}
		}
		logger.WithError(err).WithFields(fields).Error("Stitch failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, f cliFlags, args []string) error {
	file := pkgconfig.DefaultConfig()
	if f.configPath != "" {
		loaded, err := pkgconfig.LoadConfig(f.configPath)
		if err != nil {
			return err
		}
		file = loaded
	}
	if err := applyFlags(file, f); err != nil {
		return err
	}

	paths := args
	if len(paths) == 0 {
		listed, err := storage.ListImages(f.input)
		if err != nil {
			var notFound *storage.ErrFileNotFound
			if errors.As(err, &notFound) {
				return apperrors.NewInputNotFoundError(apperrors.NoIndex, f.input, err)
			}
			return err
		}
		paths = listed
	}
	if len(paths) == 0 {
		return apperrors.NewValidationError(fmt.Sprintf("no images found in %s", f.input), nil)
	}
	logger.WithField("count", len(paths)).Info("Found images")

	images := repository.NewImageRepository(repository.Fetchers{Local: storage.NewLocalImageFetcher("")})
	frames, err := images.FetchImages(ctx, paths)
	if err != nil {
		return err
	}
	if _, err := analyzer.NewFrameInspector(nil, logger.Component("analyzer")).Inspect(ctx, frames); err != nil {
		return err
	}

	kept, err := dedupe.Filter(frames, file.Input.DedupeDistance)
	if err != nil {
		return err
	}
	if dropped := dedupe.Dropped(len(frames), kept); len(dropped) > 0 {
		logger.WithField("dropped", dropped).Info("Dropped duplicate frames")
	}
	frames = dedupe.Select(frames, kept)

	profile, err := strategy.ForName(file.Input.Strategy)
	if err != nil {
		return apperrors.NewValidationError(err.Error(), nil)
	}
	opts := file.Options()
	// columns given by flag or file are used as is
	keepColumns := isFlagSet("columns") || strategy.CustomColumns(opts.Columns)
	opts = strategy.Apply(profile, opts, frames[0].Bounds().Dx(), keepColumns)
	opts = opts.WithConfidence(f.confidence)

	if file.Output.DebugDir != "" {
		sink, err := storage.NewDirectorySink(file.Output.DebugDir, opts.OutputFormat)
		if err != nil {
			return err
		}
		opts = opts.WithSnapshots(sink)
	}

	start := time.Now()
	result, err := stitcher.NewStitcher(opts, logger.Component("stitcher")).Stitch(ctx, frames)
	if err != nil {
		return err
	}

	if err := writeImage(f.output, result.Image, opts.OutputFormat); err != nil {
		return err
	}

	for _, a := range result.Shifts {
		fields := logrus.Fields{"image": kept[a.Index], "shift": a.Shift, "deviation": a.Deviation}
		if opts.ScoreConfidence {
			fields["confidence"] = fmt.Sprintf("%.2f", a.Confidence)
		}
		logger.WithFields(fields).Debug("Alignment")
	}
	logger.WithFields(logrus.Fields{
		"output":  f.output,
		"width":   result.Width,
		"height":  result.Height,
		"elapsed": time.Since(start).Round(time.Millisecond).String(),
	}).Info("Stitch completed")
	return nil
}

// applyFlags overlays explicitly set flags on the file configuration
func applyFlags(cfg *pkgconfig.StitchConfig, f cliFlags) error {
	if isFlagSet("header") {
		cfg.Stitch.HeaderHeight = f.header
	}
	if isFlagSet("footer") {
		cfg.Stitch.FooterHeight = f.footer
	}
	if isFlagSet("columns") {
		columns, err := config.ParseIntList(f.columns)
		if err != nil {
			return apperrors.NewValidationError(err.Error(), err)
		}
		cfg.Stitch.Columns = columns
	}
	if isFlagSet("threshold") {
		cfg.Stitch.Threshold = f.threshold
	}
	if isFlagSet("workers") {
		cfg.Stitch.Workers = f.workers
	}
	if isFlagSet("max-shift") {
		cfg.Stitch.MaxShift = f.maxShift
	}
	if isFlagSet("dedupe") {
		cfg.Input.DedupeDistance = f.dedupe
	}
	if isFlagSet("strategy") {
		cfg.Input.Strategy = f.strategy
	}
	if isFlagSet("debug-dir") {
		cfg.Output.DebugDir = f.debugDir
	}

	switch {
	case f.format != "":
		cfg.Output.Format = f.format
	case !isFlagSet("output") && cfg.Output.Format != "":
		// keep the file's format
	default:
		cfg.Output.Format = strings.TrimPrefix(filepath.Ext(f.output), ".")
	}
	cfg.Output.Format = storage.NormalizeFormat(cfg.Output.Format)
	if !storage.SupportedFormat(cfg.Output.Format) {
		return apperrors.NewValidationError(fmt.Sprintf("unsupported output format %q", cfg.Output.Format), nil)
	}
	return cfg.Options().Validate()
}

func writeImage(path string, img image.Image, format string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	err = storage.Encode(out, img, format)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		// a half-written file must not look like a result
		os.Remove(path)
		return err
	}
	return nil
}

func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
