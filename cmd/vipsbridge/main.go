package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/cshum/vipsbridge/internal/cache"
	"github.com/cshum/vipsbridge/internal/cache/memory"
	"github.com/cshum/vipsbridge/internal/cache/redis"
	"github.com/cshum/vipsbridge/internal/config"
	"github.com/cshum/vipsbridge/internal/image"
	"github.com/cshum/vipsbridge/internal/logger"
	"github.com/cshum/vipsbridge/vips"
)

func main() {
	configFile := flag.String("config", "", "Path to YAML config file")
	outputDir := flag.String("out", "./out", "Output directory")
	width := flag.Int("width", 500, "Thumbnail width")
	height := flag.Int("height", 500, "Thumbnail height")
	crop := flag.String("crop", "centre", "Crop strategy: none, centre, entropy, attention, low, high")
	blur := flag.Int("blur", 0, "Gaussian blur sigma, 0 to disable")
	grayscale := flag.Bool("grayscale", false, "Convert to grayscale")
	comment := flag.String("comment", "", "EXIF user comment, overrides the config")
	format := flag.String("format", "", "Output format: jpeg or webp, defaults to the configured preset")
	strip := flag.Bool("strip", false, "Strip all metadata on export, the comment included")
	info := flag.Bool("info", false, "Print image type, mime type and size of each input and exit")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] image...\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}
	logs := logger.New(level)
	defer logs.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var provider cache.Provider
	switch cfg.Cache.Backend {
	case "memory":
		provider = memory.New()
	case "redis":
		provider, err = redis.New(ctx, redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
			TTL:      cfg.Cache.TTL,
			Prefix:   "vipsbridge:",
		})
		if err != nil {
			logs.Fatalf("error initializing cache: %s", err)
		}
	}

	processor, err := image.New(ctx, logs, image.Options{
		Workers: cfg.Processor.Workers,
		Timeout: cfg.Processor.Timeout,
		Vips: &vips.Config{
			ConcurrencyLevel: cfg.Vips.Concurrency,
			MaxCacheFiles:    cfg.Vips.MaxCacheFiles,
			MaxCacheMem:      cfg.Vips.MaxCacheMem,
			MaxCacheSize:     cfg.Vips.MaxCacheSize,
			ReportLeaks:      cfg.Vips.ReportLeaks,
		},
		Cache: provider,
	})
	if err != nil {
		logs.Fatalf("error initializing image processor: %s", err)
	}
	defer vips.Shutdown()
	defer processor.Shutdown()

	if *info {
		for _, path := range flag.Args() {
			if err := printInfo(path); err != nil {
				logs.Errorw("error reading image", "path", path, "error", err)
			}
		}
		return
	}

	task, err := buildTask(cfg, *width, *height, *crop, *blur, *grayscale, *comment, *format, *strip)
	if err != nil {
		logs.Fatalf("invalid arguments: %s", err)
	}

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		logs.Fatalf("error creating output directory: %s", err)
	}

	failed := 0
	for _, path := range flag.Args() {
		out, err := processFile(ctx, processor, task, path, *outputDir)
		if err != nil {
			failed++
			logs.Errorw("error processing image", "path", path, "error", err)
			continue
		}
		logs.Infow("processed image", "path", path, "output", out)
	}

	if failed > 0 {
		logs.Sync()
		os.Exit(1)
	}
}

// buildTask combines flags with the configured preset and comment
func buildTask(cfg *config.Config, width, height int, crop string, blur int, grayscale bool, comment, format string, strip bool) (*image.Task, error) {
	preset, ok := vips.ExportPresets[cfg.Processor.Preset]
	if !ok {
		return nil, fmt.Errorf("unknown preset %q", cfg.Processor.Preset)
	}

	if format == "" {
		format = string(preset.Format)
	}
	outputFormat, err := image.ParseOutputFormat(format)
	if err != nil {
		return nil, err
	}

	interesting, err := vips.ParseInteresting(crop)
	if err != nil {
		return nil, err
	}

	if comment == "" {
		comment = cfg.Processor.Comment
	}

	task := image.NewTask(width, height, comment, outputFormat).CropBy(interesting)
	if blur > 0 {
		task.Blur(blur)
	}
	if grayscale {
		task.Grayscale()
	}
	if strip || preset.StripMetadata {
		task.Strip()
	}
	return task, nil
}

func processFile(ctx context.Context, processor *image.Processor, task *image.Task, path, outputDir string) (string, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	buf, err := processor.ProcessImage(ctx, src, task)
	if err != nil {
		return "", err
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	out := filepath.Join(outputDir, fmt.Sprintf("%s_%dx%d.%s", name, task.Width, task.Height, task.OutputFormat.Extension()))
	if err := os.WriteFile(out, buf, 0644); err != nil {
		return "", err
	}
	return out, nil
}

func printInfo(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	imageType := vips.DetermineImageType(src)
	mime, _ := imageType.MimeType()

	img, err := vips.LoadImage(src)
	if err != nil {
		return err
	}
	defer img.Close()

	fmt.Printf("%s: type=%s mime=%s size=%dx%d bands=%d interpretation=%s\n",
		path, imageType, mime, img.Width(), img.Height(), img.Bands(), img.Interpretation())
	return nil
}
