package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/photo-variator/internal/archive"
	"github.com/fpang/photo-variator/internal/cli"
	"github.com/fpang/photo-variator/internal/config"
	"github.com/fpang/photo-variator/internal/imageio"
	"github.com/fpang/photo-variator/internal/logging"
	"github.com/fpang/photo-variator/internal/metrics"
	"github.com/fpang/photo-variator/internal/s3util"
	"github.com/fpang/photo-variator/internal/variation"
)

// CLI flags
var (
	inputFlag       string
	modeFlag        string
	countFlag       int
	outputFlag      string
	dirFlag         string
	seedFlag        uint64
	bucketFlag      string
	namingFlag      string
	compressionFlag string
	strictFlag      bool
	pickerFlag      bool
	metricsFlag     bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a batch of variations from one photo",
	Long: `Generate decodes a photo and renders N unique variations of it, then
writes them as a zip archive (default) or as PNG files in a directory.

Modes: frame (random frame style per item), plain, mixed, striped, noise,
lines-vertical, lines-horizontal, lines-grid, lines-random, emoji, and the
pinned frame styles frame-plain, frame-mixed, frame-striped, frame-lines-*.

Examples:
  variator generate -i photo.jpg
  variator generate -i photo.jpg -m lines-grid -n 50 -o grid.zip
  variator generate -i photo.jpg -m emoji -n 20 --dir ./out --naming padded
  variator generate -i photo.jpg --seed 42 --compression zstd
  variator generate -i photo.jpg --s3-bucket my-bucket
  variator generate  # Interactive mode - opens a file picker`,
	Run: runGenerate,
}

func init() {
	f := generateCmd.Flags()
	f.StringVarP(&inputFlag, "input", "i", "", "Source photo (JPEG, PNG, GIF, WebP, TIFF, BMP)")
	f.StringVarP(&modeFlag, "mode", "m", "", "Variation mode (default from config: frame)")
	f.IntVarP(&countFlag, "count", "n", 0, "Number of variations (default from config: 200)")
	f.StringVarP(&outputFlag, "output", "o", "", "Output zip path (default <photo>-variations.zip)")
	f.StringVar(&dirFlag, "dir", "", "Write PNG files into this directory instead of a zip")
	f.Uint64Var(&seedFlag, "seed", 0, "Seed for a reproducible batch")
	f.StringVar(&bucketFlag, "s3-bucket", "", "Upload the zip to this S3 bucket and print a presigned URL")
	f.StringVar(&namingFlag, "naming", "", "Entry naming: plain (1.png) or padded (variation-001.png)")
	f.StringVar(&compressionFlag, "compression", "", "Zip compression: deflate, zstd or store")
	f.BoolVar(&strictFlag, "strict", false, "Reject unknown modes instead of falling back to mixed")
	f.BoolVar(&pickerFlag, "picker", true, "Open a native file picker when --input is absent")
	f.BoolVar(&metricsFlag, "metrics", false, "Print the batch metrics line (CloudWatch EMF) to stdout")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) {
	logging.Init()
	initStart := time.Now()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := applyFlags(cmd, cfg); err != nil {
		log.Fatal().Err(err).Msg("Invalid flags")
	}

	logging.NewStartupLogger("variator").
		Version(commitHash).
		InitDuration(time.Since(initStart)).
		S3Bucket("archives", cfg.S3Bucket).
		Feature("strictModes", cfg.StrictModes).
		Config("mode", cfg.Mode).
		Config("count", fmt.Sprint(cfg.Count)).
		Config("naming", cfg.ArchiveNaming).
		Config("compression", cfg.ArchiveCompression).
		Log()

	inputPath := inputFlag
	if inputPath == "" {
		inputPath, err = cli.PromptForImage(os.Stdin, os.Stdout, pickerFlag)
		if err != nil {
			log.Fatal().Err(err).Msg("No photo selected")
		}
	}
	inputPath, err = cli.ValidateInputFile(inputPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid input")
	}

	mode, err := cfg.ParseMode(cfg.Mode)
	if err != nil {
		log.Fatal().Err(err).Strs("valid", modeNames()).Msg("Invalid mode")
	}

	src, err := decodeFile(inputPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", inputPath).Msg("Failed to decode photo")
	}
	log.Info().
		Str("path", inputPath).
		Str("format", src.Format).
		Int("width", src.Width).
		Int("height", src.Height).
		Str("camera", strings.TrimSpace(src.Metadata.CameraMake+" "+src.Metadata.CameraModel)).
		Msg("Photo loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	req := variation.Request{Source: src.Image, Mode: mode, Count: cfg.Count}
	if cmd.Flags().Changed("seed") {
		req.Seed = &seedFlag
	}

	gen := variation.NewGenerator(cfg.GeneratorOptions())
	batch, genErr := gen.Generate(ctx, req, func(p variation.Progress) {
		fmt.Fprintf(os.Stderr, "\r  Generating %s %d/%d", cli.ProgressBar(p.Percent, 30), p.Index, p.Total)
	})
	fmt.Fprintln(os.Stderr)

	switch {
	case genErr == nil:
	case errors.Is(genErr, context.Canceled) && batch != nil && len(batch.Variations) > 0:
		log.Warn().Int("accepted", len(batch.Variations)).Msg("Interrupted, keeping partial batch")
	default:
		log.Fatal().Err(genErr).Msg("Generation failed")
	}

	if metricsFlag {
		metrics.ForBatch(batch, "cli").Flush()
	}

	images := make([][]byte, len(batch.Variations))
	for i, v := range batch.Variations {
		images[i] = v.Image
	}
	opts := cfg.ArchiveOptions()

	var target, url string
	if dirFlag != "" {
		target, err = writeDirectory(dirFlag, images, opts.Naming)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to write variations")
		}
	} else {
		label := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
		target = outputFlag
		if target == "" {
			target = archive.FileName(label)
		}
		data, err := writeArchive(target, images, opts)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to write archive")
		}
		if cfg.S3Bucket != "" {
			url, err = publish(ctx, cfg, batch.ID, filepath.Base(target), data)
			if err != nil {
				log.Error().Err(err).Msg("S3 upload failed, archive kept locally")
			}
		}
	}

	printSummary(batch, target, url)
}

// applyFlags layers explicitly set flags over the loaded configuration.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("mode") {
		cfg.Mode = modeFlag
	}
	if flags.Changed("count") {
		cfg.Count = countFlag
	}
	if flags.Changed("s3-bucket") {
		cfg.S3Bucket = bucketFlag
	}
	if flags.Changed("naming") {
		cfg.ArchiveNaming = namingFlag
	}
	if flags.Changed("compression") {
		cfg.ArchiveCompression = compressionFlag
	}
	if flags.Changed("strict") {
		cfg.StrictModes = strictFlag
	}
	return cfg.Validate()
}

func decodeFile(path string) (*imageio.Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open photo: %w", err)
	}
	defer f.Close()
	return imageio.Decode(f)
}

// writeDirectory writes one PNG per variation into dir and returns its
// absolute path.
func writeDirectory(dir string, images [][]byte, naming archive.Naming) (string, error) {
	dir, err := cli.ValidateOutputDirectory(dir)
	if err != nil {
		return "", err
	}
	for i, data := range images {
		name := archive.EntryName(naming, i+1, len(images))
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return "", fmt.Errorf("write %s: %w", name, err)
		}
	}
	return dir, nil
}

// writeArchive zips images to path and returns the archive bytes for an
// optional upload.
func writeArchive(path string, images [][]byte, opts archive.Options) ([]byte, error) {
	opts.Progress = func(done, total int) {
		fmt.Fprintf(os.Stderr, "\r  Archiving  %s %d/%d", cli.ProgressBar(float64(done)*100/float64(total), 30), done, total)
	}
	var buf bytes.Buffer
	err := archive.Write(&buf, images, opts)
	if len(images) > 0 {
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("write archive: %w", err)
	}
	return buf.Bytes(), nil
}

func publish(ctx context.Context, cfg *config.Config, batchID, fileName string, data []byte) (string, error) {
	store, err := s3util.New(ctx, cfg.S3Bucket, cfg.PresignExpiry)
	if err != nil {
		return "", err
	}
	_, url, err := store.Publish(ctx, batchID, fileName, data)
	return url, err
}

func modeNames() []string {
	modes := variation.Modes()
	names := make([]string, len(modes))
	for i, m := range modes {
		names[i] = m.String()
	}
	return names
}

func printSummary(batch *variation.Batch, target, url string) {
	title := color.New(color.FgCyan, color.Bold)
	label := color.New(color.FgHiBlack)
	good := color.New(color.FgGreen)
	warn := color.New(color.FgYellow)

	var total int64
	for _, v := range batch.Variations {
		total += int64(len(v.Image))
	}

	fmt.Println()
	title.Printf("  %d variations (%s)\n", len(batch.Variations), batch.Mode)
	label.Print("  Batch:      ")
	fmt.Println(batch.ID)
	label.Print("  Output:     ")
	good.Println(target)
	label.Print("  Size:       ")
	fmt.Println(cli.FormatBytes(total))
	label.Print("  Elapsed:    ")
	fmt.Println(cli.FormatDurationShort(batch.Stats.Elapsed))
	label.Print("  Rejected:   ")
	fmt.Println(batch.Stats.Rejected)
	if batch.Stats.Duplicates > 0 {
		label.Print("  Duplicates: ")
		warn.Printf("%d (style space exhausted)\n", batch.Stats.Duplicates)
	}
	if batch.Stats.ColorFallbacks > 0 {
		label.Print("  Colours:    ")
		warn.Printf("%d reused after exhaustion\n", batch.Stats.ColorFallbacks)
	}
	if url != "" {
		label.Print("  Download:   ")
		good.Println(url)
	}
	fmt.Println()
}
