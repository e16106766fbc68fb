package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dunamismax/pixeledit/internal/config"
	"github.com/dunamismax/pixeledit/internal/convert"
	"github.com/dunamismax/pixeledit/internal/domain"
	"github.com/spf13/cobra"
)

var (
	convertRotate     int
	convertFlip       bool
	convertBrightness int
	convertContrast   int
	convertFormat     string
	convertQuality    float64
	convertOutDir     string
	convertFrom       string
	convertSink       string
	convertMIME       string
)

var convertCmd = &cobra.Command{
	Use:   "convert <file>",
	Short: "Apply edits to one image and export it",
	Long: `Apply edits to one image and write converted-image-<ms>.<ext>.

Rotation is applied as clockwise quarter turns; negative values turn
counter-clockwise. Brightness and contrast are percentages (100 = unchanged).`,
	Example: `  pixeledit convert photo.jpg --rotate 1 --format webp --quality 0.7
  pixeledit convert uploads/cat.png --from s3 --sink s3 --brightness 120`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	f := convertCmd.Flags()
	f.IntVar(&convertRotate, "rotate", 0, "clockwise quarter turns")
	f.BoolVar(&convertFlip, "flip", false, "mirror horizontally")
	f.IntVar(&convertBrightness, "brightness", domain.DefaultBrightness, "brightness percentage")
	f.IntVar(&convertContrast, "contrast", domain.DefaultContrast, "contrast percentage")
	f.StringVar(&convertFormat, "format", "", "output format: jpeg, png or webp (default from config)")
	f.Float64Var(&convertQuality, "quality", domain.DefaultQuality, "lossy quality in [0,1]")
	f.StringVar(&convertOutDir, "out", "", "output directory for the local sink (default from config)")
	f.StringVar(&convertFrom, "from", "local", "input source: local or s3")
	f.StringVar(&convertSink, "sink", "", "output sink: local or s3 (default from config)")
	f.StringVar(&convertMIME, "type", "", "declared MIME type (default from the file extension)")
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg, "convert")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, err := newSession(cfg, logger, nil)
	if err != nil {
		return err
	}

	ledger, closeLedger, err := newLedger(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLedger()

	sink := cfg.Output.Sink
	if convertSink != "" {
		sink = convertSink
	}
	outDir := cfg.Output.LocalDir
	if convertOutDir != "" {
		outDir = convertOutDir
	}

	fetcher, emitter, err := convertStages(ctx, cfg, convertFrom, sink, outDir)
	if err != nil {
		return err
	}

	publisher := convert.NewPublisher(convert.PublisherConfig{
		Emitter:    emitter,
		Ledger:     ledger,
		Notifier:   newNotifier(cfg),
		WebhookURL: cfg.Webhook.URL,
		Logger:     logger,
	})
	proc, err := convert.NewProcessor(fetcher, sess, publisher, logger)
	if err != nil {
		return err
	}

	req := convert.Request{
		Source:   args[0],
		MIMEType: convertMIME,
		Edits: convert.Edits{
			QuarterTurns: convertRotate,
			Flip:         convertFlip,
		},
		Format:  convertFormat,
		Quality: cfg.Encode.DefaultQuality,
	}
	flags := cmd.Flags()
	if flags.Changed("brightness") {
		req.Edits.Brightness = &convertBrightness
	}
	if flags.Changed("contrast") {
		req.Edits.Contrast = &convertContrast
	}
	if flags.Changed("quality") {
		req.Quality = convertQuality
	}

	res, err := proc.Process(ctx, req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s  %dx%d  %d bytes\n", res.Delivery.FileName, res.Delivery.Width, res.Delivery.Height, res.Delivery.Bytes)
	if res.Delivery.Location != "" {
		fmt.Fprintf(out, "  written to %s\n", res.Delivery.Location)
	}
	if res.Delivery.URL != "" {
		fmt.Fprintf(out, "  download: %s\n", res.Delivery.URL)
	}
	return nil
}

func convertStages(ctx context.Context, cfg config.Config, from, sink, outDir string) (convert.Fetcher, convert.Emitter, error) {
	if from != "local" && from != "s3" {
		return nil, nil, fmt.Errorf("--from must be local or s3, got %q", from)
	}
	if sink != "local" && sink != "s3" {
		return nil, nil, fmt.Errorf("--sink must be local or s3, got %q", sink)
	}

	var (
		fetcher convert.Fetcher = convert.LocalFileFetcher{MaxBytes: cfg.Limits.MaxUploadBytes}
		emitter convert.Emitter = convert.LocalFileEmitter{OutputDir: outDir}
	)
	if from == "local" && sink == "local" {
		return fetcher, emitter, nil
	}

	client, err := newObjectStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if from == "s3" {
		fetcher = convert.ObjectStoreFetcher{Storage: client}
	}
	if sink == "s3" {
		emitter = convert.ObjectStoreEmitter{
			Storage:      client,
			OutputPrefix: cfg.Output.Prefix,
			PresignTTL:   cfg.Storage.PresignTTL,
		}
	}
	return fetcher, emitter, nil
}
