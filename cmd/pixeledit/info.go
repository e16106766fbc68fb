package main

import (
	"fmt"

	"github.com/dunamismax/pixeledit/internal/convert"
	"github.com/dunamismax/pixeledit/internal/loader"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info <file>",
	Short: "Show the detected type and dimensions of an image",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	file, err := convert.LocalFileFetcher{MaxBytes: cfg.Limits.MaxUploadBytes}.Fetch(cmd.Context(), args[0], "")
	if err != nil {
		return err
	}

	l := loader.New(loader.Config{
		MaxBytes:   cfg.Limits.MaxUploadBytes,
		MaxPixels:  cfg.Limits.MaxPixels,
		AcceptTIFF: cfg.Features.AcceptTIFF,
	})

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "file:      %s\n", file.Name)
	fmt.Fprintf(out, "declared:  %s\n", file.MIMEType)
	fmt.Fprintf(out, "detected:  %s\n", loader.Detect(file.Data))
	fmt.Fprintf(out, "size:      %d bytes (limit %d)\n", file.Size, l.MaxBytes())

	src, err := l.Load(cmd.Context(), file)
	if err != nil {
		fmt.Fprintf(out, "loadable:  no (%v)\n", err)
		return nil
	}
	fmt.Fprintf(out, "format:    %s\n", src.Format)
	fmt.Fprintf(out, "pixels:    %dx%d\n", src.Width(), src.Height())
	fmt.Fprintln(out, "loadable:  yes")
	return nil
}
