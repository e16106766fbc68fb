package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dunamismax/pixeledit/internal/domain"
	"github.com/dunamismax/pixeledit/internal/loader"
)

// sniffBytes is how much of an oversized file is read to detect its type.
const sniffBytes = 3072

// LocalFileFetcher reads an input file. Files larger than MaxBytes are not
// read beyond a short header; the loader then rejects them on size.
type LocalFileFetcher struct {
	MaxBytes int64
}

func (f LocalFileFetcher) Fetch(ctx context.Context, path, declaredMIME string) (domain.File, error) {
	select {
	case <-ctx.Done():
		return domain.File{}, ctx.Err()
	default:
	}

	fh, err := os.Open(path)
	if err != nil {
		return domain.File{}, fmt.Errorf("open input file %s: %w", path, err)
	}
	defer fh.Close()

	info, err := fh.Stat()
	if err != nil {
		return domain.File{}, fmt.Errorf("stat input file %s: %w", path, err)
	}
	if info.IsDir() {
		return domain.File{}, fmt.Errorf("input %s is a directory", path)
	}

	maxBytes := f.MaxBytes
	if maxBytes <= 0 {
		maxBytes = domain.MaxUploadBytes
	}

	limit := maxBytes + 1
	oversized := info.Size() > maxBytes
	if oversized {
		limit = sniffBytes
	}
	data, err := io.ReadAll(io.LimitReader(fh, limit))
	if err != nil {
		return domain.File{}, fmt.Errorf("read input file %s: %w", path, err)
	}

	file := domain.File{
		Name:     filepath.Base(path),
		Data:     data,
		MIMEType: declaredType(declaredMIME, path, data),
		Size:     max(info.Size(), int64(len(data))),
	}
	if oversized {
		file.Data = nil
	}
	return file, nil
}

// declaredType mimics a file picker: an explicit type wins, then the file
// extension, then the sniffed content type.
func declaredType(explicit, name string, data []byte) string {
	if strings.TrimSpace(explicit) != "" {
		return explicit
	}
	if format, ok := domain.NormalizeFormat(filepath.Ext(name)); ok {
		return domain.MIMEType(format)
	}
	return loader.Detect(data)
}

type LocalFileEmitter struct {
	OutputDir string
}

func (e LocalFileEmitter) Emit(_ context.Context, out domain.EncodedOutput) (Delivery, error) {
	if strings.TrimSpace(e.OutputDir) == "" {
		return Delivery{}, errors.New("output directory is required")
	}

	if err := os.MkdirAll(e.OutputDir, 0o755); err != nil {
		return Delivery{}, fmt.Errorf("create output dir: %w", err)
	}

	fullPath := filepath.Join(e.OutputDir, out.FileName())
	if err := os.WriteFile(fullPath, out.Data, 0o644); err != nil {
		return Delivery{}, fmt.Errorf("write output file: %w", err)
	}

	return Delivery{
		FileName: out.FileName(),
		Location: fullPath,
	}, nil
}
