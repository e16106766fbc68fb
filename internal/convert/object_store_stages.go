package convert

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/dunamismax/pixeledit/internal/domain"
	"github.com/dunamismax/pixeledit/internal/storage"
)

type ObjectStoreFetcher struct {
	Storage *storage.Client
}

func (f ObjectStoreFetcher) Fetch(ctx context.Context, objectKey, declaredMIME string) (domain.File, error) {
	if f.Storage == nil {
		return domain.File{}, errors.New("storage client is required")
	}

	exists, err := f.Storage.ObjectExists(ctx, objectKey)
	if err != nil {
		return domain.File{}, err
	}
	if !exists {
		return domain.File{}, fmt.Errorf("source object is missing: %s", objectKey)
	}

	data, err := f.Storage.ReadObject(ctx, objectKey)
	if err != nil {
		return domain.File{}, err
	}

	return domain.File{
		Name:     path.Base(objectKey),
		Data:     data,
		MIMEType: declaredType(declaredMIME, objectKey, data),
		Size:     int64(len(data)),
	}, nil
}

type ObjectStoreEmitter struct {
	Storage      *storage.Client
	OutputPrefix string
	PresignTTL   time.Duration
}

func (e ObjectStoreEmitter) Emit(ctx context.Context, out domain.EncodedOutput) (Delivery, error) {
	if e.Storage == nil {
		return Delivery{}, errors.New("storage client is required")
	}

	objectKey := path.Join(defaultOutputPrefix(e.OutputPrefix), out.FileName())
	if err := e.Storage.WriteObject(ctx, objectKey, out.Data, out.MIMEType, out.FileName()); err != nil {
		return Delivery{}, err
	}

	d := Delivery{
		FileName: out.FileName(),
		Location: "s3://" + path.Join(e.Storage.Bucket(), objectKey),
	}
	if e.PresignTTL > 0 {
		u, err := e.Storage.PresignedGetURL(ctx, objectKey, out.FileName(), e.PresignTTL)
		if err != nil {
			return Delivery{}, err
		}
		d.URL = u
	}
	return d, nil
}

func defaultOutputPrefix(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return "exports"
	}
	return prefix
}
