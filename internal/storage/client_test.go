package storage

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientRequiresBucket(t *testing.T) {
	_, err := NewClient(Config{Endpoint: "localhost:9000", Access: "a", Secret: "b"})
	require.Error(t, err)
}

func TestPresignedGetURLCarriesFileName(t *testing.T) {
	c, err := NewClient(Config{
		Endpoint: "localhost:9000",
		Access:   "minioadmin",
		Secret:   "minioadmin",
		Bucket:   "exports",
		Region:   "us-east-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "exports", c.Bucket())

	// With a fixed region presigning is computed locally.
	raw, err := c.PresignedGetURL(context.Background(), "exports/a.png", "converted-image-1.png", time.Minute)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/exports/exports/a.png", u.Path)
	assert.Contains(t, u.Query().Get("response-content-disposition"), "converted-image-1.png")
}

func TestContentDisposition(t *testing.T) {
	assert.Equal(t, "", contentDisposition(" "))
	assert.Equal(t, `attachment; filename="converted-image-1.webp"`, contentDisposition("converted-image-1.webp"))
}
