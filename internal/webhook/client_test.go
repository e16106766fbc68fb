package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendSignsEnvelope(t *testing.T) {
	var (
		body   []byte
		header http.Header
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Clone()
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := NewClient(Config{SigningSecret: "test-secret", Timeout: 2 * time.Second})
	err := client.Send(context.Background(), srv.URL, "image.exported", map[string]any{"export_id": "exp-1"})
	require.NoError(t, err)

	assert.Equal(t, "image.exported", header.Get(HeaderEvent))
	require.NoError(t, Verify("test-secret", header.Get(HeaderTimestamp), header.Get(HeaderSignature), body))
	assert.ErrorIs(t, Verify("other", header.Get(HeaderTimestamp), header.Get(HeaderSignature), body), ErrBadSignature)

	var env Envelope
	require.NoError(t, json.Unmarshal(body, &env))
	assert.Equal(t, "image.exported", env.Event)
	assert.JSONEq(t, `{"export_id":"exp-1"}`, string(env.Data))
}

func TestSendRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(Config{
		MaxAttempts:    3,
		InitialBackoff: 5 * time.Millisecond,
		MaxBackoff:     10 * time.Millisecond,
	})
	require.NoError(t, client.Send(context.Background(), srv.URL, "image.exported", struct{}{}))
	assert.Equal(t, int32(3), calls.Load())
}

func TestSendDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusGone)
	}))
	defer srv.Close()

	client := NewClient(Config{MaxAttempts: 4, InitialBackoff: time.Millisecond})
	err := client.Send(context.Background(), srv.URL, "image.exported", struct{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=410")
	assert.Equal(t, int32(1), calls.Load())
}

func TestSendWithoutEndpointIsNoop(t *testing.T) {
	client := NewClient(Config{})
	assert.NoError(t, client.Send(context.Background(), "  ", "image.exported", nil))
}
