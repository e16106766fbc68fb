// Package api is the loopback widget host: it plays the file picker, the
// control panel and the download trigger for a single editing session.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dunamismax/pixeledit/internal/convert"
	"github.com/dunamismax/pixeledit/internal/domain"
	"github.com/dunamismax/pixeledit/internal/pipeline"
	"github.com/dunamismax/pixeledit/internal/session"
	"github.com/dunamismax/pixeledit/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

const (
	HeaderFileName = "X-File-Name"
	HeaderExportID = "X-Export-Id"

	defaultRecentExports = 20
)

type Config struct {
	Session        *session.Session
	MaxBytes       int64
	DefaultQuality float64
	Publisher      *convert.Publisher
	Ledger         store.ExportStore

	RateLimiter     RateLimiter
	RateLimitHeader string

	// PreviewBackend encodes preview PNGs. Nil means the pure-Go backend.
	PreviewBackend pipeline.Backend

	Logger   zerolog.Logger
	Tracer   trace.Tracer
	Registry *prometheus.Registry
}

type Server struct {
	session         *session.Session
	maxBytes        int64
	defaultQuality  float64
	publisher       *convert.Publisher
	ledger          store.ExportStore
	rateLimiter     RateLimiter
	rateLimitHeader string
	logger          zerolog.Logger
	tracer          trace.Tracer
	preview         pipeline.Backend
	metrics         *metrics
	mux             *http.ServeMux
}

func NewServer(cfg Config) (*Server, error) {
	if cfg.Session == nil {
		return nil, errors.New("session is required")
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = domain.MaxUploadBytes
	}
	defaultQuality := cfg.DefaultQuality
	if defaultQuality <= 0 || defaultQuality > 1 {
		defaultQuality = domain.DefaultQuality
	}

	preview := cfg.PreviewBackend
	if preview == nil {
		preview = pipeline.NewStdlibBackend()
	}

	s := &Server{
		session:         cfg.Session,
		maxBytes:        maxBytes,
		defaultQuality:  defaultQuality,
		publisher:       cfg.Publisher,
		ledger:          cfg.Ledger,
		rateLimiter:     cfg.RateLimiter,
		rateLimitHeader: cfg.RateLimitHeader,
		logger:          cfg.Logger,
		tracer:          cfg.Tracer,
		preview:         preview,
		metrics:         newMetrics(cfg.Registry),
		mux:             http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.withTracing(s.metrics.withHTTPMetrics(s.withRateLimit(s.mux)))
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.Handle("GET /metrics", s.metrics.metricsHandler())

	s.mux.HandleFunc("POST /v1/image", s.handleUpload)
	s.mux.HandleFunc("GET /v1/image/state", s.handleState)
	s.mux.HandleFunc("POST /v1/image/rotate", s.handleRotate)
	s.mux.HandleFunc("POST /v1/image/flip", s.handleFlip)
	s.mux.HandleFunc("PUT /v1/image/brightness", s.handleBrightness)
	s.mux.HandleFunc("PUT /v1/image/contrast", s.handleContrast)
	s.mux.HandleFunc("GET /v1/image/preview", s.handlePreview)
	s.mux.HandleFunc("POST /v1/image/export", s.handleExport)
	s.mux.HandleFunc("GET /v1/exports", s.handleRecentExports)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type imageResponse struct {
	Width     int                   `json:"width"`
	Height    int                   `json:"height"`
	Format    string                `json:"format"`
	SizeBytes int64                 `json:"size_bytes"`
	State     domain.TransformState `json:"state"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	file := domain.File{
		Name:     strings.TrimSpace(r.Header.Get(HeaderFileName)),
		MIMEType: r.Header.Get("Content-Type"),
		Size:     r.ContentLength,
	}

	// Oversized bodies are never read; the loader rejects them on size.
	if r.ContentLength <= s.maxBytes {
		data, err := io.ReadAll(io.LimitReader(r.Body, s.maxBytes+1))
		if err != nil {
			writeError(w, fmt.Errorf("%w: read body: %v", domain.ErrDecodeFailure, err))
			return
		}
		file.Data = data
		file.Size = int64(len(data))
	}
	s.metrics.uploadBytes.Observe(float64(file.Size))

	// The decode keeps running if the client goes away.
	task := s.session.LoadAsync(r.Context(), file)
	src, err := task.Wait(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	state, _ := s.session.State()
	writeJSON(w, http.StatusOK, imageResponse{
		Width:     src.Width(),
		Height:    src.Height(),
		Format:    src.Format,
		SizeBytes: src.SizeBytes,
		State:     state,
	})
}

type stateResponse struct {
	Loaded        bool                  `json:"loaded"`
	Processing    bool                  `json:"processing"`
	State         domain.TransformState `json:"state"`
	DefaultFormat string                `json:"default_format"`
	Features      featuresResponse      `json:"features"`
}

type featuresResponse struct {
	Tone         bool `json:"tone"`
	FormatDialog bool `json:"format_dialog"`
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	state, loaded := s.session.State()
	features := s.session.Features()
	writeJSON(w, http.StatusOK, stateResponse{
		Loaded:        loaded,
		Processing:    s.session.Processing(),
		State:         state,
		DefaultFormat: s.session.DefaultFormat(),
		Features: featuresResponse{
			Tone:         features.EnableTone,
			FormatDialog: features.EnableFormatDialog,
		},
	})
}

func (s *Server) handleRotate(w http.ResponseWriter, _ *http.Request) {
	s.writeState(w)(s.session.RotateQuarterTurn())
}

func (s *Server) handleFlip(w http.ResponseWriter, _ *http.Request) {
	s.writeState(w)(s.session.ToggleFlip())
}

type percentRequest struct {
	Value *int `json:"value"`
}

func (s *Server) handleBrightness(w http.ResponseWriter, r *http.Request) {
	pct, ok := readPercent(w, r)
	if !ok {
		return
	}
	s.writeState(w)(s.session.SetBrightness(pct))
}

func (s *Server) handleContrast(w http.ResponseWriter, r *http.Request) {
	pct, ok := readPercent(w, r)
	if !ok {
		return
	}
	s.writeState(w)(s.session.SetContrast(pct))
}

func readPercent(w http.ResponseWriter, r *http.Request) (int, bool) {
	var req percentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", domain.ErrInvalidParameter, err))
		return 0, false
	}
	if req.Value == nil {
		writeError(w, fmt.Errorf("%w: value is required", domain.ErrInvalidParameter))
		return 0, false
	}
	return *req.Value, true
}

func (s *Server) writeState(w http.ResponseWriter) func(domain.TransformState, error) {
	return func(state domain.TransformState, err error) {
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, state)
	}
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	buf, err := s.session.Render(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	data, err := s.preview.Encode(r.Context(), buf.Image, domain.FormatPNG, 100)
	if err != nil {
		writeError(w, fmt.Errorf("%w: preview via %s: %v", domain.ErrEncodeFailure, s.preview.Name(), err))
		return
	}

	w.Header().Set("Content-Type", domain.MIMEType(domain.FormatPNG))
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	quality := s.defaultQuality
	if raw := strings.TrimSpace(query.Get("quality")); raw != "" {
		q, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, fmt.Errorf("%w: quality %q", domain.ErrInvalidParameter, raw))
			return
		}
		quality = q
	}

	startedAt := time.Now()
	out, err := s.session.Export(r.Context(), query.Get("format"), quality)
	if err != nil {
		writeError(w, err)
		return
	}

	if s.publisher != nil {
		var sourceBytes int64
		if src, ok := s.session.Source(); ok {
			sourceBytes = src.SizeBytes
		}
		delivery, err := s.publisher.Publish(r.Context(), out, sourceBytes, time.Since(startedAt))
		if err != nil {
			s.logger.Error().Err(err).Str("file", out.FileName()).Msg("export sink failed")
			writeJSON(w, http.StatusBadGateway, errorBody{Error: "export sink failed", Code: "sink_failure"})
			return
		}
		w.Header().Set(HeaderExportID, delivery.ExportID)
		if delivery.URL != "" {
			w.Header().Set("Location", delivery.URL)
		}
	}

	w.Header().Set("Content-Type", out.MIMEType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.FileName()))
	w.Header().Set("Content-Length", strconv.Itoa(len(out.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.Data)
}

func (s *Server) handleRecentExports(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		writeJSON(w, http.StatusOK, []domain.ExportRecord{})
		return
	}

	limit := defaultRecentExports
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, fmt.Errorf("%w: limit %q", domain.ErrInvalidParameter, raw))
			return
		}
		limit = n
	}

	recs, err := s.ledger.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("list exports failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "failed to list exports", Code: "internal"})
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, err error) {
	status, code := classifyError(err)
	writeJSON(w, status, errorBody{Error: err.Error(), Code: code})
}

func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType, "unsupported_format"
	case errors.Is(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "file_too_large"
	case errors.Is(err, domain.ErrDecodeFailure):
		return http.StatusUnprocessableEntity, "decode_failure"
	case errors.Is(err, domain.ErrInvalidParameter):
		return http.StatusBadRequest, "invalid_parameter"
	case errors.Is(err, domain.ErrEncodeFailure):
		return http.StatusInternalServerError, "encode_failure"
	case errors.Is(err, domain.ErrBusy):
		return http.StatusConflict, "busy"
	case errors.Is(err, domain.ErrNoImage):
		return http.StatusConflict, "no_image"
	case errors.Is(err, domain.ErrFeatureDisabled):
		return http.StatusForbidden, "feature_disabled"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout, "canceled"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func decodeJSON(r *http.Request, into any) error {
	const maxBodyBytes = 1 << 20
	limited := io.LimitReader(r.Body, maxBodyBytes)
	decoder := json.NewDecoder(limited)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(into); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return errors.New("invalid JSON body: multiple JSON values are not allowed")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
