package session

import (
	"context"
	"errors"
	"time"

	"github.com/dunamismax/pixeledit/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	loadsTotal       *prometheus.CounterVec
	loadDuration     prometheus.Histogram
	rendersTotal     prometheus.Counter
	renderDuration   prometheus.Histogram
	exportsTotal     *prometheus.CounterVec
	exportDuration   *prometheus.HistogramVec
	exportBytesTotal *prometheus.CounterVec
}

// NewMetrics registers the session collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		loadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pixeledit_loads_total",
			Help: "Image loads by result.",
		}, []string{"result"}),
		loadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pixeledit_load_duration_seconds",
			Help:    "Time spent validating and decoding uploads.",
			Buckets: prometheus.DefBuckets,
		}),
		rendersTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pixeledit_renders_total",
			Help: "Full re-renders of the current image.",
		}),
		renderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pixeledit_render_duration_seconds",
			Help:    "Time spent rendering transforms.",
			Buckets: prometheus.DefBuckets,
		}),
		exportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pixeledit_exports_total",
			Help: "Encode attempts by format and result.",
		}, []string{"format", "result"}),
		exportDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pixeledit_export_duration_seconds",
			Help:    "Time spent encoding renders.",
			Buckets: prometheus.DefBuckets,
		}, []string{"format"}),
		exportBytesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pixeledit_export_bytes_total",
			Help: "Bytes produced by successful exports.",
		}, []string{"format"}),
	}

	reg.MustRegister(
		m.loadsTotal,
		m.loadDuration,
		m.rendersTotal,
		m.renderDuration,
		m.exportsTotal,
		m.exportDuration,
		m.exportBytesTotal,
	)
	return m
}

func (m *Metrics) observeLoad(err error, d time.Duration) {
	if m == nil {
		return
	}
	m.loadsTotal.WithLabelValues(resultLabel(err)).Inc()
	m.loadDuration.Observe(d.Seconds())
}

func (m *Metrics) observeRender(d time.Duration) {
	if m == nil {
		return
	}
	m.rendersTotal.Inc()
	m.renderDuration.Observe(d.Seconds())
}

func (m *Metrics) observeExport(format string, err error, size int, d time.Duration) {
	if m == nil {
		return
	}
	m.exportsTotal.WithLabelValues(format, resultLabel(err)).Inc()
	m.exportDuration.WithLabelValues(format).Observe(d.Seconds())
	if err == nil {
		m.exportBytesTotal.WithLabelValues(format).Add(float64(size))
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, domain.ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(err, domain.ErrFileTooLarge):
		return "file_too_large"
	case errors.Is(err, domain.ErrDecodeFailure):
		return "decode_failure"
	case errors.Is(err, domain.ErrInvalidParameter):
		return "invalid_parameter"
	case errors.Is(err, domain.ErrEncodeFailure):
		return "encode_failure"
	default:
		return "error"
	}
}
