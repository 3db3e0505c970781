package tgbot

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const resultOK = "ok"

// Metrics counts handler outcomes. A nil *Metrics is valid and records nothing.
type Metrics struct {
	updates          *prometheus.CounterVec
	previews         *prometheus.CounterVec
	downloads        *prometheus.CounterVec
	downloadDuration prometheus.Histogram
	downloadBytes    prometheus.Histogram
	accessDenied     prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "linkdrop",
			Name:      "updates_total",
			Help:      "Inbound updates by kind.",
		}, []string{"kind"}),
		previews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "linkdrop",
			Name:      "previews_total",
			Help:      "Preview requests by platform hint and result.",
		}, []string{"platform", "result"}),
		downloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "linkdrop",
			Name:      "downloads_total",
			Help:      "Download requests by result.",
		}, []string{"result"}),
		downloadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "linkdrop",
			Name:      "download_duration_seconds",
			Help:      "Time from button press to video sent or failure.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		downloadBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "linkdrop",
			Name:      "download_size_bytes",
			Help:      "Size of videos sent.",
			Buckets:   prometheus.ExponentialBuckets(1<<20, 2, 7),
		}),
		accessDenied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "linkdrop",
			Name:      "access_denied_total",
			Help:      "Updates dropped by access control.",
		}),
	}
	reg.MustRegister(m.updates, m.previews, m.downloads, m.downloadDuration, m.downloadBytes, m.accessDenied)
	return m
}

func (m *Metrics) update(kind string) {
	if m == nil {
		return
	}
	m.updates.WithLabelValues(kind).Inc()
}

func (m *Metrics) preview(platform, result string) {
	if m == nil {
		return
	}
	m.previews.WithLabelValues(platform, result).Inc()
}

func (m *Metrics) download(result string, took time.Duration, size int64) {
	if m == nil {
		return
	}
	m.downloads.WithLabelValues(result).Inc()
	m.downloadDuration.Observe(took.Seconds())
	if size > 0 {
		m.downloadBytes.Observe(float64(size))
	}
}

func (m *Metrics) denied() {
	if m == nil {
		return
	}
	m.accessDenied.Inc()
}
