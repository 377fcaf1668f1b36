package metric

import (
	"sort"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "calbook_client"

// ClientMetrics holds the gateway's counters and histograms.
// A nil *ClientMetrics is valid and records nothing.
type ClientMetrics struct {
	registry      *prometheus.Registry
	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	refreshes     *prometheus.CounterVec
	notifications *prometheus.CounterVec
}

// NewClientMetrics creates and registers the client metrics on a private registry.
func NewClientMetrics() *ClientMetrics {
	m := &ClientMetrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Backend requests by method and status class.",
		}, []string{"method", "status_class"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Backend request latency.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refresh_total",
			Help:      "Token refresh attempts by result.",
		}, []string{"result"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "User-facing notifications raised by the gateway.",
		}, []string{"type"}),
	}
	m.registry.MustRegister(m.requests, m.duration, m.refreshes, m.notifications)
	return m
}

// Registry returns the underlying registry.
func (m *ClientMetrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveRequest records one completed request. Status 0 means no response.
func (m *ClientMetrics) ObserveRequest(method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, StatusClass(status)).Inc()
	m.duration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObserveRefresh records a token refresh attempt (success, failure or skipped).
func (m *ClientMetrics) ObserveRefresh(result string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(result).Inc()
}

// ObserveNotification records a notification of the given type.
func (m *ClientMetrics) ObserveNotification(kind string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind).Inc()
}

// StatusClass maps an HTTP status to "2xx", "4xx", ... or "none".
func StatusClass(status int) string {
	if status <= 0 {
		return "none"
	}
	return strconv.Itoa(status/100) + "xx"
}

// Sample is one flattened metric value.
type Sample struct {
	Name   string            `json:"name"`
	Labels map[string]string `json:"labels,omitempty"`
	Value  float64           `json:"value"`
}

// Snapshot gathers the registry into a flat, sorted list.
// Histograms are reported as their sample count and sum.
func (m *ClientMetrics) Snapshot() ([]Sample, error) {
	if m == nil {
		return nil, nil
	}
	families, err := m.registry.Gather()
	if err != nil {
		return nil, err
	}

	var out []Sample
	for _, fam := range families {
		for _, metric := range fam.GetMetric() {
			labels := labelMap(metric.GetLabel())
			switch fam.GetType() {
			case dto.MetricType_COUNTER:
				out = append(out, Sample{Name: fam.GetName(), Labels: labels, Value: metric.GetCounter().GetValue()})
			case dto.MetricType_GAUGE:
				out = append(out, Sample{Name: fam.GetName(), Labels: labels, Value: metric.GetGauge().GetValue()})
			case dto.MetricType_HISTOGRAM:
				h := metric.GetHistogram()
				out = append(out,
					Sample{Name: fam.GetName() + "_count", Labels: labels, Value: float64(h.GetSampleCount())},
					Sample{Name: fam.GetName() + "_sum", Labels: labels, Value: h.GetSampleSum()},
				)
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func labelMap(pairs []*dto.LabelPair) map[string]string {
	if len(pairs) == 0 {
		return nil
	}
	labels := make(map[string]string, len(pairs))
	for _, p := range pairs {
		labels[p.GetName()] = p.GetValue()
	}
	return labels
}
