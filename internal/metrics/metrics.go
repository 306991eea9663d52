// Package metrics counts session lifecycle events on a private prometheus
// registry. A nil *Metrics is valid and records nothing.
package metrics

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "invctl"

// Logout reasons.
const (
	ReasonUser              = "user"
	ReasonRefreshFailed     = "refresh_failed"
	ReasonRetryUnauthorized = "retry_unauthorized"
)

type Metrics struct {
	registry        *prometheus.Registry
	refreshes       *prometheus.CounterVec
	sharedRefreshes prometheus.Counter
	retries         prometheus.Counter
	logouts         *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_total",
			Help:      "Token refresh calls by outcome.",
		}, []string{"outcome"}),
		sharedRefreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_shared_total",
			Help:      "401 responses that joined a refresh already in flight.",
		}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_retries_total",
			Help:      "Requests reissued after a successful refresh.",
		}),
		logouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logouts_total",
			Help:      "Logouts by reason.",
		}, []string{"reason"}),
	}
	m.registry.MustRegister(m.refreshes, m.sharedRefreshes, m.retries, m.logouts)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Refreshed(ok bool) {
	if m == nil {
		return
	}
	outcome := "failure"
	if ok {
		outcome = "success"
	}
	m.refreshes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SharedRefresh() {
	if m == nil {
		return
	}
	m.sharedRefreshes.Inc()
}

func (m *Metrics) Retried() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

func (m *Metrics) LoggedOut(reason string) {
	if m == nil {
		return
	}
	m.logouts.WithLabelValues(reason).Inc()
}

// RefreshCounter, RetryCounter and LogoutCounter expose the collectors for
// assertions with prometheus/testutil.
func (m *Metrics) RefreshCounter(outcome string) prometheus.Counter {
	return m.refreshes.WithLabelValues(outcome)
}

func (m *Metrics) RetryCounter() prometheus.Counter {
	return m.retries
}

func (m *Metrics) SharedRefreshCounter() prometheus.Counter {
	return m.sharedRefreshes
}

func (m *Metrics) LogoutCounter(reason string) prometheus.Counter {
	return m.logouts.WithLabelValues(reason)
}

// WriteText prints every counter as "name{labels} value", sorted by name.
func (m *Metrics) WriteText(w io.Writer) error {
	if m == nil {
		return nil
	}
	families, err := m.registry.Gather()
	if err != nil {
		return err
	}
	var lines []string
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			var labels []string
			for _, lp := range metric.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			name := mf.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}
			lines = append(lines, fmt.Sprintf("%s %g", name, metric.GetCounter().GetValue()))
		}
	}
	sort.Strings(lines)
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
