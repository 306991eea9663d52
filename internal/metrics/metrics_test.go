package metrics_test

import (
	"bytes"
	"testing"

	"github.com/inventory-mgmt/invctl/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := metrics.New()
	m.Refreshed(true)
	m.Refreshed(false)
	m.Refreshed(true)
	m.Retried()
	m.SharedRefresh()
	m.LoggedOut(metrics.ReasonRefreshFailed)

	require.Equal(t, 2.0, testutil.ToFloat64(m.RefreshCounter("success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.RefreshCounter("failure")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.RetryCounter()))
	require.Equal(t, 1.0, testutil.ToFloat64(m.SharedRefreshCounter()))
	require.Equal(t, 1.0, testutil.ToFloat64(m.LogoutCounter(metrics.ReasonRefreshFailed)))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *metrics.Metrics
	m.Refreshed(true)
	m.Retried()
	m.LoggedOut(metrics.ReasonUser)
	require.Nil(t, m.Registry())
	require.NoError(t, m.WriteText(&bytes.Buffer{}))
}

func TestWriteText(t *testing.T) {
	m := metrics.New()
	m.Refreshed(true)
	m.LoggedOut(metrics.ReasonUser)

	var buf bytes.Buffer
	require.NoError(t, m.WriteText(&buf))
	require.Contains(t, buf.String(), `invctl_refresh_total{outcome="success"} 1`)
	require.Contains(t, buf.String(), `invctl_logouts_total{reason="user"} 1`)
	require.Contains(t, buf.String(), "invctl_request_retries_total 0")
}
