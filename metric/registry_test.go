package metric

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/ticketfront/errors"
)

func TestNewMetricsRegistry(t *testing.T) {
	registry := NewMetricsRegistry()

	require.NotNil(t, registry.PrometheusRegistry())
	require.NotNil(t, registry.CoreMetrics())

	registry.CoreMetrics().RecordBuild("dev", "bridge")
	registry.CoreMetrics().RecordError("client", "dial")
	registry.CoreMetrics().RecordHealth("client", "degraded")

	assert.Equal(t, 1.0, testutil.ToFloat64(registry.Metrics.ErrorsTotal.WithLabelValues("client", "dial")))
	assert.Equal(t, 0.5, testutil.ToFloat64(registry.Metrics.HealthStatus.WithLabelValues("client")))
}

func TestMetricsRegistry_Register(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_counter", Help: "c"})
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_gauge", Help: "g"})
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_vec", Help: "v"}, []string{"command"})
	gaugeVec := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "test_gauge_vec", Help: "gv"}, []string{"state"})
	hist := prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: "test_hist", Help: "h"}, []string{"command"})

	require.NoError(t, registry.RegisterCounter("svc", "counter", counter))
	require.NoError(t, registry.RegisterGauge("svc", "gauge", gauge))
	require.NoError(t, registry.RegisterCounterVec("svc", "vec", vec))
	require.NoError(t, registry.RegisterGaugeVec("svc", "gauge_vec", gaugeVec))
	require.NoError(t, registry.RegisterHistogramVec("svc", "hist", hist))

	counter.Inc()
	vec.WithLabelValues("login").Inc()

	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["test_counter"])
	assert.True(t, names["test_vec"])
}

func TestMetricsRegistry_DuplicateIsInvalid(t *testing.T) {
	registry := NewMetricsRegistry()

	first := prometheus.NewCounter(prometheus.CounterOpts{Name: "dup_total", Help: "d"})
	second := prometheus.NewCounter(prometheus.CounterOpts{Name: "dup_total", Help: "d"})

	require.NoError(t, registry.RegisterCounter("svc", "dup", first))

	err := registry.RegisterCounter("svc", "dup", second)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	err = registry.RegisterCounter("other", "dup", second)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err), "prometheus conflict should be invalid")
}

func TestMetricsRegistry_Unregister(t *testing.T) {
	registry := NewMetricsRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "gone_total", Help: "g"})

	require.NoError(t, registry.RegisterCounter("svc", "gone", counter))
	assert.True(t, registry.Unregister("svc", "gone"))
	assert.False(t, registry.Unregister("svc", "gone"))

	require.NoError(t, registry.RegisterCounter("svc", "gone", counter), "re-register after unregister")
}

func TestMetricsRegistry_ConcurrentRegistration(t *testing.T) {
	registry := NewMetricsRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := prometheus.NewCounter(prometheus.CounterOpts{Name: fmt.Sprintf("concurrent_%d_total", i), Help: "c"})
			assert.NoError(t, registry.RegisterCounter("svc", fmt.Sprintf("c%d", i), c))
		}(i)
	}
	wg.Wait()
}

func TestServer_ServesMetricsAndHealth(t *testing.T) {
	registry := NewMetricsRegistry()
	registry.CoreMetrics().RecordBuild("test", "server")

	health := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"status":"healthy"}`)
	})
	srv := NewServer(0, "", registry, health)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	require.Eventually(t, func() bool { return srv.Address() != "" }, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get(srv.Address())
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "ticketfront_build_info")

	healthURL := strings.TrimSuffix(srv.Address(), "/metrics") + "/health"
	resp, err = http.Get(healthURL)
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.JSONEq(t, `{"status":"healthy"}`, string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.Empty(t, srv.Address())
}

func TestServer_NilRegistry(t *testing.T) {
	err := NewServer(0, "", nil, nil).Run(context.Background())
	assert.True(t, errors.IsFatal(err))
}
