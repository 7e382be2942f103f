package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestIndexMetricsObserveHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewIndexMetrics(reg)

	m.ObserveHandler("create_tree", "OK", 3*time.Millisecond)
	m.ObserveHandler("create_tree", "OK", time.Millisecond)
	m.ObserveHandler("create_tree", "TagsMismatch", time.Millisecond)

	require.Equal(t, float64(2), testutil.ToFloat64(m.HandlerCount("create_tree", "OK")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.HandlerCount("create_tree", "TagsMismatch")))
	require.Equal(t, 1, testutil.CollectAndCount(m.handlerDuration))
}

func TestIndexMetricsGauges(t *testing.T) {
	m := NewIndexMetrics(nil)
	m.SetStakeLocked("0xabc", 42)
	m.SetStakeLocked("0xabc", 7)
	require.Equal(t, float64(7), testutil.ToFloat64(m.StakeLocked("0xabc")))
}

func TestIndexMetricsNilSafe(t *testing.T) {
	var m *IndexMetrics
	m.ObserveHandler("create_tree", "OK", time.Second)
	m.ObserveAttempts(2)
	m.SetStakeLocked("f", 1)
	m.SetBribeEscrowed("b", 1)
	m.ObserveHTTP("/v1/requests", "2xx")
}
