package observability

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgehrsitz/hatgo/internal/domain"
)

func yearResult() *domain.YearResult {
	return &domain.YearResult{
		Summary: domain.YearSummary{
			Year:         2030,
			AllocatedIRW: 600,
			AllocatedFW:  300,
			ShortfallIRW: 12.5,
		},
		Instructions: []domain.DisturbanceInstruction{
			{Provenance: domain.Provenance{Product: domain.ProductIRW}},
			{Provenance: domain.Provenance{Product: domain.ProductIRW}},
			{Provenance: domain.Provenance{Product: domain.ProductFW}},
		},
		UnmatchedTemplates: []string{"cc_ob"},
	}
}

func TestObserveYear(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewAllocationCollector(reg)
	require.NoError(t, err)

	c.ObserveYear("AT", yearResult(), 20*time.Millisecond)
	c.ObserveYear("AT", yearResult(), 30*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Years.WithLabelValues("AT")))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.DynamicDisturbances.WithLabelValues("AT", "irw")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.DynamicDisturbances.WithLabelValues("AT", "fw")))
	assert.Equal(t, 1200.0, testutil.ToFloat64(c.AllocatedVolume.WithLabelValues("AT", "irw")))
	assert.Equal(t, 600.0, testutil.ToFloat64(c.AllocatedVolume.WithLabelValues("AT", "fw")))
	assert.Equal(t, 12.5, testutil.ToFloat64(c.UnsatisfiedDemand.WithLabelValues("AT", "irw")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.UnsatisfiedDemand.WithLabelValues("AT", "fw")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.UnmatchedTemplates.WithLabelValues("AT")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.YearDuration))
}

func TestObserveUnmatched(t *testing.T) {
	c, err := NewAllocationCollector(prometheus.NewRegistry())
	require.NoError(t, err)

	c.ObserveUnmatched("AT", []string{"cc_ob", "thin_qr"})
	assert.Equal(t, 2.0, testutil.ToFloat64(c.NeverMatched.WithLabelValues("AT")))
}

func TestNewAllocationCollector_Reregister(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewAllocationCollector(reg)
	require.NoError(t, err)
	second, err := NewAllocationCollector(reg)
	require.NoError(t, err)

	second.Years.WithLabelValues("AT").Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(first.Years.WithLabelValues("AT")), "collectors are shared")
}

func TestNewAllocationCollector_IncompatibleType(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hat_years_total",
		Help: "Number of simulated years, labeled by country.",
	}, []string{"country"}))

	_, err := NewAllocationCollector(reg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "incompatible type")
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *AllocationCollector
	c.ObserveYear("AT", yearResult(), time.Second)
	c.ObserveUnmatched("AT", nil)
}

func TestWriteTextfile(t *testing.T) {
	c, err := NewAllocationCollector(prometheus.NewRegistry())
	require.NoError(t, err)
	c.ObserveYear("AT", yearResult(), time.Millisecond)

	path := filepath.Join(t.TempDir(), "hat.prom")
	require.NoError(t, c.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.Contains(text, `hat_years_total{country="AT"} 1`), text)
	assert.Contains(t, text, "hat_allocated_volume_m3_total")
}
