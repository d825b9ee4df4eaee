package metrics_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/rig/internal/adapters/metrics"
	"go.trai.ch/rig/internal/core/domain"
)

func TestRecorder_ObserveTarget(t *testing.T) {
	reg := prom.NewRegistry()
	r := metrics.NewRecorder(reg)

	r.ObserveTarget("compile", domain.StatusSucceeded, 2*time.Second)
	r.ObserveTarget("compile", domain.StatusSucceeded, time.Second)
	r.ObserveTarget("test", domain.StatusFailed, time.Second)
	r.ObserveTarget("pack", domain.StatusSkipped, 0)

	expected := `
# HELP rig_target_results_total Terminal target states by target and status
# TYPE rig_target_results_total counter
rig_target_results_total{status="Failed",target="test"} 1
rig_target_results_total{status="Skipped",target="pack"} 1
rig_target_results_total{status="Succeeded",target="compile"} 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "rig_target_results_total"))

	count, err := testutil.GatherAndCount(reg, "rig_target_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "skipped targets have no duration series")
}

func TestRecorder_ObserveRun(t *testing.T) {
	reg := prom.NewRegistry()
	r := metrics.NewRecorder(reg)

	r.ObserveRun(true, time.Second)
	r.ObserveRun(false, time.Second)
	r.ObserveRun(false, time.Second)

	expected := `
# HELP rig_run_outcomes_total Runs by final outcome
# TYPE rig_run_outcomes_total counter
rig_run_outcomes_total{outcome="failed"} 2
rig_run_outcomes_total{outcome="success"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "rig_run_outcomes_total"))
}

func TestRecorder_Export(t *testing.T) {
	r := metrics.NewRecorder(nil)
	r.ObserveTarget("compile", domain.StatusSucceeded, time.Second)
	r.ObserveRun(true, time.Second)

	path := filepath.Join(t.TempDir(), "rig.prom")
	require.NoError(t, r.Export(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `rig_target_results_total{status="Succeeded",target="compile"} 1`)
	assert.Contains(t, string(data), "rig_last_run_timestamp_seconds")

	err = r.Export(filepath.Join(t.TempDir(), "missing", "dir", "rig.prom"))
	require.ErrorIs(t, err, domain.ErrMetricsWriteFailed)

	require.NoError(t, r.Export(""), "an empty path disables export")
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *metrics.Recorder
	r.ObserveTarget("compile", domain.StatusSucceeded, time.Second)
	r.ObserveRun(true, time.Second)
	assert.NoError(t, r.Export("ignored"))
}
