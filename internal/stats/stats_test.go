package stats

import (
	"testing"
	"time"

	"github.com/go-sif/fanout"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRunStatisticsPhases(t *testing.T) {
	rs := &RunStatistics{}
	require.Equal(t, time.Duration(0), rs.GetRuntime())
	rs.Start()
	time.Sleep(5 * time.Millisecond)
	rs.StartPhase(fanout.Registering)
	rs.AddRowsLoaded(100)
	rs.StartPhase(fanout.FanningOut)
	rs.AddTasks(94, 1, 94)
	rs.Finish()

	require.True(t, rs.GetPhaseRuntime(fanout.Loading) >= 5*time.Millisecond)
	require.Equal(t, int64(100), rs.GetNumRowsLoaded())
	ok, failed := rs.GetTaskCounts()
	require.Equal(t, int64(94), ok)
	require.Equal(t, int64(1), failed)
	require.Equal(t, int64(94), rs.GetNumRecordsWritten())

	// runtime is frozen once finished
	total := rs.GetRuntime()
	time.Sleep(2 * time.Millisecond)
	require.Equal(t, total, rs.GetRuntime())
	rs.StartPhase(fanout.Collecting) // ignored after Finish
	require.Equal(t, time.Duration(0), rs.GetPhaseRuntime(fanout.Collecting))
}

func TestMetricsRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.QueryTasks.WithLabelValues("succeeded").Add(3)
	m.RowsLoaded.Add(10)
	require.Equal(t, float64(3), testutil.ToFloat64(m.QueryTasks.WithLabelValues("succeeded")))
	require.Equal(t, float64(10), testutil.ToFloat64(m.RowsLoaded))

	// unregistered metrics are still usable
	unregistered := NewMetrics(nil)
	unregistered.RecordsWritten.Inc()
	require.Equal(t, float64(1), testutil.ToFloat64(unregistered.RecordsWritten))
}
