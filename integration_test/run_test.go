package integration_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/go-sif/fanout"
	"github.com/go-sif/fanout/config"
	"github.com/go-sif/fanout/coordinator"
	fanouterrors "github.com/go-sif/fanout/errors"
	fanouttest "github.com/go-sif/fanout/testing"
	"github.com/pierrec/lz4/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, fanouttest.IgnoreWorkerPool()...)
}

// writeDataset writes partitions 1..n as Parquet files laid out as <root>/<id>/file.parquet
func writeDataset(t *testing.T, root string, n int, wide fanouttest.WideTable) {
	for id := 1; id <= n; id++ {
		wide.Write(t, filepath.Join(root, fmt.Sprint(id)), "file.parquet")
	}
}

func runWithOptions(t *testing.T, opts *config.Options) *coordinator.Report {
	require.Nil(t, opts.Validate())
	c, err := coordinator.FromOptions(opts, nil, prometheus.NewRegistry())
	require.Nil(t, err)
	defer func() { require.Nil(t, c.Close()) }()
	return c.Run(context.Background(), coordinator.Partitions(opts.Partitions))
}

func readLines(t *testing.T, r io.Reader) []string {
	raw, err := io.ReadAll(r)
	require.Nil(t, err)
	if len(raw) == 0 {
		return nil
	}
	return strings.Split(strings.TrimSuffix(string(raw), "\n"), "\n")
}

func readOutput(t *testing.T, path string) []string {
	f, err := os.Open(path)
	require.Nil(t, err)
	defer f.Close()
	if strings.HasSuffix(path, ".lz4") {
		return readLines(t, lz4.NewReader(f))
	}
	return readLines(t, f)
}

// expectedValues returns every sum produced by the default families over wide, as JSON numbers
func expectedValues(wide fanouttest.WideTable) []float64 {
	var res []float64
	for i := 1; i <= 48; i++ {
		res = append(res, wide.AmountSum(i))
	}
	for i := 1; i <= 47; i++ {
		res = append(res, float64(wide.NumberSum(i)))
	}
	return res
}

func TestDefaultRun(t *testing.T) {
	root := t.TempDir()
	out := t.TempDir()
	wide := fanouttest.WideTable{Rows: 120, AmountColumns: 48, NumberColumns: 47}
	writeDataset(t, root, 9, wide)

	opts := config.DefaultOptions()
	opts.DataRoot = root
	opts.OutputDir = out
	opts.QueryWorkers = 16
	report := runWithOptions(t, opts)

	require.True(t, report.Succeeded())
	require.Nil(t, report.Err())
	require.Len(t, report.Outcomes, 9)
	require.Equal(t, 9*95, report.Records)

	for id := 1; id <= 9; id++ {
		lines := readOutput(t, opts.OutputPath(fanout.PartitionID(id)))
		require.Len(t, lines, 95)
		var values []float64
		for _, line := range lines {
			parsed := gjson.Parse(line)
			require.True(t, parsed.IsObject())
			keys := 0
			parsed.ForEach(func(key, value gjson.Result) bool {
				require.True(t, strings.HasPrefix(key.String(), "calc"))
				values = append(values, value.Float())
				keys++
				return true
			})
			require.Equal(t, 1, keys)
		}
		require.InDeltaSlice(t, sorted(expectedValues(wide)), sorted(values), 0.0001)
	}
}

func TestRunWithBrokenPartitions(t *testing.T) {
	root := t.TempDir()
	out := t.TempDir()
	wide := fanouttest.WideTable{Rows: 30, AmountColumns: 48, NumberColumns: 47}
	writeDataset(t, root, 4, wide)
	// partition 2 is not parquet, partition 3 lacks number47, partition 5 is missing
	require.Nil(t, os.WriteFile(filepath.Join(root, "2", "file.parquet"), []byte("garbage"), 0o644))
	fanouttest.WideTable{Rows: 30, AmountColumns: 48, NumberColumns: 46}.Write(t, filepath.Join(root, "3"), "file.parquet")

	opts := config.DefaultOptions()
	opts.DataRoot = root
	opts.OutputDir = out
	opts.Partitions = 5
	opts.PartitionWorkers = 3
	opts.QueryWorkers = 8
	report := runWithOptions(t, opts)

	require.False(t, report.Succeeded())
	require.Equal(t, 2, report.FailedPipelines)
	require.Equal(t, 1, report.FailedTasks)
	require.Equal(t, 95+94+95, report.Records)

	states := make(map[fanout.PartitionID]fanout.PipelineState)
	for _, o := range report.Outcomes {
		states[o.Partition] = o.State
	}
	require.Equal(t, map[fanout.PartitionID]fanout.PipelineState{
		1: fanout.Finished,
		2: fanout.Failed,
		3: fanout.Finished,
		4: fanout.Finished,
		5: fanout.Failed,
	}, states)

	for _, id := range []fanout.PartitionID{2, 5} {
		_, err := os.Stat(opts.OutputPath(id))
		require.True(t, os.IsNotExist(err), "partition %d should produce no output", id)
	}
	require.Len(t, readOutput(t, opts.OutputPath(3)), 94)

	var pf *fanouterrors.PartialFailure
	require.True(t, errors.As(report.Err(), &pf))
	require.Equal(t, 3, pf.Partition)
}

func TestRerunOverwritesCompressedOutput(t *testing.T) {
	root := t.TempDir()
	out := t.TempDir()
	wide := fanouttest.WideTable{Rows: 10, AmountColumns: 4, NumberColumns: 4}
	writeDataset(t, root, 2, wide)

	opts := config.DefaultOptions()
	opts.DataRoot = root
	opts.OutputDir = out
	opts.Partitions = 2
	opts.Compression = "lz4"
	opts.Families = []string{"amount:sum:1-4", "number:sum:1-4"}
	for run := 0; run < 2; run++ {
		report := runWithOptions(t, opts)
		require.Nil(t, report.Err())
	}
	require.True(t, strings.HasSuffix(opts.OutputPath(1), ".lz4"))
	require.Len(t, readOutput(t, opts.OutputPath(1)), 8)
	require.Len(t, readOutput(t, opts.OutputPath(2)), 8)

	entries, err := os.ReadDir(out)
	require.Nil(t, err)
	require.Len(t, entries, 2, "pending files should not be left behind")
}

func sorted(values []float64) []float64 {
	res := append([]float64(nil), values...)
	sort.Float64s(res)
	return res
}
