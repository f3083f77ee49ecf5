package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	opts, err := Load(New(), "")
	require.Nil(t, err)
	require.Equal(t, DefaultOptions(), opts)
	require.Equal(t, 9, opts.Partitions)
	require.Equal(t, 10, opts.PartitionWorkers)
	require.Equal(t, 64, opts.QueryWorkers)
	require.Equal(t, []string{"amount:sum:1-48", "number:sum:1-47"}, opts.Families)
	require.Equal(t, "pension_history_{id}", opts.TableTemplate)
	require.Equal(t, "info", opts.LogLevel)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("FANOUT_PARTITION_WORKERS", "3")
	t.Setenv("FANOUT_QUERY_WORKERS", "7")
	t.Setenv("FANOUT_LOG_LEVEL", "debug")
	t.Setenv("FANOUT_FAMILIES", "amount:sum:1-2,number:avg:1-3")
	opts, err := Load(New(), "")
	require.Nil(t, err)
	require.Equal(t, 3, opts.PartitionWorkers)
	require.Equal(t, 7, opts.QueryWorkers)
	require.Equal(t, "debug", opts.LogLevel)
	require.Equal(t, []string{"amount:sum:1-2", "number:avg:1-3"}, opts.Families)
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fanout.yaml")
	require.Nil(t, os.WriteFile(path, []byte(`
data_root: /data/pensionHistory
partitions: 4
compression: lz4
families:
  - amount:sum:1-10
`), 0o644))
	opts, err := Load(New(), path)
	require.Nil(t, err)
	require.Equal(t, "/data/pensionHistory", opts.DataRoot)
	require.Equal(t, 4, opts.Partitions)
	require.Equal(t, []string{"amount:sum:1-10"}, opts.Families)
	require.Equal(t, filepath.Join(".", "results_2.jsonl.lz4"), opts.OutputPath(2))

	_, err = Load(New(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.NotNil(t, err)
}

func TestFlags(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("partitions", 0, "")
	flags.String("output-dir", "", "")
	require.Nil(t, flags.Parse([]string{"--partitions=2", "--output-dir=/tmp/out"}))
	v := New()
	require.Nil(t, BindFlags(v, flags))
	opts, err := Load(v, "")
	require.Nil(t, err)
	require.Equal(t, 2, opts.Partitions)
	require.Equal(t, filepath.Join("/tmp/out", "results_1.jsonl"), opts.OutputPath(1))
}

func TestValidate(t *testing.T) {
	invalid := []func(o *Options){
		func(o *Options) { o.Partitions = -1 },
		func(o *Options) { o.PartitionWorkers = -2 },
		func(o *Options) { o.QueryWorkers = -1 },
		func(o *Options) { o.BatchSize = -1 },
		func(o *Options) { o.Compression = "gzip" },
		func(o *Options) { o.OutputTemplate = "results.jsonl" },
		func(o *Options) { o.TableTemplate = "pension_history" },
		func(o *Options) { o.LogLevel = "loud" },
		func(o *Options) { o.Families = []string{"amount"} },
	}
	for i, mutate := range invalid {
		opts := DefaultOptions()
		mutate(opts)
		require.NotNil(t, opts.Validate(), "case %d should be invalid", i)
	}
	require.Nil(t, DefaultOptions().Validate())
}

func TestClone(t *testing.T) {
	opts := DefaultOptions()
	clone := opts.Clone()
	require.Equal(t, opts, clone)
	clone.Families[0] = "changed:sum:1-1"
	require.NotEqual(t, opts.Families[0], clone.Families[0])
}
