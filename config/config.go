package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load, e.g. FANOUT_QUERY_WORKERS
const EnvPrefix = "FANOUT"

// keys lists every configuration key, so that environment variables are visible to Unmarshal
var keys = []string{
	"data_root",
	"path_template",
	"output_dir",
	"output_template",
	"table_template",
	"families",
	"partitions",
	"partition_workers",
	"query_workers",
	"batch_size",
	"compression",
	"log_level",
	"log_format",
	"metrics_addr",
}

// New creates a viper instance holding the default Options, bound to FANOUT_ environment variables
func New() *viper.Viper {
	v := viper.New()
	defaults := DefaultOptions()
	v.SetDefault("data_root", defaults.DataRoot)
	v.SetDefault("path_template", defaults.PathTemplate)
	v.SetDefault("output_dir", defaults.OutputDir)
	v.SetDefault("output_template", defaults.OutputTemplate)
	v.SetDefault("table_template", defaults.TableTemplate)
	v.SetDefault("families", defaults.Families)
	v.SetDefault("partitions", defaults.Partitions)
	v.SetDefault("partition_workers", defaults.PartitionWorkers)
	v.SetDefault("query_workers", defaults.QueryWorkers)
	v.SetDefault("batch_size", defaults.BatchSize)
	v.SetDefault("compression", defaults.Compression)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("log_format", defaults.LogFormat)
	v.SetDefault("metrics_addr", defaults.MetricsAddr)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for _, key := range keys {
		// BindEnv only fails when given no key
		_ = v.BindEnv(key)
	}
	return v
}

// BindFlags binds command line flags to configuration keys. Flag names use dashes
// in place of underscores, e.g. --query-workers binds query_workers.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for _, key := range keys {
		flag := flags.Lookup(strings.ReplaceAll(key, "_", "-"))
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", flag.Name, err)
		}
	}
	return nil
}

// Load reads Options from v, first merging the configuration file at path if path is non-empty.
// The returned Options have defaults applied and are validated.
func Load(v *viper.Viper, path string) (*Options, error) {
	if len(path) > 0 {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}
	opts := &Options{}
	if err := v.Unmarshal(opts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	// a comma-separated environment variable arrives as a single element
	if len(opts.Families) == 1 && strings.Contains(opts.Families[0], ",") {
		opts.Families = strings.Split(opts.Families[0], ",")
	}
	ensureDefaultOptionsValues(opts)
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}
