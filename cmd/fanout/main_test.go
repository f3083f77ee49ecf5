package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	fanouttest "github.com/go-sif/fanout/testing"
	"github.com/stretchr/testify/require"
)

func execute(args ...string) error {
	cmd := newRootCommand()
	cmd.SetArgs(args)
	return cmd.Execute()
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	return exitConfigError
}

func TestRunCommand(t *testing.T) {
	root := t.TempDir()
	out := t.TempDir()
	rows, _, _ := fanouttest.SmallRows(100)
	fanouttest.WriteSmallPartition(t, filepath.Join(root, "1"), "file.parquet", rows)
	fanouttest.WriteSmallPartition(t, filepath.Join(root, "2"), "file.parquet", rows)

	args := []string{"run",
		"--data-root", root,
		"--output-dir", out,
		"--families", "amount:sum:1-1,number:sum:1-1",
		"--query-workers", "4",
		"--log-level", "error",
	}
	err := execute(append(args, "--partitions", "2")...)
	require.Nil(t, err)
	for _, name := range []string{"results_1.jsonl", "results_2.jsonl"} {
		_, err := os.Stat(filepath.Join(out, name))
		require.Nil(t, err)
	}

	err = execute(append(args, "--partitions", "3")...)
	require.Equal(t, exitRunFailure, exitCode(err))
}

func TestRunCommandConfigErrors(t *testing.T) {
	require.Equal(t, exitConfigError, exitCode(execute("run", "--query-workers=-1")))
	require.Equal(t, exitConfigError, exitCode(execute("run", "--compression", "zstd")))
	require.Equal(t, exitConfigError, exitCode(execute("run", "--config", filepath.Join(t.TempDir(), "missing.yaml"))))
	require.Equal(t, exitConfigError, exitCode(execute("run", "unexpected")))
}
