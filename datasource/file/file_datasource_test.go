package file

import (
	"bytes"
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-kit/log"
	"github.com/go-sif/fanout"
	"github.com/go-sif/fanout/datasource/parser/dsv"
	"github.com/go-sif/fanout/datasource/parser/jsonl"
	"github.com/go-sif/fanout/datasource/parser/parquet"
	"github.com/go-sif/fanout/errors"
	fanouttest "github.com/go-sif/fanout/testing"
	"github.com/stretchr/testify/require"
)

func createTestDataSource(root string) *DataSource {
	return CreateDataSource(&DataSourceConf{
		Root:    root,
		Parsers: []fanout.DataSourceParser{parquet.CreateParser(nil), jsonl.CreateParser(nil), dsv.CreateParser(nil)},
	})
}

func TestPathTemplate(t *testing.T) {
	fs := CreateDataSource(&DataSourceConf{Root: "/data/pensionHistory"})
	require.Equal(t, "/data/pensionHistory/7", fs.Path(7))
	fs = CreateDataSource(&DataSourceConf{Root: "/data", PathTemplate: "{root}/part={id}/v1"})
	require.Equal(t, "/data/part=3/v1", fs.Path(3))
}

func TestLoadSumsRowsAcrossFiles(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "1")
	first, _, _ := fanouttest.SmallRows(40)
	second, _, _ := fanouttest.SmallRows(60)
	fanouttest.WriteSmallPartition(t, dir, "a.parquet", first)
	fanouttest.WriteSmallPartition(t, dir, "b.parquet", second)
	// ignored: hidden files, markers and unknown extensions
	require.Nil(t, os.WriteFile(filepath.Join(dir, "_SUCCESS"), nil, 0o644))
	require.Nil(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o644))

	table, err := createTestDataSource(root).Load(context.Background(), 1)
	require.Nil(t, err)
	require.Equal(t, 100, table.NumRows())
	require.Equal(t, []string{"amount1", "number1"}, table.Schema().ColumnNames())
}

func TestLoadJSONLPartition(t *testing.T) {
	root := t.TempDir()
	fanouttest.WriteJSONL(t, filepath.Join(root, "2"), "rows.jsonl",
		"{\"amount1\": 1.5, \"number1\": 1}",
		"{\"amount1\": 2.5, \"number1\": 2}",
	)
	table, err := createTestDataSource(root).Load(context.Background(), 2)
	require.Nil(t, err)
	require.Equal(t, 2, table.NumRows())
}

func TestLoadCSVPartition(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "6")
	require.Nil(t, os.MkdirAll(dir, 0o755))
	require.Nil(t, os.WriteFile(filepath.Join(dir, "rows.csv"), []byte("amount1,number1\n1.5,1\n2.5,2\n3.5,3\n"), 0o644))
	table, err := createTestDataSource(root).Load(context.Background(), 6)
	require.Nil(t, err)
	require.Equal(t, 3, table.NumRows())
	require.Equal(t, []string{"amount1", "number1"}, table.Schema().ColumnNames())
}

func TestLoadWarnsOnDifferingFileSchemas(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "8")
	require.Nil(t, os.MkdirAll(dir, 0o755))
	require.Nil(t, os.WriteFile(filepath.Join(dir, "a.csv"), []byte("amount1,number1\n1.5,1\n"), 0o644))
	require.Nil(t, os.WriteFile(filepath.Join(dir, "b.csv"), []byte("number1,amount1\n2,2.5\n"), 0o644))
	var buf bytes.Buffer
	fs := CreateDataSource(&DataSourceConf{
		Root:    root,
		Parsers: []fanout.DataSourceParser{dsv.CreateParser(nil)},
		Logger:  log.NewLogfmtLogger(&buf),
	})
	table, err := fs.Load(context.Background(), 8)
	require.Nil(t, err)
	require.Equal(t, 2, table.NumRows())
	require.Contains(t, buf.String(), "file schema differs from partition schema")
}

func TestLoadMissingPartition(t *testing.T) {
	_, err := createTestDataSource(t.TempDir()).Load(context.Background(), 5)
	var ioErr *errors.IOError
	require.True(t, stderrors.As(err, &ioErr))
	require.True(t, os.IsNotExist(ioErr.Err))
}

func TestLoadEmptyPartitionDirectory(t *testing.T) {
	root := t.TempDir()
	require.Nil(t, os.MkdirAll(filepath.Join(root, "3"), 0o755))
	_, err := createTestDataSource(root).Load(context.Background(), 3)
	var ioErr *errors.IOError
	require.True(t, stderrors.As(err, &ioErr))
	require.True(t, stderrors.Is(err, errors.ErrNoDataFiles))
}

func TestLoadPartitionWithoutRows(t *testing.T) {
	root := t.TempDir()
	fanouttest.WriteJSONL(t, filepath.Join(root, "4"), "empty.jsonl")
	_, err := createTestDataSource(root).Load(context.Background(), 4)
	var schemaErr *errors.SchemaError
	require.True(t, stderrors.As(err, &schemaErr))
	require.Equal(t, 4, schemaErr.Partition)
}
