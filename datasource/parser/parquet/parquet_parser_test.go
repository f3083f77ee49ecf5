package parquet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-sif/fanout"
	fanouttest "github.com/go-sif/fanout/testing"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, parser *Parser, path string) (*fanout.Table, int) {
	f, err := os.Open(path)
	require.Nil(t, err)
	closed := false
	it, err := parser.Parse(f, func() {
		closed = true
		f.Close()
	})
	require.Nil(t, err)
	table := fanout.CreateTable(nil)
	batches := 0
	for it.HasNextBatch() {
		batch, err := it.NextBatch()
		require.Nil(t, err)
		if batch.NumRows() > 0 {
			batches++
		}
		require.Nil(t, table.AppendBatch(batch))
	}
	require.True(t, closed)
	return table, batches
}

func TestParquetParserSmallFile(t *testing.T) {
	rows, amountSum, numberSum := fanouttest.SmallRows(100)
	path := fanouttest.WriteSmallPartition(t, t.TempDir(), "file.parquet", rows)

	table, batches := readAll(t, CreateParser(&ParserConf{BatchSize: 30}), path)
	require.Equal(t, 100, table.NumRows())
	require.Equal(t, 4, batches)
	require.Equal(t, []string{"amount1", "number1"}, table.Schema().ColumnNames())
	require.IsType(t, &fanout.Float64ColumnType{}, table.Schema().Column(0).Type)
	require.IsType(t, &fanout.Int64ColumnType{}, table.Schema().Column(1).Type)

	var gotAmount float64
	var gotNumber int64
	require.Nil(t, table.ForEachRow(func(row []interface{}) error {
		gotAmount += row[0].(float64)
		gotNumber += row[1].(int64)
		return nil
	}))
	require.Equal(t, amountSum, gotAmount)
	require.Equal(t, numberSum, gotNumber)
}

func TestParquetParserWideFile(t *testing.T) {
	wide := fanouttest.WideTable{Rows: 50, AmountColumns: 12, NumberColumns: 3}
	path := wide.Write(t, t.TempDir(), "file.parquet")

	table, _ := readAll(t, CreateParser(nil), path)
	require.Equal(t, 50, table.NumRows())
	require.Equal(t, 15, table.Schema().NumColumns())
	idx, err := table.Schema().GetIndex("amount11")
	require.Nil(t, err)
	var sum float64
	require.Nil(t, table.ForEachRow(func(row []interface{}) error {
		sum += row[idx].(float64)
		return nil
	}))
	require.Equal(t, wide.AmountSum(11), sum)
}

func TestParquetParserRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.parquet")
	require.Nil(t, os.WriteFile(path, []byte("definitely not parquet"), 0o644))
	f, err := os.Open(path)
	require.Nil(t, err)
	defer f.Close()
	_, err = CreateParser(nil).Parse(f, nil)
	require.NotNil(t, err)
}
