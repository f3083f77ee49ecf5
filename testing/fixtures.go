package testing

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/go-sif/fanout"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/require"
)

// SmallRow is the row shape of a minimal two-column partition
type SmallRow struct {
	Amount1 float64 `parquet:"amount1"`
	Number1 int64   `parquet:"number1"`
}

// SmallRows produces n SmallRows with deterministic values, and their column sums
func SmallRows(n int) (rows []SmallRow, amountSum float64, numberSum int64) {
	rows = make([]SmallRow, n)
	for i := range rows {
		rows[i] = SmallRow{Amount1: float64(i%7) + 0.5, Number1: int64(i * 3)}
		amountSum += rows[i].Amount1
		numberSum += rows[i].Number1
	}
	return rows, amountSum, numberSum
}

// WriteSmallPartition writes rows into <dir>/<name> as a Parquet file, creating dir if necessary
func WriteSmallPartition(t *testing.T, dir string, name string, rows []SmallRow) string {
	require.Nil(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.Nil(t, err)
	defer f.Close()
	writer := parquet.NewGenericWriter[SmallRow](f)
	_, err = writer.Write(rows)
	require.Nil(t, err)
	require.Nil(t, writer.Close())
	return path
}

// WideTable describes a partition with amount<i> (double) and number<i> (int64) columns
type WideTable struct {
	Rows          int
	AmountColumns int
	NumberColumns int
}

// AmountValue is the value of column amount<col> in row r
func AmountValue(r int, col int) float64 {
	return float64((r+col)%11) + 0.25
}

// NumberValue is the value of column number<col> in row r
func NumberValue(r int, col int) int64 {
	return int64(r*col) % 97
}

// AmountSum returns the sum of column amount<col>
func (w WideTable) AmountSum(col int) float64 {
	var sum float64
	for r := 0; r < w.Rows; r++ {
		sum += AmountValue(r, col)
	}
	return sum
}

// NumberSum returns the sum of column number<col>
func (w WideTable) NumberSum(col int) int64 {
	var sum int64
	for r := 0; r < w.Rows; r++ {
		sum += NumberValue(r, col)
	}
	return sum
}

// Schema returns the Parquet schema of this WideTable
func (w WideTable) Schema() *parquet.Schema {
	group := parquet.Group{}
	for i := 1; i <= w.AmountColumns; i++ {
		group["amount"+strconv.Itoa(i)] = parquet.Leaf(parquet.DoubleType)
	}
	for i := 1; i <= w.NumberColumns; i++ {
		group["number"+strconv.Itoa(i)] = parquet.Leaf(parquet.Int64Type)
	}
	return parquet.NewSchema("pension_history", group)
}

// Write writes this WideTable into <dir>/<name> as a Parquet file, creating dir if necessary
func (w WideTable) Write(t *testing.T, dir string, name string) string {
	require.Nil(t, os.MkdirAll(dir, 0o755))
	schema := w.Schema()
	// values of a parquet.Row are ordered by column index, which follows the sorted field names
	width := w.AmountColumns + w.NumberColumns
	rows := make([]parquet.Row, w.Rows)
	for r := range rows {
		row := make(parquet.Row, width)
		for i := 1; i <= w.AmountColumns; i++ {
			idx := columnIndex(t, schema, fmt.Sprintf("amount%d", i))
			row[idx] = parquet.ValueOf(AmountValue(r, i)).Level(0, 0, idx)
		}
		for i := 1; i <= w.NumberColumns; i++ {
			idx := columnIndex(t, schema, fmt.Sprintf("number%d", i))
			row[idx] = parquet.ValueOf(NumberValue(r, i)).Level(0, 0, idx)
		}
		rows[r] = row
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.Nil(t, err)
	defer f.Close()
	writer := parquet.NewWriter(f, schema)
	_, err = writer.WriteRows(rows)
	require.Nil(t, err)
	require.Nil(t, writer.Close())
	return path
}

func columnIndex(t *testing.T, schema *parquet.Schema, name string) int {
	leaf, ok := schema.Lookup(name)
	require.True(t, ok, "column %s should exist", name)
	return leaf.ColumnIndex
}

// WriteJSONL writes lines into <dir>/<name>, creating dir if necessary
func WriteJSONL(t *testing.T, dir string, name string, lines ...string) string {
	require.Nil(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.Nil(t, err)
	defer f.Close()
	for _, l := range lines {
		_, err := fmt.Fprintln(f, l)
		require.Nil(t, err)
	}
	return path
}

// Table builds this WideTable in memory, with amount columns before number columns
func (w WideTable) Table(t *testing.T) *fanout.Table {
	schema := fanout.CreateSchema()
	for i := 1; i <= w.AmountColumns; i++ {
		require.Nil(t, schema.CreateColumn(fmt.Sprintf("amount%d", i), &fanout.Float64ColumnType{}))
	}
	for i := 1; i <= w.NumberColumns; i++ {
		require.Nil(t, schema.CreateColumn(fmt.Sprintf("number%d", i), &fanout.Int64ColumnType{}))
	}
	rows := make([][]interface{}, w.Rows)
	for r := range rows {
		row := make([]interface{}, 0, w.AmountColumns+w.NumberColumns)
		for i := 1; i <= w.AmountColumns; i++ {
			row = append(row, AmountValue(r, i))
		}
		for i := 1; i <= w.NumberColumns; i++ {
			row = append(row, NumberValue(r, i))
		}
		rows[r] = row
	}
	table := fanout.CreateTable(schema)
	require.Nil(t, table.AppendBatch(&fanout.Batch{Schema: schema, Rows: rows}))
	return table
}
