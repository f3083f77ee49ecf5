package dsv

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-sif/fanout"
	"github.com/stretchr/testify/require"
)

func parseFile(t *testing.T, p *Parser, contents string) ([]*fanout.Batch, bool, error) {
	path := filepath.Join(t.TempDir(), "rows.csv")
	require.Nil(t, os.WriteFile(path, []byte(contents), 0o644))
	f, err := os.Open(path)
	require.Nil(t, err)
	defer f.Close()
	ended := false
	it, err := p.Parse(f, func() { ended = true })
	if err != nil {
		return nil, ended, err
	}
	var batches []*fanout.Batch
	for it.HasNextBatch() {
		b, err := it.NextBatch()
		if err != nil {
			return batches, ended, err
		}
		batches = append(batches, b)
	}
	return batches, ended, nil
}

func TestParseCSV(t *testing.T) {
	p := CreateParser(&ParserConf{BatchSize: 2, Comment: '#'})
	require.Equal(t, []string{".csv"}, p.Extensions())
	batches, ended, err := parseFile(t, p, "amount1,number1,active,name\n"+
		"# a comment\n"+
		"1.5,10,true,alice\n"+
		"2.5,,false,bob\n"+
		"3,30,true,\n")
	require.Nil(t, err)
	require.True(t, ended)
	require.Len(t, batches, 2)
	require.Equal(t, 2, batches[0].NumRows())
	require.Equal(t, 1, batches[1].NumRows())

	schema := batches[0].Schema
	require.Equal(t, []string{"amount1", "number1", "active", "name"}, schema.ColumnNames())
	require.IsType(t, &fanout.Float64ColumnType{}, schema.Column(0).Type)
	require.IsType(t, &fanout.Int64ColumnType{}, schema.Column(1).Type)
	require.IsType(t, &fanout.BoolColumnType{}, schema.Column(2).Type)
	require.IsType(t, &fanout.VarStringColumnType{}, schema.Column(3).Type)

	require.Equal(t, []interface{}{1.5, int64(10), true, "alice"}, batches[0].Rows[0])
	require.Equal(t, []interface{}{2.5, nil, false, "bob"}, batches[0].Rows[1])
	require.Equal(t, []interface{}{3.0, int64(30), true, nil}, batches[1].Rows[0])
}

func TestParseTSVWithHeaderLines(t *testing.T) {
	p := CreateParser(&ParserConf{Delimiter: '\t', HeaderLines: 1, NilValue: "NA"})
	require.Equal(t, []string{".tsv"}, p.Extensions())
	batches, _, err := parseFile(t, p, "exported by a tool\nnumber1\tnumber2\n4\tNA\n5\t6\n")
	require.Nil(t, err)
	require.Len(t, batches, 1)
	require.Equal(t, []interface{}{int64(4), nil}, batches[0].Rows[0])
	require.Equal(t, []interface{}{int64(5), int64(6)}, batches[0].Rows[1])
}

func TestParseTypeMismatch(t *testing.T) {
	_, ended, err := parseFile(t, CreateParser(nil), "number1\n1\nlots\n")
	require.NotNil(t, err)
	require.True(t, ended)
}

func TestParseRaggedRows(t *testing.T) {
	_, _, err := parseFile(t, CreateParser(nil), "a,b\n1,2\n3\n")
	require.NotNil(t, err)
}

func TestParseHeaderOnly(t *testing.T) {
	batches, ended, err := parseFile(t, CreateParser(nil), "a,b\n")
	require.Nil(t, err)
	require.True(t, ended)
	require.Len(t, batches, 1)
	require.Equal(t, 0, batches[0].NumRows())
}

func TestParseEmptyFile(t *testing.T) {
	_, _, err := parseFile(t, CreateParser(nil), "")
	require.NotNil(t, err)
}

func TestParseInfersFromFirstBatch(t *testing.T) {
	batches, _, err := parseFile(t, CreateParser(nil), "name,amount1\n"+
		",2\n"+
		"alice,2.75\n"+
		"bob,1\n")
	require.Nil(t, err)
	require.Len(t, batches, 1)
	schema := batches[0].Schema
	require.IsType(t, &fanout.VarStringColumnType{}, schema.Column(0).Type)
	require.IsType(t, &fanout.Float64ColumnType{}, schema.Column(1).Type)
	require.Equal(t, [][]interface{}{{nil, 2.0}, {"alice", 2.75}, {"bob", 1.0}}, batches[0].Rows)
}

func TestParseRejectsFractionAfterFirstBatch(t *testing.T) {
	_, ended, err := parseFile(t, CreateParser(&ParserConf{BatchSize: 1}), "amount1\n2\n2.75\n")
	require.NotNil(t, err)
	require.True(t, ended)
	require.Contains(t, err.Error(), "column amount1 was not an integer")
}
