package scheduler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultFamilies(t *testing.T) {
	tasks := BuildTasks("pension_history_3", DefaultFamilies()...)
	require.Len(t, tasks, 95)
	require.Equal(t, "amount/1", tasks[0].ID)
	require.Equal(t, "SELECT sum(pension_history_3.amount1) AS calc1 FROM pension_history_3", tasks[0].Query)
	require.Equal(t, "calc1", tasks[0].Alias)
	last := tasks[len(tasks)-1]
	require.Equal(t, "number/47", last.ID)
	require.Equal(t, "number", last.Family)
	require.Equal(t, 47, last.Index)
	require.Equal(t, "SELECT sum(pension_history_3.number47) AS calc47 FROM pension_history_3", last.Query)

	ids := make(map[string]bool)
	for _, task := range tasks {
		require.False(t, ids[task.ID], "task id %s should be unique", task.ID)
		ids[task.ID] = true
		require.Equal(t, "pension_history_3", task.Table)
	}
}

func TestParseFamily(t *testing.T) {
	f, err := ParseFamily("amount:sum:1-48")
	require.Nil(t, err)
	require.Equal(t, Family{Name: "amount", ColumnPrefix: "amount", Aggregate: "sum", From: 1, To: 48}, f)
	require.Equal(t, 48, f.Size())
	require.Equal(t, "amount:sum:1-48", f.ToString())

	f, err = ParseFamily("avgnum=number:avg:3-5")
	require.Nil(t, err)
	require.Equal(t, Family{Name: "avgnum", ColumnPrefix: "number", Aggregate: "avg", From: 3, To: 5}, f)
	require.Equal(t, "avgnum=number:avg:3-5", f.ToString())

	for _, bad := range []string{"", "amount:sum", "amount:sum:1", "amount:sum:a-3", "amount:sum:5-1", "amount;drop:sum:1-2", "amount:sum(x):1-2"} {
		_, err := ParseFamily(bad)
		require.NotNil(t, err, "%q should not parse", bad)
	}
}

func TestParseFamilies(t *testing.T) {
	families, err := ParseFamilies([]string{"amount:sum:1-48", "number:sum:1-47"})
	require.Nil(t, err)
	require.Equal(t, DefaultFamilies(), families)

	_, err = ParseFamilies([]string{"amount:sum:1-48", "bad"})
	require.NotNil(t, err)
}

func TestEmptyFamily(t *testing.T) {
	require.Empty(t, BuildTasks("t", Family{Name: "x", ColumnPrefix: "x", Aggregate: "sum", From: 3, To: 2}))
}
