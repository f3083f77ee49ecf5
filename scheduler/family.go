package scheduler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-sif/fanout"
)

// A Family describes a group of aggregate query templates over numbered columns,
// producing one QueryTask per index in [From, To]
type Family struct {
	Name         string // used in task ids, e.g. "amount"
	ColumnPrefix string // the column name prefix, e.g. "amount" for amount1..amount48
	Aggregate    string // the aggregate function applied to each column, e.g. "sum"
	From         int    // first column index, inclusive
	To           int    // last column index, inclusive
}

// DefaultFamilies sums amount1..amount48 and number1..number47
func DefaultFamilies() []Family {
	return []Family{
		{Name: "amount", ColumnPrefix: "amount", Aggregate: "sum", From: 1, To: 48},
		{Name: "number", ColumnPrefix: "number", Aggregate: "sum", From: 1, To: 47},
	}
}

// Size returns the number of tasks this Family produces
func (f Family) Size() int {
	if f.To < f.From {
		return 0
	}
	return f.To - f.From + 1
}

// Validate returns an error if this Family cannot produce well-formed queries
func (f Family) Validate() error {
	if len(f.Name) == 0 || len(f.ColumnPrefix) == 0 || len(f.Aggregate) == 0 {
		return fmt.Errorf("family %q must have a name, column prefix and aggregate", f.Name)
	}
	if !isIdentifier(f.ColumnPrefix) || !isIdentifier(f.Aggregate) {
		return fmt.Errorf("family %q: column prefix and aggregate must be plain identifiers", f.Name)
	}
	if f.From < 0 || f.To < f.From {
		return fmt.Errorf("family %q: invalid index range %d-%d", f.Name, f.From, f.To)
	}
	return nil
}

// ToString returns the textual form accepted by ParseFamily
func (f Family) ToString() string {
	if f.Name != f.ColumnPrefix {
		return fmt.Sprintf("%s=%s:%s:%d-%d", f.Name, f.ColumnPrefix, f.Aggregate, f.From, f.To)
	}
	return fmt.Sprintf("%s:%s:%d-%d", f.ColumnPrefix, f.Aggregate, f.From, f.To)
}

// ParseFamily parses a Family from the form "[name=]prefix:aggregate:from-to",
// e.g. "amount:sum:1-48". The name defaults to the column prefix.
func ParseFamily(s string) (Family, error) {
	var f Family
	def := strings.TrimSpace(s)
	if eq := strings.Index(def, "="); eq >= 0 {
		f.Name = def[:eq]
		def = def[eq+1:]
	}
	parts := strings.Split(def, ":")
	if len(parts) != 3 {
		return f, fmt.Errorf("family %q must have the form prefix:aggregate:from-to", s)
	}
	f.ColumnPrefix = parts[0]
	f.Aggregate = parts[1]
	if len(f.Name) == 0 {
		f.Name = f.ColumnPrefix
	}
	bounds := strings.SplitN(parts[2], "-", 2)
	if len(bounds) != 2 {
		return f, fmt.Errorf("family %q: range %q must have the form from-to", s, parts[2])
	}
	var err error
	if f.From, err = strconv.Atoi(bounds[0]); err != nil {
		return f, fmt.Errorf("family %q: %w", s, err)
	}
	if f.To, err = strconv.Atoi(bounds[1]); err != nil {
		return f, fmt.Errorf("family %q: %w", s, err)
	}
	return f, f.Validate()
}

// ParseFamilies parses each of the given strings with ParseFamily
func ParseFamilies(specs []string) ([]Family, error) {
	families := make([]Family, 0, len(specs))
	for _, s := range specs {
		f, err := ParseFamily(s)
		if err != nil {
			return nil, err
		}
		families = append(families, f)
	}
	return families, nil
}

// BuildTasks produces one QueryTask per index of each Family, against the named table.
// Each query has the form "SELECT agg(table.prefix<i>) AS calc<i> FROM table".
func BuildTasks(table string, families ...Family) []fanout.QueryTask {
	total := 0
	for _, f := range families {
		total += f.Size()
	}
	tasks := make([]fanout.QueryTask, 0, total)
	for _, f := range families {
		for i := f.From; i <= f.To; i++ {
			alias := fmt.Sprintf("calc%d", i)
			tasks = append(tasks, fanout.QueryTask{
				ID:     fmt.Sprintf("%s/%d", f.Name, i),
				Family: f.Name,
				Index:  i,
				Table:  table,
				Alias:  alias,
				Query:  fmt.Sprintf("SELECT %s(%s.%s%d) AS %s FROM %s", f.Aggregate, table, f.ColumnPrefix, i, alias, table),
			})
		}
	}
	return tasks
}

func isIdentifier(s string) bool {
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return len(s) > 0
}
