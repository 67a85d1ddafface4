package quality

import (
	"fmt"
	"math"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/vnykmshr/tabflow/pkg/table"
	"github.com/vnykmshr/tabflow/pkg/validate"
)

// DefaultLowThreshold is the completeness percentage under which a column is
// listed in Report.LowCompleteness.
const DefaultLowThreshold = 95.0

// ColumnProfile summarises one column.
type ColumnProfile struct {
	Name         string     `json:"name"`
	Type         table.Type `json:"type"`
	Nulls        int        `json:"nulls"`
	Completeness float64    `json:"completeness"`
	Distinct     int        `json:"distinct"`
}

// Report is a completeness, duplication and type summary of a table.
type Report struct {
	RowCount         int                `json:"row_count"`
	ColumnCount      int                `json:"column_count"`
	Completeness     map[string]float64 `json:"completeness"`
	Nulls            map[string]int     `json:"nulls"`
	DuplicateRows    int                `json:"duplicate_rows"`
	TypeDistribution map[table.Type]int `json:"type_distribution"`
	MeanCompleteness float64            `json:"mean_completeness"`
	LowCompleteness  []string           `json:"low_completeness"`
	MemoryBytes      int64              `json:"memory_bytes"`
	Columns          []ColumnProfile    `json:"columns"`
}

// Compute builds the report for t using DefaultLowThreshold.
func Compute(t *table.Table) Report {
	return ComputeWithThreshold(t, DefaultLowThreshold)
}

// ComputeWithThreshold builds the report for t. Completeness is the
// percentage of non-null values per column and is NaN for a table with no
// rows. DuplicateRows counts rows equal on every column to an earlier row.
// The table is only read, so concurrent calls on one table are safe.
func ComputeWithThreshold(t *table.Table, lowThreshold float64) Report {
	r := Report{
		RowCount:         t.NumRows(),
		ColumnCount:      t.NumColumns(),
		Completeness:     make(map[string]float64, t.NumColumns()),
		Nulls:            make(map[string]int, t.NumColumns()),
		TypeDistribution: make(map[table.Type]int),
		MemoryBytes:      t.MemoryUsage(),
		Columns:          make([]ColumnProfile, 0, t.NumColumns()),
	}

	sum := 0.0
	for _, c := range t.Columns() {
		nulls := c.NullCount()
		pct := completeness(nulls, r.RowCount)
		r.Completeness[c.Name()] = pct
		r.Nulls[c.Name()] = nulls
		r.TypeDistribution[c.Type()]++
		sum += pct
		if pct < lowThreshold {
			r.LowCompleteness = append(r.LowCompleteness, c.Name())
		}
		r.Columns = append(r.Columns, ColumnProfile{
			Name:         c.Name(),
			Type:         c.Type(),
			Nulls:        nulls,
			Completeness: pct,
			Distinct:     distinct(t, c),
		})
	}

	switch {
	case r.ColumnCount == 0:
		r.MeanCompleteness = math.NaN()
	default:
		r.MeanCompleteness = sum / float64(r.ColumnCount)
	}

	// Duplicated on every column cannot fail: all names come from t.
	r.DuplicateRows, _ = t.CountDuplicates()
	return r
}

func completeness(nulls, rows int) float64 {
	if rows == 0 {
		return math.NaN()
	}
	return 100 * (1 - float64(nulls)/float64(rows))
}

func distinct(t *table.Table, c *table.Column) int {
	dups, err := t.CountDuplicates(c.Name())
	if err != nil {
		return 0
	}
	n := t.NumRows() - dups
	if c.NullCount() > 0 {
		n--
	}
	return n
}

// Passed reports whether every column meets minCompleteness and the
// duplicate count is at most maxDuplicates. A negative maxDuplicates skips
// the duplicate check. NaN completeness (no rows) passes.
func (r Report) Passed(minCompleteness float64, maxDuplicates int) bool {
	return len(r.violations(minCompleteness, maxDuplicates)) == 0
}

func (r Report) violations(minCompleteness float64, maxDuplicates int) []string {
	var out []string
	for _, col := range r.Columns {
		if col.Completeness < minCompleteness {
			out = append(out, fmt.Sprintf("%s %.1f%% complete", col.Name, col.Completeness))
		}
	}
	if maxDuplicates >= 0 && r.DuplicateRows > maxDuplicates {
		out = append(out, fmt.Sprintf("%d duplicate row(s)", r.DuplicateRows))
	}
	return out
}

// Gate returns a rule that computes a report for the checked table and
// fails when it does not pass the given thresholds.
func Gate(minCompleteness float64, maxDuplicates int) validate.Rule {
	name := fmt.Sprintf("quality_gate(%s,%d)", table.FormatValue(minCompleteness), maxDuplicates)
	return validate.NewRuleFunc(name, func(t *table.Table) error {
		v := Compute(t).violations(minCompleteness, maxDuplicates)
		if len(v) == 0 {
			return nil
		}
		return &validate.ValidationError{
			Rule:   name,
			Count:  len(v),
			Detail: strings.Join(v, "; "),
		}
	})
}

// MarshalJSON encodes NaN completeness values as null.
func (r Report) MarshalJSON() ([]byte, error) {
	type plain Report
	type profile struct {
		ColumnProfile
		Completeness *float64 `json:"completeness"`
	}
	out := struct {
		plain
		Completeness     map[string]*float64 `json:"completeness"`
		MeanCompleteness *float64            `json:"mean_completeness"`
		Columns          []profile           `json:"columns"`
	}{
		plain:            plain(r),
		Completeness:     make(map[string]*float64, len(r.Completeness)),
		MeanCompleteness: finite(r.MeanCompleteness),
		Columns:          make([]profile, len(r.Columns)),
	}
	for k, v := range r.Completeness {
		out.Completeness[k] = finite(v)
	}
	for i, c := range r.Columns {
		out.Columns[i] = profile{ColumnProfile: c, Completeness: finite(c.Completeness)}
	}
	return sonic.Marshal(out)
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
