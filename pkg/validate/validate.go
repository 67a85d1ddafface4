package validate

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	tferrors "github.com/vnykmshr/tabflow/pkg/common/errors"
	"github.com/vnykmshr/tabflow/pkg/table"
)

// Rule is a data-quality check. Check returns nil when the table passes and
// an error wrapping ErrValidationFailed otherwise.
type Rule interface {
	Name() string
	Check(t *table.Table) error
}

// ErrValidationFailed is wrapped by every ValidationError.
var ErrValidationFailed = tferrors.ErrValidationFailed

// ValidationError describes one failed rule.
type ValidationError struct {
	Rule   string
	Column string
	Count  int
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s failed on %q: %s", e.Rule, e.Column, e.Detail)
	}
	return fmt.Sprintf("%s failed: %s", e.Rule, e.Detail)
}

// Unwrap returns ErrValidationFailed so callers can use errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

func columnNotFound(rule, col string) *ValidationError {
	return &ValidationError{Rule: rule, Column: col, Detail: "column not found"}
}

func ruleName(kind string, args ...string) string {
	return kind + "(" + strings.Join(args, ",") + ")"
}

// RuleFunc adapts a function to Rule.
type RuleFunc struct {
	name string
	fn   func(*table.Table) error
}

// NewRuleFunc creates a named rule from a function.
func NewRuleFunc(name string, fn func(*table.Table) error) *RuleFunc {
	return &RuleFunc{name: name, fn: fn}
}

func (r *RuleFunc) Name() string { return r.name }
func (r *RuleFunc) Check(t *table.Table) error { return r.fn(t) }

// Completeness fails when any listed column (every column when none are
// listed) contains a null. The first incomplete column is reported with
// the total null count across the listed columns.
func Completeness(cols ...string) Rule {
	name := ruleName("completeness", cols...)
	return NewRuleFunc(name, func(t *table.Table) error {
		targets := cols
		if len(targets) == 0 {
			targets = t.ColumnNames()
		}
		total := 0
		first := ""
		for _, col := range targets {
			c, err := t.Column(col)
			if err != nil {
				return columnNotFound(name, col)
			}
			if n := c.NullCount(); n > 0 {
				if first == "" {
					first = col
				}
				total += n
			}
		}
		if total == 0 {
			return nil
		}
		return &ValidationError{
			Rule:   name,
			Column: first,
			Count:  total,
			Detail: fmt.Sprintf("%d null value(s)", total),
		}
	})
}

// Uniqueness fails when two rows share the same values on cols (on every
// column when none are listed). Count is the number of repeated rows after
// the first occurrence of each key.
func Uniqueness(cols ...string) Rule {
	name := ruleName("uniqueness", cols...)
	return NewRuleFunc(name, func(t *table.Table) error {
		for _, col := range cols {
			if !t.HasColumn(col) {
				return columnNotFound(name, col)
			}
		}
		n, err := t.CountDuplicates(cols...)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if n == 0 {
			return nil
		}
		return &ValidationError{
			Rule:   name,
			Column: strings.Join(cols, ","),
			Count:  n,
			Detail: fmt.Sprintf("%d duplicate row(s)", n),
		}
	})
}

// Range fails when a non-null value of a numeric column lies outside
// [lo, hi]. Nulls are ignored.
func Range(col string, lo, hi float64) Rule {
	name := ruleName("range", col, table.FormatValue(lo), table.FormatValue(hi))
	return NewRuleFunc(name, func(t *table.Table) error {
		c, err := t.Column(col)
		if err != nil {
			return columnNotFound(name, col)
		}
		if !c.Type().Numeric() {
			return &ValidationError{Rule: name, Column: col, Detail: fmt.Sprintf("column is %s, not numeric", c.Type())}
		}
		out := 0
		for i := 0; i < c.Len(); i++ {
			if v, ok := c.Float(i); ok && (v < lo || v > hi) {
				out++
			}
		}
		if out == 0 {
			return nil
		}
		return &ValidationError{
			Rule:   name,
			Column: col,
			Count:  out,
			Detail: fmt.Sprintf("%d value(s) outside [%s, %s]", out, table.FormatValue(lo), table.FormatValue(hi)),
		}
	})
}

// TypeConsistency fails when a column is missing or its declared type
// differs from the expected one.
func TypeConsistency(expected map[string]table.Type) Rule {
	cols := make([]string, 0, len(expected))
	for col := range expected {
		cols = append(cols, col)
	}
	slices.Sort(cols)
	name := ruleName("types", cols...)

	return NewRuleFunc(name, func(t *table.Table) error {
		var problems []string
		first := ""
		for _, col := range cols {
			want := expected[col]
			c, err := t.Column(col)
			switch {
			case err != nil:
				problems = append(problems, col+" missing")
			case c.Type() != want:
				problems = append(problems, fmt.Sprintf("%s is %s, want %s", col, c.Type(), want))
			default:
				continue
			}
			if first == "" {
				first = col
			}
		}
		if len(problems) == 0 {
			return nil
		}
		return &ValidationError{
			Rule:   name,
			Column: first,
			Count:  len(problems),
			Detail: strings.Join(problems, "; "),
		}
	})
}

// Pattern fails when a non-null value of a text column does not match re.
func Pattern(col string, re *regexp.Regexp) Rule {
	name := ruleName("pattern", col)
	return NewRuleFunc(name, func(t *table.Table) error {
		c, err := t.Column(col)
		if err != nil {
			return columnNotFound(name, col)
		}
		if !c.Type().Textual() {
			return &ValidationError{Rule: name, Column: col, Detail: fmt.Sprintf("column is %s, not text", c.Type())}
		}
		bad := 0
		for i := 0; i < c.Len(); i++ {
			if s, ok := c.String(i); ok && !re.MatchString(s) {
				bad++
			}
		}
		if bad == 0 {
			return nil
		}
		return &ValidationError{
			Rule:   name,
			Column: col,
			Count:  bad,
			Detail: fmt.Sprintf("%d value(s) do not match %s", bad, re),
		}
	})
}

// OneOf fails when a non-null value of a text column is not in allowed.
func OneOf(col string, allowed ...string) Rule {
	name := ruleName("one_of", col)
	set := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		set[a] = struct{}{}
	}
	return NewRuleFunc(name, func(t *table.Table) error {
		c, err := t.Column(col)
		if err != nil {
			return columnNotFound(name, col)
		}
		bad := 0
		for i := 0; i < c.Len(); i++ {
			if c.IsNull(i) {
				continue
			}
			if _, ok := set[table.FormatValue(c.Value(i))]; !ok {
				bad++
			}
		}
		if bad == 0 {
			return nil
		}
		return &ValidationError{
			Rule:   name,
			Column: col,
			Count:  bad,
			Detail: fmt.Sprintf("%d value(s) outside the allowed set", bad),
		}
	})
}

// Predicate builds a custom rule. fn returns the number of offending rows
// and a description; a positive count fails the rule.
func Predicate(name string, fn func(*table.Table) (int, string)) Rule {
	return NewRuleFunc(name, func(t *table.Table) error {
		n, detail := fn(t)
		if n <= 0 {
			return nil
		}
		return &ValidationError{Rule: name, Count: n, Detail: detail}
	})
}

// All runs every rule and joins the failures. It passes only if every rule
// passes.
func All(rules ...Rule) Rule {
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.Name()
	}
	return NewRuleFunc(ruleName("all", names...), func(t *table.Table) error {
		var errs []error
		for _, r := range rules {
			if err := r.Check(t); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}

// Failures flattens err into the ValidationErrors it carries, including
// those joined by All.
func Failures(err error) []*ValidationError {
	if err == nil {
		return nil
	}
	var out []*ValidationError
	var walk func(error)
	walk = func(e error) {
		if joined, ok := e.(interface{ Unwrap() []error }); ok {
			for _, inner := range joined.Unwrap() {
				walk(inner)
			}
			return
		}
		var ve *ValidationError
		if errors.As(e, &ve) {
			out = append(out, ve)
		}
	}
	walk(err)
	return out
}
