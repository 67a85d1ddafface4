package validate

import (
	"errors"
	"math"
	"regexp"
	"strings"
	"testing"

	"github.com/vnykmshr/tabflow/internal/testutil"
	tferrors "github.com/vnykmshr/tabflow/pkg/common/errors"
	"github.com/vnykmshr/tabflow/pkg/table"
)

func customers() *table.Table {
	return table.MustNew(
		table.MustColumn("id", table.Integer, 1, 2, 2, 3, 3),
		table.MustColumn("email", table.Text, "a@x.com", "b@x.com", "broken", nil, "c@x.com"),
		table.MustColumn("age", table.Integer, 25, 130, 40, nil, -1),
		table.MustColumn("plan", table.Categorical, "free", "pro", "pro", "gold", "free"),
	)
}

func asValidationError(t *testing.T, err error) *ValidationError {
	t.Helper()
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error %v is not a *ValidationError", err)
	}
	testutil.AssertErrorIs(t, err, ErrValidationFailed)
	return ve
}

func TestCompleteness(t *testing.T) {
	tbl := customers()

	ve := asValidationError(t, Completeness("email", "age").Check(tbl))
	testutil.AssertEqual(t, ve.Column, "email")
	testutil.AssertEqual(t, ve.Count, 2)

	testutil.AssertNoError(t, Completeness("id", "plan").Check(tbl))

	ve = asValidationError(t, Completeness("ghost").Check(tbl))
	testutil.AssertEqual(t, ve.Detail, "column not found")

	ve = asValidationError(t, Completeness().Check(tbl))
	testutil.AssertEqual(t, ve.Count, 2)
}

func TestNaNIsMissing(t *testing.T) {
	tbl := table.MustNew(table.MustColumn("score", table.Float, 1.0, math.NaN(), 3.0))

	ve := asValidationError(t, Completeness("score").Check(tbl))
	testutil.AssertEqual(t, ve.Count, 1)
	testutil.AssertNoError(t, Range("score", 0, 10).Check(tbl))
}

func TestUniqueness(t *testing.T) {
	tbl := customers()

	ve := asValidationError(t, Uniqueness("id").Check(tbl))
	testutil.AssertEqual(t, ve.Count, 2)
	testutil.AssertEqual(t, ve.Column, "id")

	testutil.AssertNoError(t, Uniqueness("id", "email").Check(tbl))
	testutil.AssertNoError(t, Uniqueness().Check(tbl))

	ve = asValidationError(t, Uniqueness("id", "ghost").Check(tbl))
	testutil.AssertEqual(t, ve.Column, "ghost")
}

func TestRange(t *testing.T) {
	tbl := customers()

	ve := asValidationError(t, Range("age", 0, 120).Check(tbl))
	testutil.AssertEqual(t, ve.Count, 2)
	testutil.AssertEqual(t, ve.Rule, "range(age,0,120)")

	testutil.AssertNoError(t, Range("age", -10, 200).Check(tbl))
	testutil.AssertNoError(t, Range("id", math.Inf(-1), math.Inf(1)).Check(tbl))

	ve = asValidationError(t, Range("email", 0, 1).Check(tbl))
	testutil.AssertEqual(t, strings.Contains(ve.Detail, "not numeric"), true)

	asValidationError(t, Range("ghost", 0, 1).Check(tbl))
}

func TestTypeConsistency(t *testing.T) {
	tbl := customers()

	rule := TypeConsistency(map[string]table.Type{
		"id":    table.Integer,
		"plan":  table.Categorical,
		"email": table.Text,
	})
	testutil.AssertNoError(t, rule.Check(tbl))

	ve := asValidationError(t, TypeConsistency(map[string]table.Type{
		"age":     table.Float,
		"missing": table.Text,
		"id":      table.Integer,
	}).Check(tbl))
	testutil.AssertEqual(t, ve.Count, 2)
	testutil.AssertEqual(t, ve.Column, "age")
	testutil.AssertEqual(t, ve.Detail, "age is integer, want float; missing missing")
}

func TestPatternAndOneOf(t *testing.T) {
	tbl := customers()
	email := regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[a-z]+$`)

	ve := asValidationError(t, Pattern("email", email).Check(tbl))
	testutil.AssertEqual(t, ve.Count, 1)

	asValidationError(t, Pattern("age", email).Check(tbl))

	ve = asValidationError(t, OneOf("plan", "free", "pro").Check(tbl))
	testutil.AssertEqual(t, ve.Count, 1)
	testutil.AssertNoError(t, OneOf("plan", "free", "pro", "gold").Check(tbl))
}

func TestPredicate(t *testing.T) {
	tbl := customers()

	adults := Predicate("adults_only", func(t *table.Table) (int, string) {
		minors := t.Filter(func(r table.Row) bool {
			age, ok := r.Int("age")
			return ok && age < 18
		}).NumRows()
		return minors, "minors present"
	})

	ve := asValidationError(t, adults.Check(tbl))
	testutil.AssertEqual(t, ve.Rule, "adults_only")
	testutil.AssertEqual(t, ve.Error(), "adults_only failed: minors present")
}

func TestAll(t *testing.T) {
	tbl := customers()

	rule := All(Completeness("id"), Uniqueness("id"), Range("age", 0, 120))
	testutil.AssertEqual(t, rule.Name(), "all(completeness(id),uniqueness(id),range(age,0,120))")

	err := rule.Check(tbl)
	testutil.AssertErrorIs(t, err, ErrValidationFailed)

	failures := Failures(err)
	testutil.AssertEqual(t, len(failures), 2)
	testutil.AssertEqual(t, failures[0].Rule, "uniqueness(id)")

	testutil.AssertNoError(t, All(Completeness("id")).Check(tbl))
	testutil.AssertEqual(t, len(Failures(nil)), 0)
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Rule: "completeness(age)", Column: "age", Count: 1, Detail: "1 null value(s)"}
	testutil.AssertEqual(t, err.Error(), `completeness(age) failed on "age": 1 null value(s)`)
	testutil.AssertEqual(t, tferrors.IsValidationFailure(err), true)
}

func TestBuild(t *testing.T) {
	tbl := customers()

	tests := []struct {
		name     string
		kind     string
		params   map[string]any
		wantFail bool
	}{
		{"completeness", "completeness", map[string]any{"columns": []any{"id"}}, false},
		{"uniqueness", "Uniqueness", map[string]any{"columns": []string{"id"}}, true},
		{"range open max", "range", map[string]any{"column": "age", "min": 0}, true},
		{"range from strings", "range", map[string]any{"column": "age", "min": "-5", "max": "500"}, false},
		{"types", "types", map[string]any{"columns": []any{map[string]any{"column": "age", "type": "int"}}}, false},
		{"pattern", "pattern", map[string]any{"column": "email", "regex": "@"}, true},
		{"one_of", "one_of", map[string]any{"column": "plan", "values": []any{"free", "pro", "gold"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := Build(tt.kind, tt.params)
			testutil.AssertNoError(t, err)
			if tt.wantFail {
				testutil.AssertError(t, rule.Check(tbl))
			} else {
				testutil.AssertNoError(t, rule.Check(tbl))
			}
		})
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name   string
		kind   string
		params map[string]any
	}{
		{"unknown kind", "median", nil},
		{"unknown param", "completeness", map[string]any{"colums": []string{"a"}}},
		{"range without column", "range", map[string]any{"min": 1}},
		{"range inverted", "range", map[string]any{"column": "a", "min": 5, "max": 1}},
		{"bad regex", "pattern", map[string]any{"column": "a", "regex": "("}},
		{"bad type", "types", map[string]any{"columns": []any{map[string]any{"column": "a", "type": "blob"}}}},
		{"empty types", "types", map[string]any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.kind, tt.params)
			testutil.AssertErrorIs(t, err, tferrors.ErrInvalidConfiguration)
		})
	}
}

func TestRegister(t *testing.T) {
	Register("always_ok", func(map[string]any) (Rule, error) {
		return NewRuleFunc("always_ok", func(*table.Table) error { return nil }), nil
	})
	rule, err := Build("always_ok", nil)
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, rule.Check(customers()))
}
