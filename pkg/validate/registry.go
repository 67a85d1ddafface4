package validate

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	tferrors "github.com/vnykmshr/tabflow/pkg/common/errors"
	"github.com/vnykmshr/tabflow/pkg/table"
)

// Factory builds a rule from declarative parameters.
type Factory func(params map[string]any) (Rule, error)

var factories = map[string]Factory{
	"completeness": func(p map[string]any) (Rule, error) {
		var args struct{ Columns []string }
		if err := decode("completeness", p, &args); err != nil {
			return nil, err
		}
		return Completeness(args.Columns...), nil
	},
	"uniqueness": func(p map[string]any) (Rule, error) {
		var args struct{ Columns []string }
		if err := decode("uniqueness", p, &args); err != nil {
			return nil, err
		}
		return Uniqueness(args.Columns...), nil
	},
	"range": func(p map[string]any) (Rule, error) {
		var args struct {
			Column string
			Min    *float64
			Max    *float64
		}
		if err := decode("range", p, &args); err != nil {
			return nil, err
		}
		if args.Column == "" {
			return nil, tferrors.NewConfigurationError("validate", "range.column", "", "cannot be empty")
		}
		lo, hi := math.Inf(-1), math.Inf(1)
		if args.Min != nil {
			lo = *args.Min
		}
		if args.Max != nil {
			hi = *args.Max
		}
		if lo > hi {
			return nil, tferrors.NewConfigurationError("validate", "range.min", lo, "greater than max").
				WithHint("swap min and max")
		}
		return Range(args.Column, lo, hi), nil
	},
	"types": func(p map[string]any) (Rule, error) {
		var args struct {
			Columns []struct {
				Column string
				Type   string
			}
		}
		if err := decode("types", p, &args); err != nil {
			return nil, err
		}
		if len(args.Columns) == 0 {
			return nil, tferrors.NewConfigurationError("validate", "types.columns", 0, "must not be empty")
		}
		expected := make(map[string]table.Type, len(args.Columns))
		for _, c := range args.Columns {
			if c.Column == "" {
				return nil, tferrors.NewConfigurationError("validate", "types.columns.column", "", "cannot be empty")
			}
			typ, err := table.ParseType(c.Type)
			if err != nil {
				return nil, tferrors.NewConfigurationError("validate", "types.columns."+c.Column, c.Type, err.Error())
			}
			expected[c.Column] = typ
		}
		return TypeConsistency(expected), nil
	},
	"pattern": func(p map[string]any) (Rule, error) {
		var args struct {
			Column string
			Regex  string
		}
		if err := decode("pattern", p, &args); err != nil {
			return nil, err
		}
		re, err := regexp.Compile(args.Regex)
		if err != nil {
			return nil, tferrors.NewConfigurationError("validate", "pattern.regex", args.Regex, err.Error())
		}
		return Pattern(args.Column, re), nil
	},
	"one_of": func(p map[string]any) (Rule, error) {
		var args struct {
			Column string
			Values []string
		}
		if err := decode("one_of", p, &args); err != nil {
			return nil, err
		}
		return OneOf(args.Column, args.Values...), nil
	},
}

// Register adds or replaces a named rule factory. It is not safe to call
// concurrently with Build.
func Register(kind string, f Factory) {
	factories[strings.ToLower(kind)] = f
}

// Kinds returns the registered rule kinds in sorted order.
func Kinds() []string {
	kinds := make([]string, 0, len(factories))
	for k := range factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Build creates a rule of the named kind from params such as those read
// from a pipeline definition.
func Build(kind string, params map[string]any) (Rule, error) {
	f, ok := factories[strings.ToLower(kind)]
	if !ok {
		return nil, tferrors.NewConfigurationError("validate", "rule", kind, "unknown rule").
			WithHint("use one of: " + strings.Join(Kinds(), ", "))
	}
	return f(params)
}

func decode(kind string, params map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(params); err != nil {
		return tferrors.NewConfigurationError("validate", kind, params, err.Error())
	}
	return nil
}
