package transform

import (
	"sort"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"

	tferrors "github.com/vnykmshr/tabflow/pkg/common/errors"
	"github.com/vnykmshr/tabflow/pkg/pipeline"
	"github.com/vnykmshr/tabflow/pkg/table"
)

// Factory builds a transform from declarative parameters.
type Factory func(params map[string]any) (pipeline.TransformFunc, error)

type columnsArgs struct{ Columns []string }

var factories = map[string]Factory{
	"filter": func(p map[string]any) (pipeline.TransformFunc, error) {
		var args struct {
			Column string
			Op     string
			Value  any
		}
		if err := decode("filter", p, &args); err != nil {
			return nil, err
		}
		if args.Column == "" {
			return nil, configError("filter.column", "", "cannot be empty")
		}
		op, err := ParseOp(args.Op)
		if err != nil {
			return nil, configError("filter.op", args.Op, err.Error()).
				WithHint("use eq, neq, gt, gte, lt, lte or contains")
		}
		if args.Value == nil {
			return nil, configError("filter.value", nil, "cannot be empty")
		}
		return Filter(args.Column, op, args.Value), nil
	},
	"select": func(p map[string]any) (pipeline.TransformFunc, error) {
		var args columnsArgs
		if err := decode("select", p, &args); err != nil {
			return nil, err
		}
		if len(args.Columns) == 0 {
			return nil, configError("select.columns", 0, "must not be empty")
		}
		return Select(args.Columns...), nil
	},
	"drop": func(p map[string]any) (pipeline.TransformFunc, error) {
		var args columnsArgs
		if err := decode("drop", p, &args); err != nil {
			return nil, err
		}
		return Drop(args.Columns...), nil
	},
	// Column names are values, not keys: config loaders lowercase map keys.
	"rename": func(p map[string]any) (pipeline.TransformFunc, error) {
		var args struct {
			Columns []struct {
				From string
				To   string
			}
		}
		if err := decode("rename", p, &args); err != nil {
			return nil, err
		}
		if len(args.Columns) == 0 {
			return nil, configError("rename.columns", 0, "must not be empty")
		}
		mapping := make(map[string]string, len(args.Columns))
		for _, c := range args.Columns {
			if c.From == "" || c.To == "" {
				return nil, configError("rename.columns", c, "needs from and to")
			}
			mapping[c.From] = c.To
		}
		return Rename(mapping), nil
	},
	"drop_nulls": func(p map[string]any) (pipeline.TransformFunc, error) {
		var args columnsArgs
		if err := decode("drop_nulls", p, &args); err != nil {
			return nil, err
		}
		return DropNulls(args.Columns...), nil
	},
	"drop_duplicates": func(p map[string]any) (pipeline.TransformFunc, error) {
		var args columnsArgs
		if err := decode("drop_duplicates", p, &args); err != nil {
			return nil, err
		}
		return DropDuplicates(args.Columns...), nil
	},
	"fill_nulls": func(p map[string]any) (pipeline.TransformFunc, error) {
		var args struct {
			Column string
			Value  any
		}
		if err := decode("fill_nulls", p, &args); err != nil {
			return nil, err
		}
		if args.Column == "" || args.Value == nil {
			return nil, configError("fill_nulls", p, "needs column and value")
		}
		return FillNulls(args.Column, args.Value), nil
	},
	"cast": func(p map[string]any) (pipeline.TransformFunc, error) {
		var args struct {
			Column  string
			Type    table.Type
			Lenient bool
		}
		if err := decode("cast", p, &args); err != nil {
			return nil, err
		}
		if args.Column == "" {
			return nil, configError("cast.column", "", "cannot be empty")
		}
		if !args.Type.Valid() {
			return nil, configError("cast.type", p["type"], "must be a column type")
		}
		if args.Lenient {
			return Coerce(args.Column, args.Type), nil
		}
		return Cast(args.Column, args.Type), nil
	},
	"trim_text": func(p map[string]any) (pipeline.TransformFunc, error) {
		var args columnsArgs
		if err := decode("trim_text", p, &args); err != nil {
			return nil, err
		}
		return TrimText(args.Columns...), nil
	},
	"sort": func(p map[string]any) (pipeline.TransformFunc, error) {
		var args struct {
			By []struct {
				Column     string
				Descending bool
			}
		}
		if err := decode("sort", p, &args); err != nil {
			return nil, err
		}
		if len(args.By) == 0 {
			return nil, configError("sort.by", 0, "must not be empty")
		}
		keys := make([]table.SortKey, len(args.By))
		for i, k := range args.By {
			keys[i] = table.SortKey{Column: k.Column, Descending: k.Descending}
		}
		return Sort(keys...), nil
	},
	"limit": func(p map[string]any) (pipeline.TransformFunc, error) {
		var args struct{ N int }
		if err := decode("limit", p, &args); err != nil {
			return nil, err
		}
		if args.N < 0 {
			return nil, configError("limit.n", args.N, "cannot be negative")
		}
		return Limit(args.N), nil
	},
	"aggregate": func(p map[string]any) (pipeline.TransformFunc, error) {
		var args struct {
			Keys []string
			Aggs []aggArgs
		}
		if err := decode("aggregate", p, &args); err != nil {
			return nil, err
		}
		if len(args.Keys) == 0 || len(args.Aggs) == 0 {
			return nil, configError("aggregate", p, "needs keys and aggs")
		}
		specs, err := aggSpecs("aggregate", args.Aggs)
		if err != nil {
			return nil, err
		}
		return Aggregate(args.Keys, specs...), nil
	},
	"pivot": func(p map[string]any) (pipeline.TransformFunc, error) {
		var args struct {
			Index   []string
			Columns string
			Values  string
			Func    string
			Fill    any
		}
		if err := decode("pivot", p, &args); err != nil {
			return nil, err
		}
		if len(args.Index) == 0 || args.Columns == "" || args.Values == "" {
			return nil, configError("pivot", p, "needs index, columns and values")
		}
		spec := table.PivotSpec{Index: args.Index, Columns: args.Columns, Values: args.Values, Fill: args.Fill}
		if args.Func != "" {
			fn, err := table.ParseAggFunc(args.Func)
			if err != nil {
				return nil, configError("pivot.func", args.Func, err.Error())
			}
			spec.Func = fn
		}
		return Pivot(spec), nil
	},
	"melt": func(p map[string]any) (pipeline.TransformFunc, error) {
		var args struct {
			IDVars    []string `mapstructure:"id_vars"`
			ValueVars []string `mapstructure:"value_vars"`
			VarName   string   `mapstructure:"var_name"`
			ValueName string   `mapstructure:"value_name"`
		}
		if err := decode("melt", p, &args); err != nil {
			return nil, err
		}
		return Melt(args.IDVars, args.ValueVars, args.VarName, args.ValueName), nil
	},
	"resample": func(p map[string]any) (pipeline.TransformFunc, error) {
		var args struct {
			Column string
			Every  time.Duration
			Aggs   []aggArgs
		}
		if err := decode("resample", p, &args); err != nil {
			return nil, err
		}
		if args.Column == "" || len(args.Aggs) == 0 {
			return nil, configError("resample", p, "needs column and aggs")
		}
		if args.Every <= 0 {
			return nil, configError("resample.every", p["every"], "must be a positive duration").
				WithHint(`use a Go duration such as "1h" or "24h"`)
		}
		specs, err := aggSpecs("resample", args.Aggs)
		if err != nil {
			return nil, err
		}
		return Resample(args.Column, args.Every, specs...), nil
	},
	"rolling": func(p map[string]any) (pipeline.TransformFunc, error) {
		var args struct {
			Window int
			Column string
			Func   string
			As     string
		}
		if err := decode("rolling", p, &args); err != nil {
			return nil, err
		}
		if args.Window <= 0 {
			return nil, configError("rolling.window", args.Window, "must be positive")
		}
		if args.Column == "" {
			return nil, configError("rolling.column", "", "cannot be empty")
		}
		specs, err := aggSpecs("rolling", []aggArgs{{Column: args.Column, Func: args.Func, As: args.As}})
		if err != nil {
			return nil, err
		}
		return Rolling(args.Window, specs[0]), nil
	},
}

type aggArgs struct {
	Column string
	Func   string
	As     string
}

func aggSpecs(kind string, args []aggArgs) ([]table.AggSpec, error) {
	specs := make([]table.AggSpec, len(args))
	for i, a := range args {
		fn, err := table.ParseAggFunc(a.Func)
		if err != nil {
			return nil, configError(kind+".func", a.Func, err.Error())
		}
		specs[i] = table.AggSpec{Column: a.Column, Func: fn, As: a.As}
	}
	return specs, nil
}

// Register adds or replaces a named transform factory. It is not safe to
// call concurrently with Build.
func Register(kind string, f Factory) {
	factories[strings.ToLower(kind)] = f
}

// Kinds returns the registered transform kinds in sorted order.
func Kinds() []string {
	kinds := make([]string, 0, len(factories))
	for k := range factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Build creates a transform of the named kind from params such as those
// read from a pipeline definition. Join and Derive take Go values and have
// no declarative form; register a Factory to expose them.
func Build(kind string, params map[string]any) (pipeline.TransformFunc, error) {
	f, ok := factories[strings.ToLower(kind)]
	if !ok {
		return nil, configError("transform", kind, "unknown transform").
			WithHint("use one of: " + strings.Join(Kinds(), ", "))
	}
	return f(params)
}

func decode(kind string, params map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.TextUnmarshallerHookFunc(),
		),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(params); err != nil {
		return configError(kind, params, err.Error())
	}
	return nil
}

func configError(field string, value any, reason string) *tferrors.ConfigurationError {
	return tferrors.NewConfigurationError("transform", field, value, reason)
}
