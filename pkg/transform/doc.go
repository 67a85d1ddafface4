// Package transform provides ready-made pipeline transforms for common
// cleaning and reshaping steps: filtering, projection, renaming, null
// handling, deduplication, casting, text cleanup, sorting, joins,
// aggregation, pivot/melt reshaping, time resampling and rolling windows.
//
// Every constructor returns a pipeline.TransformFunc, so transforms can be
// used directly as stages or combined with Chain:
//
//	clean := transform.Chain(
//		transform.TrimText("city"),
//		transform.DropNulls("customer_id"),
//		transform.Filter("amount", transform.OpGt, 0),
//	)
//	stage := pipeline.NewStage("clean", clean)
//
// Build creates transforms from declarative parameters, as read from a
// pipeline definition file:
//
//	fn, err := transform.Build("filter", map[string]any{
//		"column": "amount", "op": ">", "value": 0,
//	})
package transform
