// Package quality computes data-quality reports for tables: per-column
// completeness, duplicate rows and the distribution of declared column
// types. A report can also act as a pipeline validation gate through Gate.
package quality
