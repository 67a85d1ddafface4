package table_test

import (
	"fmt"

	"github.com/vnykmshr/tabflow/pkg/table"
)

// Example builds a small table and derives a summary from it.
func Example() {
	sales := table.MustNew(
		table.MustColumn("region", table.Categorical, "north", "south", "north"),
		table.MustColumn("amount", table.Float, 120.0, 80.0, nil),
	)

	clean, _ := sales.FillNulls("amount", 0.0)
	summary, _ := clean.GroupBy("region").Agg(table.Sum("amount").Named("total"))

	for i := 0; i < summary.NumRows(); i++ {
		row := summary.Row(i)
		region, _ := row.String("region")
		total, _ := row.Float("total")
		fmt.Printf("%s: %.1f\n", region, total)
	}

	// Output:
	// north: 120.0
	// south: 80.0
}

// Example_join shows a left join keeping unmatched rows.
func Example_join() {
	orders := table.MustNew(
		table.MustColumn("customer", table.Integer, 1, 2),
		table.MustColumn("amount", table.Float, 10.0, 20.0),
	)
	customers := table.MustNew(
		table.MustColumn("customer", table.Integer, 1),
		table.MustColumn("name", table.Text, "ana"),
	)

	joined, _ := orders.Join(customers, []string{"customer"}, table.LeftJoin)
	fmt.Println(joined)
	name, _ := joined.Column("name")
	fmt.Println(name.Values())

	// Output:
	// Table(2 rows x 3 columns) [customer:integer, amount:float, name:text]
	// [ana <nil>]
}
