package tableio

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/vnykmshr/tabflow/internal/testutil"
	"github.com/vnykmshr/tabflow/pkg/table"
)

func TestDocumentsRoundTrip(t *testing.T) {
	in := fixture(t)
	docs := ToDocuments(in)
	testutil.AssertEqual(t, len(docs), 4)

	// simulate what the driver hands back: bson.D with DateTime values
	decoded := make([]bson.D, len(docs))
	for i, d := range docs {
		raw, err := bson.Marshal(d)
		testutil.AssertNoError(t, err)
		testutil.AssertNoError(t, bson.Unmarshal(raw, &decoded[i]))
	}

	out, err := FromDocuments(decoded, fixtureSchema)
	testutil.AssertNoError(t, err)
	assertSameTable(t, out, in)
}

func TestFromDocumentsInfers(t *testing.T) {
	id := bson.NewObjectID()
	when := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	docs := []bson.D{
		{{Key: "_id", Value: id}, {Key: "sku", Value: "A1"}, {Key: "qty", Value: int32(3)}},
		{{Key: "sku", Value: "B2"}, {Key: "qty", Value: 2.5}, {Key: "at", Value: bson.NewDateTimeFromTime(when)}},
		{{Key: "sku", Value: "C3"}, {Key: "meta", Value: bson.D{{Key: "k", Value: 1}}}},
	}

	out, err := FromDocuments(docs, nil)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, out.Schema().String(), "[sku:text, qty:float, at:timestamp, meta:text]")

	at, _ := out.Column("at")
	ts, _ := at.Time(1)
	testutil.AssertEqual(t, ts.Equal(when), true)

	meta, _ := out.Column("meta")
	testutil.AssertEqual(t, meta.IsNull(2), false)
}

func TestFromDocumentsEmpty(t *testing.T) {
	out, err := FromDocuments(nil, table.Schema{{Name: "a", Type: table.Integer}})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, out.NumRows(), 0)
	testutil.AssertEqual(t, out.NumColumns(), 1)
}
