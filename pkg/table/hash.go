package table

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
)

// hasher fingerprints row tuples with xxhash. Fingerprints only bucket rows;
// callers confirm matches with rowsEqual.
type hasher struct {
	d   *xxhash.Digest
	buf [8]byte
}

func newHasher() *hasher {
	return &hasher{d: xxhash.New()}
}

func (h *hasher) row(cols []*Column, i int) uint64 {
	h.d.Reset()
	for _, c := range cols {
		h.value(c, i)
	}
	return h.d.Sum64()
}

func (h *hasher) value(c *Column, i int) {
	if c.IsNull(i) {
		h.d.Write([]byte{0})
		return
	}
	h.d.Write([]byte{1})
	switch c.typ {
	case Integer:
		h.uint(uint64(c.ints[i]))
	case Float:
		f := c.floats[i]
		if f == 0 {
			f = 0
		}
		h.uint(math.Float64bits(f))
	case Text, Categorical:
		h.uint(uint64(len(c.strs[i])))
		h.d.WriteString(c.strs[i])
	case Boolean:
		if c.bools[i] {
			h.d.Write([]byte{1})
		} else {
			h.d.Write([]byte{0})
		}
	case Timestamp:
		h.uint(uint64(c.times[i].UnixNano()))
	}
}

func (h *hasher) uint(v uint64) {
	binary.LittleEndian.PutUint64(h.buf[:], v)
	h.d.Write(h.buf[:])
}

func rowsEqual(a []*Column, i int, b []*Column, j int) bool {
	for k := range a {
		if !a[k].equalAt(i, b[k], j) {
			return false
		}
	}
	return true
}

// Duplicated marks every row whose values on cols equal an earlier row.
// The first occurrence is never marked. With no cols every column is
// compared. Nulls compare equal to nulls.
func (t *Table) Duplicated(cols ...string) ([]bool, error) {
	sel, err := t.columns(cols)
	if err != nil {
		return nil, err
	}
	dup := make([]bool, t.rows)
	h := newHasher()
	buckets := make(map[uint64][]int, t.rows)
	for i := 0; i < t.rows; i++ {
		fp := h.row(sel, i)
		seen := false
		for _, j := range buckets[fp] {
			if rowsEqual(sel, j, sel, i) {
				seen = true
				break
			}
		}
		if seen {
			dup[i] = true
			continue
		}
		buckets[fp] = append(buckets[fp], i)
	}
	return dup, nil
}

// CountDuplicates returns the number of rows marked by Duplicated.
func (t *Table) CountDuplicates(cols ...string) (int, error) {
	dup, err := t.Duplicated(cols...)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, d := range dup {
		if d {
			n++
		}
	}
	return n, nil
}
