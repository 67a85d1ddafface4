package table

import (
	"fmt"
	"strings"
)

// JoinKind selects which unmatched rows a join keeps.
type JoinKind uint8

const (
	InnerJoin JoinKind = iota
	LeftJoin
)

func (k JoinKind) String() string {
	if k == LeftJoin {
		return "left"
	}
	return "inner"
}

// ParseJoinKind accepts "inner" and "left".
func ParseJoinKind(s string) (JoinKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "inner":
		return InnerJoin, nil
	case "left":
		return LeftJoin, nil
	}
	return InnerJoin, fmt.Errorf("table: unknown join kind %q", s)
}

// RightSuffix is appended to right-hand column names that collide with a
// left-hand column.
const RightSuffix = "_right"

// Join matches rows of t and right on equal key values. Output rows follow
// the left table's order, then the right table's order within a key. The
// result holds every left column followed by the right non-key columns.
// Null keys never match.
func (t *Table) Join(right *Table, on []string, kind JoinKind) (*Table, error) {
	if right == nil {
		return nil, fmt.Errorf("table: join with nil table")
	}
	if len(on) == 0 {
		return nil, fmt.Errorf("table: join needs at least one key column")
	}
	lk, err := t.columns(on)
	if err != nil {
		return nil, fmt.Errorf("left: %w", err)
	}
	rk, err := right.columns(on)
	if err != nil {
		return nil, fmt.Errorf("right: %w", err)
	}
	for i := range lk {
		if !sameStorage(lk[i].typ, rk[i].typ) {
			return nil, fmt.Errorf("%w: join key %q is %s on the left and %s on the right",
				ErrTypeMismatch, on[i], lk[i].typ, rk[i].typ)
		}
	}

	h := newHasher()
	index := make(map[uint64][]int, right.rows)
	for j := 0; j < right.rows; j++ {
		if anyNull(rk, j) {
			continue
		}
		fp := h.row(rk, j)
		index[fp] = append(index[fp], j)
	}

	var leftIdx, rightIdx []int
	for i := 0; i < t.rows; i++ {
		matched := false
		if !anyNull(lk, i) {
			for _, j := range index[h.row(lk, i)] {
				if rowsEqual(lk, i, rk, j) {
					leftIdx = append(leftIdx, i)
					rightIdx = append(rightIdx, j)
					matched = true
				}
			}
		}
		if !matched && kind == LeftJoin {
			leftIdx = append(leftIdx, i)
			rightIdx = append(rightIdx, -1)
		}
	}

	cols := make([]*Column, 0, len(t.cols)+len(right.cols))
	for _, c := range t.cols {
		cols = append(cols, c.take(leftIdx))
	}
	keys := make(map[string]struct{}, len(on))
	for _, k := range on {
		keys[k] = struct{}{}
	}
	for _, c := range right.cols {
		if _, isKey := keys[c.name]; isKey {
			continue
		}
		rc := c.take(rightIdx)
		if t.HasColumn(rc.name) {
			rc.name += RightSuffix
		}
		cols = append(cols, rc)
	}
	return New(cols...)
}

func anyNull(cols []*Column, i int) bool {
	for _, c := range cols {
		if c.IsNull(i) {
			return true
		}
	}
	return false
}
