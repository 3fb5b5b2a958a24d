package value

import "sync/atomic"

var tableIDs atomic.Uint64

// Table is the hybrid array+hash container every Lua aggregate value
// is built from. The array part holds the contiguous 1-based integer
// keys [1..len(array)]; everything else (including integer keys with
// gaps before them) lives in the hash part. nil is never stored:
// setting a key to nil removes it.
type Table struct {
	id        uint64
	array     []Value
	hash      map[Value]Value
	Metatable *Table
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{id: tableIDs.Add(1)}
}

// ID returns a stable identity tag, used for identity equality when
// the pointer itself isn't convenient (e.g. deterministic trace
// output across runs).
func (t *Table) ID() uint64 { return t.id }

func normalizeKey(key Value) Value {
	// Integral floats key exactly like their int64 counterpart (Lua's
	// "1.0" and "1" are the same table key).
	if f, ok := key.(float64); ok {
		if i, ok := ToInt(f); ok {
			return i
		}
	}
	return key
}

// Get performs a raw (metamethod-free) lookup.
func (t *Table) Get(key Value) Value {
	key = normalizeKey(key)
	if i, ok := key.(int64); ok && i >= 1 && int(i) <= len(t.array) {
		return t.array[i-1]
	}
	if t.hash == nil {
		return nil
	}
	return t.hash[key]
}

// Set performs a raw (metamethod-free) store. Setting a key to nil
// removes it; storing into the array part may trigger hash-to-array
// migration when a gap is closed by the new write.
func (t *Table) Set(key, val Value) {
	key = normalizeKey(key)
	if i, ok := key.(int64); ok && i >= 1 {
		idx := int(i)
		switch {
		case idx <= len(t.array):
			if val != nil {
				t.array[idx-1] = val
				return
			}
			// Removing key idx ends the contiguous run: keys after it
			// move to the hash part.
			for j := idx; j < len(t.array); j++ {
				if t.hash == nil {
					t.hash = make(map[Value]Value)
				}
				t.hash[int64(j+1)] = t.array[j]
			}
			t.array = t.array[:idx-1]
			t.shrinkFromHash()
			return
		case idx == len(t.array)+1 && val != nil:
			t.array = append(t.array, val)
			t.absorbFromHash()
			return
		}
	}
	if val == nil {
		if t.hash != nil {
			delete(t.hash, key)
		}
		return
	}
	if t.hash == nil {
		t.hash = make(map[Value]Value)
	}
	t.hash[key] = val
}

// absorbFromHash pulls any now-contiguous integer keys out of the hash
// part and into the array part after an append closed a gap.
func (t *Table) absorbFromHash() {
	for {
		next := int64(len(t.array) + 1)
		v, ok := t.hash[next]
		if !ok {
			return
		}
		t.array = append(t.array, v)
		delete(t.hash, next)
	}
}

// shrinkFromHash is a no-op hook kept for symmetry with
// absorbFromHash: Set truncates the array part at the removed key, so
// the array part never holds nil and its length is already a valid
// border.
func (t *Table) shrinkFromHash() {}

// Append implements TABLE_APPEND: push val as the next array element,
// equivalent to Set(Len()+1, val).
func (t *Table) Append(val Value) {
	t.Set(int64(len(t.array)+1), val)
}

// Extend implements TABLE_EXTEND: append every element of list in
// order.
func (t *Table) Extend(list List) {
	for _, v := range list {
		t.Append(v)
	}
}

// Len implements the # operator: the length of the array part. This
// fixes the "any border is valid" ambiguity in the Lua standard to a
// specific, testable convention: the array part's length, full stop.
func (t *Table) Len() int64 {
	return int64(len(t.array))
}

// Remove deletes a key, like Set(key, nil). It does not re-shift the
// array part; the stdlib's table.remove/table.insert rewrite the array
// part with SetArrayPart instead.
func (t *Table) Remove(key Value) {
	t.Set(key, nil)
}

// ArrayPart exposes the contiguous array slice for table.* library
// functions (insert/remove/sort/concat/move) that operate on ranges.
// Callers must not retain the slice across further Table mutation.
func (t *Table) ArrayPart() []Value { return t.array }

// SetArrayPart replaces the array part wholesale (used by table.sort
// and table.insert/remove after they've computed the new contents).
func (t *Table) SetArrayPart(vs []Value) { t.array = vs }

// HashKeys returns the set of non-array keys, for pairs()-style
// iteration in the stdlib.
func (t *Table) HashKeys() []Value {
	keys := make([]Value, 0, len(t.hash))
	for k := range t.hash {
		keys = append(keys, k)
	}
	return keys
}
