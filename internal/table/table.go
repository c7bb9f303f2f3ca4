// Package table implements the open-chaining string-keyed hash map shared
// by the global variable table and the function directory: a bucket array
// of linked entries, not Go's builtin map, so the resize/collision behavior
// can be driven and inspected directly.
package table

// entry is one link in a bucket's chain.
type entry struct {
	key   string
	value any
	next  *entry
}

// resizeTolerance is the load factor past which Set doubles the bucket
// array before inserting.
const resizeTolerance = 0.85

// seed is the polynomial hash's starting accumulator.
const seed = 4123

// Table is a fixed-seed polynomial-hash chained map.
type Table struct {
	buckets []*entry
	length  int
}

// New returns a Table with the given initial bucket count. capacity must be
// at least 1.
func New(capacity int) *Table {
	if capacity < 1 {
		capacity = 1
	}
	return &Table{buckets: make([]*entry, capacity)}
}

// hash computes `hash = hash*33 + c` seeded at 4123, matching the original
// `(hash << 5) + hash + c` accumulator, then reduces mod capacity.
func hash(key string, capacity int) int {
	h := uint64(seed)
	for i := 0; i < len(key); i++ {
		h = (h << 5) + h + uint64(key[i])
	}
	return int(h % uint64(capacity))
}

// Len reports the number of entries currently stored.
func (t *Table) Len() int { return t.length }

// Cap reports the current bucket array size.
func (t *Table) Cap() int { return len(t.buckets) }

// Set inserts or replaces the value for key, resizing first if the load
// factor would exceed resizeTolerance.
func (t *Table) Set(key string, value any) {
	if float64(t.length+1)/float64(len(t.buckets)) > resizeTolerance {
		t.resize()
	}
	idx := hash(key, len(t.buckets))
	for e := t.buckets[idx]; e != nil; e = e.next {
		if e.key == key {
			e.value = value
			return
		}
	}
	t.buckets[idx] = &entry{key: key, value: value, next: t.buckets[idx]}
	t.length++
}

// Get looks up key and reports whether it was present.
func (t *Table) Get(key string) (any, bool) {
	idx := hash(key, len(t.buckets))
	for e := t.buckets[idx]; e != nil; e = e.next {
		if e.key == key {
			return e.value, true
		}
	}
	return nil, false
}

// Delete removes key if present, reporting whether it was found.
func (t *Table) Delete(key string) bool {
	idx := hash(key, len(t.buckets))
	var prev *entry
	for e := t.buckets[idx]; e != nil; e = e.next {
		if e.key == key {
			if prev != nil {
				prev.next = e.next
			} else {
				t.buckets[idx] = e.next
			}
			t.length--
			return true
		}
		prev = e
	}
	return false
}

// resize doubles the bucket array and rehashes every entry into it.
func (t *Table) resize() {
	old := t.buckets
	t.buckets = make([]*entry, len(old)*2)
	t.length = 0
	for _, head := range old {
		for e := head; e != nil; e = e.next {
			t.Set(e.key, e.value)
		}
	}
}

// Keys returns every key currently stored, in unspecified order.
func (t *Table) Keys() []string {
	keys := make([]string, 0, t.length)
	for _, head := range t.buckets {
		for e := head; e != nil; e = e.next {
			keys = append(keys, e.key)
		}
	}
	return keys
}
