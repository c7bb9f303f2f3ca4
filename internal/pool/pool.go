// Package pool exposes the interned constant values — null, both booleans,
// and the small-integer window — as its own component, matching the
// separation between value representation and constant pooling. The
// interning storage itself lives in internal/value, which also needs pooled
// ints for its own arithmetic results; this package re-exports that
// storage under pool-specific names rather than duplicating it.
package pool

import "ratsnake/internal/value"

// Int returns the pooled reference for n when it falls in the small
// integer window, and a fresh value otherwise.
func Int(n int64) value.Value {
	return value.NewInt(n)
}

// True returns the pooled true instance.
func True() value.Value {
	return value.NewBool(true)
}

// False returns the pooled false instance.
func False() value.Value {
	return value.NewBool(false)
}

// Bool returns the pooled instance for b.
func Bool(b bool) value.Value {
	return value.NewBool(b)
}

// Null returns the pooled null singleton.
func Null() value.Value {
	return value.NewNull()
}
