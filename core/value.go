package core

import "time"

// Value is a configuration field with an explicit unset state. The zero
// Value is unset, so zero configuration records are valid defaults.
type Value[T any] struct {
	v   T
	set bool
}

// Common field types.
type (
	Flag = Value[bool]
	Num  = Value[int]
	Size = Value[int64]
	Msec = Value[time.Duration]
	Text = Value[string]
)

// Of returns a set Value holding v.
func Of[T any](v T) Value[T] {
	return Value[T]{v: v, set: true}
}

// Set stores v. It fails with ErrDuplicate when the field was already set.
func (x *Value[T]) Set(v T) error {
	if x.set {
		return ErrDuplicate
	}
	x.v = v
	x.set = true
	return nil
}

func (x Value[T]) IsSet() bool {
	return x.set
}

// Get returns the stored value, or the zero T when unset.
func (x Value[T]) Get() T {
	return x.v
}

func (x Value[T]) Lookup() (T, bool) {
	return x.v, x.set
}

func (x Value[T]) GetOr(def T) T {
	if x.set {
		return x.v
	}
	return def
}

// Inherit copies prev into x when x is unset and prev is set.
func (x *Value[T]) Inherit(prev Value[T]) {
	if !x.set && prev.set {
		*x = prev
	}
}

// Merge fills an unset x from prev, or from def when prev is unset too.
// A set x is never changed.
func (x *Value[T]) Merge(prev Value[T], def T) {
	if x.set {
		return
	}
	if prev.set {
		*x = prev
		return
	}
	x.v = def
	x.set = true
}
