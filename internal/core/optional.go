package core

// Optional carries a value together with whether it was supplied at all.
// A present zero value is distinct from an absent one.
type Optional[T any] struct {
	value   T
	present bool
}

// Some returns a present value.
func Some[T any](value T) Optional[T] {
	return Optional[T]{value: value, present: true}
}

// None returns an absent value.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.present
}

// Present reports whether a value was supplied.
func (o Optional[T]) Present() bool {
	return o.present
}

// Or returns the value when present and fallback otherwise.
func (o Optional[T]) Or(fallback T) T {
	if o.present {
		return o.value
	}
	return fallback
}
