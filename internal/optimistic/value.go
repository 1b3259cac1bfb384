// Package optimistic holds values that can be changed locally ahead of a
// server round-trip and later confirmed or rolled back.
package optimistic

type State int

const (
	Confirmed State = iota
	Pending
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Failed:
		return "failed"
	default:
		return "confirmed"
	}
}

// Value is not safe for concurrent use; owners guard it with their own lock.
type Value[T any] struct {
	current  T
	previous T
	state    State
}

func New[T any](v T) Value[T] {
	return Value[T]{current: v, previous: v, state: Confirmed}
}

func (v *Value[T]) Get() T {
	return v.current
}

func (v *Value[T]) State() State {
	return v.state
}

// Speculate applies a local change. The last confirmed value is kept for
// rollback; stacking speculations keeps the oldest confirmed value.
func (v *Value[T]) Speculate(next T) {
	if v.state != Pending {
		v.previous = v.current
	}
	v.current = next
	v.state = Pending
}

// Confirm accepts an authoritative value and discards any pending change.
func (v *Value[T]) Confirm(authoritative T) {
	v.current = authoritative
	v.previous = authoritative
	v.state = Confirmed
}

// Fail restores the last confirmed value.
func (v *Value[T]) Fail() {
	if v.state == Pending {
		v.current = v.previous
	}
	v.state = Failed
}
