// Package number holds small numeric helpers shared by the recorder state.
package number

// Number is the set of types Increase can step.
type Number interface {
	~int | ~int64 | ~float64
}

// Increase returns a function adding step to its argument. The recorder uses
// Increase(1) to count captured chunks and Increase(0.1) for playback ticks.
func Increase[T Number](step T) func(T) T {
	return func(current T) T {
		return current + step
	}
}
