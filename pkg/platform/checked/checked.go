// Package checked provides overflow-safe unsigned arithmetic for fee and
// counter accounting. Callers must abort the whole operation when ok is
// false; a wrapped counter silently corrupts fee conservation.
package checked

// AddUint64 returns a+b and whether the sum fit without wrapping.
func AddUint64(a, b uint64) (uint64, bool) {
	sum := a + b
	if sum < a {
		return 0, false
	}
	return sum, true
}

// SubUint64 returns a-b and whether the difference is non-negative.
func SubUint64(a, b uint64) (uint64, bool) {
	if b > a {
		return 0, false
	}
	return a - b, true
}
