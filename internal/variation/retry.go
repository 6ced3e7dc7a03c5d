package variation

// tryGenerate draws up to maxAttempts candidates and returns the first one
// accept approves. When every attempt is rejected it returns the last
// candidate with ok=false, so callers always make progress.
func tryGenerate[T any](maxAttempts int, candidate func() T, accept func(T) bool) (v T, ok bool) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	for range maxAttempts {
		v = candidate()
		if accept(v) {
			return v, true
		}
	}
	return v, false
}
