package catalog

// Dedupe returns xs without repeated values, keeping the first occurrence of
// each value in input order. The input is not modified.
func Dedupe[T comparable](xs []T) []T {
	return DedupeBy(xs, func(x T) T { return x })
}

// DedupeBy is like Dedupe but compares elements by key(x).
func DedupeBy[T any, K comparable](xs []T, key func(T) K) []T {
	if xs == nil {
		return nil
	}

	seen := make(map[K]struct{}, len(xs))
	out := make([]T, 0, len(xs))
	for _, x := range xs {
		k := key(x)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, x)
	}
	return out
}
