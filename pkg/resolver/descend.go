package resolver

// Descend walks a read-only tree one key per level.
//
// branch reports whether a node can be descended into. Any other node is the
// result, even when keys remain. lookup finds the child for a key. When keys
// run out on a branch, the child named fallback is the result.
func Descend[T any](node T, keys []string, fallback string, branch func(T) bool, lookup func(T, string) (T, bool)) (T, bool) {
	for branch(node) {
		key := fallback
		last := len(keys) == 0
		if !last {
			key, keys = keys[0], keys[1:]
		}
		next, ok := lookup(node, key)
		if !ok {
			var zero T
			return zero, false
		}
		if last {
			return next, true
		}
		node = next
	}
	return node, true
}
