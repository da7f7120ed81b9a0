//go:build !linux && !darwin

package guard

// Detection is not implemented here; FromSystem falls back to
// DefaultBudgetBytes.
func totalSystemMemory() (uint64, bool) {
	return 0, false
}
