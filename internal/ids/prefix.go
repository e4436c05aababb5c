package ids

import (
	"slices"
	"strings"
)

// UniquePrefixLengths maps each lowercased ID to the length of its shortest
// prefix that no other ID shares. Duplicates and empty IDs are dropped.
func UniquePrefixLengths(ids []string) map[string]int {
	sorted := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.ToLower(id); id != "" {
			sorted = append(sorted, id)
		}
	}
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	// In sorted order an ID shares its longest prefix with a neighbor.
	lengths := make(map[string]int, len(sorted))
	for i, id := range sorted {
		shared := 0
		if i > 0 {
			shared = max(shared, commonPrefix(id, sorted[i-1]))
		}
		if i < len(sorted)-1 {
			shared = max(shared, commonPrefix(id, sorted[i+1]))
		}
		lengths[id] = min(shared+1, len(id))
	}
	return lengths
}

func commonPrefix(a, b string) int {
	n := min(len(a), len(b))
	for i := range n {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}
