package files

import (
	"fmt"
	"path/filepath"
	"strings"
)

// splitName separates a display name into stem and extension.
func splitName(name string) (string, string) {
	ext := filepath.Ext(name)
	if ext == name {
		return name, ""
	}
	return strings.TrimSuffix(name, ext), ext
}

// uniqueName returns name, or "stem (n).ext" with the smallest n >= 1 not
// present in taken.
func uniqueName(name string, taken []string) string {
	set := make(map[string]struct{}, len(taken))
	for _, t := range taken {
		set[t] = struct{}{}
	}
	if _, ok := set[name]; !ok {
		return name
	}
	stem, ext := splitName(name)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, n, ext)
		if _, ok := set[candidate]; !ok {
			return candidate
		}
	}
}
