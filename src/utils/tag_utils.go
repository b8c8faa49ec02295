package utils

import (
	"sort"
	"strings"
)

// CompileTags converts scheme tags of the form "<category>" or
// "<category>/<subcategory>" into a category to subcategory-list map.
// Standalone categories map to an empty list; malformed tags are skipped.
func CompileTags(tags []string) map[string][]string {
	compiled := make(map[string]map[string]bool)
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if category, subcategory, found := strings.Cut(tag, "/"); found {
			category = strings.TrimSpace(category)
			subcategory = strings.TrimSpace(subcategory)
			if category == "" || subcategory == "" {
				continue
			}
			if compiled[category] == nil {
				compiled[category] = make(map[string]bool)
			}
			compiled[category][subcategory] = true
		} else if compiled[tag] == nil {
			compiled[tag] = make(map[string]bool)
		}
	}

	result := make(map[string][]string, len(compiled))
	for category, subs := range compiled {
		sorted := make([]string, 0, len(subs))
		for sub := range subs {
			sorted = append(sorted, sub)
		}
		sort.Strings(sorted)
		result[category] = sorted
	}
	return result
}
