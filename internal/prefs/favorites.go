package prefs

import "strings"

// ToggleFavorite adds community to favs, or removes it if already present.
// Comparison ignores case. The input slice is not modified.
func ToggleFavorite(favs []string, community string) []string {
	community = strings.TrimSpace(community)
	if community == "" {
		return favs
	}
	out := make([]string, 0, len(favs)+1)
	removed := false
	for _, f := range favs {
		if strings.EqualFold(f, community) {
			removed = true
			continue
		}
		out = append(out, f)
	}
	if !removed {
		out = append(out, community)
	}
	return out
}

// IsFavorite reports whether community is in favs, ignoring case.
func IsFavorite(favs []string, community string) bool {
	for _, f := range favs {
		if strings.EqualFold(f, community) {
			return true
		}
	}
	return false
}
