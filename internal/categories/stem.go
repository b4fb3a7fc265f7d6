package categories

import "strings"

// Stem lower-cases word and strips one common English suffix.
func Stem(word string) string {
	w := strings.ToLower(word)
	switch {
	case strings.HasSuffix(w, "ing"):
		return w[:len(w)-3]
	case strings.HasSuffix(w, "ed") && len(w) > 3:
		return w[:len(w)-2]
	case strings.HasSuffix(w, "es"):
		return w[:len(w)-2]
	case strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss"):
		return w[:len(w)-1]
	}
	return w
}
