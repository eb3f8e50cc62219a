package services

import "strings"

// Canonicalize turns a raw product URL into the cross-source join key:
// lower-cased, cut at the first '?' or '#', without a leading "https://"
// or "www.", and without a single trailing '/'. The result is not escaped.
// An empty input yields an empty key, which the merge engine drops.
func Canonicalize(rawURL string) string {
	u := strings.ToLower(rawURL)

	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	u = strings.TrimPrefix(u, "https://")
	u = strings.TrimPrefix(u, "www.")
	u = strings.TrimSuffix(u, "/")

	return u
}

// DerivedKey is the filesystem- and column-safe form of a canonical URL,
// with every '/' replaced by '_'.
func DerivedKey(canonical string) string {
	return strings.ReplaceAll(canonical, "/", "_")
}
