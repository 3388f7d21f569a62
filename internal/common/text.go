package common

// TruncateRunes shortens s to at most n runes, marking the cut with an
// ellipsis. Counting runes rather than bytes keeps multi-byte text
// valid UTF-8.
func TruncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
