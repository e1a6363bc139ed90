package utils

import "strings"

// JoinLabels joins wire labels into a canonical dotted name.
func JoinLabels(labels []string) string {
	return CanonicalDNSName(strings.Join(labels, "."))
}

// SplitLabels splits a dotted name into labels, dropping empty segments
// produced by leading, trailing or doubled dots.
func SplitLabels(name string) []string {
	parts := strings.Split(strings.TrimSpace(name), ".")
	labels := parts[:0]
	for _, p := range parts {
		if p != "" {
			labels = append(labels, p)
		}
	}
	return labels
}
