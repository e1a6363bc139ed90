package utils

import "golang.org/x/net/publicsuffix"

// IsPublicSuffix reports whether name is itself a public suffix (for example
// "com" or "co.uk"), which no zone of ours should claim to be authoritative for.
func IsPublicSuffix(name string) bool {
	name = CanonicalDNSName(name)
	if name == "" {
		return false
	}
	suffix, icann := publicsuffix.PublicSuffix(name)
	return icann && suffix == name
}
