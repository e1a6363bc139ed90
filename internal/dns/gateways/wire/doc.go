// Package wire encodes and decodes the subset of the RFC 1035 message format
// served by zonefwd: the 12-byte header and its flag bits, length-prefixed
// labels with compression pointers, single-question queries and A records.
//
// Every function is pure. Malformed input is reported as domain.ErrFormat and
// never panics, so callers can hand it untrusted datagrams directly.
package wire
