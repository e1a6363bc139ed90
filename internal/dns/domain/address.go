package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseDottedQuad parses exactly four dot-separated decimal integers in
// 0-255. Anything else, including leading signs or empty octets, is ErrValue.
func ParseDottedQuad(s string) ([4]byte, error) {
	var out [4]byte
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return out, fmt.Errorf("%w: %q has %d octets", ErrValue, s, len(parts))
	}
	for i, p := range parts {
		if p == "" || len(p) > 3 || strings.TrimLeft(p, "0123456789") != "" {
			return out, fmt.Errorf("%w: %q octet %d is not a number", ErrValue, s, i+1)
		}
		n, err := strconv.Atoi(p)
		if err != nil || n > 255 {
			return out, fmt.Errorf("%w: %q octet %d out of range", ErrValue, s, i+1)
		}
		out[i] = byte(n)
	}
	return out, nil
}

// FormatDottedQuad joins four raw octets with dots.
func FormatDottedQuad(b [4]byte) string {
	return fmt.Sprintf("%d.%d.%d.%d", b[0], b[1], b[2], b[3])
}
