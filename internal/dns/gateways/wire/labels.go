package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/haukened/zonefwd/internal/dns/domain"
)

const (
	// MaxLabelLen is the longest single label allowed on the wire.
	MaxLabelLen = 63
	// MaxNameLen bounds a whole encoded name, terminator included.
	MaxNameLen = 255

	pointerMask     = 0xC0
	pointerOffset   = 0x3FFF
	maxPointerJumps = 16
)

// EncodeLabels writes one length-prefixed entry per label followed by a zero
// length byte. An empty slice encodes the root name.
func EncodeLabels(labels []string) ([]byte, error) {
	var buf bytes.Buffer
	for _, label := range labels {
		if len(label) == 0 {
			return nil, fmt.Errorf("%w: empty label", domain.ErrFormat)
		}
		if len(label) > MaxLabelLen {
			return nil, fmt.Errorf("%w: label too long: %s", domain.ErrFormat, label)
		}
		buf.WriteByte(byte(len(label)))
		buf.WriteString(label)
	}
	buf.WriteByte(0)
	if buf.Len() > MaxNameLen {
		return nil, fmt.Errorf("%w: name of %d bytes exceeds %d", domain.ErrFormat, buf.Len(), MaxNameLen)
	}
	return buf.Bytes(), nil
}

// DecodeQuestion walks the question section, which starts at offset 0 of
// section. It returns the labels, qtype and qclass and the number of bytes
// consumed. qclass defaults to IN when the class bytes are missing.
//
// On truncated input the labels parsed so far are returned alongside an
// ErrFormat. Compression pointers are not accepted in a query question.
func DecodeQuestion(section []byte) ([]string, domain.RRType, domain.RRClass, int, error) {
	var labels []string
	pos := 0
	for {
		if pos >= len(section) {
			return labels, 0, 0, pos, fmt.Errorf("%w: question name is not terminated", domain.ErrFormat)
		}
		length := int(section[pos])
		if length == 0 {
			pos++
			break
		}
		if length&pointerMask != 0 {
			return labels, 0, 0, pos, fmt.Errorf("%w: compressed or extended label in question at offset %d", domain.ErrFormat, pos)
		}
		if pos+1+length > len(section) {
			return labels, 0, 0, pos, fmt.Errorf("%w: label of %d bytes exceeds remaining %d", domain.ErrFormat, length, len(section)-pos-1)
		}
		label := section[pos+1 : pos+1+length]
		if bytes.IndexByte(label, 0) >= 0 {
			return labels, 0, 0, pos, fmt.Errorf("%w: label contains NUL byte", domain.ErrFormat)
		}
		if bytes.IndexByte(label, '.') >= 0 {
			return labels, 0, 0, pos, fmt.Errorf("%w: label contains '.'", domain.ErrFormat)
		}
		if pos+1+length+1 > MaxNameLen {
			return labels, 0, 0, pos, fmt.Errorf("%w: question name exceeds %d bytes", domain.ErrFormat, MaxNameLen)
		}
		labels = append(labels, string(label))
		pos += 1 + length
	}

	if pos+2 > len(section) {
		return labels, 0, 0, pos, fmt.Errorf("%w: question has no qtype", domain.ErrFormat)
	}
	qtype := domain.RRType(binary.BigEndian.Uint16(section[pos : pos+2]))
	pos += 2

	qclass := domain.RRClassIN
	if pos+2 <= len(section) {
		qclass = domain.RRClass(binary.BigEndian.Uint16(section[pos : pos+2]))
		pos += 2
	}
	return labels, qtype, qclass, pos, nil
}

// DecodeNameAt decodes the name starting at offset within the full message
// msg, following compression pointers. It returns the labels and the number of
// bytes the name occupies at offset (a pointer counts as two bytes and ends
// the name).
//
// Pointers must point strictly backwards, may not revisit an offset and may
// be followed at most 16 times.
func DecodeNameAt(msg []byte, offset int) ([]string, int, error) {
	var (
		labels   []string
		visited  []int
		pos      = offset
		consumed = -1
		wireLen  = 1
	)
	for {
		if pos < 0 || pos >= len(msg) {
			return nil, 0, fmt.Errorf("%w: name at offset %d runs past end of message", domain.ErrFormat, pos)
		}
		length := int(msg[pos])
		switch length & pointerMask {
		case 0x00:
			if length == 0 {
				if consumed < 0 {
					consumed = pos + 1 - offset
				}
				return labels, consumed, nil
			}
			if pos+1+length > len(msg) {
				return nil, 0, fmt.Errorf("%w: label length out of bounds at offset %d", domain.ErrFormat, pos)
			}
			wireLen += 1 + length
			if wireLen > MaxNameLen {
				return nil, 0, fmt.Errorf("%w: name exceeds %d bytes", domain.ErrFormat, MaxNameLen)
			}
			labels = append(labels, string(msg[pos+1:pos+1+length]))
			pos += 1 + length
		case pointerMask:
			if pos+1 >= len(msg) {
				return nil, 0, fmt.Errorf("%w: compression pointer out of bounds at offset %d", domain.ErrFormat, pos)
			}
			target := int(binary.BigEndian.Uint16(msg[pos:pos+2]) & pointerOffset)
			if consumed < 0 {
				consumed = pos + 2 - offset
			}
			if target >= pos {
				return nil, 0, fmt.Errorf("%w: compression pointer at %d does not point backwards", domain.ErrFormat, pos)
			}
			if len(visited) >= maxPointerJumps {
				return nil, 0, fmt.Errorf("%w: too many compression pointers", domain.ErrFormat)
			}
			for _, v := range visited {
				if v == target {
					return nil, 0, fmt.Errorf("%w: compression pointer loop at offset %d", domain.ErrFormat, target)
				}
			}
			visited = append(visited, target)
			pos = target
		default:
			return nil, 0, fmt.Errorf("%w: unsupported label type 0x%02x at offset %d", domain.ErrFormat, length&pointerMask, pos)
		}
	}
}
