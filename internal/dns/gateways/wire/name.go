package wire

import (
	"encoding/binary"

	"github.com/quietloop/dnsfwd/internal/dns/domain"
)

// maxPointerDepth bounds the number of compression-pointer hops a single
// name decode may follow, per sec. 4.1.
const maxPointerDepth = 128

// maxNameBytes bounds the total encoded length (label-length bytes plus
// label content, including the terminator) a fully expanded name may have.
const maxNameBytes = 255

// decodeName reads a (possibly pointer-compressed) domain name starting at
// offset and returns its fully expanded labels and the offset immediately
// following the name on the wire (which, for a pointer-terminated name, is
// immediately after the two pointer bytes - not the target).
func decodeName(data []byte, offset int) (domain.Name, int, error) {
	labels, next, _, err := decodeNameDepth(data, offset, 0)
	return labels, next, err
}

func decodeNameDepth(data []byte, offset, depth int) (labels domain.Name, next int, totalBytes int, err error) {
	if depth > maxPointerDepth {
		return nil, 0, 0, domain.NewLoopDetectedError(offset, "pointer chain too deep")
	}
	for {
		if offset >= len(data) {
			return nil, 0, 0, domain.NewTruncatedError(offset, "name truncated before terminator")
		}
		b := data[offset]
		switch b & 0xC0 {
		case 0x00:
			length := int(b & 0x3F)
			offset++
			if length == 0 {
				totalBytes++
				if totalBytes > maxNameBytes {
					return nil, 0, 0, domain.NewLimitExceededError(offset, "name exceeds 255 bytes")
				}
				return labels, offset, totalBytes, nil
			}
			if offset+length > len(data) {
				return nil, 0, 0, domain.NewTruncatedError(offset, "label runs past end of message")
			}
			labels = append(labels, string(data[offset:offset+length]))
			offset += length
			totalBytes += length + 1
			if totalBytes > maxNameBytes {
				return nil, 0, 0, domain.NewLimitExceededError(offset, "name exceeds 255 bytes")
			}
		case 0xC0:
			if offset+1 >= len(data) {
				return nil, 0, 0, domain.NewTruncatedError(offset, "pointer runs past end of message")
			}
			ptr := int(binary.BigEndian.Uint16(data[offset:offset+2]) & 0x3FFF)
			if ptr >= offset {
				return nil, 0, 0, domain.NewBadPointerError(offset, "pointer does not point strictly backwards")
			}
			suffix, _, suffixBytes, err := decodeNameDepth(data, ptr, depth+1)
			if err != nil {
				return nil, 0, 0, err
			}
			labels = append(labels, suffix...)
			totalBytes += suffixBytes
			if totalBytes > maxNameBytes {
				return nil, 0, 0, domain.NewLimitExceededError(offset, "name exceeds 255 bytes")
			}
			return labels, offset + 2, totalBytes, nil
		default:
			return nil, 0, 0, domain.NewBadLabelError(offset, "reserved label length bits")
		}
	}
}

// encodeName writes name in uncompressed wire form: length-prefixed labels
// terminated by a zero-length label. Compliance with on-the-wire
// compression is not required of replies this proxy builds (sec. 4.1).
func encodeName(name domain.Name) []byte {
	var out []byte
	for _, label := range name {
		out = append(out, byte(len(label)))
		out = append(out, label...)
	}
	return append(out, 0)
}
