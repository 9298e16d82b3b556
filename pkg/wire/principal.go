package wire

import (
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"strings"
)

var principalEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// String renders p textually: base32 of a big-endian CRC32 checksum followed
// by the raw bytes, lowercased and grouped in fives with dashes.
func (p Principal) String() string {
	buf := make([]byte, 4, 4+len(p))
	binary.BigEndian.PutUint32(buf, crc32.ChecksumIEEE(p))
	buf = append(buf, p...)

	enc := strings.ToLower(principalEncoding.EncodeToString(buf))
	var sb strings.Builder
	for i := 0; i < len(enc); i += 5 {
		if i > 0 {
			sb.WriteByte('-')
		}
		sb.WriteString(enc[i:min(i+5, len(enc))])
	}
	return sb.String()
}

// ParsePrincipal parses the textual form produced by Principal.String.
func ParsePrincipal(text string) (Principal, error) {
	raw, err := principalEncoding.DecodeString(strings.ToUpper(strings.ReplaceAll(text, "-", "")))
	if err != nil {
		return nil, fmt.Errorf("wire: invalid principal %q: %w", text, err)
	}
	if len(raw) < 4 {
		return nil, fmt.Errorf("wire: invalid principal %q: too short", text)
	}
	p := Principal(raw[4:])
	if binary.BigEndian.Uint32(raw[:4]) != crc32.ChecksumIEEE(p) {
		return nil, fmt.Errorf("wire: invalid principal %q: checksum mismatch", text)
	}
	if p.String() != text {
		return nil, fmt.Errorf("wire: principal %q is not in canonical form", text)
	}
	return p, nil
}
