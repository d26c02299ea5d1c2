// Package encoding converts VRML input text to UTF-8.
package encoding

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// Auto selects charset detection in DecodeWith.
const Auto = "auto"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode converts file content to a UTF-8 string. Valid UTF-8 (with or
// without a byte order mark) is returned as is; anything else is read as
// Windows-1252, which older exporters write for the Latin-1 range.
// Returns the original bytes as a string if conversion fails.
func Decode(data []byte) string {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data)
	}
	result, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), data)
	if err != nil {
		return string(data)
	}
	return string(result)
}

// DecodeWith converts data from the named charset. An empty name or Auto
// falls back to Decode.
func DecodeWith(data []byte, charset string) (string, error) {
	if charset == "" || strings.EqualFold(charset, Auto) {
		return Decode(data), nil
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return "", fmt.Errorf("unknown charset %q: %w", charset, err)
	}
	result, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", charset, err)
	}
	return string(bytes.TrimPrefix(result, utf8BOM)), nil
}
