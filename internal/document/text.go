package document

import (
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DecodePlainText turns raw bytes into UTF-8 text. A UTF-8 or UTF-16 byte order mark
// selects the encoding and is removed; invalid sequences become U+FFFD. Line endings
// are normalized to \n.
func DecodePlainText(data []byte) string {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(dec, data)
	if err != nil {
		out = data
	}
	s := strings.ReplaceAll(string(out), "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.ToValidUTF8(s, "�")
}
