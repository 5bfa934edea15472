// Package textscan holds the low-level text helpers shared by the record
// extractor and the visit-report metric extractor.
package textscan

import (
	"bytes"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// Decode turns uploaded bytes into NFC-normalised UTF-8 text. Byte order
// marks select UTF-8 or UTF-16; other input that is not valid UTF-8 is read
// as Windows-1252, the encoding of forms saved by older word processors.
func Decode(b []byte) string {
	switch {
	case bytes.HasPrefix(b, bomUTF8), bytes.HasPrefix(b, bomUTF16LE), bytes.HasPrefix(b, bomUTF16BE):
		if out, _, err := transform.Bytes(xunicode.BOMOverride(xunicode.UTF8.NewDecoder()), b); err == nil {
			b = out
		}
	case !utf8.Valid(b):
		if out, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), b); err == nil {
			b = out
		}
	}
	return norm.NFC.String(string(b))
}

// FoldAccents removes combining marks, so "Éloïse" becomes "Eloise".
func FoldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
