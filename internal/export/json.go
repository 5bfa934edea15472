package export

import (
	"encoding/json"
	"io"
)

// WriteJSON writes the nested form of entries, indented, without HTML escaping.
func WriteJSON(w io.Writer, entries []Entry) error {
	return encodeJSON(w, Unflatten(entries))
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
