package export

import (
	"encoding/csv"
	"fmt"
	"io"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteCSV writes entries as "=== CATEGORY ===" blocks of Champ,Valeur rows,
// prefixed with a UTF-8 byte order mark so spreadsheet tools detect accents.
func WriteCSV(w io.Writer, entries []Entry) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	for _, g := range Groups(entries) {
		cw.Flush()
		if _, err := fmt.Fprintf(w, "\n=== %s ===\n", g.Category); err != nil {
			return err
		}
		if err := cw.Write([]string{"Champ", "Valeur"}); err != nil {
			return err
		}
		for _, r := range g.Rows {
			if err := cw.Write([]string{r.Field, r.Value}); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
