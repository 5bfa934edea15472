package export

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// maxSheetName is the Excel limit on worksheet name length.
const maxSheetName = 31

// WriteXLSX writes one worksheet per category with a bold, frozen header row.
func WriteXLSX(w io.Writer, entries []Entry) error {
	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	groups := Groups(entries)
	if len(groups) == 0 {
		groups = []Group{{Category: generalCategory}}
	}

	used := make(map[string]bool, len(groups))
	var names []string
	for _, g := range groups {
		name := sheetName(g.Category, used)
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
		if err := writeSheet(f, name, g, header); err != nil {
			return fmt.Errorf("sheet %s: %w", name, err)
		}
		names = append(names, name)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to delete default sheet: %w", err)
	}
	if idx, err := f.GetSheetIndex(names[0]); err == nil && idx >= 0 {
		f.SetActiveSheet(idx)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, g Group, header int) error {
	if err := setCell(f, sheet, 1, 1, "Champ"); err != nil {
		return err
	}
	if err := setCell(f, sheet, 2, 1, "Valeur"); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", "B1", header); err != nil {
		return err
	}
	for i, r := range g.Rows {
		if err := setCell(f, sheet, 1, i+2, r.Field); err != nil {
			return err
		}
		if err := setCell(f, sheet, 2, i+2, r.Value); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(sheet, "A", "A", 30); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "B", "B", 80); err != nil {
		return err
	}
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func setCell(f *excelize.File, sheet string, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheet, cell, value)
}

// sheetName cuts category to the Excel limit and disambiguates collisions.
func sheetName(category string, used map[string]bool) string {
	name := truncate(category, maxSheetName)
	for n := 2; used[name]; n++ {
		suffix := fmt.Sprintf("~%d", n)
		name = truncate(category, maxSheetName-len(suffix)) + suffix
	}
	used[name] = true
	return name
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
