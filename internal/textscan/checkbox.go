package textscan

import (
	"regexp"
	"strings"
)

var (
	checkboxPattern = regexp.MustCompile(`(☒|☑|☐|\[[xX]\]|\[ \])\s*([^☒☑☐\[\]|:]*)`)
	leadingBox      = regexp.MustCompile(`^(?:-\s*)?(☒|☑|☐|\[[xX ]\])`)
)

// Checkbox is one glyph and the label that follows it.
type Checkbox struct {
	Checked bool
	Label   string
}

// Checkboxes returns every checkbox in s in order of appearance. A label
// runs until the next glyph, pipe, colon or bracket.
func Checkboxes(s string) []Checkbox {
	matches := checkboxPattern.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return nil
	}
	boxes := make([]Checkbox, 0, len(matches))
	for _, m := range matches {
		boxes = append(boxes, Checkbox{
			Checked: isChecked(m[1]),
			Label:   strings.TrimRight(strings.TrimSpace(m[2]), ".,;"),
		})
	}
	return boxes
}

// HasCheckbox reports whether s contains a checkbox glyph.
func HasCheckbox(s string) bool { return checkboxPattern.MatchString(s) }

// StartsWithCheckbox reports whether line opens with a glyph, optionally
// after a "- " list marker.
func StartsWithCheckbox(line string) bool {
	return leadingBox.MatchString(strings.TrimSpace(line))
}

// Checked returns the labels of the checked boxes, skipping empty labels.
func Checked(boxes []Checkbox) []string {
	var labels []string
	for _, b := range boxes {
		if b.Checked && b.Label != "" {
			labels = append(labels, b.Label)
		}
	}
	return labels
}

func isChecked(glyph string) bool {
	switch glyph {
	case "☒", "☑", "[x]", "[X]":
		return true
	}
	return false
}
