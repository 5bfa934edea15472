package record

import "strings"

var (
	affirmative = map[string]bool{"oui": true, "yes": true, "true": true, "vrai": true}
	negative    = map[string]bool{"non": true, "no": true, "false": true, "faux": true}
)

// YesNo decodes a yes/no token. ok is false when s is not one.
func YesNo(s string) (value, ok bool) {
	t := strings.ToLower(strings.TrimSpace(s))
	if affirmative[t] {
		return true, true
	}
	if negative[t] {
		return false, true
	}
	return false, false
}

// CompositeSeparator joins the choice and detail parts of a composite value.
const CompositeSeparator = " | "

// Composite is the decoded form of a "Oui | detail" value.
type Composite struct {
	HasChoice bool
	Choice    bool
	Detail    string
}

// ParseComposite splits s into its yes/no choice and free-text detail.
// A value without a leading yes/no segment has no choice and keeps s as detail.
func ParseComposite(s string) Composite {
	head, rest, found := strings.Cut(s, "|")
	choice, ok := YesNo(head)
	if !ok {
		return Composite{Detail: strings.TrimSpace(s)}
	}
	c := Composite{HasChoice: true, Choice: choice}
	if found {
		c.Detail = strings.TrimSpace(rest)
	}
	return c
}

// ComposeChoice builds the composite string for a choice and its details.
func ComposeChoice(choice string, details ...string) string {
	parts := make([]string, 0, len(details)+1)
	parts = append(parts, choice)
	for _, d := range details {
		if d = strings.TrimSpace(d); d != "" {
			parts = append(parts, d)
		}
	}
	return strings.Join(parts, CompositeSeparator)
}

// ChoiceLabel returns "Oui" or "Non".
func ChoiceLabel(b bool) string {
	if b {
		return "Oui"
	}
	return "Non"
}
