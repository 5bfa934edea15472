// Package export renders a patient record in the formats clinicians take
// away from an assessment: CSV, XLSX, JSON and a FHIR R5 bundle.
package export

import (
	"sort"
	"strconv"
	"strings"

	"github.com/scaleneo/bilan/internal/dictionary"
	"github.com/scaleneo/bilan/internal/record"
)

// maxIndex bounds the slice length Unflatten will allocate for a numeric key.
const maxIndex = 100000

// Entry is one flattened field: a dot path and its value.
type Entry struct {
	Key   string
	Value record.Value
}

// Flatten lists the fields of rec keyed "<section>.<field>". Sections come in
// order; within a section dictionary fields keep their declaration order and
// fields unknown to the dictionary follow, sorted.
func Flatten(rec *record.Record) []Entry {
	dict := dictionary.Default()
	var out []Entry
	for _, id := range record.AllSections() {
		s := rec.Section(id)
		known := make(map[string]bool, len(s))
		for _, f := range dict.Section(id).Fields() {
			known[f] = true
			if v, ok := s[f]; ok {
				out = append(out, Entry{Key: id.Name() + "." + f, Value: v})
			}
		}
		for _, f := range s.SortedFields() {
			if !known[f] {
				out = append(out, Entry{Key: id.Name() + "." + f, Value: s[f]})
			}
		}
	}
	return out
}

// Unflatten rebuilds the nested structure described by dot-path entries.
// A path segment followed by a numeric segment becomes a slice. Entries that
// would descend into an existing scalar, or index a slice with a name, are
// dropped.
func Unflatten(entries []Entry) map[string]any {
	root := map[string]any{}
	for _, e := range entries {
		if e.Key == "" {
			continue
		}
		insert(root, strings.Split(e.Key, "."), e.Value.Interface())
	}
	return root
}

func insert(cur any, keys []string, value any) any {
	key, last := keys[0], len(keys) == 1
	switch c := cur.(type) {
	case map[string]any:
		if last {
			c[key] = value
			return c
		}
		if next, ok := container(c[key], keys[1]); ok {
			c[key] = insert(next, keys[1:], value)
		}
		return c
	case []any:
		i, ok := index(key)
		if !ok {
			return c
		}
		for len(c) <= i {
			c = append(c, nil)
		}
		if last {
			c[i] = value
			return c
		}
		if next, ok := container(c[i], keys[1]); ok {
			c[i] = insert(next, keys[1:], value)
		}
		return c
	}
	return cur
}

// container returns the node to descend into, creating it when absent.
func container(existing any, nextKey string) (any, bool) {
	switch existing.(type) {
	case nil:
		if _, ok := index(nextKey); ok {
			return []any{}, true
		}
		return map[string]any{}, true
	case map[string]any, []any:
		return existing, true
	default:
		return nil, false
	}
}

func index(key string) (int, bool) {
	if key == "" || len(key) > 6 {
		return 0, false
	}
	for i := 0; i < len(key); i++ {
		if key[i] < '0' || key[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(key)
	if err != nil || n > maxIndex {
		return 0, false
	}
	return n, true
}

// categoryOrder is the block order of tabular exports. Categories not listed
// follow in first-seen order.
var categoryOrder = []string{
	"ADMIN", "ANTHROPO", "PATHOLOGIE", "SYMPTOMES", "MECANISMES", "TESTS",
	"SCORES", "REDFLAGS", "GESTION", "PRONOSTIC", "OBSERVATIONS", "HYPOTHESE",
}

const generalCategory = "GENERAL"

// Row is one line of a tabular export.
type Row struct {
	Field string
	Value string
}

// Group is the rows of one category block or sheet.
type Group struct {
	Category string
	Rows     []Row
}

// Groups arranges entries into category blocks.
func Groups(entries []Entry) []Group {
	byCategory := map[string]*Group{}
	var seen []string
	for _, e := range entries {
		category, field := generalCategory, e.Key
		if head, rest, ok := strings.Cut(e.Key, "."); ok {
			category = strings.ToUpper(head)
			field = strings.ReplaceAll(rest, ".", " ")
		}
		g, ok := byCategory[category]
		if !ok {
			g = &Group{Category: category}
			byCategory[category] = g
			seen = append(seen, category)
		}
		g.Rows = append(g.Rows, Row{Field: field, Value: e.Value.Text()})
	}

	rank := make(map[string]int, len(categoryOrder))
	for i, c := range categoryOrder {
		rank[c] = i
	}
	sort.SliceStable(seen, func(i, j int) bool {
		ri, oki := rank[seen[i]]
		rj, okj := rank[seen[j]]
		switch {
		case oki && okj:
			return ri < rj
		case oki != okj:
			return oki
		default:
			return false
		}
	})

	out := make([]Group, 0, len(seen))
	for _, c := range seen {
		out = append(out, *byCategory[c])
	}
	return out
}
