package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/scaleneo/bilan/internal/dictionary"
	"github.com/scaleneo/bilan/internal/record"
)

// jsonSection is one decoded section object of the JSON form.
type jsonSection map[string]json.RawMessage

// lookup finds a field by its snake_case source key, then by its canonical id.
func (s jsonSection) lookup(rule dictionary.Rule) (json.RawMessage, bool) {
	return s.key(rule.SourceKey(), rule.Field)
}

func (s jsonSection) key(keys ...string) (json.RawMessage, bool) {
	for _, k := range keys {
		if raw, ok := s[k]; ok {
			return raw, true
		}
	}
	return nil, false
}

// setter stores a field of the section being built.
type setter func(field string, v record.Value)

// formatter maps one canonical field from its JSON source.
type formatter func(src jsonSection, rule dictionary.Rule, set setter)

// flagLabel is one entry of a multi-boolean flag set.
type flagLabel struct {
	key   string
	label string
}

// jsonFormats lists the fields whose JSON source needs more than a scalar copy.
var jsonFormats = map[string]formatter{
	"antecedentsLBP": composite,
	"recidive":       composite,

	"horaireDouleur": flagSet(
		flagLabel{"matin", "Matin"}, flagLabel{"apres_midi", "Après-midi"},
		flagLabel{"soir", "Soir"}, flagLabel{"nuit", "Nuit"},
	),
	"facteursAggravants": flagSet(
		flagLabel{"flexion", "Flexion"}, flagLabel{"extension", "Extension"},
		flagLabel{"position_assise", "Position assise"}, flagLabel{"station_debout", "Station debout"},
		flagLabel{"marche", "Marche"}, flagLabel{"port_charges", "Port de charges"},
		flagLabel{"toux", "Toux/éternuement"},
	),
	"facteursSoulageants": flagSet(
		flagLabel{"repos", "Repos"}, flagLabel{"mouvement", "Mouvement"},
		flagLabel{"chaleur", "Chaleur"}, flagLabel{"position_allongee", "Position allongée"},
		flagLabel{"medicaments", "Médicaments"},
	),

	"douleurArticulaire":      composite,
	"douleurMyofasciale":      composite,
	"douleurNeurologique":     composite,
	"sensibilisationCentrale": composite,
	"deficitSensorimoteur":    composite,

	"flexionAvant":        measuredWithPain("flexionAvantNrs"),
	"extension":           measuredWithPain("extensionNrs"),
	"inclinaisonDroit":    measuredWithPain("inclinaisonDroitNrs"),
	"inclinaisonGauche":   measuredWithPain("inclinaisonGaucheNrs"),
	"rotationDroit":       measuredWithPain("rotationDroitNrs"),
	"rotationGauche":      measuredWithPain("rotationGaucheNrs"),
	"mobiliteSegmentaire": measuredWithPain("mobiliteSegmentaireNrs"),
	"hanche":              measuredWithPain("hancheNrs"),
	"hypersensibilite":    composite,
	"triggerPoints":       composite,
	"testSorensen":        withUnit("s"),
	"testItoShirado":      withUnit("s"),
	"sidePlank":           withUnit("s"),

	"redFlags":               composite,
	"instabiliteRachidienne": composite,
	"anticoagulation":        composite,
	"grossesse":              composite,

	"typesTherapieManuelle": flagSet(
		flagLabel{"mobilisation", "Mobilisation"}, flagLabel{"manipulation", "Manipulation"},
		flagLabel{"massage", "Massage"}, flagLabel{"trigger_points", "Trigger points"},
	),
	"typesExercices": flagSet(
		flagLabel{"controle_moteur", "Contrôle moteur"}, flagLabel{"renforcement", "Renforcement"},
		flagLabel{"etirements", "Étirements"}, flagLabel{"aerobie", "Aérobie"},
	),
	"typesNeurodynamique": flagSet(
		flagLabel{"glissement", "Glissement"}, flagLabel{"mise_en_tension", "Mise en tension"},
	),

	"dureeTraitement": withUnit("semaines"),
	"yellowFlags":     composite,
	"soutienSocial":   composite,

	"tempsAssis":          withUnit("h"),
	"tempsDebout":         withUnit("h"),
	"tempsMarche":         withUnit("h"),
	"tempsAssisQuotidien": withUnit("h"),
	"tempsEcran":          withUnit("h"),
}

// placeholderSections get the blank-field marker for missing narrative fields.
var placeholderSections = map[record.SectionID]bool{
	record.SectionObservations: true,
	record.SectionHypothese:    true,
}

// jsonExtractor maps the JSON form onto the record.
type jsonExtractor struct {
	dict *dictionary.Dictionary
}

func (x jsonExtractor) extract(doc []byte, rec *record.Record) error {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(doc, &top); err != nil {
		return jsonParseError(err)
	}

	found := 0
	for _, id := range record.AllSections() {
		raw, ok := top[id.Key()]
		if !ok {
			raw, ok = top[id.Name()]
		}
		if !ok || isJSONNull(raw) {
			if placeholderSections[id] {
				x.section(id, jsonSection{}, rec)
			}
			continue
		}
		var src jsonSection
		if err := json.Unmarshal(raw, &src); err != nil {
			return &ParseError{Format: FormatJSON, Cause: fmt.Errorf("%w: %s is not an object", ErrMalformedJSON, id.Key())}
		}
		found++
		x.section(id, src, rec)
	}
	if found == 0 {
		return &ParseError{Format: FormatJSON, Cause: ErrNoSections}
	}
	return nil
}

func (x jsonExtractor) section(id record.SectionID, src jsonSection, rec *record.Record) {
	set := func(field string, v record.Value) { rec.Set(id, field, v) }
	for _, rule := range x.dict.Section(id).Rules() {
		format, ok := jsonFormats[rule.Field]
		if !ok {
			format = scalar
		}
		format(src, rule, set)
		if placeholderSections[id] && rec.Get(id, rule.Field).IsBlank() {
			set(rule.Field, record.String(Placeholder))
		}
	}
}

func jsonParseError(err error) error {
	pe := &ParseError{Format: FormatJSON, Cause: fmt.Errorf("%w: %v", ErrMalformedJSON, err)}
	var syntax *json.SyntaxError
	if errors.As(err, &syntax) {
		pe.Offset = syntax.Offset
	}
	return pe
}

// ---------------------------------------------------------------------------
// Formatters
// ---------------------------------------------------------------------------

// scalar copies a scalar, joins a string array, or reads an object as a
// flag set.
func scalar(src jsonSection, rule dictionary.Rule, set setter) {
	raw, ok := src.lookup(rule)
	if !ok {
		return
	}
	v, ok := decodeLoose(raw)
	if !ok {
		return
	}
	set(rule.Field, v)
}

// composite combines the field's yes/no answer with its "<key>_details" text.
func composite(src jsonSection, rule dictionary.Rule, set setter) {
	detail := ""
	if raw, ok := src.key(rule.SourceKey()+"_details", rule.Field+"Details"); ok {
		if v, ok := decodeLoose(raw); ok {
			detail = strings.TrimSpace(v.Text())
		}
	}

	raw, ok := src.lookup(rule)
	if !ok {
		if detail != "" {
			set(rule.Field, record.String(detail))
		}
		return
	}
	v, ok := decodeLoose(raw)
	if !ok {
		return
	}
	choice, isChoice := answer(v)
	switch {
	case !isChoice && detail == "":
		set(rule.Field, v)
	case !isChoice:
		set(rule.Field, record.String(record.ComposeChoice(v.Text(), detail)))
	case detail == "":
		set(rule.Field, record.Bool(choice))
	default:
		set(rule.Field, record.String(record.ComposeChoice(record.ChoiceLabel(choice), detail)))
	}
}

// flagSet renders an object of booleans as the labels of its true flags,
// declared flags first, unknown keys after in key order.
func flagSet(labels ...flagLabel) formatter {
	return func(src jsonSection, rule dictionary.Rule, set setter) {
		raw, ok := src.lookup(rule)
		if !ok {
			return
		}
		var flags map[string]json.RawMessage
		if err := json.Unmarshal(raw, &flags); err != nil {
			scalar(src, rule, set)
			return
		}

		var out []string
		known := make(map[string]bool, len(labels))
		for _, l := range labels {
			known[l.key] = true
			if flagTrue(flags[l.key]) {
				out = append(out, l.label)
			}
		}
		extra := make([]string, 0)
		for k := range flags {
			if !known[k] && flagTrue(flags[k]) {
				extra = append(extra, k)
			}
		}
		sort.Strings(extra)
		out = append(out, extra...)

		if len(out) == 0 {
			set(rule.Field, record.Null())
			return
		}
		set(rule.Field, record.String(strings.Join(out, ", ")))
	}
}

// measuredWithPain reads {"valeur": …, "nrs": n}: the measurement gets a
// pain-scale annotation and the paired field receives the rating.
func measuredWithPain(nrsField string) formatter {
	return func(src jsonSection, rule dictionary.Rule, set setter) {
		raw, ok := src.lookup(rule)
		if !ok {
			return
		}
		var m struct {
			Valeur *record.Value `json:"valeur"`
			NRS    *record.Value `json:"nrs"`
		}
		if err := json.Unmarshal(raw, &m); err != nil {
			scalar(src, rule, set)
			return
		}

		measure := ""
		if m.Valeur != nil && !m.Valeur.IsBlank() {
			measure = m.Valeur.Text()
		}
		if m.NRS != nil && !m.NRS.IsNull() {
			pain := coerceNumber(*m.NRS)
			set(nrsField, pain)
			if measure != "" {
				measure += record.CompositeSeparator + "(NRS 0-10): " + pain.Text()
			}
		}
		if measure != "" {
			set(rule.Field, record.String(measure))
		}
	}
}

// withUnit appends a unit to numeric measurements.
func withUnit(unit string) formatter {
	return func(src jsonSection, rule dictionary.Rule, set setter) {
		raw, ok := src.lookup(rule)
		if !ok {
			return
		}
		v, ok := decodeLoose(raw)
		if !ok {
			return
		}
		if n, isNum := v.Num(); isNum {
			set(rule.Field, record.String(record.FormatNumber(n)+" "+unit))
			return
		}
		set(rule.Field, v)
	}
}

// ---------------------------------------------------------------------------
// Value decoding
// ---------------------------------------------------------------------------

// decodeLoose decodes a scalar, a string array (joined) or a flag object.
// Blank strings and the placeholder decode to null.
func decodeLoose(raw json.RawMessage) (record.Value, bool) {
	var v record.Value
	if err := json.Unmarshal(raw, &v); err == nil {
		if s, ok := v.Str(); ok {
			s = strings.TrimSpace(s)
			if s == "" || IsPlaceholder(s) {
				return record.Null(), true
			}
			return record.String(s), true
		}
		return v, true
	}

	var list []record.Value
	if err := json.Unmarshal(raw, &list); err == nil {
		parts := make([]string, 0, len(list))
		for _, item := range list {
			if t := strings.TrimSpace(item.Text()); t != "" {
				parts = append(parts, t)
			}
		}
		if len(parts) == 0 {
			return record.Null(), true
		}
		return record.String(strings.Join(parts, ", ")), true
	}

	var flags map[string]json.RawMessage
	if err := json.Unmarshal(raw, &flags); err == nil {
		keys := make([]string, 0, len(flags))
		for k, f := range flags {
			if flagTrue(f) {
				keys = append(keys, k)
			}
		}
		if len(keys) == 0 {
			return record.Null(), true
		}
		sort.Strings(keys)
		return record.String(strings.Join(keys, ", ")), true
	}
	return record.Null(), false
}

// answer reads a yes/no answer from a boolean, 1/0 or a yes/no token.
func answer(v record.Value) (bool, bool) {
	switch v.Kind() {
	case record.KindBool:
		b, _ := v.Boolean()
		return b, true
	case record.KindNumber:
		n, _ := v.Num()
		if n == 0 || n == 1 {
			return n == 1, true
		}
	case record.KindString:
		s, _ := v.Str()
		return record.YesNo(s)
	}
	return false, false
}

func flagTrue(raw json.RawMessage) bool {
	if raw == nil {
		return false
	}
	v, ok := decodeLoose(raw)
	if !ok {
		return false
	}
	b, isAnswer := answer(v)
	return isAnswer && b
}

func coerceNumber(v record.Value) record.Value {
	if s, ok := v.Str(); ok {
		if n, ok := ParseNumber(s); ok {
			return record.Number(n)
		}
	}
	return v
}

func isJSONNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
