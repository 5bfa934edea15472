package extract

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scaleneo/bilan/internal/record"
)

func TestJSONExport(t *testing.T) {
	doc, err := os.ReadFile("testdata/bilan_export.json")
	require.NoError(t, err)
	res, err := Extract(doc)
	require.NoError(t, err)
	require.Equal(t, FormatJSON, res.Format)
	rec := res.Record

	tests := []struct {
		section record.SectionID
		field   string
		want    record.Value
	}{
		{record.SectionAdmin, "nomPatient", record.String("Martin Paul")},
		{record.SectionAdmin, "age", record.Number(52)},
		{record.SectionAdmin, "idPatient", record.String("P-0077")},
		{record.SectionAdmin, "profession", record.Null()},
		{record.SectionAnthropo, "imc", record.Number(24.7)},
		{record.SectionAnthropo, "imcCategorie", record.String("Normal")},
		{record.SectionPathologie, "antecedentsLBP", record.String("Oui | Lombalgie 2019")},
		{record.SectionPathologie, "recidive", record.Bool(false)},
		{record.SectionPathologie, "modeApparition", record.String("Traumatisme sportif")},
		{record.SectionSymptomes, "nrsRepos", record.Number(3)},
		{record.SectionSymptomes, "horaireDouleur", record.String("Matin, Nuit")},
		{record.SectionTests, "flexionAvant", record.String("Limitée | (NRS 0-10): 6")},
		{record.SectionTests, "flexionAvantNrs", record.Number(6)},
		{record.SectionTests, "testSorensen", record.String("45 s")},
		{record.SectionTests, "slrDroit", record.String("60°")},
		{record.SectionScores, "scoreODI", record.Number(42)},
		{record.SectionScores, "scoreCSI", record.Number(28)},
		{record.SectionMecanismesResume, "motifArticulaire", record.Bool(true)},
		{record.SectionMecanismesResume, "motifNeural", record.Bool(false)},
		{record.SectionMecanismesResume, "motifMyofascial", record.Null()},
		{record.SectionActivites, "tempsAssis", record.String("7 h")},
		{record.SectionObservations, "resumeClinique", record.String(Placeholder)},
		{record.SectionHypothese, "pathology", record.String(Placeholder)},
		{record.SectionQualite, "needsReview", record.Null()},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			assert.Equal(t, tt.want, rec.Get(tt.section, tt.field))
		})
	}
}

func TestJSONMissingNarrativeSectionsGetPlaceholder(t *testing.T) {
	res, err := Extract([]byte(`{"section1": {"nomPatient": "Durand"}, "hypothese": null}`))
	require.NoError(t, err)

	for _, id := range []record.SectionID{record.SectionObservations, record.SectionHypothese} {
		require.NotEmpty(t, res.Record.Section(id), id.Name())
		for field, v := range res.Record.Section(id) {
			assert.Equal(t, record.String(Placeholder), v, "%s.%s", id.Name(), field)
		}
	}
	assert.True(t, res.Record.Get(record.SectionScores, "scoreODI").IsNull())
}

func TestJSONSemanticSectionKeys(t *testing.T) {
	res, err := Extract([]byte(`{"admin": {"nomPatient": "Durand"}, "scores": {"scoreWAI": "38,5"}}`))
	require.NoError(t, err)
	assert.Equal(t, record.String("Durand"), res.Record.Get(record.SectionAdmin, "nomPatient"))
	assert.Equal(t, record.Number(38.5), res.Record.Get(record.SectionScores, "scoreWAI"))
}

func TestJSONFlagSets(t *testing.T) {
	res, err := Extract([]byte(`{"section10": {
		"types_therapie_manuelle": {"massage": true, "mobilisation": 1, "dry_needling": "oui", "manipulation": false},
		"types_exercices": ["Renforcement", "", "Marche"],
		"types_neurodynamique": {"glissement": false}
	}}`))
	require.NoError(t, err)
	s := res.Record.Section(record.SectionGestion)
	assert.Equal(t, record.String("Mobilisation, Massage, dry_needling"), s.Get("typesTherapieManuelle"))
	assert.Equal(t, record.String("Renforcement, Marche"), s.Get("typesExercices"))
	assert.True(t, s.Get("typesNeurodynamique").IsNull())
}

func TestJSONCompositeDetailOnly(t *testing.T) {
	res, err := Extract([]byte(`{"section8": {"anticoagulation_details": "Apixaban 5mg"}}`))
	require.NoError(t, err)
	assert.Equal(t, record.String("Apixaban 5mg"), res.Record.Get(record.SectionRedFlags, "anticoagulation"))
}

func TestJSONErrors(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		cause error
	}{
		{"truncated", `{"section1": {"age": 4`, ErrMalformedJSON},
		{"section not an object", `{"section1": [1, 2]}`, ErrMalformedJSON},
		{"no sections", `{"patient": {"age": 4}}`, ErrNoSections},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Extract([]byte(tt.doc))
			assert.Nil(t, res)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.cause), err.Error())

			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, FormatJSON, pe.Format)
		})
	}
}

func TestJSONSyntaxErrorOffset(t *testing.T) {
	_, err := Extract([]byte(`{"section1": {"age": }}`))
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Positive(t, pe.Offset)
}
