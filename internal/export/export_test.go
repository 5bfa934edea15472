package export

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/scaleneo/bilan/internal/extract"
	"github.com/scaleneo/bilan/internal/fhir/r5"
	"github.com/scaleneo/bilan/internal/record"
)

var exportDate = time.Date(2024, 3, 20, 10, 30, 0, 0, time.UTC)

func sampleRecord() *record.Record {
	rec := record.New()
	rec.Set(record.SectionAdmin, "idPatient", record.String("P-0042"))
	rec.Set(record.SectionAdmin, "nomPatient", record.String("Dupont Marie"))
	rec.Set(record.SectionAdmin, "sexe", record.String("Femme"))
	rec.Set(record.SectionAdmin, "anneeNaissance", record.Number(1978))
	rec.Set(record.SectionAdmin, "kineExaminateur", record.String("J. Martin"))
	rec.Set(record.SectionAdmin, "dateBilan", record.String("15/03/2024"))
	rec.Set(record.SectionAnthropo, "poids", record.Number(72.5))
	rec.Set(record.SectionAnthropo, "taille", record.Number(168))
	rec.Set(record.SectionAnthropo, "imc", record.Number(25.7))
	rec.Set(record.SectionAnthropo, "imcCategorie", record.String("Surpoids"))
	rec.Set(record.SectionSymptomes, "nrsRepos", record.Number(3))
	rec.Set(record.SectionScores, "scoreODI", record.Number(38))
	rec.Set(record.SectionScores, "scoreCSI", record.String("42 (modéré)"))
	rec.Set(record.SectionRedFlags, "redFlags", record.Bool(false))
	return rec
}

// ---------------------------------------------------------------------------
// Flatten / Unflatten
// ---------------------------------------------------------------------------

func TestFlattenOrdersDictionaryFieldsThenExtras(t *testing.T) {
	rec := record.New()
	rec.Set(record.SectionAdmin, "zzExtra", record.String("z"))
	rec.Set(record.SectionAdmin, "idPatient", record.String("P-1"))
	rec.Set(record.SectionAdmin, "aaExtra", record.Bool(true))
	rec.Set(record.SectionAdmin, "nomPatient", record.String("Dupont"))
	rec.Set(record.SectionScores, "scoreODI", record.Number(38))

	var keys []string
	for _, e := range Flatten(rec) {
		keys = append(keys, e.Key)
	}
	assert.Equal(t, []string{
		"admin.nomPatient", "admin.idPatient", "admin.aaExtra", "admin.zzExtra", "scores.scoreODI",
	}, keys)
}

func TestUnflatten(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
		want    map[string]any
	}{
		{
			name:    "nested maps",
			entries: []Entry{{"admin.nomPatient", record.String("Dupont")}, {"admin.age", record.Number(46)}},
			want:    map[string]any{"admin": map[string]any{"nomPatient": "Dupont", "age": 46.0}},
		},
		{
			name:    "numeric segment builds a slice",
			entries: []Entry{{"psfs.0.score", record.Number(4)}, {"psfs.1.score", record.Number(6)}},
			want: map[string]any{"psfs": []any{
				map[string]any{"score": 4.0},
				map[string]any{"score": 6.0},
			}},
		},
		{
			name:    "gaps are filled with nil",
			entries: []Entry{{"list.2", record.Bool(true)}},
			want:    map[string]any{"list": []any{nil, nil, true}},
		},
		{
			name:    "descending into a scalar is ignored",
			entries: []Entry{{"a", record.String("s")}, {"a.b", record.Number(1)}},
			want:    map[string]any{"a": "s"},
		},
		{
			name:    "named key on a slice is dropped",
			entries: []Entry{{"list.0", record.Number(1)}, {"list.name", record.Number(2)}},
			want:    map[string]any{"list": []any{1.0}},
		},
		{
			name:    "oversized index stays a map key",
			entries: []Entry{{"big.100001", record.Number(1)}},
			want:    map[string]any{"big": map[string]any{"100001": 1.0}},
		},
		{
			name:    "null is kept",
			entries: []Entry{{"admin.sexe", record.Null()}},
			want:    map[string]any{"admin": map[string]any{"sexe": nil}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Unflatten(tt.entries))
		})
	}
}

func TestGroupsOrder(t *testing.T) {
	groups := Groups([]Entry{
		{"zeta.a", record.String("1")},
		{"scores.scoreODI", record.Number(38)},
		{"plain", record.Bool(true)},
		{"admin.c.d", record.Null()},
	})
	require.Len(t, groups, 4)
	assert.Equal(t, "ADMIN", groups[0].Category)
	assert.Equal(t, []Row{{Field: "c d", Value: ""}}, groups[0].Rows)
	assert.Equal(t, "SCORES", groups[1].Category)
	assert.Equal(t, []Row{{Field: "scoreODI", Value: "38"}}, groups[1].Rows)
	assert.Equal(t, "ZETA", groups[2].Category)
	assert.Equal(t, "GENERAL", groups[3].Category)
	assert.Equal(t, []Row{{Field: "plain", Value: "Oui"}}, groups[3].Rows)
}

// ---------------------------------------------------------------------------
// Encoders
// ---------------------------------------------------------------------------

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []Entry{
		{"scores.scoreODI", record.Number(38)},
		{"admin.nomPatient", record.String("Dupont, Marie")},
		{"redFlags.redFlags", record.Bool(false)},
	}))

	want := "\xEF\xBB\xBF" +
		"\n=== ADMIN ===\nChamp,Valeur\nnomPatient,\"Dupont, Marie\"\n" +
		"\n=== SCORES ===\nChamp,Valeur\nscoreODI,38\n" +
		"\n=== REDFLAGS ===\nChamp,Valeur\nredFlags,Non\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteXLSXReadBack(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, Flatten(sampleRecord())))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"ADMIN", "ANTHROPO", "SYMPTOMES", "SCORES", "REDFLAGS"}, f.GetSheetList())

	rows, err := f.GetRows("ADMIN")
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, []string{"Champ", "Valeur"}, rows[0])
	assert.Contains(t, rows, []string{"nomPatient", "Dupont Marie"})
	assert.Contains(t, rows, []string{"anneeNaissance", "1978"})

	rows, err = f.GetRows("REDFLAGS")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Champ", "Valeur"}, {"redFlags", "Non"}}, rows)

	width, err := f.GetColWidth("ADMIN", "B")
	require.NoError(t, err)
	assert.Equal(t, 80.0, width)
}

func TestWriteXLSXEmptyRecord(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"GENERAL"}, f.GetSheetList())
}

func TestSheetName(t *testing.T) {
	used := map[string]bool{}
	long := strings.Repeat("X", 40)
	first := sheetName(long, used)
	second := sheetName(long, used)
	assert.Len(t, first, 31)
	assert.Len(t, second, 31)
	assert.NotEqual(t, first, second)
	assert.True(t, strings.HasSuffix(second, "~2"))
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, []Entry{
		{"admin.nomPatient", record.String("Dupont <Marie>")},
		{"admin.age", record.Number(46)},
		{"admin.sexe", record.Null()},
		{"redFlags.redFlags", record.Bool(false)},
	}))
	assert.Contains(t, buf.String(), "Dupont <Marie>")
	assert.Contains(t, buf.String(), "\n  \"admin\": {")

	var got map[string]map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 46.0, got["admin"]["age"])
	assert.Nil(t, got["admin"]["sexe"])
	assert.Equal(t, false, got["redFlags"]["redFlags"])
}

// ---------------------------------------------------------------------------
// FHIR
// ---------------------------------------------------------------------------

func TestBuildBundle(t *testing.T) {
	b := BuildBundle(sampleRecord(), exportDate)

	assert.Equal(t, "Bundle", b.ResourceType)
	assert.Equal(t, "collection", b.Type)
	require.NotNil(t, b.Total)
	assert.Equal(t, len(b.Entry), *b.Total)
	require.Len(t, b.Entry, 8)

	patient, ok := b.Entry[0].Resource.(*r5.Patient)
	require.True(t, ok)
	assert.Equal(t, "female", patient.Gender)
	assert.Equal(t, "1978", patient.BirthDate)
	assert.Equal(t, "Dupont Marie", patient.GetFullName())
	require.Len(t, patient.Identifier, 1)
	assert.Equal(t, "P-0042", patient.Identifier[0].Value)
	assert.Equal(t, "urn:uuid:"+patient.ID, b.Entry[0].FullURL)

	practitioner, ok := b.Entry[1].Resource.(*r5.Practitioner)
	require.True(t, ok)
	assert.Equal(t, "J. Martin", practitioner.GetFullName())

	obs := b.Observations()
	require.Len(t, obs, 6)

	csi := obs[0]
	assert.Equal(t, "CSI", csi.Code.Text)
	assert.Equal(t, 42.0, csi.ValueQuantity.Value)
	assert.Equal(t, "Modéré", csi.Interpretation[0].Text)
	assert.Equal(t, "2024-03-15", csi.EffectiveDateTime)
	assert.Equal(t, "urn:uuid:"+patient.ID, csi.Subject.Reference)
	require.Len(t, csi.Performer, 1)

	odi := obs[1]
	assert.Equal(t, "ODI", odi.Code.Text)
	assert.Equal(t, "Léger", odi.Interpretation[0].Text)
	assert.Equal(t, 100.0, odi.ReferenceRange[0].High.Value)

	pain := obs[2]
	assert.Equal(t, r5.LOINCPainSeverity, pain.Code.Coding[0].Code)
	assert.Equal(t, 3.0, pain.ValueQuantity.Value)

	bmi := obs[5]
	assert.Equal(t, r5.LOINCBMI, bmi.Code.Coding[0].Code)
	assert.Equal(t, "Surpoids", bmi.Interpretation[0].Text)
}

func TestBuildBundleIDsAreStable(t *testing.T) {
	a := BuildBundle(sampleRecord(), exportDate)
	b := BuildBundle(sampleRecord(), exportDate.Add(48*time.Hour))
	assert.Equal(t, a.ID, b.ID)
	for i := range a.Entry {
		assert.Equal(t, a.Entry[i].FullURL, b.Entry[i].FullURL)
	}
}

func TestBuildBundleMinimalRecord(t *testing.T) {
	b := BuildBundle(record.New(), exportDate)
	require.Len(t, b.Entry, 1)
	patient := b.Entry[0].Resource.(*r5.Patient)
	assert.Empty(t, patient.Gender)
	assert.Empty(t, patient.Name)
	assert.Empty(t, b.Observations())
}

// ---------------------------------------------------------------------------
// Formats and filenames
// ---------------------------------------------------------------------------

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" XLSX ")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)
	assert.True(t, f.Binary())

	_, err = ParseFormat("pdf")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestWriteDispatch(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatFHIR, sampleRecord(), exportDate))

	var got struct {
		ResourceType string `json:"resourceType"`
		Entry        []struct {
			Resource struct {
				ResourceType string `json:"resourceType"`
			} `json:"resource"`
		} `json:"entry"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "Bundle", got.ResourceType)
	assert.Equal(t, "Patient", got.Entry[0].Resource.ResourceType)

	err := Write(&buf, Format("pdf"), sampleRecord(), exportDate)
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestFilename(t *testing.T) {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	rec := record.New()
	rec.Set(record.SectionAdmin, "nomPatient", record.String(" Éloïse Dupont-Martin "))
	rec.Set(record.SectionAdmin, "idPatient", record.String("P-0042"))
	assert.Equal(t, "bilan_Eloise_Dupont_Martin_2024-03-15.csv", Filename(rec, "csv", date))

	rec.Set(record.SectionAdmin, "nomPatient", record.Null())
	assert.Equal(t, "bilan_P_0042_2024-03-15.xlsx", Filename(rec, ".xlsx", date))

	assert.Equal(t, "bilan_patient_2024-03-15.json", Filename(record.New(), "json", date))
}

func TestParseDate(t *testing.T) {
	for _, s := range []string{"2024-03-15", "15/03/2024", "15.03.2024"} {
		d, ok := ParseDate(s)
		require.True(t, ok, s)
		assert.Equal(t, "2024-03-15", d.Format(DateLayout))
	}
	_, ok := ParseDate("mars 2024")
	assert.False(t, ok)
}

func TestExtractedRecordSurvivesFlattenUnflatten(t *testing.T) {
	for _, name := range []string{"bilan_complet.txt", "bilan_export.json"} {
		t.Run(name, func(t *testing.T) {
			doc, err := os.ReadFile(filepath.Join("..", "extract", "testdata", name))
			require.NoError(t, err)
			res, err := extract.Extract(doc)
			require.NoError(t, err)

			want := map[string]any{}
			for _, id := range record.AllSections() {
				s := res.Record.Section(id)
				if len(s) == 0 {
					continue
				}
				fields := make(map[string]any, len(s))
				for f, v := range s {
					fields[f] = v.Interface()
				}
				want[id.Name()] = fields
			}
			assert.Equal(t, want, Unflatten(Flatten(res.Record)))
		})
	}
}
