package longitudinal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/scaleneo/bilan/pkg/workerpool"
)

const visitReport = `BILAN DE SUIVI
NRS Douleur au Repos: 3
NRS Douleur à l'Activité: 6
NRS Douleur Maximum = 7
ODI Score (Oswestry Disability Index, 0-100): 42
HADS Score Anxiété (Hospital Anxiety, 0-21): 9
WAI Score (Working Alliance Inventory, 0-100): 61.5
SBT (STarT Back Tool, 0-9): 4
`

func TestExtractMetrics(t *testing.T) {
	m := ExtractMetrics(visitReport)
	assert.Equal(t, Metrics{
		MetricNRSRepos:    3,
		MetricNRSActivite: 6,
		MetricNRSMax:      7,
		MetricODI:         42,
		MetricHADSAnxiete: 9,
		MetricWAI:         61.5,
		MetricSBT:         4,
	}, m)

	_, ok := m[MetricCSI]
	assert.False(t, ok, "absent measures are not zero-filled")
}

func TestExtractMetricsFirstMatchWins(t *testing.T) {
	m := ExtractMetrics("ODI Score (0-100): 30\nODI Score (0-100): 50")
	assert.Equal(t, 30.0, m[MetricODI])
	assert.Empty(t, ExtractMetrics("aucune donnée"))
}

func fixedTimeline() *Timeline {
	tl := NewTimeline()
	tl.now = func() time.Time { return time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC) }
	return tl
}

func TestTimelineOrdersByDate(t *testing.T) {
	tl := fixedTimeline()
	for _, d := range []string{"2024-03-01", "2024-01-15", "2024-02-10"} {
		_, err := tl.Add(Assessment{Date: d})
		require.NoError(t, err)
	}

	all := tl.All()
	require.Len(t, all, 3)
	assert.Equal(t, "2024-01-15", all[0].Date)
	assert.Equal(t, "2024-02-10", all[1].Date)
	assert.Equal(t, "2024-03-01", all[2].Date)
	assert.Equal(t, "Suivi 2", all[0].Label)
	assert.Equal(t, "Suivi 1", all[2].Label)
	assert.NotEmpty(t, all[0].ID)
	assert.NotEqual(t, all[0].ID, all[1].ID)
}

func TestTimelineSameDayKeepsInsertionOrder(t *testing.T) {
	tl := fixedTimeline()
	_, err := tl.Add(Assessment{ID: "a", Date: "2024-01-15"})
	require.NoError(t, err)
	_, err = tl.Add(Assessment{ID: "b", Date: "2024-01-15"})
	require.NoError(t, err)
	_, err = tl.Add(Assessment{ID: "c", Date: "2024-01-01"})
	require.NoError(t, err)

	var ids []string
	for _, a := range tl.All() {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"c", "a", "b"}, ids)
}

func TestTimelineDefaultsAndErrors(t *testing.T) {
	tl := fixedTimeline()
	a, err := tl.Add(Assessment{Label: "Bilan initial"})
	require.NoError(t, err)
	assert.Equal(t, "2024-04-02", a.Date)
	assert.Equal(t, "Bilan initial", a.Label)
	assert.NotNil(t, a.Metrics)

	_, err = tl.Add(Assessment{Date: "15/01/2024"})
	assert.ErrorIs(t, err, ErrInvalidDate)
	assert.Equal(t, 1, tl.Len())
}

func TestTimelineRemoveAndClear(t *testing.T) {
	tl := fixedTimeline()
	a, err := tl.Add(Assessment{Date: "2024-01-15"})
	require.NoError(t, err)
	_, err = tl.Add(Assessment{Date: "2024-02-15"})
	require.NoError(t, err)

	assert.True(t, tl.Remove(a.ID))
	assert.False(t, tl.Remove(a.ID))
	assert.Equal(t, 1, tl.Len())

	tl.Clear()
	assert.Zero(t, tl.Len())
	assert.Empty(t, tl.All())
}

func TestTrends(t *testing.T) {
	assessments := []Assessment{
		{Date: "2024-01-15", Label: "Initial", Metrics: Metrics{MetricODI: 42, MetricWAI: 50, MetricNRSMax: 8}},
		{Date: "2024-02-10", Label: "Suivi 2", Metrics: Metrics{MetricODI: 35, MetricCSI: 40}},
		{Date: "2024-03-01", Label: "Suivi 3", Metrics: Metrics{MetricODI: 28, MetricWAI: 55, MetricNRSMax: 7}},
	}
	trends := Trends(assessments)

	byKey := map[MetricKey]Trend{}
	for _, tr := range trends {
		byKey[tr.Config.Key] = tr
	}
	require.Len(t, byKey, 4)

	odi := byKey[MetricODI]
	assert.Equal(t, 42.0, odi.Baseline)
	assert.Equal(t, 28.0, odi.Latest)
	assert.Equal(t, -14.0, odi.Diff)
	assert.True(t, odi.Improved)
	assert.True(t, odi.Significant)
	assert.Equal(t, 32.0, odi.Target)
	assert.Len(t, odi.Series, 3)

	wai := byKey[MetricWAI]
	assert.True(t, wai.Improved)
	assert.False(t, wai.Significant)
	assert.Equal(t, 60.0, wai.Target)

	nrs := byKey[MetricNRSMax]
	assert.True(t, nrs.Improved)
	assert.False(t, nrs.Significant)

	csi := byKey[MetricCSI]
	assert.Zero(t, csi.Diff)
	assert.False(t, csi.Improved)
	assert.Len(t, csi.Series, 1)

	assert.Equal(t, MetricNRSMax, trends[0].Config.Key, "display order follows the config")
}

func TestBuildTimeline(t *testing.T) {
	visits := []Visit{
		{FileName: "suivi.txt", Date: "2024-03-01", Content: []byte("ODI Score (0-100): 28")},
		{FileName: "initial.txt", Date: "2024-01-15", Label: "Bilan initial", Content: []byte("ODI Score (0-100): 42\nCSI Score (0-100): 31")},
		{FileName: "inter.txt", Date: "2024-02-10", Content: []byte("ODI Score (Oswestry 0-100) = 35")},
	}
	tl, err := BuildTimeline(context.Background(), visits, workerpool.Config{Workers: 2}, zaptest.NewLogger(t))
	require.NoError(t, err)

	all := tl.All()
	require.Len(t, all, 3)
	assert.Equal(t, "initial.txt", all[0].FileName)
	assert.Equal(t, "Bilan initial", all[0].Label)
	assert.Equal(t, Metrics{MetricODI: 42, MetricCSI: 31}, all[0].Metrics)
	assert.Equal(t, "Suivi 3", all[1].Label)
	assert.Equal(t, "Suivi 1", all[2].Label)
}

func TestBuildTimelineRejectsBadDate(t *testing.T) {
	_, err := BuildTimeline(context.Background(), []Visit{{FileName: "x.txt", Date: "hier"}}, workerpool.DefaultConfig(), nil)
	assert.ErrorIs(t, err, ErrInvalidDate)
}
