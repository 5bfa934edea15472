package mcptool

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scaleneo/bilan/internal/domain/workspace"
)

const bilan = `=== SECTION 1 ===
Nom et prénom: Dupont Marie
ID patient: P-0042
=== SECTION 7 ===
ODI Score (0-100): 38
=== SECTION 8 ===
Drapeaux rouges: Oui | fièvre nocturne
`

func newTools() *Tools { return New(workspace.New(), nil) }

// ---------------------------------------------------------------------------
// Direct calls
// ---------------------------------------------------------------------------

func TestLoadAndAnalyze(t *testing.T) {
	ctx := context.Background()
	tools := newTools()

	_, _, err := tools.AnalyzeBilan(ctx, nil, struct{}{})
	assert.ErrorIs(t, err, workspace.ErrNoRecord)

	_, loaded, err := tools.LoadBilan(ctx, nil, InputLoadBilan{Content: bilan})
	require.NoError(t, err)
	assert.Equal(t, "text", loaded.Format)
	assert.Equal(t, "ready", loaded.Status)
	assert.Equal(t, "Dupont Marie", loaded.Record["section1"]["nomPatient"])

	_, report, err := tools.AnalyzeBilan(ctx, nil, struct{}{})
	require.NoError(t, err)
	require.Len(t, report.Scores, 1)
	assert.Equal(t, ScoreOutput{Key: "odi", Label: "ODI", Value: 38, Level: "Léger", Color: "green"}, report.Scores[0])
	require.NotEmpty(t, report.RedFlags)
	assert.Equal(t, "infection_fever", report.RedFlags[0].Key)
}

func TestLoadRequiresContent(t *testing.T) {
	_, _, err := newTools().LoadBilan(context.Background(), nil, InputLoadBilan{})
	assert.Error(t, err)
}

func TestExportBilan(t *testing.T) {
	ctx := context.Background()
	tools := newTools()
	_, _, err := tools.LoadBilan(ctx, nil, InputLoadBilan{Content: bilan})
	require.NoError(t, err)

	_, csv, err := tools.ExportBilan(ctx, nil, InputExportBilan{Format: "csv"})
	require.NoError(t, err)
	assert.False(t, csv.Base64)
	assert.Contains(t, csv.Content, "=== ADMIN ===")
	assert.Contains(t, csv.FileName, "bilan_Dupont_Marie_")

	_, xlsx, err := tools.ExportBilan(ctx, nil, InputExportBilan{Format: "xlsx"})
	require.NoError(t, err)
	assert.True(t, xlsx.Base64)
	raw, err := base64.StdEncoding.DecodeString(xlsx.Content)
	require.NoError(t, err)
	assert.Equal(t, "PK", string(raw[:2]))

	_, _, err = tools.ExportBilan(ctx, nil, InputExportBilan{Format: "pdf"})
	assert.Error(t, err)
}

func TestTimelineTools(t *testing.T) {
	ctx := context.Background()
	tools := newTools()

	_, first, err := tools.AddAssessment(ctx, nil, InputAddAssessment{Content: "ODI Score (0-100): 42", Date: "2024-01-15"})
	require.NoError(t, err)
	_, _, err = tools.AddAssessment(ctx, nil, InputAddAssessment{Content: "ODI Score (0-100): 30", Date: "2024-02-15"})
	require.NoError(t, err)

	_, listed, err := tools.ListTrends(ctx, nil, struct{}{})
	require.NoError(t, err)
	require.Len(t, listed.Assessments, 2)
	require.Len(t, listed.Trends, 1)
	assert.Equal(t, -12.0, listed.Trends[0].Diff)
	assert.True(t, listed.Trends[0].Improved)

	_, removed, err := tools.RemoveAssessment(ctx, nil, InputRemoveAssessment{ID: first.Assessment.ID})
	require.NoError(t, err)
	assert.True(t, removed.Removed)

	_, _, err = tools.ClearAssessments(ctx, nil, struct{}{})
	require.NoError(t, err)
	_, listed, err = tools.ListTrends(ctx, nil, struct{}{})
	require.NoError(t, err)
	assert.Empty(t, listed.Assessments)
	assert.NotNil(t, listed.Trends)
}

// ---------------------------------------------------------------------------
// Over an MCP session
// ---------------------------------------------------------------------------

func TestToolsOverSession(t *testing.T) {
	ctx := context.Background()

	server := mcp.NewServer(&mcp.Implementation{Name: "bilan-test", Version: "test"}, nil)
	newTools().Register(server)

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	_, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "test"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer session.Close()

	list, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range list.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"load_bilan", "analyze_bilan", "export_bilan",
		"add_assessment", "remove_assessment", "clear_assessments", "list_trends",
	}, names)

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "load_bilan",
		Arguments: map[string]any{"content": bilan},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)

	res, err = session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "export_bilan",
		Arguments: map[string]any{"format": "pdf"},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
