// Package mcptool exposes the assessment workspace as Model Context Protocol
// tools: load and analyze an assessment, export it, and track follow-up
// visits.
package mcptool

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/scaleneo/bilan/internal/analysis"
	"github.com/scaleneo/bilan/internal/domain/workspace"
	"github.com/scaleneo/bilan/internal/export"
	"github.com/scaleneo/bilan/internal/longitudinal"
	"github.com/scaleneo/bilan/internal/observability/logging"
)

// Tools serves the MCP tools over one workspace.
type Tools struct {
	ws     *workspace.Workspace
	logger *zap.Logger
}

// New returns the tools over ws.
func New(ws *workspace.Workspace, logger *zap.Logger) *Tools {
	return &Tools{ws: ws, logger: logging.OrNop(logger)}
}

// Register adds every tool to s.
func (t *Tools) Register(s *mcp.Server) {
	mcp.AddTool(s, MetadataLoadBilan, t.LoadBilan)
	mcp.AddTool(s, MetadataAnalyzeBilan, t.AnalyzeBilan)
	mcp.AddTool(s, MetadataExportBilan, t.ExportBilan)
	mcp.AddTool(s, MetadataAddAssessment, t.AddAssessment)
	mcp.AddTool(s, MetadataRemoveAssessment, t.RemoveAssessment)
	mcp.AddTool(s, MetadataClearAssessments, t.ClearAssessments)
	mcp.AddTool(s, MetadataListTrends, t.ListTrends)
}

// ---------------------------------------------------------------------------
// load_bilan
// ---------------------------------------------------------------------------

// MetadataLoadBilan describes the load_bilan tool.
var MetadataLoadBilan = &mcp.Tool{
	Name: "load_bilan",
	Description: "Extract a physiotherapy assessment (bilan) from its text form or JSON export and keep it " +
		"as the current record. Returns the detected format, whether the record is ready " +
		"(administrative section present) and the normalized record keyed section1..section18.",
}

// InputLoadBilan is the input for the LoadBilan tool.
type InputLoadBilan struct {
	Content  string `json:"content" jsonschema:"raw content of the assessment document"`
	FileName string `json:"fileName,omitempty" jsonschema:"optional name of the uploaded file"`
}

// OutputLoadBilan is the output for the LoadBilan tool.
type OutputLoadBilan struct {
	Format  string                    `json:"format"`
	Status  string                    `json:"status"`
	Warning string                    `json:"warning,omitempty"`
	Record  map[string]map[string]any `json:"record"`
}

// LoadBilan extracts input.Content into the workspace.
func (t *Tools) LoadBilan(ctx context.Context, _ *mcp.CallToolRequest, input InputLoadBilan) (*mcp.CallToolResult, OutputLoadBilan, error) {
	if input.Content == "" {
		return nil, OutputLoadBilan{}, fmt.Errorf("content is required")
	}
	res, err := t.ws.Load(input.FileName, []byte(input.Content))
	if err != nil {
		return nil, OutputLoadBilan{}, err
	}
	rec, err := t.ws.Record()
	if err != nil {
		return nil, OutputLoadBilan{}, err
	}
	fields, err := plain[map[string]map[string]any](rec)
	if err != nil {
		return nil, OutputLoadBilan{}, err
	}
	t.logger.Info("bilan loaded", zap.String("format", string(res.Format)), zap.String("status", string(res.Status)))
	return nil, OutputLoadBilan{
		Format:  string(res.Format),
		Status:  string(res.Status),
		Warning: res.Warning,
		Record:  fields,
	}, nil
}

// ---------------------------------------------------------------------------
// analyze_bilan
// ---------------------------------------------------------------------------

// MetadataAnalyzeBilan describes the analyze_bilan tool.
var MetadataAnalyzeBilan = &mcp.Tool{
	Name: "analyze_bilan",
	Description: "Interpret the current assessment: questionnaire scores with their severity level, " +
		"detected red flags ordered by severity, and the clinical hypothesis paragraphs.",
}

// ScoreOutput is one interpreted score.
type ScoreOutput struct {
	Key   string  `json:"key"`
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Level string  `json:"level"`
	Color string  `json:"color"`
}

// RedFlagOutput is one detected red flag.
type RedFlagOutput struct {
	Key            string `json:"key"`
	Severity       string `json:"severity"`
	Label          string `json:"label"`
	Recommendation string `json:"recommendation"`
	MatchCount     int    `json:"matchCount"`
}

// OutputAnalyzeBilan is the output for the AnalyzeBilan tool.
type OutputAnalyzeBilan struct {
	Scores     []ScoreOutput       `json:"scores"`
	RedFlags   []RedFlagOutput     `json:"redFlags"`
	Hypothesis analysis.Hypothesis `json:"hypothesis"`
}

// AnalyzeBilan analyzes the current record.
func (t *Tools) AnalyzeBilan(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, OutputAnalyzeBilan, error) {
	report, err := t.ws.Analyze()
	if err != nil {
		return nil, OutputAnalyzeBilan{}, err
	}
	out := OutputAnalyzeBilan{
		Scores:     make([]ScoreOutput, 0, len(report.Scores)),
		RedFlags:   make([]RedFlagOutput, 0, len(report.RedFlags)),
		Hypothesis: report.Hypothesis,
	}
	for _, s := range report.Scores {
		out.Scores = append(out.Scores, ScoreOutput{
			Key:   string(s.Key),
			Label: s.Label,
			Value: analysis.ParseScore(s.Value),
			Level: s.Level.Label,
			Color: string(s.Level.Color),
		})
	}
	for _, f := range report.RedFlags {
		out.RedFlags = append(out.RedFlags, RedFlagOutput{
			Key:            f.Key,
			Severity:       string(f.Category),
			Label:          f.Label,
			Recommendation: f.Recommendation,
			MatchCount:     f.MatchCount,
		})
	}
	return nil, out, nil
}

// ---------------------------------------------------------------------------
// export_bilan
// ---------------------------------------------------------------------------

// MetadataExportBilan describes the export_bilan tool.
var MetadataExportBilan = &mcp.Tool{
	Name: "export_bilan",
	Description: "Export the current assessment. Formats: csv, json, fhir (FHIR R5 collection bundle) " +
		"and xlsx. Text formats are returned as content; xlsx is returned base64-encoded.",
}

// InputExportBilan is the input for the ExportBilan tool.
type InputExportBilan struct {
	Format string `json:"format" jsonschema:"one of csv, xlsx, json, fhir"`
}

// OutputExportBilan is the output for the ExportBilan tool.
type OutputExportBilan struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
	Base64      bool   `json:"base64"`
}

// ExportBilan renders the current record.
func (t *Tools) ExportBilan(ctx context.Context, _ *mcp.CallToolRequest, input InputExportBilan) (*mcp.CallToolResult, OutputExportBilan, error) {
	f, err := export.ParseFormat(input.Format)
	if err != nil {
		return nil, OutputExportBilan{}, err
	}
	var buf bytes.Buffer
	name, err := t.ws.Export(&buf, f)
	if err != nil {
		return nil, OutputExportBilan{}, err
	}
	out := OutputExportBilan{FileName: name, ContentType: f.ContentType(), Content: buf.String()}
	if f.Binary() {
		out.Content = base64.StdEncoding.EncodeToString(buf.Bytes())
		out.Base64 = true
	}
	return nil, out, nil
}

// ---------------------------------------------------------------------------
// Timeline tools
// ---------------------------------------------------------------------------

// MetadataAddAssessment describes the add_assessment tool.
var MetadataAddAssessment = &mcp.Tool{
	Name: "add_assessment",
	Description: "Read the tracked measures (questionnaire scores and NRS pain ratings) from a visit report " +
		"and add the visit to the follow-up timeline. Date is YYYY-MM-DD and defaults to today.",
}

// InputAddAssessment is the input for the AddAssessment tool.
type InputAddAssessment struct {
	Content  string `json:"content" jsonschema:"text of the visit report"`
	Date     string `json:"date,omitempty" jsonschema:"visit date, YYYY-MM-DD"`
	Label    string `json:"label,omitempty" jsonschema:"display label, defaults to Suivi N"`
	FileName string `json:"fileName,omitempty"`
}

// OutputAssessment wraps one assessment.
type OutputAssessment struct {
	Assessment longitudinal.Assessment `json:"assessment"`
}

// AddAssessment adds a visit to the timeline.
func (t *Tools) AddAssessment(ctx context.Context, _ *mcp.CallToolRequest, input InputAddAssessment) (*mcp.CallToolResult, OutputAssessment, error) {
	a, err := t.ws.AddVisit(longitudinal.Visit{
		FileName: input.FileName,
		Date:     input.Date,
		Label:    input.Label,
		Content:  []byte(input.Content),
	})
	if err != nil {
		return nil, OutputAssessment{}, err
	}
	return nil, OutputAssessment{Assessment: a}, nil
}

// MetadataRemoveAssessment describes the remove_assessment tool.
var MetadataRemoveAssessment = &mcp.Tool{
	Name:        "remove_assessment",
	Description: "Remove one visit from the follow-up timeline by id.",
}

// InputRemoveAssessment is the input for the RemoveAssessment tool.
type InputRemoveAssessment struct {
	ID string `json:"id" jsonschema:"assessment id returned by add_assessment"`
}

// OutputRemoveAssessment is the output for the RemoveAssessment tool.
type OutputRemoveAssessment struct {
	Removed bool `json:"removed"`
}

// RemoveAssessment removes a visit.
func (t *Tools) RemoveAssessment(ctx context.Context, _ *mcp.CallToolRequest, input InputRemoveAssessment) (*mcp.CallToolResult, OutputRemoveAssessment, error) {
	if input.ID == "" {
		return nil, OutputRemoveAssessment{}, fmt.Errorf("id is required")
	}
	removed, err := t.ws.RemoveAssessment(input.ID)
	if err != nil {
		return nil, OutputRemoveAssessment{}, err
	}
	return nil, OutputRemoveAssessment{Removed: removed}, nil
}

// MetadataClearAssessments describes the clear_assessments tool.
var MetadataClearAssessments = &mcp.Tool{
	Name:        "clear_assessments",
	Description: "Remove every visit from the follow-up timeline.",
}

// OutputClearAssessments is the output for the ClearAssessments tool.
type OutputClearAssessments struct {
	Cleared bool `json:"cleared"`
}

// ClearAssessments empties the timeline.
func (t *Tools) ClearAssessments(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, OutputClearAssessments, error) {
	if err := t.ws.ClearAssessments(); err != nil {
		return nil, OutputClearAssessments{}, err
	}
	return nil, OutputClearAssessments{Cleared: true}, nil
}

// MetadataListTrends describes the list_trends tool.
var MetadataListTrends = &mcp.Tool{
	Name: "list_trends",
	Description: "List the follow-up timeline and, for every tracked measure, the change from the first " +
		"to the latest reading with its MCID significance and improvement direction.",
}

// OutputListTrends is the output for the ListTrends tool.
type OutputListTrends struct {
	Assessments []longitudinal.Assessment `json:"assessments"`
	Trends      []longitudinal.Trend      `json:"trends"`
}

// ListTrends returns the timeline and its trends.
func (t *Tools) ListTrends(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, OutputListTrends, error) {
	all := t.ws.Assessments()
	trends := longitudinal.Trends(all)
	if trends == nil {
		trends = []longitudinal.Trend{}
	}
	return nil, OutputListTrends{Assessments: all, Trends: trends}, nil
}

// plain converts v to generic JSON values through its JSON encoding.
func plain[T any](v any) (T, error) {
	var out T
	b, err := json.Marshal(v)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(b, &out)
	return out, err
}
