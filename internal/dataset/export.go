package dataset

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"call-insights-go/internal/aggregator"
	"call-insights-go/internal/types"
)

const (
	callsSheet   = "Calls"
	summarySheet = "Summary"
)

var callsHeader = []any{
	"ID", "Filename", "Uploaded (UTC)", "Summary", "Sentiment Label", "Sentiment Score",
	"Intent", "Tags", "Custom Tags", "Key Insights", "Transcript", "File Size (bytes)",
}

// WriteWorkbook writes recs, in the given order, as an XLSX workbook with a
// Calls sheet and a Summary sheet built from the same records.
func WriteWorkbook(w io.Writer, recs []types.CallRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", callsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	if err := f.SetSheetRow(callsSheet, "A1", &callsHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := f.SetRowStyle(callsSheet, 1, 1, bold); err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	for i, rec := range recs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := callRow(rec)
		if err := f.SetSheetRow(callsSheet, cell, &row); err != nil {
			return fmt.Errorf("write call %d: %w", rec.ID, err)
		}
	}
	_ = f.SetColWidth(callsSheet, "B", "B", 28)
	_ = f.SetColWidth(callsSheet, "D", "D", 60)
	_ = f.SetColWidth(callsSheet, "K", "K", 80)

	if err := writeSummary(f, aggregator.Aggregate(recs), bold); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func callRow(rec types.CallRecord) []any {
	a := rec.Analysis.Data()
	transcript := ""
	if rec.Transcript != nil {
		transcript = *rec.Transcript
	}
	return []any{
		rec.ID,
		rec.Filename,
		rec.UploadTimestamp.UTC().Format(time.RFC3339),
		deref(a.Summary),
		a.Label(),
		a.Score(),
		deref(a.Intent),
		strings.Join(rec.Tags, ", "),
		strings.Join(rec.CustomTags, ", "),
		strings.Join(a.KeyInsights, "\n"),
		transcript,
		rec.FileMetadata.Data().SizeBytes,
	}
}

func writeSummary(f *excelize.File, an aggregator.Analytics, bold int) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("summary sheet: %w", err)
	}
	rows := [][]any{
		{"Metric", "Value"},
		{"Total Calls", an.TotalCalls},
		{"Average Sentiment", an.AvgSentiment},
	}
	for _, label := range []string{"Positive", "Neutral", "Negative"} {
		rows = append(rows, []any{label + " Calls", an.SentimentDistribution[label]})
	}
	for _, tc := range an.TopTags {
		rows = append(rows, []any{"Tag: " + tc.Tag, tc.Count})
	}
	for i, row := range rows {
		if err := f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", i+1), &row); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}
	_ = f.SetColWidth(summarySheet, "A", "A", 24)
	return f.SetRowStyle(summarySheet, 1, 1, bold)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
