package dataset

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
	"gorm.io/datatypes"

	"call-insights-go/internal/types"
)

func TestWriteWorkbook(t *testing.T) {
	recs := []types.CallRecord{
		{
			ID:              7,
			Filename:        "call.wav",
			UploadTimestamp: time.Date(2025, 12, 1, 9, 30, 0, 0, time.UTC),
			Transcript:      types.Ptr("Agent: hello"),
			Analysis: datatypes.NewJSONType(types.Analysis{
				Summary:        types.Ptr("Upgrade request."),
				SentimentScore: types.Ptr(0.5),
				SentimentLabel: types.Ptr("Positive"),
				KeyInsights:    []string{"ready", "no objection"},
			}),
			Tags:         []string{"sales", "upgrade"},
			CustomTags:   []string{"vip"},
			FileMetadata: datatypes.NewJSONType(types.FileMetadata{SizeBytes: 2048}),
		},
		{ID: 8, Filename: "empty.mp3"},
	}

	var buf bytes.Buffer
	if err := WriteWorkbook(&buf, recs); err != nil {
		t.Fatalf("write: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(callsSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d", len(rows))
	}
	if rows[0][0] != "ID" || rows[0][11] != "File Size (bytes)" {
		t.Fatalf("header = %v", rows[0])
	}
	first := rows[1]
	checks := map[int]string{
		0: "7", 1: "call.wav", 2: "2025-12-01T09:30:00Z", 3: "Upgrade request.",
		4: "Positive", 7: "sales, upgrade", 8: "vip", 9: "ready\nno objection",
		10: "Agent: hello", 11: "2048",
	}
	for col, want := range checks {
		if first[col] != want {
			t.Errorf("col %d = %q, want %q", col, first[col], want)
		}
	}
	if rows[2][4] != "Neutral" {
		t.Errorf("unlabeled call should read Neutral, got %q", rows[2][4])
	}

	summary, err := f.GetRows(summarySheet)
	if err != nil {
		t.Fatal(err)
	}
	if summary[1][0] != "Total Calls" || summary[1][1] != "2" {
		t.Fatalf("summary = %v", summary)
	}
}
