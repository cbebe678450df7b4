package types

import (
	"encoding/json"
	"testing"
)

func TestEmptyAnalysisEncodesAsObject(t *testing.T) {
	b, err := json.Marshal(Analysis{})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "{}" {
		t.Fatalf("got %s", b)
	}
}

func TestAnalysisKeepsUnknownKeys(t *testing.T) {
	in := `{"summary":"s","tags":["a"],"sentiment_score":-0.2,"language":"es"}`
	var a Analysis
	if err := json.Unmarshal([]byte(in), &a); err != nil {
		t.Fatal(err)
	}
	if *a.Summary != "s" || a.Score() != -0.2 || a.Label() != DefaultSentimentLabel {
		t.Fatalf("decoded %+v", a)
	}
	if a.Extra["language"] != "es" {
		t.Fatalf("extra = %v", a.Extra)
	}

	out, err := json.Marshal(a)
	if err != nil {
		t.Fatal(err)
	}
	var back map[string]any
	_ = json.Unmarshal(out, &back)
	if back["language"] != "es" || back["summary"] != "s" {
		t.Fatalf("re-encoded %s", out)
	}
	if _, ok := back["intent"]; ok {
		t.Fatalf("unset field serialized: %s", out)
	}
}

func TestAnalysisRejectsWrongTypes(t *testing.T) {
	var a Analysis
	if err := json.Unmarshal([]byte(`{"tags":"sales"}`), &a); err == nil {
		t.Fatal("expected error for non-list tags")
	}
}

func TestTagListIsACopy(t *testing.T) {
	a := Analysis{Tags: []string{"x"}}
	l := a.TagList()
	l[0] = "y"
	if a.Tags[0] != "x" {
		t.Fatal("TagList aliases the analysis")
	}
	if (Analysis{}).TagList() == nil {
		t.Fatal("nil tag list")
	}
}

func TestExportDocument(t *testing.T) {
	rec := CallRecord{Filename: "c.wav"}
	rec.normalize()
	b, err := json.Marshal(rec.Export())
	if err != nil {
		t.Fatal(err)
	}
	want := `{"filename":"c.wav","timestamp":"0001-01-01T00:00:00Z","transcript":null,"analysis":{},"system_tags":[],"user_tags":[]}`
	if string(b) != want {
		t.Fatalf("got  %s\nwant %s", b, want)
	}
}
