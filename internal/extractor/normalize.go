package extractor

import (
	"math"
	"strconv"
	"strings"

	"call-insights-go/internal/types"
)

// Accepted spellings per field, tried in order. Model output casing is not stable.
var (
	summaryKeys        = []string{"Summary", "summary"}
	tagsKeys           = []string{"Tags", "tags"}
	speakerRolesKeys   = []string{"Speaker Roles", "speaker_roles", "speakerRoles"}
	sentimentScoreKeys = []string{"Sentiment Score", "sentiment_score", "sentimentScore"}
	sentimentLabelKeys = []string{"Sentiment Label", "sentiment_label", "sentimentLabel"}
	intentKeys         = []string{"Intent", "intent"}
	keyInsightsKeys    = []string{"Key Insights", "key_insights", "keyInsights"}
)

var knownKeys = func() map[string]struct{} {
	m := map[string]struct{}{}
	for _, group := range [][]string{summaryKeys, tagsKeys, speakerRolesKeys, sentimentScoreKeys, sentimentLabelKeys, intentKeys, keyInsightsKeys} {
		for _, k := range group {
			m[k] = struct{}{}
		}
	}
	return m
}()

// Normalize maps raw model output onto Analysis. Every known field is always
// set; a field whose aliases are all missing or malformed gets its default.
// Unrecognized keys are kept in Extra.
func Normalize(raw map[string]any) types.Analysis {
	a := types.Analysis{
		Summary:        types.Ptr(stringField(raw, summaryKeys, "")),
		Tags:           listField(raw, tagsKeys),
		SpeakerRoles:   listField(raw, speakerRolesKeys),
		SentimentScore: types.Ptr(floatField(raw, sentimentScoreKeys, 0.0)),
		SentimentLabel: types.Ptr(stringField(raw, sentimentLabelKeys, types.DefaultSentimentLabel)),
		Intent:         types.Ptr(stringField(raw, intentKeys, "Unknown")),
		KeyInsights:    listField(raw, keyInsightsKeys),
	}
	for k, v := range raw {
		if _, ok := knownKeys[k]; ok {
			continue
		}
		if a.Extra == nil {
			a.Extra = map[string]any{}
		}
		a.Extra[k] = v
	}
	return a
}

func stringField(raw map[string]any, keys []string, def string) string {
	for _, k := range keys {
		if s, ok := raw[k].(string); ok {
			return s
		}
	}
	return def
}

// floatField accepts numbers and numeric strings. NaN and infinities cannot be
// stored as JSON, so they are treated as malformed.
func floatField(raw map[string]any, keys []string, def float64) float64 {
	for _, k := range keys {
		var f float64
		switch v := raw[k].(type) {
		case float64:
			f = v
		case string:
			parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				continue
			}
			f = parsed
		default:
			continue
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		return f
	}
	return def
}

// listField accepts a JSON array of strings; non-string elements are dropped.
func listField(raw map[string]any, keys []string) []string {
	for _, k := range keys {
		items, ok := raw[k].([]any)
		if !ok {
			continue
		}
		out := make([]string, 0, len(items))
		for _, it := range items {
			if s, ok := it.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return []string{}
}
