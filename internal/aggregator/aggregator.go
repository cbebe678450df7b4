package aggregator

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strconv"

	"call-insights-go/internal/types"
)

const topTagLimit = 5

// Analytics summarizes every stored call.
type Analytics struct {
	TotalCalls            int            `json:"total_calls"`
	AvgSentiment          float64        `json:"avg_sentiment"`
	SentimentDistribution map[string]int `json:"sentiment_distribution"`
	TopTags               TopTags        `json:"top_tags"`
}

type TagCount struct {
	Tag   string
	Count int
}

// TopTags serializes as a JSON object in rank order. A nil TopTags (no calls
// at all) serializes as [] to keep the empty response shape stable for clients.
type TopTags []TagCount

func (t TopTags) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("[]"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, tc := range t {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(tc.Tag)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(tc.Count))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Aggregate computes analytics over records. Calls without a sentiment label
// count as Neutral and a missing score counts as 0.
func Aggregate(records []types.CallRecord) Analytics {
	out := Analytics{
		TotalCalls: len(records),
		SentimentDistribution: map[string]int{
			"Positive": 0,
			"Neutral":  0,
			"Negative": 0,
		},
	}
	if len(records) == 0 {
		return out
	}

	sum := 0.0
	counts := map[string]int{}
	for _, r := range records {
		a := r.Analysis.Data()
		sum += a.Score()
		out.SentimentDistribution[a.Label()]++
		for _, t := range r.Tags {
			counts[t]++
		}
		for _, t := range r.CustomTags {
			counts[t]++
		}
	}
	out.AvgSentiment = math.Round(sum/float64(len(records))*100) / 100
	out.TopTags = rank(counts, topTagLimit)
	return out
}

// rank orders tags by count descending, then alphabetically.
func rank(counts map[string]int, limit int) TopTags {
	ranked := make(TopTags, 0, len(counts))
	for tag, n := range counts {
		ranked = append(ranked, TagCount{Tag: tag, Count: n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Tag < ranked[j].Tag
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
