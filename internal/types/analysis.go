package types

import (
	"encoding/json"
	"fmt"
)

// Analysis keys as stored and served.
const (
	KeySummary        = "summary"
	KeyTags           = "tags"
	KeySpeakerRoles   = "speaker_roles"
	KeySentimentScore = "sentiment_score"
	KeySentimentLabel = "sentiment_label"
	KeyIntent         = "intent"
	KeyKeyInsights    = "key_insights"
)

// DefaultSentimentLabel is assumed when a record carries no label.
const DefaultSentimentLabel = "Neutral"

// Analysis is the structured output of the language model.
// Unset fields are omitted when serialized, so an empty Analysis encodes as {}.
// Keys outside the known set are kept in Extra and serialized inline.
type Analysis struct {
	Summary        *string
	Tags           []string
	SpeakerRoles   []string
	SentimentScore *float64
	SentimentLabel *string
	Intent         *string
	KeyInsights    []string
	Extra          map[string]any
}

func (a Analysis) Label() string {
	if a.SentimentLabel == nil || *a.SentimentLabel == "" {
		return DefaultSentimentLabel
	}
	return *a.SentimentLabel
}

func (a Analysis) Score() float64 {
	if a.SentimentScore == nil {
		return 0
	}
	return *a.SentimentScore
}

// TagList returns the system tags as a non-nil slice.
func (a Analysis) TagList() []string {
	if a.Tags == nil {
		return []string{}
	}
	out := make([]string, len(a.Tags))
	copy(out, a.Tags)
	return out
}

func (a Analysis) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(a.Extra)+7)
	for k, v := range a.Extra {
		m[k] = v
	}
	if a.Summary != nil {
		m[KeySummary] = *a.Summary
	}
	if a.Tags != nil {
		m[KeyTags] = a.Tags
	}
	if a.SpeakerRoles != nil {
		m[KeySpeakerRoles] = a.SpeakerRoles
	}
	if a.SentimentScore != nil {
		m[KeySentimentScore] = *a.SentimentScore
	}
	if a.SentimentLabel != nil {
		m[KeySentimentLabel] = *a.SentimentLabel
	}
	if a.Intent != nil {
		m[KeyIntent] = *a.Intent
	}
	if a.KeyInsights != nil {
		m[KeyKeyInsights] = a.KeyInsights
	}
	return json.Marshal(m)
}

func (a *Analysis) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*a = Analysis{}
	for k, v := range raw {
		if string(v) == "null" {
			continue
		}
		var err error
		switch k {
		case KeySummary:
			a.Summary = new(string)
			err = json.Unmarshal(v, a.Summary)
		case KeyTags:
			err = json.Unmarshal(v, &a.Tags)
		case KeySpeakerRoles:
			err = json.Unmarshal(v, &a.SpeakerRoles)
		case KeySentimentScore:
			a.SentimentScore = new(float64)
			err = json.Unmarshal(v, a.SentimentScore)
		case KeySentimentLabel:
			a.SentimentLabel = new(string)
			err = json.Unmarshal(v, a.SentimentLabel)
		case KeyIntent:
			a.Intent = new(string)
			err = json.Unmarshal(v, a.Intent)
		case KeyKeyInsights:
			err = json.Unmarshal(v, &a.KeyInsights)
		default:
			var x any
			err = json.Unmarshal(v, &x)
			if err == nil {
				if a.Extra == nil {
					a.Extra = map[string]any{}
				}
				a.Extra[k] = x
			}
		}
		if err != nil {
			return fmt.Errorf("analysis field %q: %w", k, err)
		}
	}
	return nil
}

// FileMetadata holds file-level facts captured at upload time.
type FileMetadata struct {
	SizeBytes int64
	LocalPath string
	Extra     map[string]any
}

func (f FileMetadata) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(f.Extra)+2)
	for k, v := range f.Extra {
		m[k] = v
	}
	m["file_size_bytes"] = f.SizeBytes
	m["local_path"] = f.LocalPath
	return json.Marshal(m)
}

func (f *FileMetadata) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*f = FileMetadata{}
	for k, v := range raw {
		var err error
		switch k {
		case "file_size_bytes":
			err = json.Unmarshal(v, &f.SizeBytes)
		case "local_path":
			err = json.Unmarshal(v, &f.LocalPath)
		default:
			var x any
			if err = json.Unmarshal(v, &x); err == nil {
				if f.Extra == nil {
					f.Extra = map[string]any{}
				}
				f.Extra[k] = x
			}
		}
		if err != nil {
			return fmt.Errorf("metadata field %q: %w", k, err)
		}
	}
	return nil
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }
