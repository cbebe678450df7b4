package types

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CallRecord is one uploaded call and everything derived from it.
type CallRecord struct {
	ID              uint                             `gorm:"primaryKey" json:"id"`
	Filename        string                           `gorm:"index;not null" json:"filename"`
	UploadTimestamp time.Time                        `gorm:"index;not null" json:"upload_timestamp"`
	Transcript      *string                          `gorm:"type:text" json:"transcript"`
	Analysis        datatypes.JSONType[Analysis]     `gorm:"column:analysis_json" json:"analysis_json"`
	Tags            datatypes.JSONSlice[string]      `gorm:"column:tags" json:"tags"`
	CustomTags      datatypes.JSONSlice[string]      `gorm:"column:custom_tags" json:"custom_tags"`
	FileMetadata    datatypes.JSONType[FileMetadata] `gorm:"column:metadata_json" json:"metadata_json"`
}

func (CallRecord) TableName() string { return "calls" }

func (c *CallRecord) BeforeCreate(_ *gorm.DB) error {
	if c.UploadTimestamp.IsZero() {
		c.UploadTimestamp = time.Now().UTC()
	}
	c.normalize()
	return nil
}

func (c *CallRecord) AfterFind(_ *gorm.DB) error {
	c.normalize()
	return nil
}

// normalize keeps tag lists serializable as [] rather than null.
func (c *CallRecord) normalize() {
	if c.Tags == nil {
		c.Tags = datatypes.JSONSlice[string]{}
	}
	if c.CustomTags == nil {
		c.CustomTags = datatypes.JSONSlice[string]{}
	}
}

// HasTag reports whether tag is present as a system or a custom tag.
func (c *CallRecord) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	for _, t := range c.CustomTags {
		if t == tag {
			return true
		}
	}
	return false
}

// Export is the downloadable JSON document for a single call.
type Export struct {
	Filename   string   `json:"filename"`
	Timestamp  string   `json:"timestamp"`
	Transcript *string  `json:"transcript"`
	Analysis   Analysis `json:"analysis"`
	SystemTags []string `json:"system_tags"`
	UserTags   []string `json:"user_tags"`
}

func (c *CallRecord) Export() Export {
	return Export{
		Filename:   c.Filename,
		Timestamp:  c.UploadTimestamp.Format(time.RFC3339),
		Transcript: c.Transcript,
		Analysis:   c.Analysis.Data(),
		SystemTags: nonNil(c.Tags),
		UserTags:   nonNil(c.CustomTags),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
