package database

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// ImageRecord describes one stored image. The filename identifies the record and is the
// key of the metadata document, so it is not part of the serialized value.
type ImageRecord struct {
	Filename       string    `json:"-"`
	Width          int       `json:"width"`
	Height         int       `json:"height"`
	Prompt         string    `json:"prompt"`
	Model          string    `json:"model"`
	GenerationTime float64   `json:"generation_time"`
	Created        time.Time `json:"created"`
}

// legacyTimestampLayouts are accepted for records written without a zone offset.
var legacyTimestampLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

type imageRecordJSON struct {
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	Prompt         string  `json:"prompt"`
	Model          string  `json:"model"`
	GenerationTime float64 `json:"generation_time"`
	Created        string  `json:"created"`
}

func (r ImageRecord) MarshalJSON() ([]byte, error) {
	raw := imageRecordJSON{
		Width:          r.Width,
		Height:         r.Height,
		Prompt:         r.Prompt,
		Model:          r.Model,
		GenerationTime: r.GenerationTime,
	}
	if !r.Created.IsZero() {
		raw.Created = r.Created.Format(time.RFC3339Nano)
	}
	return json.Marshal(raw)
}

func (r *ImageRecord) UnmarshalJSON(data []byte) error {
	var raw imageRecordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = ImageRecord{
		Filename:       r.Filename,
		Width:          raw.Width,
		Height:         raw.Height,
		Prompt:         raw.Prompt,
		Model:          raw.Model,
		GenerationTime: raw.GenerationTime,
		Created:        ParseTimestamp(raw.Created),
	}
	return nil
}

// ParseTimestamp reads RFC 3339 timestamps and the zone-less ISO 8601 variants written
// by older versions, which are interpreted as local time. Unparsable input yields the
// zero time.
func ParseTimestamp(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	for _, layout := range legacyTimestampLayouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}

// SortNewestFirst orders records by creation time, newest first. Equal timestamps are
// ordered by filename so listings are stable.
func SortNewestFirst(records []ImageRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].Created.Equal(records[j].Created) {
			return records[i].Created.After(records[j].Created)
		}
		return records[i].Filename < records[j].Filename
	})
}

func recordsFromMap(m map[string]ImageRecord) []ImageRecord {
	records := make([]ImageRecord, 0, len(m))
	for filename, record := range m {
		record.Filename = filename
		records = append(records, record)
	}
	SortNewestFirst(records)
	return records
}
