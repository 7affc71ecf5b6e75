package model

import "time"

// RawRecord is a single hit returned by a Source. extracted_fields stays
// string-keyed because sources are open-ended and schema-agnostic; raw_data
// is an opaque blob the core never interprets.
type RawRecord struct {
	SourceName      string            `json:"source_name"`
	RecordID        string            `json:"record_id"` // unique within SourceName
	RecordType      string            `json:"record_type"`
	URL             string            `json:"url,omitempty"`
	ExtractedFields map[string]string `json:"extracted_fields"`
	RawData         []byte            `json:"raw_data,omitempty"`
	ConfidenceHint  *float64          `json:"confidence_hint,omitempty"` // 0..1; nil defaults to 0.5 downstream
	AccessedAt      time.Time         `json:"accessed_at"`
}

// Confidence returns ConfidenceHint or the 0.5 default when unset.
func (r RawRecord) Confidence() float64 {
	if r.ConfidenceHint == nil {
		return 0.5
	}
	return *r.ConfidenceHint
}

// Field returns the named extracted field, or "" with ok=false when absent
// or empty.
func (r RawRecord) Field(name string) (string, bool) {
	v, ok := r.ExtractedFields[name]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
