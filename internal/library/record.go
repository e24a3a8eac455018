package library

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// SavedVideo is a library entry. ID is the 1-based position in the stored array
// and is never persisted, so removing an entry renumbers everything after it.
type SavedVideo struct {
	ID           int    `json:"id"`
	URI          string `json:"uri"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Source       string `json:"source,omitempty"`
	StartSeconds *int   `json:"start_seconds,omitempty"`
	EndSeconds   *int   `json:"end_seconds,omitempty"`
}

// HasRange reports whether the entry knows the source range it was cut from.
func (v SavedVideo) HasRange() bool {
	return v.Source != "" && v.StartSeconds != nil && v.EndSeconds != nil
}

// NewVideo is what callers hand to Save.
type NewVideo struct {
	URI          string
	Title        string
	Description  string
	Source       string
	StartSeconds *int
	EndSeconds   *int
}

// storedRecord is the on-disk object shape.
type storedRecord struct {
	URI          string `json:"uri"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Source       string `json:"source,omitempty"`
	StartSeconds *int   `json:"start_seconds,omitempty"`
	EndSeconds   *int   `json:"end_seconds,omitempty"`
}

// entry is one stored array element: either a legacy bare URI string or an object.
type entry struct {
	legacy *string
	record *storedRecord
}

func (e *entry) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty element")
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		e.legacy = &s
		return nil
	case '{':
		var r storedRecord
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		e.record = &r
		return nil
	default:
		return fmt.Errorf("unsupported element %.20s", data)
	}
}

// normalize converts the element at position i into the canonical record.
func (e entry) normalize(i int) SavedVideo {
	id := i + 1
	if e.legacy != nil {
		return SavedVideo{
			ID:    id,
			URI:   *e.legacy,
			Title: fmt.Sprintf("Video %d", id),
		}
	}
	r := e.record
	return SavedVideo{
		ID:           id,
		URI:          r.URI,
		Title:        r.Title,
		Description:  r.Description,
		Source:       r.Source,
		StartSeconds: r.StartSeconds,
		EndSeconds:   r.EndSeconds,
	}
}

func (v NewVideo) stored() storedRecord {
	return storedRecord{
		URI:          v.URI,
		Title:        v.Title,
		Description:  v.Description,
		Source:       v.Source,
		StartSeconds: v.StartSeconds,
		EndSeconds:   v.EndSeconds,
	}
}
