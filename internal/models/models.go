// Package models defines the records exchanged between the vault, the
// index and the outer surfaces.
package models

import "time"

// DocumentMetadata is a lightweight representation returned by list
// operations.
type DocumentMetadata struct {
	Path      string    `json:"path"`
	Title     string    `json:"title,omitempty"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Annotation is one note or comment marker as stored in the index and
// returned over the API.
type Annotation struct {
	Path    string `json:"path"`
	Kind    string `json:"kind"`
	Body    string `json:"body"`
	Text    string `json:"text"`
	HasText bool   `json:"has_text"`
	Heading string `json:"heading,omitempty"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Offset  int    `json:"offset"`
}

// SearchHit is an annotation matched by a full-text query.
type SearchHit struct {
	Annotation
	Snippet string `json:"snippet,omitempty"`
}
