package api

import (
	"github.com/starford/marginalia/internal/annotationservice"
	"github.com/starford/marginalia/internal/models"
)

// AddAnnotationRequest is the request body for inserting a marker. With
// end > start the marker wraps that span; otherwise it is inserted at start.
type AddAnnotationRequest struct {
	Kind  string `json:"kind" example:"note" validate:"required"`
	Body  string `json:"body" example:"remember this" validate:"required"`
	Start int    `json:"start" example:"5"`
	End   int    `json:"end" example:"14"`
}

// EditAnnotationRequest is the request body for rewriting a marker.
type EditAnnotationRequest struct {
	Offset int     `json:"offset" example:"5"`
	Body   *string `json:"body,omitempty" example:"updated body"`
	Kind   *string `json:"kind,omitempty" example:"comment"`
}

// DocumentAnnotations is the list response for one document (aliased from the domain layer).
type DocumentAnnotations = annotationservice.DocumentAnnotations

// Change is returned by every mutation (aliased from the domain layer).
type Change = annotationservice.Change

// AnnotationListResponse wraps vault-wide annotation listings.
type AnnotationListResponse struct {
	Annotations []models.Annotation `json:"annotations" validate:"required"`
	Total       int                 `json:"total" example:"42" validate:"required"`
}

// DocumentListResponse wraps the indexed documents.
type DocumentListResponse struct {
	Documents []annotationservice.DocumentSummary `json:"documents" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []models.SearchHit `json:"results" validate:"required"`
}

// BackendsResponse lists export backends per annotation kind.
type BackendsResponse struct {
	Backends map[string][]string `json:"backends" validate:"required"`
}
