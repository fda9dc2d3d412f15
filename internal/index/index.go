package index

import "github.com/starford/marginalia/internal/models"

// AnnotationIndex defines the interface for annotation indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type AnnotationIndex interface {
	UpsertDocument(d DocumentRow, anns []models.Annotation) error
	DeleteDocument(path string) error
	GetChecksum(path string) (string, error)
	ListDocuments() ([]DocumentRow, error)
	Annotations(path string, kinds []string) ([]models.Annotation, error)
	Search(query string, kinds []string, limit int) ([]models.SearchHit, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies AnnotationIndex at compile time.
var _ AnnotationIndex = (*DB)(nil)
