// Package annotationservice coordinates vault documents, the annotation
// codec and the index for the CLI, the HTTP API and the MCP server.
package annotationservice

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/starford/marginalia/internal/annotation"
	"github.com/starford/marginalia/internal/apperr"
	"github.com/starford/marginalia/internal/checksum"
	"github.com/starford/marginalia/internal/document"
	"github.com/starford/marginalia/internal/export"
	"github.com/starford/marginalia/internal/index"
	"github.com/starford/marginalia/internal/listview"
	"github.com/starford/marginalia/internal/models"
	"github.com/starford/marginalia/internal/orgdoc"
	"github.com/starford/marginalia/internal/storage"
)

// Change describes a committed mutation.
type Change struct {
	Action   string            `json:"action"`
	Path     string            `json:"path"`
	Checksum string            `json:"checksum"`
	Marker   models.Annotation `json:"annotation"`
}

// ChangeHook is called after every committed mutation.
type ChangeHook func(Change)

// Service coordinates storage, index and export operations.
type Service struct {
	store      storage.Provider
	db         index.AnnotationIndex
	dispatcher *export.Dispatcher
	listOpts   listview.Options
	kinds      []annotation.Kind
	onChange   ChangeHook

	// mu serializes read-modify-write cycles on documents.
	mu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithDispatcher sets the export dispatcher.
func WithDispatcher(d *export.Dispatcher) Option {
	return func(s *Service) { s.dispatcher = d }
}

// WithListOptions sets the layout of table and list output.
func WithListOptions(o listview.Options) Option {
	return func(s *Service) { s.listOpts = o }
}

// WithDefaultKinds limits requests that name no kinds to kinds.
func WithDefaultKinds(kinds []annotation.Kind) Option {
	return func(s *Service) { s.kinds = kinds }
}

// WithChangeHook registers fn to observe mutations.
func WithChangeHook(fn ChangeHook) Option {
	return func(s *Service) { s.onChange = fn }
}

// NewService creates a new annotation service.
func NewService(store storage.Provider, db index.AnnotationIndex, opts ...Option) *Service {
	s := &Service{store: store, db: db}
	for _, opt := range opts {
		opt(s)
	}
	if s.dispatcher == nil {
		s.dispatcher = export.NewDispatcher(export.WithDefaults(export.Config{}))
	}
	return s
}

// Dispatcher returns the export dispatcher in use.
func (s *Service) Dispatcher() *export.Dispatcher { return s.dispatcher }

// kindsOr returns kinds, or the configured default when kinds is empty.
func (s *Service) kindsOr(kinds []annotation.Kind) []annotation.Kind {
	if len(kinds) == 0 {
		return s.kinds
	}
	return kinds
}

// load reads path into a fresh buffer and returns its checksum.
func (s *Service) load(path string) (*document.Buffer, string, error) {
	if path == "" {
		return nil, "", fmt.Errorf("annotationservice: path is required: %w", apperr.ErrNotFound)
	}
	if !s.store.IsDocument(path) {
		return nil, "", fmt.Errorf("annotationservice: %s is not an org document: %w", path, apperr.ErrNotFound)
	}
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", fmt.Errorf("annotationservice: %s: %w", path, apperr.ErrNotFound)
		}
		return nil, "", err
	}
	return document.New(path, string(data)), checksum.Sum(data), nil
}

// commit writes the buffer back, reindexes it and notifies the hook.
func (s *Service) commit(buf *document.Buffer, action string, marker models.Annotation) (*Change, error) {
	data := []byte(buf.Text())
	if err := s.store.Write(buf.Name(), data); err != nil {
		return nil, err
	}
	if err := index.IndexDocument(s.db, buf.Name(), data); err != nil {
		return nil, fmt.Errorf("annotationservice: reindex %s: %w", buf.Name(), err)
	}
	ch := &Change{Action: action, Path: buf.Name(), Checksum: checksum.Sum(data), Marker: marker}
	if s.onChange != nil {
		s.onChange(*ch)
	}
	return ch, nil
}

func checkMatch(ifMatch, current string) error {
	if !checksum.Matches(ifMatch, current) {
		return fmt.Errorf("annotationservice: document changed since %.12s: %w", ifMatch, apperr.ErrConflict)
	}
	return nil
}

func scopeFor(buf *document.Buffer, heading string) (annotation.Scope, error) {
	if heading == "" {
		return annotation.WholeDocument(buf), nil
	}
	return annotation.SubtreeByTitle(buf, heading)
}

// ListRequest selects the annotations of one document.
type ListRequest struct {
	Path    string
	Heading string
	Kinds   []annotation.Kind
}

// DocumentAnnotations is the result of List.
type DocumentAnnotations struct {
	Path        string              `json:"path"`
	Scope       string              `json:"scope"`
	Checksum    string              `json:"checksum"`
	Annotations []models.Annotation `json:"annotations"`
}

// List scans a document, or one heading subtree of it, for annotations.
func (s *Service) List(_ context.Context, req ListRequest) (*DocumentAnnotations, error) {
	buf, sum, err := s.load(req.Path)
	if err != nil {
		return nil, err
	}
	scope, err := scopeFor(buf, req.Heading)
	if err != nil {
		return nil, err
	}
	found, err := annotation.NewScanner(s.kindsOr(req.Kinds)...).Collect(buf, scope)
	if err != nil {
		return nil, err
	}
	out := &DocumentAnnotations{
		Path:        req.Path,
		Scope:       scope.Key(),
		Checksum:    sum,
		Annotations: make([]models.Annotation, 0, len(found)),
	}
	for _, loc := range found {
		out.Annotations = append(out.Annotations, index.Record(req.Path, buf.Text(), loc))
	}
	return out, nil
}

// View builds the aggregate list view of a document scope, sorted by col.
func (s *Service) View(_ context.Context, req ListRequest, col listview.Column, desc bool) (*listview.View, error) {
	buf, _, err := s.load(req.Path)
	if err != nil {
		return nil, err
	}
	scope, err := scopeFor(buf, req.Heading)
	if err != nil {
		return nil, err
	}
	v, err := listview.Build(buf, scope, annotation.NewScanner(s.kindsOr(req.Kinds)...), s.listOpts)
	if err != nil {
		return nil, err
	}
	v.Sort(col, desc)
	return v, nil
}

// Views opens one aggregate view per heading of a document, or one for the
// whole document when headings is empty. Scopes without annotations are
// closed and left out of the returned store; callers close the rest.
func (s *Service) Views(_ context.Context, path string, headings []string, kinds []annotation.Kind, col listview.Column, desc bool) (*listview.Store, error) {
	buf, _, err := s.load(path)
	if err != nil {
		return nil, err
	}
	if len(headings) == 0 {
		headings = []string{""}
	}
	views := listview.NewStore(annotation.NewScanner(s.kindsOr(kinds)...), s.listOpts)
	for _, h := range headings {
		scope, err := scopeFor(buf, h)
		if err != nil {
			views.CloseAll()
			return nil, err
		}
		v, ok, err := views.Open(buf, scope)
		if err != nil {
			views.CloseAll()
			return nil, err
		}
		if ok {
			v.Sort(col, desc)
		}
	}
	return views, nil
}

// Table renders the annotations of a scope as tab-separated text, or as an
// aligned Org table when org is set.
func (s *Service) Table(ctx context.Context, req ListRequest, org bool) (string, error) {
	v, err := s.View(ctx, req, listview.ColumnPosition, false)
	if err != nil {
		return "", err
	}
	defer v.Close()
	if org {
		return v.ToOrgTable(), nil
	}
	return v.ToTable(), nil
}

// AddRequest inserts a marker. With End > Start the marker wraps the text
// between them; otherwise it is inserted at Start without text.
type AddRequest struct {
	Path    string
	Kind    annotation.Kind
	Body    string
	Start   int
	End     int
	IfMatch string
}

// Add inserts a marker and writes the document back.
func (s *Service) Add(_ context.Context, req AddRequest) (*Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf, sum, err := s.load(req.Path)
	if err != nil {
		return nil, err
	}
	if err := checkMatch(req.IfMatch, sum); err != nil {
		return nil, err
	}
	if req.Start < 0 || req.Start > buf.Len() || req.End > buf.Len() {
		return nil, fmt.Errorf("annotationservice: offset %d..%d outside %s: %w", req.Start, req.End, req.Path, apperr.ErrOutOfRange)
	}
	if req.End != 0 && req.End < req.Start {
		return nil, fmt.Errorf("annotationservice: region end %d before start %d: %w", req.End, req.Start, apperr.ErrOutOfRange)
	}
	if !buf.RuneBoundary(req.Start) || (req.End > req.Start && !buf.RuneBoundary(req.End)) {
		return nil, fmt.Errorf("annotationservice: offset %d..%d splits a character in %s: %w", req.Start, req.End, req.Path, apperr.ErrOutOfRange)
	}
	if req.End > req.Start {
		buf.SetRegion(document.Range{Start: req.Start, End: req.End})
	} else {
		buf.SetPoint(req.Start)
	}
	loc, err := annotation.NewMutator().Insert(buf, req.Kind, req.Body)
	if err != nil {
		return nil, err
	}
	return s.commit(buf, "added", index.Record(req.Path, buf.Text(), loc))
}

// MarkerRequest addresses the marker whose link contains Offset.
type MarkerRequest struct {
	Path    string
	Offset  int
	Kinds   []annotation.Kind
	IfMatch string
}

func (s *Service) pointAt(req MarkerRequest) (*document.Buffer, string, error) {
	buf, sum, err := s.load(req.Path)
	if err != nil {
		return nil, "", err
	}
	if !buf.RuneBoundary(req.Offset) {
		return nil, "", fmt.Errorf("annotationservice: offset %d outside %s or inside a character: %w", req.Offset, req.Path, apperr.ErrOutOfRange)
	}
	buf.SetPoint(req.Offset)
	return buf, sum, nil
}

// Show returns the marker at an offset without changing the document.
func (s *Service) Show(_ context.Context, req MarkerRequest) (*models.Annotation, error) {
	buf, _, err := s.pointAt(req)
	if err != nil {
		return nil, err
	}
	loc, _, err := annotation.NewMutator(s.kindsOr(req.Kinds)...).At(buf)
	if err != nil {
		return nil, err
	}
	rec := index.Record(req.Path, buf.Text(), loc)
	return &rec, nil
}

// EditRequest rewrites the marker at Offset. Nil fields keep their value.
type EditRequest struct {
	MarkerRequest
	Body *string
	Kind *annotation.Kind
}

// Edit changes the body or kind of a marker in place.
func (s *Service) Edit(_ context.Context, req EditRequest) (*Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf, sum, err := s.pointAt(req.MarkerRequest)
	if err != nil {
		return nil, err
	}
	if err := checkMatch(req.IfMatch, sum); err != nil {
		return nil, err
	}
	loc, err := annotation.NewMutator(s.kindsOr(req.Kinds)...).Edit(buf, func(m annotation.Marker) annotation.Marker {
		if req.Body != nil {
			m.Body = *req.Body
		}
		if req.Kind != nil {
			m.Kind = *req.Kind
		}
		return m
	})
	if err != nil {
		return nil, err
	}
	return s.commit(buf, "edited", index.Record(req.Path, buf.Text(), loc))
}

// Delete removes the marker at Offset, keeping its annotated text.
func (s *Service) Delete(_ context.Context, req MarkerRequest) (*Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf, sum, err := s.pointAt(req)
	if err != nil {
		return nil, err
	}
	if err := checkMatch(req.IfMatch, sum); err != nil {
		return nil, err
	}
	m, err := annotation.NewMutator(s.kindsOr(req.Kinds)...).Delete(buf)
	if err != nil {
		return nil, err
	}
	line, col := orgdoc.LineCol(buf.Text(), buf.Point())
	rec := models.Annotation{
		Path:    req.Path,
		Kind:    m.Kind.String(),
		Body:    m.Body,
		Text:    m.Text,
		HasText: m.HasText,
		Line:    line,
		Column:  col,
		Offset:  buf.Point(),
	}
	return s.commit(buf, "deleted", rec)
}

// Export renders a document for backend. Unknown backends keep only the
// annotated text.
func (s *Service) Export(_ context.Context, path, backend string) (string, error) {
	buf, _, err := s.load(path)
	if err != nil {
		return "", err
	}
	return s.dispatcher.ExportBuffer(backend, buf), nil
}

// Search queries annotation bodies and texts across the vault.
func (s *Service) Search(_ context.Context, query string, kinds []annotation.Kind, limit int) ([]models.SearchHit, error) {
	hits, err := s.db.Search(query, kindNames(s.kindsOr(kinds)), limit)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(hits), nil
}

// VaultAnnotations lists indexed annotations across all documents.
func (s *Service) VaultAnnotations(_ context.Context, kinds []annotation.Kind) ([]models.Annotation, error) {
	anns, err := s.db.Annotations("", kindNames(s.kindsOr(kinds)))
	if err != nil {
		return nil, err
	}
	return nonNilSlice(anns), nil
}

// DocumentSummary is one indexed document.
type DocumentSummary struct {
	models.DocumentMetadata
	Annotations int `json:"annotations"`
}

// Documents lists the indexed documents.
func (s *Service) Documents(_ context.Context) ([]DocumentSummary, error) {
	rows, err := s.db.ListDocuments()
	if err != nil {
		return nil, err
	}
	out := make([]DocumentSummary, len(rows))
	for i, r := range rows {
		out[i] = DocumentSummary{
			DocumentMetadata: models.DocumentMetadata{
				Path:      r.Path,
				Title:     r.Title,
				Checksum:  r.Checksum,
				UpdatedAt: r.UpdatedAt,
			},
			Annotations: r.Annotations,
		}
	}
	return out, nil
}

func kindNames(kinds []annotation.Kind) []string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return names
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
