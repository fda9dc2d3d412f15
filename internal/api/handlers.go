package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/marginalia/internal/annotation"
	"github.com/starford/marginalia/internal/annotationservice"
	"github.com/starford/marginalia/internal/checksum"
)

// Handler holds API route handlers.
type Handler struct {
	svc *annotationservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *annotationservice.Service) *Handler {
	return &Handler{svc: svc}
}

// docPath extracts the document path from the URL wildcard.
// Supports encoded slashes from OpenAPI clients (e.g. papers%2Fdraft.org).
func docPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// queryKinds parses ?kind=note&kind=comment or ?kind=note,comment. Absent
// returns nil so the service applies the configured kinds.
func queryKinds(r *http.Request) ([]annotation.Kind, error) {
	var names []string
	for _, v := range r.URL.Query()["kind"] {
		for _, n := range strings.Split(v, ",") {
			if n = strings.TrimSpace(n); n != "" {
				names = append(names, n)
			}
		}
	}
	if len(names) == 0 {
		return nil, nil
	}
	return annotation.ParseKinds(names)
}

func ifMatch(r *http.Request) string {
	return checksum.FromHeader(r.Header.Get("If-Match"))
}

func queryOffset(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("offset")
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ListDocuments handles GET /api/documents.
//
//	@Summary		List indexed documents with annotation counts
//	@Tags			documents
//	@Produce		json
//	@Success		200	{object}	DocumentListResponse
//	@Security		BearerAuth
//	@Router			/documents [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.svc.Documents(r.Context())
	if err != nil {
		writeServiceError(w, "list documents", "", err)
		return
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: docs})
}

// VaultAnnotations handles GET /api/annotations.
//
//	@Summary		List indexed annotations across the vault
//	@Tags			annotations
//	@Produce		json
//	@Param			kind	query		string	false	"Filter by kind"	Enums(note, comment)
//	@Success		200		{object}	AnnotationListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/annotations [get]
func (h *Handler) VaultAnnotations(w http.ResponseWriter, r *http.Request) {
	kinds, err := queryKinds(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	anns, err := h.svc.VaultAnnotations(r.Context(), kinds)
	if err != nil {
		writeServiceError(w, "vault annotations", "", err)
		return
	}
	writeJSON(w, http.StatusOK, AnnotationListResponse{Annotations: anns, Total: len(anns)})
}

// GetAnnotations handles GET /api/annotations/*.
//
//	@Summary		List the annotations of a document, or show the one at an offset
//	@Tags			annotations
//	@Produce		json
//	@Param			path	path		string	true	"Document path"
//	@Param			heading	query		string	false	"Limit to a heading subtree"
//	@Param			kind	query		string	false	"Filter by kind"
//	@Param			offset	query		int		false	"Show the marker containing this byte offset"
//	@Success		200		{object}	DocumentAnnotations
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/annotations/{path} [get]
func (h *Handler) GetAnnotations(w http.ResponseWriter, r *http.Request) {
	path := docPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	kinds, err := queryKinds(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	if off, ok := queryOffset(r); ok {
		ann, err := h.svc.Show(r.Context(), annotationservice.MarkerRequest{Path: path, Offset: off, Kinds: kinds})
		if err != nil {
			writeServiceError(w, "show annotation", path, err)
			return
		}
		writeJSON(w, http.StatusOK, ann)
		return
	}

	res, err := h.svc.List(r.Context(), annotationservice.ListRequest{
		Path:    path,
		Heading: r.URL.Query().Get("heading"),
		Kinds:   kinds,
	})
	if err != nil {
		writeServiceError(w, "list annotations", path, err)
		return
	}
	w.Header().Set("ETag", checksum.ETag(res.Checksum))
	writeJSON(w, http.StatusOK, res)
}

// AddAnnotation handles POST /api/annotations/*.
//
//	@Summary		Insert a note or comment marker
//	@Tags			annotations
//	@Accept			json
//	@Produce		json
//	@Param			path		path	string					true	"Document path"
//	@Param			If-Match	header	string					false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body	AddAnnotationRequest	true	"Marker to insert"
//	@Success		201			{object}	Change
//	@Failure		400			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Failure		422			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/annotations/{path} [post]
func (h *Handler) AddAnnotation(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	path := docPath(r)
	var req AddAnnotationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	kind, err := annotation.ParseKind(req.Kind)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	ch, err := h.svc.Add(r.Context(), annotationservice.AddRequest{
		Path:    path,
		Kind:    kind,
		Body:    req.Body,
		Start:   req.Start,
		End:     req.End,
		IfMatch: ifMatch(r),
	})
	if err != nil {
		writeServiceError(w, "add annotation", path, err)
		return
	}
	w.Header().Set("ETag", checksum.ETag(ch.Checksum))
	writeJSON(w, http.StatusCreated, ch)
}

// EditAnnotation handles PATCH /api/annotations/*.
//
//	@Summary		Change the body or kind of a marker
//	@Tags			annotations
//	@Accept			json
//	@Produce		json
//	@Param			path		path	string					true	"Document path"
//	@Param			If-Match	header	string					false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body	EditAnnotationRequest	true	"Fields to change"
//	@Success		200			{object}	Change
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/annotations/{path} [patch]
func (h *Handler) EditAnnotation(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	path := docPath(r)
	var req EditAnnotationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	edit := annotationservice.EditRequest{
		MarkerRequest: annotationservice.MarkerRequest{Path: path, Offset: req.Offset, IfMatch: ifMatch(r)},
		Body:          req.Body,
	}
	if req.Kind != nil {
		kind, err := annotation.ParseKind(*req.Kind)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
		edit.Kind = &kind
	}
	ch, err := h.svc.Edit(r.Context(), edit)
	if err != nil {
		writeServiceError(w, "edit annotation", path, err)
		return
	}
	w.Header().Set("ETag", checksum.ETag(ch.Checksum))
	writeJSON(w, http.StatusOK, ch)
}

// DeleteAnnotation handles DELETE /api/annotations/*?offset=N.
//
//	@Summary		Remove a marker, keeping its annotated text
//	@Tags			annotations
//	@Produce		json
//	@Param			path		path	string	true	"Document path"
//	@Param			offset		query	int		true	"Byte offset inside the marker"
//	@Param			kind		query	string	false	"Only delete markers of this kind"
//	@Param			If-Match	header	string	false	"SHA-256 checksum for optimistic concurrency"
//	@Success		200			{object}	Change
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/annotations/{path} [delete]
func (h *Handler) DeleteAnnotation(w http.ResponseWriter, r *http.Request) {
	path := docPath(r)
	off, ok := queryOffset(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'offset' is required"))
		return
	}
	kinds, err := queryKinds(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	ch, err := h.svc.Delete(r.Context(), annotationservice.MarkerRequest{
		Path:    path,
		Offset:  off,
		Kinds:   kinds,
		IfMatch: ifMatch(r),
	})
	if err != nil {
		writeServiceError(w, "delete annotation", path, err)
		return
	}
	w.Header().Set("ETag", checksum.ETag(ch.Checksum))
	writeJSON(w, http.StatusOK, ch)
}

// Table handles GET /api/table/*.
//
//	@Summary		Annotations of a document as TSV or an Org table
//	@Tags			annotations
//	@Produce		plain
//	@Param			path	path	string	true	"Document path"
//	@Param			heading	query	string	false	"Limit to a heading subtree"
//	@Param			format	query	string	false	"Output format"	Enums(tsv, org)
//	@Success		200		{string}	string
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/table/{path} [get]
func (h *Handler) Table(w http.ResponseWriter, r *http.Request) {
	path := docPath(r)
	kinds, err := queryKinds(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	out, err := h.svc.Table(r.Context(), annotationservice.ListRequest{
		Path:    path,
		Heading: r.URL.Query().Get("heading"),
		Kinds:   kinds,
	}, r.URL.Query().Get("format") == "org")
	if err != nil {
		writeServiceError(w, "table", path, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(out))
}

// Export handles GET /api/export/*?backend=html.
//
//	@Summary		Render a document's markers for an export backend
//	@Tags			export
//	@Produce		plain
//	@Param			path	path	string	true	"Document path"
//	@Param			backend	query	string	true	"Backend identifier"	Enums(html, latex, odt)
//	@Success		200		{string}	string
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/export/{path} [get]
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	path := docPath(r)
	backend := r.URL.Query().Get("backend")
	if backend == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'backend' is required"))
		return
	}
	out, err := h.svc.Export(r.Context(), path, backend)
	if err != nil {
		writeServiceError(w, "export", path, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(out))
}

// Backends handles GET /api/backends.
//
//	@Summary		List export backends per annotation kind
//	@Tags			export
//	@Produce		json
//	@Success		200	{object}	BackendsResponse
//	@Security		BearerAuth
//	@Router			/backends [get]
func (h *Handler) Backends(w http.ResponseWriter, _ *http.Request) {
	out := make(map[string][]string, len(annotation.AllKinds))
	for _, k := range annotation.AllKinds {
		out[k.String()] = h.svc.Dispatcher().Backends(k)
	}
	writeJSON(w, http.StatusOK, BackendsResponse{Backends: out})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across annotation bodies and texts
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			kind	query		string	false	"Filter by kind"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	kinds, err := queryKinds(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, kinds, limit)
	if err != nil {
		writeServiceError(w, "search", "", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
