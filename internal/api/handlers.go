package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/typedmdx/internal/catalog"
	"github.com/starford/typedmdx/pkg/schema"
)

// Handler holds API route handlers.
type Handler struct {
	cat *catalog.Catalog
}

// NewHandler creates a new Handler.
func NewHandler(cat *catalog.Catalog) *Handler {
	return &Handler{cat: cat}
}

// ListCollections handles GET /api/collections.
//
//	@Summary		List declared collections and their shapes
//	@Tags			collections
//	@Produce		json
//	@Success		200	{object}	CollectionListResponse
//	@Security		BearerAuth
//	@Router			/collections [get]
func (h *Handler) ListCollections(w http.ResponseWriter, r *http.Request) {
	writeTagged(w, r, CollectionListResponse{Collections: h.cat.Describe()})
}

// GetCollection handles GET /api/collections/{name}.
//
//	@Summary		Describe one collection
//	@Tags			collections
//	@Produce		json
//	@Param			name	path		string	true	"Collection name"
//	@Success		200		{object}	CollectionInfo
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/collections/{name} [get]
func (h *Handler) GetCollection(w http.ResponseWriter, r *http.Request) {
	info, err := h.cat.Info(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, "get collection", err)
		return
	}
	writeTagged(w, r, info)
}

// ListEntries handles GET /api/collections/{name}/entries.
//
//	@Summary		List the valid entries of a collection, ordered by filename
//	@Tags			entries
//	@Produce		json
//	@Param			name	path		string	true	"Collection name"
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			body	query		bool	false	"Include document bodies"
//	@Success		200		{object}	EntryListResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/collections/{name}/entries [get]
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	withBody, _ := strconv.ParseBool(q.Get("body"))

	entries, err := h.cat.List(r.Context(), name)
	if err != nil {
		writeError(w, "list entries", err)
		return
	}

	page := paginate(entries, limit, offset)
	out := EntryListResponse{Entries: make([]EntryResponse, len(page)), Total: len(entries)}
	for i, e := range page {
		out.Entries[i] = toEntry(name, e, withBody)
	}
	writeTagged(w, r, out)
}

// GetEntry handles GET /api/collections/{name}/entries/{slug}.
//
//	@Summary		Get one entry by slug
//	@Tags			entries
//	@Produce		json
//	@Param			name	path		string	true	"Collection name"
//	@Param			slug	path		string	true	"Entry slug"
//	@Success		200		{object}	EntryResponse
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/collections/{name}/entries/{slug} [get]
func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	entry, err := h.cat.Get(r.Context(), name, chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, "get entry", err)
		return
	}
	writeTagged(w, r, toEntry(name, entry, true))
}

// Report handles GET /api/collections/{name}/report.
//
//	@Summary		Report documents left out of a collection listing
//	@Tags			collections
//	@Produce		json
//	@Param			name	path		string	true	"Collection name"
//	@Success		200		{object}	ReportResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/collections/{name}/report [get]
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	res, err := h.cat.Scan(r.Context(), name)
	if err != nil {
		writeError(w, "report", err)
		return
	}

	out := ReportResponse{
		Collection: name,
		Valid:      len(res.Entries),
		Skipped:    make([]SkippedDocument, len(res.Skipped)),
	}
	for i, s := range res.Skipped {
		doc := SkippedDocument{Slug: s.Slug, Path: s.StoragePath, Error: s.Err.Error()}
		var verr *schema.ValidationError
		if errors.As(s.Err, &verr) {
			doc.Issues = verr.Issues
		}
		out.Skipped[i] = doc
	}
	writeJSON(w, http.StatusOK, out)
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
