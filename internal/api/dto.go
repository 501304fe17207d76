package api

import (
	"github.com/starford/typedmdx/internal/catalog"
	"github.com/starford/typedmdx/pkg/schema"
)

// CollectionInfo describes one collection (aliased from the catalog).
type CollectionInfo = catalog.Info

// CollectionListResponse wraps the collection listing.
type CollectionListResponse struct {
	Collections []CollectionInfo `json:"collections" validate:"required"`
}

// EntryResponse is one validated entry.
type EntryResponse struct {
	Collection string        `json:"collection" example:"blog" validate:"required"`
	Slug       string        `json:"slug" example:"hello-world" validate:"required"`
	Path       string        `json:"path" example:"blog/hello-world.mdx" validate:"required"`
	Data       schema.Record `json:"data" validate:"required"`
	Body       string        `json:"body,omitempty"`
}

// EntryListResponse wraps a page of entries.
type EntryListResponse struct {
	Entries []EntryResponse `json:"entries" validate:"required"`
	Total   int             `json:"total" example:"42" validate:"required"`
}

// SkippedDocument is a document left out of a listing.
type SkippedDocument struct {
	Slug   string         `json:"slug" example:"draft" validate:"required"`
	Path   string         `json:"path" example:"blog/draft.mdx" validate:"required"`
	Error  string         `json:"error" validate:"required"`
	Issues []schema.Issue `json:"issues,omitempty"`
}

// ReportResponse summarises a collection check.
type ReportResponse struct {
	Collection string            `json:"collection" example:"blog" validate:"required"`
	Valid      int               `json:"valid" example:"12" validate:"required"`
	Skipped    []SkippedDocument `json:"skipped" validate:"required"`
}

func toEntry(name string, e catalog.Entry, withBody bool) EntryResponse {
	out := EntryResponse{
		Collection: name,
		Slug:       e.Metadata.Slug,
		Path:       e.Metadata.StoragePath,
		Data:       e.Data,
	}
	if withBody {
		out.Body = e.Body
	}
	return out
}
