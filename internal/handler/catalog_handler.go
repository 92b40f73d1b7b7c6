package handler

import (
	"net/http"

	"vntrbirds-be/internal/catalog"
	"vntrbirds-be/internal/domain"
)

// CatalogHandler serves the static hunt list
type CatalogHandler struct {
	catalog *catalog.Catalog
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(cat *catalog.Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: cat}
}

// ItemsResponse is returned by GET /api/items
type ItemsResponse struct {
	Items []domain.Item `json:"items"`
	Count int           `json:"count"`
}

// ListItems handles GET /api/items?q=
func (h *CatalogHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items := h.catalog.Filter(r.URL.Query().Get("q"))
	response := ItemsResponse{Items: items, Count: len(items)}

	if notModified(w, r, generateETag(response)) {
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=300")
	respondJSON(w, http.StatusOK, response)
}
