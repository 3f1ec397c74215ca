package api

import (
	"fmt"
	"net/http"

	"learnhub/m/internal/upload"
)

// multipartMemory is how much of a multipart body is held in memory before
// spilling to temporary files.
const multipartMemory = 8 << 20

func (h *Handler) uploadSingle(w http.ResponseWriter, r *http.Request) {
	stored, ok := h.acceptFiles(w, r, "file", 1)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"file": stored[0], "url": stored[0].URL})
}

func (h *Handler) uploadMulti(w http.ResponseWriter, r *http.Request) {
	stored, ok := h.acceptFiles(w, r, "files", upload.MaxFilesPerRequest)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"count": len(stored), "files": stored})
}

// acceptFiles parses the multipart body and stores up to limit files sent
// under field, all or none. It writes the error response itself.
func (h *Handler) acceptFiles(w http.ResponseWriter, r *http.Request, field string, limit int) ([]upload.StoredFile, bool) {
	if maxBytes := h.uploads.Policy().MaxBytes; maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes*int64(limit)+multipartMemory)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid multipart form")
		return nil, false
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File[field]
	if len(headers) == 0 {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("No file uploaded in field %q", field))
		return nil, false
	}
	if len(headers) > limit {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Too many files: at most %d allowed", limit))
		return nil, false
	}

	stored, err := h.uploads.AcceptAll(r.Context(), field, headers)
	if err != nil {
		h.writeError(w, r, err)
		return nil, false
	}
	h.log.Info(r.Context(), "files uploaded", "field", field, "count", len(stored))
	return stored, true
}

