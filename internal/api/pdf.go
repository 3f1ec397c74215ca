package api

import (
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"learnhub/m/internal/pdf"
)

const defaultPDFName = "document.pdf"

type htmlToPDFRequest struct {
	HTML     string `json:"html" validate:"required"`
	FileName string `json:"fileName" validate:"omitempty,max=200"`
}

func (h *Handler) htmlToPDF(w http.ResponseWriter, r *http.Request) {
	var req htmlToPDFRequest
	if !h.bind(w, r, &req) {
		return
	}
	buf, err := h.pdf.HTMLToPDF(r.Context(), req.HTML, pdf.DefaultOptions())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": pdfName(req.FileName)}))
	w.Header().Set("Content-Length", strconv.Itoa(len(buf)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf)
}

func pdfName(requested string) string {
	name := filepath.Base(strings.ReplaceAll(strings.TrimSpace(requested), `\`, "/"))
	if name == "" || name == "." || name == "/" {
		return defaultPDFName
	}
	return name
}
