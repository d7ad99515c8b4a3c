package web

// handlers.go implements the import API endpoints. Uploads arrive as
// multipart form data (field "file") or as a raw request body; the
// format is taken from the filename extension when present and sniffed
// from the content otherwise.

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/jivoecom/po-import/internal/importer"
	"github.com/jivoecom/po-import/internal/logging"
	"github.com/jivoecom/po-import/internal/platform"
	"github.com/jivoecom/po-import/internal/po"
	"github.com/jivoecom/po-import/internal/tabular"
)

// handleHealth reports liveness, including a database round trip.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		logging.FromContext(r.Context()).Error("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListPlatforms returns the registered platform keys.
func (s *Server) handleListPlatforms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"platforms": platform.Known()})
}

// previewResponse is the parse-only view of an upload.
type previewResponse struct {
	Platform  string        `json:"platform"`
	Documents []po.Document `json:"documents"`
}

// handlePreview parses an upload without persisting anything.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	platformKey := chi.URLParam(r, "platform")

	raw, err := s.readUpload(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	docs, err := s.importer.Parse(raw, platformKey)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, previewResponse{Platform: platformKey, Documents: docs})
}

// importResponse wraps the per-PO results of one upload.
type importResponse struct {
	Platform string            `json:"platform"`
	Results  []po.ImportResult `json:"results"`
}

// handleImport parses an upload and imports every PO it contains.
// Concurrency is bounded by the import limiter; when no slot frees up
// in time the client gets a 429 and should retry.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	platformKey := chi.URLParam(r, "platform")

	if err := s.limiter.Acquire(r.Context()); err != nil {
		if errors.Is(err, importer.ErrTooManyImports) {
			w.Header().Set("Retry-After", "10")
			writeJSON(w, http.StatusTooManyRequests, ErrorResponse{
				Error: err.Error(),
				Code:  "IMPORT_BUSY",
			})
			return
		}
		s.respondError(w, r, err)
		return
	}
	defer s.limiter.Release()

	raw, err := s.readUpload(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	results, err := s.importer.ImportDocument(r.Context(), raw, platformKey)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, importResponse{Platform: platformKey, Results: results})
}

// readUpload extracts the document bytes and format from the request.
// Multipart uploads use the "file" field; any other content type is
// treated as the document itself.
func (s *Server) readUpload(r *http.Request) (tabular.RawDocument, error) {
	limit := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(nil, r.Body, limit)

	var content []byte
	var filename string

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(limit); err != nil {
			return tabular.RawDocument{}, &po.DecodeError{Format: "upload", Err: err}
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return tabular.RawDocument{}, &po.DecodeError{Format: "upload", Err: err}
		}
		defer file.Close()
		filename = header.Filename
		content, err = io.ReadAll(file)
		if err != nil {
			return tabular.RawDocument{}, &po.DecodeError{Format: "upload", Err: err}
		}
	} else {
		var err error
		content, err = io.ReadAll(r.Body)
		if err != nil {
			return tabular.RawDocument{}, &po.DecodeError{Format: "upload", Err: err}
		}
	}

	doc := tabular.RawDocument{
		Content: content,
		Format:  tabular.DetectFormat(filename, content),
		Sheet:   r.URL.Query().Get("sheet"),
	}
	if d := r.URL.Query().Get("delimiter"); d != "" {
		doc.Delimiter = rune(d[0])
	}
	return doc, nil
}
