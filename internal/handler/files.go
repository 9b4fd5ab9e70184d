package handler

import (
	"errors"
	"io"
	"log"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/waraqa-store/api/internal/storage"
)

// FileHandler serves the bucket and accepts admin image uploads.
type FileHandler struct {
	bucket storage.Bucket
}

// NewFileHandler creates a new FileHandler.
func NewFileHandler(bucket storage.Bucket) *FileHandler {
	return &FileHandler{bucket: bucket}
}

// RegisterRoutes registers file download: /files
func (h *FileHandler) RegisterRoutes(r chi.Router) {
	r.Get("/*", h.Serve)
}

// RegisterAdminRoutes registers the upload endpoint: /admin/uploads
func (h *FileHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/", h.Upload)
}

const (
	maxUploadFiles = 10
	maxUploadBytes = maxUploadFiles*storage.MaxImageSize + 1<<20
)

// Serve streams an object. Payment proofs under transfers/ require a valid
// signed URL; product images are public.
func (h *FileHandler) Serve(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")

	if strings.HasPrefix(key, storage.PrefixTransfers+"/") {
		q := r.URL.Query()
		if err := h.bucket.Verify(key, q.Get("expires"), q.Get("signature")); err != nil {
			if errors.Is(err, storage.ErrInvalidKey) {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid file path"})
				return
			}
			writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
			return
		}
	}

	obj, err := h.bucket.Open(key)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrInvalidKey):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid file path"})
		case errors.Is(err, storage.ErrNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "file not found"})
		default:
			log.Printf("ERROR: open file %s: %v", key, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}
	defer obj.Close()

	if obj.ContentType != "" {
		w.Header().Set("Content-Type", obj.ContentType)
	}
	http.ServeContent(w, r, path.Base(key), obj.ModTime, obj)
}

// Upload stores multipart "files" as product images and returns their URLs
// in upload order. Either every file is stored or none is.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no files uploaded"})
		return
	}
	if len(headers) > maxUploadFiles {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "too many files"})
		return
	}

	files := make([]storage.File, len(headers))
	for i, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable file " + fh.Filename})
			return
		}
		data, err := io.ReadAll(io.LimitReader(f, storage.MaxImageSize+1))
		f.Close()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable file " + fh.Filename})
			return
		}
		files[i] = storage.File{Name: fh.Filename, Data: data}
	}

	urls, err := storage.UploadImages(r.Context(), h.bucket, storage.PrefixProducts, files)
	if err != nil {
		if errors.Is(err, storage.ErrNotImage) || errors.Is(err, storage.ErrTooLarge) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: upload images: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, map[string][]string{"urls": urls})
}
