package handlers

import (
	"fmt"
	"net/http"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// Upload accepts multipart/form-data with a `file` field, stores the file in
// S3 under imports/ and starts importing it.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	if h.Uploads == nil || h.Bucket == "" {
		h.JSON(w, http.StatusServiceUnavailable, errorBody("s3 uploads are not configured"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 32<<20)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		h.JSON(w, http.StatusBadRequest, errorBody("bad multipart: "+err.Error()))
		return
	}

	kind := r.FormValue("type")
	if kind == "" {
		kind = "debts"
	}
	if _, ok := h.Importer.Processors[kind]; !ok {
		h.JSON(w, http.StatusBadRequest, errorBody("unknown import type: "+kind))
		return
	}

	f, fh, err := r.FormFile("file")
	if err != nil {
		h.JSON(w, http.StatusBadRequest, errorBody("file is required"))
		return
	}
	defer f.Close()

	fname := path.Base(fh.Filename)
	key := fmt.Sprintf("imports/%d-%s", time.Now().UnixNano(), fname)

	size := fh.Size
	if size <= 0 {
		size = -1
	}

	info, err := h.Uploads.PutObject(r.Context(), h.Bucket, key, f, size, minio.PutObjectOptions{ContentType: fh.Header.Get("Content-Type")})
	if err != nil {
		h.Logger.Error("upload to s3 failed", zap.String("key", key), zap.Error(err))
		h.JSON(w, http.StatusInternalServerError, errorBody("failed to store file: "+err.Error()))
		return
	}

	s3path := fmt.Sprintf("s3://%s/%s", h.Bucket, key)
	h.startImport(importRequest{Type: kind, FilePath: s3path})

	h.JSON(w, http.StatusAccepted, map[string]any{
		"status": "started",
		"type":   kind,
		"path":   s3path,
		"size":   info.Size,
	})
}
