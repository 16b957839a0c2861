package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gold_debts/internal/models"
	"gold_debts/internal/services/backup"
)

func (h *Handlers) ExportBackup(w http.ResponseWriter, r *http.Request) {
	b, name, err := h.Backup.ExportJSON(r.Context())
	if err != nil {
		h.Error(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	_, _ = w.Write(b)
}

func (h *Handlers) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	buf, name, err := h.Backup.ExportXLSX(r.Context())
	if err != nil {
		h.Error(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	_, _ = buf.WriteTo(w)
}

func (h *Handlers) ArchiveBackup(w http.ResponseWriter, r *http.Request) {
	path, err := h.Backup.Archive(r.Context())
	if errors.Is(err, backup.ErrArchiveDisabled) {
		h.JSON(w, http.StatusServiceUnavailable, errorBody(err.Error()))
		return
	}
	if err != nil {
		h.Error(w, r, err)
		return
	}
	h.JSON(w, http.StatusCreated, map[string]any{"ok": true, "path": path})
}

func (h *Handlers) Restore(w http.ResponseWriter, r *http.Request) {
	n, err := h.Backup.RestoreJSON(r.Context(), http.MaxBytesReader(w, r.Body, backup.MaxRestoreBytes))
	if err != nil {
		h.Error(w, r, err)
		return
	}
	h.logChange(r, models.ActionRestore, "")
	h.JSON(w, http.StatusOK, map[string]any{"ok": true, "count": n})
}

type remoteRestoreRequest struct {
	FilePath string `json:"file_path"`
}

func (h *Handlers) RestoreRemote(w http.ResponseWriter, r *http.Request) {
	var req remoteRestoreRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(&req); err != nil {
		h.JSON(w, http.StatusBadRequest, errorBody("bad JSON: "+err.Error()))
		return
	}
	if strings.TrimSpace(req.FilePath) == "" {
		h.JSON(w, http.StatusBadRequest, errorBody("file_path is required"))
		return
	}
	n, err := h.Backup.RestoreFrom(r.Context(), req.FilePath)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	h.logChange(r, models.ActionRestore, "")
	h.JSON(w, http.StatusOK, map[string]any{"ok": true, "count": n})
}
