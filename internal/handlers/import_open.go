package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"gold_debts/internal/services/importer"

	"go.uber.org/zap"
)

type importRequest struct {
	Type       string `json:"type"`
	FilePath   string `json:"file_path"`
	BatchSize  int    `json:"batch_size"`
	TimeoutMin int    `json:"timeout_minutes,omitempty"`
}

func (h *Handlers) Import(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(&req); err != nil {
		h.JSON(w, http.StatusBadRequest, errorBody("bad JSON: "+err.Error()))
		return
	}
	if strings.TrimSpace(req.FilePath) == "" {
		h.JSON(w, http.StatusBadRequest, errorBody("file_path is required"))
		return
	}
	if req.Type == "" {
		req.Type = "debts"
	}
	if _, ok := h.Importer.Processors[req.Type]; !ok {
		h.JSON(w, http.StatusBadRequest, errorBody("unknown import type: "+req.Type))
		return
	}

	h.startImport(req)

	h.JSON(w, http.StatusAccepted, map[string]any{
		"status":     "started",
		"type":       req.Type,
		"file_path":  req.FilePath,
		"batch_size": req.BatchSize,
	})
}

// startImport runs the import detached from the request so the client gets
// its 202 right away.
func (h *Handlers) startImport(req importRequest) {
	h.imports.Add(1)
	go func() {
		defer h.imports.Done()
		start := time.Now()

		timeout := 15 * time.Minute
		if req.TimeoutMin > 0 {
			timeout = time.Duration(req.TimeoutMin) * time.Minute
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		res, err := h.Importer.Import(ctx, importer.Request{
			Type:      req.Type,
			FilePath:  req.FilePath,
			BatchSize: req.BatchSize,
		})
		if err != nil {
			h.Logger.Error("background import failed",
				zap.String("type", req.Type),
				zap.String("path", req.FilePath),
				zap.Duration("took", time.Since(start)),
				zap.Error(err),
			)
			return
		}
		h.Logger.Info("background import done",
			zap.String("type", req.Type),
			zap.String("source", res.Source),
			zap.String("format", res.Format),
			zap.Int("rows", res.RowsProcessed),
			zap.Int64("size", res.SizeBytes),
			zap.Duration("took", time.Since(start)),
		)
	}()
}
