package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
)

type healthResp struct {
	OK     bool     `json:"ok"`
	Remote string   `json:"remote,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := healthResp{OK: true, Remote: h.RemoteName}
	if h.Checker != nil {
		if err := h.Checker.CheckConnections(ctx); err != nil {
			resp.OK = false
			resp.Errors = splitJoined(err)
		}
	}

	code := http.StatusOK
	if !resp.OK {
		code = http.StatusServiceUnavailable
	}
	h.JSON(w, code, resp)
}

// splitJoined flattens an errors.Join result into its messages.
func splitJoined(err error) []string {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, e.Error())
		}
		return out
	}
	return strings.Split(err.Error(), "\n")
}
