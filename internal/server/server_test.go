package server_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gold_debts/internal/app"
	"gold_debts/internal/config"
	"gold_debts/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type client struct {
	t   *testing.T
	srv *httptest.Server
}

func newClient(t *testing.T) *client {
	t.Helper()
	dir := t.TempDir()
	static := filepath.Join(dir, "public")
	require.NoError(t, os.MkdirAll(static, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(static, "index.html"), []byte("<h1>debts</h1>"), 0o644))

	a, err := app.New(&config.Config{
		CacheFile:     filepath.Join(dir, "debts.json"),
		StaticDir:     static,
		RemoteDriver:  config.DriverNone,
		SyncMode:      "sync",
		LateAfterDays: 30,
		AuthUsername:  "gold",
		AuthPassword:  "s3cret",
	}, zap.NewNop())
	require.NoError(t, err)

	srv := httptest.NewServer(a.Server().Handler())
	t.Cleanup(srv.Close)
	return &client{t: t, srv: srv}
}

func (c *client) do(method, path, body string, authed bool) *http.Response {
	c.t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, c.srv.URL+path, r)
	require.NoError(c.t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.SetBasicAuth("gold", "s3cret")
	}
	resp, err := c.srv.Client().Do(req)
	require.NoError(c.t, err)
	c.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestPublicRoutes(t *testing.T) {
	c := newClient(t)

	resp := c.do(http.MethodGet, "/health", "", false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	health := decode[map[string]any](t, resp)
	assert.Equal(t, true, health["ok"])
	assert.Equal(t, "none", health["remote"])

	resp = c.do(http.MethodGet, "/metrics", "", false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = c.do(http.MethodGet, "/index.html", "", false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthRequired(t *testing.T) {
	c := newClient(t)

	resp := c.do(http.MethodGet, "/debts", "", false)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, `Basic realm="Debts App"`, resp.Header.Get("WWW-Authenticate"))
}

func TestDebtLifecycle(t *testing.T) {
	c := newClient(t)

	resp := c.do(http.MethodPost, "/debts", `{"name":" Ali ","phone":"555","totalAmount":"1,000"}`, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	d := decode[models.Debt](t, resp)
	assert.Equal(t, "Ali", d.Name)
	assert.Equal(t, 1000.0, d.TotalAmount)
	assert.Equal(t, 1000.0, d.Remaining)

	base := "/debts/" + d.ID

	resp = c.do(http.MethodPost, base+"/pay", `{"amount":"٤٠٠"}`, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	d = decode[models.Debt](t, resp)
	assert.Equal(t, 600.0, d.Remaining)
	require.Len(t, d.Payments, 1)

	resp = c.do(http.MethodPost, base+"/pay", `{"amount":700}`, true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decode[map[string]any](t, resp), "error")

	resp = c.do(http.MethodPost, base+"/add", `{"amount":50}`, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	d = decode[models.Debt](t, resp)
	assert.Equal(t, 1050.0, d.TotalAmount)
	assert.Equal(t, 650.0, d.Remaining)
	require.Len(t, d.Additions, 1)

	resp = c.do(http.MethodPut, base+"/payments/"+d.Payments[0].ID, `{"amount":100}`, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	d = decode[models.Debt](t, resp)
	assert.Equal(t, 950.0, d.Remaining)

	resp = c.do(http.MethodDelete, base+"/additions/"+d.Additions[0].ID, "", true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	d = decode[models.Debt](t, resp)
	assert.Equal(t, 1000.0, d.TotalAmount)
	assert.Equal(t, 900.0, d.Remaining)

	resp = c.do(http.MethodPut, base, `{"name":"Ali Hassan","notes":" gold ring "}`, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	d = decode[models.Debt](t, resp)
	assert.Equal(t, "Ali Hassan", d.Name)
	assert.Equal(t, "gold ring", d.Notes)
	assert.Equal(t, "555", d.Phone)

	resp = c.do(http.MethodGet, "/total-debt", "", true)
	assert.Equal(t, map[string]any{"total": 900.0}, decode[map[string]any](t, resp))

	resp = c.do(http.MethodGet, "/late-debts", "", true)
	assert.Empty(t, decode[[]models.Debt](t, resp))

	resp = c.do(http.MethodDelete, base, `{"confirmName":"Ali"}`, true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = c.do(http.MethodDelete, base, `{"confirmName":"Ali Hassan"}`, true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = c.do(http.MethodGet, base, "", true)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBackupAndRestore(t *testing.T) {
	c := newClient(t)

	resp := c.do(http.MethodPost, "/restore", `[{"id":7,"name":"Sara","totalAmount":"500","remaining":900}]`, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{"ok": true, "count": 1.0}, decode[map[string]any](t, resp))

	resp = c.do(http.MethodGet, "/backup", "", true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "debts-backup-")
	list := decode[[]models.Debt](t, resp)
	require.Len(t, list, 1)
	assert.Equal(t, "7", list[0].ID)
	assert.Equal(t, 500.0, list[0].Remaining)

	resp = c.do(http.MethodGet, "/backup.xlsx", "", true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("PK")))

	resp = c.do(http.MethodPost, "/restore", `{"items":[]}`, true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = c.do(http.MethodPost, "/backup/archive", "", true)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestSyncWithoutRemote(t *testing.T) {
	c := newClient(t)

	resp := c.do(http.MethodPost, "/sync", "", true)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.Equal(t, false, body["ok"])
	assert.NotEmpty(t, body["error"])
}

func TestImportValidation(t *testing.T) {
	c := newClient(t)

	resp := c.do(http.MethodPost, "/import", `{"type":"debts"}`, true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = c.do(http.MethodPost, "/import", `{"type":"users","file_path":"s3://b/k.csv"}`, true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
