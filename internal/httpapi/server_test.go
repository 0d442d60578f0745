/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package httpapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"tourdeck/internal/domain"
	"tourdeck/internal/editor"
	"tourdeck/internal/export"
	"tourdeck/internal/httpapi"
	"tourdeck/internal/storage"
)

// newHandler builds a server over a fresh in-memory editor. An empty
// password leaves the API open.
func newHandler(t *testing.T, password string) (http.Handler, *editor.Editor) {
	t.Helper()
	ed, err := editor.New(context.Background(), storage.NewMemoryStore(), editor.Options{})
	require.NoError(t, err)
	var hash string
	if password != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		require.NoError(t, err)
		hash = string(h)
	}
	srv := httpapi.New(ed, httpapi.Config{
		PasswordHash: hash,
		CORSOrigins:  []string{"http://localhost:5173"},
		// no image fetches in tests
		PDF: export.PDFOptions{Preloaded: map[string]export.Image{}},
	})
	return srv.Handler(), ed
}

func do(t *testing.T, h http.Handler, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type pagesResp struct {
	Pages   []domain.PageDescriptor `json:"pages"`
	Current int                     `json:"current"`
}

func decodeInto[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthzIsPublic(t *testing.T) {
	h, _ := newHandler(t, "secret")
	rec := do(t, h, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestGateRequiresLogin(t *testing.T) {
	h, _ := newHandler(t, "secret")

	rec := do(t, h, http.MethodGet, "/api/pages", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/login", `{"password":"nope"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Result().Cookies())

	rec = do(t, h, http.MethodPost, "/api/login", `{"password":"secret"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	rec = do(t, h, http.MethodGet, "/api/pages", "", cookies[0])
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeInto[pagesResp](t, rec).Pages, 11)

	rec = do(t, h, http.MethodPost, "/api/logout", "", cookies[0])
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, h, http.MethodGet, "/api/pages", "", cookies[0])
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginWithoutConfiguredPassword(t *testing.T) {
	h, _ := newHandler(t, "")
	rec := do(t, h, http.MethodPost, "/api/login", `{"password":"x"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	// the API itself is open
	rec = do(t, h, http.MethodGet, "/api/document", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPageLifecycle(t *testing.T) {
	h, ed := newHandler(t, "")

	rec := do(t, h, http.MethodPost, "/api/pages", `{"type":"detailed-schedule","index":6}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	added := decodeInto[domain.PageDescriptor](t, rec)
	assert.Equal(t, domain.PageDetailedSchedule, added.Type)
	day, ok := added.Day()
	require.True(t, ok)
	assert.Equal(t, "DAY 2", added.Title)
	assert.Equal(t, 2, day)
	assert.Equal(t, 6, ed.Pages.Current())

	rec = do(t, h, http.MethodPost, "/api/pages", `{"type":"brochure"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/pages/6/duplicate", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 13, ed.Pages.Len())

	rec = do(t, h, http.MethodPatch, "/api/pages/0", `{"title":"Welcome"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome", decodeInto[domain.PageDescriptor](t, rec).Title)

	rec = do(t, h, http.MethodPost, "/api/pages/move", `{"from":0,"to":3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome", decodeInto[pagesResp](t, rec).Pages[3].Title)

	rec = do(t, h, http.MethodPost, "/api/pages/move", `{"from":0,"to":99}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodDelete, "/api/pages/3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeInto[pagesResp](t, rec).Pages, 12)

	rec = do(t, h, http.MethodDelete, "/api/pages/42", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, h, http.MethodGet, "/api/pages/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/undo", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 13, ed.Pages.Len())
}

func TestLastPageCannotBeRemoved(t *testing.T) {
	h, ed := newHandler(t, "")
	for ed.Pages.Len() > 1 {
		require.Equal(t, http.StatusOK, do(t, h, http.MethodDelete, "/api/pages/0", "").Code)
	}
	rec := do(t, h, http.MethodDelete, "/api/pages/0", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 1, ed.Pages.Len())
}

func TestPageDataAndDocument(t *testing.T) {
	h, ed := newHandler(t, "")

	rec := do(t, h, http.MethodPatch, "/api/document", `{"title":"Jeju Spring Tour"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Jeju Spring Tour", ed.Docs.Get().Title)

	rec = do(t, h, http.MethodPatch, "/api/document", `[1,2]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPatch, "/api/pages/4/data", `{"index":99}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/pages/4", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeInto[map[string]json.RawMessage](t, rec)
	assert.Contains(t, body, "data")

	rec = do(t, h, http.MethodPost, "/api/document/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.DefaultDocument().Title, ed.Docs.Get().Title)
}

func TestBlurRoutes(t *testing.T) {
	h, ed := newHandler(t, "")
	p, _ := ed.Pages.Get(0)
	base := "/api/blur/" + p.ID

	rec := do(t, h, http.MethodPost, base, `{"container":{"width":400,"height":300},"start":{"x":20,"y":20},"end":{"x":120,"y":70}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reg := decodeInto[domain.BlurRegion](t, rec)
	assert.InDelta(t, 5, reg.X, 0.01)
	assert.InDelta(t, 16.67, reg.Height, 0.01)

	rec = do(t, h, http.MethodPost, base, `{"container":{"width":400,"height":300},"start":{"x":20,"y":20},"end":{"x":25,"y":25}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/blur/missing", `{"rect":{"x":1,"y":1,"width":5,"height":5}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, h, http.MethodPost, base, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, base+"/mode", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"active":true`)

	rec = do(t, h, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), reg.ID)

	rec = do(t, h, http.MethodDelete, base+"/"+reg.ID, "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, h, http.MethodDelete, base+"/"+reg.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	do(t, h, http.MethodPost, base, `{"rect":{"x":1,"y":1,"width":5,"height":5}}`)
	rec = do(t, h, http.MethodDelete, base, "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, ed.Blur.RegionsFor(p.ID))
}

func TestSiteExportImportRoundTrip(t *testing.T) {
	h, ed := newHandler(t, "")
	do(t, h, http.MethodPatch, "/api/document", `{"title":"Busan"}`)

	rec := do(t, h, http.MethodGet, "/api/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "tour-data-")
	exported := rec.Body.String()

	other, otherEd := newHandler(t, "")
	rec = do(t, other, http.MethodPost, "/api/import", exported)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Busan", otherEd.Docs.Get().Title)
	assert.Equal(t, ed.Pages.Len(), otherEd.Pages.Len())

	rec = do(t, other, http.MethodPost, "/api/import", `{"tourData":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Busan", otherEd.Docs.Get().Title)
}

func TestPageExportImport(t *testing.T) {
	h, ed := newHandler(t, "")
	rec := do(t, h, http.MethodGet, "/api/pages/4/export", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "page-accommodation-")

	before := ed.Pages.Len()
	rec = do(t, h, http.MethodPost, "/api/pages/import", rec.Body.String())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, before+1, ed.Pages.Len())

	rec = do(t, h, http.MethodPost, "/api/pages/import", `{"pageConfig":{"type":"nope"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPDFExport(t *testing.T) {
	h, _ := newHandler(t, "")
	rec := do(t, h, http.MethodGet, "/api/export/pdf?preset=slide-16x9", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))

	rec = do(t, h, http.MethodGet, "/api/export/pdf?preset=letter", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsAndCORS(t *testing.T) {
	h, _ := newHandler(t, "")
	do(t, h, http.MethodGet, "/api/pages", "")
	do(t, h, http.MethodGet, "/api/export", "")

	rec := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `tourdeck_http_requests_total{method="GET",route="/api/pages",status="200"} 1`)
	assert.Contains(t, rec.Body.String(), `tourdeck_transfers_total{kind="site_export",result="ok"} 1`)

	req := httptest.NewRequest(http.MethodOptions, "/api/pages", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "PATCH")
	out := httptest.NewRecorder()
	h.ServeHTTP(out, req)
	assert.True(t, out.Code == http.StatusNoContent || out.Code == http.StatusOK, "preflight got %d", out.Code)
	assert.Equal(t, "http://localhost:5173", out.Header().Get("Access-Control-Allow-Origin"))
}
