/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"tourdeck/internal/auth"
	"tourdeck/internal/blur"
	"tourdeck/internal/domain"
	"tourdeck/internal/export"
	"tourdeck/internal/storage"
	"tourdeck/internal/transfer"
	"tourdeck/internal/version"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func download(w http.ResponseWriter, name, contentType string, b []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	b, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		} else {
			writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		}
		return nil, false
	}
	return b, true
}

// pageIndex parses {index}; an index outside the page list is a 404.
func (s *Server) pageIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "page index must be an integer")
		return 0, false
	}
	if idx < 0 || idx >= s.ed.Pages.Len() {
		writeError(w, http.StatusNotFound, "page not found")
		return 0, false
	}
	return idx, true
}

type pagesBody struct {
	Pages   []domain.PageDescriptor `json:"pages"`
	Current int                     `json:"current"`
}

func (s *Server) pagesBody() pagesBody {
	return pagesBody{Pages: s.ed.Pages.List(), Current: s.ed.Pages.Current()}
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": version.String()})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Password string `json:"password"`
	}
	if !decode(w, r, &body) {
		return
	}
	sess := storage.NewMemoryStore()
	if err := auth.NewGate(sess, s.cfg.PasswordHash).Login(r.Context(), body.Password); err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidPassword):
			writeError(w, http.StatusUnauthorized, "invalid password")
		case errors.Is(err, auth.ErrNoPassword):
			writeError(w, http.StatusConflict, "no password configured")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	token := uuid.NewString()
	s.sessMu.Lock()
	s.sessions[token] = sess
	s.sessMu.Unlock()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		s.sessMu.Lock()
		if sess, ok := s.sessions[c.Value]; ok {
			auth.NewGate(sess, s.cfg.PasswordHash).Logout(r.Context())
			delete(s.sessions, c.Value)
		}
		s.sessMu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getDocument(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.ed.Docs.Get())
}

func (s *Server) patchDocument(w http.ResponseWriter, r *http.Request) {
	b, ok := readBody(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ed.UpdateDocument(r.Context(), b); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.ed.Docs.Get())
}

func (s *Server) resetDocument(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ed.Reset(r.Context())
	writeJSON(w, http.StatusOK, s.pagesBody())
}

func (s *Server) listPages(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.pagesBody())
}

func (s *Server) addPage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Type  string `json:"type"`
		Title string `json:"title"`
		Index *int   `json:"index"`
	}
	if !decode(w, r, &body) {
		return
	}
	pt, err := domain.ParsePageType(body.Type)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	index := s.ed.Pages.Len()
	if body.Index != nil {
		index = *body.Index
	}
	p := s.ed.AddPage(r.Context(), pt, body.Title, index)
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) getPage(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.pageIndex(w, r)
	if !ok {
		return
	}
	p, _ := s.ed.Pages.Get(idx)
	data, _ := s.ed.Pages.Resolve(idx)
	writeJSON(w, http.StatusOK, map[string]any{"page": p, "data": data})
}

func (s *Server) renamePage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title string `json:"title"`
	}
	if !decode(w, r, &body) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.pageIndex(w, r)
	if !ok {
		return
	}
	s.ed.RenamePage(r.Context(), idx, body.Title)
	p, _ := s.ed.Pages.Get(idx)
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) removePage(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.pageIndex(w, r)
	if !ok {
		return
	}
	if !s.ed.RemovePage(r.Context(), idx) {
		writeError(w, http.StatusConflict, "the last page cannot be removed")
		return
	}
	writeJSON(w, http.StatusOK, s.pagesBody())
}

func (s *Server) duplicatePage(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.pageIndex(w, r)
	if !ok {
		return
	}
	p, ok := s.ed.DuplicatePage(r.Context(), idx)
	if !ok {
		writeError(w, http.StatusNotFound, "page not found")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) movePage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		From int `json:"from"`
		To   int `json:"to"`
	}
	if !decode(w, r, &body) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ed.MovePage(r.Context(), body.From, body.To) {
		writeError(w, http.StatusBadRequest, "invalid move")
		return
	}
	writeJSON(w, http.StatusOK, s.pagesBody())
}

func (s *Server) updatePageData(w http.ResponseWriter, r *http.Request) {
	var patch domain.PageData
	if !decode(w, r, &patch) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.pageIndex(w, r)
	if !ok {
		return
	}
	if !s.ed.UpdatePageData(r.Context(), idx, patch) {
		writeError(w, http.StatusBadRequest, "page data rejected")
		return
	}
	p, _ := s.ed.Pages.Get(idx)
	writeJSON(w, http.StatusOK, p)
}

type blurBody struct {
	PageID  string              `json:"pageId"`
	Active  bool                `json:"active"`
	Regions []domain.BlurRegion `json:"regions"`
}

func (s *Server) blurBody(pageID string) blurBody {
	return blurBody{PageID: pageID, Active: s.ed.Blur.IsActive(pageID), Regions: s.ed.Blur.RegionsFor(pageID)}
}

func (s *Server) listBlur(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.blurBody(chi.URLParam(r, "pageID")))
}

// addBlur accepts either a percentage rect or a pixel drag in its container.
func (s *Server) addBlur(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Rect      *domain.Rect `json:"rect"`
		Container *blur.Size   `json:"container"`
		Start     blur.Point   `json:"start"`
		End       blur.Point   `json:"end"`
	}
	if !decode(w, r, &body) {
		return
	}
	pageID := chi.URLParam(r, "pageID")
	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		reg domain.BlurRegion
		ok  bool
	)
	switch {
	case body.Rect != nil:
		reg, ok = s.ed.AddBlurRegion(r.Context(), pageID, *body.Rect)
	case body.Container != nil:
		reg, ok = s.ed.AddBlurDrag(r.Context(), pageID, *body.Container, body.Start, body.End)
	default:
		writeError(w, http.StatusBadRequest, "rect or container/start/end required")
		return
	}
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "region rejected")
		return
	}
	writeJSON(w, http.StatusCreated, reg)
}

func (s *Server) removeBlur(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ed.RemoveBlurRegion(r.Context(), chi.URLParam(r, "pageID"), chi.URLParam(r, "regionID")) {
		writeError(w, http.StatusNotFound, "region not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) clearBlur(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ed.ClearBlur(r.Context(), chi.URLParam(r, "pageID"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) toggleBlurMode(w http.ResponseWriter, r *http.Request) {
	pageID := chi.URLParam(r, "pageID")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ed.Blur.ToggleMode(pageID)
	writeJSON(w, http.StatusOK, s.blurBody(pageID))
}

func (s *Server) exportSite(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	b, name, err := s.ed.ExportSite()
	s.mu.Unlock()
	s.metrics.transfer("site_export", err)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	download(w, name, "application/json", b)
}

func (s *Server) importSite(w http.ResponseWriter, r *http.Request) {
	b, ok := readBody(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.ed.ImportSite(r.Context(), b)
	s.metrics.transfer("site_import", err)
	if err != nil {
		s.importError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.pagesBody())
}

func (s *Server) exportPage(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	idx, ok := s.pageIndex(w, r)
	if !ok {
		s.mu.Unlock()
		return
	}
	b, name, err := s.ed.ExportPage(idx)
	s.mu.Unlock()
	s.metrics.transfer("page_export", err)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	download(w, name, "application/json", b)
}

func (s *Server) importPage(w http.ResponseWriter, r *http.Request) {
	b, ok := readBody(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.ed.ImportPage(r.Context(), b)
	s.metrics.transfer("page_import", err)
	if err != nil {
		s.importError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) importError(w http.ResponseWriter, err error) {
	if errors.Is(err, transfer.ErrInvalidImport) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

// exportPDF snapshots the pages under the lock and renders outside it, so
// slow image loads do not block editing.
func (s *Server) exportPDF(w http.ResponseWriter, r *http.Request) {
	opt := s.cfg.PDF
	if p := r.URL.Query().Get("preset"); p != "" {
		opt.Preset = export.PresetName(p)
	}
	if _, err := export.LookupPreset(string(opt.Preset)); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	pages := s.ed.RenderPages()
	if opt.Title == "" {
		opt.Title = s.ed.Docs.Get().Title
	}
	s.mu.Unlock()

	var buf bytes.Buffer
	err := export.RenderPDF(r.Context(), pages, &buf, opt)
	s.metrics.transfer("pdf", err)
	if err != nil {
		s.log.ErrorContext(r.Context(), "pdf export failed", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	download(w, export.PDFFileName(s.now()), "application/pdf", buf.Bytes())
}

func (s *Server) undo(w http.ResponseWriter, r *http.Request) {
	s.history(w, r, true)
}

func (s *Server) redo(w http.ResponseWriter, r *http.Request) {
	s.history(w, r, false)
}

func (s *Server) history(w http.ResponseWriter, r *http.Request, back bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	step := s.ed.Redo
	if back {
		step = s.ed.Undo
	}
	label, ok, err := step(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"label": label, "applied": ok, "pages": s.ed.Pages.List()})
}
