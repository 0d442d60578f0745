/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editor ties the page, document and blur stores together and owns
// the cross-store rules, file transfer and undo history.
package editor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"tourdeck/internal/blur"
	"tourdeck/internal/document"
	"tourdeck/internal/domain"
	applog "tourdeck/internal/log"
	"tourdeck/internal/pages"
	"tourdeck/internal/storage"
	"tourdeck/internal/undo"
)

// Options configures New.
type Options struct {
	// DefaultsFile replaces the built-in default document when set.
	DefaultsFile string
	History      undo.Config
}

// Editor is the proposal being edited. It is not safe for concurrent use.
type Editor struct {
	Docs  *document.Store
	Pages *pages.Store
	Blur  *blur.Store

	history *undo.Manager
	now     func() time.Time
	log     *slog.Logger
}

// New hydrates all stores from kv. Regions of pages that no longer exist
// are dropped.
func New(ctx context.Context, kv storage.Store, opts Options) (*Editor, error) {
	docs := document.NewStore(kv)
	if opts.DefaultsFile != "" {
		if err := docs.LoadDefaultsFile(opts.DefaultsFile); err != nil {
			return nil, err
		}
	}
	docs.Load(ctx)
	e := &Editor{
		Docs:    docs,
		Pages:   pages.NewStore(kv, docs),
		Blur:    blur.NewStore(ctx, kv),
		history: undo.NewManager(opts.History),
		now:     time.Now,
		log:     applog.WithComponent("editor"),
	}
	e.Pages.Load(ctx)
	e.pruneBlur(ctx)
	return e, nil
}

// state is what one undo step restores.
type state struct {
	Document domain.Document         `json:"document"`
	Pages    []domain.PageDescriptor `json:"pages"`
	Current  int                     `json:"current"`
	Blur     domain.BlurData         `json:"blur"`
}

func (e *Editor) capture(label string) undo.Snapshot {
	b, err := json.Marshal(state{
		Document: e.Docs.Get(),
		Pages:    e.Pages.List(),
		Current:  e.Pages.Current(),
		Blur:     e.Blur.Snapshot(),
	})
	if err != nil {
		e.log.Error("capture state failed", slog.Any("err", err))
	}
	return undo.Snapshot{Label: label, Blob: b, TS: e.now()}
}

func (e *Editor) restore(ctx context.Context, s undo.Snapshot) error {
	var st state
	if err := json.Unmarshal(s.Blob, &st); err != nil {
		return fmt.Errorf("restore %q: %w", s.Label, err)
	}
	e.Docs.Replace(ctx, st.Document)
	e.Pages.Restore(ctx, st.Pages, st.Current)
	e.Blur.Restore(ctx, st.Blur)
	return nil
}

// change records the state before fn as an undo step when fn reports a change.
func (e *Editor) change(label string, fn func() bool) bool {
	before := e.capture(label)
	if !fn() {
		return false
	}
	if before.Blob != nil {
		e.history.Record(before)
	}
	return true
}

// AddPage inserts a page of type pt at index (end when out of range).
func (e *Editor) AddPage(ctx context.Context, pt domain.PageType, title string, index int) domain.PageDescriptor {
	var p domain.PageDescriptor
	e.change("add page", func() bool {
		p = e.Pages.Insert(ctx, domain.PageDescriptor{Type: pt, Title: title}, index)
		return true
	})
	return p
}

// RemovePage removes the page at index together with its blur regions.
func (e *Editor) RemovePage(ctx context.Context, index int) bool {
	return e.change("remove page", func() bool {
		removed, ok := e.Pages.Remove(ctx, index)
		if ok {
			e.Blur.ClearPage(ctx, removed.ID)
		}
		return ok
	})
}

// DuplicatePage copies the page at index. Blur regions are not copied.
func (e *Editor) DuplicatePage(ctx context.Context, index int) (domain.PageDescriptor, bool) {
	var p domain.PageDescriptor
	ok := e.change("duplicate page", func() bool {
		var ok bool
		p, ok = e.Pages.Duplicate(ctx, index)
		return ok
	})
	return p, ok
}

// MovePage reorders a page.
func (e *Editor) MovePage(ctx context.Context, from, to int) bool {
	return e.change("move page", func() bool { return e.Pages.Reorder(ctx, from, to) })
}

// UpdatePageData merges patch into the data bag of the page at index.
func (e *Editor) UpdatePageData(ctx context.Context, index int, patch domain.PageData) bool {
	return e.change("edit page", func() bool { return e.Pages.UpdateData(ctx, index, patch) })
}

// RenamePage sets the navigation title of the page at index.
func (e *Editor) RenamePage(ctx context.Context, index int, title string) bool {
	return e.change("rename page", func() bool { return e.Pages.SetTitle(ctx, index, title) })
}

// UpdateDocument merges a JSON object patch into the shared document.
func (e *Editor) UpdateDocument(ctx context.Context, patch json.RawMessage) error {
	var err error
	e.change("edit document", func() bool {
		err = e.Docs.Update(ctx, patch)
		return err == nil
	})
	return err
}

// AddBlurRegion stores rect on the page with pageID. Unknown pages are refused.
func (e *Editor) AddBlurRegion(ctx context.Context, pageID string, rect domain.Rect) (domain.BlurRegion, bool) {
	if e.Pages.IndexOf(pageID) < 0 {
		return domain.BlurRegion{}, false
	}
	var r domain.BlurRegion
	e.change("add blur", func() bool {
		r = e.Blur.AddRegion(ctx, pageID, rect)
		return true
	})
	return r, true
}

// AddBlurDrag converts a pointer drag inside container into a region.
// Drags below the minimum size are ignored.
func (e *Editor) AddBlurDrag(ctx context.Context, pageID string, container blur.Size, start, end blur.Point) (domain.BlurRegion, bool) {
	rect, ok := blur.RectFromDrag(container, start, end)
	if !ok {
		return domain.BlurRegion{}, false
	}
	return e.AddBlurRegion(ctx, pageID, rect)
}

// RemoveBlurRegion drops one region.
func (e *Editor) RemoveBlurRegion(ctx context.Context, pageID, regionID string) bool {
	return e.change("remove blur", func() bool { return e.Blur.RemoveRegion(ctx, pageID, regionID) })
}

// ClearBlur drops every region of a page.
func (e *Editor) ClearBlur(ctx context.Context, pageID string) bool {
	return e.change("clear blur", func() bool {
		if len(e.Blur.RegionsFor(pageID)) == 0 {
			return false
		}
		e.Blur.ClearPage(ctx, pageID)
		return true
	})
}

// Reset restores the default document and page set and drops all regions.
func (e *Editor) Reset(ctx context.Context) {
	e.change("reset", func() bool {
		e.Docs.Reset(ctx)
		e.Blur.Forget()
		e.Pages.Replace(ctx, nil)
		return true
	})
	e.log.InfoContext(ctx, "editor reset")
}

// Undo reverts the last change and returns its label.
func (e *Editor) Undo(ctx context.Context) (string, bool, error) {
	s, ok := e.history.Undo(e.capture(""))
	if !ok {
		return "", false, nil
	}
	return s.Label, true, e.restore(ctx, s)
}

// Redo reapplies the last undone change and returns its label.
func (e *Editor) Redo(ctx context.Context) (string, bool, error) {
	s, ok := e.history.Redo(e.capture(""))
	if !ok {
		return "", false, nil
	}
	return s.Label, true, e.restore(ctx, s)
}

func (e *Editor) pruneBlur(ctx context.Context) {
	e.Blur.Prune(ctx, func(id string) bool { return e.Pages.IndexOf(id) >= 0 })
}
