/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package pages keeps the ordered list of page descriptors and the current
// page, and keeps the document collections the pages point into consistent.
package pages

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"tourdeck/internal/document"
	"tourdeck/internal/domain"
	applog "tourdeck/internal/log"
	"tourdeck/internal/storage"
)

// ErrInvalidPage is returned by ImportPage for an unusable page config.
var ErrInvalidPage = errors.New("invalid page config")

// Store owns the pageConfigs record. Structural operations never fail; bad
// indices are no-ops reported through the bool result. It is not safe for
// concurrent use.
type Store struct {
	kv      storage.Store
	docs    *document.Store
	pages   []domain.PageDescriptor
	current int
	newID   func() string
	log     *slog.Logger
}

// NewStore creates a page store persisting to kv and editing collections in
// docs. Call Load to hydrate.
func NewStore(kv storage.Store, docs *document.Store) *Store {
	return &Store{kv: kv, docs: docs, newID: uuid.NewString, log: applog.WithComponent("pages")}
}

// Load reads pageConfigs, falling back to the default page set. Missing ids
// and dangling references are repaired.
func (s *Store) Load(ctx context.Context) []domain.PageDescriptor {
	list := storage.GetJSON(ctx, s.kv, storage.KeyPageConfigs, []domain.PageDescriptor(nil))
	if len(list) == 0 {
		list = domain.DefaultPages()
	}
	s.install(ctx, list)
	return s.List()
}

// Replace swaps in a whole page list, as a full-site import does.
func (s *Store) Replace(ctx context.Context, list []domain.PageDescriptor) {
	if len(list) == 0 {
		list = domain.DefaultPages()
	}
	s.install(ctx, list)
	s.log.InfoContext(ctx, "pages replaced", slog.Int("count", len(s.pages)))
}

// Restore reinstalls a list captured with List and a current index, without
// repairing references.
func (s *Store) Restore(ctx context.Context, list []domain.PageDescriptor, current int) {
	s.pages = clonePages(list)
	s.current = clampIndex(current, len(s.pages))
	s.persist(ctx)
}

func (s *Store) install(ctx context.Context, list []domain.PageDescriptor) {
	s.pages = clonePages(list)
	seen := make(map[string]bool, len(s.pages))
	for i := range s.pages {
		if id := s.pages[i].ID; id == "" || seen[id] {
			s.pages[i].ID = s.newID()
		}
		seen[s.pages[i].ID] = true
	}
	s.withDoc(ctx, func(doc *domain.Document) bool {
		changed := false
		for i := range s.pages {
			if refFor(s.pages[i].Type).attach(doc, &s.pages[i]) {
				changed = true
			}
		}
		return changed
	})
	s.current = clampIndex(s.current, len(s.pages))
	s.persist(ctx)
}

// List returns a copy of the page list.
func (s *Store) List() []domain.PageDescriptor { return clonePages(s.pages) }

// Len is the number of pages.
func (s *Store) Len() int { return len(s.pages) }

// Get returns a copy of the page at index.
func (s *Store) Get(index int) (domain.PageDescriptor, bool) {
	if index < 0 || index >= len(s.pages) {
		return domain.PageDescriptor{}, false
	}
	return s.pages[index].Clone(), true
}

// IndexOf returns the position of the page with id, or -1.
func (s *Store) IndexOf(id string) int {
	for i, p := range s.pages {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// Current is the index of the page being viewed.
func (s *Store) Current() int { return s.current }

// SetCurrent moves the view to index.
func (s *Store) SetCurrent(index int) bool {
	if index < 0 || index >= len(s.pages) {
		return false
	}
	s.current = index
	return true
}

// Insert adds p at index, or at the end when index is out of range, with a
// fresh id. An accommodation page without a valid index gets a new blank
// accommodation; a day-keyed page without a day gets the next free day. The
// new page becomes current.
func (s *Store) Insert(ctx context.Context, p domain.PageDescriptor, index int) domain.PageDescriptor {
	p = p.Clone()
	p.ID = s.newID()
	s.withDoc(ctx, func(doc *domain.Document) bool { return refFor(p.Type).attach(doc, &p) })
	if p.Title == "" {
		if day, ok := p.Day(); ok && p.Type.DayKeyed() {
			p.Title = domain.DayTitle(day)
		} else {
			p.Title = domain.DefaultTitle(p.Type)
		}
	}
	if index < 0 || index > len(s.pages) {
		index = len(s.pages)
	}
	s.insertAt(index, p)
	s.current = index
	s.persist(ctx)
	s.log.DebugContext(ctx, "page inserted", slog.String("type", string(p.Type)), slog.Int("index", index))
	return p.Clone()
}

// Remove deletes the page at index and the document entry it exclusively
// references. The last page cannot be removed.
func (s *Store) Remove(ctx context.Context, index int) (domain.PageDescriptor, bool) {
	if len(s.pages) <= 1 || index < 0 || index >= len(s.pages) {
		return domain.PageDescriptor{}, false
	}
	removed := s.pages[index]
	rest := append(s.pages[:index:index], s.pages[index+1:]...)
	s.withDoc(ctx, func(doc *domain.Document) bool { return refFor(removed.Type).detach(doc, removed, rest) })
	s.pages = rest
	if index < s.current {
		s.current--
	}
	s.current = clampIndex(s.current, len(s.pages))
	s.persist(ctx)
	s.log.DebugContext(ctx, "page removed", slog.String("id", removed.ID), slog.Int("index", index))
	return removed.Clone(), true
}

// Duplicate inserts a deep copy of the page at index right after it and
// makes the copy current. Referenced document entries are copied too.
func (s *Store) Duplicate(ctx context.Context, index int) (domain.PageDescriptor, bool) {
	src, ok := s.Get(index)
	if !ok {
		return domain.PageDescriptor{}, false
	}
	dup := src.Clone()
	dup.ID = s.newID()
	s.withDoc(ctx, func(doc *domain.Document) bool { return refFor(src.Type).duplicate(doc, src, &dup) })
	s.insertAt(index+1, dup)
	s.current = index + 1
	s.persist(ctx)
	return dup.Clone(), true
}

// Reorder moves the page at from to position to. The view follows the moved
// page, or shifts by one when the move crosses it.
func (s *Store) Reorder(ctx context.Context, from, to int) bool {
	n := len(s.pages)
	if from == to || from < 0 || from >= n || to < 0 || to >= n {
		return false
	}
	p := s.pages[from]
	s.pages = append(s.pages[:from], s.pages[from+1:]...)
	s.insertAt(to, p)
	s.current = followCurrent(s.current, from, to)
	s.persist(ctx)
	return true
}

func followCurrent(current, from, to int) int {
	switch {
	case current == from:
		return to
	case from < current && current <= to:
		return current - 1
	case to <= current && current < from:
		return current + 1
	}
	return current
}

// UpdateData shallow-merges patch into the data bag of the page at index.
// An accommodation index outside the collection, or a day with no entry, is
// refused.
func (s *Store) UpdateData(ctx context.Context, index int, patch domain.PageData) bool {
	if index < 0 || index >= len(s.pages) {
		return false
	}
	p := &s.pages[index]
	if patch.Index != nil && p.Type == domain.PageAccommodation {
		if n := len(s.docs.Get().Accommodations); *patch.Index < 0 || *patch.Index >= n {
			return false
		}
	}
	if patch.DayNumber != nil && p.Type.DayKeyed() {
		doc := s.docs.Get()
		target := domain.PageDescriptor{Type: p.Type, Data: &domain.PageData{DayNumber: patch.DayNumber}}
		if refFor(p.Type).resolve(&doc, target) == nil {
			return false
		}
	}
	if p.Data == nil {
		p.Data = &domain.PageData{}
	}
	p.Data.Merge(patch)
	s.persist(ctx)
	return true
}

// SetTitle renames the page at index.
func (s *Store) SetTitle(ctx context.Context, index int, title string) bool {
	if index < 0 || index >= len(s.pages) {
		return false
	}
	s.pages[index].Title = title
	s.persist(ctx)
	return true
}

// Resolve returns the data the page at index renders from: the referenced
// accommodation or day entry, or the page fork or shared document.
func (s *Store) Resolve(index int) (any, bool) {
	p, ok := s.Get(index)
	if !ok {
		return nil, false
	}
	doc := s.docs.Get()
	v := refFor(p.Type).resolve(&doc, p)
	return v, v != nil
}

// ImportPage inserts a page read from a single-page export at index. The
// payload is appended to the collection the page type uses; the original
// numeric references are not reused.
func (s *Store) ImportPage(ctx context.Context, cfg domain.PageDescriptor, payload json.RawMessage, index int) (domain.PageDescriptor, error) {
	if !cfg.Type.Valid() {
		return domain.PageDescriptor{}, fmt.Errorf("%w: unknown type %q", ErrInvalidPage, cfg.Type)
	}
	if len(payload) == 0 || string(payload) == "null" {
		return domain.PageDescriptor{}, fmt.Errorf("%w: missing page data", ErrInvalidPage)
	}
	p := cfg.Clone()
	p.ID = s.newID()
	p.Data = nil
	if p.Title == "" {
		p.Title = domain.DefaultTitle(p.Type)
	}
	doc := s.docs.Get()
	changed, err := refFor(p.Type).importPayload(&doc, &p, payload)
	if err != nil {
		return domain.PageDescriptor{}, fmt.Errorf("%w: %v", ErrInvalidPage, err)
	}
	if changed {
		s.docs.Replace(ctx, doc)
	}
	if index < 0 || index > len(s.pages) {
		index = len(s.pages)
	}
	s.insertAt(index, p)
	s.current = index
	s.persist(ctx)
	s.log.InfoContext(ctx, "page imported", slog.String("type", string(p.Type)), slog.Int("index", index))
	return p.Clone(), nil
}

func (s *Store) insertAt(index int, p domain.PageDescriptor) {
	s.pages = append(s.pages, domain.PageDescriptor{})
	copy(s.pages[index+1:], s.pages[index:])
	s.pages[index] = p
}

// withDoc runs fn on a copy of the shared document and stores it when fn
// reports a change.
func (s *Store) withDoc(ctx context.Context, fn func(doc *domain.Document) bool) {
	doc := s.docs.Get()
	if fn(&doc) {
		s.docs.Replace(ctx, doc)
	}
}

func (s *Store) persist(ctx context.Context) {
	storage.SetJSON(ctx, s.kv, storage.KeyPageConfigs, s.pages)
}

func clonePages(in []domain.PageDescriptor) []domain.PageDescriptor {
	out := make([]domain.PageDescriptor, len(in))
	for i, p := range in {
		out[i] = p.Clone()
	}
	return out
}

func clampIndex(i, n int) int {
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}
