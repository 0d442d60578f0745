/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package blur keeps the per-page redaction regions and the session-only set
// of pages with region drawing switched on.
package blur

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"tourdeck/internal/domain"
	applog "tourdeck/internal/log"
	"tourdeck/internal/storage"
)

// Store owns the blurData record. It is not safe for concurrent use.
type Store struct {
	kv      storage.Store
	regions domain.BlurData
	active  map[string]bool
	newID   func() string
	log     *slog.Logger
}

// NewStore hydrates the regions persisted in kv.
func NewStore(ctx context.Context, kv storage.Store) *Store {
	s := &Store{
		kv:     kv,
		active: map[string]bool{},
		newID:  uuid.NewString,
		log:    applog.WithComponent("blur"),
	}
	s.regions = storage.GetJSON(ctx, kv, storage.KeyBlurData, domain.BlurData{})
	if s.regions == nil {
		s.regions = domain.BlurData{}
	}
	s.normalize()
	return s
}

// normalize restores the pageId stamp of every region to its map key.
func (s *Store) normalize() {
	for pageID, list := range s.regions {
		if len(list) == 0 {
			delete(s.regions, pageID)
			continue
		}
		for i := range list {
			list[i].PageID = pageID
		}
	}
}

// ToggleMode flips region drawing for pageID and returns the new state.
func (s *Store) ToggleMode(pageID string) bool {
	if s.active[pageID] {
		delete(s.active, pageID)
		return false
	}
	s.active[pageID] = true
	return true
}

// IsActive reports whether region drawing is on for pageID.
func (s *Store) IsActive(pageID string) bool { return s.active[pageID] }

// AddRegion stores rect for pageID. The geometry is clamped into [0,100].
func (s *Store) AddRegion(ctx context.Context, pageID string, rect domain.Rect) domain.BlurRegion {
	r := Clamp(rect)
	region := domain.BlurRegion{
		ID:     s.newID(),
		PageID: pageID,
		X:      r.X,
		Y:      r.Y,
		Width:  r.Width,
		Height: r.Height,
	}
	s.regions[pageID] = append(s.regions[pageID], region)
	s.log.DebugContext(ctx, "region added", slog.String("page", pageID), slog.String("region", region.ID))
	s.persist(ctx)
	return region
}

// RemoveRegion drops one region. It reports whether anything was removed.
func (s *Store) RemoveRegion(ctx context.Context, pageID, regionID string) bool {
	list := s.regions[pageID]
	out := list[:0:0]
	for _, r := range list {
		if r.ID != regionID {
			out = append(out, r)
		}
	}
	if len(out) == len(list) {
		return false
	}
	if len(out) == 0 {
		delete(s.regions, pageID)
	} else {
		s.regions[pageID] = out
	}
	s.persist(ctx)
	return true
}

// ClearPage drops every region of pageID and turns its drawing mode off.
func (s *Store) ClearPage(ctx context.Context, pageID string) {
	delete(s.active, pageID)
	if _, ok := s.regions[pageID]; !ok {
		return
	}
	delete(s.regions, pageID)
	s.persist(ctx)
}

// RegionsFor returns a copy of the regions of pageID, never nil.
func (s *Store) RegionsFor(pageID string) []domain.BlurRegion {
	list := s.regions[pageID]
	out := make([]domain.BlurRegion, 0, len(list))
	for _, r := range list {
		out = append(out, r.Clone())
	}
	return out
}

// Snapshot returns a deep copy of all regions.
func (s *Store) Snapshot() domain.BlurData {
	out := make(domain.BlurData, len(s.regions))
	for id := range s.regions {
		out[id] = s.RegionsFor(id)
	}
	return out
}

// Restore replaces all regions with data and persists them.
func (s *Store) Restore(ctx context.Context, data domain.BlurData) {
	s.regions = domain.BlurData{}
	for id, list := range data {
		s.regions[id] = append([]domain.BlurRegion(nil), list...)
	}
	s.normalize()
	s.persist(ctx)
}

// Prune drops the regions of every page for which keep returns false and
// returns how many pages were dropped.
func (s *Store) Prune(ctx context.Context, keep func(pageID string) bool) int {
	n := 0
	for id := range s.regions {
		if !keep(id) {
			delete(s.regions, id)
			delete(s.active, id)
			n++
		}
	}
	if n > 0 {
		s.log.InfoContext(ctx, "orphaned regions pruned", slog.Int("pages", n))
		s.persist(ctx)
	}
	return n
}

// Forget clears the in-memory state without persisting. The caller removes
// the blurData record itself.
func (s *Store) Forget() {
	s.regions = domain.BlurData{}
	s.active = map[string]bool{}
}

func (s *Store) persist(ctx context.Context) {
	storage.SetJSON(ctx, s.kv, storage.KeyBlurData, s.regions)
}
