/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package blur

import (
	"context"
	"fmt"
	"math"
	"testing"

	"tourdeck/internal/domain"
	"tourdeck/internal/storage"
)

func newTestStore(t *testing.T) (*Store, *storage.MemoryStore) {
	t.Helper()
	kv := storage.NewMemoryStore()
	s := NewStore(context.Background(), kv)
	n := 0
	s.newID = func() string { n++; return fmt.Sprintf("r%d", n) }
	return s, kv
}

func near(a, b float64) bool { return math.Abs(a-b) < 0.01 }

func TestRectFromDrag(t *testing.T) {
	r, ok := RectFromDrag(Size{Width: 400, Height: 300}, Point{X: 20, Y: 20}, Point{X: 120, Y: 70})
	if !ok {
		t.Fatalf("drag rejected")
	}
	if !near(r.X, 5) || !near(r.Y, 6.67) || !near(r.Width, 25) || !near(r.Height, 16.67) {
		t.Fatalf("unexpected rect %+v", r)
	}

	// reversed drag normalizes to the top-left corner
	r2, ok := RectFromDrag(Size{Width: 400, Height: 300}, Point{X: 120, Y: 70}, Point{X: 20, Y: 20})
	if !ok || r2 != r {
		t.Fatalf("reversed drag = %+v, %v", r2, ok)
	}

	if _, ok := RectFromDrag(Size{Width: 400, Height: 300}, Point{X: 10, Y: 10}, Point{X: 15, Y: 15}); ok {
		t.Fatalf("5x5 drag accepted")
	}
	if _, ok := RectFromDrag(Size{Width: 400, Height: 300}, Point{X: 10, Y: 10}, Point{X: 200, Y: 15}); ok {
		t.Fatalf("thin drag accepted")
	}
	if _, ok := RectFromDrag(Size{}, Point{}, Point{X: 50, Y: 50}); ok {
		t.Fatalf("drag in empty container accepted")
	}

	// pointer dragged outside the container is clamped
	r3, ok := RectFromDrag(Size{Width: 100, Height: 100}, Point{X: -20, Y: 50}, Point{X: 150, Y: 80})
	if !ok {
		t.Fatalf("overflow drag rejected")
	}
	if r3.X != 0 || r3.X+r3.Width > 100 || r3.Y+r3.Height > 100 {
		t.Fatalf("overflow not clamped: %+v", r3)
	}
}

func TestAddRemoveRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, kv := newTestStore(t)

	reg := s.AddRegion(ctx, "p1", domain.Rect{X: 10, Y: 10, Width: 20, Height: 20})
	if reg.PageID != "p1" || reg.ID == "" {
		t.Fatalf("region not stamped: %+v", reg)
	}
	if got := s.RegionsFor("p1"); len(got) != 1 {
		t.Fatalf("expected 1 region, got %d", len(got))
	}
	persisted := storage.GetJSON(ctx, kv, storage.KeyBlurData, domain.BlurData{})
	if len(persisted["p1"]) != 1 {
		t.Fatalf("region not persisted: %+v", persisted)
	}

	if s.RemoveRegion(ctx, "p1", "nope") {
		t.Fatalf("removing unknown id reported success")
	}
	if !s.RemoveRegion(ctx, "p1", reg.ID) {
		t.Fatalf("RemoveRegion failed")
	}
	if got := s.RegionsFor("p1"); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", got)
	}
}

func TestAddRegionClamps(t *testing.T) {
	s, _ := newTestStore(t)
	r := s.AddRegion(context.Background(), "p", domain.Rect{X: -5, Y: 90, Width: 150, Height: 30})
	for _, v := range []float64{r.X, r.Y, r.Width, r.Height, r.X + r.Width, r.Y + r.Height} {
		if v < 0 || v > 100 {
			t.Fatalf("value out of range in %+v", r)
		}
	}
}

func TestToggleModeAndClearPage(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	if !s.ToggleMode("p") || !s.IsActive("p") {
		t.Fatalf("toggle on failed")
	}
	if s.ToggleMode("p") || s.IsActive("p") {
		t.Fatalf("toggle off failed")
	}
	s.ToggleMode("p")
	s.AddRegion(ctx, "p", domain.Rect{Width: 10, Height: 10})
	s.AddRegion(ctx, "q", domain.Rect{Width: 10, Height: 10})
	s.ClearPage(ctx, "p")
	if len(s.RegionsFor("p")) != 0 || s.IsActive("p") {
		t.Fatalf("ClearPage left state behind")
	}
	if len(s.RegionsFor("q")) != 1 {
		t.Fatalf("ClearPage touched other page")
	}
}

func TestHydrateNormalizesPageID(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryStore()
	storage.SetJSON(ctx, kv, storage.KeyBlurData, domain.BlurData{
		"p1": {{ID: "a", PageID: "wrong", Width: 5, Height: 5}},
		"p2": {},
	})
	s := NewStore(ctx, kv)
	got := s.RegionsFor("p1")
	if len(got) != 1 || got[0].PageID != "p1" {
		t.Fatalf("pageId not normalized: %+v", got)
	}
	if ids := s.Snapshot(); len(ids) != 1 {
		t.Fatalf("empty page list kept: %v", ids)
	}
}

func TestPruneAndRestore(t *testing.T) {
	ctx := context.Background()
	s, kv := newTestStore(t)
	s.AddRegion(ctx, "keep", domain.Rect{Width: 10, Height: 10})
	s.AddRegion(ctx, "gone", domain.Rect{Width: 10, Height: 10})
	snap := s.Snapshot()

	if n := s.Prune(ctx, func(id string) bool { return id == "keep" }); n != 1 {
		t.Fatalf("Prune = %d", n)
	}
	if len(s.RegionsFor("gone")) != 0 {
		t.Fatalf("orphan kept")
	}

	s.Restore(ctx, snap)
	if len(s.RegionsFor("gone")) != 1 {
		t.Fatalf("Restore lost regions")
	}
	persisted := storage.GetJSON(ctx, kv, storage.KeyBlurData, domain.BlurData{})
	if len(persisted) != 2 {
		t.Fatalf("restore not persisted: %v", persisted)
	}
}
