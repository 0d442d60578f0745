/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package undo

import (
	"testing"
	"time"
)

func snap(label, blob string, ts time.Time) Snapshot {
	return Snapshot{Label: label, Blob: []byte(blob), TS: ts}
}

func TestUndoRedoBasic(t *testing.T) {
	m := NewManager(Config{MaxBytes: 1024 * 1024, MaxDepth: 10, MinInterval: 10 * time.Millisecond})
	t0 := time.Now()
	m.Record(snap("add page", "a", t0))
	m.Record(snap("remove page", "b", t0.Add(20*time.Millisecond)))
	if _, depth, _ := m.Stats(); depth != 2 {
		t.Fatalf("expected 2 undo entries, got %d", depth)
	}
	s, ok := m.Undo(snap("", "c", t0))
	if !ok || string(s.Blob) != "b" || s.Label != "remove page" {
		t.Fatalf("undo expected 'b', got ok=%v %+v", ok, s)
	}
	if label, ok := m.CanRedo(); !ok || label != "remove page" {
		t.Fatalf("redo label = %q", label)
	}
	s, ok = m.Redo(snap("", "b", t0))
	if !ok || string(s.Blob) != "c" {
		t.Fatalf("redo expected 'c', got ok=%v blob=%q", ok, s.Blob)
	}
	if _, _, redo := m.Stats(); redo != 0 {
		t.Fatalf("redo stack not drained")
	}
}

func TestRecordClearsRedo(t *testing.T) {
	m := NewManager(Config{})
	t0 := time.Now()
	m.Record(snap("x", "1", t0))
	m.Undo(snap("", "2", t0))
	m.Record(snap("y", "3", t0.Add(time.Second)))
	if _, ok := m.CanRedo(); ok {
		t.Fatalf("redo survived a new change")
	}
}

func TestCoalesceKeepsOlderState(t *testing.T) {
	m := NewManager(Config{MinInterval: 50 * time.Millisecond})
	t0 := time.Now()
	m.Record(snap("edit document", "1", t0))
	m.Record(snap("edit document", "2", t0.Add(10*time.Millisecond)))
	m.Record(snap("edit document", "3", t0.Add(40*time.Millisecond)))
	if _, depth, _ := m.Stats(); depth != 1 {
		t.Fatalf("expected coalesced to 1 entry, got %d", depth)
	}
	s, ok := m.Undo(snap("", "now", t0))
	if !ok || string(s.Blob) != "1" {
		t.Fatalf("expected oldest state '1', got %q", s.Blob)
	}

	m.Record(snap("edit document", "4", t0))
	m.Record(snap("move page", "5", t0.Add(time.Millisecond)))
	if _, depth, _ := m.Stats(); depth != 2 {
		t.Fatalf("different labels coalesced")
	}
}

func TestCaps(t *testing.T) {
	m := NewManager(Config{MaxBytes: 1 << 20, MaxDepth: 2, MinInterval: time.Millisecond})
	t0 := time.Now()
	for i := 0; i < 10; i++ {
		m.Record(snap("x", "xxxxx", t0.Add(time.Duration(i)*time.Second)))
	}
	if total, depth, _ := m.Stats(); depth != 2 || total != 10 {
		t.Fatalf("depth cap: depth=%d bytes=%d", depth, total)
	}

	m = NewManager(Config{MaxBytes: 12, MinInterval: time.Millisecond})
	for i := 0; i < 10; i++ {
		m.Record(snap("x", "xxxxx", t0.Add(time.Duration(i)*time.Second)))
	}
	if total, depth, _ := m.Stats(); total > 12 || depth != 2 {
		t.Fatalf("byte cap: depth=%d bytes=%d", depth, total)
	}

	m = NewManager(Config{MaxBytes: 3})
	m.Record(snap("big", "xxxxxxxx", t0))
	if _, depth, _ := m.Stats(); depth != 1 {
		t.Fatalf("newest entry dropped by byte cap")
	}
	m.Clear()
	if total, depth, redo := m.Stats(); total != 0 || depth != 0 || redo != 0 {
		t.Fatalf("Clear left state")
	}
}
