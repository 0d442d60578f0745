/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"errors"
	"testing"
)

type failingStore struct{ err error }

func (f failingStore) Get(context.Context, string) ([]byte, bool, error) { return nil, false, f.err }
func (f failingStore) Set(context.Context, string, []byte) error         { return f.err }
func (f failingStore) Remove(context.Context, string) error              { return f.err }

func TestGetJSONFallsBackToDefault(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	if got := GetJSON(ctx, m, "missing", 7); got != 7 {
		t.Fatalf("missing key: got %d want 7", got)
	}
	_ = m.Set(ctx, "bad", []byte("{not json"))
	if got := GetJSON(ctx, m, "bad", []string{"def"}); len(got) != 1 || got[0] != "def" {
		t.Fatalf("corrupt value: got %v", got)
	}
	if got := GetJSON(ctx, failingStore{err: errors.New("quota")}, "k", "def"); got != "def" {
		t.Fatalf("read error: got %q", got)
	}
}

func TestSetJSONRoundTripAndSwallowsErrors(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	SetJSON(ctx, m, KeyPageConfigs, map[string]int{"a": 1})
	got := GetJSON(ctx, m, KeyPageConfigs, map[string]int{})
	if got["a"] != 1 {
		t.Fatalf("round trip lost value: %v", got)
	}

	// must not panic or return anything
	SetJSON(ctx, failingStore{err: errors.New("disabled")}, KeyPageConfigs, 1)
	Delete(ctx, failingStore{err: errors.New("disabled")}, KeyPageConfigs)
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	v := []byte(`"a"`)
	_ = m.Set(ctx, "k", v)
	v[1] = 'b'
	got, ok, _ := m.Get(ctx, "k")
	if !ok || string(got) != `"a"` {
		t.Fatalf("store aliased caller buffer: %s", got)
	}
	_ = m.Remove(ctx, "k")
	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Fatalf("key still present after Remove")
	}
}
