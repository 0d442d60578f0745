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
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileStoreWritesAndBacksUp(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	fs, err := NewFileStore(filepath.Join(root, "data"), filepath.Join(root, "backups"), 2)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	for _, v := range []string{`{"v":1}`, `{"v":2}`, `{"v":3}`, `{"v":4}`} {
		if err := fs.Set(ctx, KeyTourData, []byte(v)); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}
	got, ok, err := fs.Get(ctx, KeyTourData)
	if err != nil || !ok || string(got) != `{"v":4}` {
		t.Fatalf("Get = %s %v %v", got, ok, err)
	}
	ents, _ := os.ReadDir(filepath.Join(root, "backups"))
	var baks int
	for _, e := range ents {
		if strings.HasPrefix(e.Name(), "tourData.json.") && strings.HasSuffix(e.Name(), ".bak") {
			baks++
		}
	}
	if baks != 2 {
		t.Fatalf("expected backups pruned to 2, found %d", baks)
	}
}

func TestFileStoreFallsBackToBackupOnCorruption(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	fs, err := NewFileStore(filepath.Join(root, "data"), "", 0)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	_ = fs.Set(ctx, KeyPageConfigs, []byte(`[1]`))
	_ = fs.Set(ctx, KeyPageConfigs, []byte(`[1,2]`))
	if err := os.WriteFile(filepath.Join(root, "data", "pageConfigs.json"), []byte("[1,"), 0o644); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	got, ok, err := fs.Get(ctx, KeyPageConfigs)
	if err != nil || !ok || string(got) != `[1]` {
		t.Fatalf("expected latest backup, got %s %v %v", got, ok, err)
	}
}

func TestFileStoreMissingAndRemove(t *testing.T) {
	ctx := context.Background()
	fs, err := NewFileStore(t.TempDir(), "", 0)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if _, ok, err := fs.Get(ctx, KeyBlurData); ok || err != nil {
		t.Fatalf("missing key: ok=%v err=%v", ok, err)
	}
	_ = fs.Set(ctx, KeyTourAuthenticated, []byte(`"true"`))
	if err := fs.Remove(ctx, KeyTourAuthenticated); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := fs.Remove(ctx, KeyTourAuthenticated); err != nil {
		t.Fatalf("Remove twice: %v", err)
	}
	if got := safeKey("a/b c"); got != "a_b_c" {
		t.Fatalf("safeKey = %q", got)
	}
}
