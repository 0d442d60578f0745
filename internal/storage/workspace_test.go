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
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestOpenWorkspaceCreatesStructure(t *testing.T) {
	root := filepath.Join(t.TempDir(), "proposal")
	ws, err := OpenWorkspace(context.Background(), root, Options{})
	if err != nil {
		t.Fatalf("OpenWorkspace: %v", err)
	}
	defer func() { _ = ws.Close() }()
	if ws.Backend != BackendFile {
		t.Fatalf("default backend = %q", ws.Backend)
	}
	for _, d := range []string{DataDirName, ExportsDirName, BackupsDirName, AssetsDirName} {
		if fi, err := os.Stat(filepath.Join(root, d)); err != nil || !fi.IsDir() {
			t.Fatalf("expected directory %s", d)
		}
	}
}

func TestOpenWorkspaceSQLiteAndUnknown(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	ws, err := OpenWorkspace(ctx, root, Options{Backend: "SQLite"})
	if err != nil {
		t.Fatalf("OpenWorkspace sqlite: %v", err)
	}
	if _, ok := ws.Store.(*SQLiteStore); !ok {
		t.Fatalf("store type = %T", ws.Store)
	}
	_ = ws.Close()

	if _, err := OpenWorkspace(ctx, root, Options{Backend: "floppy"}); !errors.Is(err, ErrUnknownBackend) {
		t.Fatalf("expected ErrUnknownBackend, got %v", err)
	}
}

func TestAutosaveCrashSnapshot(t *testing.T) {
	ctx := context.Background()
	ws, err := OpenWorkspace(ctx, t.TempDir(), Options{Backend: BackendMemory})
	if err != nil {
		t.Fatalf("OpenWorkspace: %v", err)
	}
	_ = ws.Store.Set(ctx, KeyTourData, []byte(`{"title":"Kyoto"}`))
	_ = ws.Store.Set(ctx, KeyBlurData, []byte(`{broken`))

	path, err := AutosaveCrashSnapshot(ctx, ws)
	if err != nil {
		t.Fatalf("AutosaveCrashSnapshot: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	var got map[string]json.RawMessage
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	if _, ok := got[KeyTourData]; !ok {
		t.Fatalf("snapshot missing tourData: %s", b)
	}
	if _, ok := got[KeyBlurData]; ok {
		t.Fatalf("snapshot should skip corrupt blurData")
	}
}
