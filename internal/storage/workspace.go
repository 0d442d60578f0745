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
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "tourdeck/internal/log"
)

const (
	DataDirName    = "data"
	ExportsDirName = "exports"
	BackupsDirName = "backups"
	AssetsDirName  = "assets"
	stateDirName   = ".tourdeck"
	sqliteFileName = "state.sqlite"
)

var standardSubDirs = []string{DataDirName, ExportsDirName, BackupsDirName, AssetsDirName}

// Backend names accepted by Options.Backend.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// Options selects and configures the workspace backend.
type Options struct {
	Backend       string
	PostgresDSN   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	MaxBackups    int
}

// Workspace is a proposal folder on disk plus the store holding its editor state.
type Workspace struct {
	Root    string
	Backend string
	Store   Store
	closer  io.Closer
}

// InitWorkspace creates root and its standard subfolders.
func InitWorkspace(root string) error {
	if strings.TrimSpace(root) == "" {
		return errors.New("root path is required")
	}
	for _, d := range standardSubDirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return fmt.Errorf("create subdir %s: %w", d, err)
		}
	}
	return nil
}

// OpenWorkspace opens the workspace at root with the configured backend,
// creating the folder structure if it is missing.
func OpenWorkspace(ctx context.Context, root string, opts Options) (*Workspace, error) {
	if err := InitWorkspace(root); err != nil {
		return nil, err
	}
	backend := strings.ToLower(strings.TrimSpace(opts.Backend))
	if backend == "" {
		backend = BackendFile
	}
	ws := &Workspace{Root: root, Backend: backend}
	switch backend {
	case BackendFile:
		fs, err := NewFileStore(filepath.Join(root, DataDirName), filepath.Join(root, BackupsDirName), opts.MaxBackups)
		if err != nil {
			return nil, err
		}
		ws.Store = fs
	case BackendSQLite:
		s, err := OpenSQLite(ctx, filepath.Join(root, stateDirName, sqliteFileName))
		if err != nil {
			return nil, err
		}
		ws.Store, ws.closer = s, s
	case BackendPostgres:
		s, err := OpenPostgres(ctx, opts.PostgresDSN, namespaceFor(root))
		if err != nil {
			return nil, err
		}
		ws.Store, ws.closer = s, s
	case BackendRedis:
		s, err := OpenRedis(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB, "tourdeck:"+namespaceFor(root))
		if err != nil {
			return nil, err
		}
		ws.Store, ws.closer = s, s
	case BackendMemory:
		ws.Store = NewMemoryStore()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
	applog.WithComponent("storage").DebugContext(ctx, "workspace open",
		slog.String("root", root), slog.String("backend", backend))
	return ws, nil
}

// namespaceFor derives a stable namespace from the workspace folder name.
func namespaceFor(root string) string {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return filepath.Base(root)
}

// ExportsDir is where exported files are written by default.
func (w *Workspace) ExportsDir() string { return filepath.Join(w.Root, ExportsDirName) }

// BackupsDir holds backups, crash reports and crash autosaves.
func (w *Workspace) BackupsDir() string { return filepath.Join(w.Root, BackupsDirName) }

// AssetsDir holds images referenced by relative path from the document.
func (w *Workspace) AssetsDir() string { return filepath.Join(w.Root, AssetsDirName) }

// Close releases the backend connection, if any.
func (w *Workspace) Close() error {
	if w == nil || w.closer == nil {
		return nil
	}
	return w.closer.Close()
}

// AutosaveCrashSnapshot writes every state key into one JSON file under
// backups/ and returns its path. Unreadable keys are skipped.
func AutosaveCrashSnapshot(ctx context.Context, w *Workspace) (string, error) {
	if w == nil || w.Store == nil {
		return "", errors.New("nil workspace")
	}
	snap := map[string]json.RawMessage{}
	for _, k := range StateKeys {
		b, ok, err := w.Store.Get(ctx, k)
		if err != nil || !ok || !json.Valid(b) {
			continue
		}
		snap[k] = b
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.MkdirAll(w.BackupsDir(), 0o755); err != nil {
		return "", fmt.Errorf("ensure backups dir: %w", err)
	}
	path := filepath.Join(w.BackupsDir(), fmt.Sprintf("crash-autosave-%s.json", time.Now().Format("20060102-150405")))
	if err := writeFileSync(path, data); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}
