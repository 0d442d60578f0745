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
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultMaxBackups is how many previous versions FileStore keeps per key.
const DefaultMaxBackups = 5

// FileStore stores each key as <dir>/<key>.json. Writes go to a temp file in
// the same directory and are renamed over the target; the previous value is
// copied to <backupDir>/<key>.json.<stamp>.bak first. A record that fails to
// parse as JSON is served from its latest backup.
type FileStore struct {
	dir        string
	backupDir  string
	maxBackups int
	mu         sync.Mutex
}

// NewFileStore creates dir and backupDir if needed. maxBackups <= 0 uses DefaultMaxBackups.
func NewFileStore(dir, backupDir string, maxBackups int) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("data dir is required")
	}
	if backupDir == "" {
		backupDir = filepath.Join(dir, BackupsDirName)
	}
	for _, d := range []string{dir, backupDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", d, err)
		}
	}
	if maxBackups <= 0 {
		maxBackups = DefaultMaxBackups
	}
	return &FileStore{dir: dir, backupDir: backupDir, maxBackups: maxBackups}, nil
}

func (f *FileStore) path(key string) string {
	return filepath.Join(f.dir, safeKey(key)+".json")
}

func (f *FileStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, err := os.ReadFile(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", key, err)
	}
	if json.Valid(b) {
		return b, true, nil
	}
	bak, berr := f.latestBackup(key)
	if berr != nil {
		return nil, false, fmt.Errorf("parse %s: invalid json; backup attempt: %v", key, berr)
	}
	return bak, true, nil
}

func (f *FileStore) Set(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	target := f.path(key)
	if _, err := os.Stat(target); err == nil {
		stamp := time.Now().Format("20060102-150405.000000000")
		bpath := filepath.Join(f.backupDir, fmt.Sprintf("%s.json.%s.bak", safeKey(key), stamp))
		if err := copyFile(target, bpath); err != nil {
			return fmt.Errorf("backup %s: %w", key, err)
		}
		f.pruneBackups(key)
	}
	temp := filepath.Join(f.dir, fmt.Sprintf(".%s.tmp-%d-%d", safeKey(key), os.Getpid(), rand.Int()))
	if err := writeFileSync(temp, value); err != nil {
		return fmt.Errorf("write temp %s: %w", key, err)
	}
	if err := os.Rename(temp, target); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace %s: %w", key, err)
	}
	return nil
}

func (f *FileStore) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

func (f *FileStore) backups(key string) []string {
	ents, err := os.ReadDir(f.backupDir)
	if err != nil {
		return nil
	}
	prefix := safeKey(key) + ".json."
	var out []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(f.backupDir, name))
		}
	}
	// stamp in the name sorts chronologically
	sort.Strings(out)
	return out
}

func (f *FileStore) latestBackup(key string) ([]byte, error) {
	list := f.backups(key)
	for i := len(list) - 1; i >= 0; i-- {
		b, err := os.ReadFile(list[i])
		if err == nil && json.Valid(b) {
			return b, nil
		}
	}
	return nil, errors.New("no usable backup found")
}

func (f *FileStore) pruneBackups(key string) {
	list := f.backups(key)
	for len(list) > f.maxBackups {
		_ = os.Remove(list[0])
		list = list[1:]
	}
}

// safeKey maps a key to a file name component.
func safeKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// writeFileSync writes data to path and flushes it to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies src over dst.
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}
