/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package bundle packs a proposal and its local images into one zip file so
// it can move between workspaces.
package bundle

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	applog "tourdeck/internal/log"
)

// Entry names inside a bundle.
const (
	ManifestName = "bundle.manifest.txt"
	SiteName     = "tour-data.json"
	assetsPrefix = "assets/"
)

// ErrNoSite is returned by Install for a zip without a site export.
var ErrNoSite = errors.New("bundle has no " + SiteName)

// FileName returns the default bundle name for t.
func FileName(t time.Time) string {
	return fmt.Sprintf("tour-bundle-%s.zip", t.Format("2006-01-02"))
}

// Create writes site (a full-site export) and every file under assetsDir to
// a zip at dest. A missing assetsDir yields a bundle without images. It
// returns the number of asset files added.
func Create(dest string, site []byte, assetsDir string) (int, error) {
	l := applog.WithOperation(applog.WithComponent("bundle"), "create").With(slog.String("zip", dest))
	if strings.TrimSpace(dest) == "" {
		return 0, errors.New("destination is required")
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, fmt.Errorf("ensure zip dir: %w", err)
	}
	zf, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("create zip: %w", err)
	}
	defer func() { _ = zf.Close() }()
	zw := zip.NewWriter(zf)

	manifest := fmt.Sprintf("TourDeck Proposal Bundle\nCreated: %s\n\n%s holds the proposal, %s the images it references by relative path.\n",
		time.Now().Format(time.RFC3339), SiteName, assetsPrefix)
	if err := addBytes(zw, ManifestName, []byte(manifest)); err != nil {
		return 0, err
	}
	if err := addBytes(zw, SiteName, site); err != nil {
		return 0, err
	}

	added := 0
	err = filepath.WalkDir(assetsDir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, os.ErrNotExist) && p == assetsDir {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(assetsDir, p)
		if err != nil {
			return err
		}
		fw, err := zw.Create(assetsPrefix + filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		if _, err := io.Copy(fw, f); err != nil {
			return err
		}
		added++
		return nil
	})
	if err != nil {
		l.Error("zip build failed", slog.Any("err", err))
		return added, fmt.Errorf("build zip: %w", err)
	}
	if err := zw.Close(); err != nil {
		return added, fmt.Errorf("finish zip: %w", err)
	}
	l.Info("bundle created", slog.Int("assets", added))
	return added, nil
}

func addBytes(zw *zip.Writer, name string, b []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// Install extracts the bundle's images into assetsDir and returns its site
// export. Existing files are kept; entries that would land outside
// assetsDir are skipped. installed counts written files only.
func Install(src string, assetsDir string) (site []byte, installed int, err error) {
	l := applog.WithOperation(applog.WithComponent("bundle"), "install").With(slog.String("zip", src))
	r, err := zip.OpenReader(src)
	if err != nil {
		return nil, 0, fmt.Errorf("open bundle: %w", err)
	}
	defer func() { _ = r.Close() }()

	for _, f := range r.File {
		switch {
		case f.Name == SiteName:
			if site, err = readEntry(f); err != nil {
				return nil, installed, err
			}
		case strings.HasPrefix(f.Name, assetsPrefix) && !f.FileInfo().IsDir():
			rel := path.Clean(strings.TrimPrefix(f.Name, assetsPrefix))
			if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") || path.IsAbs(rel) {
				l.Warn("skip entry outside assets", slog.String("entry", f.Name))
				continue
			}
			target := filepath.Join(assetsDir, filepath.FromSlash(rel))
			if _, err := os.Stat(target); err == nil {
				l.Warn("skip existing file", slog.String("path", target))
				continue
			}
			if err := extract(f, target); err != nil {
				return nil, installed, err
			}
			installed++
		}
	}
	if site == nil {
		return nil, installed, ErrNoSite
	}
	l.Info("bundle installed", slog.Int("assets", installed))
	return site, installed, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}

func extract(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
