/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"

	applog "tourdeck/internal/log"
)

// DefaultImageTimeout bounds the load of a single image.
const DefaultImageTimeout = 10 * time.Second

// maxImageEdge is the longest edge, in pixels, kept for embedded images.
const maxImageEdge = 1600

// maxImageBytes caps how much of a single image is read.
const maxImageBytes = 32 << 20

// Image is a decoded image ready to embed, re-encoded as JPEG.
type Image struct {
	Data   []byte
	Width  int
	Height int
}

// PreloadOptions controls Preload.
type PreloadOptions struct {
	// AssetsDir resolves relative image paths.
	AssetsDir string
	// Timeout applies to each image independently.
	Timeout time.Duration
	// Concurrency limits parallel loads; 0 means 4.
	Concurrency int
	Client      *http.Client
}

// Preload fetches every image in refs concurrently and waits until each has
// loaded or failed. Failures are logged and left out of the result; they
// never abort the export.
func Preload(ctx context.Context, refs []string, opt PreloadOptions) map[string]Image {
	if opt.Timeout <= 0 {
		opt.Timeout = DefaultImageTimeout
	}
	if opt.Concurrency <= 0 {
		opt.Concurrency = 4
	}
	if opt.Client == nil {
		opt.Client = http.DefaultClient
	}
	l := applog.WithOperation(applog.WithComponent("export"), "preload")

	var mu sync.Mutex
	out := make(map[string]Image, len(refs))
	g := new(errgroup.Group)
	g.SetLimit(opt.Concurrency)
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		g.Go(func() error {
			ictx, cancel := context.WithTimeout(ctx, opt.Timeout)
			defer cancel()
			img, err := loadImage(ictx, ref, opt)
			if err != nil {
				l.WarnContext(ctx, "image skipped", slog.String("ref", ref), slog.Any("err", err))
				return nil
			}
			mu.Lock()
			out[ref] = img
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	l.DebugContext(ctx, "preload done", slog.Int("requested", len(refs)), slog.Int("loaded", len(out)))
	return out
}

func loadImage(ctx context.Context, ref string, opt PreloadOptions) (Image, error) {
	type result struct {
		img Image
		err error
	}
	done := make(chan result, 1)
	go func() {
		raw, err := readRef(ctx, ref, opt)
		if err != nil {
			done <- result{err: err}
			return
		}
		img, err := normalizeImage(raw)
		done <- result{img: img, err: err}
	}()
	select {
	case <-ctx.Done():
		return Image{}, fmt.Errorf("load %s: %w", ref, ctx.Err())
	case r := <-done:
		return r.img, r.err
	}
}

func readRef(ctx context.Context, ref string, opt PreloadOptions) ([]byte, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
		if err != nil {
			return nil, err
		}
		resp, err := opt.Client.Do(req)
		if err != nil {
			return nil, err
		}
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch %s: status %d", ref, resp.StatusCode)
		}
		return io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	}
	path := strings.TrimPrefix(ref, "file://")
	if !filepath.IsAbs(path) && opt.AssetsDir != "" {
		path = filepath.Join(opt.AssetsDir, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(io.LimitReader(f, maxImageBytes))
}

// normalizeImage decodes any registered format, downscales it to
// maxImageEdge and re-encodes it as JPEG.
func normalizeImage(raw []byte) (Image, error) {
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return Image{}, fmt.Errorf("decode: %w", err)
	}
	b := src.Bounds()
	if b.Dx() > maxImageEdge || b.Dy() > maxImageEdge {
		src = imaging.Fit(src, maxImageEdge, maxImageEdge, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, src, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return Image{}, fmt.Errorf("encode: %w", err)
	}
	nb := src.Bounds()
	return Image{Data: buf.Bytes(), Width: nb.Dx(), Height: nb.Dy()}, nil
}
