/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"tourdeck/internal/document"
	"tourdeck/internal/domain"
	"tourdeck/internal/export"
	"tourdeck/internal/transfer"
)

// ExportSite renders the full-site export and its file name.
func (e *Editor) ExportSite() ([]byte, string, error) {
	now := e.now()
	b, err := transfer.EncodeSite(e.Docs.Get(), e.Pages.List(), now)
	if err != nil {
		return nil, "", err
	}
	return b, transfer.SiteFileName(now), nil
}

// ImportSite replaces the document and page list with the contents of a
// full-site export. The document is merged over the defaults, regions of
// pages that are gone are dropped. On error nothing changes.
func (e *Editor) ImportSite(ctx context.Context, b []byte) error {
	imp, err := transfer.DecodeSite(b)
	if err != nil {
		return err
	}
	doc, err := document.MergeOver(e.Docs.Defaults(), imp.TourData)
	if err != nil {
		return fmt.Errorf("%w: tourData: %v", transfer.ErrInvalidImport, err)
	}
	if err := uniqueDays(doc); err != nil {
		return fmt.Errorf("%w: tourData: %v", transfer.ErrInvalidImport, err)
	}
	e.change("import", func() bool {
		e.Docs.Replace(ctx, doc)
		e.Pages.Replace(ctx, imp.PageConfigs)
		e.pruneBlur(ctx)
		return true
	})
	e.log.InfoContext(ctx, "site imported", slog.Int("pages", e.Pages.Len()))
	return nil
}

// uniqueDays refuses a document whose day-keyed collections repeat a day.
func uniqueDays(doc domain.Document) error {
	seen := map[int]bool{}
	for _, d := range doc.DetailedSchedules {
		if seen[d.Day] {
			return fmt.Errorf("detailedSchedules repeats day %d", d.Day)
		}
		seen[d.Day] = true
	}
	clear(seen)
	for _, d := range doc.TouristSpots {
		if seen[d.Day] {
			return fmt.Errorf("touristSpots repeats day %d", d.Day)
		}
		seen[d.Day] = true
	}
	return nil
}

// ExportPage renders the single-page export of the page at index.
func (e *Editor) ExportPage(index int) ([]byte, string, error) {
	p, ok := e.Pages.Get(index)
	if !ok {
		return nil, "", fmt.Errorf("page %d out of range", index)
	}
	data, ok := e.Pages.Resolve(index)
	if !ok {
		return nil, "", fmt.Errorf("page %d has no data", index)
	}
	now := e.now()
	b, err := transfer.EncodePage(p, data, now)
	if err != nil {
		return nil, "", err
	}
	return b, transfer.PageFileName(p.Type, now), nil
}

// ImportPage inserts the page in a single-page export at the current position.
func (e *Editor) ImportPage(ctx context.Context, b []byte) (domain.PageDescriptor, error) {
	imp, err := transfer.DecodePage(b)
	if err != nil {
		return domain.PageDescriptor{}, err
	}
	var p domain.PageDescriptor
	e.change("import page", func() bool {
		p, err = e.Pages.ImportPage(ctx, imp.PageConfig, imp.PageData, e.Pages.Current())
		return err == nil
	})
	if err != nil {
		return domain.PageDescriptor{}, fmt.Errorf("%w: %v", transfer.ErrInvalidImport, err)
	}
	return p, nil
}

// RenderPages lists every page with its resolved data and blur regions, in order.
func (e *Editor) RenderPages() []export.Page {
	list := e.Pages.List()
	out := make([]export.Page, 0, len(list))
	for i, p := range list {
		data, _ := e.Pages.Resolve(i)
		out = append(out, export.Page{Descriptor: p, Data: data, Regions: e.Blur.RegionsFor(p.ID)})
	}
	return out
}

// RenderPDF writes the proposal as a PDF and returns the suggested file name.
// The document title is used when opt.Title is empty.
func (e *Editor) RenderPDF(ctx context.Context, w io.Writer, opt export.PDFOptions) (string, error) {
	if opt.Title == "" {
		opt.Title = e.Docs.Get().Title
	}
	if err := export.RenderPDF(ctx, e.RenderPages(), w, opt); err != nil {
		return "", err
	}
	return export.PDFFileName(e.now()), nil
}
