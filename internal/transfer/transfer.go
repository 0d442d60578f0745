/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package transfer encodes and decodes the JSON files used to move a whole
// proposal or a single page between workspaces.
package transfer

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"tourdeck/internal/domain"
)

// ErrInvalidImport is returned for files that fail validation. Nothing is
// applied when it is returned.
var ErrInvalidImport = errors.New("invalid import file")

//go:embed schemas/*.json
var schemaFS embed.FS

// Site is the full-site export file.
type Site struct {
	TourData    domain.Document         `json:"tourData"`
	PageConfigs []domain.PageDescriptor `json:"pageConfigs"`
	ExportedAt  time.Time               `json:"exportedAt"`
}

// Page is the single-page export file. PageData holds the accommodation, the
// day entry or the document the page renders from.
type Page struct {
	PageConfig domain.PageDescriptor `json:"pageConfig"`
	PageData   any                   `json:"pageData"`
	ExportedAt time.Time             `json:"exportedAt"`
}

// SiteFileName is the download name of a full-site export made at t.
func SiteFileName(t time.Time) string {
	return fmt.Sprintf("tour-data-%s.json", t.Format("2006-01-02"))
}

// PageFileName is the download name of a single-page export made at t.
func PageFileName(pt domain.PageType, t time.Time) string {
	return fmt.Sprintf("page-%s-%s.json", pt, t.Format("2006-01-02"))
}

// EncodeSite renders the full-site export.
func EncodeSite(doc domain.Document, pages []domain.PageDescriptor, now time.Time) ([]byte, error) {
	b, err := json.MarshalIndent(Site{TourData: doc, PageConfigs: pages, ExportedAt: now.UTC()}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode site export: %w", err)
	}
	return b, nil
}

// EncodePage renders the single-page export.
func EncodePage(cfg domain.PageDescriptor, data any, now time.Time) ([]byte, error) {
	b, err := json.MarshalIndent(Page{PageConfig: cfg, PageData: data, ExportedAt: now.UTC()}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode page export: %w", err)
	}
	return b, nil
}

// SiteImport is a validated full-site file. TourData is kept raw so the
// caller can merge it over its defaults.
type SiteImport struct {
	TourData    json.RawMessage
	PageConfigs []domain.PageDescriptor
}

// DecodeSite validates and decodes a full-site export.
func DecodeSite(b []byte) (SiteImport, error) {
	if err := validate(siteSchema, b); err != nil {
		return SiteImport{}, err
	}
	var raw struct {
		TourData    json.RawMessage         `json:"tourData"`
		PageConfigs []domain.PageDescriptor `json:"pageConfigs"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return SiteImport{}, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	for i, p := range raw.PageConfigs {
		if !p.Type.Valid() {
			return SiteImport{}, fmt.Errorf("%w: page %d has unknown type %q", ErrInvalidImport, i, p.Type)
		}
	}
	return SiteImport{TourData: raw.TourData, PageConfigs: raw.PageConfigs}, nil
}

// PageImport is a validated single-page file.
type PageImport struct {
	PageConfig domain.PageDescriptor
	PageData   json.RawMessage
}

// DecodePage validates and decodes a single-page export. Both pageConfig and
// pageData must be present.
func DecodePage(b []byte) (PageImport, error) {
	if err := validate(pageSchema, b); err != nil {
		return PageImport{}, err
	}
	var raw struct {
		PageConfig domain.PageDescriptor `json:"pageConfig"`
		PageData   json.RawMessage       `json:"pageData"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return PageImport{}, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	if !raw.PageConfig.Type.Valid() {
		return PageImport{}, fmt.Errorf("%w: unknown page type %q", ErrInvalidImport, raw.PageConfig.Type)
	}
	return PageImport{PageConfig: raw.PageConfig, PageData: raw.PageData}, nil
}

const (
	siteSchema = "schemas/site.schema.json"
	pageSchema = "schemas/page.schema.json"
)

var (
	schemasOnce sync.Once
	schemas     map[string]*gojsonschema.Schema
	schemasErr  error
)

func loadSchemas() {
	schemas = map[string]*gojsonschema.Schema{}
	for _, name := range []string{siteSchema, pageSchema} {
		b, err := schemaFS.ReadFile(name)
		if err != nil {
			schemasErr = fmt.Errorf("read %s: %w", name, err)
			return
		}
		s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(b))
		if err != nil {
			schemasErr = fmt.Errorf("compile %s: %w", name, err)
			return
		}
		schemas[name] = s
	}
}

func validate(name string, b []byte) error {
	schemasOnce.Do(loadSchemas)
	if schemasErr != nil {
		return schemasErr
	}
	if !json.Valid(b) {
		return fmt.Errorf("%w: not valid JSON", ErrInvalidImport)
	}
	res, err := schemas[name].Validate(gojsonschema.NewBytesLoader(b))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrInvalidImport, strings.Join(msgs, "; "))
	}
	return nil
}
