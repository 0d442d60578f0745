/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package transfer

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"tourdeck/internal/domain"
)

func TestFileNames(t *testing.T) {
	at := time.Date(2025, 3, 9, 23, 0, 0, 0, time.UTC)
	if got := SiteFileName(at); got != "tour-data-2025-03-09.json" {
		t.Fatalf("SiteFileName = %q", got)
	}
	if got := PageFileName(domain.PageTouristSpot, at); got != "page-tourist-spot-2025-03-09.json" {
		t.Fatalf("PageFileName = %q", got)
	}
}

func TestSiteRoundTrip(t *testing.T) {
	pages := domain.DefaultPages()
	for i := range pages {
		pages[i].ID = "p" + string(rune('a'+i))
	}
	b, err := EncodeSite(domain.DefaultDocument(), pages, time.Now())
	if err != nil {
		t.Fatalf("EncodeSite: %v", err)
	}
	imp, err := DecodeSite(b)
	if err != nil {
		t.Fatalf("DecodeSite: %v", err)
	}
	if len(imp.PageConfigs) != len(pages) || imp.PageConfigs[4].Type != domain.PageAccommodation {
		t.Fatalf("pages = %+v", imp.PageConfigs)
	}
	var doc domain.Document
	if err := json.Unmarshal(imp.TourData, &doc); err != nil || doc.Title != domain.DefaultDocument().Title {
		t.Fatalf("tourData = %s (%v)", imp.TourData, err)
	}
}

func TestDecodeSiteRejects(t *testing.T) {
	cases := map[string]string{
		"not json":        `{"tourData":`,
		"missing pages":   `{"tourData":{}}`,
		"missing doc":     `{"pageConfigs":[]}`,
		"pages not array": `{"tourData":{},"pageConfigs":{}}`,
		"unknown type":    `{"tourData":{},"pageConfigs":[{"id":"a","type":"poster"}]}`,
		"negative index":  `{"tourData":{},"pageConfigs":[{"type":"accommodation","data":{"index":-1}}]}`,
	}
	for name, in := range cases {
		if _, err := DecodeSite([]byte(in)); !errors.Is(err, ErrInvalidImport) {
			t.Fatalf("%s: expected ErrInvalidImport, got %v", name, err)
		}
	}
}

func TestPageRoundTripAndRejects(t *testing.T) {
	cfg := domain.PageDescriptor{ID: "x", Type: domain.PageAccommodation, Title: "Hotel", Data: &domain.PageData{Index: domain.IntPtr(0)}}
	b, err := EncodePage(cfg, domain.Accommodation{Name: "Inn"}, time.Now())
	if err != nil {
		t.Fatalf("EncodePage: %v", err)
	}
	imp, err := DecodePage(b)
	if err != nil {
		t.Fatalf("DecodePage: %v", err)
	}
	if imp.PageConfig.Type != domain.PageAccommodation || !strings.Contains(string(imp.PageData), `"Inn"`) {
		t.Fatalf("import = %+v %s", imp.PageConfig, imp.PageData)
	}

	for _, in := range []string{
		`{"pageConfig":{"type":"cover"}}`,
		`{"pageData":{}}`,
		`{"pageConfig":{"type":"cover"},"pageData":null}`,
		`{"pageConfig":{"type":"nope"},"pageData":{}}`,
	} {
		if _, err := DecodePage([]byte(in)); !errors.Is(err, ErrInvalidImport) {
			t.Fatalf("%s: expected ErrInvalidImport, got %v", in, err)
		}
	}
}
