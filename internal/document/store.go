/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package document holds the shared tour document and its one-level merge
// over the built-in defaults.
package document

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"tourdeck/internal/domain"
	applog "tourdeck/internal/log"
	"tourdeck/internal/storage"
)

// Store owns the tourData record. It is not safe for concurrent use.
type Store struct {
	kv       storage.Store
	doc      domain.Document
	defaults domain.Document
	log      *slog.Logger
}

// NewStore creates a store over kv using the built-in defaults. Call Load to
// hydrate persisted state.
func NewStore(kv storage.Store) *Store {
	d := domain.DefaultDocument()
	return &Store{kv: kv, doc: d.Clone(), defaults: d, log: applog.WithComponent("document")}
}

// Load reads tourData and merges it over the defaults. Missing or corrupt
// records leave the defaults in place.
func (s *Store) Load(ctx context.Context) domain.Document {
	b, ok, err := s.kv.Get(ctx, storage.KeyTourData)
	if err != nil {
		s.log.WarnContext(ctx, "read failed, using defaults", slog.Any("err", err))
	}
	s.doc = s.defaults.Clone()
	if err == nil && ok {
		merged, merr := MergeOver(s.defaults, b)
		if merr != nil {
			s.log.WarnContext(ctx, "persisted document unreadable, using defaults", slog.Any("err", merr))
		} else {
			s.doc = merged
		}
	}
	return s.doc.Clone()
}

// Get returns a copy of the current document.
func (s *Store) Get() domain.Document { return s.doc.Clone() }

// Update shallow-merges a JSON object patch into the document and persists
// it. Top-level keys in the patch replace the current values.
func (s *Store) Update(ctx context.Context, patch json.RawMessage) error {
	next, err := MergeOver(s.doc, patch)
	if err != nil {
		return err
	}
	s.doc = next
	s.persist(ctx)
	return nil
}

// Apply mutates a copy of the document with fn and stores the result.
func (s *Store) Apply(ctx context.Context, fn func(d *domain.Document)) {
	next := s.doc.Clone()
	fn(&next)
	s.doc = next
	s.persist(ctx)
}

// Replace stores doc as the current document.
func (s *Store) Replace(ctx context.Context, doc domain.Document) {
	s.doc = doc.Clone()
	s.persist(ctx)
}

// Defaults returns a copy of the active default document.
func (s *Store) Defaults() domain.Document { return s.defaults.Clone() }

// Reset restores the defaults and removes the page and blur records, which
// may point at collection entries that no longer exist.
func (s *Store) Reset(ctx context.Context) domain.Document {
	s.doc = s.defaults.Clone()
	s.persist(ctx)
	storage.Delete(ctx, s.kv, storage.KeyPageConfigs)
	storage.Delete(ctx, s.kv, storage.KeyBlurData)
	s.log.InfoContext(ctx, "document reset")
	return s.doc.Clone()
}

// ResetTo installs defaults as the default set and resets to it.
func (s *Store) ResetTo(ctx context.Context, defaults domain.Document) domain.Document {
	s.defaults = defaults.Clone()
	return s.Reset(ctx)
}

// LoadDefaultsFile installs the document in path, merged over the built-in
// defaults, as the default set. The current document is not changed.
func (s *Store) LoadDefaultsFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read defaults: %w", err)
	}
	d, err := MergeOver(domain.DefaultDocument(), b)
	if err != nil {
		return fmt.Errorf("defaults %s: %w", path, err)
	}
	s.defaults = d
	return nil
}

func (s *Store) persist(ctx context.Context) {
	storage.SetJSON(ctx, s.kv, storage.KeyTourData, s.doc)
}
