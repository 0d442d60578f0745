/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"tourdeck/internal/domain"
)

// ErrNotObject is returned when a patch is not a JSON object.
var ErrNotObject = errors.New("document patch must be a JSON object")

// MergeOver overlays the top-level keys of patch on base. Nested objects are
// replaced, not merged.
func MergeOver(base domain.Document, patch []byte) (domain.Document, error) {
	patch = bytes.TrimSpace(patch)
	if len(patch) == 0 || bytes.Equal(patch, []byte("null")) {
		return base.Clone(), nil
	}
	var over map[string]json.RawMessage
	if err := json.Unmarshal(patch, &over); err != nil {
		if patch[0] != '{' {
			return domain.Document{}, ErrNotObject
		}
		return domain.Document{}, fmt.Errorf("decode patch: %w", err)
	}
	if over == nil {
		return domain.Document{}, ErrNotObject
	}
	b, err := json.Marshal(base)
	if err != nil {
		return domain.Document{}, fmt.Errorf("encode base: %w", err)
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(b, &merged); err != nil {
		return domain.Document{}, fmt.Errorf("decode base: %w", err)
	}
	for k, v := range over {
		merged[k] = v
	}
	b, err = json.Marshal(merged)
	if err != nil {
		return domain.Document{}, fmt.Errorf("encode merged: %w", err)
	}
	var out domain.Document
	if err := json.Unmarshal(b, &out); err != nil {
		return domain.Document{}, fmt.Errorf("decode merged: %w", err)
	}
	return out, nil
}
