/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"strings"
)

// PresetName represents a named page size preset.
type PresetName string

const (
	PresetA4          PresetName = "a4"
	PresetA4Landscape PresetName = "a4-landscape"
	PresetSlide       PresetName = "slide-16x9"
)

// Preset is a page size in points with its text margin.
type Preset struct {
	Name   PresetName
	Width  float64
	Height float64
	Margin float64
}

var presets = map[PresetName]Preset{
	PresetA4:          {Name: PresetA4, Width: 595.28, Height: 841.89, Margin: 48},
	PresetA4Landscape: {Name: PresetA4Landscape, Width: 841.89, Height: 595.28, Margin: 48},
	// 13.333in x 7.5in, the common widescreen slide size
	PresetSlide: {Name: PresetSlide, Width: 960, Height: 540, Margin: 40},
}

// LookupPreset resolves a preset name. An empty name is a4.
func LookupPreset(name string) (Preset, error) {
	n := PresetName(strings.ToLower(strings.TrimSpace(name)))
	if n == "" {
		n = PresetA4
	}
	p, ok := presets[n]
	if !ok {
		return Preset{}, fmt.Errorf("unknown export preset %q (want one of %s)", name, strings.Join(PresetNames(), ", "))
	}
	return p, nil
}

// PresetNames lists the preset names.
func PresetNames() []string {
	return []string{string(PresetA4), string(PresetA4Landscape), string(PresetSlide)}
}
