/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// Rect is a rectangle in percent (0–100) of a page's content box.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// BlurRegion marks an area of a page to redact on render and export.
type BlurRegion struct {
	ID     string  `json:"id"`
	PageID string  `json:"pageId"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect returns the region geometry.
func (r BlurRegion) Rect() Rect { return Rect{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height} }

// Resolve maps the percentage geometry onto a box of the given size and origin.
func (r Rect) Resolve(originX, originY, width, height float64) (x, y, w, h float64) {
	return originX + r.X/100*width, originY + r.Y/100*height, r.Width / 100 * width, r.Height / 100 * height
}

// BlurData is the persisted map of page ID to its regions.
type BlurData map[string][]BlurRegion
