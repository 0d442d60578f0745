/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package blur

import (
	"math"

	"tourdeck/internal/domain"
)

// MinDragPx is the smallest drag, per axis, accepted as a region.
const MinDragPx = 10

// Size is a rendered container size in pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Point is a pointer position in pixels relative to the container.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// RectFromDrag converts a pointer drag into a percentage rectangle of the
// container. Drags smaller than MinDragPx on either axis, and empty
// containers, are rejected.
func RectFromDrag(container Size, start, end Point) (domain.Rect, bool) {
	if container.Width <= 0 || container.Height <= 0 {
		return domain.Rect{}, false
	}
	w := math.Abs(end.X - start.X)
	h := math.Abs(end.Y - start.Y)
	if w < MinDragPx || h < MinDragPx {
		return domain.Rect{}, false
	}
	r := domain.Rect{
		X:      math.Min(start.X, end.X) / container.Width * 100,
		Y:      math.Min(start.Y, end.Y) / container.Height * 100,
		Width:  w / container.Width * 100,
		Height: h / container.Height * 100,
	}
	return Clamp(r), true
}

// Clamp keeps the rectangle inside the 0–100 box.
func Clamp(r domain.Rect) domain.Rect {
	r.X = clamp(r.X, 0, 100)
	r.Y = clamp(r.Y, 0, 100)
	r.Width = clamp(r.Width, 0, 100-r.X)
	r.Height = clamp(r.Height, 0, 100-r.Y)
	return r
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
