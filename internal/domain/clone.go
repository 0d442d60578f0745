/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// Explicit structural copies. Every slice and map is reallocated so a clone
// can be edited without touching the original.

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	out := d
	out.Accommodations = cloneSlice(d.Accommodations, Accommodation.Clone)
	out.Itinerary = cloneSlice(d.Itinerary, func(v ItineraryDay) ItineraryDay { return v })
	out.DetailedSchedules = cloneSlice(d.DetailedSchedules, DetailedSchedule.Clone)
	out.TouristSpots = cloneSlice(d.TouristSpots, TouristSpotDay.Clone)
	out.Quotation = d.Quotation.Clone()
	out.Process = cloneSlice(d.Process, func(v ProcessStep) ProcessStep { return v })
	out.Transportation = cloneSlice(d.Transportation, func(v Transportation) Transportation { return v })
	if d.TextStyles != nil {
		out.TextStyles = make(map[string]TextStyle, len(d.TextStyles))
		for k, v := range d.TextStyles {
			out.TextStyles[k] = v
		}
	}
	return out
}

// Clone returns a deep copy of the accommodation.
func (a Accommodation) Clone() Accommodation {
	out := a
	if a.Images != nil {
		out.Images = append([]string(nil), a.Images...)
	}
	return out
}

// Clone returns a deep copy of the schedule.
func (s DetailedSchedule) Clone() DetailedSchedule {
	out := s
	out.Items = cloneSlice(s.Items, func(v ScheduleItem) ScheduleItem { return v })
	return out
}

// Clone returns a deep copy of the tourist spot day.
func (t TouristSpotDay) Clone() TouristSpotDay {
	out := t
	out.Spots = cloneSlice(t.Spots, func(v TouristSpot) TouristSpot { return v })
	return out
}

// Clone returns a deep copy of the quotation.
func (q Quotation) Clone() Quotation {
	out := q
	out.Items = cloneSlice(q.Items, func(v QuoteItem) QuoteItem { return v })
	return out
}

// Clone returns a deep copy of the region.
func (r BlurRegion) Clone() BlurRegion { return r }

func cloneSlice[T any](in []T, clone func(T) T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	for i, v := range in {
		out[i] = clone(v)
	}
	return out
}
