/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package pages

import (
	"encoding/json"
	"fmt"

	"tourdeck/internal/document"
	"tourdeck/internal/domain"
)

// pageRef is how a page type points into the shared document. Every
// structural operation goes through refFor instead of switching on the type.
// Methods that take a *domain.Document report whether they changed it.
type pageRef interface {
	// attach gives a newly inserted page a valid reference, creating an entry when needed.
	attach(doc *domain.Document, p *domain.PageDescriptor) bool
	// duplicate copies the entry src references and points dst at the copy.
	duplicate(doc *domain.Document, src domain.PageDescriptor, dst *domain.PageDescriptor) bool
	// detach drops the entry of a removed page unless a page in rest still uses it.
	detach(doc *domain.Document, removed domain.PageDescriptor, rest []domain.PageDescriptor) bool
	// resolve returns the data the page renders from.
	resolve(doc *domain.Document, p domain.PageDescriptor) any
	// importPayload appends payload as a new entry and points p at it.
	importPayload(doc *domain.Document, p *domain.PageDescriptor, payload json.RawMessage) (bool, error)
}

var refs = map[domain.PageType]pageRef{
	domain.PageAccommodation: accommodationRef{},
	domain.PageDetailedSchedule: dayRef[domain.DetailedSchedule]{
		pageType: domain.PageDetailedSchedule,
		list:     func(d *domain.Document) *[]domain.DetailedSchedule { return &d.DetailedSchedules },
		day:      func(e *domain.DetailedSchedule) *int { return &e.Day },
		clone:    domain.DetailedSchedule.Clone,
		blank: func(day int) domain.DetailedSchedule {
			return domain.DetailedSchedule{Day: day, Items: []domain.ScheduleItem{}}
		},
	},
	domain.PageTouristSpot: dayRef[domain.TouristSpotDay]{
		pageType: domain.PageTouristSpot,
		list:     func(d *domain.Document) *[]domain.TouristSpotDay { return &d.TouristSpots },
		day:      func(e *domain.TouristSpotDay) *int { return &e.Day },
		clone:    domain.TouristSpotDay.Clone,
		blank: func(day int) domain.TouristSpotDay {
			return domain.TouristSpotDay{Day: day, Spots: []domain.TouristSpot{}}
		},
	},
}

func refFor(t domain.PageType) pageRef {
	if r, ok := refs[t]; ok {
		return r
	}
	return forkRef{}
}

// accommodationRef points at Document.Accommodations by position.
type accommodationRef struct{}

func (accommodationRef) valid(doc *domain.Document, p domain.PageDescriptor) (int, bool) {
	idx, ok := p.AccommodationIndex()
	return idx, ok && idx >= 0 && idx < len(doc.Accommodations)
}

func (accommodationRef) point(p *domain.PageDescriptor, idx int) {
	if p.Data == nil {
		p.Data = &domain.PageData{}
	}
	p.Data.Index = domain.IntPtr(idx)
	p.Data.DayNumber = nil
}

func (r accommodationRef) attach(doc *domain.Document, p *domain.PageDescriptor) bool {
	if _, ok := r.valid(doc, *p); ok {
		return false
	}
	doc.Accommodations = append(doc.Accommodations, domain.Accommodation{})
	r.point(p, len(doc.Accommodations)-1)
	return true
}

func (r accommodationRef) duplicate(doc *domain.Document, src domain.PageDescriptor, dst *domain.PageDescriptor) bool {
	idx, ok := r.valid(doc, src)
	if !ok {
		return r.attach(doc, dst)
	}
	c := doc.Accommodations[idx].Clone()
	c.Name += domain.CopySuffix
	doc.Accommodations = append(doc.Accommodations, c)
	r.point(dst, len(doc.Accommodations)-1)
	return true
}

func (r accommodationRef) detach(doc *domain.Document, removed domain.PageDescriptor, rest []domain.PageDescriptor) bool {
	idx, ok := r.valid(doc, removed)
	if !ok {
		return false
	}
	for _, p := range rest {
		if other, ok := p.AccommodationIndex(); ok && p.Type == domain.PageAccommodation && other == idx {
			return false
		}
	}
	doc.Accommodations = append(doc.Accommodations[:idx:idx], doc.Accommodations[idx+1:]...)
	for i := range rest {
		if other, ok := rest[i].AccommodationIndex(); ok && rest[i].Type == domain.PageAccommodation && other > idx {
			rest[i].Data.Index = domain.IntPtr(other - 1)
		}
	}
	return true
}

func (r accommodationRef) resolve(doc *domain.Document, p domain.PageDescriptor) any {
	idx, ok := r.valid(doc, p)
	if !ok {
		return nil
	}
	return doc.Accommodations[idx].Clone()
}

func (r accommodationRef) importPayload(doc *domain.Document, p *domain.PageDescriptor, payload json.RawMessage) (bool, error) {
	var a domain.Accommodation
	if err := json.Unmarshal(payload, &a); err != nil {
		return false, fmt.Errorf("accommodation payload: %w", err)
	}
	doc.Accommodations = append(doc.Accommodations, a)
	r.point(p, len(doc.Accommodations)-1)
	return true, nil
}

// dayRef points at a day-keyed collection by day number.
type dayRef[T any] struct {
	pageType domain.PageType
	list     func(d *domain.Document) *[]T
	day      func(e *T) *int
	clone    func(T) T
	blank    func(day int) T
}

func (r dayRef[T]) find(doc *domain.Document, day int) int {
	list := *r.list(doc)
	for i := range list {
		if *r.day(&list[i]) == day {
			return i
		}
	}
	return -1
}

// next is max(existing days, 0) + 1. Freed days are not reused.
func (r dayRef[T]) next(doc *domain.Document) int {
	m := 0
	list := *r.list(doc)
	for i := range list {
		if d := *r.day(&list[i]); d > m {
			m = d
		}
	}
	return m + 1
}

func (r dayRef[T]) point(p *domain.PageDescriptor, day int) {
	if p.Data == nil {
		p.Data = &domain.PageData{}
	}
	p.Data.DayNumber = domain.IntPtr(day)
	p.Data.Index = nil
	p.Title = domain.DayTitle(day)
}

func (r dayRef[T]) appendEntry(doc *domain.Document, e T) {
	l := r.list(doc)
	*l = append(*l, e)
}

func (r dayRef[T]) attach(doc *domain.Document, p *domain.PageDescriptor) bool {
	if day, ok := p.Day(); ok && day > 0 {
		if r.find(doc, day) >= 0 {
			return false
		}
		r.appendEntry(doc, r.blank(day))
		return true
	}
	n := r.next(doc)
	r.appendEntry(doc, r.blank(n))
	r.point(p, n)
	return true
}

func (r dayRef[T]) duplicate(doc *domain.Document, src domain.PageDescriptor, dst *domain.PageDescriptor) bool {
	n := r.next(doc)
	e := r.blank(n)
	if day, ok := src.Day(); ok {
		if i := r.find(doc, day); i >= 0 {
			e = r.clone((*r.list(doc))[i])
			*r.day(&e) = n
		}
	}
	r.appendEntry(doc, e)
	r.point(dst, n)
	return true
}

func (r dayRef[T]) detach(doc *domain.Document, removed domain.PageDescriptor, rest []domain.PageDescriptor) bool {
	day, ok := removed.Day()
	if !ok {
		return false
	}
	for _, p := range rest {
		if other, ok := p.Day(); ok && p.Type == r.pageType && other == day {
			return false
		}
	}
	l := r.list(doc)
	out := (*l)[:0:0]
	for _, e := range *l {
		if *r.day(&e) != day {
			out = append(out, e)
		}
	}
	if len(out) == len(*l) {
		return false
	}
	*l = out
	return true
}

func (r dayRef[T]) resolve(doc *domain.Document, p domain.PageDescriptor) any {
	day, ok := p.Day()
	if !ok {
		return nil
	}
	i := r.find(doc, day)
	if i < 0 {
		return nil
	}
	return r.clone((*r.list(doc))[i])
}

func (r dayRef[T]) importPayload(doc *domain.Document, p *domain.PageDescriptor, payload json.RawMessage) (bool, error) {
	var e T
	if err := json.Unmarshal(payload, &e); err != nil {
		return false, fmt.Errorf("%s payload: %w", r.pageType, err)
	}
	n := r.next(doc)
	*r.day(&e) = n
	r.appendEntry(doc, e)
	r.point(p, n)
	return true, nil
}

// forkRef covers every other type: the page renders from its own document
// fork when it has one, otherwise from the shared document.
type forkRef struct{}

func (forkRef) attach(*domain.Document, *domain.PageDescriptor) bool { return false }

func (forkRef) duplicate(doc *domain.Document, src domain.PageDescriptor, dst *domain.PageDescriptor) bool {
	var fork domain.Document
	if f := src.Fork(); f != nil {
		fork = f.Clone()
	} else {
		fork = doc.Clone()
	}
	if dst.Data == nil {
		dst.Data = &domain.PageData{}
	}
	dst.Data.PageData = &fork
	return false
}

func (forkRef) detach(*domain.Document, domain.PageDescriptor, []domain.PageDescriptor) bool {
	return false
}

func (forkRef) resolve(doc *domain.Document, p domain.PageDescriptor) any {
	if f := p.Fork(); f != nil {
		return f.Clone()
	}
	return doc.Clone()
}

func (forkRef) importPayload(doc *domain.Document, p *domain.PageDescriptor, payload json.RawMessage) (bool, error) {
	fork, err := document.MergeOver(*doc, payload)
	if err != nil {
		return false, fmt.Errorf("page data: %w", err)
	}
	if p.Data == nil {
		p.Data = &domain.PageData{}
	}
	p.Data.PageData = &fork
	return false, nil
}
