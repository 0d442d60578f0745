/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import "fmt"

// PageType is the closed set of page kinds a proposal can contain.
type PageType string

const (
	PageCover                PageType = "cover"
	PageIntro                PageType = "intro"
	PageFlightDeparture      PageType = "flight-departure"
	PageFlightTransit        PageType = "flight-transit"
	PageFlightArrival        PageType = "flight-arrival"
	PageItinerary            PageType = "itinerary"
	PageAccommodation        PageType = "accommodation"
	PageQuotation            PageType = "quotation"
	PageProcess              PageType = "process"
	PagePayment              PageType = "payment"
	PageDetailedSchedule     PageType = "detailed-schedule"
	PageTouristSpot          PageType = "tourist-spot"
	PageTransportationTicket PageType = "transportation-ticket"
	PageTransportationCard   PageType = "transportation-card"
)

var pageTypes = []PageType{
	PageCover, PageIntro, PageFlightDeparture, PageFlightTransit, PageFlightArrival,
	PageItinerary, PageAccommodation, PageQuotation, PageProcess, PagePayment,
	PageDetailedSchedule, PageTouristSpot, PageTransportationTicket, PageTransportationCard,
}

// PageTypes lists every known page type in table-of-contents order.
func PageTypes() []PageType { return append([]PageType(nil), pageTypes...) }

// Valid reports whether t is a known page type.
func (t PageType) Valid() bool {
	for _, k := range pageTypes {
		if k == t {
			return true
		}
	}
	return false
}

// ParsePageType validates s as a page type.
func ParsePageType(s string) (PageType, error) {
	t := PageType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown page type %q", s)
	}
	return t, nil
}

// DayKeyed reports whether pages of this type reference a day-keyed collection.
func (t PageType) DayKeyed() bool { return t == PageDetailedSchedule || t == PageTouristSpot }

// PageDescriptor is one entry in the proposal's table of contents.
type PageDescriptor struct {
	ID    string    `json:"id"`
	Type  PageType  `json:"type"`
	Title string    `json:"title"`
	Data  *PageData `json:"data,omitempty"`
}

// PageData is the page-local override bag. Accommodation pages use Index,
// day-keyed pages use DayNumber, every other type may carry a fork of the
// shared document in PageData.
type PageData struct {
	Index     *int      `json:"index,omitempty"`
	DayNumber *int      `json:"dayNumber,omitempty"`
	PageData  *Document `json:"pageData,omitempty"`
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// AccommodationIndex returns the referenced accommodation index, if set.
func (p PageDescriptor) AccommodationIndex() (int, bool) {
	if p.Data == nil || p.Data.Index == nil {
		return 0, false
	}
	return *p.Data.Index, true
}

// Day returns the referenced day number, if set.
func (p PageDescriptor) Day() (int, bool) {
	if p.Data == nil || p.Data.DayNumber == nil {
		return 0, false
	}
	return *p.Data.DayNumber, true
}

// Fork returns the page-local document fork, or nil.
func (p PageDescriptor) Fork() *Document {
	if p.Data == nil {
		return nil
	}
	return p.Data.PageData
}

// Clone returns a deep copy of the descriptor.
func (p PageDescriptor) Clone() PageDescriptor {
	out := p
	if p.Data != nil {
		d := p.Data.Clone()
		out.Data = &d
	}
	return out
}

// Clone returns a deep copy of the data bag.
func (d PageData) Clone() PageData {
	var out PageData
	if d.Index != nil {
		out.Index = IntPtr(*d.Index)
	}
	if d.DayNumber != nil {
		out.DayNumber = IntPtr(*d.DayNumber)
	}
	if d.PageData != nil {
		doc := d.PageData.Clone()
		out.PageData = &doc
	}
	return out
}

// Merge shallow-merges the non-nil fields of patch into d.
func (d *PageData) Merge(patch PageData) {
	if patch.Index != nil {
		d.Index = IntPtr(*patch.Index)
	}
	if patch.DayNumber != nil {
		d.DayNumber = IntPtr(*patch.DayNumber)
	}
	if patch.PageData != nil {
		doc := patch.PageData.Clone()
		d.PageData = &doc
	}
}

// DayTitle is the navigation title of day-keyed pages.
func DayTitle(day int) string { return fmt.Sprintf("DAY %d", day) }

// DefaultTitle returns the navigation label used when a page is added without one.
func DefaultTitle(t PageType) string {
	switch t {
	case PageCover:
		return "Cover"
	case PageIntro:
		return "Introduction"
	case PageFlightDeparture:
		return "Departure Flight"
	case PageFlightTransit:
		return "Transit Flight"
	case PageFlightArrival:
		return "Return Flight"
	case PageItinerary:
		return "Itinerary"
	case PageAccommodation:
		return "Accommodation"
	case PageQuotation:
		return "Quotation"
	case PageProcess:
		return "Booking Process"
	case PagePayment:
		return "Payment"
	case PageTransportationTicket:
		return "Transportation Ticket"
	case PageTransportationCard:
		return "Transportation Card"
	default:
		return string(t)
	}
}
