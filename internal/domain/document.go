/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// Document is the single shared tour proposal every page renders from.
// Top-level JSON keys are the unit of merging: loading persisted data and
// applying patches replace whole top-level values.
type Document struct {
	Title         string `json:"title"`
	Subtitle      string `json:"subtitle"`
	AgencyName    string `json:"agencyName"`
	ClientName    string `json:"clientName"`
	Destination   string `json:"destination"`
	StartDate     string `json:"startDate"` // YYYY-MM-DD
	EndDate       string `json:"endDate"`
	Nights        int    `json:"nights"`
	Days          int    `json:"days"`
	TravelerCount int    `json:"travelerCount"`
	CoverImage    string `json:"coverImage"`
	IntroText     string `json:"introText"`

	DepartureFlight Flight `json:"departureFlight"`
	TransitFlight   Flight `json:"transitFlight"`
	ArrivalFlight   Flight `json:"arrivalFlight"`

	Accommodations    []Accommodation    `json:"accommodations"`
	Itinerary         []ItineraryDay     `json:"itinerary"`
	DetailedSchedules []DetailedSchedule `json:"detailedSchedules"`
	TouristSpots      []TouristSpotDay   `json:"touristSpots"`

	Quotation      Quotation       `json:"quotation"`
	Process        []ProcessStep   `json:"process"`
	Payment        PaymentInfo     `json:"payment"`
	Transportation []Transportation `json:"transportation"`

	// TextStyles holds per-field styling keyed by field path, e.g. "cover.title".
	TextStyles map[string]TextStyle `json:"textStyles"`
}

// Flight describes one flight leg.
type Flight struct {
	Airline          string `json:"airline,omitempty"`
	FlightNumber     string `json:"flightNumber,omitempty"`
	DepartureAirport string `json:"departureAirport,omitempty"`
	DepartureTime    string `json:"departureTime,omitempty"`
	ArrivalAirport   string `json:"arrivalAirport,omitempty"`
	ArrivalTime      string `json:"arrivalTime,omitempty"`
	Duration         string `json:"duration,omitempty"`
	Baggage          string `json:"baggage,omitempty"`
	Notes            string `json:"notes,omitempty"`
}

// Accommodation is a hotel entry, referenced by position from accommodation pages.
type Accommodation struct {
	Name        string   `json:"name"`
	Address     string   `json:"address,omitempty"`
	Phone       string   `json:"phone,omitempty"`
	Website     string   `json:"website,omitempty"`
	CheckIn     string   `json:"checkIn,omitempty"`
	CheckOut    string   `json:"checkOut,omitempty"`
	RoomType    string   `json:"roomType,omitempty"`
	Nights      int      `json:"nights,omitempty"`
	Description string   `json:"description,omitempty"`
	Images      []string `json:"images,omitempty"`
}

// ItineraryDay is one row of the itinerary calendar.
type ItineraryDay struct {
	Day      int    `json:"day"`
	Date     string `json:"date,omitempty"`
	Summary  string `json:"summary,omitempty"`
	Location string `json:"location,omitempty"`
}

// DetailedSchedule is the timetable of a single day, keyed by Day.
type DetailedSchedule struct {
	Day   int            `json:"day"`
	Date  string         `json:"date,omitempty"`
	Title string         `json:"title,omitempty"`
	Items []ScheduleItem `json:"items"`
}

// ScheduleItem is one timed activity.
type ScheduleItem struct {
	Time        string `json:"time,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	Image       string `json:"image,omitempty"`
}

// TouristSpotDay groups the spots visited on a day, keyed by Day.
type TouristSpotDay struct {
	Day   int           `json:"day"`
	Title string        `json:"title,omitempty"`
	Spots []TouristSpot `json:"spots"`
}

// TouristSpot is a single sight.
type TouristSpot struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Address     string `json:"address,omitempty"`
	Image       string `json:"image,omitempty"`
}

// Quotation is the price breakdown.
type Quotation struct {
	Currency string      `json:"currency,omitempty"`
	Items    []QuoteItem `json:"items"`
	Notes    string      `json:"notes,omitempty"`
}

// QuoteItem is one priced line.
type QuoteItem struct {
	Label     string  `json:"label"`
	UnitPrice float64 `json:"unitPrice"`
	Quantity  int     `json:"quantity"`
}

// Total sums all quotation lines.
func (q Quotation) Total() float64 {
	var sum float64
	for _, it := range q.Items {
		sum += it.UnitPrice * float64(it.Quantity)
	}
	return sum
}

// ProcessStep is one step of the booking process page.
type ProcessStep struct {
	Step        int    `json:"step"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// PaymentInfo holds bank transfer details and an optional online payment link.
type PaymentInfo struct {
	BankName      string `json:"bankName,omitempty"`
	AccountNumber string `json:"accountNumber,omitempty"`
	AccountHolder string `json:"accountHolder,omitempty"`
	DueDate       string `json:"dueDate,omitempty"`
	Deposit       string `json:"deposit,omitempty"`
	PaymentURL    string `json:"paymentUrl,omitempty"`
}

// Transportation describes a ticket or travel card.
type Transportation struct {
	Kind        string  `json:"kind"` // ticket | card
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price,omitempty"`
	Image       string  `json:"image,omitempty"`
}

// TextStyle is the per-field typography override.
type TextStyle struct {
	FontSize   float64 `json:"fontSize,omitempty"`
	FontWeight string  `json:"fontWeight,omitempty"`
	Color      string  `json:"color,omitempty"`
	Align      string  `json:"align,omitempty"`
}

// CopySuffix is appended to the name of a duplicated accommodation.
const CopySuffix = " (복사)"

// Images lists every image reference in the document in a stable order.
func (d *Document) Images() []string {
	var out []string
	seen := map[string]struct{}{}
	add := func(s string) {
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	add(d.CoverImage)
	for _, a := range d.Accommodations {
		for _, img := range a.Images {
			add(img)
		}
	}
	for _, s := range d.DetailedSchedules {
		for _, it := range s.Items {
			add(it.Image)
		}
	}
	for _, t := range d.TouristSpots {
		for _, s := range t.Spots {
			add(s.Image)
		}
	}
	for _, t := range d.Transportation {
		add(t.Image)
	}
	return out
}
