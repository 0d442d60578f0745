/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// DefaultDocument returns the built-in starting proposal. Fields added here are
// picked up by documents persisted before the field existed.
func DefaultDocument() Document {
	return Document{
		Title:         "Travel Proposal",
		Subtitle:      "A tailored itinerary",
		AgencyName:    "Tour Agency",
		Destination:   "Kyoto, Japan",
		StartDate:     "2025-04-01",
		EndDate:       "2025-04-04",
		Nights:        3,
		Days:          4,
		TravelerCount: 2,
		IntroText:     "Thank you for considering us for your journey.",
		DepartureFlight: Flight{
			Airline: "Korean Air", FlightNumber: "KE723",
			DepartureAirport: "ICN", DepartureTime: "09:00",
			ArrivalAirport: "KIX", ArrivalTime: "10:50", Duration: "1h 50m", Baggage: "23kg",
		},
		ArrivalFlight: Flight{
			Airline: "Korean Air", FlightNumber: "KE724",
			DepartureAirport: "KIX", DepartureTime: "12:30",
			ArrivalAirport: "ICN", ArrivalTime: "14:20", Duration: "1h 50m", Baggage: "23kg",
		},
		Accommodations: []Accommodation{
			{Name: "Hotel Kyoto Central", Address: "Shimogyo-ku, Kyoto", CheckIn: "15:00", CheckOut: "11:00", RoomType: "Twin", Nights: 3},
		},
		Itinerary: []ItineraryDay{
			{Day: 1, Summary: "Arrival and check-in", Location: "Kyoto"},
			{Day: 2, Summary: "Temples of Higashiyama", Location: "Kyoto"},
			{Day: 3, Summary: "Arashiyama day trip", Location: "Kyoto"},
			{Day: 4, Summary: "Departure", Location: "Osaka"},
		},
		DetailedSchedules: []DetailedSchedule{
			{Day: 1, Title: "Arrival", Items: []ScheduleItem{
				{Time: "10:50", Title: "Arrive at Kansai International Airport"},
				{Time: "13:00", Title: "Transfer to Kyoto"},
				{Time: "15:00", Title: "Hotel check-in"},
			}},
		},
		TouristSpots: []TouristSpotDay{
			{Day: 1, Title: "Kyoto Station Area", Spots: []TouristSpot{
				{Name: "Kyoto Tower", Description: "Observation deck with city views"},
			}},
		},
		Quotation: Quotation{Currency: "KRW", Items: []QuoteItem{
			{Label: "Flights", UnitPrice: 450000, Quantity: 2},
			{Label: "Hotel (3 nights)", UnitPrice: 540000, Quantity: 1},
		}},
		Process: []ProcessStep{
			{Step: 1, Title: "Consultation"},
			{Step: 2, Title: "Proposal"},
			{Step: 3, Title: "Deposit"},
			{Step: 4, Title: "Final payment"},
		},
		Payment:        PaymentInfo{BankName: "Bank", AccountHolder: "Tour Agency"},
		Transportation: []Transportation{},
		TextStyles:     map[string]TextStyle{},
	}
}

// DefaultPages returns the starting table of contents. IDs are left empty for
// the page store to assign.
func DefaultPages() []PageDescriptor {
	return []PageDescriptor{
		{Type: PageCover, Title: DefaultTitle(PageCover)},
		{Type: PageIntro, Title: DefaultTitle(PageIntro)},
		{Type: PageFlightDeparture, Title: DefaultTitle(PageFlightDeparture)},
		{Type: PageItinerary, Title: DefaultTitle(PageItinerary)},
		{Type: PageAccommodation, Title: DefaultTitle(PageAccommodation), Data: &PageData{Index: IntPtr(0)}},
		{Type: PageDetailedSchedule, Title: DayTitle(1), Data: &PageData{DayNumber: IntPtr(1)}},
		{Type: PageTouristSpot, Title: DayTitle(1), Data: &PageData{DayNumber: IntPtr(1)}},
		{Type: PageFlightArrival, Title: DefaultTitle(PageFlightArrival)},
		{Type: PageQuotation, Title: DefaultTitle(PageQuotation)},
		{Type: PageProcess, Title: DefaultTitle(PageProcess)},
		{Type: PagePayment, Title: DefaultTitle(PagePayment)},
	}
}
