/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders a proposal to PDF.
package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"

	"tourdeck/internal/domain"
	applog "tourdeck/internal/log"
)

// Page is one page to render: its descriptor, the data it resolves to
// (domain.Accommodation, domain.DetailedSchedule, domain.TouristSpotDay or
// domain.Document) and its blur regions.
type Page struct {
	Descriptor domain.PageDescriptor
	Data       any
	Regions    []domain.BlurRegion
}

// PDFOptions controls PDF export behavior. Units are points.
type PDFOptions struct {
	Preset       PresetName
	Title        string
	AssetsDir    string
	ImageTimeout time.Duration
	// BlurColor fills redacted regions; zero means mid gray.
	BlurColor [3]int
	// Preloaded skips the image barrier when set.
	Preloaded map[string]Image
}

// RenderPDF writes the pages as one PDF to w. Images are loaded up front;
// images that fail to load are left out.
func RenderPDF(ctx context.Context, pages []Page, w io.Writer, opt PDFOptions) error {
	preset, err := LookupPreset(string(opt.Preset))
	if err != nil {
		return err
	}
	images := opt.Preloaded
	if images == nil {
		images = Preload(ctx, collectImages(pages), PreloadOptions{AssetsDir: opt.AssetsDir, Timeout: opt.ImageTimeout})
	}
	blurColor := opt.BlurColor
	if blurColor == [3]int{} {
		blurColor = [3]int{128, 128, 128}
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: preset.Width, Ht: preset.Height},
	})
	pdf.SetTitle(opt.Title, true)
	pdf.SetCreator("tourdeck", false)
	pdf.SetAutoPageBreak(false, preset.Margin)
	pdf.SetMargins(preset.Margin, preset.Margin, preset.Margin)

	r := &renderer{pdf: pdf, preset: preset, images: images, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	for i, p := range pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		pdf.AddPage()
		r.page(p)
		// regions resolve against the full page box, like the on-screen container
		pdf.SetFillColor(blurColor[0], blurColor[1], blurColor[2])
		for _, reg := range p.Regions {
			x, y, bw, bh := reg.Rect().Resolve(0, 0, preset.Width, preset.Height)
			pdf.Rect(x, y, bw, bh, "F")
		}
		if pdf.Err() {
			return fmt.Errorf("render page %d (%s): %w", i+1, p.Descriptor.Type, pdf.Error())
		}
	}
	if len(pages) == 0 {
		pdf.AddPage()
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	applog.WithComponent("export").DebugContext(ctx, "pdf rendered",
		slog.Int("pages", len(pages)), slog.String("preset", string(preset.Name)))
	return nil
}

// ExportPDF renders the pages into the file at outPath, creating its folder.
func ExportPDF(ctx context.Context, pages []Page, outPath string, opt PDFOptions) error {
	var buf bytes.Buffer
	if err := RenderPDF(ctx, pages, &buf, opt); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// PDFFileName is the default name of a PDF export made at t.
func PDFFileName(t time.Time) string {
	return fmt.Sprintf("tour-proposal-%s.pdf", t.Format("2006-01-02"))
}

func collectImages(pages []Page) []string {
	seen := map[string]bool{}
	var out []string
	add := func(refs ...string) {
		for _, s := range refs {
			if s != "" && !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	for _, p := range pages {
		switch d := p.Data.(type) {
		case domain.Accommodation:
			add(d.Images...)
		case domain.DetailedSchedule:
			for _, it := range d.Items {
				add(it.Image)
			}
		case domain.TouristSpotDay:
			for _, s := range d.Spots {
				add(s.Image)
			}
		case domain.Document:
			switch p.Descriptor.Type {
			case domain.PageCover:
				add(d.CoverImage)
			case domain.PageTransportationTicket, domain.PageTransportationCard:
				for _, t := range d.Transportation {
					add(t.Image)
				}
			}
		}
	}
	return out
}

type renderer struct {
	pdf    *gofpdf.Fpdf
	preset Preset
	images map[string]Image
	tr     func(string) string
	qrSeq  int
}

func (r *renderer) contentWidth() float64 { return r.preset.Width - 2*r.preset.Margin }

func (r *renderer) heading(title string) {
	r.pdf.SetXY(r.preset.Margin, r.preset.Margin)
	r.pdf.SetFont("Helvetica", "B", 22)
	r.pdf.SetTextColor(20, 40, 80)
	r.pdf.CellFormat(r.contentWidth(), 28, r.tr(title), "", 1, "L", false, 0, "")
	r.pdf.SetDrawColor(20, 40, 80)
	r.pdf.SetLineWidth(1)
	y := r.pdf.GetY() + 4
	r.pdf.Line(r.preset.Margin, y, r.preset.Width-r.preset.Margin, y)
	r.pdf.SetY(y + 12)
	r.pdf.SetTextColor(0, 0, 0)
}

func (r *renderer) line(label, value string) {
	if value == "" {
		return
	}
	if r.full() {
		return
	}
	r.pdf.SetX(r.preset.Margin)
	if label != "" {
		r.pdf.SetFont("Helvetica", "B", 11)
		r.pdf.CellFormat(120, 16, r.tr(label), "", 0, "L", false, 0, "")
	}
	r.pdf.SetFont("Helvetica", "", 11)
	w := r.contentWidth()
	if label != "" {
		w -= 120
	}
	r.pdf.MultiCell(w, 16, r.tr(value), "", "L", false)
}

func (r *renderer) para(text string) {
	if text == "" || r.full() {
		return
	}
	r.pdf.SetX(r.preset.Margin)
	r.pdf.SetFont("Helvetica", "", 11)
	r.pdf.MultiCell(r.contentWidth(), 15, r.tr(text), "", "L", false)
	r.pdf.Ln(4)
}

func (r *renderer) sub(text string) {
	if text == "" || r.full() {
		return
	}
	r.pdf.Ln(4)
	r.pdf.SetX(r.preset.Margin)
	r.pdf.SetFont("Helvetica", "B", 13)
	r.pdf.CellFormat(r.contentWidth(), 18, r.tr(text), "", 1, "L", false, 0, "")
}

// full reports whether the cursor reached the bottom margin. Pages do not
// flow onto a second sheet.
func (r *renderer) full() bool {
	return r.pdf.GetY() > r.preset.Height-r.preset.Margin-16
}

// image draws ref fitted into a box of width w and at most h, if it loaded.
func (r *renderer) image(ref string, w, h float64) {
	img, ok := r.images[ref]
	if !ok || img.Width == 0 || img.Height == 0 || r.full() {
		return
	}
	room := r.preset.Height - r.preset.Margin - r.pdf.GetY()
	if h > room {
		h = room
	}
	scale := w / float64(img.Width)
	if s := h / float64(img.Height); s < scale {
		scale = s
	}
	iw, ih := float64(img.Width)*scale, float64(img.Height)*scale
	opts := gofpdf.ImageOptions{ImageType: "JPG"}
	r.pdf.RegisterImageOptionsReader(ref, opts, bytes.NewReader(img.Data))
	r.pdf.ImageOptions(ref, r.preset.Margin, r.pdf.GetY(), iw, ih, false, opts, 0, "")
	r.pdf.SetY(r.pdf.GetY() + ih + 8)
}

func (r *renderer) qr(payload string, size float64) {
	png, err := qrcode.Encode(payload, qrcode.Medium, 256)
	if err != nil {
		r.line("Payment link", payload)
		return
	}
	r.qrSeq++
	name := fmt.Sprintf("qr-%d", r.qrSeq)
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	r.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(png))
	x := r.preset.Width - r.preset.Margin - size
	r.pdf.ImageOptions(name, x, r.preset.Margin+48, size, size, false, opts, 0, "")
}

func (r *renderer) page(p Page) {
	r.heading(p.Descriptor.Title)
	switch d := p.Data.(type) {
	case domain.Accommodation:
		r.accommodation(d)
	case domain.DetailedSchedule:
		r.schedule(d)
	case domain.TouristSpotDay:
		r.spots(d)
	case domain.Document:
		r.document(p.Descriptor.Type, d)
	}
}

func (r *renderer) accommodation(a domain.Accommodation) {
	r.sub(a.Name)
	r.line("Address", a.Address)
	r.line("Phone", a.Phone)
	r.line("Website", a.Website)
	r.line("Check-in", a.CheckIn)
	r.line("Check-out", a.CheckOut)
	r.line("Room", a.RoomType)
	if a.Nights > 0 {
		r.line("Nights", fmt.Sprint(a.Nights))
	}
	r.para(a.Description)
	if len(a.Images) > 0 {
		r.image(a.Images[0], r.contentWidth(), r.preset.Height/3)
	}
}

func (r *renderer) schedule(s domain.DetailedSchedule) {
	r.sub(strings.TrimSpace(strings.Join([]string{s.Title, s.Date}, "  ")))
	for _, it := range s.Items {
		r.line(it.Time, it.Title)
		r.para(it.Description)
		r.line("", it.Location)
	}
}

func (r *renderer) spots(t domain.TouristSpotDay) {
	r.sub(t.Title)
	for _, s := range t.Spots {
		r.sub(s.Name)
		r.para(s.Description)
		r.line("Address", s.Address)
		r.image(s.Image, r.contentWidth()/2, r.preset.Height/5)
	}
}

func (r *renderer) flight(f domain.Flight) {
	r.line("Airline", strings.TrimSpace(f.Airline+" "+f.FlightNumber))
	r.line("From", strings.TrimSpace(f.DepartureAirport+" "+f.DepartureTime))
	r.line("To", strings.TrimSpace(f.ArrivalAirport+" "+f.ArrivalTime))
	r.line("Duration", f.Duration)
	r.line("Baggage", f.Baggage)
	r.para(f.Notes)
}

func (r *renderer) document(pt domain.PageType, d domain.Document) {
	switch pt {
	case domain.PageCover:
		r.sub(d.Title)
		r.line("", d.Subtitle)
		r.line("Destination", d.Destination)
		r.line("Dates", strings.Trim(d.StartDate+" - "+d.EndDate, " -"))
		if d.Nights > 0 || d.Days > 0 {
			r.line("Duration", fmt.Sprintf("%d nights / %d days", d.Nights, d.Days))
		}
		if d.TravelerCount > 0 {
			r.line("Travelers", fmt.Sprint(d.TravelerCount))
		}
		r.line("Client", d.ClientName)
		r.line("Agency", d.AgencyName)
		r.image(d.CoverImage, r.contentWidth(), r.preset.Height/2)
	case domain.PageIntro:
		r.para(d.IntroText)
	case domain.PageFlightDeparture:
		r.flight(d.DepartureFlight)
	case domain.PageFlightTransit:
		r.flight(d.TransitFlight)
	case domain.PageFlightArrival:
		r.flight(d.ArrivalFlight)
	case domain.PageItinerary:
		for _, it := range d.Itinerary {
			label := domain.DayTitle(it.Day)
			if it.Date != "" {
				label += " " + it.Date
			}
			r.line(label, strings.Trim(it.Summary+" / "+it.Location, " /"))
		}
	case domain.PageQuotation:
		for _, it := range d.Quotation.Items {
			r.line(it.Label, fmt.Sprintf("%s x %d = %s", money(it.UnitPrice), it.Quantity, money(it.UnitPrice*float64(it.Quantity))))
		}
		r.sub(fmt.Sprintf("Total %s %s", money(d.Quotation.Total()), d.Quotation.Currency))
		r.para(d.Quotation.Notes)
	case domain.PageProcess:
		for _, s := range d.Process {
			r.line(fmt.Sprintf("%d. %s", s.Step, s.Title), s.Description)
		}
	case domain.PagePayment:
		r.line("Bank", d.Payment.BankName)
		r.line("Account", d.Payment.AccountNumber)
		r.line("Holder", d.Payment.AccountHolder)
		r.line("Deposit", d.Payment.Deposit)
		r.line("Due", d.Payment.DueDate)
		if d.Payment.PaymentURL != "" {
			r.line("Pay online", d.Payment.PaymentURL)
			r.qr(d.Payment.PaymentURL, 120)
		}
	case domain.PageTransportationTicket, domain.PageTransportationCard:
		kind := "ticket"
		if pt == domain.PageTransportationCard {
			kind = "card"
		}
		for _, t := range d.Transportation {
			if t.Kind != "" && t.Kind != kind {
				continue
			}
			r.sub(t.Name)
			r.para(t.Description)
			if t.Price > 0 {
				r.line("Price", money(t.Price))
			}
			r.image(t.Image, r.contentWidth()/2, r.preset.Height/5)
		}
	}
}

// money formats v with thousands separators and no fraction when whole.
func money(v float64) string {
	cents := int64(math.Round(v * 100))
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := fmt.Sprint(cents / 100)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if c := cents % 100; c != 0 {
		fmt.Fprintf(&b, ".%02d", c)
	}
	return b.String()
}
