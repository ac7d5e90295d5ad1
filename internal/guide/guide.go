// Package guide renders the onboarding PDF sent to buyers.
package guide

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// FileName is the attachment name used for the guide.
const FileName = "UrziStaff-Guide.pdf"

// MaxItems caps the purchased lines printed in the guide.
const MaxItems = 20

type Item struct {
	Name  string
	Price decimal.Decimal
}

type Data struct {
	OrderID  string
	FullName string
	Items    []Item
}

var steps = []string{
	"Reach out to your assistant within 24 hours using the contact details in your email.",
	"Share your goals, working hours and preferred tools in the first message.",
	"Agree on a short paid trial task before committing to a longer engagement.",
	"Set up a shared workspace for files, passwords and task tracking.",
	"Schedule a weekly check-in to review progress and adjust priorities.",
}

var tips = []string{
	"Write tasks as outcomes with a deadline, not as lists of clicks.",
	"Record a short screen video for anything you would otherwise explain twice.",
	"Keep credentials in a password manager and share access, not passwords.",
}

// Build returns the guide as PDF bytes.
func Build(d Data) ([]byte, error) {
	const op = "guide.Build"

	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetTitle("Getting started with your virtual assistant", true)
	pdf.SetMargins(18, 18, 18)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.MultiCell(0, 10, tr("Getting started with your virtual assistant"), "", "L", false)
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(110, 110, 110)
	pdf.Cell(0, 6, tr("Order "+d.OrderID))
	pdf.Ln(10)
	pdf.SetTextColor(0, 0, 0)

	pdf.SetFont("Helvetica", "", 12)
	pdf.MultiCell(0, 6, tr(greeting(d.FullName)), "", "L", false)
	pdf.Ln(4)

	section(pdf, tr, "First steps")
	for i, s := range steps {
		pdf.MultiCell(0, 6, tr(fmt.Sprintf("%d. %s", i+1, s)), "", "L", false)
	}
	pdf.Ln(4)

	if len(d.Items) > 0 {
		section(pdf, tr, "Your assistants")
		for _, line := range ItemLines(d.Items) {
			pdf.MultiCell(0, 6, tr("- "+line), "", "L", false)
		}
		pdf.Ln(4)
	}

	section(pdf, tr, "Tips")
	for _, s := range tips {
		pdf.MultiCell(0, 6, tr("- "+s), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return buf.Bytes(), nil
}

// ItemLines formats up to MaxItems purchased listings as "name — $price".
func ItemLines(items []Item) []string {
	if len(items) > MaxItems {
		items = items[:MaxItems]
	}

	out := make([]string, 0, len(items))
	for _, it := range items {
		name := strings.TrimSpace(it.Name)
		if name == "" {
			name = "Assistant"
		}
		out = append(out, fmt.Sprintf("%s — $%s", name, it.Price.StringFixed(2)))
	}
	return out
}

func greeting(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Hi there, thank you for your purchase. This guide walks you through the first week with your new assistant."
	}
	return fmt.Sprintf("Hi %s, thank you for your purchase. This guide walks you through the first week with your new assistant.", name)
}

func section(pdf *fpdf.Fpdf, tr func(string) string, title string) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 8, tr(title))
	pdf.Ln(9)
	pdf.SetFont("Helvetica", "", 12)
}
