package render

import (
	"bytes"
	"context"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/newdaybreak/careers/types"
)

const (
	pageMargin  = 15.0
	labelWidth  = 65.0
	lineHeight  = 6.0
	placeholder = "-"
)

// PDFRenderer renders applications as A4 PDF documents.
type PDFRenderer struct {
	agency string
}

func NewPDFRenderer(agency string) *PDFRenderer {
	return &PDFRenderer{agency: agency}
}

// Render implements the document renderer used by exports.
func (r *PDFRenderer) Render(ctx context.Context, app types.Application) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetTitle(fmt.Sprintf("Caregiver Application #%d", app.ID), true)
	pdf.SetCreator(r.agency, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(r.agency), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 8, tr(fmt.Sprintf("Caregiver Application #%d", app.ID)), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	for _, section := range Sections(app) {
		writeSection(pdf, tr, section)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSection(pdf *fpdf.Fpdf, tr func(string) string, section Section) {
	pdf.SetFont("Helvetica", "B", 13)
	pdf.SetFillColor(230, 236, 242)
	pdf.CellFormat(0, 8, tr(section.Title), "", 1, "L", true, 0, "")
	pdf.Ln(1)

	writeFields(pdf, tr, section.Fields)

	for i, group := range section.Groups {
		if i > 0 {
			pdf.Ln(2)
		}
		writeFields(pdf, tr, group)
	}
	if section.Groups != nil && len(section.Groups) == 0 {
		writeText(pdf, tr, "None listed")
	}

	if section.Fields == nil && section.Groups == nil {
		text := section.Text
		if text == "" {
			text = placeholder
		}
		writeText(pdf, tr, text)
	}
	pdf.Ln(4)
}

func writeFields(pdf *fpdf.Fpdf, tr func(string) string, fields []Field) {
	for _, field := range fields {
		value := field.Value
		if value == "" {
			value = placeholder
		}
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(labelWidth, lineHeight, tr(field.Label+":"), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, lineHeight, tr(value), "", "L", false)
	}
}

func writeText(pdf *fpdf.Fpdf, tr func(string) string, text string) {
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, lineHeight, tr(text), "", "L", false)
}
