// Package pdf renders clinical reports as PDF documents.
package pdf

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Section is a titled block of report content.
type Section struct {
	Title string
	Body  string
}

// ReportDocument holds everything needed to render a report PDF.
type ReportDocument struct {
	Title         string
	PracticeName  string
	PatientName   string
	TherapistName string
	Disciplines   []string
	Status        string
	Deadline      *time.Time
	GeneratedAt   time.Time
	Sections      []Section
}

// Render writes the document as a PDF to w.
func Render(w io.Writer, doc ReportDocument) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	practice := doc.PracticeName
	if practice == "" {
		practice = "HadadaHealth"
	}

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, practice, "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 9, doc.Title, "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 10)
	writeMeta := func(label, value string) {
		if value == "" {
			return
		}
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(40, 6, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 6, value, "", 1, "L", false, 0, "")
	}

	writeMeta("Patient:", doc.PatientName)
	writeMeta("Therapist:", doc.TherapistName)
	if len(doc.Disciplines) > 0 {
		disciplines := doc.Disciplines[0]
		for _, d := range doc.Disciplines[1:] {
			disciplines += ", " + d
		}
		writeMeta("Disciplines:", disciplines)
	}
	writeMeta("Status:", doc.Status)
	if doc.Deadline != nil {
		writeMeta("Due date:", doc.Deadline.Format("2006-01-02"))
	}
	writeMeta("Generated:", doc.GeneratedAt.Format("2006-01-02 15:04"))
	pdf.Ln(6)

	for _, s := range doc.Sections {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(0, 7, s.Title, "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, s.Body, "", "L", false)
		pdf.Ln(3)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}
