package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// PassSlip carries the fields printed on a gate pass slip.
type PassSlip struct {
	RequestID     string
	StudentName   string
	RollNumber    string
	Department    string
	Year          string
	Section       string
	Destination   string
	Reason        string
	ExitDate      string
	ReturnDate    string
	ApprovedAt    string
	Status        string
}

// SlipExporter renders an approved gate pass into a printable PDF.
type SlipExporter struct{}

// NewSlipExporter builds a slip exporter.
func NewSlipExporter() *SlipExporter {
	return &SlipExporter{}
}

// Render produces the PDF bytes for a single pass slip.
func (e *SlipExporter) Render(slip PassSlip) ([]byte, error) {
	if slip.RequestID == "" {
		return nil, fmt.Errorf("slip requires a request id")
	}

	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.SetMargins(12, 14, 12)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 15)
	pdf.CellFormat(0, 10, "CAMPUS GATE PASS", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 8)
	pdf.CellFormat(0, 5, fmt.Sprintf("Pass ID: %s", slip.RequestID), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	rows := [][2]string{
		{"Name", slip.StudentName},
		{"Roll Number", slip.RollNumber},
		{"Department", slip.Department},
		{"Year / Section", fmt.Sprintf("%s / %s", slip.Year, slip.Section)},
		{"Destination", slip.Destination},
		{"Reason", slip.Reason},
		{"Exit Date", slip.ExitDate},
		{"Expected Return", slip.ReturnDate},
		{"Approved At", slip.ApprovedAt},
		{"Status", slip.Status},
	}

	for _, row := range rows {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(45, 8, row[0], "1", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 8, row[1], "1", 1, "", false, 0, "")
	}

	pdf.Ln(6)
	pdf.SetFont("Arial", "I", 8)
	pdf.CellFormat(0, 5, "Present the QR code at the security checkpoint. Valid for a single exit.", "", 1, "C", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render slip: %w", err)
	}
	return buf.Bytes(), nil
}
