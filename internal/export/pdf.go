package export

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"

	"github.com/podiumlabs/podium/internal/core"
)

// PDFExporter exports debates to PDF format.
type PDFExporter struct{}

// Export writes the debate as PDF.
func (e *PDFExporter) Export(debate *core.Debate, w io.Writer) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	// Title
	pdf.SetFont("Arial", "B", 18)
	pdf.MultiCell(0, 10, debate.Topic, "", "C", false)
	pdf.Ln(5)

	// Metadata section
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, "Debate Information")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 10)
	e.addMetadataRow(pdf, "ID:", debate.ID)
	e.addMetadataRow(pdf, "Status:", string(debate.Status))
	e.addMetadataRow(pdf, "Pro:", debate.ProName)
	e.addMetadataRow(pdf, "Con:", debate.ConName)
	e.addMetadataRow(pdf, "Created:", debate.CreatedAt.Format("January 2, 2006 at 3:04 PM"))
	if debate.CompletedAt != nil {
		e.addMetadataRow(pdf, "Completed:", debate.CompletedAt.Format("January 2, 2006 at 3:04 PM"))
		e.addMetadataRow(pdf, "Duration:", formatDuration(debate.CreatedAt, *debate.CompletedAt))
	}
	if debate.FailureReason != "" {
		e.addMetadataRow(pdf, "Failure:", debate.FailureReason)
	}
	pdf.Ln(5)

	// Debate content
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, "Debate")
	pdf.Ln(8)

	if len(debate.Transcript) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.Cell(0, 6, "No turns recorded.")
		pdf.Ln(6)
	}

	for _, turn := range debate.Transcript {
		if pdf.GetY() > 250 {
			pdf.AddPage()
		}

		switch turn.Role {
		case core.RolePro:
			pdf.SetFillColor(200, 230, 255) // Light blue
		case core.RoleCon:
			pdf.SetFillColor(255, 220, 200) // Light orange
		default:
			pdf.SetFillColor(230, 230, 230) // Grey for moderator and fact checker
		}

		pdf.SetFont("Arial", "B", 10)
		header := fmt.Sprintf("Turn %d - %s (%s)", turn.Seq, speakerName(debate, turn.Role), turn.CreatedAt.Format("3:04 PM"))
		pdf.CellFormat(0, 7, header, "", 1, "", true, 0, "")

		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, 5, turn.Content, "", "", false)
		pdf.Ln(4)
	}

	// Verdict section
	if debate.Verdict != nil {
		if pdf.GetY() > 230 {
			pdf.AddPage()
		}
		v := debate.Verdict
		pdf.SetFont("Arial", "B", 12)
		pdf.Cell(0, 8, "Verdict")
		pdf.Ln(8)

		pdf.SetFont("Arial", "", 10)
		e.addMetadataRow(pdf, "Winner:", string(v.Winner))
		e.addMetadataRow(pdf, "Pro score:", fmt.Sprintf("%d", v.Scores[core.RolePro]))
		e.addMetadataRow(pdf, "Con score:", fmt.Sprintf("%d", v.Scores[core.RoleCon]))
		pdf.Ln(2)
		pdf.MultiCell(0, 5, v.Rationale, "", "", false)
	} else if debate.VerdictNote != "" {
		pdf.SetFont("Arial", "I", 10)
		pdf.MultiCell(0, 5, "No verdict: "+debate.VerdictNote, "", "", false)
	}

	return pdf.Output(w)
}

func (e *PDFExporter) addMetadataRow(pdf *gofpdf.Fpdf, label, value string) {
	pdf.SetFont("Arial", "B", 10)
	pdf.Cell(30, 6, label)
	pdf.SetFont("Arial", "", 10)
	pdf.MultiCell(0, 6, value, "", "", false)
}

// FileExtension returns the file extension for PDF.
func (e *PDFExporter) FileExtension() string {
	return "pdf"
}
