// Package export renders grouped transcripts for download.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"nexus-support-service/internal/models"
)

// TranscriptMeta is printed in the document header.
type TranscriptMeta struct {
	JobID       string
	Provider    string
	CompletedAt time.Time
}

// TranscriptPDF writes an A4 PDF with one paragraph per utterance.
func TranscriptPDF(w io.Writer, meta TranscriptMeta, records []models.TranscriptRecord) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr("Transcript "+meta.JobID), false)
	pdf.SetAuthor("NEXUS", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "Call transcript")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, tr("Job: "+meta.JobID))
	pdf.Ln(6)
	if meta.Provider != "" {
		pdf.Cell(0, 6, tr("Provider: "+meta.Provider))
		pdf.Ln(6)
	}
	if !meta.CompletedAt.IsZero() {
		pdf.Cell(0, 6, "Completed: "+meta.CompletedAt.UTC().Format("2006-01-02 15:04 MST"))
		pdf.Ln(6)
	}
	pdf.Cell(0, 6, fmt.Sprintf("Utterances: %d", len(records)))
	pdf.Ln(10)

	if len(records) == 0 {
		pdf.SetFont("Helvetica", "I", 12)
		pdf.MultiCell(0, 6, "(empty)", "", "L", false)
	}
	for _, rec := range records {
		writeUtterance(pdf, tr, rec)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func writeUtterance(pdf *gofpdf.Fpdf, tr func(string) string, rec models.TranscriptRecord) {
	speaker := rec.AgentName
	if strings.TrimSpace(speaker) == "" {
		speaker = "unknown"
	}

	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 6, tr(fmt.Sprintf("%s  [%s]", speaker, rec.Timestamp)))
	pdf.Ln(6)
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 6, tr(rec.Content), "", "L", false)
	pdf.Ln(3)
}
