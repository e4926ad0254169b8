// Package pdf renders the complaint report artifact served back to the user.
package pdf

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"complaintbot/complaint"
	"complaintbot/core/logger"
)

const reportTitle = "Cyber Crime Complaint Report"

// Renderer writes complaint reports into the uploads directory and returns
// the public URL they are served from.
type Renderer struct {
	dir       string
	publicURL string
}

// New prepares the uploads directory. publicURL is the externally reachable
// base (no trailing slash) that GET /uploads/ serves from.
func New(dir, publicURL string) (*Renderer, error) {
	if dir == "" {
		return nil, fmt.Errorf("pdf: uploads dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("pdf: create uploads dir: %w", err)
	}
	return &Renderer{
		dir:       dir,
		publicURL: strings.TrimRight(publicURL, "/"),
	}, nil
}

// Render produces <complaintID>.pdf from the staged fields. Empty fields
// are left off the report.
func (r *Renderer) Render(fields map[string]string, complaintID string) (string, error) {
	start := time.Now()
	filename := complaintID + ".pdf"
	path := filepath.Join(r.dir, filename)

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetTitle(reportTitle, false)
	doc.SetAutoPageBreak(true, 15)
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 16)
	doc.CellFormat(0, 10, reportTitle, "", 1, "C", false, 0, "")
	doc.SetDrawColor(60, 60, 60)
	doc.Line(10, doc.GetY()+1, 200, doc.GetY()+1)
	doc.Ln(6)

	doc.SetFont("Helvetica", "", 10)
	doc.CellFormat(0, 6, "Generated on "+time.Now().Format("02 Jan 2006 15:04"), "", 1, "R", false, 0, "")
	doc.Ln(2)

	rows := []struct {
		label string
		key   string
	}{
		{"Complaint ID", complaint.FieldComplaintID},
		{"Category", complaint.FieldCategory},
		{"Name", complaint.FieldName},
		{"Address", complaint.FieldAddress},
		{"Phone", complaint.FieldPhone},
		{"Email", complaint.FieldEmail},
		{"Transactions", complaint.FieldTxnCount},
		{"Transaction ID", complaint.FieldTxnID},
		{"IFSC", complaint.FieldIFSC},
		{"ID Proof", complaint.FieldIDProof},
		{"Evidence", complaint.FieldEvidenceURL},
	}
	values := make(map[string]string, len(fields))
	for k, v := range fields {
		values[k] = v
	}
	values[complaint.FieldComplaintID] = complaintID

	doc.SetFont("Helvetica", "", 11)
	for _, row := range rows {
		v := strings.TrimSpace(values[row.key])
		if v == "" {
			continue
		}
		doc.SetFont("Helvetica", "B", 11)
		doc.CellFormat(45, 7, row.label+":", "", 0, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 11)
		doc.MultiCell(0, 7, v, "", "L", false)
	}

	if desc := strings.TrimSpace(values[complaint.FieldDescription]); desc != "" {
		doc.Ln(4)
		doc.SetFont("Helvetica", "B", 12)
		doc.CellFormat(0, 8, "Incident Description", "", 1, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 11)
		doc.MultiCell(0, 6, desc, "", "L", false)
	}

	if err := doc.OutputFileAndClose(path); err != nil {
		logger.PDF.Error("render failed",
			slog.String("event", "pdf.render"),
			slog.String("status", "error"),
			slog.String("complaint_id", complaintID),
			slog.Any("err", err),
		)
		return "", fmt.Errorf("pdf: write %s: %w", filename, err)
	}

	url := r.publicURL + "/uploads/" + filename
	logger.PDF.Info("report rendered",
		slog.String("event", "pdf.render"),
		slog.String("status", "ok"),
		slog.String("complaint_id", complaintID),
		slog.String("filename", filename),
		slog.Duration("duration", logger.Took(start)),
	)
	return url, nil
}
