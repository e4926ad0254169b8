package pdf

import (
	"os"
	"path/filepath"
	"testing"

	"complaintbot/complaint"
	"complaintbot/core/logger"
)

func TestMain(m *testing.M) {
	_ = logger.Init(logger.Options{Level: "error", Format: "kv"})
	os.Exit(m.Run())
}

func TestRenderWritesReport(t *testing.T) {
	dir := t.TempDir()
	r, err := New(dir, "http://files.local/")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	fields := map[string]string{
		complaint.FieldCategory:    "Cyber Fraud",
		complaint.FieldName:        "Jane Roe",
		complaint.FieldAddress:     "12 High Street",
		complaint.FieldPhone:       "5551234567",
		complaint.FieldEmail:       "jane@example.com",
		complaint.FieldDescription: "Someone charged my card twice.",
	}
	url, err := r.Render(fields, "c-123")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if url != "http://files.local/uploads/c-123.pdf" {
		t.Errorf("unexpected url %q", url)
	}

	info, err := os.Stat(filepath.Join(dir, "c-123.pdf"))
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	if info.Size() == 0 {
		t.Error("report is empty")
	}
}

func TestRenderSkipsEmptyFields(t *testing.T) {
	dir := t.TempDir()
	r, err := New(dir, "http://files.local")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// Only the complaint id is known; the report must still render.
	if _, err := r.Render(map[string]string{}, "c-empty"); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "c-empty.pdf")); err != nil {
		t.Fatalf("report not written: %v", err)
	}
}

func TestRenderOverwritesExisting(t *testing.T) {
	dir := t.TempDir()
	r, err := New(dir, "http://files.local")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	fields := map[string]string{complaint.FieldName: "Jane Roe"}
	if _, err := r.Render(fields, "c-1"); err != nil {
		t.Fatalf("first render: %v", err)
	}
	fields[complaint.FieldName] = "Jane Q Roe"
	if _, err := r.Render(fields, "c-1"); err != nil {
		t.Fatalf("second render: %v", err)
	}
}
