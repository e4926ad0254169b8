package complaint

import "testing"

func TestApplyFieldsCopiesKnownKeys(t *testing.T) {
	rec := NewRecord("c-1", "+10000000001")
	rec.ApplyFields(map[string]string{
		FieldName:        "Jane Roe",
		FieldPhone:       "5551234567",
		FieldCategory:    "Cyber Fraud",
		FieldTxnCount:    "3",
		"bogusKey":       "ignored",
		FieldEvidenceURL: "http://files.local/uploads/x.jpg",
	})
	if rec.Name != "Jane Roe" || rec.Phone != "5551234567" || rec.Category != "Cyber Fraud" {
		t.Errorf("fields not applied: %+v", rec)
	}
	if rec.TxnCount != 3 {
		t.Errorf("txn count = %d, want 3", rec.TxnCount)
	}
	if rec.EvidenceURL != "http://files.local/uploads/x.jpg" {
		t.Errorf("evidence url = %q", rec.EvidenceURL)
	}
	if rec.Status != StatusDraft {
		t.Errorf("new record status = %q", rec.Status)
	}
}

func TestApplyFieldsPreservesAbsentKeys(t *testing.T) {
	rec := NewRecord("c-1", "+10000000001")
	rec.ApplyFields(map[string]string{FieldName: "Jane Roe", FieldEmail: "jane@example.com"})
	rec.ApplyFields(map[string]string{FieldName: "Jane Q Roe"})
	if rec.Name != "Jane Q Roe" {
		t.Errorf("name not updated: %q", rec.Name)
	}
	if rec.Email != "jane@example.com" {
		t.Errorf("absent key erased email: %q", rec.Email)
	}
}

func TestParseCount(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"0", 0},
		{"42", 42},
		{"12a", 0},
		{"", 0},
		{"99999999999999", 1_000_000},
	}
	for _, tc := range cases {
		if got := parseCount(tc.in); got != tc.want {
			t.Errorf("parseCount(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
