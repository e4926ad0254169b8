// Package complaint defines the intake domain model: the per-user
// conversation state row that stages answers, and the complaint record
// that is materialized from it.
package complaint

import "time"

// Status marks the lifecycle position of a Record.
type Status string

const (
	// StatusDraft marks a record created but not yet confirmed by the user.
	StatusDraft Status = "draft"
	// StatusSubmitted marks a finalized record.
	StatusSubmitted Status = "submitted"
)

// Staging field keys recognized by the flow handlers. The staging map never
// carries a key outside this set.
const (
	FieldComplaintID = "complaintId"
	FieldCategory    = "category"
	FieldName        = "name"
	FieldAddress     = "address"
	FieldPhone       = "phone"
	FieldEmail       = "email"
	FieldDescription = "description"
	FieldEvidenceURL = "evidenceUrl"
	FieldIDProof     = "idProof"
	FieldPDFURL      = "pdfUrl"
	FieldTxnCount    = "txnCount"
	FieldTxnID       = "txnId"
	FieldIFSC        = "ifsc"
)

// State is one user's conversation position: the current step tag and the
// staged answers collected so far. The user id (phone number or chat id)
// is the primary key.
type State struct {
	UserID    string            `db:"user_id"`
	Step      string            `db:"step"`
	Fields    map[string]string `db:"-"`
	UpdatedAt time.Time         `db:"updated_at"`
}

// NewState returns a fresh state positioned at the given step.
func NewState(userID, step string) *State {
	return &State{
		UserID: userID,
		Step:   step,
		Fields: make(map[string]string),
	}
}

// NewRecord returns a draft record owned by the given user.
func NewRecord(complaintID, userID string) *Record {
	return &Record{
		ComplaintID: complaintID,
		UserID:      userID,
		Status:      StatusDraft,
	}
}

// Record is one submitted (or draft) complaint.
type Record struct {
	ID          int64     `db:"id"`
	ComplaintID string    `db:"complaint_id"`
	UserID      string    `db:"user_id"`
	Status      Status    `db:"status"`
	Name        string    `db:"name"`
	Address     string    `db:"address"`
	Phone       string    `db:"contact_phone"`
	Email       string    `db:"email"`
	Category    string    `db:"category"`
	Description string    `db:"description"`
	IDProof     string    `db:"id_proof"`
	EvidenceURL string    `db:"evidence_url"`
	PDFURL      string    `db:"pdf_url"`
	TxnCount    int       `db:"txn_count"`
	TxnID       string    `db:"txn_id"`
	IFSC        string    `db:"ifsc"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// ApplyFields copies staged answers onto the record, field by field.
// Unknown keys never reach the record; an absent key leaves the previous
// value in place so partial edits do not erase earlier answers.
func (r *Record) ApplyFields(fields map[string]string) {
	set := func(dst *string, key string) {
		if v, ok := fields[key]; ok {
			*dst = v
		}
	}
	set(&r.Name, FieldName)
	set(&r.Address, FieldAddress)
	set(&r.Phone, FieldPhone)
	set(&r.Email, FieldEmail)
	set(&r.Category, FieldCategory)
	set(&r.Description, FieldDescription)
	set(&r.IDProof, FieldIDProof)
	set(&r.EvidenceURL, FieldEvidenceURL)
	set(&r.PDFURL, FieldPDFURL)
	set(&r.TxnID, FieldTxnID)
	set(&r.IFSC, FieldIFSC)
	if v, ok := fields[FieldTxnCount]; ok {
		r.TxnCount = parseCount(v)
	}
}

func parseCount(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
		if n > 1_000_000 {
			return 1_000_000
		}
	}
	return n
}
