package complaint

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"complaintbot/core/logger"
	"log/slog"
)

// Store persists conversation state and complaint records in Postgres.
type Store struct {
	db *sqlx.DB
}

// NewStore wraps the shared database handle.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

type stateRow struct {
	UserID    string    `db:"user_id"`
	Step      string    `db:"step"`
	Fields    []byte    `db:"fields"`
	UpdatedAt time.Time `db:"updated_at"`
}

// LoadState returns the conversation state for a user, or nil when the user
// has never been seen.
func (s *Store) LoadState(ctx context.Context, userID string) (*State, error) {
	var row stateRow
	err := s.db.GetContext(ctx, &row,
		`SELECT user_id, step, fields, updated_at FROM conversation_state WHERE user_id = $1`,
		userID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load state %s: %w", userID, err)
	}

	fields := make(map[string]string)
	if len(row.Fields) > 0 {
		if err := json.Unmarshal(row.Fields, &fields); err != nil {
			return nil, fmt.Errorf("decode state fields %s: %w", userID, err)
		}
	}
	return &State{
		UserID:    row.UserID,
		Step:      row.Step,
		Fields:    fields,
		UpdatedAt: row.UpdatedAt,
	}, nil
}

// SaveState upserts the state row and refreshes updated_at.
func (s *Store) SaveState(ctx context.Context, st *State) error {
	if st == nil {
		return errors.New("nil state")
	}
	fields := st.Fields
	if fields == nil {
		fields = map[string]string{}
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode state fields %s: %w", st.UserID, err)
	}

	start := time.Now()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO conversation_state (user_id, step, fields, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (user_id) DO UPDATE
		 SET step = EXCLUDED.step, fields = EXCLUDED.fields, updated_at = now()`,
		st.UserID, st.Step, raw,
	)
	if err != nil {
		return fmt.Errorf("save state %s: %w", st.UserID, err)
	}
	logger.DB.Debug("state saved",
		slog.String("event", "state.save"),
		slog.String("user_id", st.UserID),
		slog.String("step", st.Step),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

// LoadComplaint returns the record with the given complaint id, or nil when
// it does not exist.
func (s *Store) LoadComplaint(ctx context.Context, complaintID string) (*Record, error) {
	var rec Record
	err := s.db.GetContext(ctx, &rec,
		`SELECT id, complaint_id, user_id, status, name, address, contact_phone, email,
		        category, description, id_proof, evidence_url, pdf_url,
		        txn_count, txn_id, ifsc, created_at, updated_at
		 FROM complaints WHERE complaint_id = $1`,
		complaintID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load complaint %s: %w", complaintID, err)
	}
	return &rec, nil
}

// SaveComplaint upserts a record keyed by complaint_id.
func (s *Store) SaveComplaint(ctx context.Context, rec *Record) error {
	if rec == nil {
		return errors.New("nil record")
	}
	start := time.Now()
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO complaints (complaint_id, user_id, status, name, address, contact_phone,
		                         email, category, description, id_proof, evidence_url, pdf_url,
		                         txn_count, txn_id, ifsc)
		 VALUES (:complaint_id, :user_id, :status, :name, :address, :contact_phone,
		         :email, :category, :description, :id_proof, :evidence_url, :pdf_url,
		         :txn_count, :txn_id, :ifsc)
		 ON CONFLICT (complaint_id) DO UPDATE
		 SET status = EXCLUDED.status, name = EXCLUDED.name, address = EXCLUDED.address,
		     contact_phone = EXCLUDED.contact_phone, email = EXCLUDED.email,
		     category = EXCLUDED.category, description = EXCLUDED.description,
		     id_proof = EXCLUDED.id_proof, evidence_url = EXCLUDED.evidence_url,
		     pdf_url = EXCLUDED.pdf_url, txn_count = EXCLUDED.txn_count,
		     txn_id = EXCLUDED.txn_id, ifsc = EXCLUDED.ifsc, updated_at = now()`,
		rec,
	)
	if err != nil {
		return fmt.Errorf("save complaint %s: %w", rec.ComplaintID, err)
	}
	logger.DB.Debug("complaint saved",
		slog.String("event", "complaint.save"),
		slog.String("complaint_id", rec.ComplaintID),
		slog.String("user_id", rec.UserID),
		slog.String("status", string(rec.Status)),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}
