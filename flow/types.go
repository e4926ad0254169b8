// Package flow implements the conversation engine: per-user step sequencing,
// field collection, the edit loop, and complaint finalization. Channel
// transports feed it normalized events; everything with a network or disk
// behind it is an injected collaborator.
package flow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"complaintbot/complaint"
)

// Step identifies a position in the per-user conversation state machine.
type Step string

const (
	StepStart            Step = "start"
	StepAwaitMoneyLoss   Step = "await_money_loss"
	StepAwaitCategory    Step = "await_category"
	StepAwaitName        Step = "await_name"
	StepAwaitAddress     Step = "await_address"
	StepAwaitPhone       Step = "await_phone"
	StepAwaitEmail       Step = "await_email"
	StepAwaitDescription Step = "await_description"
	StepAwaitEvidence    Step = "await_evidence"
	StepAwaitIDProof     Step = "await_id_proof"
	StepAwaitTxnCount    Step = "await_txn_count"
	StepAwaitTxnID       Step = "await_txn_id"
	StepAwaitIFSC        Step = "await_ifsc"
	StepAwaitReview      Step = "await_review"
	StepAwaitEditChoice  Step = "await_edit_choice"
	StepAwaitEditField   Step = "await_edit_field"
	StepEnd              Step = "end"
)

// EventKind tags the payload type of an inbound event.
type EventKind string

const (
	KindText     EventKind = "text"
	KindDocument EventKind = "document"
	KindImage    EventKind = "image"
)

// Event is one normalized inbound message from any channel.
type Event struct {
	UserID    string
	Kind      EventKind
	Body      string
	MediaRef  string
	MessageID string
	Channel   string
}

// Button is one reply option offered to the user (2-3 per prompt).
type Button struct {
	ID    string
	Title string
}

// Messenger delivers outbound messages on the user's channel.
type Messenger interface {
	SendText(ctx context.Context, to, body string) error
	SendButtons(ctx context.Context, to, body string, buttons []Button) error
	SendDocument(ctx context.Context, to, url, filename, caption string) error
}

// MediaResolver downloads an inbound attachment and returns a durable URL.
type MediaResolver interface {
	Resolve(ctx context.Context, mediaRef string) (string, error)
}

// Renderer produces the complaint document artifact and returns its URL.
type Renderer interface {
	Render(fields map[string]string, complaintID string) (string, error)
}

// Store persists conversation state and complaint records.
type Store interface {
	LoadState(ctx context.Context, userID string) (*complaint.State, error)
	SaveState(ctx context.Context, st *complaint.State) error
	LoadComplaint(ctx context.Context, complaintID string) (*complaint.Record, error)
	SaveComplaint(ctx context.Context, rec *complaint.Record) error
}

// Turn-level failure taxonomy.
var (
	// ErrCollaborator marks a failed external call; the turn's validated
	// field mutations are still persisted but the step does not advance
	// past the failed side effect.
	ErrCollaborator = errors.New("collaborator failure")
	// ErrRecordMissing marks a finalize attempt without a draft record.
	ErrRecordMissing = errors.New("complaint record missing")
)

func collabErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrCollaborator, op, err)
}

// userLocks serializes turns per user id so two events for the same user
// cannot interleave field updates.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *userLocks) acquire(userID string) func() {
	l.mu.Lock()
	m, ok := l.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[userID] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock
}
