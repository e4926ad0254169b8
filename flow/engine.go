package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"complaintbot/complaint"
	"complaintbot/core/logger"
)

// EntryMode selects which gate opens a new conversation.
type EntryMode string

const (
	// EntryCategory asks for the incident type and starts collecting.
	EntryCategory EntryMode = "category"
	// EntryMoneyLoss asks a yes/no money-loss question first and redirects
	// "no" to the public portal.
	EntryMoneyLoss EntryMode = "money_loss"
)

const defaultTurnTimeout = 30 * time.Second

// Options configure a new Engine. Store, Messenger, Media and Renderer are
// required; Entry defaults to EntryCategory.
type Options struct {
	Store       Store
	Messenger   Messenger
	Media       MediaResolver
	Renderer    Renderer
	Entry       EntryMode
	PortalURL   string
	TurnTimeout time.Duration
}

type handlerFunc func(ctx context.Context, t *turn) error

// Engine drives one conversation turn per inbound event.
type Engine struct {
	store       Store
	messenger   Messenger
	media       MediaResolver
	renderer    Renderer
	entry       EntryMode
	portalURL   string
	turnTimeout time.Duration

	handlers map[Step]handlerFunc
	locks    *userLocks
}

// turn carries the mutable context of a single HandleEvent call.
type turn struct {
	event   Event
	state   *complaint.State
	dirty   bool
	started bool
}

func (t *turn) setStep(s Step) {
	t.state.Step = string(s)
	t.dirty = true
}

// New validates the collaborators and builds the step dispatch table.
func New(opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, errors.New("flow: store is required")
	}
	if opts.Messenger == nil {
		return nil, errors.New("flow: messenger is required")
	}
	if opts.Media == nil {
		return nil, errors.New("flow: media resolver is required")
	}
	if opts.Renderer == nil {
		return nil, errors.New("flow: renderer is required")
	}
	entry := opts.Entry
	if entry == "" {
		entry = EntryCategory
	}
	if entry != EntryCategory && entry != EntryMoneyLoss {
		return nil, fmt.Errorf("flow: unknown entry mode %q", entry)
	}
	if entry == EntryMoneyLoss && opts.PortalURL == "" {
		return nil, errors.New("flow: portal url is required for money-loss entry")
	}
	timeout := opts.TurnTimeout
	if timeout <= 0 {
		timeout = defaultTurnTimeout
	}

	e := &Engine{
		store:       opts.Store,
		messenger:   opts.Messenger,
		media:       opts.Media,
		renderer:    opts.Renderer,
		entry:       entry,
		portalURL:   opts.PortalURL,
		turnTimeout: timeout,
		locks:       newUserLocks(),
	}
	e.handlers = map[Step]handlerFunc{
		StepAwaitMoneyLoss:   e.handleMoneyLoss,
		StepAwaitCategory:    e.collect(complaint.FieldCategory, nonEmpty, msgCategoryRetry),
		StepAwaitName:        e.collect(complaint.FieldName, validateName, msgNameRetry),
		StepAwaitAddress:     e.collect(complaint.FieldAddress, nonEmpty, msgAddressRetry),
		StepAwaitPhone:       e.collect(complaint.FieldPhone, validatePhone, msgPhoneRetry),
		StepAwaitEmail:       e.collect(complaint.FieldEmail, validateEmail, msgEmailRetry),
		StepAwaitDescription: e.collect(complaint.FieldDescription, nonEmpty, msgDescriptionRetry),
		StepAwaitEvidence:    e.handleAttachmentStep,
		StepAwaitIDProof:     e.handleAttachmentStep,
		StepAwaitTxnCount:    e.collect(complaint.FieldTxnCount, validateDigits, msgTxnCountRetry),
		StepAwaitTxnID:       e.collect(complaint.FieldTxnID, validateTxnID, msgTxnIDRetry),
		StepAwaitIFSC:        e.collect(complaint.FieldIFSC, validateIFSC, msgIFSCRetry),
		StepAwaitEditChoice:  e.handleEditChoice,
		StepAwaitEditField:   e.handleEditField,
	}
	return e, nil
}

// HandleEvent runs one conversation turn. Turns for the same user are
// serialized; validated field mutations are persisted even when a later
// side effect of the same turn fails.
func (e *Engine) HandleEvent(ctx context.Context, evt Event) error {
	if evt.UserID == "" {
		return errors.New("flow: event without user id")
	}
	unlock := e.locks.acquire(evt.UserID)
	defer unlock()

	ctx, cancel := context.WithTimeout(ctx, e.turnTimeout)
	defer cancel()
	ctx = logger.WithUserID(ctx, evt.UserID)
	ctx = logger.WithLogger(ctx, logger.Flow)
	if evt.MessageID != "" || evt.Channel != "" {
		ctx = logger.WithRID(ctx, logger.BuildRID(evt.Channel, evt.MessageID, evt.UserID))
	}
	start := time.Now()

	st, err := e.store.LoadState(ctx, evt.UserID)
	if err != nil {
		return collabErr("load state", err)
	}
	if st == nil {
		st = complaint.NewState(evt.UserID, string(StepStart))
	}
	stepIn := Step(st.Step)
	t := &turn{event: evt, state: st}

	// A finished conversation restarts from scratch on any further event.
	if Step(st.Step) == StepEnd {
		t.setStep(StepStart)
	}

	var turnErr error
	if Step(st.Step) == StepStart {
		turnErr = e.handleStart(ctx, t)
	}
	if turnErr == nil {
		turnErr = e.resolveAttachment(ctx, t)
	}
	if turnErr == nil && e.shouldDispatch(t) {
		turnErr = e.dispatch(ctx, t)
	}

	if t.dirty {
		if saveErr := e.store.SaveState(ctx, st); saveErr != nil {
			turnErr = errors.Join(turnErr, collabErr("save state", saveErr))
		}
	}
	logger.Info(ctx, "flow", "turn.handled",
		slog.String("status", logger.Status(turnErr)),
		slog.String("step", string(stepIn)),
		slog.String("next_step", st.Step),
		slog.String("msg_kind", string(evt.Kind)),
		slog.Duration("duration", logger.Took(start)),
	)
	return turnErr
}

// shouldDispatch decides whether the event body still needs a step handler
// after the pre-dispatch phases ran.
func (e *Engine) shouldDispatch(t *turn) bool {
	if !t.started {
		return true
	}
	// The opening turn already prompted the user. In money-loss mode the
	// first message cannot answer a question that was just asked; in
	// category mode a non-empty first message is taken as the incident type.
	if e.entry == EntryMoneyLoss {
		return false
	}
	return strings.TrimSpace(t.event.Body) != "" || t.event.MediaRef != ""
}

func (e *Engine) dispatch(ctx context.Context, t *turn) error {
	logger.Debug(ctx, "flow", "turn.dispatch", slog.String("step", t.state.Step))
	h, ok := e.handlers[Step(t.state.Step)]
	if !ok {
		// Unknown step tag in storage: recover by restarting the flow.
		logger.Warn(ctx, "flow", "turn.unknown_step", slog.String("step", t.state.Step))
		t.setStep(StepStart)
		return e.handleStart(ctx, t)
	}
	return h(ctx, t)
}

// handleStart opens a fresh conversation: fields are reset and the entry
// gate's prompt is sent. The step advances only when the prompt went out.
func (e *Engine) handleStart(ctx context.Context, t *turn) error {
	t.state.Fields = make(map[string]string)
	t.dirty = true
	t.started = true
	if e.entry == EntryMoneyLoss {
		if err := e.messenger.SendButtons(ctx, t.state.UserID, msgMoneyLossPrompt, yesNoButtons()); err != nil {
			return collabErr("send money-loss prompt", err)
		}
		t.setStep(StepAwaitMoneyLoss)
		return nil
	}
	if err := e.messenger.SendText(ctx, t.state.UserID, msgGreeting); err != nil {
		return collabErr("send greeting", err)
	}
	t.setStep(StepAwaitCategory)
	return nil
}

func (e *Engine) handleMoneyLoss(ctx context.Context, t *turn) error {
	switch normalizeAnswer(t.event.Body) {
	case "yes":
		if err := e.messenger.SendText(ctx, t.state.UserID, msgNamePrompt); err != nil {
			return collabErr("send name prompt", err)
		}
		t.setStep(StepAwaitName)
		return nil
	case "no":
		if err := e.messenger.SendText(ctx, t.state.UserID, fmt.Sprintf(msgPortalRedirect, e.portalURL)); err != nil {
			return collabErr("send portal redirect", err)
		}
		t.setStep(StepEnd)
		return nil
	}
	e.say(ctx, t, msgReviewRetry)
	e.sendButtons(ctx, t, msgMoneyLossPrompt, yesNoButtons())
	return nil
}

// collect builds the handler for a linear text-collection step: validate,
// stage the field, then either continue the linear chain or, when a draft
// already exists, return to review.
func (e *Engine) collect(field string, valid func(string) bool, retryMsg string) handlerFunc {
	return func(ctx context.Context, t *turn) error {
		text := strings.TrimSpace(t.event.Body)
		if !valid(text) {
			e.say(ctx, t, retryMsg)
			return nil
		}
		t.state.Fields[field] = text
		t.dirty = true
		if t.state.Fields[complaint.FieldComplaintID] != "" {
			return e.promptReview(ctx, t)
		}
		next := e.nextLinear(Step(t.state.Step))
		if next == "" {
			// End of the money-loss chain: IFSC was the last answer.
			return e.materializeAndRender(ctx, t)
		}
		if err := e.messenger.SendText(ctx, t.state.UserID, promptFor(next)); err != nil {
			return collabErr("send next prompt", err)
		}
		t.setStep(next)
		return nil
	}
}

// nextLinear returns the step that follows s in the active entry mode's
// collection chain, or "" when s is the chain's last collection step.
func (e *Engine) nextLinear(s Step) Step {
	switch s {
	case StepAwaitCategory:
		return StepAwaitName
	case StepAwaitName:
		return StepAwaitAddress
	case StepAwaitAddress:
		return StepAwaitPhone
	case StepAwaitPhone:
		return StepAwaitEmail
	case StepAwaitEmail:
		return StepAwaitDescription
	case StepAwaitDescription:
		if e.entry == EntryMoneyLoss {
			return StepAwaitIDProof
		}
		return StepAwaitEvidence
	case StepAwaitIDProof:
		return StepAwaitTxnCount
	case StepAwaitTxnCount:
		return StepAwaitTxnID
	case StepAwaitTxnID:
		return StepAwaitIFSC
	}
	return ""
}

// handleAttachmentStep serves both attachment-expecting steps. The
// cross-cutting attachment phase has already resolved and staged any file
// from this event, so the handler only decides whether to move on.
func (e *Engine) handleAttachmentStep(ctx context.Context, t *turn) error {
	skip := strings.EqualFold(strings.TrimSpace(t.event.Body), "skip")
	if t.event.MediaRef == "" && !skip {
		retry := msgEvidenceRetry
		if Step(t.state.Step) == StepAwaitIDProof {
			retry = msgIDProofPrompt
		}
		e.say(ctx, t, retry)
		return nil
	}
	if Step(t.state.Step) == StepAwaitIDProof {
		if err := e.messenger.SendText(ctx, t.state.UserID, msgTxnCountPrompt); err != nil {
			return collabErr("send txn count prompt", err)
		}
		t.setStep(StepAwaitTxnCount)
		return nil
	}
	return e.materializeAndRender(ctx, t)
}

// materializeAndRender turns the staged fields into a draft record (once),
// renders the complaint document, sends it and opens the review prompt.
// Any failed side effect leaves the step where it was so the next event
// retries from the same point.
func (e *Engine) materializeAndRender(ctx context.Context, t *turn) error {
	fields := t.state.Fields
	id := fields[complaint.FieldComplaintID]
	if id == "" {
		id = uuid.NewString()
		rec := complaint.NewRecord(id, t.state.UserID)
		rec.ApplyFields(fields)
		if err := e.store.SaveComplaint(ctx, rec); err != nil {
			e.notifyFailure(ctx, t)
			return collabErr("create draft record", err)
		}
		fields[complaint.FieldComplaintID] = id
		t.dirty = true
		logger.Info(ctx, "flow", "complaint.drafted", slog.String("complaint_id", id))
	}

	url, err := e.renderer.Render(fields, id)
	if err != nil {
		e.notifyFailure(ctx, t)
		return collabErr("render document", err)
	}
	fields[complaint.FieldPDFURL] = url
	t.dirty = true

	rec, err := e.store.LoadComplaint(ctx, id)
	if err != nil {
		e.notifyFailure(ctx, t)
		return collabErr("load draft record", err)
	}
	if rec == nil {
		rec = complaint.NewRecord(id, t.state.UserID)
	}
	rec.ApplyFields(fields)
	if err := e.store.SaveComplaint(ctx, rec); err != nil {
		e.notifyFailure(ctx, t)
		return collabErr("save draft record", err)
	}

	if err := e.messenger.SendDocument(ctx, t.state.UserID, url, msgDocumentName, msgDocumentCaption); err != nil {
		e.notifyFailure(ctx, t)
		return collabErr("send document", err)
	}
	return e.promptReview(ctx, t)
}

// promptReview asks the edit question and parks the user at the edit
// choice. The review prompt itself is the only action of that position, so
// the stored step jumps straight to await_edit_choice.
func (e *Engine) promptReview(ctx context.Context, t *turn) error {
	if err := e.messenger.SendButtons(ctx, t.state.UserID, msgReviewPrompt, yesNoButtons()); err != nil {
		return collabErr("send review prompt", err)
	}
	t.setStep(StepAwaitEditChoice)
	return nil
}

func (e *Engine) handleEditChoice(ctx context.Context, t *turn) error {
	switch normalizeAnswer(t.event.Body) {
	case "yes", "edit":
		if err := e.messenger.SendText(ctx, t.state.UserID, msgFieldPicker); err != nil {
			return collabErr("send field picker", err)
		}
		t.setStep(StepAwaitEditField)
		return nil
	case "no", "submit", "confirm", "done":
		return e.finalize(ctx, t)
	}
	e.say(ctx, t, msgReviewRetry)
	e.sendButtons(ctx, t, msgReviewPrompt, yesNoButtons())
	return nil
}

var editableFields = map[string]Step{
	"name":        StepAwaitName,
	"address":     StepAwaitAddress,
	"phone":       StepAwaitPhone,
	"email":       StepAwaitEmail,
	"description": StepAwaitDescription,
}

func (e *Engine) handleEditField(ctx context.Context, t *turn) error {
	token := strings.ToLower(strings.TrimSpace(t.event.Body))
	target, ok := editableFields[token]
	if !ok {
		e.say(ctx, t, msgFieldPicker)
		return nil
	}
	if err := e.messenger.SendText(ctx, t.state.UserID, promptFor(target)); err != nil {
		return collabErr("send edit prompt", err)
	}
	t.setStep(target)
	return nil
}

// finalize seals the complaint: the staged fields are written to the
// record, the status flips to submitted and the user gets the complaint id.
// Rerunning it after a failed confirmation send is harmless.
func (e *Engine) finalize(ctx context.Context, t *turn) error {
	id := t.state.Fields[complaint.FieldComplaintID]
	if id == "" {
		return e.lookupFailed(ctx, t)
	}
	rec, err := e.store.LoadComplaint(ctx, id)
	if err != nil {
		e.notifyFailure(ctx, t)
		return collabErr("load record", err)
	}
	if rec == nil {
		return e.lookupFailed(ctx, t)
	}
	rec.ApplyFields(t.state.Fields)
	rec.Status = complaint.StatusSubmitted
	if err := e.store.SaveComplaint(ctx, rec); err != nil {
		e.notifyFailure(ctx, t)
		return collabErr("save record", err)
	}
	if err := e.messenger.SendText(ctx, t.state.UserID, fmt.Sprintf(msgConfirmation, id)); err != nil {
		return collabErr("send confirmation", err)
	}
	t.setStep(StepEnd)
	logger.Info(ctx, "flow", "complaint.submitted", slog.String("complaint_id", id))
	return nil
}

func (e *Engine) lookupFailed(ctx context.Context, t *turn) error {
	e.say(ctx, t, msgDraftNotFound)
	t.setStep(StepStart)
	return fmt.Errorf("%w: user %s", ErrRecordMissing, t.state.UserID)
}

// resolveAttachment handles an inbound file regardless of the active step:
// the media reference is exchanged for a durable URL and staged under the
// entry mode's attachment field.
func (e *Engine) resolveAttachment(ctx context.Context, t *turn) error {
	if t.event.MediaRef == "" {
		return nil
	}
	url, err := e.media.Resolve(ctx, t.event.MediaRef)
	if err != nil {
		e.notifyFailure(ctx, t)
		return collabErr("resolve media", err)
	}
	t.state.Fields[e.attachmentField()] = url
	t.dirty = true
	logger.Info(ctx, "flow", "attachment.stored", slog.String("media_ref", t.event.MediaRef))
	e.say(ctx, t, msgAttachmentSaved)
	return nil
}

func (e *Engine) attachmentField() string {
	if e.entry == EntryMoneyLoss {
		return complaint.FieldIDProof
	}
	return complaint.FieldEvidenceURL
}

// say sends a best-effort text; a delivery failure only logs because the
// message carries no state transition.
func (e *Engine) say(ctx context.Context, t *turn, body string) {
	if err := e.messenger.SendText(ctx, t.state.UserID, body); err != nil {
		logger.Warn(ctx, "flow", "send.text_failed", slog.Any("err", err))
	}
}

func (e *Engine) sendButtons(ctx context.Context, t *turn, body string, buttons []Button) {
	if err := e.messenger.SendButtons(ctx, t.state.UserID, body, buttons); err != nil {
		logger.Warn(ctx, "flow", "send.buttons_failed", slog.Any("err", err))
	}
}

func (e *Engine) notifyFailure(ctx context.Context, t *turn) {
	e.say(ctx, t, msgGenericFailure)
}

func normalizeAnswer(body string) string {
	s := strings.ToLower(strings.TrimSpace(body))
	switch s {
	case "y":
		return "yes"
	case "n":
		return "no"
	}
	return s
}
