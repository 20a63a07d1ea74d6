package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ent0n29/birthdaybot/internal/birthday"
	"github.com/ent0n29/birthdaybot/internal/observability"
	"github.com/ent0n29/birthdaybot/internal/store"
)

const helpText = `Commands to use:
/list - your added birthdays
/add_birthday - adds a birthday to your list
/delete_birthday - deletes a birthday from your list
/add_note - add some info about someone

/help
/stop`

const (
	replyAskName       = "Print person's name:"
	replyNameTooLong   = "This name is too long. Choose another one:"
	replyNameTaken     = "This name is already taken. Choose another one:"
	replyAskDate       = "Great! Print a date (format example: 22.02.2002 or 22.02):"
	replyInvalidDate   = "This is an invalid date. Choose another one:"
	replyAdded         = "Successfully added!"
	replyAskDelete     = "Which one to delete? (print a name)"
	replyDeleteMissing = "No such person in your list. Try again:"
	replyDeleted       = "Successfully deleted!"
	replyAskNoteName   = "About whom you want to add a note? (print a name)"
	replyAskNote       = "Print a description:\n(it could be a hint for a present or some notes for the future, etc.)"
	replyNoteMissing   = "No such person in your list"

	replyFeb29Advisory = "This is an unusual date\n" +
		"I will ask you to choose a different date like 01.03 or 28.02 and then add a note by using /add_note command that it is actually on 29.02\n" +
		"Sorry for the inconvenience"
)

// Engine drives the multi-turn add, delete and add-note flows. It is
// transport-independent: one call per inbound chat message, replies returned
// to the caller for delivery.
type Engine struct {
	sessions *Manager
	store    store.Store
	names    *birthday.NameValidator
	logger   *zap.Logger
	metrics  *observability.Metrics
	now      func() time.Time
}

func NewEngine(sessions *Manager, st store.Store, logger *zap.Logger, metrics *observability.Metrics, now func() time.Time) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &Engine{
		sessions: sessions,
		store:    st,
		names:    birthday.NewNameValidator(st),
		logger:   logger,
		metrics:  metrics,
		now:      now,
	}
}

// HandleMessage advances the user's conversation by one inbound message and
// returns the replies to send back. A recognized command cancels any active
// flow before being dispatched; plain text outside a flow is ignored.
func (e *Engine) HandleMessage(ctx context.Context, userID, text string) ([]string, error) {
	if strings.HasPrefix(text, "/") {
		if sess, err := e.sessions.Get(userID); err == nil {
			e.sessions.End(userID)
			e.observeFlowEvent(flowOf(sess.State), "cancelled")
		}
		e.syncActiveGauge()
		return e.handleCommand(ctx, userID, text)
	}

	sess, err := e.sessions.Get(userID)
	if err != nil {
		// Stray text with no flow in progress. The original bot stays silent.
		return nil, nil
	}

	switch sess.State {
	case StateAddName:
		return e.stepAddName(ctx, userID, text)
	case StateAddDate:
		return e.stepAddDate(ctx, userID, sess.DraftName, text)
	case StateDelName:
		return e.stepDelete(ctx, userID, text)
	case StateDescName:
		return e.stepNoteName(userID, text)
	case StateAddNote:
		return e.stepNoteText(ctx, userID, sess.DraftName, text)
	default:
		return nil, fmt.Errorf("unknown conversation state %q for user %s", sess.State, userID)
	}
}

func (e *Engine) handleCommand(ctx context.Context, userID, command string) ([]string, error) {
	switch command {
	case "/start":
		e.observeCommand(command)
		return []string{"Hi", helpText}, nil
	case "/help":
		e.observeCommand(command)
		return []string{helpText}, nil
	case "/list":
		e.observeCommand(command)
		list, err := e.renderList(ctx, userID)
		if err != nil {
			return nil, err
		}
		return []string{list}, nil
	case "/add_birthday":
		e.observeCommand(command)
		e.beginFlow(userID, "add", StateAddName)
		return []string{replyAskName}, nil
	case "/delete_birthday":
		e.observeCommand(command)
		list, err := e.renderList(ctx, userID)
		if err != nil {
			return nil, err
		}
		e.beginFlow(userID, "delete", StateDelName)
		return []string{list, replyAskDelete}, nil
	case "/add_note":
		e.observeCommand(command)
		list, err := e.renderList(ctx, userID)
		if err != nil {
			return nil, err
		}
		e.beginFlow(userID, "note", StateDescName)
		return []string{replyAskNoteName, list}, nil
	case "/stop":
		// The fallback above already discarded the session; no reply.
		e.observeCommand(command)
		return nil, nil
	default:
		e.logger.Debug("ignoring unknown command", zap.String("user_id", userID), zap.String("command", command))
		return nil, nil
	}
}

func (e *Engine) stepAddName(ctx context.Context, userID, name string) ([]string, error) {
	err := e.names.Validate(ctx, userID, name)
	switch {
	case errors.Is(err, birthday.ErrNameTooLong):
		return []string{replyNameTooLong}, nil
	case errors.Is(err, birthday.ErrNameTaken):
		return []string{replyNameTaken}, nil
	case err != nil:
		return nil, err
	}

	if err := e.sessions.SetDraft(userID, name); err != nil {
		return nil, err
	}
	if err := e.sessions.Transition(userID, StateAddDate); err != nil {
		return nil, err
	}
	return []string{replyAskDate}, nil
}

func (e *Engine) stepAddDate(ctx context.Context, userID, draftName, text string) ([]string, error) {
	date, err := birthday.ParseDate(text, e.now())
	if err != nil {
		if errors.Is(err, birthday.ErrInvalidDate) {
			_ = e.sessions.Touch(userID)
			return []string{replyInvalidDate}, nil
		}
		return nil, err
	}

	_, err = e.store.Create(ctx, store.Record{
		OwnerID: userID,
		Name:    draftName,
		Day:     date.Day,
		Month:   date.Month,
		Year:    date.Year,
	})
	if err != nil {
		return nil, fmt.Errorf("save birthday for %s: %w", userID, err)
	}

	e.endFlow(userID, "add")
	var replies []string
	if date.Advisory {
		replies = append(replies, replyFeb29Advisory)
	}
	return append(replies, replyAdded, helpText), nil
}

func (e *Engine) stepDelete(ctx context.Context, userID, name string) ([]string, error) {
	err := e.store.DeleteByOwnerAndName(ctx, userID, name)
	switch {
	case errors.Is(err, store.ErrNotFound):
		_ = e.sessions.Touch(userID)
		return []string{replyDeleteMissing}, nil
	case err != nil:
		return nil, fmt.Errorf("delete birthday for %s: %w", userID, err)
	}

	e.endFlow(userID, "delete")
	return []string{replyDeleted, helpText}, nil
}

func (e *Engine) stepNoteName(userID, name string) ([]string, error) {
	// The name is taken as-is here; existence is checked when the note is
	// applied, matching the original flow.
	if err := e.sessions.SetDraft(userID, name); err != nil {
		return nil, err
	}
	if err := e.sessions.Transition(userID, StateAddNote); err != nil {
		return nil, err
	}
	return []string{replyAskNote}, nil
}

func (e *Engine) stepNoteText(ctx context.Context, userID, draftName, note string) ([]string, error) {
	err := e.store.UpdateNote(ctx, userID, draftName, note)
	switch {
	case errors.Is(err, store.ErrNotFound):
		// The draft name was accepted unconditionally, so re-prompting here
		// could never succeed. Terminate the flow instead.
		e.endFlow(userID, "note")
		return []string{replyNoteMissing}, nil
	case err != nil:
		return nil, fmt.Errorf("update note for %s: %w", userID, err)
	}

	e.endFlow(userID, "note")
	return []string{replyAdded, helpText}, nil
}

func (e *Engine) renderList(ctx context.Context, userID string) (string, error) {
	records, err := e.store.ListByOwner(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("list birthdays for %s: %w", userID, err)
	}
	return birthday.RenderList(records, e.now()), nil
}

// Snapshot describes the user's session for diagnostic reports.
func (e *Engine) Snapshot(userID string) string {
	sess, err := e.sessions.Get(userID)
	if err != nil {
		return "no active session"
	}
	return fmt.Sprintf("state=%s draft=%q started=%s", sess.State, sess.DraftName, sess.StartedAt.Format(time.RFC3339))
}

// Reset discards the user's session after an unrecoverable failure.
func (e *Engine) Reset(userID string) {
	e.sessions.End(userID)
	e.syncActiveGauge()
}

func (e *Engine) beginFlow(userID, flow string, state State) {
	e.sessions.Begin(userID, state)
	e.observeFlowEvent(flow, "started")
	e.syncActiveGauge()
}

func (e *Engine) endFlow(userID, flow string) {
	e.sessions.End(userID)
	e.observeFlowEvent(flow, "completed")
	e.syncActiveGauge()
}

func flowOf(state State) string {
	switch state {
	case StateAddName, StateAddDate:
		return "add"
	case StateDelName:
		return "delete"
	case StateDescName, StateAddNote:
		return "note"
	default:
		return "unknown"
	}
}

func (e *Engine) observeCommand(command string) {
	if e.metrics != nil {
		e.metrics.CommandsTotal.WithLabelValues(strings.TrimPrefix(command, "/")).Inc()
	}
}

func (e *Engine) observeFlowEvent(flow, event string) {
	if e.metrics != nil {
		e.metrics.FlowEvents.WithLabelValues(flow, event).Inc()
	}
}

func (e *Engine) syncActiveGauge() {
	if e.metrics != nil {
		e.metrics.ActiveSessions.Set(float64(e.sessions.ActiveCount()))
	}
}
