package order

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/frietavond/bestel/internal/api"
	"github.com/frietavond/bestel/internal/menu"
	"github.com/frietavond/bestel/internal/status"
)

// Step is the wizard position. Strictly ordered; forward transitions are
// guarded, backward ones are free.
type Step int

const (
	StepSelecting Step = iota + 1
	StepQuantifying
	StepConfirming
)

var (
	// ErrNothingSelected refuses 1→2 without any selected item.
	ErrNothingSelected = errors.New("no items selected")
	// ErrNameRequired refuses 1→2 with an empty (after trimming) name.
	ErrNameRequired = errors.New("name is required")
	// ErrSubmitUnavailable refuses a submission while one is in flight,
	// while an error is still displayed, or outside the confirm step.
	ErrSubmitUnavailable = errors.New("submission not available right now")
)

// User-facing copy, matching the rest of the product (Dutch).
const (
	msgClosed  = "Bestellen is momenteel niet mogelijk. Je bestelling is opgeslagen en kan worden verzonden zodra het bestellen weer open is"
	msgTimeout = "De verbinding met de server is verlopen. Controleer je internetverbinding en probeer het opnieuw."
	msgNetwork = "Kan geen verbinding maken met de server. Controleer je internetverbinding en probeer het opnieuw."
	msgServer  = "Er is een fout opgetreden bij het plaatsen van je bestelling"
)

// StatusChecker re-polls the order window on demand.
// Satisfied by *status.Tracker.
type StatusChecker interface {
	Poll(ctx context.Context, showLoading bool) *api.Status
}

// Submitter posts the finished order.
// Satisfied by *api.Client.
type Submitter interface {
	SubmitOrder(ctx context.Context, p api.Payload, timeout time.Duration) error
}

// Store is the local persistence the session writes through.
// Satisfied by *persist.Store.
type Store interface {
	UserID() string
	SaveLastOrder(p api.Payload)
	SavePending(p api.Payload)
	ClearPending()
}

// Session is the three-step order wizard: selection, quantities,
// confirmation. It owns the selection state and drives the submission
// protocol. Not safe for concurrent use; one goroutine owns it.
type Session struct {
	catalog *menu.Catalog
	sel     *Selection

	checker   StatusChecker
	submitter Submitter
	store     Store

	submitTimeout time.Duration
	now           func() time.Time

	name       string
	step       Step
	submitting bool
	complete   bool

	errMsg  string
	errInfo bool // informational (window closed), not a failure

	// Last built payload, kept for manual retry after a failure.
	lastPayload *api.Payload
}

func NewSession(catalog *menu.Catalog, checker StatusChecker, submitter Submitter, store Store, submitTimeout time.Duration) *Session {
	return &Session{
		catalog:       catalog,
		sel:           NewSelection(catalog.Keys()),
		checker:       checker,
		submitter:     submitter,
		store:         store,
		submitTimeout: submitTimeout,
		now:           time.Now,
		step:          StepSelecting,
	}
}

// --- State accessors ---

func (s *Session) Step() Step            { return s.step }
func (s *Session) Submitting() bool      { return s.submitting }
func (s *Session) Complete() bool        { return s.complete }
func (s *Session) Name() string          { return s.name }
func (s *Session) Selection() *Selection { return s.sel }

// Error returns the active error message and whether it is informational
// (window closed) rather than a failure. At most one error is active.
func (s *Session) Error() (msg string, informational bool) {
	return s.errMsg, s.errInfo
}

func (s *Session) SetName(name string) { s.name = name }

// DismissError clears the active error; the submit trigger is disabled
// until the user does this.
func (s *Session) DismissError() {
	s.errMsg = ""
	s.errInfo = false
}

// --- Selection pass-through with step coupling ---

func (s *Session) SelectItems(categoryKey string, items []menu.Item) {
	s.sel.SelectItems(categoryKey, items)
}

func (s *Session) SetQuantity(itemID string, n int) {
	s.sel.SetQuantity(itemID, n)
}

// RemoveItem drops one item. Emptying the whole selection while on the
// quantities step sends the wizard back to selection; quantities with
// nothing selected are meaningless.
func (s *Session) RemoveItem(itemID string) {
	s.sel.RemoveItem(itemID)
	if s.step == StepQuantifying && s.sel.IsEmpty() {
		s.step = StepSelecting
	}
}

// --- Step transitions ---

// Continue advances one step. Selection→quantities requires at least one
// item and a non-blank name; quantities→confirmation is unconditional.
func (s *Session) Continue() error {
	switch s.step {
	case StepSelecting:
		if s.sel.IsEmpty() {
			return ErrNothingSelected
		}
		if strings.TrimSpace(s.name) == "" {
			return ErrNameRequired
		}
		s.step = StepQuantifying
	case StepQuantifying:
		s.step = StepConfirming
	}
	return nil
}

// Back steps backward. Always allowed, no validation.
func (s *Session) Back() {
	if s.step > StepSelecting {
		s.step--
	}
}

// NewOrder resets everything for a fresh order: step, selections,
// quantities, name, error state, completion.
func (s *Session) NewOrder() {
	s.step = StepSelecting
	s.sel.Reset(s.catalog.Keys())
	s.name = ""
	s.complete = false
	s.submitting = false
	s.errMsg = ""
	s.errInfo = false
	s.lastPayload = nil
}

// --- Payload construction ---

// BuildPayload assembles the wire payload fresh from the current
// selection state.
func (s *Session) BuildPayload() api.Payload {
	var items []api.PayloadItem
	for _, it := range s.sel.AllSelected() {
		items = append(items, api.PayloadItem{
			ID:            it.ID,
			Name:          it.Name,
			Type:          it.Category,
			Quantity:      s.sel.Quantity(it.ID),
			NeedsQuantity: false,
		})
	}
	return api.Payload{
		UserID:   s.store.UserID(),
		UserName: s.name,
		Items:    items,
	}
}

// Restore re-seeds name, selections and quantities from a stored payload,
// re-resolving every item against the current catalog. Items that are no
// longer on the menu are silently dropped.
func (s *Session) Restore(p api.Payload) {
	if p.UserName != "" {
		s.name = p.UserName
	}

	byCategory := make(map[string][]menu.Item)
	quantities := make(map[string]int)
	for _, pi := range p.Items {
		if pi.ID == "" || pi.Type == "" {
			continue
		}
		it, ok := s.catalog.Find(pi.Type, pi.ID)
		if !ok {
			continue
		}
		byCategory[pi.Type] = append(byCategory[pi.Type], it)
		q := pi.Quantity
		if q < 1 {
			q = 1
		}
		quantities[it.ID] = q
	}

	s.sel.Reset(s.catalog.Keys())
	for key, items := range byCategory {
		s.sel.SelectItems(key, items)
	}
	for id, q := range quantities {
		s.sel.SetQuantity(id, q)
	}
}

// --- Submission ---

// Submit runs the submission protocol from the confirmation step:
// re-check the window with a fresh poll, fall back to a local pending
// save when closed, otherwise post with a bounded timeout and branch on
// the outcome. Only one submission can be in flight; the trigger is also
// refused while an error is still displayed.
func (s *Session) Submit(ctx context.Context) error {
	if s.step != StepConfirming || s.submitting || s.errMsg != "" || s.complete {
		return ErrSubmitUnavailable
	}
	s.submitting = true
	defer func() { s.submitting = false }()

	// Fresh poll, never cached: the user may have sat on the summary
	// past the deadline.
	st := s.checker.Poll(ctx, false)

	payload := s.BuildPayload()
	s.lastPayload = &payload

	if st == nil || !st.IsOpen {
		s.store.SavePending(payload)
		msg := msgClosed
		if st != nil && st.NextOpening != nil {
			msg += fmt.Sprintf(" (over ongeveer %s)", status.FormatUntil(s.now(), st.NextOpening))
		}
		s.errMsg = msg + "."
		s.errInfo = true
		return nil
	}

	if err := s.submitter.SubmitOrder(ctx, payload, s.submitTimeout); err != nil {
		s.errMsg = classifySubmitError(err)
		s.errInfo = false
		// Not re-queued automatically; logged so the order is
		// recoverable, resubmission stays user-initiated.
		log.Printf("order submission failed: %v (payload: %+v)", err, payload)
		return err
	}

	s.complete = true
	s.store.SaveLastOrder(payload)
	s.store.ClearPending()
	return nil
}

func classifySubmitError(err error) string {
	var se *api.SubmitError
	if errors.As(err, &se) {
		switch se.Kind {
		case api.KindTimeout:
			return msgTimeout
		case api.KindNetwork:
			return msgNetwork
		case api.KindServer:
			return fmt.Sprintf("%s: status %d.", msgServer, se.Status)
		}
	}
	return fmt.Sprintf("%s: %v.", msgServer, err)
}
