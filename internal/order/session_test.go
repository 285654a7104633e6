package order

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/frietavond/bestel/internal/api"
	"github.com/frietavond/bestel/internal/menu"
)

// --- Mocks ---

type stubChecker struct {
	fn    func() *api.Status
	calls int
}

func (s *stubChecker) Poll(ctx context.Context, showLoading bool) *api.Status {
	s.calls++
	return s.fn()
}

type stubSubmitter struct {
	fn  func(p api.Payload) error
	got []api.Payload
}

func (s *stubSubmitter) SubmitOrder(ctx context.Context, p api.Payload, timeout time.Duration) error {
	s.got = append(s.got, p)
	if s.fn != nil {
		return s.fn(p)
	}
	return nil
}

type stubStore struct {
	userID    string
	lastOrder *api.Payload
	pending   *api.Payload
	cleared   bool
}

func (s *stubStore) UserID() string {
	if s.userID == "" {
		return "user-1"
	}
	return s.userID
}
func (s *stubStore) SaveLastOrder(p api.Payload) { s.lastOrder = &p }
func (s *stubStore) SavePending(p api.Payload)   { s.pending = &p }
func (s *stubStore) ClearPending()               { s.cleared = true }

func openNow() *api.Status {
	return &api.Status{IsOpen: true}
}

// newTestSession returns a session advanced to the confirmation step with
// one Cola (quantity 3) selected, plus its collaborators.
func newTestSession(t *testing.T) (*Session, *stubChecker, *stubSubmitter, *stubStore) {
	t.Helper()
	c := testCatalog(t)
	checker := &stubChecker{fn: openNow}
	submitter := &stubSubmitter{}
	store := &stubStore{}

	s := NewSession(c, checker, submitter, store, 10*time.Second)
	s.SetName("Anne")
	s.SelectItems("dranken", []menu.Item{item(c, "dranken", "1")})
	s.SetQuantity("1", 3)
	if err := s.Continue(); err != nil {
		t.Fatalf("to quantities: %v", err)
	}
	if err := s.Continue(); err != nil {
		t.Fatalf("to confirmation: %v", err)
	}
	return s, checker, submitter, store
}

// =====================
// Step transitions
// =====================

func TestContinue_Guards(t *testing.T) {
	c := testCatalog(t)
	s := NewSession(c, &stubChecker{fn: openNow}, &stubSubmitter{}, &stubStore{}, time.Second)

	if err := s.Continue(); !errors.Is(err, ErrNothingSelected) {
		t.Errorf("empty selection: got %v, want ErrNothingSelected", err)
	}

	s.SelectItems("dranken", []menu.Item{item(c, "dranken", "1")})
	s.SetName("   ")
	if err := s.Continue(); !errors.Is(err, ErrNameRequired) {
		t.Errorf("blank name: got %v, want ErrNameRequired", err)
	}
	if s.Step() != StepSelecting {
		t.Errorf("failed guard must not advance, step = %d", s.Step())
	}

	s.SetName("Anne")
	if err := s.Continue(); err != nil {
		t.Fatalf("valid continue: %v", err)
	}
	if s.Step() != StepQuantifying {
		t.Errorf("step after continue: %d", s.Step())
	}
}

func TestBack(t *testing.T) {
	s, _, _, _ := newTestSession(t)

	s.Back()
	if s.Step() != StepQuantifying {
		t.Errorf("back from confirmation: step %d", s.Step())
	}
	s.Back()
	s.Back() // already at the first step, no-op
	if s.Step() != StepSelecting {
		t.Errorf("step floor: %d", s.Step())
	}
}

func TestRemoveItem_RevertsToSelectionWhenEmptied(t *testing.T) {
	c := testCatalog(t)
	s := NewSession(c, &stubChecker{fn: openNow}, &stubSubmitter{}, &stubStore{}, time.Second)
	s.SetName("Anne")
	s.SelectItems("dranken", []menu.Item{item(c, "dranken", "1"), item(c, "dranken", "2")})
	if err := s.Continue(); err != nil {
		t.Fatal(err)
	}

	s.RemoveItem("1")
	if s.Step() != StepQuantifying {
		t.Errorf("non-empty selection must stay on quantities, step %d", s.Step())
	}

	s.RemoveItem("2")
	if s.Step() != StepSelecting {
		t.Errorf("emptied selection must revert to selection, step %d", s.Step())
	}
}

// =====================
// Payload construction
// =====================

func TestBuildPayload(t *testing.T) {
	s, _, _, _ := newTestSession(t)

	p := s.BuildPayload()
	if p.UserID != "user-1" || p.UserName != "Anne" {
		t.Errorf("identity: %+v", p)
	}
	if len(p.Items) != 1 {
		t.Fatalf("items: %+v", p.Items)
	}
	it := p.Items[0]
	if it.ID != "1" || it.Name != "Cola" || it.Type != "dranken" || it.Quantity != 3 || it.NeedsQuantity {
		t.Errorf("item: %+v", it)
	}
}

func TestRestore(t *testing.T) {
	c := testCatalog(t)
	s := NewSession(c, &stubChecker{fn: openNow}, &stubSubmitter{}, &stubStore{}, time.Second)

	s.Restore(api.Payload{
		UserName: "Bram",
		Items: []api.PayloadItem{
			{ID: "1", Name: "Cola", Type: "dranken", Quantity: 2},
			{ID: "99", Name: "Verdwenen", Type: "dranken", Quantity: 1}, // no longer on the menu
			{ID: "3", Name: "Friet groot", Type: "friet", Quantity: 0},  // invalid quantity
		},
	})

	if s.Name() != "Bram" {
		t.Errorf("name: %q", s.Name())
	}
	all := s.Selection().AllSelected()
	if len(all) != 2 {
		t.Fatalf("restored items: %+v", all)
	}
	if q := s.Selection().Quantity("1"); q != 2 {
		t.Errorf("restored quantity: %d", q)
	}
	if q := s.Selection().Quantity("3"); q != 1 {
		t.Errorf("invalid quantity must coerce to 1, got %d", q)
	}
}

// =====================
// Submission
// =====================

func TestSubmit_Success(t *testing.T) {
	s, checker, submitter, store := newTestSession(t)

	if err := s.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if checker.calls != 1 {
		t.Errorf("submission must re-poll exactly once, got %d", checker.calls)
	}
	if len(submitter.got) != 1 {
		t.Fatalf("posted payloads: %d", len(submitter.got))
	}
	if !s.Complete() {
		t.Error("successful submission must complete the wizard")
	}
	if store.lastOrder == nil || store.lastOrder.Items[0].ID != "1" {
		t.Errorf("last order not saved: %+v", store.lastOrder)
	}
	if !store.cleared {
		t.Error("pending order must be cleared on success")
	}
}

func TestSubmit_ClosedWindowSavesPending(t *testing.T) {
	s, checker, submitter, store := newTestSession(t)

	next := time.Now().Add(2 * time.Hour)
	checker.fn = func() *api.Status {
		return &api.Status{IsOpen: false, NextOpening: &next}
	}

	if err := s.Submit(context.Background()); err != nil {
		t.Fatalf("closed window is not a submit error: %v", err)
	}
	if len(submitter.got) != 0 {
		t.Error("nothing may be posted while closed")
	}
	if store.pending == nil || store.pending.Items[0].Quantity != 3 {
		t.Errorf("pending order not saved: %+v", store.pending)
	}
	msg, info := s.Error()
	if !info {
		t.Error("closed-window message is informational")
	}
	if !strings.Contains(msg, "uur") {
		t.Errorf("message should mention the wait: %q", msg)
	}
	if s.Complete() {
		t.Error("wizard must not complete while closed")
	}
}

func TestSubmit_NilStatusTreatedAsClosed(t *testing.T) {
	s, checker, submitter, store := newTestSession(t)
	checker.fn = func() *api.Status { return nil }

	if err := s.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(submitter.got) != 0 {
		t.Error("unknown window state must not post")
	}
	if store.pending == nil {
		t.Error("pending order not saved")
	}
	if msg, _ := s.Error(); strings.Contains(msg, "ongeveer") {
		t.Errorf("no opening estimate without a status: %q", msg)
	}
}

func TestSubmit_TimeoutKeepsPayloadForRetry(t *testing.T) {
	s, _, submitter, store := newTestSession(t)

	submitter.fn = func(api.Payload) error {
		return &api.SubmitError{Kind: api.KindTimeout, Err: context.DeadlineExceeded}
	}

	if err := s.Submit(context.Background()); err == nil {
		t.Fatal("timeout must surface as an error")
	}
	msg, info := s.Error()
	if msg != msgTimeout || info {
		t.Errorf("error state: %q info=%v", msg, info)
	}
	if s.Complete() || store.lastOrder != nil {
		t.Error("failed submission must not persist or complete")
	}

	// The trigger stays disabled until the error is dismissed.
	if err := s.Submit(context.Background()); !errors.Is(err, ErrSubmitUnavailable) {
		t.Errorf("submit with active error: got %v, want ErrSubmitUnavailable", err)
	}

	// Dismiss, fix the network, retry with the same selection.
	s.DismissError()
	submitter.fn = nil
	if err := s.Submit(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(submitter.got) != 2 || submitter.got[1].Items[0].ID != "1" {
		t.Errorf("retry payload: %+v", submitter.got)
	}
	if !s.Complete() {
		t.Error("retry should complete the wizard")
	}
}

func TestSubmit_ErrorClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"network", &api.SubmitError{Kind: api.KindNetwork, Err: errors.New("refused")}, msgNetwork},
		{"server", &api.SubmitError{Kind: api.KindServer, Status: 503, Err: errors.New("503")}, "status 503"},
		{"unknown", errors.New("weird"), msgServer},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s, _, submitter, _ := newTestSession(t)
			submitter.fn = func(api.Payload) error { return c.err }

			if err := s.Submit(context.Background()); err == nil {
				t.Fatal("expected an error")
			}
			if msg, _ := s.Error(); !strings.Contains(msg, c.want) {
				t.Errorf("message %q should contain %q", msg, c.want)
			}
		})
	}
}

func TestSubmit_GuardedOutsideConfirmation(t *testing.T) {
	c := testCatalog(t)
	s := NewSession(c, &stubChecker{fn: openNow}, &stubSubmitter{}, &stubStore{}, time.Second)

	if err := s.Submit(context.Background()); !errors.Is(err, ErrSubmitUnavailable) {
		t.Errorf("submit on step 1: got %v", err)
	}
}

func TestSubmit_GuardedAfterCompletion(t *testing.T) {
	s, _, submitter, _ := newTestSession(t)

	if err := s.Submit(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := s.Submit(context.Background()); !errors.Is(err, ErrSubmitUnavailable) {
		t.Errorf("double submit: got %v", err)
	}
	if len(submitter.got) != 1 {
		t.Errorf("posted %d times", len(submitter.got))
	}
}

// =====================
// New order
// =====================

func TestNewOrder_ResetsEverything(t *testing.T) {
	s, _, _, _ := newTestSession(t)

	if err := s.Submit(context.Background()); err != nil {
		t.Fatal(err)
	}
	s.NewOrder()

	if s.Step() != StepSelecting || s.Complete() || s.Name() != "" {
		t.Errorf("reset state: step=%d complete=%v name=%q", s.Step(), s.Complete(), s.Name())
	}
	if !s.Selection().IsEmpty() {
		t.Error("selection survived the reset")
	}
	if msg, _ := s.Error(); msg != "" {
		t.Errorf("error survived the reset: %q", msg)
	}
}
