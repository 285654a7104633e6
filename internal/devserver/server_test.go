package devserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/frietavond/bestel/internal/api"
	"github.com/frietavond/bestel/internal/menu"
)

func testMenu() map[string][]menu.RawItem {
	return map[string][]menu.RawItem{
		"dranken": {{ID: "1", Name: "Cola"}},
		"friet":   {{ID: "2", Name: "Friet groot"}},
	}
}

// newTestServer runs the stand-in behind httptest and points a real client
// at it, so these tests double as a wire-contract check.
func newTestServer(t *testing.T) (*Server, *api.Client) {
	t.Helper()
	srv := New(testMenu())
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return srv, api.New(ts.URL)
}

// =====================
// Menu
// =====================

func TestGetMenu(t *testing.T) {
	_, client := newTestServer(t)

	raw, err := client.FetchMenu(context.Background())
	if err != nil {
		t.Fatalf("fetch menu: %v", err)
	}
	if len(raw["dranken"]) != 1 || raw["dranken"][0].Name != "Cola" {
		t.Errorf("menu round trip: %+v", raw)
	}
}

// =====================
// Order status
// =====================

func TestGetStatus_ReflectsWindow(t *testing.T) {
	srv, client := newTestServer(t)

	st, err := client.FetchStatus(context.Background())
	if err != nil {
		t.Fatalf("fetch status: %v", err)
	}
	if st.IsOpen {
		t.Error("window must start closed")
	}

	deadline := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	srv.SetWindow(Window{IsOpen: true, Deadline: &deadline})

	st, err = client.FetchStatus(context.Background())
	if err != nil {
		t.Fatalf("fetch status: %v", err)
	}
	if !st.IsOpen || st.Deadline == nil || !st.Deadline.Equal(deadline) {
		t.Errorf("open window: %+v", st)
	}
}

// =====================
// Order submission
// =====================

func TestPostOrder_AcceptedWhileOpen(t *testing.T) {
	srv, client := newTestServer(t)
	srv.SetWindow(Window{IsOpen: true})

	p := api.Payload{
		UserID:   "u-1",
		UserName: "Anne",
		Items:    []api.PayloadItem{{ID: "1", Name: "Cola", Type: "dranken", Quantity: 2}},
	}
	if err := client.SubmitOrder(context.Background(), p, time.Second); err != nil {
		t.Fatalf("submit: %v", err)
	}

	got := srv.Orders()
	if len(got) != 1 || got[0].UserName != "Anne" || got[0].Items[0].Quantity != 2 {
		t.Errorf("recorded orders: %+v", got)
	}
}

func TestPostOrder_RejectedWhileClosed(t *testing.T) {
	srv, client := newTestServer(t)

	p := api.Payload{
		UserID:   "u-1",
		UserName: "Anne",
		Items:    []api.PayloadItem{{ID: "1", Name: "Cola", Type: "dranken", Quantity: 1}},
	}
	err := client.SubmitOrder(context.Background(), p, time.Second)
	if err == nil {
		t.Fatal("closed window must reject the order")
	}
	if len(srv.Orders()) != 0 {
		t.Error("rejected order was recorded")
	}
}

func TestPostOrder_ValidatesBody(t *testing.T) {
	srv, client := newTestServer(t)
	srv.SetWindow(Window{IsOpen: true})

	err := client.SubmitOrder(context.Background(), api.Payload{UserID: "u-1"}, time.Second)
	if err == nil {
		t.Fatal("empty order must be rejected")
	}
	if len(srv.Orders()) != 0 {
		t.Error("invalid order was recorded")
	}

	resp, err := http.Post(newTestURL(t, srv)+"/api/order/guest", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed body: status %d", resp.StatusCode)
	}
}

// newTestURL spins up a second listener for raw-HTTP checks.
func newTestURL(t *testing.T, srv *Server) string {
	t.Helper()
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts.URL
}
