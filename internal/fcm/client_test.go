package fcm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testClient(server *httptest.Server) *Client {
	c := NewClient("test-key", "open", false)
	c.endpoint = server.URL
	c.client = server.Client()
	return c
}

func TestSend_RequestShape(t *testing.T) {
	var got sendRequest
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(sendResponse{Success: 1})
	}))
	defer server.Close()

	data := json.RawMessage(`{"type":"order_executed"}`)
	err := testClient(server).Send(context.Background(), "token-1", "Title", "Body", data)
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}

	if auth != "key=test-key" {
		t.Errorf("unexpected authorization header %q", auth)
	}
	if got.To != "token-1" {
		t.Errorf("unexpected to %q", got.To)
	}
	if got.Notification.Title != "Title" || got.Notification.Body != "Body" {
		t.Errorf("unexpected notification %+v", got.Notification)
	}
	if got.Notification.ClickAction != "open" {
		t.Errorf("unexpected click action %q", got.Notification.ClickAction)
	}
	if string(got.Data) != `{"type":"order_executed"}` {
		t.Errorf("unexpected data %s", got.Data)
	}
}

func TestSend_NilDataBecomesEmptyObject(t *testing.T) {
	var got sendRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(sendResponse{Success: 1})
	}))
	defer server.Close()

	if err := testClient(server).Send(context.Background(), "t", "a", "b", nil); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if string(got.Data) != "{}" {
		t.Errorf("expected empty object data, got %s", got.Data)
	}
}

func TestSend_GatewayFailureIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(sendResponse{Failure: 1, Results: []struct {
			Error string `json:"error"`
		}{{Error: "NotRegistered"}}})
	}))
	defer server.Close()

	err := testClient(server).Send(context.Background(), "t", "a", "b", nil)
	if err == nil {
		t.Fatal("expected error for failure response")
	}
}

func TestSend_HTTPErrorIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer server.Close()

	if err := testClient(server).Send(context.Background(), "t", "a", "b", nil); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestSend_DryRunSkipsNetwork(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	c := testClient(server)
	c.dryRun = true
	if err := c.Send(context.Background(), "t", "a", "b", nil); err != nil {
		t.Fatalf("dry run send failed: %v", err)
	}
	if called {
		t.Error("dry run must not hit the gateway")
	}
}
