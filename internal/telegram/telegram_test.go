package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testNotifier(serverURL string) *Notifier {
	n := New("test-token", "-100123")
	n.base = serverURL
	n.backoff = time.Millisecond
	return n
}

func TestSend(t *testing.T) {
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottest-token/sendMessage" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode: %v", err)
		}
		fmt.Fprint(w, `{"ok": true}`)
	}))
	defer srv.Close()

	if err := testNotifier(srv.URL).Send(context.Background(), "<b>3 posts published</b>"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if payload["chat_id"] != "-100123" {
		t.Errorf("chat_id = %v", payload["chat_id"])
	}
	if payload["text"] != "<b>3 posts published</b>" {
		t.Errorf("text = %v", payload["text"])
	}
	if payload["parse_mode"] != "HTML" {
		t.Errorf("parse_mode = %v", payload["parse_mode"])
	}
	if payload["disable_web_page_preview"] != true {
		t.Errorf("disable_web_page_preview = %v", payload["disable_web_page_preview"])
	}
}

func TestSendRetriesUntilSuccess(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"ok": true}`)
	}))
	defer srv.Close()

	if err := testNotifier(srv.URL).Send(context.Background(), "hi"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestSendGivesUpAfterThreeTries(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if err := testNotifier(srv.URL).Send(context.Background(), "hi"); err == nil {
		t.Fatal("expected error")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestEnabled(t *testing.T) {
	if New("", "chat").Enabled() {
		t.Error("enabled without token")
	}
	if New("token", "").Enabled() {
		t.Error("enabled without chat")
	}
	if !New("token", "chat").Enabled() {
		t.Error("disabled with full credentials")
	}
	var nilNotifier *Notifier
	if nilNotifier.Enabled() {
		t.Error("nil notifier reported enabled")
	}
}
